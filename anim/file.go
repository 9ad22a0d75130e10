package anim

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// File is a decoded asset. It is read-only after Decode and safe to share
// between instances and goroutines.
type File struct {
	Version   int         `yaml:"version"`
	Artboards []*Artboard `yaml:"artboards"`

	// prepared is set by Decode once every artboard validated.
	prepared bool
}

// Artboard is a named drawing area with its own content.
type Artboard struct {
	Name          string             `yaml:"name"`
	Width         float64            `yaml:"width"`
	Height        float64            `yaml:"height"`
	Background    *Color             `yaml:"background"`
	Shapes        []*Shape           `yaml:"shapes"`
	Animations    []*LinearAnimation `yaml:"animations"`
	StateMachines []*StateMachine    `yaml:"state_machines"`

	animations    map[string]*LinearAnimation
	stateMachines map[string]*StateMachine
}

// Decode parses and validates an asset. All failures wrap ErrFormat.
func Decode(data []byte) (*File, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrFormat)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if len(f.Artboards) == 0 {
		return nil, fmt.Errorf("%w: no artboards", ErrFormat)
	}

	names := map[string]bool{}
	for i, ab := range f.Artboards {
		if ab == nil {
			return nil, fmt.Errorf("%w: artboard %d is empty", ErrFormat, i)
		}
		if names[ab.Name] {
			return nil, fmt.Errorf("%w: duplicate artboard %q", ErrFormat, ab.Name)
		}
		names[ab.Name] = true
		if err := ab.prepare(); err != nil {
			return nil, fmt.Errorf("%w: artboard %q: %v", ErrFormat, ab.Name, err)
		}
	}
	f.prepared = true
	return &f, nil
}

// Decoded reports whether f came out of Decode. Files built by hand have
// no lookup tables and cannot be instantiated.
func (f *File) Decoded() bool { return f != nil && f.prepared }

func (ab *Artboard) prepare() error {
	if ab.Width <= 0 || ab.Height <= 0 {
		return fmt.Errorf("size must be positive, got %gx%g", ab.Width, ab.Height)
	}

	shapes := make(map[string]int, len(ab.Shapes))
	for i, s := range ab.Shapes {
		if s == nil {
			return fmt.Errorf("shape %d is empty", i)
		}
		if s.Name == "" {
			return fmt.Errorf("shape %d has no name", i)
		}
		if _, dup := shapes[s.Name]; dup {
			return fmt.Errorf("duplicate shape %q", s.Name)
		}
		if err := s.validate(); err != nil {
			return err
		}
		shapes[s.Name] = i
	}

	ab.animations = make(map[string]*LinearAnimation, len(ab.Animations))
	for i, a := range ab.Animations {
		if a == nil {
			return fmt.Errorf("animation %d is empty", i)
		}
		if err := a.prepare(shapes); err != nil {
			return err
		}
		if _, dup := ab.animations[a.Name]; dup {
			return fmt.Errorf("duplicate animation %q", a.Name)
		}
		ab.animations[a.Name] = a
	}

	ab.stateMachines = make(map[string]*StateMachine, len(ab.StateMachines))
	for i, sm := range ab.StateMachines {
		if sm == nil {
			return fmt.Errorf("state machine %d is empty", i)
		}
		if err := sm.prepare(ab.animations); err != nil {
			return err
		}
		if _, dup := ab.stateMachines[sm.Name]; dup {
			return fmt.Errorf("duplicate state machine %q", sm.Name)
		}
		ab.stateMachines[sm.Name] = sm
	}
	return nil
}

// Artboard returns the named artboard, or the first one when name is empty.
func (f *File) Artboard(name string) (*Artboard, error) {
	if len(f.Artboards) == 0 {
		return nil, fmt.Errorf("%w: no artboards", ErrFormat)
	}
	if name == "" {
		if f.Artboards[0] == nil {
			return nil, fmt.Errorf("%w: artboard 0 is empty", ErrFormat)
		}
		return f.Artboards[0], nil
	}
	for _, ab := range f.Artboards {
		if ab != nil && ab.Name == name {
			return ab, nil
		}
	}
	return nil, fmt.Errorf("%w: artboard %q", ErrNotFound, name)
}

// Animation returns a linear animation by name.
func (ab *Artboard) Animation(name string) (*LinearAnimation, error) {
	if a, ok := ab.animations[name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: animation %q on artboard %q", ErrNotFound, name, ab.Name)
}

// StateMachine returns a state machine by name.
func (ab *Artboard) StateMachine(name string) (*StateMachine, error) {
	if sm, ok := ab.stateMachines[name]; ok {
		return sm, nil
	}
	return nil, fmt.Errorf("%w: state machine %q on artboard %q", ErrNotFound, name, ab.Name)
}

// Bounds is the artboard's content rectangle.
func (ab *Artboard) Bounds() Rect {
	return Rect{W: ab.Width, H: ab.Height}
}
