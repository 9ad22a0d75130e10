package anim

import (
	"fmt"
	"math"
	"sort"
)

// Property names an animatable shape attribute.
type Property string

const (
	PropX           Property = "x"
	PropY           Property = "y"
	PropWidth       Property = "width"
	PropHeight      Property = "height"
	PropRotation    Property = "rotation"
	PropScaleX      Property = "scale_x"
	PropScaleY      Property = "scale_y"
	PropOpacity     Property = "opacity"
	PropStrokeWidth Property = "stroke_width"
	PropFill        Property = "fill"
	PropStroke      Property = "stroke"
)

func (p Property) isColor() bool { return p == PropFill || p == PropStroke }

func (p Property) valid() bool {
	switch p {
	case PropX, PropY, PropWidth, PropHeight, PropRotation, PropScaleX, PropScaleY,
		PropOpacity, PropStrokeWidth, PropFill, PropStroke:
		return true
	}
	return false
}

// LoopMode controls what a linear animation does when it reaches its end.
type LoopMode string

const (
	LoopOneShot  LoopMode = "oneshot"
	LoopLoop     LoopMode = "loop"
	LoopPingPong LoopMode = "pingpong"
)

// Keyframe is one sample on a track. The ease shapes the segment that
// starts at this key.
type Keyframe struct {
	Time  float64 `yaml:"time"`
	Value float64 `yaml:"value"`
	Color *Color  `yaml:"color"`
	Ease  string  `yaml:"ease"`

	easeFn EaseFunc
}

// Track animates one property of one shape.
type Track struct {
	Shape    string     `yaml:"shape"`
	Property Property   `yaml:"property"`
	Keys     []Keyframe `yaml:"keys"`

	shape int
}

// LinearAnimation is a named timeline of tracks.
type LinearAnimation struct {
	Name     string   `yaml:"name"`
	Duration float64  `yaml:"duration"`
	Loop     LoopMode `yaml:"loop"`
	Speed    float64  `yaml:"speed"`
	Tracks   []Track  `yaml:"tracks"`
}

func (a *LinearAnimation) prepare(shapes map[string]int) error {
	if a.Name == "" {
		return fmt.Errorf("animation without name")
	}
	if a.Duration < 0 {
		return fmt.Errorf("animation %q: negative duration", a.Name)
	}
	switch a.Loop {
	case "":
		a.Loop = LoopOneShot
	case LoopOneShot, LoopLoop, LoopPingPong:
	default:
		return fmt.Errorf("animation %q: unknown loop mode %q", a.Name, a.Loop)
	}
	if a.Speed == 0 {
		a.Speed = 1
	}

	for i := range a.Tracks {
		tr := &a.Tracks[i]
		idx, ok := shapes[tr.Shape]
		if !ok {
			return fmt.Errorf("animation %q: track targets unknown shape %q", a.Name, tr.Shape)
		}
		tr.shape = idx
		if !tr.Property.valid() {
			return fmt.Errorf("animation %q: unknown property %q", a.Name, tr.Property)
		}
		if len(tr.Keys) == 0 {
			return fmt.Errorf("animation %q: track %s.%s has no keys", a.Name, tr.Shape, tr.Property)
		}
		sort.SliceStable(tr.Keys, func(i, j int) bool { return tr.Keys[i].Time < tr.Keys[j].Time })
		for k := range tr.Keys {
			key := &tr.Keys[k]
			fn, err := LookupEase(key.Ease)
			if err != nil {
				return fmt.Errorf("animation %q: %w", a.Name, err)
			}
			key.easeFn = fn
			if tr.Property.isColor() && key.Color == nil {
				return fmt.Errorf("animation %q: colour track %s.%s needs color keys", a.Name, tr.Shape, tr.Property)
			}
		}
	}
	return nil
}

// segment returns the keys surrounding t and the eased progress between them.
func (tr *Track) segment(t float64) (from, to *Keyframe, progress float64) {
	keys := tr.Keys
	if t <= keys[0].Time {
		return &keys[0], &keys[0], 0
	}
	last := &keys[len(keys)-1]
	if t >= last.Time {
		return last, last, 0
	}
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > t }) - 1
	from, to = &keys[i], &keys[i+1]
	span := to.Time - from.Time
	if span <= 0 {
		return to, to, 0
	}
	return from, to, from.easeFn((t - from.Time) / span)
}

func (tr *Track) apply(pose []shapeState, t float64) {
	from, to, p := tr.segment(t)
	st := &pose[tr.shape]
	if tr.Property.isColor() {
		st.setColor(tr.Property, from.Color.Blend(*to.Color, p))
		return
	}
	st.setNumber(tr.Property, from.Value+(to.Value-from.Value)*p)
}

// player is the playback cursor of one LinearAnimation.
type player struct {
	anim      *LinearAnimation
	time      float64
	direction float64
	done      bool
}

func newPlayer(a *LinearAnimation) *player {
	return &player{anim: a, direction: 1}
}

func (p *player) reset() {
	p.time = 0
	p.direction = 1
	p.done = false
}

func (p *player) advance(dt float64) {
	a := p.anim
	if a.Duration <= 0 {
		p.time = 0
		p.done = a.Loop == LoopOneShot
		return
	}

	p.time += dt * a.Speed * p.direction
	switch a.Loop {
	case LoopLoop:
		p.time = math.Mod(p.time, a.Duration)
		if p.time < 0 {
			p.time += a.Duration
		}
	case LoopPingPong:
		for p.time > a.Duration || p.time < 0 {
			if p.time > a.Duration {
				p.time = 2*a.Duration - p.time
			} else {
				p.time = -p.time
			}
			p.direction = -p.direction
		}
	default:
		if p.time >= a.Duration {
			p.time = a.Duration
			p.done = true
		} else if p.time < 0 {
			p.time = 0
			p.done = true
		}
	}
}

func (p *player) apply(pose []shapeState) {
	for i := range p.anim.Tracks {
		p.anim.Tracks[i].apply(pose, p.time)
	}
}
