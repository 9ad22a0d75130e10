// Package config reads the demo's YAML configuration and turns its surface
// entries into controller configs.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/milk9111/animsurface/anim"
	"github.com/milk9111/animsurface/assets"
	"github.com/milk9111/animsurface/remote"
	"github.com/milk9111/animsurface/surface"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Window Window `yaml:"window"`
	// AssetServer, when set, serves the bundled assets on this address so
	// url sources can point at them.
	AssetServer string `yaml:"asset_server,omitempty"`
	// Watch reloads surfaces whose path source changes on disk.
	Watch bool           `yaml:"watch,omitempty"`
	MQTT  *remote.Config `yaml:"mqtt,omitempty"`
	// Shared files are fetched once and may back several surfaces.
	Shared   map[string]Source `yaml:"shared,omitempty"`
	Surfaces []Surface         `yaml:"surfaces"`
}

type Window struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

type Rect struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Source names exactly one place to get an asset from.
type Source struct {
	Path     string `yaml:"path,omitempty"`
	URL      string `yaml:"url,omitempty"`
	Embedded string `yaml:"embedded,omitempty"`
	Inline   string `yaml:"inline,omitempty"`
	Shared   string `yaml:"shared,omitempty"`
}

type Surface struct {
	ID   string `yaml:"id"`
	Rect Rect   `yaml:"rect"`
	// Stretch grows the rect to the window's right and bottom edges,
	// keeping the same margin as its origin.
	Stretch       bool           `yaml:"stretch,omitempty"`
	Source        Source         `yaml:"source"`
	Artboard      string         `yaml:"artboard,omitempty"`
	StateMachines []string       `yaml:"state_machines,omitempty"`
	Animations    []string       `yaml:"animations,omitempty"`
	Fit           anim.Fit       `yaml:"fit"`
	Alignment     anim.Alignment `yaml:"alignment"`
	Autoplay      bool           `yaml:"autoplay"`
	FPSCounter    bool           `yaml:"fps_counter,omitempty"`
}

// Default is the configuration used without a config file.
func Default() Config {
	return Config{
		Window: Window{Width: 960, Height: 640, Title: "animsurface"},
		Surfaces: []Surface{{
			ID:            "rive-canvas",
			Rect:          Rect{X: 20, Y: 20, Width: 500, Height: 500},
			Stretch:       true,
			Source:        Source{Path: "assets/" + assets.CleanTheCar},
			StateMachines: []string{"State Machine 1"},
			Fit:           anim.FitWidth,
			Alignment:     anim.AlignCenter,
			Autoplay:      true,
			FPSCounter:    true,
		}},
	}
}

// Load reads a config file. Omitted window fields keep their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a config document.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	cfg.Surfaces = nil

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal renders cfg back to YAML.
func Marshal(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive")
	}
	if len(c.Surfaces) == 0 {
		return errors.New("no surfaces configured")
	}
	ids := map[string]bool{}
	for i, s := range c.Surfaces {
		if s.ID == "" {
			return fmt.Errorf("surface %d has no id", i)
		}
		if ids[s.ID] {
			return fmt.Errorf("duplicate surface id %q", s.ID)
		}
		ids[s.ID] = true
		if s.Source.Shared != "" {
			if _, ok := c.Shared[s.Source.Shared]; !ok {
				return fmt.Errorf("surface %q uses unknown shared file %q", s.ID, s.Source.Shared)
			}
		}
	}
	for name, src := range c.Shared {
		if src.Shared != "" {
			return fmt.Errorf("shared file %q cannot refer to another shared file", name)
		}
	}
	if c.MQTT != nil && c.MQTT.URL == "" {
		return errors.New("mqtt.url is required when mqtt is set")
	}
	return nil
}

// AssetSource converts s without resolving shared files. Contradictory
// sources are passed through so the controller reports them.
func (s Source) AssetSource() (surface.AssetSource, error) {
	var src surface.AssetSource
	src.LocalPath = s.Path
	src.URL = s.URL
	switch {
	case s.Embedded != "" && s.Inline != "":
		return src, errors.New("embedded and inline are exclusive")
	case s.Embedded != "":
		data, err := assets.LoadFile(s.Embedded)
		if err != nil {
			return src, fmt.Errorf("embedded asset %q: %w", s.Embedded, err)
		}
		src.Buffer = data
	case s.Inline != "":
		src.Buffer = []byte(s.Inline)
	}
	return src, nil
}

// StretchedRect returns the rect s occupies in a window of the given size.
func (s Surface) StretchedRect(winW, winH float64) Rect {
	r := s.Rect
	if !s.Stretch {
		return r
	}
	r.Width = winW - 2*r.X
	r.Height = winH - 2*r.Y
	if r.Width < 1 {
		r.Width = 1
	}
	if r.Height < 1 {
		r.Height = 1
	}
	return r
}

// Build produces the controller config for s. Shared sources are looked up
// in files, keyed by the names in Config.Shared.
func (s Surface) Build(files map[string]*anim.File) (surface.Config, error) {
	src, err := s.Source.AssetSource()
	if err != nil {
		return surface.Config{}, fmt.Errorf("surface %q: %w", s.ID, err)
	}
	if s.Source.Shared != "" {
		f, ok := files[s.Source.Shared]
		if !ok {
			return surface.Config{}, fmt.Errorf("surface %q: shared file %q is not loaded", s.ID, s.Source.Shared)
		}
		src.File = f
	}
	return surface.Config{
		Source:        src,
		StateMachines: s.StateMachines,
		Animations:    s.Animations,
		Artboard:      s.Artboard,
		Fit:           s.Fit,
		Alignment:     s.Alignment,
		Autoplay:      s.Autoplay,
		FPSCounter:    s.FPSCounter,
	}, nil
}
