package anim

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/gg"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"
)

// Color is a straight-alpha colour as stored in an asset.
type Color struct {
	colorful.Color
	A float64
}

// ParseColor accepts "#rgb", "#rrggbb", "#rrggbbaa" or a CSS colour name.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Color{}, fmt.Errorf("empty color")
	}

	if !strings.HasPrefix(s, "#") {
		rgba, ok := colornames.Map[strings.ToLower(s)]
		if !ok {
			return Color{}, fmt.Errorf("unknown color name %q", s)
		}
		c, _ := colorful.MakeColor(rgba)
		return Color{Color: c, A: 1}, nil
	}

	alpha := 1.0
	if len(s) == 9 {
		a, err := strconv.ParseUint(s[7:9], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("invalid color alpha %q: %w", s, err)
		}
		alpha = float64(a) / 255
		s = s[:7]
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{Color: c, A: alpha}, nil
}

// UnmarshalYAML decodes a colour scalar.
func (c *Color) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("color must be a string")
	}
	parsed, err := ParseColor(value.Value)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Blend mixes c towards to in Lab space. t is clamped to [0,1].
func (c Color) Blend(to Color, t float64) Color {
	t = clamp01(t)
	return Color{
		Color: c.Color.BlendLab(to.Color, t).Clamped(),
		A:     c.A + (to.A-c.A)*t,
	}
}

// RGBA returns the colour with its alpha scaled by opacity.
func (c Color) RGBA(opacity float64) gg.RGBA {
	return gg.RGBA2(c.R, c.G, c.B, clamp01(c.A*opacity))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
