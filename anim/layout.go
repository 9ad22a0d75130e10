package anim

import (
	"fmt"
	"math"
	"strings"
)

// Fit controls how artboard content is scaled into the drawing surface.
type Fit int

const (
	FitContain Fit = iota
	FitCover
	FitWidth
	FitHeight
	FitNone
	FitScaleDown
	FitFill
)

var fitNames = map[Fit]string{
	FitContain:   "contain",
	FitCover:     "cover",
	FitWidth:     "fitWidth",
	FitHeight:    "fitHeight",
	FitNone:      "none",
	FitScaleDown: "scaleDown",
	FitFill:      "fill",
}

func (f Fit) String() string {
	if s, ok := fitNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Fit(%d)", int(f))
}

// ParseFit accepts the names printed by String, case-insensitively, with or
// without separators ("fit_width", "FitWidth", "fit-width").
func ParseFit(s string) (Fit, error) {
	want := normalizeName(s)
	for f, name := range fitNames {
		if normalizeName(name) == want {
			return f, nil
		}
	}
	return FitContain, fmt.Errorf("unknown fit %q", s)
}

func (f Fit) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Fit) UnmarshalText(b []byte) error {
	v, err := ParseFit(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Alignment positions content within the surface. X and Y range from -1
// (left/top) to 1 (right/bottom).
type Alignment struct {
	X, Y float64
}

var (
	AlignTopLeft      = Alignment{-1, -1}
	AlignTopCenter    = Alignment{0, -1}
	AlignTopRight     = Alignment{1, -1}
	AlignCenterLeft   = Alignment{-1, 0}
	AlignCenter       = Alignment{0, 0}
	AlignCenterRight  = Alignment{1, 0}
	AlignBottomLeft   = Alignment{-1, 1}
	AlignBottomCenter = Alignment{0, 1}
	AlignBottomRight  = Alignment{1, 1}
)

var alignmentNames = []struct {
	name  string
	align Alignment
}{
	{"topLeft", AlignTopLeft},
	{"topCenter", AlignTopCenter},
	{"topRight", AlignTopRight},
	{"centerLeft", AlignCenterLeft},
	{"center", AlignCenter},
	{"centerRight", AlignCenterRight},
	{"bottomLeft", AlignBottomLeft},
	{"bottomCenter", AlignBottomCenter},
	{"bottomRight", AlignBottomRight},
}

func (a Alignment) String() string {
	for _, n := range alignmentNames {
		if n.align == a {
			return n.name
		}
	}
	return fmt.Sprintf("Alignment(%g,%g)", a.X, a.Y)
}

// ParseAlignment accepts the nine named alignments.
func ParseAlignment(s string) (Alignment, error) {
	want := normalizeName(s)
	for _, n := range alignmentNames {
		if normalizeName(n.name) == want {
			return n.align, nil
		}
	}
	return AlignCenter, fmt.Errorf("unknown alignment %q", s)
}

func (a Alignment) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Alignment) UnmarshalText(b []byte) error {
	v, err := ParseAlignment(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, W, H float64
}

// Transform maps content space to surface space: p' = p*Scale + T.
type Transform struct {
	ScaleX, ScaleY float64
	TX, TY         float64
}

// Apply maps a content-space point into surface space.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return x*t.ScaleX + t.TX, y*t.ScaleY + t.TY
}

// Compute derives the content-to-frame transform for a fit and alignment.
func Compute(frame, content Rect, fit Fit, align Alignment) Transform {
	if content.W <= 0 || content.H <= 0 {
		return Transform{ScaleX: 1, ScaleY: 1, TX: frame.X, TY: frame.Y}
	}

	sw := frame.W / content.W
	sh := frame.H / content.H

	var sx, sy float64
	switch fit {
	case FitFill:
		sx, sy = sw, sh
	case FitCover:
		sx = math.Max(sw, sh)
		sy = sx
	case FitWidth:
		sx, sy = sw, sw
	case FitHeight:
		sx, sy = sh, sh
	case FitNone:
		sx, sy = 1, 1
	case FitScaleDown:
		sx = math.Min(math.Min(sw, sh), 1)
		sy = sx
	default:
		sx = math.Min(sw, sh)
		sy = sx
	}

	// Anchor the aligned point of the content onto the aligned point of the frame.
	fx := frame.X + frame.W*(1+align.X)/2
	fy := frame.Y + frame.H*(1+align.Y)/2
	cx := content.X + content.W*(1+align.X)/2
	cy := content.Y + content.H*(1+align.Y)/2

	return Transform{
		ScaleX: sx,
		ScaleY: sy,
		TX:     fx - cx*sx,
		TY:     fy - cy*sy,
	}
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}
