package anim

import (
	"fmt"
	"math"

	"github.com/gogpu/gg"
	"gopkg.in/yaml.v3"
)

// ShapeType is the geometry of a Shape.
type ShapeType string

const (
	ShapeRect    ShapeType = "rect"
	ShapeEllipse ShapeType = "ellipse"
	ShapePath    ShapeType = "path"
)

// Shape is the rest pose of a drawable on an artboard. X and Y place the
// shape's centre in artboard space; rotation and scale pivot around it.
type Shape struct {
	Name        string       `yaml:"name"`
	Type        ShapeType    `yaml:"type"`
	X           float64      `yaml:"x"`
	Y           float64      `yaml:"y"`
	Width       float64      `yaml:"width"`
	Height      float64      `yaml:"height"`
	Radius      float64      `yaml:"radius"`
	Rotation    float64      `yaml:"rotation"`
	ScaleX      float64      `yaml:"scale_x"`
	ScaleY      float64      `yaml:"scale_y"`
	Opacity     float64      `yaml:"opacity"`
	Fill        *Color       `yaml:"fill"`
	Stroke      *Color       `yaml:"stroke"`
	StrokeWidth float64      `yaml:"stroke_width"`
	Points      [][2]float64 `yaml:"points"`
	Closed      bool         `yaml:"closed"`
}

// UnmarshalYAML fills in the defaults for omitted scale and opacity.
func (s *Shape) UnmarshalYAML(value *yaml.Node) error {
	type rawShape Shape
	raw := rawShape{ScaleX: 1, ScaleY: 1, Opacity: 1, StrokeWidth: 1}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*s = Shape(raw)
	return nil
}

func (s *Shape) validate() error {
	switch s.Type {
	case ShapeRect, ShapeEllipse:
		if s.Width < 0 || s.Height < 0 {
			return fmt.Errorf("shape %q: negative size", s.Name)
		}
	case ShapePath:
		if len(s.Points) < 2 {
			return fmt.Errorf("shape %q: path needs at least two points", s.Name)
		}
	default:
		return fmt.Errorf("shape %q: unknown type %q", s.Name, s.Type)
	}
	if s.Fill == nil && s.Stroke == nil {
		return fmt.Errorf("shape %q: needs fill or stroke", s.Name)
	}
	return nil
}

// shapeState is the animated pose of one shape inside an Instance.
type shapeState struct {
	spec *Shape

	x, y, w, h     float64
	rotation       float64
	scaleX, scaleY float64
	opacity        float64
	strokeWidth    float64
	fill, stroke   *Color
}

func newShapeState(spec *Shape) shapeState {
	st := shapeState{spec: spec}
	st.reset()
	return st
}

func (st *shapeState) reset() {
	s := st.spec
	st.x, st.y, st.w, st.h = s.X, s.Y, s.Width, s.Height
	st.rotation = s.Rotation
	st.scaleX, st.scaleY = s.ScaleX, s.ScaleY
	st.opacity = s.Opacity
	st.strokeWidth = s.StrokeWidth
	st.fill, st.stroke = nil, nil
	if s.Fill != nil {
		c := *s.Fill
		st.fill = &c
	}
	if s.Stroke != nil {
		c := *s.Stroke
		st.stroke = &c
	}
}

func (st *shapeState) setNumber(p Property, v float64) {
	switch p {
	case PropX:
		st.x = v
	case PropY:
		st.y = v
	case PropWidth:
		st.w = v
	case PropHeight:
		st.h = v
	case PropRotation:
		st.rotation = v
	case PropScaleX:
		st.scaleX = v
	case PropScaleY:
		st.scaleY = v
	case PropOpacity:
		st.opacity = clamp01(v)
	case PropStrokeWidth:
		st.strokeWidth = math.Max(0, v)
	}
}

func (st *shapeState) setColor(p Property, c Color) {
	switch p {
	case PropFill:
		st.fill = &c
	case PropStroke:
		st.stroke = &c
	}
}

func (st *shapeState) draw(dc *gg.Context) error {
	if st.opacity <= 0 {
		return nil
	}

	dc.Push()
	defer dc.Pop()

	dc.Translate(st.x, st.y)
	if st.rotation != 0 {
		dc.Rotate(st.rotation * math.Pi / 180)
	}
	dc.Scale(st.scaleX, st.scaleY)

	switch st.spec.Type {
	case ShapeRect:
		if st.spec.Radius > 0 {
			dc.DrawRoundedRectangle(-st.w/2, -st.h/2, st.w, st.h, st.spec.Radius)
		} else {
			dc.DrawRectangle(-st.w/2, -st.h/2, st.w, st.h)
		}
	case ShapeEllipse:
		dc.DrawEllipse(0, 0, st.w/2, st.h/2)
	case ShapePath:
		pts := st.spec.Points
		dc.MoveTo(pts[0][0], pts[0][1])
		for _, p := range pts[1:] {
			dc.LineTo(p[0], p[1])
		}
		if st.spec.Closed {
			dc.ClosePath()
		}
	}

	if st.fill != nil {
		dc.SetColor(st.fill.RGBA(st.opacity).Color())
		if st.stroke != nil {
			if err := dc.FillPreserve(); err != nil {
				return fmt.Errorf("fill %q: %w", st.spec.Name, err)
			}
		} else if err := dc.Fill(); err != nil {
			return fmt.Errorf("fill %q: %w", st.spec.Name, err)
		}
	}
	if st.stroke != nil {
		dc.SetColor(st.stroke.RGBA(st.opacity).Color())
		dc.SetLineWidth(st.strokeWidth)
		if err := dc.Stroke(); err != nil {
			return fmt.Errorf("stroke %q: %w", st.spec.Name, err)
		}
	}
	dc.ClearPath()
	return nil
}
