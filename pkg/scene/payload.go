package scene

import (
	"github.com/matzehuels/stepgrid/pkg/binding"
	"github.com/matzehuels/stepgrid/pkg/layout"
)

// Kind discriminates payload variants.
type Kind string

const (
	KindShape  Kind = "shape"
	KindArray  Kind = "array"
	KindScalar Kind = "scalar"
	KindLabel  Kind = "label"
	KindPanel  Kind = "panel"
)

// Payload is the kind-specific part of an entity. It is sealed: the variants
// are *Shape, *ArrayCell, *Scalar, *Label and *Panel.
type Payload interface {
	Kind() Kind
	clone() Payload
}

// =============================================================================
// Style
// =============================================================================

// Style is the visual style shared by drawable payloads.
type Style struct {
	Color   string  `json:"color,omitempty"` // "#rrggbb" or "" for the kind default
	Alpha   float64 `json:"alpha"`           // Opacity in [0, 1]
	Visible bool    `json:"visible"`
}

// DefaultStyle is opaque, visible and uses the kind's default color.
func DefaultStyle() Style { return Style{Alpha: 1, Visible: true} }

// Default colors by kind.
const (
	ColorRect    = "#22c55e"
	ColorCircle  = "#3b82f6"
	ColorArrow   = "#10b981"
	ColorDiamond = "#f59e0b"
	ColorLabel   = "#171717"
	ColorPanel   = "#e5e7eb"
)

// =============================================================================
// Variants
// =============================================================================

// ShapeType is the geometric form of a Shape.
type ShapeType string

const (
	ShapeRect    ShapeType = "rect"
	ShapeCircle  ShapeType = "circle"
	ShapeArrow   ShapeType = "arrow"
	ShapeDiamond ShapeType = "diamond"
)

// ShapeTypes lists every shape type.
var ShapeTypes = []ShapeType{ShapeRect, ShapeCircle, ShapeArrow, ShapeDiamond}

// DefaultColor returns the color used when Style.Color is empty.
func (t ShapeType) DefaultColor() string {
	switch t {
	case ShapeCircle:
		return ColorCircle
	case ShapeArrow:
		return ColorArrow
	case ShapeDiamond:
		return ColorDiamond
	}
	return ColorRect
}

// Shape is a filled geometric form covering Width×Height cells.
type Shape struct {
	Type        ShapeType        `json:"shape"`
	Style       Style            `json:"style"`
	Width       binding.Numeric  `json:"width"`
	Height      binding.Numeric  `json:"height"`
	Rotation    int              `json:"rotation,omitempty"`    // Degrees
	Orientation layout.Direction `json:"orientation,omitempty"` // Arrows only
}

// NewShape returns a 1×1 shape with the default style.
func NewShape(t ShapeType) *Shape {
	s := &Shape{Type: t, Style: DefaultStyle(), Width: binding.Fixed(1), Height: binding.Fixed(1)}
	if t == ShapeArrow {
		s.Orientation = layout.Up
	}
	return s
}

func (*Shape) Kind() Kind { return KindShape }

func (s *Shape) clone() Payload { c := *s; return &c }

// ArrayCell is one member of an array. Members sharing ArrayID form the array.
type ArrayCell struct {
	ArrayID   string           `json:"arrayId"`
	Index     int              `json:"index"`
	Direction layout.Direction `json:"direction"`
	Value     string           `json:"value"`             // Static value shown when not variable-bound
	VarName   string           `json:"varName,omitempty"` // Source array variable
	Cell      *Shape           `json:"cellShape,omitempty"`
}

func (*ArrayCell) Kind() Kind { return KindArray }

func (a *ArrayCell) clone() Payload {
	c := *a
	if a.Cell != nil {
		cell := *a.Cell
		c.Cell = &cell
	}
	return &c
}

// DisplayMode selects what a Scalar shows.
type DisplayMode string

const (
	DisplayNameValue DisplayMode = "name-value"
	DisplayValue     DisplayMode = "value"
	DisplayName      DisplayMode = "name"
)

// Scalar displays a single variable.
type Scalar struct {
	VarName string      `json:"varName"`
	Mode    DisplayMode `json:"display"`
	Value   string      `json:"value,omitempty"` // Value captured at placement
}

func (*Scalar) Kind() Kind { return KindScalar }

func (s *Scalar) clone() Payload { c := *s; return &c }

// Label is template text. Each {expr} in Text is replaced by the expression's
// value at the current step.
type Label struct {
	Text     string          `json:"text"`
	Width    binding.Numeric `json:"width"`
	Height   binding.Numeric `json:"height"`
	FontSize int             `json:"fontSize,omitempty"`
	Style    Style           `json:"style"`
}

// DefaultFontSize is the label font size when unset.
const DefaultFontSize = 14

func (*Label) Kind() Kind { return KindLabel }

func (l *Label) clone() Payload { c := *l; return &c }

// Panel is a rectangular container. Children reference the panel entity's ID.
type Panel struct {
	Title  string          `json:"title"`
	Width  binding.Numeric `json:"width"`
	Height binding.Numeric `json:"height"`
	Style  Style           `json:"style"`
}

func (*Panel) Kind() Kind { return KindPanel }

func (p *Panel) clone() Payload { c := *p; return &c }

// Size returns the width and height bindings of a sized payload. Scalars and
// array cells without an embedded shape are 1×1.
func Size(p Payload) (w, h binding.Numeric) {
	switch v := p.(type) {
	case *Shape:
		return v.Width, v.Height
	case *Label:
		return v.Width, v.Height
	case *Panel:
		return v.Width, v.Height
	case *ArrayCell:
		if v.Cell != nil {
			return v.Cell.Width, v.Cell.Height
		}
	}
	return binding.Fixed(1), binding.Fixed(1)
}

// StyleOf returns the payload's style, or DefaultStyle for unstyled payloads.
func StyleOf(p Payload) Style {
	switch v := p.(type) {
	case *Shape:
		return v.Style
	case *Label:
		return v.Style
	case *Panel:
		return v.Style
	case *ArrayCell:
		if v.Cell != nil {
			return v.Cell.Style
		}
	}
	return DefaultStyle()
}
