// Package layout places the data structures of a run on the fixed-size scene.
package layout

import "fmt"

// Kind is the growth family of a boundary shape.
type Kind int

const (
	Wide Kind = iota
	Tall
	Square
)

func (k Kind) String() string {
	switch k {
	case Wide:
		return "wide"
	case Tall:
		return "tall"
	case Square:
		return "square"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Point is a scene coordinate.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Position is a placed rectangle: lower-left corner plus size.
type Position struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Boundary is a placed rectangle as handed to the renderer: the position,
// its corners and the final capacity hint of the structure drawn in it.
type Boundary struct {
	Position `yaml:",inline"`
	Corners  [4]Point `json:"corners" yaml:"corners"`
	MaxSize  int      `json:"maxSize" yaml:"maxSize"`
}

// NewBoundary returns the boundary of a rectangle fixed at p.
func NewBoundary(p Position, maxSize int) Boundary {
	sh := Shape{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
	return Boundary{Position: p, Corners: sh.Corners(), MaxSize: maxSize}
}

// Shape is the rectangle a data structure reserves on the scene.
type Shape struct {
	Kind          Kind
	X, Y          float64 // lower-left corner
	Width, Height float64
	MaxSize       int // capacity hint; larger shapes are placed first
	Priority      int // placed before any shape of lower priority

	DynamicWidth  bool
	DynamicHeight bool
	StrictRatio   bool
	CanCentralise bool
}

// NewWide returns a 4x2 shape that grows in width (arrays).
func NewWide(maxSize int) *Shape {
	return &Shape{Kind: Wide, Width: 4, Height: 2, MaxSize: maxSize, DynamicWidth: true, CanCentralise: true}
}

// NewTall returns a 2x4 shape that grows in height (stacks).
func NewTall(maxSize int) *Shape {
	return &Shape{Kind: Tall, Width: 2, Height: 4, MaxSize: maxSize, DynamicHeight: true, CanCentralise: true}
}

// NewSquare returns a 4x4 shape that keeps its aspect ratio (2D arrays, trees).
func NewSquare(maxSize int) *Shape {
	return &Shape{Kind: Square, Width: 4, Height: 4, MaxSize: maxSize, DynamicHeight: true, StrictRatio: true, CanCentralise: true}
}

// Clone returns a copy of s.
func (s *Shape) Clone() *Shape {
	c := *s
	return &c
}

// Area returns width times height.
func (s *Shape) Area() float64 { return s.Width * s.Height }

// Corners returns upper-left, upper-right, lower-left and lower-right.
func (s *Shape) Corners() [4]Point {
	return [4]Point{
		{s.X, s.Y + s.Height},
		{s.X + s.Width, s.Y + s.Height},
		{s.X, s.Y},
		{s.X + s.Width, s.Y},
	}
}

// Position returns the placed rectangle.
func (s *Shape) Position() Position {
	return Position{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height}
}

// Boundary returns the placed rectangle with its corners and capacity hint.
func (s *Shape) Boundary() Boundary {
	return Boundary{Position: s.Position(), Corners: s.Corners(), MaxSize: s.MaxSize}
}

// Overlaps reports whether the interiors of s and o intersect.
// Rectangles that only share an edge do not overlap.
func (s *Shape) Overlaps(o *Shape) bool {
	if s.X >= o.X+o.Width || o.X >= s.X+s.Width {
		return false
	}
	return !(s.Y+s.Height <= o.Y || o.Y+o.Height <= s.Y)
}

// Encloses reports whether every corner of o lies inside s, edges included.
func (s *Shape) Encloses(o *Shape) bool {
	for _, c := range o.Corners() {
		if c.X < s.X || c.Y < s.Y || c.X > s.X+s.Width || c.Y > s.Y+s.Height {
			return false
		}
	}
	return true
}

func (s *Shape) moveTo(x, y float64) {
	s.X, s.Y = x, y
}

// growWidth extends the shape to the right.
func (s *Shape) growWidth() *Shape {
	s.Width++
	return s
}

// growHeight extends the shape downwards.
func (s *Shape) growHeight() *Shape {
	s.Height++
	s.Y--
	return s
}

func (s *Shape) String() string {
	return fmt.Sprintf("%s(%g,%g %gx%g)", s.Kind, s.X, s.Y, s.Width, s.Height)
}
