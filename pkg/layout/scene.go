package layout

import (
	"errors"
	"fmt"
	"sort"
)

// Reserved identifiers of the panels drawn next to the data structures.
const (
	CodePanelUID     = "_code"
	VariablePanelUID = "_variables"
	SubtitleUID      = "_subtitle"
)

var (
	// ErrTooManyDataStructures is returned when the shapes cannot fit on the
	// scene by area alone.
	ErrTooManyDataStructures = errors.New("too many data structures to fit on the scene")
	// ErrNoPlacement is returned when a shape finds no free position after
	// both scans.
	ErrNoPlacement = errors.New("no free position left on the scene")
)

// FullScene is the whole drawable area.
func FullScene() *Shape {
	return &Shape{Kind: Wide, X: -7, Y: -4, Width: 14, Height: 8, MaxSize: -1}
}

// PlacementRegion is the part of the scene right of the code panel where
// data structures are placed.
func PlacementRegion() *Shape {
	return &Shape{Kind: Wide, X: -2, Y: -4, Width: 9, Height: 8, MaxSize: -1}
}

// Placement pairs an identifier with its shape.
type Placement struct {
	UID   string
	Shape *Shape
}

// Options selects the panels to reserve.
type Options struct {
	CodePanel     bool
	VariablePanel bool // ignored unless CodePanel is set
}

// Result is a solved scene.
type Result struct {
	// Placements lists the data structures in placement order followed by
	// the reserved panels.
	Placements []Placement
	// Canvas is the region the centerable shapes were centered in.
	Canvas *Shape
}

// Get returns the placed shape for uid.
func (r *Result) Get(uid string) (*Shape, bool) {
	for _, p := range r.Placements {
		if p.UID == uid {
			return p.Shape, true
		}
	}
	return nil, false
}

// Positions maps every uid to its placed rectangle.
func (r *Result) Positions() map[string]Position {
	out := make(map[string]Position, len(r.Placements))
	for _, p := range r.Placements {
		out[p.UID] = p.Shape.Position()
	}
	return out
}

// Boundaries maps every uid to its boundary.
func (r *Result) Boundaries() map[string]Boundary {
	out := make(map[string]Boundary, len(r.Placements))
	for _, p := range r.Placements {
		out[p.UID] = p.Shape.Boundary()
	}
	return out
}

type corner int

const (
	bottomLeft corner = iota
	bottomRight
	topLeft
	topRight
)

// origin returns the lower-left coordinate that puts s in the corner.
func (c corner) origin(s *Shape) (float64, float64) {
	switch c {
	case bottomLeft:
		return -2, -4
	case bottomRight:
		return 7 - s.Width, -4
	case topLeft:
		return -2, 4 - s.Height
	default:
		return 7 - s.Width, 4 - s.Height
	}
}

// fallback is the corner the second scan starts from.
func (c corner) fallback() corner {
	switch c {
	case bottomLeft:
		return topRight
	case topLeft:
		return bottomRight
	case topRight:
		return bottomRight
	default:
		return topLeft
	}
}

// step is the unit move applied while the candidate overlaps a placed shape.
func (c corner) step(secondScan bool) (float64, float64) {
	switch c {
	case bottomLeft:
		if secondScan {
			return 1, 0
		}
		return 0, 1
	case topLeft:
		return 1, 0
	case topRight:
		if secondScan {
			return 0, -1
		}
		return -1, 0
	default:
		return -1, 0
	}
}

func startCorner(k Kind) corner {
	switch k {
	case Wide:
		return bottomLeft
	case Square:
		return topLeft
	default:
		return topRight
	}
}

type solver struct {
	region *Shape
	placed []*Shape
}

// Solve places shapes on the scene. The input shapes are not modified.
//
// Shapes are placed in order of priority then capacity hint, each starting
// from the corner of its kind and sliding one unit at a time while it
// overlaps a placed shape. A shape that slides off the scene is retried once
// from a fallback corner. Placed shapes are then grown as far as they can go
// and the centerable ones are centered as a group.
func Solve(shapes []Placement, opts Options) (*Result, error) {
	region := PlacementRegion()

	var total float64
	for _, p := range shapes {
		total += p.Shape.Area()
	}
	if total > region.Area() {
		return nil, fmt.Errorf("%w: total area %g exceeds %g", ErrTooManyDataStructures, total, region.Area())
	}

	s := &solver{region: region}
	panels := panelShapes(opts)
	for _, p := range panels {
		s.placed = append(s.placed, p.Shape)
	}

	sorted := make([]Placement, len(shapes))
	for i, p := range shapes {
		sorted[i] = Placement{UID: p.UID, Shape: p.Shape.Clone()}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Shape, sorted[j].Shape
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.MaxSize > b.MaxSize
	})

	for _, p := range sorted {
		if !s.place(p.Shape, startCorner(p.Shape.Kind)) {
			return nil, fmt.Errorf("%w: %s", ErrNoPlacement, p.UID)
		}
	}
	for _, p := range sorted {
		s.maximise(p.Shape)
	}

	canvas := region
	if !opts.CodePanel {
		canvas = FullScene()
	}
	s.centre(canvas)

	return &Result{Placements: append(sorted, panels...), Canvas: canvas}, nil
}

// panelShapes returns the pinned code and variable panels on the left edge.
func panelShapes(opts Options) []Placement {
	if !opts.CodePanel {
		return nil
	}
	scene := FullScene()
	codeHeight := scene.Height
	if opts.VariablePanel {
		codeHeight = 2 * (8.0 / 3)
	}
	code := &Shape{Kind: Tall, X: scene.X, Y: scene.Y, Width: 5, Height: codeHeight, MaxSize: int(^uint(0) >> 1), DynamicHeight: true}
	panels := []Placement{{UID: CodePanelUID, Shape: code}}
	if opts.VariablePanel {
		vars := &Shape{Kind: Tall, X: scene.X, Y: scene.Y + codeHeight, Width: 5, Height: 8.0 / 3, DynamicHeight: true}
		panels = append(panels, Placement{UID: VariablePanelUID, Shape: vars})
	}
	return panels
}

func (s *solver) place(sh *Shape, c corner) bool {
	secondScan := false
	sh.moveTo(c.origin(sh))
	for {
		if s.overlapsAny(sh, nil) {
			dx, dy := c.step(secondScan)
			sh.moveTo(sh.X+dx, sh.Y+dy)
			continue
		}
		if !s.region.Encloses(sh) {
			if secondScan {
				return false
			}
			c = c.fallback()
			secondScan = true
			sh.moveTo(c.origin(sh))
			continue
		}
		s.placed = append(s.placed, sh)
		return true
	}
}

func (s *solver) overlapsAny(sh, self *Shape) bool {
	for _, p := range s.placed {
		if p != self && p.Overlaps(sh) {
			return true
		}
	}
	return false
}

func (s *solver) maximise(sh *Shape) {
	var grow func(*Shape) *Shape
	switch {
	case sh.StrictRatio:
		grow = func(c *Shape) *Shape { return c.growHeight().growWidth() }
	case sh.DynamicWidth:
		grow = (*Shape).growWidth
	case sh.DynamicHeight:
		grow = (*Shape).growHeight
	default:
		return
	}
	for {
		candidate := grow(sh.Clone())
		if !s.region.Encloses(candidate) || s.overlapsAny(candidate, sh) {
			return
		}
		*sh = *candidate
	}
}

// centre moves the bounding box of the centerable shapes to the middle of
// canvas. Pinned panels stay where they are.
func (s *solver) centre(canvas *Shape) {
	var movable []*Shape
	for _, p := range s.placed {
		if p.CanCentralise {
			movable = append(movable, p)
		}
	}
	if len(movable) == 0 {
		return
	}

	minX, minY := movable[0].X, movable[0].Y
	maxX, maxY := movable[0].X+movable[0].Width, movable[0].Y+movable[0].Height
	for _, p := range movable[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X+p.Width)
		maxY = max(maxY, p.Y+p.Height)
	}

	var dx, dy float64
	if w := maxX - minX; canvas.Width > w {
		dx = canvas.X + (canvas.Width-w)/2 - minX
	}
	if h := maxY - minY; canvas.Height > h {
		dy = canvas.Y + (canvas.Height-h)/2 - minY
	}
	for _, p := range movable {
		p.moveTo(p.X+dx, p.Y+dy)
	}
}
