package layout

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestShape_Overlaps(t *testing.T) {
	base := &Shape{X: 0, Y: 0, Width: 2, Height: 2}
	tests := []struct {
		name  string
		other *Shape
		want  bool
	}{
		{"same", &Shape{X: 0, Y: 0, Width: 2, Height: 2}, true},
		{"inside", &Shape{X: 0.5, Y: 0.5, Width: 1, Height: 1}, true},
		{"touching right edge", &Shape{X: 2, Y: 0, Width: 2, Height: 2}, false},
		{"touching top edge", &Shape{X: 0, Y: 2, Width: 2, Height: 2}, false},
		{"partial", &Shape{X: 1, Y: 1, Width: 2, Height: 2}, true},
		{"far", &Shape{X: 5, Y: 5, Width: 1, Height: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Overlaps(tt.other); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
			if got := tt.other.Overlaps(base); got != tt.want {
				t.Errorf("Overlaps is not symmetric")
			}
		})
	}
}

func TestShape_Corners(t *testing.T) {
	s := &Shape{X: 1, Y: 2, Width: 3, Height: 4}
	want := [4]Point{{1, 6}, {4, 6}, {1, 2}, {4, 2}}
	if got := s.Corners(); got != want {
		t.Errorf("Corners() = %v, want %v", got, want)
	}
}

func TestSolve_SingleArray(t *testing.T) {
	res, err := Solve([]Placement{{UID: "arr", Shape: NewWide(5)}}, Options{CodePanel: true, VariablePanel: true})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	got, ok := res.Get("arr")
	if !ok {
		t.Fatal("arr missing from result")
	}
	// 幅いっぱいまで伸び、縦方向は中央に寄せられる
	want := Position{X: -2, Y: -1, Width: 9, Height: 2}
	if got.Position() != want {
		t.Errorf("arr = %+v, want %+v", got.Position(), want)
	}

	code, ok := res.Get(CodePanelUID)
	if !ok {
		t.Fatal("code panel missing")
	}
	if code.X != -7 || code.Y != -4 || code.Width != 5 {
		t.Errorf("code panel moved: %v", code)
	}
	if _, ok := res.Get(VariablePanelUID); !ok {
		t.Error("variable panel missing")
	}
}

func TestSolve_InputNotModified(t *testing.T) {
	in := NewTall(3)
	if _, err := Solve([]Placement{{UID: "s", Shape: in}}, Options{}); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if in.X != 0 || in.Y != 0 || in.Height != 4 {
		t.Errorf("input shape was modified: %v", in)
	}
}

func TestSolve_PanelsOnlyWithCode(t *testing.T) {
	res, err := Solve(nil, Options{CodePanel: false, VariablePanel: true})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(res.Placements) != 0 {
		t.Errorf("no panels expected without the code panel, got %v", res.Placements)
	}

	res, err = Solve(nil, Options{CodePanel: true})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	code, _ := res.Get(CodePanelUID)
	if code == nil || code.Height != 8 {
		t.Errorf("code panel should take the full height without variables, got %v", code)
	}
}

func TestSolve_Errors(t *testing.T) {
	many := func(n int, mk func(int) *Shape) []Placement {
		var out []Placement
		for i := 0; i < n; i++ {
			out = append(out, Placement{UID: fmt.Sprintf("s%d", i), Shape: mk(i)})
		}
		return out
	}

	tests := []struct {
		name   string
		shapes []Placement
		want   error
	}{
		{"area exceeded", many(5, NewSquare), ErrTooManyDataStructures},
		{"no placement after second scan", many(9, NewTall), ErrNoPlacement},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Solve(tt.shapes, Options{CodePanel: true, VariablePanel: true})
			if !errors.Is(err, tt.want) {
				t.Errorf("Solve error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSolve_PriorityFirst(t *testing.T) {
	sub := NewWide(0)
	sub.Priority = 1
	res, err := Solve([]Placement{
		{UID: "big", Shape: NewWide(100)},
		{UID: SubtitleUID, Shape: sub},
	}, Options{CodePanel: true})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Placements[0].UID != SubtitleUID {
		t.Errorf("subtitle should be placed first, got order %v", res.Placements)
	}
}

func TestSolve_Deterministic(t *testing.T) {
	input := []Placement{
		{UID: "a", Shape: NewWide(3)},
		{UID: "s", Shape: NewTall(2)},
		{UID: "t", Shape: NewSquare(1)},
	}
	r1, err := Solve(input, Options{CodePanel: true, VariablePanel: true})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	r2, err := Solve(input, Options{CodePanel: true, VariablePanel: true})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !reflect.DeepEqual(r1.Positions(), r2.Positions()) {
		t.Errorf("two solves differ:\n%v\n%v", r1.Positions(), r2.Positions())
	}
}

// TestProperty_LayoutNonOverlap checks that every successful solve yields
// pairwise disjoint shapes inside the canvas.
func TestProperty_LayoutNonOverlap(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("placed shapes are disjoint and inside the canvas", prop.ForAll(
		func(specs []int, code, vars bool) bool {
			if len(specs) > 6 {
				specs = specs[:6]
			}
			var input []Placement
			for i, v := range specs {
				var sh *Shape
				switch v % 3 {
				case 0:
					sh = NewWide(v)
				case 1:
					sh = NewTall(v)
				default:
					sh = NewSquare(v)
				}
				input = append(input, Placement{UID: fmt.Sprintf("ds%d", i), Shape: sh})
			}

			res, err := Solve(input, Options{CodePanel: code, VariablePanel: vars})
			if err != nil {
				return errors.Is(err, ErrTooManyDataStructures) || errors.Is(err, ErrNoPlacement)
			}
			for i, a := range res.Placements {
				if a.Shape.CanCentralise && !res.Canvas.Encloses(a.Shape) {
					return false
				}
				for _, b := range res.Placements[i+1:] {
					if a.Shape.Overlaps(b.Shape) {
						return false
					}
				}
			}
			return len(res.Placements) >= len(input)
		},
		gen.SliceOf(gen.IntRange(0, 30)),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
