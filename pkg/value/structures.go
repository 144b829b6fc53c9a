package value

import "strings"

// Array is a fixed-length one dimensional array. Copies share elements.
type Array struct {
	elems *[]Value
	h     *Handle
}

// NewArray returns an array holding elems. The slice is owned by the array.
func NewArray(elems []Value) Array {
	return Array{elems: &elems}
}

func (a Array) Kind() Kind      { return KindArray }
func (a Array) Handle() *Handle { return a.h }
func (a Array) WithHandle(h *Handle) Value {
	a.h = h
	return a
}

// Len returns the number of elements.
func (a Array) Len() int { return len(*a.elems) }

// InBounds reports whether i addresses an element.
func (a Array) InBounds(i int) bool { return i >= 0 && i < a.Len() }

// At returns element i. The caller checks bounds.
func (a Array) At(i int) Value { return (*a.elems)[i] }

// Set replaces element i. The caller checks bounds.
func (a Array) Set(i int, v Value) { (*a.elems)[i] = v }

// Swap exchanges elements i and j.
func (a Array) Swap(i, j int) {
	e := *a.elems
	e[i], e[j] = e[j], e[i]
}

// Contains reports whether an element equals v.
func (a Array) Contains(v Value) bool {
	for _, e := range *a.elems {
		if Equal(e, v) {
			return true
		}
	}
	return false
}

// Elems returns a copy of the elements.
func (a Array) Elems() []Value {
	out := make([]Value, len(*a.elems))
	copy(out, *a.elems)
	return out
}

// Labels returns the element labels in order.
func (a Array) Labels() []string {
	return labels(*a.elems)
}

func (a Array) String() string {
	return "[" + strings.Join(a.Labels(), ", ") + "]"
}

// Array2D is a rectangular two dimensional array. Copies share cells.
type Array2D struct {
	rows *[][]Value
	h    *Handle
}

// NewArray2D returns a 2D array over rows. The slices are owned by the array.
func NewArray2D(rows [][]Value) Array2D {
	return Array2D{rows: &rows}
}

func (a Array2D) Kind() Kind      { return KindArray2D }
func (a Array2D) Handle() *Handle { return a.h }
func (a Array2D) WithHandle(h *Handle) Value {
	a.h = h
	return a
}

// Rows returns the number of rows.
func (a Array2D) Rows() int { return len(*a.rows) }

// Cols returns the length of row r.
func (a Array2D) Cols(r int) int { return len((*a.rows)[r]) }

// InBounds reports whether (r, c) addresses a cell.
func (a Array2D) InBounds(r, c int) bool {
	return r >= 0 && r < a.Rows() && c >= 0 && c < a.Cols(r)
}

func (a Array2D) At(r, c int) Value    { return (*a.rows)[r][c] }
func (a Array2D) Set(r, c int, v Value) { (*a.rows)[r][c] = v }

// Row returns a copy of row r.
func (a Array2D) Row(r int) []Value {
	row := (*a.rows)[r]
	out := make([]Value, len(row))
	copy(out, row)
	return out
}

// SetRow replaces row r with a copy of vs.
func (a Array2D) SetRow(r int, vs []Value) {
	row := make([]Value, len(vs))
	copy(row, vs)
	(*a.rows)[r] = row
}

// Swap exchanges cells (r1, c1) and (r2, c2).
func (a Array2D) Swap(r1, c1, r2, c2 int) {
	rows := *a.rows
	rows[r1][c1], rows[r2][c2] = rows[r2][c2], rows[r1][c1]
}

// Contains reports whether any cell equals v.
func (a Array2D) Contains(v Value) bool {
	for _, row := range *a.rows {
		for _, e := range row {
			if Equal(e, v) {
				return true
			}
		}
	}
	return false
}

// Labels returns the cell labels row by row.
func (a Array2D) Labels() [][]string {
	out := make([][]string, 0, a.Rows())
	for _, row := range *a.rows {
		out = append(out, labels(row))
	}
	return out
}

func (a Array2D) String() string {
	parts := make([]string, 0, a.Rows())
	for _, row := range a.Labels() {
		parts = append(parts, "["+strings.Join(row, ", ")+"]")
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Stack is a LIFO sequence. Copies share contents.
type Stack struct {
	items *[]Value
	h     *Handle
}

// NewStack returns an empty stack.
func NewStack() Stack {
	items := make([]Value, 0)
	return Stack{items: &items}
}

func (s Stack) Kind() Kind      { return KindStack }
func (s Stack) Handle() *Handle { return s.h }
func (s Stack) WithHandle(h *Handle) Value {
	s.h = h
	return s
}

func (s Stack) Len() int       { return len(*s.items) }
func (s Stack) IsEmpty() bool  { return s.Len() == 0 }
func (s Stack) Push(v Value)   { *s.items = append(*s.items, v) }
func (s Stack) String() string { return "[" + strings.Join(labels(*s.items), " -> ") + "]" }

// Pop removes and returns the top element.
func (s Stack) Pop() (Value, bool) {
	n := len(*s.items)
	if n == 0 {
		return nil, false
	}
	top := (*s.items)[n-1]
	(*s.items)[n-1] = nil
	*s.items = (*s.items)[:n-1]
	return top, true
}

// Peek returns the top element without removing it.
func (s Stack) Peek() (Value, bool) {
	n := len(*s.items)
	if n == 0 {
		return nil, false
	}
	return (*s.items)[n-1], true
}

// Items returns the elements from bottom to top.
func (s Stack) Items() []Value {
	out := make([]Value, len(*s.items))
	copy(out, *s.items)
	return out
}

func labels(vs []Value) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = Label(v)
	}
	return out
}
