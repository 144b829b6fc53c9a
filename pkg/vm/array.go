package vm

import (
	"fmt"

	"github.com/zurustar/valgo/pkg/ast"
	"github.com/zurustar/valgo/pkg/layout"
	"github.com/zurustar/valgo/pkg/opcode"
	"github.com/zurustar/valgo/pkg/value"
)

// zero returns the default element of an array of elem.
func zero(elem string) value.Value {
	switch elem {
	case "bool":
		return value.Boolean(false)
	case "char":
		return value.Character(' ')
	case "string":
		return value.Str("")
	}
	return value.Num(0)
}

func (f *frame) exprs(es []ast.Expression) ([]value.Value, error) {
	out := make([]value.Value, len(es))
	for i, e := range es {
		v, err := f.eval(e, evalCtx{})
		if err != nil {
			return nil, err
		}
		out[i] = value.Strip(v)
	}
	return out, nil
}

func (f *frame) size(e ast.Expression) (int, error) {
	v, err := f.eval(e, evalCtx{})
	if err != nil {
		return 0, err
	}
	return value.AsIndex(v), nil
}

func (f *frame) newArray(n *ast.ConstructorExpression, name string) (value.Value, error) {
	init, err := f.exprs(n.Init)
	if err != nil {
		return nil, err
	}
	size := len(init)
	if len(n.Args) > 0 {
		if size, err = f.size(n.Args[0]); err != nil {
			return nil, err
		}
	}
	if size < 0 || (len(n.Init) > 0 && len(init) != size) {
		return nil, newDimensionError("Initialisation of array failed.", f.pc)
	}
	elems := init
	if len(n.Init) == 0 {
		elems = make([]value.Value, size)
		for i := range elems {
			elems[i] = zero(n.Elem)
		}
	}
	return f.drawArray(value.NewArray(elems), name)
}

// drawArray gives arr its drawing when it is assigned to name.
func (f *frame) drawArray(arr value.Array, name string) (value.Value, error) {
	vm := f.vm
	render := name == "" || vm.sheet.Render(f.act.uid(name))
	h, d, err := f.register(name, "Array", "array", render)
	if err != nil {
		return nil, err
	}
	if h.Visible() {
		vm.reserve(d.uid, layout.NewWide(arr.Len()))
		vm.emitFor(d.uid, opcode.InitArray, h.Ident, d.label, arr.Labels(), d.style.BorderColor, d.style.TextColor, d.style.ShowLabel)
	}
	return arr.WithHandle(h), nil
}

func (f *frame) newArray2D(n *ast.ConstructorExpression, name string) (value.Value, error) {
	if len(n.Args) < 2 {
		panic("2D array constructor needs two sizes")
	}
	rows, err := f.size(n.Args[0])
	if err != nil {
		return nil, err
	}
	cols, err := f.size(n.Args[1])
	if err != nil {
		return nil, err
	}
	if rows < 0 || cols < 0 {
		return nil, newDimensionError("Array initialiser dimensions do not match those in constructor", f.pc)
	}
	cells := make([][]value.Value, rows)
	if len(n.Init2D) > 0 {
		if len(n.Init2D) != rows {
			return nil, newDimensionError("Array initialiser dimensions do not match those in constructor", f.pc)
		}
		for r, row := range n.Init2D {
			if len(row) != cols {
				return nil, newDimensionError("Array initialiser dimensions do not match those in constructor", f.pc)
			}
			if cells[r], err = f.exprs(row); err != nil {
				return nil, err
			}
		}
	} else {
		for r := range cells {
			cells[r] = make([]value.Value, cols)
			for c := range cells[r] {
				cells[r][c] = zero(n.Elem)
			}
		}
	}
	return f.drawArray2D(value.NewArray2D(cells), name)
}

// drawArray2D gives arr its drawing when it is assigned to name.
func (f *frame) drawArray2D(arr value.Array2D, name string) (value.Value, error) {
	vm := f.vm
	render := name == "" || vm.sheet.Render(f.act.uid(name))
	h, d, err := f.register(name, "Array2D", "array2d", render)
	if err != nil {
		return nil, err
	}
	if h.Visible() {
		cols := 0
		if arr.Rows() > 0 {
			cols = arr.Cols(0)
		}
		vm.reserve(d.uid, layout.NewSquare(arr.Rows()+cols))
		vm.emitFor(d.uid, opcode.Init2DArray, h.Ident, d.label, arr.Labels(), d.style.BorderColor, d.style.TextColor, d.style.ShowLabel)
	}
	return arr.WithHandle(h), nil
}

// highlight recolours cells with the animated style; restore puts the
// resting style back. rows is nil for a 1D array.
func (f *frame) highlight(d *drawing, ident string, rows, cols []int) {
	if d == nil || d.anim == nil {
		return
	}
	f.vm.emit(opcode.ArrayElemRestyle, ident, rows, cols, first(d.anim.BorderColor, d.style.BorderColor), d.anim.TextColor, d.anim.Pointer)
}

func (f *frame) restore(d *drawing, ident string, rows, cols []int) {
	if d == nil || d.anim == nil {
		return
	}
	f.vm.emit(opcode.ArrayElemRestyle, ident, rows, cols, d.style.BorderColor, d.style.TextColor, false)
}

func (f *frame) readArray(a value.Array, i int) (value.Value, error) {
	if !a.InBounds(i) {
		return nil, newIndexOutOfBoundsError(f.pc)
	}
	if d := f.drawingOf(a); d != nil && f.showMoveToLine {
		f.highlight(d, a.Handle().Ident, nil, []int{i})
		f.restore(d, a.Handle().Ident, nil, []int{i})
	}
	return a.At(i), nil
}

func (f *frame) readArray2D(a value.Array2D, r, c int) (value.Value, error) {
	if !a.InBounds(r, c) {
		return nil, newIndexOutOfBoundsError(f.pc)
	}
	if d := f.drawingOf(a); d != nil && f.showMoveToLine {
		f.highlight(d, a.Handle().Ident, []int{r}, []int{c})
		f.restore(d, a.Handle().Ident, []int{r}, []int{c})
	}
	return a.At(r, c), nil
}

// readRow copies row r of a into a new 1D array, drawn when it is assigned
// to a variable.
func (f *frame) readRow(a value.Array2D, r int, ctx evalCtx) (value.Value, error) {
	if r < 0 || r >= a.Rows() {
		return nil, newIndexOutOfBoundsError(f.pc)
	}
	row := value.NewArray(a.Row(r))
	if id, ok := ctx.target.(*ast.Identifier); ok {
		return f.drawArray(row, id.Name)
	}
	return row, nil
}

// assignIndex handles a[i] = v, a[i][j] = v and a[i] = row.
func (f *frame) assignIndex(t *ast.IndexExpression, rhs ast.Expression) error {
	vm := f.vm
	target, ok := f.act.scope.Get(t.Name)
	if !ok {
		panic(fmt.Sprintf("undeclared variable %s", t.Name))
	}
	idx, err := f.indices(t.Indices)
	if err != nil {
		return err
	}
	v, err := f.eval(rhs, evalCtx{target: t})
	if err != nil {
		return err
	}
	d := f.drawingOf(target)
	ident := ""
	if d != nil {
		ident = target.Handle().Ident
	}

	switch a := target.(type) {
	case value.Array:
		i := idx[0]
		if !a.InBounds(i) {
			return newIndexOutOfBoundsError(f.pc)
		}
		a.Set(i, value.Strip(v))
		if d != nil {
			f.highlight(d, ident, nil, []int{i})
			vm.emit(opcode.ArrayElemAssign, ident, -1, i, value.Label(v))
			f.restore(d, ident, nil, []int{i})
		}

	case value.Array2D:
		if len(idx) == 1 {
			return f.replaceRow(a, idx[0], v, d, ident, t.Name)
		}
		r, c := idx[0], idx[1]
		if !a.InBounds(r, c) {
			return newIndexOutOfBoundsError(f.pc)
		}
		a.Set(r, c, value.Strip(v))
		if d != nil {
			f.highlight(d, ident, []int{r}, []int{c})
			vm.emit(opcode.ArrayElemAssign, ident, r, c, value.Label(v))
			f.restore(d, ident, []int{r}, []int{c})
		}

	default:
		panic(&value.KindError{Op: "index assignment", Left: target.Kind()})
	}
	f.refresh(t.Name, target)
	return nil
}

func (f *frame) replaceRow(a value.Array2D, r int, v value.Value, d *drawing, ident, name string) error {
	row, ok := v.(value.Array)
	if !ok {
		panic(&value.KindError{Op: "row assignment", Left: v.Kind()})
	}
	if r < 0 || r >= a.Rows() {
		return newIndexOutOfBoundsError(f.pc)
	}
	if row.Len() != a.Cols(r) {
		return newDimensionError("Dimensions do not match", f.pc)
	}
	elems := row.Elems()
	for i, e := range elems {
		elems[i] = value.Strip(e)
	}
	a.SetRow(r, elems)
	if d != nil {
		f.vm.emit(opcode.ArrayReplaceRow, ident, r, row.Labels())
	}
	f.refresh(name, a)
	return nil
}

func (f *frame) arrayMethod(n *ast.MethodCallExpression, a value.Array) (value.Value, error) {
	args, err := f.args(n.Args)
	if err != nil {
		return nil, err
	}
	switch n.Method {
	case "size":
		return value.Num(float64(a.Len())), nil
	case "contains":
		return value.Boolean(a.Contains(args[0])), nil
	case "swap":
		i, j := value.AsIndex(args[0]), value.AsIndex(args[1])
		long := len(args) > 2 && value.Truth(args[2])
		if !a.InBounds(i) || !a.InBounds(j) {
			return nil, newIndexOutOfBoundsError(f.pc)
		}
		a.Swap(i, j)
		f.emitSwap(f.drawingOf(a), a.Handle(), -1, i, j, long)
		f.refresh(n.Receiver, a)
		return value.Void{}, nil
	}
	panic(fmt.Sprintf("unknown array method %s", n.Method))
}

// emitSwap draws the swap of cells i and j (of row, or -1 for a 1D array).
func (f *frame) emitSwap(d *drawing, h *value.Handle, row, i, j int, long bool) {
	if d == nil {
		return
	}
	vm := f.vm
	var rows []int
	if row >= 0 {
		rows = []int{row}
	}
	cols := []int{i, j}
	f.highlight(d, h.Ident, rows, cols)
	if long {
		vm.emit(opcode.ArrayLongSwap, h.Ident, row, i, j,
			vm.names.Generate("elem1"), vm.names.Generate("elem2"), vm.names.Generate("animations"))
	} else {
		vm.emit(opcode.ArrayShortSwap, h.Ident, row, i, j)
	}
	f.restore(d, h.Ident, rows, cols)
}

func (f *frame) array2DMethod(n *ast.MethodCallExpression, a value.Array2D) (value.Value, error) {
	args, err := f.args(n.Args)
	if err != nil {
		return nil, err
	}
	switch n.Method {
	case "size":
		return value.Num(float64(a.Rows())), nil
	case "contains":
		return value.Boolean(a.Contains(args[0])), nil
	case "swap":
		r1, c1 := value.AsIndex(args[0]), value.AsIndex(args[1])
		r2, c2 := value.AsIndex(args[2]), value.AsIndex(args[3])
		if err := f.swap2D(a, r1, c1, r2, c2); err != nil {
			return nil, err
		}
		f.refresh(n.Receiver, a)
		return value.Void{}, nil
	}
	panic(fmt.Sprintf("unknown 2D array method %s", n.Method))
}

func (f *frame) swap2D(a value.Array2D, r1, c1, r2, c2 int) error {
	if !a.InBounds(r1, c1) || !a.InBounds(r2, c2) {
		return newIndexOutOfBoundsError(f.pc)
	}
	a.Swap(r1, c1, r2, c2)
	d := f.drawingOf(a)
	if d == nil {
		return nil
	}
	ident := a.Handle().Ident
	rows, cols := []int{r1, r2}, []int{c1, c2}
	f.highlight(d, ident, rows, cols)
	f.vm.emit(opcode.Array2DSwap, ident, []int{r1, c1, r2, c2})
	f.restore(d, ident, rows, cols)
	return nil
}

// rowMethod handles a[i].size() and a[i].swap(x, y).
func (f *frame) rowMethod(n *ast.RowMethodCallExpression) (value.Value, error) {
	recv, ok := f.act.scope.Get(n.Receiver)
	if !ok {
		panic(fmt.Sprintf("undeclared variable %s", n.Receiver))
	}
	a, ok := recv.(value.Array2D)
	if !ok {
		panic(&value.KindError{Op: n.Method, Left: recv.Kind()})
	}
	rv, err := f.eval(n.Row, evalCtx{})
	if err != nil {
		return nil, err
	}
	r := value.AsIndex(rv)
	if r < 0 || r >= a.Rows() {
		return nil, newIndexOutOfBoundsError(f.pc)
	}
	args, err := f.args(n.Args)
	if err != nil {
		return nil, err
	}
	switch n.Method {
	case "size":
		return value.Num(float64(a.Cols(r))), nil
	case "swap":
		if err := f.swap2D(a, r, value.AsIndex(args[0]), r, value.AsIndex(args[1])); err != nil {
			return nil, err
		}
		f.refresh(n.Receiver, a)
		return value.Void{}, nil
	}
	panic(fmt.Sprintf("unknown row method %s", n.Method))
}
