package vm

import (
	"fmt"

	"github.com/zurustar/valgo/pkg/ast"
	"github.com/zurustar/valgo/pkg/value"
)

// evalCtx describes where the value of an expression goes.
type evalCtx struct {
	target    ast.Target // assignment target, nil otherwise
	argument  bool       // argument of a data-structure method
	statement bool       // value is discarded
}

func (f *frame) eval(e ast.Expression, ctx evalCtx) (value.Value, error) {
	switch n := e.(type) {
	case *ast.NumberLiteral:
		return value.Num(n.Value), nil
	case *ast.BoolLiteral:
		return value.Boolean(n.Value), nil
	case *ast.CharLiteral:
		return value.Character(n.Value), nil
	case *ast.StringLiteral:
		return value.Str(n.Value), nil
	case *ast.NullLiteral:
		return value.Null{}, nil
	case *ast.Identifier:
		v, ok := f.act.scope.Get(n.Name)
		if !ok {
			panic(fmt.Sprintf("undeclared variable %s", n.Name))
		}
		return v, nil
	case *ast.BinaryExpression:
		return f.binary(n)
	case *ast.UnaryExpression:
		v, err := f.eval(n.Operand, evalCtx{})
		if err != nil {
			return nil, err
		}
		return value.Unary(n.Op, v), nil
	case *ast.CallExpression:
		return f.call(n)
	case *ast.MethodCallExpression:
		return f.method(n, ctx)
	case *ast.RowMethodCallExpression:
		return f.rowMethod(n)
	case *ast.ConstructorExpression:
		return f.construct(n, ctx)
	case *ast.IndexExpression:
		return f.index(n, ctx)
	case *ast.TreeAccessExpression:
		return f.readTree(n)
	case *ast.CastExpression:
		return f.cast(n)
	}
	panic(fmt.Sprintf("unknown expression %T", e))
}

func (f *frame) binary(n *ast.BinaryExpression) (value.Value, error) {
	l, err := f.eval(n.Left, evalCtx{})
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "&&":
		if !value.Truth(l) {
			return value.Boolean(false), nil
		}
		r, err := f.eval(n.Right, evalCtx{})
		if err != nil {
			return nil, err
		}
		return value.Boolean(value.Truth(r)), nil
	case "||":
		if value.Truth(l) {
			return value.Boolean(true), nil
		}
		r, err := f.eval(n.Right, evalCtx{})
		if err != nil {
			return nil, err
		}
		return value.Boolean(value.Truth(r)), nil
	}
	r, err := f.eval(n.Right, evalCtx{})
	if err != nil {
		return nil, err
	}
	if n.Op == "+" && (l.Kind() == value.KindString || r.Kind() == value.KindString) {
		// subtitle text is built by concatenation
		return value.Str(value.Label(l) + value.Label(r)), nil
	}
	return value.Binary(n.Op, l, r), nil
}

func (f *frame) cast(n *ast.CastExpression) (value.Value, error) {
	v, err := f.eval(n.Expr, evalCtx{})
	if err != nil {
		return nil, err
	}
	var out value.Value
	if n.To == "char" {
		out, err = value.ToChar(v)
	} else {
		out, err = value.ToNumber(v)
	}
	if err != nil {
		return nil, newInvalidCastError(err, f.pc)
	}
	return out, nil
}

// index reads a[i], a[i][j] or s[i].
func (f *frame) index(n *ast.IndexExpression, ctx evalCtx) (value.Value, error) {
	v, ok := f.act.scope.Get(n.Name)
	if !ok {
		panic(fmt.Sprintf("undeclared variable %s", n.Name))
	}
	idx, err := f.indices(n.Indices)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case value.String:
		r := []rune(x.V)
		if idx[0] < 0 || idx[0] >= len(r) {
			return nil, newIndexOutOfBoundsError(f.pc)
		}
		return value.Character(r[idx[0]]), nil
	case value.Array:
		return f.readArray(x, idx[0])
	case value.Array2D:
		if len(idx) == 1 {
			return f.readRow(x, idx[0], ctx)
		}
		return f.readArray2D(x, idx[0], idx[1])
	}
	panic(&value.KindError{Op: "index", Left: v.Kind()})
}

func (f *frame) indices(es []ast.Expression) ([]int, error) {
	out := make([]int, len(es))
	for i, e := range es {
		v, err := f.eval(e, evalCtx{})
		if err != nil {
			return nil, err
		}
		out[i] = value.AsIndex(v)
	}
	return out, nil
}

// method dispatches s.push(1), a.swap(0, 1) and the like.
func (f *frame) method(n *ast.MethodCallExpression, ctx evalCtx) (value.Value, error) {
	recv, ok := f.act.scope.Get(n.Receiver)
	if !ok {
		panic(fmt.Sprintf("undeclared variable %s", n.Receiver))
	}
	switch r := recv.(type) {
	case value.Stack:
		return f.stackMethod(n, r, ctx)
	case value.Array:
		return f.arrayMethod(n, r)
	case value.Array2D:
		return f.array2DMethod(n, r)
	}
	panic(&value.KindError{Op: n.Method, Left: recv.Kind()})
}

// args evaluates the arguments of a data-structure method.
func (f *frame) args(es []ast.Expression) ([]value.Value, error) {
	out := make([]value.Value, len(es))
	for i, e := range es {
		v, err := f.eval(e, evalCtx{argument: true})
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// construct builds a data structure. Only a structure assigned to a plain
// variable is drawn.
func (f *frame) construct(n *ast.ConstructorExpression, ctx evalCtx) (value.Value, error) {
	name := ""
	if id, ok := ctx.target.(*ast.Identifier); ok {
		name = id.Name
	}
	switch n.Type {
	case ast.StackType:
		return f.newStack(n, name)
	case ast.ArrayType:
		return f.newArray(n, name)
	case ast.Array2DType:
		return f.newArray2D(n, name)
	case ast.NodeType:
		return f.newNode(n)
	case ast.TreeType:
		return f.newTree(n, name)
	}
	panic(fmt.Sprintf("unknown data structure %s", n.Type))
}

// register records a new drawing of a structure named name. It returns nil
// for structures that are not drawn at all.
func (f *frame) register(name, typeName, shape string, render bool) (*value.Handle, *drawing, error) {
	vm := f.vm
	if name == "" {
		return nil, nil, nil
	}
	uid := f.act.uid(name)
	if vm.sheet.UserDefinedPositions() && render {
		if _, ok := vm.sheet.Position(uid); !ok {
			return nil, nil, newMissingPositionError(uid, f.pc)
		}
	}
	h := &value.Handle{Ident: vm.names.Generate(shape), Shape: shape, Render: render}
	d := &drawing{
		uid:   uid,
		label: name,
		style: vm.sheet.Style(name, typeName),
	}
	if a := vm.sheet.AnimatedStyle(name, typeName); a != nil && render {
		d.anim = a
	}
	vm.drawings[h] = d
	if f.act.function != "" {
		f.act.locals = append(f.act.locals, h)
	}
	return h, d, nil
}

func (f *frame) drawingOf(v value.Value) *drawing {
	h := v.Handle()
	if !h.Visible() {
		return nil
	}
	return f.vm.drawings[h]
}
