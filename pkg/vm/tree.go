package vm

import (
	"errors"
	"fmt"

	"github.com/zurustar/valgo/pkg/ast"
	"github.com/zurustar/valgo/pkg/layout"
	"github.com/zurustar/valgo/pkg/opcode"
	"github.com/zurustar/valgo/pkg/value"
)

func (f *frame) newNode(n *ast.ConstructorExpression) (value.Value, error) {
	vm := f.vm
	v, err := f.eval(n.Args[0], evalCtx{})
	if err != nil {
		return nil, err
	}
	h := &value.Handle{Ident: vm.names.Generate("node"), Shape: "node", Render: true}
	node := vm.arena.NewNode(value.Strip(v), h)
	vm.emit(opcode.CreateNode, h.Ident, value.Label(v))
	return node, nil
}

func (f *frame) newTree(n *ast.ConstructorExpression, name string) (value.Value, error) {
	rv, err := f.eval(n.Args[0], evalCtx{})
	if err != nil {
		return nil, err
	}
	root, ok := rv.(value.Node)
	if !ok {
		panic(&value.KindError{Op: "Tree", Left: rv.Kind()})
	}
	return f.drawTree(root, name)
}

// drawTree makes root the root of a new tree assigned to name and draws it.
func (f *frame) drawTree(root value.Node, name string) (value.Value, error) {
	vm := f.vm
	render := name == "" || vm.sheet.Render(f.act.uid(name))
	h, d, err := f.register(name, "Tree", "tree", render)
	if err != nil {
		return nil, err
	}
	treeName := name
	if h != nil {
		treeName = h.Ident
	}
	t := vm.arena.NewTree(treeName, root, h)
	if h.Visible() {
		vm.reserve(d.uid, layout.NewSquare(root.NodeCount()))
		vm.emitFor(d.uid, opcode.InitTree, h.Ident, d.label, root.Handle().Ident, root.NodeCount(), d.style.BorderColor, d.style.TextColor)
	}
	f.hideAttached()
	return t, nil
}

// hideAttached removes from the variable panel the nodes that are now drawn
// as part of a tree.
func (f *frame) hideAttached() {
	f.act.scope.Each(func(name string, v value.Value) {
		if n, ok := v.(value.Node); ok && n.Attached() {
			f.act.window.Remove(name)
		}
	})
}

func side(a ast.Accessor) value.Side {
	if a == ast.AccessLeft {
		return value.Left
	}
	return value.Right
}

// treeStart resolves the node a tree access starts from and the steps that
// remain after it.
func (f *frame) treeStart(t *ast.TreeAccessExpression) (value.Node, []ast.Accessor) {
	v, ok := f.act.scope.Get(t.Name)
	if !ok {
		panic(fmt.Sprintf("undeclared variable %s", t.Name))
	}
	switch x := v.(type) {
	case value.Tree:
		path := t.Path
		if len(path) > 0 && path[0] == ast.AccessRoot {
			path = path[1:]
		}
		return x.Root(), path
	case value.Node:
		return x, t.Path
	}
	panic(&value.KindError{Op: "tree access", Left: v.Kind()})
}

// walk follows child steps from n. Every step must reach an existing node.
func (f *frame) walk(n value.Node, steps []ast.Accessor) (value.Node, error) {
	for _, a := range steps {
		child, ok := n.Child(side(a))
		if !ok {
			return value.Node{}, newMissingChildError(f.pc)
		}
		n = child
	}
	return n, nil
}

// treeDrawing returns the drawing of the tree n belongs to, if it is drawn.
func (f *frame) treeDrawing(n value.Node) (value.Tree, *drawing) {
	t, ok := n.Tree()
	if !ok {
		return value.Tree{}, nil
	}
	return t, f.drawingOf(t)
}

// nodeHighlight recolours a drawn node with the animated style of its tree;
// nodeRestore puts the resting style back.
func (f *frame) nodeHighlight(n value.Node) {
	t, d := f.treeDrawing(n)
	if d == nil || d.anim == nil {
		return
	}
	f.vm.emit(opcode.TreeNodeRestyle, t.Handle().Ident, n.Path(), first(d.anim.BorderColor, d.style.BorderColor), d.anim.TextColor, d.anim.Highlight)
}

func (f *frame) nodeRestore(n value.Node) {
	t, d := f.treeDrawing(n)
	if d == nil || d.anim == nil {
		return
	}
	f.vm.emit(opcode.TreeNodeRestyle, t.Handle().Ident, n.Path(), d.style.BorderColor, d.style.TextColor, "")
}

func (f *frame) flashNode(n value.Node) {
	f.nodeHighlight(n)
	f.nodeRestore(n)
}

// readTree evaluates t.root.left.value and the like. A missing final child
// reads as null.
func (f *frame) readTree(t *ast.TreeAccessExpression) (value.Value, error) {
	start, steps := f.treeStart(t)
	if len(steps) == 0 {
		return start, nil
	}
	last := steps[len(steps)-1]
	n, err := f.walk(start, steps[:len(steps)-1])
	if err != nil {
		return nil, err
	}
	if last == ast.AccessValue {
		if f.showMoveToLine {
			f.flashNode(n)
		}
		return n.Value(), nil
	}
	if last == ast.AccessRoot {
		return n, nil
	}
	child, ok := n.Child(side(last))
	if !ok {
		return value.Null{}, nil
	}
	return child, nil
}

// assignTree handles t.root.left = node, t.root.value = v and
// t.root.right = null.
func (f *frame) assignTree(t *ast.TreeAccessExpression, rhs ast.Expression) error {
	vm := f.vm
	start, steps := f.treeStart(t)
	if len(steps) == 0 {
		return NewRuntimeErrorWithLine(ErrorInvalidOperation, "Tree root cannot be reassigned", f.pc)
	}
	last := steps[len(steps)-1]
	n, err := f.walk(start, steps[:len(steps)-1])
	if err != nil {
		return err
	}
	v, err := f.eval(rhs, evalCtx{target: t})
	if err != nil {
		return err
	}
	variable, _ := f.act.scope.Get(t.Name)
	tree, d := f.treeDrawing(n)

	switch {
	case last == ast.AccessValue:
		n.SetValue(v)
		if d != nil {
			f.nodeHighlight(n)
			vm.emit(opcode.TreeEditValue, tree.Handle().Ident, n.Path(), value.Label(v))
			f.nodeRestore(n)
		}

	case v.Kind() == value.KindNull:
		if _, removed := vm.arena.Detach(n, side(last)); removed && d != nil {
			vm.emit(opcode.TreeDelete, tree.Handle().Ident, n.Path(), side(last).String())
		}

	default:
		child, ok := v.(value.Node)
		if !ok {
			panic(&value.KindError{Op: "tree assignment", Left: v.Kind()})
		}
		from, fromSide, moved := child.Parent()
		fromTree, fromDrawing := f.treeDrawing(child)
		var fromPath string
		if moved {
			fromPath = from.Path()
		}
		if err := vm.arena.Append(n, side(last), child); err != nil {
			if errors.Is(err, value.ErrSelfReference) {
				return newSelfReferenceError(err, f.pc)
			}
			return err
		}
		if moved && fromDrawing != nil {
			vm.emit(opcode.TreeDelete, fromTree.Handle().Ident, fromPath, fromSide.String())
		}
		if d != nil {
			f.nodeHighlight(n)
			vm.grow(d.uid, child.NodeCount())
			nodes := child.Subtree()
			idents := make([]string, len(nodes))
			for i, s := range nodes {
				idents[i] = s.Handle().Ident
			}
			vm.emit(opcode.TreeAppend, tree.Handle().Ident, n.Path(), child.Path(), side(last).String(), idents)
			f.nodeRestore(n)
		}
		f.hideAttached()
	}

	if d == nil {
		f.insertVariable(t.Name, variable)
		f.updateVariableState()
	}
	return nil
}
