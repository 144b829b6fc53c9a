package vm

import (
	"fmt"

	"github.com/zurustar/valgo/pkg/ast"
	"github.com/zurustar/valgo/pkg/layout"
	"github.com/zurustar/valgo/pkg/opcode"
	"github.com/zurustar/valgo/pkg/value"
)

const rectangleShape = "rectangle"

func (f *frame) newStack(n *ast.ConstructorExpression, name string) (value.Value, error) {
	s, d, err := f.drawStack(name)
	if err != nil {
		return nil, err
	}
	for _, e := range n.Init {
		v, err := f.eval(e, evalCtx{})
		if err != nil {
			return nil, err
		}
		f.push(s, v, d)
	}
	return s, nil
}

// drawStack creates an empty stack assigned to name and draws it.
func (f *frame) drawStack(name string) (value.Stack, *drawing, error) {
	vm := f.vm
	render := name == "" || vm.sheet.Render(f.act.uid(name))
	h, d, err := f.register(name, "Stack", "stack", render)
	if err != nil {
		return value.Stack{}, nil, err
	}
	s := value.NewStack().WithHandle(h).(value.Stack)
	if h.Visible() {
		vm.reserve(d.uid, layout.NewTall(0))
		vm.emitFor(d.uid, opcode.InitStack, h.Ident, d.label, d.style.BorderColor, d.style.TextColor, d.style.ShowLabel)
	}
	return s, d, nil
}

// push puts v on s, reusing the rectangle v already has (a value popped
// inside the same method call).
func (f *frame) push(s value.Stack, v value.Value, d *drawing) {
	vm := f.vm
	rect := v.Handle()
	reused := rect != nil && rect.Shape == rectangleShape
	if !s.Handle().Visible() {
		s.Push(value.Strip(v))
		return
	}
	vm.grow(d.uid, 1)
	runtime := d.runtime(vm.speed())
	if !reused {
		// a new rectangle enters in the animated style, if any
		border, text := d.style.BorderColor, d.style.TextColor
		if d.anim != nil {
			border, text = first(d.anim.BorderColor, border), d.anim.TextColor
		}
		rect = &value.Handle{Ident: vm.names.Generate(rectangleShape), Shape: rectangleShape, Render: true}
		vm.emit(opcode.CreateRectangle, rect.Ident, value.Label(v), s.Handle().Ident, border, text)
	}
	vm.emitTimed(runtime, opcode.StackPush, rect.Ident, s.Handle().Ident, reused)
	vm.emitTimed(runtime, opcode.RestyleRectangle, rect.Ident, d.style.BorderColor, d.style.TextColor)
	s.Push(v.WithHandle(rect))
}

func (f *frame) stackMethod(n *ast.MethodCallExpression, s value.Stack, ctx evalCtx) (value.Value, error) {
	vm := f.vm
	d := f.drawingOf(s)
	switch n.Method {
	case "push":
		args, err := f.args(n.Args)
		if err != nil {
			return nil, err
		}
		f.push(s, args[0], d)
		f.refresh(n.Receiver, s)
		return value.Void{}, nil

	case "pop":
		top, ok := s.Pop()
		if !ok {
			return nil, newEmptyStackError(fmt.Sprintf("Attempted to pop from empty stack %s", n.Receiver), f.pc)
		}
		if d != nil {
			rect := top.Handle()
			if d.anim != nil {
				vm.emit(opcode.RestyleRectangle, rect.Ident, first(d.anim.BorderColor, d.style.BorderColor), d.anim.TextColor)
			}
			vm.emit(opcode.StackPop, rect.Ident, s.Handle().Ident, ctx.argument)
		}
		f.refresh(n.Receiver, s)
		switch {
		case ctx.statement:
			return value.Void{}, nil
		case ctx.argument:
			return top, nil
		}
		return value.Strip(top), nil

	case "peek":
		top, ok := s.Peek()
		if !ok {
			return nil, newEmptyStackError("Attempted to peek empty stack", f.pc)
		}
		return value.Strip(top), nil

	case "isEmpty":
		return value.Boolean(s.IsEmpty()), nil

	case "size":
		return value.Num(float64(s.Len())), nil
	}
	panic(fmt.Sprintf("unknown stack method %s", n.Method))
}

func first(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
