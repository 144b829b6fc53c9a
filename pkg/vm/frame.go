package vm

import (
	"fmt"

	"github.com/zurustar/valgo/pkg/ast"
	"github.com/zurustar/valgo/pkg/display"
	"github.com/zurustar/valgo/pkg/opcode"
	"github.com/zurustar/valgo/pkg/source"
	"github.com/zurustar/valgo/pkg/value"
)

// activation is the state of one function invocation (or of the top level)
// shared by every frame executing its statements.
type activation struct {
	function string // "" at top level
	scope    *Scope
	window   *display.Window
	locals   []*value.Handle // structures drawn by this invocation
}

func newActivation(function string, windowCapacity int) *activation {
	return &activation{
		function: function,
		scope:    NewScope(),
		window:   display.New(windowCapacity),
	}
}

// uid names a structure declared in this activation.
func (a *activation) uid(name string) string {
	if a.function == "" {
		return name
	}
	return a.function + "." + name
}

func (a *activation) forget(h *value.Handle) {
	for i, l := range a.locals {
		if l == h {
			a.locals = append(a.locals[:i], a.locals[i+1:]...)
			return
		}
	}
}

type outcome int

const (
	next outcome = iota
	breakLoop
	continueLoop
	returned
)

// completion tells the enclosing frame how a statement ended.
type completion struct {
	kind  outcome
	value value.Value
}

// frame executes one block of statements.
type frame struct {
	vm    *VM
	act   *activation
	depth int
	pc    int

	showMoveToLine   bool
	stepInto         bool
	previousStepInto bool
}

func (vm *VM) newFrame(act *activation, depth int, showMoveToLine, stepInto bool) *frame {
	return &frame{
		vm:               vm,
		act:              act,
		depth:            depth,
		showMoveToLine:   showMoveToLine,
		stepInto:         stepInto,
		previousStepInto: stepInto,
	}
}

// run executes block. A fresh frame (the start of a function or of the
// program) first fills the variable panel from its scope.
func (f *frame) run(block []ast.Statement, fresh bool) (completion, error) {
	if f.depth > f.vm.maxDepth {
		return completion{}, newStackOverflowError(f.pc)
	}
	if fresh {
		f.act.scope.Each(f.insertVariable)
		f.updateVariableState()
	}
	for _, s := range block {
		f.pc = s.Line()
		if err := f.vm.cancelled(f.pc); err != nil {
			return completion{}, err
		}
		if ast.IsCode(s) {
			f.moveToLine(f.pc)
		}
		c, err := f.execute(s)
		if err != nil {
			return completion{}, err
		}
		if c.kind != next {
			return c, nil
		}
	}
	return completion{}, nil
}

func (f *frame) execute(s ast.Statement) (completion, error) {
	switch n := s.(type) {
	case *ast.FunctionDecl:
		return completion{}, nil
	case *ast.DeclareStatement:
		return completion{}, f.assign(n.Target, n.Value)
	case *ast.AssignStatement:
		return completion{}, f.assign(n.Target, n.Value)
	case *ast.ExpressionStatement:
		_, err := f.eval(n.Expression, evalCtx{statement: true})
		return completion{}, err
	case *ast.ReturnStatement:
		var v value.Value = value.Void{}
		if n.Value != nil {
			var err error
			if v, err = f.eval(n.Value, evalCtx{}); err != nil {
				return completion{}, err
			}
		}
		return completion{kind: returned, value: v}, nil
	case *ast.IfStatement:
		return f.executeIf(n)
	case *ast.WhileStatement:
		f.pause()
		return f.loop(n.LineNo, n.EndLine, n.Body, func() (bool, error) { return f.condition(n.Cond) }, nil, "")
	case *ast.ForStatement:
		return f.executeFor(n)
	case *ast.BreakStatement:
		return completion{kind: breakLoop}, nil
	case *ast.ContinueStatement:
		return completion{kind: continueLoop}, nil
	case *ast.SleepStatement:
		return completion{}, f.executeSleep(n)
	case *ast.SubtitleStatement:
		return completion{}, f.executeSubtitle(n)
	case *ast.SpeedChangeStatement:
		return completion{}, f.executeSpeedChange(n)
	case *ast.SpeedResetStatement:
		if len(f.vm.speeds) > 1 {
			f.vm.speeds = f.vm.speeds[:len(f.vm.speeds)-1]
		}
		return completion{}, nil
	case *ast.CodeTrackingStatement:
		return completion{}, f.executeCodeTracking(n)
	case *ast.CodeTrackingResetStatement:
		f.stepInto = f.previousStepInto
		return completion{}, nil
	}
	panic(fmt.Sprintf("unknown statement %T", s))
}

// moveToLine points the code panel at a source line.
func (f *frame) moveToLine(line int) {
	vm := f.vm
	if !f.showMoveToLine || vm.hideCode {
		return
	}
	if text, ok := vm.sourceLine(line); !ok || isBlank(text) {
		return
	}
	vm.emit(opcode.MoveToLine, vm.panel.DisplayLine(line), vm.pointer, vm.codeText)
}

// pause lets the viewer follow a branch or loop decision.
func (f *frame) pause() {
	if f.showMoveToLine && !f.vm.hideCode {
		f.vm.emit(opcode.Sleep, 0.5*f.vm.speed())
	}
}

// insertVariable shows name in the variable panel when its value is drawn
// nowhere else.
func (f *frame) insertVariable(name string, v value.Value) {
	if displayable(v) {
		f.act.window.Insert(name, v)
	}
}

func displayable(v value.Value) bool {
	if n, ok := v.(value.Node); ok {
		return !n.Attached()
	}
	k := v.Kind()
	switch {
	case k.IsPrimitive():
		return true
	case k.IsStructure():
		return !v.Handle().Visible()
	}
	return false
}

func (f *frame) updateVariableState() {
	vm := f.vm
	if !f.showMoveToLine || vm.hideCode || vm.hideVariables {
		return
	}
	entries := f.act.window.Entries()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = source.WrapText(e.Line(), source.VariableColumns)
	}
	vm.emit(opcode.UpdateVariableState, lines, vm.variableBlock)
}

// refresh redraws the panel entry of a structure that is not drawn itself.
func (f *frame) refresh(name string, v value.Value) {
	if v.Handle().Visible() {
		return
	}
	f.insertVariable(name, v)
	f.updateVariableState()
}

func (f *frame) condition(e ast.Expression) (bool, error) {
	v, err := f.eval(e, evalCtx{})
	if err != nil {
		return false, err
	}
	return value.Truth(v), nil
}

func (f *frame) number(e ast.Expression) (float64, error) {
	v, err := f.eval(e, evalCtx{})
	if err != nil {
		return 0, err
	}
	n, ok := value.Numeric(v)
	if !ok {
		panic(&value.KindError{Op: "number", Left: v.Kind()})
	}
	return n, nil
}

func (f *frame) assign(target ast.Target, rhs ast.Expression) error {
	switch t := target.(type) {
	case *ast.Identifier:
		return f.assignIdentifier(t, rhs)
	case *ast.IndexExpression:
		return f.assignIndex(t, rhs)
	case *ast.TreeAccessExpression:
		return f.assignTree(t, rhs)
	}
	panic(fmt.Sprintf("unknown assignment target %T", target))
}

func (f *frame) assignIdentifier(id *ast.Identifier, rhs ast.Expression) error {
	if old, ok := f.act.scope.Get(id.Name); ok {
		f.cleanUp(old)
	}
	v, err := f.eval(rhs, evalCtx{target: id})
	if err != nil {
		return err
	}
	if n, ok := v.(value.Node); ok && n.Attached() {
		f.flashNode(n)
	}
	if c, ok := rhs.(*ast.CallExpression); ok && f.stepInto && c.Function != f.act.function &&
		v.Kind().IsStructure() && v.Handle().Visible() {
		if v, err = f.adopt(v, id.Name); err != nil {
			return err
		}
	}
	f.act.scope.Set(id.Name, value.Clone(v))
	if displayable(v) {
		f.act.window.Insert(id.Name, v)
	} else {
		f.act.window.Remove(id.Name)
	}
	f.updateVariableState()
	return nil
}

// adopt redraws a structure returned by a function as the variable name of
// this frame, replacing the drawing the callee made. Recursive calls keep
// the callee's drawing.
func (f *frame) adopt(v value.Value, name string) (value.Value, error) {
	f.vm.emit(opcode.CleanUp, []string{v.Handle().Ident})
	switch x := v.(type) {
	case value.Array:
		return f.drawArray(value.NewArray(stripAll(x.Elems())), name)
	case value.Array2D:
		rows := make([][]value.Value, x.Rows())
		for r := range rows {
			rows[r] = stripAll(x.Row(r))
		}
		return f.drawArray2D(value.NewArray2D(rows), name)
	case value.Stack:
		s, d, err := f.drawStack(name)
		if err != nil {
			return nil, err
		}
		for _, item := range x.Items() {
			f.push(s, value.Strip(item), d)
		}
		return s, nil
	case value.Tree:
		return f.drawTree(x.Root(), name)
	}
	return v, nil
}

func stripAll(vs []value.Value) []value.Value {
	for i, v := range vs {
		vs[i] = value.Strip(v)
	}
	return vs
}

// cleanUp removes the drawing of a structure about to be overwritten.
func (f *frame) cleanUp(old value.Value) {
	h := old.Handle()
	if !old.Kind().IsStructure() || !h.Visible() {
		return
	}
	f.vm.emit(opcode.CleanUp, []string{h.Ident})
	f.act.forget(h)
}

func (f *frame) executeIf(n *ast.IfStatement) (completion, error) {
	f.pause()
	ok, err := f.condition(n.Cond)
	if err != nil {
		return completion{}, err
	}
	if ok {
		return f.branch(n.Body)
	}
	for _, e := range n.Elifs {
		f.pc = e.LineNo
		f.moveToLine(e.LineNo)
		f.pause()
		ok, err := f.condition(e.Cond)
		if err != nil {
			return completion{}, err
		}
		if ok {
			return f.branch(e.Body)
		}
	}
	if n.Else != nil {
		f.pc = n.Else.LineNo
		f.moveToLine(n.Else.LineNo)
		f.pause()
		return f.branch(n.Else.Body)
	}
	return completion{}, nil
}

// branch runs an if/elif/else body in a frame sharing this one's tracking.
func (f *frame) branch(body []ast.Statement) (completion, error) {
	inner := f.vm.newFrame(f.act, f.depth, f.showMoveToLine, f.stepInto)
	inner.pc = f.pc
	return inner.run(body, false)
}

func (f *frame) executeFor(n *ast.ForStatement) (completion, error) {
	if err := f.assign(n.Init.Target, n.Init.Value); err != nil {
		return completion{}, err
	}
	counter := n.Counter()
	start := f.counterValue(counter)
	end, err := f.number(n.End)
	if err != nil {
		return completion{}, err
	}
	ascending := start < end
	cond := func() (bool, error) {
		c := f.counterValue(counter)
		if ascending {
			return c < end, nil
		}
		return c > end, nil
	}
	update := func() error {
		return f.assign(n.Update.Target, n.Update.Value)
	}
	return f.loop(n.LineNo, n.EndLine, n.Body, cond, update, counter)
}

func (f *frame) counterValue(name string) float64 {
	v, _ := f.act.scope.Get(name)
	n, _ := value.Numeric(v)
	return n
}

// loop runs body while cond holds. update (for loops) advances the counter
// after each iteration, counter names the variable removed when the loop
// ends.
func (f *frame) loop(line, endLine int, body []ast.Statement, cond func() (bool, error), update func() error, counter string) (completion, error) {
	prevShow := f.showMoveToLine
	exit := func() {
		f.showMoveToLine = prevShow
		if counter != "" {
			f.act.scope.Delete(counter)
			f.act.window.Remove(counter)
		}
		f.pc = endLine
		f.moveToLine(endLine)
	}
	advance := func() error {
		if update != nil {
			if err := update(); err != nil {
				return err
			}
		}
		f.pc = line
		f.moveToLine(line)
		return nil
	}

	for count := 0; ; count++ {
		f.pc = line
		ok, err := cond()
		if err != nil {
			return completion{}, err
		}
		if !ok {
			exit()
			return completion{}, nil
		}
		if count >= f.vm.maxLoops {
			return completion{}, newLoopLimitError(line)
		}

		f.showMoveToLine = f.stepInto
		inner := f.vm.newFrame(f.act, f.depth, f.stepInto, f.stepInto && f.previousStepInto)
		inner.pc = line
		c, err := inner.run(body, false)
		if err != nil {
			return completion{}, err
		}
		switch c.kind {
		case breakLoop:
			exit()
			return completion{}, nil
		case returned:
			f.showMoveToLine = prevShow
			return c, nil
		case next:
			if counter != "" {
				f.pause()
			}
		}
		if err := advance(); err != nil {
			return completion{}, err
		}
	}
}

func (f *frame) executeSleep(n *ast.SleepStatement) error {
	d, err := f.number(n.Duration)
	if err != nil {
		return err
	}
	f.vm.emit(opcode.Sleep, d)
	return nil
}

func (f *frame) executeSpeedChange(n *ast.SpeedChangeStatement) error {
	factor, err := f.number(n.Factor)
	if err != nil {
		return err
	}
	if factor <= 0 {
		return NewRuntimeErrorWithLine(ErrorInvalidOperation, "Non positive speed change provided", f.pc)
	}
	apply := true
	if n.Cond != nil {
		if apply, err = f.condition(n.Cond); err != nil {
			return err
		}
	}
	speed := f.vm.speed()
	if apply {
		speed = 1 / factor
	}
	f.vm.speeds = append(f.vm.speeds, speed)
	return nil
}

func (f *frame) executeCodeTracking(n *ast.CodeTrackingStatement) error {
	apply := true
	if n.Cond != nil {
		var err error
		if apply, err = f.condition(n.Cond); err != nil {
			return err
		}
	}
	f.previousStepInto = f.stepInto
	if apply {
		f.stepInto = n.StepInto
	}
	return nil
}

func (f *frame) executeSubtitle(n *ast.SubtitleStatement) error {
	vm := f.vm
	if n.ShowOnce && vm.shownOnce[n] {
		return nil
	}
	if n.Cond != nil {
		ok, err := f.condition(n.Cond)
		if err != nil || !ok {
			return err
		}
	}
	if n.ShowOnce {
		vm.shownOnce[n] = true
	}
	text, err := f.eval(n.Text, evalCtx{})
	if err != nil {
		return err
	}
	var duration float64
	if n.Duration != nil {
		if duration, err = f.number(n.Duration); err != nil {
			return err
		}
	} else {
		base := defaultSubtitleDuration
		if d, ok := vm.sheet.SubtitleDuration(); ok {
			base = d
		}
		duration = float64(base) * vm.speed()
	}
	vm.showSubtitle(value.Label(text), duration)
	return nil
}

// call runs a user function in a new frame one level deeper.
func (f *frame) call(c *ast.CallExpression) (value.Value, error) {
	vm := f.vm
	decl, ok := vm.program.Function(c.Function)
	if !ok {
		panic(fmt.Sprintf("call to undeclared function %s", c.Function))
	}
	params, _ := vm.symbols.Parameters(c.Function)

	args := make([]value.Value, len(c.Args))
	labels := make([]string, len(c.Args))
	for i, a := range c.Args {
		v, err := f.eval(a, evalCtx{})
		if err != nil {
			return nil, err
		}
		args[i] = v
		labels[i] = value.Label(v)
	}

	act := newActivation(c.Function, vm.windowCapacity)
	for i, p := range params {
		act.scope.Set(p, value.Clone(args[i]))
	}
	callee := vm.newFrame(act, f.depth+1, f.stepInto, f.stepInto && f.previousStepInto)
	callee.pc = decl.LineNo

	vm.emit(opcode.CallEnter, c.Function, labels, callee.depth)
	res, err := callee.run(decl.Body, true)
	if err != nil {
		return nil, err
	}
	var result value.Value = value.Void{}
	if res.kind == returned {
		result = res.value
	}
	callee.cleanUpLocals(result)
	vm.emit(opcode.CallReturn, c.Function, value.Label(result), callee.depth)

	if f.stepInto {
		f.moveToLine(f.pc)
	}
	return result, nil
}

// cleanUpLocals removes the drawings made by a finished invocation, except
// the structure it returns.
func (f *frame) cleanUpLocals(result value.Value) {
	keep := result.Handle()
	var idents []string
	for _, h := range f.act.locals {
		if h != keep && h.Visible() {
			idents = append(idents, h.Ident)
		}
	}
	if len(idents) > 0 {
		f.vm.emit(opcode.CleanUp, idents)
	}
}
