package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/zurustar/valgo/pkg/ast"
	"github.com/zurustar/valgo/pkg/layout"
	"github.com/zurustar/valgo/pkg/opcode"
	"github.com/zurustar/valgo/pkg/style"
	"github.com/zurustar/valgo/pkg/value"
)

// ---- program builders ----

func num(f float64) ast.Expression { return &ast.NumberLiteral{Value: f} }
func str(s string) ast.Expression  { return &ast.StringLiteral{Value: s} }
func ident(n string) *ast.Identifier {
	return &ast.Identifier{Name: n}
}

func bin(op string, l, r ast.Expression) ast.Expression {
	return &ast.BinaryExpression{Op: op, Left: l, Right: r}
}

func let(line int, name string, e ast.Expression) ast.Statement {
	return &ast.DeclareStatement{LineNo: line, Target: ident(name), Value: e}
}

func set(line int, target ast.Target, e ast.Expression) ast.Statement {
	return &ast.AssignStatement{LineNo: line, Target: target, Value: e}
}

func do(line int, e ast.Expression) ast.Statement {
	return &ast.ExpressionStatement{LineNo: line, Expression: e}
}

func call(fn string, args ...ast.Expression) ast.Expression {
	return &ast.CallExpression{Function: fn, Args: args}
}

func method(recv, m string, args ...ast.Expression) ast.Expression {
	return &ast.MethodCallExpression{Receiver: recv, Method: m, Args: args}
}

func array(size float64, init ...ast.Expression) ast.Expression {
	return &ast.ConstructorExpression{Type: ast.ArrayType, Elem: "number", Args: []ast.Expression{num(size)}, Init: init}
}

func stack() ast.Expression {
	return &ast.ConstructorExpression{Type: ast.StackType, Elem: "number"}
}

func index(name string, idx ...ast.Expression) *ast.IndexExpression {
	return &ast.IndexExpression{Name: name, Indices: idx}
}

func program(stmts ...ast.Statement) *ast.Program {
	return &ast.Program{Statements: stmts}
}

func run(t *testing.T, p *ast.Program, opts ...Option) (*Result, error) {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{WithLogger(quiet), WithMaxDepth(100)}, opts...)
	return New(p, opts...).Run(context.Background())
}

func mustRun(t *testing.T, p *ast.Program, opts ...Option) *Result {
	t.Helper()
	res, err := run(t, p, opts...)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func runtimeError(t *testing.T, err error) *RuntimeError {
	t.Helper()
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected a *RuntimeError, got %v", err)
	}
	return rerr
}

func render(ops []opcode.OpCode) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = fmt.Sprintf("%s %v", op.Cmd, op.Args)
	}
	return out
}

func sheet(t *testing.T, yaml string) *style.Sheet {
	t.Helper()
	s, err := style.Load(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("style.Load: %v", err)
	}
	return s
}

// ---- scenarios ----

func TestRun_FunctionCallOrder(t *testing.T) {
	src := []string{
		"fun f(x) {",
		"  return x * 3;",
		"}",
		"let ans = f(3);",
	}
	p := &ast.Program{
		Functions: []*ast.FunctionDecl{{
			LineNo: 1, Name: "f", Params: []string{"x"},
			Body: []ast.Statement{&ast.ReturnStatement{LineNo: 2, Value: bin("*", ident("x"), num(3))}},
		}},
		Statements: []ast.Statement{let(4, "ans", call("f", num(3)))},
	}
	res := mustRun(t, p, WithSource(src))

	got := render(opcode.Filter(res.OpCodes, opcode.MoveToLine, opcode.CallEnter, opcode.CallReturn, opcode.UpdateVariableState))
	want := []string{
		"UpdateVariableState [[] variable_block]",
		"MoveToLine [4 pointer code_text]",
		"CallEnter [f [3.0] 2]",
		"UpdateVariableState [[x = 3.0] variable_block]",
		"MoveToLine [2 pointer code_text]",
		"CallReturn [f 9.0 2]",
		"MoveToLine [4 pointer code_text]",
		"UpdateVariableState [[ans = 9.0] variable_block]",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("instructions:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}

	if res.Status != ExitSuccess {
		t.Errorf("Status = %v", res.Status)
	}
	if res.OpCodes[0].Cmd != opcode.VariableBlock || res.OpCodes[1].Cmd != opcode.CodeBlock {
		t.Errorf("run should start with the panels, got %v %v", res.OpCodes[0].Cmd, res.OpCodes[1].Cmd)
	}
	if res.OpCodes[1].Boundary == nil {
		t.Error("code panel has no boundary")
	}
	last := res.OpCodes[len(res.OpCodes)-1]
	if last.Cmd != opcode.Sleep || last.Args[0] != 1.0 {
		t.Errorf("run should end with Sleep(1.0), got %s %v", last.Cmd, last.Args)
	}
}

func TestRun_RuntimeErrors(t *testing.T) {
	tests := []struct {
		name     string
		program  *ast.Program
		wantType ErrorType
		wantMsg  string
		wantLine int
	}{
		{
			"array index out of bounds",
			program(
				let(1, "a", array(3)),
				let(2, "b", index("a", num(5))),
			),
			ErrorIndexOutOfRange, "Array index out of bounds", 2,
		},
		{
			"negative index",
			program(
				let(1, "a", array(3)),
				set(2, index("a", num(-1)), num(1)),
			),
			ErrorIndexOutOfRange, "Array index out of bounds", 2,
		},
		{
			"array initialiser size",
			program(let(3, "a", array(2, num(1), num(2), num(3)))),
			ErrorDimensionMismatch, "Initialisation of array failed.", 3,
		},
		{
			"pop from empty stack",
			program(
				let(1, "s", stack()),
				do(2, method("s", "pop")),
			),
			ErrorEmptyStack, "Attempted to pop from empty stack s", 2,
		},
		{
			"peek empty stack",
			program(
				let(1, "s", stack()),
				let(2, "x", method("s", "peek")),
			),
			ErrorEmptyStack, "Attempted to peek empty stack", 2,
		},
		{
			"invalid cast",
			program(let(7, "n", &ast.CastExpression{To: "number", Expr: str("abc")})),
			ErrorInvalidCast, "Invalid cast operation", 7,
		},
		{
			"string index out of bounds",
			program(
				let(1, "s", str("ab")),
				let(2, "c", index("s", num(2))),
			),
			ErrorIndexOutOfRange, "Array index out of bounds", 2,
		},
		{
			"non positive speed",
			program(&ast.SpeedChangeStatement{LineNo: 4, Factor: num(0)}),
			ErrorInvalidOperation, "Non positive speed change provided", 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := run(t, tt.program)
			rerr := runtimeError(t, err)
			if rerr.Type != tt.wantType || rerr.Message != tt.wantMsg || rerr.Line != tt.wantLine {
				t.Errorf("got %v", rerr)
			}
			if res == nil || res.Status != ExitRuntimeError {
				t.Fatalf("expected a runtime error result, got %+v", res)
			}
			if last := res.OpCodes[len(res.OpCodes)-1]; last.Cmd != opcode.Sleep {
				t.Errorf("failed run should still end with Sleep, got %s", last.Cmd)
			}
		})
	}
}

func TestRun_StackOverflow(t *testing.T) {
	p := &ast.Program{
		Functions: []*ast.FunctionDecl{{
			LineNo: 1, Name: "f", Params: []string{"x"},
			Body: []ast.Statement{&ast.ReturnStatement{LineNo: 2, Value: call("f", ident("x"))}},
		}},
		Statements: []ast.Statement{do(4, call("f", num(1)))},
	}
	res, err := run(t, p, WithMaxDepth(50))
	rerr := runtimeError(t, err)
	if rerr.Type != ErrorStackOverflow || rerr.Message != "Stack Overflow Error. Program failed to terminate." {
		t.Errorf("got %v", rerr)
	}
	if rerr.Line != 1 {
		t.Errorf("Line = %d, want the function header", rerr.Line)
	}
	if n := len(opcode.Filter(res.OpCodes, opcode.CallEnter)); n != 50 {
		t.Errorf("CallEnter count = %d, want 50", n)
	}
	if n := len(opcode.Filter(res.OpCodes, opcode.CallReturn)); n != 0 {
		t.Errorf("no call should return, got %d", n)
	}
}

func whileCounting(limit float64) *ast.Program {
	return program(
		let(1, "i", num(0)),
		&ast.WhileStatement{
			LineNo: 2, EndLine: 4,
			Cond: bin("<", ident("i"), num(limit)),
			Body: []ast.Statement{set(3, ident("i"), bin("+", ident("i"), num(1)))},
		},
	)
}

func TestRun_LoopCeiling(t *testing.T) {
	t.Run("exactly the ceiling succeeds", func(t *testing.T) {
		mustRun(t, whileCounting(10), WithMaxLoops(10))
	})
	t.Run("one more fails at the loop line", func(t *testing.T) {
		_, err := run(t, whileCounting(11), WithMaxLoops(10))
		rerr := runtimeError(t, err)
		if rerr.Type != ErrorLoopLimit || rerr.Line != 2 || rerr.Message != "Max number of loop executions exceeded" {
			t.Errorf("got %v", rerr)
		}
	})
	t.Run("continue counts as an iteration", func(t *testing.T) {
		p := program(
			let(1, "i", num(0)),
			&ast.WhileStatement{
				LineNo: 2, EndLine: 5,
				Cond: bin("<", ident("i"), num(5)),
				Body: []ast.Statement{
					set(3, ident("i"), bin("+", ident("i"), num(1))),
					&ast.ContinueStatement{LineNo: 4, LoopStart: 2},
				},
			},
		)
		if _, err := run(t, p, WithMaxLoops(4)); err == nil {
			t.Error("expected the ceiling to be hit")
		}
		mustRun(t, p, WithMaxLoops(5))
	})
}

func TestRun_ForLoop(t *testing.T) {
	src := []string{
		"let total = 0;",
		"for i in range(3, 0) {",
		"  total = total + i;",
		"}",
		"let done = true;",
	}
	p := program(
		let(1, "total", num(0)),
		&ast.ForStatement{
			LineNo: 2, EndLine: 4,
			Init:   &ast.DeclareStatement{LineNo: 2, Target: ident("i"), Value: num(3)},
			End:    num(0),
			Update: &ast.AssignStatement{LineNo: 2, Target: ident("i"), Value: bin("-", ident("i"), num(1))},
			Body:   []ast.Statement{set(3, ident("total"), bin("+", ident("total"), ident("i")))},
		},
		let(5, "done", &ast.BoolLiteral{Value: true}),
	)
	res := mustRun(t, p, WithSource(src))
	states := opcode.Filter(res.OpCodes, opcode.UpdateVariableState)
	final := fmt.Sprint(states[len(states)-1].Args[0])
	if final != "[total = 6.0 done = true]" {
		t.Errorf("final variable panel = %s", final)
	}
	moves := 0
	for _, op := range opcode.Filter(res.OpCodes, opcode.MoveToLine) {
		if op.Args[0] == 4 {
			moves++
		}
	}
	if moves != 1 {
		t.Errorf("loop end should be shown once, got %d", moves)
	}
}

func TestRun_BreakAndIf(t *testing.T) {
	p := program(
		let(1, "i", num(0)),
		&ast.WhileStatement{
			LineNo: 2, EndLine: 8,
			Cond: &ast.BoolLiteral{Value: true},
			Body: []ast.Statement{
				set(3, ident("i"), bin("+", ident("i"), num(1))),
				&ast.IfStatement{
					LineNo: 4, EndLine: 7,
					Cond:  bin("==", ident("i"), num(3)),
					Body:  []ast.Statement{&ast.BreakStatement{LineNo: 5, LoopEnd: 8}},
					Elifs: []*ast.ElifClause{{LineNo: 6, Cond: bin(">", ident("i"), num(5)), Body: nil}},
				},
			},
		},
		let(9, "j", ident("i")),
	)
	res := mustRun(t, p, WithMaxLoops(10))
	if res.Status != ExitSuccess {
		t.Fatalf("Status = %v", res.Status)
	}
}

func TestRun_Casts(t *testing.T) {
	p := program(
		let(1, "c", &ast.CastExpression{To: "char", Expr: num(65)}),
		let(2, "n", &ast.CastExpression{To: "number", Expr: ident("c")}),
		let(3, "m", &ast.CastExpression{To: "number", Expr: str(" 2.5")}),
		let(4, "s", str("hey")),
		let(5, "e", index("s", num(1))),
	)
	src := []string{"a", "b", "c", "d", "e"}
	res := mustRun(t, p, WithSource(src), WithWindowCapacity(5))
	states := opcode.Filter(res.OpCodes, opcode.UpdateVariableState)
	got := fmt.Sprint(states[len(states)-1].Args[0])
	want := `[c = 'A' n = 65.0 m = 2.5 s = "hey" e = 'e']`
	if got != want {
		t.Errorf("variables = %s, want %s", got, want)
	}
}

func TestRun_DisplayWindowEvicts(t *testing.T) {
	var stmts []ast.Statement
	var src []string
	for i, name := range []string{"a", "b", "c", "d", "e"} {
		stmts = append(stmts, let(i+1, name, num(float64(i))))
		src = append(src, "let "+name+";")
	}
	stmts = append(stmts, set(6, ident("b"), num(9)), let(7, "f", num(5)))
	src = append(src, "b = 9;", "let f;")

	res := mustRun(t, program(stmts...), WithSource(src))
	states := opcode.Filter(res.OpCodes, opcode.UpdateVariableState)
	got := fmt.Sprint(states[len(states)-1].Args[0])
	// e took a's slot, f took c's slot
	want := "[e = 4.0 b = 9.0 f = 5.0 d = 3.0]"
	if got != want {
		t.Errorf("variables = %s, want %s", got, want)
	}
}

func TestRun_StackDrawing(t *testing.T) {
	p := program(
		let(1, "s", stack()),
		let(2, "t", stack()),
		do(3, method("s", "push", num(1))),
		do(4, method("t", "push", method("s", "pop"))),
		let(5, "x", method("t", "pop")),
	)
	res := mustRun(t, p)
	got := render(opcode.Filter(res.OpCodes, opcode.InitStack, opcode.CreateRectangle, opcode.StackPush, opcode.StackPop))
	want := []string{
		"InitStack [stack s BLUE YELLOW true]",
		"InitStack [stack1 t BLUE YELLOW true]",
		"CreateRectangle [rectangle 1.0 stack BLUE YELLOW]",
		"StackPush [rectangle stack false]",
		"StackPop [rectangle stack true]",
		"StackPush [rectangle stack1 true]",
		"StackPop [rectangle stack1 false]",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("instructions:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	for _, op := range opcode.Filter(res.OpCodes, opcode.InitStack) {
		if op.UID == "" || op.Boundary == nil {
			t.Errorf("stack drawing without boundary: %+v", op)
		}
	}
}

func TestRun_BoundaryCarriesCapacity(t *testing.T) {
	p := program(
		let(1, "s", stack()),
		do(2, method("s", "push", num(1))),
		do(3, method("s", "push", num(2))),
		do(4, method("s", "push", num(3))),
	)
	res := mustRun(t, p, WithReturnBoundaries(true))

	init := opcode.Filter(res.OpCodes, opcode.InitStack)[0]
	b := init.Boundary
	if b == nil {
		t.Fatal("InitStack has no boundary")
	}
	if b.MaxSize != 3 {
		t.Errorf("MaxSize = %d, want 3", b.MaxSize)
	}
	upperLeft := layout.Point{X: b.X, Y: b.Y + b.Height}
	lowerRight := layout.Point{X: b.X + b.Width, Y: b.Y}
	if b.Corners[0] != upperLeft || b.Corners[3] != lowerRight {
		t.Errorf("Corners = %v for %+v", b.Corners, b.Position)
	}
	if got := res.Boundaries.Auto["s"]; got != *b {
		t.Errorf("boundary dump = %+v, instruction = %+v", got, *b)
	}

	t.Run("user positions", func(t *testing.T) {
		s := sheet(t, "positions:\n  s: {x: 1, y: -3, width: 2, height: 6}\n")
		res := mustRun(t, p, WithStylesheet(s))
		b := opcode.Filter(res.OpCodes, opcode.InitStack)[0].Boundary
		if b == nil || b.MaxSize != 3 || b.Corners[2] != (layout.Point{X: 1, Y: -3}) {
			t.Errorf("Boundary = %+v", b)
		}
	})
}

func TestRun_ArrayOperations(t *testing.T) {
	p := program(
		let(1, "a", array(3, num(3), num(1), num(2))),
		set(2, index("a", num(0)), num(7)),
		do(3, method("a", "swap", num(0), num(2), &ast.BoolLiteral{Value: true})),
		do(4, method("a", "swap", num(0), num(1))),
		let(5, "n", method("a", "size")),
		let(6, "has", method("a", "contains", num(7))),
	)
	res := mustRun(t, p)
	got := render(opcode.Filter(res.OpCodes, opcode.InitArray, opcode.ArrayElemAssign, opcode.ArrayLongSwap, opcode.ArrayShortSwap))
	want := []string{
		"InitArray [array a [3.0 1.0 2.0] BLUE YELLOW true]",
		"ArrayElemAssign [array -1 0 7.0]",
		"ArrayLongSwap [array -1 0 2 elem1 elem2 animations]",
		"ArrayShortSwap [array -1 0 1]",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("instructions:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if n := len(opcode.Filter(res.OpCodes, opcode.ArrayElemRestyle)); n != 0 {
		t.Errorf("unanimated array should not be restyled, got %d", n)
	}
}

func TestRun_AnimatedStyle(t *testing.T) {
	s := sheet(t, "variables:\n  a:\n    animate:\n      highlight: red\n")
	p := program(
		let(1, "a", array(2)),
		set(2, index("a", num(1)), num(4)),
	)
	res := mustRun(t, p, WithStylesheet(s))
	got := render(opcode.Filter(res.OpCodes, opcode.ArrayElemRestyle, opcode.ArrayElemAssign))
	want := []string{
		"ArrayElemRestyle [array [] [1] BLUE YELLOW true]",
		"ArrayElemAssign [array -1 1 4.0]",
		"ArrayElemRestyle [array [] [1] BLUE YELLOW false]",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("instructions:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestRun_AnimatedStackPush(t *testing.T) {
	s := sheet(t, "variables:\n  s:\n    animate:\n      textColor: RED\n      animationTime: 2\n")
	p := program(
		let(1, "s", stack()),
		do(2, method("s", "push", num(1))),
	)
	res := mustRun(t, p, WithStylesheet(s))
	ops := opcode.Filter(res.OpCodes, opcode.CreateRectangle, opcode.StackPush, opcode.RestyleRectangle)
	got := render(ops)
	want := []string{
		"CreateRectangle [rectangle 1.0 stack BLUE RED]",
		"StackPush [rectangle stack false]",
		"RestyleRectangle [rectangle BLUE YELLOW]",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("instructions:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if ops[0].Runtime != 1 || ops[1].Runtime != 2 || ops[2].Runtime != 2 {
		t.Errorf("runtimes = %v %v %v", ops[0].Runtime, ops[1].Runtime, ops[2].Runtime)
	}
}

func TestRun_Array2D(t *testing.T) {
	a2 := &ast.ConstructorExpression{
		Type: ast.Array2DType, Elem: "number",
		Args:   []ast.Expression{num(2), num(2)},
		Init2D: [][]ast.Expression{{num(1), num(2)}, {num(3), num(4)}},
	}
	t.Run("row read draws a new array", func(t *testing.T) {
		p := program(
			let(1, "g", a2),
			let(2, "r", index("g", num(1))),
			do(3, &ast.RowMethodCallExpression{Receiver: "g", Row: num(0), Method: "swap", Args: []ast.Expression{num(0), num(1)}}),
			set(4, index("g", num(0)), ident("r")),
		)
		res := mustRun(t, p)
		got := render(opcode.Filter(res.OpCodes, opcode.Init2DArray, opcode.InitArray, opcode.Array2DSwap, opcode.ArrayReplaceRow))
		want := []string{
			"Init2DArray [array2d g [[1.0 2.0] [3.0 4.0]] BLUE YELLOW true]",
			"InitArray [array r [3.0 4.0] BLUE YELLOW true]",
			"Array2DSwap [array2d [0 0 0 1]]",
			"ArrayReplaceRow [array2d 0 [3.0 4.0]]",
		}
		if strings.Join(got, "\n") != strings.Join(want, "\n") {
			t.Errorf("instructions:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
		}
	})
	t.Run("initialiser dimensions", func(t *testing.T) {
		bad := &ast.ConstructorExpression{
			Type: ast.Array2DType, Elem: "number",
			Args:   []ast.Expression{num(2), num(3)},
			Init2D: [][]ast.Expression{{num(1), num(2)}, {num(3), num(4)}},
		}
		_, err := run(t, program(let(1, "g", bad)))
		rerr := runtimeError(t, err)
		if rerr.Message != "Array initialiser dimensions do not match those in constructor" {
			t.Errorf("got %v", rerr)
		}
	})
	t.Run("row length mismatch", func(t *testing.T) {
		p := program(
			let(1, "g", a2),
			let(2, "r", array(3)),
			set(3, index("g", num(0)), ident("r")),
		)
		_, err := run(t, p)
		rerr := runtimeError(t, err)
		if rerr.Message != "Dimensions do not match" || rerr.Line != 3 {
			t.Errorf("got %v", rerr)
		}
	})
}

func node(v float64) ast.Expression {
	return &ast.ConstructorExpression{Type: ast.NodeType, Elem: "number", Args: []ast.Expression{num(v)}}
}

func tree(root string) ast.Expression {
	return &ast.ConstructorExpression{Type: ast.TreeType, Elem: "number", Args: []ast.Expression{ident(root)}}
}

func access(name string, path ...ast.Accessor) *ast.TreeAccessExpression {
	return &ast.TreeAccessExpression{Name: name, Path: path}
}

func TestRun_Tree(t *testing.T) {
	t.Run("build, edit and delete", func(t *testing.T) {
		p := program(
			let(1, "r", node(1)),
			let(2, "c", node(2)),
			let(3, "t", tree("r")),
			set(4, access("t", ast.AccessRoot, ast.AccessLeft), ident("c")),
			set(5, access("t", ast.AccessRoot, ast.AccessLeft, ast.AccessValue), num(5)),
			let(6, "v", access("t", ast.AccessRoot, ast.AccessLeft, ast.AccessValue)),
			set(7, access("t", ast.AccessRoot, ast.AccessLeft), &ast.NullLiteral{}),
		)
		res := mustRun(t, p)
		got := render(opcode.Filter(res.OpCodes, opcode.CreateNode, opcode.InitTree, opcode.TreeAppend, opcode.TreeEditValue, opcode.TreeDelete))
		want := []string{
			"CreateNode [node 1.0]",
			"CreateNode [node1 2.0]",
			"InitTree [tree t node 1 BLUE YELLOW]",
			"TreeAppend [tree tree.root tree.root.left left [node1]]",
			"TreeEditValue [tree tree.root.left 5.0]",
			"TreeDelete [tree tree.root left]",
		}
		if strings.Join(got, "\n") != strings.Join(want, "\n") {
			t.Errorf("instructions:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
		}
	})
	t.Run("moving a node erases it from its old tree", func(t *testing.T) {
		p := program(
			let(1, "r1", node(1)),
			let(2, "r2", node(2)),
			let(3, "c", node(3)),
			let(4, "t1", tree("r1")),
			let(5, "t2", tree("r2")),
			set(6, access("t1", ast.AccessRoot, ast.AccessLeft), ident("c")),
			set(7, access("t2", ast.AccessRoot, ast.AccessRight), ident("c")),
			let(8, "x", access("t1", ast.AccessRoot, ast.AccessLeft)),
		)
		res := mustRun(t, p)
		got := render(opcode.Filter(res.OpCodes, opcode.TreeAppend, opcode.TreeDelete))
		want := []string{
			"TreeAppend [tree tree.root tree.root.left left [node2]]",
			"TreeDelete [tree tree.root left]",
			"TreeAppend [tree1 tree1.root tree1.root.right right [node2]]",
		}
		if strings.Join(got, "\n") != strings.Join(want, "\n") {
			t.Errorf("instructions:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
		}
	})
	t.Run("self reference", func(t *testing.T) {
		p := program(
			let(1, "n", node(1)),
			let(2, "t", tree("n")),
			set(3, access("t", ast.AccessRoot, ast.AccessLeft), ident("n")),
		)
		_, err := run(t, p)
		rerr := runtimeError(t, err)
		if rerr.Type != ErrorSelfReference || rerr.Line != 3 || !errors.Is(err, value.ErrSelfReference) {
			t.Errorf("got %v", rerr)
		}
	})
	t.Run("missing child", func(t *testing.T) {
		p := program(
			let(1, "n", node(1)),
			let(2, "t", tree("n")),
			let(3, "x", access("t", ast.AccessRoot, ast.AccessLeft, ast.AccessRight)),
		)
		_, err := run(t, p)
		rerr := runtimeError(t, err)
		if rerr.Type != ErrorMissingChild || rerr.Message != "Accessed child does not exist" {
			t.Errorf("got %v", rerr)
		}
	})
	t.Run("absent final child reads null", func(t *testing.T) {
		p := program(
			let(1, "n", node(1)),
			let(2, "t", tree("n")),
			let(3, "x", access("t", ast.AccessRoot, ast.AccessLeft)),
		)
		mustRun(t, p)
	})
	t.Run("unattached nodes stay in the variable panel", func(t *testing.T) {
		p := program(
			let(1, "a", node(1)),
			let(2, "b", node(2)),
			set(3, access("a", ast.AccessLeft), ident("b")),
		)
		res := mustRun(t, p, WithSource([]string{"1", "2", "3"}))
		if n := len(opcode.Filter(res.OpCodes, opcode.TreeAppend)); n != 0 {
			t.Errorf("appending to an unattached node should not be drawn, got %d", n)
		}
		states := opcode.Filter(res.OpCodes, opcode.UpdateVariableState)
		got := fmt.Sprint(states[len(states)-1].Args[0])
		if got != "[a = 1.0 (2.0...) null b = 2.0 null null]" {
			t.Errorf("variables = %s", got)
		}
	})
}

func TestRun_FunctionLocalsCleanedUp(t *testing.T) {
	p := &ast.Program{
		Functions: []*ast.FunctionDecl{{
			LineNo: 1, Name: "make",
			Body: []ast.Statement{
				let(2, "s", stack()),
				let(3, "keep", array(2)),
				&ast.ReturnStatement{LineNo: 4, Value: ident("keep")},
			},
		}},
		Statements: []ast.Statement{let(6, "r", call("make"))},
	}
	tests := []struct {
		name    string
		sheet   string
		want    []string
		wantUID string
	}{
		{
			name:  "returned structure is redrawn for the caller",
			sheet: "codeTracking: stepInto\n",
			want: []string{
				"CleanUp [[stack]]",
				"CleanUp [[array]]",
				"InitArray [array1 r [0.0 0.0] BLUE YELLOW true]",
			},
			wantUID: "r",
		},
		{
			name:    "stepping over keeps the callee drawing",
			sheet:   "codeTracking: stepOver\n",
			want:    []string{"CleanUp [[stack]]"},
			wantUID: "make.keep",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustRun(t, p, WithStylesheet(sheet(t, tt.sheet)))
			var got []string
			for _, line := range render(opcode.Filter(res.OpCodes, opcode.CleanUp, opcode.InitArray)) {
				if !strings.HasPrefix(line, "InitArray [array ") {
					got = append(got, line)
				}
			}
			if strings.Join(got, "\n") != strings.Join(tt.want, "\n") {
				t.Errorf("instructions:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(tt.want, "\n"))
			}
			uids := map[string]bool{}
			for _, op := range res.OpCodes {
				if op.UID != "" {
					uids[op.UID] = true
				}
			}
			if !uids["make.s"] || !uids[tt.wantUID] {
				t.Errorf("uids = %v", uids)
			}
			if tt.wantUID == "make.keep" && uids["r"] {
				t.Errorf("stepped-over call was redrawn: %v", uids)
			}
		})
	}
}

func TestRun_ReassignCleansUpDrawing(t *testing.T) {
	p := program(
		let(1, "a", array(2)),
		set(2, ident("a"), array(3)),
	)
	res := mustRun(t, p)
	got := render(opcode.Filter(res.OpCodes, opcode.CleanUp, opcode.InitArray))
	want := []string{
		"InitArray [array a [0.0 0.0] BLUE YELLOW true]",
		"CleanUp [[array]]",
		"InitArray [array1 a [0.0 0.0 0.0] BLUE YELLOW true]",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("instructions:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestRun_HiddenStructures(t *testing.T) {
	s := sheet(t, "positions:\n  a: {x: 0, y: 0, width: 0, height: 0}\n")
	p := program(
		let(1, "a", array(2)),
		set(2, index("a", num(0)), num(5)),
		do(3, method("a", "swap", num(0), num(1))),
	)
	res := mustRun(t, p, WithStylesheet(s))
	for _, op := range res.OpCodes {
		if op.Cmd != opcode.Sleep {
			t.Errorf("hidden array emitted %s %v", op.Cmd, op.Args)
		}
	}
	if res.Boundaries != nil {
		t.Error("no boundary dump was requested")
	}
}

func TestRun_Positions(t *testing.T) {
	t.Run("missing structure position", func(t *testing.T) {
		s := sheet(t, "positions:\n  b: {x: 0, y: 0, width: 2, height: 2}\n")
		_, err := run(t, program(let(4, "a", array(2))), WithStylesheet(s))
		rerr := runtimeError(t, err)
		if rerr.Type != ErrorMissingPosition || rerr.Message != "Missing position values for a" || rerr.Line != 4 {
			t.Errorf("got %v", rerr)
		}
	})
	t.Run("missing panel position", func(t *testing.T) {
		s := sheet(t, "positions:\n  a: {x: 0, y: 0, width: 2, height: 2}\n")
		_, err := run(t, program(let(1, "a", array(2))), WithStylesheet(s), WithSource([]string{"let a;"}))
		rerr := runtimeError(t, err)
		if rerr.Message != "Missing positional parameter for _code" {
			t.Errorf("got %v", rerr)
		}
	})
	t.Run("user positions become boundaries", func(t *testing.T) {
		s := sheet(t, "positions:\n  a: {x: 1, y: 2, width: 3, height: 4}\n")
		res := mustRun(t, program(let(1, "a", array(2))), WithStylesheet(s))
		init := opcode.Filter(res.OpCodes, opcode.InitArray)[0]
		if init.Boundary == nil || init.Boundary.Position != (layout.Position{X: 1, Y: 2, Width: 3, Height: 4}) {
			t.Errorf("Boundary = %+v", init.Boundary)
		}
	})
	t.Run("boundary dump", func(t *testing.T) {
		s := sheet(t, "positions:\n  a: {x: 1, y: 2, width: 3, height: 4}\n  zzz: {x: 0, y: 0, width: 1, height: 1}\n")
		res := mustRun(t, program(let(1, "a", array(2))), WithStylesheet(s), WithSource([]string{"let a;"}), WithReturnBoundaries(true))
		b := res.Boundaries
		if b == nil {
			t.Fatal("no boundary dump")
		}
		for _, uid := range []string{"a", layout.CodePanelUID, layout.VariablePanelUID} {
			if _, ok := b.Auto[uid]; !ok {
				t.Errorf("auto boundaries miss %s", uid)
			}
		}
		if _, ok := b.Stylesheet["a"]; !ok || len(b.Stylesheet) != 1 {
			t.Errorf("stylesheet boundaries = %v", b.Stylesheet)
		}
	})
}

func TestRun_TooManyStructures(t *testing.T) {
	var stmts []ast.Statement
	for i := 0; i < 10; i++ {
		stmts = append(stmts, let(i+1, fmt.Sprintf("s%d", i), stack()))
	}
	res, err := run(t, program(stmts...))
	rerr := runtimeError(t, err)
	if rerr.Type != ErrorLayout || !IsLayoutError(err) {
		t.Errorf("got %v", err)
	}
	if res.Status != ExitRuntimeError {
		t.Errorf("Status = %v", res.Status)
	}
}

func TestRun_SubtitlesAndSpeed(t *testing.T) {
	once := &ast.SubtitleStatement{LineNo: 5, Text: str("once"), ShowOnce: true}
	p := program(
		&ast.SpeedChangeStatement{LineNo: 1, Factor: num(2)},
		&ast.SubtitleStatement{LineNo: 2, Text: bin("+", str("n = "), num(1))},
		&ast.SpeedResetStatement{LineNo: 3},
		let(4, "i", num(0)),
		&ast.WhileStatement{
			LineNo: 5, EndLine: 8,
			Cond: bin("<", ident("i"), num(3)),
			Body: []ast.Statement{
				once,
				set(7, ident("i"), bin("+", ident("i"), num(1))),
			},
		},
		&ast.SubtitleStatement{LineNo: 9, Text: str("skipped"), Cond: &ast.BoolLiteral{Value: false}},
		&ast.SleepStatement{LineNo: 10, Duration: num(2)},
	)
	res := mustRun(t, p)

	blocks := opcode.Filter(res.OpCodes, opcode.SubtitleBlock)
	if len(blocks) != 1 || blocks[0].UID != layout.SubtitleUID || blocks[0].Boundary == nil {
		t.Fatalf("SubtitleBlock = %+v", blocks)
	}
	updates := opcode.Filter(res.OpCodes, opcode.UpdateSubtitle)
	got := render(updates)
	want := []string{
		"UpdateSubtitle [subtitle_block n = 1.0 2.5]",
		"UpdateSubtitle [subtitle_block once 5]",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("subtitles:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if updates[0].Runtime != 0.5 || updates[1].Runtime != 1 {
		t.Errorf("runtimes = %v, %v", updates[0].Runtime, updates[1].Runtime)
	}
	sleeps := opcode.Filter(res.OpCodes, opcode.Sleep)
	if sleeps[0].Args[0] != 2.0 {
		t.Errorf("Sleep = %v", sleeps[0].Args)
	}
}

func TestRun_StepOver(t *testing.T) {
	src := []string{
		"fun f(x) {",
		"  return x;",
		"}",
		"let a = f(1);",
	}
	p := &ast.Program{
		Functions: []*ast.FunctionDecl{{
			LineNo: 1, Name: "f", Params: []string{"x"},
			Body: []ast.Statement{&ast.ReturnStatement{LineNo: 2, Value: ident("x")}},
		}},
		Statements: []ast.Statement{let(4, "a", call("f", num(1)))},
	}
	tests := []struct {
		name       string
		sheet      string
		wantInside bool
	}{
		{"step into", "codeTracking: stepInto\n", true},
		{"step over", "codeTracking: stepOver\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustRun(t, p, WithSource(src), WithStylesheet(sheet(t, tt.sheet)))
			inside := false
			for _, op := range opcode.Filter(res.OpCodes, opcode.MoveToLine) {
				if op.Args[0] == 2 {
					inside = true
				}
			}
			if inside != tt.wantInside {
				t.Errorf("pointer entered the function = %v, want %v", inside, tt.wantInside)
			}
		})
	}
}

func TestRun_ReportsErrors(t *testing.T) {
	var reported error
	p := program(
		let(1, "a", array(1)),
		let(2, "b", index("a", num(3))),
	)
	_, err := run(t, p, WithErrorReporter(func(err error) { reported = err }))
	if err == nil {
		t.Fatal("expected an error")
	}
	if reported != err {
		t.Errorf("reporter got %v, want %v", reported, err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := New(whileCounting(3), WithLogger(quiet)).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNameGenerator(t *testing.T) {
	g := NewNameGenerator([]string{"array", "array2"})
	got := []string{g.Generate("array"), g.Generate("array"), g.Generate("array"), g.Generate("stack")}
	want := []string{"array1", "array3", "array4", "stack"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("names = %v, want %v", got, want)
	}
}

func TestDefaultMaxDepth(t *testing.T) {
	if d := DefaultMaxDepth(); d < minDefaultDepth || d > maxDefaultDepth {
		t.Errorf("DefaultMaxDepth = %d", d)
	}
}
