// Package ast is the type-checked program model executed by the valgo engine.
// Programs are produced by the front end (or decoded from YAML with
// LoadProgram); the engine never sees unchecked input.
package ast

import (
	"bytes"
	"strconv"
	"strings"
)

type Node interface {
	String() string
}

// Statement is a node tagged with its source line.
type Statement interface {
	Node
	Line() int
	statementNode()
}

type Expression interface {
	Node
	expressionNode()
}

// Annotation is a statement that drives the animation rather than the
// program: it is never shown in the code panel and never moves the pointer.
type Annotation interface {
	Statement
	annotationNode()
}

// Target is an expression that may appear on the left of an assignment.
type Target interface {
	Expression
	// Root is the variable the target starts from.
	Root() string
	targetNode()
}

// IsCode reports whether s is a statement shown in the code panel.
func IsCode(s Statement) bool {
	_, ok := s.(Annotation)
	return !ok
}

// Program is the root node
type Program struct {
	Functions  []*FunctionDecl
	Statements []Statement
}

func (p *Program) String() string {
	var out bytes.Buffer
	for _, f := range p.Functions {
		out.WriteString(f.String())
		out.WriteString("\n")
	}
	for _, s := range p.Statements {
		out.WriteString(s.String())
		out.WriteString("\n")
	}
	return out.String()
}

// Function returns the declaration of name.
func (p *Program) Function(name string) (*FunctionDecl, bool) {
	for _, f := range p.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Parameters implements SymbolTable.
func (p *Program) Parameters(function string) ([]string, bool) {
	f, ok := p.Function(function)
	if !ok {
		return nil, false
	}
	return f.Params, true
}

// SymbolTable exposes what the engine needs from semantic analysis.
type SymbolTable interface {
	Parameters(function string) ([]string, bool)
}

// ---- statements ----

// FunctionDecl: fun name(params) { body }
// Its line acts as a label: executing it does nothing.
type FunctionDecl struct {
	LineNo int
	Name   string
	Params []string
	Body   []Statement
}

func (f *FunctionDecl) statementNode() {}
func (f *FunctionDecl) Line() int      { return f.LineNo }
func (f *FunctionDecl) String() string {
	return "fun " + f.Name + "(" + strings.Join(f.Params, ", ") + ") " + block(f.Body)
}

// DeclareStatement: let target = value;
type DeclareStatement struct {
	LineNo int
	Target Target
	Value  Expression
}

func (d *DeclareStatement) statementNode() {}
func (d *DeclareStatement) Line() int      { return d.LineNo }
func (d *DeclareStatement) String() string {
	return "let " + d.Target.String() + " = " + d.Value.String() + ";"
}

// AssignStatement: target = value;
type AssignStatement struct {
	LineNo int
	Target Target
	Value  Expression
}

func (a *AssignStatement) statementNode() {}
func (a *AssignStatement) Line() int      { return a.LineNo }
func (a *AssignStatement) String() string {
	return a.Target.String() + " = " + a.Value.String() + ";"
}

// ExpressionStatement evaluates a call for its effect.
type ExpressionStatement struct {
	LineNo     int
	Expression Expression
}

func (e *ExpressionStatement) statementNode() {}
func (e *ExpressionStatement) Line() int      { return e.LineNo }
func (e *ExpressionStatement) String() string { return e.Expression.String() + ";" }

// ReturnStatement: return value; Value is nil for a bare return.
type ReturnStatement struct {
	LineNo int
	Value  Expression
}

func (r *ReturnStatement) statementNode() {}
func (r *ReturnStatement) Line() int      { return r.LineNo }
func (r *ReturnStatement) String() string {
	if r.Value == nil {
		return "return;"
	}
	return "return " + r.Value.String() + ";"
}

// IfStatement: if (cond) {..} else if (cond) {..} else {..}
// EndLine is the line of the closing brace of the whole construct.
type IfStatement struct {
	LineNo  int
	EndLine int
	Cond    Expression
	Body    []Statement
	Elifs   []*ElifClause
	Else    *ElseClause
}

type ElifClause struct {
	LineNo int
	Cond   Expression
	Body   []Statement
}

type ElseClause struct {
	LineNo int
	Body   []Statement
}

func (i *IfStatement) statementNode() {}
func (i *IfStatement) Line() int      { return i.LineNo }
func (i *IfStatement) String() string {
	var out bytes.Buffer
	out.WriteString("if (" + i.Cond.String() + ") " + block(i.Body))
	for _, e := range i.Elifs {
		out.WriteString(" else if (" + e.Cond.String() + ") " + block(e.Body))
	}
	if i.Else != nil {
		out.WriteString(" else " + block(i.Else.Body))
	}
	return out.String()
}

// WhileStatement: while (cond) { body }
type WhileStatement struct {
	LineNo  int
	EndLine int
	Cond    Expression
	Body    []Statement
}

func (w *WhileStatement) statementNode() {}
func (w *WhileStatement) Line() int      { return w.LineNo }
func (w *WhileStatement) String() string {
	return "while (" + w.Cond.String() + ") " + block(w.Body)
}

// ForStatement: for i in range(start, end[, step]) { body }
// Init declares the counter, Update advances it, End is the exclusive bound.
type ForStatement struct {
	LineNo  int
	EndLine int
	Init    *DeclareStatement
	End     Expression
	Update  *AssignStatement
	Body    []Statement
}

func (f *ForStatement) statementNode() {}
func (f *ForStatement) Line() int      { return f.LineNo }
func (f *ForStatement) String() string {
	return "for " + f.Init.Target.String() + " in range(" + f.Init.Value.String() + ", " + f.End.String() + ") " + block(f.Body)
}

// Counter is the loop variable.
func (f *ForStatement) Counter() string { return f.Init.Target.Root() }

// BreakStatement jumps past the enclosing loop.
type BreakStatement struct {
	LineNo  int
	LoopEnd int
}

func (b *BreakStatement) statementNode() {}
func (b *BreakStatement) Line() int      { return b.LineNo }
func (b *BreakStatement) String() string { return "break;" }

// ContinueStatement jumps to the next iteration of the enclosing loop.
type ContinueStatement struct {
	LineNo    int
	LoopStart int
}

func (c *ContinueStatement) statementNode() {}
func (c *ContinueStatement) Line() int      { return c.LineNo }
func (c *ContinueStatement) String() string { return "continue;" }

// SleepStatement: @sleep(duration);
type SleepStatement struct {
	LineNo   int
	Duration Expression
}

func (s *SleepStatement) statementNode()  {}
func (s *SleepStatement) annotationNode() {}
func (s *SleepStatement) Line() int       { return s.LineNo }
func (s *SleepStatement) String() string  { return "@sleep(" + s.Duration.String() + ");" }

// SubtitleStatement: @subtitle(text[, duration][, condition]); or
// @subtitleOnce(...). Cond and Duration may be nil.
type SubtitleStatement struct {
	LineNo   int
	Text     Expression
	Duration Expression
	Cond     Expression
	ShowOnce bool
}

func (s *SubtitleStatement) statementNode()  {}
func (s *SubtitleStatement) annotationNode() {}
func (s *SubtitleStatement) Line() int       { return s.LineNo }
func (s *SubtitleStatement) String() string {
	name := "@subtitle"
	if s.ShowOnce {
		name = "@subtitleOnce"
	}
	return name + "(" + s.Text.String() + ");"
}

// SpeedChangeStatement: @speed(factor[, condition]); starts a region with a
// different animation speed. Cond may be nil.
type SpeedChangeStatement struct {
	LineNo int
	Factor Expression
	Cond   Expression
}

func (s *SpeedChangeStatement) statementNode()  {}
func (s *SpeedChangeStatement) annotationNode() {}
func (s *SpeedChangeStatement) Line() int       { return s.LineNo }
func (s *SpeedChangeStatement) String() string  { return "@speed(" + s.Factor.String() + ") {" }

// SpeedResetStatement closes the innermost speed region.
type SpeedResetStatement struct {
	LineNo int
}

func (s *SpeedResetStatement) statementNode()  {}
func (s *SpeedResetStatement) annotationNode() {}
func (s *SpeedResetStatement) Line() int       { return s.LineNo }
func (s *SpeedResetStatement) String() string  { return "}" }

// CodeTrackingStatement: @stepInto { or @stepOver { with an optional
// condition.
type CodeTrackingStatement struct {
	LineNo   int
	StepInto bool
	Cond     Expression
}

func (c *CodeTrackingStatement) statementNode()  {}
func (c *CodeTrackingStatement) annotationNode() {}
func (c *CodeTrackingStatement) Line() int       { return c.LineNo }
func (c *CodeTrackingStatement) String() string {
	if c.StepInto {
		return "@stepInto {"
	}
	return "@stepOver {"
}

// CodeTrackingResetStatement closes the innermost code tracking region.
type CodeTrackingResetStatement struct {
	LineNo int
}

func (c *CodeTrackingResetStatement) statementNode()  {}
func (c *CodeTrackingResetStatement) annotationNode() {}
func (c *CodeTrackingResetStatement) Line() int       { return c.LineNo }
func (c *CodeTrackingResetStatement) String() string  { return "}" }

// ---- expressions ----

type NumberLiteral struct{ Value float64 }

func (n *NumberLiteral) expressionNode() {}
func (n *NumberLiteral) String() string  { return strconv.FormatFloat(n.Value, 'g', -1, 64) }

type BoolLiteral struct{ Value bool }

func (b *BoolLiteral) expressionNode() {}
func (b *BoolLiteral) String() string  { return strconv.FormatBool(b.Value) }

type CharLiteral struct{ Value rune }

func (c *CharLiteral) expressionNode() {}
func (c *CharLiteral) String() string  { return "'" + string(c.Value) + "'" }

type StringLiteral struct{ Value string }

func (s *StringLiteral) expressionNode() {}
func (s *StringLiteral) String() string  { return strconv.Quote(s.Value) }

// NullLiteral is the empty tree child.
type NullLiteral struct{}

func (n *NullLiteral) expressionNode() {}
func (n *NullLiteral) String() string  { return "null" }

// Identifier
type Identifier struct{ Name string }

func (i *Identifier) expressionNode() {}
func (i *Identifier) targetNode()     {}
func (i *Identifier) Root() string    { return i.Name }
func (i *Identifier) String() string  { return i.Name }

// BinaryExpression: + - * / == != < <= > >= && ||
type BinaryExpression struct {
	Op          string
	Left, Right Expression
}

func (b *BinaryExpression) expressionNode() {}
func (b *BinaryExpression) String() string {
	return "(" + b.Left.String() + " " + b.Op + " " + b.Right.String() + ")"
}

// UnaryExpression: + - !
type UnaryExpression struct {
	Op      string
	Operand Expression
}

func (u *UnaryExpression) expressionNode() {}
func (u *UnaryExpression) String() string  { return u.Op + u.Operand.String() }

// CallExpression calls a user function.
type CallExpression struct {
	Function string
	Args     []Expression
}

func (c *CallExpression) expressionNode() {}
func (c *CallExpression) String() string  { return c.Function + "(" + list(c.Args) + ")" }

// MethodCallExpression calls a data-structure method: s.push(1)
type MethodCallExpression struct {
	Receiver string
	Method   string
	Args     []Expression
}

func (m *MethodCallExpression) expressionNode() {}
func (m *MethodCallExpression) String() string {
	return m.Receiver + "." + m.Method + "(" + list(m.Args) + ")"
}

// RowMethodCallExpression calls a method on one row of a 2D array:
// a[i].swap(x, y)
type RowMethodCallExpression struct {
	Receiver string
	Row      Expression
	Method   string
	Args     []Expression
}

func (m *RowMethodCallExpression) expressionNode() {}
func (m *RowMethodCallExpression) String() string {
	return m.Receiver + "[" + m.Row.String() + "]." + m.Method + "(" + list(m.Args) + ")"
}

// StructType is a constructible data-structure type.
type StructType string

const (
	StackType   StructType = "Stack"
	ArrayType   StructType = "Array"
	Array2DType StructType = "Array2D"
	TreeType    StructType = "Tree"
	NodeType    StructType = "Node"
)

// ConstructorExpression: Stack<number>(), Array<number>(3) {1, 2, 3},
// Array<number>(2, 2) {{..}, {..}}, Node<number>(1), Tree<Node<number>>(root)
type ConstructorExpression struct {
	Type   StructType
	Elem   string // number, bool, char or string
	Args   []Expression
	Init   []Expression
	Init2D [][]Expression
}

func (c *ConstructorExpression) expressionNode() {}
func (c *ConstructorExpression) String() string {
	s := string(c.Type) + "<" + c.Elem + ">(" + list(c.Args) + ")"
	if len(c.Init) > 0 {
		s += " {" + list(c.Init) + "}"
	}
	if len(c.Init2D) > 0 {
		rows := make([]string, len(c.Init2D))
		for i, r := range c.Init2D {
			rows[i] = "{" + list(r) + "}"
		}
		s += " {" + strings.Join(rows, ", ") + "}"
	}
	return s
}

// IndexExpression: a[i] or a[i][j]
type IndexExpression struct {
	Name    string
	Indices []Expression
}

func (i *IndexExpression) expressionNode() {}
func (i *IndexExpression) targetNode()     {}
func (i *IndexExpression) Root() string    { return i.Name }
func (i *IndexExpression) String() string {
	s := i.Name
	for _, idx := range i.Indices {
		s += "[" + idx.String() + "]"
	}
	return s
}

// Accessor is one step of a tree access path.
type Accessor string

const (
	AccessRoot  Accessor = "root"
	AccessLeft  Accessor = "left"
	AccessRight Accessor = "right"
	AccessValue Accessor = "value"
)

// TreeAccessExpression: t.root.left.value or n.right
type TreeAccessExpression struct {
	Name string
	Path []Accessor
}

func (t *TreeAccessExpression) expressionNode() {}
func (t *TreeAccessExpression) targetNode()     {}
func (t *TreeAccessExpression) Root() string    { return t.Name }
func (t *TreeAccessExpression) String() string {
	s := t.Name
	for _, a := range t.Path {
		s += "." + string(a)
	}
	return s
}

// CastExpression: toNumber(x) or toChar(x)
type CastExpression struct {
	To   string // number or char
	Expr Expression
}

func (c *CastExpression) expressionNode() {}
func (c *CastExpression) String() string {
	if c.To == "char" {
		return "toChar(" + c.Expr.String() + ")"
	}
	return "toNumber(" + c.Expr.String() + ")"
}

func list(es []Expression) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func block(stmts []Statement) string {
	parts := make([]string, len(stmts))
	for i, s := range stmts {
		parts[i] = s.String()
	}
	return "{ " + strings.Join(parts, " ") + " }"
}
