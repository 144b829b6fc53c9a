package ast

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// A program document is the YAML form of a checked program:
//
//	functions:
//	  - line: 1
//	    name: f
//	    params: [x]
//	    body:
//	      - {line: 2, kind: return, value: {kind: binary, op: "*", left: {kind: ident, name: x}, right: {kind: number, value: 3}}}
//	statements:
//	  - {line: 4, kind: let, target: {kind: ident, name: ans}, value: {kind: call, name: f, args: [{kind: number, value: 3}]}}
type programDoc struct {
	Functions  []stmtDoc `yaml:"functions"`
	Statements []stmtDoc `yaml:"statements"`
}

type stmtDoc struct {
	Kind     string    `yaml:"kind"`
	Line     int       `yaml:"line"`
	End      int       `yaml:"end"`
	Name     string    `yaml:"name"`
	Params   []string  `yaml:"params"`
	Target   *exprDoc  `yaml:"target"`
	Value    *exprDoc  `yaml:"value"`
	Expr     *exprDoc  `yaml:"expr"`
	Cond     *exprDoc  `yaml:"cond"`
	To       *exprDoc  `yaml:"to"`
	Text     *exprDoc  `yaml:"text"`
	Duration *exprDoc  `yaml:"duration"`
	Factor   *exprDoc  `yaml:"factor"`
	Body     []stmtDoc `yaml:"body"`
	Elifs    []stmtDoc `yaml:"elifs"`
	Else     *stmtDoc  `yaml:"else"`
	Init     *stmtDoc  `yaml:"init"`
	Update   *stmtDoc  `yaml:"update"`
	Loop     int       `yaml:"loop"`
	Once     bool      `yaml:"once"`
	StepInto bool      `yaml:"stepInto"`
}

type exprDoc struct {
	Kind     string      `yaml:"kind"`
	Value    yaml.Node   `yaml:"value"`
	Name     string      `yaml:"name"`
	Op       string      `yaml:"op"`
	Left     *exprDoc    `yaml:"left"`
	Right    *exprDoc    `yaml:"right"`
	Operand  *exprDoc    `yaml:"operand"`
	Row      *exprDoc    `yaml:"row"`
	Expr     *exprDoc    `yaml:"expr"`
	Method   string      `yaml:"method"`
	Type     string      `yaml:"type"`
	Elem     string      `yaml:"elem"`
	To       string      `yaml:"to"`
	Path     []string    `yaml:"path"`
	Args     []exprDoc   `yaml:"args"`
	Indices  []exprDoc   `yaml:"indices"`
	Init     []exprDoc   `yaml:"init"`
	Rows     [][]exprDoc `yaml:"rows"`
}

// LoadProgramFile reads a program document from path.
func LoadProgramFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program: %w", err)
	}
	defer f.Close()
	return LoadProgram(f)
}

// LoadProgram decodes a program document.
func LoadProgram(r io.Reader) (*Program, error) {
	var doc programDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode program: %w", err)
	}

	p := &Program{}
	for i := range doc.Functions {
		d := &doc.Functions[i]
		if d.Kind == "" {
			d.Kind = "fun"
		}
		s, err := d.statement()
		if err != nil {
			return nil, err
		}
		f, ok := s.(*FunctionDecl)
		if !ok {
			return nil, fmt.Errorf("line %d: functions may only hold function declarations", d.Line)
		}
		p.Functions = append(p.Functions, f)
	}
	stmts, err := statements(doc.Statements)
	if err != nil {
		return nil, err
	}
	p.Statements = stmts
	return p, nil
}

func statements(docs []stmtDoc) ([]Statement, error) {
	out := make([]Statement, 0, len(docs))
	for i := range docs {
		s, err := docs[i].statement()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (d *stmtDoc) statement() (Statement, error) {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("line %d: %s", d.Line, fmt.Sprintf(format, args...))
	}

	body, err := statements(d.Body)
	if err != nil {
		return nil, err
	}

	switch d.Kind {
	case "fun":
		return &FunctionDecl{LineNo: d.Line, Name: d.Name, Params: d.Params, Body: body}, nil

	case "let", "assign":
		target, err := d.Target.target()
		if err != nil {
			return nil, fail("%v", err)
		}
		value, err := d.Value.expression()
		if err != nil {
			return nil, fail("%v", err)
		}
		if d.Kind == "let" {
			return &DeclareStatement{LineNo: d.Line, Target: target, Value: value}, nil
		}
		return &AssignStatement{LineNo: d.Line, Target: target, Value: value}, nil

	case "expr":
		e, err := d.Expr.expression()
		if err != nil {
			return nil, fail("%v", err)
		}
		return &ExpressionStatement{LineNo: d.Line, Expression: e}, nil

	case "return":
		r := &ReturnStatement{LineNo: d.Line}
		if d.Value != nil {
			if r.Value, err = d.Value.expression(); err != nil {
				return nil, fail("%v", err)
			}
		}
		return r, nil

	case "if":
		cond, err := d.Cond.expression()
		if err != nil {
			return nil, fail("%v", err)
		}
		s := &IfStatement{LineNo: d.Line, EndLine: d.End, Cond: cond, Body: body}
		for i := range d.Elifs {
			e := &d.Elifs[i]
			c, err := e.Cond.expression()
			if err != nil {
				return nil, fail("elif: %v", err)
			}
			b, err := statements(e.Body)
			if err != nil {
				return nil, err
			}
			s.Elifs = append(s.Elifs, &ElifClause{LineNo: e.Line, Cond: c, Body: b})
		}
		if d.Else != nil {
			b, err := statements(d.Else.Body)
			if err != nil {
				return nil, err
			}
			s.Else = &ElseClause{LineNo: d.Else.Line, Body: b}
		}
		return s, nil

	case "while":
		cond, err := d.Cond.expression()
		if err != nil {
			return nil, fail("%v", err)
		}
		return &WhileStatement{LineNo: d.Line, EndLine: d.End, Cond: cond, Body: body}, nil

	case "for":
		if d.Init == nil || d.Update == nil {
			return nil, fail("for needs init and update")
		}
		init, err := d.Init.statement()
		if err != nil {
			return nil, err
		}
		update, err := d.Update.statement()
		if err != nil {
			return nil, err
		}
		decl, ok1 := init.(*DeclareStatement)
		upd, ok2 := update.(*AssignStatement)
		if !ok1 || !ok2 {
			return nil, fail("for init must be let and update must be assign")
		}
		end, err := d.To.expression()
		if err != nil {
			return nil, fail("%v", err)
		}
		return &ForStatement{LineNo: d.Line, EndLine: d.End, Init: decl, End: end, Update: upd, Body: body}, nil

	case "break":
		return &BreakStatement{LineNo: d.Line, LoopEnd: d.Loop}, nil

	case "continue":
		return &ContinueStatement{LineNo: d.Line, LoopStart: d.Loop}, nil

	case "sleep":
		dur, err := d.Duration.expression()
		if err != nil {
			return nil, fail("%v", err)
		}
		return &SleepStatement{LineNo: d.Line, Duration: dur}, nil

	case "subtitle":
		text, err := d.Text.expression()
		if err != nil {
			return nil, fail("%v", err)
		}
		s := &SubtitleStatement{LineNo: d.Line, Text: text, ShowOnce: d.Once}
		if d.Duration != nil {
			if s.Duration, err = d.Duration.expression(); err != nil {
				return nil, fail("%v", err)
			}
		}
		if d.Cond != nil {
			if s.Cond, err = d.Cond.expression(); err != nil {
				return nil, fail("%v", err)
			}
		}
		return s, nil

	case "speed":
		factor, err := d.Factor.expression()
		if err != nil {
			return nil, fail("%v", err)
		}
		s := &SpeedChangeStatement{LineNo: d.Line, Factor: factor}
		if d.Cond != nil {
			if s.Cond, err = d.Cond.expression(); err != nil {
				return nil, fail("%v", err)
			}
		}
		return s, nil

	case "endSpeed":
		return &SpeedResetStatement{LineNo: d.Line}, nil

	case "stepInto", "stepOver":
		s := &CodeTrackingStatement{LineNo: d.Line, StepInto: d.Kind == "stepInto"}
		if d.Cond != nil {
			if s.Cond, err = d.Cond.expression(); err != nil {
				return nil, fail("%v", err)
			}
		}
		return s, nil

	case "endTracking":
		return &CodeTrackingResetStatement{LineNo: d.Line}, nil
	}
	return nil, fail("unknown statement kind %q", d.Kind)
}

func (d *exprDoc) target() (Target, error) {
	e, err := d.expression()
	if err != nil {
		return nil, err
	}
	t, ok := e.(Target)
	if !ok {
		return nil, fmt.Errorf("%s cannot be assigned to", d.Kind)
	}
	return t, nil
}

func (d *exprDoc) expression() (Expression, error) {
	if d == nil {
		return nil, fmt.Errorf("missing expression")
	}
	switch d.Kind {
	case "number":
		var f float64
		if err := d.Value.Decode(&f); err != nil {
			return nil, fmt.Errorf("number literal: %w", err)
		}
		return &NumberLiteral{Value: f}, nil
	case "bool":
		var b bool
		if err := d.Value.Decode(&b); err != nil {
			return nil, fmt.Errorf("bool literal: %w", err)
		}
		return &BoolLiteral{Value: b}, nil
	case "char":
		var s string
		if err := d.Value.Decode(&s); err != nil {
			return nil, fmt.Errorf("char literal: %w", err)
		}
		r := []rune(s)
		if len(r) != 1 {
			return nil, fmt.Errorf("char literal must hold one character, got %q", s)
		}
		return &CharLiteral{Value: r[0]}, nil
	case "string":
		var s string
		if err := d.Value.Decode(&s); err != nil {
			return nil, fmt.Errorf("string literal: %w", err)
		}
		return &StringLiteral{Value: s}, nil
	case "null":
		return &NullLiteral{}, nil
	case "ident":
		return &Identifier{Name: d.Name}, nil
	case "binary":
		l, err := d.Left.expression()
		if err != nil {
			return nil, err
		}
		r, err := d.Right.expression()
		if err != nil {
			return nil, err
		}
		return &BinaryExpression{Op: d.Op, Left: l, Right: r}, nil
	case "unary":
		o, err := d.Operand.expression()
		if err != nil {
			return nil, err
		}
		return &UnaryExpression{Op: d.Op, Operand: o}, nil
	case "call":
		args, err := expressions(d.Args)
		if err != nil {
			return nil, err
		}
		return &CallExpression{Function: d.Name, Args: args}, nil
	case "method":
		args, err := expressions(d.Args)
		if err != nil {
			return nil, err
		}
		if d.Row != nil {
			row, err := d.Row.expression()
			if err != nil {
				return nil, err
			}
			return &RowMethodCallExpression{Receiver: d.Name, Row: row, Method: d.Method, Args: args}, nil
		}
		return &MethodCallExpression{Receiver: d.Name, Method: d.Method, Args: args}, nil
	case "new":
		c := &ConstructorExpression{Type: StructType(d.Type), Elem: d.Elem}
		var err error
		if c.Args, err = expressions(d.Args); err != nil {
			return nil, err
		}
		if c.Init, err = expressions(d.Init); err != nil {
			return nil, err
		}
		for _, row := range d.Rows {
			r, err := expressions(row)
			if err != nil {
				return nil, err
			}
			c.Init2D = append(c.Init2D, r)
		}
		switch c.Type {
		case StackType, ArrayType, Array2DType, TreeType, NodeType:
		default:
			return nil, fmt.Errorf("unknown constructor type %q", d.Type)
		}
		return c, nil
	case "index":
		idx, err := expressions(d.Indices)
		if err != nil {
			return nil, err
		}
		return &IndexExpression{Name: d.Name, Indices: idx}, nil
	case "tree":
		path := make([]Accessor, len(d.Path))
		for i, p := range d.Path {
			switch a := Accessor(p); a {
			case AccessRoot, AccessLeft, AccessRight, AccessValue:
				path[i] = a
			default:
				return nil, fmt.Errorf("unknown tree accessor %q", p)
			}
		}
		return &TreeAccessExpression{Name: d.Name, Path: path}, nil
	case "cast":
		e, err := d.Expr.expression()
		if err != nil {
			return nil, err
		}
		if d.To != "number" && d.To != "char" {
			return nil, fmt.Errorf("unknown cast target %q", d.To)
		}
		return &CastExpression{To: d.To, Expr: e}, nil
	}
	return nil, fmt.Errorf("unknown expression kind %q", d.Kind)
}

func expressions(docs []exprDoc) ([]Expression, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	out := make([]Expression, 0, len(docs))
	for i := range docs {
		e, err := docs[i].expression()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
