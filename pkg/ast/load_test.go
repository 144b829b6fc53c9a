package ast

import (
	"strings"
	"testing"
)

const factorial = `
functions:
  - line: 1
    name: fact
    params: [n]
    body:
      - line: 2
        kind: if
        end: 4
        cond: {kind: binary, op: "<=", left: {kind: ident, name: n}, right: {kind: number, value: 1}}
        body:
          - {line: 3, kind: return, value: {kind: number, value: 1}}
      - line: 5
        kind: return
        value:
          kind: binary
          op: "*"
          left: {kind: ident, name: n}
          right: {kind: call, name: fact, args: [{kind: binary, op: "-", left: {kind: ident, name: n}, right: {kind: number, value: 1}}]}
statements:
  - {line: 8, kind: let, target: {kind: ident, name: x}, value: {kind: call, name: fact, args: [{kind: number, value: 4}]}}
  - {line: 9, kind: let, target: {kind: ident, name: s}, value: {kind: new, type: Stack, elem: number}}
  - {line: 10, kind: expr, expr: {kind: method, name: s, method: push, args: [{kind: ident, name: x}]}}
  - {line: 11, kind: subtitle, once: true, text: {kind: string, value: done}}
  - line: 12
    kind: for
    end: 14
    init: {line: 12, kind: let, target: {kind: ident, name: i}, value: {kind: number, value: 0}}
    to: {kind: number, value: 3}
    update: {line: 12, kind: assign, target: {kind: ident, name: i}, value: {kind: binary, op: "+", left: {kind: ident, name: i}, right: {kind: number, value: 1}}}
    body:
      - {line: 13, kind: continue, loop: 12}
`

func TestLoadProgram(t *testing.T) {
	p, err := LoadProgram(strings.NewReader(factorial))
	if err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}

	f, ok := p.Function("fact")
	if !ok {
		t.Fatal("function fact not loaded")
	}
	if f.LineNo != 1 || len(f.Params) != 1 || len(f.Body) != 2 {
		t.Errorf("fact = %s", f)
	}
	if params, ok := p.Parameters("fact"); !ok || params[0] != "n" {
		t.Errorf("Parameters(fact) = %v, %v", params, ok)
	}

	if len(p.Statements) != 5 {
		t.Fatalf("expected 5 statements, got %d", len(p.Statements))
	}
	tests := []struct {
		index int
		want  string
	}{
		{0, "let x = fact(4);"},
		{1, "let s = Stack<number>();"},
		{2, "s.push(x);"},
		{3, `@subtitleOnce("done");`},
		{4, "for i in range(0, 3) { continue; }"},
	}
	for _, tt := range tests {
		if got := p.Statements[tt.index].String(); got != tt.want {
			t.Errorf("statement %d = %q, want %q", tt.index, got, tt.want)
		}
	}

	loop := p.Statements[4].(*ForStatement)
	if loop.Counter() != "i" || loop.EndLine != 14 {
		t.Errorf("for loop = %+v", loop)
	}
	if IsCode(p.Statements[3]) || !IsCode(p.Statements[2]) {
		t.Error("annotations must not be code")
	}
}

func TestLoadProgram_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown statement", "statements:\n  - {line: 3, kind: goto}\n", `line 3: unknown statement kind "goto"`},
		{"unknown expression", "statements:\n  - {line: 1, kind: expr, expr: {kind: lambda}}\n", `unknown expression kind "lambda"`},
		{"literal as target", "statements:\n  - {line: 2, kind: let, target: {kind: number, value: 1}, value: {kind: number, value: 2}}\n", "cannot be assigned to"},
		{"long char", "statements:\n  - {line: 1, kind: let, target: {kind: ident, name: c}, value: {kind: char, value: ab}}\n", "one character"},
		{"bad accessor", "statements:\n  - {line: 1, kind: expr, expr: {kind: tree, name: t, path: [up]}}\n", `unknown tree accessor "up"`},
		{"bad constructor", "statements:\n  - {line: 1, kind: let, target: {kind: ident, name: q}, value: {kind: new, type: Queue}}\n", `unknown constructor type "Queue"`},
		{"missing value", "statements:\n  - {line: 4, kind: let, target: {kind: ident, name: x}}\n", "line 4: missing expression"},
		{"statement in functions", "functions:\n  - {line: 1, kind: break}\n", "functions may only hold function declarations"},
		{"malformed yaml", "statements: [", "failed to decode program"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProgram(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadProgramFile_Missing(t *testing.T) {
	if _, err := LoadProgramFile("testdata/does-not-exist.yaml"); err == nil {
		t.Error("expected an error")
	}
}

func TestIndexLines(t *testing.T) {
	p, err := LoadProgram(strings.NewReader(factorial))
	if err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	table := IndexLines(p)

	want := []int{1, 2, 3, 5, 8, 9, 10, 11, 12, 13}
	got := table.Lines()
	if len(got) != len(want) {
		t.Fatalf("Lines() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Lines() = %v, want %v", got, want)
		}
	}
	if _, ok := table[3].(*ReturnStatement); !ok {
		t.Errorf("line 3 holds %T", table[3])
	}
	if LastLine(table) != 13 {
		t.Errorf("LastLine = %d", LastLine(table))
	}
}

func TestIdentifiers(t *testing.T) {
	p, err := LoadProgram(strings.NewReader(factorial))
	if err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	got := strings.Join(Identifiers(p), ",")
	if got != "i,n,s,x" {
		t.Errorf("Identifiers = %s", got)
	}
}

func TestSpan(t *testing.T) {
	if _, _, ok := Span(nil); ok {
		t.Error("empty block has no span")
	}
	block := []Statement{&BreakStatement{LineNo: 4}, &ContinueStatement{LineNo: 7}}
	first, last, ok := Span(block)
	if !ok || first != 4 || last != 7 {
		t.Errorf("Span = %d, %d, %v", first, last, ok)
	}
}
