package ast

import "sort"

// LineTable maps source lines to the statement starting on them.
type LineTable map[int]Statement

// IndexLines builds the line table of p, nested blocks included.
// Function declarations are entered at their header line.
func IndexLines(p *Program) LineTable {
	t := make(LineTable)
	for _, f := range p.Functions {
		t.add(f)
	}
	for _, s := range p.Statements {
		t.add(s)
	}
	return t
}

func (t LineTable) add(s Statement) {
	t[s.Line()] = s
	for _, b := range Blocks(s) {
		for _, inner := range b {
			t.add(inner)
		}
	}
}

// Lines returns the indexed lines in ascending order.
func (t LineTable) Lines() []int {
	out := make([]int, 0, len(t))
	for l := range t {
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

// Blocks returns the statement blocks nested directly in s.
func Blocks(s Statement) [][]Statement {
	switch n := s.(type) {
	case *FunctionDecl:
		return [][]Statement{n.Body}
	case *IfStatement:
		out := [][]Statement{n.Body}
		for _, e := range n.Elifs {
			out = append(out, e.Body)
		}
		if n.Else != nil {
			out = append(out, n.Else.Body)
		}
		return out
	case *WhileStatement:
		return [][]Statement{n.Body}
	case *ForStatement:
		return [][]Statement{n.Body}
	}
	return nil
}

// Span returns the first and last statement lines of a block.
// ok is false for an empty block.
func Span(block []Statement) (first, last int, ok bool) {
	if len(block) == 0 {
		return 0, 0, false
	}
	return block[0].Line(), block[len(block)-1].Line(), true
}

// Identifiers returns every variable and parameter name declared in p,
// sorted and without duplicates.
func Identifiers(p *Program) []string {
	seen := make(map[string]bool)
	var walk func([]Statement)
	walk = func(stmts []Statement) {
		for _, s := range stmts {
			switch n := s.(type) {
			case *DeclareStatement:
				seen[n.Target.Root()] = true
			case *ForStatement:
				seen[n.Counter()] = true
			case *FunctionDecl:
				for _, p := range n.Params {
					seen[p] = true
				}
			}
			for _, b := range Blocks(s) {
				walk(b)
			}
		}
	}
	for _, f := range p.Functions {
		walk([]Statement{f})
	}
	walk(p.Statements)

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LastLine is the highest line holding a statement.
func LastLine(t LineTable) int {
	last := 0
	for l := range t {
		if l > last {
			last = l
		}
	}
	return last
}
