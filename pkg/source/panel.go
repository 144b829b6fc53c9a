package source

import "strings"

// LineKind classifies what starts on a source line.
type LineKind int

const (
	NoStatement LineKind = iota
	CodeStatement
	AnnotationStatement
)

// PanelOptions control which source lines reach the code panel.
type PanelOptions struct {
	DisplayNewLines    bool
	SyntaxHighlighting bool
	TabSpacing         int
}

// CodePanel is the code shown next to the animation together with the
// source line to display line table.
type CodePanel struct {
	Code        []string
	displayLine []int
}

// BuildCodePanel selects the displayed lines of a program. A line is shown
// unless it holds an annotation, and then only if it holds a code statement,
// a brace, or (with DisplayNewLines) anything at all. kindOf is called
// with 1-based line numbers.
func BuildCodePanel(lines []string, kindOf func(line int) LineKind, opts PanelOptions) *CodePanel {
	p := &CodePanel{displayLine: make([]int, len(lines))}
	prev := 0
	for i, text := range lines {
		kind := kindOf(i + 1)
		shown := kind != AnnotationStatement &&
			(opts.DisplayNewLines || kind == CodeStatement || strings.ContainsAny(text, "{}"))
		if !shown {
			p.displayLine[i] = prev
			continue
		}
		if text == "" {
			if !opts.DisplayNewLines {
				p.displayLine[i] = prev
				continue
			}
			if opts.SyntaxHighlighting {
				text = " "
			}
		}
		if opts.TabSpacing > 0 {
			text = strings.ReplaceAll(text, "\t", strings.Repeat(" ", opts.TabSpacing))
		}
		p.Code = append(p.Code, text)
		prev++
		p.displayLine[i] = prev
	}
	return p
}

// DisplayLine returns the display line for a 1-based source line, or 0 if
// the line is out of range.
func (p *CodePanel) DisplayLine(line int) int {
	if line < 1 || line > len(p.displayLine) {
		return 0
	}
	return p.displayLine[line-1]
}

// Wrapped returns the displayed code with every line wrapped to the code
// panel width.
func (p *CodePanel) Wrapped() [][]string {
	out := make([][]string, len(p.Code))
	for i, l := range p.Code {
		out[i] = WrapLine(l)
	}
	return out
}
