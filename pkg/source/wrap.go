package source

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Wrap widths in columns of the monospace panel face.
const (
	CodeColumns     = 50
	VariableColumns = 50
	SubtitleColumns = 65
)

var face font.Face = basicfont.Face7x13

func columns(n int) fixed.Int26_6 {
	adv, _ := face.GlyphAdvance('m')
	return adv * fixed.Int26_6(n)
}

// WrapLine splits a code line into pieces narrower than CodeColumns,
// breaking after a space or comma where possible and mid-word otherwise.
// An empty line yields no pieces.
func WrapLine(line string) []string {
	limit := columns(CodeColumns)
	out := []string{}
	for line != "" {
		n := fit(line, limit)
		out = append(out, line[:n])
		line = line[n:]
	}
	return out
}

// fit returns the byte length of the longest prefix of line that may be
// drawn on one panel row.
func fit(line string, limit fixed.Int26_6) int {
	if font.MeasureString(face, line) < limit {
		return len(line)
	}
	cut := 0
	for i, r := range line {
		if r != ' ' && r != ',' {
			continue
		}
		if font.MeasureString(face, line[:i+1]) >= limit {
			break
		}
		cut = i + 1
	}
	if cut > 0 {
		return cut
	}
	// one word wider than the panel
	for i := range line {
		if i > 0 && font.MeasureString(face, line[:i]) >= limit {
			return prevRune(line, i)
		}
	}
	return len(line)
}

func prevRune(s string, i int) int {
	for j := i - 1; j > 0; j-- {
		if s[j]&0xC0 != 0x80 {
			return j
		}
	}
	return i
}

// WrapText breaks text into rows of at most n runes joined by newlines.
func WrapText(text string, n int) string {
	r := []rune(text)
	if n <= 0 || len(r) <= n {
		return text
	}
	var rows []string
	for len(r) > n {
		rows = append(rows, string(r[:n]))
		r = r[n:]
	}
	rows = append(rows, string(r))
	return strings.Join(rows, "\n")
}
