// Package opcode defines the abstract animation instructions produced by the
// valgo engine. The engine appends them to a Log in execution order and a
// downstream renderer turns them into an animation.
package opcode

import (
	"github.com/zurustar/valgo/pkg/layout"
)

// Cmd represents an instruction type.
type Cmd string

// Panels and code tracking.
const (
	// CodeBlock draws the code panel.
	// Args: [lines [][]string, blockIdent, textIdent, pointerIdent]
	CodeBlock Cmd = "CodeBlock"

	// VariableBlock draws the variable panel.
	// Args: [lines []string, blockIdent]
	VariableBlock Cmd = "VariableBlock"

	// SubtitleBlock draws the subtitle panel.
	// Args: [ident, textColor]
	SubtitleBlock Cmd = "SubtitleBlock"

	// UpdateSubtitle replaces the subtitle text for a duration.
	// Args: [ident, text, duration]
	UpdateSubtitle Cmd = "UpdateSubtitle"

	// MoveToLine moves the code pointer.
	// Args: [displayLine int, pointerIdent, textIdent]
	MoveToLine Cmd = "MoveToLine"

	// UpdateVariableState redraws the variable panel.
	// Args: [lines []string, blockIdent]
	UpdateVariableState Cmd = "UpdateVariableState"

	// Sleep pauses the animation.
	// Args: [seconds float64]
	Sleep Cmd = "Sleep"

	// CallEnter marks the start of a function call.
	// Args: [function, args []string, depth int]
	CallEnter Cmd = "CallEnter"

	// CallReturn marks the end of a function call.
	// Args: [function, value string, depth int]
	CallReturn Cmd = "CallReturn"

	// CleanUp removes drawn objects.
	// Args: [idents []string]
	CleanUp Cmd = "CleanUp"
)

// Stacks.
const (
	// InitStack draws an empty stack.
	// Args: [ident, label, borderColor, textColor, showLabel bool]
	InitStack Cmd = "InitStack"

	// CreateRectangle creates an element rectangle for a stack.
	// Args: [ident, text, stackIdent, borderColor, textColor]
	CreateRectangle Cmd = "CreateRectangle"

	// StackPush moves a rectangle onto a stack.
	// Args: [rectIdent, stackIdent, reused bool]
	StackPush Cmd = "StackPush"

	// StackPop removes the top rectangle of a stack.
	// Args: [rectIdent, stackIdent, keep bool]
	StackPop Cmd = "StackPop"

	// RestyleRectangle changes the colours of a rectangle.
	// Args: [rectIdent, borderColor, textColor]
	RestyleRectangle Cmd = "RestyleRectangle"
)

// Arrays.
const (
	// InitArray draws a one dimensional array.
	// Args: [ident, label, values []string, borderColor, textColor, showLabel bool]
	InitArray Cmd = "InitArray"

	// Init2DArray draws a two dimensional array.
	// Args: [ident, label, rows [][]string, borderColor, textColor, showLabel bool]
	Init2DArray Cmd = "Init2DArray"

	// ArrayElemAssign changes one cell.
	// Args: [ident, row int (-1 for 1D), col int, value string]
	ArrayElemAssign Cmd = "ArrayElemAssign"

	// ArrayElemRestyle recolours cells.
	// Args: [ident, rows []int (nil for 1D), cols []int, borderColor, textColor, pointer bool]
	ArrayElemRestyle Cmd = "ArrayElemRestyle"

	// ArrayShortSwap swaps two cells in place.
	// Args: [ident, row int (-1 for 1D), i int, j int]
	ArrayShortSwap Cmd = "ArrayShortSwap"

	// ArrayLongSwap swaps two cells by animating clones of them.
	// Args: [ident, row int (-1 for 1D), i int, j int, elem1, elem2, animations]
	ArrayLongSwap Cmd = "ArrayLongSwap"

	// Array2DSwap swaps two cells of a 2D array.
	// Args: [ident, [r1, c1, r2, c2]]
	Array2DSwap Cmd = "Array2DSwap"

	// ArrayReplaceRow replaces a whole row of a 2D array.
	// Args: [ident, row int, values []string]
	ArrayReplaceRow Cmd = "ArrayReplaceRow"
)

// Trees.
const (
	// CreateNode creates a detached tree node.
	// Args: [ident, value string]
	CreateNode Cmd = "CreateNode"

	// InitTree draws a tree from its root.
	// Args: [ident, label, rootIdent, nodeCount int, borderColor, textColor]
	InitTree Cmd = "InitTree"

	// TreeAppend attaches a subtree to a node of a drawn tree.
	// Args: [treeIdent, parentPath, childPath, side, nodes []string]
	TreeAppend Cmd = "TreeAppend"

	// TreeDelete removes a subtree from a drawn tree.
	// Args: [treeIdent, parentPath, side]
	TreeDelete Cmd = "TreeDelete"

	// TreeEditValue changes the value of a drawn node.
	// Args: [treeIdent, nodePath, value string]
	TreeEditValue Cmd = "TreeEditValue"

	// TreeNodeRestyle recolours a drawn node.
	// Args: [treeIdent, nodePath, borderColor, textColor, highlight]
	TreeNodeRestyle Cmd = "TreeNodeRestyle"
)

// OpCode is a single instruction.
type OpCode struct {
	Cmd  Cmd   `json:"cmd" yaml:"cmd"`
	Args []any `json:"args" yaml:"args"`
	// Runtime scales the animation time of the instruction.
	Runtime float64 `json:"runtime" yaml:"runtime"`
	// UID names the data structure or panel a boundary belongs to.
	// Only instructions that draw a structure or panel carry one.
	UID string `json:"uid,omitempty" yaml:"uid,omitempty"`
	// Boundary is filled in after the layout is solved.
	Boundary *layout.Boundary `json:"boundary,omitempty" yaml:"boundary,omitempty"`
}

// Log is the append-only instruction sequence of one run.
type Log struct {
	ops []OpCode
}

// Append adds op to the end of the log.
func (l *Log) Append(op OpCode) {
	l.ops = append(l.ops, op)
}

// Len returns the number of instructions.
func (l *Log) Len() int { return len(l.ops) }

// OpCodes returns a copy of the instructions in emission order.
func (l *Log) OpCodes() []OpCode {
	out := make([]OpCode, len(l.ops))
	copy(out, l.ops)
	return out
}

// SetBoundaries assigns a boundary to every instruction whose UID appears
// in boundaries. Instruction order is unchanged.
func (l *Log) SetBoundaries(boundaries map[string]layout.Boundary) {
	for i := range l.ops {
		if l.ops[i].UID == "" {
			continue
		}
		if p, ok := boundaries[l.ops[i].UID]; ok {
			p := p
			l.ops[i].Boundary = &p
		}
	}
}

// Filter returns the instructions with the given command, in order.
func Filter(ops []OpCode, cmds ...Cmd) []OpCode {
	var out []OpCode
	for _, op := range ops {
		for _, c := range cmds {
			if op.Cmd == c {
				out = append(out, op)
				break
			}
		}
	}
	return out
}
