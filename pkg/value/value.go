// Package value defines the runtime values manipulated by the valgo engine.
//
// Every value kind is a small struct implementing Value. Data-structure
// payloads (arrays, stacks, trees) live behind pointers so that copies of a
// value observe the same mutations, while the visual handle is carried by the
// value itself and shared, never duplicated, when the value is cloned.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the case of the Value union.
type Kind int

const (
	KindEmpty Kind = iota
	KindVoid
	KindNull
	KindNumber
	KindBool
	KindChar
	KindString
	KindArray
	KindArray2D
	KindStack
	KindNode
	KindTree
)

var kindNames = [...]string{
	KindEmpty:   "Empty",
	KindVoid:    "Void",
	KindNull:    "Null",
	KindNumber:  "Number",
	KindBool:    "Bool",
	KindChar:    "Char",
	KindString:  "String",
	KindArray:   "Array",
	KindArray2D: "Array2D",
	KindStack:   "Stack",
	KindNode:    "Node",
	KindTree:    "Tree",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsPrimitive reports whether values of this kind are plain scalars.
func (k Kind) IsPrimitive() bool {
	switch k {
	case KindNumber, KindBool, KindChar, KindString:
		return true
	}
	return false
}

// IsStructure reports whether values of this kind are drawn as their own panel.
func (k Kind) IsStructure() bool {
	switch k {
	case KindArray, KindArray2D, KindStack, KindTree:
		return true
	}
	return false
}

// Handle names the on-screen object that represents a value.
// Handles are shared by pointer: two values holding the same *Handle refer to
// the same drawn object.
type Handle struct {
	Ident  string // identifier of the drawn object in the instruction log
	Shape  string // rectangle, stack, array, array2d, tree, node
	Render bool   // false for structures hidden by the stylesheet
}

// Visible reports whether instructions may reference h.
func (h *Handle) Visible() bool {
	return h != nil && h.Render
}

// Value is one runtime value.
type Value interface {
	Kind() Kind
	// Handle returns the visual handle, or nil when the value is not drawn.
	Handle() *Handle
	// WithHandle returns a shallow copy of the value carrying h.
	WithHandle(h *Handle) Value
	String() string
}

// Clone returns a shallow, handle-preserving copy of v.
func Clone(v Value) Value {
	return v.WithHandle(v.Handle())
}

// Strip returns a copy of v with no visual handle.
func Strip(v Value) Value {
	return v.WithHandle(nil)
}

// Empty is the result of a statement that produced nothing.
type Empty struct{}

func (Empty) Kind() Kind                 { return KindEmpty }
func (Empty) Handle() *Handle            { return nil }
func (e Empty) WithHandle(*Handle) Value { return e }
func (Empty) String() string             { return "" }

// Void is returned by functions that end without a value.
type Void struct{}

func (Void) Kind() Kind                 { return KindVoid }
func (Void) Handle() *Handle            { return nil }
func (v Void) WithHandle(*Handle) Value { return v }
func (Void) String() string             { return "void" }

// Null marks an absent tree child.
type Null struct{}

func (Null) Kind() Kind                 { return KindNull }
func (Null) Handle() *Handle            { return nil }
func (n Null) WithHandle(*Handle) Value { return n }
func (Null) String() string             { return "null" }

// Number is a double precision number.
type Number struct {
	V float64
	h *Handle
}

// Num returns a Number with no handle.
func Num(f float64) Number { return Number{V: f} }

func (n Number) Kind() Kind      { return KindNumber }
func (n Number) Handle() *Handle { return n.h }
func (n Number) WithHandle(h *Handle) Value {
	n.h = h
	return n
}
func (n Number) String() string { return FormatNumber(n.V) }

// FormatNumber renders f the way the variable panel shows numbers: integral
// values keep a trailing ".0".
func FormatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if strings.ContainsAny(s, ".NI") {
		return s
	}
	return s + ".0"
}

// Bool is a boolean.
type Bool struct {
	V bool
	h *Handle
}

func Boolean(b bool) Bool { return Bool{V: b} }

func (b Bool) Kind() Kind      { return KindBool }
func (b Bool) Handle() *Handle { return b.h }
func (b Bool) WithHandle(h *Handle) Value {
	b.h = h
	return b
}
func (b Bool) String() string { return strconv.FormatBool(b.V) }

// Char is a single character.
type Char struct {
	V rune
	h *Handle
}

func Character(r rune) Char { return Char{V: r} }

func (c Char) Kind() Kind      { return KindChar }
func (c Char) Handle() *Handle { return c.h }
func (c Char) WithHandle(h *Handle) Value {
	c.h = h
	return c
}
func (c Char) String() string { return "'" + string(c.V) + "'" }

// String is an immutable string.
type String struct {
	V string
	h *Handle
}

func Str(s string) String { return String{V: s} }

func (s String) Kind() Kind      { return KindString }
func (s String) Handle() *Handle { return s.h }
func (s String) WithHandle(h *Handle) Value {
	s.h = h
	return s
}
func (s String) String() string { return strconv.Quote(s.V) }

// Label renders v the way instruction arguments show element contents:
// like String but without quoting.
func Label(v Value) string {
	switch x := v.(type) {
	case String:
		return x.V
	case Char:
		return string(x.V)
	}
	return v.String()
}
