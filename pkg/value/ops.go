package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidCast is returned by casts whose operand has no representation in
// the target kind.
var ErrInvalidCast = errors.New("invalid cast operation")

// KindError is the panic value raised when an operator is applied to kinds it
// is not defined for. Static checking rules this out for valid programs.
type KindError struct {
	Op          string
	Left, Right Kind
}

func (e *KindError) Error() string {
	if e.Right == KindEmpty {
		return fmt.Sprintf("operator %s is not defined for %s", e.Op, e.Left)
	}
	return fmt.Sprintf("operator %s is not defined for %s and %s", e.Op, e.Left, e.Right)
}

// Numeric returns the numeric reading of a Number or Char.
func Numeric(v Value) (float64, bool) {
	switch x := v.(type) {
	case Number:
		return x.V, true
	case Char:
		return float64(x.V), true
	}
	return 0, false
}

// Equal compares kind and payload. Handles never take part.
func Equal(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Number:
		return x.V == b.(Number).V
	case Bool:
		return x.V == b.(Bool).V
	case Char:
		return x.V == b.(Char).V
	case String:
		return x.V == b.(String).V
	case Empty, Void, Null:
		return true
	case Array:
		y := b.(Array)
		if x.Len() != y.Len() {
			return false
		}
		for i := 0; i < x.Len(); i++ {
			if !Equal(x.At(i), y.At(i)) {
				return false
			}
		}
		return true
	case Array2D:
		y := b.(Array2D)
		if x.Rows() != y.Rows() {
			return false
		}
		for r := 0; r < x.Rows(); r++ {
			if !Equal(NewArray(x.Row(r)), NewArray(y.Row(r))) {
				return false
			}
		}
		return true
	case Stack:
		y := b.(Stack)
		return Equal(NewArray(x.Items()), NewArray(y.Items()))
	case Node:
		y := b.(Node)
		return x.a == y.a && x.id == y.id
	case Tree:
		return x.Same(b.(Tree))
	}
	return false
}

// Binary applies an arithmetic or comparison operator.
// Arithmetic (+ - * /) is defined between numeric kinds and yields a Number.
// Ordering (< <= > >=) is defined between numeric kinds and between bools.
// Equality (== !=) is defined for every pair of kinds.
// Logical operators are evaluated by the caller because they short-circuit.
func Binary(op string, l, r Value) Value {
	switch op {
	case "==":
		return Boolean(Equal(l, r))
	case "!=":
		return Boolean(!Equal(l, r))
	case "<", "<=", ">", ">=":
		return Boolean(order(op, l, r))
	}

	a, ok1 := Numeric(l)
	b, ok2 := Numeric(r)
	if !ok1 || !ok2 {
		panic(&KindError{Op: op, Left: l.Kind(), Right: r.Kind()})
	}
	switch op {
	case "+":
		return Num(a + b)
	case "-":
		return Num(a - b)
	case "*":
		return Num(a * b)
	case "/":
		return Num(a / b)
	}
	panic(&KindError{Op: op, Left: l.Kind(), Right: r.Kind()})
}

func order(op string, l, r Value) bool {
	var c int
	if lb, ok := l.(Bool); ok {
		rb, ok := r.(Bool)
		if !ok {
			panic(&KindError{Op: op, Left: l.Kind(), Right: r.Kind()})
		}
		c = boolInt(lb.V) - boolInt(rb.V)
	} else {
		a, ok1 := Numeric(l)
		b, ok2 := Numeric(r)
		if !ok1 || !ok2 {
			panic(&KindError{Op: op, Left: l.Kind(), Right: r.Kind()})
		}
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		}
	}
	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	default:
		return c >= 0
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Unary applies + - or !.
func Unary(op string, v Value) Value {
	switch op {
	case "!":
		b, ok := v.(Bool)
		if !ok {
			panic(&KindError{Op: op, Left: v.Kind()})
		}
		return Boolean(!b.V)
	case "-":
		f, ok := Numeric(v)
		if !ok {
			panic(&KindError{Op: op, Left: v.Kind()})
		}
		return Num(-f)
	case "+":
		f, ok := Numeric(v)
		if !ok {
			panic(&KindError{Op: op, Left: v.Kind()})
		}
		return Num(f)
	}
	panic(&KindError{Op: op, Left: v.Kind()})
}

// Truth returns the payload of a Bool condition.
func Truth(v Value) bool {
	b, ok := v.(Bool)
	if !ok {
		panic(&KindError{Op: "condition", Left: v.Kind()})
	}
	return b.V
}

// ToNumber casts a Number, Char or numeric String to a Number.
func ToNumber(v Value) (Number, error) {
	switch x := v.(type) {
	case Number:
		return Num(x.V), nil
	case Char:
		return Num(float64(x.V)), nil
	case String:
		f, err := strconv.ParseFloat(strings.TrimSpace(x.V), 64)
		if err != nil {
			return Number{}, ErrInvalidCast
		}
		return Num(f), nil
	}
	return Number{}, ErrInvalidCast
}

// ToChar casts a Number (truncated to a code point) or Char to a Char.
func ToChar(v Value) (Char, error) {
	switch x := v.(type) {
	case Char:
		return Character(x.V), nil
	case Number:
		if math.IsNaN(x.V) || x.V < 0 || x.V > math.MaxInt32 {
			return Char{}, ErrInvalidCast
		}
		return Character(rune(int64(x.V))), nil
	}
	return Char{}, ErrInvalidCast
}

// AsIndex converts a numeric value to an index, rounding down.
func AsIndex(v Value) int {
	f, ok := Numeric(v)
	if !ok {
		panic(&KindError{Op: "index", Left: v.Kind()})
	}
	if math.IsNaN(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return -1
	}
	return int(math.Floor(f))
}
