// Package vm provides error handling for the valgo execution engine.
package vm

import (
	"errors"
	"fmt"

	"github.com/zurustar/valgo/pkg/layout"
)

// ErrorType represents the type of runtime error.
type ErrorType string

const (
	ErrorStackOverflow     ErrorType = "STACK_OVERFLOW"
	ErrorLoopLimit         ErrorType = "LOOP_LIMIT"
	ErrorIndexOutOfRange   ErrorType = "INDEX_OUT_OF_RANGE"
	ErrorDimensionMismatch ErrorType = "DIMENSION_MISMATCH"
	ErrorEmptyStack        ErrorType = "EMPTY_STACK"
	ErrorMissingChild      ErrorType = "MISSING_CHILD"
	ErrorSelfReference     ErrorType = "SELF_REFERENCE"
	ErrorInvalidCast       ErrorType = "INVALID_CAST"
	ErrorInvalidOperation  ErrorType = "INVALID_OPERATION"
	ErrorMissingPosition   ErrorType = "MISSING_POSITION"
	ErrorLayout            ErrorType = "LAYOUT"
)

// RuntimeError is the error that ends a run. Frames return it unchanged so
// the caller sees the line of the statement that failed.
type RuntimeError struct {
	Type    ErrorType
	Message string
	Line    int // Line number if available, -1 otherwise
	Err     error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Line >= 0 {
		return fmt.Sprintf("[%s] %s at line %d", e.Type, e.Message, e.Line)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// NewRuntimeError creates a new RuntimeError.
func NewRuntimeError(errType ErrorType, message string) *RuntimeError {
	return &RuntimeError{
		Type:    errType,
		Message: message,
		Line:    -1,
	}
}

// NewRuntimeErrorWithLine creates a new RuntimeError with line information.
func NewRuntimeErrorWithLine(errType ErrorType, message string, line int) *RuntimeError {
	return &RuntimeError{
		Type:    errType,
		Message: message,
		Line:    line,
	}
}

// Error helper functions for common error types

func newStackOverflowError(line int) *RuntimeError {
	return NewRuntimeErrorWithLine(ErrorStackOverflow, "Stack Overflow Error. Program failed to terminate.", line)
}

func newLoopLimitError(line int) *RuntimeError {
	return NewRuntimeErrorWithLine(ErrorLoopLimit, "Max number of loop executions exceeded", line)
}

func newIndexOutOfBoundsError(line int) *RuntimeError {
	return NewRuntimeErrorWithLine(ErrorIndexOutOfRange, "Array index out of bounds", line)
}

func newDimensionError(message string, line int) *RuntimeError {
	return NewRuntimeErrorWithLine(ErrorDimensionMismatch, message, line)
}

func newEmptyStackError(message string, line int) *RuntimeError {
	return NewRuntimeErrorWithLine(ErrorEmptyStack, message, line)
}

func newMissingChildError(line int) *RuntimeError {
	return NewRuntimeErrorWithLine(ErrorMissingChild, "Accessed child does not exist", line)
}

func newSelfReferenceError(err error, line int) *RuntimeError {
	e := NewRuntimeErrorWithLine(ErrorSelfReference, "Tree cannot self reference", line)
	e.Err = err
	return e
}

func newInvalidCastError(err error, line int) *RuntimeError {
	e := NewRuntimeErrorWithLine(ErrorInvalidCast, "Invalid cast operation", line)
	e.Err = err
	return e
}

func newMissingPositionError(uid string, line int) *RuntimeError {
	return NewRuntimeErrorWithLine(ErrorMissingPosition, "Missing position values for "+uid, line)
}

func newMissingPanelPositionError(uid string) *RuntimeError {
	return NewRuntimeErrorWithLine(ErrorMissingPosition, "Missing positional parameter for "+uid, 1)
}

func newLayoutError(err error) *RuntimeError {
	e := NewRuntimeError(ErrorLayout, "Scene layout failed: "+err.Error())
	e.Err = err
	return e
}

// ExitStatus classifies how a run ended. The codes are the process exit
// codes of the command line tool.
type ExitStatus int

const (
	ExitSuccess       ExitStatus = 0
	ExitSyntaxError   ExitStatus = 100
	ExitPathError     ExitStatus = 101
	ExitSemanticError ExitStatus = 200
	ExitRuntimeError  ExitStatus = 300
)

func (s ExitStatus) String() string {
	switch s {
	case ExitSuccess:
		return "success"
	case ExitSyntaxError:
		return "syntax error"
	case ExitPathError:
		return "path error"
	case ExitSemanticError:
		return "semantic error"
	case ExitRuntimeError:
		return "runtime error"
	}
	return fmt.Sprintf("ExitStatus(%d)", int(s))
}

// IsLayoutError reports whether err came from the scene solver.
func IsLayoutError(err error) bool {
	return errors.Is(err, layout.ErrTooManyDataStructures) || errors.Is(err, layout.ErrNoPlacement)
}
