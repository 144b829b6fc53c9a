package vm

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/zurustar/valgo/pkg/layout"
	"github.com/zurustar/valgo/pkg/value"
)

func TestRuntimeError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *RuntimeError
		contains []string
		excludes string
	}{
		{
			name:     "basic error",
			err:      NewRuntimeError(ErrorLayout, "no room"),
			contains: []string{"LAYOUT", "no room"},
			excludes: "line",
		},
		{
			name:     "error with line",
			err:      NewRuntimeErrorWithLine(ErrorIndexOutOfRange, "Array index out of bounds", 42),
			contains: []string{"INDEX_OUT_OF_RANGE", "Array index out of bounds", "line 42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(errStr, s) {
					t.Errorf("error string %q should contain %q", errStr, s)
				}
			}
			if tt.excludes != "" && strings.Contains(errStr, tt.excludes) {
				t.Errorf("error string %q should not contain %q", errStr, tt.excludes)
			}
		})
	}
}

func TestErrorHelperFunctions(t *testing.T) {
	tests := []struct {
		name    string
		err     *RuntimeError
		errType ErrorType
		message string
		line    int
	}{
		{"stack overflow", newStackOverflowError(3), ErrorStackOverflow, "Stack Overflow Error. Program failed to terminate.", 3},
		{"loop limit", newLoopLimitError(5), ErrorLoopLimit, "Max number of loop executions exceeded", 5},
		{"missing child", newMissingChildError(7), ErrorMissingChild, "Accessed child does not exist", 7},
		{"missing position", newMissingPositionError("f.a", 2), ErrorMissingPosition, "Missing position values for f.a", 2},
		{"missing panel position", newMissingPanelPositionError(layout.CodePanelUID), ErrorMissingPosition, "Missing positional parameter for _code", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.errType || tt.err.Message != tt.message || tt.err.Line != tt.line {
				t.Errorf("got %+v", tt.err)
			}
		})
	}
}

func TestRuntimeError_Unwrap(t *testing.T) {
	t.Run("self reference", func(t *testing.T) {
		err := error(newSelfReferenceError(value.ErrSelfReference, 9))
		if !errors.Is(err, value.ErrSelfReference) {
			t.Error("expected the tree error to be wrapped")
		}
	})

	t.Run("layout", func(t *testing.T) {
		cause := fmt.Errorf("%w: stack", layout.ErrNoPlacement)
		err := fmt.Errorf("run: %w", newLayoutError(cause))
		if !IsLayoutError(err) {
			t.Error("IsLayoutError() = false")
		}
		var rerr *RuntimeError
		if !errors.As(err, &rerr) || rerr.Line != -1 {
			t.Errorf("got %v", rerr)
		}
	})

	t.Run("not a layout error", func(t *testing.T) {
		if IsLayoutError(newLoopLimitError(1)) {
			t.Error("IsLayoutError() = true")
		}
	})
}

func TestExitStatus_String(t *testing.T) {
	tests := []struct {
		status ExitStatus
		want   string
	}{
		{ExitSuccess, "success"},
		{ExitRuntimeError, "runtime error"},
		{ExitStatus(7), "ExitStatus(7)"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.status), got, tt.want)
		}
	}
}
