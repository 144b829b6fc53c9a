package vm

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/zurustar/valgo/pkg/value"
)

// Scope is the variable table of one function invocation. Block frames
// (if branches, loop bodies) share the scope of their function.
//
// Names keep the order of their first binding, which is the order the
// variable panel is filled in when a function frame starts.
type Scope struct {
	variables *linkedhashmap.Map // string -> value.Value
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{variables: linkedhashmap.New()}
}

// Get retrieves a variable value by name.
func (s *Scope) Get(name string) (value.Value, bool) {
	v, ok := s.variables.Get(name)
	if !ok {
		return nil, false
	}
	return v.(value.Value), true
}

// Set binds name to v. Rebinding keeps the original position.
func (s *Scope) Set(name string, v value.Value) {
	s.variables.Put(name, v)
}

// Delete removes a variable from the scope.
func (s *Scope) Delete(name string) {
	s.variables.Remove(name)
}

// Len returns the number of variables.
func (s *Scope) Len() int {
	return s.variables.Size()
}

// Names returns the variable names in binding order.
func (s *Scope) Names() []string {
	keys := s.variables.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.(string)
	}
	return out
}

// Each calls fn for every variable in binding order.
func (s *Scope) Each(fn func(name string, v value.Value)) {
	it := s.variables.Iterator()
	for it.Next() {
		fn(it.Key().(string), it.Value().(value.Value))
	}
}
