// Package display implements the variable display window: a fixed number of
// slots showing the variables that were updated most recently.
package display

import (
	"github.com/emirpasic/gods/lists/doublylinkedlist"
	"github.com/emirpasic/gods/maps/treemap"

	"github.com/zurustar/valgo/pkg/value"
)

// DefaultCapacity is the number of slots in the variable panel.
const DefaultCapacity = 4

// Entry is one occupied slot.
type Entry struct {
	Slot       int
	Identifier string
	Value      value.Value
}

// Line renders the entry as shown in the variable panel.
func (e Entry) Line() string {
	return e.Identifier + " = " + e.Value.String()
}

// Window is an LRU cache from slots to identifiers.
//
// The recency queue holds slot numbers, least recently updated at the head.
// Slots are kept ordered so rendering is stable.
type Window struct {
	capacity int
	slots    *treemap.Map // int -> *Entry
	bySlot   map[string]int
	recency  *doublylinkedlist.List
}

// New returns an empty window with capacity slots.
func New(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{
		capacity: capacity,
		slots:    treemap.NewWithIntComparator(),
		bySlot:   make(map[string]int),
		recency:  doublylinkedlist.New(),
	}
}

// Capacity returns the number of slots.
func (w *Window) Capacity() int { return w.capacity }

// Len returns the number of occupied slots.
func (w *Window) Len() int { return w.slots.Size() }

// Contains reports whether identifier occupies a slot.
func (w *Window) Contains(identifier string) bool {
	_, ok := w.bySlot[identifier]
	return ok
}

// Insert shows v under identifier. An identifier already on display keeps its
// slot; otherwise the lowest free slot is used, or the least recently updated
// slot is evicted and reused.
func (w *Window) Insert(identifier string, v value.Value) {
	if slot, ok := w.bySlot[identifier]; ok {
		w.touch(slot)
		w.entry(slot).Value = v
		return
	}

	slot, free := w.freeSlot()
	if !free {
		head, _ := w.recency.Get(0)
		w.recency.Remove(0)
		slot = head.(int)
		delete(w.bySlot, w.entry(slot).Identifier)
	}
	w.slots.Put(slot, &Entry{Slot: slot, Identifier: identifier, Value: v})
	w.bySlot[identifier] = slot
	w.recency.Add(slot)
}

// Remove frees the slot held by identifier.
func (w *Window) Remove(identifier string) bool {
	slot, ok := w.bySlot[identifier]
	if !ok {
		return false
	}
	delete(w.bySlot, identifier)
	w.slots.Remove(slot)
	if i := w.recency.IndexOf(slot); i >= 0 {
		w.recency.Remove(i)
	}
	return true
}

// Entries returns the occupied slots in slot order.
func (w *Window) Entries() []Entry {
	out := make([]Entry, 0, w.slots.Size())
	it := w.slots.Iterator()
	for it.Next() {
		out = append(out, *it.Value().(*Entry))
	}
	return out
}

// Lines renders the occupied slots in slot order.
func (w *Window) Lines() []string {
	entries := w.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Line()
	}
	return out
}

// Recency returns identifiers from least to most recently updated.
func (w *Window) Recency() []string {
	out := make([]string, 0, w.recency.Size())
	it := w.recency.Iterator()
	for it.Next() {
		out = append(out, w.entry(it.Value().(int)).Identifier)
	}
	return out
}

func (w *Window) touch(slot int) {
	if i := w.recency.IndexOf(slot); i >= 0 {
		w.recency.Remove(i)
	}
	w.recency.Add(slot)
}

func (w *Window) entry(slot int) *Entry {
	e, _ := w.slots.Get(slot)
	return e.(*Entry)
}

func (w *Window) freeSlot() (int, bool) {
	for s := 0; s < w.capacity; s++ {
		if _, used := w.slots.Get(s); !used {
			return s, true
		}
	}
	return 0, false
}
