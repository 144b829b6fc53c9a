package vm

import "strconv"

// NameGenerator hands out identifiers for drawn objects. Names never
// collide with a program identifier: for a prefix p it yields p, p1, p2 ...
// skipping any name the program declares.
type NameGenerator struct {
	taken    map[string]bool
	counters map[string]int
}

// NewNameGenerator returns a generator avoiding the given identifiers.
func NewNameGenerator(identifiers []string) *NameGenerator {
	taken := make(map[string]bool, len(identifiers))
	for _, id := range identifiers {
		taken[id] = true
	}
	return &NameGenerator{taken: taken, counters: make(map[string]int)}
}

// Generate returns the next free name for prefix.
func (g *NameGenerator) Generate(prefix string) string {
	n := g.counters[prefix]
	for g.taken[name(prefix, n)] {
		n++
	}
	g.counters[prefix] = n + 1
	return name(prefix, n)
}

func name(prefix string, n int) string {
	if n == 0 {
		return prefix
	}
	return prefix + strconv.Itoa(n)
}
