package vm

import (
	"math"
	"runtime"
	"runtime/debug"
)

const (
	// DefaultMaxLoops is the number of iterations a single loop may run.
	DefaultMaxLoops = 10000

	frameBudget     = 1 << 20 // bytes of headroom per call depth
	fallbackBudget  = 512 << 20
	minDefaultDepth = 64
	maxDefaultDepth = 10000
)

// DefaultMaxDepth derives the call depth ceiling from the memory available
// to the process: one level per MiB of headroom under the soft memory limit
// (or a 512 MiB budget when no limit is set), clamped to [64, 10000].
func DefaultMaxDepth() int {
	budget := debug.SetMemoryLimit(-1)
	if budget == math.MaxInt64 {
		budget = fallbackBudget
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	free := budget - int64(ms.HeapAlloc)
	depth := int(free / frameBudget)
	if depth < minDefaultDepth {
		return minDefaultDepth
	}
	if depth > maxDefaultDepth {
		return maxDefaultDepth
	}
	return depth
}
