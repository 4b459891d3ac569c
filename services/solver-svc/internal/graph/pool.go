package graph

import (
	"sync"
)

// =============================================================================
// Scratch Pool
// =============================================================================

// ScratchPool recycles the index arrays that searches and drivers allocate
// per run (predecessor arrays, level arrays, coefficient arrays).
//
// The pool is safe for concurrent use; the arrays it hands out are not.
type ScratchPool struct {
	ints   sync.Pool
	int64s sync.Pool
}

var globalPool = &ScratchPool{
	ints: sync.Pool{
		New: func() any {
			s := make([]int, 0, 128)
			return &s
		},
	},
	int64s: sync.Pool{
		New: func() any {
			s := make([]int64, 0, 128)
			return &s
		},
	},
}

// GetPool returns the global scratch pool.
func GetPool() *ScratchPool {
	return globalPool
}

// AcquireInts returns a slice of length n filled with fill.
// Call ReleaseInts when done.
func (p *ScratchPool) AcquireInts(n, fill int) *[]int {
	s := p.ints.Get().(*[]int)
	if cap(*s) < n {
		*s = make([]int, n)
	}
	*s = (*s)[:n]
	for i := range *s {
		(*s)[i] = fill
	}
	return s
}

// ReleaseInts returns s to the pool. Passing nil is allowed.
func (p *ScratchPool) ReleaseInts(s *[]int) {
	if s == nil {
		return
	}
	*s = (*s)[:0]
	p.ints.Put(s)
}

// AcquireInt64s returns a zeroed slice of length n.
// Call ReleaseInt64s when done.
func (p *ScratchPool) AcquireInt64s(n int) *[]int64 {
	s := p.int64s.Get().(*[]int64)
	if cap(*s) < n {
		*s = make([]int64, n)
	}
	*s = (*s)[:n]
	clear(*s)
	return s
}

// ReleaseInt64s returns s to the pool. Passing nil is allowed.
func (p *ScratchPool) ReleaseInt64s(s *[]int64) {
	if s == nil {
		return
	}
	*s = (*s)[:0]
	p.int64s.Put(s)
}
