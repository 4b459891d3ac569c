// Package blossom provides the disjoint set used to contract blossoms during
// balanced augmenting path search.
package blossom

import "fmt"

// Index is the element type of a DisjointSet.
type Index interface {
	~int | ~int32 | ~int64
}

// DisjointSet is a union-find structure over the elements [0, n) with path
// compression and union by rank. It knows nothing about graphs: the search
// that owns it keeps the blossom bases separately.
//
// Elements that have not been passed to Bud are still singletons, so a fresh
// set needs no initialization pass beyond Reset.
type DisjointSet[T Index] struct {
	parent []T
	rank   []uint8
}

// New creates a disjoint set over [0, n) where every element is a singleton.
func New[T Index](n int) *DisjointSet[T] {
	d := &DisjointSet[T]{}
	d.Reset(n)
	return d
}

// Reset makes every element of [0, n) a singleton again, growing the storage
// when n exceeds it.
func (d *DisjointSet[T]) Reset(n int) {
	if cap(d.parent) < n {
		d.parent = make([]T, n)
		d.rank = make([]uint8, n)
	}
	d.parent = d.parent[:n]
	d.rank = d.rank[:n]
	for i := range d.parent {
		d.parent[i] = T(i)
		d.rank[i] = 0
	}
}

// Len returns the number of elements.
func (d *DisjointSet[T]) Len() int {
	return len(d.parent)
}

// Bud makes v a singleton. It must only be called on an element that is not
// the representative of a larger set, which holds for every element at the
// start of a search.
func (d *DisjointSet[T]) Bud(v T) {
	d.parent[v] = v
	d.rank[v] = 0
}

// Find returns the representative of the set containing v.
func (d *DisjointSet[T]) Find(v T) T {
	root := v
	for d.parent[root] != root {
		root = d.parent[root]
	}
	// compress
	for d.parent[v] != root {
		next := d.parent[v]
		d.parent[v] = root
		v = next
	}
	return root
}

// Merge unites the sets containing u and v and returns the new
// representative. Merging a set with itself is a no-op.
func (d *DisjointSet[T]) Merge(u, v T) T {
	ru, rv := d.Find(u), d.Find(v)
	if ru == rv {
		return ru
	}
	switch {
	case d.rank[ru] < d.rank[rv]:
		d.parent[ru] = rv
		return rv
	case d.rank[ru] > d.rank[rv]:
		d.parent[rv] = ru
		return ru
	default:
		d.parent[rv] = ru
		d.rank[ru]++
		return ru
	}
}

// Same reports whether u and v are in the same set.
func (d *DisjointSet[T]) Same(u, v T) bool {
	return d.Find(u) == d.Find(v)
}

// String renders the parent array for debugging.
func (d *DisjointSet[T]) String() string {
	return fmt.Sprintf("DisjointSet%v", d.parent)
}
