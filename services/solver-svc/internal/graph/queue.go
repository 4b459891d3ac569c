package graph

// =============================================================================
// Queue
// =============================================================================

// Queue is a FIFO of node indices backed by a slice with a head pointer.
// Storage is reused between searches through Reset.
type Queue struct {
	data []int
	head int
}

// NewQueue creates a queue with the given initial capacity, typically the
// node count.
func NewQueue(capacity int) *Queue {
	return &Queue{data: make([]int, 0, capacity)}
}

// Push appends v.
func (q *Queue) Push(v int) {
	q.data = append(q.data, v)
}

// Pop removes and returns the front element. It panics on an empty queue;
// check Empty first.
func (q *Queue) Pop() int {
	v := q.data[q.head]
	q.head++
	return v
}

// Empty reports whether the queue has no pending element.
func (q *Queue) Empty() bool {
	return q.head >= len(q.data)
}

// Len returns the number of pending elements.
func (q *Queue) Len() int {
	return len(q.data) - q.head
}

// Reset empties the queue and keeps its storage.
func (q *Queue) Reset() {
	q.data = q.data[:0]
	q.head = 0
}

// =============================================================================
// Arc Cursor
// =============================================================================

// Cursor iterates the residual arcs leaving each node. Every node has its own
// position, so a search can keep many nodes half-scanned at once, and
// independent cursors over the same graph do not interfere.
type Cursor struct {
	g   *BalancedGraph
	pos []int
}

// NewCursor opens a cursor over g with every position at the start.
func (g *BalancedGraph) NewCursor() *Cursor {
	return &Cursor{g: g, pos: make([]int, g.nodes)}
}

// Reset rewinds the position of v.
func (c *Cursor) Reset(v int) {
	c.pos[v] = 0
}

// ResetAll rewinds every position. It also adapts the cursor to g when nodes
// were added since it was opened.
func (c *Cursor) ResetAll() {
	if len(c.pos) != c.g.nodes {
		c.pos = make([]int, c.g.nodes)
		return
	}
	clear(c.pos)
}

// Next returns the next arc leaving v and advances the position of v.
func (c *Cursor) Next(v int) (int, bool) {
	arcs := c.g.adjacency[v]
	if c.pos[v] >= len(arcs) {
		return NoArc, false
	}
	a := arcs[c.pos[v]]
	c.pos[v]++
	return a, true
}

// Peek returns the arc Next would return without advancing.
func (c *Cursor) Peek(v int) (int, bool) {
	arcs := c.g.adjacency[v]
	if c.pos[v] >= len(arcs) {
		return NoArc, false
	}
	return arcs[c.pos[v]], true
}

// Skip advances the position of v by one arc.
func (c *Cursor) Skip(v int) {
	if c.pos[v] < len(c.g.adjacency[v]) {
		c.pos[v]++
	}
}
