package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/apperror"
)

func TestAddArc(t *testing.T) {
	g := NewBalancedGraph(2)

	a, err := g.AddArc(0, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, a)
	assert.Equal(t, 2, g.M())
	assert.Equal(t, 4, g.ArcCount())

	assert.Equal(t, Edge{From: 0, To: 2, Capacity: 5}, g.Edge(0))
	assert.Equal(t, Edge{From: 3, To: 1, Capacity: 5}, g.Edge(1))

	a, err = g.AddArc(2, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, a)
	// arc to own complement gets a parallel mate
	assert.Equal(t, Edge{From: 2, To: 3, Capacity: 1}, g.Edge(3))
}

func TestAddArc_Errors(t *testing.T) {
	tests := []struct {
		name     string
		u, v     int
		capacity int64
		wantCode apperror.ErrorCode
	}{
		{"from out of range", -1, 0, 1, apperror.CodeOutOfRange},
		{"to out of range", 0, 4, 1, apperror.CodeOutOfRange},
		{"negative capacity", 0, 2, -3, apperror.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewBalancedGraph(2)
			a, err := g.AddArc(tt.u, tt.v, tt.capacity)
			require.Error(t, err)
			assert.Equal(t, NoArc, a)
			assert.True(t, apperror.Is(err, tt.wantCode))
			assert.Equal(t, 0, g.M(), "failed AddArc must not mutate")
		})
	}
}

func TestArcNumbering(t *testing.T) {
	g := NewBalancedGraph(2)
	_, err := g.AddArc(0, 2, 7)
	require.NoError(t, err)

	tests := []struct {
		arc        int
		start, end int
	}{
		{0, 0, 2}, // forward of (0,2)
		{1, 2, 0}, // backward
		{2, 3, 1}, // forward of complement (3,1)
		{3, 1, 3}, // backward of complement
	}
	for _, tt := range tests {
		assert.Equal(t, tt.start, g.StartNode(tt.arc), "start of %d", tt.arc)
		assert.Equal(t, tt.end, g.EndNode(tt.arc), "end of %d", tt.arc)
		assert.Equal(t, Comp(tt.start), g.EndNode(Complement(tt.arc)))
		assert.Equal(t, Comp(tt.end), g.StartNode(Complement(tt.arc)))
	}

	assert.Equal(t, 1, Reverse(0))
	assert.Equal(t, 2, Complement(0))
	assert.Equal(t, 1, EdgeOf(3))
	assert.True(t, IsBackward(3))
	assert.False(t, IsBackward(2))
}

func TestCapacities(t *testing.T) {
	g := NewBalancedGraph(2)
	_, err := g.AddArc(0, 2, 5)
	require.NoError(t, err)

	assert.Equal(t, int64(5), g.ResCap(0))
	assert.Equal(t, int64(0), g.ResCap(1))
	assert.Equal(t, int64(5), g.BalCap(0))

	g.Push(0, 3)
	assert.Equal(t, int64(2), g.ResCap(0))
	assert.Equal(t, int64(3), g.ResCap(1))
	// complement still empty, so the backward balanced capacity is clamped
	assert.Equal(t, int64(0), g.BalCap(1))
	assert.Equal(t, int64(2), g.BalCap(0))

	g.Push(2, 3)
	assert.Equal(t, int64(3), g.BalCap(1))
}

func TestSetFlow(t *testing.T) {
	g := NewBalancedGraph(2)
	_, err := g.AddArc(0, 2, 4)
	require.NoError(t, err)

	require.NoError(t, g.SetFlow(0, 2))
	assert.Equal(t, []int64{2, 2}, g.Flows())

	err = g.SetFlow(0, 5)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidArgument))
	err = g.SetFlow(9, 1)
	assert.True(t, apperror.Is(err, apperror.CodeOutOfRange))
	assert.Equal(t, []int64{2, 2}, g.Flows())
}

func TestDivergenceAndFlowValue(t *testing.T) {
	// s=0, t=1, a=2/3
	g := NewBalancedGraph(2)
	_, err := g.AddArc(0, 2, 3)
	require.NoError(t, err)
	_, err = g.AddArc(2, 1, 3)
	require.NoError(t, err)

	require.NoError(t, g.SetFlow(0, 2))
	require.NoError(t, g.SetFlow(2, 2))

	assert.Equal(t, int64(4), g.FlowValue(0))
	assert.Equal(t, int64(-4), g.Divergence(1))
	assert.Equal(t, int64(0), g.Divergence(2))
	assert.Equal(t, int64(0), g.Divergence(3))

	g.ResetFlow()
	assert.Equal(t, int64(0), g.FlowValue(0))
}

func TestCloneAndCopyFlow(t *testing.T) {
	g := NewBalancedGraph(2)
	_, err := g.AddArc(0, 2, 3)
	require.NoError(t, err)

	c := g.Clone()
	c.BalPush(0, 1)
	assert.Equal(t, []int64{0, 0}, g.Flows())
	assert.Equal(t, []int64{1, 1}, c.Flows())

	require.NoError(t, g.CopyFlowFrom(c))
	assert.Equal(t, []int64{1, 1}, g.Flows())

	other := NewBalancedGraph(1)
	assert.Error(t, g.CopyFlowFrom(other))
	assert.Error(t, g.CopyFlowFrom(nil))
}

func TestMaxCapacity(t *testing.T) {
	g := NewBalancedGraph(2)
	_, _ = g.AddArc(0, 2, 3)
	_, _ = g.AddArc(2, 1, 9)
	_, _ = g.AddArc(0, 3, Infinity)
	assert.Equal(t, int64(9), g.MaxCapacity())
}

func TestQueue(t *testing.T) {
	q := NewQueue(4)
	assert.True(t, q.Empty())

	q.Push(3)
	q.Push(1)
	q.Push(2)
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 3, q.Pop())
	assert.Equal(t, 1, q.Pop())
	assert.Equal(t, 1, q.Len())

	q.Reset()
	assert.True(t, q.Empty())
	q.Push(7)
	assert.Equal(t, 7, q.Pop())
}

func TestCursor(t *testing.T) {
	g := NewBalancedGraph(2)
	_, _ = g.AddArc(0, 2, 1)
	_, _ = g.AddArc(0, 3, 1)

	c1 := g.NewCursor()
	c2 := g.NewCursor()

	a, ok := c1.Next(0)
	require.True(t, ok)
	assert.Equal(t, 0, a)

	peek, ok := c1.Peek(0)
	require.True(t, ok)
	assert.Equal(t, 4, peek)

	// independent cursor starts from the beginning
	a, ok = c2.Next(0)
	require.True(t, ok)
	assert.Equal(t, 0, a)

	c1.Skip(0)
	_, ok = c1.Next(0)
	assert.False(t, ok)

	c1.Reset(0)
	a, _ = c1.Next(0)
	assert.Equal(t, 0, a)

	c1.ResetAll()
	a, _ = c1.Next(0)
	assert.Equal(t, 0, a)
}

func TestScratchPool(t *testing.T) {
	p := GetPool()

	s := p.AcquireInts(5, NoArc)
	require.Len(t, *s, 5)
	for _, v := range *s {
		assert.Equal(t, NoArc, v)
	}
	(*s)[0] = 42
	p.ReleaseInts(s)

	s2 := p.AcquireInts(3, 0)
	assert.Equal(t, []int{0, 0, 0}, *s2)
	p.ReleaseInts(s2)

	w := p.AcquireInt64s(4)
	assert.Equal(t, []int64{0, 0, 0, 0}, *w)
	p.ReleaseInt64s(w)

	p.ReleaseInts(nil)
	p.ReleaseInt64s(nil)
}
