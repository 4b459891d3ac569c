// Package phase implements a phase-structured balanced augmentation engine in
// the style of Micali and Vazirani.
//
// A phase explores the network level by level from the source. Arcs whose
// far end already has a labelled complement are bridges; they are queued by
// tenacity and processed in increasing order once the levels below them are
// complete. A bridge whose two sides meet at the source closes an augmenting
// path. The engine augments along it at once, erases its nodes for the rest
// of the phase and keeps going, so one phase performs several augmentations
// on node-disjoint paths. Bridges meeting elsewhere shrink a blossom. A phase
// without augmentation ends the run.
package phase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/apperror"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/graph"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/search"
)

// Config configures Run.
type Config struct {
	// MaxAugmentations stops the run after this many augmentations. Zero or
	// negative means unlimited.
	MaxAugmentations int

	// Logger receives one debug record per phase. nil discards them.
	Logger *slog.Logger
}

// Stats summarises a run.
type Stats struct {
	Phases        int
	Augmentations int
	Blossoms      int
	Rejected      int
	Increase      int64
}

// bridge is a queued arc a leaving u.
type bridge struct {
	u, a int
}

type engine struct {
	g    *graph.BalancedGraph
	s, t int
	c    *search.Context
	cfg  Config
	log  *slog.Logger

	erased []bool
	levels [][]int

	// buckets[k] holds the bridges of tenacity k
	buckets [][]bridge
	low     int
	cur     int

	// anomalies[x] holds arcs into a labelled node whose complement x is
	// still unlabelled
	anomalies [][]bridge

	stats Stats
}

// Run augments the balanced flow from s phase by phase until a phase finds no
// augmenting path.
func Run(ctx context.Context, g *graph.BalancedGraph, s int, cfg Config) (Stats, error) {
	if g == nil {
		return Stats{}, apperror.ErrNilGraph
	}
	if !g.ValidNode(s) {
		return Stats{}, apperror.NewWithField(apperror.CodeOutOfRange,
			fmt.Sprintf("source %d out of range [0,%d)", s, g.N()), "source")
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	e := &engine{
		g:         g,
		s:         s,
		t:         graph.Comp(s),
		c:         search.NewContext(g.N()),
		cfg:       cfg,
		log:       log,
		erased:    make([]bool, g.N()),
		anomalies: make([][]bridge, g.N()),
	}

	for {
		if err := ctx.Err(); err != nil {
			return e.stats, contextError(err)
		}

		n, err := e.phase()
		e.stats.Phases++
		e.stats.Blossoms += e.c.Blossoms()
		if err != nil {
			return e.stats, err
		}

		e.log.Debug("phase done",
			"phase", e.stats.Phases,
			"augmentations", n,
			"increase", e.stats.Increase)

		if n == 0 {
			return e.stats, nil
		}
	}
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.Wrap(err, apperror.CodeTimeout, apperror.ErrTimeout.Message)
	}
	return apperror.Wrap(err, apperror.CodeCanceled, apperror.ErrCanceled.Message)
}

// =============================================================================
// Phase
// =============================================================================

// phase runs one phase and returns the number of augmentations.
func (e *engine) phase() (int, error) {
	if err := e.c.Reset(e.g, e.s); err != nil {
		return 0, err
	}
	clear(e.erased)
	for i := range e.levels {
		e.levels[i] = e.levels[i][:0]
	}
	for i := range e.buckets {
		e.buckets[i] = e.buckets[i][:0]
	}
	for i := range e.anomalies {
		e.anomalies[i] = e.anomalies[i][:0]
	}
	e.low, e.cur = 0, -1
	e.addToLevel(0, e.s)

	augmented := 0
	for i := 0; ; i++ {
		if i < len(e.levels) {
			for idx := 0; idx < len(e.levels[i]); idx++ {
				if u := e.levels[i][idx]; !e.erased[u] {
					e.scan(u, i)
				}
			}
		}

		n, err := e.processBridges(i)
		augmented += n
		if err != nil {
			return augmented, err
		}

		if !e.moreWork(i) {
			return augmented, nil
		}
	}
}

// scan classifies the arcs leaving u. Tree arcs label their head, bridges
// are queued by tenacity and anomalies wait for the complement of their head.
func (e *engine) scan(u, i int) {
	c := e.c
	for _, a := range e.g.Arcs(u) {
		if e.g.BalCap(a) <= 0 {
			continue
		}
		v := e.g.EndNode(a)
		cv := graph.Comp(v)
		if e.erased[v] || e.erased[cv] {
			continue
		}

		if !c.Labeled(cv) {
			if !c.Labeled(v) {
				c.LabelProp(v, a, c.Dist(u)+1)
				e.labelled(v, i)
			} else {
				e.anomalies[cv] = append(e.anomalies[cv], bridge{u: u, a: a})
			}
			continue
		}

		if p := c.Prop(u); p != graph.NoArc && a == graph.Reverse(p) {
			continue
		}
		e.enqueue(bridge{u: u, a: a}, c.Dist(u)+c.Dist(cv)+1)
	}
}

// labelled places a newly labelled node on its level, never on a level
// already scanned, and releases the anomalies waiting for it.
func (e *engine) labelled(v, i int) {
	lvl := e.c.Dist(v)
	if lvl <= i {
		lvl = i + 1
	}
	e.addToLevel(lvl, v)

	waiting := e.anomalies[v]
	e.anomalies[v] = nil
	for _, br := range waiting {
		e.enqueue(br, e.c.Dist(br.u)+e.c.Dist(v)+1)
	}
}

func (e *engine) addToLevel(lvl, v int) {
	for len(e.levels) <= lvl {
		e.levels = append(e.levels, nil)
	}
	e.levels[lvl] = append(e.levels[lvl], v)
}

// enqueue queues a bridge. A tenacity below the bucket under processing
// goes into that bucket so it is still handled in this pass.
func (e *engine) enqueue(br bridge, tenacity int) {
	k := tenacity
	if e.cur >= 0 && k < e.cur {
		k = e.cur
	} else if e.cur < 0 && k < e.low {
		k = e.low
	}
	for len(e.buckets) <= k {
		e.buckets = append(e.buckets, nil)
	}
	e.buckets[k] = append(e.buckets[k], br)
}

// processBridges handles all bridges with tenacity up to 2i+2 in increasing
// order, scan order within a tenacity.
func (e *engine) processBridges(i int) (int, error) {
	limit := 2*i + 2
	augmented := 0

	for k := e.low; k <= limit; k++ {
		if k >= len(e.buckets) {
			break
		}
		e.cur = k
		for j := 0; j < len(e.buckets[k]); j++ {
			n, err := e.process(e.buckets[k][j], i)
			augmented += n
			if err != nil {
				e.cur = -1
				return augmented, err
			}
		}
		e.buckets[k] = e.buckets[k][:0]
	}

	e.cur = -1
	if limit+1 > e.low {
		e.low = limit + 1
	}
	return augmented, nil
}

func (e *engine) process(br bridge, i int) (int, error) {
	c := e.c
	u, a := br.u, br.a
	v := e.g.EndNode(a)
	cv := graph.Comp(v)

	if e.erased[u] || e.erased[v] || e.erased[cv] {
		return 0, nil
	}
	if e.g.BalCap(a) <= 0 || !c.Labeled(cv) {
		return 0, nil
	}
	if c.Labeled(v) && c.Base(u) == c.Base(v) {
		return 0, nil
	}

	b, err := c.CommonBase(e.g, c.Base(u), c.Base(cv))
	if err != nil {
		return 0, err
	}
	tenacity := c.Dist(u) + c.Dist(cv) + 1
	if b == e.s {
		return e.close(a, tenacity)
	}
	top, err := c.StemTop(e.g, b)
	if err != nil {
		return 0, err
	}
	if top == e.s {
		if n, err := e.close(a, tenacity); n > 0 || err != nil {
			return n, err
		}
		top = b
	}

	err = c.Contract(e.g, u, a, b, top, func(w int) { e.labelled(w, i) })
	return 0, err
}

func (e *engine) moreWork(i int) bool {
	for j := i + 1; j < len(e.levels); j++ {
		for _, v := range e.levels[j] {
			if !e.erased[v] {
				return true
			}
		}
	}
	for k := e.low; k < len(e.buckets); k++ {
		if len(e.buckets[k]) > 0 {
			return true
		}
	}
	return false
}

// =============================================================================
// Augmentation
// =============================================================================

// close tries the augmenting path closed by bridge a. The path must avoid
// erased nodes and have positive balanced capacity.
func (e *engine) close(a, tenacity int) (int, error) {
	c := e.c
	c.LabelPetal(e.t, a, tenacity)
	defer c.Unlabel(e.t)

	if err := c.ExpandPath(e.g, e.s, e.t); err != nil {
		return 0, err
	}
	pred := c.Pred()

	if !e.pathUsable(pred) {
		e.stats.Rejected++
		return 0, nil
	}
	lambda, err := e.g.FindBalCap(pred, e.s, e.t)
	if err != nil {
		if apperror.Is(err, apperror.CodeBrokenPath) {
			e.stats.Rejected++
			return 0, nil
		}
		return 0, err
	}
	if lambda < 1 {
		e.stats.Rejected++
		return 0, nil
	}

	if max := e.cfg.MaxAugmentations; max > 0 && e.stats.Augmentations >= max {
		return 0, apperror.Wrap(apperror.ErrIterationLimit, apperror.CodeIterationLimit,
			fmt.Sprintf("stopped after %d augmentations", e.stats.Augmentations))
	}
	if err := e.g.BalAugment(pred, e.s, e.t, lambda); err != nil {
		return 0, err
	}
	e.stats.Augmentations++
	e.stats.Increase += 2 * lambda

	for v := e.t; v != e.s; v = e.g.StartNode(pred[v]) {
		if v != e.t {
			e.erased[v] = true
			e.erased[graph.Comp(v)] = true
		}
	}
	e.filter()
	return 1, nil
}

// pathUsable walks pred from t and reports whether it reaches s without an
// erased node or a loop.
func (e *engine) pathUsable(pred []int) bool {
	v := e.t
	for steps := 0; v != e.s; steps++ {
		a := pred[v]
		if steps >= e.g.N() || !e.g.ValidArc(a) || e.g.EndNode(a) != v {
			return false
		}
		if e.erased[v] {
			return false
		}
		v = e.g.StartNode(a)
	}
	return true
}

// filter drops erased nodes from the level lists and bridges touching them
// from the buckets not under processing.
func (e *engine) filter() {
	for j := range e.levels {
		kept := e.levels[j][:0]
		for _, v := range e.levels[j] {
			if !e.erased[v] {
				kept = append(kept, v)
			}
		}
		e.levels[j] = kept
	}

	for k := range e.buckets {
		if k == e.cur {
			continue
		}
		kept := e.buckets[k][:0]
		for _, br := range e.buckets[k] {
			v := e.g.EndNode(br.a)
			if !e.erased[br.u] && !e.erased[v] && !e.erased[graph.Comp(v)] {
				kept = append(kept, br)
			}
		}
		e.buckets[k] = kept
	}
}
