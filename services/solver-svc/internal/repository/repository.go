// Package repository stores the history of solver runs.
package repository

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRunNotFound = errors.New("run not found")
	ErrInvalidRun  = errors.New("invalid run")
)

// Run is one recorded solve.
type Run struct {
	ID            string
	NetworkHash   string
	Nodes         int
	Arcs          int
	Source        int
	Algorithm     string
	Strategy      string
	Status        string
	Value         int64
	Increase      int64
	Augmentations int
	Phases        int
	Blossoms      int
	Rejected      int
	DurationMs    float64
	Cached        bool
	Error         string
	Flows         []int64
	CreatedAt     time.Time
}

// Validate checks the fields the store requires.
func (r *Run) Validate() error {
	switch {
	case r == nil:
		return ErrInvalidRun
	case r.ID == "":
		return errors.Join(ErrInvalidRun, errors.New("missing id"))
	case r.NetworkHash == "":
		return errors.Join(ErrInvalidRun, errors.New("missing network hash"))
	case r.Algorithm == "":
		return errors.Join(ErrInvalidRun, errors.New("missing algorithm"))
	case len(r.Flows) != r.Arcs:
		return errors.Join(ErrInvalidRun, errors.New("flow count does not match arc count"))
	}
	return nil
}

// SortOrder orders List results.
type SortOrder string

const (
	SortByCreatedDesc SortOrder = "created_desc"
	SortByCreatedAsc  SortOrder = "created_asc"
	SortByValueDesc   SortOrder = "value_desc"
	SortByDuration    SortOrder = "duration_desc"
)

// ListFilter restricts List results. Zero fields match everything.
type ListFilter struct {
	Algorithm   string
	NetworkHash string
	Status      string
	Since       *time.Time
}

// ListOptions configures List.
type ListOptions struct {
	Limit  int
	Offset int
	Filter *ListFilter
	Sort   SortOrder
}

// AlgorithmStats aggregates the runs of one algorithm.
type AlgorithmStats struct {
	Algorithm         string
	Runs              int64
	AverageDurationMs float64
	AverageValue      float64
	Failures          int64
}

// RunRepository stores solver runs.
type RunRepository interface {
	// Create records run and counts it against its network.
	Create(ctx context.Context, run *Run) error
	GetByID(ctx context.Context, id string) (*Run, error)
	// Latest returns the newest successful run of algorithm on a network.
	Latest(ctx context.Context, networkHash, algorithm string) (*Run, error)
	List(ctx context.Context, opts *ListOptions) ([]*Run, int64, error)
	Stats(ctx context.Context) ([]*AlgorithmStats, error)
	// DeleteOlderThan drops runs created before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
