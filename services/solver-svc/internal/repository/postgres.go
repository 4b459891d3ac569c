package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/database"
	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/telemetry"
)

const runColumns = `
	id, network_hash, algorithm, strategy, status, value, increase,
	augmentations, phases, blossoms, rejected, duration_ms, cached,
	COALESCE(error, ''), flows, created_at`

// PostgresRunRepository stores runs in PostgreSQL.
type PostgresRunRepository struct {
	db database.DB
}

// NewPostgresRunRepository creates a repository on db.
func NewPostgresRunRepository(db database.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

func (r *PostgresRunRepository) Create(ctx context.Context, run *Run) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.Create")
	defer span.End()

	if err := run.Validate(); err != nil {
		return err
	}

	err := database.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO networks (hash, nodes, arcs, source, solves)
			VALUES ($1, $2, $3, $4, 1)
			ON CONFLICT (hash) DO UPDATE
			SET solves = networks.solves + 1, last_seen = now()`,
			run.NetworkHash, run.Nodes, run.Arcs, run.Source,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert network: %w", err)
		}

		var errText *string
		if run.Error != "" {
			errText = &run.Error
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO runs (
				id, network_hash, algorithm, strategy, status, value, increase,
				augmentations, phases, blossoms, rejected, duration_ms, cached,
				error, flows
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			RETURNING created_at`,
			run.ID, run.NetworkHash, run.Algorithm, run.Strategy, run.Status,
			run.Value, run.Increase, run.Augmentations, run.Phases, run.Blossoms,
			run.Rejected, run.DurationMs, run.Cached, errText, run.Flows,
		).Scan(&run.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.SetError(ctx, err)
	}
	return err
}

func scanRun(row pgx.Row) (*Run, error) {
	run := &Run{}
	err := row.Scan(
		&run.ID,
		&run.NetworkHash,
		&run.Algorithm,
		&run.Strategy,
		&run.Status,
		&run.Value,
		&run.Increase,
		&run.Augmentations,
		&run.Phases,
		&run.Blossoms,
		&run.Rejected,
		&run.DurationMs,
		&run.Cached,
		&run.Error,
		&run.Flows,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Arcs = len(run.Flows)
	return run, nil
}

func (r *PostgresRunRepository) GetByID(ctx context.Context, id string) (*Run, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.GetByID")
	defer span.End()

	run, err := scanRun(r.db.QueryRow(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

func (r *PostgresRunRepository) Latest(ctx context.Context, networkHash, algorithm string) (*Run, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.Latest")
	defer span.End()

	run, err := scanRun(r.db.QueryRow(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE network_hash = $1 AND algorithm = $2 AND status = 'optimal'
		ORDER BY created_at DESC
		LIMIT 1`, networkHash, algorithm))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

func (r *PostgresRunRepository) List(ctx context.Context, opts *ListOptions) ([]*Run, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.List")
	defer span.End()

	if opts == nil {
		opts = &ListOptions{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := max(opts.Offset, 0)

	where, args := buildWhereClause(opts.Filter)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM runs WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count runs: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM runs WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		runColumns, where, buildOrderBy(opts.Sort), len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	return runs, total, nil
}

func buildWhereClause(filter *ListFilter) (string, []any) {
	conditions := []string{"TRUE"}
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter != nil {
		if filter.Algorithm != "" {
			add("algorithm = $%d", filter.Algorithm)
		}
		if filter.NetworkHash != "" {
			add("network_hash = $%d", filter.NetworkHash)
		}
		if filter.Status != "" {
			add("status = $%d", filter.Status)
		}
		if filter.Since != nil {
			add("created_at >= $%d", *filter.Since)
		}
	}

	return strings.Join(conditions, " AND "), args
}

func buildOrderBy(sort SortOrder) string {
	switch sort {
	case SortByCreatedAsc:
		return "created_at ASC"
	case SortByValueDesc:
		return "value DESC, created_at DESC"
	case SortByDuration:
		return "duration_ms DESC"
	default:
		return "created_at DESC"
	}
}

func (r *PostgresRunRepository) Stats(ctx context.Context) ([]*AlgorithmStats, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.Stats")
	defer span.End()

	rows, err := r.db.Query(ctx, `
		SELECT
			algorithm,
			COUNT(*),
			COALESCE(AVG(duration_ms), 0),
			COALESCE(AVG(value), 0),
			COUNT(*) FILTER (WHERE status <> 'optimal')
		FROM runs
		GROUP BY algorithm
		ORDER BY algorithm`)
	if err != nil {
		return nil, fmt.Errorf("failed to query run stats: %w", err)
	}
	defer rows.Close()

	var stats []*AlgorithmStats
	for rows.Next() {
		s := &AlgorithmStats{}
		if err := rows.Scan(&s.Algorithm, &s.Runs, &s.AverageDurationMs, &s.AverageValue, &s.Failures); err != nil {
			return nil, fmt.Errorf("failed to scan run stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *PostgresRunRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.DeleteOlderThan")
	defer span.End()

	tag, err := r.db.Exec(ctx, `DELETE FROM runs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}
	return tag.RowsAffected(), nil
}
