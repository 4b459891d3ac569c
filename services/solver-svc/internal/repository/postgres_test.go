package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pgxMockAdapter exposes a pgxmock pool as database.DB.
type pgxMockAdapter struct {
	mock pgxmock.PgxPoolIface
}

func (a *pgxMockAdapter) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return a.mock.Exec(ctx, sql, args...)
}

func (a *pgxMockAdapter) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return a.mock.Query(ctx, sql, args...)
}

func (a *pgxMockAdapter) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return a.mock.QueryRow(ctx, sql, args...)
}

func (a *pgxMockAdapter) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	return a.mock.BeginTx(ctx, txOptions)
}

func (a *pgxMockAdapter) Close() {
	a.mock.Close()
}

func (a *pgxMockAdapter) Ping(ctx context.Context) error {
	return a.mock.Ping(ctx)
}

func setupMockDB(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRunRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return mock, NewPostgresRunRepository(&pgxMockAdapter{mock: mock})
}

var runColumnNames = []string{
	"id", "network_hash", "algorithm", "strategy", "status", "value", "increase",
	"augmentations", "phases", "blossoms", "rejected", "duration_ms", "cached",
	"error", "flows", "created_at",
}

func sampleRun() *Run {
	return &Run{
		ID:            "5f0c6b4e-8d8a-4d59-9a51-1f6f4b2ad001",
		NetworkHash:   "0123456789abcdef0123456789abcdef",
		Nodes:         4,
		Arcs:          3,
		Source:        0,
		Algorithm:     "bns",
		Strategy:      "exact",
		Status:        "optimal",
		Value:         2,
		Increase:      2,
		Augmentations: 1,
		Phases:        2,
		Blossoms:      1,
		DurationMs:    0.25,
		Flows:         []int64{1, 1, 1},
	}
}

func runRow(rows *pgxmock.Rows, r *Run) *pgxmock.Rows {
	return rows.AddRow(r.ID, r.NetworkHash, r.Algorithm, r.Strategy, r.Status, r.Value, r.Increase,
		r.Augmentations, r.Phases, r.Blossoms, r.Rejected, r.DurationMs, r.Cached,
		r.Error, r.Flows, r.CreatedAt)
}

func TestPostgresRunRepository_Create(t *testing.T) {
	mock, repo := setupMockDB(t)
	defer mock.Close()

	run := sampleRun()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO networks`).
		WithArgs(run.NetworkHash, run.Nodes, run.Arcs, run.Source).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`INSERT INTO runs`).
		WithArgs(run.ID, run.NetworkHash, run.Algorithm, run.Strategy, run.Status,
			run.Value, run.Increase, run.Augmentations, run.Phases, run.Blossoms,
			run.Rejected, run.DurationMs, run.Cached, pgxmock.AnyArg(), run.Flows).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), run)

	require.NoError(t, err)
	assert.Equal(t, now, run.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRunRepository_Create_RollsBackOnInsertError(t *testing.T) {
	mock, repo := setupMockDB(t)
	defer mock.Close()

	run := sampleRun()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO networks`).
		WithArgs(run.NetworkHash, run.Nodes, run.Arcs, run.Source).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`INSERT INTO runs`).
		WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), run)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRunRepository_Create_Invalid(t *testing.T) {
	mock, repo := setupMockDB(t)
	defer mock.Close()

	tests := []struct {
		name   string
		mutate func(r *Run)
	}{
		{"missing id", func(r *Run) { r.ID = "" }},
		{"missing hash", func(r *Run) { r.NetworkHash = "" }},
		{"missing algorithm", func(r *Run) { r.Algorithm = "" }},
		{"flow count", func(r *Run) { r.Flows = r.Flows[:1] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := sampleRun()
			tt.mutate(run)
			assert.ErrorIs(t, repo.Create(context.Background(), run), ErrInvalidRun)
		})
	}
	assert.ErrorIs(t, repo.Create(context.Background(), nil), ErrInvalidRun)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRunRepository_GetByID(t *testing.T) {
	mock, repo := setupMockDB(t)
	defer mock.Close()

	want := sampleRun()
	want.CreatedAt = time.Now()

	mock.ExpectQuery(`SELECT .* FROM runs WHERE id = \$1`).
		WithArgs(want.ID).
		WillReturnRows(runRow(pgxmock.NewRows(runColumnNames), want))

	got, err := repo.GetByID(context.Background(), want.ID)

	require.NoError(t, err)
	assert.Equal(t, want.Value, got.Value)
	assert.Equal(t, want.Flows, got.Flows)
	assert.Equal(t, 3, got.Arcs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRunRepository_GetByID_NotFound(t *testing.T) {
	mock, repo := setupMockDB(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT .* FROM runs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRunRepository_Latest(t *testing.T) {
	mock, repo := setupMockDB(t)
	defer mock.Close()

	want := sampleRun()

	mock.ExpectQuery(`WHERE network_hash = \$1 AND algorithm = \$2 AND status = 'optimal'`).
		WithArgs(want.NetworkHash, "bns").
		WillReturnRows(runRow(pgxmock.NewRows(runColumnNames), want))

	got, err := repo.Latest(context.Background(), want.NetworkHash, "bns")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)

	mock.ExpectQuery(`WHERE network_hash = \$1`).
		WithArgs(want.NetworkHash, "phase").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.Latest(context.Background(), want.NetworkHash, "phase")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRunRepository_List(t *testing.T) {
	mock, repo := setupMockDB(t)
	defer mock.Close()

	since := time.Now().Add(-time.Hour)
	first, second := sampleRun(), sampleRun()
	second.ID = "5f0c6b4e-8d8a-4d59-9a51-1f6f4b2ad002"

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM runs WHERE TRUE AND algorithm = \$1 AND created_at >= \$2`).
		WithArgs("bns", since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))
	mock.ExpectQuery(`ORDER BY value DESC, created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("bns", since, 2, 4).
		WillReturnRows(runRow(runRow(pgxmock.NewRows(runColumnNames), first), second))

	runs, total, err := repo.List(context.Background(), &ListOptions{
		Limit:  2,
		Offset: 4,
		Sort:   SortByValueDesc,
		Filter: &ListFilter{Algorithm: "bns", Since: &since},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRunRepository_List_Defaults(t *testing.T) {
	tests := []struct {
		name       string
		opts       *ListOptions
		wantLimit  int
		wantOffset int
	}{
		{"nil options", nil, 20, 0},
		{"negative limit", &ListOptions{Limit: -5, Offset: -1}, 20, 0},
		{"limit capped", &ListOptions{Limit: 1000}, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := setupMockDB(t)
			defer mock.Close()

			mock.ExpectQuery(`SELECT COUNT\(\*\) FROM runs WHERE TRUE`).
				WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
			mock.ExpectQuery(`ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).
				WithArgs(tt.wantLimit, tt.wantOffset).
				WillReturnRows(pgxmock.NewRows(runColumnNames))

			runs, total, err := repo.List(context.Background(), tt.opts)
			require.NoError(t, err)
			assert.Empty(t, runs)
			assert.Zero(t, total)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRunRepository_List_CountError(t *testing.T) {
	mock, repo := setupMockDB(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT COUNT`).WillReturnError(errors.New("connection reset"))

	_, _, err := repo.List(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to count runs")
}

func TestPostgresRunRepository_Stats(t *testing.T) {
	mock, repo := setupMockDB(t)
	defer mock.Close()

	mock.ExpectQuery(`GROUP BY algorithm`).
		WillReturnRows(pgxmock.NewRows([]string{"algorithm", "count", "avg_duration", "avg_value", "failures"}).
			AddRow("bns", int64(10), 1.5, 4.0, int64(1)).
			AddRow("phase", int64(3), 0.5, 4.0, int64(0)))

	stats, err := repo.Stats(context.Background())

	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "bns", stats[0].Algorithm)
	assert.Equal(t, int64(10), stats[0].Runs)
	assert.Equal(t, int64(1), stats[0].Failures)
	assert.Equal(t, 0.5, stats[1].AverageDurationMs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRunRepository_DeleteOlderThan(t *testing.T) {
	mock, repo := setupMockDB(t)
	defer mock.Close()

	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	mock.ExpectExec(`DELETE FROM runs WHERE created_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 12))

	n, err := repo.DeleteOlderThan(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildOrderBy(t *testing.T) {
	tests := map[SortOrder]string{
		SortByCreatedDesc: "created_at DESC",
		SortByCreatedAsc:  "created_at ASC",
		SortByValueDesc:   "value DESC, created_at DESC",
		SortByDuration:    "duration_ms DESC",
		"":                "created_at DESC",
	}
	for sort, want := range tests {
		assert.Equal(t, want, buildOrderBy(sort), string(sort))
	}
}
