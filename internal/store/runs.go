package store

import (
	"context"
	"errors"

	"github.com/causelab/causeway/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

// RunStore persists discovery runs. Graph snapshots and validation reports
// are stored as jsonb; pgx marshals them through the struct tags.
type RunStore struct {
	db *pgxpool.Pool
}

func NewRunStore(db *pgxpool.Pool) *RunStore {
	return &RunStore{db: db}
}

var _ domain.RunStore = (*RunStore)(nil)

func (s *RunStore) Create(ctx context.Context, run *domain.DiscoveryRun) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO discovery_runs (status, iterations, graph, validation, warnings)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		run.Status, run.Iterations, run.Graph, run.Validation, run.Warnings,
	).Scan(&run.ID, &run.CreatedAt)
}

func (s *RunStore) Finish(ctx context.Context, run *domain.DiscoveryRun) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE discovery_runs
		 SET status = $2, iterations = $3, graph = $4, validation = $5, warnings = $6, finished_at = NOW()
		 WHERE id = $1`,
		run.ID, run.Status, run.Iterations, run.Graph, run.Validation, run.Warnings,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RunStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.DiscoveryRun, error) {
	run := &domain.DiscoveryRun{}
	err := s.db.QueryRow(ctx,
		`SELECT id, status, iterations, graph, validation, warnings, created_at, finished_at
		 FROM discovery_runs WHERE id = $1`,
		id,
	).Scan(&run.ID, &run.Status, &run.Iterations, &run.Graph, &run.Validation, &run.Warnings, &run.CreatedAt, &run.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

func (s *RunStore) List(ctx context.Context, limit int) ([]domain.DiscoveryRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, status, iterations, graph, validation, warnings, created_at, finished_at
		 FROM discovery_runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.DiscoveryRun
	for rows.Next() {
		var run domain.DiscoveryRun
		if err := rows.Scan(&run.ID, &run.Status, &run.Iterations, &run.Graph, &run.Validation, &run.Warnings, &run.CreatedAt, &run.FinishedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
