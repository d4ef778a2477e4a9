package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunRecord is one invocation's audit entry.
type RunRecord struct {
	ProductID   int64
	Outcome     string
	Brand       string
	Collections []int64
	Diagnostics []string
	Duration    time.Duration
}

// RunRepository persists enrichment run outcomes for later inspection.
type RunRepository interface {
	SaveRun(ctx context.Context, record RunRecord) error
}

type runRepository struct {
	db *pgxpool.Pool
}

func NewRunRepository(db *pgxpool.Pool) RunRepository {
	return &runRepository{
		db: db,
	}
}

func (r *runRepository) SaveRun(ctx context.Context, record RunRecord) error {
	query := `
	INSERT INTO enrichment_runs (product_id, outcome, brand, collections, diagnostics, duration_ms, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, now())`
	_, err := r.db.Exec(ctx, query,
		record.ProductID,
		record.Outcome,
		record.Brand,
		record.Collections,
		record.Diagnostics,
		record.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}

	return nil
}

// NewNoopRepository is used when no audit database is configured.
func NewNoopRepository() RunRepository {
	return noopRepository{}
}

type noopRepository struct{}

func (noopRepository) SaveRun(context.Context, RunRecord) error { return nil }
