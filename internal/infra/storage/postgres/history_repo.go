package postgres

import (
	"context"
	"fmt"

	"github.com/vietddude/forecaster/internal/core/domain"
)

// HistoryRepo stores routed-call outcomes.
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo creates a history repository.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Save inserts one call record.
func (r *HistoryRepo) Save(ctx context.Context, rec *domain.CallRecord) error {
	const query = `
		INSERT INTO call_history (id, caller_id, provider, city, outcome, error_text, latency_ms, created_at)
		VALUES (:id, :caller_id, :provider, :city, :outcome, :error_text, :latency_ms, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("insert call record: %w", err)
	}
	return nil
}

// Recent returns the most recent call records, newest first.
func (r *HistoryRepo) Recent(ctx context.Context, limit int) ([]domain.CallRecord, error) {
	const query = `
		SELECT id, caller_id, provider, city, outcome, error_text, latency_ms, created_at
		FROM call_history
		ORDER BY created_at DESC
		LIMIT $1`

	var records []domain.CallRecord
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("select call records: %w", err)
	}
	return records, nil
}

// CountByOutcome returns how many recorded calls a provider has with the
// given outcome.
func (r *HistoryRepo) CountByOutcome(ctx context.Context, provider, outcome string) (int, error) {
	const query = `SELECT count(*) FROM call_history WHERE provider = $1 AND outcome = $2`

	var count int
	if err := r.db.GetContext(ctx, &count, query, provider, outcome); err != nil {
		return 0, fmt.Errorf("count call records: %w", err)
	}
	return count, nil
}
