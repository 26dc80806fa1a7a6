package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/dbx"
	"github.com/dmitrijs2005/checkpost/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		INSERT INTO overstay_alerts (entry_passage_id, deadline_at)
		SELECT p.id, p.recorded_at + make_interval(secs => s.distance_km / s.min_speed_kmh * 3600)
		FROM passages p
		JOIN segments s ON s.id = p.segment_id
		WHERE p.matched_passage_id IS NULL
			AND p.recorded_at + make_interval(secs => s.distance_km / s.min_speed_kmh * 3600) < $1
		ON CONFLICT (entry_passage_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ResolveForEntry(ctx context.Context, entryPassageID, byPassageID int64) (int64, error) {
	query := `
		UPDATE overstay_alerts
		SET resolved_at = now(), resolved_by_passage_id = $2
		WHERE entry_passage_id = $1 AND resolved_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, entryPassageID, byPassageID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListOpen(ctx context.Context, limit int) ([]*models.OverstayAlert, error) {
	query := `
		SELECT id, entry_passage_id, deadline_at, created_at
		FROM overstay_alerts
		WHERE resolved_at IS NULL
		ORDER BY deadline_at
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.OverstayAlert
	for rows.Next() {
		a := &models.OverstayAlert{}
		if err := rows.Scan(&a.ID, &a.EntryPassageID, &a.DeadlineAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
