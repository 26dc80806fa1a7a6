package violations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/dbx"
	"github.com/dmitrijs2005/checkpost/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, v *models.Violation) (*models.Violation, bool, error) {
	query := `
		INSERT INTO violations (entry_passage_id, exit_passage_id, entry_recorded_at, exit_recorded_at,
			travel_minutes, type, threshold_minutes, speed_kmh, distance_km, max_speed_kmh, min_speed_kmh)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (entry_passage_id) DO NOTHING
		RETURNING id, created_at
	`
	out := *v
	err := r.db.QueryRowContext(ctx, query, v.EntryPassageID, v.ExitPassageID, v.EntryRecordedAt, v.ExitRecordedAt,
		v.TravelMinutes, string(v.Type), v.ThresholdMinutes, v.SpeedKmh, v.DistanceKm, v.MaxSpeedKmh, v.MinSpeedKmh).
		Scan(&out.ID, &out.CreatedAt)
	if err == nil {
		return &out, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("db error: %w", err)
	}

	existing, err := r.GetByEntry(ctx, v.EntryPassageID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *PostgresRepository) GetByEntry(ctx context.Context, entryPassageID int64) (*models.Violation, error) {
	query := `
		SELECT id, entry_passage_id, exit_passage_id, entry_recorded_at, exit_recorded_at, travel_minutes,
			type, threshold_minutes, speed_kmh, distance_km, max_speed_kmh, min_speed_kmh, created_at
		FROM violations
		WHERE entry_passage_id = $1
	`
	var (
		v   models.Violation
		typ string
	)
	err := r.db.QueryRowContext(ctx, query, entryPassageID).Scan(&v.ID, &v.EntryPassageID, &v.ExitPassageID,
		&v.EntryRecordedAt, &v.ExitRecordedAt, &v.TravelMinutes, &typ, &v.ThresholdMinutes, &v.SpeedKmh,
		&v.DistanceKm, &v.MaxSpeedKmh, &v.MinSpeedKmh, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	v.Type = common.ViolationType(typ)
	return &v, nil
}
