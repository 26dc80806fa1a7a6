package segments

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

func (r *PostgresRepository) Create(ctx context.Context, s *models.Segment) (*models.Segment, error) {
	query := `
		INSERT INTO segments (name, distance_km, max_speed_kmh, min_speed_kmh)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	out := *s
	if err := r.db.QueryRowContext(ctx, query, s.Name, s.DistanceKm, s.MaxSpeedKmh, s.MinSpeedKmh).Scan(&out.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Segment, error) {
	query := `
		SELECT id, name, distance_km, max_speed_kmh, min_speed_kmh
		FROM segments
		WHERE id = $1
	`
	s := &models.Segment{}
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Name, &s.DistanceKm, &s.MaxSpeedKmh, &s.MinSpeedKmh); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}
