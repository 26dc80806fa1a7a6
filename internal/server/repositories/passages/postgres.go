package passages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/dbx"
	"github.com/dmitrijs2005/checkpost/internal/server/models"
)

const columns = `id, client_id, plate, raw_plate, vehicle_type, checkpost_id, segment_id,
		recorded_at, ranger_id, photo_key, source, matched_passage_id, created_at`

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPassage(r rowScanner) (*models.Passage, error) {
	var (
		p       models.Passage
		vt      string
		source  string
		ranger  sql.NullInt64
		matched sql.NullInt64
	)
	err := r.Scan(&p.ID, &p.ClientID, &p.Plate, &p.RawPlate, &vt, &p.CheckpostID, &p.SegmentID,
		&p.RecordedAt, &ranger, &p.PhotoKey, &source, &matched, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.VehicleType = common.VehicleType(vt)
	p.Source = common.Source(source)
	if ranger.Valid {
		p.RangerID = &ranger.Int64
	}
	if matched.Valid {
		p.MatchedPassageID = &matched.Int64
	}
	return &p, nil
}

func (r *PostgresRepository) LockPlate(ctx context.Context, segmentID int64, plate string) error {
	query := `SELECT pg_advisory_xact_lock(hashtextextended($1, $2))`
	if _, err := r.db.ExecContext(ctx, query, plate, segmentID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Passage) error {
	query := `
		INSERT INTO passages (client_id, plate, raw_plate, vehicle_type, checkpost_id, segment_id,
			recorded_at, ranger_id, photo_key, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT DO NOTHING
		RETURNING id, created_at
	`
	var ranger sql.NullInt64
	if p.RangerID != nil {
		ranger = sql.NullInt64{Int64: *p.RangerID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query, p.ClientID, p.Plate, p.RawPlate, string(p.VehicleType),
		p.CheckpostID, p.SegmentID, p.RecordedAt, ranger, p.PhotoKey, string(p.Source)).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsUniqueViolation(err) {
			return common.ErrDuplicate
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindDuplicate(ctx context.Context, p *models.Passage) (*models.Passage, error) {
	query := `
		SELECT ` + columns + `
		FROM passages
		WHERE client_id = $1 OR (checkpost_id = $2 AND plate = $3 AND recorded_at = $4)
		ORDER BY id
		LIMIT 1
	`
	return r.one(ctx, query, p.ClientID, p.CheckpostID, p.Plate, p.RecordedAt)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Passage, error) {
	query := `
		SELECT ` + columns + `
		FROM passages
		WHERE id = $1
	`
	return r.one(ctx, query, id)
}

func (r *PostgresRepository) GetByClientID(ctx context.Context, clientID string) (*models.Passage, error) {
	query := `
		SELECT ` + columns + `
		FROM passages
		WHERE client_id = $1
	`
	return r.one(ctx, query, clientID)
}

func (r *PostgresRepository) LockPair(ctx context.Context, a, b int64) ([]*models.Passage, error) {
	query := `
		SELECT ` + columns + `
		FROM passages
		WHERE id IN ($1, $2)
		ORDER BY id
		FOR UPDATE
	`
	return r.many(ctx, query, a, b)
}

func (r *PostgresRepository) SetMatched(ctx context.Context, id, matchedID int64) (bool, error) {
	query := `
		UPDATE passages
		SET matched_passage_id = $2
		WHERE id = $1 AND matched_passage_id IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, id, matchedID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) FindCandidate(ctx context.Context, p *models.Passage) (*models.Passage, error) {
	query := `
		SELECT ` + columns + `
		FROM passages
		WHERE plate = $1 AND segment_id = $2 AND checkpost_id <> $3
			AND matched_passage_id IS NULL AND id <> $4
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`
	return r.one(ctx, query, p.Plate, p.SegmentID, p.CheckpostID, p.ID)
}

func (r *PostgresRepository) ListUnmatched(ctx context.Context, segmentID, excludeCheckpostID int64, since time.Time, limit int) ([]*models.Passage, error) {
	query := `
		SELECT ` + columns + `
		FROM passages
		WHERE segment_id = $1 AND checkpost_id <> $2
			AND matched_passage_id IS NULL AND recorded_at >= $3
		ORDER BY recorded_at DESC, id DESC
		LIMIT $4
	`
	return r.many(ctx, query, segmentID, excludeCheckpostID, since, limit)
}

func (r *PostgresRepository) AttachPhoto(ctx context.Context, clientID string, checkpostID int64, key string) error {
	query := `
		UPDATE passages
		SET photo_key = $3
		WHERE client_id = $1 AND checkpost_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, clientID, checkpostID, key)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) one(ctx context.Context, query string, args ...any) (*models.Passage, error) {
	p, err := scanPassage(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) many(ctx context.Context, query string, args ...any) ([]*models.Passage, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Passage
	for rows.Next() {
		p, err := scanPassage(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
