package violations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/client/models"
	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/dbx"
)

const columns = `id, passage_client_id, remote_passage_id, server_violation_id, plate, segment_id,
	entry_at, exit_at, travel_minutes, type, threshold_minutes, speed_kmh,
	distance_km, max_speed_kmh, min_speed_kmh, provenance, status, created_at`

// SQLiteRepository implements Repository. An infinite speed (zero travel
// time) is stored as NULL.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanViolation(r rowScanner) (*models.Violation, error) {
	var (
		v                          models.Violation
		serverID                   sql.NullInt64
		speed                      sql.NullFloat64
		vt, provenance, status     string
		entryAt, exitAt, createdAt int64
	)
	err := r.Scan(&v.ID, &v.PassageClientID, &v.RemotePassageID, &serverID, &v.Plate, &v.SegmentID,
		&entryAt, &exitAt, &v.TravelMinutes, &vt, &v.ThresholdMinutes, &speed,
		&v.Bounds.DistanceKm, &v.Bounds.MaxSpeedKmh, &v.Bounds.MinSpeedKmh, &provenance, &status, &createdAt)
	if err != nil {
		return nil, err
	}
	if serverID.Valid {
		v.ServerViolationID = &serverID.Int64
	}
	v.SpeedKmh = math.Inf(1)
	if speed.Valid {
		v.SpeedKmh = speed.Float64
	}
	v.Type = common.ViolationType(vt)
	v.Provenance = common.Provenance(provenance)
	v.Status = models.ViolationStatus(status)
	v.EntryAt = time.UnixMilli(entryAt).UTC()
	v.ExitAt = time.UnixMilli(exitAt).UTC()
	v.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &v, nil
}

func speedArg(v *models.Violation) sql.NullFloat64 {
	if math.IsInf(v.SpeedKmh, 0) || math.IsNaN(v.SpeedKmh) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v.SpeedKmh, Valid: true}
}

func serverIDArg(v *models.Violation) sql.NullInt64 {
	if v.ServerViolationID == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v.ServerViolationID, Valid: true}
}

func (r *SQLiteRepository) args(v *models.Violation) []any {
	return []any{v.PassageClientID, v.RemotePassageID, serverIDArg(v), v.Plate, v.SegmentID,
		v.EntryAt.UnixMilli(), v.ExitAt.UnixMilli(), v.TravelMinutes, string(v.Type), v.ThresholdMinutes, speedArg(v),
		v.Bounds.DistanceKm, v.Bounds.MaxSpeedKmh, v.Bounds.MinSpeedKmh, string(v.Provenance), string(v.Status),
		v.CreatedAt.UnixMilli()}
}

const insert = `INSERT INTO violations (passage_client_id, remote_passage_id, server_violation_id, plate, segment_id,
	entry_at, exit_at, travel_minutes, type, threshold_minutes, speed_kmh,
	distance_km, max_speed_kmh, min_speed_kmh, provenance, status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (r *SQLiteRepository) CreateAdvisory(ctx context.Context, v *models.Violation) error {
	v.Provenance = common.ProvenanceAdvisory
	v.Status = models.ViolationActive

	err := r.db.QueryRowContext(ctx, insert+` RETURNING id`, r.args(v)...).Scan(&v.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrDuplicate
		}
		return fmt.Errorf("failed to insert violation: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SaveAuthoritative(ctx context.Context, v *models.Violation) error {
	v.Provenance = common.ProvenanceAuthoritative
	v.Status = models.ViolationActive

	query := insert + `
		ON CONFLICT(passage_client_id) DO UPDATE SET
			remote_passage_id = excluded.remote_passage_id,
			server_violation_id = excluded.server_violation_id,
			plate = excluded.plate,
			segment_id = excluded.segment_id,
			entry_at = excluded.entry_at,
			exit_at = excluded.exit_at,
			travel_minutes = excluded.travel_minutes,
			type = excluded.type,
			threshold_minutes = excluded.threshold_minutes,
			speed_kmh = excluded.speed_kmh,
			distance_km = excluded.distance_km,
			max_speed_kmh = excluded.max_speed_kmh,
			min_speed_kmh = excluded.min_speed_kmh,
			provenance = excluded.provenance,
			status = excluded.status
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, r.args(v)...).Scan(&v.ID); err != nil {
		return fmt.Errorf("failed to save authoritative violation: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkStale(ctx context.Context, clientID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE violations SET status = ?
		WHERE passage_client_id = ? AND provenance = ? AND status = ?`,
		string(models.ViolationStale), clientID, string(common.ProvenanceAdvisory), string(models.ViolationActive))
	if err != nil {
		return false, fmt.Errorf("failed to mark violation stale: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) GetByPassage(ctx context.Context, clientID string) (*models.Violation, error) {
	v, err := scanViolation(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM violations WHERE passage_client_id = ?`, clientID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get violation: %w", err)
	}
	return v, nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int, includeStale bool) ([]*models.Violation, error) {
	query := `SELECT ` + columns + ` FROM violations`
	args := []any{}
	if !includeStale {
		query += ` WHERE status = ?`
		args = append(args, string(models.ViolationActive))
	}
	query += ` ORDER BY exit_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select violations: %w", err)
	}
	defer rows.Close()

	var result []*models.Violation
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
