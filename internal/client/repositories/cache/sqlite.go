package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/client/models"
	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/dbx"
)

const columns = `id, plate, vehicle_type, segment_id, checkpost_id, recorded_at, matched_client_id, fetched_at`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (*models.CachedEntry, error) {
	var (
		e                     models.CachedEntry
		vt                    string
		matched               sql.NullString
		recordedAt, fetchedAt int64
	)
	if err := r.Scan(&e.ID, &e.Plate, &vt, &e.SegmentID, &e.CheckpostID, &recordedAt, &matched, &fetchedAt); err != nil {
		return nil, err
	}
	e.VehicleType = common.VehicleType(vt)
	e.RecordedAt = time.UnixMilli(recordedAt).UTC()
	e.FetchedAt = time.UnixMilli(fetchedAt).UTC()
	if matched.Valid {
		e.MatchedClientID = &matched.String
	}
	return &e, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, e *models.CachedEntry) error {
	query := `INSERT INTO cached_remote_entries (id, plate, vehicle_type, segment_id, checkpost_id, recorded_at, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET plate = excluded.plate,
			vehicle_type = excluded.vehicle_type,
			segment_id = excluded.segment_id,
			checkpost_id = excluded.checkpost_id,
			recorded_at = excluded.recorded_at,
			fetched_at = excluded.fetched_at`
	_, err := r.db.ExecContext(ctx, query, e.ID, e.Plate, string(e.VehicleType), e.SegmentID, e.CheckpostID,
		e.RecordedAt.UnixMilli(), e.FetchedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert cached entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Candidates(ctx context.Context, plate string, segmentID, excludeCheckpostID int64) ([]*models.CachedEntry, error) {
	query := `SELECT ` + columns + ` FROM cached_remote_entries
		WHERE plate = ? AND segment_id = ? AND checkpost_id <> ? AND matched_client_id IS NULL
		ORDER BY recorded_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, plate, segmentID, excludeCheckpostID)
	if err != nil {
		return nil, fmt.Errorf("failed to select candidates: %w", err)
	}
	defer rows.Close()

	var result []*models.CachedEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) MarkMatched(ctx context.Context, id int64, clientID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE cached_remote_entries SET matched_client_id = ?
		WHERE id = ? AND matched_client_id IS NULL`, clientID, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark cached entry matched: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*models.CachedEntry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM cached_remote_entries WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached entry: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM cached_remote_entries
		WHERE recorded_at < ?
		   OR matched_client_id IN (
		        SELECT client_id FROM passages WHERE match_state IN ('confirmed', 'rejected'))`
	res, err := r.db.ExecContext(ctx, query, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) PurgeMissing(ctx context.Context, since, fetchedBefore time.Time) (int64, error) {
	query := `DELETE FROM cached_remote_entries
		WHERE matched_client_id IS NULL AND recorded_at >= ? AND fetched_at < ?`
	res, err := r.db.ExecContext(ctx, query, since.UnixMilli(), fetchedBefore.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge missing cache entries: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cached_remote_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache: %w", err)
	}
	return n, nil
}
