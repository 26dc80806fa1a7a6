package passages

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

const columns = `client_id, server_id, plate, raw_plate, vehicle_type, checkpost_id, segment_id,
	recorded_at, ranger_id, photo_path, photo_key, source, matched_remote_id, match_state, created_at`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
// Times are stored as Unix milliseconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPassage(r rowScanner) (*models.Passage, error) {
	var (
		p                     models.Passage
		serverID, matchedID   sql.NullInt64
		vt, source, state     string
		recordedAt, createdAt int64
	)
	err := r.Scan(&p.ClientID, &serverID, &p.Plate, &p.RawPlate, &vt, &p.CheckpostID, &p.SegmentID,
		&recordedAt, &p.RangerID, &p.PhotoPath, &p.PhotoKey, &source, &matchedID, &state, &createdAt)
	if err != nil {
		return nil, err
	}
	if serverID.Valid {
		p.ServerID = &serverID.Int64
	}
	if matchedID.Valid {
		p.MatchedRemoteID = &matchedID.Int64
	}
	p.VehicleType = common.VehicleType(vt)
	p.Source = common.Source(source)
	p.MatchState = models.MatchState(state)
	p.RecordedAt = time.UnixMilli(recordedAt).UTC()
	p.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &p, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, p *models.Passage) error {
	if p.MatchState == "" {
		p.MatchState = models.MatchNone
	}
	if p.Source == "" {
		p.Source = common.SourceApp
	}
	query := `INSERT INTO passages (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		p.ClientID, nullable(p.ServerID), p.Plate, p.RawPlate, string(p.VehicleType), p.CheckpostID, p.SegmentID,
		p.RecordedAt.UnixMilli(), p.RangerID, p.PhotoPath, p.PhotoKey, string(p.Source),
		nullable(p.MatchedRemoteID), string(p.MatchState), p.CreatedAt.UnixMilli())
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrDuplicate
		}
		return fmt.Errorf("failed to insert passage: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByClientID(ctx context.Context, clientID string) (*models.Passage, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM passages WHERE client_id = ?`, clientID)
	p, err := scanPassage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get passage: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]*models.Passage, error) {
	return r.query(ctx, `SELECT `+columns+` FROM passages ORDER BY recorded_at DESC, created_at DESC LIMIT ?`, limit)
}

func (r *SQLiteRepository) ListAwaitingConfirmation(ctx context.Context) ([]*models.Passage, error) {
	return r.query(ctx, `SELECT `+columns+` FROM passages
		WHERE server_id IS NOT NULL AND match_state = ? ORDER BY recorded_at`, string(models.MatchAdvisory))
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]*models.Passage, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select passages: %w", err)
	}
	defer rows.Close()

	var result []*models.Passage
	for rows.Next() {
		p, err := scanPassage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) SetServerID(ctx context.Context, clientID string, serverID int64) error {
	return r.exec(ctx, "set server id",
		`UPDATE passages SET server_id = ? WHERE client_id = ?`, serverID, clientID)
}

func (r *SQLiteRepository) SetAdvisoryMatch(ctx context.Context, clientID string, remoteID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE passages SET matched_remote_id = ?, match_state = ?
		WHERE client_id = ? AND matched_remote_id IS NULL`, remoteID, string(models.MatchAdvisory), clientID)
	if err != nil {
		return false, fmt.Errorf("failed to set advisory match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) ConfirmMatch(ctx context.Context, clientID string, remoteID int64) error {
	return r.exec(ctx, "confirm match",
		`UPDATE passages SET matched_remote_id = ?, match_state = ? WHERE client_id = ?`,
		remoteID, string(models.MatchConfirmed), clientID)
}

func (r *SQLiteRepository) RejectMatch(ctx context.Context, clientID string) error {
	return r.exec(ctx, "reject match",
		`UPDATE passages SET match_state = ? WHERE client_id = ?`,
		string(models.MatchRejected), clientID)
}

func (r *SQLiteRepository) SetPhoto(ctx context.Context, clientID, path, key string) error {
	return r.exec(ctx, "set photo",
		`UPDATE passages SET photo_path = ?, photo_key = ? WHERE client_id = ?`, path, key, clientID)
}

// exec runs an update that must hit exactly one passage.
func (r *SQLiteRepository) exec(ctx context.Context, what, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func nullable(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
