package syncqueue

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

const columns = `client_id, status, attempts, last_attempt_at, last_error, sms_sent, created_at`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(r rowScanner) (*models.QueueItem, error) {
	var (
		it          models.QueueItem
		status      string
		lastAttempt sql.NullInt64
		createdAt   int64
	)
	if err := r.Scan(&it.ClientID, &status, &it.Attempts, &lastAttempt, &it.LastError, &it.SMSSent, &createdAt); err != nil {
		return nil, err
	}
	it.Status = models.QueueStatus(status)
	it.CreatedAt = time.UnixMilli(createdAt).UTC()
	if lastAttempt.Valid {
		at := time.UnixMilli(lastAttempt.Int64).UTC()
		it.LastAttemptAt = &at
	}
	return &it, nil
}

func (r *SQLiteRepository) queryItems(ctx context.Context, query string, args ...any) ([]*models.QueueItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync queue: %w", err)
	}
	defer rows.Close()

	var result []*models.QueueItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, clientID string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sync_queue (client_id, status, created_at) VALUES (?, ?, ?)`,
		clientID, string(models.QueuePending), now.UnixMilli())
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrDuplicate
		}
		return fmt.Errorf("failed to enqueue: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, clientID string) (*models.QueueItem, error) {
	it, err := scanItem(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM sync_queue WHERE client_id = ?`, clientID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue item: %w", err)
	}
	return it, nil
}

func (r *SQLiteRepository) ClaimPending(ctx context.Context, limit int) ([]*models.QueueItem, error) {
	items, err := r.queryItems(ctx, `UPDATE sync_queue SET status = ?
		WHERE client_id IN (
			SELECT client_id FROM sync_queue WHERE status = ? ORDER BY created_at, client_id LIMIT ?)
		RETURNING `+columns, string(models.QueueInFlight), string(models.QueuePending), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending: %w", err)
	}
	return items, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, clientID string, now time.Time) error {
	return r.transition(ctx, "mark synced", `UPDATE sync_queue SET status = ?, last_attempt_at = ?, last_error = ''
		WHERE client_id = ? AND status = ?`,
		string(models.QueueSynced), now.UnixMilli(), clientID, string(models.QueueInFlight))
}

func (r *SQLiteRepository) MarkRetry(ctx context.Context, clientID string, now time.Time, reason string, maxAttempts int) (models.QueueStatus, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `UPDATE sync_queue
		SET attempts = attempts + 1,
			last_attempt_at = ?,
			last_error = ?,
			status = CASE WHEN attempts + 1 >= ? THEN ? ELSE ? END
		WHERE client_id = ? AND status = ?
		RETURNING status`,
		now.UnixMilli(), reason, maxAttempts, string(models.QueueFailed), string(models.QueuePending),
		clientID, string(models.QueueInFlight)).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrorNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to record attempt: %w", err)
	}
	return models.QueueStatus(status), nil
}

func (r *SQLiteRepository) Release(ctx context.Context, clientID string) error {
	return r.transition(ctx, "release", `UPDATE sync_queue SET status = ? WHERE client_id = ? AND status = ?`,
		string(models.QueuePending), clientID, string(models.QueueInFlight))
}

func (r *SQLiteRepository) ResetInFlight(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE sync_queue SET status = ? WHERE status = ?`,
		string(models.QueuePending), string(models.QueueInFlight))
	if err != nil {
		return 0, fmt.Errorf("failed to reset in-flight items: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) ListSMSEligible(ctx context.Context, pendingBefore time.Time) ([]*models.QueueItem, error) {
	return r.queryItems(ctx, `SELECT `+columns+` FROM sync_queue
		WHERE sms_sent = 0 AND (status = ? OR (status = ? AND created_at <= ?))
		ORDER BY created_at, client_id`,
		string(models.QueueFailed), string(models.QueuePending), pendingBefore.UnixMilli())
}

func (r *SQLiteRepository) MarkSMSSent(ctx context.Context, clientID string) error {
	return r.transition(ctx, "mark sms sent", `UPDATE sync_queue SET sms_sent = 1 WHERE client_id = ?`, clientID)
}

func (r *SQLiteRepository) Counts(ctx context.Context) (map[models.QueueStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count sync queue: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.QueueStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.QueueStatus(status)] = n
	}
	return counts, rows.Err()
}

// transition runs an update that must hit exactly one item.
func (r *SQLiteRepository) transition(ctx context.Context, what, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return common.ErrorNotFound
	}
	return nil
}
