package rangers

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

func (r *PostgresRepository) Create(ctx context.Context, rg *models.Ranger) (*models.Ranger, error) {
	query := `
		INSERT INTO rangers (name, phone, checkpost_id, salt, pin_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	out := *rg
	if err := r.db.QueryRowContext(ctx, query, rg.Name, rg.Phone, rg.CheckpostID, rg.Salt, rg.PinHash).
		Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Ranger, error) {
	query := `
		SELECT id, name, phone, checkpost_id, salt, pin_hash, created_at
		FROM rangers
		WHERE id = $1
	`
	return r.one(ctx, query, id)
}

func (r *PostgresRepository) FindByPhoneSuffix(ctx context.Context, checkpostID int64, suffix string) (*models.Ranger, error) {
	query := `
		SELECT id, name, phone, checkpost_id, salt, pin_hash, created_at
		FROM rangers
		WHERE checkpost_id = $1 AND phone LIKE '%' || $2
		ORDER BY id
		LIMIT 1
	`
	return r.one(ctx, query, checkpostID, suffix)
}

func (r *PostgresRepository) one(ctx context.Context, query string, args ...any) (*models.Ranger, error) {
	rg := &models.Ranger{}
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&rg.ID, &rg.Name, &rg.Phone, &rg.CheckpostID, &rg.Salt, &rg.PinHash, &rg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rg, nil
}
