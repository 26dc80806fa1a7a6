package checkposts

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

func (r *PostgresRepository) Create(ctx context.Context, c *models.Checkpost) (*models.Checkpost, error) {
	query := `
		INSERT INTO checkposts (code, name, segment_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	out := *c
	if err := r.db.QueryRowContext(ctx, query, c.Code, c.Name, c.SegmentID).Scan(&out.ID); err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrDuplicate
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Checkpost, error) {
	query := `
		SELECT id, code, name, segment_id
		FROM checkposts
		WHERE id = $1
	`
	return r.one(ctx, query, id)
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*models.Checkpost, error) {
	query := `
		SELECT id, code, name, segment_id
		FROM checkposts
		WHERE code = $1
	`
	return r.one(ctx, query, code)
}

func (r *PostgresRepository) one(ctx context.Context, query string, arg any) (*models.Checkpost, error) {
	c := &models.Checkpost{}
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.Code, &c.Name, &c.SegmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}
