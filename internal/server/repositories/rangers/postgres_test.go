package rangers

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cols = []string{"id", "name", "phone", "checkpost_id", "salt", "pin_hash", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+rangers.*RETURNING\s+id,\s*created_at`).
		WithArgs("Asha", "+919800004821", int64(1), []byte("salt"), []byte("hash")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(3), time.Now()))

	got, err := repo.Create(context.Background(), &models.Ranger{Name: "Asha", Phone: "+919800004821", CheckpostID: 1,
		Salt: []byte("salt"), PinHash: []byte("hash")})
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ID)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+rangers`).WillReturnError(errors.New("fk"))
	_, err := repo.Create(context.Background(), &models.Ranger{})
	assert.ErrorContains(t, err, "db error: fk")
}

func TestFindByPhoneSuffix(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)WHERE\s+checkpost_id\s*=\s*\$1\s+AND\s+phone\s+LIKE\s+'%'\s*\|\|\s*\$2`).
		WithArgs(int64(1), "4821").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(3), "Asha", "+919800004821", int64(1), []byte("s"), []byte("h"), time.Now()))

	rg, err := repo.FindByPhoneSuffix(context.Background(), 1, "4821")
	require.NoError(t, err)
	assert.Equal(t, "Asha", rg.Name)

	mock.ExpectQuery(`FROM\s+rangers`).WithArgs(int64(2)).WillReturnError(sql.ErrNoRows)
	_, err = repo.Get(context.Background(), 2)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
