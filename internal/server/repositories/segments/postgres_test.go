package segments

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestCreateAndGet(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+segments.*RETURNING\s+id`).
		WithArgs("Bandipur", 50.0, 40.0, 10.0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	s, err := repo.Create(context.Background(), &models.Segment{Name: "Bandipur", DistanceKm: 50, MaxSpeedKmh: 40, MinSpeedKmh: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(7), s.ID)

	mock.ExpectQuery(`(?s)FROM\s+segments\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "distance_km", "max_speed_kmh", "min_speed_kmh"}).
			AddRow(int64(7), "Bandipur", 50.0, 40.0, 10.0))

	got, err := repo.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 75.0, got.Bounds().MinTravelMinutes())
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+segments`).WithArgs(int64(1)).WillReturnError(sql.ErrNoRows)
	_, err := repo.Get(context.Background(), 1)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
