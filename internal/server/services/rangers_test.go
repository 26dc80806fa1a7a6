package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/server/auth"
	"github.com/dmitrijs2005/checkpost/internal/server/config"
	"github.com/dmitrijs2005/checkpost/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRangerService(t *testing.T) (*RangerService, *memStore, *fakeRepoManager) {
	t.Helper()
	db, _ := newSQLMockDB(t)
	s := newMemStore()
	s.seedNetwork()
	rm := newFakeRepoManager(s)
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	return NewRangerService(db, rm, cfg), s, rm
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newRangerService(t)
	ctx := context.Background()

	r, err := svc.Register(ctx, "Meena", "+91 90000 04321", 2, "2468")
	require.NoError(t, err)
	assert.NotZero(t, r.ID)
	assert.Len(t, r.Salt, 16)
	assert.NotEqual(t, []byte("2468"), r.PinHash)

	pair, err := svc.Login(ctx, r.ID, "2468")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	id, err := auth.ParseToken(pair.AccessToken, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, auth.Identity{RangerID: r.ID, CheckpostID: 2}, id)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newRangerService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "+91", 1, "2468")
	require.ErrorIs(t, err, common.ErrInvalidPassage)

	_, err = svc.Register(ctx, "Meena", "+91 90000 04321", 1, "12")
	require.ErrorIs(t, err, common.ErrInvalidPassage)

	_, err = svc.Register(ctx, "Meena", "+91 90000 04321", 77, "2468")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLogin_Failures(t *testing.T) {
	svc, _, _ := newRangerService(t)
	ctx := context.Background()

	r, err := svc.Register(ctx, "Meena", "+91 90000 04321", 2, "2468")
	require.NoError(t, err)

	_, err = svc.Login(ctx, r.ID, "0000")
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = svc.Login(ctx, 9999, "2468")
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestLogin_TokenStoreError(t *testing.T) {
	svc, _, rm := newRangerService(t)
	ctx := context.Background()

	r, err := svc.Register(ctx, "Meena", "+91 90000 04321", 2, "2468")
	require.NoError(t, err)

	rm.tokens.createErr = errBoom{}
	_, err = svc.Login(ctx, r.ID, "2468")
	require.ErrorIs(t, err, common.ErrorInternal)
}

func TestRefreshToken_Rotates(t *testing.T) {
	svc, s, _ := newRangerService(t)
	db, mock := newSQLMockDB(t)
	svc.db = db
	mock.ExpectBegin()
	mock.ExpectCommit()

	s.tokens["old"] = &models.RefreshToken{RangerID: 11, Token: "old", Expires: time.Now().Add(time.Minute)}

	pair, err := svc.RefreshToken(context.Background(), "old")
	require.NoError(t, err)
	assert.NotEqual(t, "old", pair.RefreshToken)

	_, stillThere := s.tokens["old"]
	assert.False(t, stillThere)
	_, issued := s.tokens[pair.RefreshToken]
	assert.True(t, issued)

	id, err := auth.ParseToken(pair.AccessToken, []byte("k"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, id.CheckpostID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshToken_Rejects(t *testing.T) {
	svc, s, _ := newRangerService(t)
	db, mock := newSQLMockDB(t)
	svc.db = db
	ctx := context.Background()

	// expired tokens are consumed, unknown ones roll back
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	s.tokens["stale"] = &models.RefreshToken{RangerID: 11, Token: "stale", Expires: time.Now().Add(-time.Minute)}

	_, err := svc.RefreshToken(ctx, "stale")
	require.ErrorIs(t, err, common.ErrRefreshTokenExpired)
	assert.NotContains(t, s.tokens, "stale")

	_, err = svc.RefreshToken(ctx, "unknown")
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshToken_SingleUse(t *testing.T) {
	svc, s, _ := newRangerService(t)
	db, mock := newSQLMockDB(t)
	svc.db = db
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	s.tokens["once"] = &models.RefreshToken{RangerID: 11, Token: "once", Expires: time.Now().Add(time.Minute)}

	_, err := svc.RefreshToken(context.Background(), "once")
	require.NoError(t, err)
	_, err = svc.RefreshToken(context.Background(), "once")
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestRevokeSessions(t *testing.T) {
	svc, s, _ := newRangerService(t)
	ctx := context.Background()

	s.tokens["a"] = &models.RefreshToken{RangerID: 11, Token: "a", Expires: time.Now().Add(time.Hour)}
	s.tokens["b"] = &models.RefreshToken{RangerID: 11, Token: "b", Expires: time.Now().Add(time.Hour)}
	s.tokens["c"] = &models.RefreshToken{RangerID: 12, Token: "c", Expires: time.Now().Add(time.Hour)}

	n, err := svc.RevokeSessions(ctx, 11)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Len(t, s.tokens, 1)

	_, err = svc.RevokeSessions(ctx, 999)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPurgeExpiredTokens(t *testing.T) {
	svc, s, _ := newRangerService(t)
	s.tokens["a"] = &models.RefreshToken{Token: "a", Expires: time.Now().Add(-time.Hour)}
	s.tokens["b"] = &models.RefreshToken{Token: "b", Expires: time.Now().Add(time.Hour)}

	n, err := svc.PurgeExpiredTokens(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Len(t, s.tokens, 1)
}
