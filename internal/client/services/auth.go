package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/checkpost/internal/client/client"
	"github.com/dmitrijs2005/checkpost/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/checkpost/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/checkpost/internal/dbx"
	"github.com/dmitrijs2005/checkpost/internal/logging"
)

// AuthService manages the ranger session on the device. The refresh token
// is persisted so a restarted device resumes without asking for the PIN,
// and the ranger id is kept for stamping passages recorded offline.
type AuthService struct {
	client client.Client
	db     *sql.DB
	rm     repomanager.RepositoryManager
	log    logging.Logger
}

func NewAuthService(c client.Client, db *sql.DB, rm repomanager.RepositoryManager, log logging.Logger) *AuthService {
	s := &AuthService{client: c, db: db, rm: rm, log: log.With("module", "auth")}
	c.OnTokens(s.saveRefreshToken)
	return s
}

func (s *AuthService) saveRefreshToken(token string) {
	ctx := context.Background()
	if err := s.rm.Metadata(s.db).SetJSON(ctx, metadata.KeyRefreshToken, token); err != nil {
		s.log.Error(ctx, "persist refresh token", "error", err)
	}
}

// Login authenticates the ranger with the server and remembers them.
func (s *AuthService) Login(ctx context.Context, rangerID int64, pin string) error {
	if err := s.client.Login(ctx, rangerID, pin); err != nil {
		return err
	}
	if err := s.rm.Metadata(s.db).SetJSON(ctx, metadata.KeyRangerID, rangerID); err != nil {
		return fmt.Errorf("persist ranger id: %w", err)
	}
	s.log.Info(ctx, "ranger signed in", "ranger_id", rangerID)
	return nil
}

// Resume restores the session from the saved refresh token. It returns
// client.ErrNoSavedLogin when there is none.
func (s *AuthService) Resume(ctx context.Context) error {
	var token string
	ok, err := s.rm.Metadata(s.db).GetJSON(ctx, metadata.KeyRefreshToken, &token)
	if err != nil {
		return err
	}
	if !ok || token == "" {
		return client.ErrNoSavedLogin
	}
	return s.client.Resume(ctx, token)
}

// RangerID returns the ranger remembered on this device, if any.
func (s *AuthService) RangerID(ctx context.Context) (int64, bool, error) {
	var id int64
	ok, err := s.rm.Metadata(s.db).GetJSON(ctx, metadata.KeyRangerID, &id)
	return id, ok, err
}

// Logout ends the session and forgets the ranger.
func (s *AuthService) Logout(ctx context.Context) error {
	s.client.Logout()
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		meta := s.rm.Metadata(tx)
		if err := meta.Delete(ctx, metadata.KeyRefreshToken); err != nil {
			return err
		}
		return meta.Delete(ctx, metadata.KeyRangerID)
	})
}

func (s *AuthService) LoggedIn() bool {
	return s.client.LoggedIn()
}

func (s *AuthService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
