package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/cryptox"
	"github.com/dmitrijs2005/checkpost/internal/dbx"
	"github.com/dmitrijs2005/checkpost/internal/server/auth"
	"github.com/dmitrijs2005/checkpost/internal/server/config"
	"github.com/dmitrijs2005/checkpost/internal/server/models"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RangerService provides ranger provisioning and authentication:
// - Register: create a ranger with a hashed PIN
// - Login: verify a PIN and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
type RangerService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewRangerService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *RangerService {
	return &RangerService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

const minPinLength = 4

// Register creates a ranger posted at checkpostID.
func (s *RangerService) Register(ctx context.Context, name, phone string, checkpostID int64, pin string) (*models.Ranger, error) {
	name, phone = strings.TrimSpace(name), strings.TrimSpace(phone)
	if name == "" || phone == "" || len(pin) < minPinLength {
		return nil, fmt.Errorf("%w: name, phone and a PIN of at least %d digits are required", common.ErrInvalidPassage, minPinLength)
	}
	if _, err := s.repomanager.Checkposts(s.db).Get(ctx, checkpostID); err != nil {
		return nil, fmt.Errorf("checkpost %d: %w", checkpostID, err)
	}

	salt, err := cryptox.NewSalt()
	if err != nil {
		return nil, common.ErrorInternal
	}
	ranger := &models.Ranger{
		Name:        name,
		Phone:       phone,
		CheckpostID: checkpostID,
		Salt:        salt,
		PinHash:     cryptox.HashPIN([]byte(pin), salt),
	}

	r, err := s.repomanager.Rangers(s.db).Create(ctx, ranger)
	if err != nil {
		return nil, fmt.Errorf("error creating ranger: %w", err)
	}
	return r, nil
}

// Login verifies the PIN of rangerID and, on success, returns a new TokenPair.
func (s *RangerService) Login(ctx context.Context, rangerID int64, pin string) (*TokenPair, error) {
	ranger, err := s.repomanager.Rangers(s.db).Get(ctx, rangerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn the same time as a real check
			cryptox.HashPIN([]byte(pin), make([]byte, cryptox.SaltSize))
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if !cryptox.VerifyPIN([]byte(pin), ranger.Salt, ranger.PinHash) {
		return nil, common.ErrorUnauthorized
	}
	return s.generateTokenPair(ctx, ranger, s.db)
}

// RefreshToken redeems a refresh token and returns a fresh TokenPair. The
// token is consumed even when it turns out to be expired, in which case
// ErrRefreshTokenExpired is returned.
func (s *RangerService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var (
		pair    *TokenPair
		expired bool
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken)
		if err != nil {
			return err
		}
		if token.Expires.Before(time.Now()) {
			expired = true
			return nil
		}
		ranger, err := s.repomanager.Rangers(tx).Get(ctx, token.RangerID)
		if err != nil {
			return fmt.Errorf("error loading ranger: %w", err)
		}
		pair, err = s.generateTokenPair(ctx, ranger, tx)
		return err
	})
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return nil, common.ErrorUnauthorized
	case err != nil:
		return nil, err
	case expired:
		return nil, common.ErrRefreshTokenExpired
	}
	return pair, nil
}

// RevokeSessions signs rangerID out of every device at its next refresh.
func (s *RangerService) RevokeSessions(ctx context.Context, rangerID int64) (int64, error) {
	if _, err := s.repomanager.Rangers(s.db).Get(ctx, rangerID); err != nil {
		return 0, fmt.Errorf("ranger %d: %w", rangerID, err)
	}
	return s.repomanager.RefreshTokens(s.db).RevokeRanger(ctx, rangerID)
}

// PurgeExpiredTokens drops refresh tokens that can no longer be used.
func (s *RangerService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, time.Now())
}

func (s *RangerService) generateTokenPair(ctx context.Context, ranger *models.Ranger, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(auth.Identity{RangerID: ranger.ID, CheckpostID: ranger.CheckpostID},
		s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := cryptox.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	err = s.repomanager.RefreshTokens(tx).Create(ctx, &models.RefreshToken{
		RangerID: ranger.ID,
		Token:    refresh,
		Expires:  time.Now().Add(s.refreshTokenValidityDuration),
	})
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
