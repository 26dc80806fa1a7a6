// Package auth issues and verifies the access tokens carried by devices.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is what an access token vouches for: a ranger and the checkpost
// they are posted at.
type Identity struct {
	RangerID    int64
	CheckpostID int64
}

// Claims are the registered JWT claims plus the ranger identity.
type Claims struct {
	jwt.RegisteredClaims
	RangerID    int64 `json:"rid"`
	CheckpostID int64 `json:"cid"`
}

func GenerateToken(id Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		RangerID:    id.RangerID,
		CheckpostID: id.CheckpostID,
	})
	return token.SignedString(secretKey)
}

// ParseToken verifies tokenString and returns the identity it carries.
// Expired tokens yield common.ErrTokenExpired, anything else that fails
// verification yields an error wrapping common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, common.ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid || claims.RangerID == 0 {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{RangerID: claims.RangerID, CheckpostID: claims.CheckpostID}, nil
}
