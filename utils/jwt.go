package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yatube/yatube/config"
)

const tokenIssuer = "yatube"

var ErrInvalidToken = errors.New("invalid token")

// Claims are carried by API bearer tokens. The registered ID (jti) is what logout revokes.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Expiry returns when the token stops being valid, or fallback if it carries no exp.
func (c *Claims) Expiry(fallback time.Time) time.Time {
	if c.ExpiresAt == nil {
		return fallback
	}
	return c.ExpiresAt.Time
}

// GenerateToken signs an HS256 token for the user valid for ttl.
func GenerateToken(userID uint, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey())
}

// ParseToken verifies signature, issuer and expiry and returns the claims.
func ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return signingKey(), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func signingKey() []byte {
	return []byte(config.Get().SecretKey)
}
