package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"fakenews/internal/user"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "fakenews"

var ErrInvalidToken = errors.New("invalid token")

// Claims identify the account a token was issued to. Role is a snapshot from
// login time; demoting a user takes effect on their next login.
type Claims struct {
	UserID   uint      `json:"userId"`
	Username string    `json:"username"`
	Role     user.Role `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool {
	return c.Role == user.RoleAdmin
}

var tokenParser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	jwt.WithIssuer(tokenIssuer),
	jwt.WithExpirationRequired(),
)

// IssueToken signs an HS256 token for u with a fresh jti.
func IssueToken(secret string, u *user.User, lifetime time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatUint(uint64(u.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// VerifyToken checks signature, issuer and expiry. Every failure wraps
// ErrInvalidToken.
func VerifyToken(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := tokenParser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == 0 {
		return nil, fmt.Errorf("%w: no user id", ErrInvalidToken)
	}
	return claims, nil
}
