package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yourname/inkjournal/internal"
)

// Claims mirrors the tokens issued by the journal's auth routes.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// LocalAuthProvider verifies HS256 tokens with a shared secret.
type LocalAuthProvider struct {
	secret []byte
	logger internal.Logger
}

func NewLocalAuthProvider(secret string, logger internal.Logger) *LocalAuthProvider {
	return &LocalAuthProvider{secret: []byte(secret), logger: logger}
}

func (a *LocalAuthProvider) Resolve(_ context.Context, token string) (Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		a.logger.Debugf("auth: token rejected: %v", err)
		return Anonymous(), fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return Anonymous(), fmt.Errorf("%w: missing userId claim", ErrInvalidToken)
	}
	return Identified(claims.UserID), nil
}

var _ Provider = (*LocalAuthProvider)(nil)
