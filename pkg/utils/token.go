package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the identity claims carried by an access token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and parses HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(cfg JWTConfig) (*TokenIssuer, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is not configured")
	}
	ttl := time.Duration(cfg.ExpiryHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(cfg.Secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for userID and its expiry.
func (t *TokenIssuer) Issue(userID uuid.UUID, role string) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates token and returns the caller it identifies.
func (t *TokenIssuer) Parse(token string) (Actor, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return Actor{}, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Actor{}, errors.New("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Actor{}, fmt.Errorf("invalid token subject: %w", err)
	}
	if claims.Role == "" {
		return Actor{}, errors.New("token has no role")
	}

	return Actor{UserID: userID, Role: claims.Role}, nil
}
