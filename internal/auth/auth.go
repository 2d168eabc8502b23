// Package auth issues and validates the bearer tokens that guard algorithm writes.
package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Validation errors. Every rejected token maps to one of these; the
// underlying jwt error is not exposed to callers.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims carries the author id of the caller. Subject repeats UserID in
// decimal so the token is readable by generic JWT tooling.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"uid"`
}

// TokenService mints and checks HS256 tokens for one issuer.
type TokenService struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

// NewTokenService returns a service signing with key. Tokens it mints
// expire ttl after issue.
func NewTokenService(key []byte, issuer string, ttl time.Duration) *TokenService {
	return &TokenService{key: key, issuer: issuer, ttl: ttl}
}

// GenerateAccessToken mints a token naming userID as the author.
func (s *TokenService) GenerateAccessToken(userID int64) (string, error) {
	issued := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(s.ttl)),
		},
		UserID: userID,
	}).SignedString(s.key)
}

// ValidateAccessToken checks signature, issuer and expiry of tok and
// returns its claims. Tokens without a positive user id, or whose subject
// disagrees with it, are rejected.
func (s *TokenService) ValidateAccessToken(tok string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tok, claims,
		func(*jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, ErrInvalidToken
	case claims.UserID <= 0 || claims.Subject != strconv.FormatInt(claims.UserID, 10):
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractBearerToken returns the credentials of a "Bearer" Authorization
// header, or "" for any other scheme.
func ExtractBearerToken(header string) string {
	scheme, tok, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}
