package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token verification errors.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrMissingSecret  = errors.New("token secret missing")
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type TokenClaims struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	TokenType string `json:"tokenType,omitempty"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 tokens. Access and refresh tokens
// share a claim shape but never a secret.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, ErrMissingSecret
	}
	if accessSecret == refreshSecret {
		return nil, fmt.Errorf("%w: access and refresh secrets must differ", ErrMisconfigured)
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, fmt.Errorf("%w: token ttl must be positive", ErrMisconfigured)
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

// Issue signs claims with secret and sets iat, exp and a fresh jti.
func (s *TokenService) Issue(claims TokenClaims, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrMissingSecret
	}

	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   claims.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (s *TokenService) Verify(tokenStr string, secret []byte) (*TokenClaims, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenMalformed
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

func (s *TokenService) IssuePair(userID, email string) (string, string, error) {
	access, err := s.Issue(TokenClaims{UserID: userID, Email: email, TokenType: TokenTypeAccess}, s.accessSecret, s.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err := s.Issue(TokenClaims{UserID: userID, Email: email, TokenType: TokenTypeRefresh}, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *TokenService) VerifyAccess(tokenStr string) (*TokenClaims, error) {
	return s.verifyTyped(tokenStr, s.accessSecret, TokenTypeAccess)
}

func (s *TokenService) VerifyRefresh(tokenStr string) (*TokenClaims, error) {
	return s.verifyTyped(tokenStr, s.refreshSecret, TokenTypeRefresh)
}

func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

func (s *TokenService) verifyTyped(tokenStr string, secret []byte, tokenType string) (*TokenClaims, error) {
	claims, err := s.Verify(tokenStr, secret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
