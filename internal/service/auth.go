package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmhlko/post-feed/internal/config"
	"github.com/mmhlko/post-feed/internal/model"
	"golang.org/x/crypto/bcrypt"
)

var passwordHashCost = bcrypt.DefaultCost

// credentialStore returns (nil, nil) when a user does not exist.
type credentialStore interface {
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
}

// refreshSlotStore holds at most one refresh hash per user.
type refreshSlotStore interface {
	GetRefreshHash(ctx context.Context, userID string) (string, bool, error)
	// UpdateRefreshHash overwrites the slot; a nil hash clears it.
	UpdateRefreshHash(ctx context.Context, userID string, hash *string) error
	// SwapRefreshHash replaces the slot only while it still holds expected.
	SwapRefreshHash(ctx context.Context, userID, expected string, next *string) (bool, error)
}

type AuthService struct {
	users  credentialStore
	slots  refreshSlotStore
	tokens *TokenService
	logger *slog.Logger
	// dummyHash keeps login timing flat when the email is unknown.
	dummyHash []byte
}

func NewAuthService(users credentialStore, slots refreshSlotStore, tokens *TokenService, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("post-feed-dummy-password"), passwordHashCost)
	return &AuthService{
		users:     users,
		slots:     slots,
		tokens:    tokens,
		logger:    logger,
		dummyHash: dummy,
	}
}

// NewTokenServiceFromConfig parses TTLs and secrets from the auth config.
func NewTokenServiceFromConfig(cfg config.AuthConfig) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("%w: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required", ErrMisconfigured)
	}

	accessTTL, err := time.ParseDuration(cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JWT_ACCESS_TTL", ErrMisconfigured)
	}

	refreshTTL, err := time.ParseDuration(cfg.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JWT_REFRESH_TTL", ErrMisconfigured)
	}

	return NewTokenService(cfg.AccessSecret, cfg.RefreshSecret, accessTTL, refreshTTL)
}

func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (*model.TokenPair, error) {
	email := strings.TrimSpace(req.Email)
	if err := validateCredentials(email, req.Password); err != nil {
		return nil, err
	}

	existing, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrConflict
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), passwordHashCost)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, &model.User{
		Email:        email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, ErrConflict) || isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}

	pair, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user signed up", "user_id", user.ID)
	return pair, nil
}

// Login answers ErrUnauthorized for both an unknown email and a wrong
// password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.TokenPair, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrUnauthorized
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.logger.Info("login rejected")
		return nil, ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login rejected", "user_id", user.ID)
		return nil, ErrUnauthorized
	}

	return s.startSession(ctx, user)
}

// VerifyRefreshToken checks the refresh token signature and type.
func (s *AuthService) VerifyRefreshToken(token string) (*TokenClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrAccessDenied
	}
	claims, err := s.tokens.VerifyRefresh(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	return claims, nil
}

// Refresh exchanges a signature-valid refresh token for a new pair. The
// stored hash is replaced with compare-and-swap, so of two concurrent
// refreshes with the same token only one wins.
func (s *AuthService) Refresh(ctx context.Context, userID, presented string) (*model.TokenPair, error) {
	if userID == "" || presented == "" {
		return nil, ErrAccessDenied
	}

	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrAccessDenied
	}

	stored, ok, err := s.slots.GetRefreshHash(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccessDenied
	}

	if !matchRefreshHash(stored, presented) {
		// stale or replayed token ends the session
		if _, err := s.slots.SwapRefreshHash(ctx, userID, stored, nil); err != nil {
			return nil, err
		}
		s.logger.Warn("refresh token reuse detected, session cleared", "user_id", userID)
		return nil, ErrAccessDenied
	}

	access, refresh, err := s.tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	next, err := hashRefreshToken(refresh)
	if err != nil {
		return nil, err
	}

	swapped, err := s.slots.SwapRefreshHash(ctx, userID, stored, &next)
	if err != nil {
		return nil, err
	}
	if !swapped {
		s.logger.Info("concurrent refresh lost", "user_id", userID)
		return nil, ErrAccessDenied
	}

	return &model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout clears the refresh slot. Calling it without a session is a no-op.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.slots.UpdateRefreshHash(ctx, userID, nil); err != nil {
		return err
	}
	s.logger.Info("user logged out", "user_id", userID)
	return nil
}

// AuthenticateAccess validates a bearer access token.
func (s *AuthService) AuthenticateAccess(token string) (*model.AuthUser, error) {
	claims, err := s.tokens.VerifyAccess(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return &model.AuthUser{ID: claims.UserID, Email: claims.Email}, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*model.Profile, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	profile := user.Profile()
	return &profile, nil
}

func (s *AuthService) startSession(ctx context.Context, user *model.User) (*model.TokenPair, error) {
	access, refresh, err := s.tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	hash, err := hashRefreshToken(refresh)
	if err != nil {
		return nil, err
	}
	if err := s.slots.UpdateRefreshHash(ctx, user.ID, &hash); err != nil {
		return nil, err
	}
	return &model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func validateCredentials(email, password string) error {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t\r\n") {
		return ErrInvalidInput
	}
	if password == "" || len(password) > 128 {
		return ErrInvalidInput
	}
	return nil
}

// bcrypt reads at most 72 bytes, and JWTs share long headers, so the
// token is reduced to its sha256 digest first.
func refreshDigest(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return []byte(base64.RawURLEncoding.EncodeToString(sum[:]))
}

func hashRefreshToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(refreshDigest(token), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func matchRefreshHash(stored, token string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), refreshDigest(token)) == nil
}
