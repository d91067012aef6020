package access

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tasknest.org/internal/auth"
	"tasknest.org/internal/ids"
)

const (
	defaultAccessTTL  = 1 * time.Hour
	defaultRefreshTTL = 24 * time.Hour * 14
)

// Service provides registration, authentication and list-permission checks.
type Service struct {
	store Store
	now   func() time.Time

	accessTTL  time.Duration
	refreshTTL time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs Service with optional configuration.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("access store is required")
	}
	svc := &Service{
		store:      store,
		now:        time.Now,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register creates a new USER account. A duplicate email fails with ErrConflict.
func (s *Service) Register(ctx context.Context, email, password, fullName string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	fullName = strings.TrimSpace(fullName)
	if len(fullName) < 2 || len(fullName) > 100 {
		return User{}, fmt.Errorf("%w: full_name must be between 2 and 100 characters", ErrInvalidInput)
	}
	if err := checkPasswordStrength(password); err != nil {
		return User{}, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	return s.store.CreateUser(ctx, email, hash, fullName, RoleUser)
}

// Login verifies credentials. An unknown email and a wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return User{}, ErrUnauthorized
	}
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrUnauthorized
		}
		return User{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return User{}, ErrUnauthorized
	}
	return user, nil
}

// GetUser resolves a user by the string form of its identifier.
func (s *Service) GetUser(ctx context.Context, userID string) (User, error) {
	id, err := parseUserID(userID)
	if err != nil {
		return User{}, err
	}
	return s.store.FindUser(ctx, id)
}

// CheckPermission fails with ErrForbidden unless userID holds a grant on
// listID satisfying the required level. EDIT satisfies a VIEW requirement.
func (s *Service) CheckPermission(ctx context.Context, userID, listID string, required PermType) error {
	id, err := parseUserID(userID)
	if err != nil {
		return err
	}
	listID = strings.TrimSpace(listID)
	if listID == "" {
		return fmt.Errorf("%w: list_id is required", ErrInvalidInput)
	}
	perm, err := s.store.FindPermission(ctx, id, listID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: no %s permission for list %s", ErrForbidden, required, listID)
		}
		return err
	}
	if !perm.PermType.Satisfies(required) {
		return fmt.Errorf("%w: no %s permission for list %s", ErrForbidden, required, listID)
	}
	return nil
}

// GrantPermission upserts a grant; a repeated grant for the same (user, list)
// pair updates the permission type in place. Unknown users fail with ErrNotFound.
func (s *Service) GrantPermission(ctx context.Context, userID, listID string, perm PermType) (Permission, error) {
	id, err := parseUserID(userID)
	if err != nil {
		return Permission{}, err
	}
	listID = strings.TrimSpace(listID)
	if listID == "" {
		return Permission{}, fmt.Errorf("%w: list_id is required", ErrInvalidInput)
	}
	if perm != PermView && perm != PermEdit {
		return Permission{}, fmt.Errorf("%w: unknown permission type %q", ErrInvalidInput, perm)
	}
	if _, err := s.store.FindUser(ctx, id); err != nil {
		return Permission{}, err
	}
	return s.store.UpsertPermission(ctx, id, listID, perm)
}

// RevokePermissionsForList removes every grant referencing listID and
// returns the number removed. Zero removals is not an error.
func (s *Service) RevokePermissionsForList(ctx context.Context, listID string) (int64, error) {
	listID = strings.TrimSpace(listID)
	if listID == "" {
		return 0, fmt.Errorf("%w: list_id is required", ErrInvalidInput)
	}
	return s.store.DeletePermissionsByList(ctx, listID)
}

// ListIDsForUser returns the ids of every list the user holds any grant on.
func (s *Service) ListIDsForUser(ctx context.Context, userID string) ([]string, error) {
	id, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	return s.store.ListIDsForUser(ctx, id)
}

// IssueTokenPair mints a fresh access token and a persisted refresh token.
func (s *Service) IssueTokenPair(ctx context.Context, user User) (TokenPair, error) {
	now := s.now().UTC()
	accessToken, err := auth.GenerateAccessToken(strconv.FormatInt(user.ID, 10), user.Role, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refreshString, rec, err := s.generateRefreshToken(user.ID, now)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.store.CreateRefreshToken(ctx, rec); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshString,
		AccessExpiresAt:  now.Add(s.accessTTL),
		RefreshExpiresAt: rec.ExpiresAt,
	}, nil
}

// Refresh rotates the refresh token and issues new credentials. A mismatched
// secret revokes the stored record so a stolen id cannot be retried.
func (s *Service) Refresh(ctx context.Context, rawToken string) (TokenPair, User, error) {
	tokenID, tokenSecret, err := splitRefreshToken(rawToken)
	if err != nil {
		return TokenPair{}, User{}, ErrInvalidToken
	}
	record, err := s.store.FindRefreshToken(ctx, tokenID)
	if err != nil {
		return TokenPair{}, User{}, ErrInvalidToken
	}
	if record.Revoked || s.now().After(record.ExpiresAt) {
		return TokenPair{}, User{}, ErrInvalidToken
	}
	if !secureCompareHash(record.TokenHash, tokenSecret) {
		_ = s.store.RevokeRefreshToken(ctx, record.ID)
		return TokenPair{}, User{}, ErrInvalidToken
	}
	user, err := s.store.FindUser(ctx, record.UserID)
	if err != nil {
		return TokenPair{}, User{}, err
	}
	if err := s.store.RevokeRefreshToken(ctx, record.ID); err != nil {
		return TokenPair{}, User{}, err
	}
	pair, err := s.IssueTokenPair(ctx, user)
	if err != nil {
		return TokenPair{}, User{}, err
	}
	return pair, user, nil
}

func (s *Service) generateRefreshToken(userID int64, now time.Time) (string, *RefreshToken, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", nil, err
	}
	tokenSecret := base64.RawURLEncoding.EncodeToString(secretBytes)
	tokenID := ids.New()
	sum := sha256.Sum256([]byte(tokenSecret))
	rec := &RefreshToken{
		ID:        tokenID,
		UserID:    userID,
		TokenHash: hex.EncodeToString(sum[:]),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}
	return tokenID + "." + tokenSecret, rec, nil
}

func splitRefreshToken(raw string) (id, tokenSecret string, err error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New("invalid refresh token format")
	}
	return parts[0], parts[1], nil
}

func secureCompareHash(expectedHash, tokenSecret string) bool {
	sum := sha256.Sum256([]byte(tokenSecret))
	actual := hex.EncodeToString(sum[:])
	if len(expectedHash) != len(actual) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expectedHash), []byte(actual)) == 1
}

func parseUserID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: user_id must be numeric", ErrInvalidInput)
	}
	return id, nil
}
