package access

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemory implements Store with in-process concurrency safety. Used by the
// HTTP handler tests and local development without a database.
type InMemory struct {
	mu      sync.RWMutex
	nextID  int64
	users   map[int64]User
	byEmail map[string]int64

	nextPermID int64
	perms      map[string]Permission // key: userID/listID

	refresh map[string]RefreshToken
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:   make(map[int64]User),
		byEmail: make(map[string]int64),
		perms:   make(map[string]Permission),
		refresh: make(map[string]RefreshToken),
	}
}

func permKey(userID int64, listID string) string {
	return fmt.Sprintf("%d/%s", userID, listID)
}

func (s *InMemory) CreateUser(ctx context.Context, email, passwordHash, fullName, role string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return User{}, fmt.Errorf("%w: email %s already registered", ErrConflict, email)
	}
	s.nextID++
	user := User{
		ID:           s.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[user.ID] = user
	s.byEmail[email] = user.ID
	return user, nil
}

func (s *InMemory) FindUser(ctx context.Context, id int64) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *InMemory) FindUserByEmail(ctx context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return s.users[id], nil
}

func (s *InMemory) FindPermission(ctx context.Context, userID int64, listID string) (Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	perm, ok := s.perms[permKey(userID, listID)]
	if !ok {
		return Permission{}, ErrNotFound
	}
	return perm, nil
}

func (s *InMemory) UpsertPermission(ctx context.Context, userID int64, listID string, perm PermType) (Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := permKey(userID, listID)
	if existing, ok := s.perms[key]; ok {
		existing.PermType = perm
		s.perms[key] = existing
		return existing, nil
	}
	s.nextPermID++
	created := Permission{
		ID:        s.nextPermID,
		ListID:    listID,
		UserID:    userID,
		PermType:  perm,
		GrantedAt: time.Now().UTC(),
	}
	s.perms[key] = created
	return created, nil
}

func (s *InMemory) DeletePermissionsByList(ctx context.Context, listID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for key, perm := range s.perms {
		if perm.ListID == listID {
			delete(s.perms, key)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemory) ListIDsForUser(ctx context.Context, userID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, perm := range s.perms {
		if perm.UserID == userID {
			out = append(out, perm.ListID)
		}
	}
	return out, nil
}

func (s *InMemory) CreateRefreshToken(ctx context.Context, tok *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.CreatedAt.IsZero() {
		tok.CreatedAt = time.Now().UTC()
	}
	s.refresh[tok.ID] = *tok
	return nil
}

func (s *InMemory) FindRefreshToken(ctx context.Context, id string) (RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.refresh[id]
	if !ok {
		return RefreshToken{}, ErrNotFound
	}
	return tok, nil
}

func (s *InMemory) RevokeRefreshToken(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.refresh[id]
	if !ok {
		return ErrNotFound
	}
	tok.Revoked = true
	s.refresh[id] = tok
	return nil
}

var _ Store = (*InMemory)(nil)
