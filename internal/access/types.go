package access

import (
	"fmt"
	"strings"
	"time"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// PermType is the two-tier permission level attached to a grant.
type PermType string

const (
	PermView PermType = "VIEW"
	PermEdit PermType = "EDIT"
)

// ParsePermType maps the wire representation onto a PermType.
func ParsePermType(raw string) (PermType, error) {
	switch PermType(strings.TrimSpace(strings.ToUpper(raw))) {
	case PermView:
		return PermView, nil
	case PermEdit:
		return PermEdit, nil
	default:
		return "", fmt.Errorf("%w: unknown permission type %q", ErrInvalidInput, raw)
	}
}

// Satisfies reports whether a held grant meets the required level.
// EDIT is a superset of VIEW; VIEW never satisfies an EDIT requirement.
func (p PermType) Satisfies(required PermType) bool {
	if p == PermEdit {
		return true
	}
	return p == required
}

// User represents a registered account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Permission grants a user a level of access to one list. The list id is a
// soft reference into the document store; neither store enforces it.
type Permission struct {
	ID        int64     `json:"id"`
	ListID    string    `json:"list_id"`
	UserID    int64     `json:"user_id"`
	PermType  PermType  `json:"perm_type"`
	GrantedAt time.Time `json:"granted_at"`
}

// RefreshToken is the persisted half of an opaque refresh credential.
type RefreshToken struct {
	ID        string
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
}

// TokenPair bundles access and refresh tokens with their expirations.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
