package access

import "context"

// Store describes persistence operations required by the access subsystem.
// The permission methods must converge concurrent grants for the same
// (user, list) pair onto a single row.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash, fullName, role string) (User, error)
	FindUser(ctx context.Context, id int64) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)

	FindPermission(ctx context.Context, userID int64, listID string) (Permission, error)
	UpsertPermission(ctx context.Context, userID int64, listID string, perm PermType) (Permission, error)
	DeletePermissionsByList(ctx context.Context, listID string) (int64, error)
	ListIDsForUser(ctx context.Context, userID int64) ([]string, error)

	CreateRefreshToken(ctx context.Context, tok *RefreshToken) error
	FindRefreshToken(ctx context.Context, id string) (RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string) error
}
