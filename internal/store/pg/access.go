package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"tasknest.org/internal/access"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

var _ access.Store = (*Store)(nil)

func (s *Store) CreateUser(ctx context.Context, email, passwordHash, fullName, role string) (access.User, error) {
	if s.db == nil {
		return access.User{}, errors.New("database connection unavailable")
	}
	var user access.User
	row := s.db.QueryRowContext(ctx, `
		insert into users (email, password_hash, full_name, role)
		values ($1, $2, $3, $4)
		returning id, email, password_hash, full_name, role, created_at
	`, email, passwordHash, fullName, role)
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.Role, &user.CreatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return access.User{}, access.ErrConflict
		}
		return access.User{}, err
	}
	return user, nil
}

func (s *Store) FindUser(ctx context.Context, id int64) (access.User, error) {
	if s.db == nil {
		return access.User{}, errors.New("database connection unavailable")
	}
	var user access.User
	err := s.db.QueryRowContext(ctx, `
		select id, email, password_hash, full_name, role, created_at
		from users
		where id = $1
	`, id).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.Role, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return access.User{}, access.ErrNotFound
	}
	if err != nil {
		return access.User{}, err
	}
	return user, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (access.User, error) {
	if s.db == nil {
		return access.User{}, errors.New("database connection unavailable")
	}
	var user access.User
	err := s.db.QueryRowContext(ctx, `
		select id, email, password_hash, full_name, role, created_at
		from users
		where email = $1
	`, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.Role, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return access.User{}, access.ErrNotFound
	}
	if err != nil {
		return access.User{}, err
	}
	return user, nil
}

func (s *Store) FindPermission(ctx context.Context, userID int64, listID string) (access.Permission, error) {
	if s.db == nil {
		return access.Permission{}, errors.New("database connection unavailable")
	}
	var perm access.Permission
	err := s.db.QueryRowContext(ctx, `
		select id, list_id, user_id, perm_type, granted_at
		from permissions
		where user_id = $1 and list_id = $2
	`, userID, listID).Scan(&perm.ID, &perm.ListID, &perm.UserID, &perm.PermType, &perm.GrantedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return access.Permission{}, access.ErrNotFound
	}
	if err != nil {
		return access.Permission{}, err
	}
	return perm, nil
}

// UpsertPermission converges concurrent grants for the same (user, list)
// pair onto one row via the unique constraint.
func (s *Store) UpsertPermission(ctx context.Context, userID int64, listID string, perm access.PermType) (access.Permission, error) {
	if s.db == nil {
		return access.Permission{}, errors.New("database connection unavailable")
	}
	var out access.Permission
	row := s.db.QueryRowContext(ctx, `
		insert into permissions (list_id, user_id, perm_type)
		values ($1, $2, $3)
		on conflict (user_id, list_id) do update
		set perm_type = excluded.perm_type, granted_at = now()
		returning id, list_id, user_id, perm_type, granted_at
	`, listID, userID, string(perm))
	if err := row.Scan(&out.ID, &out.ListID, &out.UserID, &out.PermType, &out.GrantedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return access.Permission{}, access.ErrNotFound
		}
		return access.Permission{}, err
	}
	return out, nil
}

func (s *Store) DeletePermissionsByList(ctx context.Context, listID string) (int64, error) {
	if s.db == nil {
		return 0, errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `delete from permissions where list_id = $1`, listID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) ListIDsForUser(ctx context.Context, userID int64) ([]string, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select list_id
		from permissions
		where user_id = $1
		order by granted_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listIDs []string
	for rows.Next() {
		var listID string
		if err := rows.Scan(&listID); err != nil {
			return nil, err
		}
		listIDs = append(listIDs, listID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return listIDs, nil
}

func (s *Store) CreateRefreshToken(ctx context.Context, tok *access.RefreshToken) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `
		insert into refresh_tokens (id, user_id, token_hash, expires_at, created_at, revoked)
		values ($1, $2, $3, $4, $5, $6)
	`, tok.ID, tok.UserID, tok.TokenHash, tok.ExpiresAt, tok.CreatedAt, tok.Revoked)
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return access.ErrConflict
		case pgErrForeignKeyViolation:
			return access.ErrNotFound
		}
	}
	return err
}

func (s *Store) FindRefreshToken(ctx context.Context, id string) (access.RefreshToken, error) {
	if s.db == nil {
		return access.RefreshToken{}, errors.New("database connection unavailable")
	}
	var tok access.RefreshToken
	err := s.db.QueryRowContext(ctx, `
		select id, user_id, token_hash, expires_at, created_at, revoked
		from refresh_tokens
		where id = $1
	`, id).Scan(&tok.ID, &tok.UserID, &tok.TokenHash, &tok.ExpiresAt, &tok.CreatedAt, &tok.Revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return access.RefreshToken{}, access.ErrNotFound
	}
	if err != nil {
		return access.RefreshToken{}, err
	}
	return tok, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `update refresh_tokens set revoked = true where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return access.ErrNotFound
	}
	return nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
