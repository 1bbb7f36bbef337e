package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/AndriiLiubov/homework-web-14/internal/auth/domain"
	"github.com/AndriiLiubov/homework-web-14/internal/auth/store"
)

type usersRepo struct {
	db *sql.DB
}

const userColumns = `id, username, email, password_hash, avatar, refresh_token, confirmed, created_at, updated_at`

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, avatar, refresh_token, confirmed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Username,
		u.Email,
		u.PasswordHash,
		mapStringNull(u.Avatar),
		mapOptionalString(u.RefreshToken),
		u.Confirmed,
		u.CreatedAt,
		u.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateRefreshToken(ctx context.Context, email string, token *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = ?, updated_at = ? WHERE email = ?`,
		mapOptionalString(token), time.Now().UTC(), email)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ReplaceRefreshToken is the conditional replace used for rotation: the UPDATE
// only matches when the stored binding still equals current, so two concurrent
// refresh calls cannot both succeed.
func (r *usersRepo) ReplaceRefreshToken(ctx context.Context, email, current, next string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = ?, updated_at = ?
		 WHERE email = ? AND refresh_token = ?`,
		next, time.Now().UTC(), email, current)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrTokenMismatch
	}
	return nil
}

func (r *usersRepo) ConfirmEmail(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET confirmed = 1, updated_at = ? WHERE email = ?`,
		time.Now().UTC(), email)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) UpdateAvatar(ctx context.Context, email, url string) (domain.User, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET avatar = ?, updated_at = ? WHERE email = ?`,
		mapStringNull(url), time.Now().UTC(), email)
	if err != nil {
		return domain.User{}, err
	}
	if err := requireRow(res); err != nil {
		return domain.User{}, err
	}
	return r.GetUserByEmail(ctx, email)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u       domain.User
		avatar  sql.NullString
		refresh sql.NullString
	)
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&avatar,
		&refresh,
		&u.Confirmed,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.Avatar = mapNullString(avatar)
	u.RefreshToken = mapNullStringPtr(refresh)
	return u, nil
}
