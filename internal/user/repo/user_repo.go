package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/user/entity"
)

// UserRepo provides data access for users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS citext;
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  name VARCHAR(100) NOT NULL,
  email CITEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role VARCHAR(20) NOT NULL DEFAULT 'user',
  is_active BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const userColumns = `id, name, email, password_hash, role, is_active, created_at, updated_at`

// Create inserts a new user row and fills in the generated columns.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO users (name, email, password_hash, role, is_active)
		VALUES (:name, :email, :password_hash, :role, :is_active)
		RETURNING id, created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, q, u)
	if err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return errors.New("no id returned")
	}
	return rows.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

// GetByEmail returns a user matched by email (case-insensitive due to citext) or sql.ErrNoRows.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email=$1`, email); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a full user row or sql.ErrNoRows.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdatePassword stores a new hash, used when the hashing cost changes.
func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, id, hash)
	return err
}

// Promote gives an existing user role, reactivates it and replaces its hash.
func (r *UserRepo) Promote(ctx context.Context, id int64, role, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role=$2, is_active=TRUE, password_hash=$3, updated_at=NOW() WHERE id=$1`, id, role, hash)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List pages through users ordered by id.
func (r *UserRepo) List(ctx context.Context, skip, limit int) ([]entity.User, error) {
	out := []entity.User{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+userColumns+` FROM users ORDER BY id OFFSET $1 LIMIT $2`, skip, limit)
	return out, err
}

// Update writes every mutable column of u and refreshes UpdatedAt. A missing
// row is sql.ErrNoRows.
func (r *UserRepo) Update(ctx context.Context, u *entity.User) error {
	const q = `UPDATE users SET name=$2, email=$3, password_hash=$4, role=$5, is_active=$6, updated_at=NOW()
		WHERE id=$1 RETURNING updated_at`
	return r.db.QueryRowxContext(ctx, q, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.IsActive).Scan(&u.UpdatedAt)
}

// Delete removes a user; owned rows go with it through ON DELETE CASCADE.
func (r *UserRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
