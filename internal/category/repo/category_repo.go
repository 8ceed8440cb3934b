package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/category/entity"
)

// CategoryRepo stores categories. Every query is scoped by user_id.
type CategoryRepo struct {
	db *sqlx.DB
}

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{db: db} }

func (r *CategoryRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS categories (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  name VARCHAR(100) NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  UNIQUE (user_id, name)
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *CategoryRepo) List(ctx context.Context, userID int64) ([]entity.Category, error) {
	out := []entity.Category{}
	const q = `SELECT id, user_id, name, created_at FROM categories WHERE user_id=$1 ORDER BY name`
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the category or sql.ErrNoRows.
func (r *CategoryRepo) Get(ctx context.Context, userID, id int64) (*entity.Category, error) {
	var c entity.Category
	const q = `SELECT id, user_id, name, created_at FROM categories WHERE id=$1 AND user_id=$2`
	if err := r.db.GetContext(ctx, &c, q, id, userID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepo) Exists(ctx context.Context, userID, id int64) (bool, error) {
	var ok bool
	const q = `SELECT EXISTS (SELECT 1 FROM categories WHERE id=$1 AND user_id=$2)`
	err := r.db.GetContext(ctx, &ok, q, id, userID)
	return ok, err
}

func (r *CategoryRepo) Create(ctx context.Context, c *entity.Category) error {
	const q = `INSERT INTO categories (user_id, name) VALUES ($1, $2) RETURNING id, created_at`
	return r.db.QueryRowxContext(ctx, q, c.UserID, c.Name).Scan(&c.ID, &c.CreatedAt)
}

// Update renames the category; it reports false when no owned row matched.
func (r *CategoryRepo) Update(ctx context.Context, c *entity.Category) (bool, error) {
	const q = `UPDATE categories SET name=$3 WHERE id=$1 AND user_id=$2 RETURNING created_at`
	rows, err := r.db.QueryxContext(ctx, q, c.ID, c.UserID, c.Name)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return false, rows.Err()
	}
	return true, rows.Scan(&c.CreatedAt)
}

func (r *CategoryRepo) Delete(ctx context.Context, userID, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
