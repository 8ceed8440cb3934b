package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/expense/entity"
)

type ExpenseRepo struct {
	db *sqlx.DB
}

func NewExpenseRepo(db *sqlx.DB) *ExpenseRepo { return &ExpenseRepo{db: db} }

func (r *ExpenseRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS expenses (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  category_id BIGINT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
  name VARCHAR(100) NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  UNIQUE (user_id, category_id, name)
);
CREATE INDEX IF NOT EXISTS idx_expenses_category ON expenses(category_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const expenseColumns = `id, user_id, category_id, name, created_at`

// List returns the user's expenses, narrowed to one category when categoryID > 0.
func (r *ExpenseRepo) List(ctx context.Context, userID, categoryID int64) ([]entity.Expense, error) {
	out := []entity.Expense{}
	q := `SELECT ` + expenseColumns + ` FROM expenses WHERE user_id=$1`
	args := []any{userID}
	if categoryID > 0 {
		q += ` AND category_id=$2`
		args = append(args, categoryID)
	}
	q += ` ORDER BY name`
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the expense or sql.ErrNoRows.
func (r *ExpenseRepo) Get(ctx context.Context, userID, id int64) (*entity.Expense, error) {
	var e entity.Expense
	q := `SELECT ` + expenseColumns + ` FROM expenses WHERE id=$1 AND user_id=$2`
	if err := r.db.GetContext(ctx, &e, q, id, userID); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *ExpenseRepo) Exists(ctx context.Context, userID, id int64) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `SELECT EXISTS (SELECT 1 FROM expenses WHERE id=$1 AND user_id=$2)`, id, userID)
	return ok, err
}

func (r *ExpenseRepo) Create(ctx context.Context, e *entity.Expense) error {
	const q = `INSERT INTO expenses (user_id, category_id, name) VALUES (:user_id, :category_id, :name) RETURNING id, created_at`
	rows, err := r.db.NamedQueryContext(ctx, q, e)
	if err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		return rows.Err()
	}
	return rows.Scan(&e.ID, &e.CreatedAt)
}

func (r *ExpenseRepo) Update(ctx context.Context, e *entity.Expense) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET name=$3, category_id=$4 WHERE id=$1 AND user_id=$2`,
		e.ID, e.UserID, e.Name, e.CategoryID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *ExpenseRepo) Delete(ctx context.Context, userID, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
