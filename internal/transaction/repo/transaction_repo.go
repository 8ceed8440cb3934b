package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/transaction/entity"
)

type TransactionRepo struct {
	db *sqlx.DB
}

func NewTransactionRepo(db *sqlx.DB) *TransactionRepo { return &TransactionRepo{db: db} }

func (r *TransactionRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS transactions (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  expense_id BIGINT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
  amount NUMERIC(10,2) NOT NULL CHECK (amount > 0),
  description TEXT,
  transaction_date DATE NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, transaction_date DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_expense ON transactions(expense_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const txColumns = `t.id, t.user_id, t.expense_id, t.amount, t.description, t.transaction_date, t.created_at`

// List returns the user's transactions, newest first.
func (r *TransactionRepo) List(ctx context.Context, userID int64, f entity.Filter) ([]entity.Transaction, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + txColumns + ` FROM transactions t`)
	if f.CategoryID > 0 {
		b.WriteString(` JOIN expenses e ON e.id = t.expense_id`)
	}
	conds := []string{"t.user_id = ?"}
	args := []any{userID}
	if f.ExpenseID > 0 {
		conds = append(conds, "t.expense_id = ?")
		args = append(args, f.ExpenseID)
	}
	if f.CategoryID > 0 {
		conds = append(conds, "e.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.StartDate != nil {
		conds = append(conds, "t.transaction_date >= ?")
		args = append(args, *f.StartDate)
	}
	if f.EndDate != nil {
		conds = append(conds, "t.transaction_date <= ?")
		args = append(args, *f.EndDate)
	}
	b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	b.WriteString(" ORDER BY t.transaction_date DESC, t.id DESC")
	fmt.Fprintf(&b, " OFFSET %d LIMIT %d", f.Skip, f.Limit)

	out := []entity.Transaction{}
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(b.String()), args...); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the transaction or sql.ErrNoRows.
func (r *TransactionRepo) Get(ctx context.Context, userID, id int64) (*entity.Transaction, error) {
	var t entity.Transaction
	q := `SELECT ` + txColumns + ` FROM transactions t WHERE t.id=$1 AND t.user_id=$2`
	if err := r.db.GetContext(ctx, &t, q, id, userID); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepo) Create(ctx context.Context, t *entity.Transaction) error {
	const q = `INSERT INTO transactions (user_id, expense_id, amount, description, transaction_date)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, amount, created_at`
	return r.db.QueryRowxContext(ctx, q, t.UserID, t.ExpenseID, t.Amount, t.Description, t.TransactionDate).
		Scan(&t.ID, &t.Amount, &t.CreatedAt)
}

func (r *TransactionRepo) Update(ctx context.Context, t *entity.Transaction) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET amount=$3, description=$4, transaction_date=$5 WHERE id=$1 AND user_id=$2`,
		t.ID, t.UserID, t.Amount, t.Description, t.TransactionDate)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *TransactionRepo) Delete(ctx context.Context, userID, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
