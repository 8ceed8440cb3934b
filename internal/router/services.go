package router

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/auth"
	authrepo "github.com/ovaphlow/pitchfork/service-finance-go/internal/auth/repo"
	"github.com/ovaphlow/pitchfork/service-finance-go/internal/category"
	categoryrepo "github.com/ovaphlow/pitchfork/service-finance-go/internal/category/repo"
	"github.com/ovaphlow/pitchfork/service-finance-go/internal/expense"
	expenserepo "github.com/ovaphlow/pitchfork/service-finance-go/internal/expense/repo"
	"github.com/ovaphlow/pitchfork/service-finance-go/internal/transaction"
	transactionrepo "github.com/ovaphlow/pitchfork/service-finance-go/internal/transaction/repo"
	"github.com/ovaphlow/pitchfork/service-finance-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-finance-go/internal/user/repo"
)

// Services bundles what the HTTP layer serves.
type Services struct {
	Sessions     *authrepo.SessionRepo
	Auth         *auth.Service
	Users        *user.UserService
	Categories   *category.Service
	Expenses     *expense.Service
	Transactions *transaction.Service
}

type tableEnsurer interface {
	EnsureTable(ctx context.Context) error
}

// NewServices builds every repository and service over db. With ensureSchema
// set the tables are created first, parents before children.
func NewServices(ctx context.Context, db *sqlx.DB, authCfg auth.Config, logger *zap.SugaredLogger, ensureSchema bool) (*Services, error) {
	users := userrepo.NewUserRepo(db)
	sessions := authrepo.NewSessionRepo(db)
	categories := categoryrepo.NewCategoryRepo(db)
	expenses := expenserepo.NewExpenseRepo(db)
	transactions := transactionrepo.NewTransactionRepo(db)

	if ensureSchema {
		for _, t := range []tableEnsurer{users, sessions, categories, expenses, transactions} {
			if err := t.EnsureTable(ctx); err != nil {
				return nil, fmt.Errorf("ensure table %T: %w", t, err)
			}
		}
	}

	tokens, err := auth.NewTokens(authCfg)
	if err != nil {
		return nil, err
	}
	userSvc := user.NewUserService(users, nil)
	return &Services{
		Sessions:     sessions,
		Auth:         auth.NewService(tokens, sessions, userSvc, logger),
		Users:        userSvc,
		Categories:   category.NewService(categories),
		Expenses:     expense.NewService(expenses, categories),
		Transactions: transaction.NewService(transactions, expenses),
	}, nil
}
