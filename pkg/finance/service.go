// Package finance holds the typed calls the UI makes against the finance API.
// Every call goes through the shared apiclient.Client, so bearer injection and
// refresh-on-401 apply uniformly.
package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/apiclient"
)

type Service struct {
	Auth         *Auth
	Categories   *Categories
	Expenses     *Expenses
	Transactions *Transactions
	Users        *Users
}

func New(c *apiclient.Client, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		Auth:         &Auth{client: c, logger: logger},
		Categories:   &Categories{client: c},
		Expenses:     &Expenses{client: c},
		Transactions: &Transactions{client: c},
		Users:        &Users{client: c},
	}
}

type Auth struct {
	client *apiclient.Client
	logger *zap.SugaredLogger
}

// Login exchanges credentials for an access token and stores it.
func (a *Auth) Login(ctx context.Context, email, password string) (string, error) {
	var raw json.RawMessage
	body := map[string]string{"email": email, "password": password}
	if err := a.client.Post(apiclient.WithoutRefresh(ctx), "/auth/login-json", body, &raw); err != nil {
		return "", err
	}
	token := apiclient.TokenFromBody(raw)
	if token == "" {
		return "", fmt.Errorf("login: %w", apiclient.ErrNoTokenInResponse)
	}
	if err := a.client.Store().Set(ctx, token); err != nil {
		return "", fmt.Errorf("login: store token: %w", err)
	}
	return token, nil
}

func (a *Auth) Register(ctx context.Context, in RegisterInput) (*User, error) {
	var u User
	if err := a.client.Post(apiclient.WithoutRefresh(ctx), "/users/register", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout tells the server to revoke the session, then clears the local token.
// The local token is cleared even if the server call fails.
func (a *Auth) Logout(ctx context.Context) error {
	if err := a.client.Post(ctx, "/auth/logout", nil, nil); err != nil {
		a.logger.Debugw("server logout failed", "err", err)
	}
	return a.client.Store().Clear(ctx)
}

func (a *Auth) Me(ctx context.Context) (*User, error) {
	var u User
	if err := a.client.Get(ctx, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Refresh forces a token refresh outside of the 401 path.
func (a *Auth) Refresh(ctx context.Context) (string, error) {
	return a.client.Refresher().Refresh(ctx)
}

type Categories struct{ client *apiclient.Client }

func (c *Categories) List(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.client.Get(ctx, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Categories) Get(ctx context.Context, id int64) (*Category, error) {
	var out Category
	if err := c.client.Get(ctx, "/categories/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Categories) Create(ctx context.Context, name string) (*Category, error) {
	var out Category
	if err := c.client.Post(ctx, "/categories", map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Categories) Update(ctx context.Context, id int64, name string) (*Category, error) {
	var out Category
	if err := c.client.Put(ctx, "/categories/"+strconv.FormatInt(id, 10), map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Categories) Delete(ctx context.Context, id int64) error {
	return c.client.Delete(ctx, "/categories/"+strconv.FormatInt(id, 10), nil)
}

type Expenses struct{ client *apiclient.Client }

// List returns expenses, filtered by category when categoryID > 0.
func (e *Expenses) List(ctx context.Context, categoryID int64) ([]Expense, error) {
	q := url.Values{}
	if categoryID > 0 {
		q.Set("category_id", strconv.FormatInt(categoryID, 10))
	}
	var out []Expense
	if err := e.client.Get(ctx, "/expenses", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Expenses) Create(ctx context.Context, name string, categoryID int64) (*Expense, error) {
	var out Expense
	body := map[string]any{"name": name, "category_id": categoryID}
	if err := e.client.Post(ctx, "/expenses", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Expenses) Get(ctx context.Context, id int64) (*Expense, error) {
	var out Expense
	if err := e.client.Get(ctx, "/expenses/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Expenses) Update(ctx context.Context, id int64, name string, categoryID int64) (*Expense, error) {
	var out Expense
	body := map[string]any{"name": name, "category_id": categoryID}
	if err := e.client.Put(ctx, "/expenses/"+strconv.FormatInt(id, 10), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Expenses) Delete(ctx context.Context, id int64) error {
	return e.client.Delete(ctx, "/expenses/"+strconv.FormatInt(id, 10), nil)
}

type Transactions struct{ client *apiclient.Client }

func (t *Transactions) List(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	var out []Transaction
	if err := t.client.Get(ctx, "/transactions", f.query(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Transactions) Create(ctx context.Context, in TransactionInput) (*Transaction, error) {
	var out Transaction
	if err := t.client.Post(ctx, "/transactions", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *Transactions) Get(ctx context.Context, id int64) (*Transaction, error) {
	var out Transaction
	if err := t.client.Get(ctx, "/transactions/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *Transactions) Update(ctx context.Context, id int64, in TransactionInput) (*Transaction, error) {
	var out Transaction
	if err := t.client.Put(ctx, "/transactions/"+strconv.FormatInt(id, 10), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *Transactions) Delete(ctx context.Context, id int64) error {
	return t.client.Delete(ctx, "/transactions/"+strconv.FormatInt(id, 10), nil)
}

// Users is the admin surface over accounts; the server answers 403 to
// callers without the admin role.
type Users struct{ client *apiclient.Client }

func (u *Users) List(ctx context.Context, skip, limit int) ([]User, error) {
	q := url.Values{}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []User
	if err := u.client.Get(ctx, "/users", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (u *Users) Get(ctx context.Context, id int64) (*User, error) {
	var out User
	if err := u.client.Get(ctx, "/users/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *Users) Update(ctx context.Context, id int64, in UserUpdate) (*User, error) {
	var out User
	if err := u.client.Put(ctx, "/users/"+strconv.FormatInt(id, 10), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *Users) Delete(ctx context.Context, id int64) error {
	return u.client.Delete(ctx, "/users/"+strconv.FormatInt(id, 10), nil)
}

func (f TransactionFilter) query() url.Values {
	q := url.Values{}
	if f.ExpenseID > 0 {
		q.Set("expense_id", strconv.FormatInt(f.ExpenseID, 10))
	}
	if f.CategoryID > 0 {
		q.Set("category_id", strconv.FormatInt(f.CategoryID, 10))
	}
	if f.StartDate != "" {
		q.Set("start_date", f.StartDate)
	}
	if f.EndDate != "" {
		q.Set("end_date", f.EndDate)
	}
	if f.Skip > 0 {
		q.Set("skip", strconv.Itoa(f.Skip))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}
