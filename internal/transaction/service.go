package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/transaction/entity"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

var (
	ErrNotFound        = errors.New("transaction not found")
	ErrExpenseNotFound = errors.New("expense not found for this user")
	ErrInvalidAmount   = errors.New("amount must be a positive decimal with at most 2 places")
	ErrInvalidRange    = errors.New("start_date is after end_date")
)

type Repository interface {
	List(ctx context.Context, userID int64, f entity.Filter) ([]entity.Transaction, error)
	Get(ctx context.Context, userID, id int64) (*entity.Transaction, error)
	Create(ctx context.Context, t *entity.Transaction) error
	Update(ctx context.Context, t *entity.Transaction) (bool, error)
	Delete(ctx context.Context, userID, id int64) (bool, error)
}

// Expenses answers ownership of an expense id.
type Expenses interface {
	Exists(ctx context.Context, userID, id int64) (bool, error)
}

type Service struct {
	repo     Repository
	expenses Expenses
}

func NewService(r Repository, expenses Expenses) *Service {
	return &Service{repo: r, expenses: expenses}
}

// NUMERIC(10,2): eight integer digits, two fractional.
var amountPattern = regexp.MustCompile(`^\d{1,8}(\.\d{1,2})?$`)

// NormalizeAmount validates a decimal amount and renders it with two places.
func NormalizeAmount(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !amountPattern.MatchString(s) {
		return "", ErrInvalidAmount
	}
	whole, frac, _ := strings.Cut(s, ".")
	whole = strings.TrimLeft(whole, "0")
	if whole == "" {
		whole = "0"
	}
	frac = (frac + "00")[:2]
	if whole == "0" && frac == "00" {
		return "", ErrInvalidAmount
	}
	return whole + "." + frac, nil
}

func (s *Service) List(ctx context.Context, userID int64, f entity.Filter) ([]entity.Transaction, error) {
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(f.EndDate.Time) {
		return nil, ErrInvalidRange
	}
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return s.repo.List(ctx, userID, f)
}

func (s *Service) Get(ctx context.Context, userID, id int64) (*entity.Transaction, error) {
	t, err := s.repo.Get(ctx, userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

type Input struct {
	ExpenseID       int64
	Amount          string
	Description     *string
	TransactionDate entity.Date
}

func (s *Service) Create(ctx context.Context, userID int64, in Input) (*entity.Transaction, error) {
	amount, err := NormalizeAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	ok, err := s.expenses.Exists(ctx, userID, in.ExpenseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrExpenseNotFound, in.ExpenseID)
	}
	t := &entity.Transaction{
		UserID:          userID,
		ExpenseID:       in.ExpenseID,
		Amount:          amount,
		Description:     in.Description,
		TransactionDate: in.TransactionDate,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Patch holds the optional fields of an update.
type Patch struct {
	Amount          *string
	Description     *string
	TransactionDate *entity.Date
}

func (s *Service) Update(ctx context.Context, userID, id int64, p Patch) (*entity.Transaction, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.Amount != nil {
		amount, err := NormalizeAmount(*p.Amount)
		if err != nil {
			return nil, err
		}
		t.Amount = amount
	}
	if p.Description != nil {
		t.Description = p.Description
	}
	if p.TransactionDate != nil {
		t.TransactionDate = *p.TransactionDate
	}
	ok, err := s.repo.Update(ctx, t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	ok, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
