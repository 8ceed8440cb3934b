package expense

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/expense/entity"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/database"
)

var (
	ErrNotFound         = errors.New("expense not found")
	ErrDuplicate        = errors.New("expense already exists in this category")
	ErrCategoryNotFound = errors.New("category not found for this user")
)

type Repository interface {
	List(ctx context.Context, userID, categoryID int64) ([]entity.Expense, error)
	Get(ctx context.Context, userID, id int64) (*entity.Expense, error)
	Create(ctx context.Context, e *entity.Expense) error
	Update(ctx context.Context, e *entity.Expense) (bool, error)
	Delete(ctx context.Context, userID, id int64) (bool, error)
}

// Categories answers ownership of a category id.
type Categories interface {
	Exists(ctx context.Context, userID, id int64) (bool, error)
}

type Service struct {
	repo       Repository
	categories Categories
}

func NewService(r Repository, categories Categories) *Service {
	return &Service{repo: r, categories: categories}
}

func (s *Service) List(ctx context.Context, userID, categoryID int64) ([]entity.Expense, error) {
	return s.repo.List(ctx, userID, categoryID)
}

func (s *Service) Get(ctx context.Context, userID, id int64) (*entity.Expense, error) {
	e, err := s.repo.Get(ctx, userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

func (s *Service) ownCategory(ctx context.Context, userID, categoryID int64) error {
	ok, err := s.categories.Exists(ctx, userID, categoryID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrCategoryNotFound, categoryID)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, userID, categoryID int64, name string) (*entity.Expense, error) {
	if err := s.ownCategory(ctx, userID, categoryID); err != nil {
		return nil, err
	}
	e := &entity.Expense{UserID: userID, CategoryID: categoryID, Name: strings.TrimSpace(name)}
	if err := s.repo.Create(ctx, e); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return e, nil
}

// Patch holds the optional fields of an update.
type Patch struct {
	Name       *string
	CategoryID *int64
}

func (s *Service) Update(ctx context.Context, userID, id int64, p Patch) (*entity.Expense, error) {
	e, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		e.Name = strings.TrimSpace(*p.Name)
	}
	if p.CategoryID != nil && *p.CategoryID != e.CategoryID {
		if err := s.ownCategory(ctx, userID, *p.CategoryID); err != nil {
			return nil, err
		}
		e.CategoryID = *p.CategoryID
	}
	ok, err := s.repo.Update(ctx, e)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
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
