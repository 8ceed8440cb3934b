package category

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/category/entity"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/database"
)

var (
	ErrNotFound  = errors.New("category not found")
	ErrDuplicate = errors.New("category already exists")
)

type Repository interface {
	List(ctx context.Context, userID int64) ([]entity.Category, error)
	Get(ctx context.Context, userID, id int64) (*entity.Category, error)
	Create(ctx context.Context, c *entity.Category) error
	Update(ctx context.Context, c *entity.Category) (bool, error)
	Delete(ctx context.Context, userID, id int64) (bool, error)
}

type Service struct {
	repo Repository
}

func NewService(r Repository) *Service { return &Service{repo: r} }

func (s *Service) List(ctx context.Context, userID int64) ([]entity.Category, error) {
	return s.repo.List(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID, id int64) (*entity.Category, error) {
	c, err := s.repo.Get(ctx, userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *Service) Create(ctx context.Context, userID int64, name string) (*entity.Category, error) {
	c := &entity.Category{UserID: userID, Name: strings.TrimSpace(name)}
	if err := s.repo.Create(ctx, c); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicate, c.Name)
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) Rename(ctx context.Context, userID, id int64, name string) (*entity.Category, error) {
	c := &entity.Category{ID: id, UserID: userID, Name: strings.TrimSpace(name)}
	ok, err := s.repo.Update(ctx, c)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicate, c.Name)
		}
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// Delete removes the category together with its expenses and transactions.
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
