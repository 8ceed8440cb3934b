package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/database"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
	NeedsRehash(hash string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) cost() int {
	if b.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return b.Cost
}

func (b BcryptHasher) Hash(pw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), b.cost())
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func (b BcryptHasher) NeedsRehash(hash string) bool {
	c, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false
	}
	return c != b.cost()
}

// Repository is the persistence surface UserService needs.
type Repository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	Promote(ctx context.Context, id int64, role, hash string) error
	List(ctx context.Context, skip, limit int) ([]entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id int64) (bool, error)
}

// UserService orchestrates registration and password authentication.
type UserService struct {
	repo   Repository
	hasher PasswordHasher
}

func NewUserService(r Repository, hasher PasswordHasher) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &UserService{repo: r, hasher: hasher}
}

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrBadCredentials = errors.New("invalid credentials")
	ErrInactive       = errors.New("user account is deactivated")
	ErrEmailTaken     = errors.New("email already registered")
	ErrUserExists     = errors.New("user already exists")
	ErrInvalidRole    = errors.New("unknown role")
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an active user with the default role.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*entity.User, error) {
	email = normalizeEmail(email)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         entity.RoleUser,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		// lost a race with a concurrent registration
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Authenticate checks an email/password pair and returns the user.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	if !u.IsActive {
		return nil, ErrInactive
	}
	if s.hasher.NeedsRehash(u.PasswordHash) {
		if h, err := s.hasher.Hash(password); err == nil {
			_ = s.repo.UpdatePassword(ctx, u.ID, h)
		}
	}
	return u, nil
}

// GetByID loads a user, mapping a missing row to ErrUserNotFound.
func (s *UserService) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// CreateAdmin creates an active admin account. An existing account with the
// same email is left alone unless force is set, in which case it is promoted
// to admin, reactivated and given the new password. upgraded reports the
// second case.
func (s *UserService) CreateAdmin(ctx context.Context, name, email, password string, force bool) (u *entity.User, upgraded bool, err error) {
	email = normalizeEmail(email)
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !force {
			return existing, false, fmt.Errorf("%w: %s (role %s)", ErrUserExists, email, existing.Role)
		}
		if err := s.repo.Promote(ctx, existing.ID, entity.RoleAdmin, hash); err != nil {
			return nil, false, fmt.Errorf("promote user: %w", err)
		}
		existing.Role = entity.RoleAdmin
		existing.IsActive = true
		existing.PasswordHash = hash
		return existing, true, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, false, fmt.Errorf("lookup email: %w", err)
	}

	u = &entity.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         entity.RoleAdmin,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, false, fmt.Errorf("create admin: %w", err)
	}
	return u, false, nil
}

// List pages through all users.
func (s *UserService) List(ctx context.Context, skip, limit int) ([]entity.User, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.repo.List(ctx, skip, limit)
}

// Patch holds the optional fields of a user update.
type Patch struct {
	Name     *string
	Email    *string
	Password *string
	Role     *string
	IsActive *bool
}

func (s *UserService) Update(ctx context.Context, id int64, p Patch) (*entity.User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		email := normalizeEmail(*p.Email)
		if email != u.Email {
			if _, err := s.repo.GetByEmail(ctx, email); err == nil {
				return nil, ErrEmailTaken
			} else if !errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("lookup email: %w", err)
			}
			u.Email = email
		}
	}
	if p.Password != nil {
		hash, err := s.hasher.Hash(*p.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}
	if p.Role != nil {
		if !entity.ValidRole(*p.Role) {
			return nil, ErrInvalidRole
		}
		u.Role = *p.Role
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if err := s.repo.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrUserNotFound
		case database.IsUniqueViolation(err):
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}
