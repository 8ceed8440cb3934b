package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/auth/entity"
	"github.com/ovaphlow/pitchfork/service-finance-go/internal/user"
	userentity "github.com/ovaphlow/pitchfork/service-finance-go/internal/user/entity"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevoked      = errors.New("session revoked")
)

// Sessions persists issued tokens by jti.
type Sessions interface {
	Save(ctx context.Context, jti string, userID int64, expiresAt time.Time) error
	Get(ctx context.Context, jti string) (*entity.Session, error)
	Revoke(ctx context.Context, jti string) (bool, error)
	// Rotate atomically revokes oldJTI and saves newJTI; false means oldJTI
	// was already revoked and nothing changed.
	Rotate(ctx context.Context, oldJTI, newJTI string, userID int64, expiresAt time.Time) (bool, error)
}

// Users is the slice of the user service auth depends on.
type Users interface {
	Authenticate(ctx context.Context, email, password string) (*userentity.User, error)
	GetByID(ctx context.Context, id int64) (*userentity.User, error)
}

// Service issues, verifies, rotates and revokes access tokens.
type Service struct {
	tokens   *Tokens
	sessions Sessions
	users    Users
	logger   *zap.SugaredLogger
}

func NewService(tokens *Tokens, sessions Sessions, users Users, logger *zap.SugaredLogger) *Service {
	return &Service{tokens: tokens, sessions: sessions, users: users, logger: logger}
}

// Login checks credentials and returns a fresh access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}
	return s.issue(ctx, u.ID)
}

func (s *Service) issue(ctx context.Context, userID int64) (string, error) {
	raw, claims, err := s.tokens.Issue(userID)
	if err != nil {
		return "", err
	}
	if err := s.sessions.Save(ctx, claims.ID, userID, claims.ExpiresAt.Time); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return raw, nil
}

// Authenticate resolves a bearer token to its active user.
func (s *Service) Authenticate(ctx context.Context, raw string) (*userentity.User, *Claims, error) {
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		return nil, nil, err
	}
	u, err := s.resolve(ctx, claims)
	if err != nil {
		return nil, nil, err
	}
	return u, claims, nil
}

func (s *Service) resolve(ctx context.Context, claims *Claims) (*userentity.User, error) {
	sess, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: unknown session", ErrInvalidToken)
		}
		return nil, err
	}
	if sess.Revoked() {
		return nil, ErrRevoked
	}
	uid, err := claims.UserID()
	if err != nil || uid != sess.UserID {
		return nil, fmt.Errorf("%w: subject mismatch", ErrInvalidToken)
	}
	u, err := s.users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: unknown user", ErrInvalidToken)
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, user.ErrInactive
	}
	return u, nil
}

// Refresh exchanges a current or recently expired token for a new one and
// revokes the old session. A session can be rotated once; a failed rotation
// leaves the old session usable.
func (s *Service) Refresh(ctx context.Context, raw string) (string, error) {
	old, err := s.tokens.VerifyForRefresh(raw)
	if err != nil {
		return "", err
	}
	u, err := s.resolve(ctx, old)
	if err != nil {
		return "", err
	}
	next, claims, err := s.tokens.Issue(u.ID)
	if err != nil {
		return "", err
	}
	rotated, err := s.sessions.Rotate(ctx, old.ID, claims.ID, u.ID, claims.ExpiresAt.Time)
	if err != nil {
		return "", fmt.Errorf("rotate session: %w", err)
	}
	if !rotated {
		return "", ErrRevoked
	}
	s.logger.Debugw("session rotated", "user_id", u.ID, "old_jti", old.ID)
	return next, nil
}

// Logout revokes the session behind raw. Unknown or already revoked tokens
// are not an error.
func (s *Service) Logout(ctx context.Context, raw string) error {
	claims, err := s.tokens.VerifyForRefresh(raw)
	if err != nil {
		return nil
	}
	if _, err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
