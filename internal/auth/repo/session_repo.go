package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/auth/entity"
)

type SessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS auth_sessions (
  jti TEXT PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  expires_at TIMESTAMPTZ NOT NULL,
  revoked_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_auth_sessions_user ON auth_sessions(user_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *SessionRepo) Save(ctx context.Context, jti string, userID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_sessions (jti, user_id, expires_at) VALUES ($1, $2, $3)`,
		jti, userID, expiresAt)
	return err
}

// Get returns the session or sql.ErrNoRows.
func (r *SessionRepo) Get(ctx context.Context, jti string) (*entity.Session, error) {
	var s entity.Session
	const q = `SELECT jti, user_id, expires_at, revoked_at, created_at FROM auth_sessions WHERE jti = $1`
	if err := r.db.GetContext(ctx, &s, q, jti); err != nil {
		return nil, err
	}
	return &s, nil
}

// Revoke marks the session revoked. It reports false when the session was
// unknown or already revoked, so concurrent rotations have a single winner.
func (r *SessionRepo) Revoke(ctx context.Context, jti string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE auth_sessions SET revoked_at = NOW() WHERE jti = $1 AND revoked_at IS NULL`, jti)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Rotate revokes oldJTI and saves newJTI in one transaction. It reports
// false, saving nothing, when oldJTI was unknown or already revoked.
func (r *SessionRepo) Rotate(ctx context.Context, oldJTI, newJTI string, userID int64, expiresAt time.Time) (rotated bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil || !rotated {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE auth_sessions SET revoked_at = NOW() WHERE jti = $1 AND revoked_at IS NULL`, oldJTI)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO auth_sessions (jti, user_id, expires_at) VALUES ($1, $2, $3)`,
		newJTI, userID, expiresAt); err != nil {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// PurgeExpired removes sessions that expired before cutoff.
func (r *SessionRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
