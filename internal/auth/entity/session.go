package entity

import "time"

// Session is one issued access token, keyed by its jti. Refresh rotates it and
// logout revokes it.
type Session struct {
	JTI       string     `db:"jti"`
	UserID    int64      `db:"user_id"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
	CreatedAt time.Time  `db:"created_at"`
}

func (s *Session) Revoked() bool { return s.RevokedAt != nil }
