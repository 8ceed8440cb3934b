package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/utilities"
)

const tokenTypeAccess = "access"

// Claims are the access token claims: sub is the user id, jti keys the session.
type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// Tokens signs and verifies HS256 access tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	grace  time.Duration
	now    func() time.Time
}

func NewTokens(cfg Config) (*Tokens, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: SECRET_KEY is required")
	}
	return &Tokens{secret: []byte(cfg.Secret), ttl: cfg.AccessTTL, grace: cfg.RefreshGrace, now: time.Now}, nil
}

// Issue signs a new access token for userID.
func (t *Tokens) Issue(userID int64) (string, *Claims, error) {
	now := t.now()
	claims := &Claims{
		Type: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        utilities.NewKSUID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

func (t *Tokens) keyFunc(*jwt.Token) (any, error) { return t.secret, nil }

// Verify parses raw and requires it to be unexpired.
func (t *Tokens) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, t.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return checkType(claims)
}

// VerifyForRefresh accepts a correctly signed token that expired no longer
// than the refresh grace ago.
func (t *Tokens) VerifyForRefresh(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, t.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil || t.now().After(claims.ExpiresAt.Add(t.grace)) {
		return nil, fmt.Errorf("%w: beyond refresh window", ErrInvalidToken)
	}
	return checkType(claims)
}

func checkType(c *Claims) (*Claims, error) {
	if c.Type != tokenTypeAccess || c.ID == "" || c.Subject == "" {
		return nil, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}
	return c, nil
}
