package user

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/user/entity"
)

type ctxKey struct{}

// NewContext returns ctx carrying the authenticated user.
func NewContext(ctx context.Context, u *entity.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the user stored by NewContext.
func FromContext(ctx context.Context) (*entity.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*entity.User)
	return u, ok && u != nil
}
