package httpserver

import (
	"context"

	"github.com/and161185/filevault/internal/model"
)

type ctxKey string

const userKey ctxKey = "fv.user"

// WithUser stores the authenticated user in context.
func WithUser(ctx context.Context, u model.PublicUser) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromCtx fetches the authenticated user from context.
func UserFromCtx(ctx context.Context) (model.PublicUser, bool) {
	u, ok := ctx.Value(userKey).(model.PublicUser)
	return u, ok
}
