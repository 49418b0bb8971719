package api

import (
	"context"

	"hermes/models"
)

type contextKey int

const userContextKey contextKey = iota

func withUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// UserFromContext returns the authenticated caller. Only ever called from
// inside a handler wrapped by Middleware.Require, so the assertion never
// fails in practice.
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userContextKey).(*models.User)
	return u
}
