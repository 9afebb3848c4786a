package middleware

import (
	"context"

	"github.com/benjamins-shop/storefront-backend/internal/sessions"
)

type contextKey string

const (
	ctxAdminID    contextKey = "admin_id"
	ctxAdminEmail contextKey = "admin_email"
	ctxSession    contextKey = "guest_session"
)

// AdminIDFromContext returns the authenticated admin id, empty when the
// request is unauthenticated.
func AdminIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAdminID).(string); ok {
		return v
	}
	return ""
}

func AdminEmailFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAdminEmail).(string); ok {
		return v
	}
	return ""
}

// SessionFromContext returns the guest session resolved for this request.
func SessionFromContext(ctx context.Context) *sessions.Resolved {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxSession).(*sessions.Resolved); ok {
		return v
	}
	return nil
}

// WithSession injects a resolved guest session, used by handlers and tests.
func WithSession(ctx context.Context, resolved *sessions.Resolved) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, resolved)
}

// WithAdminID injects the admin identifier into the context.
func WithAdminID(ctx context.Context, adminID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAdminID, adminID)
}
