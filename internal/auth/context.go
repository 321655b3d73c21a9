package auth

import "context"

type contextKey string

const (
	userIDKey contextKey = "user_id"
	emailKey  contextKey = "user_email"
)

// WithUser stores the authenticated user identity on the context.
func WithUser(ctx context.Context, userID, email string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	if email != "" {
		ctx = context.WithValue(ctx, emailKey, email)
	}
	return ctx
}

// UserIDFromContext returns the authenticated user id, or "".
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// EmailFromContext returns the authenticated user email, or "".
func EmailFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	email, _ := ctx.Value(emailKey).(string)
	return email
}
