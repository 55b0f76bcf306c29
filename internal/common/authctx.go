package common

import "context"

type ctxKey string

const (
	userIDKey      ctxKey = "auth/user-id"
	accessTokenKey ctxKey = "auth/access-token"
)

// WithUserID stores the authenticated user identifier on the provided context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// WithAccessToken stores the raw upstream access token on the context so
// outbound calls can reuse the caller's credentials.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

// AccessToken extracts the raw access token from the context if present.
func AccessToken(ctx context.Context) string {
	v := ctx.Value(accessTokenKey)
	if v == nil {
		return ""
	}
	token, _ := v.(string)
	return token
}
