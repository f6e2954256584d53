package common

import "context"

type ctxKey string

const (
	tokenKey   ctxKey = "session/token"
	subjectKey ctxKey = "session/subject"
)

// WithToken stores the raw bearer token extracted from the auth cookie.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// Token extracts the bearer token from the context if present.
func Token(ctx context.Context) (string, bool) {
	v := ctx.Value(tokenKey)
	if v == nil {
		return "", false
	}
	token, ok := v.(string)
	return token, ok
}

// WithSubject stores the token subject used to key per-session state.
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey, sub)
}

// Subject extracts the session subject from the context if present.
func Subject(ctx context.Context) (string, bool) {
	v := ctx.Value(subjectKey)
	if v == nil {
		return "", false
	}
	sub, ok := v.(string)
	return sub, ok
}
