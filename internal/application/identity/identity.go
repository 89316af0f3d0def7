// Package identity carries the caller's backend token through a request
// context.
package identity

import "context"

type tokenKey struct{}

// WithToken returns a context carrying token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the token stored by WithToken.
func TokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
