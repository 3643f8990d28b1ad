package ctxlanding

import (
	"context"
	"net/http"

	"fknsrs.biz/p/ytingest/internal/landing"
)

// context registration

var storeKey int

func WithStore(ctx context.Context, s *landing.Store) context.Context {
	return context.WithValue(ctx, &storeKey, s)
}

func GetStore(ctx context.Context) *landing.Store {
	if v := ctx.Value(&storeKey); v != nil {
		return v.(*landing.Store)
	}

	return nil
}

// middleware

func Register(s *landing.Store) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithStore(r.Context(), s)))
	}
}
