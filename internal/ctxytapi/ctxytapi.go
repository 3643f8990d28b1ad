package ctxytapi

import (
	"context"
	"net/http"

	"fknsrs.biz/p/ytingest/internal/ytapi"
)

// context registration

var clientKey int

func WithClient(ctx context.Context, c *ytapi.Client) context.Context {
	return context.WithValue(ctx, &clientKey, c)
}

func GetClient(ctx context.Context) *ytapi.Client {
	if v := ctx.Value(&clientKey); v != nil {
		return v.(*ytapi.Client)
	}

	return nil
}

// middleware

func Register(c *ytapi.Client) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithClient(r.Context(), c)))
	}
}
