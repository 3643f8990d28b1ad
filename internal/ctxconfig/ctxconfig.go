// Package ctxconfig carries the resolved configuration on the context.
package ctxconfig

import (
	"context"

	"fknsrs.biz/p/ytingest/internal/config"
)

var configKey int

func WithConfig(ctx context.Context, c config.Config) context.Context {
	return context.WithValue(ctx, &configKey, c)
}

func GetConfig(ctx context.Context) config.Config {
	if v := ctx.Value(&configKey); v != nil {
		return v.(config.Config)
	}

	return config.Config{}
}
