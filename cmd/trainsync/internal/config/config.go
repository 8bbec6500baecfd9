package config

import (
	"context"

	"github.com/trainsync/trainsync/cmd/trainsync/internal/client"
)

type settingsKey struct{}

// GlobalConfig is what every command sees: resolved settings plus the
// lazily built client components.
type GlobalConfig struct {
	Settings
	ClientProvider *client.Provider
}

func InjectConfig(ctx context.Context, cfg *GlobalConfig) context.Context {
	return context.WithValue(ctx, settingsKey{}, cfg)
}

func FromContext(ctx context.Context) (*GlobalConfig, bool) {
	cfg, ok := ctx.Value(settingsKey{}).(*GlobalConfig)
	return cfg, ok
}

// MustFromContext is FromContext for RunE, where the root command has always
// run first.
func MustFromContext(ctx context.Context) *GlobalConfig {
	cfg, ok := FromContext(ctx)
	if !ok {
		panic("trainsync: no settings in command context")
	}
	return cfg
}
