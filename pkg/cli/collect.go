package cli

import (
	"fmt"
	"log/slog"

	"github.com/hemaweb/featmock/internal/features/users"
	"github.com/hemaweb/featmock/pkg/config"
	"github.com/hemaweb/featmock/pkg/registry"
)

// newCollector builds the registry collector for cfg with the built-in
// features installed.
func newCollector(cfg *config.Config, log *slog.Logger) (*registry.Collector, error) {
	c := registry.New(registry.Options{
		Root:    cfg.Mock.Root,
		Globs:   cfg.Mock.Globs,
		Include: cfg.Mock.Include,
		Exclude: cfg.Mock.Exclude,
		Logger:  log,
	})
	if err := users.Install(c, users.NewStore()); err != nil {
		return nil, fmt.Errorf("install built-in features: %w", err)
	}
	return c, nil
}
