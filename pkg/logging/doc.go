// Package logging provides structured logging configuration for featmock.
//
// This package wraps log/slog so the registry, dispatcher, watcher and CLI
// all log the same way. Records carry a "component" attribute in place of
// bracketed prefixes:
//
//	log := logging.New(logging.Config{Level: logging.LevelInfo})
//	reg := logging.Component(log, "mock-registry")
//	reg.Info("loaded feature", "feature", "feat-users", "routes", 7)
//
// # Levels
//
// Collection details (every scanned file, every skipped feature) are logged
// at Debug; request lines at Info; skipped files and invalid routes at Warn;
// handler failures at Error.
//
// # Integration
//
// Components accept a *slog.Logger in their constructor or options.
// If no logger is provided, they fall back to logging.Nop().
package logging
