// Package cli implements the featmock command line: serve, info, validate,
// new, topics and version.
//
// Commands share one configuration path: pkg/config resolves defaults, an
// optional featmock.yaml, environment variables and the command's flags into
// a config.Config. Output goes to the command's writers so scripts and tests
// can capture it; --json switches every command to machine-readable output.
package cli
