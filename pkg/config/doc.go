// Package config resolves featmock settings from defaults, an optional
// featmock.yaml, environment variables and command-line flags.
//
// Precedence, highest first: flags that were set, environment variables, the
// config file, built-in defaults. The environment names the frontend tooling
// already uses are honored directly:
//
//	MOCK_HOST, MOCK_PORT            standalone server address
//	NODE_ENV                        "production" disables mocks
//	VITE_USE_MOCK                   "true" forces mocks on
//	VITE_MOCK_INCLUDE               comma-separated features to keep
//	VITE_MOCK_EXCLUDE               comma-separated features to drop
//
// Every key can also be set as FEATMOCK_<SECTION>_<KEY>, for example
// FEATMOCK_MOCK_BASE=/mock.
//
// A config file looks like:
//
//	server:
//	  host: 0.0.0.0
//	  port: 3001
//	mock:
//	  base: /api
//	  exclude: [feat-reports]
//	log:
//	  level: debug
package config
