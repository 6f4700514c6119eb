// Package users is the built-in feat-users mock: an in-memory user dataset
// with list, detail, create, update, status, delete, batch delete and
// activity endpoints. Responses use the {data, message, code} envelope and report
// business failures in code with HTTP 200.
//
// The routes are registered as a built-in namespace, and every handler is
// also available by name (users.list, users.get, ...) for mock files.
package users
