// Package engine serves mock routes over HTTP.
//
// The Dispatcher is net/http middleware: requests under the base path are
// matched against a live route list, first match wins, and unmatched requests
// fall through to the next handler. LazyMiddleware collects routes on the
// first request instead of taking a live source. Server wraps a dispatcher
// with the standalone endpoints (/health, /mock-info, /metrics, live reload)
// and a JSON 404.
//
// # Request lifecycle
//
//  1. Paths outside the base pass through untouched.
//  2. OPTIONS is answered with permissive CORS before matching.
//  3. The first route with the request's method and a matching path wins.
//  4. The body is read (non-GET/HEAD), the route delay is applied, and the
//     handler runs. Its return value is written as JSON with the route's
//     status and headers unless it already replied.
//  5. Handler errors and panics become a 500 JSON body, or go to OnError.
package engine
