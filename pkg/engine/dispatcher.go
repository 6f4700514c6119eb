package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/hemaweb/featmock/internal/id"
	"github.com/hemaweb/featmock/pkg/httputil"
	"github.com/hemaweb/featmock/pkg/logging"
	"github.com/hemaweb/featmock/pkg/metrics"
	"github.com/hemaweb/featmock/pkg/mock"
)

// MaxRequestBodySize is the maximum accepted request body (10MB).
const MaxRequestBodySize = 10 << 20

// DefaultBase is the path prefix mock routes are served under.
const DefaultBase = "/api"

// RequestIDHeader carries the per-request id on every dispatched response.
const RequestIDHeader = "X-Request-Id"

// statusClientClosed is recorded when the client goes away during the delay.
const statusClientClosed = 499

// ErrorHandler takes over the response after a handler failure. The lazy
// middleware also calls it with nil w and r when initialization fails.
type ErrorHandler func(err error, w http.ResponseWriter, r *http.Request)

// Options configures a Dispatcher.
type Options struct {
	// Routes returns the live route list; it is called once per request.
	Routes func() []mock.FeatureRoute
	// Base is the path prefix to serve. Empty or "/" serves every path.
	Base string
	// Log enables one Info line per dispatched request.
	Log bool
	// Logger receives request lines and handler failures.
	Logger *slog.Logger
	// OnError, when set, fully owns the response after a handler failure.
	OnError ErrorHandler
	// Metrics is optional.
	Metrics *metrics.Mock
	// DelayScale multiplies route delays: 1 waits as configured, 0 skips
	// delays.
	DelayScale float64
}

// DefaultOptions returns base /api, request logging on and delays as
// configured, logging to slog.Default.
func DefaultOptions() Options {
	return Options{
		Base:       DefaultBase,
		Log:        true,
		Logger:     slog.Default(),
		DelayScale: 1,
	}
}

// PanicError wraps a value recovered from a handler panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// Dispatcher matches requests against mock routes and runs their handlers.
type Dispatcher struct {
	opts Options
	log  *slog.Logger
}

// NewDispatcher creates a dispatcher. A nil Routes source serves nothing.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Routes == nil {
		opts.Routes = func() []mock.FeatureRoute { return nil }
	}
	opts.Base = strings.TrimSuffix(opts.Base, "/")
	return &Dispatcher{
		opts: opts,
		log:  logging.Component(opts.Logger, "mock-middleware"),
	}
}

// Middleware returns a handler that serves matched mock routes and passes
// everything else to next.
func (d *Dispatcher) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.serve(w, r, next)
	})
}

// ServeHTTP serves mock routes and answers everything else with the JSON 404.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.serve(w, r, http.HandlerFunc(httputil.WriteNotFound))
}

// InBase reports whether path is under the dispatcher's base path. The base
// matches whole segments: /api covers /api and /api/users, not /apix.
func (d *Dispatcher) InBase(path string) bool {
	if d.opts.Base == "" {
		return true
	}
	return path == d.opts.Base || strings.HasPrefix(path, d.opts.Base+"/")
}

// Match returns the first route for method and path.
func (d *Dispatcher) Match(method, path string) (mock.FeatureRoute, []string, bool) {
	method = mock.NormalizeMethod(method)
	for _, route := range d.opts.Routes() {
		if route.Method != method {
			continue
		}
		if ok, params := mock.MatchPath(route.Route, path); ok {
			return route, params, true
		}
	}
	return mock.FeatureRoute{}, nil, false
}

func (d *Dispatcher) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if !d.InBase(r.URL.Path) {
		next.ServeHTTP(w, r)
		return
	}
	if r.Method == http.MethodOptions {
		httputil.WritePreflight(w)
		return
	}

	route, params, ok := d.Match(r.Method, r.URL.Path)
	if !ok {
		d.opts.Metrics.ObserveMiss()
		next.ServeHTTP(w, r)
		return
	}
	d.dispatch(w, r, route, params)
}

func (d *Dispatcher) dispatch(w http.ResponseWriter, r *http.Request, route mock.FeatureRoute, params []string) {
	start := time.Now()

	ctx := mock.NewContext(w, r, params)
	ctx.Feature = route.Feature
	ctx.RequestID = r.Header.Get(RequestIDHeader)
	if ctx.RequestID == "" {
		ctx.RequestID = id.UUID()
	}
	ctx.Writer.Header().Set(RequestIDHeader, ctx.RequestID)

	status := d.run(ctx, route)
	if status == 0 {
		status = ctx.Status()
	}
	elapsed := time.Since(start)

	d.opts.Metrics.ObserveRequest(route.Feature, route.Method, status, elapsed)
	if d.opts.Log {
		d.log.Info("mock request",
			"feature", route.Feature,
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", elapsed.Round(time.Millisecond),
			"request_id", ctx.RequestID,
		)
	}
}

// run executes one matched request and returns a status override, or 0 to
// use whatever was written.
func (d *Dispatcher) run(ctx *mock.Context, route mock.FeatureRoute) int {
	r := ctx.Request

	if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Body != nil {
		raw, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, r.Body, MaxRequestBodySize))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				d.log.Warn("request body too large", "path", r.URL.Path, "limit", MaxRequestBodySize)
				httputil.WriteError(ctx.Writer, http.StatusRequestEntityTooLarge, "body too large", "request body exceeds the maximum allowed size")
				return 0
			}
			d.log.Warn("failed to read request body", "path", r.URL.Path, "error", err)
		}
		ctx.Body = mock.ParseBody(raw)
	}

	if !d.wait(ctx, route.DelayMs) {
		d.log.Debug("client went away during delay", "feature", route.Feature, "path", r.URL.Path)
		return statusClientClosed
	}

	out, err := invoke(route.Handler, ctx)
	if err != nil {
		d.fail(ctx, route, err)
		return 0
	}
	if !ctx.Written() {
		ctx.Reply(route.StatusOrDefault(), out, route.Headers)
	}
	return 0
}

// wait sleeps for the scaled delay and reports false if the request context
// ended first.
func (d *Dispatcher) wait(ctx *mock.Context, delayMs int) bool {
	delay := time.Duration(float64(delayMs)*d.opts.DelayScale) * time.Millisecond
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Request.Context().Done():
		return false
	}
}

func (d *Dispatcher) fail(ctx *mock.Context, route mock.FeatureRoute, err error) {
	attrs := []any{
		"feature", route.Feature,
		"method", ctx.Request.Method,
		"path", ctx.URL.Path,
		"error", err,
	}
	if pe, ok := err.(*PanicError); ok {
		attrs = append(attrs, "stack", string(pe.Stack))
	}
	d.log.Error("mock handler failed", attrs...)
	d.opts.Metrics.ObserveHandlerError(route.Feature)

	if d.opts.OnError != nil {
		d.opts.OnError(err, ctx.Writer, ctx.Request)
		return
	}
	if !ctx.Written() {
		httputil.WriteError(ctx.Writer, http.StatusInternalServerError, "mock handler failed", err.Error())
	}
}

func invoke(h mock.Handler, ctx *mock.Context) (out any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p, Stack: debug.Stack()}
		}
	}()
	return h(ctx)
}
