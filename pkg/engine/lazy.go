package engine

import (
	"context"
	"net/http"
	"sync"

	"github.com/hemaweb/featmock/pkg/mock"
)

// Collector supplies namespaces to the lazy middleware.
// *registry.Collector satisfies it.
type Collector interface {
	Collect(ctx context.Context) ([]*mock.Namespace, error)
}

// LazyMiddleware collects routes once, on the first request, and serves
// them for the rest of its life.
type LazyMiddleware struct {
	collector Collector
	opts      Options

	once       sync.Once
	routes     []mock.FeatureRoute
	dispatcher *Dispatcher
}

// NewLazyMiddleware creates a lazy middleware. opts.Routes is ignored.
func NewLazyMiddleware(c Collector, opts Options) *LazyMiddleware {
	m := &LazyMiddleware{collector: c, opts: opts}
	opts.Routes = func() []mock.FeatureRoute { return m.routes }
	m.dispatcher = NewDispatcher(opts)
	return m
}

// DefaultMiddleware is a lazy middleware with DefaultOptions.
func DefaultMiddleware(c Collector) *LazyMiddleware {
	return NewLazyMiddleware(c, DefaultOptions())
}

// Init collects routes if that has not happened yet. Concurrent callers wait
// for the same collection. A failure is logged, reported to OnError with nil
// writer and request, and leaves the route list empty for good.
func (m *LazyMiddleware) Init(ctx context.Context) {
	m.once.Do(func() {
		log := m.dispatcher.log
		log.Debug("initializing mock middleware")

		namespaces, err := m.collector.Collect(ctx)
		if err != nil {
			log.Error("mock middleware initialization failed", "error", err)
			if m.opts.OnError != nil {
				m.opts.OnError(err, nil, nil)
			}
			return
		}

		m.routes = mock.Flatten(namespaces)
		log.Debug("mock middleware initialized", "routes", len(m.routes))
		for _, r := range m.routes {
			log.Debug("mock route", "feature", r.Feature, "method", r.Method, "path", r.Display())
		}
	})
}

// Routes returns the collected routes. It is nil before Init and only safe
// to call once Init has returned.
func (m *LazyMiddleware) Routes() []mock.FeatureRoute {
	return m.routes
}

// Middleware initializes on the first request, then dispatches like a
// Dispatcher.
func (m *LazyMiddleware) Middleware(next http.Handler) http.Handler {
	inner := m.dispatcher.Middleware(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Init(context.WithoutCancel(r.Context()))
		inner.ServeHTTP(w, r)
	})
}
