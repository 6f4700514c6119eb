package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemaweb/featmock/pkg/metrics"
	"github.com/hemaweb/featmock/pkg/mock"
)

// nextMarker is the pass-through handler used to detect fall-through.
var nextMarker = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusTeapot)
	_, _ = io.WriteString(w, "next")
})

func routes(rs ...mock.FeatureRoute) func() []mock.FeatureRoute {
	return func() []mock.FeatureRoute { return rs }
}

func route(feature, method, path string, h mock.Handler) mock.FeatureRoute {
	return mock.FeatureRoute{Feature: feature, Route: mock.Route{Method: method, Path: path, Handler: h}}
}

func patternRoute(feature, method, pattern string, h mock.Handler) mock.FeatureRoute {
	return mock.FeatureRoute{Feature: feature, Route: mock.Route{Method: method, Pattern: regexp.MustCompile(pattern), Handler: h}}
}

func echo(ctx *mock.Context) (any, error) {
	return map[string]any{"params": ctx.Params, "query": ctx.Query, "body": ctx.Body}, nil
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestDispatcher_LiteralMatch(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(Options{Base: "/api", Routes: routes(route("feat-a", "GET", "/api/items", echo))})
	h := d.Middleware(nextMarker)

	tests := []struct {
		name   string
		method string
		target string
		want   int
	}{
		{"exact match", "GET", "/api/items", http.StatusOK},
		{"query string ignored", "GET", "/api/items?x=1", http.StatusOK},
		{"lower-case method", "get", "/api/items", http.StatusOK},
		{"other method", "POST", "/api/items", http.StatusTeapot},
		{"trailing slash", "GET", "/api/items/", http.StatusTeapot},
		{"longer path", "GET", "/api/items/1", http.StatusTeapot},
		{"outside base", "GET", "/other", http.StatusTeapot},
		{"base prefix only", "GET", "/apix/items", http.StatusTeapot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, h, tt.method, tt.target, "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestDispatcher_PatternParams(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(Options{Base: "/api", Routes: routes(patternRoute("feat-a", "GET", `^/api/items/(\d+)$`, echo))})
	h := d.Middleware(nextMarker)

	rec := serve(t, h, "GET", "/api/items/42?q=go", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, []any{"/api/items/42", "42"}, body["params"])
	assert.Equal(t, map[string]any{"q": "go"}, body["query"])

	assert.Equal(t, http.StatusTeapot, serve(t, h, "GET", "/api/items/abc", "").Code)
}

func TestDispatcher_FirstMatchWins(t *testing.T) {
	t.Parallel()
	first := func(*mock.Context) (any, error) { return "first", nil }
	second := func(*mock.Context) (any, error) { return "second", nil }
	d := NewDispatcher(Options{Routes: routes(
		route("feat-a", "GET", "/api/x", first),
		route("feat-b", "GET", "/api/x", second),
	)})

	rec := serve(t, d, "GET", "/api/x", "")
	assert.JSONEq(t, `"first"`, rec.Body.String())
}

func TestDispatcher_Preflight(t *testing.T) {
	t.Parallel()
	var called atomic.Bool
	h := func(*mock.Context) (any, error) { called.Store(true); return nil, nil }
	d := NewDispatcher(Options{Base: "/api", Routes: routes(route("feat-a", "OPTIONS", "/api/x", h))})

	for _, target := range []string{"/api/x", "/api/unknown"} {
		rec := serve(t, d.Middleware(nextMarker), "OPTIONS", target, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, PUT, PATCH, DELETE, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type, Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
		assert.Empty(t, rec.Body.String())
	}
	assert.False(t, called.Load(), "OPTIONS never reaches route matching")

	assert.Equal(t, http.StatusTeapot, serve(t, d.Middleware(nextMarker), "OPTIONS", "/other", "").Code)
}

func TestDispatcher_BodyParsing(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(Options{Routes: routes(
		route("feat-a", "POST", "/api/echo", echo),
		route("feat-a", "GET", "/api/echo", echo),
	)})

	tests := []struct {
		name string
		body string
		want any
	}{
		{"json object", `{"name":"neo","age":3}`, map[string]any{"name": "neo", "age": float64(3)}},
		{"json array", `[1,2]`, []any{float64(1), float64(2)}},
		{"form", `name=neo&tag=a&tag=b`, map[string]any{"name": "neo", "tag": []any{"a", "b"}}},
		{"raw", `100%zz`, "100%zz"},
		{"plain text becomes a form key", `just text`, map[string]any{"just text": ""}},
		{"empty", ``, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, d, "POST", "/api/echo", tt.body)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, decode(t, rec)["body"])
		})
	}

	t.Run("GET body is ignored", func(t *testing.T) {
		rec := serve(t, d, "GET", "/api/echo", `{"a":1}`)
		assert.Nil(t, decode(t, rec)["body"])
	})
}

func TestDispatcher_BodyTooLarge(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(Options{Routes: routes(route("feat-a", "POST", "/api/upload", echo))})

	big := strings.Repeat("a", MaxRequestBodySize+1)
	rec := serve(t, d, "POST", "/api/upload", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "body too large", decode(t, rec)["error"])
}

func TestDispatcher_StatusAndHeaders(t *testing.T) {
	t.Parallel()
	r := route("feat-a", "POST", "/api/x", func(*mock.Context) (any, error) { return map[string]any{"ok": true}, nil })
	r.Status = http.StatusCreated
	r.Headers = map[string]string{"X-Mock": "yes", "Content-Type": "application/vnd.api+json"}
	d := NewDispatcher(Options{Routes: routes(r)})

	rec := serve(t, d, "POST", "/api/x", "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "yes", rec.Header().Get("X-Mock"))
	assert.Equal(t, "application/vnd.api+json", rec.Header().Get("Content-Type"), "route headers override defaults")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestDispatcher_DefaultsAndNull(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(Options{Routes: routes(route("feat-a", "DELETE", "/api/x", func(*mock.Context) (any, error) { return nil, nil }))})

	rec := serve(t, d, "DELETE", "/api/x", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "null", rec.Body.String())
}

func TestDispatcher_HandlerAlreadyReplied(t *testing.T) {
	t.Parallel()
	h := func(ctx *mock.Context) (any, error) {
		ctx.Reply(http.StatusAccepted, map[string]string{"via": "reply"}, nil)
		return "ignored", nil
	}
	d := NewDispatcher(Options{Routes: routes(route("feat-a", "GET", "/api/x", h))})

	rec := serve(t, d, "GET", "/api/x", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"via":"reply"}`, rec.Body.String())
}

func TestDispatcher_RequestIDPropagated(t *testing.T) {
	t.Parallel()
	var seen string
	h := func(ctx *mock.Context) (any, error) { seen = ctx.RequestID; return nil, nil }
	d := NewDispatcher(Options{Routes: routes(route("feat-a", "GET", "/api/x", h))})

	req := httptest.NewRequest("GET", "/api/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestDispatcher_HandlerErrors(t *testing.T) {
	t.Parallel()
	failing := func(*mock.Context) (any, error) { return nil, errors.New("boom") }
	panicking := func(*mock.Context) (any, error) { panic("kaboom") }

	for name, h := range map[string]mock.Handler{"error": failing, "panic": panicking} {
		t.Run(name, func(t *testing.T) {
			d := NewDispatcher(Options{Routes: routes(route("feat-a", "GET", "/api/x", h))})
			rec := serve(t, d, "GET", "/api/x", "")
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, "mock handler failed", body["error"])
			assert.Equal(t, float64(500), body["code"])
			assert.NotEmpty(t, body["message"])
		})
	}

	t.Run("OnError owns the response", func(t *testing.T) {
		var got error
		onError := func(err error, w http.ResponseWriter, _ *http.Request) {
			got = err
			w.WriteHeader(http.StatusBadGateway)
		}
		d := NewDispatcher(Options{OnError: onError, Routes: routes(route("feat-a", "GET", "/api/x", panicking))})
		rec := serve(t, d, "GET", "/api/x", "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Empty(t, rec.Body.String())
		var pe *PanicError
		require.ErrorAs(t, got, &pe)
		assert.Equal(t, "kaboom", pe.Value)
	})

	t.Run("error after reply keeps the reply", func(t *testing.T) {
		h := func(ctx *mock.Context) (any, error) {
			ctx.Reply(http.StatusOK, "partial", nil)
			return nil, errors.New("late")
		}
		d := NewDispatcher(Options{Routes: routes(route("feat-a", "GET", "/api/x", h))})
		rec := serve(t, d, "GET", "/api/x", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `"partial"`, rec.Body.String())
	})
}

func TestDispatcher_Delay(t *testing.T) {
	t.Parallel()
	r := route("feat-a", "GET", "/api/slow", func(*mock.Context) (any, error) { return "done", nil })
	r.DelayMs = 50

	t.Run("applied", func(t *testing.T) {
		d := NewDispatcher(Options{DelayScale: 1, Routes: routes(r)})
		start := time.Now()
		rec := serve(t, d, "GET", "/api/slow", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("scaled to zero", func(t *testing.T) {
		slow := r
		slow.DelayMs = 10_000
		d := NewDispatcher(Options{DelayScale: 0, Routes: routes(slow)})
		start := time.Now()
		rec := serve(t, d, "GET", "/api/slow", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("aborted by client", func(t *testing.T) {
		slow := r
		slow.DelayMs = 10_000
		var called atomic.Bool
		slow.Handler = func(*mock.Context) (any, error) { called.Store(true); return nil, nil }
		d := NewDispatcher(Options{DelayScale: 1, Routes: routes(slow)})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		req := httptest.NewRequest("GET", "/api/slow", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		start := time.Now()
		d.ServeHTTP(rec, req)

		assert.Less(t, time.Since(start), time.Second)
		assert.False(t, called.Load())
		assert.Empty(t, rec.Body.String())
	})
}

func TestDispatcher_LiveRoutes(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var current []mock.FeatureRoute
	d := NewDispatcher(Options{Routes: func() []mock.FeatureRoute {
		mu.Lock()
		defer mu.Unlock()
		return current
	}})
	h := d.Middleware(nextMarker)

	assert.Equal(t, http.StatusTeapot, serve(t, h, "GET", "/api/new", "").Code)

	mu.Lock()
	current = []mock.FeatureRoute{route("feat-new", "GET", "/api/new", echo)}
	mu.Unlock()
	assert.Equal(t, http.StatusOK, serve(t, h, "GET", "/api/new", "").Code)

	mu.Lock()
	current = nil
	mu.Unlock()
	assert.Equal(t, http.StatusTeapot, serve(t, h, "GET", "/api/new", "").Code)
}

func TestDispatcher_Metrics(t *testing.T) {
	t.Parallel()
	m := metrics.NewMock()
	d := NewDispatcher(Options{Base: "/api", Metrics: m, Routes: routes(
		route("feat-a", "GET", "/api/ok", echo),
		route("feat-a", "GET", "/api/fail", func(*mock.Context) (any, error) { return nil, errors.New("x") }),
	)})
	h := d.Middleware(nextMarker)

	serve(t, h, "GET", "/api/ok", "")
	serve(t, h, "GET", "/api/fail", "")
	serve(t, h, "GET", "/api/missing", "")

	var sb strings.Builder
	_, err := m.Registry().WriteTo(&sb)
	require.NoError(t, err)
	out := sb.String()
	assert.Contains(t, out, `featmock_requests_total{feature="feat-a",method="GET",status="200"} 1`)
	assert.Contains(t, out, `featmock_requests_total{feature="feat-a",method="GET",status="500"} 1`)
	assert.Contains(t, out, `featmock_handler_errors_total{feature="feat-a"} 1`)
	assert.Contains(t, out, "featmock_unmatched_requests_total 1")
}

func TestDispatcher_RequestLog(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	d := NewDispatcher(Options{Base: "/api", Log: true, Logger: logger, Routes: routes(
		patternRoute("feat-a", "GET", `^/api/items/(\d+)$`, echo),
	)})

	req := httptest.NewRequest("GET", "/api/items/7?x=1", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	d.Middleware(nextMarker).ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "mock request", line["msg"], "the message is constant so logs can be grouped")
	assert.Equal(t, "INFO", line["level"])
	assert.Equal(t, "feat-a", line["feature"])
	assert.Equal(t, "GET", line["method"])
	assert.Equal(t, "/api/items/7", line["path"])
	assert.Equal(t, float64(200), line["status"])
	assert.Equal(t, "req-42", line["request_id"])
	assert.Contains(t, line, "duration")

	buf.Reset()
	quiet := NewDispatcher(Options{Base: "/api", Logger: logger, Routes: routes(route("feat-a", "GET", "/api/x", echo))})
	serve(t, quiet.Middleware(nextMarker), "GET", "/api/x", "")
	assert.Empty(t, buf.String(), "request lines are off unless Log is set")
}

type fakeCollector struct {
	calls atomic.Int32
	err   error
	delay time.Duration
	ns    []*mock.Namespace
}

func (f *fakeCollector) Collect(context.Context) ([]*mock.Namespace, error) {
	f.calls.Add(1)
	time.Sleep(f.delay)
	return f.ns, f.err
}

func TestLazyMiddleware_InitOnce(t *testing.T) {
	t.Parallel()
	c := &fakeCollector{
		delay: 20 * time.Millisecond,
		ns:    []*mock.Namespace{mock.Define("feat-a", mock.Route{Method: "GET", Path: "/api/x", Handler: echo})},
	}
	m := NewLazyMiddleware(c, Options{Base: "/api"})
	h := m.Middleware(nextMarker)

	var wg sync.WaitGroup
	codes := make([]int, 10)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = serve(t, h, "GET", "/api/x", "").Code
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), c.calls.Load())
	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code, "every first request waits for initialization")
	}
	assert.Len(t, m.Routes(), 1)
}

func TestLazyMiddleware_InitFailure(t *testing.T) {
	t.Parallel()
	c := &fakeCollector{err: errors.New("no root")}
	var hookErr error
	var hookW http.ResponseWriter
	var hookR *http.Request
	m := NewLazyMiddleware(c, Options{OnError: func(err error, w http.ResponseWriter, r *http.Request) {
		hookErr, hookW, hookR = err, w, r
	}})
	h := m.Middleware(nextMarker)

	assert.Equal(t, http.StatusTeapot, serve(t, h, "GET", "/api/x", "").Code)
	assert.Equal(t, http.StatusTeapot, serve(t, h, "GET", "/api/x", "").Code)
	assert.EqualError(t, hookErr, "no root")
	assert.Nil(t, hookW)
	assert.Nil(t, hookR)
	assert.Equal(t, int32(1), c.calls.Load(), "a failed initialization is not retried")
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()
	opts := DefaultOptions()
	assert.Equal(t, "/api", opts.Base)
	assert.True(t, opts.Log)
	assert.Equal(t, 1.0, opts.DelayScale)
	assert.NotNil(t, DefaultMiddleware(&fakeCollector{}))
}
