package engine

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemaweb/featmock/pkg/config"
	"github.com/hemaweb/featmock/pkg/metrics"
	"github.com/hemaweb/featmock/pkg/mock"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0, Environment: config.EnvDevelopment},
		Mock:   config.MockConfig{Base: "/api", NoDelay: true},
	}
}

func staticNamespace(feature string, paths ...string) *mock.Namespace {
	routes := make([]mock.Route, 0, len(paths))
	for _, p := range paths {
		routes = append(routes, mock.Route{Method: "GET", Path: p, Handler: func(ctx *mock.Context) (any, error) {
			return mock.OK(ctx.URL.Path, "success"), nil
		}})
	}
	return mock.Define(feature, routes...)
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	t.Run("nil config uses defaults", func(t *testing.T) {
		t.Parallel()
		srv := NewServer(nil)
		require.NotNil(t, srv)
		assert.Equal(t, "localhost:3001", srv.Addr())
		assert.False(t, srv.IsRunning())
		assert.Zero(t, srv.Uptime())
	})

	t.Run("nil logger keeps nop logger", func(t *testing.T) {
		t.Parallel()
		srv := NewServer(testConfig(), WithLogger(nil))
		assert.NotNil(t, srv.log)
	})
}

func TestServer_Endpoints(t *testing.T) {
	t.Parallel()
	c := &fakeCollector{ns: []*mock.Namespace{
		staticNamespace("feat-users", "/api/users", "/api/users/me"),
		staticNamespace("feat-roles", "/api/roles"),
	}}
	m := metrics.NewMock()
	srv := NewServer(testConfig(), WithCollector(c), WithMetrics(m))
	h := srv.Handler()

	t.Run("health", func(t *testing.T) {
		rec := serve(t, h, "GET", "/health", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "development", body["environment"])
		assert.NotEmpty(t, body["timestamp"])
		assert.IsType(t, float64(0), body["uptime"])
	})

	t.Run("mock info", func(t *testing.T) {
		rec := serve(t, h, "GET", "/mock-info", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, float64(3), body["totalRoutes"])
		assert.Equal(t, []any{
			map[string]any{"name": "feat-users", "routes": float64(2)},
			map[string]any{"name": "feat-roles", "routes": float64(1)},
		}, body["features"])
		assert.Contains(t, body["environment"], "NODE_ENV")
	})

	t.Run("mock route", func(t *testing.T) {
		rec := serve(t, h, "GET", "/api/roles", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"data":"/api/roles","message":"success","code":200}`, rec.Body.String())
	})

	t.Run("not found", func(t *testing.T) {
		for _, target := range []string{"/api/nope?x=1", "/elsewhere"} {
			rec := serve(t, h, "GET", target, "")
			require.Equal(t, http.StatusNotFound, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, "api not found", body["error"])
			assert.Equal(t, target, body["path"])
			assert.Equal(t, "GET", body["method"])
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		}
	})

	t.Run("metrics", func(t *testing.T) {
		rec := serve(t, h, "GET", "/metrics", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
		assert.Contains(t, rec.Body.String(), "featmock_requests_total")
		assert.Contains(t, rec.Body.String(), "featmock_uptime_seconds")
	})

	t.Run("live reload not mounted", func(t *testing.T) {
		rec := serve(t, h, "GET", LiveReloadPath, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	assert.Equal(t, int32(2), c.calls.Load(), "mock-info collects fresh, the middleware once")
}

func TestServer_MockInfoFailure(t *testing.T) {
	t.Parallel()
	srv := NewServer(testConfig(), WithCollector(&fakeCollector{err: errors.New("root missing")}))

	rec := serve(t, srv.Handler(), "GET", "/mock-info", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "root missing", decode(t, rec)["message"])
}

func TestServer_LiveRoutesAndHooks(t *testing.T) {
	t.Parallel()
	live := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusSwitchingProtocols) })
	var hooked error
	boom := mock.FeatureRoute{Feature: "feat-x", Route: mock.Route{Method: "GET", Path: "/api/boom", Handler: func(*mock.Context) (any, error) {
		return nil, errors.New("boom")
	}}}
	srv := NewServer(testConfig(),
		WithCollector(&fakeCollector{}),
		WithRoutes(routes(boom)),
		WithLiveReload(live),
		WithErrorHandler(func(err error, w http.ResponseWriter, _ *http.Request) {
			hooked = err
			http.Error(w, "custom", http.StatusServiceUnavailable)
		}),
	)

	assert.Equal(t, http.StatusSwitchingProtocols, serve(t, srv.Handler(), "GET", LiveReloadPath, "").Code)
	rec := serve(t, srv.Handler(), "GET", "/api/boom", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.EqualError(t, hooked, "boom")
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()
	h := recoverMiddleware(nil, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("outside handler")
	}))

	rec := serve(t, h, "GET", "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "internal server error", body["error"])
	assert.Equal(t, "outside handler", body["message"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestServer_StartStop(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	mockFile := filepath.Join(root, "packages", "feat-ping", "mocks", "ping.mock.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(mockFile), 0o755))
	require.NoError(t, os.WriteFile(mockFile, []byte("feature: feat-ping\nroutes:\n  - {method: GET, path: /api/ping, response: pong}\n"), 0o644))

	cfg := testConfig()
	cfg.Mock.Root = root
	srv := NewServer(cfg)

	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })
	assert.True(t, srv.IsRunning())
	assert.Error(t, srv.Start(), "second start fails")
	assert.NotEqual(t, "127.0.0.1:0", srv.Addr())

	resp, err := http.Get(fmt.Sprintf("http://%s/api/ping", srv.Addr()))
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"pong"`, strings.TrimSpace(string(data)))

	require.NoError(t, srv.Stop())
	assert.False(t, srv.IsRunning())
	require.NoError(t, srv.Stop(), "stop is idempotent")

	_, err = http.Get(fmt.Sprintf("http://%s/health", srv.Addr()))
	assert.Error(t, err)
}

func TestServer_StartBadAddress(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Server.Host = "256.256.256.256"
	srv := NewServer(cfg, WithCollector(&fakeCollector{}))
	assert.Error(t, srv.Start())
	assert.False(t, srv.IsRunning())
}

var _ Collector = (*fakeCollector)(nil)
