package scaffold

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hemaweb/featmock/pkg/mock"
	"github.com/hemaweb/featmock/pkg/registry"
)

func fixedNow(t *testing.T) {
	t.Helper()
	old := now
	now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = old })
}

// call runs the first route of ns matching method and target.
func call(t *testing.T, ns *mock.Namespace, method, target string, body any) map[string]any {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for _, r := range ns.Routes {
		if r.Method != method {
			continue
		}
		ok, params := mock.MatchPath(r, req.URL.Path)
		if !ok {
			continue
		}
		ctx := mock.NewContext(httptest.NewRecorder(), req, params)
		ctx.Body = body
		out, err := r.Handler(ctx)
		require.NoError(t, err)
		data, err := json.Marshal(out)
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		return decoded
	}
	t.Fatalf("no route for %s %s", method, target)
	return nil
}

func collect(t *testing.T, root string) []*mock.Namespace {
	t.Helper()
	res, err := registry.New(registry.Options{Root: root}).CollectResult(context.Background())
	require.NoError(t, err)
	require.Empty(t, res.Problems)
	return res.Namespaces
}

func TestValidateName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		valid bool
	}{
		{"orders", true},
		{"order-items", true},
		{"v2-reports", true},
		{"a", true},
		{"", false},
		{"Orders", false},
		{"2orders", false},
		{"-orders", false},
		{"order_items", false},
		{"feat/orders", false},
		{"../etc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidName)
			}
		})
	}
}

func TestCasing(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, pascal, camel string
	}{
		{"orders", "Orders", "orders"},
		{"order-items", "OrderItems", "orderItems"},
		{"v2-api-keys", "V2ApiKeys", "v2ApiKeys"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.pascal, PascalCase(tt.in), tt.in)
		assert.Equal(t, tt.camel, CamelCase(tt.in), tt.in)
	}
}

func TestGenerate_Defaults(t *testing.T) {
	fixedNow(t)
	root := t.TempDir()

	cfg := NewConfig("orders")
	cfg.Root = root
	res, err := Generate(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "packages", "feat-orders"), res.Dir)
	assert.Equal(t, []string{
		"packages/feat-orders/feature.yaml",
		"packages/feat-orders/README.md",
		"packages/feat-orders/mocks/orders.mock.yaml",
		"packages/feat-orders/data/orders.seed.json",
		"packages/feat-orders/i18n/en.yaml",
		"packages/feat-orders/i18n/zh.yaml",
	}, res.Files)

	manifest, err := os.ReadFile(filepath.Join(res.Dir, "feature.yaml"))
	require.NoError(t, err)
	var m struct {
		Name        string          `yaml:"name"`
		DisplayName string          `yaml:"displayName"`
		Entity      string          `yaml:"entity"`
		Parts       map[string]bool `yaml:"parts"`
	}
	require.NoError(t, yaml.Unmarshal(manifest, &m))
	assert.Equal(t, "feat-orders", m.Name)
	assert.Equal(t, "orders", m.DisplayName)
	assert.Equal(t, "Order", m.Entity)
	assert.Equal(t, map[string]bool{"mock": true, "i18n": true, "store": true, "api": false}, m.Parts)
	assert.Contains(t, string(manifest), "2026-03-14")

	var en map[string]map[string]any
	data, err := os.ReadFile(filepath.Join(res.Dir, "i18n", "en.yaml"))
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, &en))
	assert.Equal(t, "Order list", en["orders"]["list"])

	namespaces := collect(t, root)
	require.Len(t, namespaces, 1)
	ns := namespaces[0]
	assert.Equal(t, "feat-orders", ns.Feature)
	require.Len(t, ns.Routes, 5)

	list := call(t, ns, "GET", "/api/orders?page=1&size=2", nil)
	assert.Equal(t, float64(200), list["code"])
	page := list["data"].(map[string]any)
	assert.Equal(t, float64(3), page["total"])
	assert.Len(t, page["data"], 2)

	detail := call(t, ns, "GET", "/api/orders/2", nil)
	assert.Equal(t, "Order 2", detail["data"].(map[string]any)["name"])

	missing := call(t, ns, "GET", "/api/orders/99", nil)
	assert.Equal(t, float64(404), missing["code"])
	assert.Equal(t, "order not found", missing["message"])

	created := call(t, ns, "POST", "/api/orders", map[string]any{"name": "fresh"})
	item := created["data"].(map[string]any)
	assert.Equal(t, "fresh", item["name"])
	assert.Equal(t, "active", item["status"])
	assert.NotEmpty(t, item["id"])

	updated := call(t, ns, "PUT", "/api/orders/1", map[string]any{"name": "renamed", "id": "hijack"})
	assert.Equal(t, "1", updated["data"].(map[string]any)["id"])
	assert.Equal(t, "renamed", updated["data"].(map[string]any)["name"])

	deleted := call(t, ns, "DELETE", "/api/orders/3", nil)
	assert.Equal(t, "order deleted", deleted["message"])
}

func TestGenerate_CustomNames(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	cfg := NewConfig("order-items")
	cfg.Root = root
	cfg.Entity = "LineItem"
	cfg.DisplayName = "订单明细"

	res, err := Generate(context.Background(), cfg)
	require.NoError(t, err)

	zh, err := os.ReadFile(filepath.Join(res.Dir, "i18n", "zh.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(zh), "orderItems:")
	assert.Contains(t, string(zh), "订单明细列表")

	namespaces := collect(t, root)
	require.Len(t, namespaces, 1)
	assert.Equal(t, "LineItem 1", call(t, namespaces[0], "GET", "/api/order-items/1", nil)["data"].(map[string]any)["name"])
}

func TestGenerate_InlineSeedWithoutStore(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	cfg := NewConfig("roles")
	cfg.Root = root
	cfg.WithStore = false

	res, err := Generate(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotContains(t, res.Files, "packages/feat-roles/data/roles.seed.json")
	assert.NoDirExists(t, filepath.Join(res.Dir, "data"))

	namespaces := collect(t, root)
	require.Len(t, namespaces, 1)
	list := call(t, namespaces[0], "GET", "/api/roles?keyword=3", nil)
	assert.Equal(t, float64(1), list["data"].(map[string]any)["total"])
}

func TestGenerate_WithAPI(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	cfg := NewConfig("orders")
	cfg.Root = root
	cfg.WithAPI = true

	res, err := Generate(context.Background(), cfg)
	require.NoError(t, err)
	assert.Contains(t, res.Files, "packages/feat-orders/api/orders.openapi.yaml")

	doc, err := openapi3.NewLoader().LoadFromFile(filepath.Join(res.Dir, "api", "orders.openapi.yaml"))
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	assert.NotNil(t, doc.Paths.Find("/api/orders"))
	assert.NotNil(t, doc.Paths.Find("/api/orders/{id}"))
	assert.Contains(t, doc.Components.Schemas, "Order")
}

func TestGenerate_Minimal(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	res, err := Generate(context.Background(), Config{Name: "blank", Root: root})
	require.NoError(t, err)
	assert.Equal(t, []string{"packages/feat-blank/feature.yaml", "packages/feat-blank/README.md"}, res.Files)

	readme, err := os.ReadFile(filepath.Join(res.Dir, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "generated without mocks")
}

func TestGenerate_Errors(t *testing.T) {
	t.Parallel()

	t.Run("invalid name writes nothing", func(t *testing.T) {
		root := t.TempDir()
		_, err := Generate(context.Background(), Config{Name: "Bad Name", Root: root, WithMock: true})
		assert.ErrorIs(t, err, ErrInvalidName)
		assert.NoDirExists(t, filepath.Join(root, "packages"))
	})

	t.Run("existing feature", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "packages", "feat-orders"), 0o755))
		_, err := Generate(context.Background(), NewConfig("orders").withRoot(root))
		assert.ErrorIs(t, err, ErrExists)
	})

	t.Run("second generate", func(t *testing.T) {
		root := t.TempDir()
		_, err := Generate(context.Background(), NewConfig("orders").withRoot(root))
		require.NoError(t, err)
		_, err = Generate(context.Background(), NewConfig("orders").withRoot(root))
		assert.ErrorIs(t, err, ErrExists)
	})
}

func (c Config) withRoot(root string) Config {
	c.Root = root
	return c
}

func TestDir(t *testing.T) {
	t.Parallel()
	assert.Equal(t, filepath.Join("packages", "feat-x"), Dir(Config{Name: "x"}))
	assert.Equal(t, filepath.Join("/srv", "packages", "feat-x"), Dir(Config{Name: "x", Root: "/srv"}))
}
