// Package scaffold generates new feature packages.
//
// A feature lives under packages/feat-<name> and gets a manifest, a README and,
// depending on the Config, mock routes backed by seed data, translations and
// an OpenAPI contract. Generated mock files are checked with the same
// collector that serves them, so a new feature is servable immediately.
package scaffold

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hemaweb/featmock/pkg/registry"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("scaffold").ParseFS(templateFS, "templates/*.tmpl"))

var (
	// ErrInvalidName is returned for names that are not lower-case kebab case.
	ErrInvalidName = errors.New("feature name must start with a lower-case letter and contain only lower-case letters, digits and hyphens")
	// ErrExists is returned when the feature directory is already present.
	ErrExists = errors.New("feature already exists")
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// now is replaced in tests.
var now = time.Now

// Config describes the feature to generate.
type Config struct {
	// Name is the feature name without the feat- prefix, e.g. "orders".
	Name string
	// Entity defaults to the PascalCase singular of Name.
	Entity string
	// DisplayName defaults to Name.
	DisplayName string

	WithAPI   bool
	WithMock  bool
	WithI18n  bool
	WithStore bool

	// Root is the project root holding packages/. Defaults to ".".
	Root string
}

// NewConfig returns the default configuration for name: mocks, translations
// and seed data on, OpenAPI off.
func NewConfig(name string) Config {
	return Config{
		Name:      name,
		WithMock:  true,
		WithI18n:  true,
		WithStore: true,
	}
}

// Result lists what Generate created.
type Result struct {
	// Dir is the feature directory.
	Dir string `json:"dir"`
	// Files are the created files, relative to Root, slash-separated.
	Files []string `json:"files"`
}

// ValidateName checks a feature name.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Dir returns the feature directory for cfg.
func Dir(cfg Config) string {
	root := cfg.Root
	if root == "" {
		root = "."
	}
	return filepath.Join(root, "packages", "feat-"+cfg.Name)
}

type templateData struct {
	FeatName        string
	FeatNamePascal  string
	FeatNameCamel   string
	EntityName      string
	EntityNameLower string
	DisplayName     string
	CurrentYear     string
	CurrentDate     string

	WithAPI   bool
	WithMock  bool
	WithI18n  bool
	WithStore bool
}

type file struct {
	rel      string
	template string
}

// Generate creates the feature described by cfg. Nothing is written when the
// name is invalid, the directory exists or the OpenAPI contract does not
// validate. If the written mock file fails validation the directory is
// removed again.
func Generate(ctx context.Context, cfg Config) (*Result, error) {
	if err := ValidateName(cfg.Name); err != nil {
		return nil, err
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	dir := Dir(cfg)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, dir)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("checking %s: %w", dir, err)
	}

	data := newTemplateData(cfg)
	rendered := make(map[string][]byte)
	var order []string
	for _, f := range plan(cfg) {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, f.template, data); err != nil {
			return nil, fmt.Errorf("rendering %s: %w", f.rel, err)
		}
		rendered[f.rel] = buf.Bytes()
		order = append(order, f.rel)
	}

	if cfg.WithAPI {
		rel := filepath.Join("api", cfg.Name+".openapi.yaml")
		if err := validateOpenAPI(ctx, rendered[rel]); err != nil {
			return nil, fmt.Errorf("generated OpenAPI contract is invalid: %w", err)
		}
	}

	res := &Result{Dir: dir}
	for _, rel := range order {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating directory: %w", err)
		}
		if err := os.WriteFile(path, rendered[rel], 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", rel, err)
		}
		out, err := filepath.Rel(cfg.Root, path)
		if err != nil {
			out = path
		}
		res.Files = append(res.Files, filepath.ToSlash(out))
	}

	if cfg.WithMock {
		mockPath := filepath.Join(dir, "mocks", cfg.Name+".mock.yaml")
		if errs := registry.New(registry.Options{Root: cfg.Root}).ValidateFile(mockPath); len(errs) > 0 {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("generated mock file is invalid: %w", errors.Join(errs...))
		}
	}
	return res, nil
}

func plan(cfg Config) []file {
	files := []file{
		{rel: "feature.yaml", template: "feature.yaml.tmpl"},
		{rel: "README.md", template: "README.md.tmpl"},
	}
	if cfg.WithMock {
		files = append(files, file{rel: filepath.Join("mocks", cfg.Name+".mock.yaml"), template: "mock.yaml.tmpl"})
	}
	// Seed data only backs the mock routes.
	if cfg.WithMock && cfg.WithStore {
		files = append(files, file{rel: filepath.Join("data", cfg.Name+".seed.json"), template: "seed.json.tmpl"})
	}
	if cfg.WithI18n {
		files = append(files,
			file{rel: filepath.Join("i18n", "en.yaml"), template: "i18n.en.yaml.tmpl"},
			file{rel: filepath.Join("i18n", "zh.yaml"), template: "i18n.zh.yaml.tmpl"},
		)
	}
	if cfg.WithAPI {
		files = append(files, file{rel: filepath.Join("api", cfg.Name+".openapi.yaml"), template: "openapi.yaml.tmpl"})
	}
	return files
}

func newTemplateData(cfg Config) templateData {
	entity := cfg.Entity
	if entity == "" {
		entity = PascalCase(strings.TrimSuffix(cfg.Name, "s"))
	}
	display := cfg.DisplayName
	if display == "" {
		display = cfg.Name
	}
	t := now()
	return templateData{
		FeatName:        cfg.Name,
		FeatNamePascal:  PascalCase(cfg.Name),
		FeatNameCamel:   CamelCase(cfg.Name),
		EntityName:      entity,
		EntityNameLower: strings.ToLower(entity),
		DisplayName:     display,
		CurrentYear:     t.Format("2006"),
		CurrentDate:     t.Format(time.DateOnly),
		WithAPI:         cfg.WithAPI,
		WithMock:        cfg.WithMock,
		WithI18n:        cfg.WithI18n,
		WithStore:       cfg.WithStore,
	}
}

// PascalCase converts kebab-case to PascalCase: "order-items" -> "OrderItems".
func PascalCase(s string) string {
	title := cases.Title(language.English, cases.NoLower)
	var b strings.Builder
	for _, part := range strings.Split(s, "-") {
		b.WriteString(title.String(part))
	}
	return b.String()
}

// CamelCase converts kebab-case to camelCase: "order-items" -> "orderItems".
func CamelCase(s string) string {
	head, rest, _ := strings.Cut(s, "-")
	if rest == "" {
		return head
	}
	return head + PascalCase(rest)
}

func validateOpenAPI(ctx context.Context, data []byte) error {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return fmt.Errorf("parsing: %w", err)
	}
	return doc.Validate(ctx)
}
