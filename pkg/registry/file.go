package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// LoadError is a non-fatal problem with one mock file, namespace or route.
// Collection logs it, skips the offending item and continues.
type LoadError struct {
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// fileNamespace is one namespace document in a mock file. Routes stay raw so a
// malformed route only costs that route.
type fileNamespace struct {
	Feature     string      `yaml:"feature"`
	Description string      `yaml:"description"`
	Routes      []yaml.Node `yaml:"routes"`
	Seed        yaml.Node   `yaml:"seed"`
	SeedFile    string      `yaml:"seedFile"`

	raw any
}

// fileRoute is one route entry. Exactly one of Response, Expr or Handler
// supplies the body.
type fileRoute struct {
	Method   string            `yaml:"method"`
	Path     string            `yaml:"path"`
	Pattern  string            `yaml:"pattern"`
	Status   int               `yaml:"status"`
	DelayMs  int               `yaml:"delayMs"`
	Headers  map[string]string `yaml:"headers"`
	Response yaml.Node         `yaml:"response"`
	Expr     string            `yaml:"expr"`
	Handler  string            `yaml:"handler"`
}

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnvVars substitutes ${VAR} and ${VAR:-default}. Unset or empty
// variables without a default become empty strings.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		if val := os.Getenv(sub[1]); val != "" {
			return val
		}
		return sub[2]
	})
}

// readNamespaces decodes a mock file into its namespace documents. A document
// may be a single namespace or a sequence of them. JSON files go through the
// same YAML decoder.
func readNamespaces(path string) ([]*fileNamespace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file is empty")
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(ExpandEnvVars(string(data))), &root); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", fileKind(path), err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("file has no document")
	}

	doc := root.Content[0]
	items := []*yaml.Node{doc}
	if doc.Kind == yaml.SequenceNode {
		items = doc.Content
	}

	out := make([]*fileNamespace, 0, len(items))
	for _, item := range items {
		ns := &fileNamespace{}
		if err := item.Decode(&ns.raw); err != nil {
			return nil, fmt.Errorf("decoding namespace: %w", err)
		}
		ns.raw = normalize(ns.raw)
		// Shape problems surface through schema validation; a failed struct
		// decode leaves the fields zero for the caller to skip.
		_ = item.Decode(ns)
		out = append(out, ns)
	}
	return out, nil
}

// readSeedFile loads a JSON or YAML seed file relative to the mock file.
func readSeedFile(mockPath, seedFile string) (any, error) {
	path := seedFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(mockPath), seedFile)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", seedFile, err)
	}
	return normalize(v), nil
}

// decodeNode decodes an optional YAML node; absent nodes yield (nil, false).
func decodeNode(n *yaml.Node) (any, bool, error) {
	if n.Kind == 0 {
		return nil, false, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, true, err
	}
	return normalize(v), true, nil
}

// normalize converts YAML's map[any]any into map[string]any so values are
// JSON-serializable.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = normalize(e)
		}
		return m
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	default:
		return v
	}
}

func fileKind(path string) string {
	if filepath.Ext(path) == ".json" {
		return "JSON"
	}
	return "YAML"
}
