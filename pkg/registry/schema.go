package registry

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/namespace.schema.json
var namespaceSchemaJSON []byte

const namespaceSchemaURL = "namespace.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// namespaceSchema compiles the embedded schema on first use.
func namespaceSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(namespaceSchemaURL, bytes.NewReader(namespaceSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add namespace schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(namespaceSchemaURL)
	})
	return schema, schemaErr
}

// validateShape checks a decoded namespace document against the schema. The
// document goes through a JSON round-trip first so YAML scalars have the
// types the validator expects.
func validateShape(doc any) error {
	s, err := namespaceSchema()
	if err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("namespace is not JSON-compatible: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	if err := s.Validate(v); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return errors.New(flattenSchemaErrors(verr))
		}
		return err
	}
	return nil
}

// flattenSchemaErrors joins the leaf causes as "location: message".
func flattenSchemaErrors(err *jsonschema.ValidationError) string {
	var msgs []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := strings.TrimPrefix(e.InstanceLocation, "/")
			if loc == "" {
				loc = "(root)"
			}
			msgs = append(msgs, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(err)
	return strings.Join(msgs, "; ")
}
