package mock

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
)

// ParseBody decodes a request body. It tries JSON first, then form encoding,
// then falls back to the raw string; it never fails. An empty body is nil.
func ParseBody(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err == nil && !dec.More() {
		return normalizeNumbers(v)
	}

	text := string(raw)
	if values, err := url.ParseQuery(text); err == nil && len(values) > 0 {
		form := make(map[string]any, len(values))
		for k, vs := range values {
			if len(vs) == 1 {
				form[k] = vs[0]
			} else {
				form[k] = vs
			}
		}
		return form
	}
	return text
}

// normalizeNumbers turns json.Number into int64 when integral, float64
// otherwise, so handlers and expressions see plain numbers.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
	}
	return v
}

// ParseList splits a comma-separated list, trimming entries and dropping
// empty ones. Empty input yields nil.
func ParseList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
