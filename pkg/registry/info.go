package registry

import (
	"fmt"

	"github.com/hemaweb/featmock/pkg/mock"
)

// FeatureInfo is the route count of one feature.
type FeatureInfo struct {
	Name   string `json:"name"`
	Routes int    `json:"routes"`
}

// Info summarizes a collection for /mock-info and `featmock info`.
type Info struct {
	Features    []FeatureInfo `json:"features"`
	TotalRoutes int           `json:"totalRoutes"`
}

// Summary counts routes per namespace, keeping collection order.
func Summary(namespaces []*mock.Namespace) Info {
	info := Info{Features: make([]FeatureInfo, 0, len(namespaces))}
	for _, ns := range namespaces {
		info.Features = append(info.Features, FeatureInfo{Name: ns.Feature, Routes: len(ns.Routes)})
		info.TotalRoutes += len(ns.Routes)
	}
	return info
}

// RouteCounts returns feature -> route count, summing namespaces that share a
// feature name.
func RouteCounts(namespaces []*mock.Namespace) map[string]int {
	counts := make(map[string]int, len(namespaces))
	for _, ns := range namespaces {
		counts[ns.Feature] += len(ns.Routes)
	}
	return counts
}

// ValidateFile decodes, schema-checks and compiles every route of one mock
// file without registering anything. Handler names resolve against the
// collector's handler set. An empty result means the file is valid.
func (c *Collector) ValidateFile(path string) []error {
	docs, err := readNamespaces(path)
	if err != nil {
		return []error{&LoadError{Path: path, Message: "failed to load mock file", Err: err}}
	}

	var errs []error
	for i, doc := range docs {
		if err := validateShape(doc.raw); err != nil {
			errs = append(errs, &LoadError{Path: path, Message: fmt.Sprintf("invalid namespace %d", i), Err: err})
			continue
		}
		_, problems, err := compileNamespace(path, doc, c.handlers)
		for _, p := range problems {
			errs = append(errs, p)
		}
		if err != nil {
			errs = append(errs, &LoadError{Path: path, Message: "feature " + doc.Feature, Err: err})
		}
	}
	return errs
}
