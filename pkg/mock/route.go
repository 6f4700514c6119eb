// Package mock defines the mock route data model shared by the registry, the
// dispatcher and the built-in features: routes, feature namespaces, the
// per-request Context and the small parsing helpers around them.
package mock

import (
	"regexp"
	"strings"
)

// Handler produces the response payload for a matched request. The value is
// serialized as JSON unless the handler already replied through ctx. A
// returned error or a panic fails the request.
type Handler func(ctx *Context) (any, error)

// Route is a single mock endpoint. Exactly one of Path (literal, compared
// exactly) or Pattern (regular expression) is set. Routes are not unique by
// (method, path); the first match in list order wins.
type Route struct {
	Method  string
	Path    string
	Pattern *regexp.Regexp
	Handler Handler
	// DelayMs is waited before the handler runs. Zero or negative means none.
	DelayMs int
	// Status is used for handler return values; zero means 200.
	Status  int
	Headers map[string]string
}

// Display returns the path or the pattern source, for logs and listings.
func (r Route) Display() string {
	if r.Pattern != nil {
		return r.Pattern.String()
	}
	return r.Path
}

// StatusOrDefault returns Status, or 200 when unset.
func (r Route) StatusOrDefault() int {
	if r.Status == 0 {
		return 200
	}
	return r.Status
}

// Namespace groups the routes of one feature package.
type Namespace struct {
	Feature string
	Routes  []Route
	// Source is the file the namespace was loaded from; empty for built-ins.
	Source string
}

// Define builds a namespace, normalizing route methods.
func Define(feature string, routes ...Route) *Namespace {
	for i := range routes {
		routes[i].Method = NormalizeMethod(routes[i].Method)
	}
	return &Namespace{Feature: feature, Routes: routes}
}

// FeatureRoute is a route tagged with its owning feature.
type FeatureRoute struct {
	Route
	Feature string
}

// Flatten concatenates the routes of every namespace, keeping namespace order
// and then in-namespace order.
func Flatten(namespaces []*Namespace) []FeatureRoute {
	n := 0
	for _, ns := range namespaces {
		n += len(ns.Routes)
	}
	out := make([]FeatureRoute, 0, n)
	for _, ns := range namespaces {
		for _, r := range ns.Routes {
			out = append(out, FeatureRoute{Route: r, Feature: ns.Feature})
		}
	}
	return out
}

// NormalizeMethod upper-cases and trims m; empty means GET.
func NormalizeMethod(m string) string {
	m = strings.ToUpper(strings.TrimSpace(m))
	if m == "" {
		return "GET"
	}
	return m
}

// MatchPath matches pathname against the route. Literal routes match on
// exact equality and yield nil params. Pattern routes yield the submatch
// slice, element 0 being the whole match.
func MatchPath(route Route, pathname string) (bool, []string) {
	if route.Pattern != nil {
		m := route.Pattern.FindStringSubmatch(pathname)
		return m != nil, m
	}
	return route.Path == pathname, nil
}
