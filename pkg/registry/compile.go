package registry

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/hemaweb/featmock/pkg/mock"
)

var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
	http.MethodHead:    true,
}

// compileNamespace turns a decoded document into a mock.Namespace. Routes that
// fail to compile are reported and left out; the namespace itself only fails
// on seed problems.
func compileNamespace(path string, doc *fileNamespace, handlers *HandlerSet) (*mock.Namespace, []*LoadError, error) {
	seed, err := namespaceSeed(path, doc)
	if err != nil {
		return nil, nil, err
	}

	ns := &mock.Namespace{Feature: doc.Feature, Source: path}
	var problems []*LoadError
	for i := range doc.Routes {
		route, err := compileRoute(&doc.Routes[i], seed, handlers)
		if err != nil {
			problems = append(problems, &LoadError{
				Path:    path,
				Message: fmt.Sprintf("feature %s: routes[%d] skipped", doc.Feature, i),
				Err:     err,
			})
			continue
		}
		ns.Routes = append(ns.Routes, route)
	}
	return ns, problems, nil
}

func namespaceSeed(path string, doc *fileNamespace) (any, error) {
	if doc.SeedFile != "" {
		return readSeedFile(path, doc.SeedFile)
	}
	seed, _, err := decodeNode(&doc.Seed)
	if err != nil {
		return nil, fmt.Errorf("decoding seed: %w", err)
	}
	return seed, nil
}

func compileRoute(node *yaml.Node, seed any, handlers *HandlerSet) (mock.Route, error) {
	var fr fileRoute
	if err := node.Decode(&fr); err != nil {
		return mock.Route{}, fmt.Errorf("decoding route: %w", err)
	}

	route := mock.Route{
		Method:  mock.NormalizeMethod(fr.Method),
		Status:  fr.Status,
		DelayMs: fr.DelayMs,
		Headers: fr.Headers,
	}
	if fr.Method == "" {
		return route, errors.New("method is required")
	}
	if !allowedMethods[route.Method] {
		return route, fmt.Errorf("unsupported method %q", fr.Method)
	}
	if fr.Status != 0 && (fr.Status < 100 || fr.Status > 599) {
		return route, fmt.Errorf("status %d out of range", fr.Status)
	}
	if fr.DelayMs < 0 {
		return route, fmt.Errorf("delayMs %d is negative", fr.DelayMs)
	}

	switch {
	case fr.Path != "" && fr.Pattern != "":
		return route, errors.New("path and pattern are mutually exclusive")
	case fr.Pattern != "":
		re, err := regexp.Compile(fr.Pattern)
		if err != nil {
			return route, fmt.Errorf("invalid pattern: %w", err)
		}
		route.Pattern = re
	case fr.Path != "":
		route.Path = fr.Path
	default:
		return route, errors.New("path or pattern is required")
	}

	handler, err := routeHandler(&fr, seed, handlers)
	if err != nil {
		return route, err
	}
	route.Handler = handler
	return route, nil
}

// routeHandler builds the handler from exactly one of response, expr or
// handler.
func routeHandler(fr *fileRoute, seed any, handlers *HandlerSet) (mock.Handler, error) {
	response, hasResponse, err := decodeNode(&fr.Response)
	if err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	kinds := 0
	for _, set := range []bool{hasResponse, fr.Expr != "", fr.Handler != ""} {
		if set {
			kinds++
		}
	}
	switch kinds {
	case 0:
		return nil, errors.New("one of response, expr or handler is required")
	case 1:
	default:
		return nil, errors.New("response, expr and handler are mutually exclusive")
	}

	switch {
	case hasResponse:
		return func(*mock.Context) (any, error) { return response, nil }, nil
	case fr.Expr != "":
		program, err := compileExpr(fr.Expr)
		if err != nil {
			return nil, fmt.Errorf("invalid expr: %w", err)
		}
		return exprHandler(program, seed), nil
	default:
		h, ok := handlers.Lookup(fr.Handler)
		if !ok {
			return nil, fmt.Errorf("unknown handler %q", fr.Handler)
		}
		return h, nil
	}
}
