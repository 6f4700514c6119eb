// Package registry discovers, decodes and filters the mock namespaces of
// feature packages. Mock files are YAML or JSON documents matched by
// doublestar globs under a project root; built-in namespaces registered in
// code are collected first.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hemaweb/featmock/pkg/logging"
	"github.com/hemaweb/featmock/pkg/mock"
)

// DefaultGlobs are scanned when Options.Globs is empty.
var DefaultGlobs = []string{
	"packages/feat-*/mocks/**/*.mock.{yaml,yml,json}",
	"packages/feat-*/src/mocks/**/*.mock.{yaml,yml,json}",
}

// ignoreGlob excludes dependency trees from discovery and watching.
const ignoreGlob = "**/node_modules/**"

// ErrFeatureNotFound is returned by FeatureMocks for an unknown feature.
var ErrFeatureNotFound = errors.New("feature not found")

// Options configures a Collector.
type Options struct {
	// Root is the project root the globs are relative to. Defaults to ".".
	Root string
	// Globs are doublestar patterns relative to Root.
	Globs []string
	// Include keeps only the listed features when non-empty.
	Include []string
	// Exclude drops the listed features.
	Exclude []string
	// Logger receives collection logs; detail is logged at Debug.
	Logger *slog.Logger
}

// Collector gathers mock namespaces from built-ins and mock files.
type Collector struct {
	opts     Options
	log      *slog.Logger
	builtins []*mock.Namespace
	handlers *HandlerSet
}

// New creates a collector. Empty Root and Globs take their defaults; Root is
// made absolute so file paths and watcher events compare cleanly.
func New(opts Options) *Collector {
	if opts.Root == "" {
		opts.Root = "."
	}
	if abs, err := filepath.Abs(opts.Root); err == nil {
		opts.Root = abs
	}
	if len(opts.Globs) == 0 {
		opts.Globs = DefaultGlobs
	}
	return &Collector{
		opts:     opts,
		log:      logging.Component(opts.Logger, "mock-registry"),
		handlers: NewHandlerSet(),
	}
}

// Options returns the effective options.
func (c *Collector) Options() Options { return c.opts }

// Handlers returns the named handler set used by `handler:` routes.
func (c *Collector) Handlers() *HandlerSet { return c.handlers }

// AddBuiltin registers a namespace defined in code. Built-ins are collected
// before file namespaces, in registration order.
func (c *Collector) AddBuiltin(ns *mock.Namespace) {
	c.builtins = append(c.builtins, ns)
}

// RegisterHandler adds a named handler for file-defined routes.
func (c *Collector) RegisterHandler(name string, h mock.Handler) error {
	return c.handlers.Register(name, h)
}

// WithFilter returns a collector sharing built-ins and handlers but with
// different include/exclude lists.
func (c *Collector) WithFilter(include, exclude []string) *Collector {
	clone := *c
	clone.opts.Include = include
	clone.opts.Exclude = exclude
	return &clone
}

// Result is the outcome of one collection.
type Result struct {
	Namespaces []*mock.Namespace
	// Files are the mock files that were read, in load order.
	Files []string
	// Problems are the skipped files, namespaces and routes.
	Problems []*LoadError
}

// Collect returns the namespaces that survive validation and filtering.
func (c *Collector) Collect(ctx context.Context) ([]*mock.Namespace, error) {
	res, err := c.CollectResult(ctx)
	if err != nil {
		return nil, err
	}
	return res.Namespaces, nil
}

// CollectResult is Collect plus the file list and every skipped item. Only a
// missing root, an invalid glob or a cancelled context is an error.
func (c *Collector) CollectResult(ctx context.Context) (*Result, error) {
	c.log.Debug("collecting mocks", "root", c.opts.Root, "globs", c.opts.Globs)

	files, err := c.Discover()
	if err != nil {
		return nil, err
	}
	c.log.Debug("discovered mock files", "count", len(files))

	res := &Result{Files: files}
	for _, ns := range c.builtins {
		if !c.wanted(ns.Feature) {
			continue
		}
		if errs := mock.Validate(ns); len(errs) > 0 {
			res.Problems = append(res.Problems, c.warn(&LoadError{
				Path:    "builtin:" + ns.Feature,
				Message: "invalid namespace skipped",
				Err:     errors.Join(errs...),
			}))
			continue
		}
		c.accept(res, ns)
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.loadFile(res, path)
	}

	c.log.Debug("collection complete", "features", len(res.Namespaces), "problems", len(res.Problems))
	return res, nil
}

func (c *Collector) loadFile(res *Result, path string) {
	docs, err := readNamespaces(path)
	if err != nil {
		res.Problems = append(res.Problems, c.warn(&LoadError{Path: path, Message: "failed to load mock file", Err: err}))
		return
	}

	for i, doc := range docs {
		if err := validateShape(doc.raw); err != nil {
			res.Problems = append(res.Problems, c.warn(&LoadError{
				Path:    path,
				Message: fmt.Sprintf("invalid namespace %d skipped", i),
				Err:     err,
			}))
			continue
		}
		if !c.wanted(doc.Feature) {
			continue
		}

		ns, problems, err := compileNamespace(path, doc, c.handlers)
		for _, p := range problems {
			res.Problems = append(res.Problems, c.warn(p))
		}
		if err != nil {
			res.Problems = append(res.Problems, c.warn(&LoadError{
				Path:    path,
				Message: fmt.Sprintf("feature %s skipped", doc.Feature),
				Err:     err,
			}))
			continue
		}
		c.accept(res, ns)
	}
}

func (c *Collector) accept(res *Result, ns *mock.Namespace) {
	res.Namespaces = append(res.Namespaces, ns)
	c.log.Debug("loaded feature", "feature", ns.Feature, "routes", len(ns.Routes), "source", ns.Source)
}

// wanted applies include then exclude.
func (c *Collector) wanted(feature string) bool {
	if len(c.opts.Include) > 0 && !slices.Contains(c.opts.Include, feature) {
		c.log.Debug("feature not included", "feature", feature)
		return false
	}
	if slices.Contains(c.opts.Exclude, feature) {
		c.log.Debug("feature excluded", "feature", feature)
		return false
	}
	return true
}

func (c *Collector) warn(e *LoadError) *LoadError {
	c.log.Warn(e.Message, "path", e.Path, "error", e.Err)
	return e
}

// Discover returns the mock files matched by the globs: glob order, then
// lexical order within a glob, without duplicates.
func (c *Collector) Discover() ([]string, error) {
	info, err := os.Stat(c.opts.Root)
	if err != nil {
		return nil, fmt.Errorf("mock root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("mock root %s is not a directory", c.opts.Root)
	}

	fsys := os.DirFS(c.opts.Root)
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range c.opts.Globs {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("glob %q: %w", pattern, doublestar.ErrBadPattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		slices.Sort(matches)
		for _, m := range matches {
			if ignored(m) || seen[m] {
				continue
			}
			seen[m] = true
			files = append(files, filepath.Join(c.opts.Root, filepath.FromSlash(m)))
		}
	}
	return files, nil
}

// Matches reports whether path (absolute or relative to the working
// directory) is a mock file under the collector's globs.
func (c *Collector) Matches(path string) bool {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	rel, err := filepath.Rel(c.opts.Root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "../") || ignored(rel) {
		return false
	}
	for _, pattern := range c.opts.Globs {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// BaseDirs returns the static directory prefix of every glob, without
// duplicates, for the watcher to start from. The directories need not exist
// yet.
func (c *Collector) BaseDirs() []string {
	var dirs []string
	for _, pattern := range c.opts.Globs {
		base, _ := doublestar.SplitPattern(pattern)
		dir := filepath.Join(c.opts.Root, filepath.FromSlash(base))
		if !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func ignored(rel string) bool {
	ok, _ := doublestar.Match(ignoreGlob, rel)
	return ok
}

// Features returns the feature names of a fresh collection.
func (c *Collector) Features(ctx context.Context) ([]string, error) {
	namespaces, err := c.Collect(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(namespaces))
	for i, ns := range namespaces {
		names[i] = ns.Feature
	}
	return names, nil
}

// FeatureMocks collects only the named feature and returns its first
// namespace.
func (c *Collector) FeatureMocks(ctx context.Context, name string) (*mock.Namespace, error) {
	namespaces, err := c.WithFilter([]string{name}, nil).Collect(ctx)
	if err != nil {
		return nil, err
	}
	for _, ns := range namespaces {
		if ns.Feature == name {
			return ns, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFeatureNotFound, name)
}
