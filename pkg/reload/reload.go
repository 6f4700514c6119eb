// Package reload keeps a mock route list current while mock files change.
//
// A Reloader owns the active []mock.FeatureRoute behind an atomic pointer.
// Load replaces the whole list from a fresh collection; Watch arms an
// fsnotify watcher over the glob base directories and calls Load, debounced,
// whenever a matching file is created, written, removed or renamed, or a
// directory holding mock files goes away. A failed
// reload leaves the previous list in effect.
//
// Routes is shaped to be the dispatcher's live route source:
//
//	r := reload.New(collector, reload.Options{Logger: log})
//	if err := r.Load(ctx); err != nil { ... }
//	_ = r.Watch(ctx)
//	d := engine.NewDispatcher(engine.Options{Routes: r.Routes})
package reload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hemaweb/featmock/pkg/logging"
	"github.com/hemaweb/featmock/pkg/metrics"
	"github.com/hemaweb/featmock/pkg/mock"
	"github.com/hemaweb/featmock/pkg/registry"
)

// DefaultDebounce groups bursts of file events into one reload.
const DefaultDebounce = 100 * time.Millisecond

// Source is what a Reloader collects from. *registry.Collector implements it.
type Source interface {
	CollectResult(ctx context.Context) (*registry.Result, error)
	BaseDirs() []string
	Matches(path string) bool
}

// Options configures a Reloader.
type Options struct {
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	Logger   *slog.Logger
	// Metrics, if set, records reload results and per-feature route counts.
	Metrics *metrics.Mock
}

// Event describes one reload attempt.
type Event struct {
	// Files are the mock files read by the collection.
	Files []string
	// Routes is the number of active routes after the attempt.
	Routes int
	// Features is the number of collected namespaces.
	Features int
	// Problems is the number of skipped files, namespaces and routes.
	Problems int
	// Err is set when the collection failed and the previous list was kept.
	Err error
}

// Reloader holds the active route list.
type Reloader struct {
	src  Source
	opts Options
	log  *slog.Logger

	routes atomic.Pointer[[]mock.FeatureRoute]
	files  atomic.Pointer[[]string]
	loadMu sync.Mutex

	subMu sync.RWMutex
	subs  []func(Event)
}

// New creates a Reloader over src. Routes is nil until the first Load.
func New(src Source, opts Options) *Reloader {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Reloader{
		src:  src,
		opts: opts,
		log:  logging.Component(opts.Logger, "mock-reload"),
	}
}

// OnReload subscribes fn to every reload attempt. fn runs on the goroutine
// that called Load and must not block.
func (r *Reloader) OnReload(fn func(Event)) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	r.subs = append(r.subs, fn)
}

// Routes returns the active route list. The slice is never mutated after it
// is published and is non-nil once a Load has succeeded.
func (r *Reloader) Routes() []mock.FeatureRoute {
	if p := r.routes.Load(); p != nil {
		return *p
	}
	return nil
}

// Matches reports whether path is a watched mock file.
func (r *Reloader) Matches(path string) bool {
	return r.src.Matches(path)
}

// Load collects and atomically replaces the route list. On failure the
// previous list stays active and the error is returned.
func (r *Reloader) Load(ctx context.Context) error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	start := time.Now()
	res, err := r.src.CollectResult(ctx)
	if err != nil {
		err = fmt.Errorf("reload mocks: %w", err)
		r.log.Error("mock reload failed, keeping previous routes", "error", err)
		r.opts.Metrics.ObserveReload(err)
		r.notify(Event{Routes: len(r.Routes()), Err: err})
		return err
	}

	routes := mock.Flatten(res.Namespaces)
	r.routes.Store(&routes)
	files := res.Files
	r.files.Store(&files)

	r.opts.Metrics.SetRoutes(registry.RouteCounts(res.Namespaces))
	r.opts.Metrics.ObserveReload(nil)
	r.log.Info("mock routes loaded",
		"features", len(res.Namespaces),
		"routes", len(routes),
		"files", len(res.Files),
		"problems", len(res.Problems),
		"duration", time.Since(start),
	)
	r.notify(Event{
		Files:    res.Files,
		Routes:   len(routes),
		Features: len(res.Namespaces),
		Problems: len(res.Problems),
	})
	return nil
}

func (r *Reloader) notify(ev Event) {
	r.subMu.RLock()
	subs := r.subs
	r.subMu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// Watch arms a recursive watcher over the source's base directories and
// returns. Matching changes trigger a debounced Load until ctx is cancelled.
// Directories created later are watched as they appear; a base directory that
// does not exist yet is waited for through its nearest existing ancestor.
func (r *Reloader) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	ws := &watchSet{w: w, bases: r.src.BaseDirs(), dirs: make(map[string]struct{})}
	if _, err := r.arm(ws); err != nil {
		_ = w.Close()
		return err
	}
	if missing := ws.missing(); len(missing) > 0 {
		r.log.Warn("mock directories do not exist yet, waiting for them", "dirs", missing)
	}
	r.log.Info("watching mock files", "dirs", ws.bases, "debounce", r.opts.Debounce)

	go r.loop(ctx, ws)
	return nil
}

// watchSet is the loop-owned view of what the watcher covers.
type watchSet struct {
	w     *fsnotify.Watcher
	bases []string
	// dirs are the directories watched as part of a base tree.
	dirs map[string]struct{}
}

// inBase reports whether path is a base directory or lies below one.
func (ws *watchSet) inBase(path string) bool {
	for _, base := range ws.bases {
		if within(base, path) {
			return true
		}
	}
	return false
}

// missing returns the base directories not watched yet.
func (ws *watchSet) missing() []string {
	var out []string
	for _, base := range ws.bases {
		if _, ok := ws.dirs[base]; !ok {
			out = append(out, base)
		}
	}
	return out
}

// drop forgets path and everything below it. It reports whether path was a
// watched directory.
func (ws *watchSet) drop(path string) bool {
	if _, ok := ws.dirs[path]; !ok {
		return false
	}
	for dir := range ws.dirs {
		if within(path, dir) {
			delete(ws.dirs, dir)
			// Deleted directories lose their watch on their own; renamed ones
			// would keep reporting under stale names.
			_ = ws.w.Remove(dir)
		}
	}
	return true
}

// arm watches every base directory that exists and is not watched yet, and
// the nearest existing ancestor of each one that does not. It reports whether
// a newly armed tree already holds mock files.
func (r *Reloader) arm(ws *watchSet) (bool, error) {
	found := false
	for _, base := range ws.bases {
		if _, ok := ws.dirs[base]; ok {
			continue
		}
		if isDir(base) {
			f, err := r.addTree(ws, base)
			if err != nil {
				return found, fmt.Errorf("watch %s: %w", base, err)
			}
			found = found || f
			continue
		}
		if parent := existingAncestor(base); parent != "" {
			if err := ws.w.Add(parent); err != nil {
				return found, fmt.Errorf("watch %s: %w", parent, err)
			}
		}
	}
	return found, nil
}

// holdsFiles reports whether any file of the last collection lies below dir.
func (r *Reloader) holdsFiles(dir string) bool {
	p := r.files.Load()
	if p == nil {
		return false
	}
	for _, f := range *p {
		if f != dir && within(dir, f) {
			return true
		}
	}
	return false
}

func (r *Reloader) loop(ctx context.Context, ws *watchSet) {
	w := ws.w
	defer func() { _ = w.Close() }()

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		changed = map[string]struct{}{}
	)
	schedule := func(path string) {
		changed[path] = struct{}{}
		if timer == nil {
			timer = time.NewTimer(r.opts.Debounce)
		} else {
			timer.Reset(r.opts.Debounce)
		}
		fire = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			switch {
			case ev.Has(fsnotify.Create) && isDir(ev.Name):
				var (
					found bool
					err   error
				)
				if ws.inBase(ev.Name) {
					found, err = r.addTree(ws, ev.Name)
				} else {
					found, err = r.arm(ws)
				}
				if err != nil {
					r.log.Warn("failed to watch new directory", "dir", ev.Name, "error", err)
				}
				if found {
					r.log.Debug("mock directory added", "dir", ev.Name)
					schedule(ev.Name)
				}

			case ev.Has(fsnotify.Remove | fsnotify.Rename):
				dropped := ws.drop(ev.Name)
				if dropped {
					if _, err := r.arm(ws); err != nil {
						r.log.Warn("failed to re-arm watcher", "error", err)
					}
				}
				if dropped || r.holdsFiles(ev.Name) || r.src.Matches(ev.Name) {
					r.log.Debug("mock path removed", "path", ev.Name, "op", ev.Op.String())
					schedule(ev.Name)
				}

			case ev.Has(fsnotify.Create | fsnotify.Write):
				if r.src.Matches(ev.Name) {
					r.log.Debug("mock file changed", "path", ev.Name, "op", ev.Op.String())
					schedule(ev.Name)
				}
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.log.Warn("watcher error", "error", err)

		case <-fire:
			fire = nil
			r.log.Info("mock files changed, reloading", "changes", len(changed))
			clear(changed)
			if err := r.Load(ctx); err != nil && errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

// addTree watches dir and its subdirectories, skipping dependency and VCS
// trees. It reports whether any mock file already exists below dir.
func (r *Reloader) addTree(ws *watchSet, dir string) (bool, error) {
	found := false
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			if !found && r.src.Matches(path) {
				found = true
			}
			return nil
		}
		if path != dir {
			switch d.Name() {
			case "node_modules", ".git":
				return filepath.SkipDir
			}
		}
		if err := ws.w.Add(path); err != nil {
			return err
		}
		ws.dirs[path] = struct{}{}
		return nil
	})
	return found, err
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// existingAncestor returns the closest parent of path that is a directory, or
// "" when none is.
func existingAncestor(path string) string {
	for {
		parent := filepath.Dir(path)
		if parent == path {
			return ""
		}
		path = parent
		if isDir(path) {
			return path
		}
	}
}
