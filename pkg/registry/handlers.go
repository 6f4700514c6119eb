package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hemaweb/featmock/pkg/mock"
)

// HandlerSet maps names such as "users.list" to Go handlers so file-defined
// routes can reuse built-in behavior.
type HandlerSet struct {
	mu       sync.RWMutex
	handlers map[string]mock.Handler
}

// NewHandlerSet creates an empty set.
func NewHandlerSet() *HandlerSet {
	return &HandlerSet{handlers: make(map[string]mock.Handler)}
}

// Register adds or replaces a named handler.
func (s *HandlerSet) Register(name string, h mock.Handler) error {
	if name == "" {
		return fmt.Errorf("register handler: empty name")
	}
	if h == nil {
		return fmt.Errorf("register handler %q: nil handler", name)
	}
	s.mu.Lock()
	s.handlers[name] = h
	s.mu.Unlock()
	return nil
}

// Lookup returns the handler registered under name.
func (s *HandlerSet) Lookup(name string) (mock.Handler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handlers[name]
	return h, ok
}

// Names returns the registered names, sorted.
func (s *HandlerSet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
