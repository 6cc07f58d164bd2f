package queue

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// HandlerFunc executes one job payload and returns its output.
type HandlerFunc func(ctx context.Context, payload string) (string, error)

var (
	handlersMu sync.RWMutex
	handlers   = map[string]HandlerFunc{}
)

// RegisterHandler adds a handler under the given name. Registration is
// process-global so a re-exec'd worker child sees the same handlers as
// the parent.
func RegisterHandler(name string, fn HandlerFunc) error {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return fmt.Errorf("handler name is empty")
	}
	if fn == nil {
		return fmt.Errorf("handler %q is nil", name)
	}

	handlersMu.Lock()
	defer handlersMu.Unlock()
	if _, exists := handlers[key]; exists {
		return fmt.Errorf("handler %q already registered", key)
	}
	handlers[key] = fn
	return nil
}

// Handler looks up a registered handler by name.
func Handler(name string) (HandlerFunc, bool) {
	handlersMu.RLock()
	defer handlersMu.RUnlock()
	fn, ok := handlers[strings.ToLower(strings.TrimSpace(name))]
	return fn, ok
}

// HandlerNames returns the registered handler names, sorted.
func HandlerNames() []string {
	handlersMu.RLock()
	defer handlersMu.RUnlock()
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
