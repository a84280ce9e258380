package handlers

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// Register adds a handler factory under id. Registered handlers are wrapped
// with a SkipListWrapper so every handler supports the skip.* options.
func Register(id string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[id]; exists {
		panic(fmt.Sprintf("handler %s already registered", id))
	}
	if f == nil {
		panic(fmt.Sprintf("handler %s has a nil factory", id))
	}
	registry[id] = f
}

// IDs returns all registered handler ids in sorted order.
func IDs() []string {
	mu.RLock()
	defer mu.RUnlock()
	return sortedIDsLocked()
}

func sortedIDsLocked() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List builds one instance of every registered handler, sorted by id.
func List(env Env) []Handler {
	mu.RLock()
	defer mu.RUnlock()
	var out []Handler
	for _, id := range sortedIDsLocked() {
		out = append(out, newInstance(registry[id], env))
	}
	return out
}

// Resolve builds the handlers named by a comma-separated selector, in
// selector order. An empty selector selects every handler in id order.
func Resolve(selector string, env Env) ([]Handler, error) {
	if strings.TrimSpace(selector) == "" {
		return List(env), nil
	}

	mu.RLock()
	defer mu.RUnlock()
	var selected []Handler
	seen := make(map[string]bool)
	for _, id := range strings.Split(selector, ",") {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		f, ok := registry[id]
		if !ok {
			return nil, fmt.Errorf("handler not found: %s", id)
		}
		seen[id] = true
		selected = append(selected, newInstance(f, env))
	}
	return selected, nil
}

func newInstance(f Factory, env Env) Handler {
	return &SkipListWrapper{Handler: f(env)}
}

// Configure routes per-handler options ("handlerID" -> option -> value) to the
// matching handlers. Unknown handler ids and unknown options are errors.
func Configure(hs []Handler, assignments map[string]map[string]string) error {
	byID := make(map[string]Handler, len(hs))
	for _, h := range hs {
		byID[h.ID()] = h
	}

	ids := make([]string, 0, len(assignments))
	for id := range assignments {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		opts := assignments[id]
		h, ok := byID[id]
		if !ok {
			return fmt.Errorf("unknown or unselected handler ID %q", id)
		}
		ch, ok := h.(ConfigurableHandler)
		if !ok {
			return fmt.Errorf("handler %q does not support options", id)
		}
		allowed := make(map[string]struct{})
		for _, opt := range ch.Options() {
			allowed[opt.Name] = struct{}{}
		}
		for name := range opts {
			if _, ok := allowed[name]; !ok {
				return fmt.Errorf("unknown option %q for handler %q", name, id)
			}
		}
		if err := ch.Configure(opts); err != nil {
			return fmt.Errorf("configure handler %q: %w", id, err)
		}
	}
	return nil
}

// Prepare checks every handler that implements Preparer, in order, and
// returns the first error.
func Prepare(hs []Handler) error {
	for _, h := range hs {
		p, ok := h.(Preparer)
		if !ok {
			continue
		}
		if err := p.Prepare(); err != nil {
			return fmt.Errorf("handler %q: %w", h.ID(), err)
		}
	}
	return nil
}
