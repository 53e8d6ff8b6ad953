// ABOUTME: Catalogue of built-in plugins available for loading.
// ABOUTME: Plugins register a factory in init() functions; the host loads them by name.

package core

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a fresh plugin instance
type Factory func() Plugin

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// Register adds a plugin factory to the catalogue
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("plugin %q already registered", name))
	}
	registry[name] = factory
}

// Lookup retrieves a plugin factory by name
func Lookup(name string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// Names returns all catalogued plugin names, sorted
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
