// ABOUTME: Plugin manager holding the loaded plugin set.
// ABOUTME: Dispatches hooks to every plugin and notifies subscribers when a plugin unloads.

package core

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/2389/rokcore/internal/logging"
)

var (
	// ErrAlreadyLoaded indicates a plugin with the same name is loaded.
	ErrAlreadyLoaded = errors.New("plugin already loaded")
	// ErrNotLoaded indicates no plugin with the given name is loaded.
	ErrNotLoaded = errors.New("plugin not loaded")
)

// SubscriptionID identifies an unload subscription
type SubscriptionID uint64

type subscription struct {
	plugin Plugin
	fn     func(Plugin)
}

// Manager owns the loaded plugins
type Manager struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	subs    map[SubscriptionID]subscription
	nextID  SubscriptionID
	logger  logging.Logger
}

// NewManager creates an empty plugin manager
func NewManager(logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewDisabledLogger()
	}
	return &Manager{
		plugins: make(map[string]Plugin),
		subs:    make(map[SubscriptionID]subscription),
		logger:  logger,
	}
}

// Load adds a plugin to the loaded set
func (m *Manager) Load(p Plugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := p.Name()
	if _, exists := m.plugins[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, name)
	}
	m.plugins[name] = p
	return nil
}

// Unload removes a plugin and notifies its unload subscribers.
// Subscribers run after the plugin has left the loaded set.
func (m *Manager) Unload(name string) (Plugin, error) {
	m.mu.Lock()
	p, ok := m.plugins[name]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	delete(m.plugins, name)

	var ids []SubscriptionID
	for id, sub := range m.subs {
		if sub.plugin == p {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(Plugin), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.subs[id].fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
	if u, ok := p.(Unloader); ok {
		u.Unload()
	}
	return p, nil
}

// Get retrieves a loaded plugin by name
func (m *Manager) Get(name string) (Plugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plugins[name]
	return p, ok
}

// All returns the loaded plugins sorted by name
func (m *Manager) All() []Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		plugins = append(plugins, p)
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name() < plugins[j].Name() })
	return plugins
}

// Names returns the loaded plugin names, sorted
func (m *Manager) Names() []string {
	plugins := m.All()
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name()
	}
	return names
}

// SubscribeUnload registers fn to run when p unloads
func (m *Manager) SubscribeUnload(p Plugin, fn func(Plugin)) SubscriptionID {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.subs[m.nextID] = subscription{plugin: p, fn: fn}
	return m.nextID
}

// Unsubscribe removes an unload subscription; unknown ids are ignored
func (m *Manager) Unsubscribe(id SubscriptionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, id)
}

// Subscriptions returns the number of active unload subscriptions
func (m *Manager) Subscriptions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

// CallHook calls hook on every loaded plugin in name order and returns the first
// non-nil result. Differing non-nil results are logged as a conflict.
func (m *Manager) CallHook(hook string, args ...any) any {
	var (
		result any
		owner  Plugin
	)
	for _, p := range m.All() {
		value := m.callPlugin(p, hook, args)
		if value == nil {
			continue
		}
		if result == nil {
			result, owner = value, p
			continue
		}
		if !reflect.DeepEqual(result, value) {
			m.logger.Warn("calling hook resulted in a conflict",
				"hook", hook, "plugin", p.Name(), "value", value, "kept_plugin", owner.Name(), "kept", result)
		}
	}
	return result
}

func (m *Manager) callPlugin(p Plugin, hook string, args []any) (result any) {
	p.TrackStart()
	defer p.TrackEnd()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("failed to call hook", "hook", hook, "plugin", p.Name(), "panic", r)
			result = nil
		}
	}()
	return p.CallHook(hook, args...)
}
