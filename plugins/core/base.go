// ABOUTME: Embeddable base implementation of the Plugin interface.
// ABOUTME: Provides a hook table and call tracking so plugins only declare behaviour.

package core

import (
	"time"
)

// HookFunc handles a named hook call
type HookFunc func(args ...any) any

// Base implements Plugin. Embed it and set Title (and Core for framework-owned plugins).
type Base struct {
	Title string
	Core  bool

	hooks map[string]HookFunc

	depth     int
	started   time.Time
	calls     int
	totalTime time.Duration
}

func (b *Base) Name() string { return b.Title }
func (b *Base) IsCore() bool { return b.Core }

// Hook registers fn as the handler for hook, replacing any previous handler
func (b *Base) Hook(hook string, fn HookFunc) {
	if b.hooks == nil {
		b.hooks = make(map[string]HookFunc)
	}
	b.hooks[hook] = fn
}

// CallHook invokes the named hook if the plugin handles it
func (b *Base) CallHook(hook string, args ...any) any {
	fn, ok := b.hooks[hook]
	if !ok {
		return nil
	}
	return fn(args...)
}

// TrackStart marks the start of plugin execution. Nested calls are only timed once.
func (b *Base) TrackStart() {
	if b.depth == 0 {
		b.started = time.Now()
	}
	b.depth++
}

// TrackEnd marks the end of plugin execution started by TrackStart
func (b *Base) TrackEnd() {
	if b.depth == 0 {
		return
	}
	b.depth--
	if b.depth == 0 {
		b.calls++
		b.totalTime += time.Since(b.started)
	}
}

// Stats returns how many tracked calls completed and the total time spent in them
func (b *Base) Stats() (calls int, total time.Duration) {
	return b.calls, b.totalTime
}
