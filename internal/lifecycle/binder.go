// ABOUTME: Binds command ownership to plugin lifetime.
// ABOUTME: Keeps one unload subscription per owning plugin and releases its commands on unload.

package lifecycle

import (
	"github.com/2389/rokcore/plugins/core"
)

// Notifier is the plugin manager's unload subscription surface
type Notifier interface {
	SubscribeUnload(p core.Plugin, fn func(core.Plugin)) core.SubscriptionID
	Unsubscribe(id core.SubscriptionID)
}

// Binder tracks the unload subscription of every plugin that owns commands
type Binder struct {
	notifier Notifier
	release  func(core.Plugin)
	subs     map[core.Plugin]core.SubscriptionID
}

// NewBinder creates a binder that calls release when a bound plugin unloads
func NewBinder(notifier Notifier, release func(core.Plugin)) *Binder {
	return &Binder{
		notifier: notifier,
		release:  release,
		subs:     make(map[core.Plugin]core.SubscriptionID),
	}
}

// EnsureSubscribed subscribes to p's unload event unless already subscribed
func (b *Binder) EnsureSubscribed(p core.Plugin) {
	if p == nil {
		return
	}
	if _, ok := b.subs[p]; ok {
		return
	}
	b.subs[p] = b.notifier.SubscribeUnload(p, b.OnPluginUnloaded)
}

// OnPluginUnloaded releases everything p owns and drops its subscription
func (b *Binder) OnPluginUnloaded(p core.Plugin) {
	if b.release != nil {
		b.release(p)
	}
	b.Unbind(p)
}

// Unbind removes p's subscription; unknown plugins are ignored
func (b *Binder) Unbind(p core.Plugin) {
	id, ok := b.subs[p]
	if !ok {
		return
	}
	b.notifier.Unsubscribe(id)
	delete(b.subs, p)
}

// Subscribed reports whether p has an active subscription
func (b *Binder) Subscribed(p core.Plugin) bool {
	_, ok := b.subs[p]
	return ok
}

// Len returns the number of active subscriptions
func (b *Binder) Len() int {
	return len(b.subs)
}
