// ABOUTME: Tests for the plugin lifecycle binder.
// ABOUTME: Verifies idempotent subscription and release-then-unsubscribe ordering.

package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/rokcore/plugins/core"
)

type testPlugin struct {
	core.Base
}

func newPlugin(name string) *testPlugin {
	return &testPlugin{Base: core.Base{Title: name}}
}

func TestEnsureSubscribedIsIdempotent(t *testing.T) {
	manager := core.NewManager(nil)
	binder := NewBinder(manager, nil)
	p := newPlugin("alpha")

	binder.EnsureSubscribed(p)
	binder.EnsureSubscribed(p)
	binder.EnsureSubscribed(p)

	assert.Equal(t, 1, binder.Len())
	assert.Equal(t, 1, manager.Subscriptions())
	assert.True(t, binder.Subscribed(p))
}

func TestEnsureSubscribedIgnoresNil(t *testing.T) {
	manager := core.NewManager(nil)
	binder := NewBinder(manager, nil)

	binder.EnsureSubscribed(nil)

	assert.Equal(t, 0, binder.Len())
}

func TestUnloadReleasesThenUnsubscribes(t *testing.T) {
	manager := core.NewManager(nil)
	p := newPlugin("alpha")
	require.NoError(t, manager.Load(p))

	var binder *Binder
	var released []string
	binder = NewBinder(manager, func(plugin core.Plugin) {
		// the subscription is still present while releasing
		assert.True(t, binder.Subscribed(plugin))
		released = append(released, plugin.Name())
	})
	binder.EnsureSubscribed(p)

	_, err := manager.Unload("alpha")
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha"}, released)
	assert.False(t, binder.Subscribed(p))
	assert.Equal(t, 0, manager.Subscriptions())
}

func TestUnbindUnknownPlugin(t *testing.T) {
	manager := core.NewManager(nil)
	binder := NewBinder(manager, nil)

	binder.Unbind(newPlugin("ghost"))

	assert.Equal(t, 0, binder.Len())
}
