// ABOUTME: Tests for command line routing across hook and registry tiers.
// ABOUTME: Asserts tier order, short-circuiting and the slash/console distinction.

package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/2389/rokcore/internal/players"
)

const testPlayerID uint64 = 76561198000000001

type fakeHooks struct {
	results map[string]any
	calls   []string
}

func (h *fakeHooks) CallHook(hook string, args ...any) any {
	h.calls = append(h.calls, hook)
	return h.results[hook]
}

type fakeNatives map[uint64]*players.Player

func (f fakeNatives) PlayerByID(id uint64) (*players.Player, bool) {
	p, ok := f[id]
	return p, ok
}

type fakeUsers struct {
	manager *players.Manager
}

func (f fakeUsers) FindPlayerByID(id string) (players.IPlayer, bool) {
	return f.manager.FindPlayerByID(id)
}

type fakeTier struct {
	name    string
	handles bool
	order   *[]string
	lines   []string
	verbs   []string
	args    [][]string
}

func (f *fakeTier) HandleChatMessage(caller players.IPlayer, line string) bool {
	*f.order = append(*f.order, f.name)
	f.lines = append(f.lines, line)
	return f.handles
}

func (f *fakeTier) Dispatch(caller players.Caller, name string, args []string) bool {
	*f.order = append(*f.order, f.name)
	f.verbs = append(f.verbs, name)
	f.args = append(f.args, args)
	return f.handles
}

type fixture struct {
	router    *Router
	hooks     *fakeHooks
	framework *fakeTier
	chat      *fakeTier
	order     *[]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	native := players.NewPlayer(testPlayerID, "Alice", nil)
	manager := players.NewManager()
	manager.PlayerConnected(native)

	order := &[]string{}
	f := &fixture{
		hooks:     &fakeHooks{results: map[string]any{}},
		framework: &fakeTier{name: "framework", order: order},
		chat:      &fakeTier{name: "chat", order: order},
		order:     order,
	}
	f.router = New(f.hooks, fakeNatives{testPlayerID: native}, fakeUsers{manager}, f.framework, f.chat)
	return f
}

func TestRouteEmptyLine(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, Unhandled, f.router.Route(testPlayerID, ""))
	assert.Equal(t, Unhandled, f.router.Route(testPlayerID, "/   "))
	assert.Empty(t, f.hooks.calls, "malformed input must short-circuit before any hook")
}

func TestRouteServerCommandHookShortCircuits(t *testing.T) {
	f := newFixture(t)
	f.hooks.results[HookServerCommand] = true

	assert.Equal(t, Handled, f.router.Route(testPlayerID, "/kill"))
	assert.Equal(t, []string{HookServerCommand}, f.hooks.calls)
	assert.Empty(t, *f.order)
}

func TestRouteServerCommandHookRunsForUnknownCaller(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, Unhandled, f.router.Route(42, "/kill"))
	assert.Equal(t, []string{HookServerCommand}, f.hooks.calls)
	assert.Empty(t, *f.order)
}

func TestRouteBlockHooks(t *testing.T) {
	tests := []struct {
		name string
		hook string
	}{
		{"game specific block", HookPlayerCommand},
		{"covalence block", HookUserCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.hooks.results[tt.hook] = false
			f.framework.handles = true
			f.chat.handles = true

			assert.Equal(t, Handled, f.router.Route(testPlayerID, "/kill"))
			assert.Equal(t, []string{HookServerCommand, HookPlayerCommand, HookUserCommand}, f.hooks.calls)
			assert.Empty(t, *f.order, "blocking takes precedence over execution")
		})
	}
}

func TestRouteFrameworkBeforeChat(t *testing.T) {
	f := newFixture(t)
	f.framework.handles = true
	f.chat.handles = true

	assert.Equal(t, Handled, f.router.Route(testPlayerID, `/give "John Smith" 5`))
	assert.Equal(t, []string{"framework"}, *f.order)
	assert.Equal(t, []string{`/give "John Smith" 5`}, f.framework.lines)
}

func TestRouteFallsThroughToChat(t *testing.T) {
	f := newFixture(t)
	f.chat.handles = true

	assert.Equal(t, Handled, f.router.Route(testPlayerID, `/give "John Smith" 5`))
	assert.Equal(t, []string{"framework", "chat"}, *f.order)
	assert.Equal(t, []string{"give"}, f.chat.verbs)
	assert.Equal(t, [][]string{{"John Smith", "5"}}, f.chat.args)
}

func TestRouteConsoleLineSkipsFramework(t *testing.T) {
	f := newFixture(t)
	f.framework.handles = true
	f.chat.handles = true

	assert.Equal(t, Handled, f.router.Route(testPlayerID, "home"))
	assert.Equal(t, []string{"chat"}, *f.order)
}

func TestRouteNoMatch(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, Unhandled, f.router.Route(testPlayerID, "/nothing here"))
	assert.Equal(t, []string{"framework", "chat"}, *f.order)
	assert.False(t, f.router.Hook(testPlayerID, "/nothing"))
}

func TestRouteStripsSingleSlash(t *testing.T) {
	f := newFixture(t)
	f.chat.handles = true

	f.router.Route(testPlayerID, "//home")

	assert.Equal(t, []string{"/home"}, f.chat.verbs)
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "handled", Handled.String())
	assert.Equal(t, "unhandled", Unhandled.String())
}
