// ABOUTME: Routes raw command lines through the hook and registry tiers.
// ABOUTME: Implements the engine's server-command hook for the adapter core.

package router

import (
	"strconv"
	"strings"

	"github.com/2389/rokcore/internal/players"
)

// Result is the outcome of routing a line
type Result int

const (
	Unhandled Result = iota
	Handled
)

func (r Result) String() string {
	if r == Handled {
		return "handled"
	}
	return "unhandled"
}

// Hook names called while routing
const (
	HookServerCommand = "OnServerCommand"
	HookPlayerCommand = "OnPlayerCommand"
	HookUserCommand   = "OnUserCommand"
)

// HookCaller calls a hook across all plugins and returns the first non-nil result
type HookCaller interface {
	CallHook(hook string, args ...any) any
}

// NativeLookup resolves a native engine session
type NativeLookup interface {
	PlayerByID(id uint64) (*players.Player, bool)
}

// UserLookup resolves a generic player
type UserLookup interface {
	FindPlayerByID(id string) (players.IPlayer, bool)
}

// FrameworkCommands handles framework-level command lines
type FrameworkCommands interface {
	HandleChatMessage(caller players.IPlayer, line string) bool
}

// ChatCommands dispatches chat commands registered by plugins
type ChatCommands interface {
	Dispatch(caller players.Caller, name string, args []string) bool
}

// Router decides which tier, if any, handles a command line
type Router struct {
	hooks     HookCaller
	natives   NativeLookup
	users     UserLookup
	framework FrameworkCommands
	chat      ChatCommands
}

// New creates a router over its collaborators
func New(hooks HookCaller, natives NativeLookup, users UserLookup, framework FrameworkCommands, chat ChatCommands) *Router {
	return &Router{
		hooks:     hooks,
		natives:   natives,
		users:     users,
		framework: framework,
		chat:      chat,
	}
}

// Route offers line, sent by playerID, to each tier in order. The first tier
// that claims it wins.
func (r *Router) Route(playerID uint64, line string) Result {
	if line == "" {
		return Unhandled
	}
	slash := strings.HasPrefix(line, "/")

	verb, args, ok := Tokenize(strings.TrimPrefix(line, "/"))
	if !ok {
		return Unhandled
	}

	if r.hooks.CallHook(HookServerCommand, verb, args) != nil {
		return Handled
	}

	native, ok := r.natives.PlayerByID(playerID)
	if !ok {
		return Unhandled
	}
	user, ok := r.users.FindPlayerByID(strconv.FormatUint(playerID, 10))
	if !ok {
		return Unhandled
	}

	blockedSpecific := r.hooks.CallHook(HookPlayerCommand, native, verb, args)
	blockedCovalence := r.hooks.CallHook(HookUserCommand, user, verb, args)
	if blockedSpecific != nil || blockedCovalence != nil {
		return Handled
	}

	if slash && r.framework.HandleChatMessage(user, line) {
		return Handled
	}
	if r.chat.Dispatch(native, verb, args) {
		return Handled
	}
	return Unhandled
}

// Hook adapts Route to the engine's command hook signature
func (r *Router) Hook(playerID uint64, line string) bool {
	return r.Route(playerID, line) == Handled
}
