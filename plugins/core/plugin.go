// ABOUTME: Core plugin interface for the Covalence plugin host.
// ABOUTME: Defines the contract every loaded plugin implements plus the host API it sees.

package core

import (
	"github.com/2389/rokcore/internal/logging"
	"github.com/2389/rokcore/internal/players"
)

// Plugin defines the interface that all hosted plugins must implement
type Plugin interface {
	// Metadata
	Name() string
	IsCore() bool

	// Hook invocation; a nil result means "no opinion"
	CallHook(hook string, args ...any) any

	// Call tracking around plugin code, used for hook time accounting
	TrackStart()
	TrackEnd()
}

// ChatCallback handles a chat command registered through the command library
type ChatCallback func(caller players.Caller, command string, args []string)

// CovalenceCallback handles a framework-level command; false means "not handled"
type CovalenceCallback func(caller players.IPlayer, command string, args []string) bool

// API is what the host exposes to plugins while they initialize
type API interface {
	AddChatCommand(name string, plugin Plugin, callback ChatCallback)
	AddCovalenceCommand(names []string, plugin Plugin, callback CovalenceCallback) error
	Players() *players.Manager
	Logger() logging.Logger

	// Setting returns host configuration such as "openai_api_key"; "" when unset
	Setting(key string) string
}

// Initializer is implemented by plugins that register commands when loaded
type Initializer interface {
	Plugin
	Init(api API) error
}

// Unloader is implemented by plugins that release resources when unloaded
type Unloader interface {
	Plugin
	Unload()
}
