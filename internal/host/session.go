// ABOUTME: Player session callbacks forwarded to plugin hooks.
// ABOUTME: Login approval, connect, disconnect, chat and spawn; the console is never forwarded.

package host

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/2389/rokcore/internal/players"
)

// Connect approves and connects a player. A plugin may refuse the login by
// returning a reason string or false from CanClientLogin or CanUserLogin.
func (h *Host) Connect(id uint64, name, address string, send func(string)) (*players.Player, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	native := players.NewPlayer(id, name, send)
	if native.IsServer() {
		return h.Server.ConsolePlayer(), nil
	}
	idString := strconv.FormatUint(id, 10)
	if !players.ValidID(idString) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPlayerID, idString)
	}

	h.Players.PlayerJoin(id, name)

	loginSpecific := h.Plugins.CallHook("CanClientLogin", native)
	loginCovalence := h.Plugins.CallHook("CanUserLogin", name, idString, address)
	canLogin := loginSpecific
	if canLogin == nil {
		canLogin = loginCovalence
	}
	switch v := canLogin.(type) {
	case string:
		return nil, fmt.Errorf("%w: %s", ErrLoginRejected, v)
	case bool:
		if !v {
			return nil, fmt.Errorf("%w: Connection was rejected", ErrLoginRejected)
		}
	}
	h.Plugins.CallHook("OnUserApprove", native)
	h.Plugins.CallHook("OnUserApproved", name, idString, address)

	h.Server.Connect(native)
	user := h.Players.PlayerConnected(native)
	h.Plugins.CallHook("OnPlayerConnected", native)
	h.Plugins.CallHook("OnUserConnected", user)
	return native, nil
}

// Disconnect ends a player's session
func (h *Host) Disconnect(id uint64, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	native, ok := h.Server.PlayerByID(id)
	if !ok || native.IsServer() {
		return
	}
	if reason == "" {
		reason = "Unknown"
	}
	h.Plugins.CallHook("OnPlayerDisconnected", native)
	if user, ok := h.Players.FindPlayerByID(native.ID()); ok {
		h.Plugins.CallHook("OnUserDisconnected", user, reason)
	}
	h.Players.PlayerDisconnected(native)
	h.Server.Disconnect(native)
}

// ChatMessage handles a message typed by a player. Lines starting with a slash are
// commands. Other messages are broadcast unless a chat hook cancels them; the
// result reports whether the message was broadcast.
func (h *Host) ChatMessage(id uint64, message string) bool {
	if strings.HasPrefix(message, "/") {
		h.Execute(id, message)
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	native, ok := h.Server.PlayerByID(id)
	if !ok || native.IsServer() {
		return false
	}
	user, _ := h.Players.FindPlayerByID(native.ID())
	chatSpecific := h.Plugins.CallHook("OnPlayerChat", native, message)
	chatCovalence := h.Plugins.CallHook("OnUserChat", user, message)
	if chatSpecific != nil || chatCovalence != nil {
		return false
	}

	line := fmt.Sprintf("%s: %s", native.Name(), message)
	for _, p := range h.Server.Players() {
		p.Reply(line)
	}
	return true
}

// Spawn reports a player spawning; respawn distinguishes later spawns from the first
func (h *Host) Spawn(id uint64, respawn bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	native, ok := h.Server.PlayerByID(id)
	if !ok || native.IsServer() {
		return
	}
	user, ok := h.Players.FindPlayerByID(native.ID())
	if !ok {
		return
	}
	if respawn {
		h.Plugins.CallHook("OnUserRespawn", user)
		return
	}
	h.Plugins.CallHook("OnUserSpawn", user)
	h.Plugins.CallHook("OnUserSpawned", user)
}
