// ABOUTME: The host API handed to plugins during Init.
// ABOUTME: Calls arrive while the host lock is held, so nothing here locks.

package host

import (
	"github.com/2389/rokcore/internal/logging"
	"github.com/2389/rokcore/internal/players"
	"github.com/2389/rokcore/plugins/core"
)

type hostAPI struct {
	h *Host
}

func (h *Host) api() core.API {
	return hostAPI{h: h}
}

func (a hostAPI) AddChatCommand(name string, plugin core.Plugin, callback core.ChatCallback) {
	a.h.Chat.Register(name, plugin, callback)
}

func (a hostAPI) AddCovalenceCommand(names []string, plugin core.Plugin, callback core.CovalenceCallback) error {
	return a.h.Covalence.Register(names, plugin, callback)
}

func (a hostAPI) Players() *players.Manager {
	return a.h.Players
}

func (a hostAPI) Logger() logging.Logger {
	return a.h.logger
}

func (a hostAPI) Setting(key string) string {
	return a.h.settings[key]
}
