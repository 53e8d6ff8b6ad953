// ABOUTME: The protected core plugin that ships with the host.
// ABOUTME: Owns the plugin management commands and hot-load initialization.

package host

import (
	"fmt"
	"strings"

	"github.com/2389/rokcore/internal/players"
	"github.com/2389/rokcore/plugins/core"
)

// CorePluginName is the title of the core plugin
const CorePluginName = "Reign of Kings"

type corePlugin struct {
	core.Base
	host *Host
}

func newCorePlugin(h *Host) *corePlugin {
	p := &corePlugin{Base: core.Base{Title: CorePluginName, Core: true}, host: h}
	p.Hook("OnPluginLoaded", p.onPluginLoaded)
	return p
}

// Init registers the framework commands the core plugin owns
func (p *corePlugin) Init(api core.API) error {
	commands := []struct {
		names    []string
		callback core.CovalenceCallback
	}{
		{[]string{"oxide.plugins", "o.plugins", "plugins"}, p.pluginsCommand},
		{[]string{"oxide.load", "o.load", "plugin.load"}, p.loadCommand},
		{[]string{"oxide.unload", "o.unload", "plugin.unload"}, p.unloadCommand},
		{[]string{"oxide.reload", "o.reload", "plugin.reload"}, p.reloadCommand},
		{[]string{"oxide.save", "o.save"}, p.saveCommand},
		{[]string{"oxide.version", "o.version"}, p.versionCommand},
	}
	for _, c := range commands {
		if err := api.AddCovalenceCommand(c.names, p, c.callback); err != nil {
			return fmt.Errorf("register %s: %w", c.names[0], err)
		}
	}
	return nil
}

// onPluginLoaded gives hot-loaded plugins the initialization hook they missed
func (p *corePlugin) onPluginLoaded(args ...any) any {
	if !p.host.initialized || len(args) == 0 {
		return nil
	}
	if loaded, ok := args[0].(core.Plugin); ok && loaded != core.Plugin(p) {
		loaded.CallHook("OnServerInitialized")
	}
	return nil
}

func (p *corePlugin) pluginsCommand(caller players.IPlayer, _ string, _ []string) bool {
	loaded := p.host.loadedPlugins()
	lines := []string{fmt.Sprintf("Listing %d plugins:", len(loaded))}
	for i, info := range loaded {
		lines = append(lines, fmt.Sprintf("  %02d %q (%d calls, %.2fs)", i+1, info.Name, info.Calls, info.TotalTime.Seconds()))
	}
	caller.Reply(strings.Join(lines, "\n"))
	return true
}

func (p *corePlugin) loadCommand(caller players.IPlayer, command string, args []string) bool {
	if !p.allowed(caller) {
		return true
	}
	names := p.expand(args, p.host.AvailablePlugins())
	if len(names) == 0 {
		caller.Reply(fmt.Sprintf("Usage: %s *|<pluginname>+", command))
		return true
	}
	for _, name := range names {
		if loaded, err := p.host.loadPlugin(name); err != nil {
			caller.Reply(fmt.Sprintf("Unable to load %s: %v", name, err))
		} else {
			caller.Reply(fmt.Sprintf("Loaded plugin %s", loaded.Name()))
		}
	}
	return true
}

func (p *corePlugin) unloadCommand(caller players.IPlayer, command string, args []string) bool {
	if !p.allowed(caller) {
		return true
	}
	names := p.expand(args, p.nonCore())
	if len(names) == 0 {
		caller.Reply(fmt.Sprintf("Usage: %s *|<pluginname>+", command))
		return true
	}
	for _, name := range names {
		if err := p.host.unloadPlugin(name); err != nil {
			caller.Reply(fmt.Sprintf("Unable to unload %s: %v", name, err))
		} else {
			caller.Reply(fmt.Sprintf("Unloaded plugin %s", name))
		}
	}
	return true
}

func (p *corePlugin) reloadCommand(caller players.IPlayer, command string, args []string) bool {
	if !p.allowed(caller) {
		return true
	}
	names := p.expand(args, p.nonCore())
	if len(names) == 0 {
		caller.Reply(fmt.Sprintf("Usage: %s *|<pluginname>+", command))
		return true
	}
	for _, name := range names {
		if reloaded, err := p.host.reloadPlugin(name); err != nil {
			caller.Reply(fmt.Sprintf("Unable to reload %s: %v", name, err))
		} else {
			caller.Reply(fmt.Sprintf("Reloaded plugin %s", reloaded.Name()))
		}
	}
	return true
}

func (p *corePlugin) saveCommand(caller players.IPlayer, _ string, _ []string) bool {
	if !p.allowed(caller) {
		return true
	}
	if err := p.host.save(); err != nil {
		caller.Reply(fmt.Sprintf("Save failed: %v", err))
		return true
	}
	caller.Reply("Data saved")
	return true
}

func (p *corePlugin) versionCommand(caller players.IPlayer, _ string, _ []string) bool {
	caller.Reply(fmt.Sprintf("Server is running rokcore %s (%s)", Version, CorePluginName))
	return true
}

// allowed limits plugin management to the server console
func (p *corePlugin) allowed(caller players.IPlayer) bool {
	if players.IsServer(caller) {
		return true
	}
	caller.Reply("You don't have permission to use this command")
	return false
}

// expand turns "*" into every candidate; other arguments pass through
func (p *corePlugin) expand(args, all []string) []string {
	for _, arg := range args {
		if arg == "*" {
			return all
		}
	}
	return args
}

func (p *corePlugin) nonCore() []string {
	var names []string
	for _, info := range p.host.loadedPlugins() {
		if !info.Core {
			names = append(names, info.Name)
		}
	}
	return names
}
