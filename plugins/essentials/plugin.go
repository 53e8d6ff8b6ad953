// ABOUTME: Essentials plugin with everyday player commands.
// ABOUTME: Homes, a kill command that replaces the engine's, and a framework heal command.

package essentials

import (
	"fmt"
	"sort"
	"strings"

	"github.com/2389/rokcore/internal/players"
	"github.com/2389/rokcore/plugins/core"
)

const defaultHome = "home"

func init() {
	core.Register("essentials", func() core.Plugin { return New() })
}

type EssentialsPlugin struct {
	core.Base
	api   core.API
	homes map[string]map[string]bool
}

// New creates an unloaded essentials plugin
func New() *EssentialsPlugin {
	p := &EssentialsPlugin{
		Base:  core.Base{Title: "Essentials"},
		homes: make(map[string]map[string]bool),
	}
	p.Hook("OnUserConnected", p.onUserConnected)
	return p
}

func (p *EssentialsPlugin) Init(api core.API) error {
	p.api = api
	api.AddChatCommand("sethome", p, p.setHome)
	api.AddChatCommand("home", p, p.home)
	api.AddChatCommand("kill", p, p.kill)
	return api.AddCovalenceCommand([]string{"heal", "essentials.heal"}, p, p.heal)
}

func (p *EssentialsPlugin) Unload() {
	p.homes = make(map[string]map[string]bool)
}

func (p *EssentialsPlugin) onUserConnected(args ...any) any {
	if user, ok := args[0].(players.IPlayer); ok && len(p.homes[user.ID()]) > 0 {
		user.Reply(fmt.Sprintf("Welcome back, %s. Type /home to return.", user.Name()))
	}
	return nil
}

func (p *EssentialsPlugin) setHome(caller players.Caller, _ string, args []string) {
	name := homeName(args)
	if p.homes[caller.ID()] == nil {
		p.homes[caller.ID()] = make(map[string]bool)
	}
	p.homes[caller.ID()][name] = true
	caller.Reply(fmt.Sprintf("Home '%s' set.", name))
}

func (p *EssentialsPlugin) home(caller players.Caller, _ string, args []string) {
	name := homeName(args)
	if !p.homes[caller.ID()][name] {
		caller.Reply(fmt.Sprintf("You have no home named '%s'. Your homes: %s", name, p.listHomes(caller.ID())))
		return
	}
	caller.Reply(fmt.Sprintf("Teleporting to home '%s'.", name))
}

func (p *EssentialsPlugin) listHomes(id string) string {
	names := make([]string, 0, len(p.homes[id]))
	for name := range p.homes[id] {
		names = append(names, name)
	}
	if len(names) == 0 {
		return "none"
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// kill with no target kills the caller; the console must name a target
func (p *EssentialsPlugin) kill(caller players.Caller, _ string, args []string) {
	if len(args) == 0 {
		if players.IsServer(caller) {
			caller.Reply("Usage: kill <player>")
			return
		}
		caller.Reply("You have been slain.")
		return
	}
	target, ok := p.api.Players().FindPlayer(args[0])
	if !ok || !target.IsConnected() {
		caller.Reply(fmt.Sprintf("No connected player matches '%s'.", args[0]))
		return
	}
	target.Reply(fmt.Sprintf("You have been slain by %s.", caller.Name()))
	caller.Reply(fmt.Sprintf("Killed %s.", target.Name()))
}

func (p *EssentialsPlugin) heal(caller players.IPlayer, _ string, args []string) bool {
	if len(args) == 0 {
		caller.Reply("You have been healed.")
		return true
	}
	target, ok := p.api.Players().FindPlayer(args[0])
	if !ok || !target.IsConnected() {
		caller.Reply(fmt.Sprintf("No connected player matches '%s'.", args[0]))
		return true
	}
	target.Reply("You have been healed.")
	caller.Reply(fmt.Sprintf("Healed %s.", target.Name()))
	return true
}

func homeName(args []string) string {
	if len(args) == 0 {
		return defaultHome
	}
	return strings.ToLower(args[0])
}
