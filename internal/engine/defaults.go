// ABOUTME: Built-in engine commands present before any plugin loads.
// ABOUTME: These are the native defaults plugins may override.

package engine

import (
	"fmt"
	"strings"
)

// DefaultCommands registers the engine's built-in commands on s
func DefaultCommands(s *Server) {
	s.Commands.Add(&Command{
		Name:        "help",
		Description: "Lists available commands",
		Handler: func(info CommandInfo) {
			info.Player.Reply("Commands: " + strings.Join(s.Commands.Names(), ", "))
		},
	})
	s.Commands.Add(&Command{
		Name:        "kill",
		Description: "Kills your character",
		Handler: func(info CommandInfo) {
			info.Player.Reply("You have been slain.")
		},
	})
	s.Commands.Add(&Command{
		Name:        "players",
		Description: "Lists online players",
		Handler: func(info CommandInfo) {
			online := s.Players()
			names := make([]string, len(online))
			for i, p := range online {
				names[i] = p.Name()
			}
			info.Player.Reply(fmt.Sprintf("%d online: %s", len(online), strings.Join(names, ", ")))
		},
	})
}
