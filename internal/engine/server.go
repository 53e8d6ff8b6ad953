// ABOUTME: Minimal engine server that owns native sessions and executes command lines.
// ABOUTME: Offers each line to the server-command hook before falling back to native commands.

package engine

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/2389/rokcore/internal/players"
)

// CommandHook is offered every command line first; true means the line was consumed
type CommandHook func(playerID uint64, line string) bool

// Server is the engine side of the adapter
type Server struct {
	Commands *CommandTable

	players map[uint64]*players.Player
	console *players.Player
	out     io.Writer
	hook    CommandHook
}

// NewServer creates a server with an empty command table and a console pseudo-player
func NewServer() *Server {
	s := &Server{
		Commands: NewCommandTable(),
		players:  make(map[uint64]*players.Player),
		out:      io.Discard,
	}
	s.console = players.NewPlayer(players.ServerID, "Server", func(msg string) {
		fmt.Fprintln(s.out, msg)
	})
	s.players[players.ServerID] = s.console
	return s
}

// SetCommandHook installs the hook that sees each command line first
func (s *Server) SetCommandHook(hook CommandHook) {
	s.hook = hook
}

// Connect adds a native session
func (s *Server) Connect(p *players.Player) {
	s.players[p.SteamID()] = p
}

// Disconnect removes a native session
func (s *Server) Disconnect(p *players.Player) {
	if p.IsServer() {
		return
	}
	delete(s.players, p.SteamID())
}

// PlayerByID returns the native session for id
func (s *Server) PlayerByID(id uint64) (*players.Player, bool) {
	p, ok := s.players[id]
	return p, ok
}

// Players returns connected sessions, excluding the console, sorted by id
func (s *Server) Players() []*players.Player {
	list := make([]*players.Player, 0, len(s.players))
	for _, p := range s.players {
		if !p.IsServer() {
			list = append(list, p)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].SteamID() < list[j].SteamID() })
	return list
}

// ConsolePlayer returns the server pseudo-player
func (s *Server) ConsolePlayer() *players.Player {
	return s.console
}

// Execute runs a command line on behalf of playerID
func (s *Server) Execute(playerID uint64, line string) {
	if s.hook != nil && s.hook(playerID, line) {
		return
	}

	p, ok := s.players[playerID]
	if !ok {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "/"))
	if len(fields) == 0 {
		return
	}
	label := strings.ToLower(fields[0])
	cmd, ok := s.Commands.Get(label)
	if !ok || cmd.Handler == nil {
		p.Reply(fmt.Sprintf("Unknown command: %s", label))
		return
	}
	cmd.Handler(CommandInfo{Player: p, Label: label, Args: fields[1:]})
}

// Console executes line as the server pseudo-player, writing replies to w
func (s *Server) Console(line string, w io.Writer) {
	prev := s.out
	s.out = w
	defer func() { s.out = prev }()
	s.Execute(players.ServerID, line)
}
