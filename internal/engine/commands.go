// ABOUTME: The engine's native command table.
// ABOUTME: Holds built-in command handlers that plugin registrations may override and restore.

package engine

import (
	"sort"
	"strings"

	"github.com/2389/rokcore/internal/players"
)

// CommandInfo is what the engine passes to a native command handler
type CommandInfo struct {
	Player *players.Player
	Label  string
	Args   []string
}

// Command is a native command registration
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Handler     func(CommandInfo)

	// Proxy marks entries installed by a plugin registry that route back into it.
	// They are never treated as native defaults.
	Proxy bool
}

// CommandTable maps lowercase command names to native commands
type CommandTable struct {
	commands  map[string]*Command
	listeners []func(*Command)
}

// NewCommandTable creates an empty table
func NewCommandTable() *CommandTable {
	return &CommandTable{commands: make(map[string]*Command)}
}

// Get returns the command registered under name
func (t *CommandTable) Get(name string) (*Command, bool) {
	cmd, ok := t.commands[strings.ToLower(name)]
	return cmd, ok
}

// Set stores cmd under name without notifying listeners
func (t *CommandTable) Set(name string, cmd *Command) {
	t.commands[strings.ToLower(name)] = cmd
}

// Add stores cmd under its name and aliases without notifying listeners
func (t *CommandTable) Add(cmd *Command) {
	for _, name := range cmd.Names() {
		t.commands[name] = cmd
	}
}

// Remove deletes the command registered under name
func (t *CommandTable) Remove(name string) {
	delete(t.commands, strings.ToLower(name))
}

// Register is the engine's own registration path: cmd is stored under its name
// and aliases, then listeners are told about it.
func (t *CommandTable) Register(cmd *Command) {
	t.Add(cmd)
	for _, fn := range t.listeners {
		fn(cmd)
	}
}

// OnRegister adds a listener for engine-side registrations
func (t *CommandTable) OnRegister(fn func(*Command)) {
	t.listeners = append(t.listeners, fn)
}

// Names returns every registered name, sorted
func (t *CommandTable) Names() []string {
	names := make([]string, 0, len(t.commands))
	for name := range t.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Names returns the lowercase name followed by the aliases
func (c *Command) Names() []string {
	names := []string{strings.ToLower(c.Name)}
	for _, alias := range c.Aliases {
		names = append(names, strings.ToLower(alias))
	}
	return names
}
