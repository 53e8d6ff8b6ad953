// ABOUTME: Framework-level command table shared by every game adapter.
// ABOUTME: Commands here take a generic player and may be typed in chat or at the console.

package covalence

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/2389/rokcore/internal/command"
	"github.com/2389/rokcore/internal/engine"
	"github.com/2389/rokcore/internal/lifecycle"
	"github.com/2389/rokcore/internal/logging"
	"github.com/2389/rokcore/internal/players"
	"github.com/2389/rokcore/internal/router"
	"github.com/2389/rokcore/plugins/core"
)

var (
	ErrRestricted = errors.New("command is restricted")
	ErrCoreOwned  = errors.New("command is owned by a core plugin")
)

// RegisteredCommand is a framework command and what it overrode
type RegisteredCommand struct {
	Command  string
	Source   core.Plugin
	Callback core.CovalenceCallback
	Original *engine.Command
}

// SourceName returns the owning plugin's name
func (c RegisteredCommand) SourceName() string {
	if c.Source == nil {
		return ""
	}
	return c.Source.Name()
}

// NativeTable is the engine's default command table
type NativeTable interface {
	Get(name string) (*engine.Command, bool)
	Set(name string, cmd *engine.Command)
	Remove(name string)
}

// ChatCommands is the chat registry's side of a name conflict
type ChatCommands interface {
	Lookup(name string) (command.Entry, bool)
	Evict(name string) (*engine.Command, bool)
}

// UserLookup resolves the generic player behind a native session
type UserLookup interface {
	FindPlayerByID(id string) (players.IPlayer, bool)
}

// Table holds the framework commands
type Table struct {
	commands   map[string]*RegisteredCommand
	native     NativeTable
	chat       ChatCommands
	users      UserLookup
	restricted map[string]struct{}
	binder     *lifecycle.Binder
	logger     logging.Logger
}

// NewTable creates a framework command table. chat may be attached later with
// SetChat since the chat registry also needs the table.
func NewTable(native NativeTable, users UserLookup, notifier lifecycle.Notifier, restricted []string, logger logging.Logger) *Table {
	if logger == nil {
		logger = logging.NewDisabledLogger()
	}
	t := &Table{
		commands:   make(map[string]*RegisteredCommand),
		native:     native,
		users:      users,
		restricted: map[string]struct{}{"": {}},
		logger:     logger,
	}
	for _, name := range restricted {
		t.restricted[command.Normalize(name)] = struct{}{}
	}
	t.binder = lifecycle.NewBinder(notifier, t.ReleaseAllForPlugin)
	return t
}

// SetChat attaches the chat registry consulted for conflicts
func (t *Table) SetChat(chat ChatCommands) {
	t.chat = chat
}

// Register claims every name in names for source. Nothing is registered when
// any name is restricted or owned by a core plugin.
func (t *Table) Register(names []string, source core.Plugin, callback core.CovalenceCallback) error {
	normalized := make([]string, 0, len(names))
	for _, name := range names {
		name = command.Normalize(name)
		if err := t.check(name, source); err != nil {
			return err
		}
		normalized = append(normalized, name)
	}
	for _, name := range normalized {
		t.install(&RegisteredCommand{Command: name, Source: source, Callback: callback})
	}
	return nil
}

func (t *Table) check(name string, source core.Plugin) error {
	if _, ok := t.restricted[name]; ok {
		return fmt.Errorf("%w: '%s'", ErrRestricted, name)
	}
	if existing, ok := t.commands[name]; ok && existing.Source != nil && existing.Source.IsCore() {
		return fmt.Errorf("%w: '%s' by %s", ErrCoreOwned, name, existing.Source.Name())
	}
	if t.chat != nil {
		if entry, ok := t.chat.Lookup(name); ok && entry.Owner != nil && entry.Owner.IsCore() {
			return fmt.Errorf("%w: '%s' by %s", ErrCoreOwned, name, entry.Owner.Name())
		}
	}
	return nil
}

func (t *Table) install(cmd *RegisteredCommand) {
	name := cmd.Command
	newOwner := nameOf(cmd.Source, "An unknown plugin")
	replaced := false

	previous, hadPrevious := t.commands[name]
	if hadPrevious {
		replaced = true
		cmd.Original = previous.Original
		t.logger.Warn(fmt.Sprintf("%s has replaced the '%s' command previously registered by %s", newOwner, name, nameOf(previous.Source, "an unknown plugin")),
			"plugin", newOwner, "command", name)
	}
	if t.chat != nil {
		if entry, ok := t.chat.Lookup(name); ok {
			replaced = true
			if original, _ := t.chat.Evict(name); original != nil && cmd.Original == nil {
				cmd.Original = original
			}
			t.logger.Warn(fmt.Sprintf("%s has replaced the '%s' chat command previously registered by %s", newOwner, name, nameOf(entry.Owner, "an unknown plugin")),
				"plugin", newOwner, "command", name)
		}
	}
	if native, ok := t.native.Get(name); ok && !native.Proxy {
		if cmd.Original == nil {
			cmd.Original = native
		}
		t.native.Remove(name)
		if !replaced {
			t.logger.Warn(fmt.Sprintf("%s has replaced the '%s' command previously registered by %s", newOwner, name, command.NativeGameName),
				"plugin", newOwner, "command", name)
		}
	}

	t.commands[name] = cmd
	if hadPrevious && previous.Source != cmd.Source {
		t.unbindIfIdle(previous.Source)
	}
	t.native.Set(name, &engine.Command{
		Name:        name,
		Description: fmt.Sprintf("Command provided by %s", newOwner),
		Handler:     t.handleNative,
		Proxy:       true,
	})
	t.binder.EnsureSubscribed(cmd.Source)
}

// Unregister removes name and puts back what it overrode
func (t *Table) Unregister(name string) {
	name = command.Normalize(name)
	cmd, ok := t.commands[name]
	if !ok {
		return
	}
	delete(t.commands, name)
	if cmd.Original != nil {
		t.native.Set(name, cmd.Original)
		return
	}
	if current, ok := t.native.Get(name); ok && current.Proxy {
		t.native.Remove(name)
	}
}

// Remove evicts name without touching the native table
func (t *Table) Remove(name string) {
	name = command.Normalize(name)
	cmd, ok := t.commands[name]
	if !ok {
		return
	}
	delete(t.commands, name)
	t.unbindIfIdle(cmd.Source)
}

// unbindIfIdle drops source's unload subscription once it owns no command
func (t *Table) unbindIfIdle(source core.Plugin) {
	for _, cmd := range t.commands {
		if cmd.Source == source {
			return
		}
	}
	t.binder.Unbind(source)
}

// TryGet returns the source and overridden handler for name
func (t *Table) TryGet(name string) (core.Plugin, *engine.Command, bool) {
	cmd, ok := t.commands[command.Normalize(name)]
	if !ok {
		return nil, nil, false
	}
	return cmd.Source, cmd.Original, true
}

// ReleaseAllForPlugin unregisters every command source owns
func (t *Table) ReleaseAllForPlugin(source core.Plugin) {
	for _, name := range t.names() {
		if t.commands[name].Source == source {
			t.Unregister(name)
		}
	}
	t.binder.Unbind(source)
}

// Subscribed reports whether source currently holds an unload subscription
func (t *Table) Subscribed(source core.Plugin) bool {
	return t.binder.Subscribed(source)
}

// Reclaim re-installs name after the engine registered a native command under
// it. The new native command becomes the one restored on unregister.
func (t *Table) Reclaim(name string) {
	cmd, ok := t.commands[command.Normalize(name)]
	if !ok {
		return
	}
	delete(t.commands, cmd.Command)
	t.install(&RegisteredCommand{Command: cmd.Command, Source: cmd.Source, Callback: cmd.Callback})
}

// HandleChatMessage runs the framework command in line, which must start with a slash
func (t *Table) HandleChatMessage(caller players.IPlayer, line string) bool {
	if !strings.HasPrefix(line, "/") {
		return false
	}
	verb, args, ok := router.Tokenize(line[1:])
	if !ok {
		return false
	}
	return t.run(caller, verb, args)
}

func (t *Table) handleNative(info engine.CommandInfo) {
	if info.Player == nil {
		return
	}
	caller, ok := t.users.FindPlayerByID(info.Player.ID())
	if !ok {
		return
	}
	t.run(caller, info.Label, info.Args)
}

func (t *Table) run(caller players.IPlayer, verb string, args []string) (handled bool) {
	cmd, ok := t.commands[command.Normalize(verb)]
	if !ok || cmd.Callback == nil {
		return false
	}
	if cmd.Source != nil {
		cmd.Source.TrackStart()
		defer cmd.Source.TrackEnd()
	}
	defer func() {
		if r := recover(); r != nil {
			owner := nameOf(cmd.Source, "an unknown plugin")
			t.logger.Error(fmt.Sprintf("Failed to run command '%s' in %s: %v", cmd.Command, owner, r),
				"plugin", owner, "command", cmd.Command)
			handled = true
		}
	}()
	return cmd.Callback(caller, verb, args)
}

// Commands returns a snapshot of the table sorted by name
func (t *Table) Commands() []RegisteredCommand {
	names := t.names()
	out := make([]RegisteredCommand, len(names))
	for i, name := range names {
		out[i] = *t.commands[name]
	}
	return out
}

// Len returns the number of registered framework commands
func (t *Table) Len() int {
	return len(t.commands)
}

func (t *Table) names() []string {
	names := make([]string, 0, len(t.commands))
	for name := range t.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func nameOf(p core.Plugin, fallback string) string {
	if p == nil {
		return fallback
	}
	return p.Name()
}
