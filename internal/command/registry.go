// ABOUTME: Registry of chat commands claimed by plugins.
// ABOUTME: Resolves ownership conflicts, remembers what was overridden and restores it on unload.

package command

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/2389/rokcore/internal/engine"
	"github.com/2389/rokcore/internal/lifecycle"
	"github.com/2389/rokcore/internal/logging"
	"github.com/2389/rokcore/internal/players"
	"github.com/2389/rokcore/plugins/core"
)

// NativeGameName is how the engine is named when it was the previous owner
const NativeGameName = "Reign of Kings"

// Entry is a chat command owned by a plugin
type Entry struct {
	Name     string
	Owner    core.Plugin
	Callback core.ChatCallback

	// Original is the handler to put back when the owner unloads. It is carried
	// from entry to entry so unwinding always returns to the pre-plugin state.
	Original *engine.Command
}

// OwnerName returns the owning plugin's name, or "" for the engine
func (e Entry) OwnerName() string {
	if e.Owner == nil {
		return ""
	}
	return e.Owner.Name()
}

// NativeTable is the engine's default command table
type NativeTable interface {
	Get(name string) (*engine.Command, bool)
	Set(name string, cmd *engine.Command)
	Remove(name string)
}

// FrameworkCommandTable is the framework-level table competing for the same names
type FrameworkCommandTable interface {
	TryGet(name string) (owner core.Plugin, original *engine.Command, ok bool)
	Remove(name string)
}

// Options configures a Registry
type Options struct {
	// Restricted names can never be registered. The empty name is always restricted.
	Restricted []string
	Logger     logging.Logger
	Recorder   Recorder
}

// Registry owns the chat command entries
type Registry struct {
	entries    map[string]*Entry
	native     NativeTable
	framework  FrameworkCommandTable
	restricted map[string]struct{}
	binder     *lifecycle.Binder
	logger     logging.Logger
	recorder   Recorder
}

// NewRegistry creates a registry over the native and framework tables. Unload
// subscriptions are taken through notifier.
func NewRegistry(native NativeTable, framework FrameworkCommandTable, notifier lifecycle.Notifier, opts Options) *Registry {
	r := &Registry{
		entries:    make(map[string]*Entry),
		native:     native,
		framework:  framework,
		restricted: map[string]struct{}{"": {}},
		logger:     opts.Logger,
		recorder:   opts.Recorder,
	}
	if r.logger == nil {
		r.logger = logging.NewDisabledLogger()
	}
	for _, name := range opts.Restricted {
		r.restricted[Normalize(name)] = struct{}{}
	}
	r.binder = lifecycle.NewBinder(notifier, r.ReleaseAllForPlugin)
	return r
}

// Normalize lowercases and trims a command name
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register claims name for plugin. Conflicts never fail the call: a protected
// name is logged and left untouched, anything else is taken over with a warning.
func (r *Registry) Register(name string, plugin core.Plugin, callback core.ChatCallback) {
	name = Normalize(name)
	entry := &Entry{Name: name, Owner: plugin, Callback: callback}
	newOwner := pluginName(plugin, "An unknown plugin")

	if !r.canOverride(name, plugin) {
		r.logger.Error(fmt.Sprintf("%s tried to register command '%s', this command already exists and cannot be overridden!", newOwner, name),
			"plugin", newOwner, "command", name)
		r.recordOverride(Override{Command: name, Plugin: newOwner, Kind: OverrideRejected})
		return
	}

	previous, replacedChat := r.entries[name]
	if replacedChat {
		if previous.Original != nil {
			entry.Original = previous.Original
		}
		prevOwner := pluginName(previous.Owner, "an unknown plugin")
		r.logger.Warn(fmt.Sprintf("%s has replaced the '%s' chat command previously registered by %s", newOwner, name, prevOwner),
			"plugin", newOwner, "command", name, "previous", prevOwner)
		r.recordOverride(Override{Command: name, Plugin: newOwner, Previous: prevOwner, Kind: OverrideReplacedChat})
	}

	frameworkOwner, frameworkOriginal, replacedFramework := r.framework.TryGet(name)
	if replacedFramework {
		if frameworkOriginal != nil {
			entry.Original = frameworkOriginal
		}
		prevOwner := pluginName(frameworkOwner, "an unknown plugin")
		r.logger.Warn(fmt.Sprintf("%s has replaced the '%s' command previously registered by %s", newOwner, name, prevOwner),
			"plugin", newOwner, "command", name, "previous", prevOwner)
		r.recordOverride(Override{Command: name, Plugin: newOwner, Previous: prevOwner, Kind: OverrideReplacedCovalence})
		r.framework.Remove(name)
	}

	if native, ok := r.native.Get(name); ok && !native.Proxy {
		if entry.Original == nil {
			entry.Original = native
		}
		r.native.Remove(name)
		if !replacedChat && !replacedFramework {
			r.logger.Warn(fmt.Sprintf("%s has replaced the '%s' command previously registered by %s", newOwner, name, NativeGameName),
				"plugin", newOwner, "command", name, "previous", NativeGameName)
			r.recordOverride(Override{Command: name, Plugin: newOwner, Previous: NativeGameName, Kind: OverrideReplacedNative})
		}
	}

	r.entries[name] = entry
	if replacedChat && previous.Owner != plugin {
		r.unbindIfIdle(previous.Owner)
	}
	r.native.Set(name, &engine.Command{
		Name:        name,
		Description: fmt.Sprintf("Chat command provided by %s", newOwner),
		Handler:     r.handleNative,
		Proxy:       true,
	})
	r.binder.EnsureSubscribed(plugin)
}

// Dispatch runs the chat command registered under name. It reports false,
// without logging, when nothing is registered.
func (r *Registry) Dispatch(caller players.Caller, name string, args []string) bool {
	entry, ok := r.entries[Normalize(name)]
	if !ok {
		return false
	}
	r.invoke(entry, caller, name, args)
	return true
}

func (r *Registry) invoke(entry *Entry, caller players.Caller, name string, args []string) {
	start := time.Now()
	fault := r.call(entry, caller, name, args)

	var callerID string
	if caller != nil {
		callerID = caller.ID()
	}
	r.recordInvocation(Invocation{
		Plugin:   entry.OwnerName(),
		Command:  entry.Name,
		CallerID: callerID,
		Args:     args,
		Duration: time.Since(start),
		Fault:    fault,
	})
}

func (r *Registry) call(entry *Entry, caller players.Caller, name string, args []string) (fault string) {
	if entry.Owner != nil {
		entry.Owner.TrackStart()
		defer entry.Owner.TrackEnd()
	}
	defer func() {
		if rec := recover(); rec != nil {
			fault = fmt.Sprint(rec)
			owner := pluginName(entry.Owner, "an unknown plugin")
			r.logger.Error(fmt.Sprintf("Failed to run command '%s' in %s: %s", entry.Name, owner, fault),
				"plugin", owner, "command", entry.Name)
		}
	}()
	if entry.Callback != nil {
		entry.Callback(caller, name, args)
	}
	return ""
}

// handleNative is installed in the engine table for every chat command
func (r *Registry) handleNative(info engine.CommandInfo) {
	var caller players.Caller
	if info.Player != nil {
		caller = info.Player
	}
	r.Dispatch(caller, info.Label, info.Args)
}

// ReleaseAllForPlugin drops every command plugin owns, putting back whatever
// each one overrode, then ends the plugin's unload subscription.
func (r *Registry) ReleaseAllForPlugin(plugin core.Plugin) {
	for _, name := range r.names() {
		entry := r.entries[name]
		if entry.Owner != plugin {
			continue
		}
		delete(r.entries, name)

		owner := pluginName(plugin, "an unknown plugin")
		if entry.Original != nil {
			r.native.Set(name, entry.Original)
			r.recordOverride(Override{Command: name, Plugin: NativeGameName, Previous: owner, Kind: OverrideRestored})
			continue
		}
		if current, ok := r.native.Get(name); ok && current.Proxy {
			r.native.Remove(name)
		}
		r.recordOverride(Override{Command: name, Previous: owner, Kind: OverrideRemoved})
	}
	r.binder.Unbind(plugin)
}

// Reclaim re-applies the registration for name after the engine registered a
// native command under it, so the plugin keeps the name and the new native
// command becomes the one restored on unload.
func (r *Registry) Reclaim(name string) {
	entry, ok := r.entries[Normalize(name)]
	if !ok {
		return
	}
	delete(r.entries, entry.Name)
	r.Register(entry.Name, entry.Owner, entry.Callback)
}

// Evict drops the entry for name without restoring anything and returns the
// handler it would have restored. The framework table uses it when it takes a
// name over from a chat command.
func (r *Registry) Evict(name string) (*engine.Command, bool) {
	entry, ok := r.entries[Normalize(name)]
	if !ok {
		return nil, false
	}
	delete(r.entries, entry.Name)
	r.unbindIfIdle(entry.Owner)
	return entry.Original, true
}

// unbindIfIdle drops plugin's unload subscription once it owns no entry
func (r *Registry) unbindIfIdle(plugin core.Plugin) {
	for _, entry := range r.entries {
		if entry.Owner == plugin {
			return
		}
	}
	r.binder.Unbind(plugin)
}

// Lookup returns the entry registered under name
func (r *Registry) Lookup(name string) (Entry, bool) {
	entry, ok := r.entries[Normalize(name)]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// Entries returns a snapshot of every entry sorted by name
func (r *Registry) Entries() []Entry {
	names := r.names()
	entries := make([]Entry, len(names))
	for i, name := range names {
		entries[i] = *r.entries[name]
	}
	return entries
}

// Len returns the number of registered chat commands
func (r *Registry) Len() int {
	return len(r.entries)
}

// Subscribed reports whether plugin currently holds an unload subscription
func (r *Registry) Subscribed(plugin core.Plugin) bool {
	return r.binder.Subscribed(plugin)
}

// canOverride reports whether plugin may take name. Restricted and core-owned
// names are closed to every plugin, core plugins included.
func (r *Registry) canOverride(name string, plugin core.Plugin) bool {
	if _, restricted := r.restricted[name]; restricted {
		return false
	}
	if owner, _, ok := r.framework.TryGet(name); ok && owner != nil && owner.IsCore() {
		return false
	}
	if entry, ok := r.entries[name]; ok && entry.Owner != nil && entry.Owner.IsCore() {
		return false
	}
	return true
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) recordInvocation(inv Invocation) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.RecordInvocation(inv); err != nil {
		r.logger.Warn("failed to record command invocation", "command", inv.Command, "error", err)
	}
}

func (r *Registry) recordOverride(o Override) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.RecordOverride(o); err != nil {
		r.logger.Warn("failed to record command override", "command", o.Command, "error", err)
	}
}

func pluginName(p core.Plugin, fallback string) string {
	if p == nil {
		return fallback
	}
	return p.Name()
}
