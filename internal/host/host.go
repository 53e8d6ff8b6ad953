// ABOUTME: Wires the engine, plugin manager and command registries into one host.
// ABOUTME: Every engine callback enters through a Host method, which serializes them.

package host

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/2389/rokcore/internal/command"
	"github.com/2389/rokcore/internal/covalence"
	"github.com/2389/rokcore/internal/engine"
	"github.com/2389/rokcore/internal/logging"
	"github.com/2389/rokcore/internal/players"
	"github.com/2389/rokcore/internal/router"
	"github.com/2389/rokcore/plugins/core"
)

// Version is reported by the version command and the admin API
const Version = "1.4.0"

var (
	ErrUnknownPlugin   = errors.New("unknown plugin")
	ErrCorePlugin      = errors.New("core plugins cannot be unloaded")
	ErrLoginRejected   = errors.New("login rejected")
	ErrInvalidPlayerID = errors.New("invalid player id")
)

// Persistence stores the audit trail and known players
type Persistence interface {
	command.Recorder
	SavePlayers(records []players.Record) error
	LoadPlayers() ([]players.Record, error)
}

// Options configures a Host
type Options struct {
	Restricted []string
	Logger     logging.Logger
	Store      Persistence
	Settings   map[string]string
}

// Host owns the adapter core and everything it talks to
type Host struct {
	mu sync.Mutex

	Server    *engine.Server
	Players   *players.Manager
	Plugins   *core.Manager
	Covalence *covalence.Table
	Chat      *command.Registry
	Router    *router.Router

	core        *corePlugin
	store       Persistence
	logger      logging.Logger
	settings    map[string]string
	sources     map[string]string
	initialized bool
}

// New builds a host with the engine's default commands and the core plugin loaded
func New(opts Options) (*Host, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDisabledLogger()
	}

	h := &Host{
		Server:   engine.NewServer(),
		Players:  players.NewManager(),
		store:    opts.Store,
		logger:   logger,
		settings: opts.Settings,
		sources:  make(map[string]string),
	}
	engine.DefaultCommands(h.Server)
	h.Plugins = core.NewManager(logger.With("component", "plugins"))

	if h.store != nil {
		records, err := h.store.LoadPlayers()
		if err != nil {
			return nil, fmt.Errorf("failed to load players: %w", err)
		}
		h.Players.LoadRecords(records)
	}
	h.Players.PlayerConnected(h.Server.ConsolePlayer())

	commandLogger := logger.With("component", "commands")
	h.Covalence = covalence.NewTable(h.Server.Commands, h.Players, h.Plugins, opts.Restricted, commandLogger)
	chatOpts := command.Options{Restricted: opts.Restricted, Logger: commandLogger}
	if h.store != nil {
		chatOpts.Recorder = h.store
	}
	h.Chat = command.NewRegistry(h.Server.Commands, h.Covalence, h.Plugins, chatOpts)
	h.Covalence.SetChat(h.Chat)

	h.Router = router.New(h.Plugins, h.Server, h.Players, h.Covalence, h.Chat)
	h.Server.SetCommandHook(h.Router.Hook)
	h.Server.Commands.OnRegister(h.onNativeRegister)

	h.core = newCorePlugin(h)
	if err := h.Plugins.Load(h.core); err != nil {
		return nil, err
	}
	if err := h.core.Init(h.api()); err != nil {
		return nil, fmt.Errorf("failed to initialize core plugin: %w", err)
	}
	return h, nil
}

// onNativeRegister lets plugins keep names the engine registers after them
func (h *Host) onNativeRegister(cmd *engine.Command) {
	for _, name := range cmd.Names() {
		h.Chat.Reclaim(name)
		h.Covalence.Reclaim(name)
	}
}

// RegisterNative registers an engine command late, after plugins may have claimed its names
func (h *Host) RegisterNative(cmd *engine.Command) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Server.Commands.Register(cmd)
}

// Initialize fires OnServerInitialized once. Plugins loaded later receive it on load.
func (h *Host) Initialize() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.initialized {
		return
	}
	h.Plugins.CallHook("OnServerInitialized")
	h.initialized = true
	h.logger.Info("server initialized", "plugins", len(h.Plugins.Names()), "chat_commands", h.Chat.Len())
}

// LoadPlugin loads a catalogued plugin by name
func (h *Host) LoadPlugin(name string) (core.Plugin, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loadPlugin(name)
}

// UnloadPlugin unloads a plugin by its title or catalogue name
func (h *Host) UnloadPlugin(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unloadPlugin(name)
}

// ReloadPlugin unloads and loads a plugin again
func (h *Host) ReloadPlugin(name string) (core.Plugin, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reloadPlugin(name)
}

func (h *Host) loadPlugin(name string) (core.Plugin, error) {
	key, factory, ok := lookupFactory(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, name)
	}
	p := factory()
	if err := h.load(p); err != nil {
		return nil, err
	}
	h.sources[p.Name()] = key
	return p, nil
}

// Load loads a plugin instance that is not in the catalogue
func (h *Host) Load(p core.Plugin) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load(p)
}

func (h *Host) load(p core.Plugin) error {
	if err := h.Plugins.Load(p); err != nil {
		return err
	}
	if initializer, ok := p.(core.Initializer); ok {
		if err := initializer.Init(h.api()); err != nil {
			h.Plugins.Unload(p.Name())
			return fmt.Errorf("failed to initialize %s: %w", p.Name(), err)
		}
	}
	h.logger.Info("loaded plugin", "plugin", p.Name())
	h.Plugins.CallHook("OnPluginLoaded", p)
	return nil
}

func (h *Host) unloadPlugin(name string) error {
	p, ok := h.findLoaded(name)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrNotLoaded, name)
	}
	if p.IsCore() {
		return fmt.Errorf("%w: %s", ErrCorePlugin, p.Name())
	}
	if _, err := h.Plugins.Unload(p.Name()); err != nil {
		return err
	}
	delete(h.sources, p.Name())
	h.logger.Info("unloaded plugin", "plugin", p.Name())
	h.Plugins.CallHook("OnPluginUnloaded", p)
	return nil
}

func (h *Host) reloadPlugin(name string) (core.Plugin, error) {
	key := name
	if p, ok := h.findLoaded(name); ok {
		if source, ok := h.sources[p.Name()]; ok {
			key = source
		}
		if err := h.unloadPlugin(p.Name()); err != nil {
			return nil, err
		}
	}
	return h.loadPlugin(key)
}

// findLoaded matches a loaded plugin by title or by the catalogue name it was loaded from
func (h *Host) findLoaded(name string) (core.Plugin, bool) {
	for _, p := range h.Plugins.All() {
		if strings.EqualFold(p.Name(), name) || strings.EqualFold(h.sources[p.Name()], name) {
			return p, true
		}
	}
	return nil, false
}

func lookupFactory(name string) (string, core.Factory, bool) {
	for _, key := range core.Names() {
		if strings.EqualFold(key, name) {
			factory, _ := core.Lookup(key)
			return key, factory, true
		}
	}
	return "", nil, false
}

// Execute runs a command line as playerID
func (h *Host) Execute(playerID uint64, line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Server.Execute(playerID, line)
}

// Console runs line as the server console and returns everything it printed
func (h *Host) Console(line string) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf bytes.Buffer
	h.Server.Console(line, &buf)
	return strings.TrimRight(buf.String(), "\n")
}

// Save fires OnServerSave and persists known players
func (h *Host) Save() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.save()
}

func (h *Host) save() error {
	h.Plugins.CallHook("OnServerSave")
	return h.persistPlayers()
}

// Shutdown fires OnServerShutdown, persists players and unloads every plugin
// except the core plugin.
func (h *Host) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.Plugins.CallHook("OnServerShutdown")
	err := h.persistPlayers()

	names := h.Plugins.Names()
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for _, name := range names {
		p, ok := h.Plugins.Get(name)
		if !ok || p.IsCore() {
			continue
		}
		if uerr := h.unloadPlugin(name); uerr != nil {
			h.logger.Warn("failed to unload plugin during shutdown", "plugin", name, "error", uerr)
		}
	}
	return err
}

func (h *Host) persistPlayers() error {
	if h.store == nil {
		return nil
	}
	records := h.Players.Records()
	if err := h.store.SavePlayers(records); err != nil {
		h.logger.Error("failed to save player data", "error", err)
		return fmt.Errorf("failed to save player data: %w", err)
	}
	h.logger.Debug("saved player data", "players", len(records))
	return nil
}

// PluginInfo describes a loaded plugin
type PluginInfo struct {
	Name      string        `json:"name"`
	Source    string        `json:"source,omitempty"`
	Core      bool          `json:"core"`
	Calls     int           `json:"calls"`
	TotalTime time.Duration `json:"total_time"`
}

type statsProvider interface {
	Stats() (int, time.Duration)
}

// LoadedPlugins lists loaded plugins sorted by name
func (h *Host) LoadedPlugins() []PluginInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loadedPlugins()
}

func (h *Host) loadedPlugins() []PluginInfo {
	loaded := h.Plugins.All()
	infos := make([]PluginInfo, len(loaded))
	for i, p := range loaded {
		infos[i] = PluginInfo{Name: p.Name(), Source: h.sources[p.Name()], Core: p.IsCore()}
		if s, ok := p.(statsProvider); ok {
			infos[i].Calls, infos[i].TotalTime = s.Stats()
		}
	}
	return infos
}

// AvailablePlugins lists catalogued plugin names
func (h *Host) AvailablePlugins() []string {
	return core.Names()
}

// CommandInfo describes one registered command name
type CommandInfo struct {
	Name     string `json:"name"`
	Owner    string `json:"owner,omitempty"`
	Restores bool   `json:"restores"`
}

// CommandSnapshot lists every command table
type CommandSnapshot struct {
	Chat      []CommandInfo `json:"chat"`
	Framework []CommandInfo `json:"framework"`
	Native    []string      `json:"native"`
}

// Commands returns a snapshot of the chat, framework and native tables
func (h *Host) Commands() CommandSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap := CommandSnapshot{
		Chat:      []CommandInfo{},
		Framework: []CommandInfo{},
		Native:    h.Server.Commands.Names(),
	}
	for _, e := range h.Chat.Entries() {
		snap.Chat = append(snap.Chat, CommandInfo{Name: e.Name, Owner: e.OwnerName(), Restores: e.Original != nil})
	}
	for _, c := range h.Covalence.Commands() {
		snap.Framework = append(snap.Framework, CommandInfo{Name: c.Command, Owner: c.SourceName(), Restores: c.Original != nil})
	}
	return snap
}
