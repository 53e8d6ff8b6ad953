// ABOUTME: Player bookkeeping for the generic player abstraction.
// ABOUTME: Tracks known and connected players and supports lookup by id or partial name.

package players

import (
	"sort"
	"strconv"
	"strings"
)

// Record is the persisted form of a known player.
type Record struct {
	ID   uint64
	Name string
}

// Manager tracks every player that has joined and the ones currently connected.
type Manager struct {
	known     map[string]*player
	connected map[string]*player
}

// NewManager creates an empty manager
func NewManager() *Manager {
	return &Manager{
		known:     make(map[string]*player),
		connected: make(map[string]*player),
	}
}

// LoadRecords seeds the known players from persisted records
func (m *Manager) LoadRecords(records []Record) {
	for _, r := range records {
		id := strconv.FormatUint(r.ID, 10)
		if _, ok := m.known[id]; !ok {
			m.known[id] = &player{id: r.ID, name: r.Name}
		}
	}
}

// Records returns the known players sorted by id, ready to persist. The
// console pseudo-player is never persisted.
func (m *Manager) Records() []Record {
	records := make([]Record, 0, len(m.known))
	for _, p := range m.known {
		if p.id == ServerID {
			continue
		}
		records = append(records, Record{ID: p.id, Name: p.name})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// PlayerJoin records a player that is attempting to connect, updating its name.
func (m *Manager) PlayerJoin(id uint64, name string) {
	key := strconv.FormatUint(id, 10)
	if p, ok := m.known[key]; ok {
		p.name = name
		return
	}
	m.known[key] = &player{id: id, name: name}
}

// PlayerConnected binds a native session to its generic player
func (m *Manager) PlayerConnected(native *Player) IPlayer {
	p := &player{id: native.SteamID(), name: native.Name(), native: native}
	m.known[native.ID()] = p
	m.connected[native.ID()] = p
	return p
}

// PlayerDisconnected drops the session; the player stays known
func (m *Manager) PlayerDisconnected(native *Player) {
	delete(m.connected, native.ID())
	if p, ok := m.known[native.ID()]; ok {
		p.native = nil
	}
}

// FindPlayerByID returns a known player by its string id
func (m *Manager) FindPlayerByID(id string) (IPlayer, bool) {
	p, ok := m.known[id]
	if !ok {
		return nil, false
	}
	return p, true
}

// FindPlayers returns players whose name contains partial (case-insensitive) or whose id equals it
func (m *Manager) FindPlayers(partial string) []IPlayer {
	needle := strings.ToLower(partial)
	var found []IPlayer
	for _, p := range m.sorted(m.known) {
		if p.ID() == partial || (p.name != "" && strings.Contains(strings.ToLower(p.name), needle)) {
			found = append(found, p)
		}
	}
	return found
}

// FindPlayer returns the single player matching partial; multiple matches count as none
func (m *Manager) FindPlayer(partial string) (IPlayer, bool) {
	found := m.FindPlayers(partial)
	if len(found) != 1 {
		return nil, false
	}
	return found[0], true
}

// All returns every known player
func (m *Manager) All() []IPlayer {
	return toInterfaces(m.sorted(m.known))
}

// Connected returns the players with a live session
func (m *Manager) Connected() []IPlayer {
	return toInterfaces(m.sorted(m.connected))
}

func (m *Manager) sorted(set map[string]*player) []*player {
	list := make([]*player, 0, len(set))
	for _, p := range set {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].id < list[j].id })
	return list
}

func toInterfaces(list []*player) []IPlayer {
	out := make([]IPlayer, len(list))
	for i, p := range list {
		out[i] = p
	}
	return out
}
