// ABOUTME: Caller identities for command routing.
// ABOUTME: Native engine sessions and the generic cross-game player wrapper.

package players

import (
	"strconv"
	"strings"
)

// ServerID is the id the engine uses for its own console pseudo-player.
const ServerID uint64 = 9999999999

// IsServer reports whether c is the console pseudo-player
func IsServer(c Caller) bool {
	return c != nil && c.ID() == strconv.FormatUint(ServerID, 10)
}

// Caller is the capability set command routing works against.
type Caller interface {
	ID() string
	Name() string
	Reply(message string)
}

// IPlayer is the generic cross-game player handed to framework hooks and commands.
type IPlayer interface {
	Caller
	IsConnected() bool
	Native() *Player
}

// Player is a native engine session.
type Player struct {
	id   uint64
	name string
	send func(string)
}

// NewPlayer creates a native session. send receives every reply; nil discards them.
func NewPlayer(id uint64, name string, send func(string)) *Player {
	return &Player{id: id, name: name, send: send}
}

// SteamID returns the numeric engine id
func (p *Player) SteamID() uint64 { return p.id }

func (p *Player) ID() string   { return strconv.FormatUint(p.id, 10) }
func (p *Player) Name() string { return p.name }

// Reply sends a message to the player's chat or console
func (p *Player) Reply(message string) {
	if p.send != nil {
		p.send(message)
	}
}

// IsServer reports whether this is the engine console pseudo-player
func (p *Player) IsServer() bool { return p.id == ServerID }

type player struct {
	id     uint64
	name   string
	native *Player
}

func (p *player) ID() string   { return strconv.FormatUint(p.id, 10) }
func (p *player) Name() string { return p.name }

func (p *player) Reply(message string) {
	if p.native != nil {
		p.native.Reply(message)
	}
}

func (p *player) IsConnected() bool { return p.native != nil }
func (p *player) Native() *Player   { return p.native }

// ValidID reports whether s is a usable player id: numeric and at least 17
// digits long. The host refuses connections whose id fails it.
func ValidID(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return false
	}
	return len(strconv.FormatUint(v, 10)) >= 17
}
