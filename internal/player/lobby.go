package player

import (
	"errors"
	"math/rand/v2"
)

const (
	MaxPlayers = 4
	MinPlayers = 2

	RoomCodeLength = 6
	roomCodeChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	ErrLobbyFull     = errors.New("lobby is full")
	ErrAlreadyJoined = errors.New("player already in lobby")
)

type Color string

const (
	ColorCyan   Color = "cyan"
	ColorGreen  Color = "green"
	ColorOrange Color = "orange"
	ColorPurple Color = "purple"
)

// Palette is the fixed assignment order for player colors.
var Palette = [MaxPlayers]Color{ColorCyan, ColorGreen, ColorOrange, ColorPurple}

type Player struct {
	ID        string
	Name      string
	Color     Color
	IsHost    bool
	Ready     bool
	Connected bool
}

// Lobby is a room's roster, kept in join order. It is owned by a single
// room actor and does no locking of its own.
type Lobby struct {
	players []*Player
}

func NewLobby() *Lobby {
	return &Lobby{}
}

// AddPlayer seats a new player with the first free color. The first player
// in an empty lobby becomes host.
func (l *Lobby) AddPlayer(id, name string) (*Player, error) {
	if l.GetPlayer(id) != nil {
		return nil, ErrAlreadyJoined
	}
	if len(l.players) >= MaxPlayers {
		return nil, ErrLobbyFull
	}

	player := &Player{
		ID:        id,
		Name:      name,
		Color:     l.nextColor(),
		IsHost:    len(l.players) == 0,
		Connected: true,
	}
	l.players = append(l.players, player)
	return player, nil
}

func (l *Lobby) nextColor() Color {
	used := make(map[Color]bool, len(l.players))
	for _, p := range l.players {
		used[p.Color] = true
	}
	for _, c := range Palette {
		if !used[c] {
			return c
		}
	}
	return Palette[0]
}

// RemovePlayer drops id from the roster. If the host left and anyone
// remains, the earliest-joined remaining player becomes host and is
// returned as newHost.
func (l *Lobby) RemovePlayer(id string) (removed, newHost *Player) {
	for i, p := range l.players {
		if p.ID != id {
			continue
		}
		l.players = append(l.players[:i:i], l.players[i+1:]...)
		if p.IsHost && len(l.players) > 0 {
			newHost = l.players[0]
			newHost.IsHost = true
		}
		return p, newHost
	}
	return nil, nil
}

func (l *Lobby) GetPlayer(id string) *Player {
	for _, p := range l.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Host returns the current host, or nil when the lobby is empty.
func (l *Lobby) Host() *Player {
	for _, p := range l.players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

func (l *Lobby) HostID() string {
	if h := l.Host(); h != nil {
		return h.ID
	}
	return ""
}

func (l *Lobby) SetPlayerReady(id string, ready bool) bool {
	p := l.GetPlayer(id)
	if p == nil {
		return false
	}
	p.Ready = ready
	return true
}

// SetConnected reports whether the flag changed; unknown players and
// repeated values are no-ops.
func (l *Lobby) SetConnected(id string, connected bool) bool {
	p := l.GetPlayer(id)
	if p == nil || p.Connected == connected {
		return false
	}
	p.Connected = connected
	return true
}

// GetAllPlayers returns the roster in join order.
func (l *Lobby) GetAllPlayers() []*Player {
	players := make([]*Player, len(l.players))
	copy(players, l.players)
	return players
}

// IDs returns player ids in join order.
func (l *Lobby) IDs() []string {
	ids := make([]string, len(l.players))
	for i, p := range l.players {
		ids[i] = p.ID
	}
	return ids
}

func (l *Lobby) Count() int {
	return len(l.players)
}

func (l *Lobby) CountReady() int {
	count := 0
	for _, p := range l.players {
		if p.Ready {
			count++
		}
	}
	return count
}

func (l *Lobby) IsFull() bool {
	return len(l.players) >= MaxPlayers
}

// CanStart reports whether the lobby has quorum and everyone is ready.
func (l *Lobby) CanStart() bool {
	return len(l.players) >= MinPlayers && l.CountReady() == len(l.players)
}

// Reset clears ready flags for a new match.
func (l *Lobby) Reset() {
	for _, p := range l.players {
		p.Ready = false
	}
}

// GenerateRoomCode returns a random code of RoomCodeLength characters.
func GenerateRoomCode() string {
	b := make([]byte, RoomCodeLength)
	for i := range b {
		b[i] = roomCodeChars[rand.IntN(len(roomCodeChars))]
	}
	return string(b)
}

// ValidRoomCode reports whether code is exactly six of A-Z and 0-9.
func ValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
