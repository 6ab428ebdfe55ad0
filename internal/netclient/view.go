package netclient

import (
	"github.com/hersh/stackrush/internal/protocol"
)

type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseCountdown Phase = "countdown"
	PhasePlaying   Phase = "playing"
	PhaseGameOver  Phase = "gameOver"
)

// Opponent is the last snapshot received for another player.
type Opponent struct {
	ID         string
	Name       string
	Color      string
	Board      [][]string
	Score      int
	Lines      int
	Level      int
	Eliminated bool
	Placement  int
	Connected  bool
}

// RoomView is what a client knows about its room, rebuilt from server
// messages. Apply never mutates the receiver, so a copy handed to the
// renderer stays stable.
type RoomView struct {
	Phase      Phase
	RoomCode   string
	HostID     string
	SelfID     string
	Token      string
	Players    []protocol.NetworkPlayer
	Opponents  map[string]Opponent
	Countdown  int
	IsStarting bool

	Seed           int64
	PlayerOrder    []string
	PendingGarbage int
	LastAttacker   string
	SelfPlacement  int

	WinnerID  string
	Standings []protocol.Standing
	LastError *protocol.Error
}

func NewRoomView() RoomView {
	return RoomView{Phase: PhaseLobby, Opponents: map[string]Opponent{}}
}

// Apply folds one decoded server message (as DecodeOutbound returns it)
// into a new view.
func (v RoomView) Apply(m protocol.Outbound) RoomView {
	switch m := m.(type) {
	case *protocol.Welcome:
		v.SelfID = m.PlayerID
		v.Token = m.Token
		v.RoomCode = m.RoomCode

	case *protocol.RoomState:
		v.RoomCode = m.RoomCode
		v.HostID = m.HostID
		v.Players = clonePlayers(m.Players)
		v.IsStarting = m.IsStarting
		v.Countdown = 0
		if m.Countdown != nil {
			v.Countdown = *m.Countdown
		}
		if v.Phase == PhaseCountdown && !m.IsStarting {
			v.Phase = PhaseLobby
		}

	case *protocol.PlayerJoined:
		if v.player(m.Player.ID) >= 0 {
			return v
		}
		v.Players = append(clonePlayers(v.Players), m.Player)

	case *protocol.PlayerLeft:
		players := make([]protocol.NetworkPlayer, 0, len(v.Players))
		for _, p := range v.Players {
			if p.ID != m.PlayerID {
				players = append(players, p)
			}
		}
		v.Players = players

	case *protocol.PlayerReady:
		v.Players = v.updatePlayer(m.PlayerID, func(p *protocol.NetworkPlayer) { p.IsReady = m.IsReady })

	case *protocol.Countdown:
		v.Phase = PhaseCountdown
		v.IsStarting = true
		v.Countdown = m.Seconds

	case *protocol.GameStart:
		v.Phase = PhasePlaying
		v.IsStarting = false
		v.Countdown = 0
		v.Seed = m.Seed
		v.PlayerOrder = append([]string(nil), m.PlayerOrder...)
		v.PendingGarbage = 0
		v.LastAttacker = ""
		v.SelfPlacement = 0
		v.WinnerID = ""
		v.Standings = nil
		v.Opponents = map[string]Opponent{}

	case *protocol.HostChanged:
		v.HostID = m.NewHostID
		v.Players = v.updatePlayer("", func(p *protocol.NetworkPlayer) { p.IsHost = p.ID == m.NewHostID })

	case *protocol.GarbageAttack:
		if m.ToID != v.SelfID {
			return v
		}
		v.PendingGarbage += m.Lines
		v.LastAttacker = m.FromID

	case *protocol.PlayerUpdate:
		if m.PlayerID == v.SelfID {
			return v
		}
		prev, seen := v.Opponents[m.PlayerID]
		op := Opponent{
			ID:         m.PlayerID,
			Name:       "Player",
			Color:      "cyan",
			Board:      m.Board,
			Score:      m.Score,
			Lines:      m.Lines,
			Level:      m.Level,
			Eliminated: prev.Eliminated,
			Placement:  prev.Placement,
			Connected:  true,
		}
		if seen {
			op.Name, op.Color, op.Connected = prev.Name, prev.Color, prev.Connected
		}
		if i := v.player(m.PlayerID); i >= 0 {
			p := v.Players[i]
			op.Name, op.Color, op.Connected = p.Name, p.Color, p.IsConnected
		}
		v.Opponents = v.withOpponent(op)

	case *protocol.PlayerEliminated:
		if m.PlayerID == v.SelfID {
			v.SelfPlacement = m.Placement
			return v
		}
		if op, ok := v.Opponents[m.PlayerID]; ok {
			op.Eliminated = true
			op.Placement = m.Placement
			v.Opponents = v.withOpponent(op)
		}

	case *protocol.GameOver:
		v.Phase = PhaseGameOver
		v.WinnerID = m.WinnerID
		v.Standings = append([]protocol.Standing(nil), m.Standings...)

	case *protocol.Error:
		e := *m
		v.LastError = &e

	case *protocol.PlayerDisconnected:
		v = v.setConnected(m.PlayerID, false)

	case *protocol.PlayerReconnected:
		v = v.setConnected(m.PlayerID, true)

	case *protocol.RoomReset:
		self, token := v.SelfID, v.Token
		v = NewRoomView()
		v.SelfID, v.Token = self, token
		v.RoomCode = m.RoomCode
		v.HostID = m.HostID
		v.Players = clonePlayers(m.Players)
	}
	return v
}

// ClearGarbage marks the pending lines as handed to the game.
func (v RoomView) ClearGarbage() RoomView {
	v.PendingGarbage = 0
	return v
}

func (v RoomView) IsHost() bool { return v.SelfID != "" && v.SelfID == v.HostID }

// Joined reports whether the local player holds a seat.
func (v RoomView) Joined() bool { return v.player(v.SelfID) >= 0 }

// Self is the local player's roster entry.
func (v RoomView) Self() (protocol.NetworkPlayer, bool) {
	if i := v.player(v.SelfID); i >= 0 {
		return v.Players[i], true
	}
	return protocol.NetworkPlayer{}, false
}

func (v RoomView) AllReady() bool {
	if len(v.Players) == 0 {
		return false
	}
	for _, p := range v.Players {
		if !p.IsReady {
			return false
		}
	}
	return true
}

// CanStart mirrors the server's start check so the UI can offer it.
func (v RoomView) CanStart() bool {
	return v.IsHost() && v.AllReady() && len(v.Players) >= 2
}

// OpponentsInOrder lists known opponents in match order.
func (v RoomView) OpponentsInOrder() []Opponent {
	var out []Opponent
	for _, id := range v.PlayerOrder {
		if op, ok := v.Opponents[id]; ok {
			out = append(out, op)
		}
	}
	return out
}

func (v RoomView) player(id string) int {
	for i, p := range v.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// updatePlayer returns a copy of the roster with fn applied to id, or to
// everyone when id is empty.
func (v RoomView) updatePlayer(id string, fn func(*protocol.NetworkPlayer)) []protocol.NetworkPlayer {
	players := clonePlayers(v.Players)
	for i := range players {
		if id == "" || players[i].ID == id {
			fn(&players[i])
		}
	}
	return players
}

func (v RoomView) withOpponent(op Opponent) map[string]Opponent {
	out := make(map[string]Opponent, len(v.Opponents)+1)
	for id, o := range v.Opponents {
		out[id] = o
	}
	out[op.ID] = op
	return out
}

func (v RoomView) setConnected(id string, connected bool) RoomView {
	if op, ok := v.Opponents[id]; ok {
		op.Connected = connected
		v.Opponents = v.withOpponent(op)
	}
	v.Players = v.updatePlayer(id, func(p *protocol.NetworkPlayer) { p.IsConnected = connected })
	return v
}

func clonePlayers(ps []protocol.NetworkPlayer) []protocol.NetworkPlayer {
	if ps == nil {
		return nil
	}
	out := make([]protocol.NetworkPlayer, len(ps))
	copy(out, ps)
	return out
}
