// Package room is the authoritative state machine for one match. It does no
// I/O: every operation returns the messages it produced and the caller
// delivers them.
package room

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/hersh/stackrush/internal/garbage"
	"github.com/hersh/stackrush/internal/player"
	"github.com/hersh/stackrush/internal/protocol"
	"github.com/hersh/stackrush/internal/targeting"
)

type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseCountdown Phase = "countdown"
	PhasePlaying   Phase = "playing"
	PhaseGameOver  Phase = "gameOver"
)

const DefaultCountdown = 3

// Output is one message to deliver. An empty To means every connection in
// the room.
type Output struct {
	To  string
	Msg protocol.Outbound
}

func broadcast(m protocol.Outbound) Output { return Output{Msg: m} }

func send(to string, m protocol.Outbound) Output { return Output{To: to, Msg: m} }

// PlayerState is the room's summary of one player's game during a match.
type PlayerState struct {
	ID             string
	Board          [][]string
	Score          int
	Lines          int
	Level          int
	PendingGarbage int
	GarbageSent    int
	Knockouts      int
	Eliminated     bool
	Placement      int // 0 until assigned
	LastAttacker   string
}

type Room struct {
	Code  string
	Phase Phase

	lobby          *player.Lobby
	states         map[string]*PlayerState
	order          []string
	countdownStart int
	countdown      int
	seed           int64
	attacks        []garbage.Attack
	winnerID       string

	rng *rand.Rand
	now func() time.Time
}

type Option func(*Room)

// WithRand fixes the randomness used for seeds and target selection.
func WithRand(r *rand.Rand) Option {
	return func(rm *Room) { rm.rng = r }
}

func WithClock(now func() time.Time) Option {
	return func(rm *Room) { rm.now = now }
}

// WithCountdown sets how many seconds the pre-game countdown runs.
func WithCountdown(seconds int) Option {
	return func(rm *Room) { rm.countdownStart = seconds }
}

func New(code string, opts ...Option) *Room {
	r := &Room{
		Code:           code,
		Phase:          PhaseLobby,
		lobby:          player.NewLobby(),
		states:         make(map[string]*PlayerState),
		countdownStart: DefaultCountdown,
		rng:            rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// --- Queries ---

func (r *Room) Empty() bool { return r.lobby.Count() == 0 }

func (r *Room) PlayerCount() int { return r.lobby.Count() }

func (r *Room) HostID() string { return r.lobby.HostID() }

func (r *Room) Has(id string) bool { return r.lobby.GetPlayer(id) != nil }

func (r *Room) Player(id string) *player.Player { return r.lobby.GetPlayer(id) }

// Countdown returns the seconds left while the countdown runs.
func (r *Room) Countdown() (int, bool) {
	return r.countdown, r.Phase == PhaseCountdown
}

func (r *Room) Seed() int64 { return r.seed }

func (r *Room) WinnerID() string { return r.winnerID }

// State returns a player's match state, nil outside a match.
func (r *Room) State(id string) *PlayerState { return r.states[id] }

// Attacks returns the garbage queue of the current match.
func (r *Room) Attacks() []garbage.Attack {
	out := make([]garbage.Attack, len(r.attacks))
	copy(out, r.attacks)
	return out
}

func (r *Room) networkPlayers() []protocol.NetworkPlayer {
	players := r.lobby.GetAllPlayers()
	out := make([]protocol.NetworkPlayer, len(players))
	for i, p := range players {
		out[i] = networkPlayer(p)
	}
	return out
}

func networkPlayer(p *player.Player) protocol.NetworkPlayer {
	return protocol.NetworkPlayer{
		ID:          p.ID,
		Name:        p.Name,
		Color:       string(p.Color),
		IsHost:      p.IsHost,
		IsReady:     p.Ready,
		IsConnected: p.Connected,
	}
}

// Snapshot is the roomState message for a connection arriving now.
func (r *Room) Snapshot() protocol.RoomState {
	s := protocol.RoomState{
		RoomCode:   r.Code,
		HostID:     r.lobby.HostID(),
		Players:    r.networkPlayers(),
		IsStarting: r.Phase == PhaseCountdown,
	}
	if r.Phase == PhaseCountdown {
		n := r.countdown
		s.Countdown = &n
	}
	return s
}

// --- Lobby ---

// Join seats a new player.
func (r *Room) Join(id, name string) ([]Output, error) {
	if r.lobby.GetPlayer(id) != nil {
		return nil, ErrAlreadyJoined
	}
	if r.Phase != PhaseLobby {
		return nil, ErrGameInProgress
	}
	if r.lobby.IsFull() {
		return nil, ErrRoomFull
	}
	if name == "" {
		name = fmt.Sprintf("Player %d", r.lobby.Count()+1)
	}
	p, err := r.lobby.AddPlayer(id, name)
	if err != nil {
		return nil, ErrRoomFull
	}
	return []Output{
		broadcast(protocol.PlayerJoined{Player: networkPlayer(p)}),
		send(id, r.Snapshot()),
	}, nil
}

// SetReady records a ready toggle. Un-readying during the countdown
// cancels it.
func (r *Room) SetReady(id string, ready bool) ([]Output, error) {
	if !r.Has(id) {
		return nil, ErrNotJoined
	}
	if r.Phase != PhaseLobby && r.Phase != PhaseCountdown {
		return nil, ErrInvalidPhase
	}
	r.lobby.SetPlayerReady(id, ready)
	out := []Output{broadcast(protocol.PlayerReady{PlayerID: id, IsReady: ready})}
	if r.Phase == PhaseCountdown && !ready {
		out = append(out, r.cancelCountdown()...)
	}
	return out, nil
}

// Start begins the countdown. Only the host may start, with quorum and
// everyone ready.
func (r *Room) Start(id string) ([]Output, error) {
	if !r.Has(id) {
		return nil, ErrNotJoined
	}
	if r.Phase != PhaseLobby {
		return nil, ErrInvalidPhase
	}
	if r.lobby.HostID() != id {
		return nil, ErrNotHost
	}
	if r.lobby.Count() < player.MinPlayers {
		return nil, ErrNotEnoughPlayers
	}
	if !r.lobby.CanStart() {
		return nil, ErrPlayersNotReady
	}
	r.Phase = PhaseCountdown
	r.countdown = r.countdownStart
	if r.countdown <= 0 {
		return r.startGame(), nil
	}
	return []Output{broadcast(protocol.Countdown{Seconds: r.countdown})}, nil
}

// CountdownTick advances the countdown by one second, starting the match
// when it reaches zero. Outside the countdown it does nothing.
func (r *Room) CountdownTick() []Output {
	if r.Phase != PhaseCountdown {
		return nil
	}
	r.countdown--
	if r.countdown <= 0 {
		return r.startGame()
	}
	return []Output{broadcast(protocol.Countdown{Seconds: r.countdown})}
}

func (r *Room) cancelCountdown() []Output {
	r.Phase = PhaseLobby
	r.countdown = 0
	return []Output{broadcast(r.Snapshot())}
}

func (r *Room) startGame() []Output {
	r.Phase = PhasePlaying
	r.countdown = 0
	r.seed = r.rng.Int64N(1 << 53)
	r.attacks = nil
	r.winnerID = ""
	r.order = r.lobby.IDs()
	r.states = make(map[string]*PlayerState, len(r.order))
	for _, id := range r.order {
		r.states[id] = &PlayerState{ID: id, Level: 1}
	}
	order := make([]string, len(r.order))
	copy(order, r.order)
	return []Output{broadcast(protocol.GameStart{Seed: r.seed, PlayerOrder: order})}
}

// --- Match ---

// ReportGarbage routes an attack from id to a target chosen by mode.
// Reports outside a match, from eliminated players, or with no living
// target are dropped.
func (r *Room) ReportGarbage(id string, lines int, mode string) []Output {
	st := r.states[id]
	if r.Phase != PhasePlaying || st == nil || st.Eliminated || lines <= 0 {
		return nil
	}
	targetID, ok := targeting.Select(targeting.ParseMode(mode), id, r.candidates(), st.LastAttacker, r.rng)
	if !ok {
		return nil
	}

	// The sender netted its own pending garbage before reporting.
	st.PendingGarbage = 0
	r.consumeAttacksOn(id)

	target := r.states[targetID]
	target.PendingGarbage += lines
	target.LastAttacker = id
	st.GarbageSent += lines
	r.attacks = append(r.attacks, garbage.NewAttack(id, targetID, lines, r.now()))

	return []Output{broadcast(protocol.GarbageAttack{FromID: id, ToID: targetID, Lines: lines})}
}

func (r *Room) candidates() []targeting.Candidate {
	out := make([]targeting.Candidate, 0, len(r.order))
	for _, id := range r.order {
		st := r.states[id]
		out = append(out, targeting.Candidate{
			ID:         id,
			Score:      st.Score,
			Knockouts:  st.Knockouts,
			Eliminated: st.Eliminated,
		})
	}
	return out
}

func (r *Room) consumeAttacksOn(id string) {
	for i := range r.attacks {
		if r.attacks[i].ToID == id {
			r.attacks[i].Consumed = true
		}
	}
}

// UpdateBoard stores a player's reported snapshot and relays it.
func (r *Room) UpdateBoard(id string, u protocol.BoardUpdate) []Output {
	st := r.states[id]
	if r.Phase != PhasePlaying || st == nil || st.Eliminated {
		return nil
	}
	st.Board = u.Board
	st.Score = u.Score
	st.Lines = u.Lines
	if u.Level > 0 {
		st.Level = u.Level
	}
	return []Output{broadcast(protocol.PlayerUpdate{
		PlayerID: id,
		Board:    u.Board,
		Score:    st.Score,
		Lines:    st.Lines,
		Level:    st.Level,
	})}
}

// ReportEliminated handles a player topping out. The last opponent to
// attack them is credited with the knockout while still alive.
func (r *Room) ReportEliminated(id string) []Output {
	st := r.states[id]
	if st == nil {
		return nil
	}
	by := ""
	if killer := r.states[st.LastAttacker]; killer != nil && !killer.Eliminated {
		by = killer.ID
	}
	return r.eliminate(id, by)
}

// eliminate assigns id the current placement and ends the match when one
// player remains.
func (r *Room) eliminate(id, by string) []Output {
	st := r.states[id]
	if r.Phase != PhasePlaying || st == nil || st.Eliminated {
		return nil
	}
	st.Placement = r.aliveCount()
	st.Eliminated = true
	st.PendingGarbage = 0
	r.consumeAttacksOn(id)

	var eliminatedBy *string
	if killer := r.states[by]; killer != nil && by != id {
		killer.Knockouts++
		eliminatedBy = &by
	}
	out := []Output{broadcast(protocol.PlayerEliminated{
		PlayerID:     id,
		Placement:    st.Placement,
		EliminatedBy: eliminatedBy,
	})}

	if alive := r.alive(); len(alive) == 1 {
		out = append(out, r.endGame(alive[0])...)
	}
	return out
}

func (r *Room) alive() []string {
	var ids []string
	for _, id := range r.order {
		if !r.states[id].Eliminated {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *Room) aliveCount() int { return len(r.alive()) }

func (r *Room) endGame(winnerID string) []Output {
	r.Phase = PhaseGameOver
	r.winnerID = winnerID
	r.states[winnerID].Placement = 1
	return []Output{broadcast(protocol.GameOver{
		WinnerID:  winnerID,
		Standings: r.Standings(),
	})}
}

// Standings lists every match participant by placement. Players still
// alive sort last.
func (r *Room) Standings() []protocol.Standing {
	out := make([]protocol.Standing, 0, len(r.order))
	for _, id := range r.order {
		st := r.states[id]
		out = append(out, protocol.Standing{
			PlayerID:  id,
			Placement: st.Placement,
			Score:     st.Score,
			Lines:     st.Lines,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Placement, out[j].Placement
		if pi == 0 || pj == 0 {
			return pj == 0 && pi != 0
		}
		return pi < pj
	})
	return out
}

// PlayAgain returns a finished room to the lobby with the same roster.
func (r *Room) PlayAgain(id string) ([]Output, error) {
	if !r.Has(id) {
		return nil, ErrNotJoined
	}
	if r.Phase != PhaseGameOver {
		return nil, ErrInvalidPhase
	}
	r.Phase = PhaseLobby
	r.countdown = 0
	r.seed = 0
	r.attacks = nil
	r.order = nil
	r.winnerID = ""
	r.states = make(map[string]*PlayerState)
	r.lobby.Reset()
	return []Output{broadcast(protocol.RoomReset{
		RoomCode: r.Code,
		HostID:   r.lobby.HostID(),
		Players:  r.networkPlayers(),
	})}, nil
}

// --- Departures ---

// Leave removes id at any phase. During a match the leaver is eliminated
// first so every participant still gets a placement.
func (r *Room) Leave(id string) []Output {
	if !r.Has(id) {
		return nil
	}
	var out []Output
	if r.Phase == PhasePlaying {
		out = append(out, r.eliminate(id, "")...)
	}
	return append(out, r.remove(id)...)
}

func (r *Room) remove(id string) []Output {
	removed, newHost := r.lobby.RemovePlayer(id)
	if removed == nil {
		return nil
	}
	out := []Output{broadcast(protocol.PlayerLeft{PlayerID: id})}
	if newHost != nil {
		out = append(out, broadcast(protocol.HostChanged{NewHostID: newHost.ID}))
	}
	if r.Phase == PhaseCountdown {
		out = append(out, r.cancelCountdown()...)
	}
	return out
}

// Disconnect handles a dropped connection. During a match the slot is held
// and grace reports that the caller should start the reconnect timer;
// otherwise the player is removed at once.
func (r *Room) Disconnect(id string) (out []Output, grace bool) {
	p := r.lobby.GetPlayer(id)
	if p == nil {
		return nil, false
	}
	if r.Phase != PhasePlaying {
		return r.remove(id), false
	}
	if !r.lobby.SetConnected(id, false) {
		return nil, true
	}
	return []Output{broadcast(protocol.PlayerDisconnected{PlayerID: id})}, true
}

// Reconnect restores a held slot.
func (r *Room) Reconnect(id string) []Output {
	if !r.lobby.SetConnected(id, true) {
		return nil
	}
	return []Output{broadcast(protocol.PlayerReconnected{PlayerID: id})}
}

// DisconnectExpired ends a grace period that ran out: the player is
// eliminated if still playing and removed. A player who came back in the
// meantime is left alone.
func (r *Room) DisconnectExpired(id string) []Output {
	p := r.lobby.GetPlayer(id)
	if p == nil || p.Connected {
		return nil
	}
	return r.Leave(id)
}
