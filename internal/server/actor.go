package server

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hersh/stackrush/internal/player"
	"github.com/hersh/stackrush/internal/protocol"
	"github.com/hersh/stackrush/internal/room"
)

const (
	DefaultDisconnectGrace = 10 * time.Second
	countdownStep          = time.Second
	inboxSize              = 64
)

// Peer is one client connection as the actor sees it.
type Peer interface {
	Send(protocol.Outbound)
	Close()
}

type ActorConfig struct {
	Code            string
	Countdown       int
	DisconnectGrace time.Duration
	Clock           Clock
	Logger          *zap.Logger
	// OnClose runs on the actor goroutine once the room has been torn down.
	OnClose func(code string)
	// Room options, mostly for tests.
	RoomOptions []room.Option
}

type pendingTimer struct {
	gen   uint64
	timer Timer
}

// Actor owns one room. Every event is a closure run on its goroutine, so
// the room and the bookkeeping below are never shared.
type Actor struct {
	code    string
	room    *room.Room
	grace   time.Duration
	clock   Clock
	log     *zap.Logger
	onClose func(string)

	inbox     chan func()
	done      chan struct{}
	closeOnce sync.Once

	peers     map[string]Peer
	countdown pendingTimer
	reconnect map[string]pendingTimer
	gen       uint64

	info atomic.Pointer[protocol.RoomInfo]
}

func NewActor(cfg ActorConfig) *Actor {
	if cfg.Clock == nil {
		cfg.Clock = RealClock
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.DisconnectGrace <= 0 {
		cfg.DisconnectGrace = DefaultDisconnectGrace
	}
	opts := []room.Option{
		room.WithCountdown(cfg.Countdown),
		room.WithClock(cfg.Clock.Now),
	}
	a := &Actor{
		code:      cfg.Code,
		room:      room.New(cfg.Code, append(opts, cfg.RoomOptions...)...),
		grace:     cfg.DisconnectGrace,
		clock:     cfg.Clock,
		log:       cfg.Logger.With(zap.String("room", cfg.Code)),
		onClose:   cfg.OnClose,
		inbox:     make(chan func(), inboxSize),
		done:      make(chan struct{}),
		peers:     make(map[string]Peer),
		reconnect: make(map[string]pendingTimer),
	}
	a.publish()
	return a
}

// Run processes events until the room is torn down or Stop is called.
func (a *Actor) Run() {
	for {
		select {
		case fn := <-a.inbox:
			fn()
			a.publish()
		case <-a.done:
			return
		}
	}
}

// Stop closes every connection and releases the room's timers.
func (a *Actor) Stop() {
	a.post(a.shutdown)
}

// Done is closed once the actor has stopped.
func (a *Actor) Done() <-chan struct{} { return a.done }

func (a *Actor) Code() string { return a.code }

// Info is the last published summary of the room, safe from any goroutine.
func (a *Actor) Info() protocol.RoomInfo { return *a.info.Load() }

// post queues fn and reports false once the actor has stopped.
func (a *Actor) post(fn func()) bool {
	select {
	case <-a.done:
		return false
	default:
	}
	select {
	case a.inbox <- fn:
		return true
	case <-a.done:
		return false
	}
}

// do runs fn on the actor and waits for it.
func (a *Actor) do(fn func()) bool {
	finished := make(chan struct{})
	if !a.post(func() { fn(); close(finished) }) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-a.done:
		return false
	}
}

// Connect attaches a peer for playerID. The peer receives welcome and the
// room snapshot. A player whose seat is held after a drop gets it back.
func (a *Actor) Connect(playerID, token string, p Peer) bool {
	return a.do(func() { a.connect(playerID, token, p) })
}

// Disconnect detaches p. A peer already replaced by a newer connection for
// the same player is ignored.
func (a *Actor) Disconnect(playerID string, p Peer) {
	a.post(func() { a.disconnect(playerID, p) })
}

// Message dispatches one validated client message.
func (a *Actor) Message(playerID string, msg protocol.Inbound) {
	a.post(func() { a.handle(playerID, msg) })
}

func (a *Actor) connect(playerID, token string, p Peer) {
	if old, ok := a.peers[playerID]; ok && old != p {
		old.Close()
	}
	a.peers[playerID] = p
	p.Send(protocol.Welcome{PlayerID: playerID, Token: token, RoomCode: a.code})
	p.Send(a.room.Snapshot())

	if a.room.Has(playerID) {
		a.stopReconnect(playerID)
		a.deliver(a.room.Reconnect(playerID))
		a.log.Info("player reconnected", zap.String("player", playerID))
		return
	}
	a.log.Debug("peer connected", zap.String("player", playerID))
}

func (a *Actor) disconnect(playerID string, p Peer) {
	if cur, ok := a.peers[playerID]; !ok || cur != p {
		return
	}
	delete(a.peers, playerID)

	out, grace := a.room.Disconnect(playerID)
	a.deliver(out)
	if grace {
		a.startReconnect(playerID)
		a.log.Info("player disconnected, holding seat",
			zap.String("player", playerID), zap.Duration("grace", a.grace))
	} else {
		a.log.Debug("peer disconnected", zap.String("player", playerID))
	}
	a.syncCountdown()
	a.closeIfEmpty()
}

func (a *Actor) handle(playerID string, msg protocol.Inbound) {
	if _, ok := a.peers[playerID]; !ok {
		return
	}
	var (
		out []room.Output
		err error
	)
	switch m := msg.(type) {
	case protocol.Join:
		out, err = a.room.Join(playerID, m.PlayerName)
		if err == nil {
			a.log.Info("player joined", zap.String("player", playerID), zap.String("name", m.PlayerName))
		}
	case protocol.Ready:
		out, err = a.room.SetReady(playerID, m.IsReady)
	case protocol.Start:
		out, err = a.room.Start(playerID)
		if err == nil {
			a.log.Info("countdown started", zap.Int("players", a.room.PlayerCount()))
		}
	case protocol.Garbage:
		out = a.room.ReportGarbage(playerID, m.Lines, m.TargetMode)
	case protocol.BoardUpdate:
		out = a.room.UpdateBoard(playerID, m)
	case protocol.Eliminated:
		out = a.room.ReportEliminated(playerID)
	case protocol.SetTarget:
		// Targeting is chosen per garbage report; nothing to store.
		a.log.Debug("target mode", zap.String("player", playerID), zap.String("mode", m.Mode))
	case protocol.Leave:
		out = a.room.Leave(playerID)
		a.stopReconnect(playerID)
	case protocol.PlayAgain:
		out, err = a.room.PlayAgain(playerID)
	}

	if err != nil {
		var roomErr *room.Error
		if errors.As(err, &roomErr) {
			a.sendTo(playerID, roomErr.Msg())
		}
		a.log.Debug("rejected", zap.String("player", playerID),
			zap.String("type", string(msg.Kind())), zap.Error(err))
		return
	}
	a.deliver(out)
	a.syncCountdown()

	if a.room.Phase == room.PhaseGameOver {
		for _, o := range out {
			if over, ok := o.Msg.(protocol.GameOver); ok {
				a.log.Info("match over", zap.String("winner", over.WinnerID))
			}
		}
	}
}

func (a *Actor) deliver(out []room.Output) {
	for _, o := range out {
		if o.To != "" {
			a.sendTo(o.To, o.Msg)
			continue
		}
		for _, p := range a.peers {
			p.Send(o.Msg)
		}
	}
}

func (a *Actor) sendTo(playerID string, m protocol.Outbound) {
	if p, ok := a.peers[playerID]; ok {
		p.Send(m)
	}
}

func (a *Actor) nextGen() uint64 {
	a.gen++
	return a.gen
}

// syncCountdown keeps one countdown timer pending exactly while the room is
// counting down.
func (a *Actor) syncCountdown() {
	counting := a.room.Phase == room.PhaseCountdown
	if counting && a.countdown.timer != nil {
		return
	}
	if !counting {
		a.stopCountdown()
		return
	}
	gen := a.nextGen()
	a.countdown = pendingTimer{gen: gen, timer: a.clock.AfterFunc(countdownStep, func() {
		a.post(func() { a.countdownFired(gen) })
	})}
}

func (a *Actor) countdownFired(gen uint64) {
	if a.countdown.gen != gen || a.countdown.timer == nil {
		return
	}
	a.countdown = pendingTimer{}
	out := a.room.CountdownTick()
	a.deliver(out)
	if a.room.Phase == room.PhasePlaying {
		a.log.Info("match started", zap.Int64("seed", a.room.Seed()))
	}
	a.syncCountdown()
}

func (a *Actor) stopCountdown() {
	if a.countdown.timer != nil {
		a.countdown.timer.Stop()
	}
	a.countdown = pendingTimer{}
}

func (a *Actor) startReconnect(playerID string) {
	a.stopReconnect(playerID)
	gen := a.nextGen()
	a.reconnect[playerID] = pendingTimer{gen: gen, timer: a.clock.AfterFunc(a.grace, func() {
		a.post(func() { a.reconnectExpired(playerID, gen) })
	})}
}

func (a *Actor) stopReconnect(playerID string) {
	if t, ok := a.reconnect[playerID]; ok {
		t.timer.Stop()
		delete(a.reconnect, playerID)
	}
}

func (a *Actor) reconnectExpired(playerID string, gen uint64) {
	t, ok := a.reconnect[playerID]
	if !ok || t.gen != gen {
		return
	}
	delete(a.reconnect, playerID)
	a.log.Info("reconnect grace expired", zap.String("player", playerID))
	a.deliver(a.room.DisconnectExpired(playerID))
	a.syncCountdown()
	a.closeIfEmpty()
}

func (a *Actor) closeIfEmpty() {
	if a.room.Empty() && len(a.peers) == 0 && len(a.reconnect) == 0 {
		a.shutdown()
	}
}

func (a *Actor) shutdown() {
	a.closeOnce.Do(func() {
		a.stopCountdown()
		for id := range a.reconnect {
			a.stopReconnect(id)
		}
		for id, p := range a.peers {
			p.Close()
			delete(a.peers, id)
		}
		a.log.Info("room closed")
		a.publish()
		close(a.done)
		if a.onClose != nil {
			a.onClose(a.code)
		}
	})
}

func (a *Actor) publish() {
	a.info.Store(&protocol.RoomInfo{
		RoomCode:    a.code,
		PlayerCount: a.room.PlayerCount(),
		MaxPlayers:  player.MaxPlayers,
		Phase:       string(a.room.Phase),
	})
}
