package tui

import (
	"time"

	"github.com/hersh/stackrush/internal/game"
	"github.com/hersh/stackrush/internal/garbage"
	"github.com/hersh/stackrush/internal/protocol"
	"github.com/hersh/stackrush/internal/targeting"
)

// Outbox is where a networked game reports to the server.
// *netclient.Client satisfies it.
type Outbox interface {
	Send(protocol.Inbound)
}

var targetModes = []targeting.Mode{
	targeting.ModeRandom,
	targeting.ModeBadges,
	targeting.ModeLowest,
	targeting.ModeAttacker,
}

// Play is the local game one player is running. In a match it nets
// clears against incoming garbage, sends what is left, and reports the
// board after every lock.
type Play struct {
	ctrl  *game.Controller
	inbox garbage.Inbox
	gaps  garbage.Source
	out   Outbox

	Target     targeting.Mode
	Sent       int
	LastClear  game.LockResult
	eliminated bool
}

// NewPlay starts a game from seed. out is nil for solo play.
func NewPlay(seed int64, now time.Time, out Outbox) *Play {
	p := &Play{
		ctrl:   game.NewController(game.NewSession(game.NewRandomizer(seed)), now),
		gaps:   game.NewRandomizer(seed ^ now.UnixNano()),
		out:    out,
		Target: targeting.ModeRandom,
	}
	p.ctrl.OnLock(p.locked)
	p.ctrl.Start(now)
	p.report()
	return p
}

func (p *Play) Session() *game.Session { return p.ctrl.Session() }

func (p *Play) Pending() int { return p.inbox.Pending }

func (p *Play) Over() bool { return p.Session().Phase == game.PhaseGameOver }

func (p *Play) Apply(a game.Action, now time.Time) {
	p.ctrl.Apply(a, now)
	p.checkOver()
}

func (p *Play) Advance(now time.Time) {
	p.ctrl.Advance(now)
	p.checkOver()
}

// TogglePause is solo only; a match never stops for one player.
func (p *Play) TogglePause(now time.Time) {
	if p.out != nil {
		return
	}
	if !p.ctrl.Pause() {
		p.ctrl.Resume(now)
	}
}

func (p *Play) Paused() bool { return p.Session().Phase == game.PhasePaused }

// Receive queues garbage addressed to this player.
func (p *Play) Receive(lines int) {
	if !p.Over() {
		p.inbox.Receive(lines)
	}
}

// CycleTarget moves to the next targeting strategy and tells the server.
func (p *Play) CycleTarget() {
	for i, m := range targetModes {
		if m == p.Target {
			p.Target = targetModes[(i+1)%len(targetModes)]
			break
		}
	}
	if p.out != nil {
		p.out.Send(protocol.SetTarget{Mode: string(p.Target)})
	}
}

func (p *Play) locked(res game.LockResult) {
	s := p.Session()
	switch {
	case res.Lines > 0:
		p.LastClear = res
		attack := garbage.For(res.Lines, res.BackToBack)
		if sent := p.inbox.Resolve(attack.LinesSent); sent > 0 && p.out != nil {
			p.out.Send(protocol.Garbage{Lines: sent, TargetMode: string(p.Target)})
			p.Sent += sent
		}
	case !res.GameOver() && p.inbox.Pending > 0:
		s.SetBoard(p.inbox.Flush(s.Board, p.gaps))
	}
	p.report()
}

func (p *Play) report() {
	if p.out == nil {
		return
	}
	s := p.Session()
	p.out.Send(protocol.BoardUpdate{
		Board: s.Board.Rows()[game.BufferRows:],
		Score: s.Score,
		Lines: s.Lines,
		Level: s.Level,
	})
}

func (p *Play) checkOver() {
	if p.out == nil || p.eliminated || !p.Over() {
		return
	}
	p.eliminated = true
	p.out.Send(protocol.Eliminated{})
}
