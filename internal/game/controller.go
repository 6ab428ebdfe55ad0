package game

import "time"

// Action is a decoded player input.
type Action int

const (
	ActionLeft Action = iota
	ActionRight
	ActionSoftDrop
	ActionHardDrop
	ActionRotateCW
	ActionRotateCCW
	ActionHold
)

// Controller drives a Session's gravity and lock delay from caller-supplied
// time, so the loop can run on any scheduler (a tea.Tick in the client, a
// fake clock in tests). Nothing fires while the session is not playing.
type Controller struct {
	s *Session

	lastFall  time.Time
	lockAt    time.Time
	lockArmed bool

	onLock func(LockResult)
}

func NewController(s *Session, now time.Time) *Controller {
	return &Controller{s: s, lastFall: now}
}

func (c *Controller) Session() *Session { return c.s }

// OnLock registers fn to run after every lock, including hard drops.
func (c *Controller) OnLock(fn func(LockResult)) {
	c.onLock = fn
}

// Start begins a new game at now.
func (c *Controller) Start(now time.Time) {
	c.s.Start()
	c.lastFall = now
	c.lockArmed = false
}

// Apply performs one action and reports whether the session accepted it.
func (c *Controller) Apply(a Action, now time.Time) bool {
	if c.s.Phase != PhasePlaying {
		return false
	}
	var ok bool
	switch a {
	case ActionLeft:
		ok = c.s.MoveLeft()
	case ActionRight:
		ok = c.s.MoveRight()
	case ActionSoftDrop:
		ok = c.s.SoftDrop()
		if ok {
			c.lastFall = now
		}
	case ActionRotateCW:
		ok = c.s.RotateCW()
	case ActionRotateCCW:
		ok = c.s.RotateCCW()
	case ActionHardDrop:
		ok = c.s.HardDrop()
		if ok {
			c.afterLock(now)
		}
		return ok
	case ActionHold:
		ok = c.s.Hold()
		if ok {
			c.lockArmed = false
			c.lastFall = now
		}
		return ok
	default:
		return false
	}
	if ok && c.lockArmed {
		switch {
		case !c.s.Grounded():
			c.lockArmed = false
		case c.s.ResetLockDelay():
			c.lockAt = now.Add(LockDelay)
		}
	}
	return ok
}

// Advance runs every gravity step due by now, then locks the piece if its
// lock delay has expired.
func (c *Controller) Advance(now time.Time) {
	if c.s.Phase != PhasePlaying {
		return
	}
	interval := FallInterval(c.s.Level)
	for !now.Before(c.lastFall.Add(interval)) {
		c.lastFall = c.lastFall.Add(interval)
		if c.s.Tick() {
			c.lockArmed = false
			continue
		}
		if !c.lockArmed {
			c.lockArmed = true
			c.lockAt = c.lastFall.Add(LockDelay)
		} else if c.s.LockResetsExhausted() {
			c.lock(now)
			return
		}
		// Grounded: further ticks would be no-ops.
		c.lastFall = now
		break
	}
	if c.lockArmed && !now.Before(c.lockAt) {
		c.lock(now)
	}
}

func (c *Controller) Pause() bool {
	return c.s.Pause()
}

// Resume continues play from now. Time spent paused never produces ticks.
func (c *Controller) Resume(now time.Time) bool {
	if !c.s.Resume() {
		return false
	}
	c.lastFall = now
	if c.lockArmed {
		c.lockAt = now.Add(LockDelay)
	}
	return true
}

// LockPending reports whether the lock-delay timer is running.
func (c *Controller) LockPending() bool {
	return c.lockArmed
}

func (c *Controller) lock(now time.Time) {
	c.s.LockAndSpawn()
	c.afterLock(now)
}

func (c *Controller) afterLock(now time.Time) {
	c.lockArmed = false
	c.lastFall = now
	if c.onLock != nil && c.s.LastLock != nil {
		c.onLock(*c.s.LastLock)
	}
}
