package game

import "time"

type Phase int

const (
	PhaseIdle Phase = iota
	PhasePlaying
	PhasePaused
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePlaying:
		return "playing"
	case PhasePaused:
		return "paused"
	case PhaseGameOver:
		return "gameOver"
	}
	return "unknown"
}

const (
	// LockDelay is how long a grounded piece may rest before it locks.
	LockDelay = 500 * time.Millisecond
	// MaxLockResets caps how often moving a grounded piece restarts the delay.
	MaxLockResets = 15
)

// LockResult describes the outcome of one lock-and-spawn.
type LockResult struct {
	Lines int
	// BackToBack is set when this clear was a 4-line clear and the previous
	// clear was one too.
	BackToBack bool
	LockOut    bool
	TopOut     bool
}

// GameOver reports whether the lock ended the session.
func (r LockResult) GameOver() bool {
	return r.LockOut || r.TopOut
}

// Session is one player's game. It is owned by a single driver (the solo
// client, or one per player in multiplayer) and is not safe for concurrent
// use. Illegal moves are no-ops that return false.
type Session struct {
	Board      Board
	Current    *Piece
	Queue      Queue
	Held       PieceType
	CanHold    bool
	Score      int
	Level      int
	Lines      int
	LockResets int
	Phase      Phase
	LastLock   *LockResult

	lastClearWasTetris bool
	rand               *Randomizer
}

// NewSession creates an idle session drawing from r.
func NewSession(r *Randomizer) *Session {
	return &Session{
		Queue:   r.NewQueue(),
		CanHold: true,
		Level:   1,
		Phase:   PhaseIdle,
		rand:    r,
	}
}

// Start (re)initialises the session and spawns the first piece.
func (s *Session) Start() {
	s.Board = Board{}
	s.Queue = s.rand.NewQueue()
	s.Held = PieceNone
	s.CanHold = true
	s.Score = 0
	s.Level = 1
	s.Lines = 0
	s.LastLock = nil
	s.lastClearWasTetris = false
	s.Phase = PhasePlaying
	s.spawnNext()
}

func (s *Session) Pause() bool {
	if s.Phase != PhasePlaying {
		return false
	}
	s.Phase = PhasePaused
	return true
}

func (s *Session) Resume() bool {
	if s.Phase != PhasePaused {
		return false
	}
	s.Phase = PhasePlaying
	return true
}

func (s *Session) active() bool {
	return s.Phase == PhasePlaying && s.Current != nil
}

func (s *Session) tryMove(dx, dy int) bool {
	if !s.active() {
		return false
	}
	p := s.Current
	next := Point{X: p.Pos.X + dx, Y: p.Pos.Y + dy}
	if !CanPlace(s.Board, p.Type, next, p.Rotation) {
		return false
	}
	p.Pos = next
	return true
}

func (s *Session) MoveLeft() bool  { return s.tryMove(-1, 0) }
func (s *Session) MoveRight() bool { return s.tryMove(1, 0) }

// SoftDrop moves the piece down one row, scoring a point if it moved.
func (s *Session) SoftDrop() bool {
	if !s.tryMove(0, 1) {
		return false
	}
	s.Score += Points(ScoreEvent{Kind: ScoreSoftDrop, Count: 1}, s.Level)
	return true
}

// HardDrop drops the piece to its ghost position and locks immediately.
func (s *Session) HardDrop() bool {
	if !s.active() {
		return false
	}
	p := s.Current
	ghost := GhostPosition(s.Board, p.Type, p.Pos, p.Rotation)
	s.Score += Points(ScoreEvent{Kind: ScoreHardDrop, Count: ghost.Y - p.Pos.Y}, s.Level)
	p.Pos = ghost
	s.LockAndSpawn()
	return true
}

func (s *Session) RotateCW() bool  { return s.rotate(true) }
func (s *Session) RotateCCW() bool { return s.rotate(false) }

func (s *Session) rotate(clockwise bool) bool {
	if !s.active() {
		return false
	}
	p := s.Current
	to := p.Rotation.CCW()
	if clockwise {
		to = p.Rotation.CW()
	}
	for _, k := range Kicks(p.Type, p.Rotation, to) {
		pos := Point{X: p.Pos.X + k.X, Y: p.Pos.Y + k.Y}
		if CanPlace(s.Board, p.Type, pos, to) {
			p.Pos = pos
			p.Rotation = to
			return true
		}
	}
	return false
}

// Hold swaps the current piece into the hold slot, once per piece.
func (s *Session) Hold() bool {
	if !s.active() || !s.CanHold {
		return false
	}
	current := s.Current.Type
	s.CanHold = false
	if s.Held == PieceNone {
		s.Held = current
		if !s.spawnNext() {
			s.finish(LockResult{TopOut: true})
		}
		return true
	}
	next := NewPiece(s.Held)
	s.Held = current
	s.LockResets = 0
	if !CanPlace(s.Board, next.Type, next.Pos, next.Rotation) {
		s.Current = nil
		s.finish(LockResult{TopOut: true})
		return true
	}
	s.Current = &next
	return true
}

// Tick applies gravity. It returns false, leaving the piece in place, when
// the piece already rests on something; the caller owns the lock delay.
func (s *Session) Tick() bool {
	return s.tryMove(0, 1)
}

// Grounded reports whether the current piece cannot fall any further.
func (s *Session) Grounded() bool {
	if s.Current == nil {
		return false
	}
	p := s.Current
	return !CanPlace(s.Board, p.Type, Point{X: p.Pos.X, Y: p.Pos.Y + 1}, p.Rotation)
}

// ResetLockDelay records one lock-delay reset for the current piece and
// reports whether it was allowed.
func (s *Session) ResetLockDelay() bool {
	if s.LockResets >= MaxLockResets {
		return false
	}
	s.LockResets++
	return true
}

func (s *Session) LockResetsExhausted() bool {
	return s.LockResets >= MaxLockResets
}

// Ghost returns the landing position of the current piece.
func (s *Session) Ghost() (Point, bool) {
	if s.Current == nil {
		return Point{}, false
	}
	p := s.Current
	return GhostPosition(s.Board, p.Type, p.Pos, p.Rotation), true
}

// Next returns the next n queued types.
func (s *Session) Next(n int) []PieceType {
	return s.Queue.Peek(n)
}

// LockAndSpawn locks the current piece, resolves line clears and spawns the
// next piece, ending the game on lock-out or top-out.
func (s *Session) LockAndSpawn() LockResult {
	var res LockResult
	if s.Current == nil || s.Phase != PhasePlaying {
		return res
	}
	locked := *s.Current
	s.Board = Lock(s.Board, locked)
	s.Current = nil

	if IsLockedAboveVisible(locked) {
		res.LockOut = true
		s.finish(res)
		return res
	}

	lines := CompletedLines(s.Board)
	if n := len(lines); n > 0 {
		s.Board = ClearLines(s.Board, lines)
		s.Score += Points(ScoreEvent{Kind: ScoreLineClear, Count: n}, s.Level)
		s.Lines += n
		res.Lines = n
		if n == 4 {
			res.BackToBack = s.lastClearWasTetris
			s.lastClearWasTetris = true
		} else {
			s.lastClearWasTetris = false
		}
	}
	s.Level = LevelFor(s.Lines)

	if !s.spawnNext() {
		res.TopOut = true
		s.finish(res)
		return res
	}
	s.CanHold = true
	s.LastLock = &res
	return res
}

// SetBoard replaces the board, for garbage injected from outside. If the
// current piece no longer fits the session tops out.
func (s *Session) SetBoard(b Board) bool {
	s.Board = b
	if s.Current == nil {
		return true
	}
	p := s.Current
	if CanPlace(b, p.Type, p.Pos, p.Rotation) {
		return true
	}
	s.Current = nil
	res := LockResult{TopOut: true}
	s.finish(res)
	return false
}

func (s *Session) finish(res LockResult) {
	s.LastLock = &res
	s.Phase = PhaseGameOver
}

// spawnNext draws the next piece; false means it collided at spawn.
func (s *Session) spawnNext() bool {
	var t PieceType
	t, s.Queue = s.rand.Draw(s.Queue)
	s.LockResets = 0
	if IsTopOut(s.Board, t) {
		s.Current = nil
		return false
	}
	p := NewPiece(t)
	s.Current = &p
	return true
}
