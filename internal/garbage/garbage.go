// Package garbage turns line clears into attacks and injects received
// attacks into a board.
package garbage

import (
	"time"

	"github.com/hersh/stackrush/internal/game"
)

// Source is the randomness used to place the gap in a garbage line.
// *game.Randomizer and *rand.Rand both satisfy it.
type Source interface {
	IntN(n int) int
}

var linesSent = map[int]int{
	1: 0,
	2: 1,
	3: 2,
	4: 4,
}

type Result struct {
	LinesSent    int
	IsBackToBack bool
}

// For returns the garbage a clear of linesCleared produces. A back-to-back
// clear adds one line, but only when the clear sends something already.
func For(linesCleared int, wasBackToBack bool) Result {
	base := linesSent[linesCleared]
	if wasBackToBack && base > 0 {
		base++
	}
	return Result{LinesSent: base, IsBackToBack: wasBackToBack}
}

// Attack is one queued garbage delivery. It is never removed, only marked
// consumed.
type Attack struct {
	FromID    string
	ToID      string
	Lines     int
	Timestamp time.Time
	Consumed  bool
}

func NewAttack(from, to string, lines int, now time.Time) Attack {
	return Attack{FromID: from, ToID: to, Lines: lines, Timestamp: now}
}

// GenerateLine returns a full garbage row with one random gap.
func GenerateLine(src Source) game.Row {
	var row game.Row
	gap := src.IntN(game.BoardWidth)
	for x := range row {
		if x != gap {
			row[x] = game.CellGarbage
		}
	}
	return row
}

// Apply pushes the board up by n rows, discarding the top, and fills the
// bottom with fresh garbage lines. n <= 0 returns b unchanged.
func Apply(b game.Board, n int, src Source) game.Board {
	if n <= 0 {
		return b
	}
	n = min(n, game.TotalRows)
	var out game.Board
	copy(out[:], b[n:])
	for i := game.TotalRows - n; i < game.TotalRows; i++ {
		out[i] = GenerateLine(src)
	}
	return out
}

// Cancel offsets pending garbage by cleared lines.
func Cancel(pending, cleared int) int {
	return max(0, pending-cleared)
}

// Net settles outgoing garbage against garbage still pending for the
// sender: each side cancels the other line for line.
func Net(toSend, pending int) (sent, remaining int) {
	return Cancel(toSend, pending), Cancel(pending, toSend)
}
