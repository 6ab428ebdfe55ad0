package garbage

import "github.com/hersh/stackrush/internal/game"

// Inbox holds garbage a player has received but not yet taken onto their
// board. Clears cancel it; a lock that clears nothing flushes it.
type Inbox struct {
	Pending int
}

func (in *Inbox) Receive(lines int) {
	if lines > 0 {
		in.Pending += lines
	}
}

// Resolve settles a clear worth toSend lines against the pending garbage
// and returns what is left to send to an opponent.
func (in *Inbox) Resolve(toSend int) int {
	sent, remaining := Net(toSend, in.Pending)
	in.Pending = remaining
	return sent
}

// Flush injects all pending garbage into b.
func (in *Inbox) Flush(b game.Board, src Source) game.Board {
	n := in.Pending
	in.Pending = 0
	return Apply(b, n, src)
}
