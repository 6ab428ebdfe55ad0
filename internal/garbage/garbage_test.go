package garbage

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hersh/stackrush/internal/game"
)

func TestFor(t *testing.T) {
	tests := []struct {
		lines int
		b2b   bool
		want  int
	}{
		{0, false, 0},
		{1, false, 0},
		{2, false, 1},
		{3, false, 2},
		{4, false, 4},
		{1, true, 0},
		{2, true, 2},
		{4, true, 5},
		{5, false, 0},
	}
	for _, tt := range tests {
		got := For(tt.lines, tt.b2b)
		assert.Equal(t, tt.want, got.LinesSent, "lines=%d b2b=%v", tt.lines, tt.b2b)
		assert.Equal(t, tt.b2b, got.IsBackToBack)
	}
}

func TestGenerateLine(t *testing.T) {
	src := game.NewRandomizer(11)
	for range 100 {
		row := GenerateLine(src)
		empty := 0
		for _, c := range row {
			if c == game.CellEmpty {
				empty++
			} else {
				assert.Equal(t, game.CellGarbage, c)
			}
		}
		require.Equal(t, 1, empty)
	}
}

func TestApply(t *testing.T) {
	src := rand.New(rand.NewPCG(1, 2))

	var empty game.Board
	b := Apply(empty, 2, src)
	assert.Len(t, b, game.TotalRows)
	assert.Equal(t, game.BoardWidth-1, b.FilledIn(19))
	assert.Equal(t, game.BoardWidth-1, b.FilledIn(18))
	assert.Equal(t, 0, b.FilledIn(17))
	assert.Equal(t, game.Board{}, empty)

	assert.Equal(t, b, Apply(b, 0, src))

	// Existing cells move up.
	locked := game.Lock(game.Board{}, game.Piece{Type: game.PieceO, Pos: game.Point{X: 0, Y: 18}})
	pushed := Apply(locked, 3, src)
	assert.Equal(t, game.CellOf(game.PieceO), pushed.At(0, 15))
	assert.Equal(t, game.CellOf(game.PieceO), pushed.At(1, 16))
	assert.Equal(t, game.CellEmpty, pushed.At(0, 14))
	assert.Equal(t, game.BoardWidth-1, pushed.FilledIn(17))

	full := Apply(locked, 100, src)
	for y := -game.BufferRows; y < game.BoardHeight; y++ {
		assert.Equal(t, game.BoardWidth-1, full.FilledIn(y))
	}
}

func TestCancelAndNet(t *testing.T) {
	assert.Equal(t, 2, Cancel(5, 3))
	assert.Equal(t, 0, Cancel(2, 3))

	sent, remaining := Net(4, 1)
	assert.Equal(t, 3, sent)
	assert.Equal(t, 0, remaining)

	sent, remaining = Net(1, 4)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 3, remaining)

	sent, remaining = Net(2, 2)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 0, remaining)
}

func TestNetCancelsBothWays(t *testing.T) {
	tests := []struct {
		toSend, pending int
		sent, remaining int
	}{
		{toSend: 0, pending: 0},
		{toSend: 5, pending: 0, sent: 5},
		{toSend: 0, pending: 5, remaining: 5},
		{toSend: 4, pending: 3, sent: 1},
		{toSend: 2, pending: 6, remaining: 4},
	}
	for _, tt := range tests {
		sent, remaining := Net(tt.toSend, tt.pending)
		assert.Equal(t, tt.sent, sent, "sent for %d vs %d", tt.toSend, tt.pending)
		assert.Equal(t, tt.remaining, remaining, "remaining for %d vs %d", tt.toSend, tt.pending)
		assert.Equal(t, Cancel(tt.pending, tt.toSend), remaining)
	}

	var in Inbox
	in.Receive(6)
	assert.Equal(t, 0, in.Resolve(2))
	assert.Equal(t, Cancel(6, 2), in.Pending)
}

func TestInbox(t *testing.T) {
	var in Inbox
	in.Receive(3)
	in.Receive(0)
	in.Receive(-2)
	assert.Equal(t, 3, in.Pending)

	assert.Equal(t, 0, in.Resolve(1))
	assert.Equal(t, 2, in.Pending)

	assert.Equal(t, 2, in.Resolve(4))
	assert.Equal(t, 0, in.Pending)

	in.Receive(2)
	b := in.Flush(game.Board{}, game.NewRandomizer(1))
	assert.Equal(t, 0, in.Pending)
	assert.Equal(t, game.BoardWidth-1, b.FilledIn(19))
	assert.Equal(t, game.BoardWidth-1, b.FilledIn(18))

	assert.Equal(t, b, in.Flush(b, game.NewRandomizer(1)))
}
