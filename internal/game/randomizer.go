package game

import (
	"fmt"
	"math/rand/v2"
)

// MinLookahead is the number of upcoming pieces a Queue always holds.
const MinLookahead = 7

// Queue is the ordered list of upcoming piece types. Treat it as a value:
// Draw never modifies the queue it is given.
type Queue []PieceType

// Peek returns up to n upcoming types without consuming them.
func (q Queue) Peek(n int) []PieceType {
	n = min(n, len(q))
	out := make([]PieceType, n)
	copy(out, q[:n])
	return out
}

// Randomizer produces pieces using the 7-bag system. Two randomizers created
// with the same seed produce identical sequences.
type Randomizer struct {
	rng *rand.Rand
}

// NewRandomizer creates a seeded 7-bag randomizer.
func NewRandomizer(seed int64) *Randomizer {
	return &Randomizer{
		rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)),
	}
}

// RandomSeed returns a seed suitable for NewRandomizer.
func RandomSeed() int64 {
	return rand.Int64N(1 << 53)
}

// IntN exposes the underlying stream, so a Randomizer can serve as the
// source for anything else that needs seeded randomness.
func (r *Randomizer) IntN(n int) int {
	return r.rng.IntN(n)
}

// GenerateBag returns a shuffled permutation of all seven types.
func (r *Randomizer) GenerateBag() []PieceType {
	bag := make([]PieceType, len(AllPieces))
	copy(bag, AllPieces[:])
	// Fisher-Yates shuffle
	for i := len(bag) - 1; i > 0; i-- {
		j := r.rng.IntN(i + 1)
		bag[i], bag[j] = bag[j], bag[i]
	}
	return bag
}

// NewQueue starts a queue with two bags materialised for look-ahead.
func (r *Randomizer) NewQueue() Queue {
	q := make(Queue, 0, 2*len(AllPieces))
	q = append(q, r.GenerateBag()...)
	return append(q, r.GenerateBag()...)
}

// Draw takes the head of q and returns it with the remaining queue, topped
// up with a fresh bag whenever fewer than MinLookahead pieces would remain.
// A queue shorter than MinLookahead breaks the caller's contract.
func (r *Randomizer) Draw(q Queue) (PieceType, Queue) {
	if len(q) < MinLookahead {
		panic(fmt.Sprintf("game: draw from queue of %d pieces, need %d", len(q), MinLookahead))
	}
	rest := make(Queue, len(q)-1, len(q)-1+len(AllPieces))
	copy(rest, q[1:])
	if len(rest) < MinLookahead {
		rest = append(rest, r.GenerateBag()...)
	}
	return q[0], rest
}
