// Package targeting picks which opponent receives an attack.
package targeting

type Mode string

const (
	ModeRandom   Mode = "random"
	ModeBadges   Mode = "badges"
	ModeLowest   Mode = "lowest"
	ModeAttacker Mode = "attacker"
)

// ParseMode maps a wire string to a Mode. Unknown strings fall back to
// random.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeRandom, ModeBadges, ModeLowest, ModeAttacker:
		return Mode(s)
	default:
		return ModeRandom
	}
}

// Candidate is the per-player state target selection looks at.
type Candidate struct {
	ID         string
	Score      int
	Knockouts  int
	Eliminated bool
}

// Source picks a uniform index in [0, n).
type Source interface {
	IntN(n int) int
}

// Valid returns the living candidates other than attacker, in order.
func Valid(attacker string, candidates []Candidate) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if c.ID != attacker && !c.Eliminated {
			out = append(out, c)
		}
	}
	return out
}

// Select chooses a target for attacker. lastAttacker is the opponent that
// most recently attacked them, "" if none. It returns false when no living
// opponent remains.
func Select(mode Mode, attacker string, candidates []Candidate, lastAttacker string, src Source) (string, bool) {
	valid := Valid(attacker, candidates)
	if len(valid) == 0 {
		return "", false
	}

	switch mode {
	case ModeBadges:
		best := valid[0]
		for _, c := range valid[1:] {
			if c.Knockouts > best.Knockouts {
				best = c
			}
		}
		return best.ID, true
	case ModeLowest:
		best := valid[0]
		for _, c := range valid[1:] {
			if c.Score < best.Score {
				best = c
			}
		}
		return best.ID, true
	case ModeAttacker:
		for _, c := range valid {
			if lastAttacker != "" && c.ID == lastAttacker {
				return c.ID, true
			}
		}
		return valid[src.IntN(len(valid))].ID, true
	default: // ModeRandom
		return valid[src.IntN(len(valid))].ID, true
	}
}
