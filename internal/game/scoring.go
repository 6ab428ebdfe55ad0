package game

import "time"

type ScoreKind int

const (
	ScoreSoftDrop ScoreKind = iota
	ScoreHardDrop
	ScoreLineClear
)

// ScoreEvent is something that awards points. Count is cells dropped for
// the drop kinds and lines cleared for ScoreLineClear.
type ScoreEvent struct {
	Kind  ScoreKind
	Count int
}

const (
	SoftDropPointsPerCell = 1
	HardDropPointsPerCell = 2
	LinesPerLevel         = 10
)

var lineClearPoints = map[int]int{
	1: 100,
	2: 300,
	3: 500,
	4: 800,
}

// Points returns the score for ev. Only line clears scale with level.
func Points(ev ScoreEvent, level int) int {
	switch ev.Kind {
	case ScoreSoftDrop:
		return ev.Count * SoftDropPointsPerCell
	case ScoreHardDrop:
		return ev.Count * HardDropPointsPerCell
	case ScoreLineClear:
		return lineClearPoints[ev.Count] * level
	}
	return 0
}

// LevelFor maps total cleared lines to a level, starting at 1.
func LevelFor(lines int) int {
	return lines/LinesPerLevel + 1
}

var fallIntervals = []time.Duration{
	1000 * time.Millisecond,
	900 * time.Millisecond,
	800 * time.Millisecond,
	700 * time.Millisecond,
	600 * time.Millisecond,
	500 * time.Millisecond,
	450 * time.Millisecond,
	400 * time.Millisecond,
	350 * time.Millisecond,
	300 * time.Millisecond,
	250 * time.Millisecond,
	200 * time.Millisecond,
	150 * time.Millisecond,
	100 * time.Millisecond,
	80 * time.Millisecond,
	60 * time.Millisecond,
	50 * time.Millisecond,
	40 * time.Millisecond,
	30 * time.Millisecond,
	20 * time.Millisecond,
}

// FallInterval is the gravity period for a level. Levels below 1 use the
// level-1 speed and everything from 20 up uses the floor.
func FallInterval(level int) time.Duration {
	if level < 1 {
		level = 1
	}
	if level > len(fallIntervals) {
		return fallIntervals[len(fallIntervals)-1]
	}
	return fallIntervals[level-1]
}
