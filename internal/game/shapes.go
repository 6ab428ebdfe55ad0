package game

// PieceType identifies one of the seven tetrominoes. The zero value means
// "no piece" and is used for an empty hold slot.
type PieceType uint8

const (
	PieceNone PieceType = iota
	PieceI
	PieceO
	PieceT
	PieceS
	PieceZ
	PieceJ
	PieceL
)

// AllPieces lists the seven playable types in canonical order.
var AllPieces = [7]PieceType{PieceI, PieceO, PieceT, PieceS, PieceZ, PieceJ, PieceL}

var pieceNames = [...]string{"", "I", "O", "T", "S", "Z", "J", "L"}

func (t PieceType) String() string {
	if int(t) < len(pieceNames) {
		return pieceNames[t]
	}
	return ""
}

// Valid reports whether t is one of the seven playable types.
func (t PieceType) Valid() bool {
	return t >= PieceI && t <= PieceL
}

// ParsePieceType maps "I".."L" back to a PieceType.
func ParsePieceType(s string) (PieceType, bool) {
	for i, name := range pieceNames {
		if i > 0 && name == s {
			return PieceType(i), true
		}
	}
	return PieceNone, false
}

// Rotation is one of the four SRS orientation states, 0 being spawn.
type Rotation uint8

func (r Rotation) CW() Rotation  { return (r + 1) % 4 }
func (r Rotation) CCW() Rotation { return (r + 3) % 4 }

type Point struct {
	X, Y int
}

// Shape is a piece's occupancy grid; Shape[row][col].
type Shape [][]bool

var spawnShapes = map[PieceType]Shape{
	PieceI: {
		{false, false, false, false},
		{true, true, true, true},
		{false, false, false, false},
		{false, false, false, false},
	},
	PieceO: {
		{true, true},
		{true, true},
	},
	PieceT: {
		{false, true, false},
		{true, true, true},
		{false, false, false},
	},
	PieceS: {
		{false, true, true},
		{true, true, false},
		{false, false, false},
	},
	PieceZ: {
		{true, true, false},
		{false, true, true},
		{false, false, false},
	},
	PieceJ: {
		{true, false, false},
		{true, true, true},
		{false, false, false},
	},
	PieceL: {
		{false, false, true},
		{true, true, true},
		{false, false, false},
	},
}

var spawnPositions = map[PieceType]Point{
	PieceI: {X: 3, Y: -1},
	PieceO: {X: 4, Y: 0},
	PieceT: {X: 3, Y: 0},
	PieceS: {X: 3, Y: 0},
	PieceZ: {X: 3, Y: 0},
	PieceJ: {X: 3, Y: 0},
	PieceL: {X: 3, Y: 0},
}

// rotations[type][rotation] is computed once from the spawn shapes.
var rotations [len(pieceNames)][4]Shape

func init() {
	for _, t := range AllPieces {
		s := spawnShapes[t]
		for r := range 4 {
			rotations[t][r] = s
			s = RotateCW(s)
		}
	}
}

// RotateCW returns s turned 90 degrees clockwise (transpose, then reverse
// each row). The input is not modified.
func RotateCW(s Shape) Shape {
	rows := len(s)
	if rows == 0 {
		return Shape{}
	}
	cols := len(s[0])
	rotated := make(Shape, cols)
	for c := range cols {
		rotated[c] = make([]bool, rows)
		for r := range rows {
			rotated[c][rows-1-r] = s[r][c]
		}
	}
	return rotated
}

// RotateCCW is the inverse of RotateCW.
func RotateCCW(s Shape) Shape {
	rows := len(s)
	if rows == 0 {
		return Shape{}
	}
	cols := len(s[0])
	rotated := make(Shape, cols)
	for c := range cols {
		rotated[cols-1-c] = make([]bool, rows)
		for r := range rows {
			rotated[cols-1-c][r] = s[r][c]
		}
	}
	return rotated
}

// ShapeOf returns the precomputed grid for t in rotation r. Callers must not
// modify the result.
func ShapeOf(t PieceType, r Rotation) Shape {
	return rotations[t][r%4]
}

// SpawnPosition is where a fresh piece of type t appears, rotation 0.
func SpawnPosition(t PieceType) Point {
	return spawnPositions[t]
}

// Cells returns the absolute board coordinates a piece would occupy.
func Cells(t PieceType, pos Point, r Rotation) []Point {
	shape := ShapeOf(t, r)
	cells := make([]Point, 0, 4)
	for y, row := range shape {
		for x, filled := range row {
			if filled {
				cells = append(cells, Point{X: pos.X + x, Y: pos.Y + y})
			}
		}
	}
	return cells
}

// Piece is the falling tetromino: a type placed at a position and rotation.
type Piece struct {
	Type     PieceType
	Pos      Point
	Rotation Rotation
}

// NewPiece returns a piece in its spawn transform.
func NewPiece(t PieceType) Piece {
	return Piece{Type: t, Pos: SpawnPosition(t)}
}

func (p Piece) Cells() []Point {
	return Cells(p.Type, p.Pos, p.Rotation)
}

// --- SRS wall kicks ---
//
// Offsets use the board's y-down convention. Every list starts with the
// unshifted attempt.

type kickKey struct {
	from, to Rotation
}

var kicksJLSTZ = map[kickKey][]Point{
	{0, 1}: {{0, 0}, {-1, 0}, {-1, -1}, {0, 2}, {-1, 2}},
	{1, 0}: {{0, 0}, {1, 0}, {1, 1}, {0, -2}, {1, -2}},
	{1, 2}: {{0, 0}, {1, 0}, {1, 1}, {0, -2}, {1, -2}},
	{2, 1}: {{0, 0}, {-1, 0}, {-1, -1}, {0, 2}, {-1, 2}},
	{2, 3}: {{0, 0}, {1, 0}, {1, -1}, {0, 2}, {1, 2}},
	{3, 2}: {{0, 0}, {-1, 0}, {-1, 1}, {0, -2}, {-1, -2}},
	{3, 0}: {{0, 0}, {-1, 0}, {-1, 1}, {0, -2}, {-1, -2}},
	{0, 3}: {{0, 0}, {1, 0}, {1, -1}, {0, 2}, {1, 2}},
}

var kicksI = map[kickKey][]Point{
	{0, 1}: {{0, 0}, {-2, 0}, {1, 0}, {-2, 1}, {1, -2}},
	{1, 0}: {{0, 0}, {2, 0}, {-1, 0}, {2, -1}, {-1, 2}},
	{1, 2}: {{0, 0}, {-1, 0}, {2, 0}, {-1, -2}, {2, 1}},
	{2, 1}: {{0, 0}, {1, 0}, {-2, 0}, {1, 2}, {-2, -1}},
	{2, 3}: {{0, 0}, {2, 0}, {-1, 0}, {2, -1}, {-1, 2}},
	{3, 2}: {{0, 0}, {-2, 0}, {1, 0}, {-2, 1}, {1, -2}},
	{3, 0}: {{0, 0}, {1, 0}, {-2, 0}, {1, 2}, {-2, -1}},
	{0, 3}: {{0, 0}, {-1, 0}, {2, 0}, {-1, -2}, {2, 1}},
}

var noKick = []Point{{0, 0}}

// Kicks returns the ordered offsets to try for a rotation from -> to.
func Kicks(t PieceType, from, to Rotation) []Point {
	var table map[kickKey][]Point
	switch t {
	case PieceO:
		return noKick
	case PieceI:
		table = kicksI
	default:
		table = kicksJLSTZ
	}
	if k, ok := table[kickKey{from, to}]; ok {
		return k
	}
	return noKick
}
