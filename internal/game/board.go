package game

const (
	BoardWidth  = 10
	BoardHeight = 20 // visible rows
	BufferRows  = 2  // hidden rows above the visible area
	TotalRows   = BoardHeight + BufferRows
)

// Cell is the content of one board square. Values 1..7 mirror PieceType.
type Cell uint8

const (
	CellEmpty   Cell = 0
	CellGarbage Cell = 8
)

func CellOf(t PieceType) Cell { return Cell(t) }

func (c Cell) Filled() bool { return c != CellEmpty }

func (c Cell) String() string {
	switch {
	case c == CellGarbage:
		return "G"
	case c == CellEmpty:
		return ""
	default:
		return PieceType(c).String()
	}
}

// ParseCell accepts "I".."L", "G" and "" (empty). Anything else is empty.
func ParseCell(s string) Cell {
	if s == "G" {
		return CellGarbage
	}
	if t, ok := ParsePieceType(s); ok {
		return CellOf(t)
	}
	return CellEmpty
}

type Row [BoardWidth]Cell

// Board is the playfield as a fixed value grid, so assignment copies it and
// every transform below returns a fresh board. Row y is stored at index
// y+BufferRows: y=-2 and y=-1 are the hidden buffer, y=0..19 are visible.
type Board [TotalRows]Row

// At returns the cell at (x, y). Out-of-range coordinates read as empty.
func (b Board) At(x, y int) Cell {
	if x < 0 || x >= BoardWidth || y < -BufferRows || y >= BoardHeight {
		return CellEmpty
	}
	return b[y+BufferRows][x]
}

// RowAt returns row y (signed coordinate).
func (b Board) RowAt(y int) Row {
	return b[y+BufferRows]
}

// FilledIn counts filled cells in row y.
func (b Board) FilledIn(y int) int {
	n := 0
	for _, c := range b.RowAt(y) {
		if c.Filled() {
			n++
		}
	}
	return n
}

// CanPlace reports whether every cell of t at pos/r lies within the side
// walls and above the floor, and lands on an empty square. Buffer rows are
// valid targets; cells above the buffer never collide.
func CanPlace(b Board, t PieceType, pos Point, r Rotation) bool {
	for _, c := range Cells(t, pos, r) {
		if c.X < 0 || c.X >= BoardWidth || c.Y >= BoardHeight {
			return false
		}
		if c.Y >= -BufferRows && b[c.Y+BufferRows][c.X].Filled() {
			return false
		}
	}
	return true
}

// Lock stamps p into a copy of b.
func Lock(b Board, p Piece) Board {
	for _, c := range p.Cells() {
		if c.X >= 0 && c.X < BoardWidth && c.Y >= -BufferRows && c.Y < BoardHeight {
			b[c.Y+BufferRows][c.X] = CellOf(p.Type)
		}
	}
	return b
}

// CompletedLines returns the y coordinates of full rows, top to bottom.
func CompletedLines(b Board) []int {
	var lines []int
	for i, row := range b {
		full := true
		for _, c := range row {
			if !c.Filled() {
				full = false
				break
			}
		}
		if full {
			lines = append(lines, i-BufferRows)
		}
	}
	return lines
}

// ClearLines removes the given rows and drops everything above them,
// filling the top with empty rows.
func ClearLines(b Board, lines []int) Board {
	if len(lines) == 0 {
		return b
	}
	remove := make(map[int]bool, len(lines))
	for _, y := range lines {
		remove[y+BufferRows] = true
	}

	var out Board
	dst := TotalRows - 1
	for src := TotalRows - 1; src >= 0; src-- {
		if remove[src] {
			continue
		}
		out[dst] = b[src]
		dst--
	}
	return out
}

// GhostPosition returns where the piece lands if dropped straight down.
func GhostPosition(b Board, t PieceType, pos Point, r Rotation) Point {
	ghost := pos
	for CanPlace(b, t, Point{X: ghost.X, Y: ghost.Y + 1}, r) {
		ghost.Y++
	}
	return ghost
}

// IsTopOut reports whether a fresh piece of type t already collides at its
// spawn position.
func IsTopOut(b Board, t PieceType) bool {
	return !CanPlace(b, t, SpawnPosition(t), 0)
}

// IsLockedAboveVisible reports a lock-out: some cell of p sits in the
// hidden buffer (or higher).
func IsLockedAboveVisible(p Piece) bool {
	for _, c := range p.Cells() {
		if c.Y < 0 {
			return true
		}
	}
	return false
}

// Rows renders the board as letters for the wire, "" meaning empty.
func (b Board) Rows() [][]string {
	rows := make([][]string, TotalRows)
	for i, row := range b {
		rows[i] = make([]string, BoardWidth)
		for x, c := range row {
			rows[i][x] = c.String()
		}
	}
	return rows
}

// BoardFromRows rebuilds a board from its wire form. A 20-row grid is taken
// as the visible area only; anything else is aligned to the floor and
// truncated to fit.
func BoardFromRows(rows [][]string) Board {
	var b Board
	offset := TotalRows - len(rows)
	for i, row := range rows {
		dst := i + offset
		if dst < 0 || dst >= TotalRows {
			continue
		}
		for x := 0; x < BoardWidth && x < len(row); x++ {
			b[dst][x] = ParseCell(row[x])
		}
	}
	return b
}
