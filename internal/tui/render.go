package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hersh/stackrush/internal/game"
	"github.com/hersh/stackrush/internal/netclient"
	"github.com/hersh/stackrush/internal/protocol"
)

var (
	// Indexed by game.Cell: empty, I O T S Z J L, garbage.
	cellColors = []string{"0", "51", "226", "201", "46", "196", "21", "208", "245"}

	playerColors = map[string]string{
		"cyan":   "51",
		"green":  "46",
		"orange": "208",
		"purple": "135",
	}

	boardStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("15"))

	infoStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("15"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("51"))

	readyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))

	notReadyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	alertStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	winnerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

func cellStyle(c game.Cell) lipgloss.Style {
	color := "248"
	if int(c) < len(cellColors) {
		color = cellColors[c]
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// RenderBoard draws the visible rows with the falling piece and its ghost.
func RenderBoard(s *game.Session) string {
	var active, ghost map[game.Point]bool
	var activeCell game.Cell
	if s.Current != nil {
		active = make(map[game.Point]bool)
		for _, c := range s.Current.Cells() {
			active[c] = true
		}
		activeCell = game.CellOf(s.Current.Type)
		if pos, ok := s.Ghost(); ok {
			ghost = make(map[game.Point]bool)
			for _, c := range game.Cells(s.Current.Type, pos, s.Current.Rotation) {
				ghost[c] = true
			}
		}
	}

	var sb strings.Builder
	for y := 0; y < game.BoardHeight; y++ {
		for x := 0; x < game.BoardWidth; x++ {
			pt := game.Point{X: x, Y: y}
			switch cell := s.Board.At(x, y); {
			case active[pt]:
				sb.WriteString(cellStyle(activeCell).Render("██"))
			case cell.Filled():
				sb.WriteString(cellStyle(cell).Render("██"))
			case ghost[pt]:
				sb.WriteString(dimStyle.Render("[]"))
			default:
				sb.WriteString("  ")
			}
		}
		if y < game.BoardHeight-1 {
			sb.WriteString("\n")
		}
	}
	return boardStyle.Render(sb.String())
}

// RenderPiece draws t in its spawn rotation.
func RenderPiece(t game.PieceType) string {
	if !t.Valid() {
		return dimStyle.Render("Empty")
	}
	style := cellStyle(game.CellOf(t))
	shape := game.ShapeOf(t, 0)
	var lines []string
	for _, row := range shape {
		var sb strings.Builder
		empty := true
		for _, filled := range row {
			if filled {
				sb.WriteString(style.Render("██"))
				empty = false
			} else {
				sb.WriteString("  ")
			}
		}
		if !empty {
			lines = append(lines, sb.String())
		}
	}
	return strings.Join(lines, "\n")
}

// RenderInfo is the side panel: stats, hold, next queue and garbage.
func RenderInfo(name string, p *Play, networked bool) string {
	s := p.Session()
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("STACKRUSH") + "\n\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Player: %s", name)) + "\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Score: %d", s.Score)) + "\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Level: %d", s.Level)) + "\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Lines: %d", s.Lines)) + "\n\n")

	sb.WriteString(titleStyle.Render("HOLD") + "\n")
	sb.WriteString(RenderPiece(s.Held) + "\n\n")

	sb.WriteString(titleStyle.Render("NEXT") + "\n")
	for _, t := range s.Next(3) {
		sb.WriteString(RenderPiece(t) + "\n")
	}

	if p.LastClear.Lines == 4 {
		label := "TETRIS!"
		if p.LastClear.BackToBack {
			label = "BACK-TO-BACK TETRIS!"
		}
		sb.WriteString("\n" + winnerStyle.Render(label) + "\n")
	}

	if networked {
		sb.WriteString("\n" + infoStyle.Render(fmt.Sprintf("Target: %s", p.Target)) + "\n")
		sb.WriteString(infoStyle.Render(fmt.Sprintf("Sent: %d", p.Sent)) + "\n")
		if n := p.Pending(); n > 0 {
			sb.WriteString(alertStyle.Render(fmt.Sprintf("INCOMING: %d", n)) + "\n")
		}
	}
	if p.Paused() {
		sb.WriteString("\n" + alertStyle.Render("PAUSED") + "\n")
	}
	return sb.String()
}

func nameStyle(color string) lipgloss.Style {
	c, ok := playerColors[color]
	if !ok {
		c = "15"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
}

func RenderLobby(v netclient.RoomView) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("=== LOBBY ===") + "\n\n")
	sb.WriteString(infoStyle.Render("Room code: "+v.RoomCode) + "\n\n")

	for _, p := range v.Players {
		status := notReadyStyle.Render("[ ]")
		if p.IsReady {
			status = readyStyle.Render("[✓]")
		}
		line := fmt.Sprintf("%s %s", status, nameStyle(p.Color).Render(p.Name))
		if p.IsHost {
			line += " (host)"
		}
		if !p.IsConnected {
			line += dimStyle.Render(" (away)")
		}
		if p.ID == v.SelfID {
			line += " <"
		}
		sb.WriteString(line + "\n")
	}

	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("SPACE toggle ready") + "\n")
	if v.IsHost() {
		hint := "ENTER start (everyone ready, 2+ players)"
		if v.CanStart() {
			hint = readyStyle.Render("ENTER start")
		}
		sb.WriteString(infoStyle.Render(hint) + "\n")
	}
	sb.WriteString(infoStyle.Render("ESC leave   Q quit") + "\n")
	return sb.String()
}

func RenderCountdown(count int) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("51")).
		Align(lipgloss.Center).
		Render(fmt.Sprintf("\n\n\n     %d     \n\n\n", count))
}

// RenderStandings is the end-of-match table.
func RenderStandings(v netclient.RoomView) string {
	names := make(map[string]protocol.NetworkPlayer)
	for _, p := range v.Players {
		names[p.ID] = p
	}

	var sb strings.Builder
	if v.WinnerID == v.SelfID {
		sb.WriteString(winnerStyle.Render("WINNER!") + "\n\n")
	} else {
		sb.WriteString(alertStyle.Render("GAME OVER") + "\n\n")
	}
	for _, st := range v.Standings {
		name := "(left)"
		style := dimStyle
		if p, ok := names[st.PlayerID]; ok {
			name, style = p.Name, nameStyle(p.Color)
		}
		line := fmt.Sprintf("#%d  %-12s %7d pts  %3d lines", st.Placement, style.Render(name), st.Score, st.Lines)
		if st.PlayerID == v.SelfID {
			line += " <"
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func RenderSingleGameOver(score int) string {
	return alertStyle.
		Align(lipgloss.Center).
		Render(fmt.Sprintf("\n\n\n     GAME OVER     \n     Score: %d     \n\n\n", score))
}

// RenderOpponentPreview renders the bottom half of an opponent's board.
func RenderOpponentPreview(op netclient.Opponent) string {
	const previewHeight = 10
	var sb strings.Builder

	sb.WriteString(nameStyle(op.Color).MaxWidth(game.BoardWidth).Render(op.Name) + "\n")
	board := game.BoardFromRows(op.Board)
	for y := game.BoardHeight - previewHeight; y < game.BoardHeight; y++ {
		for x := 0; x < game.BoardWidth; x++ {
			c := board.At(x, y)
			switch {
			case op.Eliminated:
				sb.WriteString(dimStyle.Render("·"))
			case c.Filled():
				sb.WriteString(cellStyle(c).Render("█"))
			default:
				sb.WriteString("·")
			}
		}
		sb.WriteString("\n")
	}

	switch {
	case op.Eliminated:
		sb.WriteString(alertStyle.Render(fmt.Sprintf("OUT #%d", op.Placement)))
	case !op.Connected:
		sb.WriteString(dimStyle.Render("away"))
	default:
		sb.WriteString(infoStyle.Render(fmt.Sprintf("S:%d L:%d", op.Score, op.Lines)))
	}
	return sb.String()
}

func RenderOpponents(ops []netclient.Opponent) string {
	if len(ops) == 0 {
		return ""
	}
	previews := make([]string, len(ops))
	for i, op := range ops {
		previews[i] = lipgloss.NewStyle().Padding(0, 1).Render(RenderOpponentPreview(op))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, previews...)
}

func RenderWelcome(networked bool) string {
	menu := "   [1] Single Player (Practice)\n"
	if networked {
		menu += "   [2] Multiplayer (join room)\n"
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("51")).
		Align(lipgloss.Center).
		Render(`
╔══════════════════════════════╗
║       S T A C K R U S H      ║
║   Falling blocks, 4 players  ║
╚══════════════════════════════╝

` + menu + `
   Press Q to quit
`)
}

func RenderControls(networked bool) string {
	extra := "  P      Pause\n"
	if networked {
		extra = "  T      Cycle target\n"
	}
	return infoStyle.Render(`
Controls:
  ← →    Move left/right
  ↓      Soft drop
  Space  Hard drop
  ↑/X    Rotate clockwise
  Z      Rotate counter-clockwise
  C      Hold piece
` + extra)
}
