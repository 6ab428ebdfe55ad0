// Package tui is the bubbletea front end for solo practice and networked
// matches.
package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hersh/stackrush/internal/game"
	"github.com/hersh/stackrush/internal/netclient"
	"github.com/hersh/stackrush/internal/protocol"
)

// The game loop runs at a fixed rate; the controller works out how many
// gravity steps each frame owes.
const frameInterval = 16 * time.Millisecond

type TickMsg time.Time

type Screen int

const (
	ScreenConnecting Screen = iota
	ScreenWelcome
	ScreenLobby
	ScreenCountdown
	ScreenPlaying
	ScreenGameOver
)

// Conn is the server connection. *netclient.Client satisfies it.
type Conn interface {
	Outbox
	Close()
}

var keyActions = map[string]game.Action{
	"left":  game.ActionLeft,
	"h":     game.ActionLeft,
	"right": game.ActionRight,
	"l":     game.ActionRight,
	"down":  game.ActionSoftDrop,
	"j":     game.ActionSoftDrop,
	" ":     game.ActionHardDrop,
	"up":    game.ActionRotateCW,
	"x":     game.ActionRotateCW,
	"z":     game.ActionRotateCCW,
	"c":     game.ActionHold,
}

type Model struct {
	screen     Screen
	playerName string
	width      int
	height     int

	conn Conn
	view netclient.RoomView

	play      *Play
	networked bool
	ticking   bool
	joining   bool

	status       string
	disconnected bool
	err          error

	now func() time.Time
}

// NewModel creates the client model. With a nil conn only solo play is
// offered.
func NewModel(playerName string, conn Conn) Model {
	screen := ScreenConnecting
	if conn == nil {
		screen = ScreenWelcome
	}
	return Model{
		screen:     screen,
		playerName: playerName,
		conn:       conn,
		view:       netclient.NewRoomView(),
		now:        time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m *Model) startTicking() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return tickCmd()
}

// --- Update ---

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case TickMsg:
		return m.handleTick(time.Time(msg))
	case netclient.DisconnectedMsg:
		m.disconnected = true
		m.err = msg.Err
		return m, nil
	case netclient.ReconnectedMsg:
		m.status = "Reconnected"
		return m, nil
	case netclient.ServerMsg:
		return m.handleServerMsg(msg.Msg)
	}
	return m, nil
}

func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	if m.screen != ScreenPlaying || m.play == nil || m.play.Over() || m.play.Paused() {
		m.ticking = false
		m = m.settle()
		return m, nil
	}
	m.play.Advance(now)
	m = m.settle()
	if m.screen != ScreenPlaying || m.play.Over() {
		m.ticking = false
		return m, nil
	}
	return m, tickCmd()
}

// settle moves a finished solo game to its end screen. A networked player
// who tops out waits for the server's gameOver.
func (m Model) settle() Model {
	if !m.networked && m.play != nil && m.play.Over() && m.screen == ScreenPlaying {
		m.screen = ScreenGameOver
	}
	return m
}

func (m Model) handleServerMsg(msg protocol.Outbound) (tea.Model, tea.Cmd) {
	m.view = m.view.Apply(msg)

	switch msg := msg.(type) {
	case *protocol.Welcome:
		if m.screen == ScreenConnecting {
			m.screen = ScreenWelcome
		}
	case *protocol.PlayerJoined:
		m.seated()
	case *protocol.RoomState:
		m.seated()
		if m.screen == ScreenCountdown && m.view.Phase == netclient.PhaseLobby {
			m.screen = ScreenLobby
		}
	case *protocol.Countdown:
		m.screen = ScreenCountdown
		m.status = ""
	case *protocol.GameStart:
		m.play = NewPlay(msg.Seed, m.now(), m.conn)
		m.networked = true
		m.screen = ScreenPlaying
		cmd := m.startTicking()
		return m, cmd
	case *protocol.GarbageAttack:
		if m.play != nil && m.view.PendingGarbage > 0 {
			m.play.Receive(m.view.PendingGarbage)
			m.view = m.view.ClearGarbage()
		}
	case *protocol.GameOver:
		m.screen = ScreenGameOver
	case *protocol.RoomReset:
		m.play = nil
		m.screen = ScreenLobby
	case *protocol.Error:
		m.joining = false
		m.status = fmt.Sprintf("%s: %s", msg.Code, msg.Message)
	}
	return m, nil
}

// seated moves from the welcome screen to the lobby once the roster holds
// this player, either after a join or when a resumed seat is restored.
func (m *Model) seated() {
	if m.screen != ScreenWelcome || !m.view.Joined() {
		return
	}
	m.joining = false
	m.screen = ScreenLobby
	m.status = ""
}

// --- Keys ---

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.quit()
	case "q":
		if m.screen != ScreenPlaying {
			return m.quit()
		}
	}

	switch m.screen {
	case ScreenWelcome:
		return m.handleWelcomeKeys(msg)
	case ScreenLobby:
		return m.handleLobbyKeys(msg)
	case ScreenPlaying:
		return m.handlePlayingKeys(msg)
	case ScreenGameOver:
		return m.handleGameOverKeys(msg)
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.conn != nil {
		m.conn.Close()
	}
	return m, tea.Quit
}

func (m Model) handleWelcomeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "1", "s":
		m.play = NewPlay(game.RandomSeed(), m.now(), nil)
		m.networked = false
		m.screen = ScreenPlaying
		cmd := m.startTicking()
		return m, cmd
	case "2", "enter":
		if m.conn == nil {
			return m, nil
		}
		if m.joining {
			return m, nil
		}
		m.conn.Send(protocol.Join{PlayerName: m.playerName})
		m.joining = true
		m.status = "Joining..."
	}
	return m, nil
}

func (m Model) handleLobbyKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ":
		self, ok := m.view.Self()
		if !ok {
			return m, nil
		}
		m.conn.Send(protocol.Ready{IsReady: !self.IsReady})
	case "enter":
		if m.view.IsHost() {
			m.conn.Send(protocol.Start{})
		}
	case "esc":
		m.conn.Send(protocol.Leave{})
		m.view = m.view.Apply(&protocol.PlayerLeft{PlayerID: m.view.SelfID})
		m.screen = ScreenWelcome
		m.status = ""
	}
	return m, nil
}

func (m Model) handlePlayingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.play == nil || m.play.Over() {
		return m, nil
	}
	now := m.now()
	switch key := msg.String(); key {
	case "p":
		m.play.TogglePause(now)
		if !m.play.Paused() {
			cmd := m.startTicking()
			return m, cmd
		}
		return m, nil
	case "t":
		if m.networked {
			m.play.CycleTarget()
		}
		return m, nil
	default:
		if a, ok := keyActions[key]; ok {
			m.play.Apply(a, now)
		}
	}
	return m.settle(), nil
}

func (m Model) handleGameOverKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() != "enter" {
		return m, nil
	}
	if !m.networked {
		m.screen = ScreenWelcome
		m.play = nil
		return m, nil
	}
	m.conn.Send(protocol.PlayAgain{})
	return m, nil
}

// --- View ---

func (m Model) View() string {
	if m.disconnected {
		content := "Disconnected from server."
		if m.view.Token != "" {
			content += fmt.Sprintf("\n\nResume your seat with:\n-room %s -token %s", m.view.RoomCode, m.view.Token)
		}
		return m.renderCentered(content + "\nPress Ctrl+C to exit.")
	}

	var content string
	switch m.screen {
	case ScreenConnecting:
		content = "Connecting to server..."
	case ScreenWelcome:
		content = RenderWelcome(m.conn != nil)
	case ScreenLobby:
		content = RenderLobby(m.view)
	case ScreenCountdown:
		content = RenderCountdown(m.view.Countdown)
	case ScreenPlaying:
		return m.renderPlaying()
	case ScreenGameOver:
		content = m.gameOverContent()
	}
	if m.status != "" {
		content += "\n" + alertStyle.Render(m.status)
	}
	return m.renderCentered(content)
}

func (m Model) renderCentered(content string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func (m Model) renderPlaying() string {
	if m.play == nil {
		return "Loading..."
	}

	left := lipgloss.NewStyle().
		Width(26).
		Render(RenderInfo(m.playerName, m.play, m.networked) + RenderControls(m.networked))
	center := lipgloss.NewStyle().
		Padding(1, 2).
		Render(RenderBoard(m.play.Session()))
	panels := []string{left, center}

	if m.networked {
		if ops := RenderOpponents(m.view.OpponentsInOrder()); ops != "" {
			panels = append(panels, lipgloss.NewStyle().Padding(1, 2).Render(ops))
		}
	}
	content := lipgloss.JoinHorizontal(lipgloss.Top, panels...)
	if m.networked && m.play.Over() {
		content += "\n" + alertStyle.Render(fmt.Sprintf("ELIMINATED #%d - waiting for the match to end", m.view.SelfPlacement))
	}
	return m.renderCentered(content)
}

func (m Model) gameOverContent() string {
	if !m.networked {
		score := 0
		if m.play != nil {
			score = m.play.Session().Score
		}
		return RenderSingleGameOver(score) + "\n\nPress ENTER to continue"
	}
	return RenderStandings(m.view) + "\n\nPress ENTER to play again"
}
