package room

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hersh/stackrush/internal/protocol"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newRoom(t *testing.T, ids ...string) *Room {
	t.Helper()
	r := New("ABC123",
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithClock(func() time.Time { return testNow }),
	)
	for _, id := range ids {
		_, err := r.Join(id, "name-"+id)
		require.NoError(t, err)
	}
	return r
}

// startMatch readies everyone and runs the countdown to the first frame of
// play.
func startMatch(t *testing.T, r *Room) protocol.GameStart {
	t.Helper()
	for _, p := range r.lobby.GetAllPlayers() {
		_, err := r.SetReady(p.ID, true)
		require.NoError(t, err)
	}
	_, err := r.Start(r.HostID())
	require.NoError(t, err)

	var out []Output
	for r.Phase == PhaseCountdown {
		out = r.CountdownTick()
	}
	require.Equal(t, PhasePlaying, r.Phase)
	gs, ok := find[protocol.GameStart](out)
	require.True(t, ok)
	return gs
}

func find[T protocol.Outbound](out []Output) (T, bool) {
	for _, o := range out {
		if m, ok := o.Msg.(T); ok {
			return m, true
		}
	}
	var zero T
	return zero, false
}

func kinds(out []Output) []protocol.MessageType {
	var ks []protocol.MessageType
	for _, o := range out {
		ks = append(ks, o.Msg.Kind())
	}
	return ks
}

func TestJoin(t *testing.T) {
	r := newRoom(t, "p1")
	out, err := r.Join("p2", "bob")
	require.NoError(t, err)
	require.Len(t, out, 2)

	joined, ok := out[0].Msg.(protocol.PlayerJoined)
	require.True(t, ok)
	assert.Equal(t, "", out[0].To)
	assert.Equal(t, "p2", joined.Player.ID)
	assert.Equal(t, "green", joined.Player.Color)
	assert.False(t, joined.Player.IsHost)

	state, ok := out[1].Msg.(protocol.RoomState)
	require.True(t, ok)
	assert.Equal(t, "p2", out[1].To)
	assert.Equal(t, "p1", state.HostID)
	assert.Len(t, state.Players, 2)
	assert.Nil(t, state.Countdown)

	_, err = r.Join("p3", "")
	require.NoError(t, err)
	assert.Equal(t, "Player 3", r.Player("p3").Name)
}

func TestJoinErrors(t *testing.T) {
	r := newRoom(t, "p1", "p2", "p3", "p4")

	out, err := r.Join("p5", "late")
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.Empty(t, out)
	assert.Equal(t, 4, r.PlayerCount())

	_, err = r.Join("p1", "again")
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	r = newRoom(t, "p1", "p2")
	startMatch(t, r)
	_, err = r.Join("p3", "late")
	assert.ErrorIs(t, err, ErrGameInProgress)
	assert.Equal(t, 2, r.PlayerCount())

	var roomErr *Error
	require.ErrorAs(t, err, &roomErr)
	assert.Equal(t, protocol.CodeGameInProgress, roomErr.Msg().Code)
}

func TestStartErrors(t *testing.T) {
	r := newRoom(t, "p1")
	_, err := r.SetReady("p1", true)
	require.NoError(t, err)
	_, err = r.Start("p1")
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	_, err = r.Join("p2", "bob")
	require.NoError(t, err)
	_, err = r.Start("p1")
	assert.ErrorIs(t, err, ErrPlayersNotReady)

	_, err = r.SetReady("p2", true)
	require.NoError(t, err)
	_, err = r.Start("p2")
	assert.ErrorIs(t, err, ErrNotHost)
	assert.Equal(t, PhaseLobby, r.Phase)

	_, err = r.Start("ghost")
	assert.ErrorIs(t, err, ErrNotJoined)

	_, err = r.Start("p1")
	require.NoError(t, err)
	_, err = r.Start("p1")
	assert.ErrorIs(t, err, ErrInvalidPhase)
}

func TestCountdownToGameStart(t *testing.T) {
	r := newRoom(t, "p1", "p2")
	for _, id := range []string{"p1", "p2"} {
		_, err := r.SetReady(id, true)
		require.NoError(t, err)
	}

	out, err := r.Start("p1")
	require.NoError(t, err)
	assert.Equal(t, []Output{{Msg: protocol.Countdown{Seconds: 3}}}, out)
	assert.Equal(t, PhaseCountdown, r.Phase)

	snap := r.Snapshot()
	assert.True(t, snap.IsStarting)
	require.NotNil(t, snap.Countdown)
	assert.Equal(t, 3, *snap.Countdown)

	assert.Equal(t, []Output{{Msg: protocol.Countdown{Seconds: 2}}}, r.CountdownTick())
	assert.Equal(t, []Output{{Msg: protocol.Countdown{Seconds: 1}}}, r.CountdownTick())

	out = r.CountdownTick()
	require.Len(t, out, 1)
	gs, ok := out[0].Msg.(protocol.GameStart)
	require.True(t, ok)
	assert.Equal(t, []string{"p1", "p2"}, gs.PlayerOrder)
	assert.Equal(t, r.Seed(), gs.Seed)
	assert.Equal(t, PhasePlaying, r.Phase)

	for _, id := range []string{"p1", "p2"} {
		st := r.State(id)
		require.NotNil(t, st)
		assert.Equal(t, 0, st.Score)
		assert.Equal(t, 0, st.PendingGarbage)
		assert.False(t, st.Eliminated)
	}
	assert.Nil(t, r.CountdownTick())
}

func TestCountdownCancel(t *testing.T) {
	t.Run("unready", func(t *testing.T) {
		r := newRoom(t, "p1", "p2")
		r.SetReady("p1", true)
		r.SetReady("p2", true)
		_, err := r.Start("p1")
		require.NoError(t, err)

		out, err := r.SetReady("p2", false)
		require.NoError(t, err)
		assert.Equal(t, []protocol.MessageType{protocol.MsgPlayerReady, protocol.MsgRoomState}, kinds(out))
		assert.Equal(t, PhaseLobby, r.Phase)
		assert.Nil(t, r.CountdownTick())
	})

	t.Run("leave", func(t *testing.T) {
		r := newRoom(t, "p1", "p2", "p3")
		for _, id := range []string{"p1", "p2", "p3"} {
			r.SetReady(id, true)
		}
		_, err := r.Start("p1")
		require.NoError(t, err)

		out := r.Leave("p1")
		assert.Equal(t, []protocol.MessageType{
			protocol.MsgPlayerLeft, protocol.MsgHostChanged, protocol.MsgRoomState,
		}, kinds(out))
		assert.Equal(t, PhaseLobby, r.Phase)
		assert.Equal(t, "p2", r.HostID())
	})
}

func TestEliminationOrder(t *testing.T) {
	r := newRoom(t, "p1", "p2", "p3", "p4")
	startMatch(t, r)

	for i, id := range []string{"p4", "p3", "p2"} {
		out := r.ReportEliminated(id)
		elim, ok := find[protocol.PlayerEliminated](out)
		require.True(t, ok)
		assert.Equal(t, id, elim.PlayerID)
		assert.Equal(t, 4-i, elim.Placement)
		assert.Nil(t, elim.EliminatedBy)

		if id != "p2" {
			assert.Equal(t, PhasePlaying, r.Phase)
			continue
		}
		over, ok := find[protocol.GameOver](out)
		require.True(t, ok)
		assert.Equal(t, "p1", over.WinnerID)
		require.Len(t, over.Standings, 4)
		for j, s := range over.Standings {
			assert.Equal(t, j+1, s.Placement)
		}
		assert.Equal(t, "p1", over.Standings[0].PlayerID)
		assert.Equal(t, "p4", over.Standings[3].PlayerID)
	}
	assert.Equal(t, PhaseGameOver, r.Phase)
	assert.Equal(t, "p1", r.WinnerID())
	assert.Equal(t, 1, r.State("p1").Placement)

	// Nothing changes once the match is over.
	assert.Nil(t, r.ReportEliminated("p1"))
}

func TestGarbageLowestTarget(t *testing.T) {
	r := newRoom(t, "p1", "p2", "p3")
	startMatch(t, r)

	r.UpdateBoard("p1", protocol.BoardUpdate{Score: 900, Lines: 5, Level: 1})
	r.UpdateBoard("p2", protocol.BoardUpdate{Score: 100, Lines: 1, Level: 1})
	r.UpdateBoard("p3", protocol.BoardUpdate{Score: 400, Lines: 3, Level: 1})

	out := r.ReportGarbage("p1", 4, "lowest")
	assert.Equal(t, []Output{{Msg: protocol.GarbageAttack{FromID: "p1", ToID: "p2", Lines: 4}}}, out)

	assert.Equal(t, 4, r.State("p2").PendingGarbage)
	assert.Equal(t, "p1", r.State("p2").LastAttacker)
	assert.Equal(t, 4, r.State("p1").GarbageSent)

	attacks := r.Attacks()
	require.Len(t, attacks, 1)
	assert.Equal(t, "p2", attacks[0].ToID)
	assert.Equal(t, testNow, attacks[0].Timestamp)
	assert.False(t, attacks[0].Consumed)

	// p2 strikes back at whoever hit them last; its own pending is settled.
	out = r.ReportGarbage("p2", 1, "attacker")
	attack, ok := find[protocol.GarbageAttack](out)
	require.True(t, ok)
	assert.Equal(t, "p1", attack.ToID)
	assert.Equal(t, 0, r.State("p2").PendingGarbage)
	assert.True(t, r.Attacks()[0].Consumed)

	// Unknown modes fall back to random among living opponents.
	out = r.ReportGarbage("p3", 2, "everyone")
	attack, ok = find[protocol.GarbageAttack](out)
	require.True(t, ok)
	assert.Contains(t, []string{"p1", "p2"}, attack.ToID)
}

func TestGarbageIgnored(t *testing.T) {
	r := newRoom(t, "p1", "p2")
	assert.Nil(t, r.ReportGarbage("p1", 2, "random"))

	startMatch(t, r)
	assert.Nil(t, r.ReportGarbage("p1", 0, "random"))
	assert.Nil(t, r.ReportGarbage("ghost", 2, "random"))

	r3 := newRoom(t, "p1", "p2", "p3")
	startMatch(t, r3)
	r3.ReportEliminated("p3")
	assert.Nil(t, r3.ReportGarbage("p3", 2, "random"))
	out := r3.ReportGarbage("p1", 2, "random")
	attack, ok := find[protocol.GarbageAttack](out)
	require.True(t, ok)
	assert.Equal(t, "p2", attack.ToID)
}

func TestKnockoutCredit(t *testing.T) {
	r := newRoom(t, "p1", "p2", "p3")
	startMatch(t, r)

	r.ReportGarbage("p1", 4, "badges")
	victim := r.Attacks()[0].ToID

	out := r.ReportEliminated(victim)
	elim, ok := find[protocol.PlayerEliminated](out)
	require.True(t, ok)
	require.NotNil(t, elim.EliminatedBy)
	assert.Equal(t, "p1", *elim.EliminatedBy)
	assert.Equal(t, 1, r.State("p1").Knockouts)
	assert.Equal(t, 3, elim.Placement)
}

func TestBoardUpdate(t *testing.T) {
	r := newRoom(t, "p1", "p2")
	assert.Nil(t, r.UpdateBoard("p1", protocol.BoardUpdate{Score: 5}))

	startMatch(t, r)
	board := [][]string{{"", "I"}}
	out := r.UpdateBoard("p1", protocol.BoardUpdate{Board: board, Score: 300, Lines: 2, Level: 1})
	assert.Equal(t, []Output{{Msg: protocol.PlayerUpdate{
		PlayerID: "p1", Board: board, Score: 300, Lines: 2, Level: 1,
	}}}, out)
	assert.Equal(t, 300, r.State("p1").Score)
}

func TestLeaveDuringPlay(t *testing.T) {
	r := newRoom(t, "p1", "p2", "p3")
	startMatch(t, r)

	out := r.Leave("p1")
	assert.Equal(t, []protocol.MessageType{
		protocol.MsgPlayerEliminated, protocol.MsgPlayerLeft, protocol.MsgHostChanged,
	}, kinds(out))
	assert.Equal(t, 3, r.State("p1").Placement)
	assert.Equal(t, "p2", r.HostID())
	assert.False(t, r.Has("p1"))

	out = r.Leave("p2")
	over, ok := find[protocol.GameOver](out)
	require.True(t, ok)
	assert.Equal(t, "p3", over.WinnerID)
	assert.Len(t, over.Standings, 3)
	assert.Equal(t, "p3", r.HostID())
	assert.Nil(t, r.Leave("p2"))
}

func TestPlayAgain(t *testing.T) {
	r := newRoom(t, "p1", "p2")
	_, err := r.PlayAgain("p1")
	assert.ErrorIs(t, err, ErrInvalidPhase)

	startMatch(t, r)
	r.ReportGarbage("p1", 2, "random")
	r.ReportEliminated("p2")
	require.Equal(t, PhaseGameOver, r.Phase)

	out, err := r.PlayAgain("p2")
	require.NoError(t, err)
	reset, ok := find[protocol.RoomReset](out)
	require.True(t, ok)
	assert.Equal(t, "ABC123", reset.RoomCode)
	assert.Equal(t, "p1", reset.HostID)
	require.Len(t, reset.Players, 2)
	for _, p := range reset.Players {
		assert.False(t, p.IsReady)
	}
	assert.Equal(t, PhaseLobby, r.Phase)
	assert.Empty(t, r.Attacks())
	assert.Nil(t, r.State("p1"))

	gs := startMatch(t, r)
	assert.Equal(t, []string{"p1", "p2"}, gs.PlayerOrder)
}

func TestDisconnect(t *testing.T) {
	t.Run("lobby removes", func(t *testing.T) {
		r := newRoom(t, "p1", "p2")
		out, grace := r.Disconnect("p1")
		assert.False(t, grace)
		assert.Equal(t, []protocol.MessageType{protocol.MsgPlayerLeft, protocol.MsgHostChanged}, kinds(out))
		assert.False(t, r.Has("p1"))
	})

	t.Run("reconnect within grace", func(t *testing.T) {
		r := newRoom(t, "p1", "p2")
		startMatch(t, r)

		out, grace := r.Disconnect("p2")
		assert.True(t, grace)
		assert.Equal(t, []Output{{Msg: protocol.PlayerDisconnected{PlayerID: "p2"}}}, out)
		assert.False(t, r.Player("p2").Connected)

		out = r.Reconnect("p2")
		assert.Equal(t, []Output{{Msg: protocol.PlayerReconnected{PlayerID: "p2"}}}, out)
		assert.Nil(t, r.Reconnect("p2"))

		// A stale expiry after reconnecting does nothing.
		assert.Nil(t, r.DisconnectExpired("p2"))
		assert.Equal(t, PhasePlaying, r.Phase)
	})

	t.Run("grace expires", func(t *testing.T) {
		r := newRoom(t, "p1", "p2", "p3")
		startMatch(t, r)
		r.Disconnect("p3")

		out := r.DisconnectExpired("p3")
		elim, ok := find[protocol.PlayerEliminated](out)
		require.True(t, ok)
		assert.Equal(t, 3, elim.Placement)
		assert.Nil(t, elim.EliminatedBy)
		assert.False(t, r.Has("p3"))
		assert.Equal(t, PhasePlaying, r.Phase)
	})
}
