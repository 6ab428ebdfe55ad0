package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, s string) (Inbound, error) {
	t.Helper()
	return DecodeInbound(JSONCodec{}, []byte(s))
}

func TestDecodeValid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Inbound
	}{
		{"join", `{"type":"join","playerName":"ann"}`, Join{PlayerName: "ann"}},
		{"ready", `{"type":"ready","isReady":true}`, Ready{IsReady: true}},
		{"start", `{"type":"start"}`, Start{}},
		{"garbage", `{"type":"garbage","lines":4,"targetMode":"lowest"}`, Garbage{Lines: 4, TargetMode: "lowest"}},
		{"board update", `{"type":"boardUpdate","board":[["I",null,""]],"score":10,"lines":2,"level":3}`,
			BoardUpdate{Board: [][]string{{"I", "", ""}}, Score: 10, Lines: 2, Level: 3}},
		{"board update without level", `{"type":"boardUpdate","board":[],"score":0,"lines":0}`,
			BoardUpdate{Board: [][]string{}, Level: 1}},
		{"eliminated", `{"type":"eliminated"}`, Eliminated{}},
		{"set target", `{"type":"setTarget","mode":"badges"}`, SetTarget{Mode: "badges"}},
		{"leave", `{"type":"leave","extra":1}`, Leave{}},
		{"play again", `{"type":"playAgain"}`, PlayAgain{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeJSON(t, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Kind(), got.Kind())
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
		err  error
	}{
		{"not json", `{"type":`, ErrMalformed},
		{"not an object", `[1,2]`, ErrMalformed},
		{"null", `null`, ErrMalformed},
		{"no type", `{"playerName":"x"}`, ErrMalformed},
		{"type not string", `{"type":3}`, ErrMalformed},
		{"unknown type", `{"type":"teleport"}`, ErrUnknownType},
		{"server type", `{"type":"roomState"}`, ErrUnknownType},
		{"join without name", `{"type":"join"}`, ErrMalformed},
		{"join numeric name", `{"type":"join","playerName":5}`, ErrMalformed},
		{"ready as string", `{"type":"ready","isReady":"yes"}`, ErrMalformed},
		{"garbage without mode", `{"type":"garbage","lines":2}`, ErrMalformed},
		{"garbage lines string", `{"type":"garbage","lines":"2","targetMode":"random"}`, ErrMalformed},
		{"board not array", `{"type":"boardUpdate","board":{},"score":0,"lines":0}`, ErrMalformed},
		{"board without score", `{"type":"boardUpdate","board":[],"lines":0}`, ErrMalformed},
		{"set target without mode", `{"type":"setTarget"}`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeJSON(t, tt.in)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestEncodeFlatFrame(t *testing.T) {
	data, err := Encode(JSONCodec{}, GarbageAttack{FromID: "p1", ToID: "p2", Lines: 4})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"garbageAttack","fromId":"p1","toId":"p2","lines":4}`, string(data))

	data, err = Encode(JSONCodec{}, RoomState{RoomCode: "ABC123", HostID: "p1", Players: []NetworkPlayer{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"roomState","roomCode":"ABC123","hostId":"p1","players":[],"isStarting":false,"countdown":null}`, string(data))

	data, err = Encode(JSONCodec{}, PlayerEliminated{PlayerID: "p3", Placement: 3})
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Nil(t, fields["eliminatedBy"])
	assert.Contains(t, fields, "eliminatedBy")
}

func TestOutboundRoundTrip(t *testing.T) {
	by := "p1"
	three := 3
	messages := []Outbound{
		Welcome{PlayerID: "p1", Token: "tok", RoomCode: "ABC123"},
		RoomState{RoomCode: "ABC123", HostID: "p1", Players: []NetworkPlayer{{ID: "p1", Name: "ann", Color: "cyan", IsHost: true, IsConnected: true}}, IsStarting: true, Countdown: &three},
		GameStart{Seed: 1<<53 - 1, PlayerOrder: []string{"p1", "p2"}},
		PlayerEliminated{PlayerID: "p2", Placement: 2, EliminatedBy: &by},
		PlayerUpdate{PlayerID: "p2", Board: [][]string{{"", "G"}, {"T", ""}}, Score: 100, Lines: 1, Level: 1},
		GameOver{WinnerID: "p1", Standings: []Standing{{PlayerID: "p1", Placement: 1}, {PlayerID: "p2", Placement: 2, Score: 5}}},
		Error{Code: CodeRoomFull, Message: "room is full"},
	}
	for _, codec := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		for _, m := range messages {
			t.Run(codec.Name()+"/"+string(m.Kind()), func(t *testing.T) {
				data, err := Encode(codec, m)
				require.NoError(t, err)
				got, err := DecodeOutbound(codec, data)
				require.NoError(t, err)
				assert.Equal(t, m.Kind(), got.Kind())
				assert.Equal(t, m, deref(got))
			})
		}
	}
}

// deref turns the pointer DecodeOutbound returns back into a value.
func deref(m Outbound) Outbound {
	switch v := m.(type) {
	case *Welcome:
		return *v
	case *RoomState:
		return *v
	case *GameStart:
		return *v
	case *PlayerEliminated:
		return *v
	case *PlayerUpdate:
		return *v
	case *GameOver:
		return *v
	case *Error:
		return *v
	}
	return m
}

func TestMsgpackInbound(t *testing.T) {
	codec := MsgpackCodec{}
	data, err := Encode(codec, Garbage{Lines: 2, TargetMode: "badges"})
	require.NoError(t, err)
	got, err := DecodeInbound(codec, data)
	require.NoError(t, err)
	assert.Equal(t, Garbage{Lines: 2, TargetMode: "badges"}, got)

	data, err = Encode(codec, BoardUpdate{Board: [][]string{{"", "I"}}, Score: 300, Lines: 2, Level: 1})
	require.NoError(t, err)
	got, err = DecodeInbound(codec, data)
	require.NoError(t, err)
	assert.Equal(t, BoardUpdate{Board: [][]string{{"", "I"}}, Score: 300, Lines: 2, Level: 1}, got)

	_, err = DecodeInbound(codec, []byte{0xc1})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCodecFor(t *testing.T) {
	c, err := CodecFor("")
	require.NoError(t, err)
	assert.Equal(t, EncodingJSON, c.Name())
	assert.False(t, c.Binary())

	c, err = CodecFor("msgpack")
	require.NoError(t, err)
	assert.True(t, c.Binary())

	_, err = CodecFor("xml")
	assert.Error(t, err)
}
