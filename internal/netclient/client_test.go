package netclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hersh/stackrush/internal/protocol"
)

type chanSender chan tea.Msg

func (c chanSender) Send(m tea.Msg) { c <- m }

func recv(t *testing.T, c chanSender) tea.Msg {
	t.Helper()
	select {
	case m := <-c:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no message")
		return nil
	}
}

// echoServer sends a welcome, then answers each client frame with an error
// frame naming the type it received.
func echoServer(t *testing.T, codec protocol.Codec) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		mt := websocket.TextMessage
		if codec.Binary() {
			mt = websocket.BinaryMessage
		}
		data, _ := protocol.Encode(codec, protocol.Welcome{PlayerID: "p1", Token: "tok", RoomCode: "ABC123"})
		ws.WriteMessage(mt, data)
		for {
			_, frame, err := ws.ReadMessage()
			if err != nil {
				return
			}
			msg, err := protocol.DecodeInbound(codec, frame)
			if err != nil {
				continue
			}
			data, _ := protocol.Encode(codec, protocol.Error{Code: "ECHO", Message: string(msg.Kind())})
			ws.WriteMessage(mt, data)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientRoundTrip(t *testing.T) {
	for _, codec := range []protocol.Codec{protocol.JSONCodec{}, protocol.MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			srv := echoServer(t, codec)
			url := "ws" + strings.TrimPrefix(srv.URL, "http")

			c, err := Dial(context.Background(), url, codec, nil)
			require.NoError(t, err)
			sink := make(chanSender, 8)
			c.SetProgram(sink)
			c.Start()

			msg, ok := recv(t, sink).(ServerMsg)
			require.True(t, ok)
			assert.Equal(t, &protocol.Welcome{PlayerID: "p1", Token: "tok", RoomCode: "ABC123"}, msg.Msg)

			c.Send(protocol.Garbage{Lines: 2, TargetMode: "random"})
			msg, ok = recv(t, sink).(ServerMsg)
			require.True(t, ok)
			assert.Equal(t, &protocol.Error{Code: "ECHO", Message: "garbage"}, msg.Msg)

			c.Close()
			_, ok = recv(t, sink).(DisconnectedMsg)
			assert.True(t, ok)
			c.Close()
		})
	}
}

func TestDialFails(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/ws", protocol.JSONCodec{}, nil)
	assert.Error(t, err)
}

// dropServer hands out a seat, drops the first connection without a close
// frame and records the query of every later one.
func dropServer(t *testing.T, welcome bool) (*httptest.Server, chan url.Values) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	queries := make(chan url.Values, 4)
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		n := conns.Add(1)
		if n == 1 {
			if welcome {
				data, _ := protocol.Encode(protocol.JSONCodec{}, protocol.Welcome{PlayerID: "p1", Token: "tok", RoomCode: "ABC123"})
				ws.WriteMessage(websocket.TextMessage, data)
			}
			ws.UnderlyingConn().Close()
			return
		}
		queries <- r.URL.Query()
		data, _ := protocol.Encode(protocol.JSONCodec{}, protocol.Welcome{PlayerID: "p1", Token: "tok2", RoomCode: "ABC123"})
		ws.WriteMessage(websocket.TextMessage, data)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, queries
}

func TestClientResumesSeat(t *testing.T) {
	srv, queries := dropServer(t, true)
	c, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?encoding=json", protocol.JSONCodec{}, nil)
	require.NoError(t, err)
	defer c.Close()
	sink := make(chanSender, 8)
	c.SetProgram(sink)
	c.Start()

	msg, ok := recv(t, sink).(ServerMsg)
	require.True(t, ok)
	assert.Equal(t, "tok", msg.Msg.(*protocol.Welcome).Token)

	_, ok = recv(t, sink).(ReconnectedMsg)
	require.True(t, ok)

	select {
	case q := <-queries:
		assert.Equal(t, "ABC123", q.Get("room"))
		assert.Equal(t, "tok", q.Get("token"))
		assert.Equal(t, "json", q.Get("encoding"))
	case <-time.After(2 * time.Second):
		t.Fatal("no redial")
	}

	msg, ok = recv(t, sink).(ServerMsg)
	require.True(t, ok)
	assert.Equal(t, "tok2", msg.Msg.(*protocol.Welcome).Token)
}

func TestClientWithoutSeatDisconnects(t *testing.T) {
	srv, queries := dropServer(t, false)
	c, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), protocol.JSONCodec{}, nil)
	require.NoError(t, err)
	defer c.Close()
	sink := make(chanSender, 8)
	c.SetProgram(sink)
	c.Start()

	_, ok := recv(t, sink).(DisconnectedMsg)
	assert.True(t, ok)
	assert.Empty(t, queries)
}
