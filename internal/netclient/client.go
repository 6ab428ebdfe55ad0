// Package netclient is the websocket side of the multiplayer client: it
// dials the server, turns frames into tea messages and keeps a RoomView.
package netclient

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hersh/stackrush/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 256
	redialTimeout  = 5 * time.Second
)

// ServerMsg is a tea.Msg carrying one decoded server message.
type ServerMsg struct {
	Msg protocol.Outbound
}

// DisconnectedMsg is sent when the connection is lost and could not be
// resumed.
type DisconnectedMsg struct {
	Err error
}

// ReconnectedMsg is sent after a dropped connection was resumed with the
// seat token from the last welcome.
type ReconnectedMsg struct{}

// Sender receives the client's tea messages. *tea.Program satisfies it.
type Sender interface {
	Send(tea.Msg)
}

// Client manages the websocket connection to the game server.
type Client struct {
	url   string
	codec protocol.Codec
	log   *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	sink   Sender
	sendCh chan []byte
	done   chan struct{}
	closed bool

	// Set by each welcome and spent by one redial attempt.
	room  string
	token string
}

// Dial connects to addr, encoding frames with codec.
func Dial(ctx context.Context, addr string, codec protocol.Codec, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{
		url:    addr,
		conn:   conn,
		codec:  codec,
		log:    log,
		sendCh: make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}, nil
}

// SetProgram sets where incoming messages are delivered.
func (c *Client) SetProgram(s Sender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = s
}

// Start launches the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Send encodes and queues a message for the server.
func (c *Client) Send(m protocol.Inbound) {
	data, err := protocol.Encode(c.codec, m)
	if err != nil {
		c.log.Error("encode failed", zap.String("type", string(m.Kind())), zap.Error(err))
		return
	}
	select {
	case <-c.done:
	case c.sendCh <- data:
	default:
		c.log.Warn("send queue full, dropping message", zap.String("type", string(m.Kind())))
	}
}

// Close shuts down the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.conn.Close()
}

func (c *Client) deliver(msg tea.Msg) {
	c.mu.Lock()
	s := c.sink
	c.mu.Unlock()
	if s != nil {
		s.Send(msg)
	}
}

// readPump reads until the connection drops, then tries once to resume the
// seat before giving up.
func (c *Client) readPump() {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		err := c.read(conn)
		if !c.resume() {
			c.deliver(DisconnectedMsg{Err: err})
			return
		}
		c.deliver(ReconnectedMsg{})
	}
}

// read returns nil for a normal close.
func (c *Client) read(conn *websocket.Conn) error {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("read failed", zap.Error(err))
				return err
			}
			return nil
		}
		msg, err := protocol.DecodeOutbound(c.codec, data)
		if err != nil {
			c.log.Debug("dropping frame", zap.Error(err))
			continue
		}
		if w, ok := msg.(*protocol.Welcome); ok {
			c.mu.Lock()
			c.room, c.token = w.RoomCode, w.Token
			c.mu.Unlock()
			c.log.Info("seat assigned",
				zap.String("room", w.RoomCode),
				zap.String("player", w.PlayerID),
				zap.String("token", w.Token))
		}
		c.deliver(ServerMsg{Msg: msg})
	}
}

// resume redials with the room and token of the last welcome. A token is
// used for one attempt only; the server's next welcome issues a fresh one.
func (c *Client) resume() bool {
	c.mu.Lock()
	if c.closed || c.token == "" {
		c.mu.Unlock()
		return false
	}
	room, token := c.room, c.token
	c.token = ""
	c.mu.Unlock()

	target, err := resumeURL(c.url, room, token)
	if err != nil {
		c.log.Warn("resume url", zap.Error(err))
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), redialTimeout)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		c.log.Warn("resume failed", zap.String("room", room), zap.Error(err))
		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return false
	}
	old := c.conn
	c.conn = conn
	c.mu.Unlock()
	old.Close()
	c.log.Info("resumed", zap.String("room", room))
	return true
}

func resumeURL(base, room, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("room", room)
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	mt := websocket.TextMessage
	if c.codec.Binary() {
		mt = websocket.BinaryMessage
	}
	for {
		select {
		case msg := <-c.sendCh:
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(mt, msg)
			c.mu.Unlock()
			if err != nil {
				c.log.Debug("write failed", zap.Error(err))
			}
		case <-ticker.C:
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				c.log.Debug("ping failed", zap.Error(err))
			}
		case <-c.done:
			return
		}
	}
}
