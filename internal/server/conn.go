package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hersh/stackrush/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 16384
	sendBuffer     = 256
)

// conn is a websocket Peer. Frames are encoded with the codec the client
// asked for and written by writePump.
type conn struct {
	ws       *websocket.Conn
	codec    protocol.Codec
	playerID string
	log      *zap.Logger

	sendCh    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn, codec protocol.Codec, playerID string, log *zap.Logger) *conn {
	return &conn{
		ws:       ws,
		codec:    codec,
		playerID: playerID,
		log:      log.With(zap.String("player", playerID)),
		sendCh:   make(chan []byte, sendBuffer),
		closed:   make(chan struct{}),
	}
}

func (c *conn) messageType() int {
	if c.codec.Binary() {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// Send encodes m and queues it. A full queue drops the message.
func (c *conn) Send(m protocol.Outbound) {
	data, err := protocol.Encode(c.codec, m)
	if err != nil {
		c.log.Error("encode failed", zap.String("type", string(m.Kind())), zap.Error(err))
		return
	}
	select {
	case <-c.closed:
	case c.sendCh <- data:
	default:
		c.log.Warn("send queue full, dropping message", zap.String("type", string(m.Kind())))
	}
}

// Close asks writePump to send a close frame and hang up.
func (c *conn) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.sendCh:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(c.messageType(), msg); err != nil {
				return
			}
		case <-c.closed:
			c.flush()
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// flush writes whatever is still queued.
func (c *conn) flush() {
	for {
		select {
		case msg := <-c.sendCh:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(c.messageType(), msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

// readPump decodes frames into the actor until the socket fails or closes.
func (c *conn) readPump(a *Actor) {
	defer func() {
		c.Close()
		a.Disconnect(c.playerID, c)
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("read error", zap.Error(err))
			}
			return
		}
		msg, err := protocol.DecodeInbound(c.codec, data)
		if err != nil {
			c.log.Debug("dropping frame", zap.Error(err))
			continue
		}
		a.Message(c.playerID, msg)
	}
}
