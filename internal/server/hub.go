// Package server hosts rooms over websockets: one Actor per room, a Hub that
// routes connections to them, and the small HTTP API around it.
package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hersh/stackrush/internal/auth"
	"github.com/hersh/stackrush/internal/player"
	"github.com/hersh/stackrush/internal/protocol"
	"github.com/hersh/stackrush/internal/room"
)

// Rooms nobody ever joins are reaped after this long.
const emptyRoomTimeout = 5 * time.Minute

type HubConfig struct {
	Countdown       int
	DisconnectGrace time.Duration
	Clock           Clock
	Logger          *zap.Logger
	Tokens          *auth.Signer
	// RoomOptions are passed to every new room.
	RoomOptions []room.Option
}

type Hub struct {
	cfg      HubConfig
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	rooms map[string]*Actor
}

func NewHub(cfg HubConfig) *Hub {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock
	}
	if cfg.Tokens == nil {
		// Tokens from a throwaway secret only resume seats until restart.
		tokens, err := auth.NewSigner(uuid.NewString(), auth.DefaultTTL)
		if err != nil {
			panic(err)
		}
		cfg.Tokens = tokens
	}
	return &Hub{
		cfg: cfg,
		log: cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		rooms: make(map[string]*Actor),
	}
}

// CreateRoom starts a new room under a fresh code.
func (h *Hub) CreateRoom() *Actor {
	h.mu.Lock()
	defer h.mu.Unlock()

	code := player.GenerateRoomCode()
	for h.rooms[code] != nil {
		code = player.GenerateRoomCode()
	}
	a := NewActor(ActorConfig{
		Code:            code,
		Countdown:       h.cfg.Countdown,
		DisconnectGrace: h.cfg.DisconnectGrace,
		Clock:           h.cfg.Clock,
		Logger:          h.log,
		OnClose:         h.forget,
		RoomOptions:     h.cfg.RoomOptions,
	})
	h.rooms[code] = a
	go a.Run()
	h.cfg.Clock.AfterFunc(emptyRoomTimeout, func() { a.post(a.closeIfEmpty) })
	h.log.Info("room created", zap.String("room", code))
	return a
}

// Room looks up a live room.
func (h *Hub) Room(code string) *Actor {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms[code]
}

func (h *Hub) forget(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, code)
}

// Rooms summarises every live room, ordered by code.
func (h *Hub) Rooms() []protocol.RoomInfo {
	h.mu.Lock()
	actors := make([]*Actor, 0, len(h.rooms))
	for _, a := range h.rooms {
		actors = append(actors, a)
	}
	h.mu.Unlock()

	infos := make([]protocol.RoomInfo, len(actors))
	for i, a := range actors {
		infos[i] = a.Info()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].RoomCode < infos[j].RoomCode })
	return infos
}

// Shutdown stops every room and waits for them to finish.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	actors := make([]*Actor, 0, len(h.rooms))
	for _, a := range h.rooms {
		actors = append(actors, a)
	}
	h.mu.Unlock()

	for _, a := range actors {
		a.Stop()
		<-a.Done()
	}
}

// Handler serves the HTTP API and the websocket endpoint.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rooms", h.handleCreateRoom)
	mux.HandleFunc("GET /rooms", h.handleListRooms)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ws", h.handleWS)
	return mux
}

func (h *Hub) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	a := h.CreateRoom()
	writeJSON(w, http.StatusCreated, protocol.CreateRoomResponse{RoomCode: a.Code()})
}

func (h *Hub) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protocol.ListRoomsResponse{Rooms: h.Rooms()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// handleWS upgrades the request and attaches it to a room:
//
//	/ws                 creates a room
//	/ws?room=CODE       joins an existing one
//	&token=...          resumes the seat the token names
//	&encoding=msgpack   binary frames instead of JSON text
func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	codec, err := protocol.CodecFor(q.Get("encoding"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.ErrorResponse{Code: "INVALID_ENCODING", Error: err.Error()})
		return
	}
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	code := q.Get("room")
	var a *Actor
	switch {
	case code == "":
		a = h.CreateRoom()
	case !player.ValidRoomCode(code):
		h.reject(ws, codec, protocol.CodeInvalidRoomCode, "Room codes are 6 letters or digits")
		return
	default:
		if a = h.Room(code); a == nil {
			h.reject(ws, codec, protocol.CodeRoomNotFound, "No room with that code")
			return
		}
	}

	playerID := uuid.NewString()
	if tok := q.Get("token"); tok != "" {
		sess, err := h.cfg.Tokens.Parse(tok)
		if err != nil || sess.RoomCode != a.Code() {
			h.reject(ws, codec, protocol.CodeInvalidToken, "Session token is not valid for this room")
			return
		}
		playerID = sess.PlayerID
	}
	token, err := h.cfg.Tokens.Issue(auth.Session{RoomCode: a.Code(), PlayerID: playerID})
	if err != nil {
		h.log.Error("issue token", zap.Error(err))
		h.reject(ws, codec, protocol.CodeServerUnavailable, "Could not start a session")
		return
	}

	c := newConn(ws, codec, playerID, h.log.With(zap.String("room", a.Code())))
	go c.writePump()
	if !a.Connect(playerID, token, c) {
		c.Send(protocol.Error{Code: protocol.CodeServerUnavailable, Message: "Room is closing"})
		c.Close()
		return
	}
	c.readPump(a)
}

// reject sends one error frame and closes the socket.
func (h *Hub) reject(ws *websocket.Conn, codec protocol.Codec, code, message string) {
	defer ws.Close()
	data, err := protocol.Encode(codec, protocol.Error{Code: code, Message: message})
	if err != nil {
		return
	}
	mt := websocket.TextMessage
	if codec.Binary() {
		mt = websocket.BinaryMessage
	}
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteMessage(mt, data); err != nil {
		return
	}
	ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code))
}
