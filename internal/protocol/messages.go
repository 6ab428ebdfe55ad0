package protocol

// MessageType identifies the kind of message sent over the wire. Every
// frame is a flat object whose "type" field carries it.
type MessageType string

const (
	// Client -> Server messages
	MsgJoin        MessageType = "join"
	MsgReady       MessageType = "ready"
	MsgStart       MessageType = "start"
	MsgGarbage     MessageType = "garbage"
	MsgBoardUpdate MessageType = "boardUpdate"
	MsgEliminated  MessageType = "eliminated"
	MsgSetTarget   MessageType = "setTarget"
	MsgLeave       MessageType = "leave"
	MsgPlayAgain   MessageType = "playAgain"

	// Server -> Client messages
	MsgWelcome            MessageType = "welcome"
	MsgRoomState          MessageType = "roomState"
	MsgPlayerJoined       MessageType = "playerJoined"
	MsgPlayerLeft         MessageType = "playerLeft"
	MsgPlayerReady        MessageType = "playerReady"
	MsgCountdown          MessageType = "countdown"
	MsgGameStart          MessageType = "gameStart"
	MsgGarbageAttack      MessageType = "garbageAttack"
	MsgPlayerUpdate       MessageType = "playerUpdate"
	MsgPlayerEliminated   MessageType = "playerEliminated"
	MsgGameOver           MessageType = "gameOver"
	MsgHostChanged        MessageType = "hostChanged"
	MsgError              MessageType = "error"
	MsgPlayerDisconnected MessageType = "playerDisconnected"
	MsgPlayerReconnected  MessageType = "playerReconnected"
	MsgRoomReset          MessageType = "roomReset"
)

// Error codes carried by Error messages.
const (
	CodeRoomFull          = "ROOM_FULL"
	CodeGameInProgress    = "GAME_IN_PROGRESS"
	CodeAlreadyJoined     = "ALREADY_JOINED"
	CodeNotHost           = "NOT_HOST"
	CodeNotEnoughPlayers  = "NOT_ENOUGH_PLAYERS"
	CodePlayersNotReady   = "PLAYERS_NOT_READY"
	CodeInvalidPhase      = "INVALID_PHASE"
	CodeNotJoined         = "NOT_JOINED"
	CodeInvalidRoomCode   = "INVALID_ROOM_CODE"
	CodeRoomNotFound      = "ROOM_NOT_FOUND"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeServerUnavailable = "SERVER_UNAVAILABLE"
)

// Message is anything that can be framed.
type Message interface {
	Kind() MessageType
}

// Inbound is the closed set of client -> server messages.
type Inbound interface {
	Message
	inbound()
}

// Outbound is the closed set of server -> client messages.
type Outbound interface {
	Message
	outbound()
}

// --- Client -> Server ---

type Join struct {
	PlayerName string `json:"playerName"`
}

type Ready struct {
	IsReady bool `json:"isReady"`
}

type Start struct{}

// Garbage reports lines the sender wants to send after its own
// cancellation.
type Garbage struct {
	Lines      int    `json:"lines"`
	TargetMode string `json:"targetMode"`
}

// BoardUpdate is the sender's current board snapshot. Board rows hold piece
// letters, "G" for garbage and "" for empty.
type BoardUpdate struct {
	Board [][]string `json:"board"`
	Score int        `json:"score"`
	Lines int        `json:"lines"`
	Level int        `json:"level"`
}

type Eliminated struct{}

// SetTarget is client-local; the room accepts and ignores it.
type SetTarget struct {
	Mode string `json:"mode"`
}

type Leave struct{}

type PlayAgain struct{}

func (Join) Kind() MessageType        { return MsgJoin }
func (Ready) Kind() MessageType       { return MsgReady }
func (Start) Kind() MessageType       { return MsgStart }
func (Garbage) Kind() MessageType     { return MsgGarbage }
func (BoardUpdate) Kind() MessageType { return MsgBoardUpdate }
func (Eliminated) Kind() MessageType  { return MsgEliminated }
func (SetTarget) Kind() MessageType   { return MsgSetTarget }
func (Leave) Kind() MessageType       { return MsgLeave }
func (PlayAgain) Kind() MessageType   { return MsgPlayAgain }

func (Join) inbound()        {}
func (Ready) inbound()       {}
func (Start) inbound()       {}
func (Garbage) inbound()     {}
func (BoardUpdate) inbound() {}
func (Eliminated) inbound()  {}
func (SetTarget) inbound()   {}
func (Leave) inbound()       {}
func (PlayAgain) inbound()   {}

// --- Server -> Client ---

// NetworkPlayer is one roster entry as clients see it.
type NetworkPlayer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	IsHost      bool   `json:"isHost"`
	IsReady     bool   `json:"isReady"`
	IsConnected bool   `json:"isConnected"`
}

// Welcome is sent to a connection once it holds a roster slot. Token lets
// the client resume the slot after a dropped connection.
type Welcome struct {
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
	RoomCode string `json:"roomCode"`
}

type RoomState struct {
	RoomCode   string          `json:"roomCode"`
	HostID     string          `json:"hostId"`
	Players    []NetworkPlayer `json:"players"`
	IsStarting bool            `json:"isStarting"`
	Countdown  *int            `json:"countdown"`
}

type PlayerJoined struct {
	Player NetworkPlayer `json:"player"`
}

type PlayerLeft struct {
	PlayerID string `json:"playerId"`
}

type PlayerReady struct {
	PlayerID string `json:"playerId"`
	IsReady  bool   `json:"isReady"`
}

type Countdown struct {
	Seconds int `json:"seconds"`
}

type GameStart struct {
	Seed        int64    `json:"seed"`
	PlayerOrder []string `json:"playerOrder"`
}

// GarbageAttack is broadcast to everyone; only ToID applies it.
type GarbageAttack struct {
	FromID string `json:"fromId"`
	ToID   string `json:"toId"`
	Lines  int    `json:"lines"`
}

type PlayerUpdate struct {
	PlayerID string     `json:"playerId"`
	Board    [][]string `json:"board"`
	Score    int        `json:"score"`
	Lines    int        `json:"lines"`
	Level    int        `json:"level"`
}

type PlayerEliminated struct {
	PlayerID     string  `json:"playerId"`
	Placement    int     `json:"placement"`
	EliminatedBy *string `json:"eliminatedBy"`
}

type Standing struct {
	PlayerID  string `json:"playerId"`
	Placement int    `json:"placement"`
	Score     int    `json:"score"`
	Lines     int    `json:"lines"`
}

type GameOver struct {
	WinnerID  string     `json:"winnerId"`
	Standings []Standing `json:"standings"`
}

type HostChanged struct {
	NewHostID string `json:"newHostId"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PlayerDisconnected struct {
	PlayerID string `json:"playerId"`
}

type PlayerReconnected struct {
	PlayerID string `json:"playerId"`
}

type RoomReset struct {
	RoomCode string          `json:"roomCode"`
	HostID   string          `json:"hostId"`
	Players  []NetworkPlayer `json:"players"`
}

func (Welcome) Kind() MessageType            { return MsgWelcome }
func (RoomState) Kind() MessageType          { return MsgRoomState }
func (PlayerJoined) Kind() MessageType       { return MsgPlayerJoined }
func (PlayerLeft) Kind() MessageType         { return MsgPlayerLeft }
func (PlayerReady) Kind() MessageType        { return MsgPlayerReady }
func (Countdown) Kind() MessageType          { return MsgCountdown }
func (GameStart) Kind() MessageType          { return MsgGameStart }
func (GarbageAttack) Kind() MessageType      { return MsgGarbageAttack }
func (PlayerUpdate) Kind() MessageType       { return MsgPlayerUpdate }
func (PlayerEliminated) Kind() MessageType   { return MsgPlayerEliminated }
func (GameOver) Kind() MessageType           { return MsgGameOver }
func (HostChanged) Kind() MessageType        { return MsgHostChanged }
func (Error) Kind() MessageType              { return MsgError }
func (PlayerDisconnected) Kind() MessageType { return MsgPlayerDisconnected }
func (PlayerReconnected) Kind() MessageType  { return MsgPlayerReconnected }
func (RoomReset) Kind() MessageType          { return MsgRoomReset }

func (Welcome) outbound()            {}
func (RoomState) outbound()          {}
func (PlayerJoined) outbound()       {}
func (PlayerLeft) outbound()         {}
func (PlayerReady) outbound()        {}
func (Countdown) outbound()          {}
func (GameStart) outbound()          {}
func (GarbageAttack) outbound()      {}
func (PlayerUpdate) outbound()       {}
func (PlayerEliminated) outbound()   {}
func (GameOver) outbound()           {}
func (HostChanged) outbound()        {}
func (Error) outbound()              {}
func (PlayerDisconnected) outbound() {}
func (PlayerReconnected) outbound()  {}
func (RoomReset) outbound()          {}

// --- HTTP Request/Response types ---

// CreateRoomResponse is returned by POST /rooms.
type CreateRoomResponse struct {
	RoomCode string `json:"roomCode"`
}

// RoomInfo describes a room in the list-rooms response.
type RoomInfo struct {
	RoomCode    string `json:"roomCode"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	Phase       string `json:"phase"`
}

// ListRoomsResponse is returned by GET /rooms.
type ListRoomsResponse struct {
	Rooms []RoomInfo `json:"rooms"`
}

// ErrorResponse is a generic JSON error response.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
