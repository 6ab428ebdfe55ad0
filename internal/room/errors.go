package room

import "github.com/hersh/stackrush/internal/protocol"

// Error is a rule violation reported back to the sender. The room state is
// unchanged whenever one is returned.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Msg converts the error to its wire form.
func (e *Error) Msg() protocol.Error {
	return protocol.Error{Code: e.Code, Message: e.Message}
}

var (
	ErrRoomFull         = &Error{protocol.CodeRoomFull, "Room is full"}
	ErrGameInProgress   = &Error{protocol.CodeGameInProgress, "Game already in progress"}
	ErrAlreadyJoined    = &Error{protocol.CodeAlreadyJoined, "Player already in room"}
	ErrNotJoined        = &Error{protocol.CodeNotJoined, "Join the room first"}
	ErrNotHost          = &Error{protocol.CodeNotHost, "Only the host can start the game"}
	ErrNotEnoughPlayers = &Error{protocol.CodeNotEnoughPlayers, "At least 2 players are needed"}
	ErrPlayersNotReady  = &Error{protocol.CodePlayersNotReady, "All players must be ready"}
	ErrInvalidPhase     = &Error{protocol.CodeInvalidPhase, "Not allowed right now"}
)
