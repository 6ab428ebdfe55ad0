package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

var inboundTypes = map[MessageType]bool{
	MsgJoin:        true,
	MsgReady:       true,
	MsgStart:       true,
	MsgGarbage:     true,
	MsgBoardUpdate: true,
	MsgEliminated:  true,
	MsgSetTarget:   true,
	MsgLeave:       true,
	MsgPlayAgain:   true,
}

// DecodeInbound parses and validates one client frame.
func DecodeInbound(c Codec, data []byte) (Inbound, error) {
	fields, err := c.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Decode(fields)
}

// Decode validates a client frame against the minimal field schema of its
// type and returns the typed message. Unknown types are reported with
// ErrUnknownType so the caller can ignore them.
func Decode(fields map[string]any) (Inbound, error) {
	t, ok := fields["type"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	mt := MessageType(t)
	if !inboundTypes[mt] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}

	switch mt {
	case MsgJoin:
		name, ok := fields["playerName"].(string)
		if !ok {
			return nil, missing(mt, "playerName")
		}
		return Join{PlayerName: name}, nil
	case MsgReady:
		ready, ok := fields["isReady"].(bool)
		if !ok {
			return nil, missing(mt, "isReady")
		}
		return Ready{IsReady: ready}, nil
	case MsgGarbage:
		lines, ok := number(fields["lines"])
		if !ok {
			return nil, missing(mt, "lines")
		}
		mode, ok := fields["targetMode"].(string)
		if !ok {
			return nil, missing(mt, "targetMode")
		}
		return Garbage{Lines: toInt(lines), TargetMode: mode}, nil
	case MsgBoardUpdate:
		board, ok := boardField(fields["board"])
		if !ok {
			return nil, missing(mt, "board")
		}
		score, ok := number(fields["score"])
		if !ok {
			return nil, missing(mt, "score")
		}
		lines, ok := number(fields["lines"])
		if !ok {
			return nil, missing(mt, "lines")
		}
		level := 1.0
		if l, ok := number(fields["level"]); ok {
			level = l
		}
		return BoardUpdate{Board: board, Score: toInt(score), Lines: toInt(lines), Level: toInt(level)}, nil
	case MsgSetTarget:
		mode, ok := fields["mode"].(string)
		if !ok {
			return nil, missing(mt, "mode")
		}
		return SetTarget{Mode: mode}, nil
	case MsgStart:
		return Start{}, nil
	case MsgEliminated:
		return Eliminated{}, nil
	case MsgLeave:
		return Leave{}, nil
	case MsgPlayAgain:
		return PlayAgain{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
}

func missing(t MessageType, field string) error {
	return fmt.Errorf("%w: %s needs %s", ErrMalformed, t, field)
}

// number accepts every numeric representation either codec produces.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func toInt(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

// boardField reads a board grid. Anything that is not a string inside a row
// (null included) reads as an empty cell.
func boardField(v any) ([][]string, bool) {
	rows, ok := v.([]any)
	if !ok {
		return nil, false
	}
	board := make([][]string, len(rows))
	for i, r := range rows {
		cells, _ := r.([]any)
		board[i] = make([]string, len(cells))
		for x, c := range cells {
			if s, ok := c.(string); ok {
				board[i][x] = s
			}
		}
	}
	return board, true
}

var outboundTypes = map[MessageType]func() Outbound{
	MsgWelcome:            func() Outbound { return &Welcome{} },
	MsgRoomState:          func() Outbound { return &RoomState{} },
	MsgPlayerJoined:       func() Outbound { return &PlayerJoined{} },
	MsgPlayerLeft:         func() Outbound { return &PlayerLeft{} },
	MsgPlayerReady:        func() Outbound { return &PlayerReady{} },
	MsgCountdown:          func() Outbound { return &Countdown{} },
	MsgGameStart:          func() Outbound { return &GameStart{} },
	MsgGarbageAttack:      func() Outbound { return &GarbageAttack{} },
	MsgPlayerUpdate:       func() Outbound { return &PlayerUpdate{} },
	MsgPlayerEliminated:   func() Outbound { return &PlayerEliminated{} },
	MsgGameOver:           func() Outbound { return &GameOver{} },
	MsgHostChanged:        func() Outbound { return &HostChanged{} },
	MsgError:              func() Outbound { return &Error{} },
	MsgPlayerDisconnected: func() Outbound { return &PlayerDisconnected{} },
	MsgPlayerReconnected:  func() Outbound { return &PlayerReconnected{} },
	MsgRoomReset:          func() Outbound { return &RoomReset{} },
}

// DecodeOutbound parses one server frame on the client side. The result is
// a pointer to the concrete message struct.
func DecodeOutbound(c Codec, data []byte) (Outbound, error) {
	fields, err := c.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	t, ok := fields["type"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	newMsg, ok := outboundTypes[MessageType(t)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	delete(fields, "type")

	// Fields from either codec are plain JSON values, so one struct mapping
	// serves both.
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	msg := newMsg()
	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, t, err)
	}
	return msg, nil
}
