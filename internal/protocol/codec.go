package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns frames into bytes and back. Frames are flat string-keyed maps
// so both encodings share one validation path.
type Codec interface {
	Name() string
	// Binary reports whether frames go out as binary websocket messages.
	Binary() bool
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte) (map[string]any, error)
}

const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

// CodecFor returns the codec for an encoding name; "" means JSON.
func CodecFor(name string) (Codec, error) {
	switch name {
	case "", EncodingJSON:
		return JSONCodec{}, nil
	case EncodingMsgpack:
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
}

type JSONCodec struct{}

func (JSONCodec) Name() string { return EncodingJSON }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("frame is not an object")
	}
	return m, nil
}

// MsgpackCodec encodes the same field names as JSON.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return EncodingMsgpack }
func (MsgpackCodec) Binary() bool { return true }

func (MsgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Unmarshal(data []byte) (map[string]any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("frame is not an object")
	}
	return m, nil
}

// Encode frames m with its "type" field.
func Encode(c Codec, m Message) ([]byte, error) {
	raw, err := c.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", m.Kind(), err)
	}
	fields, err := c.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("reframe %s: %w", m.Kind(), err)
	}
	fields["type"] = string(m.Kind())
	return c.Marshal(fields)
}
