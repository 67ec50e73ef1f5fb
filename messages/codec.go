package messages

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Encode serializes a server message for the wire.
func Encode(msg *ServerMessage) ([]byte, error) {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", msg.Type, err)
	}
	return data, nil
}

// Decode parses a client message from the wire.
func Decode(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode client message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("client message missing type field")
	}
	return &msg, nil
}

// DecodePayload decodes a raw payload into a typed struct.
func DecodePayload[T any](raw []byte) (T, error) {
	var v T
	if err := sonic.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode payload: %w", err)
	}
	return v, nil
}
