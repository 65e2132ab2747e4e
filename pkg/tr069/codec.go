package tr069

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Codec converts between wire bytes and typed messages
type Codec interface {
	Decode(data []byte) (Message, error)
	Encode(msg Message) ([]byte, error)
	ContentType() string
}

// envelope is the JSON framing used by JSONCodec
type envelope struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body,omitempty"`
}

// JSONCodec frames messages as {"type": ..., "body": {...}}.
// An empty payload decodes to DummyInput and DummyInput encodes to an empty payload.
type JSONCodec struct{}

// NewJSONCodec creates a JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// ContentType returns the HTTP content type
func (c *JSONCodec) ContentType() string {
	return "application/json"
}

// Decode decodes a message
func (c *JSONCodec) Decode(data []byte) (Message, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &DummyInput{}, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	msg := newMessage(env.Type)
	if msg == nil {
		return nil, fmt.Errorf("unknown message type: %q", env.Type)
	}

	if len(env.Body) > 0 {
		if err := json.Unmarshal(env.Body, msg); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
	}

	return msg, nil
}

// Encode encodes a message
func (c *JSONCodec) Encode(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, nil
	}
	if _, ok := msg.(*DummyInput); ok {
		return nil, nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", msg.MessageName(), err)
	}

	return json.Marshal(envelope{Type: msg.MessageName(), Body: body})
}

func newMessage(name string) Message {
	switch name {
	case "Inform":
		return &Inform{}
	case "InformResponse":
		return &InformResponse{}
	case "DummyInput", "":
		return &DummyInput{}
	case "GetParameterValues":
		return &GetParameterValues{}
	case "GetParameterValuesResponse":
		return &GetParameterValuesResponse{}
	case "SetParameterValues":
		return &SetParameterValues{}
	case "SetParameterValuesResponse":
		return &SetParameterValuesResponse{}
	case "AddObject":
		return &AddObject{}
	case "AddObjectResponse":
		return &AddObjectResponse{}
	case "DeleteObject":
		return &DeleteObject{}
	case "DeleteObjectResponse":
		return &DeleteObjectResponse{}
	case "Reboot":
		return &Reboot{}
	case "RebootResponse":
		return &RebootResponse{}
	case "GetRPCMethods":
		return &GetRPCMethods{}
	case "GetRPCMethodsResponse":
		return &GetRPCMethodsResponse{}
	case "Fault":
		return &Fault{}
	default:
		return nil
	}
}
