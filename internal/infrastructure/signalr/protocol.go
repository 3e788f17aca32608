// Package signalr speaks the JSON hub protocol used by the notification hub:
// handshake, record-separated JSON frames, invocations, pings and close.
package signalr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// RecordSeparator terminates every JSON message on the wire.
const RecordSeparator byte = 0x1e

type MessageType int

const (
	MessageInvocation       MessageType = 1
	MessageStreamItem       MessageType = 2
	MessageCompletion       MessageType = 3
	MessageStreamInvocation MessageType = 4
	MessageCancelInvocation MessageType = 5
	MessagePing             MessageType = 6
	MessageClose            MessageType = 7
)

func (t MessageType) String() string {
	switch t {
	case MessageInvocation:
		return "invocation"
	case MessageStreamItem:
		return "stream_item"
	case MessageCompletion:
		return "completion"
	case MessageStreamInvocation:
		return "stream_invocation"
	case MessageCancelInvocation:
		return "cancel_invocation"
	case MessagePing:
		return "ping"
	case MessageClose:
		return "close"
	default:
		return "unknown"
	}
}

// Message is the union of the hub message shapes this package understands.
type Message struct {
	Type           MessageType       `json:"type"`
	InvocationID   string            `json:"invocationId,omitempty"`
	Target         string            `json:"target,omitempty"`
	Arguments      []json.RawMessage `json:"arguments,omitempty"`
	Error          string            `json:"error,omitempty"`
	AllowReconnect bool              `json:"allowReconnect,omitempty"`
}

type HandshakeRequest struct {
	Protocol string `json:"protocol"`
	Version  int    `json:"version"`
}

type HandshakeResponse struct {
	Error string `json:"error,omitempty"`
}

// NegotiateResponse is returned by POST {hub}/negotiate.
type NegotiateResponse struct {
	NegotiateVersion    int                  `json:"negotiateVersion"`
	ConnectionID        string               `json:"connectionId"`
	ConnectionToken     string               `json:"connectionToken,omitempty"`
	AvailableTransports []AvailableTransport `json:"availableTransports"`
	Error               string               `json:"error,omitempty"`
}

type AvailableTransport struct {
	Transport       string   `json:"transport"`
	TransferFormats []string `json:"transferFormats"`
}

var ErrHandshakeRejected = errors.New("hub handshake rejected")

// Frame appends the record separator to a marshalled value.
func Frame(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(data, RecordSeparator), nil
}

// SplitFrames breaks one websocket payload into its JSON records. A trailing
// record without a separator is treated as incomplete and returned as rest.
func SplitFrames(payload []byte) (records [][]byte, rest []byte) {
	for {
		idx := bytes.IndexByte(payload, RecordSeparator)
		if idx < 0 {
			return records, payload
		}
		if idx > 0 {
			records = append(records, payload[:idx])
		}
		payload = payload[idx+1:]
	}
}

func ParseMessage(record []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(record, &msg); err != nil {
		return nil, fmt.Errorf("decode hub message: %w", err)
	}
	if msg.Type == 0 {
		return nil, fmt.Errorf("decode hub message: missing type in %s", record)
	}
	return &msg, nil
}

// NewInvocation builds a non-blocking invocation (no invocation id).
func NewInvocation(target string, arguments ...interface{}) (*Message, error) {
	raw := make([]json.RawMessage, 0, len(arguments))
	for _, arg := range arguments {
		data, err := json.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("encode argument for %s: %w", target, err)
		}
		raw = append(raw, data)
	}
	return &Message{Type: MessageInvocation, Target: target, Arguments: raw}, nil
}

func PingFrame() []byte {
	frame, _ := Frame(Message{Type: MessagePing})
	return frame
}

func CloseFrame(reason string, allowReconnect bool) []byte {
	frame, _ := Frame(Message{Type: MessageClose, Error: reason, AllowReconnect: allowReconnect})
	return frame
}

// ParseHandshakeRequest decodes the first record a client sends.
func ParseHandshakeRequest(record []byte) (*HandshakeRequest, error) {
	var req HandshakeRequest
	if err := json.Unmarshal(record, &req); err != nil {
		return nil, fmt.Errorf("decode handshake: %w", err)
	}
	if req.Protocol != "json" {
		return &req, fmt.Errorf("%w: unsupported protocol %q", ErrHandshakeRejected, req.Protocol)
	}
	if req.Version != 1 {
		return &req, fmt.Errorf("%w: unsupported version %d", ErrHandshakeRejected, req.Version)
	}
	return &req, nil
}

func ParseHandshakeResponse(record []byte) error {
	var resp HandshakeResponse
	if err := json.Unmarshal(record, &resp); err != nil {
		return fmt.Errorf("decode handshake response: %w", err)
	}
	if resp.Error != "" {
		return fmt.Errorf("%w: %s", ErrHandshakeRejected, resp.Error)
	}
	return nil
}
