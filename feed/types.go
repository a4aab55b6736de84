package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MessageKind is the closed set of inbound message types understood by the listener.
type MessageKind int

const (
	KindUnknown MessageKind = iota
	KindPing
	KindNotification
	KindUpdate
	KindAuthSuccess
	KindAuthFailed
)

var kindNames = map[MessageKind]string{
	KindUnknown:      "unknown",
	KindPing:         "ping",
	KindNotification: "notification",
	KindUpdate:       "update",
	KindAuthSuccess:  "auth_success",
	KindAuthFailed:   "auth_failed",
}

func (k MessageKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

func kindOf(typ string) MessageKind {
	for k, name := range kindNames {
		if k != KindUnknown && name == typ {
			return k
		}
	}
	return KindUnknown
}

// Event is one inbound frame after decoding.
type Event struct {
	Kind MessageKind
	// Type is the raw discriminator as received; empty when missing or not a string.
	Type string
	// Data is the decoded JSON object; nil when IsRaw.
	Data map[string]any
	// Raw is the frame text exactly as received.
	Raw        string
	IsRaw      bool
	ReceivedAt time.Time
}

// Field returns a field of the decoded payload as a string, or "".
func (e Event) Field(key string) string {
	if e.Data == nil {
		return ""
	}
	switch v := e.Data[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// decodeFrame never fails: frames that are not a JSON object surface as raw text.
func decodeFrame(frame []byte, receivedAt time.Time) Event {
	ev := Event{Raw: string(frame), ReceivedAt: receivedAt}
	var data map[string]any
	if err := json.Unmarshal(frame, &data); err != nil || data == nil {
		ev.IsRaw = true
		ev.Kind = KindUnknown
		return ev
	}
	ev.Data = data
	if typ, ok := data["type"].(string); ok {
		ev.Type = typ
		ev.Kind = kindOf(typ)
	}
	return ev
}

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

var (
	ErrNotConnected     = errors.New("feed: not connected")
	ErrAlreadyConnected = errors.New("feed: already connected or connecting")
	ErrListenTimeout    = errors.New("feed: listen timeout elapsed")
	ErrClosed           = errors.New("feed: listener disconnected")
	ErrListening        = errors.New("feed: already listening")
)

// ConnectionError is returned by Connect when the handshake fails.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("feed: connect %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
