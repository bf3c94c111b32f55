package sandbox

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// ProtocolVersion is stamped on every bridge message
const ProtocolVersion = 1

// Message limits
const (
	MaxMessageSize   = 64 << 10
	MaxConsoleArgs   = 32
	MaxTextLength    = 4096
	MaxCapabilities  = 16
	maxChannelLength = 64
)

// MessageType is the kind of a bridge message
type MessageType string

const (
	MessageReady       MessageType = "ready"
	MessageError       MessageType = "error"
	MessageInteraction MessageType = "interaction"
	MessageConsole     MessageType = "console"
)

// Interaction actions
const (
	ActionStart = "start"
	ActionEnd   = "end"
)

var consoleLevels = map[string]bool{
	"log": true, "info": true, "warn": true, "error": true, "debug": true,
}

var (
	ErrMessageTooLarge     = errors.New("sandbox message too large")
	ErrMalformedMessage    = errors.New("malformed sandbox message")
	ErrUnsupportedVersion  = errors.New("unsupported protocol version")
	ErrUnknownMessageType  = errors.New("unknown message type")
	ErrMissingChannel      = errors.New("missing channel")
	ErrInvalidAction       = errors.New("invalid interaction action")
	ErrInvalidConsoleLevel = errors.New("invalid console level")
	ErrTooManyArgs         = errors.New("too many console arguments")
	ErrChannelMismatch     = errors.New("channel mismatch")
	ErrSessionNotFound     = errors.New("sandbox session not found")
)

// Message is one postMessage payload sent by the bridge script
type Message struct {
	Version      int         `json:"v"`
	Channel      string      `json:"channel"`
	Type         MessageType `json:"type"`
	Timestamp    int64       `json:"ts,omitempty"`
	Capabilities []string    `json:"capabilities,omitempty"`
	Message      string      `json:"message,omitempty"`
	Filename     string      `json:"filename,omitempty"`
	Lineno       int         `json:"lineno,omitempty"`
	Action       string      `json:"action,omitempty"`
	Level        string      `json:"level,omitempty"`
	Args         []string    `json:"args,omitempty"`
}

// Decode parses and validates a raw bridge message
func Decode(raw []byte) (*Message, error) {
	if len(raw) > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}
	var msg Message
	if err := sonic.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Encode serializes a message the way the bridge sends it
func Encode(msg *Message) ([]byte, error) {
	return sonic.Marshal(msg)
}

// Validate checks the envelope and the type-specific fields
func (m *Message) Validate() error {
	if m.Version != ProtocolVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, m.Version)
	}
	if m.Channel == "" {
		return ErrMissingChannel
	}
	if len(m.Channel) > maxChannelLength {
		return fmt.Errorf("%w: channel too long", ErrMalformedMessage)
	}

	switch m.Type {
	case MessageReady:
		if len(m.Capabilities) > MaxCapabilities {
			return fmt.Errorf("%w: too many capabilities", ErrMalformedMessage)
		}
	case MessageError:
		if len(m.Message) > MaxTextLength || len(m.Filename) > MaxTextLength {
			return fmt.Errorf("%w: error text too long", ErrMalformedMessage)
		}
		if m.Lineno < 0 {
			return fmt.Errorf("%w: negative line number", ErrMalformedMessage)
		}
	case MessageInteraction:
		if m.Action != ActionStart && m.Action != ActionEnd {
			return fmt.Errorf("%w: %q", ErrInvalidAction, m.Action)
		}
	case MessageConsole:
		if !consoleLevels[m.Level] {
			return fmt.Errorf("%w: %q", ErrInvalidConsoleLevel, m.Level)
		}
		if len(m.Args) > MaxConsoleArgs {
			return ErrTooManyArgs
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, m.Type)
	}
	return nil
}
