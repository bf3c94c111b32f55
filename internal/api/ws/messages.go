package ws

import (
	"time"

	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/safety"
	"github.com/GriffinCanCode/AppFeed/backend/internal/sandbox"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
)

// Client message types
const (
	TypePing         = "ping"
	TypeSubscribe    = "subscribe"
	TypeGenerate     = "generate"
	TypeSandboxEvent = "sandbox_event"
)

// Server message types
const (
	TypeConnected          = "connected"
	TypePong               = "pong"
	TypeSubscribed         = "subscribed"
	TypeEvent              = "event"
	TypeGenerationStarted  = "generation_started"
	TypeGenerationComplete = "generation_complete"
	TypeSandboxState       = "sandbox_state"
	TypeError              = "error"
)

// ServerMessage is everything the server writes to a connection
type ServerMessage struct {
	Type         string               `json:"type"`
	ConnectionID string               `json:"connectionId,omitempty"`
	Message      string               `json:"message,omitempty"`
	AppIDs       []string             `json:"appIds,omitempty"`
	Event        *types.Event         `json:"event,omitempty"`
	App          *types.GeneratedApp  `json:"app,omitempty"`
	Safety       *safety.Report       `json:"safety,omitempty"`
	Channel      string               `json:"channel,omitempty"`
	Transition   *sandbox.Transition  `json:"transition,omitempty"`
	Session      *sandbox.SessionInfo `json:"session,omitempty"`
	Timestamp    int64                `json:"timestamp"`
}

func newMessage(typ string) *ServerMessage {
	return &ServerMessage{Type: typ, Timestamp: time.Now().Unix()}
}

func errorMessage(msg string) *ServerMessage {
	m := newMessage(TypeError)
	m.Message = msg
	return m
}
