package sandbox

import (
	"strings"
	"sync"
	"time"
)

// State is the lifecycle state of one rendered document
type State string

const (
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateErrored  State = "errored"
	StateTimedOut State = "timed_out"
)

const (
	maxSessionErrors  = 20
	maxSessionConsole = 100
)

// ErrorInfo is an error reported by the sandboxed app
type ErrorInfo struct {
	Message  string    `json:"message"`
	Filename string    `json:"filename,omitempty"`
	Lineno   int       `json:"lineno,omitempty"`
	At       time.Time `json:"at"`
}

// ConsoleEntry is one console call relayed from the app
type ConsoleEntry struct {
	Level string    `json:"level"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

// Transition describes the effect of a handled message
type Transition struct {
	From    State `json:"from"`
	To      State `json:"to"`
	Ignored bool  `json:"ignored,omitempty"`
}

// Changed reports whether the state moved
func (t Transition) Changed() bool {
	return t.From != t.To
}

// SessionInfo is a point-in-time view of a session
type SessionInfo struct {
	Channel         string         `json:"channel"`
	AppID           string         `json:"appId,omitempty"`
	State           State          `json:"state"`
	CreatedAt       time.Time      `json:"createdAt"`
	Deadline        time.Time      `json:"deadline"`
	ReadyAt         *time.Time     `json:"readyAt,omitempty"`
	LoadTime        time.Duration  `json:"loadTime,omitempty"`
	Capabilities    []string       `json:"capabilities,omitempty"`
	Errors          []ErrorInfo    `json:"errors,omitempty"`
	Console         []ConsoleEntry `json:"console,omitempty"`
	Interacting     bool           `json:"interacting"`
	Interactions    int            `json:"interactions"`
	InteractionTime time.Duration  `json:"interactionTime"`
	LastSeen        time.Time      `json:"lastSeen"`
}

// Session tracks one sandbox document from the host's side.
//
// A session starts loading. ready moves it to ready; error moves loading or
// ready to errored; a ready that arrives after an error is ignored. Loading
// sessions past their deadline become timed_out. errored and timed_out are
// terminal, though later errors are still recorded.
type Session struct {
	mu sync.Mutex

	channel   string
	appID     string
	state     State
	createdAt time.Time
	deadline  time.Time
	readyAt   time.Time
	lastSeen  time.Time

	capabilities []string
	errors       []ErrorInfo
	console      []ConsoleEntry

	interacting      bool
	interactionStart time.Time
	interactions     int
	interactionTime  time.Duration
}

// NewSession opens a loading session that must report ready within readyTimeout
func NewSession(channel, appID string, readyTimeout time.Duration, now time.Time) *Session {
	return &Session{
		channel:   channel,
		appID:     appID,
		state:     StateLoading,
		createdAt: now,
		deadline:  now.Add(readyTimeout),
		lastSeen:  now,
	}
}

// Channel returns the session's channel id
func (s *Session) Channel() string { return s.channel }

// AppID returns the app the document was built for, if any
func (s *Session) AppID() string { return s.appID }

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle applies a validated message received at time at
func (s *Session) Handle(msg *Message, at time.Time) (Transition, error) {
	if msg.Channel != s.channel {
		return Transition{}, ErrChannelMismatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := Transition{From: s.state, To: s.state}
	s.lastSeen = at

	switch msg.Type {
	case MessageReady:
		if s.state != StateLoading {
			t.Ignored = true
			break
		}
		s.state = StateReady
		s.readyAt = at
		s.capabilities = append([]string(nil), msg.Capabilities...)

	case MessageError:
		if len(s.errors) < maxSessionErrors {
			s.errors = append(s.errors, ErrorInfo{
				Message:  msg.Message,
				Filename: msg.Filename,
				Lineno:   msg.Lineno,
				At:       at,
			})
		}
		if s.state == StateLoading || s.state == StateReady {
			s.endInteraction(at)
			s.state = StateErrored
		}

	case MessageInteraction:
		if s.state == StateTimedOut {
			t.Ignored = true
			break
		}
		if msg.Action == ActionStart {
			if !s.interacting {
				s.interacting = true
				s.interactionStart = at
				s.interactions++
			}
		} else {
			s.endInteraction(at)
		}

	case MessageConsole:
		if len(s.console) < maxSessionConsole {
			s.console = append(s.console, ConsoleEntry{
				Level: msg.Level,
				Text:  strings.Join(msg.Args, " "),
				At:    at,
			})
		}
	}

	t.To = s.state
	return t, nil
}

func (s *Session) endInteraction(at time.Time) {
	if !s.interacting {
		return
	}
	s.interacting = false
	if d := at.Sub(s.interactionStart); d > 0 {
		s.interactionTime += d
	}
}

// CheckTimeout moves a loading session past its deadline to timed_out and
// reports whether it did
func (s *Session) CheckTimeout(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoading || now.Before(s.deadline) {
		return false
	}
	s.state = StateTimedOut
	return true
}

// idleSince reports whether the session has been quiet since before cutoff
func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen.Before(cutoff)
}

// Info returns a snapshot of the session
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := SessionInfo{
		Channel:         s.channel,
		AppID:           s.appID,
		State:           s.state,
		CreatedAt:       s.createdAt,
		Deadline:        s.deadline,
		Capabilities:    append([]string(nil), s.capabilities...),
		Errors:          append([]ErrorInfo(nil), s.errors...),
		Console:         append([]ConsoleEntry(nil), s.console...),
		Interacting:     s.interacting,
		Interactions:    s.interactions,
		InteractionTime: s.interactionTime,
		LastSeen:        s.lastSeen,
	}
	if !s.readyAt.IsZero() {
		readyAt := s.readyAt
		info.ReadyAt = &readyAt
		info.LoadTime = s.readyAt.Sub(s.createdAt)
	}
	return info
}
