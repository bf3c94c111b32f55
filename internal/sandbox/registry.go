package sandbox

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Recorder receives sandbox metrics
type Recorder interface {
	RecordSandboxRender()
	RecordSandboxEvent(msgType string)
	SetSandboxSessions(state string, count int)
}

// RegistryConfig configures session tracking
type RegistryConfig struct {
	ReadyTimeout  time.Duration // loading sessions time out after this
	TTL           time.Duration // quiet sessions are dropped after this
	SweepInterval time.Duration
	Recorder      Recorder
	Now           func() time.Time
}

// Registry holds live sessions keyed by channel
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	config   RegistryConfig
	logger   *zap.Logger
}

// NewRegistry creates a registry
func NewRegistry(config RegistryConfig, logger *zap.Logger) *Registry {
	if config.ReadyTimeout <= 0 {
		config.ReadyTimeout = 10 * time.Second
	}
	if config.TTL <= 0 {
		config.TTL = 30 * time.Minute
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Second
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		config:   config,
		logger:   logger,
	}
}

// Render builds a document for c and opens a session for it
func (r *Registry) Render(appID string, c Content, opts Options) (*Document, *Session, error) {
	doc, err := BuildDocument(c, opts)
	if err != nil {
		return nil, nil, err
	}
	s := r.Open(doc.Channel, appID)
	if r.config.Recorder != nil {
		r.config.Recorder.RecordSandboxRender()
	}
	return doc, s, nil
}

// Open starts tracking a channel. An existing session on the channel is replaced.
func (r *Registry) Open(channel, appID string) *Session {
	s := NewSession(channel, appID, r.config.ReadyTimeout, r.config.Now())

	r.mu.Lock()
	r.sessions[channel] = s
	r.mu.Unlock()

	r.publishCounts()
	return s
}

// Get returns the session for channel
func (r *Registry) Get(channel string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[channel]
	return s, ok
}

// Dispatch decodes a raw bridge message and routes it to its session
func (r *Registry) Dispatch(raw []byte) (*Session, Transition, error) {
	msg, err := Decode(raw)
	if err != nil {
		return nil, Transition{}, err
	}
	return r.Handle(msg)
}

// Handle routes a validated message to its session
func (r *Registry) Handle(msg *Message) (*Session, Transition, error) {
	s, ok := r.Get(msg.Channel)
	if !ok {
		return nil, Transition{}, ErrSessionNotFound
	}

	t, err := s.Handle(msg, r.config.Now())
	if err != nil {
		return s, t, err
	}
	if r.config.Recorder != nil {
		r.config.Recorder.RecordSandboxEvent(string(msg.Type))
	}

	if t.Changed() {
		r.logger.Debug("sandbox state changed",
			zap.String("channel", s.Channel()),
			zap.String("app_id", s.AppID()),
			zap.String("from", string(t.From)),
			zap.String("to", string(t.To)))
		r.publishCounts()
	}
	if msg.Type == MessageError {
		r.logger.Info("sandboxed app error",
			zap.String("channel", s.Channel()),
			zap.String("app_id", s.AppID()),
			zap.String("message", msg.Message),
			zap.Int("line", msg.Lineno))
	}
	return s, t, nil
}

// Close stops tracking channel
func (r *Registry) Close(channel string) bool {
	r.mu.Lock()
	_, ok := r.sessions[channel]
	delete(r.sessions, channel)
	r.mu.Unlock()

	if ok {
		r.publishCounts()
	}
	return ok
}

// Sweep times out overdue loading sessions and drops quiet ones
func (r *Registry) Sweep() (timedOut, expired int) {
	now := r.config.Now()
	cutoff := now.Add(-r.config.TTL)

	r.mu.Lock()
	for channel, s := range r.sessions {
		if s.CheckTimeout(now) {
			timedOut++
			r.logger.Info("sandbox ready timeout",
				zap.String("channel", channel),
				zap.String("app_id", s.AppID()))
		}
		if s.idleSince(cutoff) {
			delete(r.sessions, channel)
			expired++
		}
	}
	r.mu.Unlock()

	if timedOut > 0 || expired > 0 {
		r.publishCounts()
	}
	return timedOut, expired
}

// Run sweeps periodically until ctx is done
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Counts returns the number of sessions per state
func (r *Registry) Counts() map[State]int {
	counts := map[State]int{
		StateLoading:  0,
		StateReady:    0,
		StateErrored:  0,
		StateTimedOut: 0,
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		counts[s.State()]++
	}
	return counts
}

// Len returns the number of tracked sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) publishCounts() {
	if r.config.Recorder == nil {
		return
	}
	for state, n := range r.Counts() {
		r.config.Recorder.SetSandboxSessions(string(state), n)
	}
}
