package sandbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func msg(typ MessageType, mutate ...func(*Message)) *Message {
	m := &Message{Version: ProtocolVersion, Channel: "chn_a", Type: typ}
	for _, fn := range mutate {
		fn(m)
	}
	return m
}

func TestSessionTransitions(t *testing.T) {
	tests := []struct {
		name   string
		steps  []*Message
		want   State
		errors int
	}{
		{"ready", []*Message{msg(MessageReady)}, StateReady, 0},
		{"error while loading", []*Message{msg(MessageError)}, StateErrored, 1},
		{"error after ready", []*Message{msg(MessageReady), msg(MessageError)}, StateErrored, 1},
		{"ready after error ignored", []*Message{msg(MessageError), msg(MessageReady)}, StateErrored, 1},
		{"second ready ignored", []*Message{msg(MessageReady), msg(MessageReady)}, StateReady, 0},
		{"console keeps state", []*Message{msg(MessageConsole, func(m *Message) { m.Level = "log" })}, StateLoading, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("chn_a", "app_1", 10*time.Second, t0)
			for i, m := range tt.steps {
				_, err := s.Handle(m, t0.Add(time.Duration(i+1)*time.Millisecond))
				require.NoError(t, err)
			}
			info := s.Info()
			assert.Equal(t, tt.want, info.State)
			assert.Len(t, info.Errors, tt.errors)
		})
	}
}

func TestSessionReadyAfterErrorReportsIgnored(t *testing.T) {
	s := NewSession("chn_a", "", time.Second, t0)
	_, _ = s.Handle(msg(MessageError), t0)

	tr, err := s.Handle(msg(MessageReady), t0)
	require.NoError(t, err)
	assert.True(t, tr.Ignored)
	assert.False(t, tr.Changed())
}

func TestSessionChannelMismatch(t *testing.T) {
	s := NewSession("chn_a", "", time.Second, t0)
	_, err := s.Handle(msg(MessageReady, func(m *Message) { m.Channel = "chn_b" }), t0)
	assert.ErrorIs(t, err, ErrChannelMismatch)
	assert.Equal(t, StateLoading, s.State())
}

func TestSessionTimeout(t *testing.T) {
	s := NewSession("chn_a", "", 10*time.Second, t0)

	assert.False(t, s.CheckTimeout(t0.Add(9*time.Second)))
	assert.True(t, s.CheckTimeout(t0.Add(10*time.Second)))
	assert.Equal(t, StateTimedOut, s.State())
	assert.False(t, s.CheckTimeout(t0.Add(20*time.Second)), "only once")

	tr, err := s.Handle(msg(MessageReady), t0.Add(11*time.Second))
	require.NoError(t, err)
	assert.True(t, tr.Ignored)
	assert.Equal(t, StateTimedOut, s.State())
}

func TestSessionReadyBeatsTimeout(t *testing.T) {
	s := NewSession("chn_a", "", 10*time.Second, t0)
	_, _ = s.Handle(msg(MessageReady, func(m *Message) { m.Capabilities = []string{"console"} }), t0.Add(250*time.Millisecond))

	assert.False(t, s.CheckTimeout(t0.Add(time.Minute)))
	info := s.Info()
	require.NotNil(t, info.ReadyAt)
	assert.Equal(t, 250*time.Millisecond, info.LoadTime)
	assert.Equal(t, []string{"console"}, info.Capabilities)
}

func TestSessionInteractionTime(t *testing.T) {
	s := NewSession("chn_a", "", time.Second, t0)
	_, _ = s.Handle(msg(MessageReady), t0)

	start := func(m *Message) { m.Action = ActionStart }
	end := func(m *Message) { m.Action = ActionEnd }

	_, _ = s.Handle(msg(MessageInteraction, start), t0.Add(1*time.Second))
	_, _ = s.Handle(msg(MessageInteraction, start), t0.Add(2*time.Second))
	assert.True(t, s.Info().Interacting)
	_, _ = s.Handle(msg(MessageInteraction, end), t0.Add(4*time.Second))
	_, _ = s.Handle(msg(MessageInteraction, end), t0.Add(9*time.Second))

	_, _ = s.Handle(msg(MessageInteraction, start), t0.Add(10*time.Second))
	_, _ = s.Handle(msg(MessageError), t0.Add(11*time.Second))

	info := s.Info()
	assert.False(t, info.Interacting)
	assert.Equal(t, 2, info.Interactions)
	assert.Equal(t, 4*time.Second, info.InteractionTime)
}

func TestSessionBoundsHistory(t *testing.T) {
	s := NewSession("chn_a", "", time.Second, t0)
	for i := 0; i < maxSessionConsole+10; i++ {
		_, _ = s.Handle(msg(MessageConsole, func(m *Message) {
			m.Level = "log"
			m.Args = []string{"a", "b"}
		}), t0)
	}
	for i := 0; i < maxSessionErrors+5; i++ {
		_, _ = s.Handle(msg(MessageError), t0)
	}

	info := s.Info()
	assert.Len(t, info.Console, maxSessionConsole)
	assert.Equal(t, "a b", info.Console[0].Text)
	assert.Len(t, info.Errors, maxSessionErrors)
}
