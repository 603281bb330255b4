package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/intervue/internal/models"
	"github.com/yoockh/intervue/internal/utils"
)

type fakeSession struct {
	events chan Event

	mu     sync.Mutex
	err    error
	closed bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan Event, 16)}
}

func (s *fakeSession) Events() <-chan Event { return s.events }

func (s *fakeSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSession) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

func (s *fakeSession) emit(ev Event) { s.events <- ev }

func (s *fakeSession) failWith(err error) {
	s.mu.Lock()
	s.err = err
	closed := s.closed
	s.closed = true
	s.mu.Unlock()
	if !closed {
		close(s.events)
	}
}

type fakeTransport struct {
	mu      sync.Mutex
	session *fakeSession
	openErr error
	opens   int
}

func (t *fakeTransport) Open(ctx context.Context, cfg StartConfig) (TransportSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.opens++
	if t.openErr != nil {
		return nil, t.openErr
	}
	t.session = newFakeSession()
	return t.session, nil
}

func waitForStatus(t *testing.T, c *Controller, want Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Status() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("controller never reached %q, stuck at %q", want, c.Status())
}

func waitForTranscriptLen(t *testing.T, c *Controller, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(c.Transcript()) == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("transcript never reached %d messages, has %d", n, len(c.Transcript()))
}

func TestControllerLifecycle(t *testing.T) {
	t.Run("starts idle", func(t *testing.T) {
		c := NewController(&fakeTransport{}, Options{})
		assert.Equal(t, StatusIdle, c.Status())
		assert.Empty(t, c.Transcript())
	})

	t.Run("start lands on connected", func(t *testing.T) {
		tr := &fakeTransport{}
		c := NewController(tr, Options{})

		require.NoError(t, c.Start(context.Background(), StartConfig{SignedURL: "wss://x"}))
		assert.Equal(t, StatusConnected, c.Status())

		c.End(context.Background())
		assert.Equal(t, StatusDisconnected, c.Status())
	})

	t.Run("status transitions are observed in order", func(t *testing.T) {
		tr := &fakeTransport{}
		var mu sync.Mutex
		var seen []Status
		c := NewController(tr, Options{
			OnStatusChange: func(s Status) {
				mu.Lock()
				seen = append(seen, s)
				mu.Unlock()
			},
		})

		require.NoError(t, c.Start(context.Background(), StartConfig{}))
		c.End(context.Background())

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []Status{StatusConnecting, StatusConnected, StatusDisconnected}, seen)
	})

	t.Run("second start while connected is rejected", func(t *testing.T) {
		tr := &fakeTransport{}
		c := NewController(tr, Options{})

		require.NoError(t, c.Start(context.Background(), StartConfig{}))
		err := c.Start(context.Background(), StartConfig{})
		require.Error(t, err)
		assert.True(t, utils.IsCode(err, utils.CodeConflict))
		assert.Equal(t, 1, tr.opens)

		c.End(context.Background())
	})

	t.Run("handshake failure lands on error", func(t *testing.T) {
		tr := &fakeTransport{openErr: errors.New("dial refused")}
		var gotErr error
		c := NewController(tr, Options{OnError: func(err error) { gotErr = err }})

		err := c.Start(context.Background(), StartConfig{})
		require.Error(t, err)
		assert.True(t, utils.IsCode(err, utils.CodeUnavailable))
		assert.Equal(t, StatusError, c.Status())
		assert.Error(t, gotErr)
	})

	t.Run("transport failure mid-session lands on error", func(t *testing.T) {
		tr := &fakeTransport{}
		c := NewController(tr, Options{})

		require.NoError(t, c.Start(context.Background(), StartConfig{}))
		tr.session.failWith(errors.New("connection reset"))

		waitForStatus(t, c, StatusError)
	})

	t.Run("remote close without error lands on disconnected", func(t *testing.T) {
		tr := &fakeTransport{}
		c := NewController(tr, Options{})

		require.NoError(t, c.Start(context.Background(), StartConfig{}))
		_ = tr.session.Close(context.Background())

		waitForStatus(t, c, StatusDisconnected)
	})

	t.Run("end is a no-op from terminal states", func(t *testing.T) {
		c := NewController(&fakeTransport{}, Options{})
		c.End(context.Background())
		assert.Equal(t, StatusIdle, c.Status())
	})

	t.Run("restart after disconnect clears the transcript", func(t *testing.T) {
		tr := &fakeTransport{}
		c := NewController(tr, Options{})

		require.NoError(t, c.Start(context.Background(), StartConfig{}))
		tr.session.emit(UserTranscriptEvent{Text: "old turn"})
		waitForTranscriptLen(t, c, 1)
		c.End(context.Background())

		require.NoError(t, c.Start(context.Background(), StartConfig{}))
		assert.Empty(t, c.Transcript())
		c.End(context.Background())
	})
}

func TestControllerEvents(t *testing.T) {
	t.Run("events feed the transcript", func(t *testing.T) {
		tr := &fakeTransport{}
		var mu sync.Mutex
		var updates [][]models.Message
		c := NewController(tr, Options{
			OnTranscriptUpdate: func(msgs []models.Message) {
				mu.Lock()
				updates = append(updates, msgs)
				mu.Unlock()
			},
		})

		require.NoError(t, c.Start(context.Background(), StartConfig{}))
		tr.session.emit(AgentResponseEvent{AgentResponse: "Tell me about yourself"})
		tr.session.emit(UserTranscriptEvent{UserTranscript: "I build backends"})

		waitForTranscriptLen(t, c, 2)
		c.End(context.Background())

		snap := c.Transcript()
		assert.Equal(t, models.RoleInterviewer, snap[0].Role)
		assert.Equal(t, models.RoleCandidate, snap[1].Role)

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, updates, 2)
	})

	t.Run("error events surface without ending the session", func(t *testing.T) {
		tr := &fakeTransport{}
		var mu sync.Mutex
		var errs []error
		c := NewController(tr, Options{
			OnError: func(err error) {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			},
		})

		require.NoError(t, c.Start(context.Background(), StartConfig{}))
		tr.session.emit(ErrorEvent{Message: "vendor hiccup"})
		tr.session.emit(UserTranscriptEvent{Text: "still talking"})

		waitForTranscriptLen(t, c, 1)
		assert.Equal(t, StatusConnected, c.Status())

		mu.Lock()
		require.Len(t, errs, 1)
		assert.EqualError(t, errs[0], "vendor hiccup")
		mu.Unlock()

		c.End(context.Background())
	})

	t.Run("observer sees every event", func(t *testing.T) {
		tr := &fakeTransport{}
		var mu sync.Mutex
		var types []EventType
		c := NewController(tr, Options{
			OnEvent: func(ev Event) {
				mu.Lock()
				types = append(types, ev.EventType())
				mu.Unlock()
			},
		})

		require.NoError(t, c.Start(context.Background(), StartConfig{}))
		tr.session.emit(PingEvent{})
		tr.session.emit(UserTranscriptEvent{Text: "hello"})
		waitForTranscriptLen(t, c, 1)
		c.End(context.Background())

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []EventType{TypePing, TypeUserTranscript}, types)
	})
}
