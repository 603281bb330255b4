package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const defaultHandshakeTimeout = 15 * time.Second

// WSTransport dials the vendor's signed WebSocket URL and turns inbound
// frames into Events.
type WSTransport struct {
	Dialer           *websocket.Dialer
	HandshakeTimeout time.Duration
	Logger           *logrus.Logger
}

func NewWSTransport(l *logrus.Logger) *WSTransport {
	return &WSTransport{Logger: l}
}

// sessionInit is the first frame after the handshake; it carries the
// per-session prompt overrides.
type sessionInit struct {
	Type     string        `json:"type"`
	Override *initOverride `json:"conversation_config_override,omitempty"`
}

type initOverride struct {
	Agent initAgent `json:"agent"`
}

type initAgent struct {
	Prompt       initPrompt `json:"prompt"`
	FirstMessage string     `json:"first_message,omitempty"`
}

type initPrompt struct {
	Prompt string `json:"prompt,omitempty"`
}

func (t *WSTransport) Open(ctx context.Context, cfg StartConfig) (TransportSession, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	timeout := t.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, _, err := dialer.DialContext(dialCtx, cfg.SignedURL, nil)
	if err != nil {
		return nil, err
	}

	init := sessionInit{
		Type: "conversation_initiation_client_data",
		Override: &initOverride{
			Agent: initAgent{
				Prompt:       initPrompt{Prompt: cfg.SystemPrompt},
				FirstMessage: cfg.FirstMessage,
			},
		},
	}
	if err := conn.WriteJSON(init); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s := &wsSession{
		conn:   conn,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
		logger: t.Logger,
	}
	go s.readLoop()
	return s, nil
}

type wsSession struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	events chan Event
	done   chan struct{}

	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error

	logger *logrus.Logger
}

func (s *wsSession) Events() <-chan Event { return s.events }

func (s *wsSession) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *wsSession) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Close requests a graceful shutdown and waits for the read loop to drain.
func (s *wsSession) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *wsSession) readLoop() {
	defer close(s.done)
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed.Load() ||
				websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			s.setErr(err)
			return
		}

		ev, derr := DecodeEvent(data)
		if derr != nil {
			if s.logger != nil {
				s.logger.WithError(derr).Warn("undecodable transport frame")
			}
			continue
		}
		if ev == nil {
			continue
		}

		if _, ok := ev.(PingEvent); ok {
			s.writeMu.Lock()
			_ = s.conn.WriteJSON(map[string]string{"type": "pong"})
			s.writeMu.Unlock()
		}

		s.events <- ev
	}
}
