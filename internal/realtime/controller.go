package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/intervue/internal/models"
	"github.com/yoockh/intervue/internal/utils"
)

// Status is the session connection state.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

// Options wires subscriber hooks into a Controller. All hooks are optional.
type Options struct {
	OnStatusChange     func(Status)
	OnTranscriptUpdate func([]models.Message)
	OnError            func(error)

	// OnEvent observes every decoded transport event, after the aggregator
	// has consumed it and before any status change derived from it.
	OnEvent func(Event)

	Logger *logrus.Logger
}

// Controller owns the connection state machine for one live voice session
// and feeds transport events into its transcript aggregator. Construct one
// per session; there is no shared process-wide instance.
//
// State machine: idle -> connecting -> connected -> {disconnected, error},
// with connecting -> error on handshake failure. disconnected and error are
// terminal for the running session; a later Start begins a fresh one.
type Controller struct {
	transport Transport
	opts      Options
	agg       *Aggregator

	mu      sync.Mutex
	status  Status
	session TransportSession
	runDone chan struct{}
}

func NewController(t Transport, opts Options) *Controller {
	c := &Controller{
		transport: t,
		opts:      opts,
		status:    StatusIdle,
	}
	c.agg = NewAggregator(opts.OnTranscriptUpdate)
	return c
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Transcript returns a snapshot of the aggregated message log.
func (c *Controller) Transcript() []models.Message {
	return c.agg.Snapshot()
}

// Start opens the vendor session. It is rejected while a session is
// connecting or connected; calling it from a terminal state begins a fresh
// session and clears the previous transcript.
func (c *Controller) Start(ctx context.Context, cfg StartConfig) error {
	const op = "SessionController.Start"

	c.mu.Lock()
	if c.status == StatusConnecting || c.status == StatusConnected {
		c.mu.Unlock()
		return utils.E(utils.CodeConflict, op, "a session is already active", nil)
	}
	c.agg.Reset()
	c.setStatusLocked(StatusConnecting)
	c.mu.Unlock()
	c.notifyStatus(StatusConnecting)

	sess, err := c.transport.Open(ctx, cfg)
	if err != nil {
		c.mu.Lock()
		terminal := c.status != StatusConnecting // End raced the handshake
		if !terminal {
			c.setStatusLocked(StatusError)
		}
		c.mu.Unlock()
		if terminal {
			return nil
		}
		c.notifyStatus(StatusError)
		c.notifyError(err)
		return utils.E(utils.CodeUnavailable, op, "voice session handshake failed", err)
	}

	c.mu.Lock()
	if c.status != StatusConnecting {
		// End was called while the handshake was in flight; the state is
		// already disconnected, so discard the fresh connection.
		c.mu.Unlock()
		_ = sess.Close(context.Background())
		return nil
	}
	c.session = sess
	done := make(chan struct{})
	c.runDone = done
	c.setStatusLocked(StatusConnected)
	c.mu.Unlock()
	c.notifyStatus(StatusConnected)

	go c.run(sess, done)
	return nil
}

// End closes the session. It is a no-op when nothing is connecting or
// connected, and it always lands on disconnected: a transport error during
// teardown is surfaced through OnError, never returned, so cleanup paths can
// call End unconditionally.
func (c *Controller) End(ctx context.Context) {
	c.mu.Lock()
	if c.status != StatusConnecting && c.status != StatusConnected {
		c.mu.Unlock()
		return
	}
	sess := c.session
	c.session = nil
	done := c.runDone
	c.runDone = nil
	c.setStatusLocked(StatusDisconnected)
	c.mu.Unlock()
	c.notifyStatus(StatusDisconnected)

	if sess == nil {
		// still handshaking; Start discards the connection when it lands
		return
	}
	if err := sess.Close(ctx); err != nil {
		c.notifyError(err)
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
}

func (c *Controller) run(sess TransportSession, done chan struct{}) {
	defer close(done)

	for ev := range sess.Events() {
		// aggregator first, so subscribers never observe a status change
		// ahead of the transcript state the same event implies
		c.agg.Ingest(ev)

		if c.opts.OnEvent != nil {
			c.opts.OnEvent(ev)
		}
		if errEv, ok := ev.(ErrorEvent); ok {
			c.notifyError(errors.New(errEv.Message))
		}
	}

	err := sess.Err()

	c.mu.Lock()
	if c.status != StatusConnected {
		// End already resolved the terminal state
		c.mu.Unlock()
		return
	}
	next := StatusDisconnected
	if err != nil {
		next = StatusError
	}
	c.session = nil
	c.runDone = nil
	c.setStatusLocked(next)
	c.mu.Unlock()
	c.notifyStatus(next)

	if err != nil {
		c.notifyError(err)
	}
}

func (c *Controller) setStatusLocked(s Status) {
	c.status = s
}

func (c *Controller) notifyStatus(s Status) {
	if c.opts.Logger != nil {
		c.opts.Logger.WithField("status", string(s)).Debug("session status")
	}
	if c.opts.OnStatusChange != nil {
		c.opts.OnStatusChange(s)
	}
}

func (c *Controller) notifyError(err error) {
	if c.opts.Logger != nil {
		c.opts.Logger.WithError(err).Warn("session error")
	}
	if c.opts.OnError != nil {
		c.opts.OnError(err)
	}
}
