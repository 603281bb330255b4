package realtime

import (
	"strings"
	"sync"
	"time"

	"github.com/yoockh/intervue/internal/models"
)

// Classify maps a transport event to at most one transcript message.
// The text payload is the first non-empty candidate field for the variant;
// whitespace-only payloads are discarded so no empty turn ever enters the log.
func Classify(ev Event) (models.Message, bool) {
	var role, text string

	switch e := ev.(type) {
	case UserTranscriptEvent:
		role = models.RoleCandidate
		text = firstNonEmpty(e.UserTranscript, e.Transcript, e.Text)
	case TranscriptEvent:
		switch e.Role {
		case models.RoleCandidate:
			role = models.RoleCandidate
			text = firstNonEmpty(e.UserTranscript, e.Transcript, e.Text)
		case models.RoleInterviewer:
			role = models.RoleInterviewer
			text = firstNonEmpty(e.AgentResponse, e.Text, e.Transcript)
		default:
			return models.Message{}, false
		}
	case AgentResponseEvent:
		role = models.RoleInterviewer
		text = firstNonEmpty(e.AgentResponse, e.Text, e.Transcript)
	case AudioEvent:
		role = models.RoleInterviewer
		text = firstNonEmpty(e.AgentResponse, e.Text, e.Transcript)
	default:
		// error, interruption, ping
		return models.Message{}, false
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, false
	}
	return models.Message{Role: role, Content: text}, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Aggregator reduces transport events into an ordered, append-only message
// log. Subscribers receive a fresh copy on every append, never a reference to
// the live slice, so a snapshot is stable while further events arrive.
type Aggregator struct {
	mu       sync.Mutex
	messages []models.Message
	onUpdate func([]models.Message)
	now      func() time.Time
}

func NewAggregator(onUpdate func([]models.Message)) *Aggregator {
	return &Aggregator{onUpdate: onUpdate, now: time.Now}
}

// Ingest classifies and, when the event carries a turn, appends it and
// publishes a snapshot. Returns the appended message.
func (a *Aggregator) Ingest(ev Event) (models.Message, bool) {
	msg, ok := Classify(ev)
	if !ok {
		return models.Message{}, false
	}
	a.Append(msg)
	return msg, true
}

// Append records a message with a capture-time timestamp (unless the caller
// already stamped it) and notifies the subscriber with an immutable snapshot.
func (a *Aggregator) Append(msg models.Message) {
	a.mu.Lock()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = a.now().UTC()
	}
	a.messages = append(a.messages, msg)
	snap := a.snapshotLocked()
	a.mu.Unlock()

	if a.onUpdate != nil {
		a.onUpdate(snap)
	}
}

// Snapshot returns a copy of the current log.
func (a *Aggregator) Snapshot() []models.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.messages)
}

// Reset clears the log for a fresh session.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.messages = nil
	a.mu.Unlock()
}

func (a *Aggregator) snapshotLocked() []models.Message {
	out := make([]models.Message, len(a.messages))
	copy(out, a.messages)
	return out
}
