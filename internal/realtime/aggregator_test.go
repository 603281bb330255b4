package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/intervue/internal/models"
)

func TestClassify(t *testing.T) {
	t.Run("user transcript prefers user_transcript field", func(t *testing.T) {
		msg, ok := Classify(UserTranscriptEvent{
			UserTranscript: "primary",
			Transcript:     "secondary",
			Text:           "tertiary",
		})
		require.True(t, ok)
		assert.Equal(t, models.RoleCandidate, msg.Role)
		assert.Equal(t, "primary", msg.Content)
	})

	t.Run("user transcript falls back through alternatives", func(t *testing.T) {
		msg, ok := Classify(UserTranscriptEvent{Text: "only text"})
		require.True(t, ok)
		assert.Equal(t, "only text", msg.Content)
	})

	t.Run("transcript event routes by role", func(t *testing.T) {
		msg, ok := Classify(TranscriptEvent{Role: models.RoleCandidate, Transcript: "I think so"})
		require.True(t, ok)
		assert.Equal(t, models.RoleCandidate, msg.Role)

		msg, ok = Classify(TranscriptEvent{Role: models.RoleInterviewer, Text: "Tell me more"})
		require.True(t, ok)
		assert.Equal(t, models.RoleInterviewer, msg.Role)
		assert.Equal(t, "Tell me more", msg.Content)
	})

	t.Run("transcript event with unknown role is dropped", func(t *testing.T) {
		_, ok := Classify(TranscriptEvent{Role: "system", Text: "ignored"})
		assert.False(t, ok)
	})

	t.Run("agent response prefers agent_response field", func(t *testing.T) {
		msg, ok := Classify(AgentResponseEvent{
			AgentResponse: "answer",
			Text:          "other",
		})
		require.True(t, ok)
		assert.Equal(t, models.RoleInterviewer, msg.Role)
		assert.Equal(t, "answer", msg.Content)
	})

	t.Run("audio with caption text classifies as interviewer", func(t *testing.T) {
		msg, ok := Classify(AudioEvent{Text: "spoken words", Audio: "QUJD"})
		require.True(t, ok)
		assert.Equal(t, models.RoleInterviewer, msg.Role)
		assert.Equal(t, "spoken words", msg.Content)
	})

	t.Run("payload is trimmed", func(t *testing.T) {
		msg, ok := Classify(UserTranscriptEvent{Text: "  padded  "})
		require.True(t, ok)
		assert.Equal(t, "padded", msg.Content)
	})

	t.Run("whitespace-only payload is discarded", func(t *testing.T) {
		_, ok := Classify(UserTranscriptEvent{Text: "   "})
		assert.False(t, ok)

		_, ok = Classify(AgentResponseEvent{})
		assert.False(t, ok)
	})

	t.Run("non-message events are discarded", func(t *testing.T) {
		for _, ev := range []Event{ErrorEvent{Message: "x"}, InterruptionEvent{}, PingEvent{}} {
			_, ok := Classify(ev)
			assert.False(t, ok, "expected %T to be discarded", ev)
		}
	})
}

func TestAggregator(t *testing.T) {
	t.Run("preserves arrival order", func(t *testing.T) {
		a := NewAggregator(nil)
		a.Ingest(UserTranscriptEvent{Text: "first"})
		a.Ingest(AgentResponseEvent{AgentResponse: "second"})
		a.Ingest(UserTranscriptEvent{Text: "third"})

		snap := a.Snapshot()
		require.Len(t, snap, 3)
		assert.Equal(t, "first", snap[0].Content)
		assert.Equal(t, "second", snap[1].Content)
		assert.Equal(t, "third", snap[2].Content)
	})

	t.Run("discarded events leave no trace", func(t *testing.T) {
		a := NewAggregator(nil)
		a.Ingest(PingEvent{})
		a.Ingest(UserTranscriptEvent{Text: "  "})
		a.Ingest(ErrorEvent{Message: "x"})

		assert.Equal(t, 0, a.Len())
	})

	t.Run("publishes a snapshot per appended message", func(t *testing.T) {
		var updates [][]models.Message
		a := NewAggregator(func(msgs []models.Message) {
			updates = append(updates, msgs)
		})

		a.Ingest(UserTranscriptEvent{Text: "one"})
		a.Ingest(PingEvent{}) // no update
		a.Ingest(AgentResponseEvent{AgentResponse: "two"})

		require.Len(t, updates, 2)
		assert.Len(t, updates[0], 1)
		assert.Len(t, updates[1], 2)
	})

	t.Run("snapshots are stable while the log grows", func(t *testing.T) {
		a := NewAggregator(nil)
		a.Ingest(UserTranscriptEvent{Text: "one"})

		snap := a.Snapshot()
		a.Ingest(AgentResponseEvent{AgentResponse: "two"})

		require.Len(t, snap, 1)
		assert.Equal(t, "one", snap[0].Content)
	})

	t.Run("messages are timestamped at capture", func(t *testing.T) {
		a := NewAggregator(nil)
		a.Ingest(UserTranscriptEvent{Text: "hello"})

		snap := a.Snapshot()
		require.Len(t, snap, 1)
		assert.False(t, snap[0].Timestamp.IsZero())
	})

	t.Run("reset clears the log", func(t *testing.T) {
		a := NewAggregator(nil)
		a.Ingest(UserTranscriptEvent{Text: "hello"})
		a.Reset()
		assert.Equal(t, 0, a.Len())
	})
}
