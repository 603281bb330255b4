package realtime

import "encoding/json"

// EventType is the discriminant of the vendor event envelope.
type EventType string

const (
	TypeTranscript     EventType = "transcript"
	TypeUserTranscript EventType = "user_transcript"
	TypeAgentResponse  EventType = "agent_response"
	TypeAudio          EventType = "audio"
	TypeError          EventType = "error"
	TypeInterruption   EventType = "interruption"
	TypePing           EventType = "ping"
)

// envelope is the wire shape. The vendor overloads it across event types:
// the payload text can arrive under several alternative keys, so decoding
// narrows each envelope into exactly one Event variant carrying only the
// fields that variant uses.
type envelope struct {
	Type           string `json:"type"`
	Role           string `json:"role,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
	UserTranscript string `json:"user_transcript,omitempty"`
	AgentResponse  string `json:"agent_response,omitempty"`
	Text           string `json:"text,omitempty"`
	Audio          string `json:"audio,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Event is the closed set of transport events.
type Event interface {
	EventType() EventType
}

type UserTranscriptEvent struct {
	UserTranscript string
	Transcript     string
	Text           string
}

func (UserTranscriptEvent) EventType() EventType { return TypeUserTranscript }

type TranscriptEvent struct {
	Role           string
	UserTranscript string
	Transcript     string
	AgentResponse  string
	Text           string
}

func (TranscriptEvent) EventType() EventType { return TypeTranscript }

type AgentResponseEvent struct {
	AgentResponse string
	Text          string
	Transcript    string
}

func (AgentResponseEvent) EventType() EventType { return TypeAgentResponse }

type AudioEvent struct {
	AgentResponse string
	Text          string
	Transcript    string
	Audio         string // base64 payload
}

func (AudioEvent) EventType() EventType { return TypeAudio }

type ErrorEvent struct {
	Message string
}

func (ErrorEvent) EventType() EventType { return TypeError }

type InterruptionEvent struct{}

func (InterruptionEvent) EventType() EventType { return TypeInterruption }

type PingEvent struct{}

func (PingEvent) EventType() EventType { return TypePing }

// DecodeEvent parses a raw envelope into its Event variant. Envelope types
// outside the known set decode to (nil, nil) and are dropped by the caller.
func DecodeEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}

	switch EventType(env.Type) {
	case TypeUserTranscript:
		return UserTranscriptEvent{
			UserTranscript: env.UserTranscript,
			Transcript:     env.Transcript,
			Text:           env.Text,
		}, nil
	case TypeTranscript:
		return TranscriptEvent{
			Role:           env.Role,
			UserTranscript: env.UserTranscript,
			Transcript:     env.Transcript,
			AgentResponse:  env.AgentResponse,
			Text:           env.Text,
		}, nil
	case TypeAgentResponse:
		return AgentResponseEvent{
			AgentResponse: env.AgentResponse,
			Text:          env.Text,
			Transcript:    env.Transcript,
		}, nil
	case TypeAudio:
		return AudioEvent{
			AgentResponse: env.AgentResponse,
			Text:          env.Text,
			Transcript:    env.Transcript,
			Audio:         env.Audio,
		}, nil
	case TypeError:
		return ErrorEvent{Message: env.Error}, nil
	case TypeInterruption:
		return InterruptionEvent{}, nil
	case TypePing:
		return PingEvent{}, nil
	default:
		return nil, nil
	}
}
