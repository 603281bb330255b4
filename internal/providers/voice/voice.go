package voice

import "context"

// Provider issues signed, time-limited session handles for the realtime
// conversational-voice vendor. The handle is a WebSocket URL consumed by the
// session transport.
type Provider interface {
	SignedSessionURL(ctx context.Context) (string, error)
}
