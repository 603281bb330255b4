package realtime

import "context"

// StartConfig carries what a transport needs to open one vendor session.
// The signed URL comes from the vendor's handle-issuance endpoint and is
// time-limited and single-use.
type StartConfig struct {
	SignedURL    string
	SystemPrompt string
	FirstMessage string
}

// Transport opens realtime sessions against the conversational-voice vendor.
type Transport interface {
	Open(ctx context.Context, cfg StartConfig) (TransportSession, error)
}

// TransportSession is one open connection. Events is the single producer
// channel feeding the session controller; it closes when the connection
// ends, and Err reports the terminal failure, if any, once Events is closed.
type TransportSession interface {
	Events() <-chan Event
	Close(ctx context.Context) error
	Err() error
}
