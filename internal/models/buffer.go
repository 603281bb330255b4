package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ArchiveStatusNone       = "none"
	ArchiveStatusPending    = "pending"
	ArchiveStatusProcessing = "processing"
	ArchiveStatusDone       = "done"
	ArchiveStatusFailed     = "failed"
)

// SessionEvent is one raw transport envelope captured during a live session,
// kept for replay and debugging. Documents expire via the TTL index on
// ExpiresAt.
type SessionEvent struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	InterviewID string             `bson:"interview_id" json:"interview_id"`
	Seq         int64              `bson:"seq" json:"seq"`

	Type string `bson:"type" json:"type"`
	Role string `bson:"role,omitempty" json:"role,omitempty"`
	Text string `bson:"text,omitempty" json:"text,omitempty"`

	// Audio archival, filled in by the archive worker.
	HasAudio          bool    `bson:"has_audio" json:"has_audio"`
	ArchiveStatus     string  `bson:"archive_status" json:"archive_status"` // none|pending|processing|done|failed
	AudioPath         string  `bson:"audio_path,omitempty" json:"audio_path,omitempty"`
	ArchiveText       string  `bson:"archive_text,omitempty" json:"archive_text,omitempty"`
	ArchiveConfidence float64 `bson:"archive_confidence,omitempty" json:"archive_confidence,omitempty"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}
