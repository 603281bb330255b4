package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleCandidate   = "user"
	RoleInterviewer = "assistant"
)

const (
	InterviewStatusPending    = "pending"
	InterviewStatusInProgress = "in-progress"
	InterviewStatusCompleted  = "completed"
)

// Message is one classified turn of an interview transcript.
// Ordering is arrival order; a message is never edited after capture.
type Message struct {
	Role      string    `bson:"role" json:"role"` // "user" | "assistant"
	Content   string    `bson:"content" json:"content"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

type Interview struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	InterviewID string             `bson:"interview_id" json:"id"` // uuid v4
	UserID      string             `bson:"user_id" json:"user_id"`

	Role      string   `bson:"role" json:"role"`   // target position, ex: "Frontend Developer"
	Level     string   `bson:"level" json:"level"` // junior|mid|senior
	Techstack string   `bson:"techstack" json:"techstack"`
	Type      string   `bson:"type" json:"type"` // generate|interview
	Questions []string `bson:"questions" json:"questions"`

	Status string `bson:"status" json:"status"` // pending|in-progress|completed

	// Set exactly once, when the transcript is saved.
	Transcript string     `bson:"transcript,omitempty" json:"transcript,omitempty"`
	Messages   []Message  `bson:"messages,omitempty" json:"messages,omitempty"`
	FinishedAt *time.Time `bson:"finished_at,omitempty" json:"finished_at,omitempty"`

	FeedbackID string `bson:"feedback_id,omitempty" json:"feedback_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
