package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// TurnRecord is the relational copy of one live interview turn, written as
// the session runs. The authoritative message log lives on the Interview
// document; this table serves per-turn queries and analytics.
type TurnRecord struct {
	ID          string           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID      string           `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	InterviewID string           `gorm:"column:interview_id;type:uuid;index" json:"interview_id"`
	Role        string           `gorm:"column:role;type:text" json:"role"` // "user" | "assistant"
	Content     string           `gorm:"column:content;type:text" json:"content"`
	Embedding   *pgvector.Vector `gorm:"column:embedding;type:vector(768)" json:"embedding,omitempty"`
	Timestamp   time.Time        `gorm:"column:timestamp;type:timestamptz;index" json:"timestamp"`
	Metadata    datatypes.JSON   `gorm:"column:metadata;type:jsonb" json:"metadata"`
}

func (TurnRecord) TableName() string { return "interview_turns" }
