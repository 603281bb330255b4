package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// Profile is the candidate-facing profile. FullName is interpolated into the
// interviewer prompt and opening message of a live session.
type Profile struct {
	UserID   string `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	FullName string `gorm:"column:full_name;type:text" json:"full_name"`
	Headline string `gorm:"column:headline;type:text" json:"headline"`

	ResumeText string `gorm:"column:resume_text;type:text" json:"resume_text"`

	Skills pq.StringArray `gorm:"column:skills;type:text[]" json:"skills"`

	// JSONB, structure left to the client
	Experience  datatypes.JSON `gorm:"column:experience;type:jsonb" json:"experience"`
	Preferences datatypes.JSON `gorm:"column:preferences;type:jsonb" json:"preferences"`

	// NULL until an embedding is computed; a zero-length vector is not a
	// valid column value.
	ResumeEmbedding *pgvector.Vector `gorm:"column:resume_embedding;type:vector(768)" json:"resume_embedding,omitempty"`

	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
