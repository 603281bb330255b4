package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Rubric category names. Every valid feedback record scores all five.
const (
	CategoryCommunication      = "Communication"
	CategoryTechnicalKnowledge = "Technical Knowledge"
	CategoryProblemSolving     = "Problem Solving"
	CategoryCulturalFit        = "Cultural Fit"
	CategoryConfidenceClarity  = "Confidence & Clarity"
)

var RubricCategories = []string{
	CategoryCommunication,
	CategoryTechnicalKnowledge,
	CategoryProblemSolving,
	CategoryCulturalFit,
	CategoryConfidenceClarity,
}

type CategoryScore struct {
	Name    string  `bson:"name" json:"name"`
	Score   float64 `bson:"score" json:"score"` // 0..100
	Comment string  `bson:"comment" json:"comment"`
}

type InterviewFeedback struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	FeedbackID string             `bson:"feedback_id" json:"id"` // deterministic, derived from interview_id

	InterviewID string `bson:"interview_id" json:"interview_id"`
	UserID      string `bson:"user_id" json:"user_id"`

	TotalScore          float64         `bson:"total_score" json:"totalScore"` // 0..100
	CategoryScores      []CategoryScore `bson:"category_scores" json:"categoryScores"`
	Strengths           []string        `bson:"strengths" json:"strengths"`
	AreasForImprovement []string        `bson:"areas_for_improvement" json:"areasForImprovement"`
	OverallFeedback     string          `bson:"overall_feedback" json:"overallFeedback"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
