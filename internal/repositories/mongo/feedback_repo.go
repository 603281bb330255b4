package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/intervue/internal/models"
	"github.com/yoockh/intervue/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type FeedbackRepository interface {
	Upsert(ctx context.Context, fb *models.InterviewFeedback) error
	GetByFeedbackID(ctx context.Context, feedbackID string) (*models.InterviewFeedback, error)
	GetByInterviewID(ctx context.Context, interviewID string) (*models.InterviewFeedback, error)
}

type feedbackRepo struct {
	col *mongo.Collection
}

func NewFeedbackRepo(db *mongo.Database) FeedbackRepository {
	return &feedbackRepo{col: db.Collection("feedback")}
}

// Upsert replaces by feedback_id. The id is derived from the interview, so a
// retried generation lands on the same document instead of duplicating it.
func (r *feedbackRepo) Upsert(ctx context.Context, fb *models.InterviewFeedback) error {
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.ReplaceOne(ctx,
		bson.M{"feedback_id": fb.FeedbackID},
		fb,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (r *feedbackRepo) GetByFeedbackID(ctx context.Context, feedbackID string) (*models.InterviewFeedback, error) {
	var fb models.InterviewFeedback
	err := r.col.FindOne(ctx, bson.M{"feedback_id": feedbackID}).Decode(&fb)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &fb, err
}

func (r *feedbackRepo) GetByInterviewID(ctx context.Context, interviewID string) (*models.InterviewFeedback, error) {
	var fb models.InterviewFeedback
	err := r.col.FindOne(ctx, bson.M{"interview_id": interviewID}).Decode(&fb)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &fb, err
}
