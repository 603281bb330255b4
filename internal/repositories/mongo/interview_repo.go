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

type InterviewRepository interface {
	Create(ctx context.Context, iv *models.Interview) error
	GetByInterviewID(ctx context.Context, interviewID string) (*models.Interview, error)
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.Interview, error)
	SetStatus(ctx context.Context, interviewID, status string) error
	SaveTranscript(ctx context.Context, interviewID, transcript string, messages []models.Message, finishedAt time.Time) error
	SetFeedbackID(ctx context.Context, interviewID, feedbackID string) error
}

type interviewRepo struct {
	col *mongo.Collection
}

func NewInterviewRepo(db *mongo.Database) InterviewRepository {
	return &interviewRepo{col: db.Collection("interviews")}
}

func (r *interviewRepo) Create(ctx context.Context, iv *models.Interview) error {
	if iv.CreatedAt.IsZero() {
		iv.CreatedAt = time.Now().UTC()
	}
	if iv.Status == "" {
		iv.Status = models.InterviewStatusPending
	}
	_, err := r.col.InsertOne(ctx, iv)
	return err
}

func (r *interviewRepo) GetByInterviewID(ctx context.Context, interviewID string) (*models.Interview, error) {
	var iv models.Interview
	err := r.col.FindOne(ctx, bson.M{"interview_id": interviewID}).Decode(&iv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &iv, err
}

func (r *interviewRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]models.Interview, error) {
	if limit <= 0 {
		limit = 50
	}

	cur, err := r.col.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Interview
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *interviewRepo) SetStatus(ctx context.Context, interviewID, status string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"interview_id": interviewID},
		bson.M{"$set": bson.M{"status": status}},
	)
	return err
}

// saveTranscriptUpdate builds the pipeline update for a transcript save. In a
// pipeline $set every value is an aggregation expression, so transcript and
// messages are wrapped in $literal: a candidate saying "$120k" must be stored
// verbatim, not resolved as a field path. finished_at is the one real
// expression, keeping the first value ever written.
func saveTranscriptUpdate(transcript string, messages []models.Message, finishedAt time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"status":     models.InterviewStatusCompleted,
			"transcript": bson.M{"$literal": transcript},
			"messages":   bson.M{"$literal": messages},
			"finished_at": bson.M{"$ifNull": bson.A{
				"$finished_at", finishedAt.UTC(),
			}},
		}}},
	}
}

// SaveTranscript overwrites transcript and messages but keeps the first
// finished_at ever written, so replays of the same save keep the original
// completion time.
func (r *interviewRepo) SaveTranscript(ctx context.Context, interviewID, transcript string, messages []models.Message, finishedAt time.Time) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"interview_id": interviewID},
		saveTranscriptUpdate(transcript, messages, finishedAt),
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *interviewRepo) SetFeedbackID(ctx context.Context, interviewID, feedbackID string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"interview_id": interviewID},
		bson.M{"$set": bson.M{"feedback_id": feedbackID}},
	)
	return err
}
