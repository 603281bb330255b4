package mongo

import (
	"context"
	"time"

	"github.com/yoockh/intervue/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BufferRepository interface {
	InsertEvent(ctx context.Context, ev *models.SessionEvent) error
	MarkArchive(ctx context.Context, interviewID string, seq int64, status, audioPath, text string, confidence float64) error
	ListByInterview(ctx context.Context, interviewID string, limit int64) ([]models.SessionEvent, error)
}

type bufferRepo struct {
	col *mongo.Collection
}

func NewBufferRepo(db *mongo.Database) BufferRepository {
	return &bufferRepo{col: db.Collection("session_events")}
}

func (r *bufferRepo) InsertEvent(ctx context.Context, ev *models.SessionEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.ExpiresAt.IsZero() {
		ev.ExpiresAt = ev.Timestamp.Add(72 * time.Hour)
	}
	if ev.ArchiveStatus == "" {
		ev.ArchiveStatus = models.ArchiveStatusNone
	}
	_, err := r.col.InsertOne(ctx, ev)
	return err
}

func (r *bufferRepo) MarkArchive(ctx context.Context, interviewID string, seq int64, status, audioPath, text string, confidence float64) error {
	set := bson.M{"archive_status": status}
	if audioPath != "" {
		set["audio_path"] = audioPath
	}
	if text != "" {
		set["archive_text"] = text
		set["archive_confidence"] = confidence
	}

	_, err := r.col.UpdateOne(ctx,
		bson.M{"interview_id": interviewID, "seq": seq},
		bson.M{"$set": set},
	)
	return err
}

func (r *bufferRepo) ListByInterview(ctx context.Context, interviewID string, limit int64) ([]models.SessionEvent, error) {
	if limit <= 0 {
		limit = 500
	}

	cur, err := r.col.Find(ctx,
		bson.M{"interview_id": interviewID},
		options.Find().
			SetSort(bson.D{{Key: "seq", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.SessionEvent
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
