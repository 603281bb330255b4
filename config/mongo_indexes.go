package config

import (
	"context"
	"errors"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureMongoIndexes() error {
	if MongoClient == nil {
		return errors.New("MongoClient is nil; call InitMongo() first")
	}

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "intervue"
	}
	db := MongoClient.Database(dbName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// session_events indexes
	events := db.Collection("session_events")
	_, err := events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		// 1) TTL index: expire at ExpiresAt (must be Date)
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetName("ttl_expires_at").
				SetExpireAfterSeconds(0),
		},
		// 2) Ensure no duplicate seq per interview
		{
			Keys: bson.D{{Key: "interview_id", Value: 1}, {Key: "seq", Value: 1}},
			Options: options.Index().
				SetName("uniq_interview_seq").
				SetUnique(true),
		},
		// 3) Query helper
		{
			Keys:    bson.D{{Key: "interview_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("by_interview_ts"),
		},
	})
	if err != nil {
		return err
	}

	// interviews indexes
	interviews := db.Collection("interviews")
	_, err = interviews.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "interview_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_interview_id").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_user_created"),
		},
	})
	if err != nil {
		return err
	}

	// feedback indexes
	feedback := db.Collection("feedback")
	_, err = feedback.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "feedback_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_feedback_id").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "interview_id", Value: 1}},
			Options: options.Index().SetName("by_interview"),
		},
	})
	return err
}
