package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists job records in a Mongo collection keyed by taskId.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(col *mongo.Collection) *MongoStore {
	return &MongoStore{col: col}
}

// EnsureIndexes creates the unique taskId index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "taskId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *MongoStore) Save(ctx context.Context, j *Job) error {
	filter := bson.M{"taskId": j.TaskID}
	opts := options.Update().SetUpsert(true)
	if _, err := s.col.UpdateOne(ctx, filter, bson.M{"$set": j}, opts); err != nil {
		return fmt.Errorf("save job %s: %w", j.TaskID, err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, taskID string) (*Job, error) {
	var j Job
	if err := s.col.FindOne(ctx, bson.M{"taskId": taskID}).Decode(&j); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("load job %s: %w", taskID, err)
	}
	return &j, nil
}

func (s *MongoStore) SetStatus(ctx context.Context, taskID string, st Status, result, errMsg string) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"status":    st,
			"result":    result,
			"error":     errMsg,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := s.col.UpdateOne(ctx, bson.M{"taskId": taskID}, update, opts); err != nil {
		return fmt.Errorf("update job %s: %w", taskID, err)
	}
	return nil
}
