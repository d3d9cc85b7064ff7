package repository

import (
	"context"
	"time"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoPersonalRecordRepository struct {
	collection *mongo.Collection
}

func NewMongoPersonalRecordRepository(db *mongo.Database) *MongoPersonalRecordRepository {
	coll := db.Collection("personal_records")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "exercise_name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "times_performed", Value: -1}}},
	})

	return &MongoPersonalRecordRepository{
		collection: coll,
	}
}

func (r *MongoPersonalRecordRepository) Get(ctx context.Context, userID, exerciseName string) (*domain.PersonalRecord, error) {
	var pr domain.PersonalRecord
	err := r.collection.FindOne(ctx, bson.M{
		"user_id":       userID,
		"exercise_name": exerciseName,
	}).Decode(&pr)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.NewNotFoundError("personal record", exerciseName)
		}
		return nil, domain.NewStorageError("get personal record", err)
	}
	return &pr, nil
}

// Save replaces the record for (user, exercise), inserting it on first performance
func (r *MongoPersonalRecordRepository) Save(ctx context.Context, pr *domain.PersonalRecord) error {
	pr.UpdatedAt = time.Now().UTC()

	// _id is assigned by the server on insert and kept on replace
	doc := *pr
	doc.ID = ""

	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"user_id": pr.UserID, "exercise_name": pr.ExerciseName},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return domain.NewStorageError("save personal record", err)
	}
	return nil
}

func (r *MongoPersonalRecordRepository) ListByUser(ctx context.Context, userID string) ([]*domain.PersonalRecord, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "times_performed", Value: -1},
		{Key: "exercise_name", Value: 1},
	})
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, domain.NewStorageError("list personal records", err)
	}
	defer cursor.Close(ctx)

	records := []*domain.PersonalRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, domain.NewStorageError("decode personal records", err)
	}
	return records, nil
}

// DeleteByUser drops every record of the user, used before a rebuild from history
func (r *MongoPersonalRecordRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return domain.NewStorageError("delete personal records", err)
	}
	return nil
}
