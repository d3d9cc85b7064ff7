package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCompletionRepository is the event store: completions plus their flattened history rows.
type MongoCompletionRepository struct {
	client      *mongo.Client
	completions *mongo.Collection
	history     *mongo.Collection
	sessions    *mongo.Collection
}

func NewMongoCompletionRepository(db *mongo.Database) *MongoCompletionRepository {
	completions := db.Collection("workout_completions")
	history := db.Collection("exercise_history")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = completions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "completed_at", Value: -1}}},
		{
			// Only completions submitted with a key take part in dedup
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "idempotency_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
				"idempotency_key": bson.M{"$exists": true},
			}),
		},
	})
	_, _ = history.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "completed_at", Value: 1}, {Key: "position", Value: 1}}},
		{Keys: bson.D{{Key: "completion_id", Value: 1}}},
	})

	return &MongoCompletionRepository{
		client:      db.Client(),
		completions: completions,
		history:     history,
		sessions:    db.Collection(sessionsCollection),
	}
}

// Append writes the completion, its history rows and the session counter bump in one transaction.
func (r *MongoCompletionRepository) Append(ctx context.Context, record *domain.CompletionRecord, entries []*domain.ExerciseHistoryEntry) error {
	session, err := r.client.StartSession()
	if err != nil {
		return domain.NewStorageError("start session", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.completions.InsertOne(sc, record); err != nil {
			return nil, err
		}

		if len(entries) > 0 {
			docs := make([]interface{}, len(entries))
			for i, e := range entries {
				docs[i] = e
			}
			if _, err := r.history.InsertMany(sc, docs); err != nil {
				return nil, err
			}
		}

		if record.Source != domain.SourceSession {
			return nil, nil
		}

		oid, err := primitive.ObjectIDFromHex(record.SessionID)
		if err != nil {
			return nil, domain.NewNotFoundError("workout session", record.SessionID)
		}
		res, err := r.sessions.UpdateOne(sc,
			bson.M{"_id": oid, "user_id": record.UserID},
			bson.M{
				"$inc": bson.M{"completion_count": 1},
				"$set": bson.M{"last_completed_at": record.CompletedAt, "updated_at": record.CompletedAt},
			},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			// Session deleted between lookup and append
			return nil, domain.NewNotFoundError("workout session", record.SessionID)
		}
		return nil, nil
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return domain.NewStorageError("append completion", err)
	}
	return nil
}

func (r *MongoCompletionRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.CompletionRecord, error) {
	var record domain.CompletionRecord
	err := r.completions.FindOne(ctx, bson.M{"user_id": userID, "idempotency_key": key}).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.NewNotFoundError("completion", key)
		}
		return nil, domain.NewStorageError("get completion by key", err)
	}
	return &record, nil
}

func (r *MongoCompletionRepository) ListByUser(ctx context.Context, userID string, limit int64) ([]*domain.CompletionRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "completed_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.completions.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, domain.NewStorageError("list completions", err)
	}
	defer cursor.Close(ctx)

	records := []*domain.CompletionRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, domain.NewStorageError("decode completions", err)
	}
	return records, nil
}

func (r *MongoCompletionRepository) ListHistoryByUser(ctx context.Context, userID string) ([]*domain.ExerciseHistoryEntry, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "completed_at", Value: 1},
		{Key: "completion_id", Value: 1},
		{Key: "position", Value: 1},
	})

	cursor, err := r.history.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, domain.NewStorageError("list history", err)
	}
	defer cursor.Close(ctx)

	entries := []*domain.ExerciseHistoryEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, domain.NewStorageError("decode history", err)
	}
	return entries, nil
}

// ListUserIDs returns every user with at least one completion.
func (r *MongoCompletionRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	values, err := r.completions.Distinct(ctx, "user_id", bson.M{})
	if err != nil {
		return nil, domain.NewStorageError("list completion users", err)
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
