package repository

import (
	"context"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const progressStatsCollection = "progress_stats"

// MongoProgressStatsRepository keeps one document per user, keyed by user id
type MongoProgressStatsRepository struct {
	collection *mongo.Collection
}

func NewMongoProgressStatsRepository(db *mongo.Database) *MongoProgressStatsRepository {
	return &MongoProgressStatsRepository{
		collection: db.Collection(progressStatsCollection),
	}
}

func (r *MongoProgressStatsRepository) Get(ctx context.Context, userID string) (*domain.ProgressStats, error) {
	var stats domain.ProgressStats
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&stats)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.NewNotFoundError("progress stats", userID)
		}
		return nil, domain.NewStorageError("get progress stats", err)
	}
	return &stats, nil
}

// Upsert replaces the whole document; no field survives from the previous version
func (r *MongoProgressStatsRepository) Upsert(ctx context.Context, stats *domain.ProgressStats) error {
	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"_id": stats.UserID},
		stats,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return domain.NewStorageError("upsert progress stats", err)
	}
	return nil
}
