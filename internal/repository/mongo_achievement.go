package repository

import (
	"context"
	"time"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const userAchievementsCollection = "user_achievements"

type MongoAchievementRepository struct {
	catalog  *mongo.Collection
	unlocked *mongo.Collection
}

func NewMongoAchievementRepository(db *mongo.Database) *MongoAchievementRepository {
	unlocked := db.Collection(userAchievementsCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// One unlock row per (user, achievement)
	_, _ = unlocked.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "achievement_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "unlocked_at", Value: -1}}},
	})

	return &MongoAchievementRepository{
		catalog:  db.Collection("achievements"),
		unlocked: unlocked,
	}
}

func (r *MongoAchievementRepository) ListCatalog(ctx context.Context) ([]*domain.Achievement, error) {
	return r.findCatalog(ctx, bson.M{})
}

func (r *MongoAchievementRepository) UpsertCatalogEntry(ctx context.Context, a *domain.Achievement) error {
	_, err := r.catalog.ReplaceOne(ctx, bson.M{"_id": a.ID}, a, options.Replace().SetUpsert(true))
	if err != nil {
		return domain.NewStorageError("upsert achievement", err)
	}
	return nil
}

// ListLocked is the anti-join of the catalog against the user's unlock rows
func (r *MongoAchievementRepository) ListLocked(ctx context.Context, userID string) ([]*domain.Achievement, error) {
	ids, err := r.unlocked.Distinct(ctx, "achievement_id", bson.M{"user_id": userID})
	if err != nil {
		return nil, domain.NewStorageError("list unlocked ids", err)
	}
	if ids == nil {
		ids = []interface{}{}
	}
	return r.findCatalog(ctx, bson.M{"_id": bson.M{"$nin": ids}})
}

func (r *MongoAchievementRepository) ListUnlocked(ctx context.Context, userID string) ([]*domain.UnlockedAchievement, error) {
	opts := options.Find().SetSort(bson.D{{Key: "unlocked_at", Value: -1}})
	cursor, err := r.unlocked.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, domain.NewStorageError("list unlocked achievements", err)
	}
	defer cursor.Close(ctx)

	rows := []*domain.UnlockedAchievement{}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, domain.NewStorageError("decode unlocked achievements", err)
	}
	return rows, nil
}

func (r *MongoAchievementRepository) Unlock(ctx context.Context, u *domain.UnlockedAchievement) error {
	result, err := r.unlocked.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return domain.NewStorageError("unlock achievement", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid.Hex()
	}
	return nil
}

func (r *MongoAchievementRepository) findCatalog(ctx context.Context, filter bson.M) ([]*domain.Achievement, error) {
	opts := options.Find().SetSort(bson.D{{Key: "requirement_value", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.catalog.Find(ctx, filter, opts)
	if err != nil {
		return nil, domain.NewStorageError("list achievements", err)
	}
	defer cursor.Close(ctx)

	achievements := []*domain.Achievement{}
	if err := cursor.All(ctx, &achievements); err != nil {
		return nil, domain.NewStorageError("decode achievements", err)
	}
	return achievements, nil
}
