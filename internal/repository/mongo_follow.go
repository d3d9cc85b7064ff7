package repository

import (
	"context"
	"time"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const followsCollection = "follows"

type MongoFollowRepository struct {
	collection *mongo.Collection
}

func NewMongoFollowRepository(db *mongo.Database) *MongoFollowRepository {
	coll := db.Collection(followsCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "follower_id", Value: 1}, {Key: "following_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "following_id", Value: 1}}},
	})

	return &MongoFollowRepository{collection: coll}
}

func (r *MongoFollowRepository) Toggle(ctx context.Context, followerID, followingID string) (bool, error) {
	filter := bson.M{"follower_id": followerID, "following_id": followingID}

	res, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, domain.NewStorageError("unfollow", err)
	}
	if res.DeletedCount > 0 {
		return false, nil
	}

	_, err = r.collection.InsertOne(ctx, domain.Follow{
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return false, domain.NewStorageError("follow", err)
	}
	return true, nil
}

func (r *MongoFollowRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"follower_id": followerID, "following_id": followingID})
	if err != nil {
		return false, domain.NewStorageError("check follow", err)
	}
	return n > 0, nil
}

func (r *MongoFollowRepository) CountFollowers(ctx context.Context, userID string) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"following_id": userID})
	if err != nil {
		return 0, domain.NewStorageError("count followers", err)
	}
	return n, nil
}

func (r *MongoFollowRepository) CountFollowing(ctx context.Context, userID string) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"follower_id": userID})
	if err != nil {
		return 0, domain.NewStorageError("count following", err)
	}
	return n, nil
}

func (r *MongoFollowRepository) ListFollowingIDs(ctx context.Context, userID string) ([]string, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"follower_id": userID}, opts)
	if err != nil {
		return nil, domain.NewStorageError("list following", err)
	}
	defer cursor.Close(ctx)

	var edges []domain.Follow
	if err := cursor.All(ctx, &edges); err != nil {
		return nil, domain.NewStorageError("decode following", err)
	}

	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.FollowingID)
	}
	return ids, nil
}
