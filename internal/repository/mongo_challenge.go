package repository

import (
	"context"
	"time"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoChallengeRepository struct {
	collection *mongo.Collection
}

func NewMongoChallengeRepository(db *mongo.Database) *MongoChallengeRepository {
	coll := db.Collection("challenges")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "challenged_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "challenger_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})

	return &MongoChallengeRepository{collection: coll}
}

func (r *MongoChallengeRepository) Create(ctx context.Context, c *domain.Challenge) error {
	if _, err := r.collection.InsertOne(ctx, c); err != nil {
		return domain.NewStorageError("create challenge", err)
	}
	return nil
}

func (r *MongoChallengeRepository) GetByID(ctx context.Context, id string) (*domain.Challenge, error) {
	var c domain.Challenge
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.NewNotFoundError("challenge", id)
		}
		return nil, domain.NewStorageError("get challenge", err)
	}
	return &c, nil
}

func (r *MongoChallengeRepository) ListReceived(ctx context.Context, userID string, now time.Time) ([]*domain.Challenge, error) {
	return r.list(ctx, "challenged_id", userID, now)
}

func (r *MongoChallengeRepository) ListSent(ctx context.Context, userID string, now time.Time) ([]*domain.Challenge, error) {
	return r.list(ctx, "challenger_id", userID, now)
}

// list hides expired challenges, including open ones whose deadline passed
func (r *MongoChallengeRepository) list(ctx context.Context, field, userID string, now time.Time) ([]*domain.Challenge, error) {
	filter := bson.M{
		field:    userID,
		"status": bson.M{"$ne": domain.ChallengeExpired},
		"$or": bson.A{
			bson.M{"status": bson.M{"$nin": bson.A{domain.ChallengePending, domain.ChallengeAccepted}}},
			bson.M{"expires_at": bson.M{"$gt": now}},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, domain.NewStorageError("list challenges", err)
	}
	defer cursor.Close(ctx)

	out := []*domain.Challenge{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, domain.NewStorageError("decode challenges", err)
	}
	return out, nil
}

func (r *MongoChallengeRepository) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return domain.NewStorageError("update challenge", err)
	}
	if res.MatchedCount == 0 {
		return domain.NewNotFoundError("challenge", id)
	}
	return nil
}

func (r *MongoChallengeRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return domain.NewStorageError("delete challenge", err)
	}
	if res.DeletedCount == 0 {
		return domain.NewNotFoundError("challenge", id)
	}
	return nil
}
