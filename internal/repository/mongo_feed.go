package repository

import (
	"context"
	"time"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoFeedRepository struct {
	collection *mongo.Collection
}

func NewMongoFeedRepository(db *mongo.Database) *MongoFeedRepository {
	coll := db.Collection("feed_posts")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})

	return &MongoFeedRepository{collection: coll}
}

func (r *MongoFeedRepository) Create(ctx context.Context, post *domain.FeedPost) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, post); err != nil {
		return domain.NewStorageError("create feed post", err)
	}
	return nil
}

// List returns the newest posts joined with the author's name and profile card
func (r *MongoFeedRepository) List(ctx context.Context, filter domain.FeedFilter) ([]*domain.FeedItem, error) {
	match := bson.M{}
	if filter.AuthorIDs != nil {
		match["user_id"] = bson.M{"$in": filter.AuthorIDs}
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.M{
			"from": usersCollection,
			"let":  bson.M{"uid": "$user_id"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{bson.M{"$toString": "$_id"}, "$$uid"}}}},
				bson.M{"$project": bson.M{"display_name": 1, "profile": 1}},
			},
			"as": "author",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$author", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$addFields", Value: bson.M{
			"user_name":       "$author.display_name",
			"profile_picture": "$author.profile.profile_picture",
			"profile_color":   "$author.profile.profile_color",
		}}},
		{{Key: "$project", Value: bson.M{"author": 0}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.NewStorageError("list feed", err)
	}
	defer cursor.Close(ctx)

	items := []*domain.FeedItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, domain.NewStorageError("decode feed", err)
	}
	return items, nil
}
