package repository

import (
	"context"
	"regexp"
	"time"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

// MongoUserRepository implements domain.UserRepository
type MongoUserRepository struct {
	collection *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	coll := db.Collection(usersCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// firebase_uid is sparse (password accounts never set it)
	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "firebase_uid", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "display_name", Value: 1}}},
	})

	return &MongoUserRepository{
		collection: coll,
	}
}

func (r *MongoUserRepository) Create(ctx context.Context, user *domain.User) error {
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	objID := primitive.NewObjectID()

	doc := bson.M{
		"_id":          objID,
		"email":        user.Email,
		"display_name": user.DisplayName,
		"profile":      user.Profile,
		"created_at":   user.CreatedAt,
		"updated_at":   user.UpdatedAt,
	}
	if user.PasswordHash != "" {
		doc["password_hash"] = user.PasswordHash
	}
	if user.FirebaseUID != "" {
		doc["firebase_uid"] = user.FirebaseUID
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrEmailTaken
		}
		return domain.NewStorageError("create user", err)
	}
	user.ID = objID.Hex()
	return nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.NewNotFoundError("user", id)
	}
	return r.findOne(ctx, bson.M{"_id": objID}, id)
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, email)
}

func (r *MongoUserRepository) GetByFirebaseUID(ctx context.Context, uid string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"firebase_uid": uid}, uid)
}

func (r *MongoUserRepository) UpdateFirebaseUID(ctx context.Context, id, uid string) error {
	return r.updateFields(ctx, id, bson.M{"firebase_uid": uid})
}

func (r *MongoUserRepository) UpdateProfile(ctx context.Context, id string, profile domain.Profile) error {
	return r.updateFields(ctx, id, bson.M{"profile": profile})
}

// Search matches display name or email as a case-insensitive substring
func (r *MongoUserRepository) Search(ctx context.Context, query, excludeID string, limit int64) ([]*domain.UserSummary, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	match := bson.M{
		"$or": bson.A{
			bson.M{"display_name": pattern},
			bson.M{"email": pattern},
		},
	}
	if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
		match["_id"] = bson.M{"$ne": oid}
	}
	return r.summaries(ctx, match, limit)
}

func (r *MongoUserRepository) GetSummaries(ctx context.Context, ids []string) ([]*domain.UserSummary, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	return r.summaries(ctx, bson.M{"_id": bson.M{"$in": oids}}, 0)
}

// summaries projects users into cards with their follower counts, most followed first
func (r *MongoUserRepository) summaries(ctx context.Context, match bson.M, limit int64) ([]*domain.UserSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$addFields", Value: bson.M{"uid": bson.M{"$toString": "$_id"}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         followsCollection,
			"localField":   "uid",
			"foreignField": "following_id",
			"as":           "followers",
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":             "$uid",
			"display_name":    1,
			"email":           1,
			"bio":             "$profile.bio",
			"profile_picture": "$profile.profile_picture",
			"profile_color":   "$profile.profile_color",
			"followers_count": bson.M{"$size": "$followers"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "followers_count", Value: -1}, {Key: "display_name", Value: 1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.NewStorageError("search users", err)
	}
	defer cursor.Close(ctx)

	out := []*domain.UserSummary{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, domain.NewStorageError("decode users", err)
	}
	return out, nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M, ref string) (*domain.User, error) {
	var user domain.User
	if err := r.collection.FindOne(ctx, filter).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.NewNotFoundError("user", ref)
		}
		return nil, domain.NewStorageError("get user", err)
	}
	return &user, nil
}

func (r *MongoUserRepository) updateFields(ctx context.Context, id string, fields bson.M) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.NewNotFoundError("user", id)
	}

	fields["updated_at"] = time.Now().UTC()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": fields})
	if err != nil {
		return domain.NewStorageError("update user", err)
	}
	if result.MatchedCount == 0 {
		return domain.NewNotFoundError("user", id)
	}
	return nil
}
