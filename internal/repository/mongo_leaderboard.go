package repository

import (
	"context"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoLeaderboardRepository ranks users by joining users, progress stats and unlock rows
type MongoLeaderboardRepository struct {
	users *mongo.Collection
}

func NewMongoLeaderboardRepository(db *mongo.Database) *MongoLeaderboardRepository {
	return &MongoLeaderboardRepository{users: db.Collection(usersCollection)}
}

func (r *MongoLeaderboardRepository) Top(ctx context.Context, criteria string, limit int64) ([]*domain.LeaderboardEntry, error) {
	var sort bson.D
	switch criteria {
	case domain.LeaderboardWorkouts:
		sort = bson.D{{Key: "total_workouts", Value: -1}}
	case domain.LeaderboardStreak:
		sort = bson.D{{Key: "current_streak", Value: -1}, {Key: "longest_streak", Value: -1}}
	default:
		sort = bson.D{{Key: "total_points", Value: -1}}
	}
	sort = append(sort, bson.E{Key: "_id", Value: 1})

	statField := func(name string) bson.M {
		return bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{"$stats." + name, 0}}, 0}}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$addFields", Value: bson.M{"uid": bson.M{"$toString": "$_id"}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         progressStatsCollection,
			"localField":   "uid",
			"foreignField": "_id",
			"as":           "stats",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         userAchievementsCollection,
			"localField":   "uid",
			"foreignField": "user_id",
			"as":           "unlocks",
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":             "$uid",
			"display_name":    1,
			"profile_picture": "$profile.profile_picture",
			"profile_color":   "$profile.profile_color",
			"total_workouts":  statField("total_workouts"),
			"total_exercises": statField("total_exercises"),
			"current_streak":  statField("current_streak"),
			"longest_streak":  statField("longest_streak"),
			"total_points":    bson.M{"$sum": "$unlocks.points"},
		}}},
		{{Key: "$sort", Value: sort}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := r.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.NewStorageError("leaderboard", err)
	}
	defer cursor.Close(ctx)

	out := []*domain.LeaderboardEntry{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, domain.NewStorageError("decode leaderboard", err)
	}
	return out, nil
}
