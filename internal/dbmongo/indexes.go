package dbmongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IndexPlan lists the indexes each collection needs for feed, count and report lookups.
func IndexPlan() map[string][]mongo.IndexModel {
	partition := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "email", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "postType", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "repostOf", Value: 1}}, Options: options.Index().SetSparse(true)},
	}

	return map[string][]mongo.IndexModel{
		PostsCollection:         partition,
		AnnouncementsCollection: partition,
		NoticesCollection:       partition,
		VotesCollection: {
			{Keys: bson.D{{Key: "postId", Value: 1}}},
			{
				Keys:    bson.D{{Key: "userEmail", Value: 1}, {Key: "postId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		CommentsCollection: {
			{Keys: bson.D{{Key: "postId", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		ReportsCollection: {
			{
				Keys:    bson.D{{Key: "postId", Value: 1}, {Key: "reportedBy", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "reportedAt", Value: -1}}},
		},
		CommentReportsCollection: {
			{
				Keys:    bson.D{{Key: "commentId", Value: 1}, {Key: "reportedBy", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "postId", Value: 1}}},
		},
	}
}

func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for name, models := range IndexPlan() {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}
