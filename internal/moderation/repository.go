package moderation

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"linkcamp/internal/common"
	"linkcamp/internal/dbmongo"
)

// QueueQuery pages over reported targets. TargetID narrows to one target.
type QueueQuery struct {
	TargetID string
	Page     int
	Limit    int
}

func (q QueueQuery) skip() int64 {
	return int64((q.Page - 1) * q.Limit)
}

// Entry is one reported target with its aggregated report stats.
type Entry struct {
	TargetID string    `bson:"_id"`
	Count    int64     `bson:"count"`
	Latest   time.Time `bson:"latest"`
	PostID   string    `bson:"postId"`
}

type Repository interface {
	HasPostReport(ctx context.Context, postID, email string) (bool, error)
	InsertPostReport(ctx context.Context, r *dbmongo.Report) error
	HasCommentReport(ctx context.Context, commentID, email string) (bool, error)
	InsertCommentReport(ctx context.Context, r *dbmongo.CommentReport) error
	PostQueue(ctx context.Context, q QueueQuery) ([]Entry, int64, error)
	CommentQueue(ctx context.Context, q QueueQuery) ([]Entry, int64, error)
	DeletePostReports(ctx context.Context, postID string) (int64, error)
	DeleteCommentReports(ctx context.Context, commentID string) (int64, error)
	// DeleteByPost clears reports on an item and on its comments.
	DeleteByPost(ctx context.Context, postID string) error
}

type mongoRepository struct {
	reports        *mongo.Collection
	commentReports *mongo.Collection
}

func NewRepository(mc *dbmongo.MongoClient) Repository {
	return &mongoRepository{
		reports:        mc.Database.Collection(dbmongo.ReportsCollection),
		commentReports: mc.Database.Collection(dbmongo.CommentReportsCollection),
	}
}

func exists(ctx context.Context, col *mongo.Collection, filter bson.M) (bool, error) {
	err := col.FindOne(ctx, filter).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, common.NewStorageError("find report", err)
	}
	return true, nil
}

func (r *mongoRepository) HasPostReport(ctx context.Context, postID, email string) (bool, error) {
	return exists(ctx, r.reports, bson.M{"postId": postID, "reportedBy": email})
}

func (r *mongoRepository) InsertPostReport(ctx context.Context, rep *dbmongo.Report) error {
	_, err := r.reports.InsertOne(ctx, rep)
	if mongo.IsDuplicateKeyError(err) {
		return common.NewConflictError(msgDuplicatePostReport)
	}
	if err != nil {
		return common.NewStorageError("insert report", err)
	}
	return nil
}

func (r *mongoRepository) HasCommentReport(ctx context.Context, commentID, email string) (bool, error) {
	return exists(ctx, r.commentReports, bson.M{"commentId": commentID, "reportedBy": email})
}

func (r *mongoRepository) InsertCommentReport(ctx context.Context, rep *dbmongo.CommentReport) error {
	_, err := r.commentReports.InsertOne(ctx, rep)
	if mongo.IsDuplicateKeyError(err) {
		return common.NewConflictError(msgDuplicateCommentReport)
	}
	if err != nil {
		return common.NewStorageError("insert comment report", err)
	}
	return nil
}

func (r *mongoRepository) PostQueue(ctx context.Context, q QueueQuery) ([]Entry, int64, error) {
	return queue(ctx, r.reports, "postId", q)
}

func (r *mongoRepository) CommentQueue(ctx context.Context, q QueueQuery) ([]Entry, int64, error) {
	return queue(ctx, r.commentReports, "commentId", q)
}

// queue groups reports per target, newest report first, and pages the
// targets in the database so only one page is ever hydrated.
func queue(ctx context.Context, col *mongo.Collection, field string, q QueueQuery) ([]Entry, int64, error) {
	pipeline := mongo.Pipeline{}
	if q.TargetID != "" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{field: q.TargetID}}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$group", Value: bson.M{
			"_id":    "$" + field,
			"count":  bson.M{"$sum": 1},
			"latest": bson.M{"$max": "$reportedAt"},
			"postId": bson.M{"$first": "$postId"},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "latest", Value: -1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$facet", Value: bson.M{
			"total": bson.A{bson.M{"$count": "n"}},
			"page":  bson.A{bson.M{"$skip": q.skip()}, bson.M{"$limit": int64(q.Limit)}},
		}}},
	)

	cur, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, common.NewStorageError("aggregate reports", err)
	}
	var facets []struct {
		Total []struct {
			N int64 `bson:"n"`
		} `bson:"total"`
		Page []Entry `bson:"page"`
	}
	if err := cur.All(ctx, &facets); err != nil {
		return nil, 0, common.NewStorageError("decode reports", err)
	}
	if len(facets) == 0 || len(facets[0].Total) == 0 {
		return []Entry{}, 0, nil
	}
	return facets[0].Page, facets[0].Total[0].N, nil
}

func (r *mongoRepository) DeletePostReports(ctx context.Context, postID string) (int64, error) {
	res, err := r.reports.DeleteMany(ctx, bson.M{"postId": postID})
	if err != nil {
		return 0, common.NewStorageError("delete reports", err)
	}
	return res.DeletedCount, nil
}

func (r *mongoRepository) DeleteCommentReports(ctx context.Context, commentID string) (int64, error) {
	res, err := r.commentReports.DeleteMany(ctx, bson.M{"commentId": commentID})
	if err != nil {
		return 0, common.NewStorageError("delete comment reports", err)
	}
	return res.DeletedCount, nil
}

func (r *mongoRepository) DeleteByPost(ctx context.Context, postID string) error {
	if _, err := r.DeletePostReports(ctx, postID); err != nil {
		return err
	}
	if _, err := r.commentReports.DeleteMany(ctx, bson.M{"postId": postID}); err != nil {
		return common.NewStorageError("delete comment reports", err)
	}
	return nil
}
