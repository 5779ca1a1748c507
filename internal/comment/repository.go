package comment

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"linkcamp/internal/common"
	"linkcamp/internal/dbmongo"
)

type Repository interface {
	Insert(ctx context.Context, c *dbmongo.Comment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*dbmongo.Comment, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]dbmongo.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]dbmongo.Comment, error)
	UpdateContent(ctx context.Context, id primitive.ObjectID, content string, editedAt time.Time) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Counts(ctx context.Context, postIDs []string) ([]dbmongo.IDCount, error)
	DeleteByPost(ctx context.Context, postID string) error
}

type mongoRepository struct {
	col *mongo.Collection
}

func NewRepository(mc *dbmongo.MongoClient) Repository {
	return &mongoRepository{col: mc.Database.Collection(dbmongo.CommentsCollection)}
}

func (r *mongoRepository) Insert(ctx context.Context, c *dbmongo.Comment) error {
	res, err := r.col.InsertOne(ctx, c)
	if err != nil {
		return common.NewStorageError("insert comment", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		c.ID = oid
	}
	return nil
}

func (r *mongoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*dbmongo.Comment, error) {
	var c dbmongo.Comment
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, common.NewNotFoundError("Comment not found")
	}
	if err != nil {
		return nil, common.NewStorageError("find comment", err)
	}
	return &c, nil
}

func (r *mongoRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]dbmongo.Comment, error) {
	out := []dbmongo.Comment{}
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, common.NewStorageError("find comments", err)
	}
	if err := cur.All(ctx, &out); err != nil {
		return nil, common.NewStorageError("decode comments", err)
	}
	return out, nil
}

// ListByPost returns a thread oldest first.
func (r *mongoRepository) ListByPost(ctx context.Context, postID string) ([]dbmongo.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"postId": postID}, opts)
	if err != nil {
		return nil, common.NewStorageError("list comments", err)
	}
	out := []dbmongo.Comment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, common.NewStorageError("decode comments", err)
	}
	return out, nil
}

func (r *mongoRepository) UpdateContent(ctx context.Context, id primitive.ObjectID, content string, editedAt time.Time) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"content": content, "editedAt": editedAt}})
	if err != nil {
		return common.NewStorageError("update comment", err)
	}
	if res.MatchedCount == 0 {
		return common.NewNotFoundError("Comment not found")
	}
	return nil
}

func (r *mongoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return common.NewStorageError("delete comment", err)
	}
	if res.DeletedCount == 0 {
		return common.NewNotFoundError("Comment not found")
	}
	return nil
}

// Counts groups comments per item; an empty id list counts every item.
func (r *mongoRepository) Counts(ctx context.Context, postIDs []string) ([]dbmongo.IDCount, error) {
	pipeline := mongo.Pipeline{}
	if len(postIDs) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"postId": bson.M{"$in": postIDs}}}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$group", Value: bson.M{"_id": "$postId", "count": bson.M{"$sum": 1}}}})

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, common.NewStorageError("count comments", err)
	}
	out := []dbmongo.IDCount{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, common.NewStorageError("decode comment counts", err)
	}
	return out, nil
}

func (r *mongoRepository) DeleteByPost(ctx context.Context, postID string) error {
	if _, err := r.col.DeleteMany(ctx, bson.M{"postId": postID}); err != nil {
		return common.NewStorageError("delete comments", err)
	}
	return nil
}
