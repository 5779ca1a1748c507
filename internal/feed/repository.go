package feed

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

// Query selects items from one partition, newest first.
type Query struct {
	Partition common.PostType
	// Types restricts the stored postType; general also matches documents without one.
	Types  []common.PostType
	Email  string
	Before *Cursor
	Limit  int64
}

// Patch is a partial content edit. Unset fields are left untouched.
type Patch struct {
	SetContent bool
	Content    *string
	SetPhoto   bool
	Photo      *string
	UpdatedAt  time.Time
}

type Repository interface {
	Insert(ctx context.Context, partition common.PostType, post *dbmongo.Post) error
	Find(ctx context.Context, q Query) ([]dbmongo.Post, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*dbmongo.Post, common.PostType, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]dbmongo.Post, error)
	Update(ctx context.Context, partition common.PostType, id primitive.ObjectID, patch Patch) error
	Delete(ctx context.Context, partition common.PostType, id primitive.ObjectID) error
	IncReportCount(ctx context.Context, partition common.PostType, id primitive.ObjectID) error
	ResetReportCount(ctx context.Context, partition common.PostType, id primitive.ObjectID) error
	RepostCounts(ctx context.Context, ids []string) ([]dbmongo.IDCount, error)
}

type mongoRepository struct {
	db *mongo.Database
}

func NewRepository(mc *dbmongo.MongoClient) Repository {
	return &mongoRepository{db: mc.Database}
}

func (r *mongoRepository) col(partition common.PostType) *mongo.Collection {
	return r.db.Collection(dbmongo.PartitionCollection(partition))
}

func (r *mongoRepository) Insert(ctx context.Context, partition common.PostType, post *dbmongo.Post) error {
	res, err := r.col(partition).InsertOne(ctx, post)
	if err != nil {
		return common.NewStorageError("insert post", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		post.ID = oid
	}
	return nil
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

func (r *mongoRepository) Find(ctx context.Context, q Query) ([]dbmongo.Post, error) {
	filter := bson.M{}
	if len(q.Types) > 0 {
		in := bson.A{}
		for _, t := range q.Types {
			in = append(in, t)
			if t == common.PostTypeGeneral {
				in = append(in, nil)
			}
		}
		filter["postType"] = bson.M{"$in": in}
	}
	if q.Email != "" {
		filter["email"] = q.Email
	}
	if c := q.Before; c != nil {
		if c.ID.IsZero() {
			filter["createdAt"] = bson.M{"$lt": c.At}
		} else {
			filter["$or"] = bson.A{
				bson.M{"createdAt": bson.M{"$lt": c.At}},
				bson.M{"createdAt": c.At, "_id": bson.M{"$lt": c.ID}},
			}
		}
	}

	opts := options.Find().SetSort(newestFirst)
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := r.col(q.Partition).Find(ctx, filter, opts)
	if err != nil {
		return nil, common.NewStorageError("find posts", err)
	}
	var posts []dbmongo.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, common.NewStorageError("decode posts", err)
	}
	normalize(posts, q.Partition)
	return posts, nil
}

// FindByID searches the partitions in order general, teacher, admin.
func (r *mongoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*dbmongo.Post, common.PostType, error) {
	for _, partition := range common.AllPostTypes {
		var post dbmongo.Post
		err := r.col(partition).FindOne(ctx, bson.M{"_id": id}).Decode(&post)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return nil, "", common.NewStorageError("find post", err)
		}
		if post.PostType == "" {
			post.PostType = partition
		}
		return &post, partition, nil
	}
	return nil, "", common.NewNotFoundError("Post not found")
}

func (r *mongoRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]dbmongo.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []dbmongo.Post
	for _, partition := range common.AllPostTypes {
		cursor, err := r.col(partition).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return nil, common.NewStorageError("find posts", err)
		}
		var posts []dbmongo.Post
		if err := cursor.All(ctx, &posts); err != nil {
			return nil, common.NewStorageError("decode posts", err)
		}
		normalize(posts, partition)
		out = append(out, posts...)
	}
	return out, nil
}

func (r *mongoRepository) Update(ctx context.Context, partition common.PostType, id primitive.ObjectID, patch Patch) error {
	set := bson.M{"updatedAt": patch.UpdatedAt}
	if patch.SetContent {
		set["content"] = patch.Content
	}
	if patch.SetPhoto {
		set["photo"] = patch.Photo
	}
	res, err := r.col(partition).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return common.NewStorageError("update post", err)
	}
	if res.MatchedCount == 0 {
		return common.NewNotFoundError("Post not found")
	}
	return nil
}

func (r *mongoRepository) Delete(ctx context.Context, partition common.PostType, id primitive.ObjectID) error {
	if _, err := r.col(partition).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return common.NewStorageError("delete post", err)
	}
	return nil
}

func (r *mongoRepository) IncReportCount(ctx context.Context, partition common.PostType, id primitive.ObjectID) error {
	_, err := r.col(partition).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"reportCount": 1}})
	if err != nil {
		return common.NewStorageError("increment report count", err)
	}
	return nil
}

func (r *mongoRepository) ResetReportCount(ctx context.Context, partition common.PostType, id primitive.ObjectID) error {
	_, err := r.col(partition).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"reportCount": 0}})
	if err != nil {
		return common.NewStorageError("reset report count", err)
	}
	return nil
}

// RepostCounts groups reposts by root id across every partition.
func (r *mongoRepository) RepostCounts(ctx context.Context, ids []string) ([]dbmongo.IDCount, error) {
	match := bson.M{"$exists": true, "$ne": nil}
	if len(ids) > 0 {
		match["$in"] = ids
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"repostOf": match}}},
		{{Key: "$group", Value: bson.M{"_id": "$repostOf", "count": bson.M{"$sum": 1}}}},
	}

	totals := make(map[string]int64)
	var order []string
	for _, partition := range common.AllPostTypes {
		cursor, err := r.col(partition).Aggregate(ctx, pipeline)
		if err != nil {
			return nil, common.NewStorageError("count reposts", err)
		}
		var rows []dbmongo.IDCount
		if err := cursor.All(ctx, &rows); err != nil {
			return nil, common.NewStorageError("decode repost counts", err)
		}
		for _, row := range rows {
			if _, seen := totals[row.ID]; !seen {
				order = append(order, row.ID)
			}
			totals[row.ID] += row.Count
		}
	}

	out := make([]dbmongo.IDCount, 0, len(order))
	for _, id := range order {
		out = append(out, dbmongo.IDCount{ID: id, Count: totals[id]})
	}
	return out, nil
}

func normalize(posts []dbmongo.Post, partition common.PostType) {
	for i := range posts {
		if posts[i].PostType == "" {
			posts[i].PostType = partition
		}
	}
}

// Locator resolves item ids against every partition. Stores that feed
// cleans up on delete depend on it instead of on Service.
type Locator struct {
	repo Repository
}

func NewLocator(repo Repository) *Locator {
	return &Locator{repo: repo}
}

func (l *Locator) Locate(ctx context.Context, id string) (*dbmongo.Post, error) {
	oid, err := dbmongo.ParseObjectID(id, "post")
	if err != nil {
		return nil, err
	}
	post, _, err := l.repo.FindByID(ctx, oid)
	return post, err
}
