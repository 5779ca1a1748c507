package vote

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=vote

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"linkcamp/internal/common"
	"linkcamp/internal/dbmongo"
)

// Counts is the per-item vote tally.
type Counts struct {
	PostID    string `bson:"_id" json:"_id"`
	Upvotes   int64  `bson:"upvotes" json:"upvotes"`
	Downvotes int64  `bson:"downvotes" json:"downvotes"`
}

type Repository interface {
	// Find returns nil, nil when the voter has no vote on the item.
	Find(ctx context.Context, postID, email string) (*dbmongo.Vote, error)
	Insert(ctx context.Context, v *dbmongo.Vote) error
	SetType(ctx context.Context, id primitive.ObjectID, voteType common.VoteType) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	ByUser(ctx context.Context, email string, postIDs []string) ([]dbmongo.Vote, error)
	Counts(ctx context.Context, postIDs []string) ([]Counts, error)
	DeleteByPost(ctx context.Context, postID string) error
}

type mongoRepository struct {
	col *mongo.Collection
}

func NewRepository(mc *dbmongo.MongoClient) Repository {
	return &mongoRepository{col: mc.Database.Collection(dbmongo.VotesCollection)}
}

func (r *mongoRepository) Find(ctx context.Context, postID, email string) (*dbmongo.Vote, error) {
	var v dbmongo.Vote
	err := r.col.FindOne(ctx, bson.M{"postId": postID, "userEmail": email}).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, common.NewStorageError("find vote", err)
	}
	return &v, nil
}

func (r *mongoRepository) Insert(ctx context.Context, v *dbmongo.Vote) error {
	res, err := r.col.InsertOne(ctx, v)
	if mongo.IsDuplicateKeyError(err) {
		return common.NewConflictError("Vote already recorded")
	}
	if err != nil {
		return common.NewStorageError("insert vote", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		v.ID = oid
	}
	return nil
}

func (r *mongoRepository) SetType(ctx context.Context, id primitive.ObjectID, voteType common.VoteType) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"voteType": voteType}})
	if err != nil {
		return common.NewStorageError("update vote", err)
	}
	if res.MatchedCount == 0 {
		return common.NewNotFoundError("Vote not found")
	}
	return nil
}

func (r *mongoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return common.NewStorageError("delete vote", err)
	}
	return nil
}

func (r *mongoRepository) ByUser(ctx context.Context, email string, postIDs []string) ([]dbmongo.Vote, error) {
	filter := bson.M{"userEmail": email}
	if len(postIDs) > 0 {
		filter["postId"] = bson.M{"$in": postIDs}
	}
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, common.NewStorageError("find votes", err)
	}
	votes := []dbmongo.Vote{}
	if err := cur.All(ctx, &votes); err != nil {
		return nil, common.NewStorageError("decode votes", err)
	}
	return votes, nil
}

// Counts tallies both directions per item in a single aggregation.
func (r *mongoRepository) Counts(ctx context.Context, postIDs []string) ([]Counts, error) {
	tally := func(vt common.VoteType) bson.M {
		return bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$voteType", vt}}, 1, 0}}}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"postId": bson.M{"$in": postIDs}}}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$postId",
			"upvotes":   tally(common.VoteUp),
			"downvotes": tally(common.VoteDown),
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, common.NewStorageError("count votes", err)
	}
	var out []Counts
	if err := cur.All(ctx, &out); err != nil {
		return nil, common.NewStorageError("decode vote counts", err)
	}
	return out, nil
}

func (r *mongoRepository) DeleteByPost(ctx context.Context, postID string) error {
	if _, err := r.col.DeleteMany(ctx, bson.M{"postId": postID}); err != nil {
		return common.NewStorageError("delete votes", err)
	}
	return nil
}
