package dbmongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"linkcamp/internal/common"
)

// Post is a content item stored in one of the three partitions.
type Post struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email       string             `bson:"email" json:"email"`
	Content     *string            `bson:"content" json:"content"`
	Photo       *string            `bson:"photo" json:"photo"`
	PostType    common.PostType    `bson:"postType,omitempty" json:"postType"`
	RepostOf    *string            `bson:"repostOf,omitempty" json:"repostOf"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   *time.Time         `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
	ReportCount int                `bson:"reportCount,omitempty" json:"reportCount,omitempty"`
}

// RootID is the id a repost of this post should reference.
func (p *Post) RootID() string {
	if p.RepostOf != nil && *p.RepostOf != "" {
		return *p.RepostOf
	}
	return p.ID.Hex()
}

type Vote struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	PostID    string             `bson:"postId" json:"postId"`
	UserEmail string             `bson:"userEmail" json:"userEmail"`
	VoteType  common.VoteType    `bson:"voteType" json:"voteType"`
}

type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	PostID    string             `bson:"postId" json:"postId"`
	Email     string             `bson:"email" json:"email"`
	Content   string             `bson:"content" json:"content"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	EditedAt  *time.Time         `bson:"editedAt,omitempty" json:"editedAt,omitempty"`
}

type Report struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	PostID     string             `bson:"postId" json:"postId"`
	ReportedBy string             `bson:"reportedBy" json:"reportedBy"`
	Reason     string             `bson:"reason" json:"reason"`
	ReportedAt time.Time          `bson:"reportedAt" json:"reportedAt"`
}

type CommentReport struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	CommentID  string             `bson:"commentId" json:"commentId"`
	PostID     string             `bson:"postId,omitempty" json:"postId,omitempty"`
	ReportedBy string             `bson:"reportedBy" json:"reportedBy"`
	Reason     string             `bson:"reason" json:"reason"`
	ReportedAt time.Time          `bson:"reportedAt" json:"reportedAt"`
}

// IDCount is one row of a grouped count aggregation.
type IDCount struct {
	ID    string `bson:"_id" json:"_id"`
	Count int64  `bson:"count" json:"count"`
}

// ParseObjectID validates a hex id, returning a ValidationError naming what.
func ParseObjectID(id, what string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, common.NewValidationError("Invalid " + what + " ID")
	}
	return oid, nil
}

// ObjectIDs converts the valid hex ids in ids, skipping the rest.
func ObjectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}
