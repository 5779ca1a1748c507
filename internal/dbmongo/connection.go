// Package dbmongo holds the content store connection, document models and photo storage.
package dbmongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"linkcamp/internal/common"
	"linkcamp/internal/config"
)

// Collection names.
const (
	PostsCollection          = "posts"
	AnnouncementsCollection  = "announcements"
	NoticesCollection        = "notices"
	VotesCollection          = "votes"
	CommentsCollection       = "comments"
	ReportsCollection        = "reports"
	CommentReportsCollection = "commentReports"

	PhotoBucket = "media_files"
)

// PartitionCollection maps a content partition to its collection.
func PartitionCollection(pt common.PostType) string {
	switch pt {
	case common.PostTypeTeacher:
		return AnnouncementsCollection
	case common.PostTypeAdmin:
		return NoticesCollection
	default:
		return PostsCollection
	}
}

type MongoClient struct {
	Client   *mongo.Client
	Database *mongo.Database
	GridFS   *gridfs.Bucket
}

func NewMongoConnection(c *config.Config) (*MongoClient, error) {
	uri := c.GetMongoURI()
	clientOptions := options.Client().ApplyURI(uri)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	database := client.Database(c.MongoDB.Database)
	bucket, err := gridfs.NewBucket(database, options.GridFSBucket().SetName(PhotoBucket))
	if err != nil {
		return nil, fmt.Errorf("failed to create GridFSBucket: %w", err)
	}

	return &MongoClient{
		Client:   client,
		Database: database,
		GridFS:   bucket,
	}, nil
}

func (mc *MongoClient) Ping(ctx context.Context) error {
	return mc.Client.Ping(ctx, nil)
}

func (mc *MongoClient) Close(ctx context.Context) error {
	return mc.Client.Disconnect(ctx)
}
