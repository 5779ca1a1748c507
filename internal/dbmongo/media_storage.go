package dbmongo

import (
	"context"
	"errors"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"linkcamp/internal/common"
)

// PhotoStore keeps uploaded post and profile photos in GridFS.
type PhotoStore struct {
	gridFS  *gridfs.Bucket
	baseURL string
}

func NewPhotoStore(mongoClient *MongoClient, baseURL string) *PhotoStore {
	return &PhotoStore{
		gridFS:  mongoClient.GridFS,
		baseURL: baseURL,
	}
}

type PhotoFile struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	UploadedBy string    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Upload stores an image and returns the public URL clients render.
func (ps *PhotoStore) Upload(ctx context.Context, filename, mimeType, uploaderEmail string, content io.Reader) (string, error) {
	if !common.IsAllowedImage(mimeType) {
		return "", common.NewValidationError("Only image files are allowed")
	}

	metadata := bson.M{
		"mime_type":   mimeType,
		"uploaded_by": uploaderEmail,
		"uploaded_at": time.Now(),
	}

	opts := options.GridFSUpload().SetMetadata(metadata)
	stream, err := ps.gridFS.OpenUploadStream(filename, opts)
	if err != nil {
		return "", common.NewStorageError("upload failed", err)
	}
	defer stream.Close()

	if _, err := io.Copy(stream, content); err != nil {
		_ = stream.Abort()
		return "", common.NewStorageError("file copy failed", err)
	}

	return ps.URL(stream.FileID.(primitive.ObjectID).Hex()), nil
}

func (ps *PhotoStore) URL(fileID string) string {
	return ps.baseURL + fileID
}

func (ps *PhotoStore) Download(ctx context.Context, fileID string) (io.ReadCloser, *PhotoFile, error) {
	objectID, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return nil, nil, common.NewValidationError("Invalid file ID")
	}

	stream, err := ps.gridFS.OpenDownloadStream(objectID)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, nil, common.NewNotFoundError("File not found")
		}
		return nil, nil, common.NewStorageError("download failed", err)
	}

	fileInfo := stream.GetFile()
	var metadata bson.M
	if fileInfo.Metadata != nil {
		_ = bson.Unmarshal(fileInfo.Metadata, &metadata)
	}

	return stream, &PhotoFile{
		ID:         fileID,
		Filename:   fileInfo.Name,
		MimeType:   getStringFromMap(metadata, "mime_type"),
		Size:       fileInfo.Length,
		UploadedBy: getStringFromMap(metadata, "uploaded_by"),
		UploadedAt: fileInfo.UploadDate,
	}, nil
}

func getStringFromMap(m bson.M, key string) string {
	if m == nil {
		return ""
	}
	if val, ok := m[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
