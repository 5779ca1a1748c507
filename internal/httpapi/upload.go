package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"linkcamp/internal/common"
)

// Upload is an image taken from a multipart form.
type Upload struct {
	Filename string
	MimeType string
	Size     int64
	Body     io.Reader

	file multipart.File
}

func (u *Upload) Close() error {
	if u == nil || u.file == nil {
		return nil
	}
	return u.file.Close()
}

// ParseForm accepts both multipart and urlencoded bodies; JSON bodies are left alone.
func ParseForm(r *http.Request, maxBytes int64) error {
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "multipart/form-data"):
		r.Body = http.MaxBytesReader(nil, r.Body, maxBytes+(1<<20))
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return imageTooLarge(maxBytes)
			}
			return common.NewValidationError("Invalid multipart form")
		}
	case strings.HasPrefix(ct, "application/x-www-form-urlencoded"):
		if err := r.ParseForm(); err != nil {
			return common.NewValidationError("Invalid form body")
		}
	}
	return nil
}

// FormImage returns the named image field, or nil when absent.
func FormImage(r *http.Request, field string, maxBytes int64) (*Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, common.NewValidationError("Invalid upload")
	}
	if header.Size > maxBytes {
		file.Close()
		return nil, imageTooLarge(maxBytes)
	}
	mimeType := header.Header.Get("Content-Type")
	if !common.IsAllowedImage(mimeType) {
		file.Close()
		return nil, common.NewValidationError("Only image files are allowed")
	}
	return &Upload{
		Filename: header.Filename,
		MimeType: mimeType,
		Size:     header.Size,
		Body:     file,
		file:     file,
	}, nil
}

func imageTooLarge(maxBytes int64) error {
	return common.NewValidationError(fmt.Sprintf("Image too large (max %dMB)", maxBytes>>20))
}

// StoreImage saves the named form image through photos and returns its URL,
// or "" when the field is absent.
func StoreImage(r *http.Request, field string, maxBytes int64, photos common.PhotoUploader, uploaderEmail string) (string, error) {
	upload, err := FormImage(r, field, maxBytes)
	if err != nil || upload == nil {
		return "", err
	}
	defer upload.Close()
	return photos.Upload(r.Context(), upload.Filename, upload.MimeType, uploaderEmail, upload.Body)
}
