package media

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkcamp/internal/common"
	"linkcamp/internal/dbmongo"
)

type fakeSource struct {
	files map[string]string
	names map[string]string
}

func (f *fakeSource) Download(_ context.Context, fileID string) (io.ReadCloser, *dbmongo.PhotoFile, error) {
	if fileID == "bad" {
		return nil, nil, common.NewValidationError("Invalid file ID")
	}
	content, ok := f.files[fileID]
	if !ok {
		return nil, nil, common.NewNotFoundError("File not found")
	}
	return io.NopCloser(strings.NewReader(content)), &dbmongo.PhotoFile{
		ID:       fileID,
		Filename: f.names[fileID],
		Size:     int64(len(content)),
	}, nil
}

func newRouter() *mux.Router {
	src := &fakeSource{
		files: map[string]string{"abc": "png-bytes", "def": "??"},
		names: map[string]string{"abc": "me.PNG", "def": "blob"},
	}
	r := mux.NewRouter()
	NewHandler(src).Register(r)
	return r
}

func TestServeFile(t *testing.T) {
	r := newRouter()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantType   string
		wantBody   string
	}{
		{name: "png by extension", method: http.MethodGet, path: "/media/abc", wantStatus: http.StatusOK, wantType: "image/png", wantBody: "png-bytes"},
		{name: "unknown extension", method: http.MethodGet, path: "/media/def", wantStatus: http.StatusOK, wantType: "application/octet-stream", wantBody: "??"},
		{name: "head has no body", method: http.MethodHead, path: "/media/abc", wantStatus: http.StatusOK, wantType: "image/png"},
		{name: "missing", method: http.MethodGet, path: "/media/zzz", wantStatus: http.StatusNotFound},
		{name: "malformed", method: http.MethodGet, path: "/media/bad", wantStatus: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))

			require.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantStatus != http.StatusOK {
				return
			}
			assert.Equal(t, tc.wantType, rec.Header().Get("Content-Type"))
			assert.Equal(t, tc.wantBody, rec.Body.String())
		})
	}
}

func TestContentType_PrefersStoredMime(t *testing.T) {
	assert.Equal(t, "image/webp", contentType(&dbmongo.PhotoFile{MimeType: "image/webp", Filename: "x.png"}))
	assert.Equal(t, "image/jpeg", contentType(&dbmongo.PhotoFile{Filename: "x.JPEG"}))
}
