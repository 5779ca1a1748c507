package feed

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"linkcamp/internal/config"
)

func TestParsePageRequest(t *testing.T) {
	cfg := config.FeedConfig{PaginationEnabled: true, DefaultPageSize: 20, MaxPageSize: 50}
	cursor := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tieID, err := primitive.ObjectIDFromHex("65f1a2b3c4d5e6f708192a3b")
	require.NoError(t, err)

	tests := []struct {
		name      string
		query     string
		cfg       config.FeedConfig
		paginated bool
		limit     int
		cursor    *time.Time
		id        primitive.ObjectID
	}{
		{name: "no params", query: "", cfg: cfg, limit: 20},
		{name: "limit only", query: "limit=5", cfg: cfg, paginated: true, limit: 5},
		{name: "type only", query: "type=teacher", cfg: cfg, paginated: true, limit: 20},
		{name: "clamped high", query: "limit=500", cfg: cfg, paginated: true, limit: 50},
		{name: "clamped low", query: "limit=-3", cfg: cfg, paginated: true, limit: 1},
		{name: "junk limit", query: "limit=abc", cfg: cfg, paginated: true, limit: 20},
		{name: "iso cursor", query: "cursor=2024-05-01T12:00:00.000Z", cfg: cfg, paginated: true, limit: 20, cursor: &cursor},
		{name: "unix ms cursor", query: "cursor=1714564800000", cfg: cfg, paginated: true, limit: 20, cursor: &cursor},
		{name: "bad cursor ignored", query: "cursor=yesterday", cfg: cfg, paginated: true, limit: 20},
		{name: "cursor with id", query: "cursor=2024-05-01T12:00:00.000Z_65f1a2b3c4d5e6f708192a3b", cfg: cfg, paginated: true, limit: 20, cursor: &cursor, id: tieID},
		{name: "bad cursor id ignored", query: "cursor=2024-05-01T12:00:00.000Z_nothex", cfg: cfg, paginated: true, limit: 20},
		{name: "disabled", query: "limit=5&cursor=2024-05-01T12:00:00Z", cfg: config.FeedConfig{DefaultPageSize: 20, MaxPageSize: 50}, limit: 20},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := url.ParseQuery(tc.query)
			require.NoError(t, err)

			req := ParsePageRequest(q, tc.cfg)
			assert.Equal(t, tc.paginated, req.Paginated)
			assert.Equal(t, tc.limit, req.Limit)
			if tc.cursor == nil {
				assert.Nil(t, req.Cursor)
				return
			}
			require.NotNil(t, req.Cursor)
			assert.True(t, tc.cursor.Equal(req.Cursor.At))
			assert.Equal(t, tc.id, req.Cursor.ID)
		})
	}
}

func TestParseCursor_RoundTripsNextCursor(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 30, 15, 123000000, time.FixedZone("x", 3*3600))
	raw := created.UTC().Format(CursorLayout)
	assert.Equal(t, "2024-05-01T09:30:15.123Z", raw)

	got, ok := parseCursor(raw)
	require.True(t, ok)
	assert.True(t, created.Equal(got.At))
	assert.True(t, got.ID.IsZero())

	withID := Cursor{At: created, ID: primitive.NewObjectID()}
	got, ok = parseCursor(withID.String())
	require.True(t, ok)
	assert.True(t, created.Equal(got.At))
	assert.Equal(t, withID.ID, got.ID)
}
