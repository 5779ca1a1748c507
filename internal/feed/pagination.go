package feed

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"linkcamp/internal/config"
)

// Cursor marks the last item a page served. Items sharing At are ordered by
// descending ID; a zero ID means everything at At was already served.
type Cursor struct {
	At time.Time
	ID primitive.ObjectID
}

// String renders the cursor as the ISO timestamp, suffixed with _<id> when set.
func (c Cursor) String() string {
	s := c.At.UTC().Format(CursorLayout)
	if !c.ID.IsZero() {
		s += "_" + c.ID.Hex()
	}
	return s
}

// ParsePageRequest reads limit, cursor and type from q. Pagination applies
// when any of them is present and pagination is enabled. Limits are clamped
// to [1, MaxPageSize]; an unparseable cursor is ignored.
func ParsePageRequest(q url.Values, cfg config.FeedConfig) PageRequest {
	req := PageRequest{Limit: cfg.DefaultPageSize}
	if !cfg.PaginationEnabled {
		return req
	}
	req.Paginated = q.Has("limit") || q.Has("cursor") || q.Has("type")

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			req.Limit = n
		}
	}
	if req.Limit < 1 {
		req.Limit = 1
	}
	if cfg.MaxPageSize > 0 && req.Limit > cfg.MaxPageSize {
		req.Limit = cfg.MaxPageSize
	}

	if raw := strings.TrimSpace(q.Get("cursor")); raw != "" {
		if c, ok := parseCursor(raw); ok {
			req.Cursor = &c
		}
	}
	return req
}

// parseCursor accepts a bare timestamp or a timestamp followed by _<id>.
func parseCursor(raw string) (Cursor, bool) {
	var c Cursor
	if i := strings.LastIndexByte(raw, '_'); i > 0 {
		id, err := primitive.ObjectIDFromHex(raw[i+1:])
		if err != nil {
			return Cursor{}, false
		}
		c.ID = id
		raw = raw[:i]
	}
	t, ok := parseCursorTime(raw)
	if !ok {
		return Cursor{}, false
	}
	c.At = t
	return c, true
}

func parseCursorTime(raw string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, CursorLayout, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}
