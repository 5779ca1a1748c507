package feed

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"linkcamp/internal/common"
	"linkcamp/internal/dbmongo"
	"linkcamp/internal/dbmysql"
)

// ---- in-memory fakes ----

type fakeRepo struct {
	partitions map[common.PostType][]dbmongo.Post
	findCalls  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{partitions: map[common.PostType][]dbmongo.Post{}}
}

func (r *fakeRepo) seed(partition common.PostType, p dbmongo.Post) dbmongo.Post {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.partitions[partition] = append(r.partitions[partition], p)
	return p
}

func (r *fakeRepo) Insert(_ context.Context, partition common.PostType, post *dbmongo.Post) error {
	post.ID = primitive.NewObjectID()
	r.partitions[partition] = append(r.partitions[partition], *post)
	return nil
}

func (r *fakeRepo) Find(_ context.Context, q Query) ([]dbmongo.Post, error) {
	r.findCalls++
	var out []dbmongo.Post
	for _, p := range r.partitions[q.Partition] {
		if len(q.Types) > 0 && !typeMatches(p.PostType, q.Types) {
			continue
		}
		if q.Email != "" && p.Email != q.Email {
			continue
		}
		if q.Before != nil && !servedAfter(p, *q.Before) {
			continue
		}
		if p.PostType == "" {
			p.PostType = q.Partition
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	if q.Limit > 0 && int64(len(out)) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func typeMatches(pt common.PostType, types []common.PostType) bool {
	for _, t := range types {
		if pt == t || (t == common.PostTypeGeneral && pt == "") {
			return true
		}
	}
	return false
}

func (r *fakeRepo) FindByID(_ context.Context, id primitive.ObjectID) (*dbmongo.Post, common.PostType, error) {
	for _, partition := range common.AllPostTypes {
		for _, p := range r.partitions[partition] {
			if p.ID == id {
				if p.PostType == "" {
					p.PostType = partition
				}
				return &p, partition, nil
			}
		}
	}
	return nil, "", common.NewNotFoundError("Post not found")
}

func (r *fakeRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]dbmongo.Post, error) {
	var out []dbmongo.Post
	for _, id := range ids {
		if p, _, err := r.FindByID(ctx, id); err == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeRepo) mutate(partition common.PostType, id primitive.ObjectID, fn func(p *dbmongo.Post)) error {
	for i := range r.partitions[partition] {
		if r.partitions[partition][i].ID == id {
			fn(&r.partitions[partition][i])
			return nil
		}
	}
	return common.NewNotFoundError("Post not found")
}

func (r *fakeRepo) Update(_ context.Context, partition common.PostType, id primitive.ObjectID, patch Patch) error {
	return r.mutate(partition, id, func(p *dbmongo.Post) {
		if patch.SetContent {
			p.Content = patch.Content
		}
		if patch.SetPhoto {
			p.Photo = patch.Photo
		}
		at := patch.UpdatedAt
		p.UpdatedAt = &at
	})
}

func (r *fakeRepo) Delete(_ context.Context, partition common.PostType, id primitive.ObjectID) error {
	list := r.partitions[partition]
	for i := range list {
		if list[i].ID == id {
			r.partitions[partition] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeRepo) IncReportCount(_ context.Context, partition common.PostType, id primitive.ObjectID) error {
	return r.mutate(partition, id, func(p *dbmongo.Post) { p.ReportCount++ })
}

func (r *fakeRepo) ResetReportCount(_ context.Context, partition common.PostType, id primitive.ObjectID) error {
	return r.mutate(partition, id, func(p *dbmongo.Post) { p.ReportCount = 0 })
}

func (r *fakeRepo) RepostCounts(_ context.Context, ids []string) ([]dbmongo.IDCount, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	counts := map[string]int64{}
	for _, partition := range common.AllPostTypes {
		for _, p := range r.partitions[partition] {
			if p.RepostOf == nil || (len(ids) > 0 && !want[*p.RepostOf]) {
				continue
			}
			counts[*p.RepostOf]++
		}
	}
	var out []dbmongo.IDCount
	for id, n := range counts {
		out = append(out, dbmongo.IDCount{ID: id, Count: n})
	}
	return out, nil
}

type fakeAuthors struct {
	profiles map[string]*dbmysql.AuthorSummary
	calls    int
}

func (f *fakeAuthors) Summaries(_ context.Context, emails []string) (map[string]*dbmysql.AuthorSummary, error) {
	f.calls++
	out := map[string]*dbmysql.AuthorSummary{}
	for _, e := range emails {
		if p, ok := f.profiles[e]; ok {
			out[e] = p
		}
	}
	return out, nil
}

type fakeCleaner struct {
	name  string
	calls []string
	err   error
}

func (c *fakeCleaner) DeleteByPost(_ context.Context, postID string) error {
	c.calls = append(c.calls, postID)
	return c.err
}

type capturePublisher struct {
	mu     sync.Mutex
	events []common.Event
}

func (p *capturePublisher) Publish(e common.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *capturePublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Name)
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func text(s string) *string { return &s }

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return baseTime.Add(time.Duration(minutes) * time.Minute)
}

// servedAfter mirrors the repository's cursor filter.
func servedAfter(p dbmongo.Post, c Cursor) bool {
	if p.CreatedAt.Before(c.At) {
		return true
	}
	return !c.ID.IsZero() && p.CreatedAt.Equal(c.At) && p.ID.Hex() < c.ID.Hex()
}
