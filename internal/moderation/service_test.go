package moderation

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"linkcamp/internal/common"
	"linkcamp/internal/dbmongo"
	"linkcamp/internal/dbmysql"
	"linkcamp/internal/feed"
)

type memRepo struct {
	reports        []dbmongo.Report
	commentReports []dbmongo.CommentReport
}

func (m *memRepo) HasPostReport(_ context.Context, postID, email string) (bool, error) {
	for _, r := range m.reports {
		if r.PostID == postID && r.ReportedBy == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) InsertPostReport(_ context.Context, r *dbmongo.Report) error {
	m.reports = append(m.reports, *r)
	return nil
}

func (m *memRepo) HasCommentReport(_ context.Context, commentID, email string) (bool, error) {
	for _, r := range m.commentReports {
		if r.CommentID == commentID && r.ReportedBy == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) InsertCommentReport(_ context.Context, r *dbmongo.CommentReport) error {
	m.commentReports = append(m.commentReports, *r)
	return nil
}

func group(q QueueQuery, rows []Entry) ([]Entry, int64, error) {
	byID := map[string]*Entry{}
	var order []string
	for _, r := range rows {
		if q.TargetID != "" && r.TargetID != q.TargetID {
			continue
		}
		e, ok := byID[r.TargetID]
		if !ok {
			e = &Entry{TargetID: r.TargetID, PostID: r.PostID}
			byID[r.TargetID] = e
			order = append(order, r.TargetID)
		}
		e.Count++
		if r.Latest.After(e.Latest) {
			e.Latest = r.Latest
		}
	}
	entries := make([]Entry, 0, len(order))
	for _, id := range order {
		entries = append(entries, *byID[id])
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Latest.After(entries[j].Latest) })
	total := int64(len(entries))
	start := int(q.skip())
	if start > len(entries) {
		start = len(entries)
	}
	end := start + q.Limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end], total, nil
}

func (m *memRepo) PostQueue(_ context.Context, q QueueQuery) ([]Entry, int64, error) {
	rows := make([]Entry, 0, len(m.reports))
	for _, r := range m.reports {
		rows = append(rows, Entry{TargetID: r.PostID, Latest: r.ReportedAt})
	}
	return group(q, rows)
}

func (m *memRepo) CommentQueue(_ context.Context, q QueueQuery) ([]Entry, int64, error) {
	rows := make([]Entry, 0, len(m.commentReports))
	for _, r := range m.commentReports {
		rows = append(rows, Entry{TargetID: r.CommentID, PostID: r.PostID, Latest: r.ReportedAt})
	}
	return group(q, rows)
}

func (m *memRepo) DeletePostReports(_ context.Context, postID string) (int64, error) {
	kept := m.reports[:0]
	var n int64
	for _, r := range m.reports {
		if r.PostID == postID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.reports = kept
	return n, nil
}

func (m *memRepo) DeleteCommentReports(_ context.Context, commentID string) (int64, error) {
	kept := m.commentReports[:0]
	var n int64
	for _, r := range m.commentReports {
		if r.CommentID == commentID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.commentReports = kept
	return n, nil
}

func (m *memRepo) DeleteByPost(ctx context.Context, postID string) error {
	_, _ = m.DeletePostReports(ctx, postID)
	kept := m.commentReports[:0]
	for _, r := range m.commentReports {
		if r.PostID != postID {
			kept = append(kept, r)
		}
	}
	m.commentReports = kept
	return nil
}

type fakePosts struct {
	posts   map[string]*dbmongo.Post
	deleted []string
	cleaner feed.Cleaner
}

func (f *fakePosts) Locate(_ context.Context, id string) (*dbmongo.Post, error) {
	if p, ok := f.posts[id]; ok {
		return p, nil
	}
	return nil, common.NewNotFoundError("Post not found")
}

func (f *fakePosts) Hydrate(_ context.Context, ids []string) ([]feed.Item, error) {
	var out []feed.Item
	for _, id := range ids {
		if p, ok := f.posts[id]; ok {
			out = append(out, feed.Item{Post: *p})
		}
	}
	return out, nil
}

func (f *fakePosts) IncReportCount(_ context.Context, id string) error {
	p, ok := f.posts[id]
	if !ok {
		return common.NewNotFoundError("Post not found")
	}
	p.ReportCount++
	return nil
}

func (f *fakePosts) ResetReportCount(_ context.Context, id string) error {
	p, ok := f.posts[id]
	if !ok {
		return common.NewNotFoundError("Post not found")
	}
	p.ReportCount = 0
	return nil
}

func (f *fakePosts) Delete(ctx context.Context, actor common.Actor, id string) error {
	p, ok := f.posts[id]
	if !ok {
		return common.NewNotFoundError("Post not found")
	}
	if !actor.CanModify(p.Email) {
		return common.NewAuthorizationError("", "Unauthorized to delete this post")
	}
	if f.cleaner != nil {
		if err := f.cleaner.DeleteByPost(ctx, id); err != nil {
			return err
		}
	}
	delete(f.posts, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeComments struct {
	comments map[string]dbmongo.Comment
	removed  []string
}

func (f *fakeComments) Get(_ context.Context, id string) (*dbmongo.Comment, error) {
	if c, ok := f.comments[id]; ok {
		return &c, nil
	}
	return nil, common.NewNotFoundError("Comment not found")
}

func (f *fakeComments) FindByIDs(_ context.Context, ids []string) ([]dbmongo.Comment, error) {
	var out []dbmongo.Comment
	for _, id := range ids {
		if c, ok := f.comments[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeComments) Remove(_ context.Context, _ common.Actor, id string) error {
	if _, ok := f.comments[id]; !ok {
		return common.NewNotFoundError("Comment not found")
	}
	delete(f.comments, id)
	f.removed = append(f.removed, id)
	return nil
}

type staticAuthors struct{}

func (staticAuthors) Summaries(_ context.Context, emails []string) (map[string]*dbmysql.AuthorSummary, error) {
	out := map[string]*dbmysql.AuthorSummary{}
	for _, e := range emails {
		out[e] = &dbmysql.AuthorSummary{Name: "name:" + e}
	}
	return out, nil
}

type fixture struct {
	repo     *memRepo
	posts    *fakePosts
	comments *fakeComments
	svc      *service
	clock    time.Time
	postA    string
	postB    string
	comment  string
}

func newFixture() *fixture {
	postA := primitive.NewObjectID()
	postB := primitive.NewObjectID()
	commentID := primitive.NewObjectID()

	f := &fixture{
		repo: &memRepo{},
		posts: &fakePosts{posts: map[string]*dbmongo.Post{
			postA.Hex(): {ID: postA, Email: "alice@campus.edu", PostType: common.PostTypeGeneral},
			postB.Hex(): {ID: postB, Email: "tina@campus.edu", PostType: common.PostTypeTeacher},
		}},
		comments: &fakeComments{comments: map[string]dbmongo.Comment{
			commentID.Hex(): {ID: commentID, PostID: postA.Hex(), Email: "bob@campus.edu", Content: "rude"},
		}},
		clock:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		postA:   postA.Hex(),
		postB:   postB.Hex(),
		comment: commentID.Hex(),
	}
	f.posts.cleaner = f.repo
	f.svc = NewService(f.repo, f.posts, f.comments, staticAuthors{}, slog.New(slog.NewTextHandler(io.Discard, nil))).(*service)
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}
	return f
}

var (
	alice = common.Actor{Email: "alice@campus.edu", Role: common.RoleMember, Verify: common.VerifyApproved}
	bob   = common.Actor{Email: "bob@campus.edu", Role: common.RoleMember, Verify: common.VerifyApproved}
	admin = common.Actor{Email: "root@campus.edu", Role: common.RoleAdmin, Verify: common.VerifyApproved}
)

func TestReportPost(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.svc.ReportPost(ctx, bob, f.postA, ""))
	assert.Equal(t, "No reason provided", f.repo.reports[0].Reason)
	assert.Equal(t, 1, f.posts.posts[f.postA].ReportCount)

	err := f.svc.ReportPost(ctx, bob, f.postA, "spam")
	require.Error(t, err)
	assert.Equal(t, common.KindConflict, common.KindOf(err))
	assert.Equal(t, "You have already reported this post", err.Error())
	assert.Equal(t, 1, f.posts.posts[f.postA].ReportCount)

	err = f.svc.ReportPost(ctx, bob, primitive.NewObjectID().Hex(), "spam")
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
	assert.Len(t, f.repo.reports, 1)

	err = f.svc.ReportPost(ctx, bob, " ", "spam")
	assert.Equal(t, "Missing required fields", err.Error())
}

func TestReportComment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.svc.ReportComment(ctx, alice, f.comment, "mean"))
	assert.Equal(t, f.postA, f.repo.commentReports[0].PostID)
	assert.Equal(t, "mean", f.repo.commentReports[0].Reason)

	err := f.svc.ReportComment(ctx, alice, f.comment, "again")
	assert.Equal(t, "You already reported this comment", err.Error())

	err = f.svc.ReportComment(ctx, alice, primitive.NewObjectID().Hex(), "x")
	assert.Equal(t, "Comment not found", err.Error())
}

func TestPostQueue_OrdersByLatestAndPagesBeforeHydrating(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.svc.ReportPost(ctx, bob, f.postA, "a"))
	require.NoError(t, f.svc.ReportPost(ctx, alice, f.postB, "b"))
	require.NoError(t, f.svc.ReportPost(ctx, admin, f.postA, "c"))

	q, err := f.svc.PostQueue(ctx, QueueQuery{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), q.Total)
	require.Len(t, q.Items, 1)
	assert.Equal(t, f.postA, q.Items[0].ID.Hex())
	assert.Equal(t, int64(2), q.Items[0].ReportCount)

	q, err = f.svc.PostQueue(ctx, QueueQuery{Page: 2, Limit: 1})
	require.NoError(t, err)
	require.Len(t, q.Items, 1)
	assert.Equal(t, f.postB, q.Items[0].ID.Hex())

	q, err = f.svc.PostQueue(ctx, QueueQuery{TargetID: f.postB})
	require.NoError(t, err)
	assert.Equal(t, int64(1), q.Total)
}

func TestCommentQueue_HydratesParentAndAuthor(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.svc.ReportComment(ctx, alice, f.comment, "x"))

	q, err := f.svc.CommentQueue(ctx, QueueQuery{})
	require.NoError(t, err)
	require.Len(t, q.Items, 1)
	item := q.Items[0]
	assert.Equal(t, "rude", item.Content)
	assert.Equal(t, int64(1), item.ReportCount)
	require.NotNil(t, item.User)
	assert.Equal(t, "name:bob@campus.edu", item.User.Name)
	require.NotNil(t, item.Post)
	assert.Equal(t, f.postA, item.Post.ID.Hex())
}

func TestDismissPost_KeepsItem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.svc.ReportPost(ctx, bob, f.postA, ""))
	require.NoError(t, f.svc.ReportPost(ctx, alice, f.postA, ""))

	n, err := f.svc.DismissPost(ctx, f.postA)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 0, f.posts.posts[f.postA].ReportCount)
	assert.Empty(t, f.repo.reports)
	assert.Contains(t, f.posts.posts, f.postA)

	// reporting again after dismissal is allowed
	require.NoError(t, f.svc.ReportPost(ctx, bob, f.postA, ""))
}

func TestPurgePost_CascadesThroughDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.svc.ReportPost(ctx, bob, f.postA, ""))
	require.NoError(t, f.svc.ReportComment(ctx, alice, f.comment, ""))

	require.NoError(t, f.svc.PurgePost(ctx, admin, f.postA))
	assert.Equal(t, []string{f.postA}, f.posts.deleted)
	assert.Empty(t, f.repo.reports)
	assert.Empty(t, f.repo.commentReports)

	err := f.svc.PurgePost(ctx, admin, f.postA)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
	err = f.svc.PurgePost(ctx, admin, "nope")
	assert.Equal(t, common.KindValidation, common.KindOf(err))
}

func TestCommentDismissAndPurge(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.svc.ReportComment(ctx, alice, f.comment, ""))

	n, err := f.svc.DismissComment(ctx, f.comment)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Contains(t, f.comments.comments, f.comment)

	require.NoError(t, f.svc.ReportComment(ctx, alice, f.comment, ""))
	require.NoError(t, f.svc.PurgeComment(ctx, admin, f.comment))
	assert.Equal(t, []string{f.comment}, f.comments.removed)
	assert.Empty(t, f.repo.commentReports)

	// already gone: only reports are cleared
	require.NoError(t, f.svc.PurgeComment(ctx, admin, f.comment))
}
