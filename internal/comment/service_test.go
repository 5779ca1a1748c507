package comment

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"linkcamp/internal/common"
	"linkcamp/internal/dbmongo"
	"linkcamp/internal/dbmysql"
	"linkcamp/internal/realtime"
)

const postID = "65f1a2b3c4d5e6f708192a3b"

type memRepo struct {
	comments map[primitive.ObjectID]dbmongo.Comment
}

func newMemRepo() *memRepo {
	return &memRepo{comments: map[primitive.ObjectID]dbmongo.Comment{}}
}

func (m *memRepo) Insert(_ context.Context, c *dbmongo.Comment) error {
	c.ID = primitive.NewObjectID()
	m.comments[c.ID] = *c
	return nil
}

func (m *memRepo) FindByID(_ context.Context, id primitive.ObjectID) (*dbmongo.Comment, error) {
	c, ok := m.comments[id]
	if !ok {
		return nil, common.NewNotFoundError("Comment not found")
	}
	return &c, nil
}

func (m *memRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]dbmongo.Comment, error) {
	out := []dbmongo.Comment{}
	for _, id := range ids {
		if c, ok := m.comments[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memRepo) ListByPost(_ context.Context, postID string) ([]dbmongo.Comment, error) {
	out := []dbmongo.Comment{}
	for _, c := range m.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) UpdateContent(_ context.Context, id primitive.ObjectID, content string, editedAt time.Time) error {
	c, ok := m.comments[id]
	if !ok {
		return common.NewNotFoundError("Comment not found")
	}
	c.Content = content
	c.EditedAt = &editedAt
	m.comments[id] = c
	return nil
}

func (m *memRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := m.comments[id]; !ok {
		return common.NewNotFoundError("Comment not found")
	}
	delete(m.comments, id)
	return nil
}

func (m *memRepo) Counts(_ context.Context, postIDs []string) ([]dbmongo.IDCount, error) {
	counts := map[string]int64{}
	for _, c := range m.comments {
		counts[c.PostID]++
	}
	out := []dbmongo.IDCount{}
	for _, id := range postIDs {
		if n, ok := counts[id]; ok {
			out = append(out, dbmongo.IDCount{ID: id, Count: n})
		}
	}
	return out, nil
}

func (m *memRepo) DeleteByPost(_ context.Context, postID string) error {
	for id, c := range m.comments {
		if c.PostID == postID {
			delete(m.comments, id)
		}
	}
	return nil
}

type fakeLocator struct{}

func (fakeLocator) Locate(_ context.Context, id string) (*dbmongo.Post, error) {
	if id == postID {
		return &dbmongo.Post{Email: "tina@campus.edu", PostType: common.PostTypeTeacher}, nil
	}
	return nil, common.NewNotFoundError("Post not found")
}

type fakeAuthors struct {
	calls int
}

func (f *fakeAuthors) Summaries(_ context.Context, emails []string) (map[string]*dbmysql.AuthorSummary, error) {
	f.calls++
	out := map[string]*dbmysql.AuthorSummary{}
	for _, e := range emails {
		out[e] = &dbmysql.AuthorSummary{Name: "name:" + e}
	}
	return out, nil
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

type fakeReports struct {
	byComment map[string]int64
	cleared   []string
}

func (r *fakeReports) DeleteCommentReports(_ context.Context, commentID string) (int64, error) {
	r.cleared = append(r.cleared, commentID)
	n := r.byComment[commentID]
	delete(r.byComment, commentID)
	return n, nil
}

type fixture struct {
	repo    *memRepo
	authors *fakeAuthors
	reports *fakeReports
	pub     *capturePublisher
	svc     *service
	clock   time.Time
}

func newFixture() *fixture {
	f := &fixture{
		repo:    newMemRepo(),
		authors: &fakeAuthors{},
		reports: &fakeReports{byComment: map[string]int64{}},
		pub:     &capturePublisher{},
		clock:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.repo, fakeLocator{}, f.authors, f.reports, f.pub, slog.New(slog.NewTextHandler(io.Discard, nil))).(*service)
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	return f
}

var (
	alice = common.Actor{Email: "alice@campus.edu", Role: common.RoleMember, Verify: common.VerifyApproved}
	bob   = common.Actor{Email: "bob@campus.edu", Role: common.RoleMember, Verify: common.VerifyApproved}
	admin = common.Actor{Email: "root@campus.edu", Role: common.RoleAdmin, Verify: common.VerifyApproved}
)

func TestAdd(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	view, err := f.svc.Add(ctx, alice, postID, "  first!  ")
	require.NoError(t, err)
	assert.Equal(t, "first!", view.Content)
	require.NotNil(t, view.User)
	assert.Equal(t, "name:alice@campus.edu", view.User.Name)

	require.Len(t, f.pub.events, 1)
	ev := f.pub.events[0]
	assert.Equal(t, realtime.EventCommentCreated, ev.Name)
	assert.Equal(t, []string{realtime.ItemRoom(postID)}, ev.Rooms)
	assert.Equal(t, 1, ev.Payload.(realtime.CommentPayload).Delta)

	_, err = f.svc.Add(ctx, alice, postID, "   ")
	assert.Equal(t, "Missing required fields", err.Error())
	_, err = f.svc.Add(ctx, alice, "", "hi")
	assert.Equal(t, common.KindValidation, common.KindOf(err))
	_, err = f.svc.Add(ctx, alice, "65f1a2b3c4d5e6f708192a3c", "hi")
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
	assert.Len(t, f.repo.comments, 1)
}

func TestList_ChronologicalWithBatchedAuthors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for _, actor := range []common.Actor{alice, bob, alice} {
		_, err := f.svc.Add(ctx, actor, postID, "msg from "+actor.Email)
		require.NoError(t, err)
	}
	f.authors.calls = 0

	views, err := f.svc.List(ctx, postID)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "alice@campus.edu", views[0].Email)
	assert.Equal(t, "bob@campus.edu", views[1].Email)
	for i := 1; i < len(views); i++ {
		assert.True(t, views[i-1].CreatedAt.Before(views[i].CreatedAt))
	}
	assert.Equal(t, 1, f.authors.calls)

	empty, err := f.svc.List(ctx, "65f1a2b3c4d5e6f708192a3c")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestEdit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view, err := f.svc.Add(ctx, alice, postID, "draft")
	require.NoError(t, err)
	id := view.ID.Hex()

	_, err = f.svc.Edit(ctx, bob, id, "hijack")
	assert.Equal(t, common.KindAuthorization, common.KindOf(err))
	assert.Equal(t, "Unauthorized to edit this comment", err.Error())

	_, err = f.svc.Edit(ctx, alice, id, " ")
	assert.Equal(t, "Content is required", err.Error())

	_, err = f.svc.Edit(ctx, alice, primitive.NewObjectID().Hex(), "x")
	assert.Equal(t, "Comment not found", err.Error())

	_, err = f.svc.Edit(ctx, alice, "zzz", "x")
	assert.Equal(t, "Invalid comment ID", err.Error())

	edited, err := f.svc.Edit(ctx, admin, id, "final")
	require.NoError(t, err)
	assert.Equal(t, "final", edited.Content)
	require.NotNil(t, edited.EditedAt)
	assert.Equal(t, "alice@campus.edu", edited.Email)

	last := f.pub.events[len(f.pub.events)-1]
	assert.Equal(t, realtime.EventCommentUpdated, last.Name)
	assert.Equal(t, 0, last.Payload.(realtime.CommentPayload).Delta)
}

func TestRemove(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view, err := f.svc.Add(ctx, alice, postID, "bye")
	require.NoError(t, err)
	id := view.ID.Hex()

	f.reports.byComment[id] = 2

	err = f.svc.Remove(ctx, bob, id)
	assert.Equal(t, common.KindAuthorization, common.KindOf(err))
	assert.Empty(t, f.reports.cleared)

	require.NoError(t, f.svc.Remove(ctx, alice, id))
	assert.Empty(t, f.repo.comments)
	assert.Equal(t, []string{id}, f.reports.cleared)
	assert.Empty(t, f.reports.byComment)

	last := f.pub.events[len(f.pub.events)-1]
	assert.Equal(t, realtime.EventCommentDeleted, last.Name)
	assert.Equal(t, realtime.CommentDeletedPayload{PostID: postID, CommentID: id, Delta: -1}, last.Payload)

	err = f.svc.Remove(ctx, alice, id)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}

func TestCountsAndDeleteByPost(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := f.svc.Add(ctx, alice, postID, "c")
		require.NoError(t, err)
	}

	counts, err := f.svc.Counts(ctx, []string{postID})
	require.NoError(t, err)
	assert.Equal(t, []dbmongo.IDCount{{ID: postID, Count: 2}}, counts)

	require.NoError(t, f.svc.DeleteByPost(ctx, postID))
	counts, err = f.svc.Counts(ctx, []string{postID})
	require.NoError(t, err)
	assert.Empty(t, counts)
}
