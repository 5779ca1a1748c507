package comment

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"linkcamp/internal/common"
	"linkcamp/internal/dbmongo"
	"linkcamp/internal/dbmysql"
	"linkcamp/internal/realtime"
)

// View is a comment with its author summary attached.
type View struct {
	dbmongo.Comment
	User *dbmysql.AuthorSummary `json:"user"`
}

type PostLocator interface {
	Locate(ctx context.Context, id string) (*dbmongo.Post, error)
}

type AuthorLookup interface {
	Summaries(ctx context.Context, emails []string) (map[string]*dbmysql.AuthorSummary, error)
}

// ReportCleaner drops moderation reports filed against a comment.
type ReportCleaner interface {
	DeleteCommentReports(ctx context.Context, commentID string) (int64, error)
}

type Service interface {
	Add(ctx context.Context, actor common.Actor, postID, content string) (*View, error)
	Edit(ctx context.Context, actor common.Actor, id, content string) (*View, error)
	Remove(ctx context.Context, actor common.Actor, id string) error
	List(ctx context.Context, postID string) ([]View, error)
	Counts(ctx context.Context, postIDs []string) ([]dbmongo.IDCount, error)
	Get(ctx context.Context, id string) (*dbmongo.Comment, error)
	FindByIDs(ctx context.Context, ids []string) ([]dbmongo.Comment, error)
	DeleteByPost(ctx context.Context, postID string) error
}

type service struct {
	repo      Repository
	posts     PostLocator
	authors   AuthorLookup
	reports   ReportCleaner
	publisher common.Publisher
	log       *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, posts PostLocator, authors AuthorLookup, reports ReportCleaner, publisher common.Publisher, log *slog.Logger) Service {
	return &service{
		repo:      repo,
		posts:     posts,
		authors:   authors,
		reports:   reports,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (s *service) Add(ctx context.Context, actor common.Actor, postID, content string) (*View, error) {
	postID = strings.TrimSpace(postID)
	content = strings.TrimSpace(content)
	if postID == "" || content == "" {
		return nil, common.NewValidationError("Missing required fields")
	}
	if _, err := s.posts.Locate(ctx, postID); err != nil {
		return nil, err
	}

	c := &dbmongo.Comment{
		PostID:    postID,
		Email:     actor.Email,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.repo.Insert(ctx, c); err != nil {
		return nil, err
	}

	view := s.withAuthors(ctx, []dbmongo.Comment{*c})[0]
	s.publisher.Publish(realtime.CommentEvent(realtime.EventCommentCreated, postID, realtime.CommentPayload{
		PostID:  postID,
		Comment: view,
		Delta:   1,
	}))
	return &view, nil
}

func (s *service) Edit(ctx context.Context, actor common.Actor, id, content string) (*View, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, common.NewValidationError("Content is required")
	}
	if !actor.CanModify(existing.Email) {
		return nil, common.NewAuthorizationError("", "Unauthorized to edit this comment")
	}

	editedAt := s.now()
	if err := s.repo.UpdateContent(ctx, existing.ID, content, editedAt); err != nil {
		return nil, err
	}
	existing.Content = content
	existing.EditedAt = &editedAt

	view := s.withAuthors(ctx, []dbmongo.Comment{*existing})[0]
	s.publisher.Publish(realtime.CommentEvent(realtime.EventCommentUpdated, existing.PostID, realtime.CommentPayload{
		PostID:  existing.PostID,
		Comment: view,
		Delta:   0,
	}))
	return &view, nil
}

func (s *service) Remove(ctx context.Context, actor common.Actor, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanModify(existing.Email) {
		return common.NewAuthorizationError("", "Unauthorized to delete this comment")
	}
	if err := s.repo.Delete(ctx, existing.ID); err != nil {
		return err
	}

	commentID := existing.ID.Hex()
	if _, err := s.reports.DeleteCommentReports(ctx, commentID); err != nil {
		s.log.WarnContext(ctx, "comment report cleanup failed", "comment_id", commentID, "error", err)
	}
	s.publisher.Publish(realtime.CommentEvent(realtime.EventCommentDeleted, existing.PostID, realtime.CommentDeletedPayload{
		PostID:    existing.PostID,
		CommentID: commentID,
		Delta:     -1,
	}))
	s.log.InfoContext(ctx, "comment deleted", "comment_id", commentID, "post_id", existing.PostID, "by", actor.Email)
	return nil
}

func (s *service) List(ctx context.Context, postID string) ([]View, error) {
	comments, err := s.repo.ListByPost(ctx, strings.TrimSpace(postID))
	if err != nil {
		return nil, err
	}
	return s.withAuthors(ctx, comments), nil
}

func (s *service) Counts(ctx context.Context, postIDs []string) ([]dbmongo.IDCount, error) {
	return s.repo.Counts(ctx, postIDs)
}

func (s *service) Get(ctx context.Context, id string) (*dbmongo.Comment, error) {
	oid, err := dbmongo.ParseObjectID(id, "comment")
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, oid)
}

func (s *service) FindByIDs(ctx context.Context, ids []string) ([]dbmongo.Comment, error) {
	return s.repo.FindByIDs(ctx, dbmongo.ObjectIDs(ids))
}

func (s *service) DeleteByPost(ctx context.Context, postID string) error {
	return s.repo.DeleteByPost(ctx, postID)
}

// withAuthors resolves every distinct author in one lookup. A failed lookup
// leaves the summaries empty rather than failing the read.
func (s *service) withAuthors(ctx context.Context, comments []dbmongo.Comment) []View {
	views := make([]View, 0, len(comments))
	if len(comments) == 0 {
		return views
	}
	emails := make([]string, 0, len(comments))
	for _, c := range comments {
		emails = append(emails, c.Email)
	}
	authors, err := s.authors.Summaries(ctx, emails)
	if err != nil {
		s.log.WarnContext(ctx, "comment author lookup failed", "error", err)
	}
	for _, c := range comments {
		views = append(views, View{Comment: c, User: authors[common.NormalizeEmail(c.Email)]})
	}
	return views
}
