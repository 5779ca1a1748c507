package moderation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"linkcamp/internal/common"
	"linkcamp/internal/dbmongo"
	"linkcamp/internal/dbmysql"
	"linkcamp/internal/feed"
)

const (
	msgDuplicatePostReport    = "You have already reported this post"
	msgDuplicateCommentReport = "You already reported this comment"
	defaultReason             = "No reason provided"

	defaultQueueLimit = 20
	maxQueueLimit     = 100
)

// Posts is the part of the feed the moderation queue works through.
type Posts interface {
	Locate(ctx context.Context, id string) (*dbmongo.Post, error)
	Hydrate(ctx context.Context, ids []string) ([]feed.Item, error)
	IncReportCount(ctx context.Context, id string) error
	ResetReportCount(ctx context.Context, id string) error
	Delete(ctx context.Context, actor common.Actor, id string) error
}

type Comments interface {
	Get(ctx context.Context, id string) (*dbmongo.Comment, error)
	FindByIDs(ctx context.Context, ids []string) ([]dbmongo.Comment, error)
	Remove(ctx context.Context, actor common.Actor, id string) error
}

type AuthorLookup interface {
	Summaries(ctx context.Context, emails []string) (map[string]*dbmysql.AuthorSummary, error)
}

// ReportedPost is a queue row for a content item.
type ReportedPost struct {
	feed.Item
	ReportCount  int64     `json:"reportCount"`
	LastReported time.Time `json:"lastReportedAt"`
}

// ReportedComment is a queue row for a comment, with its parent item.
type ReportedComment struct {
	dbmongo.Comment
	ReportCount  int64                  `json:"reportCount"`
	LastReported time.Time              `json:"lastReportedAt"`
	User         *dbmysql.AuthorSummary `json:"user"`
	Post         *feed.Item             `json:"post"`
}

type Queue[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

type Service interface {
	ReportPost(ctx context.Context, actor common.Actor, postID, reason string) error
	ReportComment(ctx context.Context, actor common.Actor, commentID, reason string) error
	PostQueue(ctx context.Context, q QueueQuery) (Queue[ReportedPost], error)
	CommentQueue(ctx context.Context, q QueueQuery) (Queue[ReportedComment], error)
	DismissPost(ctx context.Context, postID string) (int64, error)
	PurgePost(ctx context.Context, actor common.Actor, postID string) error
	DismissComment(ctx context.Context, commentID string) (int64, error)
	PurgeComment(ctx context.Context, actor common.Actor, commentID string) error
}

type service struct {
	repo     Repository
	posts    Posts
	comments Comments
	authors  AuthorLookup
	log      *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, posts Posts, comments Comments, authors AuthorLookup, log *slog.Logger) Service {
	return &service{
		repo:     repo,
		posts:    posts,
		comments: comments,
		authors:  authors,
		log:      log,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func reasonOrDefault(reason string) string {
	if r := strings.TrimSpace(reason); r != "" {
		return r
	}
	return defaultReason
}

// ReportPost records one report per reporter and bumps the item's counter.
// The item must exist before anything is stored.
func (s *service) ReportPost(ctx context.Context, actor common.Actor, postID, reason string) error {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return common.NewValidationError("Missing required fields")
	}
	if _, err := s.posts.Locate(ctx, postID); err != nil {
		return err
	}

	dup, err := s.repo.HasPostReport(ctx, postID, actor.Email)
	if err != nil {
		return err
	}
	if dup {
		return common.NewConflictError(msgDuplicatePostReport)
	}

	if err := s.repo.InsertPostReport(ctx, &dbmongo.Report{
		PostID:     postID,
		ReportedBy: actor.Email,
		Reason:     reasonOrDefault(reason),
		ReportedAt: s.now(),
	}); err != nil {
		return err
	}
	if err := s.posts.IncReportCount(ctx, postID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "post reported", "post_id", postID, "by", actor.Email)
	return nil
}

func (s *service) ReportComment(ctx context.Context, actor common.Actor, commentID, reason string) error {
	commentID = strings.TrimSpace(commentID)
	if commentID == "" {
		return common.NewValidationError("Missing required fields")
	}
	c, err := s.comments.Get(ctx, commentID)
	if err != nil {
		return err
	}

	dup, err := s.repo.HasCommentReport(ctx, commentID, actor.Email)
	if err != nil {
		return err
	}
	if dup {
		return common.NewConflictError(msgDuplicateCommentReport)
	}

	return s.repo.InsertCommentReport(ctx, &dbmongo.CommentReport{
		CommentID:  commentID,
		PostID:     c.PostID,
		ReportedBy: actor.Email,
		Reason:     reasonOrDefault(reason),
		ReportedAt: s.now(),
	})
}

func normalizeQuery(q QueueQuery) QueueQuery {
	q.TargetID = strings.TrimSpace(q.TargetID)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultQueueLimit
	}
	if q.Limit > maxQueueLimit {
		q.Limit = maxQueueLimit
	}
	return q
}

func (s *service) PostQueue(ctx context.Context, q QueueQuery) (Queue[ReportedPost], error) {
	entries, total, err := s.repo.PostQueue(ctx, normalizeQuery(q))
	if err != nil {
		return Queue[ReportedPost]{}, err
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.TargetID)
	}
	items, err := s.posts.Hydrate(ctx, ids)
	if err != nil {
		return Queue[ReportedPost]{}, err
	}

	stats := make(map[string]Entry, len(entries))
	for _, e := range entries {
		stats[e.TargetID] = e
	}
	out := Queue[ReportedPost]{Items: make([]ReportedPost, 0, len(items)), Total: total}
	for _, it := range items {
		e := stats[it.ID.Hex()]
		out.Items = append(out.Items, ReportedPost{Item: it, ReportCount: e.Count, LastReported: e.Latest})
	}
	return out, nil
}

func (s *service) CommentQueue(ctx context.Context, q QueueQuery) (Queue[ReportedComment], error) {
	entries, total, err := s.repo.CommentQueue(ctx, normalizeQuery(q))
	if err != nil {
		return Queue[ReportedComment]{}, err
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.TargetID)
	}
	found, err := s.comments.FindByIDs(ctx, ids)
	if err != nil {
		return Queue[ReportedComment]{}, err
	}
	byID := make(map[string]dbmongo.Comment, len(found))
	postIDs := make([]string, 0, len(found))
	emails := make([]string, 0, len(found))
	for _, c := range found {
		byID[c.ID.Hex()] = c
		postIDs = append(postIDs, c.PostID)
		emails = append(emails, c.Email)
	}

	parents, err := s.posts.Hydrate(ctx, common.UniqueIDs(postIDs))
	if err != nil {
		return Queue[ReportedComment]{}, err
	}
	parentByID := make(map[string]*feed.Item, len(parents))
	for i := range parents {
		parentByID[parents[i].ID.Hex()] = &parents[i]
	}
	authors, err := s.authors.Summaries(ctx, emails)
	if err != nil {
		return Queue[ReportedComment]{}, err
	}

	out := Queue[ReportedComment]{Items: make([]ReportedComment, 0, len(found)), Total: total}
	for _, e := range entries {
		c, ok := byID[e.TargetID]
		if !ok {
			continue
		}
		out.Items = append(out.Items, ReportedComment{
			Comment:      c,
			ReportCount:  e.Count,
			LastReported: e.Latest,
			User:         authors[common.NormalizeEmail(c.Email)],
			Post:         parentByID[c.PostID],
		})
	}
	return out, nil
}

// DismissPost clears an item's reports and counter, keeping the item.
func (s *service) DismissPost(ctx context.Context, postID string) (int64, error) {
	if _, err := dbmongo.ParseObjectID(postID, "post"); err != nil {
		return 0, err
	}
	n, err := s.repo.DeletePostReports(ctx, postID)
	if err != nil {
		return 0, err
	}
	if err := s.posts.ResetReportCount(ctx, postID); err != nil && common.KindOf(err) != common.KindNotFound {
		return n, err
	}
	return n, nil
}

// PurgePost removes the reports and then the item with everything hanging off it.
func (s *service) PurgePost(ctx context.Context, actor common.Actor, postID string) error {
	if _, err := dbmongo.ParseObjectID(postID, "post"); err != nil {
		return err
	}
	if _, err := s.repo.DeletePostReports(ctx, postID); err != nil {
		return err
	}
	return s.posts.Delete(ctx, actor, postID)
}

func (s *service) DismissComment(ctx context.Context, commentID string) (int64, error) {
	if _, err := dbmongo.ParseObjectID(commentID, "comment"); err != nil {
		return 0, err
	}
	return s.repo.DeleteCommentReports(ctx, commentID)
}

// PurgeComment removes a comment's reports and the comment. A comment that
// is already gone only has its reports cleared.
func (s *service) PurgeComment(ctx context.Context, actor common.Actor, commentID string) error {
	if _, err := dbmongo.ParseObjectID(commentID, "comment"); err != nil {
		return err
	}
	if _, err := s.repo.DeleteCommentReports(ctx, commentID); err != nil {
		return err
	}
	if err := s.comments.Remove(ctx, actor, commentID); err != nil && common.KindOf(err) != common.KindNotFound {
		return err
	}
	return nil
}
