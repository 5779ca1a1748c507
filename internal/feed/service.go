package feed

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"linkcamp/internal/common"
	"linkcamp/internal/dbmongo"
	"linkcamp/internal/dbmysql"
	"linkcamp/internal/realtime"
)

// CursorLayout is the ISO form of page cursors.
const CursorLayout = "2006-01-02T15:04:05.000Z07:00"

// Item is a content item as served to clients.
type Item struct {
	dbmongo.Post
	User         *dbmysql.AuthorSummary `json:"user,omitempty"`
	OriginalPost *Item                  `json:"originalPost,omitempty"`
}

type Page struct {
	Items      []Item  `json:"items"`
	NextCursor *string `json:"nextCursor"`
}

// PageRequest is a resolved pagination request. When Paginated is false
// every matching item is returned.
type PageRequest struct {
	Paginated bool
	Limit     int
	Cursor    *Cursor
}

type AuthorLookup interface {
	Summaries(ctx context.Context, emails []string) (map[string]*dbmysql.AuthorSummary, error)
}

// Cleaner removes records that reference a deleted item.
type Cleaner interface {
	DeleteByPost(ctx context.Context, postID string) error
}

type CreateInput struct {
	Partition common.PostType
	PostType  string
	Content   string
	Photo     string
	RepostOf  string
}

type UpdateInput struct {
	Content     *string
	RemovePhoto bool
	Photo       string
}

type Service interface {
	List(ctx context.Context, feed common.PostType, page PageRequest) (Page, error)
	UserActivity(ctx context.Context, email string, page PageRequest) (Page, error)
	Get(ctx context.Context, id string) (*Item, error)
	Hydrate(ctx context.Context, ids []string) ([]Item, error)
	Locate(ctx context.Context, id string) (*dbmongo.Post, error)
	Create(ctx context.Context, actor common.Actor, in CreateInput) (*Item, error)
	Update(ctx context.Context, actor common.Actor, id string, in UpdateInput) error
	Delete(ctx context.Context, actor common.Actor, id string) error
	ResolveRepostTarget(ctx context.Context, targetID string) (string, bool)
	RepostCounts(ctx context.Context, ids []string) ([]dbmongo.IDCount, error)
	IncReportCount(ctx context.Context, id string) error
	ResetReportCount(ctx context.Context, id string) error
}

type service struct {
	repo      Repository
	authors   AuthorLookup
	cleaners  []Cleaner
	publisher common.Publisher
	log       *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, authors AuthorLookup, cleaners []Cleaner, publisher common.Publisher, log *slog.Logger) Service {
	return &service{
		repo:      repo,
		authors:   authors,
		cleaners:  cleaners,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// sources lists the partition queries that make up a feed.
func sources(feed common.PostType) []Query {
	switch feed {
	case common.PostTypeGeneral:
		return []Query{{Partition: common.PostTypeGeneral, Types: []common.PostType{common.PostTypeGeneral}}}
	case common.PostTypeTeacher, common.PostTypeAdmin:
		return []Query{
			{Partition: feed},
			{Partition: common.PostTypeGeneral, Types: []common.PostType{feed}},
		}
	default:
		return []Query{
			{Partition: common.PostTypeGeneral},
			{Partition: common.PostTypeTeacher},
			{Partition: common.PostTypeAdmin},
		}
	}
}

func (s *service) List(ctx context.Context, feed common.PostType, page PageRequest) (Page, error) {
	return s.collect(ctx, sources(feed), "", page)
}

func (s *service) UserActivity(ctx context.Context, email string, page PageRequest) (Page, error) {
	email = common.NormalizeEmail(email)
	if email == "" {
		return Page{}, common.NewValidationError("Email is required")
	}
	return s.collect(ctx, sources(""), email, page)
}

// collect queries every source with the page bounds, merges the results and
// only then slices, so no source can push another's items off a page.
func (s *service) collect(ctx context.Context, queries []Query, email string, page PageRequest) (Page, error) {
	lists := make([][]dbmongo.Post, 0, len(queries))
	for _, q := range queries {
		q.Email = email
		q.Before = page.Cursor
		if page.Paginated {
			q.Limit = int64(page.Limit)
		}
		posts, err := s.repo.Find(ctx, q)
		if err != nil {
			return Page{}, err
		}
		lists = append(lists, posts)
	}

	merged := mergeNewestFirst(lists...)
	if page.Paginated && len(merged) > page.Limit {
		merged = merged[:page.Limit]
	}

	items, err := s.enrich(ctx, merged)
	if err != nil {
		return Page{}, err
	}

	out := Page{Items: items}
	if page.Paginated && len(items) == page.Limit && len(items) > 0 {
		last := items[len(items)-1]
		cursor := Cursor{At: last.CreatedAt, ID: last.ID}.String()
		out.NextCursor = &cursor
	}
	return out, nil
}

func mergeNewestFirst(lists ...[]dbmongo.Post) []dbmongo.Post {
	var merged []dbmongo.Post
	seen := make(map[primitive.ObjectID]bool)
	for _, list := range lists {
		for _, p := range list {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			merged = append(merged, p)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.After(merged[j].CreatedAt)
		}
		return merged[i].ID.Hex() > merged[j].ID.Hex()
	})
	return merged
}

// enrich attaches repost roots and author summaries using one lookup per kind.
func (s *service) enrich(ctx context.Context, posts []dbmongo.Post) ([]Item, error) {
	items := make([]Item, 0, len(posts))
	if len(posts) == 0 {
		return items, nil
	}

	var rootIDs []string
	for _, p := range posts {
		if p.RepostOf != nil && *p.RepostOf != "" {
			rootIDs = append(rootIDs, *p.RepostOf)
		}
	}
	originals := map[string]dbmongo.Post{}
	if len(rootIDs) > 0 {
		roots, err := s.repo.FindByIDs(ctx, dbmongo.ObjectIDs(common.UniqueIDs(rootIDs)))
		if err != nil {
			return nil, err
		}
		for _, r := range roots {
			originals[r.ID.Hex()] = r
		}
	}

	emails := make([]string, 0, len(posts)+len(originals))
	for _, p := range posts {
		emails = append(emails, p.Email)
	}
	for _, o := range originals {
		emails = append(emails, o.Email)
	}
	authors, err := s.authors.Summaries(ctx, emails)
	if err != nil {
		return nil, err
	}

	for _, p := range posts {
		item := Item{Post: p, User: authors[common.NormalizeEmail(p.Email)]}
		if p.RepostOf != nil {
			if o, ok := originals[*p.RepostOf]; ok {
				item.OriginalPost = &Item{Post: o, User: authors[common.NormalizeEmail(o.Email)]}
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *service) Get(ctx context.Context, id string) (*Item, error) {
	post, err := s.Locate(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.enrich(ctx, []dbmongo.Post{*post})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// Hydrate loads and enriches the items with the given ids, skipping unknown
// ones. Order follows ids.
func (s *service) Hydrate(ctx context.Context, ids []string) ([]Item, error) {
	posts, err := s.repo.FindByIDs(ctx, dbmongo.ObjectIDs(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[string]dbmongo.Post, len(posts))
	for _, p := range posts {
		byID[p.ID.Hex()] = p
	}
	ordered := make([]dbmongo.Post, 0, len(posts))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
			delete(byID, id)
		}
	}
	return s.enrich(ctx, ordered)
}

// Locate finds an item in any partition. The returned PostType is normalized.
func (s *service) Locate(ctx context.Context, id string) (*dbmongo.Post, error) {
	return NewLocator(s.repo).Locate(ctx, id)
}

// ResolveRepostTarget returns the root id a repost of targetID should
// reference. Malformed or unknown targets report false.
func (s *service) ResolveRepostTarget(ctx context.Context, targetID string) (string, bool) {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return "", false
	}
	target, err := s.Locate(ctx, targetID)
	if err != nil {
		s.log.WarnContext(ctx, "repost target unresolved, storing as standalone post", "target", targetID, "error", err)
		return "", false
	}
	return target.RootID(), true
}

func (s *service) Create(ctx context.Context, actor common.Actor, in CreateInput) (*Item, error) {
	partition := in.Partition
	if partition == "" {
		partition = common.PostTypeGeneral
	}

	postType := partition
	if partition == common.PostTypeGeneral {
		postType = s.allowedType(actor, in.PostType)
	}

	content := common.TrimmedOrNil(in.Content)
	photo := common.TrimmedOrNil(in.Photo)
	wantsRepost := partition == common.PostTypeGeneral && strings.TrimSpace(in.RepostOf) != ""
	if content == nil && photo == nil && !wantsRepost {
		return nil, common.NewValidationError("Either content or photo is required")
	}

	post := &dbmongo.Post{
		Email:     actor.Email,
		Content:   content,
		Photo:     photo,
		PostType:  postType,
		CreatedAt: s.now(),
	}
	if wantsRepost {
		if root, ok := s.ResolveRepostTarget(ctx, in.RepostOf); ok {
			post.RepostOf = &root
		}
	}
	if post.Content == nil && post.Photo == nil && post.RepostOf == nil {
		return nil, common.NewValidationError("Either content or photo is required")
	}

	if err := s.repo.Insert(ctx, partition, post); err != nil {
		return nil, err
	}

	items, err := s.enrich(ctx, []dbmongo.Post{*post})
	if err != nil {
		// the write succeeded; serve the bare item
		s.log.WarnContext(ctx, "enrich created post failed", "post_id", post.ID.Hex(), "error", err)
		items = []Item{{Post: *post}}
	}
	created := items[0]
	id := post.ID.Hex()

	s.publisher.Publish(realtime.PostEvent(realtime.EventPostCreated, postType, id, actor.Email, realtime.PostPayload{Post: created}))
	if post.RepostOf != nil {
		s.publisher.Publish(realtime.RepostEvent(postType, realtime.RepostPayload{
			PostID:    *post.RepostOf,
			RepostID:  id,
			CreatedAt: post.CreatedAt,
		}))
	}

	s.log.InfoContext(ctx, "post created", "post_id", id, "partition", partition, "post_type", postType)
	return &created, nil
}

// allowedType downgrades teacher and admin types the actor may not publish.
func (s *service) allowedType(actor common.Actor, requested string) common.PostType {
	pt := common.PostType(strings.ToLower(strings.TrimSpace(requested)))
	if !pt.IsValid() {
		return common.PostTypeGeneral
	}
	if role, restricted := pt.RequiredRole(); restricted && actor.Role != role && !actor.IsAdmin() {
		return common.PostTypeGeneral
	}
	return pt
}

func (s *service) Update(ctx context.Context, actor common.Actor, id string, in UpdateInput) error {
	oid, err := dbmongo.ParseObjectID(id, "post")
	if err != nil {
		return err
	}
	post, partition, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return err
	}
	if !actor.CanModify(post.Email) {
		return common.NewAuthorizationError("", "Unauthorized to edit this post")
	}

	patch := Patch{UpdatedAt: s.now()}
	if in.Content != nil {
		patch.SetContent = true
		patch.Content = common.TrimmedOrNil(*in.Content)
	}
	if in.RemovePhoto {
		patch.SetPhoto = true
		patch.Photo = nil
	}
	if in.Photo != "" {
		photo := in.Photo
		patch.SetPhoto = true
		patch.Photo = &photo
	}

	if err := s.repo.Update(ctx, partition, oid, patch); err != nil {
		return err
	}

	updated, _, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		s.log.WarnContext(ctx, "reload after update failed", "post_id", id, "error", err)
		return nil
	}
	items, err := s.enrich(ctx, []dbmongo.Post{*updated})
	if err != nil {
		items = []Item{{Post: *updated}}
	}
	s.publisher.Publish(realtime.PostEvent(realtime.EventPostUpdated, updated.PostType, id, updated.Email, realtime.PostPayload{Post: items[0]}))
	return nil
}

// Delete removes the item after its dependents. Cleanup runs as independent
// steps; a failure stops before the item itself is removed.
func (s *service) Delete(ctx context.Context, actor common.Actor, id string) error {
	oid, err := dbmongo.ParseObjectID(id, "post")
	if err != nil {
		return err
	}
	post, partition, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return err
	}
	if !actor.CanModify(post.Email) {
		return common.NewAuthorizationError("", "Unauthorized to delete this post")
	}

	for _, c := range s.cleaners {
		if err := c.DeleteByPost(ctx, id); err != nil {
			return err
		}
	}
	if err := s.repo.Delete(ctx, partition, oid); err != nil {
		return err
	}

	s.publisher.Publish(realtime.PostEvent(realtime.EventPostDeleted, post.PostType, id, post.Email, realtime.PostDeletedPayload{
		PostID:   id,
		PostType: post.PostType,
		Email:    post.Email,
	}))
	s.log.InfoContext(ctx, "post deleted", "post_id", id, "by", actor.Email)
	return nil
}

func (s *service) RepostCounts(ctx context.Context, ids []string) ([]dbmongo.IDCount, error) {
	counts, err := s.repo.RepostCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = []dbmongo.IDCount{}
	}
	return counts, nil
}

func (s *service) IncReportCount(ctx context.Context, id string) error {
	return s.withPartition(ctx, id, s.repo.IncReportCount)
}

func (s *service) ResetReportCount(ctx context.Context, id string) error {
	return s.withPartition(ctx, id, s.repo.ResetReportCount)
}

func (s *service) withPartition(ctx context.Context, id string, fn func(context.Context, common.PostType, primitive.ObjectID) error) error {
	oid, err := dbmongo.ParseObjectID(id, "post")
	if err != nil {
		return err
	}
	_, partition, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return err
	}
	return fn(ctx, partition, oid)
}
