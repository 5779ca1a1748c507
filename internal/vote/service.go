package vote

import (
	"context"
	"log/slog"
	"strings"

	"linkcamp/internal/common"
	"linkcamp/internal/dbmongo"
	"linkcamp/internal/metrics"
	"linkcamp/internal/realtime"
)

type Outcome string

const (
	OutcomeAdded   Outcome = "added"
	OutcomeRemoved Outcome = "removed"
	OutcomeChanged Outcome = "changed"
)

// Message is the response text for an outcome.
func (o Outcome) Message() string {
	switch o {
	case OutcomeAdded:
		return "Vote added"
	case OutcomeRemoved:
		return "Vote removed"
	default:
		return "Vote updated"
	}
}

// Result carries the direction before and after a cast; nil means no vote.
type Result struct {
	Outcome  Outcome
	Previous *common.VoteType
	Current  *common.VoteType
}

// PostLocator resolves a content item across partitions.
type PostLocator interface {
	Locate(ctx context.Context, id string) (*dbmongo.Post, error)
}

type CastInput struct {
	PostID         string
	VoteType       string
	OriginSocketID string
}

type Service interface {
	Cast(ctx context.Context, actor common.Actor, in CastInput) (Result, error)
	MyVotes(ctx context.Context, email string, postIDs []string) ([]dbmongo.Vote, error)
	Counts(ctx context.Context, postIDs []string) ([]Counts, error)
	CountsFor(ctx context.Context, postID string) (Counts, error)
	DeleteByPost(ctx context.Context, postID string) error
}

type service struct {
	repo      Repository
	posts     PostLocator
	cache     CountCache
	publisher common.Publisher
	metrics   *metrics.Metrics
	log       *slog.Logger
}

func NewService(repo Repository, posts PostLocator, cache CountCache, publisher common.Publisher, m *metrics.Metrics, log *slog.Logger) Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &service{repo: repo, posts: posts, cache: cache, publisher: publisher, metrics: m, log: log}
}

// Cast toggles the voter's vote: a first vote is added, the same direction
// again removes it and the opposite direction replaces it.
func (s *service) Cast(ctx context.Context, actor common.Actor, in CastInput) (Result, error) {
	postID := strings.TrimSpace(in.PostID)
	if postID == "" || strings.TrimSpace(in.VoteType) == "" {
		return Result{}, common.NewValidationError("postId and voteType are required")
	}
	if _, err := dbmongo.ParseObjectID(postID, "post"); err != nil {
		return Result{}, err
	}
	direction := common.VoteType(strings.ToLower(strings.TrimSpace(in.VoteType)))
	if !direction.IsValid() {
		return Result{}, common.NewValidationError("voteType must be upvote or downvote")
	}

	post, err := s.posts.Locate(ctx, postID)
	if err != nil {
		return Result{}, err
	}

	existing, err := s.repo.Find(ctx, postID, actor.Email)
	if err != nil {
		return Result{}, err
	}

	var res Result
	switch {
	case existing == nil:
		if err := s.repo.Insert(ctx, &dbmongo.Vote{PostID: postID, UserEmail: actor.Email, VoteType: direction}); err != nil {
			return Result{}, err
		}
		res = Result{Outcome: OutcomeAdded, Current: &direction}
	case existing.VoteType == direction:
		if err := s.repo.Delete(ctx, existing.ID); err != nil {
			return Result{}, err
		}
		prev := existing.VoteType
		res = Result{Outcome: OutcomeRemoved, Previous: &prev}
	default:
		if err := s.repo.SetType(ctx, existing.ID, direction); err != nil {
			return Result{}, err
		}
		prev := existing.VoteType
		res = Result{Outcome: OutcomeChanged, Previous: &prev, Current: &direction}
	}

	if err := s.cache.Invalidate(ctx, postID); err != nil {
		s.log.WarnContext(ctx, "vote count cache invalidate failed", "post_id", postID, "error", err)
	}
	s.metrics.Vote(string(res.Outcome))

	payload := realtime.VotePayload{
		PostID:       postID,
		UserEmail:    actor.Email,
		PreviousVote: res.Previous,
		VoteType:     res.Current,
	}
	if origin := strings.TrimSpace(in.OriginSocketID); origin != "" {
		payload.OriginSocketID = &origin
	}
	s.publisher.Publish(realtime.VoteEvent(post.PostType, post.Email, payload))
	return res, nil
}

func (s *service) MyVotes(ctx context.Context, email string, postIDs []string) ([]dbmongo.Vote, error) {
	return s.repo.ByUser(ctx, common.NormalizeEmail(email), postIDs)
}

// Counts returns a tally for every requested id, zero when nothing was cast.
func (s *service) Counts(ctx context.Context, postIDs []string) ([]Counts, error) {
	out := make([]Counts, 0, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	hits, missing, err := s.cache.Get(ctx, postIDs)
	if err != nil {
		s.log.WarnContext(ctx, "vote count cache read failed", "error", err)
		hits, missing = map[string]Counts{}, postIDs
	}

	if len(missing) > 0 {
		// snapshot versions first; a cast landing during the aggregation
		// bumps them and the write-back below is skipped
		versions, verErr := s.cache.Versions(ctx, missing)
		if verErr != nil {
			s.log.WarnContext(ctx, "vote count cache version read failed", "error", verErr)
		}
		fresh, err := s.repo.Counts(ctx, missing)
		if err != nil {
			return nil, err
		}
		loaded := make([]Counts, 0, len(missing))
		byID := make(map[string]Counts, len(fresh))
		for _, c := range fresh {
			byID[c.PostID] = c
		}
		for _, id := range missing {
			c, ok := byID[id]
			if !ok {
				c = Counts{PostID: id}
			}
			hits[id] = c
			loaded = append(loaded, c)
		}
		if verErr == nil {
			if err := s.cache.Set(ctx, loaded, versions); err != nil {
				s.log.WarnContext(ctx, "vote count cache write failed", "error", err)
			}
		}
	}

	for _, id := range postIDs {
		out = append(out, hits[id])
	}
	return out, nil
}

func (s *service) CountsFor(ctx context.Context, postID string) (Counts, error) {
	if _, err := dbmongo.ParseObjectID(postID, "post"); err != nil {
		return Counts{}, err
	}
	counts, err := s.Counts(ctx, []string{postID})
	if err != nil {
		return Counts{}, err
	}
	return counts[0], nil
}

// DeleteByPost drops every vote on a removed item.
func (s *service) DeleteByPost(ctx context.Context, postID string) error {
	if err := s.repo.DeleteByPost(ctx, postID); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, postID); err != nil {
		s.log.WarnContext(ctx, "vote count cache invalidate failed", "post_id", postID, "error", err)
	}
	return nil
}
