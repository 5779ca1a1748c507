package realtime

import (
	"time"

	"linkcamp/internal/common"
)

// Server to client events.
const (
	EventConnected      = "connected"
	EventPostCreated    = "post:created"
	EventPostUpdated    = "post:updated"
	EventPostDeleted    = "post:deleted"
	EventRepostCreated  = "repost:created"
	EventVoteChanged    = "vote:changed"
	EventCommentCreated = "comment:created"
	EventCommentUpdated = "comment:updated"
	EventCommentDeleted = "comment:deleted"
	EventUserUpdated    = "user:updated"
	EventError          = "error"
)

// Client to server events.
const (
	ClientFeedSubscribe   = "feed:subscribe"
	ClientFeedUnsubscribe = "feed:unsubscribe"
	ClientPostJoin        = "post:join"
	ClientPostLeave       = "post:leave"
)

type PostPayload struct {
	Post interface{} `json:"post"`
}

type PostDeletedPayload struct {
	PostID   string          `json:"postId"`
	PostType common.PostType `json:"postType"`
	Email    string          `json:"email"`
}

type RepostPayload struct {
	PostID    string    `json:"postId"`
	RepostID  string    `json:"repostId"`
	CreatedAt time.Time `json:"createdAt"`
}

type VotePayload struct {
	PostID         string           `json:"postId"`
	UserEmail      string           `json:"userEmail"`
	PreviousVote   *common.VoteType `json:"previousVote"`
	VoteType       *common.VoteType `json:"voteType"`
	OriginSocketID *string          `json:"originSocketId"`
}

type CommentPayload struct {
	PostID  string      `json:"postId"`
	Comment interface{} `json:"comment"`
	Delta   int         `json:"delta"`
}

type CommentDeletedPayload struct {
	PostID    string `json:"postId"`
	CommentID string `json:"commentId"`
	Delta     int    `json:"delta"`
}

type UserUpdatedPayload struct {
	Email    string  `json:"email"`
	Name     *string `json:"name"`
	Photo    *string `json:"photo"`
	UserType *string `json:"userType"`
}

// PostEvent addresses a content item change to its feed rooms and its author.
func PostEvent(name string, postType common.PostType, itemID, authorEmail string, payload interface{}) common.Event {
	return common.Event{
		Name:    name,
		Key:     itemID,
		Rooms:   withOwner(FeedRooms(postType), authorEmail),
		Payload: payload,
		At:      time.Now(),
	}
}

// RepostEvent goes to the repost's feed rooms, keyed like the repost's own creation event.
func RepostEvent(postType common.PostType, payload RepostPayload) common.Event {
	return common.Event{
		Name:    EventRepostCreated,
		Key:     payload.RepostID,
		Rooms:   FeedRooms(postType),
		Payload: payload,
		At:      time.Now(),
	}
}

func VoteEvent(postType common.PostType, ownerEmail string, payload VotePayload) common.Event {
	return common.Event{
		Name:    EventVoteChanged,
		Key:     payload.PostID,
		Rooms:   withOwner(FeedRooms(postType), ownerEmail),
		Payload: payload,
		At:      time.Now(),
	}
}

// CommentEvent goes only to the thread room.
func CommentEvent(name, itemID string, payload interface{}) common.Event {
	return common.Event{
		Name:    name,
		Key:     itemID,
		Rooms:   []string{ItemRoom(itemID)},
		Payload: payload,
		At:      time.Now(),
	}
}

func UserUpdatedEvent(payload UserUpdatedPayload) common.Event {
	return common.Event{
		Name:    EventUserUpdated,
		Key:     payload.Email,
		Rooms:   withOwner(AllFeedRooms, payload.Email),
		Payload: payload,
		At:      time.Now(),
	}
}
