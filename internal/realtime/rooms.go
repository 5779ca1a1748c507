package realtime

import (
	"strings"

	"linkcamp/internal/common"
)

const (
	RoomFeedAll     = "feed:all"
	RoomFeedTeacher = "feed:teacher"
	RoomFeedAdmin   = "feed:admin"
)

// AllFeedRooms are the rooms every profile change is sent to.
var AllFeedRooms = []string{RoomFeedAll, RoomFeedTeacher, RoomFeedAdmin}

func ItemRoom(itemID string) string {
	return "item:" + itemID
}

func UserRoom(email string) string {
	return "user:" + common.NormalizeEmail(email)
}

// FeedRooms returns feed:all plus the type room for teacher and admin items.
func FeedRooms(pt common.PostType) []string {
	switch pt {
	case common.PostTypeTeacher:
		return []string{RoomFeedAll, RoomFeedTeacher}
	case common.PostTypeAdmin:
		return []string{RoomFeedAll, RoomFeedAdmin}
	default:
		return []string{RoomFeedAll}
	}
}

// feedRoomFor maps a client subscription value to a room name.
func feedRoomFor(feed string) (string, bool) {
	switch strings.TrimSpace(feed) {
	case "all":
		return RoomFeedAll, true
	case "teacher":
		return RoomFeedTeacher, true
	case "admin":
		return RoomFeedAdmin, true
	}
	return "", false
}

func withOwner(rooms []string, ownerEmail string) []string {
	out := append([]string(nil), rooms...)
	if ownerEmail != "" {
		out = append(out, UserRoom(ownerEmail))
	}
	return out
}
