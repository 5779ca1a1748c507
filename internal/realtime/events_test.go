package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"linkcamp/internal/common"
)

func TestRepostEvent_SharesKeyWithRepostCreation(t *testing.T) {
	created := PostEvent(EventPostCreated, common.PostTypeGeneral, "r1", "alice@campus.edu", nil)
	repost := RepostEvent(common.PostTypeGeneral, RepostPayload{PostID: "root", RepostID: "r1"})

	assert.Equal(t, EventRepostCreated, repost.Name)
	assert.Equal(t, "r1", repost.Key)
	assert.Equal(t, created.Key, repost.Key)
	assert.Equal(t, []string{RoomFeedAll}, repost.Rooms)
}

func TestVoteEvent_AddsOwnerRoom(t *testing.T) {
	e := VoteEvent(common.PostTypeTeacher, "Tina@Campus.edu", VotePayload{PostID: "p1"})
	assert.Equal(t, "p1", e.Key)
	assert.Contains(t, e.Rooms, RoomFeedTeacher)
	assert.Contains(t, e.Rooms, UserRoom("tina@campus.edu"))
}
