package dbmongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"linkcamp/internal/common"
)

func TestPartitionCollection(t *testing.T) {
	assert.Equal(t, PostsCollection, PartitionCollection(common.PostTypeGeneral))
	assert.Equal(t, AnnouncementsCollection, PartitionCollection(common.PostTypeTeacher))
	assert.Equal(t, NoticesCollection, PartitionCollection(common.PostTypeAdmin))
	assert.Equal(t, PostsCollection, PartitionCollection(""))
}

func TestIndexPlan_UniqueKeys(t *testing.T) {
	plan := IndexPlan()
	for _, name := range []string{VotesCollection, ReportsCollection, CommentReportsCollection} {
		var unique int
		for _, m := range plan[name] {
			if m.Options != nil && m.Options.Unique != nil && *m.Options.Unique {
				unique++
			}
		}
		assert.Equal(t, 1, unique, "collection %s", name)
	}
	assert.Len(t, plan, 7)
}

func TestPost_RootID(t *testing.T) {
	id := primitive.NewObjectID()
	p := &Post{ID: id}
	assert.Equal(t, id.Hex(), p.RootID())

	root := primitive.NewObjectID().Hex()
	p.RepostOf = &root
	assert.Equal(t, root, p.RootID())
}

func TestParseObjectID(t *testing.T) {
	id := primitive.NewObjectID()
	got, err := ParseObjectID(id.Hex(), "post")
	assert.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseObjectID("nope", "post")
	assert.Equal(t, common.KindValidation, common.KindOf(err))
	assert.EqualError(t, err, "Invalid post ID")

	assert.Len(t, ObjectIDs([]string{id.Hex(), "bad", ""}), 1)
}
