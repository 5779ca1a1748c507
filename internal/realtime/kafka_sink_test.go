package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"linkcamp/internal/common"
)

type MockMessageWriter struct {
	mock.Mock
}

func (m *MockMessageWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockMessageWriter) Close() error {
	return m.Called().Error(0)
}

func TestKafkaSink_Update(t *testing.T) {
	writer := new(MockMessageWriter)
	sink := newKafkaSink(writer, testLogger())

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	event := common.Event{
		Name:    EventPostCreated,
		Key:     "p1",
		Rooms:   []string{RoomFeedAll},
		Payload: map[string]string{"content": "hello"},
		At:      at,
	}

	writer.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 1 || string(msgs[0].Key) != "p1" {
			return false
		}
		var rec sinkRecord
		if err := json.Unmarshal(msgs[0].Value, &rec); err != nil {
			return false
		}
		return rec.Event == EventPostCreated && rec.At.Equal(at) && len(rec.Rooms) == 1
	})).Return(nil).Once()

	require.NoError(t, sink.Update(event))
	writer.AssertExpectations(t)
}

func TestKafkaSink_UpdateError(t *testing.T) {
	writer := new(MockMessageWriter)
	sink := newKafkaSink(writer, testLogger())

	writer.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	err := sink.Update(common.Event{Name: EventVoteChanged, Key: "p1"})
	assert.EqualError(t, err, "broker down")
	assert.Equal(t, "kafka_sink", sink.Name())

	writer.On("Close").Return(nil)
	assert.NoError(t, sink.Close())
}
