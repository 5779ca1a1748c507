package realtime

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkcamp/internal/common"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingObserver struct {
	name string
	err  error

	mu     sync.Mutex
	events []common.Event
}

func (r *recordingObserver) Name() string { return r.name }

func (r *recordingObserver) Update(event common.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingObserver) snapshot() []common.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]common.Event(nil), r.events...)
}

func TestDispatcher_NotifyReachesAllObservers(t *testing.T) {
	d := NewDispatcher(2, 10, testLogger(), nil)
	defer d.Shutdown()

	a := &recordingObserver{name: "a"}
	b := &recordingObserver{name: "b", err: errors.New("boom")}
	d.Subscribe(a)
	d.Subscribe(b)

	d.Notify(common.Event{Name: EventPostCreated, Key: "p1"})

	assert.Len(t, a.snapshot(), 1)
	assert.Len(t, b.snapshot(), 1)

	d.Unsubscribe(b)
	d.Notify(common.Event{Name: EventPostUpdated, Key: "p1"})
	assert.Len(t, a.snapshot(), 2)
	assert.Len(t, b.snapshot(), 1)
}

func TestDispatcher_PreservesOrderPerKey(t *testing.T) {
	d := NewDispatcher(4, 500, testLogger(), nil)
	obs := &recordingObserver{name: "rec"}
	d.Subscribe(obs)

	keys := []string{"p1", "p2", "p3"}
	for i := 0; i < 100; i++ {
		for _, k := range keys {
			d.Publish(common.Event{Name: EventVoteChanged, Key: k, Payload: i})
		}
	}
	d.Shutdown()

	events := obs.snapshot()
	require.Len(t, events, 300)

	last := map[string]int{}
	for _, e := range events {
		n := e.Payload.(int)
		prev, seen := last[e.Key]
		if seen {
			assert.Greater(t, n, prev, "events for %s out of order", e.Key)
		}
		last[e.Key] = n
		assert.False(t, e.At.IsZero())
	}
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	d := NewDispatcher(1, 1, testLogger(), nil)

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	d.Subscribe(observerFunc{name: "slow", fn: func(common.Event) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil
	}})

	d.NotifyAsync(common.Event{Name: "first", Key: "k"})
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("worker did not pick up the first event")
	}

	// one fits in the buffer, the rest are dropped without blocking
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.NotifyAsync(common.Event{Name: "more", Key: "k"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotifyAsync blocked on a full queue")
	}

	close(block)
	d.Shutdown()
}

func TestDispatcher_PublishAfterShutdownIsDropped(t *testing.T) {
	d := NewDispatcher(1, 4, testLogger(), nil)
	obs := &recordingObserver{name: "rec"}
	d.Subscribe(obs)
	d.Shutdown()

	d.Publish(common.Event{Name: EventPostCreated, Key: "p"})
	assert.Empty(t, obs.snapshot())
}

func TestNopPublisher(t *testing.T) {
	var p common.Publisher = NopPublisher{}
	assert.NotPanics(t, func() { p.Publish(common.Event{Name: "x"}) })
}

type observerFunc struct {
	name string
	fn   func(common.Event) error
}

func (o observerFunc) Name() string                  { return o.name }
func (o observerFunc) Update(event common.Event) error { return o.fn(event) }
