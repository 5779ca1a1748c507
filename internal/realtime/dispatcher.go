package realtime

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"linkcamp/internal/common"
	"linkcamp/internal/metrics"
)

// Dispatcher fans events out to observers from a pool of workers. Each event
// is routed to the worker owning its Key, so per-item order is preserved.
type Dispatcher struct {
	observers map[string]common.Observer
	queues    []chan common.Event
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	wg        sync.WaitGroup
	log       *slog.Logger
	metrics   *metrics.Metrics
}

func NewDispatcher(workerPoolSize, bufferSize int, log *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if workerPoolSize < 1 {
		workerPoolSize = 1
	}
	if bufferSize < 1 {
		bufferSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	d := &Dispatcher{
		observers: make(map[string]common.Observer),
		queues:    make([]chan common.Event, workerPoolSize),
		ctx:       ctx,
		cancel:    cancel,
		log:       log,
		metrics:   m,
	}

	for i := range d.queues {
		d.queues[i] = make(chan common.Event, bufferSize)
		d.wg.Add(1)
		go d.processEvents(d.queues[i])
	}

	return d
}

func (d *Dispatcher) Subscribe(observer common.Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers[observer.Name()] = observer
	d.log.Info("observer subscribed", "observer", observer.Name())
}

func (d *Dispatcher) Unsubscribe(observer common.Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.observers, observer.Name())
	d.log.Info("observer unsubscribed", "observer", observer.Name())
}

// Notify delivers synchronously on the caller's goroutine.
func (d *Dispatcher) Notify(event common.Event) {
	d.mu.RLock()
	observers := make([]common.Observer, 0, len(d.observers))
	for _, obs := range d.observers {
		observers = append(observers, obs)
	}
	d.mu.RUnlock()

	for _, observer := range observers {
		if err := observer.Update(event); err != nil {
			d.log.Warn("observer update failed", "observer", observer.Name(), "event", event.Name, "error", err)
		}
	}
}

// NotifyAsync queues the event; it is dropped when the owning queue is full.
func (d *Dispatcher) NotifyAsync(event common.Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	select {
	case <-d.ctx.Done():
		d.metrics.Dropped("shutdown")
		return
	default:
	}

	select {
	case d.queueFor(event.Key) <- event:
	default:
		d.metrics.Dropped("queue_full")
		d.log.Warn("realtime queue full, dropping event", "event", event.Name, "key", event.Key)
	}
}

// Publish implements common.Publisher.
func (d *Dispatcher) Publish(event common.Event) {
	d.NotifyAsync(event)
}

func (d *Dispatcher) queueFor(key string) chan common.Event {
	if len(d.queues) == 1 || key == "" {
		return d.queues[0]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return d.queues[h.Sum32()%uint32(len(d.queues))]
}

func (d *Dispatcher) processEvents(queue chan common.Event) {
	defer d.wg.Done()

	for {
		select {
		case event := <-queue:
			d.Notify(event)
		case <-d.ctx.Done():
			// drain what was accepted before shutdown
			for {
				select {
				case event := <-queue:
					d.Notify(event)
				default:
					return
				}
			}
		}
	}
}

// Shutdown stops the workers after delivering queued events.
func (d *Dispatcher) Shutdown() {
	d.cancel()
	d.wg.Wait()
	d.log.Info("realtime dispatcher shutdown complete")
}

// NopPublisher is used when realtime fan-out is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(common.Event) {}
