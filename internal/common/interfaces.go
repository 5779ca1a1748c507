package common

import (
	"context"
	"io"
	"time"
)

// Event is a realtime broadcast addressed to a set of rooms. Events sharing
// a Key are delivered in publish order.
type Event struct {
	Name    string
	Key     string
	Rooms   []string
	Payload interface{}
	At      time.Time
}

type Observer interface {
	Update(event Event) error
	Name() string
}

type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	Notify(event Event)
	NotifyAsync(event Event)
}

// Publisher is how services hand state changes to the fan-out layer.
type Publisher interface {
	Publish(event Event)
}

// PhotoUploader stores an image and returns the URL clients render.
type PhotoUploader interface {
	Upload(ctx context.Context, filename, mimeType, uploaderEmail string, content io.Reader) (string, error)
}
