package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one authenticated websocket connection.
type Client struct {
	id    string
	email string
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]struct{}

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(id, email string, hub *Hub, conn *websocket.Conn, buffer int) *Client {
	if buffer < 1 {
		buffer = 1
	}
	return &Client{
		id:    id,
		email: email,
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, buffer),
		rooms: make(map[string]struct{}),
		done:  make(chan struct{}),
	}
}

func (c *Client) ID() string    { return c.id }
func (c *Client) Email() string { return c.email }

func (c *Client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

type subscription struct {
	Feed   string `json:"feed"`
	PostID string `json:"postId"`
}

func (c *Client) handle(frame Frame) {
	var sub subscription
	if len(frame.Data) > 0 {
		// clients may send the bare value instead of an object
		if err := json.Unmarshal(frame.Data, &sub); err != nil {
			var raw string
			if json.Unmarshal(frame.Data, &raw) == nil {
				sub.Feed, sub.PostID = raw, raw
			}
		}
	}

	switch frame.Event {
	case ClientFeedSubscribe, ClientFeedUnsubscribe:
		room, ok := feedRoomFor(sub.Feed)
		if !ok {
			c.hub.SendTo(c, EventError, map[string]string{"message": "Unknown feed"})
			return
		}
		if frame.Event == ClientFeedSubscribe {
			c.hub.Join(c, room)
		} else {
			c.hub.Leave(c, room)
		}
	case ClientPostJoin, ClientPostLeave:
		if sub.PostID == "" {
			c.hub.SendTo(c, EventError, map[string]string{"message": "postId is required"})
			return
		}
		if frame.Event == ClientPostJoin {
			c.hub.Join(c, ItemRoom(sub.PostID))
		} else {
			c.hub.Leave(c, ItemRoom(sub.PostID))
		}
	default:
		c.hub.SendTo(c, EventError, map[string]string{"message": "Unknown event"})
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("websocket read error", "conn_id", c.id, "error", err)
			}
			return
		}
		c.handle(frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
