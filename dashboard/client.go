package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
)

const (
	writeWait      = 1 * time.Second
	pubResolution  = 100 * time.Millisecond
	pingResolution = 200 * time.Millisecond
	pongWait       = pingResolution * 4
)

var upgrader = websocket.Upgrader{}

// Client pushes a single task's update stream to one browser connection.
// Rather than guarding one connection behind read/write semaphores shared
// by three goroutines, the two halves of the connection here are each
// owned outright by a single goroutine for the client's lifetime: readLoop
// is the sole caller of ReadMessage (gorilla only services pong control
// frames while a read is outstanding), and writeLoop is the sole caller of
// every Write* method, fed by both the update channel and its own ping
// ticker. Neither goroutine ever touches the other's half of the
// connection, so no lock is needed between them.
type Client[T any] struct {
	updates <-chan T
	conn    *websocket.Conn
}

// NewClient upgrades the HTTP request to a websocket and returns a
// publisher fed by updates. An item that arrives within the publish
// resolution of the last item written is dropped, not queued for later.
func NewClient[T any](updates <-chan T, w http.ResponseWriter, r *http.Request) (*Client[T], error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, err
	}

	return &Client[T]{updates: updates, conn: conn}, nil
}

// Sync runs the client until the browser disconnects or ctx is canceled,
// returning once both halves of the connection have stopped.
func (c *Client[T]) Sync(ctx context.Context) error {
	defer c.conn.Close()

	readDone := make(chan struct{})
	go c.readLoop(readDone)

	return c.writeLoop(ctx, readDone)
}

// readLoop does nothing with the bytes it reads: its only job is to keep a
// read outstanding so the pong handler fires, pushing the read deadline
// out on every pong. It returns, closing done, the moment the peer goes
// away or sends a close frame.
func (c *Client[T]) readLoop(done chan<- struct{}) {
	defer close(done)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop owns every write to the connection: periodic pings for
// liveness and updates rate-limited to pubResolution. It exits as soon as
// readLoop reports the peer gone, ctx is canceled, or a write fails.
func (c *Client[T]) writeLoop(ctx context.Context, readDone <-chan struct{}) error {
	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastSync := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-readDone:
			return nil
		case <-pinger:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		case update, ok := <-c.updates:
			if !ok {
				return nil
			}
			if time.Since(lastSync) < pubResolution {
				continue
			}
			lastSync = time.Now()

			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return err
			}
			if err := c.conn.WriteJSON(update); err != nil {
				return err
			}
		}
	}
}
