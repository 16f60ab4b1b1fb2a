package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ndiyar/vigil/internal/domain/model"
	"github.com/ndiyar/vigil/pkg/logger"
)

// client is one live WebSocket connection.
type client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	cancel context.CancelFunc
}

// readPump parses inbound frame events until the connection drops, then
// unregisters so the session bindings are removed immediately.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.cancel()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.shutdown:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.readLimit)
	// The HTTP server's read deadline survives the hijack; clear it so the
	// connection can stay open indefinitely.
	_ = c.conn.SetReadDeadline(time.Time{})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var ev inboundEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			c.hub.EmitNotice(ctx, c.id, "bad_request", "unparseable event")
			continue
		}

		kind, ok := frameKinds[ev.Event]
		if !ok {
			c.hub.EmitNotice(ctx, c.id, "bad_request", "unknown event "+ev.Event)
			continue
		}

		frame := model.FrameEvent{
			Subject:  model.Subject{Kind: kind, ID: ev.SubjectID},
			Image:    ev.Image,
			Capacity: ev.Capacity,
		}
		if err := c.hub.sink.HandleFrame(ctx, c.id, frame); err != nil {
			// The client is told the request was rejected, never silently
			// ignored; the failure stays isolated to this frame.
			c.hub.EmitNotice(ctx, c.id, "rejected", err.Error())
			c.hub.logger.Warn(ctx, "frame rejected",
				logger.String("conn", c.id),
				logger.String("event", ev.Event),
				logger.Error(err),
			)
		}
	}
}

// writePump drains the send channel onto the socket. It exits when the hub
// closes the channel on unregister.
func (c *client) writePump() {
	defer func() { _ = c.conn.Close() }()

	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
