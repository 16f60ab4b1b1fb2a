// Package ws implements the client-facing WebSocket transport: it accepts
// connections, parses inbound frame events, and fans classified results out
// to connected clients.
//
// The hub is a single-goroutine actor: register, unregister and outbound
// delivery are commands multiplexed onto one loop, so no mutex guards the
// client set. Each connection gets its own buffered write pump; a slow
// client drops messages instead of stalling the hub.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ndiyar/vigil/internal/domain/model"
	"github.com/ndiyar/vigil/pkg/logger"
	"github.com/ndiyar/vigil/pkg/metrics"
)

// Default hub configuration constants.
const (
	defaultReadLimit      = 8 << 20 // base64 frames are large
	defaultSendBuffer     = 32
	defaultOutboundBuffer = 256
	writeTimeout          = 10 * time.Second
)

// FrameSink consumes validated inbound frame events, normally the router.
type FrameSink interface {
	HandleFrame(ctx context.Context, connID string, f model.FrameEvent) error
}

// Dropper is notified when a connection goes away so session bindings are
// removed before any further result routing.
type Dropper interface {
	Drop(connID string)
}

// frameKinds maps inbound client event names to detection kinds.
var frameKinds = map[string]model.Kind{
	"crowd-frame":   model.KindCrowd,
	"fatigue-frame": model.KindFatigue,
	"face-frame":    model.KindFace,
}

// inboundEvent mirrors the client JSON contract for frame submissions.
type inboundEvent struct {
	Event     string `json:"event"`
	SubjectID string `json:"subject_id"`
	Image     string `json:"image"`
	Capacity  int    `json:"capacity,omitempty"`
}

// outbound is a delivery command for the hub loop.
type outbound struct {
	connID string
	data   []byte
}

// Hub owns the set of live connections.
type Hub struct {
	sink    FrameSink
	dropper Dropper

	register   chan *client
	unregister chan *client
	deliveries chan outbound
	clients    map[string]*client

	upgrader  websocket.Upgrader
	readLimit int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewHub creates a Hub with configuration options. SetSink must be called
// before Run; the hub and the router reference each other.
func NewHub(dropper Dropper, opts ...Option) *Hub {
	h := &Hub{
		dropper:    dropper,
		register:   make(chan *client),
		unregister: make(chan *client),
		deliveries: make(chan outbound, defaultOutboundBuffer),
		clients:    make(map[string]*client),
		readLimit:  defaultReadLimit,
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			// Browser clients come from a different origin than the API.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.logger == nil {
		h.logger = logger.Get().Named("ws")
	}

	return h
}

// SetSink wires the inbound frame consumer.
func (h *Hub) SetSink(sink FrameSink) {
	h.sink = sink
}

// Run drives the hub actor loop until ctx is cancelled or Stop is called.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-h.shutdown:
			h.closeAll()
			return
		case c := <-h.register:
			h.clients[c.id] = c
			metrics.UpdateClientsConnected(len(h.clients))
			h.logger.Info(ctx, "client connected", logger.String("conn", c.id))
		case c := <-h.unregister:
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.send)
			}
			// Bindings go first so no in-flight result is routed to a
			// connection mid-teardown.
			h.dropper.Drop(c.id)
			metrics.UpdateClientsConnected(len(h.clients))
			h.logger.Info(ctx, "client disconnected", logger.String("conn", c.id))
		case d := <-h.deliveries:
			c, ok := h.clients[d.connID]
			if !ok {
				// Raced with a disconnect; the result is simply not routed.
				continue
			}
			select {
			case c.send <- d.data:
			default:
				h.logger.Warn(ctx, "dropping message for slow client", logger.String("conn", c.id))
			}
		}
	}
}

// Stop terminates the hub loop and closes every connection.
func (h *Hub) Stop() {
	close(h.shutdown)
	<-h.done
}

// closeAll tears down every registered connection.
func (h *Hub) closeAll() {
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
	metrics.UpdateClientsConnected(0)
}

// Handler returns the HTTP handler that upgrades connections at /ws.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
			return
		}

		// The request context is cancelled by net/http as soon as this
		// handler returns the hijacked connection; the pumps need a context
		// that lives as long as the socket.
		connCtx, cancel := context.WithCancel(context.Background())

		c := &client{
			id:     uuid.NewString(),
			hub:    h,
			conn:   conn,
			send:   make(chan []byte, defaultSendBuffer),
			cancel: cancel,
		}

		select {
		case h.register <- c:
		case <-h.shutdown:
			cancel()
			_ = conn.Close()
			return
		}

		go c.writePump()
		go c.readPump(connCtx)
	}
}

// enqueue hands a marshaled event to the hub loop for delivery.
func (h *Hub) enqueue(connID string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error(context.Background(), "marshal outbound event", logger.Error(err))
		return
	}
	select {
	case h.deliveries <- outbound{connID: connID, data: data}:
	case <-h.shutdown:
	}
}

// EmitResult delivers a classified result to one connection.
func (h *Hub) EmitResult(_ context.Context, connID string, res model.ClassifiedResult) {
	ev := resultEvent{
		Event:     string(res.Subject.Kind) + "-result",
		SubjectID: res.Subject.ID,
		Status:    res.Status,
		Timestamp: res.Timestamp.Format(time.RFC3339),
	}
	if res.Subject.Kind == model.KindCrowd {
		count := res.Count
		ev.Count = &count
	}
	h.enqueue(connID, ev)
}

// EmitFace forwards a raw face worker payload to one connection.
func (h *Hub) EmitFace(_ context.Context, connID, subjectID string, payload []byte) {
	h.enqueue(connID, faceEvent{
		Event:     "face-result",
		SubjectID: subjectID,
		Payload:   json.RawMessage(payload),
	})
}

// EmitNotice delivers an error or degradation notice to one connection.
func (h *Hub) EmitNotice(_ context.Context, connID, code, reason string) {
	h.enqueue(connID, noticeEvent{
		Event:  "error",
		Code:   code,
		Reason: reason,
	})
}

// resultEvent mirrors the outbound client contract for classified results.
// Count is a pointer so an empty area still serializes its zero count.
type resultEvent struct {
	Event     string `json:"event"`
	SubjectID string `json:"subject_id"`
	Count     *int   `json:"count,omitempty"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type faceEvent struct {
	Event     string          `json:"event"`
	SubjectID string          `json:"subject_id"`
	Payload   json.RawMessage `json:"payload"`
}

type noticeEvent struct {
	Event  string `json:"event"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}
