// Package router implements the real-time correlation layer: it forwards
// client frames to worker topics and routes the asynchronous, unordered
// results arriving on shared topics back to every session bound to the
// matching subject, classifying and persisting them on the way.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ndiyar/vigil/internal/adapters/broker"
	"github.com/ndiyar/vigil/internal/adapters/mq/queue"
	"github.com/ndiyar/vigil/internal/domain/model"
	"github.com/ndiyar/vigil/internal/domain/registry"
	"github.com/ndiyar/vigil/internal/domain/status"
	"github.com/ndiyar/vigil/pkg/logger"
	"github.com/ndiyar/vigil/pkg/metrics"
)

// Default router configuration constants.
const (
	defaultQueueCapacity = 1024
)

// frameTopics maps a detection kind to its outbound worker topic.
var frameTopics = map[model.Kind]string{
	model.KindCrowd:   broker.TopicCrowdFrame,
	model.KindFatigue: broker.TopicFatigueFrame,
	model.KindFace:    broker.TopicFaceFrame,
}

// resultKinds maps an inbound result topic to its detection kind.
var resultKinds = map[string]model.Kind{
	broker.TopicCrowdResult:   model.KindCrowd,
	broker.TopicFatigueResult: model.KindFatigue,
	broker.TopicFaceResult:    model.KindFace,
}

// Gateway is the broker boundary the router publishes and subscribes through.
type Gateway interface {
	PublishFrame(ctx context.Context, topic string, payload []byte) error
	Subscribe(topic string, h broker.Handler) error
}

// Registry resolves which connections a result must be delivered to.
type Registry interface {
	Bind(connID string, kind model.Kind, subjectID string, capacity int)
	Snapshot(kind model.Kind) []registry.Subscription
}

// Store persists classified results and resolves area capacities.
type Store interface {
	InsertResult(ctx context.Context, res model.ClassifiedResult) (string, error)
	Capacity(ctx context.Context, areaID string) (int, error)
}

// Emitter delivers events to a connected client. Implementations must not
// block; delivery to a slow client is the transport's problem.
type Emitter interface {
	EmitResult(ctx context.Context, connID string, res model.ClassifiedResult)
	EmitFace(ctx context.Context, connID, subjectID string, payload []byte)
	EmitNotice(ctx context.Context, connID, code, reason string)
}

// Router owns one bounded queue and one dispatch goroutine per result topic,
// preserving arrival order per topic with no ordering across topics. It runs
// for the process lifetime; per-message failures are dropped and isolated.
type Router struct {
	gateway    Gateway
	registry   Registry
	store      Store
	emitter    Emitter
	classifier *status.Classifier

	queueCapacity int
	queues        map[string]*queue.InMemoryQueue

	done []chan struct{}

	logger logger.Logger
}

// New constructs a Router with configuration options.
func New(gateway Gateway, reg Registry, store Store, emitter Emitter, opts ...Option) *Router {
	r := &Router{
		gateway:       gateway,
		registry:      reg,
		store:         store,
		emitter:       emitter,
		queueCapacity: defaultQueueCapacity,
		queues:        make(map[string]*queue.InMemoryQueue),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.classifier == nil {
		r.classifier = status.New()
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("router")
	}

	return r
}

// Start subscribes to every result topic and spawns the dispatch loops.
func (r *Router) Start(ctx context.Context) error {
	for topic := range resultKinds {
		q := queue.NewInMemoryQueue(
			queue.WithName(topic),
			queue.WithCapacity(r.queueCapacity),
		)
		r.queues[topic] = q

		// The broker handler only enqueues; parsing and delivery happen on
		// the dispatch goroutine so the bus read loop never blocks.
		if err := r.gateway.Subscribe(topic, func(topic string, payload []byte) {
			q.Enqueue(ctx, queue.Message{Topic: topic, Payload: payload})
		}); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}

		done := make(chan struct{})
		r.done = append(r.done, done)
		go r.dispatch(ctx, q, done)
	}
	return nil
}

// Stop closes the queues and waits for the dispatch loops to drain.
func (r *Router) Stop() {
	for _, q := range r.queues {
		_ = q.Close()
	}
	for _, done := range r.done {
		<-done
	}
}

// HandleFrame validates an inbound client frame, re-establishes the session
// binding for its kind and publishes the frame to the worker topic. This is
// fire-and-forget: no reply is awaited.
func (r *Router) HandleFrame(ctx context.Context, connID string, f model.FrameEvent) error {
	if !f.Subject.Kind.Valid() {
		metrics.RecordFrameRejected("bad_kind")
		return fmt.Errorf("%w: kind %q", ErrBadFrame, f.Subject.Kind)
	}
	if f.Subject.ID == "" {
		metrics.RecordFrameRejected("missing_subject")
		return fmt.Errorf("%w: missing subject id", ErrBadFrame)
	}
	if f.Image == "" {
		metrics.RecordFrameRejected("empty_image")
		return fmt.Errorf("%w: empty image", ErrBadFrame)
	}

	capacity := f.Capacity
	if f.Subject.Kind == model.KindCrowd && capacity <= 0 {
		// Capacity is read fresh per frame; a stale value cached at bind
		// time could misclassify after a capacity change.
		looked, err := r.store.Capacity(ctx, f.Subject.ID)
		if err != nil {
			metrics.RecordFrameRejected("unknown_subject")
			return fmt.Errorf("%w: area %s has no resolvable capacity", ErrUnknownSubject, f.Subject.ID)
		}
		capacity = looked
	}

	r.registry.Bind(connID, f.Subject.Kind, f.Subject.ID, capacity)

	if err := r.gateway.PublishFrame(ctx, frameTopics[f.Subject.Kind], []byte(f.Image)); err != nil {
		metrics.RecordFrameRejected("broker_unavailable")
		return fmt.Errorf("publish frame: %w", err)
	}
	return nil
}

// dispatch drains one topic queue for the process lifetime.
func (r *Router) dispatch(ctx context.Context, q *queue.InMemoryQueue, done chan struct{}) {
	defer close(done)

	// On Stop the queue is closed; the channel drains what was already
	// buffered before closing, so queued results still go out.
	messages := q.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-messages:
			if !ok {
				return
			}
			r.handleResult(ctx, m)
		}
	}
}

// handleResult parses one raw bus result and routes it. A malformed message
// is logged and dropped; it must never affect other subjects or stop the
// dispatch loop.
func (r *Router) handleResult(ctx context.Context, m queue.Message) {
	metrics.RecordResultReceived(m.Topic)

	switch m.Topic {
	case broker.TopicCrowdResult:
		r.handleCrowdResult(ctx, m.Payload)
	case broker.TopicFatigueResult:
		r.handleFatigueResult(ctx, m.Payload)
	case broker.TopicFaceResult:
		r.handleFaceResult(ctx, m.Payload)
	default:
		metrics.RecordResultDropped("unknown_topic")
		r.logger.Warn(ctx, "result on unexpected topic", logger.String("topic", m.Topic))
	}
}

func (r *Router) handleCrowdResult(ctx context.Context, payload []byte) {
	var raw struct {
		NumPeople *int `json:"num_people"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil || raw.NumPeople == nil || *raw.NumPeople < 0 {
		metrics.RecordResultDropped("malformed")
		r.logger.Warn(ctx, "malformed crowd result dropped", logger.Error(err))
		return
	}

	now := time.Now().UTC()
	for _, sub := range r.registry.Snapshot(model.KindCrowd) {
		st, err := r.classifier.Crowd(*raw.NumPeople, sub.Capacity)
		if err != nil {
			metrics.RecordResultDropped("classification")
			r.logger.Warn(ctx, "crowd classification failed",
				logger.String("subject", sub.SubjectID),
				logger.Error(err),
			)
			continue
		}

		r.deliver(ctx, sub, model.ClassifiedResult{
			Subject:   model.Subject{Kind: model.KindCrowd, ID: sub.SubjectID},
			Count:     *raw.NumPeople,
			Status:    st,
			Timestamp: now,
		})
	}
}

func (r *Router) handleFatigueResult(ctx context.Context, payload []byte) {
	var raw struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil || raw.Status == "" {
		metrics.RecordResultDropped("malformed")
		r.logger.Warn(ctx, "malformed fatigue result dropped", logger.Error(err))
		return
	}

	label, err := r.classifier.Fatigue(raw.Status)
	if err != nil {
		// Data-integrity error: an unrecognized label never reaches the
		// store or any client.
		metrics.RecordResultDropped("unknown_label")
		r.logger.Warn(ctx, "fatigue result with unrecognized label dropped", logger.Error(err))
		return
	}

	now := time.Now().UTC()
	for _, sub := range r.registry.Snapshot(model.KindFatigue) {
		r.deliver(ctx, sub, model.ClassifiedResult{
			Subject:   model.Subject{Kind: model.KindFatigue, ID: sub.SubjectID},
			Status:    label,
			Timestamp: now,
		})
	}
}

// handleFaceResult forwards the worker payload verbatim to bound
// connections. Face results carry arbitrary JSON and are not persisted.
func (r *Router) handleFaceResult(ctx context.Context, payload []byte) {
	if !json.Valid(payload) {
		metrics.RecordResultDropped("malformed")
		r.logger.Warn(ctx, "malformed face result dropped")
		return
	}

	for _, sub := range r.registry.Snapshot(model.KindFace) {
		for _, connID := range sub.ConnIDs {
			r.emitter.EmitFace(ctx, connID, sub.SubjectID, payload)
		}
		metrics.RecordResultDelivered(len(sub.ConnIDs))
	}
}

// deliver broadcasts one classified result to every watcher of a subject and
// writes it through the store. Delivery takes priority: a store failure is
// logged and surfaced as a degraded notice, never a delivery failure.
func (r *Router) deliver(ctx context.Context, sub registry.Subscription, res model.ClassifiedResult) {
	for _, connID := range sub.ConnIDs {
		r.emitter.EmitResult(ctx, connID, res)
	}
	metrics.RecordResultDelivered(len(sub.ConnIDs))

	if _, err := r.store.InsertResult(ctx, res); err != nil {
		r.logger.Error(ctx, "result store write failed",
			logger.String("subject", res.Subject.ID),
			logger.Error(err),
		)
		for _, connID := range sub.ConnIDs {
			r.emitter.EmitNotice(ctx, connID, "delivery_degraded", "result delivered but not recorded")
		}
	}
}
