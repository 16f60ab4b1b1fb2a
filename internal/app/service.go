// Package service assembles the frame-analysis pipeline and implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/ndiyar/vigil/internal/adapters/broker"
	repository "github.com/ndiyar/vigil/internal/adapters/repository"
	"github.com/ndiyar/vigil/internal/adapters/ws"
	"github.com/ndiyar/vigil/internal/domain/registry"
	"github.com/ndiyar/vigil/internal/domain/status"
	"github.com/ndiyar/vigil/internal/router"
	"github.com/ndiyar/vigil/pkg/logger"
)

// Gateway is the broker lifecycle the service manages. In production this
// is the MQTT gateway; tests swap in a fake.
type Gateway interface {
	Connect(ctx context.Context) error
	PublishFrame(ctx context.Context, topic string, payload []byte) error
	Subscribe(topic string, h broker.Handler) error
	Connected() bool
	Disconnect()
}

// Service wires the store, registry, broker gateway, router and WebSocket
// hub together and owns their lifecycle.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	reg     *registry.Registry
	gateway Gateway
	hub     *ws.Hub
	router  *router.Router

	// Configuration
	brokerURL      string
	brokerClientID string
	publishTimeout time.Duration
	queueSize      int
	storeDSN       string
	thresholds     [3]float64
	fatigueLabels  []string
	wsReadLimit    int64

	// State
	started bool
	cancel  context.CancelFunc
	hubDone chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBrokerURL sets the MQTT broker endpoint.
func WithBrokerURL(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.brokerURL = url
		}
	}
}

// WithBrokerClientID sets the broker client identifier.
func WithBrokerClientID(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.brokerClientID = id
		}
	}
}

// WithPublishTimeout bounds how long a frame publish may wait.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// WithQueueSize sets the capacity of each per-topic result queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithStoreDSN selects the SQLite database file. Empty keeps results in
// memory only.
func WithStoreDSN(dsn string) Option {
	return func(s *Service) {
		s.storeDSN = dsn
	}
}

// WithThresholds sets the crowd classification boundaries.
func WithThresholds(sparseMax, moderateMax, crowdedMax float64) Option {
	return func(s *Service) {
		s.thresholds = [3]float64{sparseMax, moderateMax, crowdedMax}
	}
}

// WithFatigueLabels sets the accepted fatigue label set.
func WithFatigueLabels(labels []string) Option {
	return func(s *Service) {
		if len(labels) > 0 {
			s.fatigueLabels = labels
		}
	}
}

// WithWSReadLimit caps the size of a single inbound WebSocket message.
func WithWSReadLimit(limit int64) Option {
	return func(s *Service) {
		if limit > 0 {
			s.wsReadLimit = limit
		}
	}
}

// WithGateway replaces the broker gateway, used by tests.
func WithGateway(g Gateway) Option {
	return func(s *Service) {
		s.gateway = g
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		brokerURL:      "tcp://localhost:1883",
		brokerClientID: "vigil-router",
		publishTimeout: 5 * time.Second,
		queueSize:      1024,
		storeDSN:       "",
		thresholds:     [3]float64{0.33, 0.66, 1.0},
		fatigueLabels:  []string{"active", "tired", "exhausted"},
		wsReadLimit:    8 << 20,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the pipeline components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting frame-analysis service...")

	if s.storeDSN != "" {
		store, err := repository.NewSQLiteStore(s.storeDSN)
		if err != nil {
			return err
		}
		s.store = store
		s.logger.Info(ctx, "using sqlite store", logger.String("dsn", s.storeDSN))
	} else {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory store")
	}

	s.reg = registry.New()

	if s.gateway == nil {
		s.gateway = broker.NewMQTTGateway(
			broker.WithBrokerURL(s.brokerURL),
			broker.WithClientID(s.brokerClientID),
			broker.WithPublishTimeout(s.publishTimeout),
		)
	}

	classifier := status.New(
		status.WithThresholds(s.thresholds[0], s.thresholds[1], s.thresholds[2]),
		status.WithFatigueLabels(s.fatigueLabels),
	)

	s.hub = ws.NewHub(s.reg, ws.WithReadLimit(s.wsReadLimit))
	s.router = router.New(s.gateway, s.reg, s.store, s.hub,
		router.WithQueueCapacity(s.queueSize),
		router.WithClassifier(classifier),
	)
	s.hub.SetSink(s.router)

	if err := s.gateway.Connect(ctx); err != nil {
		_ = s.store.Close()
		return err
	}
	if err := s.router.Start(ctx); err != nil {
		s.gateway.Disconnect()
		_ = s.store.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.hubDone = make(chan struct{})
	go func() {
		defer close(s.hubDone)
		s.hub.Run(runCtx)
	}()

	s.started = true
	s.logger.Info(ctx, "frame-analysis service started",
		logger.String("broker", s.brokerURL),
		logger.Int("queueSize", s.queueSize),
	)

	return nil
}

// Stop gracefully shuts down the service. Result queues drain before the
// broker link drops so in-flight deliveries complete.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping frame-analysis service...")

	s.router.Stop()
	s.gateway.Disconnect()
	s.cancel()
	<-s.hubDone

	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(context.Background(), "frame-analysis service stopped")
}

// WSHandler exposes the WebSocket upgrade endpoint.
func (s *Service) WSHandler() http.HandlerFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hub.Handler()
}

// SeedArea registers or updates an area's capacity in the store.
func (s *Service) SeedArea(ctx context.Context, areaID string, capacity int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.SeedArea(ctx, areaID, capacity)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":   s.started,
		"queueSize": s.queueSize,
	}

	if s.started {
		stats["connections"] = s.reg.Connections()
		stats["brokerConnected"] = s.gateway.Connected()
		stats["storedResults"] = s.store.Count(context.Background())
	}

	return stats
}
