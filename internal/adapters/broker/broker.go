// Package broker abstracts publish/subscribe over the MQTT message bus that
// connects the service to external ML workers.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ndiyar/vigil/pkg/logger"
	"github.com/ndiyar/vigil/pkg/metrics"
)

// Bus topics are fixed; there is no versioning at this boundary.
const (
	TopicCrowdFrame   = "crowd-frame"
	TopicFaceFrame    = "face-frame"
	TopicFatigueFrame = "fatigue-frame"

	TopicCrowdResult   = "crowd-result"
	TopicFatigueResult = "fatigue-result"
	TopicFaceResult    = "face-result"
)

// Default gateway configuration constants.
const (
	defaultConnectTimeout       = 5 * time.Second
	defaultPublishTimeout       = 2 * time.Second
	defaultConnectRetryInterval = 2 * time.Second
	defaultMaxReconnectInterval = 30 * time.Second
	defaultDisconnectGrace      = 250 * time.Millisecond
)

// Handler is invoked once per inbound message, in arrival order per topic.
// Handlers must not block; they are called on the MQTT client's read loop.
type Handler func(topic string, payload []byte)

// Publisher is the outbound half of the gateway, as seen by the router.
type Publisher interface {
	// PublishFrame sends an encoded frame to a worker topic, fire-and-forget.
	// While the broker is unreachable it fails fast with ErrUnavailable
	// instead of queueing unboundedly.
	PublishFrame(ctx context.Context, topic string, payload []byte) error
}

// Gateway is the full broker boundary with explicit lifecycle. It is a
// single owned instance injected into the router, never ambient state.
type Gateway interface {
	Publisher

	// Connect establishes the broker connection and keeps retrying with
	// backoff after connection loss.
	Connect(ctx context.Context) error

	// Subscribe registers a handler for a result topic. Subscriptions
	// survive reconnects.
	Subscribe(topic string, h Handler) error

	// Connected reports whether the broker connection is currently up.
	Connected() bool

	// Disconnect drains and closes the connection.
	Disconnect()
}

// MQTTGateway implements Gateway on top of the paho MQTT client.
type MQTTGateway struct {
	url            string
	clientID       string
	connectTimeout time.Duration
	publishTimeout time.Duration

	// newClient is swappable for tests.
	newClient func(*mqtt.ClientOptions) mqtt.Client
	client    mqtt.Client

	mu        sync.RWMutex
	connected bool
	handlers  map[string]Handler

	logger logger.Logger
}

// NewMQTTGateway creates a gateway with configuration options.
func NewMQTTGateway(opts ...Option) *MQTTGateway {
	g := &MQTTGateway{
		url:            "tcp://localhost:1883",
		clientID:       "vigil",
		connectTimeout: defaultConnectTimeout,
		publishTimeout: defaultPublishTimeout,
		newClient:      mqtt.NewClient,
		handlers:       make(map[string]Handler),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.logger == nil {
		g.logger = logger.Get().Named("broker")
	}

	return g
}

// Connect establishes the broker connection. Reconnects are automatic with
// bounded backoff; while disconnected, publishes fail fast.
func (g *MQTTGateway) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(g.url)
	opts.SetClientID(g.clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(defaultConnectRetryInterval)
	opts.SetMaxReconnectInterval(defaultMaxReconnectInterval)

	opts.OnConnect = func(c mqtt.Client) {
		g.mu.Lock()
		g.connected = true
		handlers := make(map[string]Handler, len(g.handlers))
		for t, h := range g.handlers {
			handlers[t] = h
		}
		g.mu.Unlock()

		metrics.UpdateBrokerConnected(true)
		g.logger.Info(ctx, "broker connection established", logger.String("url", g.url))

		// Re-establish subscriptions lost with the previous session.
		for topic, h := range handlers {
			if err := g.subscribe(c, topic, h); err != nil {
				g.logger.Error(ctx, "resubscribe failed", logger.String("topic", topic), logger.Error(err))
			}
		}
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		g.mu.Lock()
		g.connected = false
		g.mu.Unlock()

		metrics.UpdateBrokerConnected(false)
		g.logger.Warn(ctx, "broker connection lost, reconnecting with backoff",
			logger.String("url", g.url),
			logger.Error(err),
		)
	}

	g.client = g.newClient(opts)

	token := g.client.Connect()
	if !token.WaitTimeout(g.connectTimeout) {
		return fmt.Errorf("%w: connect timeout after %s", ErrUnavailable, g.connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	g.mu.Lock()
	g.connected = true
	g.mu.Unlock()
	metrics.UpdateBrokerConnected(true)

	return nil
}

// PublishFrame sends an encoded frame to a worker topic at QoS 0. Delivery
// confirmation is not awaited; a publish failure is logged and counted, not
// surfaced to the frame's sender.
func (g *MQTTGateway) PublishFrame(ctx context.Context, topic string, payload []byte) error {
	if !g.Connected() {
		metrics.RecordPublishError(topic)
		return fmt.Errorf("%w: broker disconnected", ErrUnavailable)
	}

	token := g.client.Publish(topic, 0, false, payload)
	go func() {
		if !token.WaitTimeout(g.publishTimeout) {
			metrics.RecordPublishError(topic)
			g.logger.Warn(ctx, "publish timed out", logger.String("topic", topic))
			return
		}
		if err := token.Error(); err != nil {
			metrics.RecordPublishError(topic)
			g.logger.Warn(ctx, "publish failed", logger.String("topic", topic), logger.Error(err))
			return
		}
		metrics.RecordFramePublished(topic)
	}()

	return nil
}

// Subscribe registers a handler for a result topic.
func (g *MQTTGateway) Subscribe(topic string, h Handler) error {
	if h == nil {
		return fmt.Errorf("%w: nil handler for topic %s", ErrBadSubscription, topic)
	}

	g.mu.Lock()
	g.handlers[topic] = h
	client := g.client
	g.mu.Unlock()

	if client == nil {
		// Not connected yet; OnConnect will pick it up.
		return nil
	}
	return g.subscribe(client, topic, h)
}

// subscribe attaches h to topic on an established client.
func (g *MQTTGateway) subscribe(client mqtt.Client, topic string, h Handler) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		h(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(g.connectTimeout) {
		return fmt.Errorf("%w: subscribe timeout on %s", ErrUnavailable, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: subscribe %s: %v", ErrUnavailable, topic, err)
	}
	return nil
}

// Connected reports whether the broker connection is currently up.
func (g *MQTTGateway) Connected() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.connected
}

// Disconnect closes the broker connection after a short drain.
func (g *MQTTGateway) Disconnect() {
	g.mu.Lock()
	client := g.client
	g.connected = false
	g.mu.Unlock()

	if client != nil {
		client.Disconnect(uint(defaultDisconnectGrace.Milliseconds()))
	}
	metrics.UpdateBrokerConnected(false)
}
