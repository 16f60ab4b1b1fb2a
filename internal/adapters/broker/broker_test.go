package broker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	broker "github.com/ndiyar/vigil/internal/adapters/broker"
	logging "github.com/ndiyar/vigil/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeToken completes immediately with a configurable error.
type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// fakeClient records publishes and subscriptions instead of talking to a bus.
type fakeClient struct {
	mu          sync.Mutex
	connectErr  error
	published   map[string][]byte
	callbacks   map[string]mqtt.MessageHandler
	opts        *mqtt.ClientOptions
	disconnects int
}

func newFakeClient(opts *mqtt.ClientOptions) *fakeClient {
	return &fakeClient{
		published: make(map[string][]byte),
		callbacks: make(map[string]mqtt.MessageHandler),
		opts:      opts,
	}
}

func (c *fakeClient) IsConnected() bool      { return true }
func (c *fakeClient) IsConnectionOpen() bool { return true }

func (c *fakeClient) Connect() mqtt.Token {
	if c.connectErr == nil && c.opts.OnConnect != nil {
		c.opts.OnConnect(c)
	}
	return &fakeToken{err: c.connectErr}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published[topic] = payload.([]byte)
	return &fakeToken{}
}

func (c *fakeClient) Subscribe(topic string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks[topic] = callback
	return &fakeToken{}
}

func (c *fakeClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return &fakeToken{}
}

func (c *fakeClient) Unsubscribe(...string) mqtt.Token     { return &fakeToken{} }
func (c *fakeClient) AddRoute(string, mqtt.MessageHandler) {}
func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

func (c *fakeClient) payloadFor(topic string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.published[topic]
}

func (c *fakeClient) deliver(topic string, payload []byte) {
	c.mu.Lock()
	cb := c.callbacks[topic]
	c.mu.Unlock()
	if cb != nil {
		cb(c, &fakeMessage{topic: topic, payload: payload})
	}
}

// fakeMessage satisfies mqtt.Message for handler delivery.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func newGateway(fc **fakeClient, opts ...broker.Option) *broker.MQTTGateway {
	factory := func(o *mqtt.ClientOptions) mqtt.Client {
		*fc = newFakeClient(o)
		return *fc
	}
	opts = append(opts, broker.WithClientFactory(factory))
	return broker.NewMQTTGateway(opts...)
}

func TestMQTTGatewayConnect(t *testing.T) {
	Convey("Given a gateway backed by a fake client", t, func() {
		_ = logging.Init()
		ctx := context.Background()

		var fc *fakeClient
		g := newGateway(&fc, broker.WithBrokerURL("tcp://test:1883"), broker.WithClientID("vigil-test"))

		Convey("When the connection succeeds", func() {
			err := g.Connect(ctx)
			So(err, ShouldBeNil)
			So(g.Connected(), ShouldBeTrue)
		})

		Convey("When the connection fails", func() {
			factory := func(o *mqtt.ClientOptions) mqtt.Client {
				c := newFakeClient(o)
				c.connectErr = errors.New("connection refused")
				return c
			}
			bad := broker.NewMQTTGateway(broker.WithClientFactory(factory))

			err := bad.Connect(ctx)
			So(errors.Is(err, broker.ErrUnavailable), ShouldBeTrue)
		})
	})
}

func TestMQTTGatewayPublishFrame(t *testing.T) {
	Convey("Given a connected gateway", t, func() {
		_ = logging.Init()
		ctx := context.Background()

		var fc *fakeClient
		g := newGateway(&fc)
		So(g.Connect(ctx), ShouldBeNil)

		Convey("When a frame is published", func() {
			err := g.PublishFrame(ctx, broker.TopicCrowdFrame, []byte("img-bytes"))

			Convey("Then the payload reaches the client without blocking", func() {
				So(err, ShouldBeNil)
				So(string(fc.payloadFor(broker.TopicCrowdFrame)), ShouldEqual, "img-bytes")
			})
		})
	})

	Convey("Given a gateway that never connected", t, func() {
		_ = logging.Init()
		var fc *fakeClient
		g := newGateway(&fc)

		Convey("When a frame is published", func() {
			err := g.PublishFrame(context.Background(), broker.TopicCrowdFrame, []byte("x"))

			Convey("Then it fails fast with a transient-unavailable error", func() {
				So(errors.Is(err, broker.ErrUnavailable), ShouldBeTrue)
			})
		})
	})
}

func TestMQTTGatewaySubscribe(t *testing.T) {
	Convey("Given a connected gateway", t, func() {
		_ = logging.Init()
		ctx := context.Background()

		var fc *fakeClient
		g := newGateway(&fc)
		So(g.Connect(ctx), ShouldBeNil)

		Convey("When a handler is subscribed and a message arrives", func() {
			var gotTopic string
			var gotPayload []byte
			err := g.Subscribe(broker.TopicCrowdResult, func(topic string, payload []byte) {
				gotTopic = topic
				gotPayload = payload
			})
			So(err, ShouldBeNil)

			fc.deliver(broker.TopicCrowdResult, []byte(`{"num_people":4}`))

			Convey("Then the handler sees topic and payload", func() {
				So(gotTopic, ShouldEqual, broker.TopicCrowdResult)
				So(string(gotPayload), ShouldEqual, `{"num_people":4}`)
			})
		})

		Convey("When subscribing with a nil handler", func() {
			err := g.Subscribe(broker.TopicCrowdResult, nil)
			So(errors.Is(err, broker.ErrBadSubscription), ShouldBeTrue)
		})
	})

	Convey("Given a gateway not yet connected", t, func() {
		_ = logging.Init()
		var fc *fakeClient
		g := newGateway(&fc)

		Convey("When a handler is registered before Connect", func() {
			delivered := make(chan string, 1)
			So(g.Subscribe(broker.TopicFatigueResult, func(topic string, _ []byte) {
				delivered <- topic
			}), ShouldBeNil)

			Convey("Then the subscription is established on connect", func() {
				So(g.Connect(context.Background()), ShouldBeNil)
				fc.deliver(broker.TopicFatigueResult, []byte(`{"status":"tired"}`))
				So(<-delivered, ShouldEqual, broker.TopicFatigueResult)
			})
		})
	})
}
