package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ndiyar/vigil/internal/adapters/broker"
	service "github.com/ndiyar/vigil/internal/app"
	logging "github.com/ndiyar/vigil/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeGateway stands in for the MQTT broker during lifecycle tests.
type fakeGateway struct {
	mu         sync.Mutex
	connected  bool
	subscribed map[string]broker.Handler
	published  []string
	connectErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{subscribed: make(map[string]broker.Handler)}
}

func (g *fakeGateway) Connect(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.connectErr != nil {
		return g.connectErr
	}
	g.connected = true
	return nil
}

func (g *fakeGateway) PublishFrame(_ context.Context, topic string, _ []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.published = append(g.published, topic)
	return nil
}

func (g *fakeGateway) Subscribe(topic string, h broker.Handler) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subscribed[topic] = h
	return nil
}

func (g *fakeGateway) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

func (g *fakeGateway) Disconnect() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = false
}

func (g *fakeGateway) topics() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.subscribed))
	for t := range g.subscribed {
		out = append(out, t)
	}
	return out
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service with a fake broker gateway", t, func() {
		_ = logging.Init()
		ctx := context.Background()
		gw := newFakeGateway()

		svc := service.New(
			service.WithGateway(gw),
			service.WithQueueSize(64),
			service.WithPublishTimeout(time.Second),
		)

		Convey("When the service starts", func() {
			err := svc.Start(ctx)
			So(err, ShouldBeNil)
			defer svc.Stop()

			Convey("Then it connects and subscribes to every result topic", func() {
				So(gw.Connected(), ShouldBeTrue)
				So(gw.topics(), ShouldContain, broker.TopicCrowdResult)
				So(gw.topics(), ShouldContain, broker.TopicFatigueResult)
				So(gw.topics(), ShouldContain, broker.TopicFaceResult)
			})

			Convey("Then stats report a running service", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldBeTrue)
				So(stats["connections"], ShouldEqual, 0)
				So(stats["brokerConnected"], ShouldBeTrue)
				So(stats["storedResults"], ShouldEqual, 0)
			})

			Convey("Then a second start is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And the WebSocket handler is available", func() {
				So(svc.WSHandler(), ShouldNotBeNil)
			})
		})

		Convey("When the service stops", func() {
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop()

			Convey("Then the broker link is dropped", func() {
				So(gw.Connected(), ShouldBeFalse)
				So(svc.GetStats()["started"], ShouldBeFalse)
			})

			Convey("Then a second stop is a no-op", func() {
				So(svc.Stop, ShouldNotPanic)
			})
		})

		Convey("When the broker connection fails", func() {
			gw.connectErr = broker.ErrUnavailable

			err := svc.Start(ctx)

			Convey("Then start fails and the service stays stopped", func() {
				So(err, ShouldNotBeNil)
				So(svc.GetStats()["started"], ShouldBeFalse)
			})
		})
	})
}
