// Package simworker emulates the external ML workers during development:
// it subscribes to the frame topics and publishes plausible results back on
// the result topics so the full pipeline can be exercised without models.
package simworker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ndiyar/vigil/internal/adapters/broker"
	"github.com/ndiyar/vigil/pkg/logger"
)

// Run connects to the broker and answers frames until ctx is cancelled.
func Run(ctx context.Context, cfg *Config) error {
	log := logger.Get().Named("simworker")
	stats := &Stats{}

	gateway := broker.NewMQTTGateway(
		broker.WithBrokerURL(cfg.BrokerURL),
		broker.WithClientID(cfg.ClientID),
	)

	respond := func(counter *int64, topic string, build func() any) broker.Handler {
		return func(_ string, _ []byte) {
			atomic.AddInt64(counter, 1)
			go func() {
				// Inference takes time; answers arrive asynchronously and
				// out of order, like the real workers.
				select {
				case <-time.After(randomLatency(cfg.LatencyMin, cfg.LatencyMax)):
				case <-ctx.Done():
					return
				}
				payload, err := json.Marshal(build())
				if err != nil {
					return
				}
				if err := gateway.PublishFrame(ctx, topic, payload); err != nil {
					log.Warn(ctx, "publish result", logger.String("topic", topic), logger.Error(err))
				}
			}()
		}
	}

	subs := map[string]broker.Handler{
		broker.TopicCrowdFrame: respond(&stats.CrowdFrames, broker.TopicCrowdResult, func() any {
			return map[string]int{"num_people": randomInt(cfg.MaxPeople + 1)}
		}),
		broker.TopicFatigueFrame: respond(&stats.FatigueFrames, broker.TopicFatigueResult, func() any {
			return map[string]string{"status": randomLabel(cfg.FatigueLabels)}
		}),
		broker.TopicFaceFrame: respond(&stats.FaceFrames, broker.TopicFaceResult, func() any {
			return map[string]any{"faces": []map[string]any{{
				"confidence": float64(randomInt(100)) / 100,
				"box":        []int{randomInt(640), randomInt(480), randomInt(640), randomInt(480)},
			}}}
		}),
	}
	for topic, h := range subs {
		if err := gateway.Subscribe(topic, h); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}

	if err := gateway.Connect(ctx); err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}
	defer gateway.Disconnect()

	log.Info(ctx, "simulated workers running",
		logger.String("broker", cfg.BrokerURL),
		logger.String("clientID", cfg.ClientID),
	)

	<-ctx.Done()

	log.Info(ctx, "simulated workers stopped",
		logger.Int("crowdFrames", int(atomic.LoadInt64(&stats.CrowdFrames))),
		logger.Int("fatigueFrames", int(atomic.LoadInt64(&stats.FatigueFrames))),
		logger.Int("faceFrames", int(atomic.LoadInt64(&stats.FaceFrames))),
	)
	return nil
}
