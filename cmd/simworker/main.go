package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ndiyar/vigil/internal/simworker"
	"github.com/ndiyar/vigil/pkg/logger"
)

// Default configuration constants.
const (
	defaultLatencyMin = 80 * time.Millisecond
	defaultLatencyMax = 300 * time.Millisecond
	defaultMaxPeople  = 80
)

func main() {
	var (
		brokerURL  = flag.String("broker", "tcp://localhost:1883", "MQTT broker URL")
		clientID   = flag.String("client-id", "vigil-simworker", "Broker client identifier")
		latencyMin = flag.Duration("latency-min", defaultLatencyMin, "Minimum simulated inference latency")
		latencyMax = flag.Duration("latency-max", defaultLatencyMax, "Maximum simulated inference latency")
		maxPeople  = flag.Int("max-people", defaultMaxPeople, "Upper bound for generated crowd counts")
		labels     = flag.String("labels", "active,tired,exhausted", "Comma-separated fatigue labels")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &simworker.Config{
		BrokerURL:     *brokerURL,
		ClientID:      *clientID,
		LatencyMin:    *latencyMin,
		LatencyMax:    *latencyMax,
		MaxPeople:     *maxPeople,
		FatigueLabels: strings.Split(*labels, ","),
	}

	if err := simworker.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("simworker failed: " + err.Error() + "\n")
	}
}
