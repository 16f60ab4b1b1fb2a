package simworker

import "time"

// Config holds configuration for the simulated workers.
type Config struct {
	BrokerURL     string        // MQTT broker endpoint
	ClientID      string        // Broker client identifier
	LatencyMin    time.Duration // Minimum simulated inference latency
	LatencyMax    time.Duration // Maximum simulated inference latency
	MaxPeople     int           // Upper bound for generated crowd counts
	FatigueLabels []string      // Labels the fatigue worker cycles through
}

// Stats counts the frames handled per detection kind.
type Stats struct {
	CrowdFrames   int64
	FatigueFrames int64
	FaceFrames    int64
}
