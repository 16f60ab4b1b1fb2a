package simworker

import (
	"crypto/rand"
	"math/big"
	"time"
)

// randomInt returns a uniform value in [0, max).
func randomInt(max int) int {
	if max <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return int(n.Int64())
}

// randomLatency picks a simulated inference delay in [min, max].
func randomLatency(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(randomInt(int(max-min)))
}

// randomLabel picks one of the configured fatigue labels.
func randomLabel(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return labels[randomInt(len(labels))]
}
