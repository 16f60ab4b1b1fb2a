// Package status defines the contract for deriving a discrete occupancy or
// fatigue status from a raw measurement.
package status

import "fmt"

// Default classification thresholds. Each value is the inclusive upper edge
// of its band as a count/capacity ratio.
const (
	defaultSparseMax   = 0.33
	defaultModerateMax = 0.66
	defaultCrowdedMax  = 1.0
)

// Crowd status enumeration. A classified crowd result always carries exactly
// one of these values.
const (
	Empty    = "empty"
	Sparse   = "sparse"
	Moderate = "moderate"
	Crowded  = "crowded"
	Full     = "full"
)

// defaultFatigueLabels are the categorical labels accepted from the fatigue
// worker when none are configured.
var defaultFatigueLabels = []string{"active", "tired", "exhausted"}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithThresholds sets the crowd band upper edges. Invalid orderings are
// rejected at config validation time; values that slip through are ignored.
func WithThresholds(sparseMax, moderateMax, crowdedMax float64) Option {
	return func(c *Classifier) {
		if sparseMax > 0 && moderateMax > sparseMax && crowdedMax > moderateMax {
			c.sparseMax = sparseMax
			c.moderateMax = moderateMax
			c.crowdedMax = crowdedMax
		}
	}
}

// WithFatigueLabels sets the recognized fatigue labels.
func WithFatigueLabels(labels []string) Option {
	return func(c *Classifier) {
		if len(labels) == 0 {
			return
		}
		c.fatigueLabels = make(map[string]struct{}, len(labels))
		for _, l := range labels {
			c.fatigueLabels[l] = struct{}{}
		}
	}
}

// Classifier maps raw measurements to the fixed status enumeration. It is
// pure and safe for concurrent use.
type Classifier struct {
	sparseMax     float64
	moderateMax   float64
	crowdedMax    float64
	fatigueLabels map[string]struct{}
}

// New creates a Classifier with configuration options.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		sparseMax:   defaultSparseMax,
		moderateMax: defaultModerateMax,
		crowdedMax:  defaultCrowdedMax,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.fatigueLabels == nil {
		c.fatigueLabels = make(map[string]struct{}, len(defaultFatigueLabels))
		for _, l := range defaultFatigueLabels {
			c.fatigueLabels[l] = struct{}{}
		}
	}

	return c
}

// Crowd maps a people count and an area capacity to a crowd status. Band
// edges are inclusive on the lower side of the next band: a ratio of exactly
// 0.33 is Sparse and a ratio of exactly 1.0 is Crowded.
func (c *Classifier) Crowd(count, capacity int) (string, error) {
	if capacity <= 0 {
		return "", fmt.Errorf("%w: capacity %d", ErrBadCapacity, capacity)
	}
	if count < 0 {
		return "", fmt.Errorf("%w: count %d", ErrBadCount, count)
	}

	ratio := float64(count) / float64(capacity)
	switch {
	case ratio == 0:
		return Empty, nil
	case ratio <= c.sparseMax:
		return Sparse, nil
	case ratio <= c.moderateMax:
		return Moderate, nil
	case ratio <= c.crowdedMax:
		return Crowded, nil
	default:
		return Full, nil
	}
}

// Fatigue validates a categorical label from the fatigue worker. The worker
// owns fatigue classification; this layer only rejects unrecognized values.
func (c *Classifier) Fatigue(label string) (string, error) {
	if _, ok := c.fatigueLabels[label]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	return label, nil
}
