// Package model contains domain models passed between layers.
package model

import "time"

// Kind identifies a detection pipeline. Each kind has its own frame topic,
// result topic, and session bindings.
type Kind string

// Detection kinds supported by the service.
const (
	KindCrowd   Kind = "crowd"
	KindFatigue Kind = "fatigue"
	KindFace    Kind = "face"
)

// Valid reports whether k is one of the supported detection kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCrowd, KindFatigue, KindFace:
		return true
	}
	return false
}

// Subject identifies what a measurement pertains to: an area (crowd) or a
// user (fatigue, face).
type Subject struct {
	Kind Kind
	ID   string
}

// FrameEvent is the transient unit submitted by a client. It exists only for
// the span of one publish round trip and is never persisted or retained; the
// bus provides no request identifier to correlate it with a later result.
type FrameEvent struct {
	Subject  Subject
	Image    string // base64-encoded frame
	Capacity int    // area capacity, crowd frames only; 0 means look it up
}

// BusMessage is a raw payload received from a broker topic. Schema is
// enforced by the router, not at the bus boundary.
type BusMessage struct {
	Topic   string
	Payload []byte
}

// ClassifiedResult is a raw measurement transformed into a fixed-enumeration
// status. Count is meaningful only for crowd subjects.
type ClassifiedResult struct {
	Subject   Subject
	Count     int
	Status    string
	Timestamp time.Time
}
