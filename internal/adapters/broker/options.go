// Package broker abstracts publish/subscribe over the MQTT message bus.
package broker

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ndiyar/vigil/pkg/logger"
)

// Option applies a configuration option to the MQTTGateway.
type Option func(*MQTTGateway)

// WithBrokerURL sets the broker address, e.g. "tcp://localhost:1883".
func WithBrokerURL(url string) Option {
	return func(g *MQTTGateway) {
		if url != "" {
			g.url = url
		}
	}
}

// WithClientID sets the MQTT client identifier.
func WithClientID(id string) Option {
	return func(g *MQTTGateway) {
		if id != "" {
			g.clientID = id
		}
	}
}

// WithPublishTimeout bounds how long a publish acknowledgement is awaited
// before it is counted as failed.
func WithPublishTimeout(d time.Duration) Option {
	return func(g *MQTTGateway) {
		if d > 0 {
			g.publishTimeout = d
		}
	}
}

// WithConnectTimeout bounds the initial connection attempt.
func WithConnectTimeout(d time.Duration) Option {
	return func(g *MQTTGateway) {
		if d > 0 {
			g.connectTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the gateway.
func WithLogger(l logger.Logger) Option {
	return func(g *MQTTGateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithClientFactory swaps the MQTT client constructor, used by tests.
func WithClientFactory(f func(*mqtt.ClientOptions) mqtt.Client) Option {
	return func(g *MQTTGateway) {
		if f != nil {
			g.newClient = f
		}
	}
}
