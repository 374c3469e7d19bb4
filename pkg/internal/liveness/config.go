package liveness

import "time"

const (
	DefaultHeartbeatInterval   = 30 * time.Second
	DefaultMaxIdleTime         = 300 * time.Second
	DefaultMaxMissedHeartbeats = 3
	DefaultDeliveryTimeout     = 5 * time.Second
)

// Config holds the timing policy of a liveness session. It is copied into
// the manager on construction and never changes afterwards.
type Config struct {
	HeartbeatInterval   time.Duration
	MaxIdleTime         time.Duration
	MaxMissedHeartbeats int
	// DeliveryTimeout bounds a single heartbeat delivery attempt.
	DeliveryTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		HeartbeatInterval:   DefaultHeartbeatInterval,
		MaxIdleTime:         DefaultMaxIdleTime,
		MaxMissedHeartbeats: DefaultMaxMissedHeartbeats,
		DeliveryTimeout:     DefaultDeliveryTimeout,
	}
}

// WithDefaults fills zero or negative fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.MaxIdleTime <= 0 {
		c.MaxIdleTime = def.MaxIdleTime
	}
	if c.MaxMissedHeartbeats <= 0 {
		c.MaxMissedHeartbeats = def.MaxMissedHeartbeats
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = def.DeliveryTimeout
	}
	return c
}
