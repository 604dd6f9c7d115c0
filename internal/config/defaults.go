package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultEndpointURL          = "wss://brain.jane.dev/ws"
	DefaultHandshakeTimeout     = 10 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultPingInterval         = 30 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 3 * time.Second
	DefaultLogLevel             = "info"
	DefaultLogCapacity          = 20
	DefaultPreviewLength        = 50
	DefaultJournalBatchSize     = 100
	DefaultJournalFlush         = 1 * time.Second
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 4
	DefaultMinConns             = 1
)

func (c *Config) applyDefaults() {
	// Endpoint defaults
	if c.Endpoint.URL == "" {
		c.Endpoint.URL = DefaultEndpointURL
	}
	if c.Endpoint.HandshakeTimeout == 0 {
		c.Endpoint.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Endpoint.WriteTimeout == 0 {
		c.Endpoint.WriteTimeout = DefaultWriteTimeout
	}
	if c.Endpoint.PingInterval == 0 {
		c.Endpoint.PingInterval = DefaultPingInterval
	}

	// Reconnect defaults
	if c.Reconnect.MaxAttempts == nil {
		n := DefaultMaxReconnectAttempts
		c.Reconnect.MaxAttempts = &n
	}
	if c.Reconnect.Delay == 0 {
		c.Reconnect.Delay = DefaultReconnectDelay
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Capacity == 0 {
		c.Log.Capacity = DefaultLogCapacity
	}
	if c.Log.PreviewLength == 0 {
		c.Log.PreviewLength = DefaultPreviewLength
	}

	// Journal defaults
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultJournalBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultJournalFlush
	}
	applyDBDefaults(&c.Journal.Database)
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
