package config

import "time"

// Config is the root configuration for a brainlink client.
type Config struct {
	Endpoint  EndpointConfig  `yaml:"endpoint"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Log       LogConfig       `yaml:"log"`
	Status    StatusConfig    `yaml:"status"`
	Journal   JournalConfig   `yaml:"journal"`
}

// EndpointConfig holds the brain WebSocket endpoint settings.
type EndpointConfig struct {
	URL              string        `yaml:"url"`
	Token            string        `yaml:"token"` // Optional bearer token
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
}

// ReconnectConfig holds the automatic retry policy.
type ReconnectConfig struct {
	MaxAttempts *int          `yaml:"max_attempts"` // nil = default; 0 disables automatic retry
	Delay       time.Duration `yaml:"delay"`
}

// LogConfig holds logging and rolling log settings.
type LogConfig struct {
	Level         string `yaml:"level"`          // debug, info, warn, error
	Capacity      int    `yaml:"capacity"`       // Rolling log entries kept
	PreviewLength int    `yaml:"preview_length"` // Inbound payload preview length
}

// StatusConfig holds the HTTP status surface settings.
type StatusConfig struct {
	Addr string `yaml:"addr"` // Empty disables the status server
}

// JournalConfig holds the PostgreSQL journal settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Database      DBConfig      `yaml:"database"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}
