package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrAlreadyOpen     = errors.New("transport already open")
	ErrClosed          = errors.New("manager closed")
	ErrInvalidEndpoint = errors.New("invalid endpoint url")
)

// WebSocket close codes the manager cares about.
const (
	CloseNormalClosure   = 1000
	CloseAbnormalClosure = 1006
)

// Defaults for ManagerConfig.
const (
	DefaultURL                  = "wss://brain.jane.dev/ws"
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 3 * time.Second
	DefaultLogCapacity          = 20
	DefaultPreviewLength        = 50
)

// State is the connection status.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// LogEntry is one line of the rolling log.
type LogEntry struct {
	Time time.Time
	Text string
}

// String renders the entry as "[15:04:05] text".
func (e LogEntry) String() string {
	return "[" + e.Time.Format(time.TimeOnly) + "] " + e.Text
}

// EventType identifies the kind of Event.
type EventType string

const (
	EventStatus EventType = "status"
	EventError  EventType = "error"
	EventLog    EventType = "log"
)

// Event is emitted by the Manager to its Listener.
type Event struct {
	Type      EventType
	Connected bool     // EventStatus
	Text      string   // EventError
	Entry     LogEntry // EventLog
}

// Listener receives manager events. HandleEvent must not call back into
// the Manager synchronously.
type Listener interface {
	HandleEvent(ev Event)
}

// ListenerFunc is a function adapter for Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) HandleEvent(ev Event) {
	f(ev)
}

// MultiListener fans each event out to every listener in order.
type MultiListener []Listener

func (m MultiListener) HandleEvent(ev Event) {
	for _, l := range m {
		if l != nil {
			l.HandleEvent(ev)
		}
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	URL                  string        // WebSocket URL (e.g., wss://brain.jane.dev/ws)
	MaxReconnectAttempts int           // Automatic retries before waiting for a manual Connect
	ReconnectDelay       time.Duration // Fixed wait before each retry
	LogCapacity          int           // Rolling log size
	PreviewLength        int           // Inbound payloads longer than this are truncated in the log
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		URL:                  DefaultURL,
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		ReconnectDelay:       DefaultReconnectDelay,
		LogCapacity:          DefaultLogCapacity,
		PreviewLength:        DefaultPreviewLength,
	}
}

// TransportConfig configures the WebSocket transport.
type TransportConfig struct {
	Token            string        // Optional bearer token for the Authorization header
	UserAgent        string        // Optional User-Agent header
	HandshakeTimeout time.Duration // Dial handshake deadline
	WriteTimeout     time.Duration // Write deadline for sends and control frames
	PingInterval     time.Duration // Keepalive ping period (0 disables)
}

// DefaultTransportConfig returns sensible defaults.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     30 * time.Second,
	}
}
