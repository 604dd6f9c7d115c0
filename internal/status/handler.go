package status

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/brainlink/internal/connection"
)

// Source is the view of the connection manager the handler needs.
type Source interface {
	State() connection.State
	Attempts() int
	MaxAttempts() int
	RetryPending() bool
	SessionID() uuid.UUID
	URL() string
	Entries() []connection.LogEntry
	Connect()
	Disconnect()
}

// Health is the /health response body.
type Health struct {
	Status       string `json:"status"` // healthy, degraded, unhealthy
	State        string `json:"state"`
	URL          string `json:"url"`
	Attempts     int    `json:"attempts"`
	MaxAttempts  int    `json:"max_attempts"`
	RetryPending bool   `json:"retry_pending"`
	SessionID    string `json:"session_id,omitempty"`
}

// Entry is one rolling log line in the /log response.
type Entry struct {
	Time string `json:"time"`
	Text string `json:"text"`
}

// NewHandler creates the HTTP handler for the status surface.
func NewHandler(src Source, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		health := BuildHealth(src)

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("GET /log", func(w http.ResponseWriter, r *http.Request) {
		entries := src.Entries()
		out := make([]Entry, len(entries))
		for i, e := range entries {
			out[i] = Entry{Time: e.Time.Format(time.TimeOnly), Text: e.Text}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"count":   len(out),
			"entries": out,
		})
	})

	mux.HandleFunc("POST /connect", func(w http.ResponseWriter, r *http.Request) {
		logger.Info("connect requested over http", "remote", r.RemoteAddr)
		src.Connect()
		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("POST /disconnect", func(w http.ResponseWriter, r *http.Request) {
		logger.Info("disconnect requested over http", "remote", r.RemoteAddr)
		src.Disconnect()
		w.WriteHeader(http.StatusAccepted)
	})

	return mux
}

// BuildHealth summarizes the source. Connected is healthy, connecting or
// waiting on a retry is degraded, anything else is unhealthy.
func BuildHealth(src Source) Health {
	state := src.State()
	h := Health{
		State:        state.String(),
		URL:          src.URL(),
		Attempts:     src.Attempts(),
		MaxAttempts:  src.MaxAttempts(),
		RetryPending: src.RetryPending(),
	}
	if id := src.SessionID(); id != uuid.Nil {
		h.SessionID = id.String()
	}

	switch {
	case state == connection.StateConnected:
		h.Status = "healthy"
	case state == connection.StateConnecting || h.RetryPending:
		h.Status = "degraded"
	default:
		h.Status = "unhealthy"
	}
	return h
}
