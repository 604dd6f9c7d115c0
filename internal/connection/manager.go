package connection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rickgao/brainlink/internal/buffer"
)

// Manager owns one logical connection to the brain endpoint.
//
// All state lives in the Manager; transport callbacks, the retry timer and
// API calls are serialized by mu. Events are delivered to the listener
// after mu is released.
type Manager struct {
	cfg       ManagerConfig
	transport Transport
	clock     Clock
	listener  Listener
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	attempts   int
	gen        uint64 // Current transport attempt; stale callbacks carry an older value
	retryTimer Timer
	retrySeq   uint64 // Identifies the armed retry timer
	sessionID  uuid.UUID
	closed     bool
	entries    *buffer.Ring[LogEntry]
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock sets the clock used for the retry delay and log timestamps.
func WithClock(c Clock) ManagerOption {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithListener sets the event listener.
func WithListener(l Listener) ManagerOption {
	return func(m *Manager) {
		m.listener = l
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Connection Manager. It starts Disconnected.
func NewManager(cfg ManagerConfig, transport Transport, opts ...ManagerOption) *Manager {
	def := DefaultManagerConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.LogCapacity <= 0 {
		cfg.LogCapacity = def.LogCapacity
	}
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = def.PreviewLength
	}
	if cfg.MaxReconnectAttempts < 0 {
		cfg.MaxReconnectAttempts = 0
	}

	m := &Manager{
		cfg:       cfg,
		transport: transport,
		clock:     RealClock(),
		logger:    slog.Default(),
		entries:   buffer.NewRing[LogEntry](cfg.LogCapacity),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.listener == nil {
		m.listener = ListenerFunc(func(Event) {})
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())

	return m
}

// Connect starts a connection attempt unless one is already in progress or
// established. A call from outside the retry timer resets the retry budget.
func (m *Manager) Connect() {
	m.connect(true)
}

func (m *Manager) connect(manual bool) {
	m.mu.Lock()

	if m.closed || m.state != StateDisconnected {
		m.mu.Unlock()
		return
	}
	if manual {
		m.attempts = 0
		m.stopRetryLocked()
	}

	m.gen++
	gen := m.gen
	m.state = StateConnecting
	m.sessionID = uuid.New()

	var events []Event
	events = m.appendLocked(events, "connecting to "+m.cfg.URL)
	logger := m.logger.With("session_id", m.sessionID, "url", m.cfg.URL)
	m.mu.Unlock()

	logger.Info("connecting", "manual", manual)

	err := m.transport.Open(m.ctx, m.cfg.URL, &attempt{m: m, gen: gen})
	if err != nil {
		m.mu.Lock()
		if m.gen == gen && m.state == StateConnecting {
			m.state = StateDisconnected
			events = m.appendLocked(events, "failed to connect: "+err.Error())
			events = append(events, Event{Type: EventError, Text: err.Error()})
		}
		m.mu.Unlock()

		logger.Warn("failed to connect", "error", err)
	} else {
		// Disconnect may have run between unlocking and Open
		m.mu.Lock()
		stale := m.gen != gen && m.state == StateDisconnected
		m.mu.Unlock()
		if stale {
			m.transport.Close(CloseNormalClosure, "User disconnected")
		}
	}

	m.emit(events)
}

// Disconnect closes the connection and suppresses automatic retry until the
// next Connect.
func (m *Manager) Disconnect() {
	m.disconnect("disconnected by user")
}

func (m *Manager) disconnect(text string) {
	m.mu.Lock()

	m.attempts = m.cfg.MaxReconnectAttempts
	m.stopRetryLocked()

	wasActive := m.state != StateDisconnected
	m.gen++ // Ignore anything the old transport still delivers
	m.state = StateDisconnected

	var events []Event
	events = m.appendLocked(events, text)
	if wasActive {
		events = append(events, Event{Type: EventStatus, Connected: false})
	}
	m.mu.Unlock()

	if wasActive {
		if err := m.transport.Close(CloseNormalClosure, "User disconnected"); err != nil {
			m.logger.Debug("close transport", "error", err)
		}
	}
	m.logger.Info("disconnected", "reason", text)

	m.emit(events)
}

// Close permanently shuts the manager down. Connect is a no-op afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	m.disconnect("manager closed")

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	return nil
}

// Send writes a text message to the endpoint.
func (m *Manager) Send(text string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.state != StateConnected {
		m.mu.Unlock()
		return ErrNotConnected
	}
	m.mu.Unlock()

	if err := m.transport.Send(text); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	m.mu.Lock()
	events := m.appendLocked(nil, "sent: "+m.preview(text))
	m.mu.Unlock()
	m.emit(events)

	return nil
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempts returns the number of automatic retries used since the last
// successful or manual connect.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// MaxAttempts returns the retry budget.
func (m *Manager) MaxAttempts() int {
	return m.cfg.MaxReconnectAttempts
}

// RetryPending reports whether a retry timer is armed.
func (m *Manager) RetryPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retryTimer != nil
}

// SessionID returns the ID of the most recent connection attempt.
func (m *Manager) SessionID() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Entries returns the rolling log, oldest first.
func (m *Manager) Entries() []LogEntry {
	return m.entries.Snapshot()
}

// URL returns the endpoint URL.
func (m *Manager) URL() string {
	return m.cfg.URL
}

func (m *Manager) handleOpen(gen uint64) {
	m.mu.Lock()
	if m.gen != gen || m.state != StateConnecting {
		m.mu.Unlock()
		return
	}
	m.attempts = 0
	m.state = StateConnected

	var events []Event
	events = m.appendLocked(events, "connected")
	events = append(events, Event{Type: EventStatus, Connected: true})
	sessionID := m.sessionID
	m.mu.Unlock()

	m.logger.Info("connected", "session_id", sessionID)
	m.emit(events)
}

func (m *Manager) handleMessage(gen uint64, data string) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	events := m.appendLocked(nil, "received: "+m.preview(data))
	m.mu.Unlock()

	m.emit(events)
}

func (m *Manager) handleClose(gen uint64, code int, reason string) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.state = StateDisconnected

	var events []Event
	events = m.appendLocked(events, fmt.Sprintf("closed (code: %d)", code))
	events = append(events, Event{Type: EventStatus, Connected: false})

	retry := code != CloseNormalClosure && m.attempts < m.cfg.MaxReconnectAttempts && !m.closed
	if retry {
		m.attempts++
		events = m.appendLocked(events, fmt.Sprintf("reconnecting in %s (attempt %d/%d)",
			m.cfg.ReconnectDelay, m.attempts, m.cfg.MaxReconnectAttempts))
		m.stopRetryLocked()
		seq := m.retrySeq
		m.retryTimer = m.clock.AfterFunc(m.cfg.ReconnectDelay, func() { m.fireRetry(seq) })
	}
	attempts := m.attempts
	m.mu.Unlock()

	m.logger.Info("connection closed",
		"code", code,
		"reason", reason,
		"retry", retry,
		"attempts", attempts,
	)
	if !retry && code != CloseNormalClosure {
		m.logger.Warn("reconnect budget exhausted", "max_attempts", m.cfg.MaxReconnectAttempts)
	}

	m.emit(events)
}

func (m *Manager) handleError(gen uint64, err error) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	text := "connection error"
	if err != nil {
		text = err.Error()
	}

	var events []Event
	events = m.appendLocked(events, "connection error: "+text)
	events = append(events, Event{Type: EventError, Text: text})
	m.mu.Unlock()

	m.logger.Warn("connection error", "error", err)
	m.emit(events)
}

// fireRetry runs when the retry timer expires. A timer stopped by
// Disconnect or a manual Connect may still fire; seq filters it out.
func (m *Manager) fireRetry(seq uint64) {
	m.mu.Lock()
	if m.retryTimer == nil || m.retrySeq != seq {
		m.mu.Unlock()
		return
	}
	m.retryTimer = nil
	m.mu.Unlock()

	m.connect(false)
}

// stopRetryLocked cancels a pending retry timer. Must be called with mu held.
func (m *Manager) stopRetryLocked() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	m.retrySeq++
}

// appendLocked records a log entry and queues its event. Must be called with mu held.
func (m *Manager) appendLocked(events []Event, text string) []Event {
	entry := LogEntry{Time: m.clock.Now(), Text: text}
	m.entries.Push(entry)
	return append(events, Event{Type: EventLog, Entry: entry})
}

// preview truncates s to PreviewLength runes, marking the cut with "...".
func (m *Manager) preview(s string) string {
	return Truncate(s, m.cfg.PreviewLength)
}

func (m *Manager) emit(events []Event) {
	for _, ev := range events {
		m.listener.HandleEvent(ev)
	}
}

// Truncate shortens s to at most n runes followed by "..." when it is longer.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// attempt binds transport callbacks to one connection attempt.
type attempt struct {
	m   *Manager
	gen uint64
}

func (a *attempt) OnOpen()                         { a.m.handleOpen(a.gen) }
func (a *attempt) OnMessage(data string)           { a.m.handleMessage(a.gen, data) }
func (a *attempt) OnClose(code int, reason string) { a.m.handleClose(a.gen, code, reason) }
func (a *attempt) OnError(err error)               { a.m.handleError(a.gen, err) }
