package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is a full-duplex message channel to the remote endpoint.
type Transport interface {
	// Open starts a connection attempt and returns immediately. An error is
	// returned only when the attempt cannot start at all; dial failures are
	// reported to h as OnError followed by OnClose(CloseAbnormalClosure).
	Open(ctx context.Context, rawURL string, h TransportHandler) error

	// Send writes a text message.
	Send(data string) error

	// Close sends a close frame with the given code and reason, then closes
	// the connection. No further events are delivered after Close.
	Close(code int, reason string) error
}

// TransportHandler receives transport events.
type TransportHandler interface {
	OnOpen()
	OnMessage(data string)
	OnClose(code int, reason string)
	OnError(err error)
}

// WSTransport implements Transport over gorilla/websocket.
type WSTransport struct {
	cfg    TransportConfig
	logger *slog.Logger

	// Write serialization
	writeMu sync.Mutex

	// State
	mu      sync.Mutex
	conn    *websocket.Conn
	handler TransportHandler
	cancel  context.CancelFunc
	done    chan struct{}
	open    bool // between Open and Close/remote close
}

// NewWSTransport creates a new WebSocket transport.
func NewWSTransport(cfg TransportConfig, logger *slog.Logger) *WSTransport {
	if logger == nil {
		logger = slog.Default()
	}

	return &WSTransport{
		cfg:    cfg,
		logger: logger,
	}
}

// ValidateURL checks that rawURL is an absolute ws:// or wss:// URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: scheme %q is not ws or wss", ErrInvalidEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidEndpoint)
	}
	return nil
}

// Open validates the URL and dials in the background.
func (t *WSTransport) Open(ctx context.Context, rawURL string, h TransportHandler) error {
	if err := ValidateURL(rawURL); err != nil {
		return err
	}

	t.mu.Lock()
	if t.open {
		t.mu.Unlock()
		return ErrAlreadyOpen
	}
	dialCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.open = true
	t.handler = h
	t.cancel = cancel
	t.done = done
	t.conn = nil
	t.mu.Unlock()

	go t.dial(dialCtx, rawURL, h, done)

	return nil
}

// dial establishes the connection and starts the read and ping loops.
func (t *WSTransport) dial(ctx context.Context, rawURL string, h TransportHandler, done chan struct{}) {
	// Build headers
	header := http.Header{}
	if t.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+t.cfg.Token)
	}
	if t.cfg.UserAgent != "" {
		header.Set("User-Agent", t.cfg.UserAgent)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: t.cfg.HandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}

	conn, _, err := dialer.DialContext(ctx, rawURL, header)
	if err != nil {
		if !t.release(done) {
			return
		}
		h.OnError(fmt.Errorf("dial: %w", err))
		h.OnClose(CloseAbnormalClosure, "")
		return
	}

	t.mu.Lock()
	if t.done != done || !t.open {
		// Closed while dialing
		t.mu.Unlock()
		conn.Close()
		return
	}
	t.conn = conn
	t.mu.Unlock()

	t.logger.Debug("websocket connected", "url", rawURL)
	h.OnOpen()

	go t.readLoop(conn, h, done)
	if t.cfg.PingInterval > 0 {
		go t.pingLoop(conn, done)
	}
}

// release marks the current attempt finished. Returns false if it was
// already released by Close, in which case no events may be delivered.
func (t *WSTransport) release(done chan struct{}) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done != done || !t.open {
		return false
	}
	t.open = false
	t.conn = nil
	t.handler = nil
	if t.cancel != nil {
		t.cancel()
	}
	close(done)
	return true
}

// Send writes a text message.
func (t *WSTransport) Send(data string) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, []byte(data))
}

// Close sends a close frame and closes the connection.
func (t *WSTransport) Close(code int, reason string) error {
	t.mu.Lock()
	if !t.open {
		t.mu.Unlock()
		return nil
	}
	conn := t.conn
	done := t.done
	t.mu.Unlock()

	if !t.release(done) {
		return nil
	}

	if conn == nil {
		// Still dialing; cancelling the dial context is enough
		return nil
	}

	t.writeMu.Lock()
	err := conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(t.cfg.WriteTimeout),
	)
	t.writeMu.Unlock()
	if err != nil {
		t.logger.Debug("failed to send close frame", "error", err)
	}

	return conn.Close()
}

// readLoop delivers inbound messages until the connection ends.
func (t *WSTransport) readLoop(conn *websocket.Conn, h TransportHandler, done chan struct{}) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !t.release(done) {
				// Close() already ran; stay silent
				return
			}
			conn.Close()

			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				h.OnClose(closeErr.Code, closeErr.Text)
				return
			}
			h.OnError(err)
			h.OnClose(CloseAbnormalClosure, "")
			return
		}

		select {
		case <-done:
			return
		default:
		}

		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		h.OnMessage(string(data))
	}
}

// pingLoop keeps the connection alive.
func (t *WSTransport) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(t.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			t.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), time.Now().Add(t.cfg.WriteTimeout))
			t.writeMu.Unlock()
			if err != nil {
				t.logger.Debug("failed to send ping", "error", err)
			}
		}
	}
}
