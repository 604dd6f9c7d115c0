package connection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeTransport records calls and hands its handlers back to the test.
type fakeTransport struct {
	mu       sync.Mutex
	openErr  error
	sendErr  error
	handlers []TransportHandler
	closes   []closeInfo
	sent     []string
}

func (f *fakeTransport) Open(ctx context.Context, rawURL string, h TransportHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.handlers = append(f.handlers, h)
	return nil
}

func (f *fakeTransport) Send(data string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeTransport) Close(code int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes = append(f.closes, closeInfo{code, reason})
	return nil
}

func (f *fakeTransport) opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func (f *fakeTransport) last(t *testing.T) TransportHandler {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.handlers) == 0 {
		t.Fatal("transport was never opened")
	}
	return f.handlers[len(f.handlers)-1]
}

// fakeClock fires timers only when the test asks it to.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// pending returns timers that are neither stopped nor fired.
func (c *fakeClock) pending() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

func (c *fakeClock) created() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// fireAll runs every pending timer.
func (c *fakeClock) fireAll() int {
	pending := c.pending()
	for _, t := range pending {
		c.mu.Lock()
		t.fired = true
		c.mu.Unlock()
		t.f()
	}
	return len(pending)
}

// eventRecorder collects listener events.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) HandleEvent(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) ofType(typ EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type testManager struct {
	*Manager
	transport *fakeTransport
	clock     *fakeClock
	events    *eventRecorder
}

func newTestManager(t *testing.T) *testManager {
	t.Helper()
	tr := &fakeTransport{}
	clock := newFakeClock()
	rec := &eventRecorder{}
	m := NewManager(DefaultManagerConfig(), tr, WithClock(clock), WithListener(rec))
	return &testManager{Manager: m, transport: tr, clock: clock, events: rec}
}

func logTexts(m *Manager) []string {
	entries := m.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

func lastLog(t *testing.T, m *Manager) string {
	t.Helper()
	entries := m.Entries()
	if len(entries) == 0 {
		t.Fatal("log is empty")
	}
	return entries[len(entries)-1].Text
}

func containsEntry(texts []string, want string) bool {
	for _, s := range texts {
		if strings.Contains(s, want) {
			return true
		}
	}
	return false
}

func TestManager_InitialState(t *testing.T) {
	tm := newTestManager(t)

	if tm.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", tm.State())
	}
	if tm.Attempts() != 0 {
		t.Errorf("Attempts() = %d, want 0", tm.Attempts())
	}
	if len(tm.Entries()) != 0 {
		t.Errorf("Entries() = %v, want empty", tm.Entries())
	}
}

func TestManager_ConnectSuccess(t *testing.T) {
	tm := newTestManager(t)

	tm.Connect()

	if tm.State() != StateConnecting {
		t.Fatalf("State() after Connect = %v, want connecting", tm.State())
	}
	if !strings.HasPrefix(lastLog(t, tm.Manager), "connecting") {
		t.Errorf("last log = %q, want connecting entry", lastLog(t, tm.Manager))
	}

	tm.transport.last(t).OnOpen()

	if tm.State() != StateConnected {
		t.Errorf("State() after open = %v, want connected", tm.State())
	}
	if tm.Attempts() != 0 {
		t.Errorf("Attempts() = %d, want 0", tm.Attempts())
	}
	if lastLog(t, tm.Manager) != "connected" {
		t.Errorf("last log = %q, want %q", lastLog(t, tm.Manager), "connected")
	}

	status := tm.events.ofType(EventStatus)
	if len(status) != 1 || !status[0].Connected {
		t.Errorf("status events = %+v, want one connected=true", status)
	}
}

func TestManager_ConnectIdempotent(t *testing.T) {
	tm := newTestManager(t)

	tm.Connect()
	tm.Connect()
	if tm.transport.opens() != 1 {
		t.Errorf("opens while connecting = %d, want 1", tm.transport.opens())
	}

	tm.transport.last(t).OnOpen()
	tm.Connect()
	if tm.transport.opens() != 1 {
		t.Errorf("opens while connected = %d, want 1", tm.transport.opens())
	}
}

func TestManager_OpenFailure(t *testing.T) {
	tm := newTestManager(t)
	tm.transport.openErr = fmt.Errorf("%w: scheme \"http\" is not ws or wss", ErrInvalidEndpoint)

	tm.Connect()

	if tm.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", tm.State())
	}
	if !strings.HasPrefix(lastLog(t, tm.Manager), "failed to connect: invalid endpoint url") {
		t.Errorf("last log = %q, want failed to connect entry", lastLog(t, tm.Manager))
	}

	errs := tm.events.ofType(EventError)
	if len(errs) != 1 {
		t.Fatalf("error events = %d, want 1", len(errs))
	}
	if !strings.Contains(errs[0].Text, "invalid endpoint url") {
		t.Errorf("error text = %q, want reason", errs[0].Text)
	}
	if len(tm.clock.pending()) != 0 {
		t.Error("open failure must not schedule a retry")
	}
}

func TestManager_AbnormalCloseSchedulesRetry(t *testing.T) {
	tm := newTestManager(t)

	tm.Connect()
	tm.transport.last(t).OnOpen()
	tm.transport.last(t).OnClose(1006, "")

	texts := logTexts(tm.Manager)
	for _, want := range []string{
		"connecting",
		"connected",
		"closed (code: 1006)",
		"reconnecting in 3s (attempt 1/5)",
	} {
		if !containsEntry(texts, want) {
			t.Errorf("log %v missing %q", texts, want)
		}
	}

	pending := tm.clock.pending()
	if len(pending) != 1 {
		t.Fatalf("pending timers = %d, want 1", len(pending))
	}
	if pending[0].d != 3000*time.Millisecond {
		t.Errorf("retry delay = %v, want 3s", pending[0].d)
	}
	if tm.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", tm.State())
	}

	status := tm.events.ofType(EventStatus)
	if len(status) != 2 || status[1].Connected {
		t.Errorf("status events = %+v, want connected then disconnected", status)
	}

	// Timer fires into Connect
	tm.clock.fireAll()
	if tm.transport.opens() != 2 {
		t.Errorf("opens after retry = %d, want 2", tm.transport.opens())
	}
	if tm.State() != StateConnecting {
		t.Errorf("State() after retry = %v, want connecting", tm.State())
	}
}

func TestManager_CleanCloseNeverRetries(t *testing.T) {
	tests := []struct {
		name          string
		abnormalFirst int
	}{
		{name: "fresh budget", abnormalFirst: 0},
		{name: "partly used budget", abnormalFirst: 2},
		{name: "exhausted budget", abnormalFirst: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := newTestManager(t)
			tm.Connect()

			for i := 0; i < tt.abnormalFirst; i++ {
				tm.transport.last(t).OnClose(1006, "")
				tm.clock.fireAll()
			}

			created := tm.clock.created()
			tm.transport.last(t).OnClose(CloseNormalClosure, "")

			if tm.clock.created() != created {
				t.Error("clean close scheduled a retry timer")
			}
			if len(tm.clock.pending()) != 0 {
				t.Error("timers still pending after clean close")
			}
			if tm.State() != StateDisconnected {
				t.Errorf("State() = %v, want disconnected", tm.State())
			}
		})
	}
}

func TestManager_RetryBudget(t *testing.T) {
	tm := newTestManager(t)
	tm.Connect()

	for n := 1; n <= DefaultMaxReconnectAttempts; n++ {
		tm.transport.last(t).OnClose(1006, "")

		if tm.Attempts() != n {
			t.Fatalf("after %d abnormal closes Attempts() = %d", n, tm.Attempts())
		}
		if tm.clock.created() != n {
			t.Fatalf("after %d abnormal closes timers created = %d", n, tm.clock.created())
		}
		pending := tm.clock.pending()
		if len(pending) != 1 || pending[0].d != 3*time.Second {
			t.Fatalf("after %d abnormal closes pending = %d", n, len(pending))
		}
		want := fmt.Sprintf("reconnecting in 3s (attempt %d/5)", n)
		if lastLog(t, tm.Manager) != want {
			t.Errorf("last log = %q, want %q", lastLog(t, tm.Manager), want)
		}

		tm.clock.fireAll()
		if tm.transport.opens() != n+1 {
			t.Fatalf("opens after retry %d = %d, want %d", n, tm.transport.opens(), n+1)
		}
	}

	// Sixth abnormal close: budget exhausted
	tm.transport.last(t).OnClose(1006, "")

	if tm.clock.created() != DefaultMaxReconnectAttempts {
		t.Errorf("timers created = %d, want %d", tm.clock.created(), DefaultMaxReconnectAttempts)
	}
	if len(tm.clock.pending()) != 0 {
		t.Error("retry scheduled after budget exhausted")
	}
	if tm.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", tm.State())
	}
	if lastLog(t, tm.Manager) != "closed (code: 1006)" {
		t.Errorf("last log = %q, want close entry", lastLog(t, tm.Manager))
	}

	// Manual connect re-enables the budget
	opens := tm.transport.opens()
	tm.Connect()
	if tm.transport.opens() != opens+1 {
		t.Errorf("manual Connect did not open transport")
	}
	if tm.Attempts() != 0 {
		t.Errorf("Attempts() after manual Connect = %d, want 0", tm.Attempts())
	}

	tm.transport.last(t).OnClose(1006, "")
	if len(tm.clock.pending()) != 1 {
		t.Error("retry not scheduled after manual reconnect reset the budget")
	}
}

func TestManager_SuccessfulOpenResetsAttempts(t *testing.T) {
	tm := newTestManager(t)
	tm.Connect()

	for i := 0; i < 3; i++ {
		tm.transport.last(t).OnClose(1006, "")
		tm.clock.fireAll()
	}
	if tm.Attempts() != 3 {
		t.Fatalf("Attempts() = %d, want 3", tm.Attempts())
	}

	tm.transport.last(t).OnOpen()

	if tm.State() != StateConnected {
		t.Errorf("State() = %v, want connected", tm.State())
	}
	if tm.Attempts() != 0 {
		t.Errorf("Attempts() = %d, want 0", tm.Attempts())
	}
}

func TestManager_DisconnectFromEveryState(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(tm *testManager)
		wantClose bool
	}{
		{
			name:  "disconnected",
			setup: func(tm *testManager) {},
		},
		{
			name:      "connecting",
			setup:     func(tm *testManager) { tm.Connect() },
			wantClose: true,
		},
		{
			name: "connected",
			setup: func(tm *testManager) {
				tm.Connect()
				tm.transport.handlers[0].OnOpen()
			},
			wantClose: true,
		},
		{
			name: "retry pending",
			setup: func(tm *testManager) {
				tm.Connect()
				tm.transport.handlers[0].OnClose(1006, "")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := newTestManager(t)
			tt.setup(tm)

			tm.Disconnect()

			if tm.State() != StateDisconnected {
				t.Errorf("State() = %v, want disconnected", tm.State())
			}
			if lastLog(t, tm.Manager) != "disconnected by user" {
				t.Errorf("last log = %q, want %q", lastLog(t, tm.Manager), "disconnected by user")
			}
			if len(tm.clock.pending()) != 0 {
				t.Error("retry timer still pending after Disconnect")
			}

			gotClose := len(tm.transport.closes) > 0
			if gotClose != tt.wantClose {
				t.Errorf("transport closed = %v, want %v", gotClose, tt.wantClose)
			}
			if gotClose {
				c := tm.transport.closes[0]
				if c.code != CloseNormalClosure || c.reason != "User disconnected" {
					t.Errorf("close = %+v, want 1000 \"User disconnected\"", c)
				}
			}
		})
	}
}

func TestManager_DisconnectSuppressesInFlightRetry(t *testing.T) {
	tm := newTestManager(t)
	tm.Connect()
	tm.transport.last(t).OnClose(1006, "")

	pending := tm.clock.pending()
	if len(pending) != 1 {
		t.Fatalf("pending timers = %d, want 1", len(pending))
	}

	tm.Disconnect()

	// The timer callback may already be running when Disconnect stops it
	pending[0].f()

	if tm.transport.opens() != 1 {
		t.Errorf("opens = %d, want 1 (retry must not reconnect after Disconnect)", tm.transport.opens())
	}
	if tm.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", tm.State())
	}
	if tm.Attempts() != DefaultMaxReconnectAttempts {
		t.Errorf("Attempts() = %d, want %d", tm.Attempts(), DefaultMaxReconnectAttempts)
	}
}

func TestManager_DisconnectWhileConnectingIgnoresLateOpen(t *testing.T) {
	tm := newTestManager(t)
	tm.Connect()
	h := tm.transport.last(t)

	tm.Disconnect()
	h.OnOpen()
	h.OnClose(CloseNormalClosure, "")

	if tm.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", tm.State())
	}
	if lastLog(t, tm.Manager) != "disconnected by user" {
		t.Errorf("last log = %q, want disconnect entry", lastLog(t, tm.Manager))
	}
	for _, ev := range tm.events.ofType(EventStatus) {
		if ev.Connected {
			t.Error("late open produced a connected status event")
		}
	}
}

func TestManager_ManualConnectCancelsPendingRetry(t *testing.T) {
	tm := newTestManager(t)
	tm.Connect()
	tm.transport.last(t).OnClose(1006, "")

	tm.Connect()

	if tm.transport.opens() != 2 {
		t.Errorf("opens = %d, want 2", tm.transport.opens())
	}
	if len(tm.clock.pending()) != 0 {
		t.Error("pending retry should be cancelled by manual Connect")
	}
	if tm.Attempts() != 0 {
		t.Errorf("Attempts() = %d, want 0", tm.Attempts())
	}
}

func TestManager_InboundMessagePreview(t *testing.T) {
	long := strings.Repeat("a", 60)
	unicode := strings.Repeat("é", 51)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "short", in: "hello", want: "received: hello"},
		{name: "exactly 50", in: strings.Repeat("b", 50), want: "received: " + strings.Repeat("b", 50)},
		{name: "long", in: long, want: "received: " + strings.Repeat("a", 50) + "..."},
		{name: "multibyte", in: unicode, want: "received: " + strings.Repeat("é", 50) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := newTestManager(t)
			tm.Connect()
			tm.transport.last(t).OnOpen()

			tm.transport.last(t).OnMessage(tt.in)

			if got := lastLog(t, tm.Manager); got != tt.want {
				t.Errorf("last log = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestManager_ErrorDoesNotChangeState(t *testing.T) {
	tm := newTestManager(t)
	tm.Connect()
	tm.transport.last(t).OnOpen()

	tm.transport.last(t).OnError(errors.New("boom"))

	if tm.State() != StateConnected {
		t.Errorf("State() = %v, want connected", tm.State())
	}
	if lastLog(t, tm.Manager) != "connection error: boom" {
		t.Errorf("last log = %q, want %q", lastLog(t, tm.Manager), "connection error: boom")
	}

	errs := tm.events.ofType(EventError)
	if len(errs) != 1 || errs[0].Text != "boom" {
		t.Errorf("error events = %+v, want one with text boom", errs)
	}
}

func TestManager_LogCapacity(t *testing.T) {
	tm := newTestManager(t)

	// 25 events: connecting, connected, 23 messages
	tm.Connect()
	tm.transport.last(t).OnOpen()
	for i := 0; i < 23; i++ {
		tm.transport.last(t).OnMessage(fmt.Sprintf("msg-%02d", i))
	}

	texts := logTexts(tm.Manager)
	if len(texts) != DefaultLogCapacity {
		t.Fatalf("log length = %d, want %d", len(texts), DefaultLogCapacity)
	}

	// connecting, connected, msg-00..msg-02 evicted
	if texts[0] != "received: msg-03" {
		t.Errorf("oldest entry = %q, want %q", texts[0], "received: msg-03")
	}
	if texts[len(texts)-1] != "received: msg-22" {
		t.Errorf("newest entry = %q, want %q", texts[len(texts)-1], "received: msg-22")
	}

	if logs := tm.events.ofType(EventLog); len(logs) != 25 {
		t.Errorf("log events = %d, want 25", len(logs))
	}
}

func TestManager_StaleTransportEventsIgnored(t *testing.T) {
	tm := newTestManager(t)
	tm.Connect()
	first := tm.transport.last(t)

	first.OnClose(1006, "")
	tm.clock.fireAll()
	second := tm.transport.last(t)
	if first == second {
		t.Fatal("retry reused the same handler")
	}

	first.OnMessage("late")
	first.OnClose(1006, "")

	if containsEntry(logTexts(tm.Manager), "late") {
		t.Error("message from a previous attempt was logged")
	}
	if tm.Attempts() != 1 {
		t.Errorf("Attempts() = %d, want 1", tm.Attempts())
	}
	if tm.State() != StateConnecting {
		t.Errorf("State() = %v, want connecting", tm.State())
	}

	second.OnOpen()
	if tm.State() != StateConnected {
		t.Errorf("State() = %v, want connected", tm.State())
	}
}

func TestManager_Send(t *testing.T) {
	tm := newTestManager(t)

	if err := tm.Send("hi"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send while disconnected = %v, want ErrNotConnected", err)
	}

	tm.Connect()
	tm.transport.last(t).OnOpen()

	if err := tm.Send("hello brain"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(tm.transport.sent) != 1 || tm.transport.sent[0] != "hello brain" {
		t.Errorf("sent = %v, want [hello brain]", tm.transport.sent)
	}
	if lastLog(t, tm.Manager) != "sent: hello brain" {
		t.Errorf("last log = %q, want %q", lastLog(t, tm.Manager), "sent: hello brain")
	}

	tm.transport.sendErr = errors.New("broken pipe")
	if err := tm.Send("again"); err == nil {
		t.Error("expected send error")
	}
}

func TestManager_Close(t *testing.T) {
	tm := newTestManager(t)
	tm.Connect()
	tm.transport.last(t).OnOpen()

	if err := tm.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := tm.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	if tm.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", tm.State())
	}

	tm.Connect()
	if tm.transport.opens() != 1 {
		t.Errorf("Connect after Close opened transport")
	}
	if err := tm.Send("x"); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
}

func TestManager_SessionIDPerAttempt(t *testing.T) {
	tm := newTestManager(t)

	tm.Connect()
	first := tm.SessionID()
	tm.transport.last(t).OnClose(1006, "")
	tm.clock.fireAll()
	second := tm.SessionID()

	if first == second {
		t.Error("each connection attempt should get a new session ID")
	}
}

func TestManager_ReconnectsOverWebSocket(t *testing.T) {
	var mu sync.Mutex
	connCount := 0

	server := mockWSServer(t, func(conn *websocket.Conn) {
		mu.Lock()
		connCount++
		id := connCount
		mu.Unlock()

		if id == 1 {
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "oops"),
				time.Now().Add(time.Second),
			)
			conn.ReadMessage()
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte("welcome back"))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	connected := make(chan struct{}, 4)
	listener := ListenerFunc(func(ev Event) {
		if ev.Type == EventStatus && ev.Connected {
			connected <- struct{}{}
		}
	})

	cfg := DefaultManagerConfig()
	cfg.URL = wsURL(server)
	cfg.ReconnectDelay = 50 * time.Millisecond

	mgr := NewManager(cfg, NewWSTransport(testTransportConfig(), nil), WithListener(listener))
	defer mgr.Close()

	mgr.Connect()

	for i := 0; i < 2; i++ {
		select {
		case <-connected:
		case <-time.After(3 * time.Second):
			t.Fatalf("timeout waiting for connection %d", i+1)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for !containsEntry(logTexts(mgr), "received: welcome back") {
		if time.Now().After(deadline) {
			t.Fatalf("log %v missing welcome message", logTexts(mgr))
		}
		time.Sleep(10 * time.Millisecond)
	}

	texts := logTexts(mgr)
	if !containsEntry(texts, "closed (code: 1011)") {
		t.Errorf("log %v missing close entry", texts)
	}
	if !containsEntry(texts, "reconnecting in 50ms (attempt 1/5)") {
		t.Errorf("log %v missing reconnect entry", texts)
	}
	if mgr.Attempts() != 0 {
		t.Errorf("Attempts() = %d, want 0 after successful reconnect", mgr.Attempts())
	}
}

func TestTypes(t *testing.T) {
	states := map[State]string{
		StateDisconnected: "disconnected",
		StateConnecting:   "connecting",
		StateConnected:    "connected",
		State(42):         "unknown",
	}
	for s, want := range states {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", s, s.String(), want)
		}
	}

	entry := LogEntry{Time: time.Date(2024, 1, 15, 9, 5, 3, 0, time.UTC), Text: "connected"}
	if entry.String() != "[09:05:03] connected" {
		t.Errorf("LogEntry.String() = %q", entry.String())
	}

	if got := Truncate("abc", 2); got != "ab..." {
		t.Errorf("Truncate = %q, want %q", got, "ab...")
	}
}

func TestMultiListener(t *testing.T) {
	a, b := &eventRecorder{}, &eventRecorder{}
	ml := MultiListener{a, nil, b}

	ml.HandleEvent(Event{Type: EventError, Text: "x"})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("fan-out counts = %d, %d, want 1, 1", len(a.events), len(b.events))
	}
}

func TestDefaultConfigs(t *testing.T) {
	mgrCfg := DefaultManagerConfig()
	if mgrCfg.MaxReconnectAttempts != 5 {
		t.Errorf("MaxReconnectAttempts = %d, want 5", mgrCfg.MaxReconnectAttempts)
	}
	if mgrCfg.ReconnectDelay != 3*time.Second {
		t.Errorf("ReconnectDelay = %v, want 3s", mgrCfg.ReconnectDelay)
	}
	if mgrCfg.LogCapacity != 20 {
		t.Errorf("LogCapacity = %d, want 20", mgrCfg.LogCapacity)
	}

	trCfg := DefaultTransportConfig()
	if trCfg.HandshakeTimeout != 10*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 10s", trCfg.HandshakeTimeout)
	}
}
