package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/brainlink/internal/connection"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS connection_log (
	id         UUID PRIMARY KEY,
	session_id UUID NOT NULL,
	logged_at  TIMESTAMPTZ NOT NULL,
	kind       TEXT NOT NULL,
	text       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS connection_log_session_idx ON connection_log (session_id, logged_at);
`

const insertSQL = `
	INSERT INTO connection_log (id, session_id, logged_at, kind, text)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO NOTHING
`

// DB is the subset of *pgxpool.Pool the writer uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// SessionSource reports the session the current events belong to.
type SessionSource interface {
	SessionID() uuid.UUID
}

// Config holds writer settings.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: time.Second,
	}
}

// Stats holds writer counters.
type Stats struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
}

// row is one connection_log record.
type row struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	LoggedAt  time.Time
	Kind      string
	Text      string
}

// Writer persists manager events to the connection_log table.
// It implements connection.Listener.
type Writer struct {
	cfg      Config
	db       DB
	sessions SessionSource
	logger   *slog.Logger
	now      func() time.Time

	// Batching
	batch   []row
	batchMu sync.Mutex
	flushCh chan struct{}

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Stats
}

// NewWriter creates a new Writer.
func NewWriter(cfg Config, db DB, sessions SessionSource, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig().FlushInterval
	}
	return &Writer{
		cfg:      cfg,
		db:       db,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
		batch:    make([]row, 0, cfg.BatchSize),
		flushCh:  make(chan struct{}, 1),
		ctx:      context.Background(),
	}
}

// EnsureSchema creates the connection_log table if needed.
func (w *Writer) EnsureSchema(ctx context.Context) error {
	_, err := w.db.Exec(ctx, schemaSQL)
	return err
}

// Start begins the periodic flush loop.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("journal writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop halts the flush loop and writes whatever is left.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping journal writer")

	if w.cancel != nil {
		w.cancel()
	}

	// Wait for goroutines
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("journal writer stop timed out")
	}

	// Final flush on the caller's context; ours is cancelled
	w.flushWith(ctx)

	w.logger.Info("journal writer stopped")
	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() Stats {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// HandleEvent queues an event for the next flush. It never blocks on the database.
func (w *Writer) HandleEvent(ev connection.Event) {
	r, ok := w.transform(ev)
	if !ok {
		return
	}

	w.batchMu.Lock()
	w.batch = append(w.batch, r)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		select {
		case w.flushCh <- struct{}{}:
		default:
		}
	}
}

// transform converts an event into a row.
func (w *Writer) transform(ev connection.Event) (row, bool) {
	r := row{
		ID:       uuid.New(),
		LoggedAt: w.now(),
		Kind:     string(ev.Type),
	}
	if w.sessions != nil {
		r.SessionID = w.sessions.SessionID()
	}

	switch ev.Type {
	case connection.EventLog:
		r.LoggedAt = ev.Entry.Time
		r.Text = ev.Entry.Text
	case connection.EventError:
		r.Text = ev.Text
	case connection.EventStatus:
		r.Text = "disconnected"
		if ev.Connected {
			r.Text = "connected"
		}
	default:
		return row{}, false
	}
	return r, true
}

// flushLoop flushes on the ticker or when a batch fills up.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flushWith(w.ctx)
		case <-w.flushCh:
			w.flushWith(w.ctx)
		}
	}
}

// flushWith writes the current batch to the database.
func (w *Writer) flushWith(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]row, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed journal",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(ctx context.Context, rows []row) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertSQL, r.ID, r.SessionID, r.LoggedAt, r.Kind, r.Text)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
