package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/brainlink/internal/config"
	"github.com/rickgao/brainlink/internal/connection"
	"github.com/rickgao/brainlink/internal/database"
	"github.com/rickgao/brainlink/internal/journal"
	"github.com/rickgao/brainlink/internal/status"
	"github.com/rickgao/brainlink/internal/version"
)

func connectCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect and stay connected until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(cmd.Context(), configPath, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file (defaults apply when empty)")
	return cmd
}

func runConnect(parent context.Context, configPath string, in io.Reader, out io.Writer) error {
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting brainlink",
		"version", version.Version,
		"commit", version.Commit,
		"url", cfg.Endpoint.URL,
	)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listeners := connection.MultiListener{newRenderer(out)}

	// Journal is optional
	sessions := &sessionRef{}
	if cfg.Journal.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Journal.Database.Host,
			"port", cfg.Journal.Database.Port,
			"database", cfg.Journal.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Journal.Database)
		if err != nil {
			return fmt.Errorf("connect journal database: %w", err)
		}
		defer pool.Close()

		writer := journal.NewWriter(journal.Config{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
		}, pool, sessions, logger)
		if err := writer.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure journal schema: %w", err)
		}
		if err := writer.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			writer.Stop(shutdownCtx)
		}()
		listeners = append(listeners, writer)
	}

	transport := connection.NewWSTransport(transportConfig(cfg), logger)
	mgr := connection.NewManager(managerConfig(cfg), transport,
		connection.WithListener(listeners),
		connection.WithLogger(logger),
	)
	sessions.set(mgr)
	defer mgr.Close()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Status.Addr != "" {
		server := &http.Server{
			Addr:              cfg.Status.Addr,
			Handler:           status.NewHandler(mgr, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("starting status server", "addr", cfg.Status.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	// stdin lines go out as messages
	go pumpInput(gctx, in, mgr, logger)

	mgr.Connect()

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		mgr.Disconnect()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("brainlink stopped")
	return nil
}

// managerConfig maps loaded config onto the manager's settings.
func managerConfig(cfg *config.Config) connection.ManagerConfig {
	mc := connection.DefaultManagerConfig()
	mc.URL = cfg.Endpoint.URL
	if cfg.Reconnect.MaxAttempts != nil {
		mc.MaxReconnectAttempts = *cfg.Reconnect.MaxAttempts
	}
	if cfg.Reconnect.Delay > 0 {
		mc.ReconnectDelay = cfg.Reconnect.Delay
	}
	if cfg.Log.Capacity > 0 {
		mc.LogCapacity = cfg.Log.Capacity
	}
	if cfg.Log.PreviewLength > 0 {
		mc.PreviewLength = cfg.Log.PreviewLength
	}
	return mc
}

func transportConfig(cfg *config.Config) connection.TransportConfig {
	tc := connection.DefaultTransportConfig()
	tc.Token = cfg.Endpoint.Token
	tc.UserAgent = version.UserAgent()
	if cfg.Endpoint.HandshakeTimeout > 0 {
		tc.HandshakeTimeout = cfg.Endpoint.HandshakeTimeout
	}
	if cfg.Endpoint.WriteTimeout > 0 {
		tc.WriteTimeout = cfg.Endpoint.WriteTimeout
	}
	if cfg.Endpoint.PingInterval > 0 {
		tc.PingInterval = cfg.Endpoint.PingInterval
	}
	return tc
}

type sender interface {
	Send(text string) error
}

// pumpInput sends each non-empty input line until ctx ends or input closes.
func pumpInput(ctx context.Context, in io.Reader, s sender, logger *slog.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := s.Send(line); err != nil {
			logger.Warn("message not sent", "error", err)
		}
	}
}

// renderer prints manager events as terminal lines.
type renderer struct {
	mu  sync.Mutex
	out io.Writer
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out}
}

func (r *renderer) HandleEvent(ev connection.Event) {
	line := formatEvent(ev)
	if line == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, line)
}

func formatEvent(ev connection.Event) string {
	switch ev.Type {
	case connection.EventStatus:
		if ev.Connected {
			return "● connected"
		}
		return "○ disconnected"
	case connection.EventError:
		return "! " + ev.Text
	case connection.EventLog:
		return "  " + ev.Entry.String()
	default:
		return ""
	}
}

// sessionRef lets the journal read session IDs from a manager that is
// created after the journal itself.
type sessionRef struct {
	mu  sync.RWMutex
	mgr *connection.Manager
}

func (s *sessionRef) set(m *connection.Manager) {
	s.mu.Lock()
	s.mgr = m
	s.mu.Unlock()
}

func (s *sessionRef) SessionID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mgr == nil {
		return uuid.Nil
	}
	return s.mgr.SessionID()
}
