// brainstub is a local development endpoint for brainlink.
//
// It echoes every text message back. Two commands change its behaviour:
//
//	close <code> [reason]  - close the connection with that close code
//	drop                   - drop the TCP connection without a close frame
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	var addr string
	root := &cobra.Command{
		Use:          "brainstub",
		Short:        "Echo WebSocket endpoint for local brainlink development",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), addr)
		},
	}
	root.Flags().StringVar(&addr, "addr", ":8089", "listen address")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(parent context.Context, addr string) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/ws", newStubHandler(logger))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("brainstub listening", "addr", addr, "url", "ws://localhost"+addr+"/ws")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
