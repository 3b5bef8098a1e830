package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ironsheep/rrn-masker/internal/pipeline"
	"github.com/ironsheep/rrn-masker/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP masking service",
		Long: `Start an HTTP server with an upload page and a masking API.

Endpoints:
  GET  /         upload page
  POST /mask     multipart field "file", answers with the masked PNG
  GET  /health   service and OCR engine status
  GET  /metrics  Prometheus metrics

The PORT environment variable overrides the configured port.

Examples:
  rrn-masker serve
  rrn-masker serve --port 8080
  PORT=3000 rrn-masker serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd.Context(), nil)
		},
	}

	f := cmd.Flags()
	f.StringP("host", "H", "0.0.0.0", "server host")
	f.IntP("port", "p", 8000, "server port")
	f.Int("max-upload-size", 20, "maximum upload size in MB")
	f.Int("timeout", 60, "masking timeout per request in seconds")
	f.Int("shutdown-timeout", 10, "shutdown timeout in seconds")

	_ = a.v.BindPFlag("server.host", f.Lookup("host"))
	_ = a.v.BindPFlag("server.port", f.Lookup("port"))
	_ = a.v.BindPFlag("server.max_upload_mb", f.Lookup("max-upload-size"))
	_ = a.v.BindPFlag("server.timeout_sec", f.Lookup("timeout"))
	_ = a.v.BindPFlag("server.shutdown_timeout", f.Lookup("shutdown-timeout"))

	return cmd
}

// runServe serves until ctx is cancelled, then shuts down gracefully. When
// ready is non-nil it receives the bound address once the listener is open.
func (a *app) runServe(ctx context.Context, ready chan<- string) error {
	cfg := a.cfg

	engine, err := a.startEngine()
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	srv := server.New(server.Config{
		MaxUploadMB: int64(cfg.Server.MaxUploadMB),
		MaxPixels:   cfg.Pipeline.MaxPixels,
		TimeoutSec:  cfg.Server.TimeoutSec,
		Version:     a.build.Version,
	}, pipeline.New(cfg.ToPipelineConfig(), engine), func() any { return engineInfo(engine) })

	ln, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr(), err)
	}

	// Masking can take a while; leave room for it beyond the pipeline timeout.
	ioTimeout := time.Duration(cfg.Server.TimeoutSec+30) * time.Second
	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       ioTimeout,
		WriteTimeout:      ioTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting masking server", "addr", ln.Addr().String(), "version", a.build.Version)
		errCh <- httpServer.Serve(ln)
	}()
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Received shutdown signal, starting graceful shutdown",
			"timeout", fmt.Sprintf("%ds", cfg.Server.ShutdownTimeout))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("failed to shut down: %w", err)
	}
	slog.Info("Graceful shutdown completed")
	return nil
}
