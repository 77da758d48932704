package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"mediaconv/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// Serve exposes handler at /metrics on bind until ctx is done. A listener
// error is returned; a clean shutdown returns nil.
func Serve(ctx context.Context, bind string, handler http.Handler, logger *slog.Logger) error {
	logger = logging.NewComponentLogger(logger, "metrics")

	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("metrics listen %s: %w", bind, err)
	}
	return serve(ctx, listener, handler, logger)
}

func serve(ctx context.Context, listener net.Listener, handler http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics endpoint listening", logging.String("address", listener.Addr().String()))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown error", logging.Error(err))
	}
	<-errCh
	logger.Debug("metrics endpoint stopped")
	return nil
}
