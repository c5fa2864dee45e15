package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tiger/voice-gateway/internal/logging"
	"github.com/tiger/voice-gateway/internal/runtime/provider/bootstrap"
	"github.com/tiger/voice-gateway/internal/server"
)

const shutdownGrace = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "vgw-server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("vgw-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("addr", defaultString(os.Getenv("VGW_LISTEN_ADDR"), ":8080"), "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logging.Init()
	log := logging.Sugar()

	catalog, err := bootstrap.BuildCatalog()
	if err != nil {
		return fmt.Errorf("provider bootstrap failed: %w", err)
	}
	_, _ = fmt.Fprintf(stdout, "vgw-server providers:\n%s\n", bootstrap.Summary(catalog))

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server.New(catalog).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("listening", "addr", *addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func defaultString(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
