package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jordanhubbard/mtcore/internal/app"
)

var version = "dev"

// runHealthCheck performs an HTTP health check against the given address,
// mirroring the teacher's distroless-friendly built-in healthcheck mode
// (no curl in the container image).
func runHealthCheck(addr string) error {
	resp, err := http.Get(fmt.Sprintf("http://localhost%s/healthz", addr))
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "-healthcheck" {
		addr := os.Getenv("MTCORE_LISTEN_ADDR")
		if addr == "" {
			addr = ":8090"
		}
		if err := runHealthCheck(addr); err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}

	log.Printf("mtcore version %s", version)
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	srv, err := app.NewServer(cfg)
	if err != nil {
		log.Fatalf("server init error: %v", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// WriteTimeout is left at zero: the channel's SSE stream
		// (internal/httpapi.ChannelStreamHandler) is long-lived by design.
	}

	go func() {
		log.Printf("mtcore listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Printf("shutting down (draining in-flight requests)...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := srv.Close(); err != nil {
		log.Printf("server close error: %v", err)
	}
	log.Printf("shutdown complete")
}
