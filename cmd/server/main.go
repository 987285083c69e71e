package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/expensetrack/splitdesk/internal/client"
	"github.com/expensetrack/splitdesk/internal/config"
	"github.com/expensetrack/splitdesk/internal/server"
	"github.com/expensetrack/splitdesk/pkg/logging"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logger.Level, cfg.Logger.Format)

	upstream := client.New(cfg.Upstream)
	srv := server.New(upstream)

	stop := make(chan struct{})
	srv.StartJanitor(stop)

	// h2c allows HTTP/2 without TLS for UI clients behind a terminating proxy.
	handler := h2c.NewHandler(srv.Handler(), &http2.Server{})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("Server starting",
			"address", cfg.Server.Addr(),
			"upstream", cfg.Upstream.BaseURL,
			"page_size", cfg.Upstream.PageSize,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	close(stop)

	slog.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", "error", err)
		os.Exit(1)
	}
}
