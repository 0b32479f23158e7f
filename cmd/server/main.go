package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aqureshiest/parse-pdf/internal/gcp"
	"github.com/aqureshiest/parse-pdf/internal/server"
	"github.com/aqureshiest/parse-pdf/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
}

func main() {
	_ = godotenv.Load() // a missing .env is fine
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	parser, err := services.NewParser(ctx)
	if err != nil {
		slog.Error("Critical error during server initialization", "error", err)
		os.Exit(1)
	}
	defer parser.Close()

	srv := &http.Server{
		Addr:              net.JoinHostPort("", gcp.GetEnv("PORT", "8000")),
		Handler:           server.New(parser),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server listening.", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server stopped unexpectedly", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
