package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/ymzhao891/medichat/internal/adapter/analysis"
	"github.com/ymzhao891/medichat/internal/config"
	"github.com/ymzhao891/medichat/internal/hub"
	"github.com/ymzhao891/medichat/internal/identity"
	"github.com/ymzhao891/medichat/internal/policy"
	"github.com/ymzhao891/medichat/internal/service"
	"github.com/ymzhao891/medichat/internal/store"
	transporthttp "github.com/ymzhao891/medichat/internal/transport/http"
	"github.com/ymzhao891/medichat/internal/ws"
)

func main() {
	cfg := config.Load()

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	slog.Info("starting consultation service",
		"http_port", cfg.HTTPPort,
		"database", cfg.DatabasePath)

	st, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	connectionHub := hub.NewHub()
	go connectionHub.Run()

	var analyzer service.Analyzer
	if cfg.AnalysisURL != "" {
		analyzer = analysis.NewClient(cfg.AnalysisURL, cfg.AnalysisTimeout)
		slog.Info("using remote analyzer", "url", cfg.AnalysisURL)
	} else {
		analyzer = analysis.NewStatic()
		slog.Info("using static analyzer")
	}

	svc := service.New(st, connectionHub, analyzer, cfg.AnalysisTimeout)

	verifier := identity.NewJWTVerifier(cfg.JWTSecret)

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		slog.Error("failed to prepare access policy", "error", err)
		os.Exit(1)
	}

	wsServer := ws.NewServer(cfg, connectionHub, svc, verifier)
	e := transporthttp.NewServer(svc, engine, verifier, wsServer)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("server started", "port", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown gracefully", "error", err)
	}

	slog.Info("stopped")
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
