package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/version"
)

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

func printStartupBanner(cfg *config.Config) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "modelgate %s - LLM Gateway\n", version.Version)
	fmt.Fprintln(os.Stderr, "════════════════════════════════════════════════")
	fmt.Fprintf(os.Stderr, "Chat API:     http://localhost%s/v1/chat/completions\n", cfg.ServerPort)
	fmt.Fprintf(os.Stderr, "Pass-through: http://localhost%s/passthrough/{provider}/...\n", cfg.ServerPort)
	fmt.Fprintf(os.Stderr, "Admin API:    http://localhost%s/api/admin/\n", cfg.ServerPort)
	fmt.Fprintf(os.Stderr, "Metrics:      http://localhost%s/metrics\n", cfg.ServerPort)
	fmt.Fprintf(os.Stderr, "Data:         %s\n", config.DataDir())
	fmt.Fprintln(os.Stderr, "════════════════════════════════════════════════")
	fmt.Fprintf(os.Stderr, "\n")
}
