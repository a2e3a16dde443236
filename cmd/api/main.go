package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelgate/modelgate/internal/adapter"
	"github.com/modelgate/modelgate/internal/adapter/openaicompat"
	"github.com/modelgate/modelgate/internal/adapter/watsonx"
	"github.com/modelgate/modelgate/internal/app"
	"github.com/modelgate/modelgate/internal/cache"
	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/credential"
	"github.com/modelgate/modelgate/internal/forward"
	"github.com/modelgate/modelgate/internal/passthrough"
	"github.com/modelgate/modelgate/internal/storage"
	"github.com/modelgate/modelgate/internal/tokenizer"
	"github.com/modelgate/modelgate/internal/transport/http/handler"
	"github.com/modelgate/modelgate/internal/transport/http/handler/admin"
)

const apiKeyCacheTTL = 5 * time.Minute

func main() {
	logger := setupLogger()

	// Config file with commented examples on first run
	if err := config.EnsureConfigFile(); err != nil {
		logger.Warn("could not create config file", "error", err)
	}
	cfg := config.Load()

	// Storage
	if err := config.EnsureDataDir(); err != nil {
		logger.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}
	store, err := storage.NewSQLiteStorage(config.DBPath())
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// First-time admin password setup
	if err := ensureAdminPassword(store); err != nil {
		logger.Error("admin setup failed", "error", err)
		os.Exit(1)
	}

	// API key cache
	apiKeyCache, err := cache.New[*storage.ClientAPIKey](apiKeyCacheTTL)
	if err != nil {
		logger.Error("failed to create cache", "error", err)
		os.Exit(1)
	}
	defer apiKeyCache.Close()

	// Credential resolver with its own TTL cache
	resolver, err := credential.NewResolver(cfg, store, 0)
	if err != nil {
		logger.Error("failed to create credential resolver", "error", err)
		os.Exit(1)
	}

	// Provider adapters
	registry := adapter.NewRegistry(cfg.DefaultProvider)
	registry.Register(watsonx.New(nil))
	registry.Register(openaicompat.New("openai", "https://api.openai.com/v1"))
	registry.Register(openaicompat.New("openrouter", "https://openrouter.ai/api/v1"))
	registry.Alias("ibm", "watsonx")

	// Async request log writer
	writer := storage.NewAsyncWriter(store, storage.AsyncWriterConfig{})
	defer writer.Close()

	h := handler.New(
		registry,
		resolver,
		forward.NewExecutor(),
		passthrough.NewBuilder(resolver),
		tokenizer.New(),
		writer,
		cfg,
	)
	adminHandlers := admin.New(store, h.StartTime, apiKeyCache, resolver)

	router := app.NewRouter(h, adminHandlers, &app.RouterOptions{
		Logger:      logger,
		Storage:     store,
		APIKeyCache: apiKeyCache,
		Resolver:    resolver,
	})

	srv := app.NewServer(cfg, router, logger)

	printStartupBanner(cfg)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("signal received", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}
}
