package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"student-roster-go/agent"
	"student-roster-go/cache"
	"student-roster-go/db"
	"student-roster-go/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if !cfg.Debug && !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	store := openStore()
	checkAndSeedData(store)

	replies, closeCache := replyCache(cmd.Context())
	defer closeCache()

	assistant := agent.New(agent.Options{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		MaxSteps:    cfg.LLM.MaxSteps,
	}, agent.StudentTools(store), logger)

	ask := handlers.AgentFunc(func(ctx context.Context, prompt string) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, cfg.LLM.Timeout)
		defer cancel()
		res, err := assistant.Run(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return res, nil
	})

	router := handlers.NewRouter(handlers.NewAPIHandler(store, ask, replies, logger))
	srv := &http.Server{Addr: cfg.Addr(), Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", cfg.Addr()), zap.String("chat", "/api/chat"))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// replyCache connects to Redis when configured. Without Redis, or when it is
// unreachable, replies are simply not cached.
func replyCache(ctx context.Context) (cache.Cache, func()) {
	if cfg.Redis.Addr == "" {
		return cache.Nop{}, func() {}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := cache.Connect(pingCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Reply cache disabled", zap.Error(err))
		return cache.Nop{}, func() {}
	}
	logger.Info("Reply cache connected", zap.String("addr", cfg.Redis.Addr), zap.Int("db", cfg.Redis.DB))
	return cache.NewRedisCache(client, cfg.Redis.TTL, logger), func() { _ = client.Close() }
}

// checkAndSeedData imports seed_file when the roster is empty.
func checkAndSeedData(store *db.JSONStore) {
	if store.Len() > 0 {
		logger.Info("Existing roster found, skipping seed", zap.String("path", store.Path()), zap.Int("count", store.Len()))
		return
	}
	if cfg.SeedFile == "" {
		return
	}

	f, err := os.Open(cfg.SeedFile)
	if err != nil {
		logger.Warn("Could not open seed file", zap.String("path", cfg.SeedFile), zap.Error(err))
		return
	}
	defer f.Close()

	n, err := store.ImportFromExcel(f)
	if err != nil {
		logger.Warn("Seeding roster failed", zap.String("path", cfg.SeedFile), zap.Error(err))
		return
	}
	logger.Info("Seeded roster", zap.String("path", cfg.SeedFile), zap.Int("count", n))
}
