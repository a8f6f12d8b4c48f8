package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/genai"

	"uigen/internal/adapter/api"
	"uigen/internal/adapter/client"
	"uigen/internal/adapter/store"
	"uigen/internal/config"
	"uigen/internal/domain/repository"
	"uigen/internal/prompt"
	"uigen/internal/usecase"
	"uigen/internal/validator"
)

const recentCacheCapacity = usecase.RecentLimit

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := config.LoadEnvFile(envFile); err != nil {
		log.Printf("Warning: %s not loaded, using system environment variables", envFile)
	}

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service failed", "err", err)
		os.Exit(1)
	}
	logger.Info("service stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var closers []func(context.Context) error
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](shutdownCtx); err != nil {
				logger.Error("close failed", "err", err)
			}
		}
	}()

	// Gemini client is needed for generation and for similarity embeddings.
	var genaiClient *genai.Client
	if cfg.AI.Provider == "gemini" || cfg.Qdrant.Host != "" {
		gc, err := client.NewGenAIClient(ctx, client.GenAIOptions{
			APIKey:   cfg.AI.GeminiAPIKey,
			Project:  cfg.AI.GoogleProject,
			Location: cfg.AI.GoogleLocation,
		})
		if err != nil {
			return fmt.Errorf("init genai client: %w", err)
		}
		genaiClient = gc
	}

	provider, err := newProvider(ctx, cfg, genaiClient)
	if err != nil {
		return err
	}

	genStore, closeStore, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	closers = append(closers, closeStore)

	var genOpts []usecase.GeneratorOption
	var histOpts []usecase.HistoryOption

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		closers = append(closers, func(context.Context) error { return rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, recent cache will fall back to the store", "addr", cfg.Redis.Addr, "err", err)
		}
		recent := store.NewRedisRecentCache(rdb, recentCacheCapacity, cfg.Redis.RecentTTL)
		genOpts = append(genOpts, usecase.WithRecentCache(recent))
		histOpts = append(histOpts, usecase.WithHistoryCache(recent))
		logger.Info("recent feed cache enabled", "addr", cfg.Redis.Addr)
	}

	if cfg.Qdrant.Host != "" {
		qClient, err := qdrant.NewClient(&qdrant.Config{
			Host: cfg.Qdrant.Host,
			Port: cfg.Qdrant.Port,
		})
		if err != nil {
			return fmt.Errorf("connect to qdrant: %w", err)
		}
		closers = append(closers, func(context.Context) error { return qClient.Close() })

		index := store.NewQdrantIndex(qClient, cfg.Qdrant.Collection, logger)
		if err := index.InitCollection(ctx, cfg.Qdrant.Dimension); err != nil {
			return fmt.Errorf("init qdrant collection: %w", err)
		}
		embedder := client.NewEmbedderFromClient(genaiClient, cfg.AI.EmbeddingModel)
		genOpts = append(genOpts, usecase.WithSimilarityIndex(embedder, index))
		histOpts = append(histOpts, usecase.WithSimilarity(embedder, index, cfg.Qdrant.Threshold))
		logger.Info("similarity search enabled", "host", cfg.Qdrant.Host, "collection", cfg.Qdrant.Collection)
	}

	requests, err := validator.New()
	if err != nil {
		return err
	}
	templater, err := prompt.NewTemplater()
	if err != nil {
		return err
	}

	stages := usecase.NewStageRunner(provider, cfg.AI.Timeout)
	generator := usecase.NewGenerator(templater, stages, genStore, logger, genOpts...)
	history := usecase.NewHistory(genStore, logger, histOpts...)
	closers = append(closers, func(context.Context) error {
		generator.Wait()
		return nil
	})

	app := fiber.New(fiber.Config{
		AppName:               "UI Generator",
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		BodyLimit:             cfg.Server.BodyLimit,
		DisableStartupMessage: true,
	})
	handler := api.NewGenerationHandler(requests, generator, history, logger)
	api.SetupRouter(app, handler, api.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Version:        cfg.Server.Version,
		AccessLog:      true,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", cfg.Addr(), "provider", provider.Name(), "store", cfg.Store.Driver)
		errCh <- app.Listen(cfg.Addr())
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("shutting down http server")
	return app.ShutdownWithTimeout(30 * time.Second)
}

func newProvider(ctx context.Context, cfg *config.Config, genaiClient *genai.Client) (repository.AIProvider, error) {
	switch cfg.AI.Provider {
	case "bedrock":
		p, err := client.NewBedrockClient(ctx, cfg.AI.BedrockRegion, cfg.AI.BedrockModel)
		if err != nil {
			return nil, fmt.Errorf("init bedrock client: %w", err)
		}
		return p, nil
	case "gemini":
		return client.NewGeminiClientFromClient(genaiClient, cfg.AI.Model), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}
}

func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.GenerationStore, func(context.Context) error, error) {
	switch cfg.Store.Driver {
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		mongoClient, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Store.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("mongo connect: %w", err)
		}
		if err := mongoClient.Ping(connectCtx, nil); err != nil {
			_ = mongoClient.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("mongo ping: %w", err)
		}
		s := store.NewMongoStore(mongoClient.Database(cfg.Store.MongoDatabase))
		if err := s.EnsureIndexes(connectCtx); err != nil {
			logger.Warn("mongo index creation failed", "err", err)
		}
		logger.Info("connected to mongo", "database", cfg.Store.MongoDatabase)
		return s, mongoClient.Disconnect, nil
	case "sqlite":
		s, err := store.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info("opened sqlite store", "path", cfg.Store.SQLitePath)
		return s, func(context.Context) error { return s.Close() }, nil
	default:
		return nil, nil, errors.New("unknown store driver " + cfg.Store.Driver)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
