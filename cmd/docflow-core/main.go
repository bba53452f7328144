package main

// @title           Docflow Core API
// @version         1.0
// @description     Document ingestion and hybrid search API. Docflow Core admits uploaded documents, runs them through a processing pipeline and serves semantic and keyword search over the resulting chunks.

// @contact.name   Docflow Labs
// @contact.url    https://github.com/docflow-labs/docflow-core/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/docflow-labs/docflow-core/internal/adapters/driven/ai"
	"github.com/docflow-labs/docflow-core/internal/adapters/driven/auth"
	"github.com/docflow-labs/docflow-core/internal/adapters/driven/files"
	"github.com/docflow-labs/docflow-core/internal/adapters/driven/parser"
	"github.com/docflow-labs/docflow-core/internal/adapters/driven/postgres"
	postgresqueue "github.com/docflow-labs/docflow-core/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/docflow-labs/docflow-core/internal/adapters/driven/queue/redis"
	redisadapter "github.com/docflow-labs/docflow-core/internal/adapters/driven/redis"
	nethttp "github.com/docflow-labs/docflow-core/internal/adapters/driving/http"
	"github.com/docflow-labs/docflow-core/internal/chunker"
	"github.com/docflow-labs/docflow-core/internal/config"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
	"github.com/docflow-labs/docflow-core/internal/core/services"
	"github.com/docflow-labs/docflow-core/internal/worker"
)

var version = "dev"

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Command line arg overrides the configured run mode
	mode := cfg.Mode
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("docflow-core starting", "version", version, "mode", mode)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received, stopping")
		cancel()
	}()

	// ===== Initialize PostgreSQL =====
	logger.Info("connecting to PostgreSQL")
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		fatal(logger, "failed to connect to database", err)
	}
	defer db.Close()

	// Initialize schema (idempotent)
	if err := db.InitSchema(ctx); err != nil {
		fatal(logger, "failed to initialize schema", err)
	}
	logger.Info("PostgreSQL connected and schema initialized")

	// ===== Initialize Redis (optional) =====
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		logger.Info("connecting to Redis")
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			fatal(logger, "failed to parse Redis URL", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			fatal(logger, "failed to connect to Redis", err)
		}
		defer redisClient.Close()
		logger.Info("Redis connected")
	}

	// ===== PostgreSQL stores =====
	documentStore := postgres.NewDocumentStore(db)
	chunkStore := postgres.NewChunkStore(db)
	jobStore := postgres.NewJobStore(db)
	vectorIndex := postgres.NewVectorIndex(db)

	// ===== File store =====
	fileStore, err := files.NewLocalStore(cfg.Storage.Root)
	if err != nil {
		fatal(logger, "failed to initialize file store", err)
	}

	// ===== Task Queue (Redis if available, otherwise PostgreSQL) =====
	var taskQueue driven.TaskQueue
	if redisClient != nil {
		taskQueue, err = redisqueue.NewQueue(redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
		if err != nil {
			fatal(logger, "failed to create task queue", err)
		}
		logger.Info("using Redis task queue")
	} else {
		taskQueue = postgresqueue.NewQueue(db.DB)
		logger.Info("using PostgreSQL task queue")
	}

	// ===== Distributed Lock (Redis if available, otherwise PostgreSQL advisory locks) =====
	var distributedLock driven.DistributedLock
	if redisClient != nil {
		distributedLock = redisadapter.NewLock(redisClient)
		logger.Info("using Redis distributed lock")
	} else {
		distributedLock = postgres.NewAdvisoryLock(db)
		logger.Info("using PostgreSQL advisory lock")
	}

	// ===== Embedding backend =====
	var embedding driven.EmbeddingService
	if cfg.Embedding.APIKey != "" {
		embedding, err = ai.NewOpenAIEmbedding(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.BaseURL)
		if err != nil {
			fatal(logger, "failed to create embedding client", err)
		}
		logger.Info("using OpenAI-compatible embedding backend", "model", cfg.Embedding.Model)
	} else {
		embedding = ai.NewLocalEmbedding(cfg.Embedding.Dimensions)
		logger.Info("no embedding API key set, using local embedding backend",
			"dimensions", cfg.Embedding.Dimensions)
	}

	// ===== Remaining driven adapters =====
	authAdapter := auth.NewAdapter(cfg.Auth.JWTSecret)
	textParser := parser.NewTextParser(fileStore)
	classifier := ai.NewKeywordClassifier()
	extractor := ai.NewRegexEntityExtractor()

	semanticChunker, err := chunker.New(chunker.Options{
		TargetSize:        cfg.Chunker.TargetSize,
		Overlap:           cfg.Chunker.Overlap,
		MinChunkSize:      cfg.Chunker.MinChunkSize,
		PreserveStructure: cfg.Chunker.PreserveStructure,
	})
	if err != nil {
		fatal(logger, "failed to create chunker", err)
	}

	// ===== Services (core business logic) =====
	pipelineDriver := services.NewPipelineDriver(services.PipelineDriverConfig{
		DocumentStore:    documentStore,
		JobStore:         jobStore,
		ChunkStore:       chunkStore,
		TaskQueue:        taskQueue,
		Lock:             distributedLock,
		FileStore:        fileStore,
		Parser:           textParser,
		Classifier:       classifier,
		Extractor:        extractor,
		Embedding:        embedding,
		Chunker:          semanticChunker,
		EmbedBatchSize:   cfg.Embedding.BatchSize,
		EmbedConcurrency: cfg.Embedding.Concurrency,
		Logger:           logger,
	})

	gatekeeper := services.NewGatekeeper(services.GatekeeperConfig{
		DocumentStore: documentStore,
		FileStore:     fileStore,
		MaxFileSize:   cfg.MaxUploadBytes(),
		Logger:        logger,
	})

	documentService := services.NewDocumentService(services.DocumentServiceConfig{
		DocumentStore: documentStore,
		ChunkStore:    chunkStore,
		VectorIndex:   vectorIndex,
		FileStore:     fileStore,
		Logger:        logger,
	})

	jobService := services.NewJobService(services.JobServiceConfig{
		JobStore: jobStore,
		Driver:   pipelineDriver,
		Logger:   logger,
	})

	searchService := services.NewSearchService(services.SearchServiceConfig{
		ChunkStore:    chunkStore,
		VectorIndex:   vectorIndex,
		DocumentStore: documentStore,
		Embedding:     embedding,
		Logger:        logger,
	})

	authService := services.NewAuthService(authAdapter)

	runAPI := func() {
		serverCfg := nethttp.Config{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			Version:        version,
			MaxUploadBytes: cfg.MaxUploadBytes(),
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}

		var redisPing nethttp.Pinger
		if redisClient != nil {
			redisPing = redisPinger{client: redisClient}
		}

		server := nethttp.NewServer(
			serverCfg,
			authService,
			gatekeeper,
			documentService,
			jobService,
			searchService,
			pipelineDriver,
			taskQueue,
			db,
			redisPing,
			logger,
		)

		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			fatal(logger, "server error", err)
		}
	}

	runWorker := func() {
		w := worker.New(worker.Config{
			TaskQueue:      taskQueue,
			Driver:         pipelineDriver,
			Logger:         logger,
			Concurrency:    cfg.Worker.Concurrency,
			DequeueTimeout: cfg.Worker.DequeueTimeout,
		})

		if err := w.Start(ctx); err != nil {
			fatal(logger, "failed to start worker", err)
		}
		logger.Info("worker started, processing tasks",
			"concurrency", cfg.Worker.Concurrency)

		<-ctx.Done()

		logger.Info("stopping worker")
		w.Stop()
		logger.Info("worker stopped")
	}

	switch mode {
	case "api":
		runAPI()

	case "worker":
		runWorker()

	case "all":
		// Worker runs in the background, API blocks in the foreground
		go runWorker()
		runAPI()

	default:
		fatal(logger, "unknown mode (use: api, worker, or all)", fmt.Errorf("mode %q", mode))
	}
}

// redisPinger adapts a redis client to the server's health check interface.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
