package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/notebookrag/internal/access"
	"github.com/xxxsen/notebookrag/internal/ai"
	"github.com/xxxsen/notebookrag/internal/config"
	"github.com/xxxsen/notebookrag/internal/db"
	"github.com/xxxsen/notebookrag/internal/embedcache"
	"github.com/xxxsen/notebookrag/internal/handler"
	"github.com/xxxsen/notebookrag/internal/job"
	"github.com/xxxsen/notebookrag/internal/middleware"
	"github.com/xxxsen/notebookrag/internal/ratelimit"
	"github.com/xxxsen/notebookrag/internal/repo"
	"github.com/xxxsen/notebookrag/internal/schedule"
	"github.com/xxxsen/notebookrag/internal/service"
)

// chat streams are flushed per event and must not be buffered by gzip.
var streamPaths = []string{`^/api/v1/chat$`, `^/api/v1/shared/[^/]+/chat$`}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "notebookrag",
		Short: "notebookrag grounded answer server",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run notebookrag server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sqlDB, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			return runServer(cfg, sqlDB)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sqlDB, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			logutil.GetLogger(cmd.Context()).Info("migrations applied")
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, migrateCmd)
	addAdminCommands(rootCmd, &configPath)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
	return cfg, nil
}

func bootstrap(configPath string) (*config.Config, *sql.DB, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, sqlDB, nil
}

func buildEmbedder(cfg *config.Config, cacheRepo *repo.EmbeddingCacheRepo) (ai.IEmbedder, error) {
	var wrappers []ai.EmbedderWrapper
	if cfg.EmbedCache.EnableDB {
		wrappers = append(wrappers, func(e ai.IEmbedder) ai.IEmbedder {
			return embedcache.WrapStore(e, cacheRepo)
		})
	}
	if cfg.EmbedCache.LRUSize > 0 {
		ttl := time.Duration(cfg.EmbedCache.LRUTTLSeconds) * time.Second
		wrappers = append(wrappers, func(e ai.IEmbedder) ai.IEmbedder {
			return embedcache.WrapLRU(e, cfg.EmbedCache.LRUSize, ttl)
		})
	}
	embedder, err := ai.BuildEmbedder(cfg.AI.Embedders, wrappers...)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	return embedder, nil
}

func buildScheduler(cfg *config.Config, cacheRepo *repo.EmbeddingCacheRepo, auditRepo *repo.AuditRepo) (*schedule.CronScheduler, error) {
	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(cacheRepo, cfg.EmbedCache.DBRetentionDays), cfg.Schedule.EmbedCacheCleanup); err != nil {
		return nil, fmt.Errorf("schedule embed cache cleanup: %w", err)
	}
	if err := scheduler.AddJob(job.NewAuditCleanupJob(auditRepo, cfg.AuditRetentionDays), cfg.Schedule.AuditCleanup); err != nil {
		return nil, fmt.Errorf("schedule audit cleanup: %w", err)
	}
	return scheduler, nil
}

func runServer(cfg *config.Config, sqlDB *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("source_store", cfg.SourceStore.Type),
		zap.Bool("embed_db_cache", cfg.EmbedCache.EnableDB),
	)

	collectionRepo := repo.NewCollectionRepo(sqlDB)
	shareRepo := repo.NewShareRepo(sqlDB)
	chunkRepo := repo.NewChunkRepo(sqlDB)
	messageRepo := repo.NewMessageRepo(sqlDB)
	cacheRepo := repo.NewEmbeddingCacheRepo(sqlDB)
	auditRepo := repo.NewAuditRepo(sqlDB)

	embedder, err := buildEmbedder(cfg, cacheRepo)
	if err != nil {
		return err
	}
	streamer, err := ai.BuildStreamer(cfg.AI.Generators)
	if err != nil {
		return fmt.Errorf("init generator: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("ai providers ready",
		zap.String("embedder", embedder.ModelName()),
		zap.String("generator", streamer.ModelName()),
	)

	limiterOpts := []ratelimit.Option{ratelimit.WithMaxEntries(cfg.RateLimit.MaxEntries)}
	if cfg.RateLimit.SweepIntervalMs > 0 {
		limiterOpts = append(limiterOpts, ratelimit.WithSweepInterval(time.Duration(cfg.RateLimit.SweepIntervalMs)*time.Millisecond))
	}
	limiter := ratelimit.New(limiterOpts...)
	gate := access.NewGate(limiter, collectionRepo, shareRepo, access.Config{
		Owner:       access.Limit{Requests: cfg.RateLimit.Owner.Requests, Window: time.Duration(cfg.RateLimit.Owner.WindowSeconds) * time.Second},
		Share:       access.Limit{Requests: cfg.RateLimit.Share.Requests, Window: time.Duration(cfg.RateLimit.Share.WindowSeconds) * time.Second},
		MinTokenLen: cfg.Share.MinTokenLen,
		MaxTokenLen: cfg.Share.MaxTokenLen,
		AuditSalt:   cfg.AuditSalt,
	})

	persister := service.NewExchangePersister(messageRepo, auditRepo)
	chatService := service.NewChatService(embedder, chunkRepo, streamer, persister, service.ChatServiceConfig{
		Timeout:         time.Duration(cfg.PipelineTimeoutSeconds) * time.Second,
		ProviderTimeout: time.Duration(cfg.AI.Timeout) * time.Second,
		MaxHistory:      cfg.RAG.MaxHistory,
	})
	historyService := service.NewHistoryService(messageRepo)

	deps := handler.RouterDeps{
		Chat: handler.NewChatHandler(gate, chatService,
			handler.RetrievalTuning{TopK: cfg.RAG.Owner.TopK, Threshold: cfg.RAG.Owner.Threshold},
			handler.RetrievalTuning{TopK: cfg.RAG.Share.TopK, Threshold: cfg.RAG.Share.Threshold},
		),
		Messages:  handler.NewMessageHandler(gate, historyService),
		JWTSecret: []byte(cfg.JWTSecret),
	}

	middlewares := []gin.HandlerFunc{middleware.CORS(cfg.CORSAllowlist)}
	if cfg.RateLimit.Global.Requests > 0 && cfg.RateLimit.Global.WindowSeconds > 0 {
		middlewares = append(middlewares, middleware.RateLimit(limiter, cfg.RateLimit.Global.Requests, time.Duration(cfg.RateLimit.Global.WindowSeconds)*time.Second))
	}
	middlewares = append(middlewares, gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs(streamPaths)))

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(middlewares...),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	scheduler, err := buildScheduler(cfg, cacheRepo, auditRepo)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping, flushing pending exchanges")
	persister.Wait()
	return nil
}
