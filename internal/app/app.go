// Package app wires the repos, services, worker pool and HTTP router
// into one runnable backend.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/clipforge/clipforge-backend/internal/db"
	"github.com/clipforge/clipforge-backend/internal/handlers"
	"github.com/clipforge/clipforge-backend/internal/jobs"
	"github.com/clipforge/clipforge-backend/internal/media"
	"github.com/clipforge/clipforge-backend/internal/pkg/logger"
	"github.com/clipforge/clipforge-backend/internal/repos"
	"github.com/clipforge/clipforge-backend/internal/server"
	"github.com/clipforge/clipforge-backend/internal/services"
	"github.com/clipforge/clipforge-backend/internal/sse"
	"github.com/clipforge/clipforge-backend/internal/types"
)

type App struct {
	Log    *logger.Logger
	DB     *gorm.DB
	Cfg    Config
	Router *gin.Engine
	Hub    *sse.Hub

	pool   *jobs.Pool
	cancel context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	presets, err := types.LoadPresetTable(cfg.FlowPresetPath)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load flow presets: %w", err)
	}

	// Repos
	jobRepo := repos.NewJobRepo(theDB, log)
	batchRepo := repos.NewBatchRepo(theDB, log)

	// SSE + notifications
	hub := sse.NewHub(log)
	notifier := services.NewJobNotifier(hub)

	// Media collaborators
	downloader := media.NewYtdlpDownloader(log)
	analyzer := media.NewHTTPAnalyzer(log)
	renderer := media.NewFFmpegRenderer(log)
	speech := media.NewHTTPSynthesizer(log, cfg.TempDir)

	var limiter jobs.PlatformLimiter
	var rdb *goredis.Client
	if cfg.RedisAddr != "" {
		rdb = goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, DialTimeout: 5 * time.Second})
		limiter = jobs.NewRedisLimiter(log, rdb, cfg.MaxDownloadsPerPlatform)
	} else {
		log.Warn("REDIS_ADDR not set; download limiter is process-local")
		limiter = jobs.NewLocalLimiter(cfg.MaxDownloadsPerPlatform)
	}

	// Services
	jobService := services.NewJobService(log, jobRepo, presets, notifier)
	batchService := services.NewBatchService(log, theDB, batchRepo, jobRepo, jobService, notifier, cfg.RecommendedScoreThreshold)
	highlightService := services.NewHighlightService(log, downloader, analyzer, renderer, cfg.TempDir, cfg.ProcessedDir)
	mergeService := services.NewMergeService(log, downloader, renderer, cfg.TempDir, cfg.ProcessedDir)

	// Job engine
	executor := jobs.NewExecutor(log, jobRepo, notifier, downloader, analyzer, renderer, speech, limiter, jobs.ExecutorConfig{
		TempDir:     cfg.TempDir,
		OutDir:      cfg.ProcessedDir,
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
	})
	executor.OnBatchChange(func(ctx context.Context, batchID uuid.UUID) {
		view, err := batchService.Status(ctx, batchID)
		if err != nil {
			log.Warn("batch status recompute failed", "batchID", batchID, "error", err)
			return
		}
		notifier.BatchUpdated(batchID, view)
	})
	pool := jobs.NewPool(log, jobRepo, executor, cfg.WorkerPoolSize)

	// HTTP
	router := server.NewRouter(server.RouterConfig{
		Log:           log,
		JobHandler:    handlers.NewJobHandler(jobService),
		BatchHandler:  handlers.NewBatchHandler(batchService),
		VideoHandler:  handlers.NewVideoHandler(highlightService, mergeService),
		SSEHandler:    handlers.NewSSEHandler(hub),
		MetaHandler:   handlers.NewMetaHandler(presets),
		HealthHandler: handlers.NewHealthHandler(theDB, rdb, cfg.TempDir, cfg.ProcessedDir),
		CORSOrigins:   cfg.CORSOrigins,
	})

	return &App{
		Log:    log,
		DB:     theDB,
		Cfg:    cfg,
		Router: router,
		Hub:    hub,
		pool:   pool,
	}, nil
}

// Start launches the worker pool.
func (a *App) Start() {
	if a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.pool.Start(ctx)
}

// Run serves HTTP until the listener fails.
func (a *App) Run() error {
	return a.Router.Run(":" + a.Cfg.Port)
}

// Shutdown stops claiming new jobs and waits for in-flight ones.
func (a *App) Shutdown(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	err := a.pool.Drain(ctx)
	a.Log.Sync()
	return err
}
