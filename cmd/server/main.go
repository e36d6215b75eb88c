package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"aptiview/interview/internal/config"
	"aptiview/interview/internal/conversation"
	"aptiview/interview/internal/handlers"
	"aptiview/interview/internal/jobs"
	"aptiview/interview/internal/llm"
	_ "aptiview/interview/internal/llm/gemini"
	_ "aptiview/interview/internal/llm/openai"
	"aptiview/interview/internal/managers"
	"aptiview/interview/internal/models"
	"aptiview/interview/internal/prompts"
	"aptiview/interview/internal/repositories"
	"aptiview/interview/internal/resume"
	"aptiview/interview/internal/routers"
	"aptiview/interview/internal/scoring"
	"aptiview/interview/internal/speech/stt"
	"aptiview/interview/internal/speech/tts"
	"aptiview/interview/internal/storage"
	"aptiview/interview/internal/transcription"
	"aptiview/interview/internal/utils"
)

// initDatabase opens the configured database and migrates the interview tables
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		dialector = postgres.Open(cfg.Postgres.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

func pingDatabase(db *gorm.DB) handlers.Pinger {
	return func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return sqlDB.PingContext(ctx)
	}
}

// newRegistry uses redis when configured so leases hold across instances.
func newRegistry(ctx context.Context, cfg *config.Config, logger *zap.Logger) (managers.SessionRegistry, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, using in-process session registry")
		return managers.NewLocalRegistry(logger), func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return managers.NewRedisRegistry(rdb, managers.DefaultLeaseTTL, logger), func() { rdb.Close() }, nil
}

func newAssetStore(ctx context.Context, cfg *config.Config) (storage.AssetStore, error) {
	if cfg.Assets.Store == "s3" {
		return storage.NewS3Store(ctx, cfg.Assets.S3Bucket, cfg.Assets.S3PublicBaseURL)
	}
	return storage.NewLocalStore(cfg.Assets.Dir, cfg.Assets.BaseURL)
}

// engineFactory binds the process-wide clients into every new conversation engine.
func engineFactory(deps conversation.Deps) handlers.EngineFactory {
	return func(cfg conversation.Config) (*conversation.Engine, error) {
		return conversation.NewEngine(cfg, deps)
	}
}

func main() {
	// .env is optional; real deployments use the environment
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		utils.GetLogger().Fatal("Failed to load configuration", zap.Error(err))
	}
	utils.InitLogger(cfg.AppEnv)
	logger := utils.GetLogger()
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("provider", cfg.Provider),
		zap.String("db_driver", cfg.DBDriver),
		zap.String("asset_store", cfg.Assets.Store),
		zap.Duration("interview_duration", cfg.InterviewDuration))

	ctx := context.Background()

	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	promptManager, err := prompts.NewPromptManager()
	if err != nil {
		logger.Fatal("Failed to initialize prompt manager", zap.Error(err))
	}

	aiProvider, err := llm.NewProvider(cfg.Provider)
	if err != nil {
		logger.Fatal("Failed to initialize AI provider", zap.Error(err), zap.Strings("registered", llm.Registered()))
	}

	if cfg.STT.APIKey == "" || cfg.TTS.APIKey == "" {
		logger.Warn("speech API keys missing, transcription and synthesis calls will fail")
	}
	sttClient := stt.NewOpenAI(cfg.STT.APIKey, cfg.STT.BaseURL, cfg.STT.Model)
	ttsClient := tts.NewOpenAI(cfg.TTS.APIKey, cfg.TTS.BaseURL, cfg.TTS.Model, cfg.Voice)

	if err := os.MkdirAll(cfg.ScratchDir, 0o755); err != nil {
		logger.Fatal("Scratch directory is not writable", zap.String("dir", cfg.ScratchDir), zap.Error(err))
	}
	pipeline := transcription.NewPipeline(sttClient, cfg.ScratchDir, logger,
		transcription.WithCallTimeout(cfg.ExternalCallTimeout))
	scorer := scoring.NewScorer(aiProvider, promptManager, logger, cfg.ExternalCallTimeout)

	interviewRepo := &repositories.InterviewRepository{DB: db}
	assetRepo := &repositories.AssetRepository{DB: db}

	registry, closeRegistry, err := newRegistry(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize session registry", zap.Error(err))
	}
	defer closeRegistry()

	assetStore, err := newAssetStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize asset store", zap.Error(err))
	}

	resumeSummarizer := resume.NewSummarizer(aiProvider, promptManager, interviewRepo, logger, cfg.ExternalCallTimeout,
		resume.WithLocalRoot(cfg.ResumeDir),
		resume.WithAllowedHosts(cfg.ResumeAllowedHosts...))

	maintenanceJob := jobs.NewMaintenanceJob(interviewRepo, &jobs.MaintenanceConfig{
		Schedule:          cfg.MaintenanceSchedule,
		ScratchDir:        cfg.ScratchDir,
		ScratchPrefix:     transcription.ScratchPrefix,
		InterviewDuration: cfg.InterviewDuration,
	}, logger)
	if err := maintenanceJob.Start(); err != nil {
		logger.Error("Failed to start maintenance job", zap.Error(err))
	}

	interviewHandler := handlers.NewInterviewHandler(handlers.InterviewDeps{
		Store:      interviewRepo,
		Assets:     assetRepo,
		AssetStore: assetStore,
		Resume:     resumeSummarizer,
		Registry:   registry,
		Logger:     logger,
		NewEngine: engineFactory(conversation.Deps{
			LLM:         aiProvider,
			TTS:         ttsClient,
			Transcriber: pipeline,
			Summarizer:  scorer,
			Prompts:     promptManager,
			Logger:      logger,
		}),
	}, handlers.InterviewHandlerConfig{
		Duration:        cfg.InterviewDuration,
		CompletionGrace: cfg.CompletionGrace,
		EndGrace:        cfg.EndGrace,
		CallTimeout:     cfg.ExternalCallTimeout,
		Voice:           cfg.Voice,
		JWTSecret:       cfg.JWTSecret,
		AuthRequired:    cfg.AuthRequired,
		AllowedOrigins:  cfg.AllowedOrigins,
	})
	healthHandler := handlers.NewHealthHandler(aiProvider, promptManager, pingDatabase(db), cfg)

	routerOpts := routers.Options{AllowedOrigins: cfg.AllowedOrigins}
	if cfg.Assets.Store == "local" {
		routerOpts.UploadsPath, routerOpts.UploadsDir = cfg.Assets.BaseURL, cfg.Assets.Dir
	}
	router := routers.NewRouter(interviewHandler, healthHandler, routerOpts)

	serverAddr := ":" + cfg.Port
	// no read/write timeouts: websocket connections outlive them; the session manages its own deadlines
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("Interview service starting", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("Interview service shutting down...")
	maintenanceJob.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("Interview service exited")
}
