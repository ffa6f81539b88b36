package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"image4marketing/internal/adapter/repo"
	"image4marketing/internal/http/handlers"
	httpapi "image4marketing/internal/http/httpapi"
	"image4marketing/internal/infra"
	"image4marketing/internal/infra/credentials"
	"image4marketing/internal/infra/geoip"
	"image4marketing/internal/providers/caption"
	"image4marketing/internal/providers/image"
	"image4marketing/internal/ratelimit"
	"image4marketing/internal/storage"
	"image4marketing/internal/workflow"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := infra.RunMigrations(ctx, cfg.DatabaseURL, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	sqlRunner := infra.NewSQLRunner(dbpool, logger)
	sessions := repo.NewSessionRepository(sqlRunner)
	images := repo.NewImageRepository(sqlRunner)
	users := repo.NewUserRepository(sqlRunner)

	// Keys from the environment win over the ones stored with cmd/geminikey.
	creds := credentials.NewStore(sqlRunner)
	geminiKey, err := creds.Resolve(ctx, credentials.ProviderGemini, cfg.GeminiAPIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("could not read stored gemini key")
	}
	qwenKey, err := creds.Resolve(ctx, credentials.ProviderQwen, cfg.QwenAPIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("could not read stored qwen key")
	}

	// Rate limit counters: shared in Redis when configured, per process otherwise.
	var store ratelimit.Store
	redisClient, err := infra.NewRedisClient(ctx, cfg)
	switch {
	case err != nil:
		logger.Fatal().Err(err).Msg("failed to connect redis")
	case redisClient != nil:
		defer redisClient.Close()
		store = ratelimit.NewRedisStore(redisClient, "ratelimit:")
		logger.Info().Str("addr", cfg.RedisAddr).Msg("rate limiter uses redis")
	default:
		store = ratelimit.NewMemoryStore(cfg.RateLimitSweep)
	}
	limiter := ratelimit.New(store)
	defer limiter.Close()

	var media storage.Store
	staticDir := ""
	switch cfg.StorageDriver {
	case infra.StorageS3:
		media, err = storage.NewS3Store(ctx, storage.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
	default:
		var fs *storage.FileStore
		fs, err = storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err == nil {
			media = fs
			staticDir = fs.BasePath()
		}
	}
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to init storage")
	}

	generator, err := image.New(ctx, image.Config{
		Provider:     cfg.GenerationProvider,
		GeminiAPIKey: geminiKey,
		GeminiModel:  cfg.GeminiImageModel,
		QwenAPIKey:   qwenKey,
		QwenBaseURL:  cfg.QwenBaseURL,
		QwenModel:    cfg.QwenModel,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init image generator")
	}
	captioner, err := caption.New(ctx, cfg.CaptionProvider, geminiKey, cfg.GeminiTextModel, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init captioner")
	}

	wf := workflow.NewService(workflow.Deps{
		Sessions:       sessions,
		Images:         images,
		Media:          media,
		Generator:      generator,
		Logger:         logger,
		Timeout:        cfg.GenerationTimeout,
		MaxUploadBytes: cfg.MaxUploadBytes,
		AppURL:         cfg.AppURL,
	})

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()

	app := handlers.NewApp(cfg, logger, wf, users, images, captioner)
	router := httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:      cfg.JWTSecret,
		Limiter:        limiter,
		CountryLookup:  resolver.Lookup(),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		DefaultLocale:  "fr",
		StaticDir:      staticDir,
		Logger:         logger,
	})

	server := infra.NewHTTPServer(cfg, router, logger)
	logger.Info().
		Str("provider", generator.Name()).
		Str("storage", cfg.StorageDriver).
		Msg("starting api")
	if err := server.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("http server failed")
	}
	logger.Info().Msg("server stopped")
}
