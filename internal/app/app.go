package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notedrop/internal/cache"
	"notedrop/internal/catalog"
	"notedrop/internal/config"
	"notedrop/internal/database"
	"notedrop/internal/directory"
	"notedrop/internal/event"
	"notedrop/internal/handler"
	"notedrop/internal/middleware"
	"notedrop/internal/repository"
	"notedrop/internal/router"
	"notedrop/internal/service"
	"notedrop/internal/staging"
	"notedrop/internal/telegram"
	"notedrop/internal/websocket"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load channel catalog: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)
	subscriptionRepo := repository.NewSubscriptionRepository(pool)
	ownershipRepo := repository.NewOwnershipRepository(pool)
	favoriteRepo := repository.NewFavoriteRepository(pool)
	slog.Info("database ready")

	var backend cache.Backend
	if cfg.RedisURL != "" {
		redisBackend, err := cache.NewRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		backend = redisBackend
		slog.Info("redis cache connected")
	} else {
		backend = cache.NewMemory()
		slog.Warn("REDIS_URL not set; using in-process cache")
	}

	bridge, err := telegram.NewBridgeClient(context.Background(), cfg.BridgeURL, cfg.BridgeSession, telegram.BridgeOptions{
		Timeout:        cfg.BridgeTimeout,
		ConnectRetries: cfg.BridgeConnectRetries,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to bridge: %w", err)
	}

	staged, err := staging.NewS3(context.Background(), staging.Options{
		Endpoint:  cfg.StagingEndpoint,
		Region:    cfg.StagingRegion,
		Bucket:    cfg.StagingBucket,
		AccessKey: cfg.StagingAccessKey,
		SecretKey: cfg.StagingSecretKey,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize staging store: %w", err)
	}

	authService, err := service.NewAuthService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, userRepo, tokenRepo)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}
	authMiddleware := middleware.NewAuthMiddleware(authService)
	authHandler := handler.NewAuthHandler(authService)

	bus := event.NewBus()
	hub := websocket.NewHub(bus)
	go hub.Run()

	persist, err := directory.NewFilePersistence(cfg.DirectoryFile)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize directory persistence: %w", err)
	}
	directoryStore := directory.NewStore(persist, bus)

	statsService := service.NewStatsService(bridge, cat.MemberLocations(), backend, userRepo, favoriteRepo, service.StatsOptions{
		CacheTTL:      cfg.StatsCacheTTL,
		MessagesLimit: cfg.StatsMessagesLimit,
		RecentLimit:   cfg.StatsRecentLimit,
		FanoutLimit:   cfg.StatsFanoutLimit,
	})
	statsHandler := handler.NewStatsHandler(statsService)

	subjectService := service.NewSubjectService(cat, directoryStore, bridge, subscriptionRepo, ownershipRepo, bus)
	subjectHandler := handler.NewSubjectHandler(subjectService)

	fileService := service.NewFileService(cat, bridge, staged, ownershipRepo, favoriteRepo, statsService, bus, service.FileOptions{
		MessagesLimit:      cfg.StatsMessagesLimit,
		FanoutLimit:        cfg.StatsFanoutLimit,
		InvalidateOnUpload: cfg.StatsInvalidateOnUpload,
	})
	fileHandler := handler.NewFileHandler(fileService)

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:    authHandler,
		Subject: subjectHandler,
		File:    fileHandler,
		Stats:   statsHandler,
		Health:  handler.NewHealthHandler(db),
	}, hub)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go expiredTokenSweeper(cleanupCtx, tokenRepo)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			func() {
				cleanupCancel()
			},
			func() {
				directoryStore.Close()
			},
			func() {
				db.Close()
			},
		},
	}, nil
}

// expiredTokenSweeper deletes expired refresh tokens hourly.
func expiredTokenSweeper(ctx context.Context, tokens *repository.TokenRepository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := tokens.CleanExpired(ctx)
			if err != nil {
				slog.Warn("expired token cleanup failed", "error", err)
				continue
			}
			if deleted > 0 {
				slog.Info("expired refresh tokens removed", "count", deleted)
			}
		}
	}
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
