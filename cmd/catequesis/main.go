package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/catequesis/catequesis-api/internal/activity"
	"github.com/catequesis/catequesis-api/internal/app"
	"github.com/catequesis/catequesis-api/internal/auth"
	"github.com/catequesis/catequesis-api/internal/catechesis/catechumens"
	"github.com/catequesis/catequesis-api/internal/catechesis/parishes"
	"github.com/catequesis/catequesis-api/internal/directory"
	"github.com/catequesis/catequesis-api/internal/gate"
	"github.com/catequesis/catequesis-api/internal/observability"
	"github.com/catequesis/catequesis-api/internal/platform/cache"
	"github.com/catequesis/catequesis-api/internal/platform/db"
	"github.com/catequesis/catequesis-api/internal/ratelimit"
	"github.com/catequesis/catequesis-api/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	group, ctx := errgroup.WithContext(ctx)

	var store ratelimit.Store
	memStore := ratelimit.NewMemoryStore()
	if cfg.RateLimitBackend == "redis" {
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		store = ratelimit.NewRedisStore(redisClient)
	} else {
		store = memStore
		group.Go(func() error {
			return memStore.Janitor(ctx, cfg.APIRateWindow)
		})
	}

	apiLimiter := ratelimit.New(store, "api", cfg.APIRateQuota, cfg.APIRateWindow)
	loginLimiter := ratelimit.New(store, "login", cfg.LoginRateQuota, cfg.LoginRateWindow)

	activityRepo := activity.NewRepository(pool)
	recorder := activity.NewRecorder(activityRepo, logger, cfg.ActivityBuffer)
	group.Go(func() error {
		return recorder.Run(ctx)
	})

	accountsRepo := directory.NewRepository(pool)
	accountsService := directory.NewService(accountsRepo)

	issuer := auth.NewIssuer([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTTTL)
	authService := auth.NewService(accountsService, issuer)

	metrics := observability.NewMetrics(recorder.Dropped)

	verifier := gate.NewVerifier([]byte(cfg.JWTSecret), cfg.JWTIssuer)
	resolver := gate.NewResolver(accountsService)
	pipeline := gate.NewPipeline(verifier, resolver, logger)
	guard := gate.NewMiddleware(gate.MiddlewareConfig{
		Pipeline: pipeline,
		Limiter:  apiLimiter,
		Recorder: recorder,
		Logger:   logger,
		ObserveRejection: func(kind gate.Kind) {
			metrics.ObserveRejection(string(kind))
		},
	})

	authHandler := auth.NewHandler(logger, authService, recorder, loginLimiter)
	usersHandler := directory.NewHandler(logger, accountsService)

	parishRepo := parishes.NewRepository(pool)
	parishService := parishes.NewService(parishRepo)
	parishHandler := parishes.NewHandler(logger, parishService)

	catechumenRepo := catechumens.NewRepository(pool)
	catechumenService := catechumens.NewService(catechumenRepo)
	catechumenHandler := catechumens.NewHandler(logger, catechumenService)

	activityHandler := activity.NewHandler(logger, activityRepo)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Guard:              guard,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		ParishesHandler:    parishHandler,
		CatechumensHandler: catechumenHandler,
		ActivityHandler:    activityHandler,
		JobsHandler:        jobsHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		logger.Error("shutdown", slog.Any("error", err))
		os.Exit(1)
	}
}
