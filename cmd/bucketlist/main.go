package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/bucketlist/internal/auth"
	"github.com/abduss/bucketlist/internal/config"
	"github.com/abduss/bucketlist/internal/item"
	"github.com/abduss/bucketlist/internal/logger"
	"github.com/abduss/bucketlist/internal/media"
	"github.com/abduss/bucketlist/internal/metrics"
	"github.com/abduss/bucketlist/internal/server"
	"github.com/abduss/bucketlist/internal/storage"
	"github.com/abduss/bucketlist/internal/web"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	logg, err := logger.Init()
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer logg.Sync()

	cfg, err := config.Load()
	if err != nil {
		logg.Fatal("load config", zap.Error(err))
	}
	gin.SetMode(gin.ReleaseMode)
	metrics.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logg.Fatal("connect postgres", zap.Error(err))
	}
	defer dbPool.Close()

	if cfg.Postgres.ApplySchema {
		if err := storage.ApplySchema(ctx, dbPool); err != nil {
			logg.Fatal("apply schema", zap.Error(err))
		}
	}

	checks := []server.HealthCheck{{Name: "postgres", Check: dbPool.Ping}}

	records, recordCheck, closeRecords, err := openRecords(ctx, cfg, dbPool)
	if err != nil {
		logg.Fatal("open record store", zap.String("driver", cfg.Records.Driver), zap.Error(err))
	}
	defer closeRecords()
	if recordCheck != nil {
		checks = append(checks, *recordCheck)
	}

	objects, mediaCheck, err := openMedia(ctx, cfg)
	if err != nil {
		logg.Fatal("open media store", zap.String("driver", cfg.Media.Driver), zap.Error(err))
	}
	checks = append(checks, mediaCheck)

	authService := auth.NewService(auth.NewRepository(dbPool), cfg.Auth)
	mediaService := media.NewService(objects, cfg.Media.Prefix, cfg.Media.URLTTL)
	itemService := item.NewService(records, mediaService,
		item.WithLogger(logg.Named("items")),
		item.WithMaxUpload(cfg.Media.MaxUpload),
	)

	templates, err := web.Templates()
	if err != nil {
		logg.Fatal("parse templates", zap.Error(err))
	}

	router := server.NewRouter(server.Dependencies{
		Config:      cfg,
		Templates:   templates,
		AuthService: authService,
		ItemService: itemService,
		Checks:      checks,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logg.Info("bucket list listening",
			zap.String("addr", cfg.Server.Address()),
			zap.String("records", cfg.Records.Driver),
			zap.String("media", cfg.Media.Driver),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logg.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("shutdown", zap.Error(err))
	}
}
