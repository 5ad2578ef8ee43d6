package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/meetroom-backend/internal/captcha"
	"github.com/xela07ax/meetroom-backend/internal/handler"
	"github.com/xela07ax/meetroom-backend/internal/infra"
	"github.com/xela07ax/meetroom-backend/internal/infra/auth"
	"github.com/xela07ax/meetroom-backend/internal/mailer"
	"github.com/xela07ax/meetroom-backend/internal/repository/postgres"
	"github.com/xela07ax/meetroom-backend/internal/server"
	"github.com/xela07ax/meetroom-backend/internal/service"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Инфраструктура: Postgres и Redis.
	// На старте ждем готовности зависимостей с ретраями — внутри самого
	// auth-ядра ретраев нет, это только bootstrap.
	repo, err := postgres.NewUserRepo(appCtx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to init postgres pool", zap.Error(err))
	}
	defer repo.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := waitReady(appCtx, logger, "postgres", repo.Ping); err != nil {
		logger.Fatal("postgres unreachable", zap.Error(err))
	}
	if err := waitReady(appCtx, logger, "redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}); err != nil {
		logger.Fatal("redis unreachable", zap.Error(err))
	}

	// 3. Сборка слоев (Dependency Injection)
	tokens := auth.NewTokenService(
		[]byte(cfg.Auth.JWTSecret),
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	codeStore := captcha.NewRedisStore(rdb)
	mail := mailer.NewSMTPMailer(cfg.SMTP, logger)
	issuer := captcha.NewIssuer(codeStore, mail, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := handler.NewMetrics(registry)

	userSvc := service.NewUserService(repo, tokens, hasher, codeStore, logger)
	userH := handler.NewUserHandler(userSvc, metrics, logger)
	captchaH := handler.NewCaptchaHandler(issuer, metrics, logger)

	srv := server.NewServer(cfg, logger, tokens, userH, captchaH, metrics, registry)

	// 4. HTTP-сервер с graceful shutdown
	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server started", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// waitReady пингует зависимость с экспоненциальным бэкоффом.
func waitReady(ctx context.Context, logger *zap.Logger, name string, ping func(context.Context) error) error {
	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(5),
		retry.DelayType(retry.BackOffDelay),
	)

	return r.Do(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := ping(pingCtx); err != nil {
			logger.Warn("dependency not ready",
				zap.String("dependency", name), zap.Error(err))
			return err
		}
		return nil
	})
}
