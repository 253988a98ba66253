package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"social-hub/config"
	"social-hub/controllers"
	"social-hub/middlewares"
	"social-hub/models"
	"social-hub/routes"
	"social-hub/services"
	"social-hub/utils"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)

	// 初始化数据库
	db, err := config.InitDB(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	// 自动迁移
	if err := models.Migrate(db); err != nil {
		log.WithError(err).Fatal("migrate database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := services.NewStore(db)
	tokens := services.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	hubCfg := services.DefaultHubConfig()
	hubCfg.AuthMode = services.AuthMode(cfg.WSAuthMode)
	hubCfg.Scope = services.BroadcastScope(cfg.WSBroadcastScope)
	hubCfg.SendBuffer = cfg.WSSendBuffer
	hubCfg.MaxFrameBytes = cfg.WSMaxFrameBytes
	hub := services.NewHub(store, tokens, hubCfg, log)

	if cfg.RedisURL != "" {
		relay, err := services.NewRedisRelay(ctx, cfg.RedisURL, services.DefaultRelayChannel)
		if err != nil {
			log.WithError(err).Fatal("connect redis relay")
		}
		defer relay.Close()
		hub.SetRelay(relay)
		log.Info("cross-node relay enabled")
	}
	go func() {
		if err := hub.Run(ctx); err != nil {
			log.WithError(err).Error("relay consumer stopped")
		}
	}()

	sweeper, err := services.NewStorySweeper(store, cfg.StorySweepSpec, log)
	if err != nil {
		log.WithError(err).Fatal("story sweeper")
	}
	sweeper.Start()

	limiter := middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	limiter.StartCleanup(10*time.Minute, ctx.Done())

	// 注册路由
	r := routes.RegisterRoutes(routes.Deps{
		Controller:  controllers.New(store, tokens, hub, log),
		Tokens:      tokens,
		Limiter:     limiter,
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"addr": srv.Addr, "env": cfg.AppEnv}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	hub.Close()
	sweeper.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("bye")
}
