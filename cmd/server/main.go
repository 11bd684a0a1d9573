package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bentossell/fragg-sub002/internal/api"
	"github.com/bentossell/fragg-sub002/internal/cache"
	"github.com/bentossell/fragg-sub002/internal/config"
	"github.com/bentossell/fragg-sub002/internal/generator"
	"github.com/bentossell/fragg-sub002/internal/llm"
	"github.com/bentossell/fragg-sub002/internal/logging"
	"github.com/bentossell/fragg-sub002/internal/sandbox"
	"github.com/bentossell/fragg-sub002/internal/stream"
)

func main() {
	cfg := config.Load()

	logging.Init()
	defer logging.Sync()
	log := logging.L()

	var clients []llm.Client
	if cfg.AnthropicKey != "" {
		clients = append(clients, llm.NewAnthropicClient(cfg.AnthropicKey))
	}
	if cfg.OpenAIKey != "" {
		clients = append(clients, llm.NewOpenAIClient(cfg.OpenAIKey))
	}
	if len(clients) == 0 {
		log.Fatal("no provider API keys configured")
	}
	router := llm.NewRouter(clients...)

	genCfg := &generator.Config{CacheCapacity: cfg.CacheCapacity}
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL, cfg.RedisTTL)
		if err != nil {
			log.Warn("redis unavailable, using in-memory cache only", zap.Error(err))
		} else {
			defer redisCache.Close()
			genCfg.Cache = cache.NewTiered(generator.NewFIFOCache(cfg.CacheCapacity), redisCache)
		}
	}
	gen := generator.NewGenerator(router, genCfg)

	var runner *sandbox.Runner
	if cfg.ExecutionHostURL != "" {
		host := sandbox.NewHTTPHost(cfg.ExecutionHostURL, cfg.ExecutionHostToken)
		runner = sandbox.NewRunner(host, cfg.ReadyPollAttempts, cfg.ReadyPollInterval)
	} else {
		log.Warn("no execution host configured, previews disabled")
	}

	hub := stream.NewHub()
	go hub.Run()
	defer hub.Shutdown()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api.NewServer(gen, runner, hub).Register(engine)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // generation streams are long-lived
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
}
