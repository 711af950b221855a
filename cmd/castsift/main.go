// Command castsift consumes an upstream cast feed, evaluates every cast
// against registered subscription prompts through an LLM gateway, and serves
// matching casts to subscribers over per-prompt SSE streams.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/castsift/castsift/internal/api"
	"github.com/castsift/castsift/internal/config"
	"github.com/castsift/castsift/internal/dispatch"
	"github.com/castsift/castsift/internal/eval"
	"github.com/castsift/castsift/internal/feed"
	"github.com/castsift/castsift/internal/httpx"
	"github.com/castsift/castsift/internal/llm"
	"github.com/castsift/castsift/internal/logger"
	"github.com/castsift/castsift/internal/profiling"
	"github.com/castsift/castsift/internal/promptstore"
	"github.com/castsift/castsift/internal/registry"
	"github.com/castsift/castsift/internal/telemetry"
)

const (
	serviceName     = "castsift"
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load(config.GetConfigPath("config.yml"))
	if err != nil {
		logger.Must(logger.Config{Level: "debug"}).Fatal("failed to load config", logger.Error(err))
	}

	logCfg := cfg.Logging
	if cfg.Debug {
		logCfg.Level = "debug"
		logCfg.Development = true
	}
	log := logger.Must(logCfg)
	defer func() { _ = log.Sync() }()

	provider, err := llm.ParseProvider(cfg.LLM.Provider)
	if err != nil {
		log.Fatal("invalid llm provider", logger.Error(err))
	}

	profiler, err := profiling.Start(serviceName)
	if err != nil {
		log.Warn("continuous profiling unavailable", logger.Error(err))
	}
	defer func() { _ = profiler.Stop() }()

	tel := telemetry.NewProvider()

	// Evaluation pipeline
	templates := promptstore.NewClient(cfg.Templates)
	gateway := llm.NewGateway(cfg.LLM, httpx.NewDefaultClient(), log)
	engine := eval.NewEngine(templates, gateway, provider, log)

	// Fan-out pipeline
	reg := registry.New(cfg.Dispatch.QueueSize, log)
	dispatcher := dispatch.New(reg, engine, cfg.Dispatch.EvalConcurrency, tel, log)
	connector := feed.New(cfg.Feed, dispatcher, tel, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connector.Start(ctx)

	router := api.NewRouter(reg, connector, tel, cfg.Server.KeepaliveInterval, log)
	server := &http.Server{
		Addr:        cfg.Server.Address,
		Handler:     router.Engine(cfg.Debug),
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout stays zero: SSE responses are open-ended.
	}

	go func() {
		log.Info("starting castsift server",
			logger.String("address", cfg.Server.Address),
			logger.String("provider", string(provider)),
			logger.String("feed_url", cfg.Feed.FeedURL()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", logger.Error(err))
	}

	connector.Stop()
	log.Info("castsift exited")
}
