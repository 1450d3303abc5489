package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-vpn-subscription/internal/config"
	"telegram-vpn-subscription/internal/domain/model"
	"telegram-vpn-subscription/internal/domain/ports/adapter"
	"telegram-vpn-subscription/internal/domain/ports/repository"
	aiAdapters "telegram-vpn-subscription/internal/infra/adapters/ai"
	tele "telegram-vpn-subscription/internal/infra/adapters/telegram"
	"telegram-vpn-subscription/internal/infra/i18n"
	"telegram-vpn-subscription/internal/infra/jsonstore"
	"telegram-vpn-subscription/internal/infra/logging"
	"telegram-vpn-subscription/internal/infra/memstate"
	"telegram-vpn-subscription/internal/infra/metrics"
	red "telegram-vpn-subscription/internal/infra/redis"
	"telegram-vpn-subscription/internal/infra/remnawave"
	"telegram-vpn-subscription/internal/infra/web"
	"telegram-vpn-subscription/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (relaxed validation, noop classifier allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Runtime.Dev {
		log.Printf("[DEV MODE] Enabled")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Ledger ----
	store, err := jsonstore.NewStore(cfg.Ledger.Path, logger)
	if err != nil {
		log.Fatalf("ledger: %v", err)
	}
	defer func() {
		if err := store.Flush(); err != nil {
			logger.Error().Err(err).Msg("ledger flush on shutdown failed")
		}
	}()

	// ---- Conversation state (redis, or in-memory when unset) ----
	var states repository.StateRepository
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		states = red.NewStateRepo(redisClient)
		logger.Info().Str("addr", cfg.Redis.URL).Msg("redis state store connected")
	} else {
		states = memstate.NewStateRepo()
		logger.Warn().Msg("redis.url not set; conversation state is in-memory and lost on restart")
	}

	// ---- Slip classifier (Gemini -> OpenAI-compatible) ----
	var raw adapter.SlipClassifier
	switch {
	case cfg.Classifier.GeminiKey != "":
		raw, err = aiAdapters.NewGeminiClassifier(ctx, cfg.Classifier.GeminiKey, cfg.Classifier.GeminiURL, cfg.Classifier.Model)
		if err != nil {
			log.Fatalf("gemini classifier: %v", err)
		}
		logger.Info().Str("model", cfg.Classifier.Model).Msg("classifier: gemini")
	case cfg.Classifier.OpenAIKey != "":
		raw, err = aiAdapters.NewOpenAIClassifier(cfg.Classifier.OpenAIKey, cfg.Classifier.OpenAIBaseURL, cfg.Classifier.Model, cfg.Classifier.Timeout)
		if err != nil {
			log.Fatalf("openai classifier: %v", err)
		}
		logger.Info().Str("model", cfg.Classifier.Model).Msg("classifier: openai-compatible")
	default:
		// LoadConfig only lets this through in dev mode.
		raw = aiAdapters.NewNoopClassifier()
		logger.Warn().Msg("classifier: noop, every slip is approved")
	}
	classifier := aiAdapters.NewCheckedClassifier(raw, logger)

	// ---- Upstream panel ----
	gateway := remnawave.NewClient(cfg.Upstream.APIURL, cfg.Upstream.APIKey, cfg.Upstream.Timeout, logger)

	// ---- Use cases ----
	planUC := usecase.NewPlanUseCase(model.DefaultServicePlans(), model.DefaultPaymentMethods())
	promoUC := usecase.NewPromoUseCase(store)
	provisionUC := usecase.NewProvisionUseCase(gateway, cfg.Upstream.SquadUUID, logger)
	limiter := usecase.NewUploadLimiter()
	verifUC := usecase.NewVerificationUseCase(store, states, planUC, promoUC, classifier, provisionUC, limiter, cfg.Classifier.Timeout, logger)
	statsUC := usecase.NewStatsUseCase(store, gateway, planUC, logger)

	// ---- Translations ----
	bundle, err := i18n.NewBundle(i18n.LocalesFS)
	if err != nil {
		log.Fatalf("i18n: %v", err)
	}

	// ---- Telegram ----
	bot, err := tele.NewBot(&cfg.Bot, verifUC, statsUC, promoUC, planUC, store, bundle, logger)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}
	go func() {
		if err := bot.StartPolling(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("telegram polling stopped")
		}
	}()

	// ---- Ops HTTP server (health, metrics, stats API) ----
	srv := web.NewServer(statsUC, cfg.Web.JWTSecret, logger)
	go func() {
		if err := srv.Start(cfg.Web.Port); err != nil {
			logger.Error().Err(err).Msg("ops server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	bot.StopPolling()
	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Error().Err(err).Msg("ops server shutdown failed")
	}
	cancel()
}
