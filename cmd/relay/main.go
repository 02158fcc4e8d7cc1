package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"
	"voxrelay/internal/audio"
	"voxrelay/internal/config"
	"voxrelay/internal/engine"
	"voxrelay/internal/recog"
	"voxrelay/internal/telegram"
	"voxrelay/pkg/cache"
	"voxrelay/pkg/logger"
	"voxrelay/pkg/resilience"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file first
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to the config file (default $VOXRELAY_CONFIG or configs/config.yaml)")
	debug := flag.Bool("debug", false, "Enable development logging")
	flag.Parse()

	if err := logger.Init(*debug); err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Starting voxrelay")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := engine.Build(ctx, cfg.SpeechAPI, audio.NewFFmpeg(cfg.Audio.FFmpeg))
	if registry.Empty() {
		logger.Warn("No speech engine configured, commands will report it and voice messages pass through")
	}

	dispatcher := recog.NewDispatcher(registry,
		recog.WithConcurrency(cfg.Dispatch.Concurrency),
		recog.WithCallTimeout(cfg.Dispatch.Timeout),
		recog.WithCircuitBreakers(cfg.Dispatch.BreakerFailures, cfg.Dispatch.BreakerCooldown),
	)

	var (
		redisCache cache.Cache
		policy     recog.AutoPolicy = recog.StaticAuto(cfg.AutoEnabled())
	)
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("Redis unavailable, per-chat settings disabled", zap.Error(err))
		} else {
			defer rc.Close()
			redisCache = rc
			policy = telegram.NewChatPolicy(rc, cfg.AutoEnabled())
			logger.Info("Redis connection established")
		}
	}

	tb, err := telegram.NewTeleBot(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
		return
	}

	// Telegram allows about 30 messages per second per bot.
	publisher := telegram.NewPublisher(tb, resilience.NewRateLimiter(30, time.Second/30))

	coordinator := recog.NewCoordinator(
		recog.NewClassifier(cfg.CommandPrefix, policy),
		dispatcher,
		publisher,
		recog.Options{
			Language:  cfg.Language,
			KeepMedia: cfg.KeepMedia,
		},
	)

	botInstance := telegram.NewBot(cfg, tb, coordinator, redisCache)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Starting Telegram bot")
		botInstance.Start()
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	botInstance.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := coordinator.Close(shutdownCtx); err != nil {
		logger.Warn("Transcription jobs did not finish before shutdown", zap.Error(err))
	}

	logger.Info("Relay shutdown complete")
}
