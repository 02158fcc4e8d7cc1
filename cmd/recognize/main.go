package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"voxrelay/internal/audio"
	"voxrelay/internal/config"
	"voxrelay/internal/engine"
	"voxrelay/internal/recog"
	"voxrelay/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to the config file (default $VOXRELAY_CONFIG or configs/config.yaml)")
	lang := flag.String("lang", "", "Language hint; empty uses each engine's default")
	debug := flag.Bool("debug", false, "Enable development logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <audio file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := logger.Init(*debug); err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	if _, err := os.Stat(path); err != nil {
		logger.Fatal("Audio file is not readable", zap.String("path", path), zap.Error(err))
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
		return
	}

	hint := *lang
	if hint == "" {
		hint = cfg.Language
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := engine.Build(ctx, cfg.SpeechAPI, audio.NewFFmpeg(cfg.Audio.FFmpeg))
	if registry.Empty() {
		fmt.Println(recog.NoEnginesText)
		os.Exit(1)
	}

	dispatcher := recog.NewDispatcher(registry,
		recog.WithConcurrency(cfg.Dispatch.Concurrency),
		recog.WithCallTimeout(cfg.Dispatch.Timeout),
	)

	reports := dispatcher.Dispatch(ctx, path, hint)
	fmt.Println(recog.Aggregate(reports))
}
