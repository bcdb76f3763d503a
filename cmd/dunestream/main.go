// Package main is the entry point for the headless terrain streamer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/dunestream/internal/config"
	"github.com/Faultbox/dunestream/internal/logger"
	"github.com/Faultbox/dunestream/internal/streamer"
)

func main() {
	os.Exit(run())
}

func run() int {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return 1
	}

	if path := config.WriteConfigPath(); path != "" {
		if err := cfg.SaveTo(path); err != nil {
			fmt.Fprintf(os.Stderr, "Config write error: %v\n", err)
			return 1
		}
		fmt.Printf("config written to %s\n", path)
		return 0
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Info("=== Dunestream ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	path, err := streamer.NewPath(cfg.Viewer)
	if err != nil {
		logger.Error("invalid viewer path", zap.Error(err))
		return 1
	}

	s, err := streamer.New(cfg)
	if err != nil {
		logger.Error("failed to create streamer", zap.Error(err))
		return 1
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum := s.Run(ctx, path)
	logger.Info("streamer stopped normally",
		zap.Int("ticks", sum.Ticks),
		zap.Int("visible", sum.Chunks.Visible),
		zap.Int("stalled", len(s.Grid().Stalled())),
	)
	return 0
}
