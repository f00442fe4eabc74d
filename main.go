package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PRelay/global/config"
	"PRelay/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("[Config] load failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.JSON)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, err := newGateway(ctx, cfg)
	if err != nil {
		logger.Error("[Gateway] init failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("[Gateway] started",
		zap.String("node", cfg.NodeID),
		zap.String("store", cfg.Store.Driver),
		zap.String("sink", cfg.Sink.Driver),
		zap.Bool("redis", cfg.Redis.Enabled))

	if err := g.run(ctx); err != nil {
		logger.Error("[Gateway] stopped", zap.Error(err))
	}

	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	g.shutdown(sctx)
	logger.Info("[Gateway] bye")
}
