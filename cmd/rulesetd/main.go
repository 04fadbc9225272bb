package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/ruleset-engine/internal/config"
	"github.com/danielpatrickdp/ruleset-engine/internal/logging"
	"github.com/danielpatrickdp/ruleset-engine/internal/pipeline"
	"github.com/danielpatrickdp/ruleset-engine/internal/rpc"
	"github.com/danielpatrickdp/ruleset-engine/internal/store"
	"github.com/danielpatrickdp/ruleset-engine/internal/verdict"
)

const shutdownGrace = 10 * time.Second

// #region main
func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(2)
	}

	err = run(cfg, logger)
	if err != nil {
		logger.Error("rulesetd exited", zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// #endregion main

// #region run
func run(cfg config.Config, logger *zap.Logger) error {
	s, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	opts := pipeline.Options{
		Store:        s,
		Logger:       logger,
		MaxTextBytes: cfg.MaxTextBytes,
		TriggerType:  "rpc",
	}
	if cfg.RedisURL != "" {
		client, err := verdict.ConnectRedis(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = client.Ping(ctx).Err()
		cancel()
		if err != nil {
			// verdicts still land in SQLite; publishing resumes once Redis is back
			logger.Warn("redis unreachable at startup", zap.String("url", cfg.RedisURL), zap.Error(err))
		}
		opts.Publisher = verdict.NewRedisPublisher(client, cfg.VerdictStream)
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	gs := grpc.NewServer(grpc.UnaryInterceptor(rpc.LoggingInterceptor(logger)))
	rpc.Register(gs, rpc.NewServer(pipeline.New(opts), rpc.ServerOptions{
		Logger:           logger,
		MaxTextBytes:     cfg.MaxTextBytes,
		DiversifyDefault: cfg.DiversifyEnabled,
	}))

	serveErr := make(chan error, 1)
	go func() { serveErr <- gs.Serve(lis) }()

	logger.Info("rulesetd ready",
		zap.String("addr", lis.Addr().String()),
		zap.String("db", cfg.DBPath),
		zap.Bool("publishing", opts.Publisher != nil),
		zap.Bool("diversify_default", cfg.DiversifyEnabled),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	done := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		logger.Warn("graceful stop timed out, forcing")
		gs.Stop()
	}
	return nil
}

// #endregion run
