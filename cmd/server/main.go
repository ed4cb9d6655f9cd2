package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/garyjia/trip-expense/internal/config"
	"github.com/garyjia/trip-expense/internal/container"
	httpapi "github.com/garyjia/trip-expense/internal/interfaces/http"
	"github.com/garyjia/trip-expense/pkg/utils"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.LoggerConfig("trip-expense"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Server exited successfully")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting trip expense service",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer c.Close()

	auth, err := httpapi.NewTokenAuthenticator(httpapi.AuthConfig{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
		Leeway: cfg.Auth.Leeway,
	})
	if err != nil {
		return err
	}

	services := c.Services()
	opts := []httpapi.ServerOption{
		httpapi.WithRequestObserver(c.Metrics().HTTP),
		httpapi.WithHealthChecker(c),
	}
	if reg := c.Metrics().Registry; reg != nil {
		opts = append(opts, httpapi.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	httpapi.Version = version
	serverCfg := httpapi.DefaultServerConfig()
	serverCfg.Host = cfg.Server.Host
	serverCfg.Port = cfg.Server.Port
	serverCfg.ReadTimeout = cfg.Server.ReadTimeout
	serverCfg.WriteTimeout = cfg.Server.WriteTimeout
	serverCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	serverCfg.MaxUploadBytes = cfg.Receipts.MaxFileSize + 1<<20

	server := httpapi.NewServer(serverCfg, httpapi.Services{
		Trips:         services.Trip,
		Advances:      services.Advance,
		Receipts:      services.Receipt,
		Settlements:   services.Settlement,
		Notifications: services.Notification,
		Settings:      services.Setting,
	}, auth, utils.NewKeyValueLogger(logger), opts...)

	// Start blocks until ctx is cancelled by a signal
	return server.Start(ctx)
}
