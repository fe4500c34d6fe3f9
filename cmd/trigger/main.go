package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	appconfig "krakensync/config"
	"krakensync/internal/job"
	"krakensync/logger"
	"krakensync/trigger"
)

const defaultConfigPath = "config/config.yml"

func main() {
	log := logger.GetLogger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := appconfig.LoadConfig(appconfig.ResolveConfigPath(*configPath, defaultConfigPath))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Krakensync.Name,
		"version": cfg.Krakensync.Version,
	}).Info("starting sync trigger service")

	if cfg.Logging.DashboardName != "" {
		logger.InitCloudWatch(cfg.Storage.S3.Region, cfg.Logging.DashboardName)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.StartReport(ctx, log, 5*time.Minute)

	runner, err := job.NewRunner(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("Failed to initialize sync job")
		os.Exit(1)
	}
	defer runner.Close(context.Background())

	server := trigger.NewServer(cfg, runner)
	if err := server.Run(ctx); err != nil {
		log.WithError(err).Error("Trigger service failed")
		os.Exit(1)
	}
}
