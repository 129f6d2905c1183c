package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dharness/stock-tracker/config"
	"github.com/dharness/stock-tracker/data"
	"github.com/dharness/stock-tracker/data/cache"
	"github.com/dharness/stock-tracker/data/repository/postgres"
	"github.com/dharness/stock-tracker/data/session"
	"github.com/dharness/stock-tracker/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/dharness/stock-tracker/internal/externalApi/moexApi"
	"github.com/dharness/stock-tracker/internal/reportGenerator/xlsxGenerator"
	"github.com/dharness/stock-tracker/internal/scheduler"
	"github.com/dharness/stock-tracker/internal/service/trackerService"
	"github.com/dharness/stock-tracker/internal/tgbot"
	"github.com/dharness/stock-tracker/internal/transport/telegram"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	redisSession := session.NewRedisSession(redisClient, cfg)

	moexApiClient := moexApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	googleCloudStorage := googleDriveApi.New(ctx, cfg)

	trackerSrv := trackerService.New(cfg, pgRepo, redisCache, moexApiClient, reportGenerator, googleCloudStorage)

	sched := scheduler.New()
	sched.NewIntervalJob("refresh prices", trackerSrv.RefreshPrices, cfg.Jobs.RefreshPricesInterval, true)
	sched.NewCrontabJob("delete old reports", googleCloudStorage.DeleteOldFiles, "0 0 3 * * *", false)
	sched.Start()
	defer sched.Stop()

	tgController := telegram.NewController(cfg, trackerSrv, redisSession)

	tgBot := tgbot.New(cfg, tgController, redisSession)
	tgBot.Start()
	defer tgBot.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
