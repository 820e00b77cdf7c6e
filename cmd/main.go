package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmarkov/finance_tracker/config"
	"github.com/dmarkov/finance_tracker/data"
	"github.com/dmarkov/finance_tracker/data/cache"
	"github.com/dmarkov/finance_tracker/data/repository/sqlite"
	"github.com/dmarkov/finance_tracker/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/dmarkov/finance_tracker/internal/externalApi/quoteApi"
	"github.com/dmarkov/finance_tracker/internal/reportGenerator/xlsxGenerator"
	"github.com/dmarkov/finance_tracker/internal/scheduler"
	"github.com/dmarkov/finance_tracker/internal/service/financeService"
	"github.com/dmarkov/finance_tracker/utils"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbClient := data.NewSqliteClient(cfg)
	defer dbClient.Close()

	repo := sqlite.NewSqlite(cfg, dbClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	quoteCache := cache.NewRedisCache(redisClient, cfg)

	quoteApiClient := quoteApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	googleCloudStorage := googleDriveApi.New(ctx, cfg)

	financeSrv := financeService.New(cfg, repo, quoteCache, quoteApiClient, reportGenerator, googleCloudStorage)

	if cfg.Demo.SeedOnStart {
		if err := financeSrv.SeedDemoData(utils.NewCtxWithRqID(ctx)); err != nil {
			slog.Error("demo seed failed", slog.String("err", err.Error()))
		}
	}

	sched := scheduler.New()
	sched.NewIntervalJob("refresh quotes cache", financeSrv.RefreshQuotes, cfg.Jobs.RefreshQuotesInterval, true)
	sched.NewIntervalJob("cleanup cloud backups", financeSrv.CleanupCloudBackups, cfg.Jobs.DriveCleanupInterval, false)
	sched.NewCrontabJob("database backup", func(ctx context.Context) error {
		_, err := financeSrv.BackupDatabase(ctx)
		return err
	}, cfg.Jobs.BackupCrontab, false)
	sched.Start()
	defer sched.Stop()

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
