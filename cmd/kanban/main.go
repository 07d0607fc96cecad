package main

import (
	"fmt"
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"

	"kanban/internal/config"
	"kanban/internal/coordinator"
	"kanban/internal/logging"
	"kanban/internal/notify"
	"kanban/internal/remote"
	"kanban/internal/storage"
	"kanban/internal/store"
	"kanban/internal/ui"
)

func main() {
	configPath := config.ResolveConfigPath()
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := log.StandardLogger()
	closer, err := logging.Setup(logger, logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Printf("failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	var svc remote.Service
	if cfg.APIURL != "" {
		svc = remote.NewHTTP(cfg.APIURL, cfg.UserID, logger,
			remote.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout.Std()}),
			remote.WithBreaker(remote.BreakerSettings{
				MaxRequests:         cfg.Breaker.MaxRequests,
				Interval:            cfg.Breaker.Interval.Std(),
				Timeout:             cfg.Breaker.Timeout.Std(),
				ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
			}),
		)
		logger.WithField("api", cfg.APIURL).Info("using remote task service")
	} else {
		db, err := storage.Open(cfg.DBPath)
		if err != nil {
			fmt.Printf("failed to open database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
		svc = remote.NewLocal(db, cfg.UserID, logger)
		logger.WithField("db", cfg.DBPath).Info("using local task store")
	}

	toasts := notify.NewToasts(cfg.ToastTTL.Std(), 3)
	coord := coordinator.New(store.New(logger), svc, notify.Multi{toasts, notify.LogNotifier{Logger: logger}},
		coordinator.WithTimeout(cfg.RequestTimeout.Std()),
		coordinator.WithLogger(logger),
	)

	if err := ui.Run(coord, toasts, cfg); err != nil {
		fmt.Printf("error running program: %v\n", err)
		os.Exit(1)
	}
}
