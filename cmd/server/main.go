package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	log "github.com/sirupsen/logrus"

	"task-tracker/internal/api"
	"task-tracker/internal/config"
	"task-tracker/internal/db"
	"task-tracker/pkg/task"
)

func main() {
	configPath := flag.String("config", "", "path to a .env or YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx := context.Background()
	storage, err := db.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("open storage")
	}

	webDir := cfg.WebDir
	if info, err := os.Stat(webDir); webDir != "" && (err != nil || !info.IsDir()) {
		logger.WithField("dir", webDir).Warn("web client not found, static serving disabled")
		webDir = ""
	}

	svc := task.NewService(storage.Store, log.NewEntry(logger))
	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: api.New(svc, api.Options{
			Logger: logger,
			WebDir: webDir,
			Ping:   storage.Ping,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(log.Fields{
			"addr":   srv.Addr,
			"driver": cfg.Database.Driver,
		}).Info("task-tracker listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("listen")
		}
	}()

	wait := gfshutdown.GracefulShutdown(ctx, cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		// Drain requests before the pool goes away.
		"http-server": func(ctx context.Context) error {
			defer storage.Close()
			return srv.Shutdown(ctx)
		},
	})
	code := <-wait
	logger.WithField("code", code).Info("shutdown complete")
	os.Exit(code)
}
