package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"whiteboard/internal/api"
	"whiteboard/internal/config"
	"whiteboard/internal/events"
	"whiteboard/internal/metrics"
	"whiteboard/internal/routers"
	"whiteboard/internal/session"
	"whiteboard/internal/utils"
)

var (
	listenAndServe = func(addr string, handler http.Handler) error {
		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		return srv.ListenAndServe()
	}
	exitFunc = defaultExit
	exit     = os.Exit
)

func main() {
	if err := run(context.Background()); err != nil {
		exitFunc(err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := utils.NewLogger(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	observers := []session.Observer{metrics.Recorder{}}
	if cfg.RedisAddr != "" {
		rdb, err := events.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()

		pub := events.NewRedisPublisher(rdb, cfg.RedisChannel, logger.Named("events"))
		defer pub.Close()
		observers = append(observers, pub)
	}

	hub := session.NewHub(
		session.WithLogger(logger.Named("session")),
		session.WithObserver(session.Observers(observers...)),
	)

	h := api.NewHandlers(logger.Named("api"), hub, cfg.AllowedOrigins, session.ClientConfig{
		SendBuffer:     cfg.SendBuffer,
		WriteTimeout:   cfg.WriteTimeout,
		PingInterval:   cfg.PingInterval,
		PongTimeout:    cfg.PongTimeout,
		MaxMessageSize: cfg.MaxMessageSize,
	})

	logger.Info("whiteboard-svc listening",
		zap.String("addr", cfg.Addr()),
		zap.Bool("events", cfg.RedisAddr != ""))
	return listenAndServe(cfg.Addr(), routers.New(h, cfg.AllowedOrigins))
}

func defaultExit(err error) {
	log.Printf("whiteboard-svc: %v", err)
	exit(1)
}
