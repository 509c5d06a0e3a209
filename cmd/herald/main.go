package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heraldhq/herald/api"
	"github.com/heraldhq/herald/delivery"
	"github.com/heraldhq/herald/ingest"
	"github.com/heraldhq/herald/pkg/config"
	"github.com/heraldhq/herald/pkg/httpserver"
	"github.com/heraldhq/herald/pkg/logger"
	"github.com/heraldhq/herald/pkg/pg"
	"github.com/heraldhq/herald/pkg/queue"
	"github.com/heraldhq/herald/pkg/redis"
	"github.com/heraldhq/herald/storage"
	"github.com/heraldhq/herald/tunnel"
)

type appConfig struct {
	Env string `env:"HERALD_ENV" envDefault:"development"`

	PresenceTTL       time.Duration `env:"TUNNEL_PRESENCE_TTL" envDefault:"75s"`
	SchedulerInterval time.Duration `env:"SCHEDULER_CHECK_INTERVAL" envDefault:"30s"`
	DLQReportInterval time.Duration `env:"DLQ_REPORT_INTERVAL" envDefault:"5m"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("herald stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	_ = config.LoadEnv()

	var app appConfig
	if err := config.Load(&app); err != nil {
		return err
	}

	log := logger.New(logger.WithEnvironment(app.Env, "herald"))
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pgCfg pg.Config
	if err := config.Load(&pgCfg); err != nil {
		return err
	}
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	var redisCfg redis.Config
	if err := config.Load(&redisCfg); err != nil {
		return err
	}
	rdb, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	store := storage.New(pool)
	jobs := storage.NewQueueStorage(pool)

	enqueuer, err := queue.NewEnqueuer(jobs)
	if err != nil {
		return err
	}

	registry := tunnel.NewRegistry()
	presence := tunnel.NewPresenceStore(rdb, app.PresenceTTL)
	sessions := tunnel.NewHandler(registry, store,
		tunnel.WithPresence(presence),
		tunnel.WithSessionLogger(log))

	deliveryHandler := delivery.NewHandler(store, registry, enqueuer,
		delivery.WithHandlerLogger(log))

	var deliveryCfg delivery.Config
	if err := config.Load(&deliveryCfg); err != nil {
		return err
	}
	workers, err := delivery.NewWorkers(jobs, deliveryHandler, deliveryCfg, log)
	if err != nil {
		return err
	}

	scheduler, err := queue.NewScheduler(jobs,
		queue.WithCheckInterval(app.SchedulerInterval),
		queue.WithSchedulerLogger(log))
	if err != nil {
		return err
	}
	if err := scheduler.Register(delivery.BacklogReportKind, queue.Every(app.DLQReportInterval), delivery.LaneNormal); err != nil {
		return err
	}

	router := api.NewRouter(api.Dependencies{
		Ingest:   ingest.NewService(store, enqueuer, ingest.WithLogger(log)),
		Delivery: deliveryHandler,
		Tunnel:   sessions,
		Keys:     store,
		Health: []func(context.Context) error{
			pg.Healthcheck(pool),
			redis.Healthcheck(rdb),
		},
		Logger: log,
	})

	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return err
	}
	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))

	errCh := make(chan error, len(workers)+2)
	for _, w := range workers {
		go func() { errCh <- w.Start(ctx) }()
	}
	go func() { errCh <- scheduler.Start(ctx) }()
	go func() { errCh <- srv.Run(ctx, router) }()

	// The first failure (or the signal-triggered shutdown) wins; remaining
	// goroutines unwind through ctx.
	err = <-errCh
	stop()
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
