package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"lendledger/internal/adapter/queue"
	repo "lendledger/internal/adapter/repository/mysql"
	"lendledger/internal/config"
	"lendledger/internal/infrastructure/db"
	"lendledger/internal/worker"
	"lendledger/pkg/logging"
)

func main() {
	// .env is optional outside local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	log := logging.Setup(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	log.Info("starting reminder-worker")

	gdb, err := db.OpenGorm(cfg.MySQLDSN(), logging.GormLevel(cfg.LogLevel))
	if err != nil {
		log.Error("mysql", "error", err)
		os.Exit(1)
	}

	q, err := queue.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		log.Error("amqp", "error", err)
		os.Exit(1)
	}
	defer q.Close()

	dispatcher := worker.NewReminderDispatcher(
		repo.NewLoanRepository(gdb),
		repo.NewReminderRepository(gdb),
		q,
		cfg.ReminderInterval,
		cfg.ReminderBatchSize,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error {
		err := q.ConsumeNotices(gctx, worker.LogDeliveries(log))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("reminder-worker stopped", "error", err)
		os.Exit(1)
	}
	log.Info("reminder-worker stopped")
}
