package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	cacheadp "lendledger/internal/adapter/cache"
	httpadp "lendledger/internal/adapter/http"
	mw "lendledger/internal/adapter/middleware"
	"lendledger/internal/adapter/notify"
	repo "lendledger/internal/adapter/repository/mysql"
	"lendledger/internal/config"
	"lendledger/internal/infrastructure/cache"
	"lendledger/internal/infrastructure/db"
	loanuc "lendledger/internal/usecase/loan"
	reminderuc "lendledger/internal/usecase/reminder"
	"lendledger/pkg/logging"
)

func main() {
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

	gdb, err := db.OpenGorm(cfg.MySQLDSN(), logging.GormLevel(cfg.LogLevel))
	if err != nil {
		log.Error("mysql", "error", err)
		os.Exit(1)
	}
	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Error("redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	loans := repo.NewLoanRepository(gdb)
	reminders := repo.NewReminderRepository(gdb)
	accounts := repo.NewAccountRepository(gdb)
	tx := repo.NewGormUoW(gdb)
	notifier := notify.NewNotifier(rdb)

	loanUC := loanuc.NewUsecase(loans, reminders, accounts, tx).
		WithSnapshots(cacheadp.NewSnapshotCache(rdb, cfg.SnapshotTTL)).
		WithPublisher(notifier).
		WithPlan(loanuc.Plan{FreeActiveLoanLimit: cfg.FreeActiveLoanLimit, DefaultCurrency: cfg.DefaultCurrency})
	reminderUC := reminderuc.NewUsecase(loans, reminders, tx).WithDefaultCurrency(cfg.DefaultCurrency)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				log.Warn("request", append(attrs, "error", v.Error)...)
				return nil
			}
			log.Info("request", attrs...)
			return nil
		},
	}))
	e.Use(mw.Metrics())

	tokens := mw.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	httpadp.RegisterRoutes(e, httpadp.Routes{
		Health:      httpadp.NewHandler(),
		Loans:       httpadp.NewLoanHandler(loanUC),
		Reminders:   httpadp.NewReminderHandler(reminderUC),
		Events:      httpadp.NewEventsHandler(notifier, 0),
		Auth:        mw.Auth(tokens),
		Idempotency: mw.Idempotency(rdb, cfg.IdempTTL()),
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.AppPort
		log.Info("listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
