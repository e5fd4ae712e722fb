// Package cli holds the ledgerctl operator commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	cacheadp "lendledger/internal/adapter/cache"
	"lendledger/internal/adapter/notify"
	"lendledger/internal/adapter/repository/mysql"
	"lendledger/internal/config"
	"lendledger/internal/domain/account"
	"lendledger/internal/domain/loan"
	"lendledger/internal/domain/reminder"
	"lendledger/internal/domain/uow"
	"lendledger/internal/infrastructure/cache"
	"lendledger/internal/infrastructure/db"
	loanuc "lendledger/internal/usecase/loan"
	"lendledger/pkg/logging"
)

// Services is what the data commands need from storage.
type Services struct {
	Loans    *loanuc.Usecase
	Accounts account.Repository
	Close    func() error
}

// Env carries the process dependencies so commands can run against fakes.
type Env struct {
	Config  *config.Config
	Out     io.Writer
	Now     func() time.Time
	Open    func(ctx context.Context, cfg *config.Config) (*Services, error)
	Migrate func(dsn string, dir db.Direction) error
}

// DefaultEnv talks to the configured MySQL database.
func DefaultEnv(cfg *config.Config, out io.Writer) *Env {
	return &Env{
		Config:  cfg,
		Out:     out,
		Now:     func() time.Time { return time.Now().UTC() },
		Open:    openMySQL,
		Migrate: db.Migrate,
	}
}

func openMySQL(_ context.Context, cfg *config.Config) (*Services, error) {
	gdb, err := db.OpenGorm(cfg.MySQLDSN(), logging.GormLevel(cfg.LogLevel))
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	// writes here must move the API's snapshot version and reach SSE subscribers
	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	s := newServices(cfg, backend{
		loans:     mysql.NewLoanRepository(gdb),
		reminders: mysql.NewReminderRepository(gdb),
		accounts:  mysql.NewAccountRepository(gdb),
		tx:        mysql.NewGormUoW(gdb),
		rdb:       rdb,
	})
	s.Close = func() error { return errors.Join(rdb.Close(), sqlDB.Close()) }
	return s, nil
}

// backend is the storage a command run works against.
type backend struct {
	loans     loan.Repository
	reminders reminder.Repository
	accounts  account.Repository
	tx        uow.UnitOfWork
	rdb       *redis.Client
}

// newServices wires the loan usecase the way cmd/api does, so CLI writes
// bump the owner's snapshot version and publish change events.
func newServices(cfg *config.Config, b backend) *Services {
	uc := loanuc.NewUsecase(b.loans, b.reminders, b.accounts, b.tx).
		WithPlan(loanuc.Plan{FreeActiveLoanLimit: cfg.FreeActiveLoanLimit, DefaultCurrency: cfg.DefaultCurrency})
	if b.rdb != nil {
		uc.WithSnapshots(cacheadp.NewSnapshotCache(b.rdb, cfg.SnapshotTTL)).
			WithPublisher(notify.NewNotifier(b.rdb))
	}
	return &Services{Loans: uc, Accounts: b.accounts}
}

func NewRootCmd(env *Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operate a LendLedger deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(env.Out)

	root.AddCommand(
		newMigrateCmd(env),
		newSeedDemoCmd(env),
		newStatsCmd(env),
		newReliabilityCmd(env),
		newImportCmd(env),
		newPlanCmd(env),
		newTokenCmd(env),
	)
	return root
}

// withServices opens storage for one command run.
func (env *Env) withServices(ctx context.Context, fn func(s *Services) error) error {
	s, err := env.Open(ctx, env.Config)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if s.Close != nil {
		defer s.Close()
	}
	return fn(s)
}

func (env *Env) printJSON(v any) error {
	enc := json.NewEncoder(env.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
