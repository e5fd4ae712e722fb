package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	mw "lendledger/internal/adapter/middleware"
	"lendledger/internal/domain/account"
	"lendledger/internal/domain/loan"
	"lendledger/internal/infrastructure/db"
	"lendledger/internal/ledger"
	"lendledger/pkg/id"
)

func ownerFlag(cmd *cobra.Command) {
	cmd.Flags().String("owner", "", "Owner id (32 hex chars)")
	_ = cmd.MarkFlagRequired("owner")
}

func owner(cmd *cobra.Command) (string, error) {
	o, _ := cmd.Flags().GetString("owner")
	if !id.Valid(o) {
		return "", fmt.Errorf("--owner must be 32 lowercase hex chars, got %q", o)
	}
	return o, nil
}

// ─── migrate ────────────────────────────────────────────────────────────────

func newMigrateCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the schema migrations",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(db.Up), string(db.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := db.Direction(args[0])
			if err := env.Migrate(env.Config.MySQLDSN(), dir); err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "migrations %s: done\n", dir)
			return nil
		},
	}
}

// ─── seed-demo ──────────────────────────────────────────────────────────────

// demoRecords are the three sample loans a fresh demo account starts with.
func demoRecords(now time.Time) []loan.Record {
	day := 24 * time.Hour
	at := func(d time.Duration) string { return now.Add(d).Format(time.RFC3339) }
	amt := func(v int64) *decimal.Decimal { d := decimal.NewFromInt(v); return &d }
	return []loan.Record{
		{ID: id.NewID32(), Type: "lent", ContactName: "John Doe", ContactEmail: "john@example.com",
			Amount: amt(1500), Currency: "USD", DueDate: at(7 * day), CreatedDate: at(0),
			Status: "active", Notes: "For car repair"},
		{ID: id.NewID32(), Type: "borrowed", ContactName: "Jane Smith",
			Amount: amt(2000), Currency: "USD", DueDate: at(-2 * day), CreatedDate: at(-30 * day),
			Status: "overdue", Notes: "Emergency fund"},
		{ID: id.NewID32(), Type: "lent", ContactName: "Bob Johnson",
			Amount: amt(500), Currency: "USD", DueDate: at(-10 * day), CreatedDate: at(-40 * day),
			Status: "settled", SettledDate: at(-5 * day)},
	}
}

func newSeedDemoCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-demo",
		Short: "Load the demo loans for an owner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := owner(cmd)
			if err != nil {
				return err
			}
			return env.withServices(cmd.Context(), func(s *Services) error {
				res, err := s.Loans.Import(cmd.Context(), o, demoRecords(env.Now()))
				if err != nil {
					return err
				}
				fmt.Fprintf(env.Out, "seeded %d demo loans for %s\n", res.Imported, o)
				return nil
			})
		},
	}
	ownerFlag(cmd)
	return cmd
}

// ─── stats / reliability ────────────────────────────────────────────────────

func newStatsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print an owner's dashboard rollup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := owner(cmd)
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			return env.withServices(cmd.Context(), func(s *Services) error {
				d, err := s.Loans.Dashboard(cmd.Context(), o, env.Now())
				if err != nil {
					return err
				}
				if asJSON {
					return env.printJSON(d)
				}
				fmt.Fprintf(env.Out, "tier:      %s\n", d.Tier)
				fmt.Fprintf(env.Out, "lent:      %s\n", d.TotalLentDisplay)
				fmt.Fprintf(env.Out, "borrowed:  %s\n", d.TotalBorrowedDisplay)
				fmt.Fprintf(env.Out, "active:    %d\n", d.ActiveCount)
				fmt.Fprintf(env.Out, "overdue:   %d\n", d.OverdueCount)
				fmt.Fprintf(env.Out, "settled:   %d\n", d.SettledCount)
				if n := len(d.Invalid); n > 0 {
					fmt.Fprintf(env.Out, "skipped:   %d invalid records\n", n)
				}
				return nil
			})
		},
	}
	ownerFlag(cmd)
	cmd.Flags().Bool("json", false, "Print the full dashboard as JSON")
	return cmd
}

func newReliabilityCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reliability",
		Short: "Score how reliably a counterparty settles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := owner(cmd)
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("name")
			return env.withServices(cmd.Context(), func(s *Services) error {
				r, err := s.Loans.Reliability(cmd.Context(), o, name, env.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(env.Out, "%s (%s): %d (%s)\n", r.Counterparty, ledger.Initials(r.Counterparty), r.Score, r.Band)
				return nil
			})
		},
	}
	ownerFlag(cmd)
	cmd.Flags().String("name", "", "Counterparty name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// ─── import ─────────────────────────────────────────────────────────────────

func newImportCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import loans exported from the hosted backend (JSON array)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := owner(cmd)
			if err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("file")
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			var records []loan.Record
			if err := json.Unmarshal(data, &records); err != nil {
				return fmt.Errorf("decode %s: %w", path, err)
			}
			return env.withServices(cmd.Context(), func(s *Services) error {
				res, err := s.Loans.Import(cmd.Context(), o, records)
				if err != nil {
					return err
				}
				return env.printJSON(res)
			})
		},
	}
	ownerFlag(cmd)
	cmd.Flags().StringP("file", "f", "", "Path to the exported JSON file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// ─── plan ───────────────────────────────────────────────────────────────────

func newPlanCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan free|premium",
		Short: "Move an owner to a plan tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := owner(cmd)
			if err != nil {
				return err
			}
			tier := account.Tier(args[0])
			if !tier.Valid() {
				return fmt.Errorf("unknown tier %q", args[0])
			}
			return env.withServices(cmd.Context(), func(s *Services) error {
				a, err := s.Accounts.GetByOwnerID(cmd.Context(), o)
				switch {
				case err == nil:
					a.Tier = tier
					err = s.Accounts.Save(cmd.Context(), a)
				case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, account.ErrNotFound):
					err = s.Accounts.Create(cmd.Context(), &account.Account{OwnerID: o, Tier: tier})
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(env.Out, "%s is now on %s\n", o, tier)
				return nil
			})
		},
	}
	ownerFlag(cmd)
	return cmd
}

// ─── token ──────────────────────────────────────────────────────────────────

func newTokenCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an owner (local testing)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := owner(cmd)
			if err != nil {
				return err
			}
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if ttl <= 0 {
				ttl = env.Config.JWTTTL
			}
			tm := mw.NewTokenManager(env.Config.JWTSecret, env.Config.JWTIssuer, ttl)
			tok, err := tm.Issue(o, env.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(env.Out, tok)
			return nil
		},
	}
	ownerFlag(cmd)
	cmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to JWT_TTL)")
	return cmd
}
