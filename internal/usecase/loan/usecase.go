package loan

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"lendledger/internal/domain/account"
	domain "lendledger/internal/domain/loan"
	"lendledger/internal/domain/reminder"
	"lendledger/internal/domain/uow"
	"lendledger/internal/infrastructure/metrics"
	"lendledger/internal/ledger"
	"lendledger/pkg/id"
)

var ErrInvalidInput = errors.New("invalid input")

// upcoming reminders on the dashboard look this far ahead
const upcomingWindow = 7 * 24 * time.Hour

// SnapshotStore caches an owner's loan collection per version. Versions only
// move forward, so a stored snapshot is never rewritten.
type SnapshotStore interface {
	Version(ctx context.Context, ownerID string) (int64, error)
	Load(ctx context.Context, ownerID string, version int64) ([]domain.Loan, bool, error)
	Store(ctx context.Context, ownerID string, version int64, loans []domain.Loan) error
	Bump(ctx context.Context, ownerID string) (int64, error)
}

type Publisher interface {
	PublishChange(ctx context.Context, ev domain.ChangeEvent) error
}

type Usecase struct {
	repo      domain.Repository
	reminders reminder.Repository
	accounts  account.Repository
	uow       uow.UnitOfWork

	snapshots SnapshotStore
	publisher Publisher
	plan      Plan
	log       *slog.Logger
}

// NewUsecase: reminders and accounts may be nil (no upcoming count, everyone on free).
func NewUsecase(loans domain.Repository, reminders reminder.Repository, accounts account.Repository, tx uow.UnitOfWork) *Usecase {
	return &Usecase{
		repo:      loans,
		reminders: reminders,
		accounts:  accounts,
		uow:       tx,
		plan:      Plan{FreeActiveLoanLimit: 5, DefaultCurrency: "INR"},
		log:       slog.Default().With("component", "loan_usecase"),
	}
}

func (u *Usecase) WithSnapshots(s SnapshotStore) *Usecase { u.snapshots = s; return u }
func (u *Usecase) WithPublisher(p Publisher) *Usecase     { u.publisher = p; return u }
func (u *Usecase) WithPlan(p Plan) *Usecase {
	if p.FreeActiveLoanLimit > 0 {
		u.plan.FreeActiveLoanLimit = p.FreeActiveLoanLimit
	}
	if p.DefaultCurrency != "" {
		u.plan.DefaultCurrency = strings.ToUpper(p.DefaultCurrency)
	}
	return u
}

func (u *Usecase) Create(ctx context.Context, ownerID string, in CreateLoanInput, now time.Time) (*LoanDTO, error) {
	if !id.Valid(ownerID) {
		return nil, fmt.Errorf("%w: owner id", ErrInvalidInput)
	}
	if !in.Principal.IsPositive() {
		return nil, fmt.Errorf("%w: principal must be positive", ErrInvalidInput)
	}

	if u.uow == nil {
		return nil, errors.New("create requires a unit of work")
	}
	// provision outside the tx so the lock below has a row to take
	if _, err := u.account(ctx, ownerID); err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = u.plan.DefaultCurrency
	}
	l := &domain.Loan{
		LoanID:            id.NewID32(),
		OwnerID:           ownerID,
		Direction:         in.Direction,
		CounterpartyName:  strings.TrimSpace(in.CounterpartyName),
		CounterpartyEmail: strings.TrimSpace(in.CounterpartyEmail),
		CounterpartyPhone: strings.TrimSpace(in.CounterpartyPhone),
		Principal:         in.Principal,
		Currency:          currency,
		InterestRate:      in.InterestRate,
		Status:            domain.StatusActive,
		DueAt:             in.DueAt.UTC(),
		Notes:             in.Notes,
	}

	// count and insert under the owner's account row lock so concurrent
	// creates cannot both pass the active-loan limit
	err := u.withinOwnerTx(ctx, ownerID, func(r uow.Repos, acct *account.Account) error {
		limits := account.LimitsFor(acct.Tier, u.plan.FreeActiveLoanLimit)
		if in.InterestRate != nil && !limits.Interest {
			return fmt.Errorf("%w: interest rate tracking", domain.ErrPremiumRequired)
		}
		if currency != u.plan.DefaultCurrency && !limits.MultiCurrency {
			return fmt.Errorf("%w: currency %s", domain.ErrPremiumRequired, currency)
		}
		if limits.ActiveLoanLimit > 0 {
			n, err := r.Loans.CountOutstandingByOwner(ctx, ownerID)
			if err != nil {
				return err
			}
			if n >= int64(limits.ActiveLoanLimit) {
				return fmt.Errorf("%w (%d)", domain.ErrActiveLoanLimit, limits.ActiveLoanLimit)
			}
		}
		if err := l.Validate(); err != nil {
			return err
		}
		return r.Loans.Create(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	u.changed(ctx, ownerID, l.LoanID, domain.ChangeCreated)

	dto := toDTO(l, now)
	return &dto, nil
}

func (u *Usecase) Get(ctx context.Context, ownerID, loanID string, now time.Time) (*LoanDetailDTO, error) {
	l, err := u.repo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, notFound(err)
	}
	if l.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	loans, _, err := u.snapshot(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	score := ledger.ReliabilityScore(loans, l.CounterpartyName, now)
	return &LoanDetailDTO{
		LoanDTO:         toDTO(l, now),
		Reliability:     score,
		ReliabilityBand: ledger.ReliabilityBand(score),
	}, nil
}

func (u *Usecase) List(ctx context.Context, ownerID, filter, query string, now time.Time) (*ListDTO, error) {
	f, err := ledger.ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	loans, ver, err := u.snapshot(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	items := toDTOs(ledger.VisibleLoans(loans, f, query, now), now)
	return &ListDTO{Filter: f, Query: query, Count: len(items), Version: ver, Items: items}, nil
}

// Settle locks the loan, marks it settled and switches its reminders off.
func (u *Usecase) Settle(ctx context.Context, ownerID, loanID string, now time.Time) (*LoanDTO, error) {
	if u.uow == nil {
		return nil, errors.New("settle requires a unit of work")
	}
	var dto *LoanDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if l.OwnerID != ownerID {
			return domain.ErrNotFound
		}
		if err := l.Settle(now); err != nil {
			return err
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		if err := r.Reminders.DisableByLoanID(ctx, l.ID); err != nil {
			return err
		}
		d := toDTO(l, now)
		dto = &d
		return nil
	})
	if err != nil {
		return nil, notFound(err)
	}
	u.changed(ctx, ownerID, loanID, domain.ChangeSettled)
	return dto, nil
}

func (u *Usecase) Delete(ctx context.Context, ownerID, loanID string) error {
	if u.uow == nil {
		return errors.New("delete requires a unit of work")
	}
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if l.OwnerID != ownerID {
			return domain.ErrNotFound
		}
		if err := r.Reminders.DeleteByLoanID(ctx, l.ID); err != nil {
			return err
		}
		return r.Loans.Delete(ctx, l)
	})
	if err != nil {
		return notFound(err)
	}
	u.changed(ctx, ownerID, loanID, domain.ChangeDeleted)
	return nil
}

func (u *Usecase) Dashboard(ctx context.Context, ownerID string, now time.Time) (*DashboardDTO, error) {
	loans, ver, err := u.snapshot(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	acct, err := u.account(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	stats := ledger.Aggregate(loans, now)
	if n := len(stats.Invalid); n > 0 {
		metrics.InvalidRecords.Add(float64(n))
		u.log.Warn("skipped invalid loan records", "owner_id", ownerID, "count", n)
	}

	var upcoming int64
	if u.reminders != nil {
		upcoming, err = u.reminders.CountUpcomingByOwner(ctx, ownerID, now, now.Add(upcomingWindow))
		if err != nil {
			return nil, err
		}
	}

	return &DashboardDTO{
		DashboardStats:       stats,
		TotalLentDisplay:     ledger.FormatCurrency(stats.TotalLent, u.plan.DefaultCurrency),
		TotalBorrowedDisplay: ledger.FormatCurrency(stats.TotalBorrowed, u.plan.DefaultCurrency),
		LentByMonth:          ledger.LentByMonth(loans),
		Counterparties:       ledger.Counterparties(loans, now),
		UpcomingReminders:    upcoming,
		Tier:                 acct.Tier,
		Limits:               account.LimitsFor(acct.Tier, u.plan.FreeActiveLoanLimit),
		Version:              ver,
	}, nil
}

func (u *Usecase) Reliability(ctx context.Context, ownerID, counterparty string, now time.Time) (*ReliabilityDTO, error) {
	name := strings.TrimSpace(counterparty)
	if name == "" {
		return nil, fmt.Errorf("%w: counterparty name is required", ErrInvalidInput)
	}
	loans, _, err := u.snapshot(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	score := ledger.ReliabilityScore(loans, name, now)
	return &ReliabilityDTO{Counterparty: name, Score: score, Band: ledger.ReliabilityBand(score)}, nil
}

func (u *Usecase) Counterparties(ctx context.Context, ownerID string, now time.Time) ([]ledger.Counterparty, error) {
	loans, _, err := u.snapshot(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return ledger.Counterparties(loans, now), nil
}

var csvHeader = []string{"loan_id", "direction", "counterparty", "principal", "currency", "status", "due_date", "settled_date", "days_overdue", "notes"}

// ExportCSV writes one row per loan with its resolved status. Premium only.
func (u *Usecase) ExportCSV(ctx context.Context, ownerID string, w io.Writer, now time.Time) error {
	acct, err := u.account(ctx, ownerID)
	if err != nil {
		return err
	}
	if !account.LimitsFor(acct.Tier, u.plan.FreeActiveLoanLimit).CSVExport {
		return fmt.Errorf("%w: csv export", domain.ErrPremiumRequired)
	}
	loans, _, err := u.snapshot(ctx, ownerID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range loans {
		l := &loans[i]
		settled := ""
		if l.SettledAt != nil {
			settled = l.SettledAt.Format(time.DateOnly)
		}
		row := []string{
			l.LoanID,
			string(l.Direction),
			l.CounterpartyName,
			l.Principal.StringFixed(2),
			l.Currency,
			string(l.ResolveStatus(now)),
			l.DueAt.Format(time.DateOnly),
			settled,
			fmt.Sprint(ledger.DaysOverdue(l.DueAt, now)),
			l.Notes,
		}
		if l.Status == domain.StatusSettled {
			row[8] = "0"
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Import stores backend-exported records for one owner. Records that fail
// FromRecord are reported and skipped; ids that are not 32-char hex are
// replaced. Plan limits do not apply.
func (u *Usecase) Import(ctx context.Context, ownerID string, records []domain.Record) (*ImportResult, error) {
	if !id.Valid(ownerID) {
		return nil, fmt.Errorf("%w: owner id", ErrInvalidInput)
	}
	if u.uow == nil {
		return nil, errors.New("import requires a unit of work")
	}

	res := &ImportResult{}
	var valid []*domain.Loan
	for i, rec := range records {
		l, err := domain.FromRecord(rec, ownerID)
		if err != nil {
			res.Rejected = append(res.Rejected, ledger.RecordIssue{Index: i, LoanID: rec.ID, Reason: err.Error()})
			continue
		}
		if !id.Valid(l.LoanID) {
			l.LoanID = id.NewID32()
		}
		valid = append(valid, l)
	}
	if len(valid) == 0 {
		return res, nil
	}

	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		for _, l := range valid {
			if err := r.Loans.Create(ctx, l); err != nil {
				return fmt.Errorf("import %s: %w", l.LoanID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Imported = len(valid)
	u.changed(ctx, ownerID, "", domain.ChangeCreated)
	return res, nil
}

// account returns the owner's account, creating a free one on first use.
func (u *Usecase) account(ctx context.Context, ownerID string) (*account.Account, error) {
	if u.accounts == nil {
		return &account.Account{OwnerID: ownerID, Tier: account.TierFree}, nil
	}
	a, err := u.accounts.GetByOwnerID(ctx, ownerID)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, account.ErrNotFound) {
		return nil, err
	}
	a = &account.Account{OwnerID: ownerID, Tier: account.TierFree}
	if err := u.accounts.Create(ctx, a); err != nil {
		// a concurrent first request may have created it
		if existing, gerr := u.accounts.GetByOwnerID(ctx, ownerID); gerr == nil {
			return existing, nil
		}
		return nil, err
	}
	u.log.Info("account created", "owner_id", ownerID, "tier", a.Tier)
	return a, nil
}

// withinOwnerTx locks the owner's account row for fn. Without an account
// repository everyone is free and there is no row to lock.
func (u *Usecase) withinOwnerTx(ctx context.Context, ownerID string, fn func(r uow.Repos, a *account.Account) error) error {
	if u.accounts == nil {
		return u.uow.WithinTx(ctx, func(r uow.Repos) error {
			return fn(r, &account.Account{OwnerID: ownerID, Tier: account.TierFree})
		})
	}
	return u.uow.WithinOwnerTx(ctx, ownerID, fn)
}

// snapshot returns the owner's collection and the version it belongs to.
// Cache trouble degrades to a repository read.
func (u *Usecase) snapshot(ctx context.Context, ownerID string) ([]domain.Loan, int64, error) {
	if u.snapshots == nil {
		loans, err := u.repo.ListByOwner(ctx, ownerID)
		return loans, 0, err
	}

	ver, err := u.snapshots.Version(ctx, ownerID)
	if err != nil {
		metrics.SnapshotLookups.WithLabelValues("error").Inc()
		u.log.Warn("snapshot version lookup failed", "owner_id", ownerID, "err", err)
		loans, err := u.repo.ListByOwner(ctx, ownerID)
		return loans, 0, err
	}

	loans, ok, err := u.snapshots.Load(ctx, ownerID, ver)
	switch {
	case err != nil:
		metrics.SnapshotLookups.WithLabelValues("error").Inc()
		u.log.Warn("snapshot load failed", "owner_id", ownerID, "version", ver, "err", err)
	case ok:
		metrics.SnapshotLookups.WithLabelValues("hit").Inc()
		return loans, ver, nil
	default:
		metrics.SnapshotLookups.WithLabelValues("miss").Inc()
	}

	loans, err = u.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}
	if err := u.snapshots.Store(ctx, ownerID, ver, loans); err != nil {
		u.log.Warn("snapshot store failed", "owner_id", ownerID, "version", ver, "err", err)
	}
	return loans, ver, nil
}

// changed runs after a committed mutation: bump the snapshot version, then
// tell subscribers. Failures are logged; the write already happened.
func (u *Usecase) changed(ctx context.Context, ownerID, loanID string, kind domain.ChangeKind) {
	metrics.LoanChanges.WithLabelValues(string(kind)).Inc()

	var ver int64
	if u.snapshots != nil {
		v, err := u.snapshots.Bump(ctx, ownerID)
		if err != nil {
			u.log.Warn("snapshot bump failed", "owner_id", ownerID, "err", err)
		}
		ver = v
	}
	if u.publisher == nil {
		return
	}
	ev := domain.ChangeEvent{
		EventID: uuid.NewString(),
		OwnerID: ownerID,
		LoanID:  loanID,
		Kind:    kind,
		Version: ver,
		At:      time.Now().UTC(),
	}
	if err := u.publisher.PublishChange(ctx, ev); err != nil {
		u.log.Warn("publish change failed", "owner_id", ownerID, "kind", kind, "err", err)
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
