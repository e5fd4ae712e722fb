package loan

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lendledger/internal/domain/account"
	domain "lendledger/internal/domain/loan"
	"lendledger/internal/domain/uow"
	"lendledger/internal/ledger"
	"lendledger/internal/testutil/accountmock"
	"lendledger/internal/testutil/loanmock"
	"lendledger/internal/testutil/remindermock"
	"lendledger/internal/testutil/uowmock"
)

var (
	owner = strings.Repeat("b", 32)
	now   = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
)

// ----- test doubles -----

type memSnapshots struct {
	ver    map[string]int64
	snaps  map[string][]domain.Loan
	stored int
	bumped int
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{ver: map[string]int64{}, snaps: map[string][]domain.Loan{}}
}
func (m *memSnapshots) key(o string, v int64) string { return fmt.Sprintf("%s/%d", o, v) }
func (m *memSnapshots) Version(_ context.Context, o string) (int64, error) {
	return m.ver[o], nil
}
func (m *memSnapshots) Load(_ context.Context, o string, v int64) ([]domain.Loan, bool, error) {
	s, ok := m.snaps[m.key(o, v)]
	return s, ok, nil
}
func (m *memSnapshots) Store(_ context.Context, o string, v int64, loans []domain.Loan) error {
	m.stored++
	m.snaps[m.key(o, v)] = loans
	return nil
}
func (m *memSnapshots) Bump(_ context.Context, o string) (int64, error) {
	m.bumped++
	m.ver[o]++
	return m.ver[o], nil
}

type recPublisher struct{ events []domain.ChangeEvent }

func (p *recPublisher) PublishChange(_ context.Context, ev domain.ChangeEvent) error {
	p.events = append(p.events, ev)
	return nil
}

func sampleLoans() []domain.Loan {
	settledAt := now.Add(-5 * 24 * time.Hour)
	return []domain.Loan{
		{ID: 1, LoanID: strings.Repeat("1", 32), OwnerID: owner, Direction: domain.DirectionLent, CounterpartyName: "John Doe",
			Principal: decimal.NewFromInt(1500), Currency: "INR", Status: domain.StatusActive, DueAt: now.Add(7 * 24 * time.Hour)},
		{ID: 2, LoanID: strings.Repeat("2", 32), OwnerID: owner, Direction: domain.DirectionBorrowed, CounterpartyName: "Jane Smith",
			Principal: decimal.NewFromInt(2000), Currency: "INR", Status: domain.StatusActive, DueAt: now.Add(-2 * 24 * time.Hour)},
		{ID: 3, LoanID: strings.Repeat("3", 32), OwnerID: owner, Direction: domain.DirectionLent, CounterpartyName: "Bob Johnson",
			Principal: decimal.NewFromInt(500), Currency: "INR", Status: domain.StatusSettled, DueAt: now.Add(-10 * 24 * time.Hour), SettledAt: &settledAt},
	}
}

func createInput() CreateLoanInput {
	return CreateLoanInput{
		Direction:        domain.DirectionLent,
		CounterpartyName: " John Doe ",
		Principal:        decimal.NewFromInt(1500),
		DueAt:            now.Add(7 * 24 * time.Hour),
		Notes:            "For car repair",
	}
}

// ownerTx runs WithinOwnerTx bodies directly against the mocks.
func ownerTx(loans *loanmock.Repo, accts *accountmock.Repo) *uowmock.UoW {
	return uowmock.Passthrough(uow.Repos{Loans: loans, Reminders: &remindermock.Repo{}, Accounts: accts})
}

// ----- Create -----

func TestCreate_Success(t *testing.T) {
	var created *domain.Loan
	loans := &loanmock.Repo{
		CountOutstandingByOwnerFn: func(context.Context, string) (int64, error) { return 4, nil },
		CreateFn: func(_ context.Context, l *domain.Loan) error {
			created = l
			return nil
		},
	}
	snaps, pub := newMemSnapshots(), &recPublisher{}
	accts := accountmock.Fixed(account.TierFree)
	uc := NewUsecase(loans, nil, accts, ownerTx(loans, accts)).WithSnapshots(snaps).WithPublisher(pub)

	dto, err := uc.Create(context.Background(), owner, createInput(), now)
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if len(dto.LoanID) != 32 || created == nil || created.LoanID != dto.LoanID {
		t.Fatalf("LoanID not propagated: dto=%+v created=%+v", dto, created)
	}
	if created.Status != domain.StatusActive || created.Currency != "INR" || created.CounterpartyName != "John Doe" {
		t.Fatalf("unexpected stored loan: %+v", created)
	}
	if dto.Status != "active" || dto.DaysUntilDue != 7 || dto.PrincipalDisplay == "" {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if snaps.bumped != 1 {
		t.Fatalf("snapshot version should be bumped once, got %d", snaps.bumped)
	}
	if len(pub.events) != 1 || pub.events[0].Kind != domain.ChangeCreated || pub.events[0].Version != 1 {
		t.Fatalf("unexpected events: %+v", pub.events)
	}
}

func TestCreate_PlanRules(t *testing.T) {
	rate := decimal.RequireFromString("2.5")

	tests := []struct {
		name    string
		tier    account.Tier
		count   int64
		mutate  func(in *CreateLoanInput)
		wantErr error
	}{
		{"free at limit", account.TierFree, 5, func(*CreateLoanInput) {}, domain.ErrActiveLoanLimit},
		{"free with interest", account.TierFree, 0, func(in *CreateLoanInput) { in.InterestRate = &rate }, domain.ErrPremiumRequired},
		{"free with foreign currency", account.TierFree, 0, func(in *CreateLoanInput) { in.Currency = "usd" }, domain.ErrPremiumRequired},
		{"premium ignores limit", account.TierPremium, 500, func(in *CreateLoanInput) { in.InterestRate = &rate; in.Currency = "USD" }, nil},
		{"zero principal", account.TierFree, 0, func(in *CreateLoanInput) { in.Principal = decimal.Zero }, ErrInvalidInput},
		{"bad direction", account.TierFree, 0, func(in *CreateLoanInput) { in.Direction = "gift" }, domain.ErrInvalidLoan},
		{"missing due", account.TierFree, 0, func(in *CreateLoanInput) { in.DueAt = time.Time{} }, domain.ErrInvalidLoan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			createCalled := false
			loans := &loanmock.Repo{
				CountOutstandingByOwnerFn: func(context.Context, string) (int64, error) { return tt.count, nil },
				CreateFn: func(context.Context, *domain.Loan) error {
					createCalled = true
					return nil
				},
			}
			accts := accountmock.Fixed(tt.tier)
			uc := NewUsecase(loans, nil, accts, ownerTx(loans, accts))
			in := createInput()
			tt.mutate(&in)

			_, err := uc.Create(context.Background(), owner, in, now)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected err: %v", err)
				}
				if !createCalled {
					t.Fatal("Create should be called")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
			if createCalled {
				t.Fatal("Create must not be called on rejection")
			}
		})
	}
}

func TestCreate_RejectsBadOwner(t *testing.T) {
	uc := NewUsecase(&loanmock.Repo{}, nil, nil, nil)
	if _, err := uc.Create(context.Background(), "not-an-id", createInput(), now); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestCreate_ProvisionsFreeAccount(t *testing.T) {
	var provisioned *account.Account
	accts := &accountmock.Repo{
		GetByOwnerIDFn: func(context.Context, string) (*account.Account, error) {
			if provisioned != nil {
				return provisioned, nil
			}
			return nil, gorm.ErrRecordNotFound
		},
		CreateFn: func(_ context.Context, a *account.Account) error {
			provisioned = a
			return nil
		},
	}
	loans := &loanmock.Repo{CountOutstandingByOwnerFn: func(context.Context, string) (int64, error) { return 0, nil }}
	uc := NewUsecase(loans, nil, accts, ownerTx(loans, accts))

	if _, err := uc.Create(context.Background(), owner, createInput(), now); err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if provisioned == nil || provisioned.OwnerID != owner || provisioned.Tier != account.TierFree {
		t.Fatalf("account not provisioned: %+v", provisioned)
	}
}

func TestCreate_RequiresUnitOfWork(t *testing.T) {
	uc := NewUsecase(&loanmock.Repo{}, nil, accountmock.Fixed(account.TierFree), nil)
	if _, err := uc.Create(context.Background(), owner, createInput(), now); err == nil {
		t.Fatal("expected error without a unit of work")
	}
}

func TestCreate_CountsUnderOwnerLock(t *testing.T) {
	var lockedOwner string
	loans := &loanmock.Repo{
		CountOutstandingByOwnerFn: func(context.Context, string) (int64, error) {
			t.Fatal("count must go through the tx repos")
			return 0, nil
		},
	}
	txLoans := &loanmock.Repo{
		CountOutstandingByOwnerFn: func(context.Context, string) (int64, error) { return 5, nil },
	}
	tx := (&uowmock.UoW{}).WithWithinOwnerTx(func(_ context.Context, ownerID string, fn func(uow.Repos, *account.Account) error) error {
		lockedOwner = ownerID
		return fn(uow.Repos{Loans: txLoans}, &account.Account{OwnerID: ownerID, Tier: account.TierFree})
	})
	uc := NewUsecase(loans, nil, accountmock.Fixed(account.TierFree), tx)

	_, err := uc.Create(context.Background(), owner, createInput(), now)
	if !errors.Is(err, domain.ErrActiveLoanLimit) {
		t.Fatalf("want ErrActiveLoanLimit, got %v", err)
	}
	if lockedOwner != owner {
		t.Fatalf("owner row not locked: %q", lockedOwner)
	}
}

// Ten concurrent creates against an owner with 4 of 5 free slots used:
// with the owner tx serialised, exactly one may land.
func TestCreate_ConcurrentCreatesRespectLimit(t *testing.T) {
	var (
		mu          sync.Mutex
		outstanding int64 = 4
	)
	loans := &loanmock.Repo{
		CountOutstandingByOwnerFn: func(context.Context, string) (int64, error) { return outstanding, nil },
		CreateFn: func(context.Context, *domain.Loan) error {
			outstanding++
			return nil
		},
	}
	accts := accountmock.Fixed(account.TierFree)
	pass := ownerTx(loans, accts)
	tx := (&uowmock.UoW{}).WithWithinOwnerTx(func(ctx context.Context, ownerID string, fn func(uow.Repos, *account.Account) error) error {
		mu.Lock()
		defer mu.Unlock()
		return pass.WithinOwnerTx(ctx, ownerID, fn)
	})
	uc := NewUsecase(loans, nil, accts, tx)

	const n = 10
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Create(context.Background(), owner, createInput(), now)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, limited int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrActiveLoanLimit):
			limited++
		default:
			t.Fatalf("unexpected err: %v", err)
		}
	}
	if ok != 1 || limited != n-1 || outstanding != 5 {
		t.Fatalf("ok=%d limited=%d outstanding=%d", ok, limited, outstanding)
	}
}

// ----- Get / List -----

func TestGet_NotFoundAndForeignOwner(t *testing.T) {
	loans := &loanmock.Repo{
		GetByLoanIDFn: func(_ context.Context, id string) (*domain.Loan, error) {
			if id == "missing" {
				return nil, gorm.ErrRecordNotFound
			}
			return &domain.Loan{LoanID: id, OwnerID: strings.Repeat("c", 32)}, nil
		},
	}
	uc := NewUsecase(loans, nil, nil, nil)
	for _, id := range []string{"missing", "foreign"} {
		if _, err := uc.Get(context.Background(), owner, id, now); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("%s: want ErrNotFound, got %v", id, err)
		}
	}
}

func TestGet_IncludesReliability(t *testing.T) {
	all := sampleLoans()
	loans := &loanmock.Repo{
		GetByLoanIDFn: func(context.Context, string) (*domain.Loan, error) { l := all[1]; return &l, nil },
		ListByOwnerFn: func(context.Context, string) ([]domain.Loan, error) { return all, nil },
	}
	uc := NewUsecase(loans, nil, nil, nil)
	dto, err := uc.Get(context.Background(), owner, all[1].LoanID, now)
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if dto.Status != "overdue" || dto.DaysOverdue != 2 || dto.Reliability != 35 || dto.ReliabilityBand != ledger.BandFair {
		t.Fatalf("unexpected detail: %+v", dto)
	}
}

func TestList_UsesSnapshotCache(t *testing.T) {
	listed := 0
	loans := &loanmock.Repo{
		ListByOwnerFn: func(context.Context, string) ([]domain.Loan, error) {
			listed++
			return sampleLoans(), nil
		},
	}
	snaps := newMemSnapshots()
	uc := NewUsecase(loans, nil, nil, nil).WithSnapshots(snaps)

	got, err := uc.List(context.Background(), owner, "lent", "", now)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if got.Count != 2 || got.Items[0].CounterpartyName != "John Doe" || got.Items[1].Status != "settled" {
		t.Fatalf("unexpected list: %+v", got)
	}

	if _, err := uc.List(context.Background(), owner, "overdue", "jane", now); err != nil {
		t.Fatalf("List err: %v", err)
	}
	if listed != 1 || snaps.stored != 1 {
		t.Fatalf("second read should hit the snapshot: listed=%d stored=%d", listed, snaps.stored)
	}

	// a bump makes the next read go back to the repository
	_, _ = snaps.Bump(context.Background(), owner)
	got, err = uc.List(context.Background(), owner, "", "", now)
	if err != nil || listed != 2 || got.Version != 1 || got.Count != 3 {
		t.Fatalf("after bump: listed=%d got=%+v err=%v", listed, got, err)
	}
}

func TestList_UnknownFilter(t *testing.T) {
	uc := NewUsecase(&loanmock.Repo{}, nil, nil, nil)
	if _, err := uc.List(context.Background(), owner, "archived", "", now); !errors.Is(err, ledger.ErrUnknownFilter) {
		t.Fatalf("want ErrUnknownFilter, got %v", err)
	}
}

// ----- Settle / Delete -----

func TestSettle(t *testing.T) {
	target := sampleLoans()[1]
	var saved *domain.Loan
	disabled := uint64(0)
	loans := &loanmock.Repo{
		GetByLoanIDForUpdateFn: func(context.Context, string) (*domain.Loan, error) { l := target; return &l, nil },
		SaveFn: func(_ context.Context, l *domain.Loan) error {
			saved = l
			return nil
		},
	}
	rems := &remindermock.Repo{DisableByLoanIDFn: func(_ context.Context, id uint64) error { disabled = id; return nil }}
	pub := &recPublisher{}
	uc := NewUsecase(loans, rems, nil, uowmock.Passthrough(uow.Repos{Loans: loans, Reminders: rems})).WithPublisher(pub)

	dto, err := uc.Settle(context.Background(), owner, target.LoanID, now)
	if err != nil {
		t.Fatalf("Settle err: %v", err)
	}
	if saved == nil || saved.Status != domain.StatusSettled || saved.SettledAt == nil || !saved.SettledAt.Equal(now) {
		t.Fatalf("loan not settled: %+v", saved)
	}
	if disabled != target.ID {
		t.Fatalf("reminders of loan %d should be disabled, got %d", target.ID, disabled)
	}
	if dto.Status != "settled" || dto.DaysOverdue != 0 || dto.DaysUntilDue != 0 {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if len(pub.events) != 1 || pub.events[0].Kind != domain.ChangeSettled || pub.events[0].LoanID != target.LoanID {
		t.Fatalf("unexpected events: %+v", pub.events)
	}
}

func TestSettle_Errors(t *testing.T) {
	already := sampleLoans()[2]
	foreign := sampleLoans()[0]
	foreign.OwnerID = strings.Repeat("c", 32)

	tests := []struct {
		name    string
		lookup  func(context.Context, string) (*domain.Loan, error)
		wantErr error
	}{
		{"not found", func(context.Context, string) (*domain.Loan, error) { return nil, gorm.ErrRecordNotFound }, domain.ErrNotFound},
		{"foreign owner", func(context.Context, string) (*domain.Loan, error) { l := foreign; return &l, nil }, domain.ErrNotFound},
		{"already settled", func(context.Context, string) (*domain.Loan, error) { l := already; return &l, nil }, domain.ErrAlreadySettled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loans := &loanmock.Repo{
				GetByLoanIDForUpdateFn: tt.lookup,
				SaveFn: func(context.Context, *domain.Loan) error {
					t.Fatal("Save must not be called")
					return nil
				},
			}
			pub := &recPublisher{}
			uc := NewUsecase(loans, nil, nil, uowmock.Passthrough(uow.Repos{Loans: loans, Reminders: &remindermock.Repo{}})).WithPublisher(pub)
			if _, err := uc.Settle(context.Background(), owner, "x", now); !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
			if len(pub.events) != 0 {
				t.Fatal("no event on failure")
			}
		})
	}
}

func TestDelete(t *testing.T) {
	target := sampleLoans()[0]
	deleted, purged := false, false
	loans := &loanmock.Repo{
		GetByLoanIDForUpdateFn: func(context.Context, string) (*domain.Loan, error) { l := target; return &l, nil },
		DeleteFn: func(_ context.Context, l *domain.Loan) error {
			deleted = l.LoanID == target.LoanID
			return nil
		},
	}
	rems := &remindermock.Repo{DeleteByLoanIDFn: func(_ context.Context, id uint64) error { purged = id == target.ID; return nil }}
	snaps := newMemSnapshots()
	uc := NewUsecase(loans, rems, nil, uowmock.Passthrough(uow.Repos{Loans: loans, Reminders: rems})).WithSnapshots(snaps)

	if err := uc.Delete(context.Background(), owner, target.LoanID); err != nil {
		t.Fatalf("Delete err: %v", err)
	}
	if !deleted || !purged || snaps.bumped != 1 {
		t.Fatalf("deleted=%v purged=%v bumped=%d", deleted, purged, snaps.bumped)
	}
}

// ----- Dashboard / reliability / export -----

func TestDashboard(t *testing.T) {
	loans := &loanmock.Repo{ListByOwnerFn: func(context.Context, string) ([]domain.Loan, error) { return sampleLoans(), nil }}
	rems := &remindermock.Repo{
		CountUpcomingByOwnerFn: func(_ context.Context, _ string, from, to time.Time) (int64, error) {
			if !from.Equal(now) || to.Sub(from) != 7*24*time.Hour {
				t.Fatalf("unexpected window %v - %v", from, to)
			}
			return 3, nil
		},
	}
	uc := NewUsecase(loans, rems, accountmock.Fixed(account.TierFree), nil)

	d, err := uc.Dashboard(context.Background(), owner, now)
	if err != nil {
		t.Fatalf("Dashboard err: %v", err)
	}
	if !d.TotalLent.Equal(decimal.NewFromInt(2000)) || !d.TotalBorrowed.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("totals = %s / %s", d.TotalLent, d.TotalBorrowed)
	}
	if d.ActiveCount != 2 || d.OverdueCount != 1 || d.SettledCount != 1 {
		t.Fatalf("counts = %+v", d.DashboardStats)
	}
	if d.UpcomingReminders != 3 || len(d.Counterparties) != 3 || d.Limits.ActiveLoanLimit != 5 || d.Tier != account.TierFree {
		t.Fatalf("unexpected dashboard: %+v", d)
	}
}

func TestReliability(t *testing.T) {
	loans := &loanmock.Repo{ListByOwnerFn: func(context.Context, string) ([]domain.Loan, error) { return sampleLoans(), nil }}
	uc := NewUsecase(loans, nil, nil, nil)

	got, err := uc.Reliability(context.Background(), owner, "bob johnson", now)
	if err != nil {
		t.Fatalf("Reliability err: %v", err)
	}
	// settled five days after the due date
	if got.Score != 55 || got.Band != ledger.BandGood {
		t.Fatalf("unexpected: %+v", got)
	}
	if _, err := uc.Reliability(context.Background(), owner, "  ", now); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestExportCSV(t *testing.T) {
	loans := &loanmock.Repo{ListByOwnerFn: func(context.Context, string) ([]domain.Loan, error) { return sampleLoans(), nil }}

	var buf bytes.Buffer
	free := NewUsecase(loans, nil, accountmock.Fixed(account.TierFree), nil)
	if err := free.ExportCSV(context.Background(), owner, &buf, now); !errors.Is(err, domain.ErrPremiumRequired) {
		t.Fatalf("free tier: want ErrPremiumRequired, got %v", err)
	}

	premium := NewUsecase(loans, nil, accountmock.Fixed(account.TierPremium), nil)
	if err := premium.ExportCSV(context.Background(), owner, &buf, now); err != nil {
		t.Fatalf("ExportCSV err: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("csv parse: %v", err)
	}
	if len(rows) != 4 || rows[0][0] != "loan_id" {
		t.Fatalf("unexpected rows: %v", rows)
	}
	if rows[2][5] != "overdue" || rows[2][8] != "2" || rows[3][5] != "settled" || rows[3][8] != "0" {
		t.Fatalf("unexpected status columns: %v / %v", rows[2], rows[3])
	}
	if rows[1][3] != "1500.00" {
		t.Fatalf("principal column = %q", rows[1][3])
	}
}

func TestImport(t *testing.T) {
	amt := decimal.NewFromInt(100)
	var created []*domain.Loan
	loans := &loanmock.Repo{CreateFn: func(_ context.Context, l *domain.Loan) error { created = append(created, l); return nil }}
	uc := NewUsecase(loans, nil, nil, uowmock.Passthrough(uow.Repos{Loans: loans}))

	res, err := uc.Import(context.Background(), owner, []domain.Record{
		{ID: "loan-1", Type: "lent", ContactName: "A", Amount: &amt, Currency: "INR", DueDate: "2026-04-01", Status: "active"},
		{ID: "loan-2", Type: "lent", ContactName: "B", Currency: "INR", DueDate: "2026-04-01", Status: "active"},
		{ID: strings.Repeat("e", 32), Type: "borrowed", ContactName: "C", Amount: &amt, Currency: "USD", DueDate: "2026-01-01", Status: "overdue"},
	})
	if err != nil {
		t.Fatalf("Import err: %v", err)
	}
	if res.Imported != 2 || len(res.Rejected) != 1 || res.Rejected[0].Index != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(created[0].LoanID) != 32 || created[0].LoanID == "loan-1" {
		t.Fatalf("non-hex id should be replaced, got %q", created[0].LoanID)
	}
	if created[1].LoanID != strings.Repeat("e", 32) || created[1].Status != domain.StatusActive || created[1].OwnerID != owner {
		t.Fatalf("unexpected second loan: %+v", created[1])
	}
}
