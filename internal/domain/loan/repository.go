package loan

import "context"

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	Save(ctx context.Context, l *Loan) error
	Delete(ctx context.Context, l *Loan) error

	GetByID(ctx context.Context, id uint64) (*Loan, error)
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// Row lock for the settle/delete transitions
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)

	// Full collection for one owner, oldest first
	ListByOwner(ctx context.Context, ownerID string) ([]Loan, error)
	CountOutstandingByOwner(ctx context.Context, ownerID string) (int64, error)
}
