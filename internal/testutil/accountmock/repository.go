package accountmock

import (
	"context"

	domain "lendledger/internal/domain/account"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies account.Repository.
type Repo struct {
	CreateFn       func(ctx context.Context, a *domain.Account) error
	SaveFn         func(ctx context.Context, a *domain.Account) error
	GetByOwnerIDFn func(ctx context.Context, ownerID string) (*domain.Account, error)
	// falls back to GetByOwnerIDFn when unset
	GetByOwnerIDForUpdateFn func(ctx context.Context, ownerID string) (*domain.Account, error)
}

func (m *Repo) Create(ctx context.Context, a *domain.Account) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	return nil
}
func (m *Repo) Save(ctx context.Context, a *domain.Account) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, a)
	}
	return nil
}
func (m *Repo) GetByOwnerID(ctx context.Context, ownerID string) (*domain.Account, error) {
	if m.GetByOwnerIDFn != nil {
		return m.GetByOwnerIDFn(ctx, ownerID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByOwnerIDForUpdate(ctx context.Context, ownerID string) (*domain.Account, error) {
	if m.GetByOwnerIDForUpdateFn != nil {
		return m.GetByOwnerIDForUpdateFn(ctx, ownerID)
	}
	return m.GetByOwnerID(ctx, ownerID)
}

// Fixed returns a Repo that always resolves to an account on the given tier.
func Fixed(tier domain.Tier) *Repo {
	return &Repo{GetByOwnerIDFn: func(_ context.Context, ownerID string) (*domain.Account, error) {
		return &domain.Account{OwnerID: ownerID, Tier: tier}, nil
	}}
}
