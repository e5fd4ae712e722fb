package account

import "context"

type Repository interface {
	Create(ctx context.Context, a *Account) error
	Save(ctx context.Context, a *Account) error
	GetByOwnerID(ctx context.Context, ownerID string) (*Account, error)
	// Row lock; serialises plan-limited writes for one owner
	GetByOwnerIDForUpdate(ctx context.Context, ownerID string) (*Account, error)
}
