package accounts

import (
	"context"

	"github.com/dmitrijs2005/contactbook/internal/dbx"
)

type Repository interface {
	Create(ctx context.Context, account *Account) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	SetVerified(ctx context.Context, id string) error
	UpdateAvatarURL(ctx context.Context, id string, url string) error

	// WithTx returns a copy of the repository bound to the given handle,
	// so callers can run several statements inside one dbx.WithTx block.
	WithTx(tx dbx.DBTX) Repository
}
