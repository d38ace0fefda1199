package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/dbx"
)

type Repository interface {
	Create(ctx context.Context, accountID string, token string, validity time.Duration) error
	Find(ctx context.Context, token string) (*RefreshToken, error)
	Delete(ctx context.Context, token string) error

	// WithTx returns a copy of the repository bound to the given handle.
	WithTx(tx dbx.DBTX) Repository
}
