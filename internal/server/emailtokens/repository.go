package emailtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/dbx"
)

type Repository interface {
	Create(ctx context.Context, accountID string, tokenHash string, validity time.Duration) error

	// Consume atomically marks an unconsumed, unexpired token as used and
	// returns the owning account id. Returns common.ErrorNotFound when no
	// such token exists; Find distinguishes why.
	Consume(ctx context.Context, tokenHash string) (string, error)

	Find(ctx context.Context, tokenHash string) (*VerificationToken, error)

	// WithTx returns a copy of the repository bound to the given handle.
	WithTx(tx dbx.DBTX) Repository
}
