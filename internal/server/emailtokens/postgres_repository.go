package emailtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) (*PostgresRepository, error) {
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) WithTx(tx dbx.DBTX) Repository {
	return &PostgresRepository{db: tx}
}

func (r *PostgresRepository) Create(ctx context.Context, accountID string, tokenHash string, validity time.Duration) error {

	query :=
		`INSERT INTO email_verification_tokens (account_id, token_hash, expires_at)
         VALUES ($1, $2, $3)
		 `

	_, err := r.db.ExecContext(ctx, query, accountID, tokenHash, time.Now().Add(validity))

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Consume(ctx context.Context, tokenHash string) (string, error) {

	// consumed_at IS NULL guards single use under concurrent requests
	query :=
		`UPDATE email_verification_tokens SET consumed_at = now()
		 WHERE token_hash = $1 AND consumed_at IS NULL AND expires_at > now()
		 RETURNING account_id
		 `

	var accountID string
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(&accountID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	return accountID, nil
}

func (r *PostgresRepository) Find(ctx context.Context, tokenHash string) (*VerificationToken, error) {

	query :=
		`SELECT id, account_id, token_hash, expires_at, consumed_at FROM email_verification_tokens
		 WHERE token_hash = $1
		 `

	t := &VerificationToken{}
	var consumed sql.NullTime
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(&t.ID, &t.AccountID, &t.TokenHash, &t.Expires, &consumed)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if consumed.Valid {
		t.Consumed = &consumed.Time
	}

	return t, nil
}
