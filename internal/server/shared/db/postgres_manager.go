package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/contactbook/internal/server/accounts"
	"github.com/dmitrijs2005/contactbook/internal/server/contacts"
	"github.com/dmitrijs2005/contactbook/internal/server/emailtokens"
	"github.com/dmitrijs2005/contactbook/internal/server/migrations"
	"github.com/dmitrijs2005/contactbook/internal/server/refreshtokens"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct {
	db            *sql.DB
	accounts      accounts.Repository
	contacts      contacts.Repository
	refreshTokens refreshtokens.Repository
	emailTokens   emailtokens.Repository
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

func (m *PostgresRepositoryManager) Accounts() accounts.Repository {
	return m.accounts
}

func (m *PostgresRepositoryManager) Contacts() contacts.Repository {
	return m.contacts
}

func (m *PostgresRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens
}

func (m *PostgresRepositoryManager) EmailTokens() emailtokens.Repository {
	return m.emailTokens
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	accountRepo, err := accounts.NewPostgresRepository(db)
	if err != nil {
		return nil, fmt.Errorf("account repo creation error: %w", err)
	}

	contactRepo, err := contacts.NewPostgresRepository(db)
	if err != nil {
		return nil, fmt.Errorf("contact repo creation error: %w", err)
	}

	refreshTokenRepo, err := refreshtokens.NewPostgresRepository(db)
	if err != nil {
		return nil, fmt.Errorf("refresh token repo creation error: %w", err)
	}

	emailTokenRepo, err := emailtokens.NewPostgresRepository(db)
	if err != nil {
		return nil, fmt.Errorf("email token repo creation error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:            db,
		accounts:      accountRepo,
		contacts:      contactRepo,
		refreshTokens: refreshTokenRepo,
		emailTokens:   emailTokenRepo,
	}

	err = m.RunMigrations(context.Background())
	if err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
