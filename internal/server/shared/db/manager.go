// Package db assembles the repository set over a single database connection
// and owns schema migrations.
package db

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/contactbook/internal/server/accounts"
	"github.com/dmitrijs2005/contactbook/internal/server/contacts"
	"github.com/dmitrijs2005/contactbook/internal/server/emailtokens"
	"github.com/dmitrijs2005/contactbook/internal/server/refreshtokens"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Close() error
	Accounts() accounts.Repository
	Contacts() contacts.Repository
	RefreshTokens() refreshtokens.Repository
	EmailTokens() emailtokens.Repository
}
