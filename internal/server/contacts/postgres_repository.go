// Package contacts provides the contact book: per-owner CRUD, search, and
// the upcoming-birthday query.
package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
)

// PostgresRepository implements contact storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) (*PostgresRepository, error) {
	return &PostgresRepository{db: db}, nil
}

// likeEscaper neutralizes LIKE wildcards in user input. Backslash is the
// default escape character in Postgres.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *PostgresRepository) Create(ctx context.Context, c *Contact) (*Contact, error) {
	query :=
		`INSERT INTO contacts (owner_id, first_name, last_name, email, phone_number, birthday, additional_info)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		c.OwnerID, c.FirstName, c.LastName, c.Email, c.PhoneNumber, c.Birthday, c.AdditionalInfo).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, ownerID string, id string) (*Contact, error) {
	query :=
		`SELECT id, owner_id, first_name, last_name, email, phone_number, birthday, COALESCE(additional_info, ''), created_at, updated_at
		 FROM contacts
		 WHERE owner_id = $1 AND id = $2
		 `

	c := &Contact{}
	err := r.db.QueryRowContext(ctx, query, ownerID, id).Scan(
		&c.ID, &c.OwnerID, &c.FirstName, &c.LastName, &c.Email, &c.PhoneNumber,
		&c.Birthday, &c.AdditionalInfo, &c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context, ownerID string, skip int, limit int) ([]*Contact, error) {
	query :=
		`SELECT id, owner_id, first_name, last_name, email, phone_number, birthday, COALESCE(additional_info, ''), created_at, updated_at
		 FROM contacts
		 WHERE owner_id = $1
		 ORDER BY created_at ASC, id ASC
		 LIMIT $2 OFFSET $3
		 `

	return r.queryContacts(ctx, query, ownerID, limit, skip)
}

func (r *PostgresRepository) Update(ctx context.Context, c *Contact) (*Contact, error) {
	query :=
		`UPDATE contacts
		 SET first_name = $3, last_name = $4, email = $5, phone_number = $6, birthday = $7, additional_info = NULLIF($8, ''), updated_at = now()
		 WHERE owner_id = $1 AND id = $2
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		c.OwnerID, c.ID, c.FirstName, c.LastName, c.Email, c.PhoneNumber, c.Birthday, c.AdditionalInfo).
		Scan(&c.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID string, id string) error {
	query := `DELETE FROM contacts WHERE owner_id = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, ownerID, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) Search(ctx context.Context, ownerID string, query string) ([]*Contact, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"

	stmt :=
		`SELECT id, owner_id, first_name, last_name, email, phone_number, birthday, COALESCE(additional_info, ''), created_at, updated_at
		 FROM contacts
		 WHERE owner_id = $1 AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)
		 ORDER BY created_at ASC, id ASC
		 `

	return r.queryContacts(ctx, stmt, ownerID, pattern)
}

func (r *PostgresRepository) ListByBirthdayMonth(ctx context.Context, ownerID string, m1 int, m2 int) ([]*Contact, error) {
	// Feb 29 birthdays are matched unconditionally: in non-leap years they
	// surface on Mar 1 and the month prefilter alone would miss them.
	query :=
		`SELECT id, owner_id, first_name, last_name, email, phone_number, birthday, COALESCE(additional_info, ''), created_at, updated_at
		 FROM contacts
		 WHERE owner_id = $1
		   AND (EXTRACT(MONTH FROM birthday) IN ($2, $3)
		        OR (EXTRACT(MONTH FROM birthday) = 2 AND EXTRACT(DAY FROM birthday) = 29))
		 ORDER BY id ASC
		 `

	return r.queryContacts(ctx, query, ownerID, m1, m2)
}

func (r *PostgresRepository) queryContacts(ctx context.Context, query string, args ...any) ([]*Contact, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(
			&c.ID, &c.OwnerID, &c.FirstName, &c.LastName, &c.Email, &c.PhoneNumber,
			&c.Birthday, &c.AdditionalInfo, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
