package emailtokens

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/contactbook/internal/common"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	repo, err := NewPostgresRepository(db)
	if err != nil {
		t.Fatalf("NewPostgresRepository error: %v", err)
	}
	return repo, mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+email_verification_tokens\s*\(account_id,\s*token_hash,\s*expires_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*$`

	mock.ExpectExec(q).
		WithArgs("acc-1", "hash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), "acc-1", "hash", 24*time.Hour); err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestConsume_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+email_verification_tokens\s+SET\s+consumed_at\s*=\s*now\(\)\s+WHERE\s+token_hash\s*=\s*\$1\s+AND\s+consumed_at\s+IS\s+NULL\s+AND\s+expires_at\s*>\s*now\(\)\s+RETURNING\s+account_id\s*$`

	rows := sqlmock.NewRows([]string{"account_id"}).AddRow("acc-1")
	mock.ExpectQuery(q).
		WithArgs("hash").
		WillReturnRows(rows)

	accountID, err := repo.Consume(context.Background(), "hash")
	if err != nil {
		t.Fatalf("Consume error: %v", err)
	}
	if accountID != "acc-1" {
		t.Fatalf("unexpected account id: %q", accountID)
	}
}

func TestConsume_NoMatchingRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+email_verification_tokens\s+SET\s+consumed_at\s*=\s*now\(\)`

	mock.ExpectQuery(q).
		WithArgs("hash").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Consume(context.Background(), "hash")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestFind_ConsumedAndUnconsumed(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*account_id,\s*token_hash,\s*expires_at,\s*consumed_at\s+FROM\s+email_verification_tokens\s+WHERE\s+token_hash\s*=\s*\$1\s*$`

	expires := time.Now().Add(24 * time.Hour)
	used := time.Now().Add(-time.Hour)

	rows := sqlmock.NewRows([]string{"id", "account_id", "token_hash", "expires_at", "consumed_at"}).
		AddRow("t-1", "acc-1", "hash", expires, used)
	mock.ExpectQuery(q).WithArgs("hash").WillReturnRows(rows)

	got, err := repo.Find(context.Background(), "hash")
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if got.Consumed == nil || !got.Consumed.Equal(used) {
		t.Fatalf("expected consumed timestamp, got %+v", got.Consumed)
	}

	rows2 := sqlmock.NewRows([]string{"id", "account_id", "token_hash", "expires_at", "consumed_at"}).
		AddRow("t-2", "acc-1", "hash2", expires, nil)
	mock.ExpectQuery(q).WithArgs("hash2").WillReturnRows(rows2)

	got2, err := repo.Find(context.Background(), "hash2")
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if got2.Consumed != nil {
		t.Fatalf("expected nil consumed, got %v", got2.Consumed)
	}
}

func TestFind_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*account_id,\s*token_hash,\s*expires_at,\s*consumed_at\s+FROM\s+email_verification_tokens`

	mock.ExpectQuery(q).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+email_verification_tokens`

	mock.ExpectExec(q).
		WithArgs("acc-1", "hash", sqlmock.AnyArg()).
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), "acc-1", "hash", time.Hour)
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
