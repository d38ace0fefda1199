package accounts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/server/auth"
	"github.com/dmitrijs2005/contactbook/internal/server/config"
	"github.com/dmitrijs2005/contactbook/internal/server/emailtokens"
	"github.com/dmitrijs2005/contactbook/internal/server/mail"
	"github.com/dmitrijs2005/contactbook/internal/server/refreshtokens"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

type fakeAccountsRepo struct {
	createIn  *Account
	createOut *Account
	createErr error

	getByEmailOut *Account
	getByEmailErr error

	getByIDOut *Account
	getByIDErr error

	setVerifiedID  string
	setVerifiedErr error

	updatedAvatarURL string
	updateAvatarErr  error
}

func (f *fakeAccountsRepo) Create(ctx context.Context, a *Account) (*Account, error) {
	f.createIn = a
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}

func (f *fakeAccountsRepo) GetByEmail(ctx context.Context, email string) (*Account, error) {
	if f.getByEmailErr != nil {
		return nil, f.getByEmailErr
	}
	return f.getByEmailOut, nil
}

func (f *fakeAccountsRepo) GetByID(ctx context.Context, id string) (*Account, error) {
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	return f.getByIDOut, nil
}

func (f *fakeAccountsRepo) SetVerified(ctx context.Context, id string) error {
	f.setVerifiedID = id
	return f.setVerifiedErr
}

func (f *fakeAccountsRepo) UpdateAvatarURL(ctx context.Context, id string, url string) error {
	f.updatedAvatarURL = url
	return f.updateAvatarErr
}

func (f *fakeAccountsRepo) WithTx(tx dbx.DBTX) Repository { return f }

type fakeRefreshRepo struct {
	createErr error
	created   int

	findOut *refreshtokens.RefreshToken
	findErr error

	deletedToken string
	delErr       error
}

func (f *fakeRefreshRepo) Create(ctx context.Context, accountID string, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created++
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*refreshtokens.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	f.deletedToken = token
	return f.delErr
}

func (f *fakeRefreshRepo) WithTx(tx dbx.DBTX) refreshtokens.Repository { return f }

type fakeEmailTokenRepo struct {
	createdHash string
	createErr   error

	consumedHash string
	consumeOut   string
	consumeErr   error

	findOut *emailtokens.VerificationToken
	findErr error
}

func (f *fakeEmailTokenRepo) Create(ctx context.Context, accountID string, tokenHash string, validity time.Duration) error {
	f.createdHash = tokenHash
	return f.createErr
}

func (f *fakeEmailTokenRepo) Consume(ctx context.Context, tokenHash string) (string, error) {
	f.consumedHash = tokenHash
	if f.consumeErr != nil {
		return "", f.consumeErr
	}
	return f.consumeOut, nil
}

func (f *fakeEmailTokenRepo) Find(ctx context.Context, tokenHash string) (*emailtokens.VerificationToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeEmailTokenRepo) WithTx(tx dbx.DBTX) emailtokens.Repository { return f }

type fakeMailer struct {
	messages []mail.Message
}

func (f *fakeMailer) Enqueue(m mail.Message) { f.messages = append(f.messages, m) }

type fakeAvatarStore struct {
	gotContentType string
	gotExt         string
	uploadOut      string
	uploadErr      error
}

func (f *fakeAvatarStore) Upload(ctx context.Context, data []byte, contentType string, ext string) (string, error) {
	f.gotContentType = contentType
	f.gotExt = ext
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.uploadOut, nil
}

type serviceDeps struct {
	repo    *fakeAccountsRepo
	rt      *fakeRefreshRepo
	et      *fakeEmailTokenRepo
	mailer  *fakeMailer
	avatars *fakeAvatarStore
}

func newTestService(t *testing.T, db *sql.DB, d *serviceDeps, cfg *config.Config) *Service {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{
			SecretKey:                    "k",
			AccessTokenValidityDuration:  time.Hour,
			RefreshTokenValidityDuration: 2 * time.Hour,
			VerifyTokenValidityDuration:  24 * time.Hour,
			PublicBaseURL:                "http://localhost:8080",
		}
	}
	return NewService(db, d.repo, d.rt, d.et, d.mailer, d.avatars, cfg)
}

func defaultDeps() *serviceDeps {
	return &serviceDeps{
		repo:    &fakeAccountsRepo{},
		rt:      &fakeRefreshRepo{},
		et:      &fakeEmailTokenRepo{},
		mailer:  &fakeMailer{},
		avatars: &fakeAvatarStore{},
	}
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	d := defaultDeps()
	d.repo.createOut = &Account{ID: "u-1", Email: "alice@example.com"}
	s := newTestService(t, db, d, nil)

	account, err := s.Register(context.Background(), "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if account.ID != "u-1" {
		t.Fatalf("unexpected account: %+v", account)
	}

	if len(d.mailer.messages) != 1 {
		t.Fatalf("expected 1 queued mail, got %d", len(d.mailer.messages))
	}
	m := d.mailer.messages[0]
	if m.To != "alice@example.com" {
		t.Errorf("mail recipient: %s", m.To)
	}

	// the mailed link token must hash to the stored token hash
	re := regexp.MustCompile(`/auth/verify/([0-9a-f]+)`)
	match := re.FindStringSubmatch(m.HTML)
	if match == nil {
		t.Fatalf("no verification link in mail body: %s", m.HTML)
	}
	if HashToken(match[1]) != d.et.createdHash {
		t.Errorf("mailed token does not match stored hash")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRegister_NormalizesEmail(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	d := defaultDeps()
	d.repo.createOut = &Account{ID: "u-1", Email: "alice@example.com"}
	s := newTestService(t, db, d, nil)

	if _, err := s.Register(context.Background(), "  Alice@Example.COM ", "password123"); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if d.repo.createIn.Email != "alice@example.com" {
		t.Errorf("email not normalized: %q", d.repo.createIn.Email)
	}
}

func TestRegister_InvalidEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	d := defaultDeps()
	s := newTestService(t, db, d, nil)

	for _, email := range []string{"", "not-an-email", "Alice <a@b.co>", "a@"} {
		if _, err := s.Register(context.Background(), email, "password123"); !errors.Is(err, common.ErrInvalidEmail) {
			t.Errorf("email %q: want ErrInvalidEmail, got %v", email, err)
		}
	}
	if len(d.mailer.messages) != 0 {
		t.Errorf("no mail expected, got %d", len(d.mailer.messages))
	}
}

func TestRegister_WeakPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	d := defaultDeps()
	s := newTestService(t, db, d, nil)

	long := make([]byte, MaxPasswordLength+1)
	for i := range long {
		long[i] = 'a'
	}

	for _, password := range []string{"", "short", string(long)} {
		if _, err := s.Register(context.Background(), "a@b.co", password); !errors.Is(err, common.ErrWeakPassword) {
			t.Errorf("password of %d bytes: want ErrWeakPassword, got %v", len(password), err)
		}
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	d := defaultDeps()
	d.repo.createErr = common.ErrDuplicateEmail
	s := newTestService(t, db, d, nil)

	_, err := s.Register(context.Background(), "taken@example.com", "password123")
	if !errors.Is(err, common.ErrDuplicateEmail) {
		t.Fatalf("want ErrDuplicateEmail, got %v", err)
	}
	if len(d.mailer.messages) != 0 {
		t.Errorf("rollback must not queue mail")
	}
}

func TestRegister_TokenStoreErr(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	d := defaultDeps()
	d.repo.createOut = &Account{ID: "u-1", Email: "a@b.co"}
	d.et.createErr = errBoom{}
	s := newTestService(t, db, d, nil)

	if _, err := s.Register(context.Background(), "a@b.co", "password123"); err == nil {
		t.Fatal("expected error")
	}
	if len(d.mailer.messages) != 0 {
		t.Errorf("rollback must not queue mail")
	}
}

// --- Authenticate ---

func TestAuthenticate_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	d := defaultDeps()
	d.repo.getByEmailOut = &Account{ID: "u-1", Email: "a@b.co", PasswordHash: hash}
	s := newTestService(t, db, d, nil)

	pair, err := s.Authenticate(context.Background(), "a@b.co", "password123")
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", pair)
	}
	if d.rt.created != 1 {
		t.Errorf("expected 1 stored refresh token, got %d", d.rt.created)
	}
}

func TestAuthenticate_UnknownEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	d := defaultDeps()
	d.repo.getByEmailErr = common.ErrorNotFound
	s := newTestService(t, db, d, nil)

	if _, err := s.Authenticate(context.Background(), "ghost@b.co", "password123"); !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	hash, err := auth.HashPassword("rightpassword")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	d := defaultDeps()
	d.repo.getByEmailOut = &Account{ID: "u-1", PasswordHash: hash}
	s := newTestService(t, db, d, nil)

	if _, err := s.Authenticate(context.Background(), "a@b.co", "wrongpassword"); !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticate_RepoErr(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	d := defaultDeps()
	d.repo.getByEmailErr = errBoom{}
	s := newTestService(t, db, d, nil)

	if _, err := s.Authenticate(context.Background(), "a@b.co", "password123"); !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("want ErrorInternal, got %v", err)
	}
}

func TestAuthenticate_UnverifiedPolicy(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
		VerifyTokenValidityDuration:  24 * time.Hour,
		RequireVerifiedLogin:         true,
	}

	d := defaultDeps()
	d.repo.getByEmailOut = &Account{ID: "u-1", PasswordHash: hash, IsVerified: false}
	s := newTestService(t, db, d, cfg)

	if _, err := s.Authenticate(context.Background(), "a@b.co", "password123"); !errors.Is(err, common.ErrAccountNotVerified) {
		t.Fatalf("want ErrAccountNotVerified, got %v", err)
	}

	d.repo.getByEmailOut.IsVerified = true
	if _, err := s.Authenticate(context.Background(), "a@b.co", "password123"); err != nil {
		t.Fatalf("verified login failed: %v", err)
	}
}

// --- Refresh ---

func TestRefresh_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	d := defaultDeps()
	d.rt.findOut = &refreshtokens.RefreshToken{AccountID: "u-1", Expires: time.Now().Add(10 * time.Minute)}
	s := newTestService(t, db, d, nil)

	pair, err := s.Refresh(context.Background(), "refresh-xyz")
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", pair)
	}
	if d.rt.deletedToken != "refresh-xyz" {
		t.Errorf("old token not rotated out, deleted %q", d.rt.deletedToken)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRefresh_Expired(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	d := defaultDeps()
	d.rt.findOut = &refreshtokens.RefreshToken{AccountID: "u-1", Expires: time.Now().Add(-time.Minute)}
	s := newTestService(t, db, d, nil)

	if _, err := s.Refresh(context.Background(), "r"); !errors.Is(err, common.ErrRefreshTokenExpired) {
		t.Fatalf("want ErrRefreshTokenExpired, got %v", err)
	}
}

func TestRefresh_NotFound(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	d := defaultDeps()
	d.rt.findErr = common.ErrorNotFound
	s := newTestService(t, db, d, nil)

	if _, err := s.Refresh(context.Background(), "unknown"); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestRefresh_FindErr(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	d := defaultDeps()
	d.rt.findErr = errBoom{}
	s := newTestService(t, db, d, nil)

	_, err := s.Refresh(context.Background(), "r")
	if err == nil || !regexp.MustCompile(`error searching refresh token: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped find error, got %v", err)
	}
}

func TestRefresh_DeleteErr(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	d := defaultDeps()
	d.rt.findOut = &refreshtokens.RefreshToken{AccountID: "u-1", Expires: time.Now().Add(10 * time.Minute)}
	d.rt.delErr = errBoom{}
	s := newTestService(t, db, d, nil)

	_, err := s.Refresh(context.Background(), "r")
	if err == nil || !regexp.MustCompile(`error deleting refresh token: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped delete error, got %v", err)
	}
}

// --- VerifyEmail ---

func TestVerifyEmail_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	d := defaultDeps()
	d.et.consumeOut = "u-1"
	s := newTestService(t, db, d, nil)

	if err := s.VerifyEmail(context.Background(), "sometoken"); err != nil {
		t.Fatalf("VerifyEmail error: %v", err)
	}
	if d.et.consumedHash != HashToken("sometoken") {
		t.Errorf("consume got %q, want hash of token", d.et.consumedHash)
	}
	if d.repo.setVerifiedID != "u-1" {
		t.Errorf("account not marked verified: %q", d.repo.setVerifiedID)
	}
}

func TestVerifyEmail_AlreadyUsed(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	used := time.Now().Add(-time.Hour)
	d := defaultDeps()
	d.et.consumeErr = common.ErrorNotFound
	d.et.findOut = &emailtokens.VerificationToken{AccountID: "u-1", Consumed: &used, Expires: time.Now().Add(time.Hour)}
	s := newTestService(t, db, d, nil)

	if err := s.VerifyEmail(context.Background(), "sometoken"); !errors.Is(err, common.ErrTokenAlreadyUsed) {
		t.Fatalf("want ErrTokenAlreadyUsed, got %v", err)
	}
}

func TestVerifyEmail_Expired(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	d := defaultDeps()
	d.et.consumeErr = common.ErrorNotFound
	d.et.findOut = &emailtokens.VerificationToken{AccountID: "u-1", Expires: time.Now().Add(-time.Hour)}
	s := newTestService(t, db, d, nil)

	if err := s.VerifyEmail(context.Background(), "sometoken"); !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
}

func TestVerifyEmail_UnknownToken(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	d := defaultDeps()
	d.et.consumeErr = common.ErrorNotFound
	d.et.findErr = common.ErrorNotFound
	s := newTestService(t, db, d, nil)

	if err := s.VerifyEmail(context.Background(), "bogus"); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

// --- UpdateAvatar ---

func TestUpdateAvatar_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	d := defaultDeps()
	d.avatars.uploadOut = "http://127.0.0.1:9000/avatars/2025/6/1/x.png"
	d.repo.getByIDOut = &Account{ID: "u-1", AvatarURL: d.avatars.uploadOut}
	s := newTestService(t, db, d, nil)

	account, err := s.UpdateAvatar(context.Background(), "u-1", pngBytes)
	if err != nil {
		t.Fatalf("UpdateAvatar error: %v", err)
	}
	if d.avatars.gotContentType != "image/png" || d.avatars.gotExt != ".png" {
		t.Errorf("sniffed %q/%q", d.avatars.gotContentType, d.avatars.gotExt)
	}
	if d.repo.updatedAvatarURL != d.avatars.uploadOut {
		t.Errorf("stored url %q", d.repo.updatedAvatarURL)
	}
	if account.AvatarURL != d.avatars.uploadOut {
		t.Errorf("returned url %q", account.AvatarURL)
	}
}

func TestUpdateAvatar_UnsupportedType(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	d := defaultDeps()
	s := newTestService(t, db, d, nil)

	_, err := s.UpdateAvatar(context.Background(), "u-1", []byte("just some text, not an image"))
	if !errors.Is(err, common.ErrUnsupportedMediaType) {
		t.Fatalf("want ErrUnsupportedMediaType, got %v", err)
	}
}

func TestUpdateAvatar_UploadErr(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	d := defaultDeps()
	d.avatars.uploadErr = errBoom{}
	s := newTestService(t, db, d, nil)

	_, err := s.UpdateAvatar(context.Background(), "u-1", pngBytes)
	if !errors.Is(err, common.ErrUploadFailed) {
		t.Fatalf("want ErrUploadFailed, got %v", err)
	}
}

// --- Authorize ---

func TestAuthorize(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	d := defaultDeps()
	s := newTestService(t, db, d, nil)

	token, err := auth.GenerateToken("u-9", []byte("k"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	id, err := s.Authorize(token)
	if err != nil || id != "u-9" {
		t.Fatalf("Authorize: got (%q, %v)", id, err)
	}

	if _, err := s.Authorize("garbage"); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}
