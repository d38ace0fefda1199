// Package accounts implements registration, authentication, email
// verification and profile management for contactbook accounts.
package accounts

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	netmail "net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/server/auth"
	"github.com/dmitrijs2005/contactbook/internal/server/config"
	"github.com/dmitrijs2005/contactbook/internal/server/emailtokens"
	"github.com/dmitrijs2005/contactbook/internal/server/mail"
	"github.com/dmitrijs2005/contactbook/internal/server/refreshtokens"
)

const (
	MinPasswordLength = 8
	// bcrypt, 72 байта максимум
	MaxPasswordLength = 72
	MaxEmailLength    = 100

	verifyTokenBytes = 32
)

// avatarExtensions maps accepted avatar content types to the file extension
// used for the stored object.
var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Mailer queues outgoing mail without blocking the caller.
type Mailer interface {
	Enqueue(m mail.Message)
}

// AvatarStore persists avatar images and returns their public URL.
type AvatarStore interface {
	Upload(ctx context.Context, data []byte, contentType string, ext string) (string, error)
}

// Service provides account-related operations:
// - Register: create accounts and send verification mail
// - Authenticate: verify credentials and mint tokens
// - Refresh: rotate refresh tokens and mint new access tokens
// - VerifyEmail: consume single-use verification tokens
// - UpdateAvatar: store a new avatar image
type Service struct {
	db               *sql.DB
	repo             Repository
	refreshTokenRepo refreshtokens.Repository
	emailTokenRepo   emailtokens.Repository
	mailer           Mailer
	avatars          AvatarStore

	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	verifyTokenValidityDuration  time.Duration
	requireVerifiedLogin         bool
	publicBaseURL                string
}

// NewService constructs an account Service using repositories and server config.
func NewService(db *sql.DB, repo Repository, refreshTokenRepo refreshtokens.Repository,
	emailTokenRepo emailtokens.Repository, mailer Mailer, avatars AvatarStore, cfg *config.Config) *Service {
	return &Service{
		db:                           db,
		repo:                         repo,
		refreshTokenRepo:             refreshTokenRepo,
		emailTokenRepo:               emailTokenRepo,
		mailer:                       mailer,
		avatars:                      avatars,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		verifyTokenValidityDuration:  cfg.VerifyTokenValidityDuration,
		requireVerifiedLogin:         cfg.RequireVerifiedLogin,
		publicBaseURL:                cfg.PublicBaseURL,
	}
}

// Register creates an account, stores a hashed verification token, and queues
// the verification email once the transaction has committed.
func (s *Service) Register(ctx context.Context, email string, password string) (*Account, error) {
	email = NormalizeEmail(email)
	if !IsValidEmail(email) {
		return nil, common.ErrInvalidEmail
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}
	verifyToken, err := common.MakeRandHexString(verifyTokenBytes)
	if err != nil {
		return nil, common.ErrorInternal
	}

	var account *Account
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var createErr error
		account, createErr = s.repo.WithTx(tx).Create(ctx, &Account{Email: email, PasswordHash: hash})
		if createErr != nil {
			if errors.Is(createErr, common.ErrDuplicateEmail) {
				return createErr
			}
			return fmt.Errorf("error creating account: %v", createErr)
		}
		return s.emailTokenRepo.WithTx(tx).Create(ctx, account.ID, HashToken(verifyToken), s.verifyTokenValidityDuration)
	}); err != nil {
		return nil, err
	}

	// queued after commit so a rollback never leaks a verification mail
	s.mailer.Enqueue(mail.VerificationMessage(account.Email, s.verificationLink(verifyToken)))
	return account, nil
}

// Authenticate verifies the provided credentials and, on success, returns a
// new TokenPair. Unknown emails and wrong passwords are indistinguishable to
// the caller.
func (s *Service) Authenticate(ctx context.Context, email string, password string) (*TokenPair, error) {
	email = NormalizeEmail(email)

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn a bcrypt comparison so the miss costs as much as a hit
			auth.CheckPassword(auth.DummyHash, password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, common.ErrorInternal
	}
	if !auth.CheckPassword(account.PasswordHash, password) {
		return nil, common.ErrInvalidCredentials
	}
	if s.requireVerifiedLogin && !account.IsVerified {
		return nil, common.ErrAccountNotVerified
	}
	return s.generateTokenPair(ctx, account.ID, s.db)
}

// Refresh validates a refresh token, rotates it transactionally, and returns
// a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.refreshTokenRepo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %v", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.refreshTokenRepo.WithTx(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %v", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.AccountID, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// VerifyEmail consumes a verification token and marks the owning account as
// verified. A token can succeed exactly once: replays get
// ErrTokenAlreadyUsed, stale tokens ErrTokenExpired, unknown ones
// ErrInvalidToken.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	tokenHash := HashToken(token)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		accountID, err := s.emailTokenRepo.WithTx(tx).Consume(ctx, tokenHash)
		if err != nil {
			return err
		}
		return s.repo.WithTx(tx).SetVerified(ctx, accountID)
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error verifying email: %v", err)
	}

	// Consume matched no row; look the token up to tell the caller why.
	existing, findErr := s.emailTokenRepo.Find(ctx, tokenHash)
	if findErr != nil {
		if errors.Is(findErr, common.ErrorNotFound) {
			return common.ErrInvalidToken
		}
		return common.ErrorInternal
	}
	if existing.Consumed != nil {
		return common.ErrTokenAlreadyUsed
	}
	if existing.Expires.Before(time.Now()) {
		return common.ErrTokenExpired
	}
	return common.ErrInvalidToken
}

// Get returns the account with the given id.
func (s *Service) Get(ctx context.Context, accountID string) (*Account, error) {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error loading account: %v", err)
	}
	return account, nil
}

// UpdateAvatar sniffs the image type, uploads the bytes to the avatar store,
// and saves the resulting URL on the account.
func (s *Service) UpdateAvatar(ctx context.Context, accountID string, data []byte) (*Account, error) {
	contentType := http.DetectContentType(data)
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedMediaType, contentType)
	}

	url, err := s.avatars.Upload(ctx, data, contentType, ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUploadFailed, err)
	}

	if err := s.repo.UpdateAvatarURL(ctx, accountID, url); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error updating avatar: %v", err)
	}
	return s.repo.GetByID(ctx, accountID)
}

// Authorize extracts the account id from a bearer access token.
func (s *Service) Authorize(tokenString string) (string, error) {
	return auth.GetUserIDFromToken(tokenString, s.jwtSecret)
}

// --- helpers below ---

// NormalizeEmail lowercases and trims an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail reports whether email is a plain RFC 5322 address without a
// display name.
func IsValidEmail(email string) bool {
	if utf8.RuneCountInString(email) > MaxEmailLength {
		return false
	}
	addr, err := netmail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// HashToken returns the hex SHA-256 of a token. Only hashes are stored, so a
// database leak does not expose usable verification links.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return common.ErrWeakPassword
	}
	return nil
}

func (s *Service) verificationLink(token string) string {
	return strings.TrimRight(s.publicBaseURL, "/") + "/auth/verify/" + token
}

func (s *Service) generateTokenPair(ctx context.Context, accountID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(accountID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := s.refreshTokenRepo.WithTx(tx).Create(ctx, accountID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
