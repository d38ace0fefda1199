// Package httpapi is the REST edge of the contactbook server. It translates
// HTTP requests into service calls and domain errors into the status codes
// of the public contract.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/accounts"
	"github.com/dmitrijs2005/contactbook/internal/server/config"
	"github.com/dmitrijs2005/contactbook/internal/server/contacts"
	"github.com/dmitrijs2005/contactbook/internal/server/ratelimit"
)

const (
	maxJSONBodySize = 1 << 20

	shutdownTimeout = 10 * time.Second
	healthzTimeout  = 3 * time.Second
)

// AccountService is the slice of the accounts service the edge consumes.
type AccountService interface {
	Register(ctx context.Context, email string, password string) (*accounts.Account, error)
	Authenticate(ctx context.Context, email string, password string) (*accounts.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*accounts.TokenPair, error)
	VerifyEmail(ctx context.Context, token string) error
	Get(ctx context.Context, accountID string) (*accounts.Account, error)
	UpdateAvatar(ctx context.Context, accountID string, data []byte) (*accounts.Account, error)
	Authorize(tokenString string) (string, error)
}

// ContactService is the slice of the contacts service the edge consumes.
type ContactService interface {
	Create(ctx context.Context, ownerID string, params contacts.CreateParams) (*contacts.Contact, error)
	List(ctx context.Context, ownerID string, skip int, limit int) ([]*contacts.Contact, error)
	Get(ctx context.Context, ownerID string, id string) (*contacts.Contact, error)
	Update(ctx context.Context, ownerID string, id string, params contacts.UpdateParams) (*contacts.Contact, error)
	Delete(ctx context.Context, ownerID string, id string) error
	Search(ctx context.Context, ownerID string, query string) ([]*contacts.Contact, error)
	UpcomingBirthdays(ctx context.Context, ownerID string) ([]*contacts.Contact, error)
}

// RateLimiter decides whether a request fits the caller's quota.
type RateLimiter interface {
	Check(ctx context.Context, identity string, route string) (*ratelimit.Result, error)
}

type Server struct {
	address       string
	logger        logging.Logger
	accounts      AccountService
	contacts      ContactService
	limiter       RateLimiter
	db            *sql.DB
	maxUploadSize int64
	allowedOrigin string
}

func NewServer(cfg *config.Config, l logging.Logger, as AccountService, cs ContactService,
	limiter RateLimiter, db *sql.DB) *Server {
	return &Server{
		address:       cfg.EndpointAddrHTTP,
		logger:        l.With("module", "http_server"),
		accounts:      as,
		contacts:      cs,
		limiter:       limiter,
		db:            db,
		maxUploadSize: cfg.MaxUploadSize,
		allowedOrigin: cfg.AllowedOrigin,
	}
}

// Handler builds the route table. Protected routes go through the bearer
// middleware; GET /users/me additionally through the rate limiter.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/signup", s.handleSignup)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/refresh", s.handleRefresh)
	mux.HandleFunc("GET /auth/verify/{token}", s.handleVerifyEmail)

	mux.HandleFunc("GET /users/me", s.withAuth(s.withRateLimit("users_me", s.handleMe)))
	mux.HandleFunc("PATCH /users/avatar", s.withAuth(s.handleUpdateAvatar))

	mux.HandleFunc("POST /contacts/{$}", s.withAuth(s.handleCreateContact))
	mux.HandleFunc("GET /contacts/{$}", s.withAuth(s.handleListContacts))
	mux.HandleFunc("GET /contacts/search/{$}", s.withAuth(s.handleSearchContacts))
	mux.HandleFunc("GET /contacts/birthdays/{$}", s.withAuth(s.handleUpcomingBirthdays))
	mux.HandleFunc("GET /contacts/{id}", s.withAuth(s.handleGetContact))
	mux.HandleFunc("PUT /contacts/{id}", s.withAuth(s.handleUpdateContact))
	mux.HandleFunc("DELETE /contacts/{id}", s.withAuth(s.handleDeleteContact))

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return s.withRequestLog(s.withCORS(mux))
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthzTimeout)
	defer cancel()

	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Error(ctx, "health check failed", "error", err.Error())
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
