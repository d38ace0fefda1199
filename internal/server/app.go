// Package server initializes and runs the contactbook application: it wires
// storage, the mail dispatcher, the rate limiter and the HTTP server, and
// handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-redis/redis/v8"

	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/accounts"
	"github.com/dmitrijs2005/contactbook/internal/server/avatars"
	"github.com/dmitrijs2005/contactbook/internal/server/config"
	"github.com/dmitrijs2005/contactbook/internal/server/contacts"
	"github.com/dmitrijs2005/contactbook/internal/server/httpapi"
	"github.com/dmitrijs2005/contactbook/internal/server/mail"
	"github.com/dmitrijs2005/contactbook/internal/server/ratelimit"
	"github.com/dmitrijs2005/contactbook/internal/server/shared/db"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	repos      db.RepositoryManager
	redis      *redis.Client
	dispatcher *mail.Dispatcher
	httpServer *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {

	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	rm, err := db.NewPostgresRepositoryManager(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	limiter := ratelimit.NewLimiter(redisClient, c.RateLimitRequests, c.RateLimitWindow)

	sender := mail.NewSMTPSender(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword, c.SMTPFrom)
	dispatcher := mail.NewDispatcher(sender, logger, c.MailQueueSize)

	avatarStore := avatars.NewS3Store(c)

	accountService := accounts.NewService(rm.Conn(), rm.Accounts(), rm.RefreshTokens(),
		rm.EmailTokens(), dispatcher, avatarStore, c)
	contactService := contacts.NewService(rm.Contacts())

	httpServer := httpapi.NewServer(c, logger, accountService, contactService, limiter, rm.Conn())

	return &App{
		config:     c,
		logger:     logger,
		repos:      rm,
		redis:      redisClient,
		dispatcher: dispatcher,
		httpServer: httpServer,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.dispatcher.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.redis.Close(); err != nil {
		app.logger.Error(ctx, "redis close error", "error", err.Error())
	}
	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}

	app.logger.Info(context.Background(), "App stopped")
}
