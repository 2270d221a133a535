package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/registrar/internal/account"
	accountStore "github.com/MrJamesThe3rd/registrar/internal/account/store"
	"github.com/MrJamesThe3rd/registrar/internal/auditlog"
	auditStore "github.com/MrJamesThe3rd/registrar/internal/auditlog/store"
	"github.com/MrJamesThe3rd/registrar/internal/auth"
	"github.com/MrJamesThe3rd/registrar/internal/cache"
	"github.com/MrJamesThe3rd/registrar/internal/catalog"
	catalogStore "github.com/MrJamesThe3rd/registrar/internal/catalog/store"
	"github.com/MrJamesThe3rd/registrar/internal/config"
	"github.com/MrJamesThe3rd/registrar/internal/database"
	"github.com/MrJamesThe3rd/registrar/internal/department"
	departmentStore "github.com/MrJamesThe3rd/registrar/internal/department/store"
	"github.com/MrJamesThe3rd/registrar/internal/events"
	registrarHttp "github.com/MrJamesThe3rd/registrar/internal/http"
	accountHandler "github.com/MrJamesThe3rd/registrar/internal/http/account"
	activityHandler "github.com/MrJamesThe3rd/registrar/internal/http/activity"
	catalogHandler "github.com/MrJamesThe3rd/registrar/internal/http/catalog"
	departmentHandler "github.com/MrJamesThe3rd/registrar/internal/http/department"
	reportHandler "github.com/MrJamesThe3rd/registrar/internal/http/report"
	txHandler "github.com/MrJamesThe3rd/registrar/internal/http/transaction"
	"github.com/MrJamesThe3rd/registrar/internal/matching"
	matchingStore "github.com/MrJamesThe3rd/registrar/internal/matching/store"
	"github.com/MrJamesThe3rd/registrar/internal/notify"
	"github.com/MrJamesThe3rd/registrar/internal/report"
	reportStore "github.com/MrJamesThe3rd/registrar/internal/report/store"
	"github.com/MrJamesThe3rd/registrar/internal/transaction"
	txStore "github.com/MrJamesThe3rd/registrar/internal/transaction/store"
	"github.com/MrJamesThe3rd/registrar/internal/upload"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db); err != nil {
		return err
	}

	var (
		auditService      = auditlog.NewService(auditStore.New(db))
		accountService    = account.NewService(accountStore.New(db), auditService)
		departmentService = department.NewService(departmentStore.New(db), auditService)
		catalogService    = catalog.NewService(catalogStore.New(db), auditService)
		matchingService   = matching.NewService(matchingStore.New(db), auditService)
		mailer            = newMailer(cfg, accountService)
		notifier          = notify.Fanout{mailer}
	)

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := events.NewProducer(cfg.Kafka.Brokers)
		if err != nil {
			return err
		}

		publisher := events.NewPublisher(producer, cfg.Kafka.Topic)
		defer publisher.Close()

		notifier = append(notifier, publisher)
	}

	var summaries report.Cache

	if cfg.Redis.Addr != "" {
		redis, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.SummaryTTL)
		if err != nil {
			slog.Warn("report cache disabled", "error", err)
		} else {
			defer redis.Close()

			summaries = redis
		}
	}

	var (
		transactionService = transaction.NewService(txStore.New(db), catalogService, notifier)
		reportService      = report.NewService(reportStore.New(db), summaries)
		issuer             = auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
		uploads            = upload.New(cfg.Uploads.Dir, cfg.Uploads.MaxBytes)
	)

	router := registrarHttp.New(cfg.CORS.AllowedOrigins, issuer, registrarHttp.Handlers{
		Accounts:    accountHandler.NewHandler(accountService, issuer),
		Departments: departmentHandler.NewHandler(departmentService),
		Catalog:     catalogHandler.NewHandler(catalogService, matchingService),
		Transactions: txHandler.NewHandler(
			transactionService,
			uploads,
			accountService,
			departmentService,
			cfg.Slip.Institution,
			cfg.Uploads.MaxBytes,
		),
		Reports:  reportHandler.NewHandler(reportService),
		Activity: activityHandler.NewHandler(auditService),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "app", cfg.App.Name, "addr", srv.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func newMailer(cfg *config.Config, accounts notify.Directory) *notify.Mailer {
	var sender notify.Sender = notify.LogSender{}
	if cfg.SendGrid.APIKey != "" {
		sender = notify.NewSendGrid(cfg.SendGrid.APIKey)
	}

	return notify.NewMailer(accounts, sender, cfg.SendGrid.FromName, cfg.SendGrid.FromEmail)
}
