package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "github.com/akash-limitlessglobaltechnologies/contract/internal/auth"
	"github.com/akash-limitlessglobaltechnologies/contract/internal/contracts"
	"github.com/akash-limitlessglobaltechnologies/contract/internal/notify"
	"github.com/akash-limitlessglobaltechnologies/contract/internal/payments"
	"github.com/akash-limitlessglobaltechnologies/contract/internal/shared/config"
	"github.com/akash-limitlessglobaltechnologies/contract/internal/shared/server"
	"github.com/akash-limitlessglobaltechnologies/contract/internal/shared/storage/db"
	"github.com/akash-limitlessglobaltechnologies/contract/internal/shared/storage/object"
	localstore "github.com/akash-limitlessglobaltechnologies/contract/internal/shared/storage/object/local"
	s3store "github.com/akash-limitlessglobaltechnologies/contract/internal/shared/storage/object/s3"
	"github.com/akash-limitlessglobaltechnologies/contract/internal/users"
)

// App holds the wired dependencies behind the API.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore

	ContractsRepo   contracts.Repo
	UsersRepo       users.Repo
	ContractsSvc    *contracts.Service
	PaymentsSvc     *payments.Service
	UsersSvc        *users.Service
	NotifySvc       *notify.Service
	ContractHandler *contracts.Handler
	PaymentHandler  *payments.Handler
	UserHandler     *users.Handler
	GoogleAuth      *googleauth.GoogleService
}

// Build prepares the full dependency graph and router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:     app.Config,
		Contracts:  app.ContractHandler,
		Payments:   app.PaymentHandler,
		Users:      app.UserHandler,
		GoogleAuth: app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(app *App) error {
	if app.DB != nil {
		app.ContractsRepo = &contracts.PGRepo{DB: app.DB}
		app.UsersRepo = &users.PGRepo{DB: app.DB}
	} else {
		app.ContractsRepo = contracts.NewMemoryRepo()
		app.UsersRepo = users.NewMemoryRepo()
	}

	app.UsersSvc = users.NewService(app.UsersRepo)

	if strings.TrimSpace(app.Config.SMTPHost) != "" {
		sender, err := notify.NewSMTPSender(notify.SMTPOptions{
			Host:     app.Config.SMTPHost,
			Port:     app.Config.SMTPPort,
			Username: app.Config.SMTPUser,
			Password: app.Config.SMTPPassword,
			From:     app.Config.EmailFrom,
		})
		if err != nil {
			return err
		}
		app.NotifySvc = notify.NewService(sender, app.Config.FrontendURL, notify.RetryPolicy{
			MaxAttempts: app.Config.EmailRetries,
			Delay:       app.Config.EmailBackoff,
		})
	} else {
		log.Printf("bootstrap: SMTP_HOST empty; invitation emails disabled")
	}

	app.ContractsSvc = &contracts.Service{
		Repo:  app.ContractsRepo,
		Store: app.Store,
	}
	if app.NotifySvc != nil {
		app.ContractsSvc.Notifier = app.NotifySvc
	}
	app.ContractHandler = contracts.NewHandler(app.ContractsSvc)

	var intentClient payments.IntentClient = payments.PlaceholderClient{}
	if strings.TrimSpace(app.Config.StripeSecretKey) != "" {
		stripeClient, err := payments.NewStripeClient(app.Config.StripeSecretKey)
		if err != nil {
			return err
		}
		intentClient = stripeClient
	} else {
		log.Printf("bootstrap: STRIPE_SECRET_KEY empty; payment intents disabled")
	}
	app.PaymentsSvc = &payments.Service{Repo: app.ContractsRepo, Client: intentClient}
	app.PaymentHandler = payments.NewHandler(app.PaymentsSvc)

	app.UserHandler = users.NewHandler(app.UsersSvc)
	app.GoogleAuth = googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		app.UsersSvc,
	)

	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
