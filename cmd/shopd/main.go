package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	shop "github.com/goliatone/go-shop"
	"github.com/goliatone/go-shop/mailer"
	"github.com/goliatone/go-shop/middleware/bearer"
	"github.com/goliatone/go-shop/storage"
)

type App struct {
	config   *AppConfig
	db       *bun.DB
	repo     shop.RepositoryManager
	auther   *shop.Auther
	verifier *shop.Verifier
	images   storage.ImageStore
	mail     shop.Mailer
	engine   *django.Engine
	srv      *fiber.App
	logger   shop.Logger
}

func main() {
	cfg := LoadConfig()

	if cfg.SigningKey == "" {
		log.Fatal("AUTH_SECRET is required")
	}

	app := &App{
		config: cfg,
		logger: stdLogger{},
	}

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		log.Fatal(err)
	}

	if err := WithMail(app); err != nil {
		log.Fatal(err)
	}

	if err := WithStorage(app); err != nil {
		log.Fatal(err)
	}

	if err := WithAuth(app); err != nil {
		log.Fatal(err)
	}

	if err := WithHTTPServer(app); err != nil {
		log.Fatal(err)
	}

	go func() {
		if err := app.srv.Listen(cfg.ServerAddr); err != nil {
			log.Fatal(err)
		}
	}()

	WaitExitSignal()

	if err := app.srv.Shutdown(); err != nil {
		app.logger.Error("server shutdown", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("db close", "error", err)
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	sqldb, err := sql.Open(sqliteshim.ShimName, app.config.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	for _, model := range []any{
		(*shop.User)(nil),
		(*shop.Business)(nil),
		(*shop.Product)(nil),
	} {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			WithForeignKeys().
			Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}

	app.db = db
	app.repo = shop.NewRepositoryManager(db)
	app.repo.MustValidate()

	return nil
}

func WithMail(app *App) error {
	client, err := mailer.New(
		app.config.MailHost,
		app.config.MailUser,
		app.config.MailPassword,
		app.config.MailAddress,
		app.config.MailSkipVerify,
	)
	if err != nil {
		return fmt.Errorf("mail client: %w", err)
	}

	if !client.IsEnabled() {
		app.logger.Warn("mail credentials missing, verification emails will not be delivered")
	}

	app.mail = client

	return nil
}

func WithStorage(app *App) error {
	if app.config.StorageEndpoint == "" {
		app.logger.Warn("storage endpoint missing, image uploads disabled")
		return nil
	}

	images, err := storage.NewMinIOImageStore(
		app.config.StorageEndpoint,
		app.config.StorageAccessKey,
		app.config.StorageSecretKey,
		app.config.StorageBucket,
		app.config.StorageUseSSL,
	)
	if err != nil {
		return fmt.Errorf("image store: %w", err)
	}

	app.images = images

	return nil
}

func WithAuth(app *App) error {
	tokens, err := shop.NewTokenService(app.config, app.logger)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}

	users := app.repo.Users()

	provider := shop.NewUserProvider(users)

	app.auther = shop.NewAuthenticator(provider, users, tokens).
		WithLogger(app.logger)

	app.engine = django.New("./views", ".html")
	if err := app.engine.Load(); err != nil {
		return fmt.Errorf("view engine: %w", err)
	}

	app.verifier = shop.NewVerifier(users, tokens, app.mail, app.engine, app.config).
		WithLogger(app.logger)

	return nil
}

// sessionValidator adapts the authenticator to the bearer middleware contract.
type sessionValidator struct {
	auther *shop.Auther
}

func (v sessionValidator) Validate(raw string) (bearer.AuthClaims, error) {
	claims, err := v.auther.SessionFromToken(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func WithHTTPServer(app *App) error {
	srv := fiber.New(fiber.Config{
		AppName: "shopd",
		Views:   app.engine,
	})

	protected := bearer.New(bearer.Config{
		TokenValidator: sessionValidator{auther: app.auther},
		ContextKey:     app.config.ContextKey,
		TokenLookup:    app.config.TokenLookup,
		AuthScheme:     app.config.AuthScheme,
	})

	controller := shop.NewShopController(
		shop.WithControllerLogger(app.logger),
		shop.WithControllerDebug(app.config.Debug),
		shop.WithControllerRepo(app.repo),
		shop.WithControllerAuther(app.auther),
		shop.WithControllerVerifier(app.verifier),
		shop.WithControllerImages(app.images),
		shop.WithControllerContextKey(app.config.ContextKey),
	)

	controller.RegisterRoutes(srv, protected)

	app.srv = srv

	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}

type stdLogger struct{}

func (stdLogger) Debug(format string, args ...any) { log.Println(append([]any{"DBG", format}, args...)...) }
func (stdLogger) Info(format string, args ...any)  { log.Println(append([]any{"INF", format}, args...)...) }
func (stdLogger) Warn(format string, args ...any)  { log.Println(append([]any{"WRN", format}, args...)...) }
func (stdLogger) Error(format string, args ...any) { log.Println(append([]any{"ERR", format}, args...)...) }
