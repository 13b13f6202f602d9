package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-blog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// slogAdapter bridges the package's printf-style Logger onto slog.
type slogAdapter struct {
	l *slog.Logger
}

func (s slogAdapter) Debug(format string, args ...any) { s.l.Debug(fmt.Sprintf(format, args...)) }
func (s slogAdapter) Info(format string, args ...any)  { s.l.Info(fmt.Sprintf(format, args...)) }
func (s slogAdapter) Error(format string, args ...any) { s.l.Error(fmt.Sprintf(format, args...)) }

func main() {
	logger := slogAdapter{l: slog.New(slog.NewTextHandler(os.Stderr, nil))}
	cfg, err := blog.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	users, err := blog.NewUsers(db, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		log.Fatalf("users store: %v", err)
	}
	users.WithLogger(logger)

	entries, err := blog.NewEntries(db)
	if err != nil {
		log.Fatalf("entries store: %v", err)
	}
	entries.WithLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := users.Init(ctx); err != nil {
		log.Fatalf("users init: %v", err)
	}
	if err := entries.Init(ctx); err != nil {
		log.Fatalf("entries init: %v", err)
	}

	tokens := blog.NewTokenManager(cfg).WithLogger(logger)
	auth := blog.NewAuthenticator(users, tokens, cfg).WithLogger(logger)

	app := fiber.New(fiber.Config{
		Views: django.New(cfg.ViewsDir, ".html"),
	})

	blog.NewAuthController(users, auth, tokens).WithLogger(logger).RegisterRoutes(app)
	blog.NewBlogController(entries, users).WithLogger(logger).RegisterRoutes(app, auth)
	blog.NewBlogAPIController(entries, users).WithLogger(logger).RegisterRoutes(app, auth)

	go func() {
		if err := app.Listen(cfg.Addr); err != nil {
			log.Printf("listen: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	if err := app.Shutdown(); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
