package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/secnex/admin-bootstrap/config"
	"github.com/secnex/admin-bootstrap/database"
	"github.com/secnex/admin-bootstrap/handlers"
	"github.com/secnex/admin-bootstrap/logger"
	"github.com/secnex/admin-bootstrap/models"
	"github.com/secnex/admin-bootstrap/seed"
)

type App struct {
	Config *config.Config
}

func (a *App) open() (*database.Runner, error) {
	db, err := database.Connect(a.Config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return database.NewRunner(db), nil
}

func (a *App) definitions() (*seed.Definitions, error) {
	if a.Config.SeedFile == "" {
		return seed.Defaults()
	}
	return seed.Load(os.DirFS(filepath.Dir(a.Config.SeedFile)), filepath.Base(a.Config.SeedFile))
}

func (a *App) seed(ctx context.Context, runner *database.Runner) error {
	if err := runner.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	defs, err := a.definitions()
	if err != nil {
		return err
	}

	trees := database.NewTreeRepository(runner)
	initializer := seed.New(
		trees,
		database.NewUserRepository(runner),
		database.NewRoleRepository(runner),
		database.NewGroupRepository(runner),
		defs,
		seed.Options{
			AdminPassword: a.Config.AdminPassword,
			BcryptCost:    a.Config.BcryptCost,
		},
	)
	if err := initializer.Run(ctx); err != nil {
		return err
	}

	for _, t := range models.TreeTypes() {
		n, err := trees.CountByType(ctx, t)
		if err != nil {
			return err
		}
		logger.Info("Tree ready", map[string]interface{}{"type": t, "nodes": n})
	}
	return nil
}

type ServeCommand struct{}

func (c *ServeCommand) Run(app *App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := app.open()
	if err != nil {
		return err
	}
	defer runner.DB().Close()

	if app.Config.SeedEnabled {
		if err := app.seed(ctx, runner); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	} else {
		logger.Info("Seeding disabled", nil)
	}

	server := &http.Server{
		Addr:              ":" + app.Config.Port,
		Handler:           handlers.NewRouter(runner, app.Config.PingTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Admin API starting", map[string]interface{}{"port": app.Config.Port, "environment": app.Config.Environment})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...", nil)
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type SeedCommand struct{}

func (c *SeedCommand) Run(app *App) error {
	runner, err := app.open()
	if err != nil {
		return err
	}
	defer runner.DB().Close()

	return app.seed(context.Background(), runner)
}

type PingCommand struct {
	Timeout time.Duration `help:"Ping timeout, overrides PING_TIMEOUT." short:"t"`
}

func (c *PingCommand) Run(app *App) error {
	timeout := app.Config.PingTimeout
	if c.Timeout > 0 {
		timeout = c.Timeout
	}

	runner, err := app.open()
	if err != nil {
		return err
	}
	defer runner.DB().Close()

	ctx := context.Background()
	if !runner.IsValid(ctx, timeout) {
		return fmt.Errorf("database did not answer within %s", timeout)
	}

	info, err := runner.QueryFirstMap(ctx, `SELECT version() AS version, current_database() AS database`)
	if err != nil {
		return err
	}
	logger.Info("Database reachable", info)
	return nil
}
