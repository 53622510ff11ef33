package db

import (
	"context"
	"errors"
	"submission_service/internal/config"
	"submission_service/pkg/logging"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.PostgresMigrate {
		if err := runMigrations(ctx, cfg); err != nil {
			return nil, err
		}
	}

	pgxCfg, err := pgxpool.ParseConfig(cfg.PostgresURL)
	if err != nil {
		return nil, err
	}

	pgxCfg.MaxConns = cfg.PostgresMaxConn
	pgxCfg.MinConns = cfg.PostgresMinConn

	return pgxpool.NewWithConfig(ctx, pgxCfg)
}

func runMigrations(ctx context.Context, cfg *config.Config) error {
	m, err := migrate.New(cfg.MigrationsURL, cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	logging.FromContext(ctx).Info(ctx, "Migrations successfully applied")
	return nil
}
