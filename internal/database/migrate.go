package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/tern/v2/migrate"
	"github.com/mekanizma/modli/backend/internal/config"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrations embed.FS

const versionTable = "schema_version"

func Migrate(ctx context.Context, logger *zerolog.Logger, cfg config.DatabaseConfig) error {
	conn, err := pgx.Connect(ctx, URL(cfg))
	if err != nil {
		return fmt.Errorf("failed to connect for migration: %w", err)
	}
	defer conn.Close(ctx)

	m, err := migrate.NewMigrator(ctx, conn, versionTable)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	subtree, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	if err = m.LoadMigrations(subtree); err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	from, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	m.OnStart = func(sequence int32, name, direction, _ string) {
		logger.Info().Int32("sequence", sequence).Str("name", name).Str("direction", direction).Msg("applying migration")
	}

	if err = m.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	if from == int32(len(m.Migrations)) {
		logger.Info().Int32("version", from).Msg("database schema up to date")
	} else {
		logger.Info().Int32("from", from).Int("to", len(m.Migrations)).Msg("database schema migrated")
	}

	return nil
}
