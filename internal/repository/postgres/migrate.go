package postgres

import (
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func migrationSource() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations",
	}
}

// Migrate applies every pending migration and returns how many ran.
func Migrate(db *sqlx.DB) (int, error) {
	n, err := migrate.Exec(db.DB, "postgres", migrationSource(), migrate.Up)
	if err != nil {
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return n, nil
}

// Rollback reverts at most steps migrations.
func Rollback(db *sqlx.DB, steps int) (int, error) {
	n, err := migrate.ExecMax(db.DB, "postgres", migrationSource(), migrate.Down, steps)
	if err != nil {
		return 0, fmt.Errorf("failed to roll back migrations: %w", err)
	}
	return n, nil
}
