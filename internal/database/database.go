package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/adminauth/internal/logging"
	"github.com/example/adminauth/internal/models"
	"github.com/example/adminauth/internal/repository"
)

// MemoryDSN selects the in-process store instead of Postgres.
const MemoryDSN = "memory://"

// Connect opens the database, creating it if missing, and runs migrations.
func Connect(ctx context.Context, dsn string, log logging.Logger) (*gorm.DB, error) {
	if err := ensureDatabase(ctx, dsn); err != nil {
		return nil, fmt.Errorf("ensure database: %w", err)
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := conn.WithContext(ctx).Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		log.Warn(ctx, "failed to ensure uuid-ossp extension", "error", err)
	}

	if err := migrate(conn.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return conn, nil
}

// OpenAuthRepo returns the repository selected by dsn.
func OpenAuthRepo(ctx context.Context, dsn string, log logging.Logger) (repository.AuthRepo, error) {
	if dsn == MemoryDSN {
		log.Warn(ctx, "using in-memory store, data is lost on restart")
		return repository.NewMemoryAuthRepo(), nil
	}

	conn, err := Connect(ctx, dsn, log)
	if err != nil {
		return nil, err
	}
	return repository.NewGormAuthRepo(conn), nil
}

func migrate(conn *gorm.DB) error {
	migrations := []interface{}{
		&models.AdminUser{},
		&models.EmailVerification{},
	}

	for _, migration := range migrations {
		if err := conn.AutoMigrate(migration); err != nil {
			return err
		}
	}

	return nil
}

// maintenanceDSN points dsn at the postgres maintenance database and returns the
// name of the database it originally targeted. ok is false for non-URL DSNs.
func maintenanceDSN(dsn string) (master, name string, ok bool, err error) {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return "", "", false, nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", "", false, err
	}

	name = strings.TrimPrefix(parsed.Path, "/")
	if name == "" {
		return "", "", false, nil
	}

	parsed.Path = "/postgres"
	return parsed.String(), name, true, nil
}

func ensureDatabase(ctx context.Context, dsn string) error {
	master, name, ok, err := maintenanceDSN(dsn)
	if err != nil || !ok {
		return err
	}

	sqlDB, err := sql.Open("postgres", master)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}

	var exists bool
	if err := sqlDB.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = sqlDB.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name))
	return err
}
