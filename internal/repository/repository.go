// Package repository provides methods to work with DB
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/UnendingLoop/ImageEvents/internal/model"
	"github.com/UnendingLoop/ImageEvents/internal/repository/imgpostgres"
	"github.com/UnendingLoop/ImageEvents/internal/repository/userpostgres"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

type ImageRepo interface {
	Create(ctx context.Context, img *model.Image) (int64, error)
	Get(ctx context.Context, id int64) (*model.Image, error)
	GetOwned(ctx context.Context, id, userID int64) (*model.Image, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Image, error)
	Update(ctx context.Context, id, userID int64, patch model.ImagePatch, at time.Time) error
	Delete(ctx context.Context, id, userID int64) error
}

type UserRepo interface {
	Create(ctx context.Context, u *model.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

func NewPostgresImageRepo(dbconn *dbpg.DB) ImageRepo {
	return imgpostgres.PostgresRepo{DB: dbconn}
}

func NewPostgresUserRepo(dbconn *dbpg.DB) UserRepo {
	return userpostgres.PostgresRepo{DB: dbconn}
}

// ConnectWithRetries - пытается подключиться к БД retryCount раз, между попытками ждет idleTime
func ConnectWithRetries(dsn string, retryCount int, idleTime time.Duration) (*dbpg.DB, error) {
	dbOptions := dbpg.Options{
		MaxOpenConns:    5,
		MaxIdleConns:    5,
		ConnMaxLifetime: 10 * time.Minute,
	}

	var dbConn *dbpg.DB
	var err error

	for i := range retryCount {
		dbConn, err = dbpg.New(dsn, nil, &dbOptions)
		if err == nil {
			if err = dbConn.Master.Ping(); err == nil {
				return dbConn, nil
			}
		}
		zlog.Logger.Warn().Err(err).Int("attempt", i+1).Msgf("Failed to connect to PGDB, waiting %v before next retry", idleTime)
		time.Sleep(idleTime)
	}

	return nil, fmt.Errorf("failed to connect to DB after %d attempts: %w", retryCount, err)
}

// MigrateWithRetries - накатывает миграции из migrationsPath
func MigrateWithRetries(db *sql.DB, migrationsPath string, retries int, idle time.Duration) error {
	var err error
	for i := range retries {
		zlog.Logger.Info().Int("attempt", i+1).Msg("Running migrations...")
		if err = runMigrate(db, migrationsPath); err == nil {
			return nil
		}
		zlog.Logger.Warn().Err(err).Msgf("Migration attempt was unsuccessful, waiting %v before next try", idle)
		time.Sleep(idle)
	}
	return fmt.Errorf("out of migration retries: %w", err)
}

func runMigrate(db *sql.DB, migrationsPath string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(migrationsPath)
	if err != nil {
		return err
	}

	sourceURL := "file://" + absPath
	zlog.Logger.Info().Str("source", sourceURL).Msg("Running migrations")

	m, err := migrate.NewWithDatabaseInstance(
		sourceURL,
		"postgres",
		driver,
	)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	zlog.Logger.Info().Msg("Database migrations applied successfully")
	return nil
}
