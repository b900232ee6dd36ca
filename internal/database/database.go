// Пакет database — подключение к PostgreSQL через pgxpool,
// применение миграций (golang-migrate) и проверка готовности
// с контролем версии схемы.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // драйвер pgx5://
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/goartstore/catalog-bot/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// applicationName — имя клиента в pg_stat_activity.
const applicationName = "catalog-bot"

// readyTimeout — таймаут проверки готовности.
const readyTimeout = 3 * time.Second

// Connect создаёт пул подключений к PostgreSQL и проверяет доступность ping-ом.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула подключений: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка подключения к PostgreSQL: %w", err)
	}

	logger.Info("Подключение к PostgreSQL установлено",
		slog.String("host", cfg.DBHost),
		slog.String("database", cfg.DBName),
		slog.Int("max_conns", int(poolCfg.MaxConns)),
	)
	return pool, nil
}

// Migrate применяет встроенные миграции и проверяет, что база
// пришла к версии SchemaVersion без флага dirty.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка создания источника миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.DatabaseURL("pgx5"))
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer m.Close()
	m.Log = migrateLogger{logger: logger.With(slog.String("component", "migrate"))}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("ошибка чтения версии схемы: %w", err)
	}
	if dirty {
		return fmt.Errorf("миграция %d не завершена (dirty)", version)
	}
	logger.Info("Миграции применены", slog.Uint64("version", uint64(version)))
	return nil
}

// SchemaVersion возвращает номер последней встроенной миграции.
func SchemaVersion() (uint, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("ошибка создания источника миграций: %w", err)
	}
	defer source.Close()

	version, err := source.First()
	if err != nil {
		return 0, fmt.Errorf("нет встроенных миграций: %w", err)
	}
	for {
		next, err := source.Next(version)
		if errors.Is(err, fs.ErrNotExist) {
			return version, nil
		}
		if err != nil {
			return 0, fmt.Errorf("ошибка обхода миграций: %w", err)
		}
		version = next
	}
}

// migrateLogger направляет вывод golang-migrate в slog.
type migrateLogger struct {
	logger *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool { return false }

// DB — часть pgxpool.Pool, нужная проверке готовности.
type DB interface {
	Ping(ctx context.Context) error
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ReadinessChecker — готовность PostgreSQL для health endpoint:
// подключение и версия схемы. Реализует handlers.ReadinessChecker.
type ReadinessChecker struct {
	db   DB
	want uint
}

// NewReadinessChecker создаёт проверку готовности.
// Ожидаемая версия схемы — последняя встроенная миграция.
func NewReadinessChecker(db DB) *ReadinessChecker {
	want, _ := SchemaVersion()
	return &ReadinessChecker{db: db, want: want}
}

// CheckReady возвращает fail при недоступной БД и degraded, если схема
// отстаёт от кода или последняя миграция не завершена.
func (c *ReadinessChecker) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
	defer cancel()

	if err := c.db.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("PostgreSQL недоступен: %v", err)
	}

	var (
		version int64
		dirty   bool
	)
	err := c.db.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return "degraded", "миграции не применены"
	case err != nil:
		return "degraded", fmt.Sprintf("версия схемы неизвестна: %v", err)
	case dirty:
		return "degraded", fmt.Sprintf("миграция %d не завершена (dirty)", version)
	case uint(version) < c.want:
		return "degraded", fmt.Sprintf("схема v%d, ожидалась v%d", version, c.want)
	}
	return "ok", fmt.Sprintf("подключение активно, схема v%d", version)
}
