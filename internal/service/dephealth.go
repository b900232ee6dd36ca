// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Catalog Bot мониторит:
//   - PostgreSQL — SQL checker через существующий pgxpool (connection pool mode, critical)
//   - Telegram Bot API — HTTP checker к базовому URL API (non-critical)
//
// Bot API — внешний сервис: его недоступность не делает бота неготовым
// на уровне /health/ready, но отражается в метриках зависимостей.
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
//   - app_dependency_status_detail — детальный статус
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthConfig — параметры мониторинга зависимостей.
type DephealthConfig struct {
	// ServiceID — имя вершины графа текущего приложения
	ServiceID string
	// Group — имя группы в метриках (CB_DEPHEALTH_GROUP)
	Group string
	// PgConnURL — URL PostgreSQL (для лейблов, не для подключения)
	PgConnURL string
	// TelegramAPIURL — базовый URL Bot API
	TelegramAPIURL string
	// CheckInterval — интервал проверки (CB_DEPHEALTH_CHECK_INTERVAL)
	CheckInterval time.Duration
	// IsEntry — лейбл isentry=yes для всех зависимостей (DEPHEALTH_ISENTRY)
	IsEntry bool
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
//
// db — *sql.DB, полученный из pgxpool через stdlib.OpenDBFromPool():
// проверка идёт через реальный пул и обнаруживает его исчерпание.
func NewDephealthService(cfg DephealthConfig, db *sql.DB, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(cfg, db, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	cfg DephealthConfig,
	db *sql.DB,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(cfg, db, logger, dephealth.WithRegisterer(registerer))
}

func newDephealthService(
	cfg DephealthConfig,
	db *sql.DB,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	pgDepOpts := []dephealth.DependencyOption{
		dephealth.FromURL(cfg.PgConnURL),
		dephealth.CheckInterval(cfg.CheckInterval),
		dephealth.Critical(true),
	}
	tgDepOpts := []dephealth.DependencyOption{
		dephealth.FromURL(cfg.TelegramAPIURL),
		dephealth.WithHTTPHealthPath("/"),
		dephealth.CheckInterval(cfg.CheckInterval),
		dephealth.Critical(false),
	}
	if cfg.IsEntry {
		pgDepOpts = append(pgDepOpts, dephealth.WithLabel("isentry", "yes"))
		tgDepOpts = append(tgDepOpts, dephealth.WithLabel("isentry", "yes"))
	}

	opts := make([]dephealth.Option, 0, 3+len(extraOpts))
	opts = append(opts,
		dephealth.WithLogger(logger),
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(db)), pgDepOpts...),
		dephealth.HTTP("telegram-bot-api", tgDepOpts...),
	)
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен (PostgreSQL + Telegram Bot API)")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}

// CheckReady — состояние Telegram Bot API для readiness probe.
// Bot API некритичен: его недоступность даёт "degraded", а не "fail".
// Health() возвращает ключи формата "dependency:host:port".
func (ds *DephealthService) CheckReady() (status, message string) {
	for key, ok := range ds.Health() {
		if !strings.HasPrefix(key, "telegram-bot-api:") {
			continue
		}
		if ok {
			return "ok", "Bot API доступен"
		}
		return "degraded", "Bot API недоступен"
	}
	return "ok", "проверка ещё не выполнялась"
}
