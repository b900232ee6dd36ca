// Пакет config — загрузка и валидация конфигурации Catalog Bot
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Catalog Bot.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (health, metrics, webhook)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Telegram ---

	// Токен бота
	TelegramToken string
	// Базовый URL Bot API (self-hosted сервер или api.telegram.org)
	TelegramAPIURL string
	// Публичный URL webhook; пусто — long polling
	TelegramWebhookURL string
	// Секретный сегмент пути webhook
	TelegramWebhookSecret string
	// Таймаут long polling
	TelegramPollTimeout time.Duration
	// Максимум одновременно обрабатываемых событий
	MaxConcurrentUpdates int

	// --- Доступ ---

	// ID администраторов
	AdminIDs []int64
	// ID обязательной группы/канала (0 — проверка членства отключена)
	RequiredChatID int64
	// Ссылка-приглашение в группу (пусто — генерируется через API)
	RequiredChatInvite string
	// TTL кэша для подтверждённых участников
	MemberCacheTTL time.Duration
	// TTL кэша для не-участников (короче, чтобы только что вступившие прошли быстро)
	NonMemberCacheTTL time.Duration
	// Максимальный размер кэша членства
	MembershipCacheSize int

	// --- Каталог и поиск ---

	// Количество результатов на странице
	PageSize int
	// Время жизни поисковой сессии
	SearchSessionTTL time.Duration
	// Максимальный размер кэша поисковых сессий
	SearchSessionCacheSize int
	// Количество файлов в recent/trending
	ListLimit int
	// Размер LRU-кэша записей каталога
	FileCacheSize int
	// TTL записей в LRU-кэше каталога
	FileCacheTTL time.Duration

	// --- Лимиты ---

	// Дневная квота скачиваний на пользователя
	DailyQuota int
	// Максимальный размер избранного
	FavoritesLimit int

	// --- Модерация ---

	// Время жизни ожидающей загрузки
	PendingTTL time.Duration
	// Интервал фоновой очистки просроченных загрузок
	PendingSweepInterval time.Duration

	// --- Уведомления и рассылка ---

	// Время жизни временных уведомлений
	NoticeTTL time.Duration
	// Пауза между отправками при рассылке
	BroadcastDelay time.Duration

	// --- topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration
	DephealthIsEntry       bool

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
//
//nolint:cyclop,funlen // линейный разбор переменных
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// CB_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("CB_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("CB_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("CB_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// CB_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("CB_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("CB_LOG_LEVEL: %w", err)
	}

	// CB_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("CB_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("CB_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("CB_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CB_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("CB_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CB_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("CB_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CB_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	if cfg.DBHost, err = getEnvRequired("CB_DB_HOST"); err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("CB_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("CB_DB_PORT: %w", err)
	}
	if cfg.DBName, err = getEnvRequired("CB_DB_NAME"); err != nil {
		return nil, err
	}
	if cfg.DBUser, err = getEnvRequired("CB_DB_USER"); err != nil {
		return nil, err
	}
	if cfg.DBPassword, err = getEnvRequired("CB_DB_PASSWORD"); err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("CB_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("CB_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Telegram ---

	if cfg.TelegramToken, err = getEnvRequired("CB_TELEGRAM_TOKEN"); err != nil {
		return nil, err
	}
	cfg.TelegramAPIURL = strings.TrimRight(getEnvDefault("CB_TELEGRAM_API_URL", "https://api.telegram.org"), "/")
	if !strings.HasPrefix(cfg.TelegramAPIURL, "http://") && !strings.HasPrefix(cfg.TelegramAPIURL, "https://") {
		return nil, fmt.Errorf("CB_TELEGRAM_API_URL: ожидается http(s) URL, получено %q", cfg.TelegramAPIURL)
	}
	cfg.TelegramWebhookURL = strings.TrimRight(getEnvDefault("CB_TELEGRAM_WEBHOOK_URL", ""), "/")
	cfg.TelegramWebhookSecret = getEnvDefault("CB_TELEGRAM_WEBHOOK_SECRET", "")
	if cfg.TelegramWebhookURL != "" && cfg.TelegramWebhookSecret == "" {
		return nil, fmt.Errorf("CB_TELEGRAM_WEBHOOK_SECRET: обязателен при заданном CB_TELEGRAM_WEBHOOK_URL")
	}
	cfg.TelegramPollTimeout, err = getEnvDuration("CB_TELEGRAM_POLL_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CB_TELEGRAM_POLL_TIMEOUT: %w", err)
	}
	cfg.MaxConcurrentUpdates, err = getEnvIntRange("CB_MAX_CONCURRENT_UPDATES", 32, 1, 1024)
	if err != nil {
		return nil, err
	}

	// --- Доступ ---

	cfg.AdminIDs, err = parseIDList(getEnvDefault("CB_ADMIN_IDS", ""))
	if err != nil {
		return nil, fmt.Errorf("CB_ADMIN_IDS: %w", err)
	}
	cfg.RequiredChatID, err = getEnvInt64("CB_REQUIRED_CHAT_ID", 0)
	if err != nil {
		return nil, fmt.Errorf("CB_REQUIRED_CHAT_ID: %w", err)
	}
	cfg.RequiredChatInvite = getEnvDefault("CB_REQUIRED_CHAT_INVITE", "")
	cfg.MemberCacheTTL, err = getEnvPositiveDuration("CB_MEMBER_CACHE_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("CB_MEMBER_CACHE_TTL: %w", err)
	}
	cfg.NonMemberCacheTTL, err = getEnvPositiveDuration("CB_NONMEMBER_CACHE_TTL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CB_NONMEMBER_CACHE_TTL: %w", err)
	}
	cfg.MembershipCacheSize, err = getEnvIntRange("CB_MEMBERSHIP_CACHE_SIZE", 100000, 1, 10000000)
	if err != nil {
		return nil, err
	}

	// --- Каталог и поиск ---

	cfg.PageSize, err = getEnvIntRange("CB_PAGE_SIZE", 10, 1, 50)
	if err != nil {
		return nil, err
	}
	cfg.SearchSessionTTL, err = getEnvPositiveDuration("CB_SEARCH_SESSION_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CB_SEARCH_SESSION_TTL: %w", err)
	}
	cfg.SearchSessionCacheSize, err = getEnvIntRange("CB_SEARCH_SESSION_CACHE_SIZE", 100000, 1, 10000000)
	if err != nil {
		return nil, err
	}
	cfg.ListLimit, err = getEnvIntRange("CB_LIST_LIMIT", 10, 1, 50)
	if err != nil {
		return nil, err
	}
	cfg.FileCacheSize, err = getEnvIntRange("CB_FILE_CACHE_SIZE", 10000, 1, 10000000)
	if err != nil {
		return nil, err
	}
	cfg.FileCacheTTL, err = getEnvPositiveDuration("CB_FILE_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CB_FILE_CACHE_TTL: %w", err)
	}

	// --- Лимиты ---

	cfg.DailyQuota, err = getEnvIntRange("CB_DAILY_QUOTA", 100, 1, 1000000)
	if err != nil {
		return nil, err
	}
	cfg.FavoritesLimit, err = getEnvIntRange("CB_FAVORITES_LIMIT", 50, 1, 1000)
	if err != nil {
		return nil, err
	}

	// --- Модерация ---

	cfg.PendingTTL, err = getEnvPositiveDuration("CB_PENDING_TTL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CB_PENDING_TTL: %w", err)
	}
	cfg.PendingSweepInterval, err = getEnvPositiveDuration("CB_PENDING_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CB_PENDING_SWEEP_INTERVAL: %w", err)
	}

	// --- Уведомления и рассылка ---

	cfg.NoticeTTL, err = getEnvPositiveDuration("CB_NOTICE_TTL", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CB_NOTICE_TTL: %w", err)
	}
	cfg.BroadcastDelay, err = getEnvDuration("CB_BROADCAST_DELAY", 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("CB_BROADCAST_DELAY: %w", err)
	}
	if cfg.BroadcastDelay < 0 {
		return nil, fmt.Errorf("CB_BROADCAST_DELAY: значение не может быть отрицательным")
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("CB_DEPHEALTH_GROUP", "catalog-bot")
	cfg.DephealthCheckInterval, err = getEnvPositiveDuration("CB_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CB_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("CB_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CB_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL (для golang-migrate и меток topologymetrics).
func (c *Config) DatabaseURL(scheme string) string {
	return fmt.Sprintf(
		"%s://%s:%s@%s:%d/%s?sslmode=%s",
		scheme, c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvIntRange — getEnvInt с проверкой диапазона [minVal, maxVal].
func getEnvIntRange(key string, defaultVal, minVal, maxVal int) (int, error) {
	n, err := getEnvInt(key, defaultVal)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < minVal || n > maxVal {
		return 0, fmt.Errorf("%s: значение %d вне допустимого диапазона %d-%d", key, n, minVal, maxVal)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 из переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvPositiveDuration — getEnvDuration с проверкой > 0.
func getEnvPositiveDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	d, err := getEnvDuration(key, defaultVal)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("значение должно быть > 0")
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseIDList разбирает список ID через запятую. Пустые элементы пропускаются.
func parseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("некорректный ID %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
