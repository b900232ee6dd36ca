// Точка входа Catalog Bot — Telegram-бот каталога файлов.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт сервисный слой и диспетчер событий, запускает фоновые задачи
// (очистка просроченных загрузок, topologymetrics), приём обновлений
// (long polling или webhook) и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/goartstore/catalog-bot/internal/api/handlers"
	"github.com/bigkaa/goartstore/catalog-bot/internal/api/middleware"
	"github.com/bigkaa/goartstore/catalog-bot/internal/bot"
	"github.com/bigkaa/goartstore/catalog-bot/internal/config"
	"github.com/bigkaa/goartstore/catalog-bot/internal/database"
	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/access"
	"github.com/bigkaa/goartstore/catalog-bot/internal/messenger"
	"github.com/bigkaa/goartstore/catalog-bot/internal/repository"
	"github.com/bigkaa/goartstore/catalog-bot/internal/server"
	"github.com/bigkaa/goartstore/catalog-bot/internal/service"
	"github.com/bigkaa/goartstore/catalog-bot/internal/telegram"
)

// botAPITimeout — таймаут HTTP-запроса к Bot API (больше таймаута long polling).
const botAPITimeout = 30 * time.Second

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	mode := "polling"
	if cfg.TelegramWebhookURL != "" {
		mode = "webhook"
	}
	logger.Info("Catalog Bot запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("mode", mode),
	)

	admins := access.NewAdminSet(cfg.AdminIDs)
	if admins.Len() == 0 {
		logger.Warn("CB_ADMIN_IDS не задан: загрузка файлов и админ-команды недоступны")
	}
	if cfg.RequiredChatID == 0 {
		logger.Info("CB_REQUIRED_CHAT_ID не задан: проверка членства в группе отключена")
	}

	// Контекст жизни процесса: отменяется по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Telegram Bot API
	api, err := telegram.NewBotAPI(cfg.TelegramToken, cfg.TelegramAPIURL, &http.Client{
		Timeout: cfg.TelegramPollTimeout + botAPITimeout,
	})
	if err != nil {
		logger.Error("Ошибка подключения к Telegram", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Бот авторизован", slog.String("username", api.Self.UserName))
	tg := telegram.NewClient(api, logger)

	// 6. Repositories
	repos := repository.NewRepos(pool)
	txRunner := repository.NewTxRunner(pool)

	// 7. Кэши (expirable LRU)
	fileCache := service.NewFileCache(cfg.FileCacheSize, cfg.FileCacheTTL)
	sessionCache := service.NewSessionCache(cfg.SearchSessionCacheSize, cfg.SearchSessionTTL)
	membershipCache := service.NewMembershipCache(cfg.MembershipCacheSize, cfg.MemberCacheTTL, cfg.NonMemberCacheTTL)

	// 8. Services
	quotaSvc := service.NewQuotaService(repos.Quotas, cfg.DailyQuota)
	favoritesSvc := service.NewFavoritesService(txRunner, repos.Favorites, repos.Files, cfg.FavoritesLimit, logger)
	catalogSvc := service.NewCatalogService(repos.Files, repos.Pending, repos.Users, fileCache, admins, logger)
	svcs := bot.Services{
		Users:      service.NewUserService(repos.Users, quotaSvc, favoritesSvc, logger),
		Gate:       service.NewMembershipGate(tg, membershipCache, admins, cfg.RequiredChatID, cfg.RequiredChatInvite, logger),
		Catalog:    catalogSvc,
		Search:     service.NewSearchService(repos.Files, sessionCache, cfg.PageSize, logger),
		Downloads:  service.NewDownloadService(catalogSvc, quotaSvc, favoritesSvc, tg, logger),
		Favorites:  favoritesSvc,
		Moderation: service.NewModerationService(txRunner, repos.Pending, repos.Files, admins, cfg.PendingTTL, logger),
		Broadcast:  service.NewBroadcastService(repos.Users, tg, admins, cfg.BroadcastDelay, logger),
	}

	// 9. Диспетчер событий
	notifier := messenger.NewNotifier(tg, cfg.NoticeTTL, logger)
	dispatcher := bot.NewDispatcher(svcs, tg, notifier, admins, cfg.ListLimit, logger)
	runner := telegram.NewRunner(dispatcher, cfg.MaxConcurrentUpdates, logger)

	// 10. Фоновые задачи
	sweeper := service.NewPendingSweeper(repos.Pending, tg, cfg.PendingSweepInterval, logger)
	sweeper.Start(ctx)

	// 10.1 topologymetrics — мониторинг зависимостей (PostgreSQL + Bot API)
	var tgChecker handlers.ReadinessChecker
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:      "catalog-bot",
		Group:          cfg.DephealthGroup,
		PgConnURL:      cfg.DatabaseURL("postgres"),
		TelegramAPIURL: cfg.TelegramAPIURL,
		CheckInterval:  cfg.DephealthCheckInterval,
		IsEntry:        cfg.DephealthIsEntry,
	}, pgDB, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
		dephealthSvc = nil
	} else {
		tgChecker = dephealthSvc
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 11. Приём обновлений
	var webhook http.Handler
	pollerDone := make(chan struct{})
	if cfg.TelegramWebhookURL != "" {
		if err := telegram.SetWebhook(api, cfg.TelegramWebhookURL, cfg.TelegramWebhookSecret); err != nil {
			logger.Error("Ошибка регистрации webhook", slog.String("error", err.Error()))
			os.Exit(1)
		}
		webhook = telegram.NewWebhookHandler(ctx, cfg.TelegramWebhookSecret, runner, logger)
		close(pollerDone)
	} else {
		if err := telegram.DeleteWebhook(api); err != nil {
			logger.Error("Ошибка удаления webhook", slog.String("error", err.Error()))
			os.Exit(1)
		}
		poller := telegram.NewPoller(api, runner, cfg.TelegramPollTimeout, logger)
		go func() {
			defer close(pollerDone)
			poller.Run(ctx)
		}()
	}

	// 12. HTTP-сервер: health, metrics, webhook
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool), tgChecker)
	srv := server.New(cfg, logger, healthHandler, webhook,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	)

	// 13. Запуск сервера (блокирующий вызов до сигнала завершения)
	exitCode := 0
	if err := srv.Run(ctx); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		exitCode = 1
		stop()
	}

	// 14. Остановка: приём обновлений, обработка, фоновые задачи
	<-pollerDone
	runner.Wait()
	dispatcher.Close()
	sweeper.Stop()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Catalog Bot остановлен")
	if exitCode != 0 {
		pgDB.Close()
		pool.Close()
		os.Exit(exitCode)
	}
}
