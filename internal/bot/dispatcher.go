// dispatcher.go — маршрутизация событий, восстановление после паник
// и перевод ошибок сервисов в короткие уведомления.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/access"
	"github.com/bigkaa/goartstore/catalog-bot/internal/messenger"
	"github.com/bigkaa/goartstore/catalog-bot/internal/service"
)

// Prometheus-метрики диспетчера.
var (
	updatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cb_updates_total",
		Help: "Обработанные события по типу и результату (ok, error, denied, panic).",
	}, []string{"kind", "result"})
	updateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cb_update_duration_seconds",
		Help:    "Длительность обработки события в секундах.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)

// reportTimeout — таймаут отправки итогов фоновой рассылки после остановки.
const reportTimeout = 10 * time.Second

// Services — сервисы, которые использует диспетчер.
type Services struct {
	Users      *service.UserService
	Gate       *service.MembershipGate
	Catalog    *service.CatalogService
	Search     *service.SearchService
	Downloads  *service.DownloadService
	Favorites  *service.FavoritesService
	Moderation *service.ModerationService
	Broadcast  *service.BroadcastService
}

// Dispatcher обрабатывает события бота. Безопасен для параллельного вызова
// Handle из нескольких горутин.
type Dispatcher struct {
	svc       Services
	messenger messenger.Messenger
	notifier  *messenger.Notifier
	admins    access.AdminSet
	listLimit int
	logger    *slog.Logger

	// Фоновые задачи (рассылки), переживающие обработку события
	bgCtx    context.Context
	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// NewDispatcher создаёт диспетчер.
// listLimit — количество файлов в recent/trending.
func NewDispatcher(
	svc Services,
	m messenger.Messenger,
	notifier *messenger.Notifier,
	admins access.AdminSet,
	listLimit int,
	logger *slog.Logger,
) *Dispatcher {
	bgCtx, bgCancel := context.WithCancel(context.Background())
	return &Dispatcher{
		svc:       svc,
		messenger: m,
		notifier:  notifier,
		admins:    admins,
		listLimit: listLimit,
		logger:    logger.With(slog.String("component", "dispatcher")),
		bgCtx:     bgCtx,
		bgCancel:  bgCancel,
	}
}

// Handle обрабатывает одно событие. Никогда не паникует и не возвращает
// ошибку: сбой одного события не мешает обработке остальных.
func (d *Dispatcher) Handle(ctx context.Context, upd Update) {
	kind := upd.Kind()
	start := time.Now()
	result := "ok"

	defer func() {
		if r := recover(); r != nil {
			result = "panic"
			d.logger.Error("Паника при обработке события",
				slog.Int("update_id", upd.ID),
				slog.String("kind", kind),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
		updatesTotal.WithLabelValues(kind, result).Inc()
		updateDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	switch {
	case upd.Message != nil:
		if err := d.handleMessage(ctx, upd.Message); err != nil {
			result = d.reportToChat(ctx, upd.Message.ChatID, err)
		}
	case upd.Callback != nil:
		if err := d.handleCallback(ctx, upd.Callback); err != nil {
			result = d.reportToCallback(ctx, upd.Callback, err)
		}
	default:
		result = "ignored"
	}
}

// Wait ждёт завершения фоновых задач.
func (d *Dispatcher) Wait() {
	d.bgWG.Wait()
}

// Close отменяет фоновые задачи и ждёт их завершения.
func (d *Dispatcher) Close() {
	d.bgCancel()
	d.bgWG.Wait()
}

// handleMessage — команды, поиск и загрузки администраторов.
func (d *Dispatcher) handleMessage(ctx context.Context, msg *Message) error {
	d.svc.Users.Touch(ctx, msg.From.ID, msg.From.FirstName, msg.From.Handle)

	if !d.svc.Gate.Verify(ctx, msg.From.ID, msg.ChatID) {
		return nil
	}

	switch {
	case msg.Upload != nil:
		return d.handleUpload(ctx, msg)
	case msg.Command != "":
		return d.handleCommand(ctx, msg)
	default:
		return d.handleSearch(ctx, msg)
	}
}

// reportToChat отправляет уведомление об ошибке и возвращает результат для метрик.
func (d *Dispatcher) reportToChat(ctx context.Context, chatID int64, err error) string {
	text, result := d.describe(err)
	if text != "" {
		d.notifier.Notice(ctx, chatID, text)
	}
	return result
}

// reportToCallback отвечает на нажатие кнопки текстом ошибки.
// Ответ без текста всё равно нужен, чтобы кнопка перестала «крутиться».
func (d *Dispatcher) reportToCallback(ctx context.Context, cb *Callback, err error) string {
	text, result := d.describe(err)
	d.answer(ctx, cb, text, false)
	return result
}

// describe переводит ошибку в текст для пользователя.
// ErrUnauthorized игнорируется без ответа.
func (d *Dispatcher) describe(err error) (text, result string) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return "", "denied"
	case errors.Is(err, service.ErrNotFound):
		return "Файл не найден.", "ok"
	case errors.Is(err, service.ErrNoResults):
		return "Ничего не найдено. Попробуйте другие слова.", "ok"
	case errors.Is(err, service.ErrSessionExpired):
		return "Поиск устарел, отправьте запрос заново.", "ok"
	case errors.Is(err, service.ErrQuotaExceeded):
		return "Дневной лимит скачиваний исчерпан. Попробуйте завтра.", "ok"
	case errors.Is(err, service.ErrFavoritesFull):
		return fmt.Sprintf("В избранном уже %d файлов. Удалите что-нибудь, чтобы добавить новый.",
			d.svc.Favorites.Limit()), "ok"
	case errors.Is(err, service.ErrDuplicateFile):
		return "Этот файл уже есть в каталоге.", "ok"
	}

	d.logger.Error("Ошибка обработки события", slog.String("error", err.Error()))
	return "Что-то пошло не так, попробуйте позже.", "error"
}

// answer отвечает на callback; ошибка только логируется.
func (d *Dispatcher) answer(ctx context.Context, cb *Callback, text string, alert bool) {
	if err := d.messenger.AnswerCallback(ctx, cb.ID, text, alert); err != nil {
		d.logger.Debug("Не удалось ответить на callback",
			slog.String("callback_id", cb.ID),
			slog.String("error", err.Error()),
		)
	}
}

// send отправляет сообщение; ошибка только логируется.
func (d *Dispatcher) send(ctx context.Context, chatID int64, text string, kb messenger.Keyboard) {
	if _, err := d.messenger.SendText(ctx, chatID, text, kb); err != nil {
		d.logger.Warn("Не удалось отправить сообщение",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
}

// edit заменяет текст сообщения; ошибка только логируется.
func (d *Dispatcher) edit(ctx context.Context, chatID int64, messageID int, text string, kb messenger.Keyboard) {
	if err := d.messenger.EditText(ctx, chatID, messageID, text, kb); err != nil {
		d.logger.Debug("Не удалось изменить сообщение",
			slog.Int64("chat_id", chatID),
			slog.Int("message_id", messageID),
			slog.String("error", err.Error()),
		)
	}
}

// goBackground запускает фоновую задачу, которую дожидается Close.
func (d *Dispatcher) goBackground(fn func(ctx context.Context)) {
	d.bgWG.Add(1)
	go func() {
		defer d.bgWG.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("Паника в фоновой задаче",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		fn(d.bgCtx)
	}()
}
