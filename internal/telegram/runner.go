// runner.go — ограниченная параллельная обработка обновлений.
package telegram

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/catalog-bot/internal/bot"
)

// updateTimeout — максимальное время обработки одного обновления.
const updateTimeout = 2 * time.Minute

var (
	updatesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cb_telegram_updates_received_total",
		Help: "Полученные обновления Telegram по источнику (polling, webhook).",
	}, []string{"source"})
	updatesIgnored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cb_telegram_updates_ignored_total",
		Help: "Обновления, которые бот не обрабатывает.",
	})
	updatesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cb_telegram_updates_in_flight",
		Help: "Обновления в обработке.",
	})
)

// UpdateHandler — обработчик событий бота (bot.Dispatcher).
type UpdateHandler interface {
	Handle(ctx context.Context, upd bot.Update)
}

// Runner запускает обработку обновлений в отдельных горутинах,
// не более maxConcurrent одновременно.
type Runner struct {
	handler UpdateHandler
	sem     chan struct{}
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewRunner создаёт Runner.
func NewRunner(handler UpdateHandler, maxConcurrent int, logger *slog.Logger) *Runner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Runner{
		handler: handler,
		sem:     make(chan struct{}, maxConcurrent),
		logger:  logger.With(slog.String("component", "update_runner")),
	}
}

// Dispatch преобразует обновление и запускает его обработку.
// Блокируется, пока занят лимит; возвращает false, если ctx отменён раньше.
// Обработка не прерывается отменой ctx: она завершается сама в пределах updateTimeout.
func (r *Runner) Dispatch(ctx context.Context, source string, u tgbotapi.Update) bool {
	updatesReceived.WithLabelValues(source).Inc()

	upd, ok := convertUpdate(u)
	if !ok {
		updatesIgnored.Inc()
		r.logger.Debug("Обновление пропущено", slog.Int("update_id", u.UpdateID))
		return true
	}

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return false
	}

	r.wg.Add(1)
	updatesInFlight.Inc()
	go func() {
		defer func() {
			<-r.sem
			updatesInFlight.Dec()
			r.wg.Done()
		}()

		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), updateTimeout)
		defer cancel()
		r.handler.Handle(hctx, upd)
	}()
	return true
}

// Wait ожидает завершения всех запущенных обработок.
func (r *Runner) Wait() {
	r.wg.Wait()
}
