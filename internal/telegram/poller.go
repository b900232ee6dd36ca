// poller.go — получение обновлений через long polling (getUpdates).
package telegram

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// updateSource — часть tgbotapi.BotAPI, отвечающая за getUpdates.
type updateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Poller читает обновления через long polling и передаёт их Runner.
type Poller struct {
	source  updateSource
	runner  *Runner
	timeout time.Duration
	logger  *slog.Logger
}

// NewPoller создаёт Poller. timeout — таймаут одного запроса getUpdates.
func NewPoller(api *tgbotapi.BotAPI, runner *Runner, timeout time.Duration, logger *slog.Logger) *Poller {
	return newPoller(api, runner, timeout, logger)
}

func newPoller(source updateSource, runner *Runner, timeout time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		source:  source,
		runner:  runner,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "poller")),
	}
}

// Run блокируется до отмены ctx, затем останавливает получение
// и дожидается обработки уже принятых обновлений.
func (p *Poller) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(p.timeout.Seconds())
	cfg.AllowedUpdates = []string{"message", "callback_query"}

	updates := p.source.GetUpdatesChan(cfg)
	p.logger.Info("Long polling запущен", slog.Int("timeout_sec", cfg.Timeout))

	defer func() {
		p.source.StopReceivingUpdates()
		p.runner.Wait()
		p.logger.Info("Long polling остановлен")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				p.logger.Warn("Канал обновлений закрыт")
				return
			}
			if !p.runner.Dispatch(ctx, "polling", u) {
				return
			}
		}
	}
}
