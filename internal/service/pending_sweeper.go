// pending_sweeper.go — фоновая очистка просроченных загрузок.
//
// Истёкшие записи и без очистки недоступны для CONFIRM/CANCEL
// (запросы фильтруют по expires_at). Sweeper удаляет их физически
// и сообщает администратору, что время подтверждения вышло.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/catalog-bot/internal/messenger"
	"github.com/bigkaa/goartstore/catalog-bot/internal/repository"
)

// Prometheus-метрики очистки.
var (
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cb_pending_sweep_runs_total",
		Help: "Общее количество запусков очистки ожидающих загрузок.",
	})
	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cb_pending_sweep_duration_seconds",
		Help:    "Длительность очистки ожидающих загрузок в секундах.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// SweepResult — результат одного запуска очистки.
type SweepResult struct {
	// Expired — количество удалённых просроченных загрузок
	Expired int
	// NotifyErrors — уведомления, которые не удалось доставить
	NotifyErrors int
	// Duration — длительность выполнения
	Duration time.Duration
}

// PendingSweeper — периодическое удаление просроченных загрузок.
type PendingSweeper struct {
	pending   repository.PendingRepository
	messenger messenger.Messenger
	interval  time.Duration
	logger    *slog.Logger

	mu     sync.Mutex // защита от параллельного RunOnce
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPendingSweeper создаёт сервис очистки.
func NewPendingSweeper(
	pending repository.PendingRepository,
	m messenger.Messenger,
	interval time.Duration,
	logger *slog.Logger,
) *PendingSweeper {
	return &PendingSweeper{
		pending:   pending,
		messenger: m,
		interval:  interval,
		logger:    logger.With(slog.String("component", "pending_sweeper")),
	}
}

// Start запускает фоновую горутину с периодическим тикером.
func (s *PendingSweeper) Start(ctx context.Context) {
	sweepCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(sweepCtx)

	s.logger.Info("Очистка ожидающих загрузок запущена",
		slog.String("interval", s.interval.String()),
	)
}

// Stop останавливает очистку и ждёт завершения текущего прохода.
func (s *PendingSweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("Очистка ожидающих загрузок остановлена")
}

func (s *PendingSweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce удаляет просроченные загрузки и уведомляет отправителей.
// Ошибки уведомлений только считаются.
func (s *PendingSweeper) RunOnce(ctx context.Context) *SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result := &SweepResult{}

	expired, err := s.pending.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error("Ошибка очистки ожидающих загрузок",
			slog.String("error", err.Error()),
		)
		return result
	}
	result.Expired = len(expired)

	for _, p := range expired {
		moderationTotal.WithLabelValues("expired").Inc()
		text := "Время подтверждения истекло: " + p.CleanTitle + ". Отправьте файл заново."
		if _, err := s.messenger.SendText(ctx, p.OriginChatID, text, nil); err != nil {
			result.NotifyErrors++
			s.logger.Debug("Не удалось уведомить об истечении загрузки",
				slog.String("pending_id", p.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	result.Duration = time.Since(start)
	sweepRunsTotal.Inc()
	sweepDurationSeconds.Observe(result.Duration.Seconds())

	if result.Expired > 0 {
		s.logger.Info("Просроченные загрузки удалены",
			slog.Int("expired", result.Expired),
			slog.Int("notify_errors", result.NotifyErrors),
			slog.Duration("duration", result.Duration),
		)
	}
	return result
}
