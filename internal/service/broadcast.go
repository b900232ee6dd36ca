// broadcast.go — рассылка сообщения всем пользователям бота.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/access"
	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
	"github.com/bigkaa/goartstore/catalog-bot/internal/messenger"
	"github.com/bigkaa/goartstore/catalog-bot/internal/repository"
)

// broadcastBatchSize — размер keyset-страницы пользователей.
const broadcastBatchSize = 500

// Prometheus-метрики рассылки.
var broadcastDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cb_broadcast_deliveries_total",
	Help: "Доставки рассылки по исходу (success, blocked, failed).",
}, []string{"outcome"})

// BroadcastContent — что рассылать: текст либо копию сообщения.
type BroadcastContent struct {
	// Text — текст рассылки (если не задано сообщение-источник)
	Text string
	// FromChatID / MessageID — сообщение, которое копируется получателям
	FromChatID int64
	MessageID  int
}

// IsCopy сообщает, что рассылается копия сообщения.
func (c BroadcastContent) IsCopy() bool {
	return c.MessageID != 0
}

// BroadcastService — последовательная рассылка с паузой между отправками.
// Ошибка доставки одному получателю не прерывает рассылку.
type BroadcastService struct {
	users     repository.UserRepository
	messenger messenger.Messenger
	admins    access.AdminSet
	delay     time.Duration
	logger    *slog.Logger
}

// NewBroadcastService создаёт сервис рассылки.
func NewBroadcastService(
	users repository.UserRepository,
	m messenger.Messenger,
	admins access.AdminSet,
	delay time.Duration,
	logger *slog.Logger,
) *BroadcastService {
	return &BroadcastService{
		users:     users,
		messenger: m,
		admins:    admins,
		delay:     delay,
		logger:    logger.With(slog.String("component", "broadcast_service")),
	}
}

// Broadcast доставляет content всем известным пользователям.
// Останавливается досрочно только при отмене ctx; итоги на этот момент возвращаются вместе с ошибкой.
func (s *BroadcastService) Broadcast(ctx context.Context, actor int64, content BroadcastContent) (*model.BroadcastResult, error) {
	if !s.admins.IsAdmin(actor) {
		return nil, ErrUnauthorized
	}
	if !content.IsCopy() && strings.TrimSpace(content.Text) == "" {
		return nil, fmt.Errorf("пустая рассылка")
	}

	start := time.Now()
	result := &model.BroadcastResult{}
	after := int64(math.MinInt64)

	s.logger.Info("Рассылка начата", slog.Int64("admin_id", actor))

	for {
		ids, err := s.users.ListIDsAfter(ctx, after, broadcastBatchSize)
		if err != nil {
			return result, fmt.Errorf("выборка получателей: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			if result.Total > 0 {
				if err := sleepCtx(ctx, s.delay); err != nil {
					return result, err
				}
			}
			result.Total++
			s.deliver(ctx, id, content, result)
		}
		after = ids[len(ids)-1]
	}

	s.logger.Info("Рассылка завершена",
		slog.Int("total", result.Total),
		slog.Int("success", result.Success),
		slog.Int("blocked", result.Blocked),
		slog.Int("failed", result.Failed),
		slog.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// deliver отправляет одно сообщение и учитывает исход.
func (s *BroadcastService) deliver(ctx context.Context, userID int64, content BroadcastContent, result *model.BroadcastResult) {
	var err error
	if content.IsCopy() {
		_, err = s.messenger.Copy(ctx, userID, content.FromChatID, content.MessageID)
	} else {
		_, err = s.messenger.SendText(ctx, userID, content.Text, nil)
	}

	switch {
	case err == nil:
		result.Success++
		broadcastDeliveriesTotal.WithLabelValues("success").Inc()
	case errors.Is(err, messenger.ErrBlocked):
		result.Blocked++
		broadcastDeliveriesTotal.WithLabelValues("blocked").Inc()
	default:
		result.Failed++
		broadcastDeliveriesTotal.WithLabelValues("failed").Inc()
		s.logger.Warn("Ошибка доставки рассылки",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// sleepCtx ждёт d или отмены ctx.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
