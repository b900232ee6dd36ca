// quota.go — дневная квота скачиваний.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bigkaa/goartstore/catalog-bot/internal/repository"
)

// QuotaService — учёт скачиваний пользователя за календарный день UTC.
// Peek не изменяет состояние; Increment вызывается только после того,
// как действие разрешено и выполнено.
type QuotaService struct {
	repo  repository.QuotaRepository
	limit int
	now   func() time.Time
}

// NewQuotaService создаёт сервис квот с дневным лимитом limit.
func NewQuotaService(repo repository.QuotaRepository, limit int) *QuotaService {
	return &QuotaService{
		repo:  repo,
		limit: limit,
		now:   time.Now,
	}
}

// Limit возвращает дневной лимит.
func (s *QuotaService) Limit() int {
	return s.limit
}

// Peek возвращает число скачиваний пользователя за сегодня.
func (s *QuotaService) Peek(ctx context.Context, userID int64) (int, error) {
	n, err := s.repo.Peek(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("квота пользователя %d: %w", userID, err)
	}
	return n, nil
}

// Check возвращает ErrQuotaExceeded, если лимит на сегодня исчерпан.
func (s *QuotaService) Check(ctx context.Context, userID int64) (int, error) {
	n, err := s.Peek(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n >= s.limit {
		return n, ErrQuotaExceeded
	}
	return n, nil
}

// Increment учитывает одно скачивание и возвращает новое значение.
func (s *QuotaService) Increment(ctx context.Context, userID int64) (int, error) {
	n, err := s.repo.Increment(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("учёт скачивания пользователя %d: %w", userID, err)
	}
	return n, nil
}
