package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// QuotaRepository — дневные счётчики скачиваний (user_id, день UTC).
// Лимит здесь не проверяется: это делает вызывающий код.
type QuotaRepository interface {
	// Peek возвращает счётчик пользователя за день day (0, если записи нет).
	Peek(ctx context.Context, userID int64, day time.Time) (int, error)
	// Increment атомарно увеличивает счётчик за день day и возвращает новое значение.
	Increment(ctx context.Context, userID int64, day time.Time) (int, error)
}

type quotaRepo struct {
	db DBTX
}

// NewQuotaRepository создаёт репозиторий квот.
func NewQuotaRepository(db DBTX) QuotaRepository {
	return &quotaRepo{db: db}
}

func (r *quotaRepo) Peek(ctx context.Context, userID int64, day time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT count FROM quotas WHERE user_id = $1 AND day = $2`,
		userID, DayUTC(day),
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("ошибка чтения квоты: %w", err)
	}
	return count, nil
}

func (r *quotaRepo) Increment(ctx context.Context, userID int64, day time.Time) (int, error) {
	query := `
		INSERT INTO quotas (user_id, day, count) VALUES ($1, $2, 1)
		ON CONFLICT (user_id, day) DO UPDATE SET count = quotas.count + 1
		RETURNING count`

	var count int
	if err := r.db.QueryRow(ctx, query, userID, DayUTC(day)).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка увеличения квоты: %w", err)
	}
	return count, nil
}

// DayUTC усекает момент времени до начала календарного дня в UTC.
func DayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
