package repository

import (
	"context"
	"fmt"
)

// SequenceRepository — именованные монотонные счётчики.
type SequenceRepository interface {
	// Next атомарно увеличивает счётчик name (создавая его при отсутствии)
	// и возвращает новое значение. Первое значение — 1.
	Next(ctx context.Context, name string) (int64, error)
}

type sequenceRepo struct {
	db DBTX
}

// NewSequenceRepository создаёт репозиторий счётчиков.
func NewSequenceRepository(db DBTX) SequenceRepository {
	return &sequenceRepo{db: db}
}

// Next использует upsert с инкрементом на стороне PostgreSQL:
// уникальность значений сохраняется при любом числе реплик бота.
func (r *sequenceRepo) Next(ctx context.Context, name string) (int64, error) {
	query := `
		INSERT INTO sequences (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
		RETURNING value`

	var value int64
	if err := r.db.QueryRow(ctx, query, name).Scan(&value); err != nil {
		return 0, fmt.Errorf("ошибка получения значения счётчика %s: %w", name, err)
	}
	return value, nil
}
