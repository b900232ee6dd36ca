package repository

import (
	"context"
	"fmt"
)

// FavoriteRepository — избранные файлы пользователей.
type FavoriteRepository interface {
	// LockUser берёт транзакционную advisory-блокировку на пользователя.
	// Вызывается только внутри транзакции: блокировка снимается при коммите/откате.
	LockUser(ctx context.Context, userID int64) error
	// Exists проверяет, есть ли файл в избранном пользователя.
	Exists(ctx context.Context, userID int64, catalogID string) (bool, error)
	// Insert добавляет файл в избранное (ErrDuplicate при повторе).
	Insert(ctx context.Context, userID int64, catalogID string) error
	// Delete удаляет файл из избранного. Возвращает false, если записи не было.
	Delete(ctx context.Context, userID int64, catalogID string) (bool, error)
	// Count возвращает размер избранного пользователя.
	Count(ctx context.Context, userID int64) (int, error)
	// List возвращает catalogId избранного в порядке добавления.
	List(ctx context.Context, userID int64) ([]string, error)
}

type favoriteRepo struct {
	db DBTX
}

// NewFavoriteRepository создаёт репозиторий избранного.
func NewFavoriteRepository(db DBTX) FavoriteRepository {
	return &favoriteRepo{db: db}
}

func (r *favoriteRepo) LockUser(ctx context.Context, userID int64) error {
	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, userID); err != nil {
		return fmt.Errorf("ошибка блокировки избранного: %w", err)
	}
	return nil
}

func (r *favoriteRepo) Exists(ctx context.Context, userID int64, catalogID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1 AND catalog_id = $2)`,
		userID, catalogID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки избранного: %w", err)
	}
	return exists, nil
}

func (r *favoriteRepo) Insert(ctx context.Context, userID int64, catalogID string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO favorites (user_id, catalog_id) VALUES ($1, $2)`, userID, catalogID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка добавления в избранное: %w", err)
	}
	return nil
}

func (r *favoriteRepo) Delete(ctx context.Context, userID int64, catalogID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND catalog_id = $2`, userID, catalogID)
	if err != nil {
		return false, fmt.Errorf("ошибка удаления из избранного: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *favoriteRepo) Count(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM favorites WHERE user_id = $1`, userID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта избранного: %w", err)
	}
	return n, nil
}

func (r *favoriteRepo) List(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT catalog_id FROM favorites WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения избранного: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования избранного: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return ids, nil
}
