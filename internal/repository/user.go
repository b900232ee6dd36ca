package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
)

// UserRepository — реестр пользователей бота.
type UserRepository interface {
	// Upsert создаёт пользователя или обновляет имя, handle и last_seen_at.
	// joined_at задаётся только при создании.
	Upsert(ctx context.Context, u *model.User) error
	// Get возвращает пользователя по ID.
	Get(ctx context.Context, userID int64) (*model.User, error)
	// Count возвращает общее число пользователей.
	Count(ctx context.Context) (int, error)
	// ListIDsAfter возвращает до limit ID пользователей, больших afterID,
	// по возрастанию (keyset-пагинация для рассылки).
	ListIDsAfter(ctx context.Context, afterID int64, limit int) ([]int64, error)
}

type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Upsert(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (user_id, first_name, handle, joined_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET first_name = EXCLUDED.first_name,
		    handle = EXCLUDED.handle,
		    last_seen_at = EXCLUDED.last_seen_at`

	if _, err := r.db.Exec(ctx, query, u.UserID, u.FirstName, u.Handle, u.LastSeenAt); err != nil {
		return fmt.Errorf("ошибка сохранения пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) Get(ctx context.Context, userID int64) (*model.User, error) {
	u := &model.User{}
	err := r.db.QueryRow(ctx,
		`SELECT user_id, first_name, handle, joined_at, last_seen_at FROM users WHERE user_id = $1`,
		userID,
	).Scan(&u.UserID, &u.FirstName, &u.Handle, &u.JoinedAt, &u.LastSeenAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта пользователей: %w", err)
	}
	return n, nil
}

func (r *userRepo) ListIDsAfter(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM users WHERE user_id > $1 ORDER BY user_id LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки пользователей: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return ids, nil
}
