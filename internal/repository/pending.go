package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
)

const pendingColumns = `id, source_file_ref, source_unique_id, display_name, clean_title, kind,
	size_bytes, size_label, submitter_id, origin_chat_id, origin_message_id, created_at, expires_at`

// PendingRepository — интерфейс доступа к загрузкам, ожидающим модерации.
// Записи с истёкшим expires_at не видны ни одному методу, кроме DeleteExpired.
type PendingRepository interface {
	// Create сохраняет новую ожидающую загрузку.
	Create(ctx context.Context, p *model.PendingUpload) error
	// Get возвращает неистёкшую загрузку по ID.
	Get(ctx context.Context, id string) (*model.PendingUpload, error)
	// Take атомарно удаляет неистёкшую загрузку и возвращает её.
	// Из двух конкурирующих вызовов запись получит только один.
	Take(ctx context.Context, id string) (*model.PendingUpload, error)
	// DeleteExpired удаляет все истёкшие загрузки и возвращает их.
	DeleteExpired(ctx context.Context) ([]*model.PendingUpload, error)
	// CountActive возвращает количество неистёкших загрузок.
	CountActive(ctx context.Context) (int, error)
}

type pendingRepo struct {
	db DBTX
}

// NewPendingRepository создаёт репозиторий ожидающих загрузок.
func NewPendingRepository(db DBTX) PendingRepository {
	return &pendingRepo{db: db}
}

func (r *pendingRepo) Create(ctx context.Context, p *model.PendingUpload) error {
	query := `
		INSERT INTO pending_uploads (id, source_file_ref, source_unique_id, display_name, clean_title, kind,
			size_bytes, size_label, submitter_id, origin_chat_id, origin_message_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(ctx, query,
		p.ID, p.SourceFileRef, p.SourceUniqueID, p.DisplayName, p.CleanTitle, string(p.Kind),
		p.SizeBytes, p.SizeLabel, p.SubmitterID, p.OriginChatID, p.OriginMessageID, p.CreatedAt, p.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка создания ожидающей загрузки: %w", err)
	}
	return nil
}

func (r *pendingRepo) Get(ctx context.Context, id string) (*model.PendingUpload, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM pending_uploads WHERE id = $1 AND expires_at > now()`, pendingColumns)

	p, err := scanPending(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения ожидающей загрузки: %w", err)
	}
	return p, nil
}

func (r *pendingRepo) Take(ctx context.Context, id string) (*model.PendingUpload, error) {
	query := fmt.Sprintf(
		`DELETE FROM pending_uploads WHERE id = $1 AND expires_at > now() RETURNING %s`, pendingColumns)

	p, err := scanPending(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка извлечения ожидающей загрузки: %w", err)
	}
	return p, nil
}

func (r *pendingRepo) DeleteExpired(ctx context.Context) ([]*model.PendingUpload, error) {
	query := fmt.Sprintf(
		`DELETE FROM pending_uploads WHERE expires_at <= now() RETURNING %s`, pendingColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка удаления истёкших загрузок: %w", err)
	}
	defer rows.Close()

	var expired []*model.PendingUpload
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования загрузки: %w", err)
		}
		expired = append(expired, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return expired, nil
}

func (r *pendingRepo) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM pending_uploads WHERE expires_at > now()`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта ожидающих загрузок: %w", err)
	}
	return n, nil
}

func scanPending(row pgx.Row) (*model.PendingUpload, error) {
	p := &model.PendingUpload{}
	var kind string
	if err := row.Scan(
		&p.ID, &p.SourceFileRef, &p.SourceUniqueID, &p.DisplayName, &p.CleanTitle, &kind,
		&p.SizeBytes, &p.SizeLabel, &p.SubmitterID, &p.OriginChatID, &p.OriginMessageID,
		&p.CreatedAt, &p.ExpiresAt,
	); err != nil {
		return nil, err
	}
	p.Kind = model.Kind(kind)
	return p, nil
}
