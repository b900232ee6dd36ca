// moderation.go — модерация загрузок администраторов.
//
// Жизненный цикл ожидающей загрузки:
//
//	Submitted → Published | Rejected-Duplicate | Cancelled | Expired
//
// Все переходы терминальны. Confirm и Cancel забирают запись атомарным
// DELETE … RETURNING, поэтому из двух конкурирующих действий выполнится
// только одно; истёкшая запись не видна ни одному из них.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/access"
	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/textnorm"
	"github.com/bigkaa/goartstore/catalog-bot/internal/repository"
)

// FileSequence — имя счётчика catalogId.
const FileSequence = "file"

// Префиксы callback-данных модерации.
const (
	CallbackConfirm = "CONFIRM:"
	CallbackCancel  = "CANCEL:"
)

// Prometheus-метрики модерации.
var moderationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cb_moderation_total",
	Help: "Исходы модерации (submitted, published, duplicate, cancelled, expired).",
}, []string{"outcome"})

// Upload — файл, присланный администратором.
type Upload struct {
	FileRef   string
	UniqueID  string
	FileName  string
	Caption   string
	Kind      model.Kind
	SizeBytes int64
	ChatID    int64
	MessageID int
}

// ModerationService — подтверждение и отмена загрузок.
type ModerationService struct {
	tx      Transactor
	pending repository.PendingRepository
	files   repository.FileRepository
	admins  access.AdminSet
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewModerationService создаёт сервис модерации.
// ttl — время жизни ожидающей загрузки.
func NewModerationService(
	tx Transactor,
	pending repository.PendingRepository,
	files repository.FileRepository,
	admins access.AdminSet,
	ttl time.Duration,
	logger *slog.Logger,
) *ModerationService {
	return &ModerationService{
		tx:      tx,
		pending: pending,
		files:   files,
		admins:  admins,
		ttl:     ttl,
		logger:  logger.With(slog.String("component", "moderation_service")),
		now:     time.Now,
	}
}

// Submit создаёт ожидающую загрузку. Права проверяются до создания записи.
// Файл, уже опубликованный в каталоге, отклоняется сразу (ErrDuplicateFile).
func (s *ModerationService) Submit(ctx context.Context, actor int64, u Upload) (*model.PendingUpload, error) {
	if !s.admins.IsAdmin(actor) {
		return nil, ErrUnauthorized
	}
	if u.FileRef == "" || !u.Kind.Valid() {
		return nil, fmt.Errorf("некорректная загрузка: пустой file ref или тип %q", u.Kind)
	}

	exists, err := s.files.ExistsByDedupKey(ctx, model.DedupKey(u.UniqueID, u.FileRef))
	if err != nil {
		return nil, fmt.Errorf("проверка дубликата: %w", err)
	}
	if exists {
		moderationTotal.WithLabelValues("duplicate").Inc()
		return nil, ErrDuplicateFile
	}

	display := displayName(u)
	clean := textnorm.CleanTitle(display)
	if clean == "" {
		clean = strings.TrimSpace(display)
	}

	now := s.now().UTC()
	p := &model.PendingUpload{
		ID:              uuid.New().String(),
		SourceFileRef:   u.FileRef,
		SourceUniqueID:  u.UniqueID,
		DisplayName:     display,
		CleanTitle:      clean,
		Kind:            u.Kind,
		SizeBytes:       u.SizeBytes,
		SizeLabel:       sizeLabel(u.SizeBytes),
		SubmitterID:     actor,
		OriginChatID:    u.ChatID,
		OriginMessageID: u.MessageID,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.ttl),
	}

	if err := s.pending.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("создание ожидающей загрузки: %w", err)
	}
	moderationTotal.WithLabelValues("submitted").Inc()

	s.logger.Info("Загрузка ожидает подтверждения",
		slog.String("pending_id", p.ID),
		slog.Int64("admin_id", actor),
		slog.String("title", p.CleanTitle),
	)
	return p, nil
}

// Confirm публикует ожидающую загрузку в каталог.
//
// В одной транзакции: забирает неистёкшую запись, проверяет дубликат
// по DedupKey, получает следующий catalogId и вставляет FileRecord.
// При дубликате запись удаляется, каталог не меняется, возвращается
// ErrDuplicateFile. Уникальный индекс по dedup_key страхует от
// параллельной публикации того же файла: такая транзакция откатывается,
// и ожидающая запись удаляется отдельно (discard).
func (s *ModerationService) Confirm(ctx context.Context, actor int64, pendingID string) (*model.FileRecord, error) {
	if !s.admins.IsAdmin(actor) {
		return nil, ErrUnauthorized
	}
	if _, err := uuid.Parse(pendingID); err != nil {
		return nil, ErrNotFound
	}

	var (
		record    *model.FileRecord
		duplicate bool
	)
	err := s.tx.WithRepos(ctx, func(repos *repository.Repos) error {
		p, err := s.takeOwned(ctx, repos.Pending, actor, pendingID)
		if err != nil {
			return err
		}

		exists, err := repos.Files.ExistsByDedupKey(ctx, p.DedupKey())
		if err != nil {
			return err
		}
		if exists {
			// Коммитим удаление ожидающей записи
			duplicate = true
			return nil
		}

		n, err := repos.Sequences.Next(ctx, FileSequence)
		if err != nil {
			return err
		}

		rec := p.ToFileRecord(model.FormatCatalogID(n), textnorm.Tokens(p.CleanTitle), s.now().UTC())
		if err := repos.Files.Insert(ctx, rec); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrDuplicateFile
			}
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnauthorized):
			return nil, err
		case errors.Is(err, ErrDuplicateFile):
			// Откат вернул запись в pending_uploads
			s.discard(ctx, pendingID)
			moderationTotal.WithLabelValues("duplicate").Inc()
			return nil, err
		}
		return nil, fmt.Errorf("публикация %s: %w", pendingID, err)
	}
	if duplicate {
		moderationTotal.WithLabelValues("duplicate").Inc()
		return nil, ErrDuplicateFile
	}

	moderationTotal.WithLabelValues("published").Inc()
	s.logger.Info("Файл опубликован",
		slog.String("catalog_id", record.CatalogID),
		slog.String("pending_id", pendingID),
		slog.Int64("admin_id", actor),
	)
	return record, nil
}

// discard удаляет ожидающую запись вне транзакции публикации.
// Запись уже могла истечь или быть удалена — это не ошибка.
func (s *ModerationService) discard(ctx context.Context, pendingID string) {
	if _, err := s.pending.Take(ctx, pendingID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("Не удалось удалить ожидающую запись после дубликата",
			slog.String("pending_id", pendingID),
			slog.String("error", err.Error()),
		)
	}
}

// Cancel отбрасывает ожидающую загрузку без изменения каталога.
func (s *ModerationService) Cancel(ctx context.Context, actor int64, pendingID string) error {
	if !s.admins.IsAdmin(actor) {
		return ErrUnauthorized
	}
	if _, err := uuid.Parse(pendingID); err != nil {
		return ErrNotFound
	}

	err := s.tx.WithRepos(ctx, func(repos *repository.Repos) error {
		_, err := s.takeOwned(ctx, repos.Pending, actor, pendingID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnauthorized) {
			return err
		}
		return fmt.Errorf("отмена %s: %w", pendingID, err)
	}

	moderationTotal.WithLabelValues("cancelled").Inc()
	s.logger.Info("Загрузка отменена",
		slog.String("pending_id", pendingID),
		slog.Int64("admin_id", actor),
	)
	return nil
}

// takeOwned забирает запись, если её отправил actor.
// Чужая запись не изменяется (ErrUnauthorized).
func (s *ModerationService) takeOwned(
	ctx context.Context,
	pending repository.PendingRepository,
	actor int64,
	pendingID string,
) (*model.PendingUpload, error) {
	p, err := pending.Get(ctx, pendingID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if p.SubmitterID != actor {
		return nil, ErrUnauthorized
	}
	p, err = pending.Take(ctx, pendingID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return p, nil
}

// displayName выбирает отображаемое имя: имя файла, подпись или заглушку.
func displayName(u Upload) string {
	if name := strings.TrimSpace(u.FileName); name != "" {
		return name
	}
	if caption := strings.TrimSpace(u.Caption); caption != "" {
		return caption
	}
	return "Без названия"
}

// sizeLabel форматирует размер в человекочитаемом виде.
func sizeLabel(size int64) string {
	if size <= 0 {
		return ""
	}
	return humanize.Bytes(uint64(size))
}
