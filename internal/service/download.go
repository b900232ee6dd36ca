// download.go — доставка файла пользователю (GET:<id>).
//
// Порядок: проверка квоты (без изменения) → получение записи → отправка
// файла → учёт квоты → счётчик скачиваний. Неудачная отправка не меняет
// ни квоту, ни счётчик.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
	"github.com/bigkaa/goartstore/catalog-bot/internal/messenger"
)

// Префиксы callback-данных каталога.
const (
	CallbackGet  = "GET:"
	CallbackFav  = "FAV:"
	CallbackPage = "PAGE:"
)

// Prometheus-метрики доставки.
var downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cb_downloads_total",
	Help: "Запросы файлов по результату (delivered, quota_exceeded, not_found, failed).",
}, []string{"result"})

// Delivery — результат успешной доставки.
type Delivery struct {
	Record *model.FileRecord
	// Used — скачиваний за сегодня с учётом этого
	Used int
	// Limit — дневной лимит
	Limit int
}

// DownloadService — выдача файлов каталога с учётом квоты.
type DownloadService struct {
	catalog   *CatalogService
	quota     *QuotaService
	favorites *FavoritesService
	messenger messenger.Messenger
	logger    *slog.Logger
}

// NewDownloadService создаёт сервис доставки.
func NewDownloadService(
	catalog *CatalogService,
	quota *QuotaService,
	favorites *FavoritesService,
	m messenger.Messenger,
	logger *slog.Logger,
) *DownloadService {
	return &DownloadService{
		catalog:   catalog,
		quota:     quota,
		favorites: favorites,
		messenger: m,
		logger:    logger.With(slog.String("component", "download_service")),
	}
}

// Deliver отправляет файл catalogID в чат chatID от имени userID.
func (s *DownloadService) Deliver(ctx context.Context, userID, chatID int64, catalogID string) (*Delivery, error) {
	if _, err := s.quota.Check(ctx, userID); err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			downloadsTotal.WithLabelValues("quota_exceeded").Inc()
		}
		return nil, err
	}

	rec, err := s.catalog.GetFresh(ctx, catalogID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			downloadsTotal.WithLabelValues("not_found").Inc()
		}
		return nil, err
	}

	inFavorites, err := s.favorites.Contains(ctx, userID, rec.CatalogID)
	if err != nil {
		// Подпись кнопки не критична для доставки
		s.logger.Debug("Не удалось проверить избранное",
			slog.String("catalog_id", rec.CatalogID),
			slog.String("error", err.Error()),
		)
	}

	if _, err := s.messenger.SendMedia(ctx, chatID, FileMedia(rec, inFavorites)); err != nil {
		downloadsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("отправка файла %s: %w", rec.CatalogID, err)
	}

	used, err := s.quota.Increment(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.catalog.RecordDownload(ctx, rec.CatalogID); err != nil {
		// Файл уже доставлен; счётчик мог пропасть из-за параллельного удаления
		s.logger.Warn("Не удалось увеличить счётчик скачиваний",
			slog.String("catalog_id", rec.CatalogID),
			slog.String("error", err.Error()),
		)
	}

	downloadsTotal.WithLabelValues("delivered").Inc()
	s.logger.Debug("Файл доставлен",
		slog.String("catalog_id", rec.CatalogID),
		slog.Int64("user_id", userID),
		slog.Int("used", used),
	)
	return &Delivery{Record: rec, Used: used, Limit: s.quota.Limit()}, nil
}

// FileMedia собирает сообщение с файлом: подпись и кнопку избранного.
func FileMedia(rec *model.FileRecord, inFavorites bool) messenger.Media {
	favText := "☆ В избранное"
	if inFavorites {
		favText = "★ Убрать из избранного"
	}
	return messenger.Media{
		Kind:    rec.Kind,
		FileRef: rec.SourceFileRef,
		Caption: FileCaption(rec),
		Keyboard: messenger.Keyboard{
			messenger.Row(messenger.Button{Text: favText, Data: CallbackFav + rec.CatalogID}),
		},
	}
}

// FileCaption — подпись к файлу каталога.
func FileCaption(rec *model.FileRecord) string {
	var b strings.Builder
	b.WriteString(rec.CleanTitle)
	b.WriteString("\n\nID: ")
	b.WriteString(rec.CatalogID)
	if rec.SizeLabel != "" {
		b.WriteString(" · ")
		b.WriteString(rec.SizeLabel)
	}
	return b.String()
}
