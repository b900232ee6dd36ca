// catalog.go — сервис каталога: получение записей, списки recent/trending,
// удаление администратором и статистика.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/access"
	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
	"github.com/bigkaa/goartstore/catalog-bot/internal/repository"
)

// Prometheus-метрики каталога.
var (
	catalogDeletesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cb_catalog_deletes_total",
		Help: "Общее количество файлов, удалённых из каталога.",
	})
)

// CatalogService — доступ к опубликованным файлам.
type CatalogService struct {
	files   repository.FileRepository
	pending repository.PendingRepository
	users   repository.UserRepository
	cache   *FileCache
	admins  access.AdminSet
	logger  *slog.Logger
}

// NewCatalogService создаёт сервис каталога.
func NewCatalogService(
	files repository.FileRepository,
	pending repository.PendingRepository,
	users repository.UserRepository,
	cache *FileCache,
	admins access.AdminSet,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		files:   files,
		pending: pending,
		users:   users,
		cache:   cache,
		admins:  admins,
		logger:  logger.With(slog.String("component", "catalog_service")),
	}
}

// NormalizeCatalogID приводит пользовательский ввод к виду F0001.
func NormalizeCatalogID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Get возвращает файл по catalogId.
// Сначала проверяет LRU-кэш, при промахе — запрос к БД.
func (s *CatalogService) Get(ctx context.Context, catalogID string) (*model.FileRecord, error) {
	catalogID = NormalizeCatalogID(catalogID)

	if rec, ok := s.cache.Get(catalogID); ok {
		return rec, nil
	}
	return s.load(ctx, catalogID)
}

// GetFresh читает файл из БД, минуя кэш, и обновляет кэш.
// Используется при доставке: кэш другой реплики не знает об удалении.
func (s *CatalogService) GetFresh(ctx context.Context, catalogID string) (*model.FileRecord, error) {
	catalogID = NormalizeCatalogID(catalogID)
	rec, err := s.load(ctx, catalogID)
	if errors.Is(err, ErrNotFound) {
		s.cache.Delete(catalogID)
	}
	return rec, err
}

func (s *CatalogService) load(ctx context.Context, catalogID string) (*model.FileRecord, error) {
	rec, err := s.files.GetByID(ctx, catalogID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение файла %s: %w", catalogID, err)
	}

	s.cache.Set(rec)
	return rec, nil
}

// Recent возвращает последние опубликованные файлы.
func (s *CatalogService) Recent(ctx context.Context, limit int) ([]*model.FileRecord, error) {
	items, err := s.files.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("список новых файлов: %w", err)
	}
	return items, nil
}

// Trending возвращает самые скачиваемые файлы.
func (s *CatalogService) Trending(ctx context.Context, limit int) ([]*model.FileRecord, error) {
	items, err := s.files.ListTrending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("список популярных файлов: %w", err)
	}
	return items, nil
}

// RecordDownload увеличивает счётчик скачиваний после успешной доставки.
func (s *CatalogService) RecordDownload(ctx context.Context, catalogID string) (int64, error) {
	n, err := s.files.IncrementDownload(ctx, catalogID)
	if err != nil {
		return 0, fmt.Errorf("счётчик скачиваний %s: %w", catalogID, mapNotFound(err))
	}
	s.cache.Delete(catalogID)
	return n, nil
}

// Delete удаляет файл из каталога. Только для администраторов;
// проверка прав выполняется до любых изменений.
func (s *CatalogService) Delete(ctx context.Context, actor int64, catalogID string) error {
	if !s.admins.IsAdmin(actor) {
		return ErrUnauthorized
	}

	catalogID = NormalizeCatalogID(catalogID)
	if err := s.files.Delete(ctx, catalogID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление файла %s: %w", catalogID, err)
	}
	s.cache.Delete(catalogID)
	catalogDeletesTotal.Inc()

	s.logger.Info("Файл удалён из каталога",
		slog.String("catalog_id", catalogID),
		slog.Int64("admin_id", actor),
	)
	return nil
}

// Stats собирает статистику каталога. Только для администраторов.
func (s *CatalogService) Stats(ctx context.Context, actor int64) (*model.Stats, error) {
	if !s.admins.IsAdmin(actor) {
		return nil, ErrUnauthorized
	}

	stats := &model.Stats{}
	var err error

	if stats.Files, err = s.files.Count(ctx, repository.FileFilter{}); err != nil {
		return nil, fmt.Errorf("статистика: %w", err)
	}
	video, document := model.KindVideo, model.KindDocument
	if stats.Videos, err = s.files.Count(ctx, repository.FileFilter{Kind: &video}); err != nil {
		return nil, fmt.Errorf("статистика: %w", err)
	}
	if stats.Documents, err = s.files.Count(ctx, repository.FileFilter{Kind: &document}); err != nil {
		return nil, fmt.Errorf("статистика: %w", err)
	}
	if stats.TotalDownloads, err = s.files.TotalDownloads(ctx); err != nil {
		return nil, fmt.Errorf("статистика: %w", err)
	}
	if stats.Users, err = s.users.Count(ctx); err != nil {
		return nil, fmt.Errorf("статистика: %w", err)
	}
	if stats.Pending, err = s.pending.CountActive(ctx); err != nil {
		return nil, fmt.Errorf("статистика: %w", err)
	}

	return stats, nil
}
