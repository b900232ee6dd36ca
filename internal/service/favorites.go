// favorites.go — избранное пользователя с ограничением размера.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
	"github.com/bigkaa/goartstore/catalog-bot/internal/repository"
)

// FavoritesService — избранные файлы пользователей.
type FavoritesService struct {
	tx        Transactor
	favorites repository.FavoriteRepository
	files     repository.FileRepository
	limit     int
	logger    *slog.Logger
}

// NewFavoritesService создаёт сервис избранного с лимитом limit записей на пользователя.
func NewFavoritesService(
	tx Transactor,
	favorites repository.FavoriteRepository,
	files repository.FileRepository,
	limit int,
	logger *slog.Logger,
) *FavoritesService {
	return &FavoritesService{
		tx:        tx,
		favorites: favorites,
		files:     files,
		limit:     limit,
		logger:    logger.With(slog.String("component", "favorites_service")),
	}
}

// Limit возвращает максимальный размер избранного.
func (s *FavoritesService) Limit() int {
	return s.limit
}

// Toggle добавляет файл в избранное или убирает его оттуда.
// Возвращает true, если файл добавлен.
//
// Проверка размера и вставка выполняются в одной транзакции под
// advisory-блокировкой пользователя: параллельные Toggle одного
// пользователя (в том числе с разных реплик) не превысят лимит.
func (s *FavoritesService) Toggle(ctx context.Context, userID int64, catalogID string) (bool, error) {
	catalogID = NormalizeCatalogID(catalogID)
	var added bool

	err := s.tx.WithRepos(ctx, func(repos *repository.Repos) error {
		if err := repos.Favorites.LockUser(ctx, userID); err != nil {
			return err
		}

		removed, err := repos.Favorites.Delete(ctx, userID, catalogID)
		if err != nil {
			return err
		}
		if removed {
			added = false
			return nil
		}

		n, err := repos.Favorites.Count(ctx, userID)
		if err != nil {
			return err
		}
		if n >= s.limit {
			return ErrFavoritesFull
		}

		if err := repos.Favorites.Insert(ctx, userID, catalogID); err != nil {
			return mapNotFound(err)
		}
		added = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrFavoritesFull) || errors.Is(err, ErrNotFound) {
			return false, err
		}
		return false, fmt.Errorf("избранное пользователя %d: %w", userID, err)
	}

	s.logger.Debug("Избранное изменено",
		slog.Int64("user_id", userID),
		slog.String("catalog_id", catalogID),
		slog.Bool("added", added),
	)
	return added, nil
}

// List возвращает избранные файлы в порядке добавления.
// Файлы, удалённые из каталога между запросами, пропускаются.
func (s *FavoritesService) List(ctx context.Context, userID int64) ([]*model.FileRecord, error) {
	ids, err := s.favorites.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("избранное пользователя %d: %w", userID, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	records, err := s.files.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("файлы избранного: %w", err)
	}

	byID := make(map[string]*model.FileRecord, len(records))
	for _, r := range records {
		byID[r.CatalogID] = r
	}

	ordered := make([]*model.FileRecord, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered, nil
}

// Count возвращает размер избранного пользователя.
func (s *FavoritesService) Count(ctx context.Context, userID int64) (int, error) {
	n, err := s.favorites.Count(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("избранное пользователя %d: %w", userID, err)
	}
	return n, nil
}

// Contains проверяет, есть ли файл в избранном пользователя.
func (s *FavoritesService) Contains(ctx context.Context, userID int64, catalogID string) (bool, error) {
	ok, err := s.favorites.Exists(ctx, userID, NormalizeCatalogID(catalogID))
	if err != nil {
		return false, fmt.Errorf("избранное пользователя %d: %w", userID, err)
	}
	return ok, nil
}
