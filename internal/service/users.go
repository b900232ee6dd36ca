// users.go — реестр пользователей и сводка аккаунта.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
	"github.com/bigkaa/goartstore/catalog-bot/internal/repository"
)

// UserService — учёт пользователей, обратившихся к боту.
type UserService struct {
	users     repository.UserRepository
	quota     *QuotaService
	favorites *FavoritesService
	logger    *slog.Logger
	now       func() time.Time
}

// NewUserService создаёт сервис пользователей.
func NewUserService(
	users repository.UserRepository,
	quota *QuotaService,
	favorites *FavoritesService,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		quota:     quota,
		favorites: favorites,
		logger:    logger.With(slog.String("component", "user_service")),
		now:       time.Now,
	}
}

// Touch идемпотентно регистрирует пользователя при каждом обращении.
// Ошибка только логируется: учёт пользователей не должен мешать ответу.
func (s *UserService) Touch(ctx context.Context, userID int64, firstName, handle string) {
	u := &model.User{
		UserID:     userID,
		FirstName:  firstName,
		Handle:     handle,
		LastSeenAt: s.now().UTC(),
	}
	if err := s.users.Upsert(ctx, u); err != nil {
		s.logger.Warn("Не удалось сохранить пользователя",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// Account собирает сводку для команды myaccount.
func (s *UserService) Account(ctx context.Context, userID int64) (*model.Account, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("аккаунт %d: %w", userID, mapNotFound(err))
	}

	today, err := s.quota.Peek(ctx, userID)
	if err != nil {
		return nil, err
	}
	favs, err := s.favorites.Count(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.Account{
		User:           u,
		DownloadsToday: today,
		DailyLimit:     s.quota.Limit(),
		Favorites:      favs,
		FavoritesLimit: s.favorites.Limit(),
	}, nil
}
