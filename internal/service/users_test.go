package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
	"github.com/bigkaa/goartstore/catalog-bot/internal/repository"
)

func newTestUsers(users *mockUserRepo, quota *mockQuotaRepo, favs *mockFavoriteRepo) *UserService {
	files := &mockFileRepo{}
	tx := &mockTransactor{repos: &repository.Repos{Favorites: favs, Files: files}}
	return NewUserService(users,
		NewQuotaService(quota, 10),
		NewFavoritesService(tx, favs, files, 50, slog.Default()),
		slog.Default())
}

// TestUserTouch_ErrorSwallowed проверяет, что ошибка учёта не пробрасывается.
func TestUserTouch_ErrorSwallowed(t *testing.T) {
	var got *model.User
	users := &mockUserRepo{
		upsertFn: func(_ context.Context, u *model.User) error {
			got = u
			return errors.New("db down")
		},
	}
	svc := newTestUsers(users, &mockQuotaRepo{}, &mockFavoriteRepo{})
	svc.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	svc.Touch(context.Background(), 7, "Ann", "ann")

	if got == nil || got.UserID != 7 || got.Handle != "ann" {
		t.Fatalf("Upsert получил %+v", got)
	}
	if got.LastSeenAt.IsZero() {
		t.Error("LastSeenAt не заполнен")
	}
}

// TestUserAccount проверяет сводку аккаунта.
func TestUserAccount(t *testing.T) {
	users := &mockUserRepo{
		getFn: func(_ context.Context, id int64) (*model.User, error) {
			return &model.User{UserID: id, FirstName: "Ann"}, nil
		},
	}
	quota := &mockQuotaRepo{}
	_, _ = quota.Increment(context.Background(), 7, time.Now())
	favs := &mockFavoriteRepo{lists: map[int64][]string{7: {"F0001", "F0002"}}}
	svc := newTestUsers(users, quota, favs)

	acc, err := svc.Account(context.Background(), 7)
	if err != nil {
		t.Fatalf("Account ошибка: %v", err)
	}
	if acc.DownloadsToday != 1 || acc.DailyLimit != 10 || acc.Favorites != 2 || acc.FavoritesLimit != 50 {
		t.Errorf("Account = %+v", acc)
	}
}

// TestUserAccount_NotFound проверяет неизвестного пользователя.
func TestUserAccount_NotFound(t *testing.T) {
	svc := newTestUsers(&mockUserRepo{}, &mockQuotaRepo{}, &mockFavoriteRepo{})

	if _, err := svc.Account(context.Background(), 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("ошибка = %v, ожидалась ErrNotFound", err)
	}
}
