package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/access"
	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
	"github.com/bigkaa/goartstore/catalog-bot/internal/repository"
)

func newTestCatalog(files *mockFileRepo, pending *mockPendingRepo, users *mockUserRepo) *CatalogService {
	return NewCatalogService(files, pending, users, NewFileCache(10, time.Minute),
		access.NewAdminSet([]int64{testAdmin}), slog.Default())
}

// TestCatalogGet_Cache проверяет, что повторный Get берётся из кэша.
func TestCatalogGet_Cache(t *testing.T) {
	calls := 0
	files := &mockFileRepo{
		getByIDFn: func(_ context.Context, id string) (*model.FileRecord, error) {
			calls++
			return &model.FileRecord{CatalogID: id}, nil
		},
	}
	svc := newTestCatalog(files, &mockPendingRepo{}, &mockUserRepo{})
	ctx := context.Background()

	for range 3 {
		if _, err := svc.Get(ctx, " f0001 "); err != nil {
			t.Fatalf("Get ошибка: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("GetByID вызван %d раз, ожидался 1", calls)
	}

	// RecordDownload сбрасывает кэш, чтобы счётчик не устаревал
	if _, err := svc.RecordDownload(ctx, "F0001"); err != nil {
		t.Fatalf("RecordDownload ошибка: %v", err)
	}
	_, _ = svc.Get(ctx, "F0001")
	if calls != 2 {
		t.Errorf("GetByID вызван %d раз после сброса, ожидалось 2", calls)
	}
}

// TestCatalogGetFresh_DeletedElsewhere проверяет, что запись, удалённая
// мимо этого экземпляра сервиса, не отдаётся из кэша при доставке.
func TestCatalogGetFresh_DeletedElsewhere(t *testing.T) {
	stored := map[string]*model.FileRecord{"F0001": {CatalogID: "F0001"}}
	files := &mockFileRepo{
		getByIDFn: func(_ context.Context, id string) (*model.FileRecord, error) {
			if rec, ok := stored[id]; ok {
				return rec, nil
			}
			return nil, repository.ErrNotFound
		},
	}
	svc := newTestCatalog(files, &mockPendingRepo{}, &mockUserRepo{})
	ctx := context.Background()

	if _, err := svc.Get(ctx, "F0001"); err != nil {
		t.Fatalf("Get ошибка: %v", err)
	}
	delete(stored, "F0001")

	if _, err := svc.GetFresh(ctx, "f0001"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetFresh: ошибка %v, ожидалась ErrNotFound", err)
	}
	// Устаревшая запись вытеснена и из кэша
	if _, err := svc.Get(ctx, "F0001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get после GetFresh: ошибка %v, ожидалась ErrNotFound", err)
	}
}

// TestCatalogDelete проверяет права и отсутствующий файл.
func TestCatalogDelete(t *testing.T) {
	deleted := 0
	files := &mockFileRepo{
		deleteFn: func(_ context.Context, id string) error {
			if id != "F0001" {
				return repository.ErrNotFound
			}
			deleted++
			return nil
		},
	}
	svc := newTestCatalog(files, &mockPendingRepo{}, &mockUserRepo{})
	ctx := context.Background()

	if err := svc.Delete(ctx, 5, "F0001"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Delete не-админом: %v, ожидалась ErrUnauthorized", err)
	}
	if deleted != 0 {
		t.Fatal("файл удалён без прав")
	}
	if err := svc.Delete(ctx, testAdmin, "F0002"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete отсутствующего: %v, ожидалась ErrNotFound", err)
	}
	if err := svc.Delete(ctx, testAdmin, "f0001"); err != nil {
		t.Errorf("Delete ошибка: %v", err)
	}
	if deleted != 1 {
		t.Errorf("удалено %d, ожидался 1", deleted)
	}
}

// TestCatalogStats проверяет сбор статистики.
func TestCatalogStats(t *testing.T) {
	files := &mockFileRepo{
		countFn: func(_ context.Context, f repository.FileFilter) (int, error) {
			if f.Kind == nil {
				return 10, nil
			}
			if *f.Kind == model.KindVideo {
				return 7, nil
			}
			return 3, nil
		},
		totalDownloadsFn: func(context.Context) (int64, error) { return 123, nil },
	}
	pending := &mockPendingRepo{countActiveFn: func(context.Context) (int, error) { return 2, nil }}
	users := &mockUserRepo{countFn: func(context.Context) (int, error) { return 40, nil }}
	svc := newTestCatalog(files, pending, users)

	if _, err := svc.Stats(context.Background(), 5); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Stats не-админом: %v", err)
	}

	stats, err := svc.Stats(context.Background(), testAdmin)
	if err != nil {
		t.Fatalf("Stats ошибка: %v", err)
	}
	want := model.Stats{Files: 10, Videos: 7, Documents: 3, Users: 40, TotalDownloads: 123, Pending: 2}
	if *stats != want {
		t.Errorf("Stats = %+v, ожидалось %+v", *stats, want)
	}
}
