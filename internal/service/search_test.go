package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
	"github.com/bigkaa/goartstore/catalog-bot/internal/repository"
)

// catalogOf имитирует строгое AND-сопоставление токенов над набором записей.
func catalogOf(records ...*model.FileRecord) *mockFileRepo {
	matches := func(rec *model.FileRecord, tokens []string) bool {
		for _, q := range tokens {
			found := false
			for _, t := range rec.Tokens {
				if t == q {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}
	return &mockFileRepo{
		countFn: func(_ context.Context, f repository.FileFilter) (int, error) {
			n := 0
			for _, r := range records {
				if matches(r, f.Tokens) {
					n++
				}
			}
			return n, nil
		},
		findByTokensFn: func(_ context.Context, tokens []string, limit, offset int) ([]*model.FileRecord, error) {
			var all []*model.FileRecord
			for _, r := range records {
				if matches(r, tokens) {
					all = append(all, r)
				}
			}
			if offset >= len(all) {
				return nil, nil
			}
			end := min(offset+limit, len(all))
			return all[offset:end], nil
		},
	}
}

// numberedFiles создаёт n записей с общим токеном "movie".
func numberedFiles(n int) []*model.FileRecord {
	out := make([]*model.FileRecord, n)
	for i := range n {
		out[i] = &model.FileRecord{
			CatalogID: model.FormatCatalogID(int64(i + 1)),
			Tokens:    []string{"movie", fmt.Sprint(i + 1)},
		}
	}
	return out
}

// --- Тесты SearchService ---

// TestSearch_StrictAnd проверяет строгое AND: iron+man не находит ironman.
func TestSearch_StrictAnd(t *testing.T) {
	repo := catalogOf(
		&model.FileRecord{CatalogID: "F0001", Tokens: []string{"iron", "man", "2008"}},
		&model.FileRecord{CatalogID: "F0002", Tokens: []string{"ironman"}},
	)
	svc := NewSearchService(repo, NewSessionCache(10, time.Minute), 10, slog.Default())

	page, err := svc.Search(context.Background(), 1, "Iron  MAN")
	if err != nil {
		t.Fatalf("Search ошибка: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].CatalogID != "F0001" {
		t.Fatalf("результат = %+v, ожидался только F0001", page)
	}
	if page.HasNext || page.HasPrev {
		t.Error("навигация не ожидалась для одной страницы")
	}
}

// TestSearch_EmptyQuery проверяет no-op для запроса без токенов.
func TestSearch_EmptyQuery(t *testing.T) {
	repo := &mockFileRepo{
		countFn: func(context.Context, repository.FileFilter) (int, error) {
			t.Error("Count не должен вызываться для пустого запроса")
			return 0, nil
		},
	}
	sessions := NewSessionCache(10, time.Minute)
	svc := NewSearchService(repo, sessions, 10, slog.Default())

	page, err := svc.Search(context.Background(), 1, "   \t ")
	if err != nil || page != nil {
		t.Errorf("Search(пусто) = %v, %v; ожидался nil, nil", page, err)
	}
	if _, ok := sessions.Get(1); ok {
		t.Error("сессия не должна создаваться")
	}
}

// TestSearch_NoResults проверяет ErrNoResults без создания сессии.
func TestSearch_NoResults(t *testing.T) {
	sessions := NewSessionCache(10, time.Minute)
	svc := NewSearchService(catalogOf(), sessions, 10, slog.Default())

	_, err := svc.Search(context.Background(), 1, "nothing")
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("ошибка = %v, ожидалась ErrNoResults", err)
	}
	if _, ok := sessions.Get(1); ok {
		t.Error("сессия не должна создаваться при пустом результате")
	}
}

// TestSearch_Pagination проверяет границы страниц и навигацию.
func TestSearch_Pagination(t *testing.T) {
	svc := NewSearchService(catalogOf(numberedFiles(25)...), NewSessionCache(10, time.Minute), 10, slog.Default())
	ctx := context.Background()

	first, err := svc.Search(ctx, 7, "movie")
	if err != nil {
		t.Fatalf("Search ошибка: %v", err)
	}
	if len(first.Items) != 10 || !first.HasNext || first.HasPrev {
		t.Errorf("страница 0: items=%d next=%v prev=%v", len(first.Items), first.HasNext, first.HasPrev)
	}

	tests := []struct {
		index    int
		wantLen  int
		wantNext bool
		wantPrev bool
	}{
		{index: 1, wantLen: 10, wantNext: true, wantPrev: true},
		{index: 2, wantLen: 5, wantNext: false, wantPrev: true},
		// За последней страницей: пусто, без "next"
		{index: 3, wantLen: 0, wantNext: false, wantPrev: true},
		{index: 9, wantLen: 0, wantNext: false, wantPrev: false},
		// Отрицательный индекс — первая страница
		{index: -4, wantLen: 10, wantNext: true, wantPrev: false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page_%d", tt.index), func(t *testing.T) {
			page, err := svc.Page(ctx, 7, tt.index)
			if err != nil {
				t.Fatalf("Page ошибка: %v", err)
			}
			if len(page.Items) != tt.wantLen {
				t.Errorf("items = %d, ожидалось %d", len(page.Items), tt.wantLen)
			}
			if page.HasNext != tt.wantNext {
				t.Errorf("HasNext = %v, ожидалось %v", page.HasNext, tt.wantNext)
			}
			if page.HasPrev != tt.wantPrev {
				t.Errorf("HasPrev = %v, ожидалось %v", page.HasPrev, tt.wantPrev)
			}
		})
	}
}

// TestSearch_ExactPageBoundary проверяет отсутствие "next" при total == pageSize.
func TestSearch_ExactPageBoundary(t *testing.T) {
	svc := NewSearchService(catalogOf(numberedFiles(10)...), NewSessionCache(10, time.Minute), 10, slog.Default())

	page, err := svc.Search(context.Background(), 1, "movie")
	if err != nil {
		t.Fatalf("Search ошибка: %v", err)
	}
	if page.HasNext {
		t.Error("HasNext = true при total == pageSize")
	}
}

// TestPage_SessionExpired проверяет ErrSessionExpired без сессии и после TTL.
func TestPage_SessionExpired(t *testing.T) {
	svc := NewSearchService(catalogOf(numberedFiles(3)...), NewSessionCache(10, 50*time.Millisecond), 2, slog.Default())
	ctx := context.Background()

	if _, err := svc.Page(ctx, 1, 1); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("ошибка = %v, ожидалась ErrSessionExpired", err)
	}

	if _, err := svc.Search(ctx, 1, "movie"); err != nil {
		t.Fatalf("Search ошибка: %v", err)
	}
	if _, err := svc.Page(ctx, 1, 1); err != nil {
		t.Fatalf("Page в живой сессии: %v", err)
	}

	time.Sleep(80 * time.Millisecond)
	if _, err := svc.Page(ctx, 1, 1); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("ошибка после TTL = %v, ожидалась ErrSessionExpired", err)
	}
}

// TestSearch_LastQueryWins проверяет, что новая сессия заменяет старую.
func TestSearch_LastQueryWins(t *testing.T) {
	repo := catalogOf(
		&model.FileRecord{CatalogID: "F0001", Tokens: []string{"alpha"}},
		&model.FileRecord{CatalogID: "F0002", Tokens: []string{"beta"}},
	)
	svc := NewSearchService(repo, NewSessionCache(10, time.Minute), 10, slog.Default())
	ctx := context.Background()

	if _, err := svc.Search(ctx, 1, "alpha"); err != nil {
		t.Fatalf("Search(alpha): %v", err)
	}
	if _, err := svc.Search(ctx, 1, "beta"); err != nil {
		t.Fatalf("Search(beta): %v", err)
	}

	page, err := svc.Page(ctx, 1, 0)
	if err != nil {
		t.Fatalf("Page ошибка: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].CatalogID != "F0002" {
		t.Errorf("Page = %+v, ожидался F0002", page.Items)
	}
}
