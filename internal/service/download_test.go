package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/access"
	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
	"github.com/bigkaa/goartstore/catalog-bot/internal/messenger"
	"github.com/bigkaa/goartstore/catalog-bot/internal/messenger/messengertest"
	"github.com/bigkaa/goartstore/catalog-bot/internal/repository"
)

var testVideo = &model.FileRecord{
	CatalogID:     "F0001",
	SourceFileRef: "file-ref-1",
	CleanTitle:    "Iron Man 2008",
	Kind:          model.KindVideo,
	SizeLabel:     "1.5 GB",
}

type downloadFixture struct {
	svc        *DownloadService
	fake       *messengertest.Fake
	quota      *mockQuotaRepo
	favs       *mockFavoriteRepo
	byID       map[string]*model.FileRecord
	increments int
}

func newDownloadFixture(limit int, records ...*model.FileRecord) *downloadFixture {
	f := &downloadFixture{
		fake:  &messengertest.Fake{},
		quota: &mockQuotaRepo{},
		favs:  &mockFavoriteRepo{},
	}
	byID := make(map[string]*model.FileRecord)
	for _, r := range records {
		byID[r.CatalogID] = r
	}
	f.byID = byID
	files := &mockFileRepo{
		getByIDFn: func(_ context.Context, id string) (*model.FileRecord, error) {
			if r, ok := byID[id]; ok {
				return r, nil
			}
			return nil, repository.ErrNotFound
		},
		incrementFn: func(context.Context, string) (int64, error) {
			f.increments++
			return int64(f.increments), nil
		},
	}

	catalog := NewCatalogService(files, &mockPendingRepo{}, &mockUserRepo{}, NewFileCache(10, time.Minute), access.NewAdminSet(nil), slog.Default())
	quota := NewQuotaService(f.quota, limit)
	tx := &mockTransactor{repos: &repository.Repos{Favorites: f.favs, Files: files}}
	favorites := NewFavoritesService(tx, f.favs, files, 50, slog.Default())
	f.svc = NewDownloadService(catalog, quota, favorites, f.fake, slog.Default())
	return f
}

// TestDeliver_Success проверяет доставку: файл отправлен, квота и счётчик учтены.
func TestDeliver_Success(t *testing.T) {
	f := newDownloadFixture(2, testVideo)

	d, err := f.svc.Deliver(context.Background(), 1, 1, "f0001")
	if err != nil {
		t.Fatalf("Deliver ошибка: %v", err)
	}
	if d.Used != 1 || d.Limit != 2 {
		t.Errorf("Delivery = %+v, ожидалось used=1 limit=2", d)
	}
	if f.increments != 1 {
		t.Errorf("счётчик скачиваний увеличен %d раз, ожидался 1", f.increments)
	}

	sent := f.fake.SentTo(1)
	if len(sent) != 1 || sent[0].Media == nil {
		t.Fatalf("ожидался один файл, получено %+v", sent)
	}
	m := sent[0].Media
	if m.Kind != model.KindVideo || m.FileRef != "file-ref-1" {
		t.Errorf("Media = %+v", m)
	}
	if m.Keyboard[0][0].Data != CallbackFav+"F0001" {
		t.Errorf("кнопка избранного = %q", m.Keyboard[0][0].Data)
	}
}

// TestDeliver_QuotaExceeded проверяет отказ без изменения состояния.
func TestDeliver_QuotaExceeded(t *testing.T) {
	f := newDownloadFixture(2, testVideo)
	ctx := context.Background()

	for range 2 {
		if _, err := f.svc.Deliver(ctx, 1, 1, "F0001"); err != nil {
			t.Fatalf("Deliver ошибка: %v", err)
		}
	}

	_, err := f.svc.Deliver(ctx, 1, 1, "F0001")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("ошибка = %v, ожидалась ErrQuotaExceeded", err)
	}
	if f.quota.incrCalls != 2 || f.increments != 2 {
		t.Errorf("квота=%d счётчик=%d, ожидалось 2 и 2", f.quota.incrCalls, f.increments)
	}
	if n := len(f.fake.Sent()); n != 2 {
		t.Errorf("отправлено %d файлов, ожидалось 2", n)
	}

	// Квота другого пользователя не затронута
	if _, err := f.svc.Deliver(ctx, 2, 2, "F0001"); err != nil {
		t.Errorf("Deliver другому пользователю: %v", err)
	}
}

// TestDeliver_NotFound проверяет отсутствующий файл.
func TestDeliver_NotFound(t *testing.T) {
	f := newDownloadFixture(5)

	_, err := f.svc.Deliver(context.Background(), 1, 1, "F0404")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ошибка = %v, ожидалась ErrNotFound", err)
	}
	if f.quota.incrCalls != 0 {
		t.Error("квота не должна расходоваться")
	}
}

// TestDeliver_DeletedAfterCached проверяет, что удалённый файл не
// доставляется, даже если запись осталась в кэше.
func TestDeliver_DeletedAfterCached(t *testing.T) {
	f := newDownloadFixture(5, testVideo)
	ctx := context.Background()

	if _, err := f.svc.catalog.Get(ctx, "F0001"); err != nil {
		t.Fatalf("Get ошибка: %v", err)
	}
	delete(f.byID, "F0001")

	if _, err := f.svc.Deliver(ctx, 1, 1, "F0001"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ошибка = %v, ожидалась ErrNotFound", err)
	}
	if n := len(f.fake.Sent()); n != 0 {
		t.Errorf("отправлено %d файлов, ожидалось 0", n)
	}
	if f.quota.incrCalls != 0 {
		t.Error("квота не должна расходоваться")
	}
}

// TestDeliver_SendFailure проверяет, что неудачная отправка ничего не меняет.
func TestDeliver_SendFailure(t *testing.T) {
	f := newDownloadFixture(5, testVideo)
	f.fake.SendMediaFn = func(context.Context, int64, messenger.Media) (int, error) {
		return 0, errors.New("file reference expired")
	}

	if _, err := f.svc.Deliver(context.Background(), 1, 1, "F0001"); err == nil {
		t.Fatal("ожидалась ошибка отправки")
	}
	if f.quota.incrCalls != 0 || f.increments != 0 {
		t.Errorf("квота=%d счётчик=%d, ожидалось 0 и 0", f.quota.incrCalls, f.increments)
	}
}

// TestDeliver_FavoriteButton проверяет подпись кнопки для файла в избранном.
func TestDeliver_FavoriteButton(t *testing.T) {
	f := newDownloadFixture(5, testVideo)
	f.favs.lists = map[int64][]string{1: {"F0001"}}

	if _, err := f.svc.Deliver(context.Background(), 1, 1, "F0001"); err != nil {
		t.Fatalf("Deliver ошибка: %v", err)
	}
	btn := f.fake.SentTo(1)[0].Media.Keyboard[0][0]
	if !strings.Contains(btn.Text, "Убрать") {
		t.Errorf("кнопка = %q, ожидалось удаление из избранного", btn.Text)
	}
}

// TestFileCaption проверяет формат подписи.
func TestFileCaption(t *testing.T) {
	if got := FileCaption(testVideo); got != "Iron Man 2008\n\nID: F0001 · 1.5 GB" {
		t.Errorf("FileCaption = %q", got)
	}
	noSize := *testVideo
	noSize.SizeLabel = ""
	if got := FileCaption(&noSize); got != "Iron Man 2008\n\nID: F0001" {
		t.Errorf("FileCaption без размера = %q", got)
	}
}
