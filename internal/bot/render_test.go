package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
	"github.com/bigkaa/goartstore/catalog-bot/internal/service"
)

func TestRenderSearchPage_Navigation(t *testing.T) {
	items := []*model.FileRecord{{CatalogID: "F0003", CleanTitle: "c"}}

	tests := []struct {
		name     string
		page     *service.SearchPage
		wantNav  []string
		wantRows int
	}{
		{
			name:     "одна страница",
			page:     &service.SearchPage{Items: items, Total: 1, PageSize: 10},
			wantRows: 1,
		},
		{
			name:     "середина",
			page:     &service.SearchPage{Items: items, Total: 30, PageIndex: 1, PageSize: 10, HasPrev: true, HasNext: true},
			wantNav:  []string{"PAGE:0", "PAGE:2"},
			wantRows: 2,
		},
		{
			name:     "за последней страницей",
			page:     &service.SearchPage{Total: 5, PageIndex: 7, PageSize: 5},
			wantRows: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, kb := renderSearchPage(tt.page)
			if len(kb) != tt.wantRows {
				t.Fatalf("строк меню = %d, ожидалось %d", len(kb), tt.wantRows)
			}
			if tt.wantNav == nil {
				return
			}
			nav := kb[len(kb)-1]
			if len(nav) != len(tt.wantNav) {
				t.Fatalf("навигация = %+v", nav)
			}
			for i, want := range tt.wantNav {
				if nav[i].Data != want {
					t.Errorf("кнопка %d = %q, ожидалась %q", i, nav[i].Data, want)
				}
			}
		})
	}
}

func TestRenderSearchPage_Numbering(t *testing.T) {
	page := &service.SearchPage{
		Items:     []*model.FileRecord{{CatalogID: "F0011", CleanTitle: "x", SizeLabel: "1.0 MB"}},
		Total:     11,
		PageIndex: 1,
		PageSize:  10,
		HasPrev:   true,
	}
	text, _ := renderSearchPage(page)
	if !strings.Contains(text, "Страница 2 из 2") {
		t.Errorf("заголовок = %q", text)
	}
	if !strings.Contains(text, "11. F0011 · x · 1.0 MB") {
		t.Errorf("строка = %q", text)
	}
}

func TestRenderFileList_Empty(t *testing.T) {
	text, kb := renderFileList("Новые файлы", nil)
	if kb != nil || !strings.Contains(text, "пуст") {
		t.Errorf("renderFileList(nil) = %q, %v", text, kb)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("короткое", 40); got != "короткое" {
		t.Errorf("truncate = %q", got)
	}
	long := strings.Repeat("я", 50)
	got := truncate(long, 10)
	if r := []rune(got); len(r) != 10 || r[9] != '…' {
		t.Errorf("truncate = %q", got)
	}
}

func TestRenderPendingPreview(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := &model.PendingUpload{
		ID:          "id-1",
		CleanTitle:  "Iron Man 2008 1080p",
		DisplayName: "Iron.Man.2008.1080p.mkv",
		Kind:        model.KindVideo,
		SizeLabel:   "1.5 GB",
		CreatedAt:   now,
		ExpiresAt:   now.Add(10 * time.Minute),
	}
	text, kb := renderPendingPreview(p)
	for _, want := range []string{"Iron Man 2008 1080p", "видео", "1.5 GB", "10 мин"} {
		if !strings.Contains(text, want) {
			t.Errorf("превью не содержит %q: %q", want, text)
		}
	}
	if kb[0][0].Data != "CONFIRM:id-1" || kb[0][1].Data != "CANCEL:id-1" {
		t.Errorf("кнопки = %+v", kb)
	}
}

func TestRenderStats(t *testing.T) {
	text := renderStats(&model.Stats{Files: 1200, Videos: 1000, Documents: 200, Users: 5, TotalDownloads: 1234567, Pending: 1})
	if !strings.Contains(text, "Файлов: 1,200") || !strings.Contains(text, "Скачиваний: 1,234,567") {
		t.Errorf("статистика = %q", text)
	}
}

func TestUpdateKind(t *testing.T) {
	tests := []struct {
		upd  Update
		want string
	}{
		{upd: Update{Message: &Message{Upload: &service.Upload{}}}, want: "upload"},
		{upd: Update{Message: &Message{Command: "help"}}, want: "command"},
		{upd: Update{Message: &Message{Text: "dune"}}, want: "text"},
		{upd: Update{Callback: &Callback{}}, want: "callback"},
		{upd: Update{}, want: "other"},
	}
	for _, tt := range tests {
		if got := tt.upd.Kind(); got != tt.want {
			t.Errorf("Kind = %q, ожидалось %q", got, tt.want)
		}
	}
}
