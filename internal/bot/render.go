// render.go — тексты и inline-меню ответов бота.
package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
	"github.com/bigkaa/goartstore/catalog-bot/internal/messenger"
	"github.com/bigkaa/goartstore/catalog-bot/internal/service"
)

// maxButtonTitle — максимальная длина названия в кнопке.
const maxButtonTitle = 40

func renderWelcome(firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		name = "друг"
	}
	return fmt.Sprintf("Привет, %s!\n\nОтправьте название фильма или файла, и я найду его в каталоге.\n"+
		"Новинки — /recent, популярное — /trending, справка — /help.", name)
}

func renderHelp(isAdmin bool) string {
	var b strings.Builder
	b.WriteString("Поиск: просто отправьте ключевые слова. Находятся файлы, в названии которых есть все слова.\n\n")
	b.WriteString("/recent — новые файлы\n")
	b.WriteString("/trending — популярные файлы\n")
	b.WriteString("/favorites — избранное\n")
	b.WriteString("/myaccount — мой аккаунт и лимиты\n")
	if isAdmin {
		b.WriteString("\nАдминистратору:\n")
		b.WriteString("отправьте видео или документ — файл попадёт на модерацию\n")
		b.WriteString("/stats — статистика каталога\n")
		b.WriteString("/broadcast <текст> — рассылка (или ответом на сообщение)\n")
		b.WriteString("/delete <ID> — удалить файл\n")
	}
	return b.String()
}

// fileLine — строка списка: ID, название, размер.
func fileLine(rec *model.FileRecord) string {
	line := rec.CatalogID + " · " + rec.CleanTitle
	if rec.SizeLabel != "" {
		line += " · " + rec.SizeLabel
	}
	return line
}

// fileButton — кнопка скачивания файла.
func fileButton(rec *model.FileRecord) messenger.Button {
	return messenger.Button{
		Text: "📥 " + rec.CatalogID + " " + truncate(rec.CleanTitle, maxButtonTitle),
		Data: service.CallbackGet + rec.CatalogID,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// renderFileList — список файлов с кнопкой скачивания на каждый.
func renderFileList(title string, items []*model.FileRecord) (string, messenger.Keyboard) {
	if len(items) == 0 {
		return title + "\n\nКаталог пока пуст.", nil
	}
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	kb := make(messenger.Keyboard, 0, len(items))
	for i, rec := range items {
		fmt.Fprintf(&b, "\n%d. %s", i+1, fileLine(rec))
		kb = append(kb, messenger.Row(fileButton(rec)))
	}
	return b.String(), kb
}

// renderSearchPage — страница результатов с навигацией только
// в существующие соседние страницы.
func renderSearchPage(p *service.SearchPage) (string, messenger.Keyboard) {
	var b strings.Builder
	pages := (p.Total + p.PageSize - 1) / p.PageSize
	fmt.Fprintf(&b, "Найдено: %d. Страница %d из %d.\n", p.Total, p.PageIndex+1, max(pages, 1))

	if len(p.Items) == 0 {
		b.WriteString("\nНа этой странице ничего нет.")
	}

	kb := make(messenger.Keyboard, 0, len(p.Items)+1)
	for i, rec := range p.Items {
		fmt.Fprintf(&b, "\n%d. %s", p.PageIndex*p.PageSize+i+1, fileLine(rec))
		kb = append(kb, messenger.Row(fileButton(rec)))
	}

	var nav []messenger.Button
	if p.HasPrev {
		nav = append(nav, messenger.Button{Text: "◀ Назад", Data: service.CallbackPage + strconv.Itoa(p.PageIndex-1)})
	}
	if p.HasNext {
		nav = append(nav, messenger.Button{Text: "Вперёд ▶", Data: service.CallbackPage + strconv.Itoa(p.PageIndex+1)})
	}
	if len(nav) > 0 {
		kb = append(kb, messenger.Row(nav...))
	}
	if len(kb) == 0 {
		return b.String(), nil
	}
	return b.String(), kb
}

// renderPendingPreview — превью загрузки с кнопками подтверждения.
func renderPendingPreview(p *model.PendingUpload) (string, messenger.Keyboard) {
	kind := "документ"
	if p.Kind == model.KindVideo {
		kind = "видео"
	}

	var b strings.Builder
	b.WriteString("Новый файл на модерации\n\n")
	fmt.Fprintf(&b, "Название: %s\n", p.CleanTitle)
	fmt.Fprintf(&b, "Исходное имя: %s\n", p.DisplayName)
	fmt.Fprintf(&b, "Тип: %s\n", kind)
	if p.SizeLabel != "" {
		fmt.Fprintf(&b, "Размер: %s\n", p.SizeLabel)
	}
	ttl := p.ExpiresAt.Sub(p.CreatedAt).Round(time.Minute)
	fmt.Fprintf(&b, "\nПодтвердите в течение %d мин.", int(ttl.Minutes()))

	kb := messenger.Keyboard{
		messenger.Row(
			messenger.Button{Text: "✅ Опубликовать", Data: service.CallbackConfirm + p.ID},
			messenger.Button{Text: "✖ Отменить", Data: service.CallbackCancel + p.ID},
		),
	}
	return b.String(), kb
}

func renderPublished(rec *model.FileRecord) string {
	return fmt.Sprintf("Опубликовано: %s\n%s\nКлючевые слова: %s",
		rec.CatalogID, rec.CleanTitle, strings.Join(rec.Tokens, ", "))
}

func renderAccount(acc *model.Account) string {
	var b strings.Builder
	b.WriteString("Мой аккаунт\n\n")
	if acc.User.Handle != "" {
		fmt.Fprintf(&b, "Пользователь: @%s\n", acc.User.Handle)
	}
	fmt.Fprintf(&b, "С нами с %s (%s)\n", acc.User.JoinedAt.UTC().Format(time.DateOnly), humanize.Time(acc.User.JoinedAt))
	fmt.Fprintf(&b, "Скачиваний сегодня: %d из %d\n", acc.DownloadsToday, acc.DailyLimit)
	fmt.Fprintf(&b, "Избранное: %d из %d", acc.Favorites, acc.FavoritesLimit)
	return b.String()
}

func renderStats(s *model.Stats) string {
	return fmt.Sprintf("Статистика каталога\n\n"+
		"Файлов: %s (видео %s, документов %s)\n"+
		"Скачиваний: %s\n"+
		"Пользователей: %s\n"+
		"Ожидают модерации: %d",
		humanize.Comma(int64(s.Files)), humanize.Comma(int64(s.Videos)), humanize.Comma(int64(s.Documents)),
		humanize.Comma(s.TotalDownloads),
		humanize.Comma(int64(s.Users)),
		s.Pending,
	)
}

func renderBroadcastResult(r *model.BroadcastResult, interrupted bool) string {
	title := "Рассылка завершена"
	if interrupted {
		title = "Рассылка прервана"
	}
	return fmt.Sprintf("%s\n\nВсего: %d\nДоставлено: %d\nЗаблокировали бота: %d\nОшибки: %d",
		title, r.Total, r.Success, r.Blocked, r.Failed)
}

func renderQuotaLeft(left int) string {
	if left <= 0 {
		return "Это было последнее скачивание на сегодня."
	}
	return fmt.Sprintf("Осталось скачиваний на сегодня: %d.", left)
}
