// callbacks.go — обработка нажатий inline-кнопок.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/bigkaa/goartstore/catalog-bot/internal/service"
)

// handleCallback разбирает данные кнопки: GET:, PAGE:, FAV:, CONFIRM:, CANCEL:, CHECK_JOIN.
func (d *Dispatcher) handleCallback(ctx context.Context, cb *Callback) error {
	d.svc.Users.Touch(ctx, cb.From.ID, cb.From.FirstName, cb.From.Handle)

	if cb.Data == service.CallbackCheckJoin {
		d.checkJoin(ctx, cb)
		return nil
	}

	if !d.svc.Gate.Verify(ctx, cb.From.ID, cb.ChatID) {
		d.answer(ctx, cb, "Доступ только для участников группы.", true)
		return nil
	}

	switch {
	case strings.HasPrefix(cb.Data, service.CallbackGet):
		return d.onGet(ctx, cb, strings.TrimPrefix(cb.Data, service.CallbackGet))
	case strings.HasPrefix(cb.Data, service.CallbackPage):
		return d.onPage(ctx, cb, strings.TrimPrefix(cb.Data, service.CallbackPage))
	case strings.HasPrefix(cb.Data, service.CallbackFav):
		return d.onFavorite(ctx, cb, strings.TrimPrefix(cb.Data, service.CallbackFav))
	case strings.HasPrefix(cb.Data, service.CallbackConfirm):
		return d.onConfirm(ctx, cb, strings.TrimPrefix(cb.Data, service.CallbackConfirm))
	case strings.HasPrefix(cb.Data, service.CallbackCancel):
		return d.onCancel(ctx, cb, strings.TrimPrefix(cb.Data, service.CallbackCancel))
	default:
		d.answer(ctx, cb, "", false)
		return nil
	}
}

// checkJoin — кнопка «Я вступил»: проверка без кэша.
func (d *Dispatcher) checkJoin(ctx context.Context, cb *Callback) {
	if !d.svc.Gate.Recheck(ctx, cb.From.ID) {
		d.answer(ctx, cb, "Вы ещё не вступили в группу.", true)
		return
	}
	d.answer(ctx, cb, "Спасибо! Доступ открыт.", false)
	d.notifier.ScheduleDelete(cb.ChatID, cb.MessageID)
}

func (d *Dispatcher) onGet(ctx context.Context, cb *Callback, catalogID string) error {
	if err := d.deliver(ctx, cb.From.ID, cb.ChatID, catalogID); err != nil {
		return err
	}
	d.answer(ctx, cb, "", false)
	return nil
}

// onPage перерисовывает сообщение с результатами поиска.
func (d *Dispatcher) onPage(ctx context.Context, cb *Callback, raw string) error {
	idx, err := strconv.Atoi(raw)
	if err != nil {
		d.answer(ctx, cb, "", false)
		return nil
	}

	page, err := d.svc.Search.Page(ctx, cb.From.ID, idx)
	if err != nil {
		return err
	}
	text, kb := renderSearchPage(page)
	d.edit(ctx, cb.ChatID, cb.MessageID, text, kb)
	d.answer(ctx, cb, "", false)
	return nil
}

func (d *Dispatcher) onFavorite(ctx context.Context, cb *Callback, catalogID string) error {
	added, err := d.svc.Favorites.Toggle(ctx, cb.From.ID, catalogID)
	if err != nil {
		return err
	}
	if added {
		d.answer(ctx, cb, "Добавлено в избранное.", false)
	} else {
		d.answer(ctx, cb, "Удалено из избранного.", false)
	}
	return nil
}

// onConfirm публикует загрузку и заменяет превью итогом.
func (d *Dispatcher) onConfirm(ctx context.Context, cb *Callback, pendingID string) error {
	rec, err := d.svc.Moderation.Confirm(ctx, cb.From.ID, pendingID)
	if err != nil {
		return d.moderationFailed(ctx, cb, err)
	}
	d.edit(ctx, cb.ChatID, cb.MessageID, renderPublished(rec), nil)
	d.answer(ctx, cb, "Опубликовано: "+rec.CatalogID, false)
	return nil
}

func (d *Dispatcher) onCancel(ctx context.Context, cb *Callback, pendingID string) error {
	if err := d.svc.Moderation.Cancel(ctx, cb.From.ID, pendingID); err != nil {
		return d.moderationFailed(ctx, cb, err)
	}
	d.edit(ctx, cb.ChatID, cb.MessageID, "Загрузка отменена.", nil)
	d.answer(ctx, cb, "Отменено.", false)
	return nil
}

// moderationFailed убирает кнопки с превью, если загрузка больше недоступна.
func (d *Dispatcher) moderationFailed(ctx context.Context, cb *Callback, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		d.edit(ctx, cb.ChatID, cb.MessageID, "Загрузка недоступна: время подтверждения истекло или она уже обработана.", nil)
		d.answer(ctx, cb, "", false)
		return nil
	case errors.Is(err, service.ErrDuplicateFile):
		d.edit(ctx, cb.ChatID, cb.MessageID, "Файл уже есть в каталоге, загрузка отклонена.", nil)
	}
	return err
}
