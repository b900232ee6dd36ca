// commands.go — команды, свободный поиск и загрузки администраторов.
package bot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bigkaa/goartstore/catalog-bot/internal/service"
)

// Команды бота.
const (
	CmdStart     = "start"
	CmdHelp      = "help"
	CmdRecent    = "recent"
	CmdTrending  = "trending"
	CmdFavorites = "favorites"
	CmdAccount   = "myaccount"
	CmdStats     = "stats"
	CmdBroadcast = "broadcast"
	CmdDelete    = "delete"
)

// handleCommand выполняет команду. Административные команды проверяют
// права до любых действий; попытки не-админов игнорируются без ответа.
func (d *Dispatcher) handleCommand(ctx context.Context, msg *Message) error {
	switch msg.Command {
	case CmdStart:
		return d.cmdStart(ctx, msg)
	case CmdHelp:
		d.send(ctx, msg.ChatID, renderHelp(d.admins.IsAdmin(msg.From.ID)), nil)
		return nil
	case CmdRecent:
		items, err := d.svc.Catalog.Recent(ctx, d.listLimit)
		if err != nil {
			return err
		}
		text, kb := renderFileList("Новые файлы", items)
		d.send(ctx, msg.ChatID, text, kb)
		return nil
	case CmdTrending:
		items, err := d.svc.Catalog.Trending(ctx, d.listLimit)
		if err != nil {
			return err
		}
		text, kb := renderFileList("Популярные файлы", items)
		d.send(ctx, msg.ChatID, text, kb)
		return nil
	case CmdFavorites:
		items, err := d.svc.Favorites.List(ctx, msg.From.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			d.notifier.Notice(ctx, msg.ChatID, "В избранном пока ничего нет.")
			return nil
		}
		text, kb := renderFileList("Избранное", items)
		d.send(ctx, msg.ChatID, text, kb)
		return nil
	case CmdAccount:
		acc, err := d.svc.Users.Account(ctx, msg.From.ID)
		if err != nil {
			return err
		}
		d.send(ctx, msg.ChatID, renderAccount(acc), nil)
		return nil
	case CmdStats:
		stats, err := d.svc.Catalog.Stats(ctx, msg.From.ID)
		if err != nil {
			return err
		}
		d.send(ctx, msg.ChatID, renderStats(stats), nil)
		return nil
	case CmdBroadcast:
		return d.cmdBroadcast(ctx, msg)
	case CmdDelete:
		return d.cmdDelete(ctx, msg)
	default:
		d.notifier.Notice(ctx, msg.ChatID, "Неизвестная команда. Список команд: /help")
		return nil
	}
}

// cmdStart приветствует пользователя. "/start F0001" (deep link) сразу выдаёт файл.
func (d *Dispatcher) cmdStart(ctx context.Context, msg *Message) error {
	if id := service.NormalizeCatalogID(msg.Args); id != "" {
		return d.deliver(ctx, msg.From.ID, msg.ChatID, id)
	}
	d.send(ctx, msg.ChatID, renderWelcome(msg.From.FirstName), nil)
	return nil
}

// cmdDelete — "/delete F0001".
func (d *Dispatcher) cmdDelete(ctx context.Context, msg *Message) error {
	if !d.admins.IsAdmin(msg.From.ID) {
		return service.ErrUnauthorized
	}
	id := service.NormalizeCatalogID(msg.Args)
	if id == "" {
		d.notifier.Notice(ctx, msg.ChatID, "Использование: /delete <ID файла>")
		return nil
	}
	if err := d.svc.Catalog.Delete(ctx, msg.From.ID, id); err != nil {
		return err
	}
	d.notifier.Notice(ctx, msg.ChatID, "Файл "+id+" удалён из каталога.")
	return nil
}

// cmdBroadcast — "/broadcast <текст>" или ответом на сообщение, которое
// будет скопировано. Рассылка идёт в фоне; итоги приходят отдельным сообщением.
func (d *Dispatcher) cmdBroadcast(ctx context.Context, msg *Message) error {
	if !d.admins.IsAdmin(msg.From.ID) {
		return service.ErrUnauthorized
	}

	content := service.BroadcastContent{Text: strings.TrimSpace(msg.Args)}
	if msg.ReplyToMessageID != 0 {
		content = service.BroadcastContent{FromChatID: msg.ChatID, MessageID: msg.ReplyToMessageID}
	}
	if !content.IsCopy() && content.Text == "" {
		d.notifier.Notice(ctx, msg.ChatID, "Использование: /broadcast <текст> или ответом на сообщение.")
		return nil
	}

	d.send(ctx, msg.ChatID, "Рассылка запущена.", nil)

	actor, chatID := msg.From.ID, msg.ChatID
	d.goBackground(func(bgCtx context.Context) {
		res, err := d.svc.Broadcast.Broadcast(bgCtx, actor, content)
		if err != nil {
			d.logger.Warn("Рассылка прервана",
				slog.Int64("admin_id", actor),
				slog.String("error", err.Error()),
			)
		}
		if res == nil {
			return
		}

		reportCtx := bgCtx
		if bgCtx.Err() != nil {
			var cancel context.CancelFunc
			reportCtx, cancel = context.WithTimeout(context.Background(), reportTimeout)
			defer cancel()
		}
		d.send(reportCtx, chatID, renderBroadcastResult(res, err != nil), nil)
	})
	return nil
}

// handleSearch — свободный текст как поисковый запрос.
func (d *Dispatcher) handleSearch(ctx context.Context, msg *Message) error {
	page, err := d.svc.Search.Search(ctx, msg.From.ID, msg.Text)
	if err != nil {
		return err
	}
	if page == nil {
		return nil
	}
	text, kb := renderSearchPage(page)
	d.send(ctx, msg.ChatID, text, kb)
	return nil
}

// handleUpload начинает модерацию файла администратора.
// Файлы от остальных пользователей игнорируются.
func (d *Dispatcher) handleUpload(ctx context.Context, msg *Message) error {
	upload := *msg.Upload
	upload.ChatID = msg.ChatID
	upload.MessageID = msg.MessageID
	if upload.Caption == "" {
		upload.Caption = msg.Text
	}

	p, err := d.svc.Moderation.Submit(ctx, msg.From.ID, upload)
	if err != nil {
		return err
	}
	text, kb := renderPendingPreview(p)
	d.send(ctx, msg.ChatID, text, kb)
	return nil
}

// deliver выдаёт файл и показывает остаток квоты.
func (d *Dispatcher) deliver(ctx context.Context, userID, chatID int64, catalogID string) error {
	delivery, err := d.svc.Downloads.Deliver(ctx, userID, chatID, catalogID)
	if err != nil {
		return err
	}
	if left := delivery.Limit - delivery.Used; left <= 3 {
		d.notifier.Notice(ctx, chatID, renderQuotaLeft(left))
	}
	return nil
}
