// Пакет telegram — адаптер Telegram Bot API: реализация messenger.Messenger,
// преобразование обновлений в события бота, long polling и webhook.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
	"github.com/bigkaa/goartstore/catalog-bot/internal/messenger"
)

// botAPI — методы tgbotapi.BotAPI, которые использует Client.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetInviteLink(config tgbotapi.ChatInviteLinkConfig) (string, error)
	CopyMessage(config tgbotapi.CopyMessageConfig) (tgbotapi.MessageID, error)
}

// Client реализует messenger.Messenger поверх Telegram Bot API.
// tgbotapi не принимает context: отменённый ctx проверяется до запроса.
type Client struct {
	api    botAPI
	logger *slog.Logger
}

// NewBotAPI подключается к Bot API по адресу apiURL (без завершающего "/").
// Выполняет getMe: неверный токен обнаруживается при старте.
func NewBotAPI(token, apiURL string, httpClient *http.Client) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, apiURL+"/bot%s/%s", httpClient)
	if err != nil {
		return nil, fmt.Errorf("подключение к Telegram Bot API: %w", err)
	}
	return api, nil
}

// NewClient создаёт Client.
func NewClient(api *tgbotapi.BotAPI, logger *slog.Logger) *Client {
	return newClient(api, logger)
}

func newClient(api botAPI, logger *slog.Logger) *Client {
	return &Client{
		api:    api,
		logger: logger.With(slog.String("component", "telegram_client")),
	}
}

// SendText отправляет текстовое сообщение.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, kb messenger.Keyboard) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if markup := inlineMarkup(kb); markup != nil {
		msg.ReplyMarkup = *markup
	}
	sent, err := c.api.Send(msg)
	if err != nil {
		return 0, c.mapError("sendMessage", err)
	}
	return sent.MessageID, nil
}

// EditText заменяет текст и меню сообщения.
func (c *Client) EditText(ctx context.Context, chatID int64, messageID int, text string, kb messenger.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.DisableWebPagePreview = true
	edit.ReplyMarkup = inlineMarkup(kb)
	if _, err := c.api.Request(edit); err != nil {
		return c.mapError("editMessageText", err)
	}
	return nil
}

// Delete удаляет сообщение.
func (c *Client) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return c.mapError("deleteMessage", err)
	}
	return nil
}

// SendMedia отправляет видео или документ по file_id.
func (c *Client) SendMedia(ctx context.Context, chatID int64, m messenger.Media) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	file := tgbotapi.FileID(m.FileRef)
	var cfg tgbotapi.Chattable
	switch m.Kind {
	case model.KindVideo:
		video := tgbotapi.NewVideo(chatID, file)
		video.Caption = m.Caption
		video.SupportsStreaming = true
		if markup := inlineMarkup(m.Keyboard); markup != nil {
			video.ReplyMarkup = *markup
		}
		cfg = video
	default:
		doc := tgbotapi.NewDocument(chatID, file)
		doc.Caption = m.Caption
		if markup := inlineMarkup(m.Keyboard); markup != nil {
			doc.ReplyMarkup = *markup
		}
		cfg = doc
	}

	sent, err := c.api.Send(cfg)
	if err != nil {
		return 0, c.mapError("sendMedia", err)
	}
	return sent.MessageID, nil
}

// AnswerCallback отвечает на нажатие кнопки.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	if _, err := c.api.Request(cfg); err != nil {
		return c.mapError("answerCallbackQuery", err)
	}
	return nil
}

// MemberStatus возвращает статус пользователя в группе.
func (c *Client) MemberStatus(ctx context.Context, groupID, userID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: groupID, UserID: userID},
	})
	if err != nil {
		return "", c.mapError("getChatMember", err)
	}
	return member.Status, nil
}

// InviteLink возвращает основную ссылку-приглашение группы.
func (c *Client) InviteLink(ctx context.Context, groupID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	link, err := c.api.GetInviteLink(tgbotapi.ChatInviteLinkConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: groupID},
	})
	if err != nil {
		return "", c.mapError("exportChatInviteLink", err)
	}
	return link, nil
}

// Copy копирует сообщение в другой чат.
func (c *Client) Copy(ctx context.Context, toChatID, fromChatID int64, messageID int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	id, err := c.api.CopyMessage(tgbotapi.NewCopyMessage(toChatID, fromChatID, messageID))
	if err != nil {
		return 0, c.mapError("copyMessage", err)
	}
	return id.MessageID, nil
}

// inlineMarkup переводит Keyboard в разметку Telegram. nil — без меню.
func inlineMarkup(kb messenger.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		rows = append(rows, buttons)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// mapError переводит 403 (бот заблокирован, пользователь удалён)
// в messenger.ErrBlocked; остальные ошибки оборачиваются с именем метода.
func (c *Client) mapError(method string, err error) error {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", method, err)
	}
	switch {
	case apiErr.Code == http.StatusForbidden:
		return fmt.Errorf("%s: %w: %s", method, messenger.ErrBlocked, apiErr.Message)
	case apiErr.RetryAfter > 0:
		c.logger.Warn("Превышен лимит запросов Bot API",
			slog.String("method", method),
			slog.Int("retry_after_sec", apiErr.RetryAfter),
		)
	}
	return fmt.Errorf("%s: %w", method, err)
}
