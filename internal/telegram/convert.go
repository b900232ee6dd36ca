// convert.go — преобразование tgbotapi.Update в bot.Update.
package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/bigkaa/goartstore/catalog-bot/internal/bot"
	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
	"github.com/bigkaa/goartstore/catalog-bot/internal/service"
)

// convertUpdate возвращает false для обновлений, которые бот не обрабатывает
// (редактирования, каналы, inline-запросы).
func convertUpdate(u tgbotapi.Update) (bot.Update, bool) {
	out := bot.Update{ID: u.UpdateID}

	switch {
	case u.Message != nil:
		msg := convertMessage(u.Message)
		if msg == nil {
			return out, false
		}
		out.Message = msg
	case u.CallbackQuery != nil:
		cb := convertCallback(u.CallbackQuery)
		if cb == nil {
			return out, false
		}
		out.Callback = cb
	default:
		return out, false
	}
	return out, true
}

func convertMessage(m *tgbotapi.Message) *bot.Message {
	if m.From == nil || m.Chat == nil {
		return nil
	}

	msg := &bot.Message{
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		From:      convertSender(m.From),
		Text:      m.Text,
	}
	if m.IsCommand() {
		msg.Command = m.Command()
		msg.Args = m.CommandArguments()
	}
	if m.ReplyToMessage != nil {
		msg.ReplyToMessageID = m.ReplyToMessage.MessageID
	}

	switch {
	case m.Video != nil:
		msg.Upload = &service.Upload{
			FileRef:   m.Video.FileID,
			UniqueID:  m.Video.FileUniqueID,
			FileName:  m.Video.FileName,
			Caption:   m.Caption,
			Kind:      model.KindVideo,
			SizeBytes: int64(m.Video.FileSize),
		}
	case m.Document != nil:
		msg.Upload = &service.Upload{
			FileRef:   m.Document.FileID,
			UniqueID:  m.Document.FileUniqueID,
			FileName:  m.Document.FileName,
			Caption:   m.Caption,
			Kind:      model.KindDocument,
			SizeBytes: int64(m.Document.FileSize),
		}
	}
	return msg
}

func convertCallback(q *tgbotapi.CallbackQuery) *bot.Callback {
	if q.From == nil {
		return nil
	}
	cb := &bot.Callback{
		ID:   q.ID,
		From: convertSender(q.From),
		Data: q.Data,
	}
	// Сообщение отсутствует у кнопок inline-режима
	if q.Message != nil && q.Message.Chat != nil {
		cb.ChatID = q.Message.Chat.ID
		cb.MessageID = q.Message.MessageID
	} else {
		cb.ChatID = q.From.ID
	}
	return cb
}

func convertSender(u *tgbotapi.User) bot.Sender {
	return bot.Sender{
		ID:        u.ID,
		FirstName: u.FirstName,
		Handle:    u.UserName,
	}
}
