package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
)

func TestConvertUpdate_Command(t *testing.T) {
	u := tgbotapi.Update{
		UpdateID: 10,
		Message: &tgbotapi.Message{
			MessageID: 3,
			From:      &tgbotapi.User{ID: 5, FirstName: "Ann", UserName: "ann"},
			Chat:      &tgbotapi.Chat{ID: 5},
			Text:      "/start F0001",
			Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
		},
	}

	upd, ok := convertUpdate(u)
	if !ok {
		t.Fatal("обновление пропущено")
	}
	msg := upd.Message
	if upd.ID != 10 || msg.ChatID != 5 || msg.MessageID != 3 {
		t.Errorf("сообщение = %+v", msg)
	}
	if msg.Command != "start" || msg.Args != "F0001" {
		t.Errorf("команда = %q, аргументы = %q", msg.Command, msg.Args)
	}
	if msg.From.ID != 5 || msg.From.FirstName != "Ann" || msg.From.Handle != "ann" {
		t.Errorf("отправитель = %+v", msg.From)
	}
}

func TestConvertUpdate_PlainTextAndReply(t *testing.T) {
	u := tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID:      4,
		From:           &tgbotapi.User{ID: 5},
		Chat:           &tgbotapi.Chat{ID: 5},
		Text:           "iron man",
		ReplyToMessage: &tgbotapi.Message{MessageID: 2},
	}}

	upd, ok := convertUpdate(u)
	if !ok {
		t.Fatal("обновление пропущено")
	}
	if upd.Message.Command != "" || upd.Message.Text != "iron man" {
		t.Errorf("сообщение = %+v", upd.Message)
	}
	if upd.Message.ReplyToMessageID != 2 {
		t.Errorf("ReplyToMessageID = %d", upd.Message.ReplyToMessageID)
	}
}

func TestConvertUpdate_Uploads(t *testing.T) {
	video := tgbotapi.Update{Message: &tgbotapi.Message{
		From:    &tgbotapi.User{ID: 1},
		Chat:    &tgbotapi.Chat{ID: 1},
		Caption: "Iron Man",
		Video: &tgbotapi.Video{
			FileID:       "vid",
			FileUniqueID: "uvid",
			FileName:     "Iron.Man.2008.mkv",
			FileSize:     1536,
		},
	}}
	upd, ok := convertUpdate(video)
	if !ok || upd.Message.Upload == nil {
		t.Fatal("загрузка видео не распознана")
	}
	up := upd.Message.Upload
	if up.Kind != model.KindVideo || up.FileRef != "vid" || up.UniqueID != "uvid" ||
		up.FileName != "Iron.Man.2008.mkv" || up.SizeBytes != 1536 || up.Caption != "Iron Man" {
		t.Errorf("видео = %+v", up)
	}

	doc := tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: 1},
		Chat:     &tgbotapi.Chat{ID: 1},
		Document: &tgbotapi.Document{FileID: "doc", FileUniqueID: "udoc", FileName: "book.pdf"},
	}}
	upd, ok = convertUpdate(doc)
	if !ok || upd.Message.Upload == nil {
		t.Fatal("загрузка документа не распознана")
	}
	if upd.Message.Upload.Kind != model.KindDocument || upd.Message.Upload.SizeBytes != 0 {
		t.Errorf("документ = %+v", upd.Message.Upload)
	}
}

func TestConvertUpdate_Callback(t *testing.T) {
	u := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 5},
		Message: &tgbotapi.Message{MessageID: 8, Chat: &tgbotapi.Chat{ID: 6}},
		Data:    "GET:F0001",
	}}

	upd, ok := convertUpdate(u)
	if !ok || upd.Callback == nil {
		t.Fatal("callback не распознан")
	}
	cb := upd.Callback
	if cb.ID != "cb1" || cb.ChatID != 6 || cb.MessageID != 8 || cb.Data != "GET:F0001" || cb.From.ID != 5 {
		t.Errorf("callback = %+v", cb)
	}
}

func TestConvertUpdate_CallbackWithoutMessage(t *testing.T) {
	u := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "cb", From: &tgbotapi.User{ID: 5}}}
	upd, ok := convertUpdate(u)
	if !ok || upd.Callback.ChatID != 5 || upd.Callback.MessageID != 0 {
		t.Errorf("callback = %+v, ok = %v", upd.Callback, ok)
	}
}

func TestConvertUpdate_Ignored(t *testing.T) {
	tests := []struct {
		name string
		u    tgbotapi.Update
	}{
		{name: "пустое", u: tgbotapi.Update{}},
		{name: "редактирование", u: tgbotapi.Update{EditedMessage: &tgbotapi.Message{Text: "x"}}},
		{name: "сообщение канала без автора", u: tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: -1}}}},
		{name: "callback без автора", u: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := convertUpdate(tt.u); ok {
				t.Error("обновление должно быть пропущено")
			}
		})
	}
}
