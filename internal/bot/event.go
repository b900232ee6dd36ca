// Пакет bot — диспетчер входящих событий Catalog Bot.
//
// События транспортно-независимы: адаптер мессенджера (internal/telegram)
// превращает свои обновления в Update, диспетчер вызывает сервисы
// и отвечает через messenger.Messenger.
package bot

import "github.com/bigkaa/goartstore/catalog-bot/internal/service"

// Sender — автор сообщения или нажатия кнопки.
type Sender struct {
	ID        int64
	FirstName string
	Handle    string
}

// Message — входящее сообщение.
type Message struct {
	ChatID    int64
	MessageID int
	From      Sender
	Text      string
	// Command — команда без "/" и имени бота (пусто для обычного текста)
	Command string
	// Args — текст после команды
	Args string
	// ReplyToMessageID — сообщение, на которое отвечает пользователь (0 — нет)
	ReplyToMessageID int
	// Upload — вложенное видео или документ (nil — нет)
	Upload *service.Upload
}

// Callback — нажатие inline-кнопки.
type Callback struct {
	ID        string
	ChatID    int64
	MessageID int
	From      Sender
	Data      string
}

// Update — одно входящее событие: сообщение либо нажатие кнопки.
type Update struct {
	ID       int
	Message  *Message
	Callback *Callback
}

// Kind возвращает тип события для метрик и логов.
func (u Update) Kind() string {
	switch {
	case u.Message != nil && u.Message.Upload != nil:
		return "upload"
	case u.Message != nil && u.Message.Command != "":
		return "command"
	case u.Message != nil:
		return "text"
	case u.Callback != nil:
		return "callback"
	default:
		return "other"
	}
}
