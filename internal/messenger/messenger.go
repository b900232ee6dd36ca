// Пакет messenger — транспортно-независимый контракт мессенджера.
// Сервисы и диспетчер работают только с этим интерфейсом;
// реализация для Telegram находится в internal/telegram.
package messenger

import (
	"context"
	"errors"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
)

// ErrBlocked — получатель заблокировал бота или удалил чат.
// Ожидаемый исход рассылки, не авария.
var ErrBlocked = errors.New("получатель заблокировал бота")

// Статусы участника группы, возвращаемые MemberStatus.
const (
	StatusOwner      = "creator"
	StatusAdmin      = "administrator"
	StatusMember     = "member"
	StatusRestricted = "restricted"
	StatusLeft       = "left"
	StatusKicked     = "kicked"
)

// IsMemberStatus сообщает, считается ли статус членством в группе.
func IsMemberStatus(status string) bool {
	switch status {
	case StatusOwner, StatusAdmin, StatusMember:
		return true
	default:
		return false
	}
}

// Button — кнопка inline-меню. Задаётся либо Data (callback), либо URL.
type Button struct {
	Text string
	Data string
	URL  string
}

// Keyboard — inline-меню: строки кнопок. nil — без меню.
type Keyboard [][]Button

// Row собирает строку кнопок.
func Row(buttons ...Button) []Button {
	return buttons
}

// Media — файл каталога для отправки.
type Media struct {
	Kind     model.Kind
	FileRef  string
	Caption  string
	Keyboard Keyboard
}

// Messenger — возможности транспорта, которые использует бот.
type Messenger interface {
	// SendText отправляет текст и возвращает ID сообщения.
	SendText(ctx context.Context, chatID int64, text string, kb Keyboard) (int, error)
	// EditText заменяет текст и меню существующего сообщения.
	EditText(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error
	// Delete удаляет сообщение.
	Delete(ctx context.Context, chatID int64, messageID int) error
	// SendMedia отправляет видео или документ с подписью и меню.
	SendMedia(ctx context.Context, chatID int64, m Media) (int, error)
	// AnswerCallback отвечает на нажатие inline-кнопки.
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	// MemberStatus возвращает статус пользователя в группе (см. Status*).
	MemberStatus(ctx context.Context, groupID, userID int64) (string, error)
	// InviteLink возвращает ссылку-приглашение в группу.
	InviteLink(ctx context.Context, groupID int64) (string, error)
	// Copy копирует сообщение fromChatID/messageID в чат toChatID.
	Copy(ctx context.Context, toChatID, fromChatID int64, messageID int) (int, error)
}
