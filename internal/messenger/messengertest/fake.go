// Пакет messengertest — записывающий мок messenger.Messenger для тестов.
package messengertest

import (
	"context"
	"sync"

	"github.com/bigkaa/goartstore/catalog-bot/internal/messenger"
)

// Sent — отправленное или отредактированное сообщение.
type Sent struct {
	ChatID    int64
	MessageID int
	Text      string
	Keyboard  messenger.Keyboard
	Media     *messenger.Media
	// CopiedFrom — исходный чат для Copy (0 для остальных)
	CopiedFrom int64
}

// Callback — ответ на нажатие кнопки.
type Callback struct {
	ID    string
	Text  string
	Alert bool
}

// Fake — потокобезопасный мок Messenger.
// Func-поля переопределяют поведение; без них вызовы записываются и успешны.
type Fake struct {
	SendTextFn     func(ctx context.Context, chatID int64, text string, kb messenger.Keyboard) (int, error)
	SendMediaFn    func(ctx context.Context, chatID int64, m messenger.Media) (int, error)
	CopyFn         func(ctx context.Context, toChatID, fromChatID int64, messageID int) (int, error)
	DeleteFn       func(ctx context.Context, chatID int64, messageID int) error
	MemberStatusFn func(ctx context.Context, groupID, userID int64) (string, error)
	InviteLinkFn   func(ctx context.Context, groupID int64) (string, error)

	mu        sync.Mutex
	nextID    int
	sent      []Sent
	edited    []Sent
	deleted   []Sent
	callbacks []Callback
	statusN   int
}

func (f *Fake) newID() int {
	f.nextID++
	return f.nextID
}

// SendText записывает текстовое сообщение.
func (f *Fake) SendText(ctx context.Context, chatID int64, text string, kb messenger.Keyboard) (int, error) {
	if f.SendTextFn != nil {
		id, err := f.SendTextFn(ctx, chatID, text, kb)
		if err != nil {
			return 0, err
		}
		f.mu.Lock()
		f.sent = append(f.sent, Sent{ChatID: chatID, MessageID: id, Text: text, Keyboard: kb})
		f.mu.Unlock()
		return id, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newID()
	f.sent = append(f.sent, Sent{ChatID: chatID, MessageID: id, Text: text, Keyboard: kb})
	return id, nil
}

// EditText записывает редактирование.
func (f *Fake) EditText(_ context.Context, chatID int64, messageID int, text string, kb messenger.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, Sent{ChatID: chatID, MessageID: messageID, Text: text, Keyboard: kb})
	return nil
}

// Delete записывает удаление.
func (f *Fake) Delete(ctx context.Context, chatID int64, messageID int) error {
	if f.DeleteFn != nil {
		if err := f.DeleteFn(ctx, chatID, messageID); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, Sent{ChatID: chatID, MessageID: messageID})
	return nil
}

// SendMedia записывает отправку файла.
func (f *Fake) SendMedia(ctx context.Context, chatID int64, m messenger.Media) (int, error) {
	if f.SendMediaFn != nil {
		if _, err := f.SendMediaFn(ctx, chatID, m); err != nil {
			return 0, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newID()
	media := m
	f.sent = append(f.sent, Sent{ChatID: chatID, MessageID: id, Text: m.Caption, Keyboard: m.Keyboard, Media: &media})
	return id, nil
}

// AnswerCallback записывает ответ на callback.
func (f *Fake) AnswerCallback(_ context.Context, callbackID, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks = append(f.callbacks, Callback{ID: callbackID, Text: text, Alert: alert})
	return nil
}

// MemberStatus по умолчанию возвращает member.
func (f *Fake) MemberStatus(ctx context.Context, groupID, userID int64) (string, error) {
	f.mu.Lock()
	f.statusN++
	f.mu.Unlock()
	if f.MemberStatusFn != nil {
		return f.MemberStatusFn(ctx, groupID, userID)
	}
	return messenger.StatusMember, nil
}

// InviteLink по умолчанию возвращает фиксированную ссылку.
func (f *Fake) InviteLink(ctx context.Context, groupID int64) (string, error) {
	if f.InviteLinkFn != nil {
		return f.InviteLinkFn(ctx, groupID)
	}
	return "https://t.me/+invite", nil
}

// Copy записывает копирование сообщения.
func (f *Fake) Copy(ctx context.Context, toChatID, fromChatID int64, messageID int) (int, error) {
	if f.CopyFn != nil {
		if _, err := f.CopyFn(ctx, toChatID, fromChatID, messageID); err != nil {
			return 0, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newID()
	f.sent = append(f.sent, Sent{ChatID: toChatID, MessageID: id, CopiedFrom: fromChatID})
	return id, nil
}

// Sent возвращает копию отправленных сообщений.
func (f *Fake) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sent(nil), f.sent...)
}

// SentTo возвращает сообщения, отправленные в чат chatID.
func (f *Fake) SentTo(chatID int64) []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Sent
	for _, s := range f.sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

// Edited возвращает копию отредактированных сообщений.
func (f *Fake) Edited() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sent(nil), f.edited...)
}

// Deleted возвращает копию удалённых сообщений.
func (f *Fake) Deleted() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sent(nil), f.deleted...)
}

// Callbacks возвращает копию ответов на callback.
func (f *Fake) Callbacks() []Callback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Callback(nil), f.callbacks...)
}

// StatusCalls возвращает число вызовов MemberStatus.
func (f *Fake) StatusCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusN
}
