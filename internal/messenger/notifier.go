// notifier.go — временные уведомления с отложенным удалением.
package messenger

import (
	"context"
	"log/slog"
	"time"
)

// deleteTimeout — таймаут одного отложенного удаления.
const deleteTimeout = 10 * time.Second

// Notifier отправляет короткие уведомления, которые удаляются через ttl.
// Удаление выполняется отдельно от исходного запроса; его ошибки
// только логируются (сообщение могло быть уже удалено).
type Notifier struct {
	messenger Messenger
	ttl       time.Duration
	logger    *slog.Logger
}

// NewNotifier создаёт Notifier.
func NewNotifier(m Messenger, ttl time.Duration, logger *slog.Logger) *Notifier {
	return &Notifier{
		messenger: m,
		ttl:       ttl,
		logger:    logger.With(slog.String("component", "notifier")),
	}
}

// Notice отправляет уведомление и планирует его удаление.
// Ошибка отправки логируется и не возвращается.
func (n *Notifier) Notice(ctx context.Context, chatID int64, text string) {
	n.NoticeWithKeyboard(ctx, chatID, text, nil)
}

// NoticeWithKeyboard — Notice с inline-меню.
func (n *Notifier) NoticeWithKeyboard(ctx context.Context, chatID int64, text string, kb Keyboard) {
	msgID, err := n.messenger.SendText(ctx, chatID, text, kb)
	if err != nil {
		n.logger.Warn("Не удалось отправить уведомление",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
		return
	}
	n.ScheduleDelete(chatID, msgID)
}

// ScheduleDelete планирует удаление сообщения через ttl.
func (n *Notifier) ScheduleDelete(chatID int64, messageID int) {
	time.AfterFunc(n.ttl, func() {
		ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
		defer cancel()

		if err := n.messenger.Delete(ctx, chatID, messageID); err != nil {
			n.logger.Debug("Отложенное удаление не выполнено",
				slog.Int64("chat_id", chatID),
				slog.Int("message_id", messageID),
				slog.String("error", err.Error()),
			)
		}
	})
}
