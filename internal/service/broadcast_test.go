package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/access"
	"github.com/bigkaa/goartstore/catalog-bot/internal/messenger"
	"github.com/bigkaa/goartstore/catalog-bot/internal/messenger/messengertest"
)

func newTestBroadcast(fake *messengertest.Fake, ids []int64, delay time.Duration) *BroadcastService {
	users := &mockUserRepo{listIDsAfterFn: userIDsPager(ids)}
	return NewBroadcastService(users, fake, access.NewAdminSet([]int64{testAdmin}), delay, slog.Default())
}

// TestBroadcast_Tally проверяет подсчёт исходов: успех, блокировка, ошибка.
func TestBroadcast_Tally(t *testing.T) {
	fake := &messengertest.Fake{
		SendTextFn: func(_ context.Context, chatID int64, _ string, _ messenger.Keyboard) (int, error) {
			switch chatID {
			case 2:
				return 0, messenger.ErrBlocked
			case 4:
				return 0, errors.New("timeout")
			}
			return 1, nil
		},
	}
	svc := newTestBroadcast(fake, []int64{1, 2, 3, 4, 5}, 0)

	res, err := svc.Broadcast(context.Background(), testAdmin, BroadcastContent{Text: "Новинки недели"})
	if err != nil {
		t.Fatalf("Broadcast ошибка: %v", err)
	}
	if res.Total != 5 || res.Success != 3 || res.Blocked != 1 || res.Failed != 1 {
		t.Errorf("итоги = %+v, ожидалось total=5 success=3 blocked=1 failed=1", res)
	}
	if res.Success+res.Blocked+res.Failed != res.Total {
		t.Error("сумма исходов не равна total")
	}
}

// TestBroadcast_Copy проверяет рассылку копии сообщения.
func TestBroadcast_Copy(t *testing.T) {
	fake := &messengertest.Fake{}
	svc := newTestBroadcast(fake, []int64{10, 20}, 0)

	res, err := svc.Broadcast(context.Background(), testAdmin, BroadcastContent{FromChatID: testAdmin, MessageID: 77})
	if err != nil {
		t.Fatalf("Broadcast ошибка: %v", err)
	}
	if res.Success != 2 {
		t.Errorf("Success = %d, ожидалось 2", res.Success)
	}
	for _, s := range fake.Sent() {
		if s.CopiedFrom != testAdmin {
			t.Errorf("сообщение в %d не является копией", s.ChatID)
		}
	}
}

// TestBroadcast_Paging проверяет обход пользователей больше одной страницы.
func TestBroadcast_Paging(t *testing.T) {
	ids := make([]int64, broadcastBatchSize+7)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	fake := &messengertest.Fake{}
	svc := newTestBroadcast(fake, ids, 0)

	res, err := svc.Broadcast(context.Background(), testAdmin, BroadcastContent{Text: "x"})
	if err != nil {
		t.Fatalf("Broadcast ошибка: %v", err)
	}
	if res.Total != len(ids) || len(fake.Sent()) != len(ids) {
		t.Errorf("total = %d, отправлено %d, ожидалось %d", res.Total, len(fake.Sent()), len(ids))
	}
}

// TestBroadcast_Unauthorized проверяет отказ не-админу без отправок.
func TestBroadcast_Unauthorized(t *testing.T) {
	fake := &messengertest.Fake{}
	svc := newTestBroadcast(fake, []int64{1, 2}, 0)

	if _, err := svc.Broadcast(context.Background(), 5, BroadcastContent{Text: "x"}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("ошибка = %v, ожидалась ErrUnauthorized", err)
	}
	if len(fake.Sent()) != 0 {
		t.Error("ничего не должно отправляться")
	}
}

// TestBroadcast_EmptyText проверяет отказ для пустого текста.
func TestBroadcast_EmptyText(t *testing.T) {
	svc := newTestBroadcast(&messengertest.Fake{}, []int64{1}, 0)

	if _, err := svc.Broadcast(context.Background(), testAdmin, BroadcastContent{Text: "  "}); err == nil {
		t.Error("ожидалась ошибка для пустой рассылки")
	}
}

// TestBroadcast_Cancel проверяет досрочную остановку по отмене контекста.
func TestBroadcast_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := &messengertest.Fake{
		SendTextFn: func(context.Context, int64, string, messenger.Keyboard) (int, error) {
			cancel()
			return 1, nil
		},
	}
	svc := newTestBroadcast(fake, []int64{1, 2, 3}, time.Hour)

	res, err := svc.Broadcast(ctx, testAdmin, BroadcastContent{Text: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ошибка = %v, ожидалась context.Canceled", err)
	}
	if res == nil || res.Total != 1 || res.Success != 1 {
		t.Errorf("частичные итоги = %+v, ожидалось total=1", res)
	}
}
