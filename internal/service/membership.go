// membership.go — проверка членства пользователя в обязательной группе.
package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/access"
	"github.com/bigkaa/goartstore/catalog-bot/internal/messenger"
)

// CallbackCheckJoin — callback кнопки «Я вступил».
const CallbackCheckJoin = "CHECK_JOIN"

// Prometheus-метрики проверки членства.
var membershipChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cb_membership_checks_total",
	Help: "Проверки членства в группе по результату (member, non_member, error).",
}, []string{"result"})

// MembershipGate пропускает пользователя, только если он состоит в группе.
//
// Администраторы проходят всегда. Если группа не настроена — проходят все.
// При ошибке запроса к мессенджеру пользователь пропускается (fail open):
// неверная настройка бота не должна блокировать всех пользователей.
type MembershipGate struct {
	messenger messenger.Messenger
	cache     *MembershipCache
	admins    access.AdminSet
	groupID   int64
	logger    *slog.Logger

	mu     sync.Mutex
	invite string
}

// NewMembershipGate создаёт проверку членства.
// groupID = 0 отключает проверку; invite — ссылка-приглашение
// (пусто — запрашивается у мессенджера при первом отказе).
func NewMembershipGate(
	m messenger.Messenger,
	cache *MembershipCache,
	admins access.AdminSet,
	groupID int64,
	invite string,
	logger *slog.Logger,
) *MembershipGate {
	return &MembershipGate{
		messenger: m,
		cache:     cache,
		admins:    admins,
		groupID:   groupID,
		invite:    invite,
		logger:    logger.With(slog.String("component", "membership_gate")),
	}
}

// Verify возвращает true, если пользователь допущен.
// При отказе по свежей проверке отправляет в chatID приглашение вступить
// и кнопку перепроверки. Отказ из кэша приглашение не повторяет.
func (g *MembershipGate) Verify(ctx context.Context, userID, chatID int64) bool {
	allowed, cached := g.check(ctx, userID)
	if allowed {
		return true
	}
	if !cached {
		g.prompt(ctx, chatID)
	}
	return false
}

// Recheck сбрасывает кэшированный вердикт и проверяет членство заново.
// Приглашение не отправляет.
func (g *MembershipGate) Recheck(ctx context.Context, userID int64) bool {
	g.cache.Delete(userID)
	allowed, _ := g.check(ctx, userID)
	return allowed
}

// check — проверка без побочных эффектов для пользователя.
// cached — вердикт взят из кэша.
func (g *MembershipGate) check(ctx context.Context, userID int64) (allowed, cached bool) {
	if g.groupID == 0 || g.admins.IsAdmin(userID) {
		return true, false
	}

	if member, ok := g.cache.Get(userID); ok {
		return member, true
	}

	status, err := g.messenger.MemberStatus(ctx, g.groupID, userID)
	if err != nil {
		membershipChecksTotal.WithLabelValues("error").Inc()
		g.logger.Warn("Не удалось проверить членство, доступ разрешён",
			slog.Int64("user_id", userID),
			slog.Int64("group_id", g.groupID),
			slog.String("error", err.Error()),
		)
		return true, false
	}

	member := messenger.IsMemberStatus(status)
	g.cache.Set(userID, member)

	if member {
		membershipChecksTotal.WithLabelValues("member").Inc()
	} else {
		membershipChecksTotal.WithLabelValues("non_member").Inc()
	}
	return member, false
}

// prompt отправляет приглашение вступить в группу.
func (g *MembershipGate) prompt(ctx context.Context, chatID int64) {
	kb := messenger.Keyboard{}
	if link := g.inviteLink(ctx); link != "" {
		kb = append(kb, messenger.Row(messenger.Button{Text: "Вступить в группу", URL: link}))
	}
	kb = append(kb, messenger.Row(messenger.Button{Text: "Я вступил", Data: CallbackCheckJoin}))

	if _, err := g.messenger.SendText(ctx, chatID,
		"Чтобы пользоваться ботом, вступите в группу и нажмите «Я вступил».", kb); err != nil {
		g.logger.Warn("Не удалось отправить приглашение",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
}

// inviteLink возвращает ссылку-приглашение, запрашивая её один раз.
func (g *MembershipGate) inviteLink(ctx context.Context) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.invite != "" {
		return g.invite
	}

	link, err := g.messenger.InviteLink(ctx, g.groupID)
	if err != nil {
		g.logger.Warn("Не удалось получить ссылку-приглашение",
			slog.Int64("group_id", g.groupID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	g.invite = link
	return link
}
