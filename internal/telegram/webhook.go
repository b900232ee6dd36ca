// webhook.go — приём обновлений через webhook и его регистрация.
package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// WebhookPath — шаблон пути webhook для chi.
const WebhookPath = "/telegram/webhook/{secret}"

// maxUpdateBody — предел размера тела запроса с обновлением.
const maxUpdateBody = 1 << 20

// requester — отправка служебных запросов Bot API.
type requester interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// WebhookHandler принимает POST от Telegram. Секрет передаётся
// последним сегментом пути; неверный секрет — 404.
// Ответ 200 отправляется сразу, обработка идёт в Runner.
type WebhookHandler struct {
	secret []byte
	runner *Runner
	// ctx ограничивает приём: после отмены новые обновления отклоняются
	ctx    context.Context
	logger *slog.Logger
}

// NewWebhookHandler создаёт WebhookHandler.
func NewWebhookHandler(ctx context.Context, secret string, runner *Runner, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret: []byte(secret),
		runner: runner,
		ctx:    ctx,
		logger: logger.With(slog.String("component", "webhook")),
	}
}

// ServeHTTP реализует http.Handler.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	got := []byte(chi.URLParam(r, "secret"))
	if subtle.ConstantTimeCompare(got, h.secret) != 1 {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var u tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBody)).Decode(&u); err != nil {
		h.logger.Warn("Некорректное тело webhook", slog.String("error", err.Error()))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if !h.runner.Dispatch(h.ctx, "webhook", u) {
		// Telegram повторит доставку после перезапуска
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// SetWebhook регистрирует webhook publicURL + путь с секретом.
func SetWebhook(api requester, publicURL, secret string) error {
	wh, err := tgbotapi.NewWebhook(publicURL + "/telegram/webhook/" + secret)
	if err != nil {
		return fmt.Errorf("некорректный URL webhook: %w", err)
	}
	wh.AllowedUpdates = []string{"message", "callback_query"}
	if _, err := api.Request(wh); err != nil {
		return fmt.Errorf("setWebhook: %w", err)
	}
	return nil
}

// DeleteWebhook снимает webhook: без этого getUpdates возвращает 409.
// Накопленные обновления сохраняются.
func DeleteWebhook(api requester) error {
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("deleteWebhook: %w", err)
	}
	return nil
}
