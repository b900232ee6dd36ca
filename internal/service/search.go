// search.go — поиск по токенам и постраничная навигация.
// Координирует repository, кэш поисковых сессий и Prometheus-метрики.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/textnorm"
	"github.com/bigkaa/goartstore/catalog-bot/internal/repository"
)

// Prometheus-метрики поиска.
var (
	searchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cb_search_total",
		Help: "Общее количество поисковых запросов по результату (found, empty).",
	}, []string{"result"})
	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cb_search_duration_seconds",
		Help:    "Длительность поисковых запросов.",
		Buckets: prometheus.DefBuckets,
	})
	pageRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cb_search_page_requests_total",
		Help: "Запросы страниц результатов по результату (ok, expired).",
	}, []string{"result"})
)

// SearchPage — одна страница результатов поиска.
type SearchPage struct {
	// Tokens — токены запроса
	Tokens []string
	// Items — файлы на странице
	Items []*model.FileRecord
	// Total — общее количество совпадений
	Total int
	// PageIndex — номер страницы с нуля
	PageIndex int
	// PageSize — размер страницы
	PageSize int
	// HasPrev — существует предыдущая страница
	HasPrev bool
	// HasNext — существует следующая страница
	HasNext bool
}

// SearchService — поиск файлов со строгим AND по токенам.
type SearchService struct {
	files    repository.FileRepository
	sessions *SessionCache
	pageSize int
	logger   *slog.Logger
}

// NewSearchService создаёт сервис поиска.
func NewSearchService(
	files repository.FileRepository,
	sessions *SessionCache,
	pageSize int,
	logger *slog.Logger,
) *SearchService {
	return &SearchService{
		files:    files,
		sessions: sessions,
		pageSize: pageSize,
		logger:   logger.With(slog.String("component", "search_service")),
	}
}

// Search выполняет поиск по тексту запроса и возвращает первую страницу.
// Пустой запрос (нет токенов) — nil без ошибки.
// Нет совпадений — ErrNoResults; сессия при этом не создаётся.
func (s *SearchService) Search(ctx context.Context, userID int64, text string) (*SearchPage, error) {
	tokens := textnorm.ParseQuery(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() { searchDuration.Observe(time.Since(start).Seconds()) }()

	page, err := s.fetch(ctx, tokens, 0)
	if err != nil {
		return nil, err
	}
	if page.Total == 0 {
		searchTotal.WithLabelValues("empty").Inc()
		return nil, ErrNoResults
	}
	searchTotal.WithLabelValues("found").Inc()

	s.sessions.Set(userID, tokens)

	s.logger.Debug("Поиск выполнен",
		slog.Int64("user_id", userID),
		slog.Any("tokens", tokens),
		slog.Int("total", page.Total),
	)
	return page, nil
}

// Page возвращает страницу pageIndex для последнего запроса пользователя.
// Без живой сессии — ErrSessionExpired. Отрицательный индекс считается нулём.
// Чтение страницы срок жизни сессии не продлевает.
func (s *SearchService) Page(ctx context.Context, userID int64, pageIndex int) (*SearchPage, error) {
	tokens, ok := s.sessions.Get(userID)
	if !ok {
		pageRequestsTotal.WithLabelValues("expired").Inc()
		return nil, ErrSessionExpired
	}
	pageRequestsTotal.WithLabelValues("ok").Inc()

	if pageIndex < 0 {
		pageIndex = 0
	}
	return s.fetch(ctx, tokens, pageIndex)
}

// PageSize возвращает размер страницы.
func (s *SearchService) PageSize() int {
	return s.pageSize
}

// fetch считает совпадения и загружает одну страницу.
func (s *SearchService) fetch(ctx context.Context, tokens []string, pageIndex int) (*SearchPage, error) {
	total, err := s.files.Count(ctx, repository.FileFilter{Tokens: tokens})
	if err != nil {
		return nil, fmt.Errorf("подсчёт результатов поиска: %w", err)
	}

	skip := pageIndex * s.pageSize
	page := &SearchPage{
		Tokens:    tokens,
		Total:     total,
		PageIndex: pageIndex,
		PageSize:  s.pageSize,
	}

	if total > 0 && skip < total {
		items, err := s.files.FindByTokens(ctx, tokens, s.pageSize, skip)
		if err != nil {
			return nil, fmt.Errorf("поиск файлов: %w", err)
		}
		page.Items = items
	}

	page.HasPrev = pageIndex > 0 && (pageIndex-1)*s.pageSize < total
	page.HasNext = skip+len(page.Items) < total && len(page.Items) > 0
	return page, nil
}
