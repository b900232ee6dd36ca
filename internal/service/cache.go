// cache.go — in-memory кэши поверх hashicorp/golang-lru/v2/expirable.
// Кэши — мягкое состояние: промах всегда означает повторный запрос
// к источнику, а не ошибку. Каждый экземпляр бота держит свои кэши.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
)

// Prometheus-метрики кэшей.
var (
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cb_cache_hits_total",
		Help: "Общее количество попаданий в in-memory кэши.",
	}, []string{"cache"})
	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cb_cache_misses_total",
		Help: "Общее количество промахов in-memory кэшей.",
	}, []string{"cache"})
)

// --- Кэш записей каталога ---

// FileCache — LRU-кэш записей каталога с TTL.
type FileCache struct {
	cache *expirable.LRU[string, *model.FileRecord]
}

// NewFileCache создаёт кэш записей каталога.
func NewFileCache(maxSize int, ttl time.Duration) *FileCache {
	return &FileCache{cache: expirable.NewLRU[string, *model.FileRecord](maxSize, nil, ttl)}
}

// Get возвращает запись по catalogId.
func (c *FileCache) Get(catalogID string) (*model.FileRecord, bool) {
	val, ok := c.cache.Get(catalogID)
	if ok {
		cacheHitsTotal.WithLabelValues("file").Inc()
		return val, true
	}
	cacheMissesTotal.WithLabelValues("file").Inc()
	return nil, false
}

// Set добавляет или обновляет запись.
func (c *FileCache) Set(record *model.FileRecord) {
	c.cache.Add(record.CatalogID, record)
}

// Delete инвалидирует запись (удаление, изменение счётчика).
func (c *FileCache) Delete(catalogID string) {
	c.cache.Remove(catalogID)
}

// --- Поисковые сессии ---

// SessionCache хранит токены последнего запроса пользователя.
// TTL отсчитывается от Set; чтение срок жизни не продлевает.
type SessionCache struct {
	cache *expirable.LRU[int64, []string]
}

// NewSessionCache создаёт кэш поисковых сессий.
func NewSessionCache(maxSize int, ttl time.Duration) *SessionCache {
	return &SessionCache{cache: expirable.NewLRU[int64, []string](maxSize, nil, ttl)}
}

// Get возвращает токены сессии пользователя.
func (c *SessionCache) Get(userID int64) ([]string, bool) {
	tokens, ok := c.cache.Get(userID)
	if ok {
		cacheHitsTotal.WithLabelValues("session").Inc()
		return tokens, true
	}
	cacheMissesTotal.WithLabelValues("session").Inc()
	return nil, false
}

// Set сохраняет токены, заменяя предыдущую сессию пользователя.
func (c *SessionCache) Set(userID int64, tokens []string) {
	c.cache.Add(userID, append([]string(nil), tokens...))
}

// Delete удаляет сессию пользователя.
func (c *SessionCache) Delete(userID int64) {
	c.cache.Remove(userID)
}

// --- Членство в группе ---

// MembershipCache хранит вердикты проверки членства с асимметричным TTL:
// участники кэшируются надолго, не-участники — коротко, чтобы только что
// вступившие прошли проверку быстро.
type MembershipCache struct {
	members    *expirable.LRU[int64, struct{}]
	nonMembers *expirable.LRU[int64, struct{}]
}

// NewMembershipCache создаёт кэш членства.
func NewMembershipCache(maxSize int, memberTTL, nonMemberTTL time.Duration) *MembershipCache {
	return &MembershipCache{
		members:    expirable.NewLRU[int64, struct{}](maxSize, nil, memberTTL),
		nonMembers: expirable.NewLRU[int64, struct{}](maxSize, nil, nonMemberTTL),
	}
}

// Get возвращает (вердикт, найден).
func (c *MembershipCache) Get(userID int64) (member, ok bool) {
	if _, ok := c.members.Get(userID); ok {
		cacheHitsTotal.WithLabelValues("membership").Inc()
		return true, true
	}
	if _, ok := c.nonMembers.Get(userID); ok {
		cacheHitsTotal.WithLabelValues("membership").Inc()
		return false, true
	}
	cacheMissesTotal.WithLabelValues("membership").Inc()
	return false, false
}

// Set сохраняет вердикт. Пользователь находится не более чем в одном списке.
func (c *MembershipCache) Set(userID int64, member bool) {
	if member {
		c.nonMembers.Remove(userID)
		c.members.Add(userID, struct{}{})
		return
	}
	c.members.Remove(userID)
	c.nonMembers.Add(userID, struct{}{})
}

// Delete сбрасывает вердикт пользователя.
func (c *MembershipCache) Delete(userID int64) {
	c.members.Remove(userID)
	c.nonMembers.Remove(userID)
}
