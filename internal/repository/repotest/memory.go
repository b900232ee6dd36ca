// Пакет repotest — in-memory реализация репозиториев для тестов
// сервисов и диспетчера без PostgreSQL.
//
// Семантика повторяет SQL-реализацию: строгое AND по токенам,
// уникальность DedupKey, TTL ожидающих загрузок, каскадное
// удаление избранного. Транзакции сериализуются, но не откатываются.
package repotest

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
	"github.com/bigkaa/goartstore/catalog-bot/internal/repository"
)

// Store — общее in-memory состояние всех репозиториев.
type Store struct {
	// Now — источник времени для TTL ожидающих загрузок
	Now func() time.Time

	txMu sync.Mutex
	mu   sync.Mutex

	files     map[string]*model.FileRecord
	pending   map[string]*model.PendingUpload
	sequences map[string]int64
	quotas    map[string]int
	favorites map[int64][]string
	users     map[int64]*model.User
}

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{
		Now:       time.Now,
		files:     make(map[string]*model.FileRecord),
		pending:   make(map[string]*model.PendingUpload),
		sequences: make(map[string]int64),
		quotas:    make(map[string]int),
		favorites: make(map[int64][]string),
		users:     make(map[int64]*model.User),
	}
}

// Repos возвращает набор репозиториев поверх хранилища.
func (s *Store) Repos() *repository.Repos {
	return &repository.Repos{
		Files:     fileStore{s},
		Pending:   pendingStore{s},
		Sequences: sequenceStore{s},
		Quotas:    quotaStore{s},
		Favorites: favoriteStore{s},
		Users:     userStore{s},
	}
}

// WithRepos выполняет fn, сериализуя транзакции между собой.
func (s *Store) WithRepos(_ context.Context, fn func(repos *repository.Repos) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s.Repos())
}

// PutFile добавляет опубликованный файл напрямую (подготовка данных теста).
func (s *Store) PutFile(f *model.FileRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	s.files[f.CatalogID] = &cp
}

// File возвращает копию файла или nil.
func (s *Store) File(catalogID string) *model.FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.files[catalogID]; ok {
		cp := *f
		return &cp
	}
	return nil
}

// FileCount возвращает количество файлов каталога.
func (s *Store) FileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// PendingCount возвращает количество ожидающих загрузок (включая истёкшие).
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// --- files ---

type fileStore struct{ *Store }

func (s fileStore) Insert(_ context.Context, f *model.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[f.CatalogID]; ok {
		return repository.ErrDuplicate
	}
	for _, existing := range s.files {
		if existing.DedupKey() == f.DedupKey() {
			return repository.ErrDuplicate
		}
	}
	cp := *f
	s.files[f.CatalogID] = &cp
	return nil
}

func (s fileStore) GetByID(_ context.Context, catalogID string) (*model.FileRecord, error) {
	if f := s.File(catalogID); f != nil {
		return f, nil
	}
	return nil, repository.ErrNotFound
}

func (s fileStore) GetMany(_ context.Context, catalogIDs []string) ([]*model.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.FileRecord
	for _, id := range catalogIDs {
		if f, ok := s.files[id]; ok {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s fileStore) ExistsByDedupKey(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if f.DedupKey() == key {
			return true, nil
		}
	}
	return false, nil
}

func (s fileStore) FindByTokens(_ context.Context, tokens []string, limit, offset int) ([]*model.FileRecord, error) {
	all := s.sorted(func(f *model.FileRecord) bool { return hasAll(f.Tokens, tokens) }, byCreatedAt)
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (s fileStore) Count(_ context.Context, filter repository.FileFilter) (int, error) {
	all := s.sorted(func(f *model.FileRecord) bool {
		if filter.Kind != nil && f.Kind != *filter.Kind {
			return false
		}
		return hasAll(f.Tokens, filter.Tokens)
	}, byCreatedAt)
	return len(all), nil
}

func (s fileStore) IncrementDownload(_ context.Context, catalogID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[catalogID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	f.DownloadCount++
	return f.DownloadCount, nil
}

func (s fileStore) Delete(_ context.Context, catalogID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[catalogID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.files, catalogID)
	for user, ids := range s.favorites {
		s.favorites[user] = slices.DeleteFunc(ids, func(id string) bool { return id == catalogID })
	}
	return nil
}

func (s fileStore) ListRecent(_ context.Context, limit int) ([]*model.FileRecord, error) {
	all := s.sorted(nil, byCreatedAt)
	return all[:min(limit, len(all))], nil
}

func (s fileStore) ListTrending(_ context.Context, limit int) ([]*model.FileRecord, error) {
	all := s.sorted(nil, byDownloads)
	return all[:min(limit, len(all))], nil
}

func (s fileStore) TotalDownloads(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, f := range s.files {
		total += f.DownloadCount
	}
	return total, nil
}

func byCreatedAt(a, b *model.FileRecord) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.CatalogID > b.CatalogID
}

func byDownloads(a, b *model.FileRecord) bool {
	if a.DownloadCount != b.DownloadCount {
		return a.DownloadCount > b.DownloadCount
	}
	return a.CatalogID > b.CatalogID
}

// sorted возвращает копии файлов, прошедших match, в порядке less.
func (s *Store) sorted(match func(*model.FileRecord) bool, less func(a, b *model.FileRecord) bool) []*model.FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.FileRecord, 0, len(s.files))
	for _, f := range s.files {
		if match == nil || match(f) {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func hasAll(set, query []string) bool {
	for _, q := range query {
		if !slices.Contains(set, q) {
			return false
		}
	}
	return true
}

// --- pending ---

type pendingStore struct{ *Store }

func (s pendingStore) Create(_ context.Context, p *model.PendingUpload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.pending[p.ID] = &cp
	return nil
}

func (s pendingStore) Get(_ context.Context, id string) (*model.PendingUpload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	if !ok || !p.ExpiresAt.After(s.Now()) {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s pendingStore) Take(ctx context.Context, id string) (*model.PendingUpload, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; !ok {
		return nil, repository.ErrNotFound
	}
	delete(s.pending, id)
	return p, nil
}

func (s pendingStore) DeleteExpired(_ context.Context) ([]*model.PendingUpload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.PendingUpload
	for id, p := range s.pending {
		if !p.ExpiresAt.After(s.Now()) {
			out = append(out, p)
			delete(s.pending, id)
		}
	}
	return out, nil
}

func (s pendingStore) CountActive(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.pending {
		if p.ExpiresAt.After(s.Now()) {
			n++
		}
	}
	return n, nil
}

// --- sequences ---

type sequenceStore struct{ *Store }

func (s sequenceStore) Next(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[name]++
	return s.sequences[name], nil
}

// --- quotas ---

type quotaStore struct{ *Store }

func quotaKey(userID int64, day time.Time) string {
	return fmt.Sprintf("%d/%s", userID, repository.DayUTC(day).Format(time.DateOnly))
}

func (s quotaStore) Peek(_ context.Context, userID int64, day time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quotas[quotaKey(userID, day)], nil
}

func (s quotaStore) Increment(_ context.Context, userID int64, day time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := quotaKey(userID, day)
	s.quotas[key]++
	return s.quotas[key], nil
}

// --- favorites ---

type favoriteStore struct{ *Store }

// LockUser — no-op: транзакции Store уже сериализованы.
func (s favoriteStore) LockUser(context.Context, int64) error {
	return nil
}

func (s favoriteStore) Exists(_ context.Context, userID int64, catalogID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.favorites[userID], catalogID), nil
}

func (s favoriteStore) Insert(_ context.Context, userID int64, catalogID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[catalogID]; !ok {
		return repository.ErrNotFound
	}
	if slices.Contains(s.favorites[userID], catalogID) {
		return repository.ErrDuplicate
	}
	s.favorites[userID] = append(s.favorites[userID], catalogID)
	return nil
}

func (s favoriteStore) Delete(_ context.Context, userID int64, catalogID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.favorites[userID]
	i := slices.Index(ids, catalogID)
	if i < 0 {
		return false, nil
	}
	s.favorites[userID] = slices.Delete(ids, i, i+1)
	return true, nil
}

func (s favoriteStore) Count(_ context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.favorites[userID]), nil
}

func (s favoriteStore) List(_ context.Context, userID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.favorites[userID]), nil
}

// --- users ---

type userStore struct{ *Store }

func (s userStore) Upsert(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[u.UserID]; ok {
		existing.FirstName = u.FirstName
		existing.Handle = u.Handle
		existing.LastSeenAt = u.LastSeenAt
		return nil
	}
	cp := *u
	cp.JoinedAt = u.LastSeenAt
	s.users[u.UserID] = &cp
	return nil
}

func (s userStore) Get(_ context.Context, userID int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s userStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), nil
}

func (s userStore) ListIDsAfter(_ context.Context, afterID int64, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.users))
	for id := range s.users {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids[:min(limit, len(ids))], nil
}
