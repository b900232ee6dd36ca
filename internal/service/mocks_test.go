package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
	"github.com/bigkaa/goartstore/catalog-bot/internal/repository"
)

// mockFileRepo — мок FileRepository для unit-тестов.
type mockFileRepo struct {
	insertFn           func(ctx context.Context, f *model.FileRecord) error
	getByIDFn          func(ctx context.Context, id string) (*model.FileRecord, error)
	getManyFn          func(ctx context.Context, ids []string) ([]*model.FileRecord, error)
	existsByDedupKeyFn func(ctx context.Context, key string) (bool, error)
	findByTokensFn     func(ctx context.Context, tokens []string, limit, offset int) ([]*model.FileRecord, error)
	countFn            func(ctx context.Context, filter repository.FileFilter) (int, error)
	incrementFn        func(ctx context.Context, id string) (int64, error)
	deleteFn           func(ctx context.Context, id string) error
	listRecentFn       func(ctx context.Context, limit int) ([]*model.FileRecord, error)
	listTrendingFn     func(ctx context.Context, limit int) ([]*model.FileRecord, error)
	totalDownloadsFn   func(ctx context.Context) (int64, error)
}

func (m *mockFileRepo) Insert(ctx context.Context, f *model.FileRecord) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, f)
	}
	return nil
}

func (m *mockFileRepo) GetByID(ctx context.Context, id string) (*model.FileRecord, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockFileRepo) GetMany(ctx context.Context, ids []string) ([]*model.FileRecord, error) {
	if m.getManyFn != nil {
		return m.getManyFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockFileRepo) ExistsByDedupKey(ctx context.Context, key string) (bool, error) {
	if m.existsByDedupKeyFn != nil {
		return m.existsByDedupKeyFn(ctx, key)
	}
	return false, nil
}

func (m *mockFileRepo) FindByTokens(ctx context.Context, tokens []string, limit, offset int) ([]*model.FileRecord, error) {
	if m.findByTokensFn != nil {
		return m.findByTokensFn(ctx, tokens, limit, offset)
	}
	return nil, nil
}

func (m *mockFileRepo) Count(ctx context.Context, filter repository.FileFilter) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, filter)
	}
	return 0, nil
}

func (m *mockFileRepo) IncrementDownload(ctx context.Context, id string) (int64, error) {
	if m.incrementFn != nil {
		return m.incrementFn(ctx, id)
	}
	return 1, nil
}

func (m *mockFileRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockFileRepo) ListRecent(ctx context.Context, limit int) ([]*model.FileRecord, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockFileRepo) ListTrending(ctx context.Context, limit int) ([]*model.FileRecord, error) {
	if m.listTrendingFn != nil {
		return m.listTrendingFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockFileRepo) TotalDownloads(ctx context.Context) (int64, error) {
	if m.totalDownloadsFn != nil {
		return m.totalDownloadsFn(ctx)
	}
	return 0, nil
}

// mockPendingRepo — мок PendingRepository.
type mockPendingRepo struct {
	createFn        func(ctx context.Context, p *model.PendingUpload) error
	getFn           func(ctx context.Context, id string) (*model.PendingUpload, error)
	takeFn          func(ctx context.Context, id string) (*model.PendingUpload, error)
	deleteExpiredFn func(ctx context.Context) ([]*model.PendingUpload, error)
	countActiveFn   func(ctx context.Context) (int, error)
}

func (m *mockPendingRepo) Create(ctx context.Context, p *model.PendingUpload) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	return nil
}

func (m *mockPendingRepo) Get(ctx context.Context, id string) (*model.PendingUpload, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockPendingRepo) Take(ctx context.Context, id string) (*model.PendingUpload, error) {
	if m.takeFn != nil {
		return m.takeFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockPendingRepo) DeleteExpired(ctx context.Context) ([]*model.PendingUpload, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return nil, nil
}

func (m *mockPendingRepo) CountActive(ctx context.Context) (int, error) {
	if m.countActiveFn != nil {
		return m.countActiveFn(ctx)
	}
	return 0, nil
}

// mockSequenceRepo — мок SequenceRepository с in-memory счётчиком.
type mockSequenceRepo struct {
	values map[string]int64
}

func (m *mockSequenceRepo) Next(_ context.Context, name string) (int64, error) {
	if m.values == nil {
		m.values = make(map[string]int64)
	}
	m.values[name]++
	return m.values[name], nil
}

// mockQuotaRepo — мок QuotaRepository с in-memory счётчиками по (user, день).
type mockQuotaRepo struct {
	counts    map[string]int
	peekErr   error
	incrCalls int
}

func quotaKey(userID int64, day time.Time) string {
	return fmt.Sprintf("%d/%s", userID, repository.DayUTC(day).Format(time.DateOnly))
}

func (m *mockQuotaRepo) Peek(_ context.Context, userID int64, day time.Time) (int, error) {
	if m.peekErr != nil {
		return 0, m.peekErr
	}
	return m.counts[quotaKey(userID, day)], nil
}

func (m *mockQuotaRepo) Increment(_ context.Context, userID int64, day time.Time) (int, error) {
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.incrCalls++
	m.counts[quotaKey(userID, day)]++
	return m.counts[quotaKey(userID, day)], nil
}

// mockFavoriteRepo — мок FavoriteRepository с in-memory списками.
type mockFavoriteRepo struct {
	lists     map[int64][]string
	lockCalls int
	insertErr error
}

func (m *mockFavoriteRepo) LockUser(_ context.Context, _ int64) error {
	m.lockCalls++
	return nil
}

func (m *mockFavoriteRepo) Exists(_ context.Context, userID int64, catalogID string) (bool, error) {
	for _, id := range m.lists[userID] {
		if id == catalogID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockFavoriteRepo) Insert(_ context.Context, userID int64, catalogID string) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if m.lists == nil {
		m.lists = make(map[int64][]string)
	}
	m.lists[userID] = append(m.lists[userID], catalogID)
	return nil
}

func (m *mockFavoriteRepo) Delete(_ context.Context, userID int64, catalogID string) (bool, error) {
	list := m.lists[userID]
	for i, id := range list {
		if id == catalogID {
			m.lists[userID] = append(list[:i:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockFavoriteRepo) Count(_ context.Context, userID int64) (int, error) {
	return len(m.lists[userID]), nil
}

func (m *mockFavoriteRepo) List(_ context.Context, userID int64) ([]string, error) {
	return append([]string(nil), m.lists[userID]...), nil
}

// mockUserRepo — мок UserRepository.
type mockUserRepo struct {
	upsertFn       func(ctx context.Context, u *model.User) error
	getFn          func(ctx context.Context, userID int64) (*model.User, error)
	countFn        func(ctx context.Context) (int, error)
	listIDsAfterFn func(ctx context.Context, afterID int64, limit int) ([]int64, error)
}

func (m *mockUserRepo) Upsert(ctx context.Context, u *model.User) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, u)
	}
	return nil
}

func (m *mockUserRepo) Get(ctx context.Context, userID int64) (*model.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

func (m *mockUserRepo) ListIDsAfter(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	if m.listIDsAfterFn != nil {
		return m.listIDsAfterFn(ctx, afterID, limit)
	}
	return nil, nil
}

// userIDsPager возвращает listIDsAfterFn, отдающий ids keyset-страницами.
func userIDsPager(ids []int64) func(context.Context, int64, int) ([]int64, error) {
	return func(_ context.Context, afterID int64, limit int) ([]int64, error) {
		var out []int64
		for _, id := range ids {
			if id > afterID && len(out) < limit {
				out = append(out, id)
			}
		}
		return out, nil
	}
}

// mockTransactor выполняет fn над заданным набором репозиториев.
// Ошибка fn возвращается как есть; commits считает успешные вызовы.
type mockTransactor struct {
	repos   *repository.Repos
	commits int
}

func (m *mockTransactor) WithRepos(_ context.Context, fn func(repos *repository.Repos) error) error {
	if err := fn(m.repos); err != nil {
		return err
	}
	m.commits++
	return nil
}
