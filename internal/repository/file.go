package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/catalog-bot/internal/domain/model"
)

// fileColumns — список столбцов таблицы files для SELECT-запросов.
const fileColumns = `catalog_id, source_file_ref, source_unique_id, display_name, clean_title,
	kind, uploader_id, size_bytes, size_label, tokens, download_count, created_at`

// FileFilter — фильтры выборки файлов каталога.
// Нулевые значения — фильтр не применяется.
type FileFilter struct {
	// Tokens — файл должен содержать все указанные токены (строгое AND)
	Tokens []string
	// Kind — фильтр по типу медиа
	Kind *model.Kind
}

// Поля сортировки (whitelist).
const (
	SortCreatedAt     = "created_at"
	SortDownloadCount = "download_count"
)

// FileRepository — интерфейс доступа к каталогу файлов.
type FileRepository interface {
	// Insert создаёт запись; при повторе dedup_key — ErrDuplicate.
	Insert(ctx context.Context, f *model.FileRecord) error
	// GetByID возвращает файл по catalogId.
	GetByID(ctx context.Context, catalogID string) (*model.FileRecord, error)
	// GetMany возвращает найденные файлы из списка catalogId (порядок не гарантирован).
	GetMany(ctx context.Context, catalogIDs []string) ([]*model.FileRecord, error)
	// ExistsByDedupKey проверяет, опубликован ли уже файл с этим ключом (model.DedupKey).
	ExistsByDedupKey(ctx context.Context, key string) (bool, error)
	// FindByTokens возвращает файлы, чьи токены — надмножество запроса.
	FindByTokens(ctx context.Context, tokens []string, limit, offset int) ([]*model.FileRecord, error)
	// Count возвращает количество файлов по фильтру.
	Count(ctx context.Context, filter FileFilter) (int, error)
	// IncrementDownload атомарно увеличивает счётчик скачиваний.
	IncrementDownload(ctx context.Context, catalogID string) (int64, error)
	// Delete удаляет файл из каталога.
	Delete(ctx context.Context, catalogID string) error
	// ListRecent — последние опубликованные файлы.
	ListRecent(ctx context.Context, limit int) ([]*model.FileRecord, error)
	// ListTrending — самые скачиваемые файлы.
	ListTrending(ctx context.Context, limit int) ([]*model.FileRecord, error)
	// TotalDownloads — сумма счётчиков скачиваний по каталогу.
	TotalDownloads(ctx context.Context) (int64, error)
}

// fileRepo — реализация FileRepository через pgx.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий каталога.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

func (r *fileRepo) Insert(ctx context.Context, f *model.FileRecord) error {
	query := `
		INSERT INTO files (catalog_id, source_file_ref, source_unique_id, display_name, clean_title,
			kind, uploader_id, size_bytes, size_label, tokens, download_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11)`

	tokens := f.Tokens
	if tokens == nil {
		tokens = []string{}
	}

	_, err := r.db.Exec(ctx, query,
		f.CatalogID, f.SourceFileRef, f.SourceUniqueID, f.DisplayName, f.CleanTitle,
		string(f.Kind), f.UploaderID, f.SizeBytes, f.SizeLabel, tokens, f.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: файл %s уже в каталоге", ErrDuplicate, f.SourceFileRef)
		}
		return fmt.Errorf("ошибка добавления файла: %w", err)
	}
	return nil
}

func (r *fileRepo) GetByID(ctx context.Context, catalogID string) (*model.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE catalog_id = $1`, fileColumns)

	f, err := scanFile(r.db.QueryRow(ctx, query, catalogID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

func (r *fileRepo) GetMany(ctx context.Context, catalogIDs []string) ([]*model.FileRecord, error) {
	if len(catalogIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM files WHERE catalog_id = ANY($1)`, fileColumns)
	return r.queryFiles(ctx, query, catalogIDs)
}

func (r *fileRepo) ExistsByDedupKey(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM files WHERE dedup_key = $1)`, key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки дубликата: %w", err)
	}
	return exists, nil
}

func (r *fileRepo) FindByTokens(ctx context.Context, tokens []string, limit, offset int) ([]*model.FileRecord, error) {
	where, args := buildFileWhere(FileFilter{Tokens: tokens}, 1)
	argNum := len(args) + 1

	query := fmt.Sprintf(`SELECT %s FROM files %s %s LIMIT $%d OFFSET $%d`,
		fileColumns, where, buildOrderBy(SortCreatedAt), argNum, argNum+1)
	args = append(args, limit, offset)

	return r.queryFiles(ctx, query, args...)
}

func (r *fileRepo) Count(ctx context.Context, filter FileFilter) (int, error) {
	where, args := buildFileWhere(filter, 1)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM files %s`, where)

	var total int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта файлов: %w", err)
	}
	return total, nil
}

func (r *fileRepo) IncrementDownload(ctx context.Context, catalogID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`UPDATE files SET download_count = download_count + 1 WHERE catalog_id = $1 RETURNING download_count`,
		catalogID,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("ошибка увеличения счётчика скачиваний: %w", err)
	}
	return count, nil
}

func (r *fileRepo) Delete(ctx context.Context, catalogID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE catalog_id = $1`, catalogID)
	if err != nil {
		return fmt.Errorf("ошибка удаления файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *fileRepo) ListRecent(ctx context.Context, limit int) ([]*model.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM files %s LIMIT $1`, fileColumns, buildOrderBy(SortCreatedAt))
	return r.queryFiles(ctx, query, limit)
}

func (r *fileRepo) ListTrending(ctx context.Context, limit int) ([]*model.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM files %s LIMIT $1`, fileColumns, buildOrderBy(SortDownloadCount))
	return r.queryFiles(ctx, query, limit)
}

func (r *fileRepo) TotalDownloads(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(download_count), 0) FROM files`).Scan(&total); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта скачиваний: %w", err)
	}
	return total, nil
}

// queryFiles выполняет SELECT и сканирует все строки в FileRecord.
func (r *fileRepo) queryFiles(ctx context.Context, query string, args ...any) ([]*model.FileRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки файлов: %w", err)
	}
	defer rows.Close()

	var result []*model.FileRecord
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// scanFile сканирует одну строку в порядке fileColumns.
func scanFile(row pgx.Row) (*model.FileRecord, error) {
	f := &model.FileRecord{}
	var kind string
	if err := row.Scan(
		&f.CatalogID, &f.SourceFileRef, &f.SourceUniqueID, &f.DisplayName, &f.CleanTitle,
		&kind, &f.UploaderID, &f.SizeBytes, &f.SizeLabel, &f.Tokens, &f.DownloadCount, &f.CreatedAt,
	); err != nil {
		return nil, err
	}
	f.Kind = model.Kind(kind)
	return f, nil
}

// buildFileWhere строит WHERE-условие и аргументы для выборки файлов.
// startArg — номер первого $-параметра (для корректной нумерации).
func buildFileWhere(filter FileFilter, startArg int) (whereClause string, args []any) {
	var conditions []string
	argNum := startArg

	// Строгое AND по токенам — оператор @> использует GIN-индекс
	if len(filter.Tokens) > 0 {
		conditions = append(conditions, fmt.Sprintf("tokens @> $%d", argNum))
		args = append(args, filter.Tokens)
		argNum++
	}

	if filter.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argNum))
		args = append(args, string(*filter.Kind))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

// buildOrderBy строит ORDER BY с безопасным whitelist полей.
// Вторичная сортировка по catalog_id делает пагинацию детерминированной.
func buildOrderBy(sortBy string) string {
	column := SortCreatedAt
	if sortBy == SortDownloadCount {
		column = SortDownloadCount
	}
	return fmt.Sprintf("ORDER BY %s DESC, catalog_id DESC", column)
}
