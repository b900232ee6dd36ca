// Пакет repository — слой доступа к данным PostgreSQL для Catalog Bot.
// Все запросы — чистый SQL через pgx, без ORM. Счётчики и уникальность
// обеспечиваются атомарными операциями на стороне БД, без локальных мьютексов:
// несколько экземпляров бота могут работать с одной базой.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrDuplicate — нарушение уникальности (запись уже существует).
	ErrDuplicate = errors.New("запись уже существует")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repos — набор репозиториев поверх одного DBTX (пула или транзакции).
type Repos struct {
	Files     FileRepository
	Pending   PendingRepository
	Sequences SequenceRepository
	Quotas    QuotaRepository
	Favorites FavoriteRepository
	Users     UserRepository
}

// NewRepos создаёт все репозитории поверх db.
func NewRepos(db DBTX) *Repos {
	return &Repos{
		Files:     NewFileRepository(db),
		Pending:   NewPendingRepository(db),
		Sequences: NewSequenceRepository(db),
		Quotas:    NewQuotaRepository(db),
		Favorites: NewFavoriteRepository(db),
		Users:     NewUserRepository(db),
	}
}

// TxRunner позволяет выполнять операции в транзакции.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner создаёт TxRunner для управления транзакциями.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunInTx выполняет fn внутри транзакции.
// При ошибке fn — транзакция откатывается, при успехе — коммитится.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка коммита транзакции: %w", err)
	}
	return nil
}

// WithRepos выполняет fn в транзакции, передавая репозитории поверх неё.
func (r *TxRunner) WithRepos(ctx context.Context, fn func(repos *Repos) error) error {
	return r.RunInTx(ctx, func(tx pgx.Tx) error {
		return fn(NewRepos(tx))
	})
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// isForeignKeyViolation проверяет нарушение внешнего ключа (ссылка на удалённый файл).
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	return false
}
