// Пакет service — бизнес-логика Catalog Bot: каталог, поиск, квоты,
// избранное, членство в группе, модерация и рассылка.
package service

import (
	"context"
	"errors"

	"github.com/bigkaa/goartstore/catalog-bot/internal/repository"
)

// Ошибки сервисного слоя. Диспетчер переводит их в короткие уведомления.
var (
	// ErrNotFound — файл, загрузка или пользователь не найдены.
	ErrNotFound = errors.New("не найдено")
	// ErrDuplicateFile — файл уже опубликован в каталоге.
	ErrDuplicateFile = errors.New("файл уже есть в каталоге")
	// ErrQuotaExceeded — дневной лимит скачиваний исчерпан.
	ErrQuotaExceeded = errors.New("дневной лимит скачиваний исчерпан")
	// ErrFavoritesFull — избранное заполнено.
	ErrFavoritesFull = errors.New("избранное заполнено")
	// ErrSessionExpired — поисковая сессия истекла.
	ErrSessionExpired = errors.New("поиск устарел")
	// ErrNoResults — по запросу ничего не найдено.
	ErrNoResults = errors.New("ничего не найдено")
	// ErrUnauthorized — действие доступно только администраторам.
	// Диспетчер игнорирует такие попытки без ответа.
	ErrUnauthorized = errors.New("недостаточно прав")
)

// Transactor выполняет fn в транзакции над набором репозиториев.
// Реализуется repository.TxRunner.
type Transactor interface {
	WithRepos(ctx context.Context, fn func(repos *repository.Repos) error) error
}

// mapNotFound переводит repository.ErrNotFound в ErrNotFound сервиса.
func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
