// Пакет model — доменные модели Catalog Bot.
// FileRecord — маппинг таблицы files, PendingUpload — таблицы pending_uploads.
package model

import (
	"fmt"
	"time"
)

// Kind — тип медиа опубликованного файла.
type Kind string

const (
	// KindVideo — видео (отправляется как video).
	KindVideo Kind = "video"
	// KindDocument — любой другой файл (отправляется как document).
	KindDocument Kind = "document"
)

// Valid проверяет, что значение Kind допустимо.
func (k Kind) Valid() bool {
	return k == KindVideo || k == KindDocument
}

// CatalogIDPrefix — буквенный префикс идентификаторов каталога.
const CatalogIDPrefix = "F"

// FormatCatalogID форматирует значение счётчика в catalogId: F0001, F0042, F12345.
func FormatCatalogID(n int64) string {
	return fmt.Sprintf("%s%04d", CatalogIDPrefix, n)
}

// DedupKey возвращает ключ уникальности файла в каталоге: file_unique_id,
// а если он пуст — file_id. Совпадает с генерируемой колонкой files.dedup_key.
func DedupKey(uniqueID, fileRef string) string {
	if uniqueID != "" {
		return uniqueID
	}
	return fileRef
}

// FileRecord — опубликованный файл каталога.
type FileRecord struct {
	// CatalogID — человекочитаемый ID (F0001), назначается один раз при публикации
	CatalogID string
	// SourceFileRef — handle доставки (Telegram file_id); у пересланной копии может отличаться
	SourceFileRef string
	// SourceUniqueID — стабильный file_unique_id (опционально), основа DedupKey
	SourceUniqueID string
	// DisplayName — исходное имя файла или подпись
	DisplayName string
	// CleanTitle — нормализованное название
	CleanTitle string
	// Kind — video или document
	Kind Kind
	// UploaderID — ID администратора, загрузившего файл
	UploaderID int64
	// SizeBytes — размер в байтах
	SizeBytes int64
	// SizeLabel — размер в человекочитаемом виде (1.2 GB)
	SizeLabel string
	// Tokens — ключевые слова для поиска (из CleanTitle)
	Tokens []string
	// DownloadCount — число успешных доставок, только растёт
	DownloadCount int64
	// CreatedAt — время публикации
	CreatedAt time.Time
}

// PendingUpload — файл, ожидающий подтверждения администратором.
type PendingUpload struct {
	// ID — UUID записи (используется в CONFIRM:/CANCEL:)
	ID             string
	SourceFileRef  string
	SourceUniqueID string
	DisplayName    string
	CleanTitle     string
	Kind           Kind
	SizeBytes      int64
	SizeLabel      string
	// SubmitterID — администратор, отправивший файл
	SubmitterID int64
	// OriginChatID / OriginMessageID — исходное сообщение с файлом
	OriginChatID    int64
	OriginMessageID int
	CreatedAt       time.Time
	// ExpiresAt — после этого момента запись недоступна для CONFIRM/CANCEL
	ExpiresAt time.Time
}

// DedupKey — ключ уникальности записи (см. DedupKey).
func (f *FileRecord) DedupKey() string {
	return DedupKey(f.SourceUniqueID, f.SourceFileRef)
}

// DedupKey — ключ уникальности файла, который будет опубликован.
func (p *PendingUpload) DedupKey() string {
	return DedupKey(p.SourceUniqueID, p.SourceFileRef)
}

// ToFileRecord переносит описательные поля в новую запись каталога.
func (p *PendingUpload) ToFileRecord(catalogID string, tokens []string, now time.Time) *FileRecord {
	return &FileRecord{
		CatalogID:      catalogID,
		SourceFileRef:  p.SourceFileRef,
		SourceUniqueID: p.SourceUniqueID,
		DisplayName:    p.DisplayName,
		CleanTitle:     p.CleanTitle,
		Kind:           p.Kind,
		UploaderID:     p.SubmitterID,
		SizeBytes:      p.SizeBytes,
		SizeLabel:      p.SizeLabel,
		Tokens:         tokens,
		CreatedAt:      now,
	}
}
