// Пакет textnorm — нормализация имён файлов и разбиение на токены для поиска.
// Чистые функции без ввода-вывода: CleanTitle идемпотентна,
// CleanTitle(CleanTitle(s)) == CleanTitle(s).
package textnorm

import (
	"regexp"
	"strings"
)

var (
	// videoExtRe — известные расширения видео/контейнеров в конце строки.
	videoExtRe = regexp.MustCompile(`(?i)\.(mkv|mp4|avi|mov|wmv|flv|webm|m4v|mpg|mpeg|ts|m2ts|3gp|vob|ogv)$`)
	// mentionRe — упоминания вида @handle.
	mentionRe = regexp.MustCompile(`@\w+`)
	// punctuationRe — скобки и разделители, заменяемые пробелом.
	punctuationRe = regexp.MustCompile(`[\[\](){}.;:~|,_\-+]`)
)

// CleanTitle превращает сырое имя файла или подпись в чистое название.
//
//	"Iron.Man.2008.1080p.mkv" → "Iron Man 2008 1080p"
func CleanTitle(raw string) string {
	s := strings.TrimSpace(raw)
	s = videoExtRe.ReplaceAllString(s, "")
	s = mentionRe.ReplaceAllString(s, " ")
	s = punctuationRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Tokens возвращает набор ключевых слов чистого названия в нижнем регистре.
// Порядок — по первому вхождению, дубликаты отбрасываются.
func Tokens(cleanTitle string) []string {
	return uniqueFields(strings.ToLower(cleanTitle))
}

// ParseQuery разбирает поисковый запрос пользователя.
// Пустой результат означает, что искать нечего.
func ParseQuery(text string) []string {
	return uniqueFields(strings.ToLower(text))
}

func uniqueFields(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
