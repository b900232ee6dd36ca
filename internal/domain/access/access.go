// Пакет access — неизменяемый набор администраторов бота.
// Строится один раз при старте из конфигурации и передаётся явно
// во все компоненты, которым нужна проверка прав.
package access

// AdminSet — множество ID администраторов. Нулевое значение — пустой набор.
type AdminSet struct {
	ids map[int64]struct{}
}

// NewAdminSet создаёт набор из списка ID. Входной срез не сохраняется.
func NewAdminSet(ids []int64) AdminSet {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return AdminSet{ids: m}
}

// IsAdmin проверяет, является ли пользователь администратором.
func (s AdminSet) IsAdmin(userID int64) bool {
	_, ok := s.ids[userID]
	return ok
}

// Len возвращает количество администраторов.
func (s AdminSet) Len() int {
	return len(s.ids)
}

// IDs возвращает копию списка администраторов (порядок не определён).
func (s AdminSet) IDs() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}
