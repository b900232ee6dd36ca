package model

import "time"

// User — пользователь бота. JoinedAt задаётся один раз при первом контакте.
type User struct {
	UserID     int64
	FirstName  string
	Handle     string
	JoinedAt   time.Time
	LastSeenAt time.Time
}

// Account — сводка для команды myaccount.
type Account struct {
	User           *User
	DownloadsToday int
	DailyLimit     int
	Favorites      int
	FavoritesLimit int
}

// Stats — статистика каталога для администратора.
type Stats struct {
	Files          int
	Videos         int
	Documents      int
	Users          int
	TotalDownloads int64
	Pending        int
}

// BroadcastResult — итоги рассылки.
type BroadcastResult struct {
	Total   int
	Success int
	Blocked int
	Failed  int
}
