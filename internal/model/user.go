package model

import "time"

// User stores Telegram user metadata. Username doubles as the owner identity
// of assignments, so owners can be notified when documents are generated.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
