package models

import (
	"time"
)

// Link is a single shortened URL record. OriginalURL is stored in its
// normalized form; ShortCode is unique across all rows, expired ones
// included, until the reaper deletes them.
type Link struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	OriginalURL string     `json:"original_url" gorm:"index;not null"`
	ShortCode   string     `json:"short_code" gorm:"uniqueIndex;size:20;not null"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at" gorm:"index;not null"`
	UserID      *uint      `json:"user_id"`
	ClaimToken  string     `json:"-" gorm:"size:64"`
	ClickCount  int64      `json:"click_count" gorm:"default:0"`
	LastUsedAt  *time.Time `json:"last_used_at"`
}

// Expired reports whether the link is past its expiry at the given instant.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt.Before(now)
}

// OwnedBy reports whether the link belongs to the given user.
// Anonymous links belong to nobody.
func (l *Link) OwnedBy(userID uint) bool {
	return l.UserID != nil && *l.UserID == userID
}
