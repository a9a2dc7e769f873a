package models

import (
	"time"
)

// Entry is one key in a named key-value store. Value holds raw JSON.
type Entry struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Store     string    `gorm:"not null;uniqueIndex:idx_store_key" json:"store"`
	Key       string    `gorm:"column:key_name;not null;uniqueIndex:idx_store_key" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}

// StoreSummary is the per-store row count reported by the status command
type StoreSummary struct {
	Store   string `json:"store"`
	Entries int64  `json:"entries"`
}
