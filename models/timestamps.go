package models

import "time"

// Timestamps are set by the services from their clock; gorm's auto-time is disabled so
// tests can control them.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"not null;autoCreateTime:false"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;autoUpdateTime:false"`
}
