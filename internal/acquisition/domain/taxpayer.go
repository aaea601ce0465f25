package domain

import "time"

// Taxpayer is one registered sync subject, identified by its RFC (the
// government-issued tax id).
type Taxpayer struct {
	RFC            string     `json:"rfc" gorm:"primaryKey"`
	Name           string     `json:"name"`
	LastFullSyncAt *time.Time `json:"last_full_sync_at"`
	LastVerifiedAt *time.Time `json:"last_verified_at"`

	// Syncing is the mutual-exclusion marker for planner passes. It has no
	// auto-expiry: a stale flag after a crash must be cleared by an operator.
	Syncing bool `json:"syncing" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
