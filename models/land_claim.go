package models

import "time"

// LandClaim is a materialized pending claim. Rows are append-only.
type LandClaim struct {
	ID              string    `gorm:"primaryKey;type:varchar(128)" json:"id"`
	AccountID       string    `gorm:"index;not null" json:"account_id"`
	Amount          int64     `gorm:"not null" json:"amount"`
	ReferrerBonus   *int64    `json:"referrer_bonus,omitempty"`
	IRLBonus        *int64    `gorm:"column:irl_bonus" json:"irl_bonus,omitempty"`
	Tier            string    `gorm:"type:varchar(16);not null" json:"tier"`
	ClaimedAt       time.Time `gorm:"not null;index" json:"claimed_at"`
	TransactionHash *string   `json:"transaction_hash,omitempty"`
}

// LandClaimArchive records that a claim was exported to object storage. Kept apart
// from land_claims so claim rows are never updated.
type LandClaimArchive struct {
	ClaimID    string    `gorm:"primaryKey;type:varchar(128)" json:"claim_id"`
	ObjectKey  string    `gorm:"not null" json:"object_key"`
	ArchivedAt time.Time `gorm:"not null" json:"archived_at"`
}
