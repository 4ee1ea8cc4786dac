package models

import "time"

// ReferralRelationship records one account having invited another. The ID is the
// referee's account ID, so a referee has at most one inbound relationship.
type ReferralRelationship struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ReferrerID string    `gorm:"index;not null" json:"referrer_id"`
	ReferredAt time.Time `gorm:"not null" json:"referred_at"`

	Milestones Milestones `gorm:"embedded;embeddedPrefix:milestone_" json:"milestones"`
}

// TableName pins the legacy table name.
func (ReferralRelationship) TableName() string {
	return "referrals"
}

// Milestones are one-way flags; they flip false→true and are never reset.
type Milestones struct {
	AccountCreated   bool `gorm:"not null;default:true" json:"accountCreated"`
	ProfileCompleted bool `gorm:"not null;default:false" json:"profileCompleted"`
	AppDownloaded    bool `gorm:"not null;default:false" json:"appDownloaded"`
	LandClaimed      bool `gorm:"not null;default:false" json:"landClaimed"`
}
