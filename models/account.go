package models

import (
	"strings"
	"time"
)

// Account is a YourLand identity, ephemeral until the app is downloaded and the
// account is merged into a permanent one.
type Account struct {
	ID           string  `gorm:"primaryKey;type:varchar(64)" json:"id"`
	DisplayName  string  `gorm:"not null" json:"display_name"`
	Email        *string `gorm:"index" json:"email,omitempty"`
	DeviceID     string  `gorm:"index;not null" json:"device_id"`
	ReferrerID   *string `gorm:"index" json:"referrer_id,omitempty"` // set once at creation
	ReferralCode string  `gorm:"index;not null" json:"referral_code"`

	Timestamps

	// Progression
	XP               int64 `gorm:"not null;default:0" json:"xp"`
	Reputation       int64 `gorm:"not null;default:0" json:"reputation"`
	ProfileCompleted bool  `gorm:"not null;default:false" json:"profile_completed"`
	AppDownloaded    bool  `gorm:"not null;default:false" json:"app_downloaded"`
	LandClaimed      bool  `gorm:"not null;default:false" json:"land_claimed"`

	Realm     *string `json:"realm,omitempty"`
	QuestType *string `json:"quest_type,omitempty"`

	PendingLandAmount        *int64     `json:"-"`
	PendingLandReferrerBonus *int64     `json:"-"`
	PendingLandCreatedAt     *time.Time `json:"-"`

	EnsDomain       *string `gorm:"index" json:"ens_domain,omitempty"`
	EthereumAddress *string `gorm:"index" json:"ethereum_address,omitempty"`
}

// PendingLandClaim is an allocation computed but not yet materialized.
type PendingLandClaim struct {
	Amount        int64     `json:"amount"`
	ReferrerBonus *int64    `json:"referrer_bonus,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// PendingClaim returns the pending land claim, or nil when none is attached.
func (a *Account) PendingClaim() *PendingLandClaim {
	if a.PendingLandAmount == nil {
		return nil
	}
	p := &PendingLandClaim{
		Amount:        *a.PendingLandAmount,
		ReferrerBonus: a.PendingLandReferrerBonus,
	}
	if a.PendingLandCreatedAt != nil {
		p.CreatedAt = *a.PendingLandCreatedAt
	}
	return p
}

// SetPendingClaim attaches p, or clears the pending claim when p is nil.
func (a *Account) SetPendingClaim(p *PendingLandClaim) {
	if p == nil {
		a.PendingLandAmount = nil
		a.PendingLandReferrerBonus = nil
		a.PendingLandCreatedAt = nil
		return
	}
	amount := p.Amount
	createdAt := p.CreatedAt
	a.PendingLandAmount = &amount
	a.PendingLandReferrerBonus = p.ReferrerBonus
	a.PendingLandCreatedAt = &createdAt
}

// ReferralCodeFor derives the public referral code from an account id.
func ReferralCodeFor(id string) string {
	code := strings.ReplaceAll(id, "-", "")
	if len(code) > 8 {
		code = code[:8]
	}
	return strings.ToUpper(code)
}
