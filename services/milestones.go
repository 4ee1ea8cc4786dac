package services

import (
	"errors"
	"fmt"
	"time"

	"yourland-onboarding/economy"
	"yourland-onboarding/models"

	"gorm.io/gorm"
)

// setMilestone flips m to true on ms and reports whether anything changed.
func setMilestone(ms *models.Milestones, m economy.Milestone) bool {
	var flag *bool
	switch m {
	case economy.MilestoneAccountCreated:
		flag = &ms.AccountCreated
	case economy.MilestoneProfileCompleted:
		flag = &ms.ProfileCompleted
	case economy.MilestoneAppDownloaded:
		flag = &ms.AppDownloaded
	case economy.MilestoneLandClaimed:
		flag = &ms.LandClaimed
	default:
		return false
	}
	if *flag {
		return false
	}
	*flag = true
	return true
}

// setAccountFlag mirrors a milestone onto the account's own progression flags.
// accountCreated has no account counterpart.
func setAccountFlag(a *models.Account, m economy.Milestone) bool {
	var flag *bool
	switch m {
	case economy.MilestoneProfileCompleted:
		flag = &a.ProfileCompleted
	case economy.MilestoneAppDownloaded:
		flag = &a.AppDownloaded
	case economy.MilestoneLandClaimed:
		flag = &a.LandClaimed
	default:
		return false
	}
	if *flag {
		return false
	}
	*flag = true
	return true
}

// reachedMilestones lists the milestones set on ms, in progression order.
func reachedMilestones(ms models.Milestones) []economy.Milestone {
	var out []economy.Milestone
	if ms.AccountCreated {
		out = append(out, economy.MilestoneAccountCreated)
	}
	if ms.ProfileCompleted {
		out = append(out, economy.MilestoneProfileCompleted)
	}
	if ms.AppDownloaded {
		out = append(out, economy.MilestoneAppDownloaded)
	}
	if ms.LandClaimed {
		out = append(out, economy.MilestoneLandClaimed)
	}
	return out
}

// propagateMilestones records milestones on the relationship keyed by refereeID.
// Only that relationship is touched; siblings sharing the referrer are left alone.
// A missing relationship is not an error: not every account was referred.
func propagateMilestones(tx *gorm.DB, refereeID string, milestones ...economy.Milestone) error {
	if len(milestones) == 0 {
		return nil
	}
	var rel models.ReferralRelationship
	if err := tx.Where("id = ?", refereeID).First(&rel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("load referral %s: %w", refereeID, err)
	}

	changed := false
	for _, m := range milestones {
		if setMilestone(&rel.Milestones, m) {
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := tx.Save(&rel).Error; err != nil {
		return fmt.Errorf("save referral %s: %w", refereeID, err)
	}
	return nil
}

// mirrorOnAccount sets the account flag for m on the account with the given id.
func mirrorOnAccount(tx *gorm.DB, accountID string, m economy.Milestone, now time.Time) error {
	var acc models.Account
	if err := tx.Where("id = ?", accountID).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("load account %s: %w", accountID, err)
	}
	if !setAccountFlag(&acc, m) {
		return nil
	}
	acc.UpdatedAt = now
	if err := tx.Save(&acc).Error; err != nil {
		return fmt.Errorf("save account %s: %w", accountID, err)
	}
	return nil
}
