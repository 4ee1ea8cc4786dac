package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yourland-onboarding/economy"
	"yourland-onboarding/models"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReferralService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
	Log   *zap.Logger
}

func NewReferralService(db *gorm.DB, clock clockwork.Clock, log *zap.Logger) *ReferralService {
	return &ReferralService{DB: db, Clock: clock, Log: log.Named("referrals")}
}

// ReferralStats summarizes a referrer's network and what it has earned so far.
type ReferralStats struct {
	ReferrerID    string                        `json:"referrer_id"`
	ReferralCount int                           `json:"referral_count"`
	Earned        economy.RewardTotals          `json:"earned"`
	Referrals     []models.ReferralRelationship `json:"referrals"`
}

// CreateRelationship inserts the relationship for refereeID if none exists yet.
// An existing relationship for the referee yields ErrConflict.
func (s *ReferralService) CreateRelationship(ctx context.Context, refereeID, referrerID string, now time.Time) (*models.ReferralRelationship, error) {
	return createRelationship(s.DB.WithContext(ctx), refereeID, referrerID, now)
}

func createRelationship(tx *gorm.DB, refereeID, referrerID string, now time.Time) (*models.ReferralRelationship, error) {
	if err := requireFields(map[string]string{"referee_id": refereeID, "referrer_id": referrerID}); err != nil {
		return nil, err
	}
	if refereeID == referrerID {
		return nil, &ValidationError{Fields: []string{"referrer_id"}, Reason: "an account cannot refer itself"}
	}

	rel := &models.ReferralRelationship{
		ID:         refereeID,
		ReferrerID: referrerID,
		ReferredAt: now,
		Milestones: models.Milestones{AccountCreated: true},
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rel)
	if res.Error != nil {
		return nil, fmt.Errorf("create referral %s: %w", refereeID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("referral for %s already exists: %w", refereeID, ErrConflict)
	}
	return rel, nil
}

// RecordMilestone flips a milestone on the referee's relationship and mirrors it on the
// referee's account in the same transaction.
func (s *ReferralService) RecordMilestone(ctx context.Context, refereeID string, m economy.Milestone) (*models.ReferralRelationship, error) {
	return s.TrackEvent(ctx, "", refereeID, m)
}

// TrackEvent is RecordMilestone with an optional referrer check: when referrerID is set
// it must match the relationship's referrer.
func (s *ReferralService) TrackEvent(ctx context.Context, referrerID, refereeID string, m economy.Milestone) (*models.ReferralRelationship, error) {
	if err := requireFields(map[string]string{"account_id": refereeID}); err != nil {
		return nil, err
	}
	if _, err := economy.ParseMilestone(string(m)); err != nil {
		return nil, &ValidationError{Fields: []string{"event"}, Reason: err.Error()}
	}

	now := s.Clock.Now().UTC()
	var rel models.ReferralRelationship
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", refereeID).First(&rel).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("referral for %s: %w", refereeID, ErrNotFound)
			}
			return err
		}
		if referrerID != "" && rel.ReferrerID != referrerID {
			return fmt.Errorf("referral for %s by %s: %w", refereeID, referrerID, ErrNotFound)
		}

		if setMilestone(&rel.Milestones, m) {
			if err := tx.Save(&rel).Error; err != nil {
				return err
			}
		}
		return mirrorOnAccount(tx, refereeID, m, now)
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("milestone recorded",
		zap.String("referee_id", refereeID),
		zap.String("referrer_id", rel.ReferrerID),
		zap.String("milestone", string(m)))
	return &rel, nil
}

// ListByReferrer returns every relationship where referrerID invited the referee.
func (s *ReferralService) ListByReferrer(ctx context.Context, referrerID string) ([]models.ReferralRelationship, error) {
	var rels []models.ReferralRelationship
	if err := s.DB.WithContext(ctx).
		Where("referrer_id = ?", referrerID).
		Order("referred_at ASC").
		Find(&rels).Error; err != nil {
		return nil, err
	}
	return rels, nil
}

// CountByReferrer returns how many accounts referrerID has invited.
func (s *ReferralService) CountByReferrer(ctx context.Context, referrerID string) (int64, error) {
	return countReferrals(s.DB.WithContext(ctx), referrerID)
}

func countReferrals(tx *gorm.DB, referrerID string) (int64, error) {
	var n int64
	err := tx.Model(&models.ReferralRelationship{}).Where("referrer_id = ?", referrerID).Count(&n).Error
	return n, err
}

// Stats sums the land and XP earned from the milestones the referees actually reached.
func (s *ReferralService) Stats(ctx context.Context, referrerID string) (*ReferralStats, error) {
	rels, err := s.ListByReferrer(ctx, referrerID)
	if err != nil {
		return nil, err
	}

	stats := &ReferralStats{
		ReferrerID:    referrerID,
		ReferralCount: len(rels),
		Referrals:     rels,
	}
	for _, rel := range rels {
		t := economy.TotalReferralRewards(reachedMilestones(rel.Milestones)...)
		stats.Earned.Land += t.Land
		stats.Earned.XP += t.XP
	}
	return stats, nil
}
