package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yourland-onboarding/economy"
	"yourland-onboarding/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ClaimService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
	Log   *zap.Logger
}

func NewClaimService(db *gorm.DB, clock clockwork.Clock, log *zap.Logger) *ClaimService {
	return &ClaimService{DB: db, Clock: clock, Log: log.Named("claims")}
}

// ValidateClaim checks that the claim is made from the device that owns the account.
func (s *ClaimService) ValidateClaim(acc *models.Account, deviceID string) error {
	if deviceID == "" || acc.DeviceID != deviceID {
		return fmt.Errorf("device %q cannot claim for account %s: %w", deviceID, acc.ID, ErrUnauthorized)
	}
	return nil
}

// ProcessClaim turns the account's pending claim into a LandClaim. The claim insert,
// the account update and the landClaimed milestone commit together.
func (s *ClaimService) ProcessClaim(ctx context.Context, accountID, deviceID string) (*models.LandClaim, error) {
	if err := requireFields(map[string]string{"account_id": accountID, "device_id": deviceID}); err != nil {
		return nil, err
	}

	now := s.Clock.Now().UTC()
	var claim *models.LandClaim
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acc models.Account
		if err := tx.Where("id = ?", accountID).First(&acc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("account %s: %w", accountID, ErrNotFound)
			}
			return err
		}
		if err := s.ValidateClaim(&acc, deviceID); err != nil {
			return err
		}

		var err error
		claim, err = materializeClaim(tx, &acc, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("land claimed",
		zap.String("account_id", accountID),
		zap.String("claim_id", claim.ID),
		zap.Int64("amount", claim.Amount),
		zap.String("tier", claim.Tier))
	return claim, nil
}

// materializeClaim consumes acc's pending claim. The tier is recomputed from the
// claimed amount.
func materializeClaim(tx *gorm.DB, acc *models.Account, now time.Time) (*models.LandClaim, error) {
	pending := acc.PendingClaim()
	if pending == nil {
		return nil, fmt.Errorf("account %s: %w", acc.ID, ErrNoPendingClaim)
	}

	claim := &models.LandClaim{
		ID:            uuid.NewString(),
		AccountID:     acc.ID,
		Amount:        pending.Amount,
		ReferrerBonus: pending.ReferrerBonus,
		Tier:          string(economy.TierForTotal(pending.Amount)),
		ClaimedAt:     now,
	}
	if err := tx.Create(claim).Error; err != nil {
		return nil, fmt.Errorf("create land claim: %w", err)
	}

	acc.SetPendingClaim(nil)
	acc.LandClaimed = true
	acc.UpdatedAt = now
	if err := tx.Save(acc).Error; err != nil {
		return nil, fmt.Errorf("save account %s: %w", acc.ID, err)
	}
	if err := propagateMilestones(tx, acc.ID, economy.MilestoneLandClaimed); err != nil {
		return nil, err
	}
	return claim, nil
}

// ListClaims returns the account's land claims, oldest first.
func (s *ClaimService) ListClaims(ctx context.Context, accountID string) ([]models.LandClaim, error) {
	return listClaims(s.DB.WithContext(ctx), accountID)
}

func listClaims(tx *gorm.DB, accountID string) ([]models.LandClaim, error) {
	var claims []models.LandClaim
	if err := tx.Where("account_id = ?", accountID).Order("claimed_at ASC").Find(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}
