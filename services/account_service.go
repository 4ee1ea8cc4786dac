package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"yourland-onboarding/economy"
	"yourland-onboarding/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AccountService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
	Log   *zap.Logger
}

func NewAccountService(db *gorm.DB, clock clockwork.Clock, log *zap.Logger) *AccountService {
	return &AccountService{DB: db, Clock: clock, Log: log.Named("accounts")}
}

// CreateAccountInput carries the user-supplied fields of a new account. Empty strings
// mean "not provided".
type CreateAccountInput struct {
	DisplayName string
	Email       string
	ReferrerID  string
	Realm       string
	QuestType   string
	DeviceID    string
}

// SyncAccountInput mirrors an account that was already created on the client.
type SyncAccountInput struct {
	CreateAccountInput
	ID           string
	ReferralCode string
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
}

// AccountPatch holds the mutable account fields; nil fields are left untouched.
// Identity fields are only written through ProfileService.LinkIdentity.
type AccountPatch struct {
	DisplayName      *string                  `json:"display_name"`
	Email            *string                  `json:"email"`
	XP               *int64                   `json:"xp"`
	Reputation       *int64                   `json:"reputation"`
	ProfileCompleted *bool                    `json:"profile_completed"`
	AppDownloaded    *bool                    `json:"app_downloaded"`
	LandClaimed      *bool                    `json:"land_claimed"`
	Realm            *string                  `json:"realm"`
	QuestType        *string                  `json:"quest_type"`
	PendingLandClaim *models.PendingLandClaim `json:"pending_land_claim"`
}

// MergeInput promotes an ephemeral account to a permanent one after app download.
type MergeInput struct {
	EphemeralAccountID string
	PermanentAccountID string
	DeviceID           string
}

// MergeResult is the permanent account and, when a pending claim was carried over,
// the land claim it was materialized into.
type MergeResult struct {
	Account *models.Account   `json:"account"`
	Claim   *models.LandClaim `json:"land_claim,omitempty"`
}

// Create generates a new account. When a referrer is given the referral relationship
// is written in the same transaction behind a savepoint, so a failing referral write
// never fails the account.
func (s *AccountService) Create(ctx context.Context, in CreateAccountInput) (*models.Account, error) {
	if err := requireFields(map[string]string{"display_name": in.DisplayName}); err != nil {
		return nil, err
	}

	deviceID := strings.TrimSpace(in.DeviceID)
	if deviceID == "" {
		deviceID = uuid.NewString()
	}
	id := uuid.NewString()
	now := s.Clock.Now().UTC()

	acc := &models.Account{
		ID:           id,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		Email:        optional(in.Email),
		DeviceID:     deviceID,
		ReferralCode: models.ReferralCodeFor(id),
		Timestamps:   models.Timestamps{CreatedAt: now, UpdatedAt: now},
		Realm:        optional(in.Realm),
		QuestType:    optional(in.QuestType),
	}

	if in.ReferrerID != "" {
		referrerID, err := s.resolveReferrer(ctx, in.ReferrerID)
		if err != nil {
			return nil, err
		}
		acc.ReferrerID = &referrerID
	}

	if err := s.insertWithReferral(ctx, acc, now); err != nil {
		return nil, err
	}
	s.Log.Info("account created",
		zap.String("account_id", acc.ID),
		zap.String("device_id", acc.DeviceID),
		zap.Bool("referred", acc.ReferrerID != nil))
	return acc, nil
}

// Sync stores an account created client-side. It is idempotent on the account ID: an
// existing row is returned unchanged with created=false.
func (s *AccountService) Sync(ctx context.Context, in SyncAccountInput) (acc *models.Account, created bool, err error) {
	if err := requireFields(map[string]string{
		"account_id":   in.ID,
		"display_name": in.DisplayName,
		"device_id":    in.DeviceID,
	}); err != nil {
		return nil, false, err
	}

	existing, err := s.Get(ctx, in.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	now := s.Clock.Now().UTC()
	createdAt, updatedAt := now, now
	if in.CreatedAt != nil {
		createdAt = in.CreatedAt.UTC()
	}
	if in.UpdatedAt != nil {
		updatedAt = in.UpdatedAt.UTC()
	}
	code := strings.ToUpper(strings.TrimSpace(in.ReferralCode))
	if code == "" {
		code = models.ReferralCodeFor(in.ID)
	}

	acc = &models.Account{
		ID:           in.ID,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		Email:        optional(in.Email),
		DeviceID:     in.DeviceID,
		ReferrerID:   optional(in.ReferrerID),
		ReferralCode: code,
		Timestamps:   models.Timestamps{CreatedAt: createdAt, UpdatedAt: updatedAt},
		Realm:        optional(in.Realm),
		QuestType:    optional(in.QuestType),
	}
	if err := s.insertWithReferral(ctx, acc, now); err != nil {
		return nil, false, err
	}
	s.Log.Info("ephemeral account synced", zap.String("account_id", acc.ID))
	return acc, true, nil
}

func (s *AccountService) insertWithReferral(ctx context.Context, acc *models.Account, now time.Time) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(acc).Error; err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		if acc.ReferrerID == nil {
			return nil
		}

		if err := tx.SavePoint("referral").Error; err != nil {
			return err
		}
		if _, err := createRelationship(tx, acc.ID, *acc.ReferrerID, now); err != nil {
			s.Log.Warn("referral relationship not recorded",
				zap.String("account_id", acc.ID),
				zap.String("referrer_id", *acc.ReferrerID),
				zap.Error(err))
			return tx.RollbackTo("referral").Error
		}
		return nil
	})
}

// resolveReferrer accepts either an account ID or a referral code. Unknown referrers
// are kept verbatim: the referrer may only exist on its own device so far.
func (s *AccountService) resolveReferrer(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	var acc models.Account
	err := s.DB.WithContext(ctx).
		Where("id = ?", ref).
		Or("referral_code = ?", strings.ToUpper(ref)).
		Order("created_at ASC").
		First(&acc).Error
	switch {
	case err == nil:
		return acc.ID, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ref, nil
	default:
		return "", fmt.Errorf("resolve referrer %s: %w", ref, err)
	}
}

// Get returns the account with the given ID.
func (s *AccountService) Get(ctx context.Context, id string) (*models.Account, error) {
	return s.first(ctx, "id = ?", id)
}

// GetByDevice returns the first account created on deviceID.
func (s *AccountService) GetByDevice(ctx context.Context, deviceID string) (*models.Account, error) {
	return s.first(ctx, "device_id = ?", deviceID)
}

// GetByEmail returns the first account registered with email.
func (s *AccountService) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.first(ctx, "email = ?", strings.TrimSpace(email))
}

func (s *AccountService) first(ctx context.Context, query string, arg string) (*models.Account, error) {
	if strings.TrimSpace(arg) == "" {
		return nil, ErrNotFound
	}
	var acc models.Account
	if err := s.DB.WithContext(ctx).Where(query, arg).Order("created_at ASC").First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// Update merges patch into the account and bumps UpdatedAt. Milestone flags only move
// false→true; setting one also records the milestone on the account's own referral.
// A pending claim is set at most once and never after the land was claimed.
func (s *AccountService) Update(ctx context.Context, id string, patch AccountPatch) (*models.Account, error) {
	now := s.Clock.Now().UTC()
	var acc models.Account
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&acc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("account %s: %w", id, ErrNotFound)
			}
			return err
		}
		if patch.PendingLandClaim != nil && (acc.PendingClaim() != nil || acc.LandClaimed) {
			return fmt.Errorf("account %s: %w", id, ErrClaimExists)
		}

		reached := applyPatch(&acc, patch, now)
		acc.UpdatedAt = now
		if err := tx.Save(&acc).Error; err != nil {
			return fmt.Errorf("save account %s: %w", id, err)
		}
		return propagateMilestones(tx, acc.ID, reached...)
	})
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// applyPatch returns the milestones the patch asked to reach.
func applyPatch(acc *models.Account, p AccountPatch, now time.Time) []economy.Milestone {
	if p.DisplayName != nil && strings.TrimSpace(*p.DisplayName) != "" {
		acc.DisplayName = strings.TrimSpace(*p.DisplayName)
	}
	if p.Email != nil {
		acc.Email = optional(*p.Email)
	}
	if p.XP != nil {
		acc.XP = *p.XP
	}
	if p.Reputation != nil {
		acc.Reputation = *p.Reputation
	}
	if p.Realm != nil {
		acc.Realm = optional(*p.Realm)
	}
	if p.QuestType != nil {
		acc.QuestType = optional(*p.QuestType)
	}
	if p.PendingLandClaim != nil {
		pending := *p.PendingLandClaim
		if pending.CreatedAt.IsZero() {
			pending.CreatedAt = now
		}
		acc.SetPendingClaim(&pending)
	}

	var reached []economy.Milestone
	flags := []struct {
		set *bool
		m   economy.Milestone
	}{
		{p.ProfileCompleted, economy.MilestoneProfileCompleted},
		{p.AppDownloaded, economy.MilestoneAppDownloaded},
		{p.LandClaimed, economy.MilestoneLandClaimed},
	}
	for _, f := range flags {
		if f.set == nil || !*f.set {
			continue
		}
		setAccountFlag(acc, f.m)
		reached = append(reached, f.m)
	}
	return reached
}

// Authorize loads the account and checks that deviceID owns it.
func (s *AccountService) Authorize(ctx context.Context, id, deviceID string) (*models.Account, error) {
	acc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if deviceID == "" || acc.DeviceID != deviceID {
		return nil, fmt.Errorf("device %q does not own account %s: %w", deviceID, id, ErrUnauthorized)
	}
	return acc, nil
}

// SetPendingClaim attaches a pending land claim to the account. It fails with
// ErrClaimExists when one is already pending or the land was claimed.
func (s *AccountService) SetPendingClaim(ctx context.Context, id string, amount int64, referrerBonus *int64) (*models.Account, error) {
	return s.Update(ctx, id, AccountPatch{
		PendingLandClaim: &models.PendingLandClaim{
			Amount:        amount,
			ReferrerBonus: referrerBonus,
			CreatedAt:     s.Clock.Now().UTC(),
		},
	})
}

// QuotePendingClaim prices the account's allocation from its referral count and
// attaches it as the pending claim. The referral component doubles as the referrer
// bonus when the account was itself referred.
func (s *AccountService) QuotePendingClaim(ctx context.Context, id string, irlEncounters int64, seasonal bool) (*models.Account, economy.Allocation, error) {
	acc, err := s.Get(ctx, id)
	if err != nil {
		return nil, economy.Allocation{}, err
	}
	referrals, err := countReferrals(s.DB.WithContext(ctx), acc.ID)
	if err != nil {
		return nil, economy.Allocation{}, err
	}

	alloc := economy.CalculateLandAllocation(referrals, irlEncounters, seasonal)
	var bonus *int64
	if acc.ReferrerID != nil {
		b := alloc.Referral
		bonus = &b
	}

	acc, err = s.SetPendingClaim(ctx, id, alloc.Total, bonus)
	if err != nil {
		return nil, economy.Allocation{}, err
	}
	return acc, alloc, nil
}

// Merge promotes an ephemeral account once the app is installed. The permanent account
// is created from the ephemeral one (or flagged when it already exists), a pending
// land claim is carried over when the permanent account can take it, the permanent
// account's pending claim is materialized, and the ephemeral account's referral records
// the appDownloaded milestone. Everything happens in one transaction.
func (s *AccountService) Merge(ctx context.Context, in MergeInput) (*MergeResult, error) {
	if err := requireFields(map[string]string{
		"ephemeral_account_id": in.EphemeralAccountID,
		"permanent_account_id": in.PermanentAccountID,
		"device_id":            in.DeviceID,
	}); err != nil {
		return nil, err
	}

	now := s.Clock.Now().UTC()
	result := &MergeResult{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var eph models.Account
		if err := tx.Where("id = ?", in.EphemeralAccountID).First(&eph).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("ephemeral account %s: %w", in.EphemeralAccountID, ErrNotFound)
			}
			return err
		}
		if eph.DeviceID != in.DeviceID {
			return fmt.Errorf("device %s does not own account %s: %w", in.DeviceID, eph.ID, ErrUnauthorized)
		}

		perm, moved, err := promote(tx, &eph, in.PermanentAccountID, now)
		if err != nil {
			return err
		}
		result.Account = perm

		if perm.PendingClaim() != nil {
			claim, err := materializeClaim(tx, perm, now)
			if err != nil {
				return err
			}
			result.Claim = claim
			if moved && eph.ID != perm.ID {
				if err := propagateMilestones(tx, eph.ID, economy.MilestoneLandClaimed); err != nil {
					return err
				}
			}
		}
		return propagateMilestones(tx, eph.ID, economy.MilestoneAppDownloaded)
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("account merged",
		zap.String("ephemeral_account_id", in.EphemeralAccountID),
		zap.String("permanent_account_id", in.PermanentAccountID),
		zap.Bool("land_claimed", result.Claim != nil))
	return result, nil
}

// promote returns the permanent account for eph, creating it from eph when missing.
// eph's pending claim moves to the permanent account only when that account has none
// and has not claimed land yet; otherwise it stays on eph.
func promote(tx *gorm.DB, eph *models.Account, permanentID string, now time.Time) (perm *models.Account, moved bool, err error) {
	perm = &models.Account{}
	err = tx.Where("id = ?", permanentID).First(perm).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// The referral stays recorded against eph; the copy gets no relationship of
		// its own and a referral code of its own.
		*perm = *eph
		perm.ID = permanentID
		perm.ReferralCode = models.ReferralCodeFor(permanentID)
		perm.AppDownloaded = true
		perm.UpdatedAt = now
		if err := tx.Create(perm).Error; err != nil {
			return nil, false, fmt.Errorf("create permanent account %s: %w", permanentID, err)
		}
		moved = eph.PendingClaim() != nil
	case err != nil:
		return nil, false, err
	default:
		perm.AppDownloaded = true
		if eph.ID != perm.ID && eph.PendingClaim() != nil && perm.PendingClaim() == nil && !perm.LandClaimed {
			perm.SetPendingClaim(eph.PendingClaim())
			moved = true
		}
		perm.UpdatedAt = now
		if err := tx.Save(perm).Error; err != nil {
			return nil, false, fmt.Errorf("save permanent account %s: %w", permanentID, err)
		}
	}

	if eph.ID != perm.ID {
		eph.AppDownloaded = true
		if moved {
			eph.SetPendingClaim(nil)
		}
		eph.UpdatedAt = now
		if err := tx.Save(eph).Error; err != nil {
			return nil, false, fmt.Errorf("save ephemeral account %s: %w", eph.ID, err)
		}
	}
	return perm, moved, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
