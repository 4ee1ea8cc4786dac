package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"yourland-onboarding/models"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultArchiveBatch = 100

// ObjectStore is where archived claims are written. *utils.R2Client satisfies it.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}

// ClaimArchiver exports land claims to object storage once, recording each export in
// land_claim_archives.
type ClaimArchiver struct {
	DB        *gorm.DB
	Store     ObjectStore
	Clock     clockwork.Clock
	Log       *zap.Logger
	BatchSize int
}

func NewClaimArchiver(db *gorm.DB, store ObjectStore, clock clockwork.Clock, log *zap.Logger) *ClaimArchiver {
	return &ClaimArchiver{
		DB:        db,
		Store:     store,
		Clock:     clock,
		Log:       log.Named("claim-archive"),
		BatchSize: defaultArchiveBatch,
	}
}

// ArchiveKey is the object key of an archived claim.
func ArchiveKey(c models.LandClaim) string {
	return fmt.Sprintf("land-claims/%s/%s.json", c.AccountID, c.ID)
}

// unarchived returns the oldest claims without an archive record.
func (a *ClaimArchiver) unarchived(ctx context.Context) ([]models.LandClaim, error) {
	var claims []models.LandClaim
	err := a.DB.WithContext(ctx).
		Model(&models.LandClaim{}).
		Select("land_claims.*").
		Joins("LEFT JOIN land_claim_archives ON land_claim_archives.claim_id = land_claims.id").
		Where("land_claim_archives.claim_id IS NULL").
		Order("land_claims.claimed_at ASC").
		Limit(a.BatchSize).
		Find(&claims).Error
	return claims, err
}

// ArchivePending uploads one batch of unarchived claims and returns how many were
// archived. A failed upload stops the batch; it is retried on the next run.
func (a *ClaimArchiver) ArchivePending(ctx context.Context) (int, error) {
	claims, err := a.unarchived(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unarchived claims: %w", err)
	}

	archived := 0
	for _, c := range claims {
		body, err := json.Marshal(c)
		if err != nil {
			return archived, fmt.Errorf("encode claim %s: %w", c.ID, err)
		}
		key := ArchiveKey(c)
		if err := a.Store.PutObject(ctx, key, body, "application/json"); err != nil {
			return archived, err
		}

		rec := models.LandClaimArchive{ClaimID: c.ID, ObjectKey: key, ArchivedAt: a.Clock.Now().UTC()}
		if err := a.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error; err != nil {
			return archived, fmt.Errorf("record archive of claim %s: %w", c.ID, err)
		}
		archived++
	}
	return archived, nil
}

// PollClaimArchive runs ArchivePending every pollInterval until ctx is done.
func PollClaimArchive(ctx context.Context, a *ClaimArchiver, pollInterval time.Duration) {
	a.Log.Info("starting land claim archiving", zap.Duration("interval", pollInterval))

	ticker := a.Clock.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.Log.Info("land claim archiving stopped")
			return
		case <-ticker.Chan():
			n, err := a.ArchivePending(ctx)
			if err != nil {
				a.Log.Error("archiving land claims failed", zap.Int("archived", n), zap.Error(err))
				continue
			}
			if n > 0 {
				a.Log.Info("archived land claims", zap.Int("count", n))
			}
		}
	}
}
