package services

import (
	"context"
	"testing"
	"time"

	"yourland-onboarding/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	db        *gorm.DB
	clock     *clockwork.FakeClock
	accounts  *AccountService
	referrals *ReferralService
	claims    *ClaimService
	invites   *InviteService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Account{},
		&models.ReferralRelationship{},
		&models.LandClaim{},
		&models.LandClaimArchive{},
	))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testStart)
	log := zap.NewNop()
	return &testEnv{
		db:        db,
		clock:     clock,
		accounts:  NewAccountService(db, clock, log),
		referrals: NewReferralService(db, clock, log),
		claims:    NewClaimService(db, clock, log),
		invites:   NewInviteService(db, log),
	}
}

func (e *testEnv) createAccount(t *testing.T, name, referrer string) *models.Account {
	t.Helper()
	acc, err := e.accounts.Create(context.Background(), CreateAccountInput{
		DisplayName: name,
		ReferrerID:  referrer,
		DeviceID:    "device-" + name,
	})
	require.NoError(t, err)
	return acc
}

func (e *testEnv) relationship(t *testing.T, refereeID string) models.ReferralRelationship {
	t.Helper()
	var rel models.ReferralRelationship
	require.NoError(t, e.db.Where("id = ?", refereeID).First(&rel).Error)
	return rel
}

func (e *testEnv) countRelationships(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.ReferralRelationship{}).Count(&n).Error)
	return n
}

func int64Ptr(v int64) *int64 { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }
