package services

import (
	"context"
	"testing"
	"time"

	"yourland-onboarding/economy"
	"yourland-onboarding/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessClaim_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	referrer := env.createAccount(t, "referrer", "")
	acc := env.createAccount(t, "claimer", referrer.ID)
	_, err := env.accounts.SetPendingClaim(ctx, acc.ID, 285, int64Ptr(185))
	require.NoError(t, err)

	env.clock.Advance(time.Hour)
	claim, err := env.claims.ProcessClaim(ctx, acc.ID, acc.DeviceID)
	require.NoError(t, err)

	assert.NotEmpty(t, claim.ID)
	assert.Equal(t, acc.ID, claim.AccountID)
	assert.Equal(t, int64(285), claim.Amount)
	assert.Equal(t, int64(185), *claim.ReferrerBonus)
	assert.Equal(t, string(economy.TierRare), claim.Tier)
	assert.True(t, claim.ClaimedAt.Equal(testStart.Add(time.Hour)))

	stored, err := env.accounts.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PendingClaim())
	assert.True(t, stored.LandClaimed)

	assert.True(t, env.relationship(t, acc.ID).Milestones.LandClaimed)
}

func TestProcessClaim_TierFollowsAmount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.createAccount(t, "whale", "")
	_, err := env.accounts.SetPendingClaim(ctx, acc.ID, 520, nil)
	require.NoError(t, err)

	claim, err := env.claims.ProcessClaim(ctx, acc.ID, acc.DeviceID)
	require.NoError(t, err)
	assert.Equal(t, string(economy.TierLegendary), claim.Tier)
	assert.Nil(t, claim.ReferrerBonus)
}

func TestProcessClaim_WrongDevice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.createAccount(t, "claimer", "")
	_, err := env.accounts.SetPendingClaim(ctx, acc.ID, 100, nil)
	require.NoError(t, err)

	_, err = env.claims.ProcessClaim(ctx, acc.ID, "someone-elses-device")
	assert.ErrorIs(t, err, ErrUnauthorized)

	var n int64
	require.NoError(t, env.db.Model(&models.LandClaim{}).Count(&n).Error)
	assert.Zero(t, n)

	stored, err := env.accounts.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.PendingClaim())
	assert.False(t, stored.LandClaimed)
}

func TestProcessClaim_NoPendingClaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.createAccount(t, "claimer", "")

	_, err := env.claims.ProcessClaim(ctx, acc.ID, acc.DeviceID)
	assert.ErrorIs(t, err, ErrNoPendingClaim)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestProcessClaim_OnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.createAccount(t, "claimer", "")
	_, err := env.accounts.SetPendingClaim(ctx, acc.ID, 100, nil)
	require.NoError(t, err)

	_, err = env.claims.ProcessClaim(ctx, acc.ID, acc.DeviceID)
	require.NoError(t, err)
	_, err = env.claims.ProcessClaim(ctx, acc.ID, acc.DeviceID)
	assert.ErrorIs(t, err, ErrNoPendingClaim)

	claims, err := env.claims.ListClaims(ctx, acc.ID)
	require.NoError(t, err)
	assert.Len(t, claims, 1)
}

func TestProcessClaim_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.claims.ProcessClaim(ctx, "missing", "device")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.claims.ProcessClaim(ctx, "missing", "")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestValidateClaim(t *testing.T) {
	svc := &ClaimService{}
	acc := &models.Account{ID: "a", DeviceID: "dev"}

	assert.NoError(t, svc.ValidateClaim(acc, "dev"))
	assert.ErrorIs(t, svc.ValidateClaim(acc, "other"), ErrUnauthorized)
	assert.ErrorIs(t, svc.ValidateClaim(acc, ""), ErrUnauthorized)
}
