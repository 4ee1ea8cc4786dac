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

func TestCreateRelationship_ConflictOnDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rel, err := env.referrals.CreateRelationship(ctx, "referee", "referrer", testStart)
	require.NoError(t, err)
	assert.Equal(t, models.Milestones{AccountCreated: true}, rel.Milestones)

	_, err = env.referrals.CreateRelationship(ctx, "referee", "someone-else", testStart)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "referrer", env.relationship(t, "referee").ReferrerID)
}

func TestCreateRelationship_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.referrals.CreateRelationship(ctx, "", "referrer", testStart)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"referee_id"}, verr.Fields)

	_, err = env.referrals.CreateRelationship(ctx, "same", "same", testStart)
	assert.ErrorAs(t, err, &verr)
}

func TestRecordMilestone_MirrorsOnAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	referrer := env.createAccount(t, "referrer", "")
	b := env.createAccount(t, "b", referrer.ID)

	env.clock.Advance(time.Minute)
	rel, err := env.referrals.RecordMilestone(ctx, b.ID, economy.MilestoneProfileCompleted)
	require.NoError(t, err)
	assert.True(t, rel.Milestones.ProfileCompleted)

	acc, err := env.accounts.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, acc.ProfileCompleted)
	assert.True(t, acc.UpdatedAt.Equal(testStart.Add(time.Minute)))

	// Recording again is a no-op.
	rel, err = env.referrals.RecordMilestone(ctx, b.ID, economy.MilestoneProfileCompleted)
	require.NoError(t, err)
	assert.True(t, rel.Milestones.ProfileCompleted)
}

func TestRecordMilestone_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.referrals.RecordMilestone(ctx, "nobody", economy.MilestoneAppDownloaded)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.referrals.RecordMilestone(ctx, "nobody", economy.Milestone("levelUp"))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestTrackEvent_ReferrerMustMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	referrer := env.createAccount(t, "referrer", "")
	b := env.createAccount(t, "b", referrer.ID)

	_, err := env.referrals.TrackEvent(ctx, "impostor", b.ID, economy.MilestoneAppDownloaded)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, env.relationship(t, b.ID).Milestones.AppDownloaded)

	rel, err := env.referrals.TrackEvent(ctx, referrer.ID, b.ID, economy.MilestoneAppDownloaded)
	require.NoError(t, err)
	assert.True(t, rel.Milestones.AppDownloaded)
}

func TestLandClaimedMilestone_LeavesSiblingsAlone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	referrer := env.createAccount(t, "referrer", "")
	b := env.createAccount(t, "b", referrer.ID)
	c := env.createAccount(t, "c", referrer.ID)
	d := env.createAccount(t, "d", referrer.ID)

	_, err := env.referrals.RecordMilestone(ctx, c.ID, economy.MilestoneLandClaimed)
	require.NoError(t, err)

	assert.True(t, env.relationship(t, c.ID).Milestones.LandClaimed)
	assert.Equal(t, models.Milestones{AccountCreated: true}, env.relationship(t, b.ID).Milestones)
	assert.Equal(t, models.Milestones{AccountCreated: true}, env.relationship(t, d.ID).Milestones)
}

func TestListByReferrerAndStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	referrer := env.createAccount(t, "referrer", "")
	b := env.createAccount(t, "b", referrer.ID)
	env.clock.Advance(time.Second)
	env.createAccount(t, "c", referrer.ID)
	env.createAccount(t, "unrelated", "")

	_, err := env.referrals.RecordMilestone(ctx, b.ID, economy.MilestoneProfileCompleted)
	require.NoError(t, err)

	rels, err := env.referrals.ListByReferrer(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Len(t, rels, 2)

	n, err := env.referrals.CountByReferrer(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	stats, err := env.referrals.Stats(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ReferralCount)
	assert.Equal(t, economy.RewardTotals{Land: 10 + 25 + 10, XP: 50 + 100 + 50}, stats.Earned)

	empty, err := env.referrals.Stats(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, empty.ReferralCount)
	assert.Equal(t, economy.RewardTotals{}, empty.Earned)
}
