package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateLandAllocation_Defaults(t *testing.T) {
	got := CalculateLandAllocation(0, 0, false)

	assert.Equal(t, Allocation{Base: 100, Referral: 0, IRL: 0, Seasonal: 0, Total: 100, Tier: TierCommon}, got)
}

func TestCalculateLandAllocation_OneReferral(t *testing.T) {
	got := CalculateLandAllocation(1, 0, false)

	assert.Equal(t, int64(185), got.Referral)
	assert.Equal(t, int64(285), got.Total)
	assert.Equal(t, TierRare, got.Tier)
}

func TestCalculateLandAllocation_SeasonalBoundary(t *testing.T) {
	got := CalculateLandAllocation(0, 0, true)

	assert.Equal(t, int64(50), got.Seasonal)
	assert.Equal(t, int64(150), got.Total)
	assert.Equal(t, TierUncommon, got.Tier)
}

func TestCalculateLandAllocation_IRLEncounters(t *testing.T) {
	got := CalculateLandAllocation(0, 4, false)

	assert.Equal(t, int64(60), got.IRL)
	assert.Equal(t, int64(160), got.Total)
	assert.Equal(t, TierUncommon, got.Tier)
}

func TestCalculateLandAllocation_SumsComponents(t *testing.T) {
	for referrals := int64(0); referrals <= 5; referrals++ {
		for irl := int64(0); irl <= 20; irl += 3 {
			for _, seasonal := range []bool{false, true} {
				a := CalculateLandAllocation(referrals, irl, seasonal)
				assert.Equal(t, a.Base+a.Referral+a.IRL+a.Seasonal, a.Total)
				assert.Equal(t, TierForTotal(a.Total), a.Tier)
			}
		}
	}
}

func TestTierForTotal_Boundaries(t *testing.T) {
	cases := []struct {
		total int64
		want  Tier
	}{
		{-10, TierCommon},
		{149, TierCommon},
		{150, TierUncommon},
		{199, TierUncommon},
		{200, TierRare},
		{299, TierRare},
		{300, TierEpic},
		{499, TierEpic},
		{500, TierLegendary},
		{10000, TierLegendary},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TierForTotal(tc.total), "total=%d", tc.total)
	}
}

func TestTierForTotal_Monotonic(t *testing.T) {
	rank := map[Tier]int{TierCommon: 0, TierUncommon: 1, TierRare: 2, TierEpic: 3, TierLegendary: 4}
	prev := rank[TierForTotal(0)]
	for total := int64(1); total <= 700; total++ {
		cur := rank[TierForTotal(total)]
		require.GreaterOrEqual(t, cur, prev, "tier decreased at total=%d", total)
		prev = cur
	}
}

func TestInfo(t *testing.T) {
	info := Info(TierLegendary)
	assert.Equal(t, "Legendary", info.Name)
	assert.Equal(t, 5.0, info.Multiplier)

	fallback := Info(Tier("starter"))
	assert.Equal(t, TierCommon, fallback.Tier)
	assert.Equal(t, "Common", fallback.Name)
}

func TestParseTier(t *testing.T) {
	tier, ok := ParseTier(" epic ")
	assert.True(t, ok)
	assert.Equal(t, TierEpic, tier)

	_, ok = ParseTier("starter")
	assert.False(t, ok)
}
