package economy

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BaseLandAllocation is granted to every account on its first claim.
const BaseLandAllocation int64 = 100

// IRLEncounterBonus is granted per in-person (Bluetooth) encounter.
const IRLEncounterBonus int64 = 15

// SeasonalExpansion is added when a seasonal bonus is active.
const SeasonalExpansion int64 = 50

// Tier is the rarity label derived from a land total.
type Tier string

const (
	TierCommon    Tier = "COMMON"
	TierUncommon  Tier = "UNCOMMON"
	TierRare      Tier = "RARE"
	TierEpic      Tier = "EPIC"
	TierLegendary Tier = "LEGENDARY"
)

// TierInfo is the cosmetic metadata attached to a tier.
type TierInfo struct {
	Tier       Tier    `json:"tier"`
	Name       string  `json:"name"`
	Multiplier float64 `json:"multiplier"`
	Color      string  `json:"color"`
}

// tierThresholds is ordered from the highest threshold down; the first match wins.
var tierThresholds = []struct {
	min  int64
	tier Tier
}{
	{500, TierLegendary},
	{300, TierEpic},
	{200, TierRare},
	{150, TierUncommon},
}

var tierInfo = map[Tier]TierInfo{
	TierCommon:    {Tier: TierCommon, Multiplier: 1, Color: "#8BA888"},
	TierUncommon:  {Tier: TierUncommon, Multiplier: 1.5, Color: "#60efff"},
	TierRare:      {Tier: TierRare, Multiplier: 2, Color: "#00ff87"},
	TierEpic:      {Tier: TierEpic, Multiplier: 3, Color: "#D87A5A"},
	TierLegendary: {Tier: TierLegendary, Multiplier: 5, Color: "#FF6B6B"},
}

// Allocation is the breakdown of a land allocation.
type Allocation struct {
	Base     int64 `json:"base"`
	Referral int64 `json:"referral"`
	IRL      int64 `json:"irl"`
	Seasonal int64 `json:"seasonal"`
	Total    int64 `json:"total"`
	Tier     Tier  `json:"tier"`
}

// CalculateLandAllocation maps activity counters to a land allocation.
//
// Every referral is counted at the full value of all milestones, whether or not the
// referee has reached them yet. Negative inputs are not rejected.
func CalculateLandAllocation(referralCount, irlEncounters int64, seasonalBonus bool) Allocation {
	referral := referralCount * MilestoneLandSum()
	irl := irlEncounters * IRLEncounterBonus

	var seasonal int64
	if seasonalBonus {
		seasonal = SeasonalExpansion
	}

	total := BaseLandAllocation + referral + irl + seasonal
	return Allocation{
		Base:     BaseLandAllocation,
		Referral: referral,
		IRL:      irl,
		Seasonal: seasonal,
		Total:    total,
		Tier:     TierForTotal(total),
	}
}

// TierForTotal returns the tier for a land total.
func TierForTotal(total int64) Tier {
	for _, t := range tierThresholds {
		if total >= t.min {
			return t.tier
		}
	}
	return TierCommon
}

// Info returns display metadata for a tier. Unknown tiers fall back to COMMON.
func Info(t Tier) TierInfo {
	info, ok := tierInfo[t]
	if !ok {
		info = tierInfo[TierCommon]
	}
	info.Name = cases.Title(language.English).String(strings.ToLower(string(info.Tier)))
	return info
}

// ParseTier validates a stored tier label.
func ParseTier(s string) (Tier, bool) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := tierInfo[t]
	return t, ok
}
