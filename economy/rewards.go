package economy

import "fmt"

// Milestone is a one-way progress flag on a referral.
type Milestone string

const (
	MilestoneAccountCreated   Milestone = "accountCreated"
	MilestoneProfileCompleted Milestone = "profileCompleted"
	MilestoneAppDownloaded    Milestone = "appDownloaded"
	MilestoneLandClaimed      Milestone = "landClaimed"
)

// Milestones lists every milestone in progression order.
var Milestones = []Milestone{
	MilestoneAccountCreated,
	MilestoneProfileCompleted,
	MilestoneAppDownloaded,
	MilestoneLandClaimed,
}

// Reward is what a referrer earns when a referee reaches a milestone.
type Reward struct {
	Milestone  Milestone `json:"event"`
	LandAmount int64     `json:"land_amount"`
	XP         int64     `json:"xp"`
}

var referralRewards = map[Milestone]Reward{
	MilestoneAccountCreated:   {Milestone: MilestoneAccountCreated, LandAmount: 10, XP: 50},
	MilestoneProfileCompleted: {Milestone: MilestoneProfileCompleted, LandAmount: 25, XP: 100},
	MilestoneAppDownloaded:    {Milestone: MilestoneAppDownloaded, LandAmount: 50, XP: 200},
	MilestoneLandClaimed:      {Milestone: MilestoneLandClaimed, LandAmount: 100, XP: 500},
}

// ParseMilestone validates a milestone name as sent by clients.
func ParseMilestone(s string) (Milestone, error) {
	m := Milestone(s)
	if _, ok := referralRewards[m]; !ok {
		return "", fmt.Errorf("unknown milestone %q", s)
	}
	return m, nil
}

// RewardFor returns the reward of a milestone. Unknown milestones earn nothing.
func RewardFor(m Milestone) Reward {
	r, ok := referralRewards[m]
	if !ok {
		return Reward{Milestone: m}
	}
	return r
}

// MilestoneLandSum is the land earned by a referral that reaches every milestone.
func MilestoneLandSum() int64 {
	var sum int64
	for _, m := range Milestones {
		sum += referralRewards[m].LandAmount
	}
	return sum
}

// RewardTotals is the sum of land and XP over a set of reached milestones.
type RewardTotals struct {
	Land int64 `json:"total_land"`
	XP   int64 `json:"total_xp"`
}

// TotalReferralRewards sums the rewards of the given milestones.
func TotalReferralRewards(events ...Milestone) RewardTotals {
	var totals RewardTotals
	for _, e := range events {
		r := RewardFor(e)
		totals.Land += r.LandAmount
		totals.XP += r.XP
	}
	return totals
}
