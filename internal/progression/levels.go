package progression

import "focusvillage/backend/internal/model"

// minLongFocusMinutes is the per-session duration filter used by the tier 4
// unlock. Every other tier reads cumulative totals only; tier 4 counting
// individual qualifying sessions is inherited product behavior kept as-is
// pending clarification, not a rule to generalize.
const minLongFocusMinutes = 25

type levelTier struct {
	level    int
	unlocked func(p *model.Profile) bool
}

// levelTable holds the unlock predicate per tier, ascending. All thresholds
// are inclusive: a profile exactly at a threshold qualifies.
var levelTable = []levelTier{
	{2, func(p *model.Profile) bool {
		return p.TotalFocusMinutes >= 25 && p.CompletedTaskCount >= 3
	}},
	{3, func(p *model.Profile) bool {
		return p.TotalFocusMinutes >= 120 && p.CompletedTaskCount >= 10
	}},
	{4, func(p *model.Profile) bool {
		return p.TotalFocusMinutes >= 300 && countLongFocusSessions(p) >= 10
	}},
	{5, func(p *model.Profile) bool {
		return p.TotalFocusMinutes >= 600 && p.CompletedTaskCount >= 30
	}},
	{6, func(p *model.Profile) bool {
		return p.TotalFocusMinutes >= 1200 && p.CompletedTaskCount >= 60
	}},
}

// EvaluateLevel returns the highest level reachable from the profile's
// current level by walking the tiers in order. It stops at the first unmet
// predicate, never skips a tier, and never goes below the current level.
func EvaluateLevel(p *model.Profile) int {
	level := p.Level
	if level < 1 {
		level = 1
	}
	for _, tier := range levelTable {
		if tier.level != level+1 {
			continue
		}
		if !tier.unlocked(p) {
			break
		}
		level = tier.level
	}
	return level
}

func countLongFocusSessions(p *model.Profile) int {
	count := 0
	for _, record := range p.SessionHistory {
		if record.Kind == model.ModeFocus && record.DurationMinutes >= minLongFocusMinutes {
			count++
		}
	}
	return count
}

// harvestTier maps a village tier to its resource cost, the inventory item
// it yields, and the one-time experience reward. Tier 1 is the free
// starter item, claimable once.
type harvestTier struct {
	Kind   string
	Cost   int
	Reward int
}

var harvestTiers = map[int]harvestTier{
	1: {Kind: "sprout", Cost: 0, Reward: 10},
	2: {Kind: "wheat", Cost: 50, Reward: 25},
	3: {Kind: "pumpkin", Cost: 120, Reward: 60},
	4: {Kind: "apple_tree", Cost: 250, Reward: 140},
	5: {Kind: "windmill", Cost: 500, Reward: 300},
	6: {Kind: "golden_ox", Cost: 1000, Reward: 650},
}
