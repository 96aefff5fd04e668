package domain

import "math"

// Tier is a contiguous band of point totals mapping to a displayed rank.
type Tier struct {
	Name      string
	MinPoints int
	MaxPoints int // inclusive; the top tier is open-ended
}

// Tiers is ordered by MinPoints ascending. Bands must not overlap or leave gaps.
var Tiers = []Tier{
	{Name: "bronze", MinPoints: 0, MaxPoints: 24},
	{Name: "silver", MinPoints: 25, MaxPoints: 49},
	{Name: "gold", MinPoints: 50, MaxPoints: 99},
	{Name: "platinum", MinPoints: 100, MaxPoints: 249},
	{Name: "diamond", MinPoints: 250, MaxPoints: math.MaxInt},
}

// TierFor returns the highest tier whose range contains totalPoints.
func TierFor(totalPoints int) Tier {
	current := Tiers[0]
	for _, t := range Tiers {
		if totalPoints >= t.MinPoints {
			current = t
		}
	}
	return current
}

// BonusAttempts derives extra contest participations from a point total alone.
// Milestones: +1 at 25, +2 total at 50, +3 total at 100, then +1 for every
// further full 25 points. Recomputing from the same total always yields the
// same value; no delta state is kept anywhere.
func BonusAttempts(totalPoints int) int {
	switch {
	case totalPoints < 25:
		return 0
	case totalPoints < 50:
		return 1
	case totalPoints < 100:
		return 2
	default:
		return 3 + (totalPoints-100)/25
	}
}

// ApplyAward folds one ledger entry into an aggregate and rederives rank and
// bonus attempts. Pure; stores call it inside their atomic section.
func ApplyAward(agg RewardAggregate, e LedgerEntry) RewardAggregate {
	agg.UserID = e.UserID
	agg.TotalPoints += e.Points
	agg.CurrentStreak = e.Streak
	if e.Streak > agg.BestStreak {
		agg.BestStreak = e.Streak
	}
	agg.CurrentRank = TierFor(agg.TotalPoints).Name
	agg.ExtraParticipations = BonusAttempts(agg.TotalPoints)
	return agg
}

// ScorePercent converts correct first attempts over total questions into the
// 0..100 participation score, rounded to the nearest integer.
func ScorePercent(correctFirstAttempts, totalQuestions int) int {
	if totalQuestions <= 0 {
		return 0
	}
	return int(math.Round(float64(correctFirstAttempts) / float64(totalQuestions) * 100))
}
