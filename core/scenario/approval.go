package scenario

import "sort"

// DefaultThreshold is the usual pass mark, in percent. IsApproved never assumes it:
// it is the default of the app configuration.
const DefaultThreshold = 80.0

type (
	Approval struct {
		Approved   bool    `json:"approved"`
		Percentage float64 `json:"percentage"`
	}

	ApprovalResult struct {
		EarnedPoints    int              `json:"earnedPoints"`
		TotalPoints     int              `json:"totalPoints"`
		Percentage      float64          `json:"percentage"`
		Approved        bool             `json:"approved"`
		SelectedOptions []SelectedOption `json:"selectedOptions"`
	}
)

// IsApproved clamps earned to [0, total] and approves when the percentage reaches threshold.
// A zero total gives 0% (never approved with a positive threshold).
func IsApproved(earned, total int, threshold float64) Approval {
	clamped := earned
	if clamped > total {
		clamped = total
	}
	if clamped < 0 {
		clamped = 0
	}

	var pct float64
	if total > 0 {
		pct = float64(clamped) / float64(total) * 100
	}
	return Approval{Approved: pct >= threshold, Percentage: pct}
}

// Evaluate scores an attempt against the graph and approves it.
// totalMaxScore is the TotalMaxScore of FindOptimalPath(g), usually cached per level.
func Evaluate(g *SceneGraph, totalMaxScore int, a Attempt, threshold float64, opts ...ScoreOption) ApprovalResult {
	score := CalculateUserScore(g, a, opts...)
	approval := IsApproved(score.EarnedPoints, totalMaxScore, threshold)
	return ApprovalResult{
		EarnedPoints:    score.EarnedPoints,
		TotalPoints:     totalMaxScore,
		Percentage:      approval.Percentage,
		Approved:        approval.Approved,
		SelectedOptions: score.SelectedOptions,
	}
}

// CompareAttempts returns -1 when a ranks better than b, 1 when b ranks better and 0 when they are equal.
// Approved attempts rank first, then higher percentages, then more earned points.
func CompareAttempts(a, b ApprovalResult) int {
	switch {
	case a.Approved != b.Approved:
		if a.Approved {
			return -1
		}
		return 1
	case a.Percentage != b.Percentage:
		if a.Percentage > b.Percentage {
			return -1
		}
		return 1
	case a.EarnedPoints != b.EarnedPoints:
		if a.EarnedPoints > b.EarnedPoints {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// SortAttempts sorts results best first. Equal results keep their order.
func SortAttempts(results []ApprovalResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return CompareAttempts(results[i], results[j]) < 0
	})
}

// BestAttempt returns the index of the best result; the earliest one wins ties.
func BestAttempt(results []ApprovalResult) (int, bool) {
	if len(results) == 0 {
		return -1, false
	}
	best := 0
	for i := 1; i < len(results); i++ {
		if CompareAttempts(results[i], results[best]) < 0 {
			best = i
		}
	}
	return best, true
}
