package training

import (
	"sort"
	"strconv"
	"strings"
)

// DuplicateLevelNumbers returns, ascending, the candidate level numbers already used by existing levels
// or repeated within candidates.
func DuplicateLevelNumbers(existing []Level, candidates []NewLevel) []int {
	taken := make(map[int]bool, len(existing))
	for _, lvl := range existing {
		taken[lvl.LevelNumber] = true
	}

	seen := make(map[int]bool, len(candidates))
	dupSet := make(map[int]bool)
	for _, nl := range candidates {
		if taken[nl.LevelNumber] || seen[nl.LevelNumber] {
			dupSet[nl.LevelNumber] = true
		}
		seen[nl.LevelNumber] = true
	}

	dups := make([]int, 0, len(dupSet))
	for n := range dupSet {
		dups = append(dups, n)
	}
	sort.Ints(dups)
	return dups
}

// DuplicateLevelNumbersMessage describes duplicated level numbers; it is empty when there are none.
func DuplicateLevelNumbersMessage(dups []int) string {
	if len(dups) == 0 {
		return ""
	}
	nums := make([]string, 0, len(dups))
	for _, n := range dups {
		nums = append(nums, strconv.Itoa(n))
	}
	return "duplicate level numbers: " + strings.Join(nums, ", ")
}
