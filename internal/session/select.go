package session

import (
	"math/rand"
	"sort"

	"github.com/studyloop/engine/internal/item"
)

// rankItems orders candidates according to the focus strategy and returns
// at most limit of them. The input slice is not modified.
func rankItems(candidates []item.Item, focus Focus, limit int, rng *rand.Rand) []item.Item {
	ranked := make([]item.Item, len(candidates))
	copy(ranked, candidates)

	switch focus {
	case FocusWeakAreas:
		// Worst-performing first. Stable so equal scores keep pool order.
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Stats.AverageScore < ranked[j].Stats.AverageScore
		})
	case FocusRecentContent:
		// Week labels sort lexicographically; newest first.
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Week > ranked[j].Week
		})
	case FocusTailored:
		sort.SliceStable(ranked, func(i, j int) bool {
			return tailoredScore(ranked[i]) > tailoredScore(ranked[j])
		})
	default:
		rng.Shuffle(len(ranked), func(i, j int) {
			ranked[i], ranked[j] = ranked[j], ranked[i]
		})
	}

	if limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked
}

// tailoredScore favors hard items the learner has struggled with:
// difficulty weight plus twice the inverted historical score.
func tailoredScore(it item.Item) float64 {
	return it.Difficulty.Weight() + (1-it.Stats.AverageScore)*2
}
