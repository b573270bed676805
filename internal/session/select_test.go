package session

import (
	"math/rand"
	"testing"

	"github.com/studyloop/engine/internal/item"
)

func TestRankItems_RecentContentNewestFirst(t *testing.T) {
	ranked := rankItems(testItems(), FocusRecentContent, 10, nil)

	want := []string{"q5", "q4", "q3", "q2", "q1"}
	for i, id := range want {
		if ranked[i].ID != id {
			t.Fatalf("order = %v, want %v", ids(ranked), want)
		}
	}
}

func TestRankItems_TailoredFavorsHardAndStruggled(t *testing.T) {
	ranked := rankItems(testItems(), FocusTailored, 10, nil)

	// q5: 3 + (1-0)*2 = 5.0, q4: 3 + 1.6 = 4.6, q2: 2 + 1.2 = 3.2,
	// q3: 2 + 0.8 = 2.8, q1: 1 + 0.2 = 1.2.
	want := []string{"q5", "q4", "q2", "q3", "q1"}
	for i, id := range want {
		if ranked[i].ID != id {
			t.Fatalf("order = %v, want %v", ids(ranked), want)
		}
	}
}

func TestRankItems_ComprehensiveIsSeededShuffle(t *testing.T) {
	a := rankItems(testItems(), FocusComprehensive, 10, rand.New(rand.NewSource(42)))
	b := rankItems(testItems(), FocusComprehensive, 10, rand.New(rand.NewSource(42)))

	if len(a) != 5 || len(b) != 5 {
		t.Fatalf("lengths = %d, %d, want 5", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("same seed gave different orders: %v vs %v", ids(a), ids(b))
		}
	}

	// Every item appears exactly once.
	seen := make(map[string]bool)
	for _, it := range a {
		if seen[it.ID] {
			t.Fatalf("duplicate item %s in %v", it.ID, ids(a))
		}
		seen[it.ID] = true
	}
}

func TestRankItems_LimitTruncatesAfterRanking(t *testing.T) {
	ranked := rankItems(testItems(), FocusWeakAreas, 2, nil)

	if len(ranked) != 2 {
		t.Fatalf("len = %d, want 2", len(ranked))
	}
	// The two weakest, not the first two of the pool.
	if ranked[0].ID != "q5" || ranked[1].ID != "q4" {
		t.Errorf("order = %v, want [q5 q4]", ids(ranked))
	}
}

func TestRankItems_DoesNotMutateInput(t *testing.T) {
	in := testItems()
	rankItems(in, FocusWeakAreas, 10, nil)

	if in[0].ID != "q1" || in[4].ID != "q5" {
		t.Errorf("input slice reordered: %v", ids(in))
	}
}

func TestRankItems_EqualScoresKeepPoolOrder(t *testing.T) {
	in := []item.Item{
		{ID: "a", Stats: item.Stats{AverageScore: 0.5}},
		{ID: "b", Stats: item.Stats{AverageScore: 0.5}},
		{ID: "c", Stats: item.Stats{AverageScore: 0.5}},
	}
	ranked := rankItems(in, FocusWeakAreas, 10, nil)
	for i, id := range []string{"a", "b", "c"} {
		if ranked[i].ID != id {
			t.Fatalf("stable sort violated: %v", ids(ranked))
		}
	}
}
