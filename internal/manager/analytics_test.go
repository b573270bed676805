package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completedOn builds a minimal completed history entry ending at t.
func completedOn(id string, t time.Time) HistoryEntry {
	return HistoryEntry{
		ID:          id,
		ContentType: ContentCuecards,
		StartedAt:   t.Add(-15 * time.Minute),
		EndedAt:     t,
		Duration:    15 * time.Minute,
		Completed:   true,
		Accuracy:    0.8,
		Score:       0.8,
	}
}

func TestComputeAnalytics_Empty(t *testing.T) {
	a := computeAnalytics(nil, testNow, 1)

	assert.Equal(t, 0, a.TotalSessions)
	assert.Equal(t, -1, a.MostProductiveHour)
	assert.Equal(t, 0, a.CurrentStreak)
	assert.Equal(t, 0, a.LongestStreak)
	assert.Zero(t, a.WeeklyProgress)
}

func TestComputeAnalytics_TypeBreakdown(t *testing.T) {
	history := []HistoryEntry{
		{ContentType: ContentCuecards, StartedAt: testNow, EndedAt: testNow, Duration: 10 * time.Minute, Completed: true, Accuracy: 0.6, Score: 0.6},
		{ContentType: ContentCuecards, StartedAt: testNow, EndedAt: testNow, Duration: 20 * time.Minute, Completed: true, Accuracy: 0.8, Score: 0.8},
		{ContentType: ContentOpenQuestions, StartedAt: testNow, EndedAt: testNow, Duration: 30 * time.Minute, Completed: false, Accuracy: 0.5, Score: 0.5},
	}

	a := computeAnalytics(history, testNow, 1)

	require.Equal(t, 3, a.TotalSessions)
	assert.Equal(t, 2, a.CompletedSessions)
	assert.Equal(t, time.Hour, a.TotalTime)
	assert.InDelta(t, 0.6333, a.AverageAccuracy, 1e-3)

	cc := a.ByContentType[ContentCuecards]
	assert.Equal(t, 2, cc.Count)
	assert.InDelta(t, 0.7, cc.AverageAccuracy, 1e-9)
	assert.Equal(t, 30*time.Minute, cc.TotalTime)

	// Mean of completed durations: (10 + 20) / 2.
	assert.InDelta(t, 15, a.PreferredSessionLength, 1e-9)
}

func TestComputeAnalytics_MostProductiveHour(t *testing.T) {
	at := func(hour int) HistoryEntry {
		start := time.Date(2025, 6, 18, hour, 0, 0, 0, time.UTC)
		return HistoryEntry{StartedAt: start, EndedAt: start}
	}
	history := []HistoryEntry{at(9), at(14), at(14), at(21)}

	a := computeAnalytics(history, testNow, 1)
	assert.Equal(t, 14, a.MostProductiveHour)
}

func TestImprovementTrend(t *testing.T) {
	// Chronological accuracy 0.5, 0.6, 0.7 stored most recent first.
	history := []HistoryEntry{
		{Accuracy: 0.7},
		{Accuracy: 0.6},
		{Accuracy: 0.5},
	}
	assert.InDelta(t, 0.1, improvementTrend(history), 1e-9)

	// Declining accuracy gives a negative slope.
	history = []HistoryEntry{
		{Accuracy: 0.4},
		{Accuracy: 0.9},
	}
	assert.InDelta(t, -0.5, improvementTrend(history), 1e-9)

	assert.Zero(t, improvementTrend([]HistoryEntry{{Accuracy: 0.9}}))
	assert.Zero(t, improvementTrend(nil))
}

func TestCurrentStreak(t *testing.T) {
	day := func(offset int) time.Time {
		return testNow.AddDate(0, 0, offset)
	}

	tests := []struct {
		name string
		days []int
		want int
	}{
		{"three consecutive days", []int{0, -1, -2}, 3},
		{"gap at yesterday", []int{0, -2}, 1},
		{"nothing today, run through yesterday", []int{-1, -2, -3}, 3},
		{"nothing today or yesterday", []int{-2, -3}, 0},
		{"no history", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var history []HistoryEntry
			for i, off := range tt.days {
				history = append(history, completedOn(string(rune('a'+i)), day(off)))
			}
			assert.Equal(t, tt.want, currentStreak(history, testNow))
		})
	}
}

func TestCurrentStreak_IgnoresIncompleteSessions(t *testing.T) {
	abandoned := completedOn("x", testNow)
	abandoned.Completed = false
	history := []HistoryEntry{abandoned, completedOn("y", testNow.AddDate(0, 0, -1))}

	assert.Equal(t, 1, currentStreak(history, testNow))
}

func TestLongestStreak(t *testing.T) {
	day := func(offset int) time.Time {
		return testNow.AddDate(0, 0, offset)
	}

	// Runs: {-9..-7} length 3, {-4,-3} length 2, {0} length 1.
	var history []HistoryEntry
	for i, off := range []int{-9, -8, -7, -4, -3, 0} {
		history = append(history, completedOn(string(rune('a'+i)), day(off)))
	}
	assert.Equal(t, 3, longestStreak(history))

	// Multiple sessions on one day count as a single streak day.
	history = []HistoryEntry{
		completedOn("x", testNow),
		completedOn("y", testNow.Add(2*time.Hour)),
	}
	assert.Equal(t, 1, longestStreak(history))
}

func TestWeeklyProgress(t *testing.T) {
	// testNow is Wednesday 2025-06-18; the week runs Sunday 06-15
	// through Saturday 06-21.
	inWeek := completedOn("a", testNow)
	alsoInWeek := completedOn("b", testNow.AddDate(0, 0, -2))
	lastWeek := completedOn("c", testNow.AddDate(0, 0, -7))

	history := []HistoryEntry{inWeek, alsoInWeek, lastWeek}

	// Goal 1/day: 2 of 7 expected sessions done.
	assert.InDelta(t, 100.0*2/7, weeklyProgress(history, testNow, 1), 1e-9)
	assert.Zero(t, weeklyProgress(history, testNow, 0))
}

func TestWeeklyProgress_ClampsAt100(t *testing.T) {
	var history []HistoryEntry
	for i := 0; i < 10; i++ {
		history = append(history, completedOn(string(rune('a'+i)), testNow))
	}
	assert.Equal(t, float64(100), weeklyProgress(history, testNow, 1))
}
