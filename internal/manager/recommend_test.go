package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyloop/engine/internal/item"
	"github.com/studyloop/engine/internal/session"
)

func entryWithTopic(ct ContentType, topic string, score float64, count int) HistoryEntry {
	return HistoryEntry{
		ContentType: ct,
		StartedAt:   testNow,
		EndedAt:     testNow,
		Completed:   true,
		Accuracy:    score,
		Score:       score,
		Performance: session.Performance{
			TopicBreakdown: map[string]session.TopicStat{
				topic: {GroupStat: session.GroupStat{Count: count, AverageScore: score}},
			},
		},
	}
}

func TestGenerateRecommendations_AtMostThree(t *testing.T) {
	// Weak topic plus three underrepresented types would give four.
	m := New(WithClock(fixedClock(testNow)))
	m.mu.Lock()
	m.history = []HistoryEntry{entryWithTopic(ContentOpenQuestions, "thermodynamics", 0.3, 4)}
	m.mu.Unlock()

	recs := m.GenerateRecommendations()
	require.LessOrEqual(t, len(recs), 3)
	require.NotEmpty(t, recs)
	assert.Equal(t, PriorityHigh, recs[0].Priority)
	assert.Equal(t, session.FocusWeakAreas, recs[0].Config.Focus)
	assert.Contains(t, recs[0].Reason, "thermodynamics")
}

func TestGenerateRecommendations_WeakestTopicWins(t *testing.T) {
	m := New(WithClock(fixedClock(testNow)))
	m.mu.Lock()
	m.history = []HistoryEntry{
		entryWithTopic(ContentOpenQuestions, "genetics", 0.55, 3),
		entryWithTopic(ContentCuecards, "cells", 0.25, 3),
		entryWithTopic(ContentOpenQuestions, "energy", 0.85, 3),
	}
	m.mu.Unlock()

	recs := m.GenerateRecommendations()
	require.NotEmpty(t, recs)
	assert.Contains(t, recs[0].Reason, "cells")
	assert.Equal(t, ContentCuecards, recs[0].ContentType)
}

func TestGenerateRecommendations_NoWeakTopicAboveThreshold(t *testing.T) {
	m := New(WithClock(fixedClock(testNow)))
	m.mu.Lock()
	m.history = []HistoryEntry{entryWithTopic(ContentCuecards, "cells", 0.9, 5)}
	m.mu.Unlock()

	recs := m.GenerateRecommendations()
	for _, r := range recs {
		assert.NotEqual(t, session.FocusWeakAreas, r.Config.Focus,
			"no weak-areas recommendation when every topic scores well")
	}
}

func TestGenerateRecommendations_RebalancesNeglectedTypes(t *testing.T) {
	m := New(WithClock(fixedClock(testNow)))
	m.mu.Lock()
	// Ten cuecards sessions, nothing else: the other two types are
	// below their share thresholds.
	for i := 0; i < 10; i++ {
		m.history = append(m.history, completedOn(string(rune('a'+i)), testNow))
	}
	m.mu.Unlock()

	recs := m.GenerateRecommendations()
	types := make(map[ContentType]bool)
	for _, r := range recs {
		types[r.ContentType] = true
	}
	assert.True(t, types[ContentMultipleChoice], "multiple-choice below 30%% share")
	assert.True(t, types[ContentOpenQuestions], "open-questions below 20%% share")
	assert.False(t, types[ContentCuecards], "cuecards at 100%% share needs no rebalance")
}

func TestGenerateRecommendations_ProductiveHourSuggestsHarder(t *testing.T) {
	// History concentrated at 14:00; "now" is 14:30.
	var history []HistoryEntry
	for i := 0; i < 4; i++ {
		e := completedOn(string(rune('a'+i)), testNow)
		e.Accuracy, e.Score = 0.9, 0.9
		history = append(history, e)
	}
	// Balance type shares so only the productive-hour rule can fire.
	history[1].ContentType = ContentMultipleChoice
	history[2].ContentType = ContentOpenQuestions
	history[3].ContentType = ContentOpenQuestions

	m := New(WithClock(fixedClock(testNow)))
	m.mu.Lock()
	m.history = history
	m.mu.Unlock()

	recs := m.GenerateRecommendations()
	require.NotEmpty(t, recs)

	var found bool
	for _, r := range recs {
		if r.Config.Difficulty == item.DifficultyHard {
			found = true
			assert.Equal(t, PriorityHigh, r.Priority)
		}
	}
	assert.True(t, found, "expected a harder-session recommendation inside the productive window")
}

func TestWithinProductiveWindow(t *testing.T) {
	at := func(hour int) time.Time {
		return time.Date(2025, 6, 18, hour, 0, 0, 0, time.UTC)
	}
	assert.True(t, withinProductiveWindow(at(14), 14))
	assert.True(t, withinProductiveWindow(at(16), 14))
	assert.True(t, withinProductiveWindow(at(12), 14))
	assert.False(t, withinProductiveWindow(at(18), 14))
	// Wraps around midnight.
	assert.True(t, withinProductiveWindow(at(23), 1))
	assert.True(t, withinProductiveWindow(at(0), 23))
}

func TestGenerateRecommendations_EmptyHistory(t *testing.T) {
	m := New(WithClock(fixedClock(testNow)))

	recs := m.GenerateRecommendations()
	// All three types are at zero share, so each gets a medium-priority
	// starter recommendation.
	require.Len(t, recs, 3)
	for _, r := range recs {
		assert.Equal(t, PriorityMedium, r.Priority)
		assert.Positive(t, r.Config.NumQuestions)
		assert.Positive(t, r.EstimatedDuration)
	}
}
