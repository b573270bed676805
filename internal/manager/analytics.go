package manager

import (
	"sort"
	"time"
)

// CalculateAnalytics recomputes the cross-session summary wholesale
// from history and caches it. Incremental patching is deliberately
// avoided so the summary can never drift from its source.
func (m *Manager) CalculateAnalytics() Analytics {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.analytics = m.computeAnalyticsLocked()
	return m.analytics
}

func (m *Manager) computeAnalyticsLocked() Analytics {
	return computeAnalytics(m.history, m.now(), m.prefs.DailyGoal)
}

// computeAnalytics derives all cross-session metrics from the history
// list, most recent first.
func computeAnalytics(history []HistoryEntry, now time.Time, dailyGoal int) Analytics {
	a := Analytics{
		TotalSessions:      len(history),
		MostProductiveHour: -1,
		GeneratedAt:        now,
	}
	if len(history) == 0 {
		return a
	}

	byType := make(map[ContentType]*TypeStats)
	hourCounts := make(map[int]int)
	var accuracySum float64
	var completedMinutes float64

	for _, e := range history {
		a.TotalTime += e.Duration
		accuracySum += e.Accuracy
		hourCounts[e.StartedAt.Hour()]++

		ts := byType[e.ContentType]
		if ts == nil {
			ts = &TypeStats{}
			byType[e.ContentType] = ts
		}
		ts.Count++
		ts.AverageAccuracy += e.Accuracy
		ts.AverageScore += e.Score
		ts.TotalTime += e.Duration

		if e.Completed {
			a.CompletedSessions++
			completedMinutes += e.Duration.Minutes()
		}
	}

	a.AverageAccuracy = accuracySum / float64(len(history))
	a.ByContentType = make(map[ContentType]TypeStats, len(byType))
	for ct, ts := range byType {
		n := float64(ts.Count)
		a.ByContentType[ct] = TypeStats{
			Count:           ts.Count,
			AverageAccuracy: ts.AverageAccuracy / n,
			AverageScore:    ts.AverageScore / n,
			TotalTime:       ts.TotalTime,
		}
	}

	a.MostProductiveHour = modeHour(hourCounts)
	if a.CompletedSessions > 0 {
		a.PreferredSessionLength = completedMinutes / float64(a.CompletedSessions)
	}
	a.ImprovementTrend = improvementTrend(history)
	a.CurrentStreak = currentStreak(history, now)
	a.LongestStreak = longestStreak(history)
	a.WeeklyProgress = weeklyProgress(history, now, dailyGoal)
	return a
}

// modeHour returns the most common start hour, smallest hour on ties.
func modeHour(counts map[int]int) int {
	best, bestCount := -1, 0
	for h := 0; h < 24; h++ {
		if counts[h] > bestCount {
			best, bestCount = h, counts[h]
		}
	}
	return best
}

// improvementTrend fits accuracy against chronological session index
// with ordinary least squares and returns the slope. Fewer than two
// sessions give 0.
func improvementTrend(history []HistoryEntry) float64 {
	n := len(history)
	if n < 2 {
		return 0
	}

	// History is most recent first; index chronologically.
	var sumX, sumY, sumXY, sumXX float64
	for i := 0; i < n; i++ {
		x := float64(i)
		y := history[n-1-i].Accuracy
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (fn*sumXY - sumX*sumY) / denom
}

// completedDays returns the set of local calendar days holding at least
// one completed session.
func completedDays(history []HistoryEntry) map[time.Time]bool {
	days := make(map[time.Time]bool)
	for _, e := range history {
		if e.Completed {
			days[dayOf(e.EndedAt)] = true
		}
	}
	return days
}

// currentStreak counts consecutive calendar days ending today (or
// yesterday, when today has no completed session yet) with at least one
// completed session.
func currentStreak(history []HistoryEntry, now time.Time) int {
	days := completedDays(history)
	if len(days) == 0 {
		return 0
	}

	day := dayOf(now)
	if !days[day] {
		day = day.AddDate(0, 0, -1)
		if !days[day] {
			return 0
		}
	}

	streak := 0
	for days[day] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// longestStreak scans the completed-session days chronologically; a
// day-to-day gap of exactly one calendar day extends the run, anything
// larger resets it.
func longestStreak(history []HistoryEntry) int {
	daySet := completedDays(history)
	if len(daySet) == 0 {
		return 0
	}

	days := make([]time.Time, 0, len(daySet))
	for d := range daySet {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) <= 36*time.Hour {
			// Adjacent calendar days, DST shifts included.
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// weeklyProgress reports completed sessions in the current Sunday-based
// week against dailyGoal x 7, clamped to 100.
func weeklyProgress(history []HistoryEntry, now time.Time, dailyGoal int) float64 {
	if dailyGoal <= 0 {
		return 0
	}

	weekStart := dayOf(now).AddDate(0, 0, -int(now.Weekday()))
	weekEnd := weekStart.AddDate(0, 0, 7)

	completed := 0
	for _, e := range history {
		if e.Completed && !e.EndedAt.Before(weekStart) && e.EndedAt.Before(weekEnd) {
			completed++
		}
	}
	return min(100, float64(completed)/float64(dailyGoal*7)*100)
}
