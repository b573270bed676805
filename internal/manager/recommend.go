package manager

import (
	"fmt"
	"time"

	"github.com/studyloop/engine/internal/item"
	"github.com/studyloop/engine/internal/session"
)

const maxRecommendations = 3

// weakTopicThreshold is the average score below which a topic counts as
// a weakness worth targeting.
const weakTopicThreshold = 0.6

// typeShareThreshold is the share of total sessions below which a
// content type counts as neglected.
var typeShareThreshold = map[ContentType]float64{
	ContentCuecards:       0.30,
	ContentMultipleChoice: 0.30,
	ContentOpenQuestions:  0.20,
}

// defaultFocus is each content type's natural selection strategy.
var defaultFocus = map[ContentType]session.Focus{
	ContentCuecards:       session.FocusRecentContent,
	ContentMultipleChoice: session.FocusComprehensive,
	ContentOpenQuestions:  session.FocusTailored,
}

// estimatedDuration is a rough per-type session length used to set
// expectations in recommendations.
var estimatedDuration = map[ContentType]time.Duration{
	ContentCuecards:       10 * time.Minute,
	ContentMultipleChoice: 15 * time.Minute,
	ContentOpenQuestions:  20 * time.Minute,
}

// GenerateRecommendations produces at most three ranked suggestions for
// the next session: target the weakest topic, rebalance neglected
// content types, and exploit the user's most productive hours.
// Heuristic and ephemeral; regenerated on every call.
func (m *Manager) GenerateRecommendations() []Recommendation {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recommendations = m.generateRecommendationsLocked()
	out := make([]Recommendation, len(m.recommendations))
	copy(out, m.recommendations)
	return out
}

func (m *Manager) generateRecommendationsLocked() []Recommendation {
	var recs []Recommendation
	numQuestions := m.prefs.DefaultNumQuestions
	if numQuestions <= 0 {
		numQuestions = 10
	}

	if topic, ct, score, ok := weakestTopic(m.history); ok {
		recs = append(recs, Recommendation{
			ContentType: ct,
			Config: session.Config{
				ContentType:  string(ct),
				Focus:        session.FocusWeakAreas,
				NumQuestions: numQuestions,
			},
			Reason:            fmt.Sprintf("Your average score on %s is %.0f%%. Focused practice closes weak spots fastest.", topic, score*100),
			EstimatedDuration: estimatedDuration[ct],
			Priority:          PriorityHigh,
			Benefits:          []string{"Targets your lowest-scoring topic", "Weak-area ordering serves the hardest material first"},
		})
	}

	for _, ct := range ContentTypes {
		if len(recs) >= maxRecommendations {
			break
		}
		share := typeShare(m.history, ct)
		if share >= typeShareThreshold[ct] {
			continue
		}
		recs = append(recs, Recommendation{
			ContentType: ct,
			Config: session.Config{
				ContentType:  string(ct),
				Focus:        defaultFocus[ct],
				NumQuestions: numQuestions,
			},
			Reason:            fmt.Sprintf("Only %.0f%% of your sessions are %s. Mixing formats strengthens recall.", share*100, ct),
			EstimatedDuration: estimatedDuration[ct],
			Priority:          PriorityMedium,
			Benefits:          []string{"Balances your practice across formats"},
		})
	}

	if len(recs) < maxRecommendations {
		if hour := modeHourOf(m.history); hour >= 0 && withinProductiveWindow(m.now(), hour) {
			ct := ContentOpenQuestions
			recs = append(recs, Recommendation{
				ContentType: ct,
				Config: session.Config{
					ContentType:  string(ct),
					Difficulty:   item.DifficultyHard,
					Focus:        session.FocusTailored,
					NumQuestions: numQuestions,
				},
				Reason:            fmt.Sprintf("You study best around %02d:00. Use the window for harder material.", hour),
				EstimatedDuration: estimatedDuration[ct],
				Priority:          PriorityHigh,
				Benefits:          []string{"Hard questions during your peak hours", "Tailored ordering matches difficulty to your history"},
			})
		}
	}

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

// weakestTopic finds the lowest-scoring topic across archived session
// performance, together with the content type it was most recently
// practiced under.
func weakestTopic(history []HistoryEntry) (topic string, ct ContentType, score float64, ok bool) {
	type acc struct {
		sum   float64
		count int
		ct    ContentType
	}
	topics := make(map[string]*acc)

	// Most recent first, so the first sighting records the latest type.
	for _, e := range history {
		for name, ts := range e.Performance.TopicBreakdown {
			if name == "" {
				continue
			}
			a := topics[name]
			if a == nil {
				a = &acc{ct: e.ContentType}
				topics[name] = a
			}
			a.sum += ts.AverageScore * float64(ts.Count)
			a.count += ts.Count
		}
	}

	best := 1.0
	for name, a := range topics {
		avg := a.sum / float64(a.count)
		if avg < best || (avg == best && name < topic) {
			topic, ct, best = name, a.ct, avg
		}
	}
	if topic == "" || best >= weakTopicThreshold {
		return "", "", 0, false
	}
	return topic, ct, best, true
}

// typeShare returns ct's share of all archived sessions, 0 with no
// history.
func typeShare(history []HistoryEntry, ct ContentType) float64 {
	if len(history) == 0 {
		return 0
	}
	n := 0
	for _, e := range history {
		if e.ContentType == ct {
			n++
		}
	}
	return float64(n) / float64(len(history))
}

// modeHourOf recomputes the most common start hour straight from
// history, -1 when empty.
func modeHourOf(history []HistoryEntry) int {
	counts := make(map[int]int)
	for _, e := range history {
		counts[e.StartedAt.Hour()]++
	}
	return modeHour(counts)
}

// withinProductiveWindow reports whether now falls within two hours of
// the given hour-of-day, wrapping around midnight.
func withinProductiveWindow(now time.Time, hour int) bool {
	diff := now.Hour() - hour
	if diff < 0 {
		diff = -diff
	}
	return diff <= 2 || diff >= 22
}
