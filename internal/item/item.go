// Package item defines the practice item model shared by the question pool,
// the session store, and the analytics layer.
package item

// Difficulty classifies how hard an item is.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is a known difficulty level.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Weight returns the selection weight used by the tailored focus strategy.
func (d Difficulty) Weight() float64 {
	switch d {
	case DifficultyHard:
		return 3
	case DifficultyMedium:
		return 2
	default:
		return 1
	}
}

// Item is a single practice question with its historical performance stats.
// The engine never deletes items; it only updates Stats via RecordResult.
type Item struct {
	ID         string     `json:"id"`
	Content    string     `json:"content"`
	Difficulty Difficulty `json:"difficulty"`
	Topic      string     `json:"topic"`
	Keywords   []string   `json:"keywords,omitempty"`
	Week       string     `json:"week,omitempty"`
	Stats      Stats      `json:"stats"`
}

// Stats holds running historical averages for an item.
type Stats struct {
	TimesSeen           int     `json:"times_seen"`
	TimesAnswered       int     `json:"times_answered"`
	AverageScore        float64 `json:"average_score"`
	AverageWordCount    float64 `json:"average_word_count"`
	AverageResponseTime float64 `json:"average_response_time"` // seconds
}

// RecordResult folds one observed answer into the running averages using
// the incremental mean: newAvg = (oldAvg*n + value) / (n+1), where n is
// the number of answers recorded so far. Counters increment afterwards.
func (s *Stats) RecordResult(score float64, wordCount int, responseTimeSec float64) {
	n := float64(s.TimesAnswered)
	s.AverageScore = (s.AverageScore*n + score) / (n + 1)
	s.AverageWordCount = (s.AverageWordCount*n + float64(wordCount)) / (n + 1)
	s.AverageResponseTime = (s.AverageResponseTime*n + responseTimeSec) / (n + 1)
	s.TimesSeen++
	s.TimesAnswered++
}
