package session

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/studyloop/engine/internal/item"
)

// Performance is the qualitative summary of a session, recomputed on
// demand from the answers with non-blank text.
type Performance struct {
	OverallScore        float64                       `json:"overall_score"`
	AverageResponseTime time.Duration                 `json:"average_response_time"`
	AverageWordCount    float64                       `json:"average_word_count"`
	DifficultyBreakdown map[item.Difficulty]GroupStat `json:"difficulty_breakdown,omitempty"`
	TopicBreakdown      map[string]TopicStat          `json:"topic_breakdown,omitempty"`
	Writing             WritingMetrics                `json:"writing"`
	TimeEfficiency      float64                       `json:"time_efficiency"`
	ConsistencyScore    float64                       `json:"consistency_score"`
}

// GroupStat aggregates answers sharing a difficulty or topic.
type GroupStat struct {
	Count            int     `json:"count"`
	AverageScore     float64 `json:"average_score"`
	AverageWordCount float64 `json:"average_word_count"`
}

// TopicStat extends GroupStat with the keywords the learner demonstrated.
type TopicStat struct {
	GroupStat
	KeyStrengths []string `json:"key_strengths,omitempty"`
}

// WritingMetrics summarizes writing quality across the session's answers.
type WritingMetrics struct {
	VocabularyDiversity   float64 `json:"vocabulary_diversity"`
	AverageSentenceLength float64 `json:"average_sentence_length"`
	KeywordUsage          float64 `json:"keyword_usage"`
	Clarity               float64 `json:"clarity"`
}

// CalculatePerformance recomputes performance from the current answers.
// With zero qualifying (non-blank) answers, the prior performance is
// returned unchanged.
func (s *Store) CalculatePerformance() Performance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calculatePerformanceLocked()
}

func (s *Store) calculatePerformanceLocked() Performance {
	var answers []Answer
	for _, a := range s.progress.Answers {
		if !a.Blank() {
			answers = append(answers, a)
		}
	}
	if len(answers) == 0 {
		return s.performance
	}

	perf := Performance{
		DifficultyBreakdown: make(map[item.Difficulty]GroupStat),
		TopicBreakdown:      make(map[string]TopicStat),
	}

	n := float64(len(answers))
	var scoreSum, wordSum float64
	var timeSum time.Duration
	scores := make([]float64, 0, len(answers))

	for _, a := range answers {
		scoreSum += a.Score
		wordSum += float64(a.WordCount)
		timeSum += a.TimeSpent
		scores = append(scores, a.Score)
	}

	perf.OverallScore = scoreSum / n
	perf.AverageResponseTime = timeSum / time.Duration(len(answers))
	perf.AverageWordCount = wordSum / n

	s.groupBreakdownsLocked(answers, &perf)
	perf.Writing = s.writingMetricsLocked(answers, perf.OverallScore)

	if minutes := s.progress.TimeSpent.Minutes(); minutes > 0 {
		perf.TimeEfficiency = n / minutes
	}
	perf.ConsistencyScore = consistency(scores)

	return perf
}

// groupBreakdownsLocked fills the per-difficulty and per-topic groups.
// Caller holds the lock.
func (s *Store) groupBreakdownsLocked(answers []Answer, perf *Performance) {
	type acc struct {
		count    int
		score    float64
		words    float64
		keywords map[string]bool
	}
	byDifficulty := make(map[item.Difficulty]*acc)
	byTopic := make(map[string]*acc)

	for _, a := range answers {
		q, ok := s.questionLocked(a.QuestionID)
		if !ok {
			continue
		}

		d := byDifficulty[q.Difficulty]
		if d == nil {
			d = &acc{}
			byDifficulty[q.Difficulty] = d
		}
		d.count++
		d.score += a.Score
		d.words += float64(a.WordCount)

		t := byTopic[q.Topic]
		if t == nil {
			t = &acc{keywords: make(map[string]bool)}
			byTopic[q.Topic] = t
		}
		t.count++
		t.score += a.Score
		t.words += float64(a.WordCount)
		for _, kw := range a.KeywordMatches {
			t.keywords[kw] = true
		}
	}

	for d, a := range byDifficulty {
		perf.DifficultyBreakdown[d] = GroupStat{
			Count:            a.count,
			AverageScore:     a.score / float64(a.count),
			AverageWordCount: a.words / float64(a.count),
		}
	}
	for topic, a := range byTopic {
		st := TopicStat{
			GroupStat: GroupStat{
				Count:            a.count,
				AverageScore:     a.score / float64(a.count),
				AverageWordCount: a.words / float64(a.count),
			},
		}
		for kw := range a.keywords {
			st.KeyStrengths = append(st.KeyStrengths, kw)
		}
		sort.Strings(st.KeyStrengths)
		perf.TopicBreakdown[topic] = st
	}
}

// writingMetricsLocked computes vocabulary diversity, sentence length,
// and keyword usage over all answer text. Caller holds the lock.
func (s *Store) writingMetricsLocked(answers []Answer, overallScore float64) WritingMetrics {
	var totalTokens, sentences, keywordHits int
	unique := make(map[string]bool)

	sessionKeywords := make(map[string]bool)
	totalKeywords := 0
	for _, q := range s.questions {
		for _, kw := range q.Keywords {
			sessionKeywords[strings.ToLower(kw)] = true
			totalKeywords++
		}
	}

	for _, a := range answers {
		tokens := strings.Fields(strings.ToLower(a.Text))
		totalTokens += len(tokens)
		for _, tok := range tokens {
			unique[strings.Trim(tok, ".,;:!?\"'()")] = true
			if sessionKeywords[strings.Trim(tok, ".,;:!?\"'()")] {
				keywordHits++
			}
		}
		sentences += countSentences(a.Text)
	}

	m := WritingMetrics{Clarity: overallScore}
	if totalTokens > 0 {
		m.VocabularyDiversity = float64(len(unique)) / float64(totalTokens)
	}
	if sentences > 0 {
		m.AverageSentenceLength = float64(totalTokens) / float64(sentences)
	}
	if totalKeywords > 0 {
		m.KeywordUsage = float64(keywordHits) / float64(totalKeywords)
	}
	return m
}

// countSentences counts terminator-delimited sentences, at least one for
// non-empty text.
func countSentences(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	n := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return n
}

// consistency maps score variance to [0, 1]: identical scores give 1,
// high spread approaches 0.
func consistency(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, v := range scores {
		sum += v
	}
	mean := sum / float64(len(scores))

	var variance float64
	for _, v := range scores {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(scores))

	return math.Max(0, 1-math.Sqrt(variance))
}
