package session

import (
	"maps"
	"slices"
	"sort"

	"github.com/studyloop/engine/internal/item"
)

// Config returns a copy of the active configuration.
func (s *Store) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.cfg
	cfg.Weeks = slices.Clone(s.cfg.Weeks)
	return cfg
}

// Questions returns a copy of the session's item set in serving order.
func (s *Store) Questions() []item.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.questions)
}

// Progress returns a snapshot of the current progress.
func (s *Store) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressCopyLocked()
}

func (s *Store) progressCopyLocked() Progress {
	p := s.progress
	p.Answers = slices.Clone(s.progress.Answers)
	p.Flagged = maps.Clone(s.progress.Flagged)
	return p
}

// SessionStats returns the running summary for display.
func (s *Store) SessionStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		ID:             s.id,
		ContentType:    s.cfg.ContentType,
		Status:         s.status,
		TotalQuestions: s.progress.TotalQuestions,
		AnsweredCount:  s.progress.AnsweredCount,
		SkippedCount:   s.progress.SkippedCount,
		FlaggedCount:   len(s.progress.Flagged),
		TimeSpent:      s.progress.TimeSpent,
		Elapsed:        s.elapsedLocked(),
		AverageScore:   s.progress.AverageScore,
		IsEvaluating:   s.inflight > 0,
	}
}

// EvaluationFeedback returns the evaluation outcome for one question.
func (s *Store) EvaluationFeedback(questionID string) (Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findAnswerLocked(questionID)
	if a == nil {
		return Feedback{}, &ValidationError{Reason: "no answer for question " + questionID}
	}
	return Feedback{
		QuestionID:     a.QuestionID,
		Status:         a.Status,
		Score:          a.Score,
		Feedback:       a.Feedback,
		Suggestions:    slices.Clone(a.Suggestions),
		KeywordMatches: slices.Clone(a.KeywordMatches),
	}, nil
}

// AnsweredQuestions returns the items with a non-blank submitted answer.
func (s *Store) AnsweredQuestions() []item.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []item.Item
	for _, q := range s.questions {
		if a := s.findAnswerLocked(q.ID); a != nil && !a.Blank() {
			out = append(out, q)
		}
	}
	return out
}

// UnansweredQuestions returns the items without a non-blank answer,
// including skipped ones.
func (s *Store) UnansweredQuestions() []item.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []item.Item
	for _, q := range s.questions {
		a := s.findAnswerLocked(q.ID)
		if a == nil || a.Blank() {
			out = append(out, q)
		}
	}
	return out
}

// FlaggedQuestions returns the flagged items in serving order.
func (s *Store) FlaggedQuestions() []item.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []item.Item
	for _, q := range s.questions {
		if s.progress.Flagged[q.ID] {
			out = append(out, q)
		}
	}
	return out
}

// LowScoringAnswers returns completed, non-blank answers scoring below
// threshold, worst first.
func (s *Store) LowScoringAnswers(threshold float64) []Answer {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Answer
	for _, a := range s.progress.Answers {
		if !a.Blank() && a.Status == EvaluationCompleted && a.Score < threshold {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score < out[j].Score
	})
	return out
}
