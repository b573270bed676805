package session

import (
	"context"
	"strings"
	"time"

	"github.com/studyloop/engine/internal/item"
	"github.com/studyloop/engine/internal/pool"
)

// SubmitAnswer records an answer for a question in the active session.
// Answers upsert by question id: resubmitting replaces the prior answer.
// When evaluation is enabled and the text is non-blank, scoring runs
// asynchronously; the answer moves pending → evaluating → completed or
// failed while the session stays active.
func (s *Store) SubmitAnswer(ctx context.Context, questionID, text string, timeSpent time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return &StateError{Op: "submit answer", Status: s.status}
	}
	return s.applyAnswerLocked(questionID, text, timeSpent, true)
}

// EditAnswer replaces an existing answer's text and re-runs the same
// evaluation path. The original time spent is kept; only a previously
// submitted question can be edited.
func (s *Store) EditAnswer(ctx context.Context, questionID, newText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return &StateError{Op: "edit answer", Status: s.status}
	}
	prior := s.findAnswerLocked(questionID)
	if prior == nil {
		return &ValidationError{Reason: "no existing answer for question " + questionID}
	}
	return s.applyAnswerLocked(questionID, newText, prior.TimeSpent, false)
}

// SkipQuestion records a blank answer for the current question and
// advances to the next one.
func (s *Store) SkipQuestion(ctx context.Context) error {
	s.mu.Lock()

	if s.status != StatusActive {
		s.mu.Unlock()
		return &StateError{Op: "skip question", Status: s.status}
	}
	current, err := s.currentQuestionLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.applyAnswerLocked(current.ID, "", 0, true); err != nil {
		s.mu.Unlock()
		return err
	}
	deferred := s.advanceLocked()
	s.mu.Unlock()

	if deferred {
		s.finishAfterEvaluations()
	}
	return nil
}

// applyAnswerLocked is the shared submit/edit path. addTime controls
// whether timeSpent accumulates into the session total (edits keep the
// original submission's time). Caller holds the lock.
func (s *Store) applyAnswerLocked(questionID, text string, timeSpent time.Duration, addTime bool) error {
	q, ok := s.questionLocked(questionID)
	if !ok {
		return &ValidationError{Reason: "question " + questionID + " is not part of this session"}
	}

	blank := strings.TrimSpace(text) == ""
	wc := wordCount(text)

	rev := 1
	if prior := s.findAnswerLocked(questionID); prior != nil {
		rev = prior.Revision + 1
	}

	ans := Answer{
		QuestionID:  questionID,
		Text:        text,
		WordCount:   wc,
		TimeSpent:   timeSpent,
		SubmittedAt: s.now(),
		Revision:    rev,
	}

	evaluateAsync := s.cfg.EnableEvaluation && !blank && s.evaluator != nil
	if evaluateAsync {
		ans.Status = EvaluationPending
	} else {
		ans.Status = EvaluationCompleted
		if !blank {
			ans.Score = defaultNeutralScore
		}
	}

	s.upsertAnswerLocked(ans)
	if addTime {
		s.progress.TimeSpent += timeSpent
	}

	if evaluateAsync {
		s.dispatchEvaluationLocked(q, text, wc, timeSpent, rev)
	} else {
		s.recordItemResultLocked(questionID, ans.Score, wc, timeSpent)
	}

	s.recomputeAggregatesLocked()
	s.publishLocked(Event{Type: EventAnswerSubmitted, QuestionID: questionID})
	return nil
}

// dispatchEvaluationLocked starts the async scoring goroutine for one
// answer revision. The result is discarded if the answer has been
// resubmitted or the session reset in the meantime (last submitted wins).
// Caller holds the lock.
func (s *Store) dispatchEvaluationLocked(q item.Item, text string, wc int, timeSpent time.Duration, rev int) {
	sessionID := s.id
	s.inflight++
	s.evalWG.Add(1)

	go func() {
		defer s.evalWG.Done()

		// Evaluation outlives the submit call on purpose: the caller's
		// request context may end long before scoring does.
		ctx, cancel := context.WithTimeout(context.Background(), s.evalTimeout)
		defer cancel()

		s.mu.Lock()
		if !s.answerRevisionCurrentLocked(sessionID, q.ID, rev) {
			s.inflight--
			s.mu.Unlock()
			return
		}
		a := s.findAnswerLocked(q.ID)
		a.Status = EvaluationEvaluating
		s.publishLocked(Event{Type: EventAnswerEvaluating, QuestionID: q.ID})
		s.mu.Unlock()

		res, err := s.evaluator.Evaluate(ctx, q, text)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.inflight--

		if !s.answerRevisionCurrentLocked(sessionID, q.ID, rev) {
			return
		}
		a = s.findAnswerLocked(q.ID)

		if err != nil {
			a.Status = EvaluationFailed
			a.Feedback = evaluationFallbackFeedback
			s.log.Warn("answer evaluation failed",
				"session_id", sessionID, "question_id", q.ID, "error", err)
			s.recordItemResultLocked(q.ID, 0, wc, timeSpent)
		} else {
			a.Status = EvaluationCompleted
			a.Score = res.Score
			a.KeywordMatches = res.KeywordMatches
			a.Feedback = res.Feedback
			a.Suggestions = res.Suggestions
			s.recordItemResultLocked(q.ID, res.Score, wc, timeSpent)
		}

		s.recomputeAggregatesLocked()
		s.publishLocked(Event{Type: EventAnswerEvaluated, QuestionID: q.ID})
	}()
}

// answerRevisionCurrentLocked reports whether the answer for questionID
// still belongs to the given session and revision. Caller holds the lock.
func (s *Store) answerRevisionCurrentLocked(sessionID, questionID string, rev int) bool {
	if s.id != sessionID {
		return false
	}
	a := s.findAnswerLocked(questionID)
	return a != nil && a.Revision == rev
}

// recordItemResultLocked folds one terminal answer result into the
// session's copy of the item stats and, when the pool keeps historical
// stats, into the pool as well. Each answer revision contributes exactly
// one observation. Caller holds the lock.
func (s *Store) recordItemResultLocked(questionID string, score float64, wc int, timeSpent time.Duration) {
	for i := range s.questions {
		if s.questions[i].ID == questionID {
			s.questions[i].Stats.RecordResult(score, wc, timeSpent.Seconds())
			break
		}
	}
	if rec, ok := s.pool.(pool.Recorder); ok {
		rec.RecordAnswer(questionID, score, wc, timeSpent)
	}
}

// recomputeAggregatesLocked rebuilds the Progress counters from the full
// answers list. Caller holds the lock.
func (s *Store) recomputeAggregatesLocked() {
	p := &s.progress
	p.AnsweredCount = 0
	p.SkippedCount = 0

	var totalTime time.Duration
	var totalWords int
	var scoreSum float64
	var scored int

	for _, a := range p.Answers {
		if a.Blank() {
			p.SkippedCount++
			continue
		}
		p.AnsweredCount++
		totalTime += a.TimeSpent
		totalWords += a.WordCount
		if a.Status == EvaluationCompleted {
			scoreSum += a.Score
			scored++
		}
	}

	if p.AnsweredCount > 0 {
		p.AverageTimePerQuestion = totalTime / time.Duration(p.AnsweredCount)
		p.AverageWordCount = float64(totalWords) / float64(p.AnsweredCount)
	} else {
		p.AverageTimePerQuestion = 0
		p.AverageWordCount = 0
	}
	if scored > 0 {
		p.AverageScore = scoreSum / float64(scored)
	} else {
		p.AverageScore = 0
	}
}

func (s *Store) upsertAnswerLocked(ans Answer) {
	for i := range s.progress.Answers {
		if s.progress.Answers[i].QuestionID == ans.QuestionID {
			s.progress.Answers[i] = ans
			return
		}
	}
	s.progress.Answers = append(s.progress.Answers, ans)
}

func (s *Store) findAnswerLocked(questionID string) *Answer {
	for i := range s.progress.Answers {
		if s.progress.Answers[i].QuestionID == questionID {
			return &s.progress.Answers[i]
		}
	}
	return nil
}

func (s *Store) questionLocked(questionID string) (item.Item, bool) {
	for _, q := range s.questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return item.Item{}, false
}
