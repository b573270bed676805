package session

import (
	"fmt"

	"github.com/studyloop/engine/internal/item"
)

// CurrentQuestion returns the item at the current index.
func (s *Store) CurrentQuestion() (item.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive && s.status != StatusPaused {
		return item.Item{}, &StateError{Op: "get current question", Status: s.status}
	}
	return s.currentQuestionLocked()
}

func (s *Store) currentQuestionLocked() (item.Item, error) {
	idx := s.progress.CurrentIndex
	if idx < 0 || idx >= len(s.questions) {
		return item.Item{}, &ValidationError{Reason: fmt.Sprintf("current index %d out of range", idx)}
	}
	return s.questions[idx], nil
}

// MoveToNextQuestion advances the cursor. Advancing past the last item
// ends the session, honoring WithAwaitEvaluations the same way an
// explicit EndSession does.
func (s *Store) MoveToNextQuestion() error {
	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		return &StateError{Op: "move to next question", Status: s.status}
	}
	deferred := s.advanceLocked()
	s.mu.Unlock()

	if deferred {
		s.finishAfterEvaluations()
	}
	return nil
}

// advanceLocked moves the cursor forward, completing the session when it
// runs past the end. When evaluations are still in flight and the store
// awaits them, completion is deferred: the caller must release the lock
// and call finishAfterEvaluations. Caller holds the lock.
func (s *Store) advanceLocked() bool {
	s.progress.CurrentIndex++
	if s.progress.CurrentIndex >= s.progress.TotalQuestions {
		s.progress.CurrentIndex = s.progress.TotalQuestions
		if s.awaitEvals > 0 && s.inflight > 0 {
			return true
		}
		s.endLocked()
		return false
	}
	s.restoreDraftLocked()
	s.publishLocked(Event{Type: EventNavigated, Index: s.progress.CurrentIndex})
	return false
}

// finishAfterEvaluations waits for in-flight evaluations up to the
// configured deadline, then finalizes the session. The status check
// guards against a concurrent EndSession or ResetSession winning the
// race while the lock was released.
func (s *Store) finishAfterEvaluations() {
	s.waitEvaluations(s.awaitEvals)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusActive || s.status == StatusPaused {
		s.endLocked()
	}
}

// MoveToPreviousQuestion moves the cursor back one item, if possible.
func (s *Store) MoveToPreviousQuestion() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return &StateError{Op: "move to previous question", Status: s.status}
	}
	if s.progress.CurrentIndex == 0 {
		return nil
	}
	s.progress.CurrentIndex--
	s.restoreDraftLocked()
	s.publishLocked(Event{Type: EventNavigated, Index: s.progress.CurrentIndex})
	return nil
}

// JumpToQuestion moves the cursor to an arbitrary question index.
func (s *Store) JumpToQuestion(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return &StateError{Op: "jump to question", Status: s.status}
	}
	if index < 0 || index >= s.progress.TotalQuestions {
		return &ValidationError{Reason: fmt.Sprintf("question index %d out of range [0, %d)", index, s.progress.TotalQuestions)}
	}
	s.progress.CurrentIndex = index
	s.restoreDraftLocked()
	s.publishLocked(Event{Type: EventNavigated, Index: index})
	return nil
}

// restoreDraftLocked loads a previously submitted answer's text as the
// working draft when navigating onto an already-answered item. Caller
// holds the lock.
func (s *Store) restoreDraftLocked() {
	s.draft = ""
	q, err := s.currentQuestionLocked()
	if err != nil {
		return
	}
	if a := s.findAnswerLocked(q.ID); a != nil && !a.Blank() {
		s.draft = a.Text
	}
}

// UpdateCurrentAnswer stores the in-progress draft text for the current
// question without submitting it.
func (s *Store) UpdateCurrentAnswer(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return &StateError{Op: "update draft", Status: s.status}
	}
	s.draft = text
	return nil
}

// CurrentDraft returns the working draft for the current question.
func (s *Store) CurrentDraft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// FlagQuestion marks a question for later review. Idempotent.
func (s *Store) FlagQuestion(questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive && s.status != StatusPaused {
		return &StateError{Op: "flag question", Status: s.status}
	}
	if _, ok := s.questionLocked(questionID); !ok {
		return &ValidationError{Reason: "question " + questionID + " is not part of this session"}
	}
	s.progress.Flagged[questionID] = true
	return nil
}

// UnflagQuestion removes a review flag. Idempotent.
func (s *Store) UnflagQuestion(questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive && s.status != StatusPaused {
		return &StateError{Op: "unflag question", Status: s.status}
	}
	delete(s.progress.Flagged, questionID)
	return nil
}
