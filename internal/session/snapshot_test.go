package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/studyloop/engine/internal/pool"
)

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	clock := newFakeClock()
	s := startedStore(t, baseConfig(), nil, WithClock(clock.Now))

	if err := s.SubmitAnswer(context.Background(), "q5", "a decent answer here", 30*time.Second); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if err := s.FlagQuestion("q4"); err != nil {
		t.Fatalf("FlagQuestion: %v", err)
	}
	if err := s.MoveToNextQuestion(); err != nil {
		t.Fatalf("MoveToNextQuestion: %v", err)
	}
	clock.Advance(90 * time.Second)

	data, err := EncodeSnapshot(s.Snapshot())
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}

	restored := New(pool.NewMemory(testItems()...), nil, WithClock(clock.Now))
	if err := restored.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	// An active session comes back paused.
	if restored.Status() != StatusPaused {
		t.Errorf("Status = %s, want paused", restored.Status())
	}
	if restored.ID() != s.ID() {
		t.Errorf("ID = %s, want %s", restored.ID(), s.ID())
	}
	if got := restored.Elapsed(); got != 90*time.Second {
		t.Errorf("Elapsed = %v, want 90s", got)
	}

	p := restored.Progress()
	if p.CurrentIndex != 1 {
		t.Errorf("CurrentIndex = %d, want 1", p.CurrentIndex)
	}
	if p.AnsweredCount != 1 {
		t.Errorf("AnsweredCount = %d, want 1", p.AnsweredCount)
	}
	if !p.Flagged["q4"] {
		t.Errorf("Flagged = %v, want q4 flagged", p.Flagged)
	}
	if len(restored.Questions()) != 5 {
		t.Errorf("Questions = %d, want 5", len(restored.Questions()))
	}

	// The restored session resumes and accepts answers.
	if err := restored.ResumeSession(); err != nil {
		t.Fatalf("ResumeSession: %v", err)
	}
	if err := restored.SubmitAnswer(context.Background(), "q4", "another answer", 10*time.Second); err != nil {
		t.Fatalf("SubmitAnswer after restore: %v", err)
	}
}

func TestRestore_RejectsNilAndWrongVersion(t *testing.T) {
	s := New(pool.NewMemory(testItems()...), nil)

	var ve *ValidationError
	if err := s.Restore(nil); !errors.As(err, &ve) {
		t.Errorf("Restore(nil) = %v, want ValidationError", err)
	}
	if err := s.Restore(&Snapshot{Version: 99}); !errors.As(err, &ve) {
		t.Errorf("Restore(v99) = %v, want ValidationError", err)
	}
	if s.Status() != StatusIdle {
		t.Errorf("Status = %s, want idle after rejected restore", s.Status())
	}
}

func TestRestore_MarksInFlightEvaluationsFailed(t *testing.T) {
	snap := &Snapshot{
		Version: SnapshotVersion,
		ID:      "sess-1",
		Status:  StatusActive,
		Config:  baseConfig(),
		Progress: Progress{
			TotalQuestions: 5,
			Answers: []Answer{
				{QuestionID: "q1", Text: "done", WordCount: 1, Status: EvaluationCompleted, Score: 0.8, Revision: 1},
				{QuestionID: "q2", Text: "in flight", WordCount: 2, Status: EvaluationEvaluating, Revision: 1},
				{QuestionID: "q3", Text: "queued", WordCount: 1, Status: EvaluationPending, Revision: 1},
			},
		},
	}

	s := New(pool.NewMemory(testItems()...), nil)
	if err := s.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	p := s.Progress()
	byID := make(map[string]Answer)
	for _, a := range p.Answers {
		byID[a.QuestionID] = a
	}
	if byID["q1"].Status != EvaluationCompleted {
		t.Errorf("q1 Status = %s, want completed untouched", byID["q1"].Status)
	}
	for _, id := range []string{"q2", "q3"} {
		if byID[id].Status != EvaluationFailed {
			t.Errorf("%s Status = %s, want failed", id, byID[id].Status)
		}
		if byID[id].Feedback != evaluationFallbackFeedback {
			t.Errorf("%s Feedback = %q, want fallback text", id, byID[id].Feedback)
		}
	}
}

func TestRestore_DedupesAnswersKeepingLatestRevision(t *testing.T) {
	snap := &Snapshot{
		Version: SnapshotVersion,
		ID:      "sess-2",
		Status:  StatusPaused,
		Config:  baseConfig(),
		Progress: Progress{
			TotalQuestions: 5,
			Answers: []Answer{
				{QuestionID: "q1", Text: "old", WordCount: 1, Status: EvaluationCompleted, Score: 0.3, Revision: 1},
				{QuestionID: "q2", Text: "fine", WordCount: 1, Status: EvaluationCompleted, Score: 0.5, Revision: 1},
				{QuestionID: "q1", Text: "new", WordCount: 1, Status: EvaluationCompleted, Score: 0.9, Revision: 2},
			},
		},
	}

	s := New(pool.NewMemory(testItems()...), nil)
	if err := s.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	p := s.Progress()
	if len(p.Answers) != 2 {
		t.Fatalf("len(Answers) = %d, want 2", len(p.Answers))
	}
	for _, a := range p.Answers {
		if a.QuestionID == "q1" {
			if a.Revision != 2 || a.Score != 0.9 {
				t.Errorf("q1 = rev %d score %v, want rev 2 score 0.9", a.Revision, a.Score)
			}
		}
	}
	// Aggregates recomputed from the deduped list.
	if p.AnsweredCount != 2 {
		t.Errorf("AnsweredCount = %d, want 2", p.AnsweredCount)
	}
	if p.AverageScore != 0.7 {
		t.Errorf("AverageScore = %v, want 0.7", p.AverageScore)
	}
}
