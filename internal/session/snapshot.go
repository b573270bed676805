package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/studyloop/engine/internal/item"
)

// SnapshotVersion is the current serialization schema version. Bump it
// whenever the Snapshot shape changes and add a migration in Restore.
const SnapshotVersion = 1

// Snapshot is the versioned, serializable capture of a session used for
// best-effort crash recovery.
type Snapshot struct {
	Version     int           `json:"version"`
	ID          string        `json:"id"`
	Status      Status        `json:"status"`
	Config      Config        `json:"config"`
	Questions   []item.Item   `json:"questions"`
	Progress    Progress      `json:"progress"`
	Performance Performance   `json:"performance"`
	StartedAt   time.Time     `json:"started_at"`
	Elapsed     time.Duration `json:"elapsed"`
	Draft       string        `json:"draft,omitempty"`
}

// Snapshot captures the current session state.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	questions := make([]item.Item, len(s.questions))
	copy(questions, s.questions)

	return &Snapshot{
		Version:     SnapshotVersion,
		ID:          s.id,
		Status:      s.status,
		Config:      s.cfg,
		Questions:   questions,
		Progress:    s.progressCopyLocked(),
		Performance: s.performance,
		StartedAt:   s.startedAt,
		Elapsed:     s.elapsedLocked(),
		Draft:       s.draft,
	}
}

// Restore loads a snapshot into the store, replacing all state. A
// session that was active when captured comes back paused so the caller
// decides whether to resume. Answers caught mid-evaluation are marked
// failed since their in-flight calls did not survive the crash.
func (s *Store) Restore(snap *Snapshot) error {
	if snap == nil {
		return &ValidationError{Reason: "nil snapshot"}
	}
	if snap.Version != SnapshotVersion {
		return &ValidationError{Reason: fmt.Sprintf("unsupported snapshot version %d (current %d)", snap.Version, SnapshotVersion)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = snap.ID
	s.cfg = snap.Config
	s.questions = make([]item.Item, len(snap.Questions))
	copy(s.questions, snap.Questions)

	s.progress = snap.Progress
	s.progress.Answers = dedupeAnswers(snap.Progress.Answers)
	if s.progress.Flagged == nil {
		s.progress.Flagged = make(map[string]bool)
	}
	for i := range s.progress.Answers {
		switch s.progress.Answers[i].Status {
		case EvaluationPending, EvaluationEvaluating:
			s.progress.Answers[i].Status = EvaluationFailed
			s.progress.Answers[i].Feedback = evaluationFallbackFeedback
		}
	}

	s.performance = snap.Performance
	s.startedAt = snap.StartedAt
	s.elapsed = snap.Elapsed
	s.draft = snap.Draft
	s.resumedAt = s.now()

	status := snap.Status
	if status == StatusActive {
		status = StatusPaused
	}
	s.setStatusLocked(status)
	s.recomputeAggregatesLocked()
	return nil
}

// dedupeAnswers enforces at-most-one answer per question id, keeping the
// latest revision. Snapshots written mid-mutation must not break the
// idempotency invariant on recovery.
func dedupeAnswers(answers []Answer) []Answer {
	seen := make(map[string]int)
	var out []Answer
	for _, a := range answers {
		if i, ok := seen[a.QuestionID]; ok {
			if a.Revision >= out[i].Revision {
				out[i] = a
			}
			continue
		}
		seen[a.QuestionID] = len(out)
		out = append(out, a)
	}
	return out
}

// EncodeSnapshot serializes a snapshot for the durable store.
func EncodeSnapshot(snap *Snapshot) ([]byte, error) {
	b, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode session snapshot: %w", err)
	}
	return b, nil
}

// DecodeSnapshot parses a snapshot written by EncodeSnapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode session snapshot: %w", err)
	}
	return &snap, nil
}
