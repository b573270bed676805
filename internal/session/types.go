// Package session implements the per-session practice engine: item
// selection, answer submission and evaluation, navigation, and
// performance aggregation for a single timed practice run.
package session

import (
	"fmt"
	"time"

	"github.com/studyloop/engine/internal/item"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Focus is the ranking strategy used to populate a session's item set.
type Focus string

const (
	// FocusComprehensive shuffles the filtered pool uniformly.
	FocusComprehensive Focus = "comprehensive"
	// FocusWeakAreas puts the worst-performing items first.
	FocusWeakAreas Focus = "weak-areas"
	// FocusRecentContent puts the most recent week's items first.
	FocusRecentContent Focus = "recent-content"
	// FocusTailored ranks by difficulty weight and inverted historical score.
	FocusTailored Focus = "tailored-for-me"
)

// Valid reports whether f is a known focus strategy. The empty focus is
// valid and treated as comprehensive.
func (f Focus) Valid() bool {
	switch f {
	case "", FocusComprehensive, FocusWeakAreas, FocusRecentContent, FocusTailored:
		return true
	}
	return false
}

// Config describes one practice session request.
type Config struct {
	ContentType      string          `json:"content_type"`
	CourseID         string          `json:"course_id"`
	Weeks            []string        `json:"weeks,omitempty"`
	Difficulty       item.Difficulty `json:"difficulty,omitempty"`
	Focus            Focus           `json:"focus,omitempty"`
	NumQuestions     int             `json:"num_questions"`
	EnableEvaluation bool            `json:"enable_evaluation"`
}

func (c Config) validate() error {
	if c.NumQuestions <= 0 {
		return &ValidationError{Reason: fmt.Sprintf("num_questions must be positive, got %d", c.NumQuestions)}
	}
	if !c.Focus.Valid() {
		return &ValidationError{Reason: fmt.Sprintf("unknown focus strategy %q", c.Focus)}
	}
	if c.Difficulty != "" && !c.Difficulty.Valid() {
		return &ValidationError{Reason: fmt.Sprintf("unknown difficulty %q", c.Difficulty)}
	}
	return nil
}

// EvaluationStatus tracks where an answer is in its evaluation lifecycle.
type EvaluationStatus string

const (
	EvaluationPending    EvaluationStatus = "pending"
	EvaluationEvaluating EvaluationStatus = "evaluating"
	EvaluationCompleted  EvaluationStatus = "completed"
	EvaluationFailed     EvaluationStatus = "failed"
)

// Answer is one submitted response. A session holds at most one Answer
// per question; resubmission and edits replace it in place. Revision
// increments on every replacement so stale async evaluation results can
// be discarded.
type Answer struct {
	QuestionID     string           `json:"question_id"`
	Text           string           `json:"text"`
	WordCount      int              `json:"word_count"`
	TimeSpent      time.Duration    `json:"time_spent"`
	SubmittedAt    time.Time        `json:"submitted_at"`
	Status         EvaluationStatus `json:"status"`
	Score          float64          `json:"score"`
	KeywordMatches []string         `json:"keyword_matches,omitempty"`
	Feedback       string           `json:"feedback,omitempty"`
	Suggestions    []string         `json:"suggestions,omitempty"`
	Revision       int              `json:"revision"`
}

// Blank reports whether the answer carries no actual text (a skip).
func (a Answer) Blank() bool {
	return a.WordCount == 0
}

// Progress tracks position and aggregate counters within one session.
type Progress struct {
	CurrentIndex           int             `json:"current_index"`
	TotalQuestions         int             `json:"total_questions"`
	AnsweredCount          int             `json:"answered_count"`
	SkippedCount           int             `json:"skipped_count"`
	TimeSpent              time.Duration   `json:"time_spent"`
	Answers                []Answer        `json:"answers"`
	Flagged                map[string]bool `json:"flagged,omitempty"`
	AverageTimePerQuestion time.Duration   `json:"average_time_per_question"`
	AverageWordCount       float64         `json:"average_word_count"`
	AverageScore           float64         `json:"average_score"`
}

// Stats is the lightweight summary exposed to callers while a session runs.
type Stats struct {
	ID             string        `json:"id"`
	ContentType    string        `json:"content_type"`
	Status         Status        `json:"status"`
	TotalQuestions int           `json:"total_questions"`
	AnsweredCount  int           `json:"answered_count"`
	SkippedCount   int           `json:"skipped_count"`
	FlaggedCount   int           `json:"flagged_count"`
	TimeSpent      time.Duration `json:"time_spent"`
	Elapsed        time.Duration `json:"elapsed"`
	AverageScore   float64       `json:"average_score"`
	IsEvaluating   bool          `json:"is_evaluating"`
}

// Feedback is the evaluation outcome for one answered question.
type Feedback struct {
	QuestionID     string           `json:"question_id"`
	Status         EvaluationStatus `json:"status"`
	Score          float64          `json:"score"`
	Feedback       string           `json:"feedback"`
	Suggestions    []string         `json:"suggestions,omitempty"`
	KeywordMatches []string         `json:"keyword_matches,omitempty"`
}

// ValidationError indicates a malformed request or an empty filtered
// item pool.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid session request: " + e.Reason
}

// StateError indicates an operation invoked outside its valid lifecycle
// state.
type StateError struct {
	Op     string
	Status Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s while session is %s", e.Op, e.Status)
}
