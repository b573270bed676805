// Package evaluate scores free-form answers against a practice item.
// The Evaluator interface is the engine's pluggable evaluation capability:
// the session store calls it asynchronously and degrades a single answer
// on failure rather than failing the session.
package evaluate

import (
	"context"
	"fmt"

	"github.com/studyloop/engine/internal/item"
)

// Result is the outcome of evaluating one answer.
type Result struct {
	// Score is the normalized quality score in [0, 1].
	Score float64

	// KeywordMatches lists the item keywords found in the answer.
	KeywordMatches []string

	// Feedback is a short qualitative assessment.
	Feedback string

	// Suggestions are concrete improvement hints.
	Suggestions []string
}

// Evaluator scores an answer for an item. Implementations may block for
// seconds and must honor ctx cancellation.
type Evaluator interface {
	Evaluate(ctx context.Context, it item.Item, answerText string) (*Result, error)
}

// Error wraps an evaluation failure with the item it was scoring.
type Error struct {
	ItemID string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("evaluate answer for item %s: %v", e.ItemID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// clampScore forces a score into [0, 1].
func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
