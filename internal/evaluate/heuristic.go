package evaluate

import (
	"context"
	"fmt"
	"strings"

	"github.com/studyloop/engine/internal/item"
)

// Heuristic is a deterministic keyword/length evaluator. It is the
// fallback when no model provider is configured and the injected fake in
// most tests.
type Heuristic struct{}

// NewHeuristic creates a Heuristic evaluator.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Evaluate scores the answer from keyword coverage and response length.
// It never fails and ignores ctx beyond the interface contract.
func (h *Heuristic) Evaluate(_ context.Context, it item.Item, answerText string) (*Result, error) {
	normalized := strings.ToLower(answerText)
	words := len(strings.Fields(answerText))

	var matched, missed []string
	for _, kw := range it.Keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(normalized, strings.ToLower(kw)) {
			matched = append(matched, kw)
		} else {
			missed = append(missed, kw)
		}
	}

	coverage := 0.5
	if len(it.Keywords) > 0 {
		coverage = float64(len(matched)) / float64(len(it.Keywords))
	}

	score := clampScore(0.6*coverage + 0.4*lengthScore(words))

	res := &Result{
		Score:          score,
		KeywordMatches: matched,
		Feedback:       heuristicFeedback(score, len(matched), len(it.Keywords)),
	}
	if len(missed) > 0 {
		res.Suggestions = append(res.Suggestions,
			fmt.Sprintf("Try to address: %s", strings.Join(missed, ", ")))
	}
	if words < 20 {
		res.Suggestions = append(res.Suggestions, "Expand your answer with more detail and examples.")
	}
	return res, nil
}

// lengthScore bands the word count. Very short answers score low; very
// long ones are dinged slightly for rambling.
func lengthScore(words int) float64 {
	switch {
	case words < 20:
		return 0.3
	case words < 50:
		return 0.6
	case words < 120:
		return 0.9
	default:
		return 0.8
	}
}

func heuristicFeedback(score float64, matched, total int) string {
	switch {
	case score >= 0.8:
		return "Strong answer covering the key concepts."
	case score >= 0.6:
		return fmt.Sprintf("Good answer, though it covers %d of %d key concepts.", matched, total)
	case score >= 0.4:
		return "Partial answer. Several key concepts are missing."
	default:
		return "The answer needs substantially more depth and detail."
	}
}
