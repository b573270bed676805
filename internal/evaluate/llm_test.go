package evaluate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/studyloop/engine/internal/llm"
)

func TestLLMEvaluator_ParsesStructuredOutput(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{
			"score": 0.85,
			"keyword_matches": ["bilayer"],
			"feedback": "Clear and mostly complete.",
			"suggestions": ["Mention membrane proteins."]
		}`),
	})
	e := NewLLMEvaluator(mock, DefaultLLMConfig())

	res, err := e.Evaluate(context.Background(), cellItem, "The bilayer...")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Score != 0.85 {
		t.Errorf("Score = %v, want 0.85", res.Score)
	}
	if res.Feedback != "Clear and mostly complete." {
		t.Errorf("Feedback = %q", res.Feedback)
	}
	if len(res.Suggestions) != 1 {
		t.Errorf("Suggestions = %v", res.Suggestions)
	}

	if mock.CallCount() != 1 {
		t.Fatalf("CallCount = %d", mock.CallCount())
	}
	req := mock.Calls[0]
	if req.Schema == nil || req.Schema.Name != "answer-evaluation" {
		t.Error("request should carry the answer-evaluation schema")
	}
}

func TestLLMEvaluator_ClampsOutOfRangeScore(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"score": 1.7, "feedback": "over-enthusiastic model"}`),
	})
	e := NewLLMEvaluator(mock, DefaultLLMConfig())

	res, err := e.Evaluate(context.Background(), cellItem, "answer")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Score != 1.0 {
		t.Errorf("Score = %v, want clamped to 1.0", res.Score)
	}
}

func TestLLMEvaluator_ProviderFailure(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Err: &llm.ErrProviderUnavailable{},
	})
	e := NewLLMEvaluator(mock, DefaultLLMConfig())

	_, err := e.Evaluate(context.Background(), cellItem, "answer")
	var evalErr *Error
	if !errors.As(err, &evalErr) {
		t.Fatalf("err = %v, want *evaluate.Error", err)
	}
	if evalErr.ItemID != "q1" {
		t.Errorf("ItemID = %q, want q1", evalErr.ItemID)
	}
	var unavail *llm.ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Error("provider error should be wrapped, not swallowed")
	}
}
