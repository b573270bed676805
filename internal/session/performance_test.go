package session

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestConsistency(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"identical", []float64{0.8, 0.8, 0.8}, 1},
		{"single", []float64{0.5}, 1},
		{"spread", []float64{0, 1}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := consistency(tt.scores)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("consistency(%v) = %v, want %v", tt.scores, got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("consistency(%v) = %v, outside [0, 1]", tt.scores, got)
			}
		})
	}
}

func TestCountSentences(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"no terminator at all", 1},
		{"One. Two. Three.", 3},
		{"Really? Yes! Done.", 3},
	}
	for _, tt := range tests {
		if got := countSentences(tt.text); got != tt.want {
			t.Errorf("countSentences(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestCalculatePerformance_ZeroAnswersKeepsPrior(t *testing.T) {
	s := startedStore(t, baseConfig(), nil)
	s.mu.Lock()
	s.performance = Performance{OverallScore: 0.42}
	s.mu.Unlock()

	perf := s.CalculatePerformance()
	if perf.OverallScore != 0.42 {
		t.Errorf("OverallScore = %v, want prior 0.42 with no answers", perf.OverallScore)
	}

	// Skips are blank answers and must not qualify either.
	if err := s.SkipQuestion(context.Background()); err != nil {
		t.Fatalf("SkipQuestion: %v", err)
	}
	perf = s.CalculatePerformance()
	if perf.OverallScore != 0.42 {
		t.Errorf("OverallScore = %v, want prior 0.42 after skip only", perf.OverallScore)
	}
}

func TestCalculatePerformance_Breakdowns(t *testing.T) {
	clock := newFakeClock()
	s := startedStore(t, baseConfig(), nil, WithClock(clock.Now))

	// Neutral-scored answers: q1 easy/cells, q2 medium/cells, q4 hard/energy.
	submissions := []struct {
		id   string
		text string
	}{
		{"q1", "Water moves across the membrane by osmosis."},
		{"q2", "Chromosomes condense. Spindle fibers pull them apart."},
		{"q4", "ATP synthase uses the proton gradient."},
	}
	for _, sub := range submissions {
		if err := s.SubmitAnswer(context.Background(), sub.id, sub.text, 60*time.Second); err != nil {
			t.Fatalf("SubmitAnswer(%s): %v", sub.id, err)
		}
	}

	perf := s.CalculatePerformance()

	if perf.OverallScore != defaultNeutralScore {
		t.Errorf("OverallScore = %v, want %v", perf.OverallScore, defaultNeutralScore)
	}
	if perf.AverageResponseTime != 60*time.Second {
		t.Errorf("AverageResponseTime = %v, want 60s", perf.AverageResponseTime)
	}

	cells, ok := perf.TopicBreakdown["cells"]
	if !ok {
		t.Fatalf("TopicBreakdown missing cells: %v", perf.TopicBreakdown)
	}
	if cells.Count != 2 {
		t.Errorf("cells.Count = %d, want 2", cells.Count)
	}
	if energy := perf.TopicBreakdown["energy"]; energy.Count != 1 {
		t.Errorf("energy.Count = %d, want 1", energy.Count)
	}

	if len(perf.DifficultyBreakdown) != 3 {
		t.Errorf("DifficultyBreakdown = %v, want easy, medium, hard", perf.DifficultyBreakdown)
	}

	// 3 answers over 3 minutes of recorded answer time.
	if math.Abs(perf.TimeEfficiency-1.0) > 1e-9 {
		t.Errorf("TimeEfficiency = %v, want 1.0 answers/minute", perf.TimeEfficiency)
	}
	// Identical scores, perfectly consistent.
	if perf.ConsistencyScore != 1 {
		t.Errorf("ConsistencyScore = %v, want 1", perf.ConsistencyScore)
	}
	if perf.Writing.Clarity != perf.OverallScore {
		t.Errorf("Clarity = %v, want OverallScore %v", perf.Writing.Clarity, perf.OverallScore)
	}
	if perf.Writing.VocabularyDiversity <= 0 || perf.Writing.VocabularyDiversity > 1 {
		t.Errorf("VocabularyDiversity = %v, outside (0, 1]", perf.Writing.VocabularyDiversity)
	}
	if perf.Writing.AverageSentenceLength <= 0 {
		t.Errorf("AverageSentenceLength = %v, want positive", perf.Writing.AverageSentenceLength)
	}
}

func TestWritingMetrics_KeywordUsage(t *testing.T) {
	s := startedStore(t, baseConfig(), nil)

	// Session keywords: membrane, water, chromosome. The answer hits two.
	if err := s.SubmitAnswer(context.Background(), "q1", "The membrane lets water through.", 5*time.Second); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	perf := s.CalculatePerformance()
	if math.Abs(perf.Writing.KeywordUsage-2.0/3.0) > 1e-9 {
		t.Errorf("KeywordUsage = %v, want 2/3", perf.Writing.KeywordUsage)
	}
}
