package item

import (
	"math"
	"testing"
)

func TestRecordResult_IncrementalMean(t *testing.T) {
	var s Stats

	s.RecordResult(0.8, 50, 30)
	s.RecordResult(0.6, 30, 60)

	if s.TimesAnswered != 2 || s.TimesSeen != 2 {
		t.Fatalf("counters = (%d, %d), want (2, 2)", s.TimesSeen, s.TimesAnswered)
	}
	if math.Abs(s.AverageScore-0.7) > 1e-9 {
		t.Errorf("AverageScore = %v, want 0.7", s.AverageScore)
	}
	if math.Abs(s.AverageWordCount-40) > 1e-9 {
		t.Errorf("AverageWordCount = %v, want 40", s.AverageWordCount)
	}
	if math.Abs(s.AverageResponseTime-45) > 1e-9 {
		t.Errorf("AverageResponseTime = %v, want 45", s.AverageResponseTime)
	}
}

func TestRecordResult_FromExistingHistory(t *testing.T) {
	s := Stats{TimesSeen: 4, TimesAnswered: 4, AverageScore: 0.5}

	s.RecordResult(1.0, 10, 5)

	// (0.5*4 + 1.0) / 5 = 0.6
	if math.Abs(s.AverageScore-0.6) > 1e-9 {
		t.Errorf("AverageScore = %v, want 0.6", s.AverageScore)
	}
	if s.TimesAnswered != 5 {
		t.Errorf("TimesAnswered = %d, want 5", s.TimesAnswered)
	}
}

func TestDifficultyWeight(t *testing.T) {
	tests := []struct {
		d    Difficulty
		want float64
	}{
		{DifficultyEasy, 1},
		{DifficultyMedium, 2},
		{DifficultyHard, 3},
		{Difficulty("unknown"), 1},
	}
	for _, tt := range tests {
		if got := tt.d.Weight(); got != tt.want {
			t.Errorf("Weight(%q) = %v, want %v", tt.d, got, tt.want)
		}
	}
}

func TestDifficultyValid(t *testing.T) {
	if !DifficultyMedium.Valid() {
		t.Error("medium should be valid")
	}
	if Difficulty("extreme").Valid() {
		t.Error("extreme should not be valid")
	}
}
