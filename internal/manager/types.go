// Package manager orchestrates sessions across content types: it owns
// which session is active, archives completed sessions, computes
// cross-session analytics (trends, streaks, goal progress), and
// generates next-session recommendations.
package manager

import (
	"time"

	"github.com/studyloop/engine/internal/session"
)

// ContentType identifies a practice format.
type ContentType string

const (
	ContentCuecards       ContentType = "cuecards"
	ContentMultipleChoice ContentType = "multiple-choice"
	ContentOpenQuestions  ContentType = "open-questions"
)

// ContentTypes lists all known content types in display order.
var ContentTypes = []ContentType{ContentCuecards, ContentMultipleChoice, ContentOpenQuestions}

// Valid reports whether c is a known content type.
func (c ContentType) Valid() bool {
	switch c {
	case ContentCuecards, ContentMultipleChoice, ContentOpenQuestions:
		return true
	}
	return false
}

// ActiveSessionInfo is the manager's view of the one session allowed to
// be active process-wide.
type ActiveSessionInfo struct {
	ID          string           `json:"id"`
	ContentType ContentType      `json:"content_type"`
	Config      session.Config   `json:"config"`
	Status      session.Status   `json:"status"`
	Progress    session.Progress `json:"progress"`
	StartedAt   time.Time        `json:"started_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// FinalStats is the summary handed to EndSession by the session's owner.
type FinalStats struct {
	Accuracy          float64             `json:"accuracy"`
	Score             float64             `json:"score"`
	QuestionsAnswered int                 `json:"questions_answered"`
	QuestionsTotal    int                 `json:"questions_total"`
	Duration          time.Duration       `json:"duration"`
	Performance       session.Performance `json:"performance"`
}

// HistoryEntry is the immutable archival record of one ended session.
type HistoryEntry struct {
	ID                string              `json:"id"`
	ContentType       ContentType         `json:"content_type"`
	Config            session.Config      `json:"config"`
	StartedAt         time.Time           `json:"started_at"`
	EndedAt           time.Time           `json:"ended_at"`
	Duration          time.Duration       `json:"duration"`
	Completed         bool                `json:"completed"`
	Accuracy          float64             `json:"accuracy"`
	Score             float64             `json:"score"`
	QuestionsAnswered int                 `json:"questions_answered"`
	QuestionsTotal    int                 `json:"questions_total"`
	Performance       session.Performance `json:"performance"`
}

// HistoryFilter narrows GetSessionHistory results. Zero values match
// everything.
type HistoryFilter struct {
	ContentType   ContentType
	Since         time.Time
	Until         time.Time
	CompletedOnly bool
	Limit         int
}

func (f HistoryFilter) matches(e HistoryEntry) bool {
	if f.ContentType != "" && e.ContentType != f.ContentType {
		return false
	}
	if !f.Since.IsZero() && e.StartedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.StartedAt.After(f.Until) {
		return false
	}
	if f.CompletedOnly && !e.Completed {
		return false
	}
	return true
}

// TypeStats aggregates history entries sharing a content type.
type TypeStats struct {
	Count           int           `json:"count"`
	AverageAccuracy float64       `json:"average_accuracy"`
	AverageScore    float64       `json:"average_score"`
	TotalTime       time.Duration `json:"total_time"`
}

// Analytics is the cross-session summary, recomputed wholesale from the
// history list so it can never drift from its source.
type Analytics struct {
	TotalSessions     int                       `json:"total_sessions"`
	CompletedSessions int                       `json:"completed_sessions"`
	TotalTime         time.Duration             `json:"total_time"`
	AverageAccuracy   float64                   `json:"average_accuracy"`
	ByContentType     map[ContentType]TypeStats `json:"by_content_type,omitempty"`

	// MostProductiveHour is the mode of session-start hour-of-day,
	// -1 with no history.
	MostProductiveHour int `json:"most_productive_hour"`
	// PreferredSessionLength is the mean completed-session duration in
	// minutes.
	PreferredSessionLength float64 `json:"preferred_session_length"`
	// ImprovementTrend is the least-squares slope of accuracy against
	// chronological session index, 0 with fewer than 2 points.
	ImprovementTrend float64 `json:"improvement_trend"`

	CurrentStreak  int     `json:"current_streak"`
	LongestStreak  int     `json:"longest_streak"`
	WeeklyProgress float64 `json:"weekly_progress"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Priority ranks a recommendation.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Recommendation is a heuristically generated suggestion for the next
// session. Ephemeral: regenerated on each call, never persisted.
type Recommendation struct {
	ContentType       ContentType    `json:"content_type"`
	Config            session.Config `json:"config"`
	Reason            string         `json:"reason"`
	EstimatedDuration time.Duration  `json:"estimated_duration"`
	Priority          Priority       `json:"priority"`
	Benefits          []string       `json:"benefits,omitempty"`
}

// Preferences holds the user's cross-session settings.
type Preferences struct {
	DailyGoal           int           `json:"daily_goal"`
	RemindersEnabled    bool          `json:"reminders_enabled"`
	ReminderHour        int           `json:"reminder_hour"`
	DefaultFocus        session.Focus `json:"default_focus,omitempty"`
	DefaultNumQuestions int           `json:"default_num_questions"`
}

// GoalProgress reports today's standing against the daily goal.
type GoalProgress struct {
	Completed  int     `json:"completed"`
	Target     int     `json:"target"`
	Percentage float64 `json:"percentage"`
}
