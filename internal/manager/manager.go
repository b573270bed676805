package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studyloop/engine/internal/session"
)

// Pref and snapshot keys in the durable store.
const (
	prefPreferences   = "preferences"
	prefActiveSession = "active_session"
)

// Persister is the durable layer the manager writes through to. All
// writes are best-effort: failures are logged and the in-memory state
// stays authoritative.
type Persister interface {
	SaveSnapshot(ctx context.Context, sessionID string, version int, data []byte) error
	LoadSnapshot(ctx context.Context, sessionID string) ([]byte, bool, error)
	DeleteSnapshot(ctx context.Context, sessionID string) error
	AppendHistory(ctx context.Context, id string, contentType string, startedAt time.Time, data []byte) error
	ListHistory(ctx context.Context) ([][]byte, error)
	DeleteHistory(ctx context.Context, id string) error
	SavePref(ctx context.Context, key, value string) error
	LoadPref(ctx context.Context, key string) (string, bool, error)
}

// activeInfoVersion versions the persisted ActiveSessionInfo snapshot.
const activeInfoVersion = 1

// Manager owns cross-session state: the single active session, the
// append-only history, analytics, recommendations, and preferences.
// All exported methods are safe for concurrent use.
type Manager struct {
	log     *slog.Logger
	now     func() time.Time
	persist Persister

	mu              sync.Mutex
	active          *ActiveSessionInfo
	history         []HistoryEntry // most recent first
	analytics       Analytics
	recommendations []Recommendation
	prefs           Preferences

	// recomputeWG tracks background analytics recomputation so tests
	// can wait for it to settle.
	recomputeWG sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithPersister attaches a durable store. History entries, preferences,
// and the active-session snapshot write through to it.
func WithPersister(p Persister) Option {
	return func(m *Manager) { m.persist = p }
}

// New creates a Manager. When a persister is attached, previously saved
// history, preferences, and any interrupted active session are loaded;
// load failures are logged and leave the manager empty but usable.
func New(opts ...Option) *Manager {
	m := &Manager{
		log:   slog.Default(),
		now:   time.Now,
		prefs: Preferences{DailyGoal: 1, DefaultNumQuestions: 10},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.persist != nil {
		m.loadPersisted()
	}
	return m
}

func (m *Manager) loadPersisted() {
	ctx := context.Background()

	if raw, ok, err := m.persist.LoadPref(ctx, prefPreferences); err != nil {
		m.log.Warn("loading preferences", "error", err)
	} else if ok {
		var p Preferences
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			m.log.Warn("decoding preferences", "error", err)
		} else {
			if p.DailyGoal <= 0 {
				p.DailyGoal = 1
			}
			m.prefs = p
		}
	}

	blobs, err := m.persist.ListHistory(ctx)
	if err != nil {
		m.log.Warn("loading session history", "error", err)
	}
	for _, b := range blobs {
		var e HistoryEntry
		if err := json.Unmarshal(b, &e); err != nil {
			m.log.Warn("decoding history entry", "error", err)
			continue
		}
		m.history = append(m.history, e)
	}

	if id, ok, err := m.persist.LoadPref(ctx, prefActiveSession); err != nil {
		m.log.Warn("loading active session id", "error", err)
	} else if ok && id != "" {
		data, found, err := m.persist.LoadSnapshot(ctx, id)
		switch {
		case err != nil:
			m.log.Warn("loading active session snapshot", "session_id", id, "error", err)
		case found:
			var info ActiveSessionInfo
			if err := json.Unmarshal(data, &info); err != nil {
				m.log.Warn("decoding active session snapshot", "session_id", id, "error", err)
			} else {
				m.active = &info
			}
		}
	}
}

// StartSession creates a new active session of the given content type.
// If a session is already active it is forcibly ended first with
// whatever stats its progress snapshot carries; the manager never holds
// two concurrent active sessions.
func (m *Manager) StartSession(ctx context.Context, contentType ContentType, cfg session.Config) (ActiveSessionInfo, error) {
	if !contentType.Valid() {
		return ActiveSessionInfo{}, &session.ValidationError{Reason: fmt.Sprintf("unknown content type %q", contentType)}
	}
	cfg.ContentType = string(contentType)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		m.archiveActiveLocked(ctx, statsFromProgress(m.active.Progress), false)
		m.scheduleRecomputeLocked()
	}

	now := m.now()
	m.active = &ActiveSessionInfo{
		ID:          uuid.NewString(),
		ContentType: contentType,
		Config:      cfg,
		Status:      session.StatusActive,
		StartedAt:   now,
		UpdatedAt:   now,
	}
	m.saveActiveLocked(ctx)
	return *m.active, nil
}

// EndSession archives the active session and kicks off background
// recomputation of analytics and recommendations. An id that does not
// match the current active session is a no-op.
func (m *Manager) EndSession(ctx context.Context, id string, finalStats FinalStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil || m.active.ID != id {
		m.log.Debug("end session ignored", "session_id", id)
		return nil
	}
	m.archiveActiveLocked(ctx, finalStats, true)
	m.scheduleRecomputeLocked()
	return nil
}

// PauseSession marks the active session paused.
func (m *Manager) PauseSession(id string) error {
	return m.setActiveStatus(id, "pause session", session.StatusActive, session.StatusPaused)
}

// ResumeSession marks the paused active session active again.
func (m *Manager) ResumeSession(id string) error {
	return m.setActiveStatus(id, "resume session", session.StatusPaused, session.StatusActive)
}

func (m *Manager) setActiveStatus(id, op string, from, to session.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil || m.active.ID != id {
		return &session.ValidationError{Reason: "no active session with id " + id}
	}
	if m.active.Status != from {
		return &session.StateError{Op: op, Status: m.active.Status}
	}
	m.active.Status = to
	m.active.UpdatedAt = m.now()
	m.saveActiveLocked(context.Background())
	return nil
}

// SwitchSessionType ends the current active session, if any, and starts
// a fresh one of the given type reusing the prior config where present.
func (m *Manager) SwitchSessionType(ctx context.Context, contentType ContentType) (ActiveSessionInfo, error) {
	if !contentType.Valid() {
		return ActiveSessionInfo{}, &session.ValidationError{Reason: fmt.Sprintf("unknown content type %q", contentType)}
	}

	m.mu.Lock()
	cfg := session.Config{
		NumQuestions: m.prefs.DefaultNumQuestions,
		Focus:        m.prefs.DefaultFocus,
	}
	if m.active != nil {
		cfg = m.active.Config
	}
	m.mu.Unlock()

	return m.StartSession(ctx, contentType, cfg)
}

// UpdateProgress refreshes the active session's progress snapshot so a
// crash between answers loses as little as possible.
func (m *Manager) UpdateProgress(ctx context.Context, id string, p session.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil || m.active.ID != id {
		return &session.ValidationError{Reason: "no active session with id " + id}
	}
	m.active.Progress = p
	m.active.UpdatedAt = m.now()
	m.saveActiveLocked(ctx)
	return nil
}

// ActiveSession returns a copy of the current active session, if any.
func (m *Manager) ActiveSession() (ActiveSessionInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ActiveSessionInfo{}, false
	}
	return *m.active, true
}

// RecoverSession returns the interrupted session to offer the user a
// resume, which exists only when an active session was left in a
// non-completed state. The caller decides resume versus discard.
func (m *Manager) RecoverSession() (ActiveSessionInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil || m.active.Status == session.StatusCompleted {
		return ActiveSessionInfo{}, false
	}
	return *m.active, true
}

// DiscardActiveSession drops the active session without archiving it,
// used when the user declines recovery.
func (m *Manager) DiscardActiveSession(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return
	}
	m.clearActiveLocked(ctx)
}

// GetSessionHistory returns history entries matching the filter, most
// recent first.
func (m *Manager) GetSessionHistory(filter HistoryFilter) []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []HistoryEntry
	for _, e := range m.history {
		if !filter.matches(e) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out
}

// GetSessionByID looks up one archived session.
func (m *Manager) GetSessionByID(id string) (HistoryEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.history {
		if e.ID == id {
			return e, true
		}
	}
	return HistoryEntry{}, false
}

// DeleteSession removes an archived session from history and the
// durable store.
func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.history {
		if e.ID != id {
			continue
		}
		m.history = append(m.history[:i], m.history[i+1:]...)
		if m.persist != nil {
			if err := m.persist.DeleteHistory(ctx, id); err != nil {
				m.log.Warn("deleting history entry", "session_id", id, "error", err)
			}
		}
		m.scheduleRecomputeLocked()
		return nil
	}
	return &session.ValidationError{Reason: "no archived session with id " + id}
}

// SetDailyGoal updates the daily completed-sessions target.
func (m *Manager) SetDailyGoal(ctx context.Context, n int) error {
	if n <= 0 {
		return &session.ValidationError{Reason: fmt.Sprintf("daily goal must be positive, got %d", n)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs.DailyGoal = n
	m.savePrefsLocked(ctx)
	return nil
}

// CheckGoalProgress reports completed sessions today against the daily
// goal. Independent of weekly progress.
func (m *Manager) CheckGoalProgress() GoalProgress {
	m.mu.Lock()
	defer m.mu.Unlock()

	today := dayOf(m.now())
	completed := 0
	for _, e := range m.history {
		if e.Completed && dayOf(e.EndedAt).Equal(today) {
			completed++
		}
	}

	target := m.prefs.DailyGoal
	gp := GoalProgress{Completed: completed, Target: target}
	if target > 0 {
		gp.Percentage = min(100, float64(completed)/float64(target)*100)
	}
	return gp
}

// UpdatePreferences replaces the stored preferences.
func (m *Manager) UpdatePreferences(ctx context.Context, p Preferences) error {
	if p.DailyGoal <= 0 {
		return &session.ValidationError{Reason: fmt.Sprintf("daily goal must be positive, got %d", p.DailyGoal)}
	}
	if p.ReminderHour < 0 || p.ReminderHour > 23 {
		return &session.ValidationError{Reason: fmt.Sprintf("reminder hour must be in [0, 23], got %d", p.ReminderHour)}
	}
	if !p.DefaultFocus.Valid() {
		return &session.ValidationError{Reason: fmt.Sprintf("unknown focus strategy %q", p.DefaultFocus)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = p
	m.savePrefsLocked(ctx)
	return nil
}

// Preferences returns a copy of the current preferences.
func (m *Manager) Preferences() Preferences {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs
}

// archiveActiveLocked turns the active session into a history entry,
// prepends it, and clears the active slot. Caller holds the lock.
func (m *Manager) archiveActiveLocked(ctx context.Context, stats FinalStats, completed bool) {
	now := m.now()
	entry := HistoryEntry{
		ID:                m.active.ID,
		ContentType:       m.active.ContentType,
		Config:            m.active.Config,
		StartedAt:         m.active.StartedAt,
		EndedAt:           now,
		Duration:          stats.Duration,
		Completed:         completed,
		Accuracy:          stats.Accuracy,
		Score:             stats.Score,
		QuestionsAnswered: stats.QuestionsAnswered,
		QuestionsTotal:    stats.QuestionsTotal,
		Performance:       stats.Performance,
	}
	if entry.Duration == 0 {
		entry.Duration = now.Sub(m.active.StartedAt)
	}

	m.history = append([]HistoryEntry{entry}, m.history...)
	m.clearActiveLocked(ctx)

	if m.persist != nil {
		data, err := json.Marshal(entry)
		if err != nil {
			m.log.Warn("encoding history entry", "session_id", entry.ID, "error", err)
			return
		}
		if err := m.persist.AppendHistory(ctx, entry.ID, string(entry.ContentType), entry.StartedAt, data); err != nil {
			m.log.Warn("persisting history entry", "session_id", entry.ID, "error", err)
		}
	}
}

// clearActiveLocked drops the active session and its persisted
// snapshot. Caller holds the lock.
func (m *Manager) clearActiveLocked(ctx context.Context) {
	id := m.active.ID
	m.active = nil
	if m.persist == nil {
		return
	}
	if err := m.persist.DeleteSnapshot(ctx, id); err != nil {
		m.log.Warn("deleting session snapshot", "session_id", id, "error", err)
	}
	if err := m.persist.SavePref(ctx, prefActiveSession, ""); err != nil {
		m.log.Warn("clearing active session id", "error", err)
	}
}

// saveActiveLocked writes the active session snapshot through to the
// durable store. Caller holds the lock.
func (m *Manager) saveActiveLocked(ctx context.Context) {
	if m.persist == nil || m.active == nil {
		return
	}
	data, err := json.Marshal(m.active)
	if err != nil {
		m.log.Warn("encoding active session", "session_id", m.active.ID, "error", err)
		return
	}
	if err := m.persist.SaveSnapshot(ctx, m.active.ID, activeInfoVersion, data); err != nil {
		m.log.Warn("persisting active session", "session_id", m.active.ID, "error", err)
	}
	if err := m.persist.SavePref(ctx, prefActiveSession, m.active.ID); err != nil {
		m.log.Warn("persisting active session id", "error", err)
	}
}

func (m *Manager) savePrefsLocked(ctx context.Context) {
	if m.persist == nil {
		return
	}
	data, err := json.Marshal(m.prefs)
	if err != nil {
		m.log.Warn("encoding preferences", "error", err)
		return
	}
	if err := m.persist.SavePref(ctx, prefPreferences, string(data)); err != nil {
		m.log.Warn("persisting preferences", "error", err)
	}
}

// scheduleRecomputeLocked refreshes analytics and recommendations in the
// background so archival never blocks session flow. Caller holds the lock.
func (m *Manager) scheduleRecomputeLocked() {
	m.recomputeWG.Add(1)
	go func() {
		defer m.recomputeWG.Done()

		m.mu.Lock()
		defer m.mu.Unlock()
		m.analytics = m.computeAnalyticsLocked()
		m.recommendations = m.generateRecommendationsLocked()
	}()
}

// statsFromProgress derives best-effort final stats when a session is
// force-ended without an explicit summary.
func statsFromProgress(p session.Progress) FinalStats {
	return FinalStats{
		Accuracy:          p.AverageScore,
		Score:             p.AverageScore,
		QuestionsAnswered: p.AnsweredCount,
		QuestionsTotal:    p.TotalQuestions,
		Duration:          p.TimeSpent,
	}
}

// dayOf truncates t to its local calendar day.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
