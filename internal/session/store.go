package session

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studyloop/engine/internal/evaluate"
	"github.com/studyloop/engine/internal/item"
	"github.com/studyloop/engine/internal/pool"
)

// defaultNeutralScore is recorded for non-blank answers when evaluation
// is disabled.
const defaultNeutralScore = 0.7

// evaluationFallbackFeedback is recorded on an answer whose evaluation
// call failed.
const evaluationFallbackFeedback = "Automatic evaluation was unavailable for this answer. Review it against the course material yourself."

// Store owns a single practice session's lifecycle. All exported methods
// are safe for concurrent use; state is guarded by one mutex so each
// Store behaves as a single logical owner.
type Store struct {
	pool      pool.Provider
	evaluator evaluate.Evaluator
	log       *slog.Logger
	now       func() time.Time
	rng       *rand.Rand

	evalTimeout time.Duration
	awaitEvals  time.Duration

	mu          sync.Mutex
	id          string
	status      Status
	cfg         Config
	questions   []item.Item
	progress    Progress
	performance Performance
	draft       string
	startedAt   time.Time
	resumedAt   time.Time
	elapsed     time.Duration
	failReason  string
	inflight    int
	evalWG      sync.WaitGroup
	subs        []chan Event
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRand seeds the shuffle used by the comprehensive focus.
func WithRand(rng *rand.Rand) Option {
	return func(s *Store) { s.rng = rng }
}

// WithEvaluationTimeout bounds a single evaluation call.
func WithEvaluationTimeout(d time.Duration) Option {
	return func(s *Store) { s.evalTimeout = d }
}

// WithAwaitEvaluations makes EndSession wait up to d for in-flight
// evaluations before computing final performance. Zero (the default)
// finalizes immediately with whatever results have landed.
func WithAwaitEvaluations(d time.Duration) Option {
	return func(s *Store) { s.awaitEvals = d }
}

// New creates an idle session store. The evaluator may be nil, in which
// case answers are scored with the neutral default even when the config
// enables evaluation.
func New(p pool.Provider, evaluator evaluate.Evaluator, opts ...Option) *Store {
	s := &Store{
		pool:        p,
		evaluator:   evaluator,
		log:         slog.Default(),
		now:         time.Now,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		evalTimeout: 30 * time.Second,
		status:      StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session id, empty before the first start.
func (s *Store) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Status returns the current lifecycle status.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// FailReason returns the human-readable reason after a failed start.
func (s *Store) FailReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failReason
}

// StartSession filters the question pool, ranks it per the config's
// focus, and activates the session. An empty filtered pool fails the
// whole session and returns a ValidationError describing the filter.
func (s *Store) StartSession(ctx context.Context, cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.status != StatusIdle {
		st := s.status
		s.mu.Unlock()
		return &StateError{Op: "start session", Status: st}
	}
	s.mu.Unlock()

	candidates, err := s.pool.FetchItems(ctx, pool.Filter{
		CourseID:   cfg.CourseID,
		Weeks:      cfg.Weeks,
		Difficulty: cfg.Difficulty,
	})
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.failLocked("fetching candidate questions: " + err.Error())
		return &ValidationError{Reason: "question pool unavailable: " + err.Error()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(candidates) == 0 {
		s.failLocked("no questions match the requested filters")
		return &ValidationError{Reason: "no questions match the requested filters"}
	}

	s.id = uuid.NewString()
	s.cfg = cfg
	s.questions = rankItems(candidates, cfg.Focus, cfg.NumQuestions, s.rng)
	s.progress = Progress{
		TotalQuestions: len(s.questions),
		Flagged:        make(map[string]bool),
	}
	s.performance = Performance{}
	s.draft = ""
	s.failReason = ""
	s.elapsed = 0
	s.startedAt = s.now()
	s.resumedAt = s.startedAt
	s.setStatusLocked(StatusActive)
	return nil
}

// PauseSession stops the session timer. In-flight evaluations continue.
func (s *Store) PauseSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return &StateError{Op: "pause session", Status: s.status}
	}
	s.elapsed += s.now().Sub(s.resumedAt)
	s.setStatusLocked(StatusPaused)
	return nil
}

// ResumeSession restarts the session timer.
func (s *Store) ResumeSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPaused {
		return &StateError{Op: "resume session", Status: s.status}
	}
	s.resumedAt = s.now()
	s.setStatusLocked(StatusActive)
	return nil
}

// EndSession computes final performance and completes the session.
// Pending evaluations are not awaited unless WithAwaitEvaluations was
// set; answers still in flight keep their pending/evaluating status.
func (s *Store) EndSession() (Performance, error) {
	if s.awaitEvals > 0 {
		s.waitEvaluations(s.awaitEvals)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive && s.status != StatusPaused {
		return Performance{}, &StateError{Op: "end session", Status: s.status}
	}
	return s.endLocked(), nil
}

// ResetSession returns the store to idle from any state, discarding all
// session state. Results from evaluations still in flight are dropped.
func (s *Store) ResetSession() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = ""
	s.cfg = Config{}
	s.questions = nil
	s.progress = Progress{}
	s.performance = Performance{}
	s.draft = ""
	s.failReason = ""
	s.elapsed = 0
	s.setStatusLocked(StatusIdle)
}

// IsEvaluating reports whether any evaluation call is in flight.
func (s *Store) IsEvaluating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Elapsed returns active time accumulated so far, excluding paused spans.
func (s *Store) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedLocked()
}

func (s *Store) elapsedLocked() time.Duration {
	if s.status == StatusActive {
		return s.elapsed + s.now().Sub(s.resumedAt)
	}
	return s.elapsed
}

// endLocked finalizes the session. Caller holds the lock.
func (s *Store) endLocked() Performance {
	if s.status == StatusActive {
		s.elapsed += s.now().Sub(s.resumedAt)
	}
	s.performance = s.calculatePerformanceLocked()
	s.setStatusLocked(StatusCompleted)
	return s.performance
}

// failLocked marks the session failed with a reason. Caller holds the lock.
func (s *Store) failLocked(reason string) {
	s.failReason = reason
	s.questions = nil
	s.progress = Progress{}
	s.setStatusLocked(StatusFailed)
	s.log.Warn("session failed", "session_id", s.id, "reason", reason)
}

// waitEvaluations blocks until all in-flight evaluations finish or the
// timeout expires.
func (s *Store) waitEvaluations(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		s.evalWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}

// wordCount counts whitespace-delimited non-empty tokens.
func wordCount(text string) int {
	return len(strings.Fields(text))
}
