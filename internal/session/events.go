package session

// EventType identifies what changed in the session.
type EventType string

const (
	EventStatusChanged    EventType = "status-changed"
	EventAnswerSubmitted  EventType = "answer-submitted"
	EventAnswerEvaluating EventType = "answer-evaluating"
	EventAnswerEvaluated  EventType = "answer-evaluated"
	EventNavigated        EventType = "navigated"
)

// Event is a change notification sent to subscribers. It carries enough
// to decide whether to re-read state, not the state itself.
type Event struct {
	Type       EventType
	SessionID  string
	Status     Status
	QuestionID string
	Index      int
}

// Subscribe returns a channel of change events. Delivery is best-effort:
// events are dropped rather than blocking mutation when a subscriber
// falls behind.
func (s *Store) Subscribe() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, 16)
	s.subs = append(s.subs, ch)
	return ch
}

// setStatusLocked records a status transition and notifies subscribers.
// Caller holds the lock.
func (s *Store) setStatusLocked(status Status) {
	s.status = status
	s.publishLocked(Event{Type: EventStatusChanged, Status: status})
}

// publishLocked sends an event to every subscriber without blocking.
// Caller holds the lock.
func (s *Store) publishLocked(ev Event) {
	ev.SessionID = s.id
	if ev.Status == "" {
		ev.Status = s.status
	}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber is behind. Drop rather than stall the session.
		}
	}
}
