package session

import (
	"fmt"
	"sync"
)

// EventKind identifies a workspace notification.
type EventKind int

const (
	// SelectionChanged fires when the selected intervals or the current
	// session change.
	SelectionChanged EventKind = iota
	// IntervalsChanged fires when intervals are added to a session.
	IntervalsChanged
	// HoverStarted fires when the pointer rests on an interval.
	HoverStarted
	// HoverCleared fires when the pointer leaves all intervals.
	HoverCleared
)

func (k EventKind) String() string {
	switch k {
	case SelectionChanged:
		return "selection_changed"
	case IntervalsChanged:
		return "intervals_changed"
	case HoverStarted:
		return "hover_started"
	case HoverCleared:
		return "hover_cleared"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is delivered synchronously to workspace subscribers.
type Event struct {
	Kind      EventKind
	SessionID string
	// Interval is set for HoverStarted.
	Interval *Interval
}

type subscriber struct {
	id int
	fn func(Event)
}

// Workspace holds the loaded sessions, the current session and the
// per-session interval selection.
type Workspace struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
	current  string
	selected map[string][]string

	subMu  sync.Mutex
	subs   []subscriber
	nextID int
}

func NewWorkspace() *Workspace {
	return &Workspace{
		sessions: make(map[string]*Session),
		selected: make(map[string][]string),
	}
}

// Add registers a session. The first session added becomes current.
func (w *Workspace) Add(s *Session) {
	if s == nil {
		return
	}
	w.mu.Lock()
	if _, ok := w.sessions[s.ID]; !ok {
		w.order = append(w.order, s.ID)
	}
	w.sessions[s.ID] = s
	becameCurrent := w.current == ""
	if becameCurrent {
		w.current = s.ID
	}
	w.mu.Unlock()

	if becameCurrent {
		w.emit(Event{Kind: SelectionChanged, SessionID: s.ID})
	}
}

// Sessions returns the loaded sessions in load order.
func (w *Workspace) Sessions() []*Session {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*Session, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.sessions[id])
	}
	return out
}

func (w *Workspace) Session(id string) (*Session, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.sessions[id]
	return s, ok
}

// Current returns the active session or nil.
func (w *Workspace) Current() *Session {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sessions[w.current]
}

// Activate makes the session current.
func (w *Workspace) Activate(id string) error {
	w.mu.Lock()
	if _, ok := w.sessions[id]; !ok {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	changed := w.current != id
	w.current = id
	w.mu.Unlock()

	if changed {
		w.emit(Event{Kind: SelectionChanged, SessionID: id})
	}
	return nil
}

// Select replaces the session's selection with the given intervals, in order.
// Duplicate IDs are ignored.
func (w *Workspace) Select(sessionID string, intervalIDs ...string) error {
	w.mu.Lock()
	s, ok := w.sessions[sessionID]
	if !ok {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	seen := make(map[string]bool, len(intervalIDs))
	ids := make([]string, 0, len(intervalIDs))
	for _, id := range intervalIDs {
		if seen[id] {
			continue
		}
		if _, ok := s.Interval(id); !ok {
			w.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrUnknownInterval, id)
		}
		seen[id] = true
		ids = append(ids, id)
	}
	w.selected[sessionID] = ids
	w.mu.Unlock()

	w.emit(Event{Kind: SelectionChanged, SessionID: sessionID})
	return nil
}

// ClearSelection deselects every interval of the session.
func (w *Workspace) ClearSelection(sessionID string) error {
	return w.Select(sessionID)
}

// Selection returns the selected intervals of a session in selection order.
func (w *Workspace) Selection(sessionID string) []Interval {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.sessions[sessionID]
	if !ok {
		return nil
	}
	ids := w.selected[sessionID]
	out := make([]Interval, 0, len(ids))
	for _, id := range ids {
		if iv, ok := s.Interval(id); ok {
			out = append(out, iv)
		}
	}
	return out
}

// Hover announces that the pointer rests on an interval.
func (w *Workspace) Hover(sessionID, intervalID string) error {
	w.mu.RLock()
	s, ok := w.sessions[sessionID]
	var iv Interval
	if ok {
		iv, ok = s.Interval(intervalID)
		if !ok {
			w.mu.RUnlock()
			return fmt.Errorf("%w: %s", ErrUnknownInterval, intervalID)
		}
	}
	w.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}

	w.emit(Event{Kind: HoverStarted, SessionID: sessionID, Interval: &iv})
	return nil
}

// ClearHover announces that the pointer left all intervals.
func (w *Workspace) ClearHover(sessionID string) error {
	if _, ok := w.Session(sessionID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	w.emit(Event{Kind: HoverCleared, SessionID: sessionID})
	return nil
}

// AddInterval appends a user-defined interval to the session. Malformed
// ranges are rejected; zero-length ranges are kept and summarise as no data.
func (w *Workspace) AddInterval(sessionID, name string, startS, stopS float64) (Interval, error) {
	iv := Interval{
		SessionID: sessionID,
		Name:      name,
		StartS:    startS,
		StopS:     stopS,
	}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}

	w.mu.Lock()
	s, ok := w.sessions[sessionID]
	if !ok {
		w.mu.Unlock()
		return Interval{}, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	n := len(s.Intervals) + 1
	iv.ID = childID(sessionID, fmt.Sprintf("interval/%d/%s", n, iv.Span()))
	if iv.Name == "" {
		iv.Name = fmt.Sprintf("Interval %d", n)
	}
	// Copy on write so readers holding the old slice stay consistent.
	next := make([]Interval, 0, len(s.Intervals)+1)
	next = append(next, s.Intervals...)
	next = append(next, iv)
	updated := *s
	updated.Intervals = next
	w.sessions[sessionID] = &updated
	w.mu.Unlock()

	w.emit(Event{Kind: IntervalsChanged, SessionID: sessionID})
	return iv, nil
}

// Subscribe registers fn for workspace events and returns a function that
// removes it. Events are delivered synchronously in subscription order.
func (w *Workspace) Subscribe(fn func(Event)) func() {
	w.subMu.Lock()
	id := w.nextID
	w.nextID++
	w.subs = append(w.subs, subscriber{id: id, fn: fn})
	w.subMu.Unlock()

	return func() {
		w.subMu.Lock()
		defer w.subMu.Unlock()
		for i, s := range w.subs {
			if s.id == id {
				w.subs = append(w.subs[:i:i], w.subs[i+1:]...)
				return
			}
		}
	}
}

func (w *Workspace) emit(ev Event) {
	w.subMu.Lock()
	subs := make([]subscriber, len(w.subs))
	copy(subs, w.subs)
	w.subMu.Unlock()

	for _, s := range subs {
		s.fn(ev)
	}
}
