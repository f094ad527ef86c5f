// Package session groups the client state one user works with: the shared
// recently-viewed history plus a per-session draft plan and selection.
package session

import (
	"crypto/rand"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	deskerrors "github.com/hpungsan/coursedesk/internal/errors"
	"github.com/hpungsan/coursedesk/internal/history"
	"github.com/hpungsan/coursedesk/internal/logging"
	"github.com/hpungsan/coursedesk/internal/planner"
	"github.com/hpungsan/coursedesk/internal/selection"
)

// Session is one user's client state.
type Session struct {
	ID        string
	CreatedAt time.Time

	// History is shared by every session of a Manager.
	History   *history.Store
	Plan      *planner.State
	Selection *selection.State
}

// Option configures a Manager.
type Option func(*Manager)

// WithExclusiveTerms is passed on to every session's planner.
func WithExclusiveTerms(exclusive bool) Option {
	return func(m *Manager) { m.exclusiveTerms = exclusive }
}

// WithLogger sets the logger handed to planners.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Defaults for session eviction.
const (
	DefaultIdleTTL     = 30 * time.Minute
	DefaultMaxSessions = 1000
)

// WithIdleTTL evicts sessions unused for longer than d. d <= 0 disables
// idle eviction.
func WithIdleTTL(d time.Duration) Option {
	return func(m *Manager) { m.idleTTL = d }
}

// WithMaxSessions caps live sessions; creating one more evicts the least
// recently used. n <= 0 keeps DefaultMaxSessions.
func WithMaxSessions(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxSessions = n
		}
	}
}

// Manager keeps sessions by ID.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	lastSeen map[string]time.Time

	idleTTL     time.Duration
	maxSessions int

	history        *history.Store
	exclusiveTerms bool
	now            func() time.Time
	log            *slog.Logger
}

// NewManager returns a Manager whose sessions share hist.
func NewManager(hist *history.Store, opts ...Option) *Manager {
	m := &Manager{
		sessions:    make(map[string]*Session),
		lastSeen:    make(map[string]time.Time),
		history:     hist,
		now:         time.Now,
		idleTTL:     DefaultIdleTTL,
		maxSessions: DefaultMaxSessions,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = logging.OrDefault(m.log)
	return m
}

// New creates and registers a session.
func (m *Manager) New() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newLocked()
}

// Ensure returns the session with id, or a new session when id is empty or
// unknown. Callers must use the returned session's ID from then on.
func (m *Manager) Ensure(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.lookupLocked(id); ok {
		return sess, nil
	}
	return m.newLocked()
}

// Get returns the session with id or a NOT_FOUND error.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	sess, ok := m.lookupLocked(id)
	m.mu.Unlock()
	if !ok {
		return nil, deskerrors.NewNotFound("session", id)
	}
	return sess, nil
}

// Delete drops a session. Deleting an unknown session is a no-op.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.lastSeen, id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// History returns the shared history store.
func (m *Manager) History() *history.Store {
	return m.history
}

// lookupLocked returns a live session and marks it used. Sessions past their
// idle TTL are dropped instead.
func (m *Manager) lookupLocked(id string) (*Session, bool) {
	sess, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	now := m.now()
	if m.expired(id, now) {
		m.evictLocked(id, "idle")
		return nil, false
	}
	m.lastSeen[id] = now
	return sess, true
}

func (m *Manager) expired(id string, now time.Time) bool {
	return m.idleTTL > 0 && now.Sub(m.lastSeen[id]) > m.idleTTL
}

func (m *Manager) evictLocked(id, reason string) {
	delete(m.sessions, id)
	delete(m.lastSeen, id)
	m.log.Debug("session: evicted", "session_id", id, "reason", reason)
}

// makeRoomLocked drops idle sessions, then the least recently used ones
// until a new session fits under maxSessions.
func (m *Manager) makeRoomLocked(now time.Time) {
	for id := range m.sessions {
		if m.expired(id, now) {
			m.evictLocked(id, "idle")
		}
	}
	for len(m.sessions) >= m.maxSessions {
		var oldest string
		var oldestAt time.Time
		for id, at := range m.lastSeen {
			if oldest == "" || at.Before(oldestAt) {
				oldest, oldestAt = id, at
			}
		}
		if oldest == "" {
			return
		}
		m.evictLocked(oldest, "capacity")
	}
}

func (m *Manager) newLocked() (*Session, error) {
	now := m.now()
	m.makeRoomLocked(now)
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return nil, deskerrors.NewInternal(err)
	}

	sess := &Session{
		ID:        id.String(),
		CreatedAt: now,
		History:   m.history,
		Plan: planner.NewState(
			planner.WithExclusiveTerms(m.exclusiveTerms),
			planner.WithClock(m.now),
			planner.WithLogger(m.log),
		),
		Selection: selection.NewState(),
	}
	m.sessions[sess.ID] = sess
	m.lastSeen[sess.ID] = now
	m.log.Debug("session: created", "session_id", sess.ID)
	return sess, nil
}
