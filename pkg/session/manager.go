package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerdpudding/factorio-llm/internal/logging"
	"github.com/nerdpudding/factorio-llm/pkg/agent"
	"github.com/nerdpudding/factorio-llm/pkg/domain"
	"github.com/nerdpudding/factorio-llm/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed exchange can wedge a session.
// It covers the worst case of a full iteration budget at the chat timeout.
const DefaultLockTTL = 10 * time.Minute

// Session is one live conversation.
type Session struct {
	ID        string
	Agent     *agent.Agent
	CreatedAt time.Time
}

// Factory builds the agent for a new session, wired to the shared game
// client and chat backend.
type Factory func(sessionID string) *agent.Agent

// lockEntry holds the per-session mutex and its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager registers sessions and serializes exchanges per session. Locks
// are garbage collected by reference counting once no exchange holds or
// waits on them.
type Manager struct {
	factory Factory
	lockTTL time.Duration
	locker  ports.SessionLocker
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	locks    map[string]*lockEntry
}

// Option adjusts how the Manager is built.
type Option func(*Manager)

// WithLocker adds a distributed lease on top of the local serialization,
// for deployments running more than one replica.
func WithLocker(locker ports.SessionLocker) Option {
	return func(m *Manager) { m.locker = locker }
}

// WithLockTTL overrides the distributed lease TTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.lockTTL = ttl }
}

// WithLogger sets the manager's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a session manager that builds agents with factory.
func NewManager(factory Factory, opts ...Option) *Manager {
	m := &Manager{
		factory:  factory,
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(),
		sessions: make(map[string]*Session),
		locks:    make(map[string]*lockEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create registers a new session and returns it. IDs are time-ordered so a
// listing reads in creation order.
func (m *Manager) Create() *Session {
	id := uuid.Must(uuid.NewV7()).String()
	s := &Session{ID: id, Agent: m.factory(id), CreatedAt: time.Now()}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info("session created", "session_id", id)
	return s
}

// Get returns the session with the given ID.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", sessionID, domain.ErrSessionNotFound)
	}
	return s, nil
}

// Delete removes the session. The agent's history is gone with it.
func (m *Manager) Delete(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return fmt.Errorf("session %q: %w", sessionID, domain.ErrSessionNotFound)
	}
	delete(m.sessions, sessionID)
	m.logger.Info("session deleted", "session_id", sessionID)
	return nil
}

// List returns all sessions in creation order.
func (m *Manager) List() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Chat runs one exchange on the session, serialized against other requests
// for the same session.
func (m *Manager) Chat(ctx context.Context, sessionID, message string) (string, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return "", err
	}

	var answer string
	err = m.withLock(ctx, sessionID, func(ctx context.Context) error {
		var cerr error
		answer, cerr = s.Agent.Chat(ctx, message)
		return cerr
	})
	return answer, err
}

// acquire returns the session's lock entry, creating it on first use and
// bumping its reference count. The caller must lock entry.mu and call
// release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[sessionID]
	if !ok {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[sessionID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// withLock executes fn while holding the session's local mutex and, when a
// distributed locker is configured, its lease.
func (m *Manager) withLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire session lease: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("session lease release failed, will expire via TTL",
					"session_id", sessionID, "err", err)
			}
		}()
	}

	return fn(ctx)
}
