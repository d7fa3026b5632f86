package dashboard

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/knx2openhab/dashboard/internal/services"
)

// ViewFactory builds the view of a new session.
type ViewFactory func(sessionID string) View

// ManagerOptions tunes session lifetime.
type ManagerOptions struct {
	Session         Options
	RefreshInterval time.Duration
	IdleTimeout     time.Duration
	MaxAge          time.Duration
}

// Manager keeps the live sessions, one per browser.
type Manager struct {
	ctx     context.Context
	deps    Deps
	opts    ManagerOptions
	newView ViewFactory

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a manager whose sessions live at most as long as ctx.
func NewManager(ctx context.Context, deps Deps, newView ViewFactory, opts ManagerOptions) *Manager {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	return &Manager{
		ctx:      ctx,
		deps:     deps,
		opts:     opts,
		newView:  newView,
		sessions: make(map[string]*Session),
	}
}

// Acquire returns the live session for id. A session that is not in memory
// is restored from the store, and an unknown or empty id gets a new
// session. The returned bool is true when the session was created or
// restored by this call.
func (m *Manager) Acquire(ctx context.Context, id string) (*Session, bool, error) {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s, false, nil
		}
	}

	var restoreJob, restoreFilter string
	switch {
	case m.deps.Sessions == nil:
		if id == "" {
			id = uuid.New().String()
		}
	default:
		rec, err := m.lookup(id)
		if err != nil {
			return nil, false, err
		}
		id, restoreJob, restoreFilter = rec.ID, rec.CurrentJobID, rec.LogFilter
	}

	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		s.Touch()
		return s, false, nil
	}
	s := NewSession(m.ctx, id, m.deps, m.newView(id), m.opts.Session)
	m.sessions[id] = s
	m.mu.Unlock()

	log.Printf("[Session] Opened %s", id)
	s.Start(ctx, restoreJob, restoreFilter)
	s.AutoRefresh(m.opts.RefreshInterval)
	return s, true, nil
}

func (m *Manager) lookup(id string) (*services.SessionRecord, error) {
	if id != "" {
		rec, err := m.deps.Sessions.Get(id)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, services.ErrSessionNotFound) {
			return nil, err
		}
	}
	return m.deps.Sessions.Create()
}

// Get returns a live session and marks it used.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		s.Touch()
	}
	return s, ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Remove closes a live session. Its stored record is kept so the browser
// can restore it later.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Sweep closes sessions idle for longer than the idle timeout and purges
// stored records older than the max age. It returns how many live
// sessions were closed.
func (m *Manager) Sweep(now time.Time) int {
	var idle []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if now.Sub(s.LastSeen()) > m.opts.IdleTimeout {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}

	if m.deps.Sessions != nil && m.opts.MaxAge > 0 {
		n, err := m.deps.Sessions.Purge(m.opts.MaxAge)
		if err != nil {
			log.Printf("[Session] Failed to purge stored sessions: %v", err)
		} else if n > 0 {
			log.Printf("[Session] Purged %d stored sessions", n)
		}
	}
	return len(idle)
}

// Run sweeps every interval until ctx is done, then closes every session.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.Shutdown()
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

// Shutdown closes every live session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
