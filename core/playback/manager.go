package playback

import (
	"context"
	"sync"
	"time"

	"EchoFM/logger"
)

// DefaultSessionTTL is how long an idle session survives before the sweeper
// discards it.
const DefaultSessionTTL = 24 * time.Hour

type sessionEntry struct {
	// actMu is the per-user action gate: play and next hold it for the whole
	// action so each action observes the state the previous one committed.
	// Toggles and snapshots never take it, so a slow collaborator call only
	// ever delays this user's play/next.
	actMu sync.Mutex

	// mu guards the session state. Held only to read or write fields, never
	// across collaborator calls or file I/O.
	mu sync.Mutex
	s  Session
}

// Manager owns the per-user playback sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*sessionEntry
	ttl      time.Duration
}

// NewManager creates a session manager. A non-positive ttl falls back to
// DefaultSessionTTL.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Manager{
		sessions: make(map[int64]*sessionEntry),
		ttl:      ttl,
	}
}

// acquire returns the entry for a user, materializing the initial session
// (no track, no context, shuffle and repeat off) on first use.
func (m *Manager) acquire(userID int64) *sessionEntry {
	m.mu.RLock()
	ent, ok := m.sessions[userID]
	m.mu.RUnlock()
	if ok {
		return ent
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ent, ok = m.sessions[userID]; ok {
		return ent
	}
	ent = &sessionEntry{s: Session{UserID: userID, LastActive: time.Now()}}
	m.sessions[userID] = ent
	return ent
}

// lock returns the entry for a user with its action gate held. A sweep can
// drop an entry between the lookup and the lock; relock until the held entry
// is the one in the map so a committed action never lands on a dropped
// session.
func (m *Manager) lock(userID int64) *sessionEntry {
	for {
		ent := m.acquire(userID)
		ent.actMu.Lock()

		m.mu.RLock()
		live := m.sessions[userID] == ent
		m.mu.RUnlock()
		if live {
			return ent
		}
		ent.actMu.Unlock()
	}
}

// Drop discards a user's session, e.g. at logout. The next action starts
// from the initial state again.
func (m *Manager) Drop(userID int64) {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than the ttl and returns how many
// were dropped. An entry whose action gate is held has an action in flight
// and is skipped outright; LastActive is read under the entry's state lock.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := 0
	for userID, ent := range m.sessions {
		if !ent.actMu.TryLock() {
			continue
		}
		ent.mu.Lock()
		idle := now.Sub(ent.s.LastActive) > m.ttl
		ent.mu.Unlock()
		if idle {
			delete(m.sessions, userID)
			dropped++
		}
		ent.actMu.Unlock()
	}
	return dropped
}

// StartSweeper runs Sweep on the given interval until the context is done.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := m.Sweep(now); n > 0 {
					logger.Info("expired idle playback sessions", logger.Int("count", n))
				}
			}
		}
	}()
}
