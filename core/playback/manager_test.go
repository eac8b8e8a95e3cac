package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManagerAcquireMaterializesInitialState(t *testing.T) {
	m := NewManager(0)

	ent := m.acquire(7)
	assert.Equal(t, int64(7), ent.s.UserID)
	assert.Zero(t, ent.s.CurrentTrack)
	assert.Nil(t, ent.s.Context)
	assert.False(t, ent.s.Shuffle)
	assert.False(t, ent.s.Repeat)
	assert.Equal(t, 1, m.Len())

	// Same user, same entry.
	assert.Same(t, ent, m.acquire(7))
	assert.Equal(t, 1, m.Len())
}

func TestManagerDrop(t *testing.T) {
	m := NewManager(0)

	ent := m.acquire(7)
	ent.s.CurrentTrack = 10
	m.Drop(7)
	assert.Zero(t, m.Len())

	// The next acquire starts fresh.
	assert.Zero(t, m.acquire(7).s.CurrentTrack)
}

func TestManagerSweepExpiresIdleSessions(t *testing.T) {
	m := NewManager(time.Hour)
	now := time.Now()

	stale := m.acquire(1)
	stale.s.LastActive = now.Add(-2 * time.Hour)
	fresh := m.acquire(2)
	fresh.s.LastActive = now.Add(-time.Minute)

	assert.Equal(t, 1, m.Sweep(now))
	assert.Equal(t, 1, m.Len())
	assert.Same(t, fresh, m.acquire(2))
}

func TestManagerSweepKeepsSessionAtExactTTL(t *testing.T) {
	m := NewManager(time.Hour)
	now := time.Now()

	ent := m.acquire(1)
	ent.s.LastActive = now.Add(-time.Hour)

	// Expiry is strict: idle for exactly the ttl is not yet expired.
	assert.Zero(t, m.Sweep(now))
	assert.Equal(t, 1, m.Len())
}

func TestManagerConcurrentAcquire(t *testing.T) {
	m := NewManager(0)
	done := make(chan struct{})

	for i := 0; i < 16; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := int64(1); j <= 8; j++ {
				m.acquire(j)
			}
		}()
	}
	for i := 0; i < 16; i++ {
		<-done
	}
	assert.Equal(t, 8, m.Len())
}

func TestManagerSweepSkipsEntryWithActionInFlight(t *testing.T) {
	m := NewManager(time.Hour)
	now := time.Now()

	ent := m.acquire(1)
	ent.s.LastActive = now.Add(-2 * time.Hour)

	// A held action gate means an action is committing; the sweep must not
	// pull the entry out from under it.
	ent.actMu.Lock()
	assert.Zero(t, m.Sweep(now))
	assert.Equal(t, 1, m.Len())
	ent.actMu.Unlock()

	assert.Equal(t, 1, m.Sweep(now))
	assert.Zero(t, m.Len())
}

func TestManagerLockReturnsLiveEntry(t *testing.T) {
	m := NewManager(time.Hour)

	stale := m.acquire(1)
	stale.s.LastActive = time.Now().Add(-2 * time.Hour)
	m.Sweep(time.Now())

	// The swept entry is gone; lock must hand back the entry that is
	// actually in the map.
	ent := m.lock(1)
	defer ent.actMu.Unlock()
	assert.NotSame(t, stale, ent)
	assert.Same(t, ent, m.acquire(1))
}
