package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog serves a fixed track set with one playlist ordering.
type fakeCatalog struct {
	tracks   map[int64]*TrackInfo
	playlist []int64 // ordering for any playlist context
	global   []int64 // ordering for the global context

	err error // when set, every method fails with it
}

func (c *fakeCatalog) ResolveTrackByName(_ context.Context, name string) (*TrackInfo, error) {
	if c.err != nil {
		return nil, c.err
	}
	for _, t := range c.tracks {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, nil
}

func (c *fakeCatalog) TrackByID(_ context.Context, id int64) (*TrackInfo, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.tracks[id], nil
}

func (c *fakeCatalog) OrderedContext(_ context.Context, pc Context) ([]int64, error) {
	if c.err != nil {
		return nil, c.err
	}
	switch pc.Type {
	case ContextSingle:
		return []int64{pc.TrackID}, nil
	case ContextPlaylist:
		return append([]int64(nil), c.playlist...), nil
	default:
		return append([]int64(nil), c.global...), nil
	}
}

func (c *fakeCatalog) NextAfter(_ context.Context, pc Context, current int64) (int64, bool, error) {
	if c.err != nil {
		return 0, false, c.err
	}
	var order []int64
	switch pc.Type {
	case ContextSingle:
		return 0, false, nil
	case ContextPlaylist:
		order = c.playlist
	default:
		order = c.global
	}
	for i, id := range order {
		if id == current && i+1 < len(order) {
			return order[i+1], true, nil
		}
	}
	return 0, false, nil
}

type fakeEntitlement struct {
	entitled bool
	err      error
}

func (e *fakeEntitlement) IsEntitled(context.Context, int64) (bool, error) {
	return e.entitled, e.err
}

// fakeHistory records appends in order and can be told to fail.
type fakeHistory struct {
	mu     sync.Mutex
	events []int64
	err    error
}

func (h *fakeHistory) Append(_ context.Context, _, trackID int64, _ time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.events = append(h.events, trackID)
	return nil
}

// fixedPicker always returns the same index.
type fixedPicker int

func (p fixedPicker) Intn(int) int { return int(p) }

func newTestEngine(cat *fakeCatalog, ent *fakeEntitlement, hist *fakeHistory, opts ...Option) *Engine {
	return NewEngine(cat, ent, hist, NewManager(0), opts...)
}

func standardCatalog() *fakeCatalog {
	return &fakeCatalog{
		tracks: map[int64]*TrackInfo{
			10: {ID: 10, Name: "alpha", StorageKey: "a.mp3"},
			20: {ID: 20, Name: "beta", StorageKey: "b.mp3"},
			30: {ID: 30, Name: "gamma", StorageKey: "c.mp3"},
			40: {ID: 40, Name: "delta", IsPremium: true, StorageKey: "d.mp3"},
		},
		playlist: []int64{10, 20, 30},
		global:   []int64{10, 20, 40, 30},
	}
}

func TestPlayAppendsExactlyOneEvent(t *testing.T) {
	cat := standardCatalog()
	hist := &fakeHistory{}
	e := newTestEngine(cat, &fakeEntitlement{}, hist)

	d, err := e.Play(context.Background(), 1, 10, Single(10))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, d.Outcome)
	assert.Equal(t, int64(10), d.TrackID)
	assert.Equal(t, []int64{10}, hist.events)

	snap := e.Snapshot(1)
	assert.Equal(t, int64(10), snap.CurrentTrack)
	require.NotNil(t, snap.Context)
	assert.Equal(t, ContextSingle, snap.Context.Type)
}

func TestPlayUnknownTrack(t *testing.T) {
	hist := &fakeHistory{}
	e := newTestEngine(standardCatalog(), &fakeEntitlement{}, hist)

	_, err := e.Play(context.Background(), 1, 999, Single(999))
	assert.ErrorIs(t, err, ErrTrackNotFound)
	assert.Empty(t, hist.events)
}

func TestPlayPremiumDeniedWithoutEvent(t *testing.T) {
	hist := &fakeHistory{}
	e := newTestEngine(standardCatalog(), &fakeEntitlement{entitled: false}, hist)

	pc := Playlist(5)
	d, err := e.Play(context.Background(), 1, 40, pc)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDenied, d.Outcome)
	assert.Equal(t, ReasonPremiumRequired, d.Reason)
	require.NotNil(t, d.Redirect)
	assert.Equal(t, pc, *d.Redirect)

	// A denial never reaches the history and never moves the session.
	assert.Empty(t, hist.events)
	assert.Zero(t, e.Snapshot(1).CurrentTrack)
}

func TestPlayPremiumAllowedWhenEntitled(t *testing.T) {
	hist := &fakeHistory{}
	e := newTestEngine(standardCatalog(), &fakeEntitlement{entitled: true}, hist)

	d, err := e.Play(context.Background(), 1, 40, Single(40))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, d.Outcome)
	assert.Equal(t, []int64{40}, hist.events)
}

func TestPlayLoggingFailureLeavesStateUntouched(t *testing.T) {
	hist := &fakeHistory{err: errors.New("insert failed")}
	e := newTestEngine(standardCatalog(), &fakeEntitlement{}, hist)

	// Establish a session first so there is prior state to preserve.
	hist.err = nil
	_, err := e.Play(context.Background(), 1, 10, Single(10))
	require.NoError(t, err)

	hist.err = errors.New("insert failed")
	d, err := e.Play(context.Background(), 1, 20, Single(20))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDenied, d.Outcome)
	assert.Equal(t, ReasonLoggingFailure, d.Reason)

	snap := e.Snapshot(1)
	assert.Equal(t, int64(10), snap.CurrentTrack)
	assert.Equal(t, []int64{10}, hist.events)
}

func TestPlayCancelledContextAbortsBeforeAppend(t *testing.T) {
	hist := &fakeHistory{}
	e := newTestEngine(standardCatalog(), &fakeEntitlement{}, hist)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Play(ctx, 1, 10, Single(10))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, hist.events)
	assert.Zero(t, e.Snapshot(1).CurrentTrack)
}

func TestPlayInvalidContext(t *testing.T) {
	e := newTestEngine(standardCatalog(), &fakeEntitlement{}, &fakeHistory{})

	_, err := e.Play(context.Background(), 1, 10, Context{Type: "radio"})
	assert.Error(t, err)

	_, err = e.Play(context.Background(), 1, 10, Context{Type: ContextPlaylist})
	assert.Error(t, err)
}

func TestPlayUpstreamFailure(t *testing.T) {
	cat := standardCatalog()
	cat.err = errors.New("connection refused")
	e := newTestEngine(cat, &fakeEntitlement{}, &fakeHistory{})

	_, err := e.Play(context.Background(), 1, 10, Single(10))
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestNextWalksPlaylistInOrder(t *testing.T) {
	hist := &fakeHistory{}
	e := newTestEngine(standardCatalog(), &fakeEntitlement{}, hist)

	_, err := e.Play(context.Background(), 1, 10, Playlist(5))
	require.NoError(t, err)

	d, err := e.Next(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(20), d.TrackID)

	d, err = e.Next(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(30), d.TrackID)

	// End of playlist with shuffle off.
	d, err = e.Next(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoNext, d.Outcome)

	assert.Equal(t, []int64{10, 20, 30}, hist.events)
	assert.Equal(t, int64(30), e.Snapshot(1).CurrentTrack)
}

func TestNextSingleContextHasNoSuccessor(t *testing.T) {
	e := newTestEngine(standardCatalog(), &fakeEntitlement{}, &fakeHistory{})

	_, err := e.Play(context.Background(), 1, 10, Single(10))
	require.NoError(t, err)

	d, err := e.Next(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoNext, d.Outcome)
	assert.Equal(t, int64(10), e.Snapshot(1).CurrentTrack)
}

func TestNextWithoutSession(t *testing.T) {
	e := newTestEngine(standardCatalog(), &fakeEntitlement{}, &fakeHistory{})

	d, err := e.Next(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoNext, d.Outcome)
}

func TestNextRepeatWinsOverAdvancing(t *testing.T) {
	hist := &fakeHistory{}
	e := newTestEngine(standardCatalog(), &fakeEntitlement{}, hist)

	_, err := e.Play(context.Background(), 1, 10, Playlist(5))
	require.NoError(t, err)
	e.ToggleRepeat(1)

	for i := 0; i < 3; i++ {
		d, err := e.Next(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, OutcomeAccepted, d.Outcome)
		assert.Equal(t, int64(10), d.TrackID)
	}

	// Every repeat counts as a play.
	assert.Equal(t, []int64{10, 10, 10, 10}, hist.events)

	e.ToggleRepeat(1)
	d, err := e.Next(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(20), d.TrackID)
}

func TestNextShuffleFallbackAtPlaylistEnd(t *testing.T) {
	hist := &fakeHistory{}
	e := newTestEngine(standardCatalog(), &fakeEntitlement{}, hist, WithPicker(fixedPicker(1)))

	_, err := e.Play(context.Background(), 1, 30, Playlist(5))
	require.NoError(t, err)
	e.ToggleShuffle(1)

	// 30 is the last track; the sequential successor does not exist, so
	// shuffle picks from the snapshot. Index 1 is track 20.
	d, err := e.Next(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, d.Outcome)
	assert.Equal(t, int64(20), d.TrackID)
	assert.Equal(t, []int64{30, 20}, hist.events)
}

func TestNextShuffleMidPlaylistStaysSequential(t *testing.T) {
	e := newTestEngine(standardCatalog(), &fakeEntitlement{}, &fakeHistory{}, WithPicker(fixedPicker(0)))

	_, err := e.Play(context.Background(), 1, 10, Playlist(5))
	require.NoError(t, err)
	e.ToggleShuffle(1)

	// The sequential successor exists, so shuffle does not kick in yet.
	d, err := e.Next(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(20), d.TrackID)
}

func TestNextShuffleNoFallbackForGlobal(t *testing.T) {
	cat := standardCatalog()
	e := newTestEngine(cat, &fakeEntitlement{entitled: true}, &fakeHistory{}, WithPicker(fixedPicker(0)))

	_, err := e.Play(context.Background(), 1, 30, Global())
	require.NoError(t, err)
	e.ToggleShuffle(1)

	// 30 is last in the global order and shuffle only falls back inside a
	// playlist context.
	d, err := e.Next(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoNext, d.Outcome)
}

func TestNextPremiumGateOnAdvance(t *testing.T) {
	hist := &fakeHistory{}
	e := newTestEngine(standardCatalog(), &fakeEntitlement{entitled: false}, hist)

	_, err := e.Play(context.Background(), 1, 20, Global())
	require.NoError(t, err)

	// The global successor of 20 is premium track 40.
	d, err := e.Next(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDenied, d.Outcome)
	assert.Equal(t, ReasonPremiumRequired, d.Reason)

	// The session stays on 20 and no event was logged for the denial.
	assert.Equal(t, int64(20), e.Snapshot(1).CurrentTrack)
	assert.Equal(t, []int64{20}, hist.events)
}

func TestNextLoggingFailureLeavesStateUntouched(t *testing.T) {
	hist := &fakeHistory{}
	e := newTestEngine(standardCatalog(), &fakeEntitlement{}, hist)

	_, err := e.Play(context.Background(), 1, 10, Playlist(5))
	require.NoError(t, err)

	hist.err = errors.New("insert failed")
	d, err := e.Next(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDenied, d.Outcome)
	assert.Equal(t, ReasonLoggingFailure, d.Reason)
	assert.Equal(t, int64(10), e.Snapshot(1).CurrentTrack)
}

func TestTogglesAreIndependentAndSilent(t *testing.T) {
	hist := &fakeHistory{}
	e := newTestEngine(standardCatalog(), &fakeEntitlement{}, hist)

	snap := e.ToggleShuffle(1)
	assert.True(t, snap.Shuffle)
	assert.False(t, snap.Repeat)

	snap = e.ToggleRepeat(1)
	assert.True(t, snap.Shuffle)
	assert.True(t, snap.Repeat)

	snap = e.ToggleShuffle(1)
	assert.False(t, snap.Shuffle)
	assert.True(t, snap.Repeat)

	// Toggles never touch the play log.
	assert.Empty(t, hist.events)
}

func TestResetDiscardsSession(t *testing.T) {
	e := newTestEngine(standardCatalog(), &fakeEntitlement{}, &fakeHistory{})

	_, err := e.Play(context.Background(), 1, 10, Single(10))
	require.NoError(t, err)
	e.ToggleShuffle(1)

	e.Reset(1)

	snap := e.Snapshot(1)
	assert.Zero(t, snap.CurrentTrack)
	assert.Nil(t, snap.Context)
	assert.False(t, snap.Shuffle)
	assert.False(t, snap.Repeat)
}

func TestSessionsAreIsolatedPerUser(t *testing.T) {
	e := newTestEngine(standardCatalog(), &fakeEntitlement{}, &fakeHistory{})

	_, err := e.Play(context.Background(), 1, 10, Single(10))
	require.NoError(t, err)
	_, err = e.Play(context.Background(), 2, 20, Single(20))
	require.NoError(t, err)
	e.ToggleShuffle(1)

	assert.Equal(t, int64(10), e.Snapshot(1).CurrentTrack)
	assert.True(t, e.Snapshot(1).Shuffle)
	assert.Equal(t, int64(20), e.Snapshot(2).CurrentTrack)
	assert.False(t, e.Snapshot(2).Shuffle)
}

func TestPlaylistSnapshotTakenAtPlayTime(t *testing.T) {
	cat := standardCatalog()
	hist := &fakeHistory{}
	e := newTestEngine(cat, &fakeEntitlement{}, hist, WithPicker(fixedPicker(2)))

	_, err := e.Play(context.Background(), 1, 30, Playlist(5))
	require.NoError(t, err)
	e.ToggleShuffle(1)

	// The playlist changes after play; shuffle still picks from the
	// membership snapshot taken when playback started.
	cat.playlist = []int64{99}

	d, err := e.Next(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(30), d.TrackID)
}

// blockingCatalog parks TrackByID until released, signalling entry.
type blockingCatalog struct {
	*fakeCatalog
	entered chan struct{}
	release chan struct{}
}

func (c *blockingCatalog) TrackByID(ctx context.Context, id int64) (*TrackInfo, error) {
	c.entered <- struct{}{}
	<-c.release
	return c.fakeCatalog.TrackByID(ctx, id)
}

func TestToggleNotBlockedBySlowCatalog(t *testing.T) {
	cat := &blockingCatalog{
		fakeCatalog: standardCatalog(),
		entered:     make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
	e := NewEngine(cat, &fakeEntitlement{}, &fakeHistory{}, NewManager(0))

	playDone := make(chan struct{})
	go func() {
		defer close(playDone)
		_, err := e.Play(context.Background(), 1, 10, Single(10))
		assert.NoError(t, err)
	}()
	<-cat.entered

	// The catalog call is parked; toggles touch only the state lock and
	// must not wait behind it.
	toggled := make(chan Snapshot, 1)
	go func() { toggled <- e.ToggleShuffle(1) }()

	select {
	case snap := <-toggled:
		assert.True(t, snap.Shuffle)
	case <-time.After(2 * time.Second):
		t.Fatal("toggle waited on an in-flight collaborator call")
	}

	close(cat.release)
	<-playDone
	assert.Equal(t, int64(10), e.Snapshot(1).CurrentTrack)
}

func TestSweepDuringConcurrentActions(t *testing.T) {
	m := NewManager(time.Hour)
	hist := &fakeHistory{}
	e := NewEngine(standardCatalog(), &fakeEntitlement{}, hist, m)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				_, err := e.Play(context.Background(), userID, 10, Single(10))
				assert.NoError(t, err)
				e.ToggleShuffle(userID)
				_, err = e.Next(context.Background(), userID)
				assert.NoError(t, err)
			}
		}(int64(g + 1))
	}

	for i := 0; i < 200; i++ {
		m.Sweep(time.Now())
	}
	close(stop)
	wg.Wait()
}

func TestAcceptedPlaySurvivesConcurrentSweep(t *testing.T) {
	m := NewManager(time.Hour)
	e := NewEngine(standardCatalog(), &fakeEntitlement{}, &fakeHistory{}, m)

	// Make the entry look expired, then race a play against the sweep. The
	// sweep either skips the in-flight action or runs before it; either way
	// the accepted play's state must be visible afterwards.
	ent := m.acquire(1)
	ent.s.LastActive = time.Now().Add(-2 * time.Hour)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			m.Sweep(time.Now())
		}
	}()

	for i := 0; i < 50; i++ {
		d, err := e.Play(context.Background(), 1, 10, Single(10))
		require.NoError(t, err)
		require.Equal(t, OutcomeAccepted, d.Outcome)
		require.Equal(t, int64(10), e.Snapshot(1).CurrentTrack)
	}
	<-done
}
