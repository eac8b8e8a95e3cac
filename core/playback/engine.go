package playback

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"EchoFM/logger"
)

// Picker selects a shuffle index. math/rand.Rand satisfies it; tests inject
// a deterministic implementation.
type Picker interface {
	Intn(n int) int
}

// Engine is the playback session state machine. Each action consumes the
// current session state plus its input and emits a new state and a Decision.
//
// Locking: the session state lock is held only to read or write state and
// never spans a collaborator call. Play and next are serialized per user on
// a separate action gate so each action observes the state the previous one
// committed; toggles and snapshots bypass the gate, so a hung catalog or
// entitlement call never blocks them, and it is scoped to one user, so
// neither other users' actions nor range streaming ever wait on it.
type Engine struct {
	catalog     Catalog
	entitlement Entitlement
	history     History
	sessions    *Manager

	now func() time.Time

	pickMu sync.Mutex
	picker Picker
}

// Option configures an Engine.
type Option func(*Engine)

// WithPicker replaces the shuffle randomness source.
func WithPicker(p Picker) Option {
	return func(e *Engine) { e.picker = p }
}

// WithClock replaces the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine wires the state machine to its collaborators.
func NewEngine(catalog Catalog, entitlement Entitlement, history History, sessions *Manager, opts ...Option) *Engine {
	e := &Engine{
		catalog:     catalog,
		entitlement: entitlement,
		history:     history,
		sessions:    sessions,
		now:         time.Now,
		picker:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Play starts playback of a track inside a context.
func (e *Engine) Play(ctx context.Context, userID, trackID int64, pc Context) (Decision, error) {
	if err := pc.Validate(); err != nil {
		return Decision{}, err
	}

	ent := e.sessions.lock(userID)
	defer ent.actMu.Unlock()

	info, err := e.catalog.TrackByID(ctx, trackID)
	if err != nil {
		return Decision{}, upstream("resolve track", err)
	}
	if info == nil {
		return Decision{}, ErrTrackNotFound
	}

	if info.IsPremium {
		entitled, err := e.entitlement.IsEntitled(ctx, userID)
		if err != nil {
			return Decision{}, upstream("check entitlement", err)
		}
		if !entitled {
			redirect := pc
			return denied(ReasonPremiumRequired, &redirect), nil
		}
	}

	// Snapshot the playlist membership before committing so the session
	// update and the cache fill happen together or not at all.
	var contextTracks []int64
	if pc.Type == ContextPlaylist {
		contextTracks, err = e.catalog.OrderedContext(ctx, pc)
		if err != nil {
			return Decision{}, upstream("load context", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	if err := e.history.Append(ctx, userID, trackID, e.now()); err != nil {
		logger.Error("play event append failed",
			logger.Int64("userId", userID),
			logger.Int64("trackId", trackID),
			logger.ErrorField(err))
		return denied(ReasonLoggingFailure, nil), nil
	}

	ent.mu.Lock()
	ent.s.CurrentTrack = trackID
	ent.s.Context = &pc
	ent.s.ContextTracks = contextTracks
	ent.s.LastActive = time.Now()
	ent.mu.Unlock()

	return accepted(trackID), nil
}

// Next resolves and plays the following track. Resolution order: repeat,
// sequential successor, shuffle over the playlist snapshot, end of queue.
func (e *Engine) Next(ctx context.Context, userID int64) (Decision, error) {
	ent := e.sessions.lock(userID)
	defer ent.actMu.Unlock()

	// Read the state the action consumes, then release the state lock for
	// the collaborator calls. The action gate keeps other play/next actions
	// from moving the state underneath us; toggles only flip flags we have
	// already read.
	ent.mu.Lock()
	current := ent.s.CurrentTrack
	repeat := ent.s.Repeat
	shuffle := ent.s.Shuffle
	var pc *Context
	if ent.s.Context != nil {
		c := *ent.s.Context
		pc = &c
	}
	contextTracks := ent.s.ContextTracks
	ent.mu.Unlock()

	// Repeat re-affirms the current track and wins over advancing.
	if repeat && current != 0 {
		if err := ctx.Err(); err != nil {
			return Decision{}, err
		}
		if err := e.history.Append(ctx, userID, current, e.now()); err != nil {
			logger.Error("play event append failed",
				logger.Int64("userId", userID),
				logger.Int64("trackId", current),
				logger.ErrorField(err))
			return denied(ReasonLoggingFailure, nil), nil
		}
		ent.mu.Lock()
		ent.s.LastActive = time.Now()
		ent.mu.Unlock()
		return accepted(current), nil
	}

	if pc != nil && current != 0 {
		nextID, ok, err := e.catalog.NextAfter(ctx, *pc, current)
		if err != nil {
			return Decision{}, upstream("resolve next track", err)
		}
		if ok {
			return e.advance(ctx, ent, userID, pc, nextID)
		}
	}

	if shuffle && pc != nil && pc.Type == ContextPlaylist && len(contextTracks) > 0 {
		pick := contextTracks[e.pick(len(contextTracks))]
		return e.advance(ctx, ent, userID, pc, pick)
	}

	return noNext(), nil
}

// advance premium-gates a resolved track, appends the play event and moves
// the session onto it. The caller holds the action gate, not the state lock.
func (e *Engine) advance(ctx context.Context, ent *sessionEntry, userID int64, pc *Context, trackID int64) (Decision, error) {
	info, err := e.catalog.TrackByID(ctx, trackID)
	if err != nil {
		return Decision{}, upstream("resolve track", err)
	}
	if info == nil {
		return Decision{}, ErrTrackNotFound
	}

	if info.IsPremium {
		entitled, err := e.entitlement.IsEntitled(ctx, userID)
		if err != nil {
			return Decision{}, upstream("check entitlement", err)
		}
		if !entitled {
			return denied(ReasonPremiumRequired, pc), nil
		}
	}

	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	if err := e.history.Append(ctx, userID, trackID, e.now()); err != nil {
		logger.Error("play event append failed",
			logger.Int64("userId", userID),
			logger.Int64("trackId", trackID),
			logger.ErrorField(err))
		return denied(ReasonLoggingFailure, nil), nil
	}

	ent.mu.Lock()
	ent.s.CurrentTrack = trackID
	ent.s.LastActive = time.Now()
	ent.mu.Unlock()
	return accepted(trackID), nil
}

// ToggleShuffle flips the shuffle flag. Never logs, never fails.
func (e *Engine) ToggleShuffle(userID int64) Snapshot {
	ent := e.sessions.acquire(userID)
	ent.mu.Lock()
	defer ent.mu.Unlock()
	ent.s.Shuffle = !ent.s.Shuffle
	ent.s.LastActive = time.Now()
	return ent.s.snapshot()
}

// ToggleRepeat flips the repeat flag. Never logs, never fails.
func (e *Engine) ToggleRepeat(userID int64) Snapshot {
	ent := e.sessions.acquire(userID)
	ent.mu.Lock()
	defer ent.mu.Unlock()
	ent.s.Repeat = !ent.s.Repeat
	ent.s.LastActive = time.Now()
	return ent.s.snapshot()
}

// Snapshot returns the current session view without mutating it.
func (e *Engine) Snapshot(userID int64) Snapshot {
	ent := e.sessions.acquire(userID)
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.s.snapshot()
}

// Reset discards the session, e.g. at logout.
func (e *Engine) Reset(userID int64) {
	e.sessions.Drop(userID)
}

func (e *Engine) pick(n int) int {
	e.pickMu.Lock()
	defer e.pickMu.Unlock()
	return e.picker.Intn(n)
}
