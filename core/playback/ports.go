package playback

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TrackInfo is the slice of track metadata the playback core needs.
type TrackInfo struct {
	ID         int64
	Name       string
	IsPremium  bool
	StorageKey string
}

// Catalog resolves tracks and context orderings. Implementations return
// (nil, nil) for an unknown track so lookup failures stay distinguishable
// from upstream errors.
type Catalog interface {
	ResolveTrackByName(ctx context.Context, name string) (*TrackInfo, error)
	TrackByID(ctx context.Context, id int64) (*TrackInfo, error)
	OrderedContext(ctx context.Context, pc Context) ([]int64, error)
	NextAfter(ctx context.Context, pc Context, currentTrackID int64) (int64, bool, error)
}

// Entitlement answers whether a user may play premium tracks.
type Entitlement interface {
	IsEntitled(ctx context.Context, userID int64) (bool, error)
}

// History is the append-only play log. Append must be atomic: either the
// event is durably recorded or an error is returned.
type History interface {
	Append(ctx context.Context, userID, trackID int64, playedAt time.Time) error
}

var (
	// ErrTrackNotFound reports a track id or name that the catalog does not know.
	ErrTrackNotFound = errors.New("track not found")
	// ErrUpstreamUnavailable reports a collaborator failure. Callers should
	// retry rather than treat it as a denial.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, op, err)
}
