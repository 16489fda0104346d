package store

import (
	"context"
	"sync"

	"github.com/huykn/teamup-client/api"
	"github.com/huykn/teamup-client/cache"
	"github.com/huykn/teamup-client/storage"
)

// ProfileAPI reads and writes the signed-in student's profile.
// *api.API implements it.
type ProfileAPI interface {
	FetchProfile(ctx context.Context) (api.User, error)
	SaveProfile(ctx context.Context, patch api.ProfilePatch) (api.User, error)
}

// Invalidator marks query cache families stale. *query.Factory implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, prefixes ...cache.Key) error
}

type profileSnapshot struct {
	Profile *api.User    `json:"profile"`
	Status  cache.Status `json:"status"`
}

// ProfileStore holds the signed-in student's profile.
type ProfileStore struct {
	api    ProfileAPI
	cache  Invalidator
	snaps  *snapshots
	logger cache.Logger

	mu    sync.Mutex
	state Slice[*api.User]
}

// NewProfileStore creates a profile store. inv and st may be nil.
func NewProfileStore(p ProfileAPI, inv Invalidator, st storage.Store, logger cache.Logger) *ProfileStore {
	if logger == nil {
		logger = cache.NewNoOpLogger()
	}
	return &ProfileStore{
		api:    p,
		cache:  inv,
		snaps:  newSnapshots(st),
		logger: logger,
		state:  Slice[*api.User]{Status: cache.StatusIdle},
	}
}

// State returns a copy of the current state.
func (s *ProfileStore) State() Slice[*api.User] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyProfile(s.state)
}

// Restore loads the persisted snapshot, if any.
func (s *ProfileStore) Restore(ctx context.Context) error {
	var snap profileSnapshot
	ok, err := s.snaps.load(ctx, ProfileSnapshotKey, &snap)
	if err != nil || !ok {
		return err
	}
	s.mu.Lock()
	s.state = Slice[*api.User]{Status: snap.Status, Data: snap.Profile}
	s.mu.Unlock()
	return nil
}

// FetchProfile loads the profile from the server.
func (s *ProfileStore) FetchProfile(ctx context.Context) error {
	s.mu.Lock()
	s.state = loading(s.state)
	s.mu.Unlock()

	u, err := s.api.FetchProfile(ctx)

	s.mu.Lock()
	if err != nil {
		s.state = failed(s.state, err)
		s.mu.Unlock()
		return err
	}
	s.state = succeeded(&u)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
	return nil
}

// UpdateProfile applies patch locally, then sends it. On failure the
// profile reverts to what it was before the call and the error is kept in
// the state. On success the server's copy replaces the local one.
func (s *ProfileStore) UpdateProfile(ctx context.Context, patch api.ProfilePatch) (api.User, error) {
	s.mu.Lock()
	before := copyProfile(s.state)
	var base api.User
	if s.state.Data != nil {
		base = *s.state.Data
	}
	optimistic := patch.Apply(base)
	s.state = Slice[*api.User]{Status: cache.StatusLoading, Data: &optimistic}
	s.mu.Unlock()

	saved, err := s.api.SaveProfile(ctx, patch)

	s.mu.Lock()
	if err != nil {
		s.state = Slice[*api.User]{Status: cache.StatusError, Data: before.Data, Err: err}
		s.mu.Unlock()
		s.logger.Warn("Profile: update rejected, rolled back", "error", err)
		return api.User{}, err
	}
	s.state = succeeded(&saved)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
	if s.cache != nil {
		keys := []cache.Key{{api.KeyProfile}}
		if saved.UserID != "" {
			keys = append(keys, cache.Key{api.KeyUser, saved.UserID})
		}
		if err := s.cache.Invalidate(ctx, keys...); err != nil {
			s.logger.Warn("Profile: invalidation failed", "error", err)
		}
	}
	return saved, nil
}

// Reset clears the profile and its snapshot.
func (s *ProfileStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.state = Slice[*api.User]{Status: cache.StatusIdle}
	s.mu.Unlock()
	return s.snaps.remove(ctx, ProfileSnapshotKey)
}

func (s *ProfileStore) snapshotLocked() profileSnapshot {
	return profileSnapshot{Profile: copyProfile(s.state).Data, Status: s.state.Status}
}

func (s *ProfileStore) persist(ctx context.Context, snap profileSnapshot) {
	if err := s.snaps.save(ctx, ProfileSnapshotKey, snap); err != nil {
		s.logger.Warn("Profile: failed to persist snapshot", "error", err)
	}
}

func copyProfile(s Slice[*api.User]) Slice[*api.User] {
	if s.Data != nil {
		u := *s.Data
		u.Skills = append([]string(nil), u.Skills...)
		s.Data = &u
	}
	return s
}
