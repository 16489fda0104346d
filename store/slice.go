// Package store holds the domain stores: auth, student profile, groups and
// posts. Each store is an independent {status, data, error} record with
// action methods; cross-store effects go through explicit calls.
package store

import (
	"context"

	"github.com/huykn/teamup-client/cache"
	"github.com/huykn/teamup-client/storage"
)

// Snapshot keys in the persisted store.
const (
	AuthSnapshotKey    = "auth-storage"
	ProfileSnapshotKey = "student-profile-storage"
)

// Slice is one independent status triple.
type Slice[T any] struct {
	Status cache.Status
	Data   T
	Err    error
}

func loading[T any](prev Slice[T]) Slice[T] {
	return Slice[T]{Status: cache.StatusLoading, Data: prev.Data}
}

func succeeded[T any](data T) Slice[T] {
	return Slice[T]{Status: cache.StatusSuccess, Data: data}
}

func failed[T any](prev Slice[T], err error) Slice[T] {
	return Slice[T]{Status: cache.StatusError, Data: prev.Data, Err: err}
}

// Resetter is implemented by every store that is cleared on sign-out.
type Resetter interface {
	Reset(ctx context.Context) error
}

// snapshots persists store state. A nil *snapshots persists nothing.
type snapshots struct {
	store storage.Store
	ser   storage.Serializer
}

func newSnapshots(st storage.Store) *snapshots {
	if st == nil {
		return nil
	}
	return &snapshots{store: st, ser: storage.NewJSONSerializer()}
}

func (s *snapshots) save(ctx context.Context, key string, v any) error {
	if s == nil {
		return nil
	}
	return storage.Save(ctx, s.store, s.ser, key, v)
}

func (s *snapshots) load(ctx context.Context, key string, v any) (bool, error) {
	if s == nil {
		return false, nil
	}
	return storage.Load(ctx, s.store, s.ser, key, v)
}

func (s *snapshots) remove(ctx context.Context, key string) error {
	if s == nil {
		return nil
	}
	return s.store.Delete(ctx, key)
}
