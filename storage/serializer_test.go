package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

type snapshot struct {
	Status    string    `json:"status"`
	Role      string    `json:"role"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func TestSaveAndLoad(t *testing.T) {
	st := NewMemoryStore()
	ser := NewJSONSerializer()
	ctx := context.Background()

	want := snapshot{Status: "authenticated", Role: "STUDENT", UpdatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	if err := Save(ctx, st, ser, "auth-storage", want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var got snapshot
	ok, err := Load(ctx, st, ser, "auth-storage", &got)
	if err != nil || !ok {
		t.Fatalf("Load failed: ok=%v err=%v", ok, err)
	}
	if !got.UpdatedAt.Equal(want.UpdatedAt) || got.Status != want.Status || got.Role != want.Role {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestLoadMissingKey(t *testing.T) {
	var got snapshot
	ok, err := Load(context.Background(), NewMemoryStore(), NewJSONSerializer(), "missing", &got)
	if err != nil {
		t.Fatalf("Missing key should not be an error: %v", err)
	}
	if ok {
		t.Error("Missing key should report false")
	}
}

func TestLoadCorruptSnapshot(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	st.Set(ctx, "auth-storage", []byte("{not json"))

	var got snapshot
	ok, err := Load(ctx, st, NewJSONSerializer(), "auth-storage", &got)
	if err == nil || ok {
		t.Fatalf("Expected a decode error, got ok=%v err=%v", ok, err)
	}
}

func TestSaveUnsupportedValue(t *testing.T) {
	err := Save(context.Background(), NewMemoryStore(), NewJSONSerializer(), "bad", make(chan int))
	if err == nil {
		t.Fatal("Expected an encode error")
	}
}

type failingStore struct{ *MemoryStore }

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection reset")
}

func TestLoadStoreError(t *testing.T) {
	var got snapshot
	_, err := Load(context.Background(), failingStore{NewMemoryStore()}, NewJSONSerializer(), "auth-storage", &got)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected the store error, got %v", err)
	}
}
