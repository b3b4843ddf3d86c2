// Package memory is an in-process record store for development and tests.
package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"finanzas/internal/core"
	"finanzas/internal/store"
)

type Store struct {
	mu      sync.RWMutex
	records map[string]map[core.Stream][]core.Record
	cutoffs map[string]int

	hub *store.Hub
}

var _ store.RecordStore = (*Store)(nil)

func New(logger *slog.Logger) *Store {
	s := &Store{
		records: make(map[string]map[core.Stream][]core.Record),
		cutoffs: make(map[string]int),
	}
	s.hub = store.NewHub(s.List, logger)
	return s
}

// List returns a copy of the stream's records.
func (s *Store) List(_ context.Context, user string, stream core.Stream) ([]core.Record, error) {
	if !stream.IsValid() {
		return nil, &core.StoreError{Op: "list", Stream: stream, Err: core.ErrNotFound}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.CloneRecords(s.records[user][stream]), nil
}

// Create stores r under a fresh id.
func (s *Store) Create(ctx context.Context, user string, stream core.Stream, r core.Record) (string, error) {
	ids, err := s.CreateAll(ctx, user, stream, []core.Record{r})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// CreateAll stores every record or none of them.
func (s *Store) CreateAll(ctx context.Context, user string, stream core.Stream, rs []core.Record) ([]string, error) {
	if !stream.IsValid() {
		return nil, &core.StoreError{Op: "create", Stream: stream, Err: core.ErrNotFound}
	}
	for _, r := range rs {
		if err := r.Validate(); err != nil {
			return nil, &core.StoreError{Op: "create", Stream: stream, Err: err}
		}
	}

	stored := store.CloneRecords(rs)
	ids := make([]string, len(stored))
	for i := range stored {
		stored[i].ID = uuid.NewString()
		ids[i] = stored[i].ID
	}

	s.mu.Lock()
	streams, ok := s.records[user]
	if !ok {
		streams = make(map[core.Stream][]core.Record)
		s.records[user] = streams
	}
	streams[stream] = append(streams[stream], stored...)
	s.mu.Unlock()

	s.hub.Notify(ctx, user, stream)
	return ids, nil
}

// Update applies patch to the record with the given id.
func (s *Store) Update(ctx context.Context, user string, stream core.Stream, id string, patch core.RecordPatch) error {
	s.mu.Lock()
	i := s.indexOf(user, stream, id)
	if i < 0 {
		s.mu.Unlock()
		return &core.StoreError{Op: "update", Stream: stream, Err: core.ErrNotFound}
	}
	list := s.records[user][stream]
	updated := patch.Apply(list[i])
	if err := updated.Validate(); err != nil {
		s.mu.Unlock()
		return &core.StoreError{Op: "update", Stream: stream, Err: err}
	}
	list[i] = updated
	s.mu.Unlock()

	s.hub.Notify(ctx, user, stream)
	return nil
}

// Delete removes the record with the given id.
func (s *Store) Delete(ctx context.Context, user string, stream core.Stream, id string) error {
	s.mu.Lock()
	i := s.indexOf(user, stream, id)
	if i < 0 {
		s.mu.Unlock()
		return &core.StoreError{Op: "delete", Stream: stream, Err: core.ErrNotFound}
	}
	list := s.records[user][stream]
	s.records[user][stream] = append(list[:i:i], list[i+1:]...)
	s.mu.Unlock()

	s.hub.Notify(ctx, user, stream)
	return nil
}

// indexOf must be called with s.mu held.
func (s *Store) indexOf(user string, stream core.Stream, id string) int {
	for i, r := range s.records[user][stream] {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) Subscribe(ctx context.Context, user string, stream core.Stream) (<-chan []core.Record, error) {
	return s.hub.Subscribe(ctx, user, stream)
}

func (s *Store) Revision(user string) uint64 {
	return s.hub.Revision(user)
}

func (s *Store) Cutoff(_ context.Context, user string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cutoffs[user], nil
}

func (s *Store) SetCutoff(_ context.Context, user string, day int) error {
	if err := store.ValidateCutoff(day); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs[user] = day
	return nil
}

// Users returns every user with at least one record, sorted.
func (s *Store) Users(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]string, 0, len(s.records))
	for u, streams := range s.records {
		for _, list := range streams {
			if len(list) > 0 {
				users = append(users, u)
				break
			}
		}
	}
	sort.Strings(users)
	return users, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
