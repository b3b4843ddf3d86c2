package store

import (
	"context"
	"log/slog"
	"sync"

	"finanzas/internal/core"
)

// LoadFunc reads the current list of one stream.
type LoadFunc func(ctx context.Context, user string, stream core.Stream) ([]core.Record, error)

type hubKey struct {
	user   string
	stream core.Stream
}

// Hub fans out stream snapshots to subscribers. Each subscriber channel has
// room for one value; a newer snapshot replaces an unread one.
type Hub struct {
	load   LoadFunc
	logger *slog.Logger

	mu          sync.Mutex
	subscribers map[hubKey]map[chan []core.Record]struct{}
	revisions   map[string]uint64
}

// NewHub creates a hub that reads snapshots through load.
func NewHub(load LoadFunc, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		load:        load,
		logger:      logger,
		subscribers: make(map[hubKey]map[chan []core.Record]struct{}),
		revisions:   make(map[string]uint64),
	}
}

// Subscribe registers a subscriber and delivers the current snapshot.
func (h *Hub) Subscribe(ctx context.Context, user string, stream core.Stream) (<-chan []core.Record, error) {
	if !stream.IsValid() {
		return nil, &core.StoreError{Op: "subscribe", Stream: stream, Err: core.ErrNotFound}
	}
	key := hubKey{user: user, stream: stream}
	ch := make(chan []core.Record, 1)

	h.mu.Lock()
	records, err := h.load(ctx, user, stream)
	if err != nil {
		h.mu.Unlock()
		return nil, &core.StoreError{Op: "subscribe", Stream: stream, Err: err}
	}
	subs, ok := h.subscribers[key]
	if !ok {
		subs = make(map[chan []core.Record]struct{})
		h.subscribers[key] = subs
	}
	subs[ch] = struct{}{}
	offer(ch, records)
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		defer h.mu.Unlock()
		if subs, exists := h.subscribers[key]; exists {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.subscribers, key)
			}
		}
		close(ch)
	}()

	return ch, nil
}

// Notify bumps the user's revision and pushes a fresh snapshot of the
// stream to its subscribers.
func (h *Hub) Notify(ctx context.Context, user string, stream core.Stream) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.revisions[user]++

	subs := h.subscribers[hubKey{user: user, stream: stream}]
	if len(subs) == 0 {
		return
	}
	records, err := h.load(context.WithoutCancel(ctx), user, stream)
	if err != nil {
		h.logger.Error("Failed to load snapshot for subscribers",
			"user", user, "stream", stream, "error", err)
		return
	}
	for ch := range subs {
		offer(ch, records)
	}
}

// Revision returns the number of writes seen for the user.
func (h *Hub) Revision(user string) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.revisions[user]
}

// Subscribers returns the number of open subscriptions for a stream.
func (h *Hub) Subscribers(user string, stream core.Stream) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[hubKey{user: user, stream: stream}])
}

// offer replaces any unread value. Callers hold h.mu, so no other sender
// can refill the buffer in between.
func offer(ch chan []core.Record, records []core.Record) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- CloneRecords(records):
	default:
	}
}
