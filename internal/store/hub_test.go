package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finanzas/internal/core"
)

type fakeSource struct {
	mu   sync.Mutex
	data map[core.Stream][]core.Record
	err  error
}

func (f *fakeSource) load(_ context.Context, _ string, stream core.Stream) ([]core.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.data[stream], nil
}

func (f *fakeSource) put(stream core.Stream, rs ...core.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[stream] = rs
}

func TestHubKeepsLatestValue(t *testing.T) {
	src := &fakeSource{data: map[core.Stream][]core.Record{}}
	h := NewHub(src.load, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := h.Subscribe(ctx, "ana", core.Expense)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	for _, d := range []string{"a", "b", "c"} {
		src.put(core.Expense, core.Record{ID: d})
		h.Notify(context.Background(), "ana", core.Expense)
	}

	got := <-ch
	if len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("expected only the latest snapshot, got %+v", got)
	}
	select {
	case v := <-ch:
		t.Fatalf("stale snapshot delivered: %+v", v)
	default:
	}
	if h.Revision("ana") != 3 || h.Revision("bea") != 0 {
		t.Fatalf("unexpected revisions %d/%d", h.Revision("ana"), h.Revision("bea"))
	}
}

func TestHubUnsubscribeOnCancel(t *testing.T) {
	src := &fakeSource{data: map[core.Stream][]core.Record{}}
	h := NewHub(src.load, nil)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := h.Subscribe(ctx, "ana", core.Income)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	<-ch
	if h.Subscribers("ana", core.Income) != 1 {
		t.Fatalf("expected one subscriber")
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("channel not closed")
	}
	if h.Subscribers("ana", core.Income) != 0 {
		t.Fatalf("subscriber not removed")
	}
	// Notify after unsubscribe must not panic on the closed channel.
	h.Notify(context.Background(), "ana", core.Income)
}

func TestHubSubscribeLoadError(t *testing.T) {
	boom := errors.New("boom")
	h := NewHub((&fakeSource{err: boom}).load, nil)
	_, err := h.Subscribe(context.Background(), "ana", core.Income)
	var se *core.StoreError
	if !errors.As(err, &se) || !errors.Is(err, boom) {
		t.Fatalf("expected StoreError wrapping cause, got %v", err)
	}
	if _, err := h.Subscribe(context.Background(), "ana", core.Stream("nope")); err == nil {
		t.Fatalf("expected error for unknown stream")
	}
}

func TestCloneRecords(t *testing.T) {
	in := []core.Record{{ID: "a", Installment: &core.InstallmentInfo{Index: 1, Count: 2}}}
	out := CloneRecords(in)
	out[0].Installment.Index = 2
	if in[0].Installment.Index != 1 {
		t.Fatalf("clone shares installment info")
	}
}

func TestValidateCutoff(t *testing.T) {
	for _, d := range []int{1, 15, 31} {
		if err := ValidateCutoff(d); err != nil {
			t.Fatalf("%d: %v", d, err)
		}
	}
	for _, d := range []int{0, 32, -1} {
		if err := ValidateCutoff(d); err == nil {
			t.Fatalf("%d: expected error", d)
		}
	}
}
