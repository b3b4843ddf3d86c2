// Package storetest holds behaviour checks shared by every store adapter.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/store"
)

// Factory opens an empty store for one test.
type Factory func(t *testing.T) store.RecordStore

// Run exercises the adapter returned by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateListUpdateDelete", func(t *testing.T) { testCRUD(t, newStore(t)) })
	t.Run("CreateAllKeepsInstallmentInfo", func(t *testing.T) { testCreateAll(t, newStore(t)) })
	t.Run("UnknownID", func(t *testing.T) { testUnknownID(t, newStore(t)) })
	t.Run("UsersAreIsolated", func(t *testing.T) { testIsolation(t, newStore(t)) })
	t.Run("Subscribe", func(t *testing.T) { testSubscribe(t, newStore(t)) })
	t.Run("Cutoff", func(t *testing.T) { testCutoff(t, newStore(t)) })
}

func record(date, amount, desc string) core.Record {
	return core.Record{
		Amount:      decimal.RequireFromString(amount),
		Description: desc,
		Date:        core.MustParseDate(date),
	}
}

func testCRUD(t *testing.T, s store.RecordStore) {
	ctx := context.Background()
	id, err := s.Create(ctx, "ana", core.Expense, record("2024-03-02", "12.345", "coffee"))
	if err != nil || id == "" {
		t.Fatalf("create: id=%q err=%v", id, err)
	}
	if _, err := s.Create(ctx, "ana", core.Expense, record("2024-03-05", "40", "books")); err != nil {
		t.Fatalf("create second: %v", err)
	}

	list, err := s.List(ctx, "ana", core.Expense)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != id || list[0].Description != "coffee" {
		t.Fatalf("unexpected list: %+v", list)
	}
	if !list[0].Amount.Equal(decimal.RequireFromString("12.345")) || list[0].Date.String() != "2024-03-02" {
		t.Fatalf("record not stored verbatim: %+v", list[0])
	}

	desc := "espresso"
	amount := decimal.RequireFromString("2.50")
	if err := s.Update(ctx, "ana", core.Expense, id, core.RecordPatch{Description: &desc, Amount: &amount}); err != nil {
		t.Fatalf("update: %v", err)
	}
	list, _ = s.List(ctx, "ana", core.Expense)
	if list[0].Description != "espresso" || !list[0].Amount.Equal(amount) || list[0].Date.String() != "2024-03-02" {
		t.Fatalf("unexpected update result: %+v", list[0])
	}

	before := s.Revision("ana")
	if err := s.Delete(ctx, "ana", core.Expense, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.Revision("ana") <= before {
		t.Fatalf("revision did not advance on delete")
	}
	list, _ = s.List(ctx, "ana", core.Expense)
	if len(list) != 1 || list[0].Description != "books" {
		t.Fatalf("unexpected list after delete: %+v", list)
	}
}

func testCreateAll(t *testing.T, s store.RecordStore) {
	ctx := context.Background()
	rs := []core.Record{
		record("2024-01-31", "333.33", "tv"),
		record("2024-02-29", "333.33", "tv"),
	}
	for i := range rs {
		rs[i].Installment = &core.InstallmentInfo{Index: i + 1, Count: 2, PurchaseTotal: decimal.NewFromInt(666)}
	}
	ids, err := s.CreateAll(ctx, "ana", core.Installment, rs)
	if err != nil || len(ids) != 2 || ids[0] == ids[1] {
		t.Fatalf("create all: ids=%v err=%v", ids, err)
	}
	if rs[0].ID != "" {
		t.Fatalf("input records must not be modified")
	}

	list, _ := s.List(ctx, "ana", core.Installment)
	if len(list) != 2 {
		t.Fatalf("got %d records", len(list))
	}
	info := list[1].Installment
	if info == nil || info.Index != 2 || info.Count != 2 || !info.PurchaseTotal.Equal(decimal.NewFromInt(666)) {
		t.Fatalf("installment info lost: %+v", info)
	}

	bad := []core.Record{record("2024-01-01", "1", "ok"), {Amount: decimal.NewFromInt(1)}}
	if _, err := s.CreateAll(ctx, "ana", core.Installment, bad); err == nil {
		t.Fatalf("expected invalid record to be rejected")
	}
	if list, _ := s.List(ctx, "ana", core.Installment); len(list) != 2 {
		t.Fatalf("rejected batch must not be partially stored, got %d", len(list))
	}
}

func testUnknownID(t *testing.T, s store.RecordStore) {
	ctx := context.Background()
	desc := "x"
	err := s.Update(ctx, "ana", core.Income, "missing", core.RecordPatch{Description: &desc})
	var se *core.StoreError
	if !errors.As(err, &se) || !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update unknown: expected StoreError wrapping ErrNotFound, got %v", err)
	}
	err = s.Delete(ctx, "ana", core.Income, "missing")
	if !errors.As(err, &se) || !errors.Is(err, core.ErrNotFound) || se.Op != "delete" {
		t.Fatalf("delete unknown: got %v", err)
	}
}

func testIsolation(t *testing.T, s store.RecordStore) {
	ctx := context.Background()
	if _, err := s.Create(ctx, "ana", core.Income, record("2024-01-01", "1", "a")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(ctx, "bea", core.Income, record("2024-01-01", "2", "b")); err != nil {
		t.Fatalf("create: %v", err)
	}
	list, _ := s.List(ctx, "bea", core.Income)
	if len(list) != 1 || list[0].Description != "b" {
		t.Fatalf("bea sees %+v", list)
	}
	if list, _ := s.List(ctx, "ana", core.Expense); len(list) != 0 {
		t.Fatalf("streams must be isolated, got %+v", list)
	}
	users, err := s.Users(ctx)
	if err != nil || len(users) != 2 || users[0] != "ana" || users[1] != "bea" {
		t.Fatalf("users = %v err=%v", users, err)
	}
}

func testSubscribe(t *testing.T, s store.RecordStore) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Subscribe(ctx, "ana", core.Income)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if got := next(t, ch); len(got) != 0 {
		t.Fatalf("initial snapshot = %+v", got)
	}

	if _, err := s.Create(context.Background(), "ana", core.Income, record("2024-05-01", "1000", "salary")); err != nil {
		t.Fatalf("create: %v", err)
	}
	got := next(t, ch)
	if len(got) != 1 || got[0].Description != "salary" {
		t.Fatalf("snapshot after create = %+v", got)
	}

	// Writes to other streams or users are not delivered here.
	if _, err := s.Create(context.Background(), "ana", core.Expense, record("2024-05-02", "1", "x")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(context.Background(), "bea", core.Income, record("2024-05-02", "1", "x")); err != nil {
		t.Fatalf("create: %v", err)
	}
	select {
	case v := <-ch:
		t.Fatalf("unexpected delivery: %+v", v)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			// a final value may still be buffered; the next read must see close
			if _, ok := <-ch; ok {
				t.Fatalf("channel not closed after cancel")
			}
		}
	case <-time.After(time.Second):
		t.Fatalf("channel not closed after cancel")
	}
}

func testCutoff(t *testing.T, s store.RecordStore) {
	ctx := context.Background()
	day, err := s.Cutoff(ctx, "ana")
	if err != nil || day != 0 {
		t.Fatalf("default cutoff = %d err=%v", day, err)
	}
	if err := s.SetCutoff(ctx, "ana", 15); err != nil {
		t.Fatalf("set cutoff: %v", err)
	}
	if err := s.SetCutoff(ctx, "ana", 20); err != nil {
		t.Fatalf("overwrite cutoff: %v", err)
	}
	if day, _ := s.Cutoff(ctx, "ana"); day != 20 {
		t.Fatalf("cutoff = %d, want 20", day)
	}
	var ie *core.InvalidInputError
	if err := s.SetCutoff(ctx, "ana", 32); !errors.As(err, &ie) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
}

func next(t *testing.T, ch <-chan []core.Record) []core.Record {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed")
		}
		return v
	case <-time.After(time.Second):
		t.Fatalf("no snapshot delivered")
	}
	return nil
}
