// Package store defines the record store ports and the subscription hub
// shared by the store adapters.
package store

import (
	"context"

	"finanzas/internal/core"
)

// Ports implemented by record store adapters.
type (
	RecordLister interface {
		// List returns every record of the stream in insertion order.
		List(ctx context.Context, user string, stream core.Stream) ([]core.Record, error)
	}

	RecordWriter interface {
		Create(ctx context.Context, user string, stream core.Stream, r core.Record) (id string, err error)
		// CreateAll stores the records together and notifies subscribers once.
		CreateAll(ctx context.Context, user string, stream core.Stream, rs []core.Record) (ids []string, err error)
		Update(ctx context.Context, user string, stream core.Stream, id string, patch core.RecordPatch) error
		Delete(ctx context.Context, user string, stream core.Stream, id string) error
	}

	// Subscriber pushes the full current list of a stream on subscribe and
	// after every change. Only the latest list is kept for a slow reader.
	// The channel is closed once ctx is done.
	Subscriber interface {
		Subscribe(ctx context.Context, user string, stream core.Stream) (<-chan []core.Record, error)
	}

	// Revisioner exposes a per-user counter bumped on every write.
	Revisioner interface {
		Revision(user string) uint64
	}

	// CutoffStore keeps the card statement day of each user.
	CutoffStore interface {
		// Cutoff returns 0 when the user never set one.
		Cutoff(ctx context.Context, user string) (int, error)
		SetCutoff(ctx context.Context, user string, day int) error
	}

	// UserLister enumerates every user with stored records.
	UserLister interface {
		Users(ctx context.Context) ([]string, error)
	}

	// RecordStore is the full surface a backend provides.
	RecordStore interface {
		RecordLister
		RecordWriter
		Subscriber
		Revisioner
		CutoffStore
		UserLister
		Close() error
	}
)

// ValidateCutoff checks a statement day.
func ValidateCutoff(day int) error {
	if day < 1 || day > 31 {
		return &core.InvalidInputError{Field: "cutoff_day", Reason: "must be between 1 and 31"}
	}
	return nil
}

// CloneRecords copies records so callers never share installment info.
func CloneRecords(in []core.Record) []core.Record {
	out := make([]core.Record, len(in))
	for i, r := range in {
		if r.Installment != nil {
			info := *r.Installment
			r.Installment = &info
		}
		out[i] = r
	}
	return out
}
