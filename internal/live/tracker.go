// Package live keeps the budget summaries of the signed-in user current as
// the store pushes new snapshots.
package live

import (
	"context"
	"log/slog"
	"time"

	"finanzas/internal/budget"
	"finanzas/internal/core"
	"finanzas/internal/session"
	"finanzas/internal/store"
)

// View is everything the dashboard shows for one user at one moment. The
// zero View is what a signed-out session sees.
type View struct {
	User        string                `json:"user"`
	Today       core.Date             `json:"today"`
	Weeks       []budget.WeekSummary  `json:"weeks"`
	CurrentWeek *budget.WeekSummary   `json:"current_week,omitempty"`
	Months      []budget.MonthSummary `json:"months"`
	Outlook     []budget.OutlookMonth `json:"outlook"`
}

// SignedIn reports whether the view belongs to a user.
func (v View) SignedIn() bool { return v.User != "" }

// Tracker follows a session and recomputes a View whenever the session
// changes or any of the user's streams is pushed.
type Tracker struct {
	source  store.Subscriber
	session session.Session
	now     func() time.Time
	logger  *slog.Logger
}

type Option func(*Tracker)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func NewTracker(source store.Subscriber, sess session.Session, opts ...Option) *Tracker {
	t := &Tracker{
		source:  source,
		session: sess,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run starts tracking and returns the view channel. Only the latest view is
// kept for a slow reader. The channel closes when ctx is done.
func (t *Tracker) Run(ctx context.Context) <-chan View {
	out := make(chan View, 1)
	go t.run(ctx, out)
	return out
}

// feed is the live state of one signed-in user.
type feed struct {
	user     string
	cancel   context.CancelFunc
	chans    map[core.Stream]<-chan []core.Record
	streams  budget.Streams
	received map[core.Stream]bool
}

func (f *feed) stop() {
	if f != nil {
		f.cancel()
	}
}

// channel returns the subscription of a stream, nil when there is none so
// that a select case on it never fires.
func (f *feed) channel(s core.Stream) <-chan []core.Record {
	if f == nil {
		return nil
	}
	return f.chans[s]
}

func (t *Tracker) run(ctx context.Context, out chan View) {
	defer close(out)

	users := t.session.Watch(ctx)
	var cur *feed
	defer func() { cur.stop() }()

	for {
		var (
			stream core.Stream
			recs   []core.Record
			ok     bool
		)
		select {
		case <-ctx.Done():
			return

		case user, open := <-users:
			if !open {
				return
			}
			if cur != nil && cur.user == user {
				continue
			}
			cur.stop()
			cur = nil
			if user == "" {
				t.logger.DebugContext(ctx, "Session signed out")
				offer(out, View{})
				continue
			}
			f, err := t.follow(ctx, user)
			if err != nil {
				t.logger.ErrorContext(ctx, "Failed to subscribe to user streams", "user", user, "error", err)
				offer(out, View{User: user, Today: core.TodayAt(t.now())})
				continue
			}
			cur = f
			continue

		case recs, ok = <-cur.channel(core.Income):
			stream = core.Income
		case recs, ok = <-cur.channel(core.Expense):
			stream = core.Expense
		case recs, ok = <-cur.channel(core.Installment):
			stream = core.Installment
		}

		if !ok {
			// Subscription ended without the feed being replaced.
			delete(cur.chans, stream)
			continue
		}
		cur.streams = cur.streams.With(stream, recs)
		cur.received[stream] = true
		if len(cur.received) == len(core.Streams()) {
			offer(out, t.compute(ctx, cur.user, cur.streams))
		}
	}
}

func (t *Tracker) follow(ctx context.Context, user string) (*feed, error) {
	subCtx, cancel := context.WithCancel(ctx)
	f := &feed{
		user:     user,
		cancel:   cancel,
		chans:    make(map[core.Stream]<-chan []core.Record, 3),
		received: make(map[core.Stream]bool, 3),
	}
	for _, s := range core.Streams() {
		ch, err := t.source.Subscribe(subCtx, user, s)
		if err != nil {
			cancel()
			return nil, err
		}
		f.chans[s] = ch
	}
	t.logger.DebugContext(ctx, "Following user streams", "user", user)
	return f, nil
}

func (t *Tracker) compute(ctx context.Context, user string, s budget.Streams) View {
	today := core.TodayAt(t.now())
	v := View{
		User:    user,
		Today:   today,
		Months:  budget.MarkCurrentMonth(s.MonthSummaries(nil), today),
		Outlook: budget.InstallmentOutlook(s.Installment, today),
	}
	weeks, err := s.WeekSummaries(today.Year(), today.Month())
	if err != nil {
		t.logger.ErrorContext(ctx, "Failed to compute week summaries", "user", user, "error", err)
		return v
	}
	v.Weeks = weeks
	if w, ok := budget.CurrentWeek(weeks, today.Time); ok {
		v.CurrentWeek = &w
	}
	return v
}

func offer(ch chan View, v View) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
