// Package worker keeps the spreadsheet export in step with the record
// stores: change events queue the affected user, and a cron schedule queues
// every user as a backstop for lost events.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"finanzas/internal/amqp"
)

// ChangeConsumer delivers record change events until ctx is done.
type ChangeConsumer interface {
	ConsumeRecordChanges(ctx context.Context, handler func(context.Context, *amqp.RecordChangedMessage) error) error
}

// Exporter queues users for export and drains the queue in the background.
type Exporter interface {
	Enqueue(user string)
	EnqueueAll(ctx context.Context) (int, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ExportWorker wires change events and the export schedule to an Exporter.
type ExportWorker struct {
	consumer ChangeConsumer
	exporter Exporter
	schedule cron.Schedule
	spec     string
	logger   *slog.Logger
}

// NewExportWorker parses schedule as a standard five-field cron spec.
// consumer may be nil, leaving the schedule as the only trigger.
func NewExportWorker(consumer ChangeConsumer, exporter Exporter, schedule string, logger *slog.Logger) (*ExportWorker, error) {
	if exporter == nil {
		return nil, errors.New("export worker needs an exporter")
	}
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("parse export schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportWorker{
		consumer: consumer,
		exporter: exporter,
		schedule: sched,
		spec:     schedule,
		logger:   logger,
	}, nil
}

// HandleRecordChanged queues the user named by a change event.
func (w *ExportWorker) HandleRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error {
	if msg == nil || msg.User == "" {
		return nil
	}
	w.logger.DebugContext(ctx, "Record change received",
		"user", msg.User,
		"stream", msg.Stream,
		"action", msg.Action)
	w.exporter.Enqueue(msg.User)
	return nil
}

// ExportAll queues every known user. It runs at startup and on schedule.
func (w *ExportWorker) ExportAll(ctx context.Context) {
	n, err := w.exporter.EnqueueAll(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Scheduled export failed", "error", err)
		return
	}
	w.logger.InfoContext(ctx, "Scheduled export queued", "users", n)
}

// NextRun reports when the schedule fires next after t.
func (w *ExportWorker) NextRun(t time.Time) time.Time {
	return w.schedule.Next(t)
}

// Run starts the exporter, queues a startup export, then consumes change
// events and fires the schedule until ctx is done.
func (w *ExportWorker) Run(ctx context.Context) error {
	if err := w.exporter.Start(ctx); err != nil {
		return fmt.Errorf("start exporter: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := w.exporter.Stop(stopCtx); err != nil {
			w.logger.Error("Failed to stop exporter", "error", err)
		}
	}()

	w.ExportAll(ctx)

	c := cron.New()
	c.Schedule(w.schedule, cron.FuncJob(func() { w.ExportAll(ctx) }))
	c.Start()
	defer func() { <-c.Stop().Done() }()
	w.logger.InfoContext(ctx, "Export schedule started", "schedule", w.spec, "next", w.NextRun(time.Now()))

	g, gctx := errgroup.WithContext(ctx)
	if w.consumer != nil {
		g.Go(func() error {
			err := w.consumer.ConsumeRecordChanges(gctx, w.HandleRecordChanged)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		w.logger.InfoContext(ctx, "No change feed configured, relying on the schedule")
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	return g.Wait()
}
