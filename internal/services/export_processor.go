package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	applog "finanzas/internal/log"
	"finanzas/internal/session"
	"finanzas/internal/sheets"
	"finanzas/internal/store"
)

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// PollInterval is how often pending users are exported (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of users exported per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the number of failed exports before a user is dropped
	// from the queue (default: 3)
	MaxRetries int
}

// DefaultExportProcessorConfig returns sensible defaults
func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		PollInterval: 10 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

// ExportProcessor writes the month summaries of users whose records changed
// to a summary sheet. Users are queued by Enqueue and exported in FIFO order;
// a user queued twice is exported once.
type ExportProcessor struct {
	ledger *Ledger
	writer sheets.SummaryWriter
	users  store.UserLister
	config ExportProcessorConfig
	logger *slog.Logger

	qmu      sync.Mutex
	queue    []string
	attempts map[string]int

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewExportProcessor creates a new export processor. users may be nil when
// EnqueueAll is never called.
func NewExportProcessor(ledger *Ledger, writer sheets.SummaryWriter, users store.UserLister, config ExportProcessorConfig, logger *slog.Logger) *ExportProcessor {
	if config.BatchSize < 1 {
		config.BatchSize = 1
	}
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportProcessor{
		ledger:   ledger,
		writer:   writer,
		users:    users,
		config:   config,
		logger:   logger,
		attempts: make(map[string]int),
	}
}

// Enqueue marks a user for export.
func (p *ExportProcessor) Enqueue(user string) {
	if user == "" {
		return
	}
	p.qmu.Lock()
	defer p.qmu.Unlock()
	if p.queued(user) {
		return
	}
	if _, ok := p.attempts[user]; !ok {
		p.attempts[user] = 0
	}
	p.queue = append(p.queue, user)
}

// EnqueueAll marks every user known to the store for export.
func (p *ExportProcessor) EnqueueAll(ctx context.Context) (int, error) {
	if p.users == nil {
		return 0, fmt.Errorf("export processor has no user lister")
	}
	users, err := p.users.Users(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		p.Enqueue(u)
	}
	return len(users), nil
}

// Pending returns how many users wait for export.
func (p *ExportProcessor) Pending() int {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	return len(p.queue)
}

// Export writes one user's month summaries right away.
func (p *ExportProcessor) Export(ctx context.Context, user string) error {
	rows, err := p.ledger.MonthSummaries(session.WithUser(ctx, user), nil)
	if err != nil {
		return fmt.Errorf("summaries for %s: %w", user, err)
	}
	if err := p.writer.WriteMonthSummaries(ctx, user, rows); err != nil {
		return fmt.Errorf("write summaries for %s: %w", user, err)
	}
	fields := applog.NewFields().WithOperation(applog.OpExport).WithCount(len(rows))
	p.logger.InfoContext(ctx, "Exported month summaries", append(fields.ToSlice(), applog.FieldUser, user)...)
	return nil
}

// Start begins the processing loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Export processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		p.logger.InfoContext(ctx, "Export processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning returns whether the processor is currently running
func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.processBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

// processBatch exports up to BatchSize queued users and returns how many
// succeeded.
func (p *ExportProcessor) processBatch(ctx context.Context) int {
	batch := p.dequeue()
	if len(batch) == 0 {
		return 0
	}
	p.logger.DebugContext(ctx, "Processing export batch", "count", len(batch))

	done := 0
	for i, user := range batch {
		select {
		case <-p.stopCh:
			p.requeue(batch[i:])
			return done
		case <-ctx.Done():
			p.requeue(batch[i:])
			return done
		default:
		}

		if err := p.Export(ctx, user); err != nil {
			p.handleFailure(ctx, user, err)
			continue
		}
		p.handleSuccess(user)
		done++
	}
	return done
}

func (p *ExportProcessor) dequeue() []string {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	n := min(p.config.BatchSize, len(p.queue))
	batch := append([]string(nil), p.queue[:n]...)
	p.queue = p.queue[n:]
	return batch
}

// requeue puts interrupted users back at the head of the queue.
func (p *ExportProcessor) requeue(users []string) {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	p.queue = append(append([]string(nil), users...), p.queue...)
}

func (p *ExportProcessor) handleSuccess(user string) {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	if !p.queued(user) {
		delete(p.attempts, user)
	}
}

func (p *ExportProcessor) handleFailure(ctx context.Context, user string, exportErr error) {
	p.qmu.Lock()
	defer p.qmu.Unlock()

	attempt := p.attempts[user] + 1
	fields := applog.NewFields().WithOperation(applog.OpExport).WithError(exportErr)
	p.logger.WarnContext(ctx, "Export failed",
		append(fields.ToSlice(), applog.FieldUser, user, "attempt", attempt)...)

	if attempt >= p.config.MaxRetries {
		delete(p.attempts, user)
		p.logger.ErrorContext(ctx, "Export dropped after max retries",
			"user", user,
			"attempts", attempt)
		return
	}
	p.attempts[user] = attempt
	if !p.queued(user) {
		p.queue = append(p.queue, user)
	}
}

// queued reports whether user is in the queue. Callers hold qmu.
func (p *ExportProcessor) queued(user string) bool {
	for _, u := range p.queue {
		if u == user {
			return true
		}
	}
	return false
}
