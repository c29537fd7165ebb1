package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"coincraft/internal/core"
	"coincraft/internal/export"
	"coincraft/internal/storage"
)

// ExportProcessorConfig holds configuration for the ledger export processor
type ExportProcessorConfig struct {
	// PollInterval is how often to check for pending transactions
	PollInterval time.Duration

	// BatchSize is the max number of transactions per poll cycle
	BatchSize int
}

// DefaultExportProcessorConfig returns sensible defaults
func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
	}
}

// ExportStore is the persistence surface for the export queue.
type ExportStore interface {
	PendingExportTransactions(ctx context.Context, limit int) ([]storage.PendingExport, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	MarkExported(ctx context.Context, id int64) error
	MarkExportError(ctx context.Context, id int64) error
	RequeueExportErrors(ctx context.Context) (int64, error)
}

// ExportProcessor drains the transaction export queue into the external
// ledger on a polling loop.
type ExportProcessor struct {
	store  ExportStore
	ledger export.LedgerAppender
	config ExportProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportProcessor(store ExportStore, ledger export.LedgerAppender, config ExportProcessorConfig) *ExportProcessor {
	return &ExportProcessor{
		store:  store,
		ledger: ledger,
		config: config,
	}
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

	slog.InfoContext(ctx, "Export processor started",
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
		slog.InfoContext(ctx, "Export processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export processor stop timed out")
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

	// Process immediately on startup
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

func (p *ExportProcessor) processBatch(ctx context.Context) {
	pending, err := p.store.PendingExportTransactions(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to fetch pending exports", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	slog.DebugContext(ctx, "Processing export batch", "count", len(pending))

	for _, item := range pending {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := p.exportOne(ctx, item.ID); err != nil {
			slog.WarnContext(ctx, "Export failed",
				"id", item.ID, "user_id", item.UserID, "error", err)
			if markErr := p.store.MarkExportError(ctx, item.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark export error",
					"id", item.ID, "error", markErr)
			}
			continue
		}

		if err := p.store.MarkExported(ctx, item.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark transaction exported",
				"id", item.ID, "error", err)
		}
	}
}

func (p *ExportProcessor) exportOne(ctx context.Context, id int64) error {
	t, err := p.store.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction %d: %w", id, err)
	}

	ref, err := p.ledger.AppendTransaction(ctx, t)
	if err != nil {
		return fmt.Errorf("append to ledger: %w", err)
	}

	slog.InfoContext(ctx, "Transaction exported to ledger",
		"id", id, "sheets_ref", ref)
	return nil
}

// RetryFailed flips errored transactions back onto the queue.
func (p *ExportProcessor) RetryFailed(ctx context.Context) (int64, error) {
	return p.store.RequeueExportErrors(ctx)
}
