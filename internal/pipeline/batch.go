package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/fprdiff/internal/config"
	"github.com/nao1215/fprdiff/internal/model"
	"golang.org/x/sync/errgroup"
)

// ErrNoPairs is returned when a batch is started without archive pairs.
var ErrNoPairs = errors.New("no archive pairs to compare")

// BatchProcessor compares several archive pairs concurrently.
// Pairs are independent: every pair runs through its own pipeline and a
// failure is recorded on that pair's comparison only.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each pair.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent comparisons.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed comparisons in input order.
	// Access is synchronized via mutex.
	results []*model.Comparison
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent comparisons.
// Values below 1 are ignored; the default is config.DefaultConcurrency.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
// pipelineFactory is called once per pair so pipelines share no state.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     config.DefaultConcurrency,
		results:         make([]*model.Comparison, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch compares all pairs and returns their comparisons in input
// order, including the failed ones. The error is non-nil only when there
// is nothing to do or the context was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, pairs []model.ArchivePair) ([]*model.Comparison, error) {
	bp.mu.Lock()
	bp.results = make([]*model.Comparison, len(pairs))
	bp.mu.Unlock()

	err := bp.ProcessBatchWithCallback(ctx, pairs, func(c *model.Comparison, index int) {
		bp.mu.Lock()
		bp.results[index] = c
		bp.mu.Unlock()
	})

	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.results, err
}

// ProcessBatchWithCallback compares all pairs and calls callback with each
// finished comparison and the index of its pair. Calls are serialized, so
// the callback may write to shared output without extra locking.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	pairs []model.ArchivePair,
	callback func(c *model.Comparison, index int),
) error {
	if len(pairs) == 0 {
		return ErrNoPairs
	}

	bp.logger.Info("starting batch processing",
		"total_pairs", len(pairs),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	var callbackMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, pair := range pairs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			bp.logger.Info("comparing pair",
				"previous", pair.Previous,
				"current", pair.Current,
				"index", i+1,
				"total", len(pairs),
			)

			if pair.SameArchive() {
				bp.logger.Warn("comparing an archive with itself", "archive", pair.Previous)
			}

			c := model.NewComparison(pair)
			_ = bp.pipelineFactory().Execute(gctx, c) //nolint:errcheck // Error is stored in the comparison

			if c.Failed() {
				bp.logger.Warn("comparison failed",
					"previous", pair.Previous,
					"current", pair.Current,
					"error", c.Error,
				)
			}

			callbackMu.Lock()
			callback(c, i)
			callbackMu.Unlock()

			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	bp.logger.Info("batch processing complete",
		"total_pairs", len(pairs),
		"elapsed", time.Since(startTime),
	)

	return err
}
