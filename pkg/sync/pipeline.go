package sync

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/treefill/pkg/logging"
	"github.com/sdejongh/treefill/pkg/models"
	"github.com/sdejongh/treefill/pkg/output"
	"github.com/sdejongh/treefill/pkg/ratelimit"
	"github.com/sdejongh/treefill/pkg/storage"
)

// Pipeline runs one synchronization. A pool of compare workers diffs
// directory pairs and a pool of copy workers materializes missing objects.
// The pools are joined by an unbounded compare queue and a bounded copy
// queue; an ActivityTracker detects when the discovered work has drained.
type Pipeline struct {
	source    storage.Backend
	dest      storage.Backend
	formatter output.Formatter
	logger    logging.Logger
	operation *models.SyncOperation
	limiter   *ratelimit.Limiter
	exclude   *excluder

	tracker      *ActivityTracker
	compareQueue *compareQueue
	copyQueue    chan CopyTask

	// closeCount lets tests check that the queues are closed exactly once
	closeCount atomic.Int32

	report *models.SyncReport

	// rootErr is written by the single worker that handles the root task
	// and read after every worker has exited.
	rootErr error
}

// NewPipeline creates a pipeline for operation.
// operation must already be validated; a nil logger discards output and a
// nil formatter disables progress events.
func NewPipeline(
	source, dest storage.Backend,
	formatter output.Formatter,
	logger logging.Logger,
	operation *models.SyncOperation,
) *Pipeline {
	if logger == nil {
		logger = logging.Discard()
	}

	return &Pipeline{
		source:       source,
		dest:         dest,
		formatter:    formatter,
		logger:       logger,
		operation:    operation,
		limiter:      ratelimit.NewLimiter(operation.BandwidthLimit),
		exclude:      newExcluder(operation.ExcludePatterns),
		tracker:      NewActivityTracker(),
		compareQueue: newCompareQueue(),
		copyQueue:    make(chan CopyTask, operation.CopyQueueSize),
		report: &models.SyncReport{
			OperationID: operation.ID,
			SourcePath:  source.Display(""),
			DestPath:    dest.Display(""),
			Recursive:   operation.Recursive,
			DryRun:      operation.DryRun,
		},
	}
}

// Run seeds the root compare task, waits for both pools to exit and
// returns the report. The returned error is non-nil only when the root
// directories themselves could not be listed; per-object failures are
// recorded in the report.
func (p *Pipeline) Run(ctx context.Context) (*models.SyncReport, error) {
	report := p.report
	report.StartTime = time.Now()

	p.logger.Info(ctx, "Starting sync operation", logging.Fields{
		"source":          report.SourcePath,
		"dest":            report.DestPath,
		"recursive":       p.operation.Recursive,
		"dry_run":         p.operation.DryRun,
		"compare_workers": p.operation.CompareWorkers,
		"copy_workers":    p.operation.CopyWorkers,
		"copy_queue_size": p.operation.CopyQueueSize,
		"bandwidth_limit": p.limiter.Rate(),
	})

	if p.formatter != nil {
		if err := p.formatter.Start(p.operation); err != nil {
			p.logger.Warn(ctx, "Formatter failed to start", logging.Fields{"error": err.Error()})
		}
	}

	var g errgroup.Group
	for i := 0; i < p.operation.CompareWorkers; i++ {
		workerID := i
		g.Go(func() error {
			p.runCompareWorker(ctx, workerID)
			return nil
		})
	}
	for i := 0; i < p.operation.CopyWorkers; i++ {
		workerID := i
		g.Go(func() error {
			p.runCopyWorker(ctx, workerID)
			return nil
		})
	}

	p.compareQueue.Send(CompareTask{root: true, TargetAbsent: p.operation.DestAbsent})

	// Workers never return errors; failures live in the report
	_ = g.Wait()

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	report.Status = p.status(ctx)

	p.logger.Info(ctx, "Sync operation completed", logging.Fields{
		"duration":          report.Duration.String(),
		"status":            report.Status,
		"dirs_compared":     report.Stats.DirsCompared.Load(),
		"files_copied":      report.Stats.FilesCopied.Load(),
		"dirs_created":      report.Stats.DirsCreated.Load(),
		"entries_present":   report.Stats.EntriesPresent.Load(),
		"bytes_transferred": report.Stats.BytesTransferred.Load(),
		"conflicts":         report.Stats.ConflictCount.Load(),
		"errors":            report.Stats.ErrorCount.Load(),
	})

	if p.formatter != nil {
		if err := p.formatter.Complete(report); err != nil {
			p.logger.Warn(ctx, "Formatter failed to complete", logging.Fields{"error": err.Error()})
		}
	}

	if p.rootErr != nil {
		return report, fmt.Errorf("failed to compare root directories: %w", p.rootErr)
	}
	return report, nil
}

func (p *Pipeline) status(ctx context.Context) models.SyncStatus {
	switch {
	case ctx.Err() != nil:
		return models.StatusCancelled
	case p.rootErr != nil:
		return models.StatusFailed
	case p.report.HasFailures():
		return models.StatusPartial
	default:
		return models.StatusSuccess
	}
}

// finish retires one compare task. The call that drains the tracker
// closes both queues, which lets every idle worker exit.
func (p *Pipeline) finish(ctx context.Context) {
	if !p.tracker.Pop() {
		return
	}

	p.logger.Debug(ctx, "No compare work remains, closing queues", nil)
	p.closeCount.Add(1)
	p.compareQueue.Close()
	close(p.copyQueue)
}

func (p *Pipeline) progress(update output.ProgressUpdate) {
	if p.formatter != nil {
		p.formatter.Progress(update)
	}
}
