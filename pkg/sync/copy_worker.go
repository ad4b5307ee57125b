package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sdejongh/treefill/pkg/logging"
	"github.com/sdejongh/treefill/pkg/models"
	"github.com/sdejongh/treefill/pkg/output"
	"github.com/sdejongh/treefill/pkg/ratelimit"
)

// Progress reporting thresholds
const (
	progressReportInterval = 50 * time.Millisecond // Minimum time between progress reports
	progressReportBytes    = 64 * 1024             // Minimum bytes between reports (64KB)
)

var errNotRegular = errors.New("not a regular file")

// progressReader wraps an io.Reader to report copied bytes.
// Reads fail once ctx is done so an in-flight copy stops on cancellation.
type progressReader struct {
	ctx            context.Context
	reader         io.Reader
	read           int64
	lastReported   int64
	lastReportTime time.Time
	onProgress     func(bytesRead int64)
}

func (pr *progressReader) Read(b []byte) (int, error) {
	if err := pr.ctx.Err(); err != nil {
		return 0, err
	}

	n, err := pr.reader.Read(b)
	if n > 0 {
		pr.read += int64(n)

		// Throttle callbacks by bytes or time, always report the last read
		if pr.onProgress != nil {
			if pr.read-pr.lastReported >= progressReportBytes ||
				time.Since(pr.lastReportTime) >= progressReportInterval ||
				err != nil {
				pr.onProgress(pr.read)
				pr.lastReported = pr.read
				pr.lastReportTime = time.Now()
			}
		}
	}
	return n, err
}

// runCopyWorker consumes copy tasks until the queue is closed and empty.
// Each worker owns one copy buffer.
func (p *Pipeline) runCopyWorker(ctx context.Context, workerID int) {
	logger := p.logger.WithFields(logging.Fields{"worker": workerID, "pool": "copy"})
	buf := make([]byte, p.operation.BufferSize)

	for task := range p.copyQueue {
		destPath := p.dest.Join(task.TargetDir, task.Entry.Name)
		if task.Entry.IsDir() {
			p.createDirectory(ctx, logger, task.Entry, destPath)
		} else {
			p.copyFile(ctx, logger, task.Entry, destPath, buf)
		}
	}
}

// createDirectory creates a missing directory and, when recursive, hands the
// new pair back to the compare pool. That compare pass was already counted
// by the compare worker that found the directory missing, so a directory
// that cannot be created must retire it here.
func (p *Pipeline) createDirectory(ctx context.Context, logger logging.Logger, entry models.Entry, destPath string) {
	if ctx.Err() != nil {
		p.retire(ctx)
		return
	}

	source := p.source.Display(entry.Path)
	target := p.dest.Display(destPath)

	if !p.operation.DryRun {
		if err := p.dest.Mkdir(ctx, destPath); err != nil {
			p.recordCopyError(ctx, logger, models.ActionMkdir, source, target, err)
			p.retire(ctx)
			return
		}
	}

	p.report.Stats.DirsCreated.Add(1)
	logger.Info(ctx, p.describe("Created directory", "Would create directory"), logging.Fields{
		"source": source,
		"target": target,
	})
	p.progress(output.ProgressUpdate{
		Type:       output.EventDirCreated,
		Path:       source,
		TargetPath: target,
	})

	if p.operation.Recursive {
		p.compareQueue.Send(CompareTask{
			Source:       entry.Path,
			Target:       destPath,
			TargetAbsent: p.operation.DryRun,
		})
	}
}

// retire drops the compare pass reserved for a directory that will never
// be compared
func (p *Pipeline) retire(ctx context.Context) {
	if p.operation.Recursive {
		p.finish(ctx)
	}
}

func (p *Pipeline) copyFile(ctx context.Context, logger logging.Logger, entry models.Entry, destPath string, buf []byte) {
	if ctx.Err() != nil {
		return
	}

	source := p.source.Display(entry.Path)
	target := p.dest.Display(destPath)

	// Symlinks are copied by content; FIFOs, sockets and devices are not
	// copied at all since opening them can block forever.
	if entry.Kind == models.KindOther {
		resolved, err := p.source.Stat(ctx, entry.Path)
		if err != nil {
			p.recordCopyError(ctx, logger, models.ActionCopy, source, target, err)
			return
		}
		if resolved.Kind != models.KindFile {
			p.recordCopyError(ctx, logger, models.ActionCopy, source, target,
				fmt.Errorf("%w: %s", errNotRegular, resolved.Kind))
			return
		}
		entry.Size = resolved.Size
	}

	p.progress(output.ProgressUpdate{
		Type:       output.EventCopyStart,
		Path:       source,
		TargetPath: target,
		TotalBytes: entry.Size,
	})

	written := entry.Size
	if !p.operation.DryRun {
		var err error
		written, err = p.transfer(ctx, logger, entry, destPath, buf)
		if err != nil {
			p.recordCopyError(ctx, logger, models.ActionCopy, source, target, err)
			return
		}
	}

	p.report.Stats.FilesCopied.Add(1)
	p.report.Stats.BytesTransferred.Add(written)

	logger.Info(ctx, p.describe("Copied file", "Would copy file"), logging.Fields{
		"source": source,
		"target": target,
		"bytes":  written,
	})
	p.progress(output.ProgressUpdate{
		Type:         output.EventCopyComplete,
		Path:         source,
		TargetPath:   target,
		BytesWritten: written,
		TotalBytes:   entry.Size,
	})
}

// transfer copies the contents of entry into a newly created destPath.
// A partially written destination is removed on failure.
func (p *Pipeline) transfer(ctx context.Context, logger logging.Logger, entry models.Entry, destPath string, buf []byte) (int64, error) {
	reader, err := p.source.Open(ctx, entry.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to open source: %w", err)
	}
	defer reader.Close()

	writer, err := p.dest.Create(ctx, destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination: %w", err)
	}

	source := p.source.Display(entry.Path)
	target := p.dest.Display(destPath)
	tracked := &progressReader{
		ctx:            ctx,
		reader:         ratelimit.NewReader(ctx, reader, p.limiter),
		lastReportTime: time.Now(),
		onProgress: func(bytesRead int64) {
			p.progress(output.ProgressUpdate{
				Type:         output.EventCopyProgress,
				Path:         source,
				TargetPath:   target,
				BytesWritten: bytesRead,
				TotalBytes:   entry.Size,
			})
		},
	}

	written, err := io.CopyBuffer(writer, tracked, buf)
	if closeErr := writer.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := p.dest.Remove(ctx, destPath); rmErr != nil {
			logger.Warn(ctx, "Failed to remove partial file", logging.Fields{
				"target": target,
				"error":  rmErr.Error(),
			})
		}
		return written, fmt.Errorf("failed to copy contents: %w", err)
	}

	return written, nil
}

func (p *Pipeline) recordCopyError(ctx context.Context, logger logging.Logger, op models.Action, source, target string, err error) {
	// Failures caused by cancellation are reported through the run status
	if ctx.Err() != nil {
		return
	}

	p.report.AddError(op, source, target, err)
	logger.Error(ctx, "Failed to "+string(op), err, logging.Fields{
		"source": source,
		"target": target,
	})
	p.progress(output.ProgressUpdate{
		Type:       output.EventError,
		Path:       source,
		TargetPath: target,
		Error:      err,
	})
}

func (p *Pipeline) describe(done, dryRun string) string {
	if p.operation.DryRun {
		return dryRun
	}
	return done
}
