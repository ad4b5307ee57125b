package sync

import (
	"context"
	"errors"

	"github.com/sdejongh/treefill/pkg/logging"
	"github.com/sdejongh/treefill/pkg/models"
	"github.com/sdejongh/treefill/pkg/output"
)

// ErrKindConflict is recorded when a source entry and an existing
// destination entry share a name but not a kind
var ErrKindConflict = errors.New("same name, different kind")

// runCompareWorker consumes compare tasks until the queue is closed and empty
func (p *Pipeline) runCompareWorker(ctx context.Context, workerID int) {
	logger := p.logger.WithFields(logging.Fields{"worker": workerID, "pool": "compare"})

	for task := range p.compareQueue.Tasks() {
		p.compareDirectories(ctx, logger, task)
	}
}

// compareDirectories diffs one directory pair by name. Missing objects go
// to the copy queue, matching subdirectories back to the compare queue.
// The task is always retired, whatever happens during the diff.
func (p *Pipeline) compareDirectories(ctx context.Context, logger logging.Logger, task CompareTask) {
	defer p.finish(ctx)

	if ctx.Err() != nil {
		return
	}

	sourceEntries, err := p.source.List(ctx, task.Source)
	if err != nil {
		p.listFailed(ctx, logger, task, err)
		return
	}

	var targetEntries []models.Entry
	if !task.TargetAbsent {
		targetEntries, err = p.dest.List(ctx, task.Target)
		if err != nil {
			p.listFailed(ctx, logger, task, err)
			return
		}
	}

	p.report.Stats.DirsCompared.Add(1)

	existing := make(map[string]models.Entry, len(targetEntries))
	for _, entry := range targetEntries {
		existing[entry.Name] = entry
	}

	for _, entry := range sourceEntries {
		p.report.Stats.EntriesScanned.Add(1)

		if p.exclude.match(entry.Path) {
			p.report.Stats.EntriesExcluded.Add(1)
			logger.Debug(ctx, "Excluded entry", logging.Fields{
				"path": p.source.Display(entry.Path),
			})
			continue
		}

		if found, ok := existing[entry.Name]; ok {
			if entry.IsDir() != found.IsDir() {
				p.recordConflict(ctx, logger, entry, found)
				continue
			}

			p.report.Stats.EntriesPresent.Add(1)
			if entry.IsDir() && p.operation.Recursive {
				p.tracker.Push()
				p.compareQueue.Send(CompareTask{Source: entry.Path, Target: found.Path})
			}
			continue
		}

		// The directory's follow-up compare pass is reserved before the copy
		// task exists, so the tracker cannot drain while it is in flight.
		if entry.IsDir() && p.operation.Recursive {
			p.tracker.Push()
		}
		p.copyQueue <- CopyTask{Entry: entry, TargetDir: task.Target}
	}

	logger.Debug(ctx, "Compared directories", logging.Fields{
		"source":  p.source.Display(task.Source),
		"target":  p.dest.Display(task.Target),
		"entries": len(sourceEntries),
	})
	p.progress(output.ProgressUpdate{
		Type:       output.EventDirCompared,
		Path:       p.source.Display(task.Source),
		TargetPath: p.dest.Display(task.Target),
	})
}

func (p *Pipeline) listFailed(ctx context.Context, logger logging.Logger, task CompareTask, err error) {
	if ctx.Err() != nil {
		return
	}

	source := p.source.Display(task.Source)
	target := p.dest.Display(task.Target)
	if task.root {
		p.rootErr = err
	}

	p.report.AddError(models.ActionList, source, target, err)
	logger.Error(ctx, "Failed to list directory", err, logging.Fields{
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

func (p *Pipeline) recordConflict(ctx context.Context, logger logging.Logger, entry, found models.Entry) {
	conflict := models.NewConflict(
		p.source.Display(entry.Path),
		p.dest.Display(found.Path),
		entry.Kind,
		found.Kind,
	)
	p.report.AddConflict(conflict)

	logger.Error(ctx, "Skipping conflicting entry", ErrKindConflict, logging.Fields{
		"source":      conflict.SourcePath,
		"target":      conflict.TargetPath,
		"source_kind": entry.Kind.String(),
		"target_kind": found.Kind.String(),
	})
	p.progress(output.ProgressUpdate{
		Type:       output.EventConflict,
		Path:       conflict.SourcePath,
		TargetPath: conflict.TargetPath,
		Error:      ErrKindConflict,
	})
}
