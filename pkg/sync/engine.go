package sync

import (
	"context"
	"fmt"

	"github.com/sdejongh/treefill/pkg/logging"
	"github.com/sdejongh/treefill/pkg/models"
	"github.com/sdejongh/treefill/pkg/output"
	"github.com/sdejongh/treefill/pkg/storage"
)

// Engine orchestrates the sync operation
type Engine struct {
	source    storage.Backend
	dest      storage.Backend
	formatter output.Formatter
	logger    logging.Logger
	operation *models.SyncOperation
}

// NewEngine creates a new sync engine
func NewEngine(
	source, dest storage.Backend,
	formatter output.Formatter,
	logger logging.Logger,
	operation *models.SyncOperation,
) *Engine {
	return &Engine{
		source:    source,
		dest:      dest,
		formatter: formatter,
		logger:    logger,
		operation: operation,
	}
}

// Run validates the operation and executes it through a fresh pipeline.
// Both roots must exist; preparing them is the caller's job.
func (e *Engine) Run(ctx context.Context) (*models.SyncReport, error) {
	e.operation.ApplyDefaults()
	if err := e.operation.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sync operation: %w", err)
	}

	pipeline := NewPipeline(
		e.source,
		e.dest,
		e.formatter,
		e.logger,
		e.operation,
	)

	return pipeline.Run(ctx)
}
