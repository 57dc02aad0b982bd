package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/inkwell-db/inkwell/es/projection"
)

var (
	// errNoEventsInBatch signals an empty poll, not a failure.
	errNoEventsInBatch = errors.New("no events in batch")
)

// Processor processes events for catch-up projections using PostgreSQL for
// checkpointing. It manages SQL transactions internally: reading a batch,
// handling each event and advancing the checkpoint commit as one unit, so a
// crash resumes from the last completed batch.
type Processor struct {
	db     *sql.DB
	store  *Store
	config projection.ProcessorConfig
}

// NewProcessor creates a new PostgreSQL projection processor.
func NewProcessor(db *sql.DB, store *Store, config projection.ProcessorConfig) *Processor {
	return &Processor{
		db:     db,
		store:  store,
		config: config,
	}
}

// Run processes events for the given projection until the context is
// canceled. It reads events in global-position order in batches and updates
// the projection's checkpoint transactionally with the processed events.
// Returns projection.ErrProjectionStopped if the handler fails.
func (p *Processor) Run(ctx context.Context, proj projection.Projection) error {
	if p.config.Logger != nil {
		p.config.Logger.Info(ctx, "projection processor starting",
			"projection", proj.Name(),
			"batch_size", p.config.BatchSize)
	}

	for {
		select {
		case <-ctx.Done():
			if p.config.Logger != nil {
				p.config.Logger.Info(ctx, "projection processor stopped",
					"projection", proj.Name(),
					"reason", ctx.Err())
			}
			return ctx.Err()
		default:
		}

		err := p.processBatch(ctx, proj)
		if err != nil {
			if errors.Is(err, errNoEventsInBatch) {
				// No events available, continue polling
				continue
			}
			if p.config.Logger != nil {
				p.config.Logger.Error(ctx, "projection processor error",
					"projection", proj.Name(),
					"error", err)
			}
			return fmt.Errorf("%w: %v", projection.ErrProjectionStopped, err)
		}
	}
}

func (p *Processor) processBatch(ctx context.Context, proj projection.Projection) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		//nolint:errcheck // Rollback error ignored: expected to fail if commit succeeds
		tx.Rollback()
	}()

	checkpoint, err := p.getCheckpoint(ctx, tx, proj.Name())
	if err != nil {
		return fmt.Errorf("failed to get checkpoint: %w", err)
	}

	events, err := p.store.ReadAll(ctx, tx, checkpoint, p.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}
	if len(events) == 0 {
		return errNoEventsInBatch
	}

	var lastPosition int64
	for i := range events {
		if err := proj.Handle(ctx, tx, events[i]); err != nil {
			return fmt.Errorf("projection handler error at position %d: %w", events[i].GlobalPosition, err)
		}
		lastPosition = events[i].GlobalPosition
	}

	if lastPosition > 0 {
		if err := p.updateCheckpoint(ctx, tx, proj.Name(), lastPosition); err != nil {
			return fmt.Errorf("failed to update checkpoint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if p.config.Logger != nil {
		p.config.Logger.Debug(ctx, "batch processed",
			"projection", proj.Name(),
			"processed", len(events),
			"checkpoint", lastPosition)
	}
	return nil
}

func (p *Processor) getCheckpoint(ctx context.Context, tx *sql.Tx, projectionName string) (int64, error) {
	query := fmt.Sprintf(`
		SELECT last_global_position
		FROM %s
		WHERE projection_name = $1
	`, p.config.CheckpointsTable)

	var checkpoint int64
	err := tx.QueryRowContext(ctx, query, projectionName).Scan(&checkpoint)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return checkpoint, nil
}

func (p *Processor) updateCheckpoint(ctx context.Context, tx *sql.Tx, projectionName string, position int64) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (projection_name, last_global_position, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (projection_name)
		DO UPDATE SET
			last_global_position = EXCLUDED.last_global_position,
			updated_at = EXCLUDED.updated_at
	`, p.config.CheckpointsTable)

	_, err := tx.ExecContext(ctx, query, projectionName, position)
	return err
}

var _ projection.ProcessorRunner = (*Processor)(nil)
