// Package runner provides optional tooling for running multiple catch-up
// projections concurrently. It is explicit, deterministic, and CLI-friendly
// without imposing framework behavior or automatic scheduling.
package runner

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/inkwell-db/inkwell/es/projection"
)

var (
	// ErrNoProjections indicates that no projections were provided to run.
	ErrNoProjections = errors.New("no projections provided")
)

// ProjectionRunner pairs a projection with its processor.
// The processor is adapter-specific (postgres.Processor) and knows how to
// manage transactions and checkpoints for that storage type.
type ProjectionRunner struct {
	Projection projection.Projection
	Processor  projection.ProcessorRunner
}

// Runner orchestrates multiple projections concurrently.
// It is storage-agnostic and works with any processor implementation.
//
// Example with PostgreSQL:
//
//	store := postgres.NewStore(postgres.DefaultStoreConfig())
//	proc1 := postgres.NewProcessor(db, store, config1)
//	proc2 := postgres.NewProcessor(db, store, config2)
//
//	r := runner.New()
//	err := r.Run(ctx, []runner.ProjectionRunner{
//	    {Projection: &MyProjection{}, Processor: proc1},
//	    {Projection: &MyOtherProjection{}, Processor: proc2},
//	})
type Runner struct{}

// New creates a new projection runner.
func New() *Runner {
	return &Runner{}
}

// Run runs multiple projections concurrently until the context is canceled.
// Each projection runs in its own goroutine with its processor.
//
// If a projection returns an error, all other projections are canceled and
// the first error is returned. This ensures fail-fast behavior: a buggy
// projection surfaces instead of silently falling behind.
func (r *Runner) Run(ctx context.Context, runners []ProjectionRunner) error {
	if len(runners) == 0 {
		return ErrNoProjections
	}

	for i, pr := range runners {
		if pr.Projection == nil {
			return fmt.Errorf("projection at index %d is nil", i)
		}
		if pr.Processor == nil {
			return fmt.Errorf("processor at index %d is nil", i)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, pr := range runners {
		pr := pr
		g.Go(func() error {
			err := pr.Processor.Run(ctx, pr.Projection)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("projection %q failed: %w", pr.Projection.Name(), err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
