package versions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"mergeversions/internal/logging"
	"mergeversions/internal/media"
	"mergeversions/internal/services"
)

// ErrBatchFailures reports that at least one unit of a batch failed.
var ErrBatchFailures = errors.New("one or more units failed")

// Operation names a batch type.
type Operation string

const (
	OperationMerge Operation = "merge"
	OperationSplit Operation = "split"
)

// BatchResult summarizes a completed batch.
type BatchResult struct {
	RunID     string
	Operation Operation
	Kind      media.Kind
	Fetched   int
	Units     int
	Applied   int
	Skipped   int
	Failed    int
	Duration  time.Duration
	// Errors joins every unit failure; nil when Failed is zero.
	Errors error
}

// Err returns ErrBatchFailures wrapped with the unit errors, or nil.
func (r BatchResult) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%s %s: %d of %d: %w", r.Operation, r.Kind.Plural(), r.Failed, r.Units, errors.Join(ErrBatchFailures, r.Errors))
}

type unitStatus int

const (
	unitApplied unitStatus = iota
	unitSkipped
)

// unit is one independent piece of batch work: a duplicate group or a single item.
type unit struct {
	label string
	ids   []string
	run   func(ctx context.Context) (unitStatus, error)
}

type batch struct {
	result BatchResult
	logger *slog.Logger
	start  time.Time
}

// newBatch starts a batch and returns ctx annotated with its run id.
func (o *Orchestrator) newBatch(ctx context.Context, op Operation, kind media.Kind) (context.Context, *batch) {
	runID := uuid.NewString()
	logger := o.logger.With(
		logging.String(logging.FieldRunID, runID),
		logging.String(logging.FieldKind, kind.Plural()),
		logging.String("operation", string(op)),
	)
	return services.WithRunID(ctx, runID), &batch{
		result: BatchResult{RunID: runID, Operation: op, Kind: kind},
		logger: logger,
		start:  time.Now(),
	}
}

// run executes units on the worker pool. Each unit is attempted exactly once;
// a failing or panicking unit is logged and counted, never propagated.
func (o *Orchestrator) run(ctx context.Context, b *batch, units []unit, sink ProgressFunc) BatchResult {
	b.result.Units = len(units)
	progress := newBatchProgress(len(units), sink)

	var (
		mu   sync.Mutex
		errs []error
	)

	workers := pool.New().WithMaxGoroutines(o.workers)
	for _, u := range units {
		workers.Go(func() {
			status, err := guard(ctx, u.run)

			mu.Lock()
			switch {
			case err != nil:
				b.result.Failed++
				errs = append(errs, fmt.Errorf("%s: %w", u.label, err))
			case status == unitSkipped:
				b.result.Skipped++
			default:
				b.result.Applied++
			}
			mu.Unlock()

			if err != nil {
				logging.ErrorWithContext(b.logger, fmt.Sprintf("%s failed", b.result.Operation), string(b.result.Operation)+"_failed",
					logging.String("unit", u.label),
					logging.String("ids", strings.Join(u.ids, ",")),
					logging.String(logging.FieldErrorHint, "verify the library server is reachable and the items still exist"),
					logging.Error(err),
				)
			}
			progress.Done()
		})
	}
	workers.Wait()

	b.result.Errors = errors.Join(errs...)
	b.result.Duration = time.Since(b.start)
	b.logger.Info("batch complete",
		logging.Int("units", b.result.Units),
		logging.Int("applied", b.result.Applied),
		logging.Int("skipped", b.result.Skipped),
		logging.Int("failed", b.result.Failed),
		logging.String("duration", b.result.Duration.Round(time.Millisecond).String()),
	)
	return b.result
}

func guard(ctx context.Context, fn func(context.Context) (unitStatus, error)) (status unitStatus, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
