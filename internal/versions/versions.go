package versions

import (
	"context"
	"errors"
	"log/slog"
	"runtime"

	"mergeversions/internal/logging"
	"mergeversions/internal/media"
)

// Querier reads items from the library index.
type Querier interface {
	Query(ctx context.Context, q media.Query) ([]media.Item, error)
}

// Merger links a set of items as versions of one logical item. It is never
// called with fewer than two ids.
type Merger interface {
	MergeVersions(ctx context.Context, ids []string) error
}

// Splitter removes every alternate-version link of an item. Items without
// alternates must be a no-op.
type Splitter interface {
	SplitVersions(ctx context.Context, id string) error
}

// StateReader reports an item's current merge state. It is optional; when
// absent the state returned by the index query is used.
type StateReader interface {
	MergeState(ctx context.Context, item media.Item) (media.MergeState, error)
}

// ExclusionSource supplies the configured path prefixes that are never merged
// or split. It is read on every call, so changes apply to the next read.
type ExclusionSource interface {
	ExcludedLocations() []string
}

// Library is implemented by backends that provide every capability at once.
type Library interface {
	Querier
	Merger
	Splitter
}

// Deps bundles the narrow capabilities the orchestrator depends on.
type Deps struct {
	Index      Querier
	Merger     Merger
	Splitter   Splitter
	States     StateReader
	Exclusions ExclusionSource
	Logger     *slog.Logger
}

// DepsFor fills the index, merge, and split capabilities from one backend.
func DepsFor(lib Library, exclusions ExclusionSource, logger *slog.Logger) Deps {
	deps := Deps{
		Index:      lib,
		Merger:     lib,
		Splitter:   lib,
		Exclusions: exclusions,
		Logger:     logger,
	}
	if states, ok := lib.(StateReader); ok {
		deps.States = states
	}
	return deps
}

// Options tunes batch execution.
type Options struct {
	// Workers bounds concurrent units. 1 runs units sequentially; <= 0 uses NumCPU.
	Workers int
}

// Orchestrator finds duplicate items and merges or splits their versions.
type Orchestrator struct {
	deps    Deps
	workers int
	logger  *slog.Logger
}

// New validates deps and constructs an orchestrator.
func New(deps Deps, opts Options) (*Orchestrator, error) {
	if deps.Index == nil {
		return nil, errors.New("versions: index is required")
	}
	if deps.Merger == nil {
		return nil, errors.New("versions: merger is required")
	}
	if deps.Splitter == nil {
		return nil, errors.New("versions: splitter is required")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Orchestrator{
		deps:    deps,
		workers: workers,
		logger:  logging.NewComponentLogger(deps.Logger, "versions"),
	}, nil
}

// MergeMovies merges duplicate movies across the library.
func (o *Orchestrator) MergeMovies(ctx context.Context, progress ProgressFunc) (BatchResult, error) {
	return o.MergeAll(ctx, media.KindMovie, progress)
}

// SplitMovies splits every eligible movie.
func (o *Orchestrator) SplitMovies(ctx context.Context, progress ProgressFunc) (BatchResult, error) {
	return o.SplitAll(ctx, media.KindMovie, progress)
}

// MergeEpisodes merges duplicate episodes across the library.
func (o *Orchestrator) MergeEpisodes(ctx context.Context, progress ProgressFunc) (BatchResult, error) {
	return o.MergeAll(ctx, media.KindEpisode, progress)
}

// SplitEpisodes splits every eligible episode.
func (o *Orchestrator) SplitEpisodes(ctx context.Context, progress ProgressFunc) (BatchResult, error) {
	return o.SplitAll(ctx, media.KindEpisode, progress)
}

// Filter returns an eligibility filter that reads exclusions live.
func (o *Orchestrator) Filter() *Filter {
	return NewFilter(o.deps.Exclusions, o.logger)
}

func (o *Orchestrator) stateOf(ctx context.Context, logger *slog.Logger, item media.Item) (media.MergeState, bool) {
	if o.deps.States == nil {
		return item.State, true
	}
	state, err := o.deps.States.MergeState(ctx, item)
	if err != nil {
		logger.Warn("merge state unavailable; treating item as merged",
			logging.String(logging.FieldItemID, item.ID),
			logging.String("name", item.Name),
			logging.String(logging.FieldEventType, "merge_state_failed"),
			logging.Error(err),
		)
		return media.MergeState{}, false
	}
	return state, true
}
