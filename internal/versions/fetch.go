package versions

import (
	"context"
	"fmt"

	"mergeversions/internal/logging"
	"mergeversions/internal/media"
)

// FetchMovies returns every non-virtual movie under the library root that
// carries a TMDb id.
func (o *Orchestrator) FetchMovies(ctx context.Context) ([]media.Item, error) {
	items, err := o.deps.Index.Query(ctx, media.Query{
		Kind:              media.KindMovie,
		Recursive:         true,
		ExcludeVirtual:    true,
		RequireExternalID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch movies: %w", err)
	}
	kept := make([]media.Item, 0, len(items))
	for _, item := range items {
		if item.TmdbID() == "" || item.Virtual {
			continue
		}
		kept = append(kept, item)
	}
	if dropped := len(items) - len(kept); dropped > 0 {
		o.logger.Debug("dropped movies without a tmdb id or marked virtual",
			logging.Int("dropped", dropped),
		)
	}
	return kept, nil
}

// FetchEpisodes returns every non-virtual episode in the library.
func (o *Orchestrator) FetchEpisodes(ctx context.Context) ([]media.Item, error) {
	items, err := o.deps.Index.Query(ctx, media.Query{
		Kind:           media.KindEpisode,
		Recursive:      true,
		ExcludeVirtual: true,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch episodes: %w", err)
	}
	kept := make([]media.Item, 0, len(items))
	for _, item := range items {
		if item.Virtual {
			continue
		}
		kept = append(kept, item)
	}
	return kept, nil
}

// Fetch dispatches to the fetcher for kind.
func (o *Orchestrator) Fetch(ctx context.Context, kind media.Kind) ([]media.Item, error) {
	switch kind {
	case media.KindMovie:
		return o.FetchMovies(ctx)
	case media.KindEpisode:
		return o.FetchEpisodes(ctx)
	default:
		return nil, fmt.Errorf("unsupported media kind %q", kind)
	}
}
