package versions

import (
	"context"
	"fmt"

	"mergeversions/internal/logging"
	"mergeversions/internal/media"
)

// SplitAll fetches every item of kind and removes the alternate-version links
// of each eligible one. Items without alternates are passed to the splitter
// too; the backend treats them as a no-op.
func (o *Orchestrator) SplitAll(ctx context.Context, kind media.Kind, progress ProgressFunc) (BatchResult, error) {
	ctx, b := o.newBatch(ctx, OperationSplit, kind)

	items, err := o.Fetch(ctx, kind)
	if err != nil {
		newBatchProgress(0, progress)
		return b.result, err
	}
	b.result.Fetched = len(items)

	filter := o.Filter().WithLogger(b.logger).Snapshot()
	units := make([]unit, 0, len(items))
	for _, item := range items {
		if !filter.IsEligible(item) {
			continue
		}
		units = append(units, unit{
			label: item.Label(),
			ids:   []string{item.ID},
			run: func(ctx context.Context) (unitStatus, error) {
				attrs := []logging.Attr{
					logging.String(logging.FieldItemID, item.ID),
					logging.String("name", item.Name),
				}
				if item.Kind == media.KindEpisode {
					attrs = append(attrs, logging.String("series", item.SeriesName))
					if item.IndexNumber != nil {
						attrs = append(attrs, logging.Int("index", *item.IndexNumber))
					}
				} else {
					attrs = append(attrs, logging.Int("year", item.Year))
				}
				b.logger.Info("splitting versions", logging.Args(attrs...)...)

				if err := o.deps.Splitter.SplitVersions(ctx, item.ID); err != nil {
					return unitApplied, fmt.Errorf("split %s: %w", item.Label(), err)
				}
				return unitApplied, nil
			},
		})
	}
	b.logger.Info("split candidates selected",
		logging.Int("fetched", len(items)),
		logging.Int("eligible", len(units)),
	)

	return o.run(ctx, b, units, progress), nil
}
