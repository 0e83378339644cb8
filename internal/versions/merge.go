package versions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mergeversions/internal/logging"
	"mergeversions/internal/media"
)

// GroupOutcome describes what MergeGroup did with one set of candidates.
type GroupOutcome struct {
	// Merged is true when the merge primitive was called and succeeded.
	Merged bool
	// IDs are the eligible, unmerged member ids, in candidate order.
	IDs        []string
	Candidates int
	// Representative is the first selected member; zero when fewer than two were selected.
	Representative media.Item
}

// memberDecision records why a candidate was or was not selected for a merge.
type memberDecision struct {
	Item     media.Item
	Eligible bool
	Unmerged bool
	Selected bool
}

// MergeGroup merges the eligible, unmerged members of candidates. Fewer than
// two such members is a no-op, not an error.
func (o *Orchestrator) MergeGroup(ctx context.Context, candidates []media.Item) (GroupOutcome, error) {
	return o.mergeGroup(ctx, o.Filter(), o.logger, candidates)
}

// MergeAll fetches every item of kind, groups duplicates, and merges each
// group on the worker pool. The returned error is non-nil only when the fetch
// fails; unit failures are reported through BatchResult.
func (o *Orchestrator) MergeAll(ctx context.Context, kind media.Kind, progress ProgressFunc) (BatchResult, error) {
	ctx, b := o.newBatch(ctx, OperationMerge, kind)

	items, err := o.Fetch(ctx, kind)
	if err != nil {
		newBatchProgress(0, progress)
		return b.result, err
	}
	b.result.Fetched = len(items)

	groups := GroupItems(kind, items)
	b.logger.Info("duplicate groups found",
		logging.Int("fetched", len(items)),
		logging.Int("groups", len(groups)),
	)

	filter := o.Filter().WithLogger(b.logger).Snapshot()
	units := make([]unit, 0, len(groups))
	for _, group := range groups {
		units = append(units, unit{
			label: group.Key,
			ids:   group.IDs(),
			run: func(ctx context.Context) (unitStatus, error) {
				outcome, err := o.mergeGroup(ctx, filter, b.logger, group.Items)
				if err != nil {
					return unitApplied, err
				}
				if !outcome.Merged {
					return unitSkipped, nil
				}
				return unitApplied, nil
			},
		})
	}

	return o.run(ctx, b, units, progress), nil
}

func (o *Orchestrator) mergeGroup(ctx context.Context, filter *Filter, logger *slog.Logger, candidates []media.Item) (GroupOutcome, error) {
	outcome := GroupOutcome{Candidates: len(candidates)}
	var selected []media.Item
	for _, decision := range o.selectMergeable(ctx, filter, logger, candidates) {
		if decision.Selected {
			selected = append(selected, decision.Item)
			outcome.IDs = append(outcome.IDs, decision.Item.ID)
		}
	}

	if len(selected) < 2 {
		attrs := []logging.Attr{
			logging.Int("candidates", len(candidates)),
			logging.Int("eligible", len(selected)),
		}
		if len(candidates) > 0 {
			attrs = append(attrs, logging.String("name", candidates[0].Name))
		}
		attrs = append(attrs, logging.DecisionAttrs("merge", "skipped", "fewer than two unmerged eligible versions")...)
		logger.Debug("group skipped", logging.Args(attrs...)...)
		return outcome, nil
	}

	representative := selected[0]
	outcome.Representative = representative
	logger.Info("merging versions",
		logging.String("name", representative.Name),
		logging.Int("year", representative.Year),
		logging.Int("versions", len(selected)),
	)
	logger.Debug("merge item ids", logging.String("ids", strings.Join(outcome.IDs, ",")))

	if err := o.deps.Merger.MergeVersions(ctx, outcome.IDs); err != nil {
		return outcome, fmt.Errorf("merge %s: %w", representative.Label(), err)
	}
	outcome.Merged = true
	return outcome, nil
}

// selectMergeable evaluates every candidate once, in order. A candidate is
// selected when it is eligible and unmerged; repeated ids are ignored.
func (o *Orchestrator) selectMergeable(ctx context.Context, filter *Filter, logger *slog.Logger, candidates []media.Item) []memberDecision {
	decisions := make([]memberDecision, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, item := range candidates {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}

		decision := memberDecision{Item: item}
		decision.Eligible = filter.IsEligible(item)
		if decision.Eligible {
			if state, ok := o.stateOf(ctx, logger, item); ok {
				decision.Unmerged = state.Unmerged()
				if !decision.Unmerged {
					attrs := append(itemAttrs(item), logging.String("merge_state", state.String()))
					attrs = append(attrs, logging.DecisionAttrs("merge_candidate", "skipped", "already merged")...)
					logger.Debug("item already merged", logging.Args(attrs...)...)
				}
			}
		}
		decision.Selected = decision.Eligible && decision.Unmerged
		decisions = append(decisions, decision)
	}
	return decisions
}
