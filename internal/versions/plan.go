package versions

import (
	"context"

	"mergeversions/internal/media"
)

// MemberPlan is the merge decision for one group member.
type MemberPlan struct {
	Item     media.Item
	Eligible bool
	Unmerged bool
	Selected bool
}

// GroupPlan previews what MergeAll would do with one duplicate group.
type GroupPlan struct {
	Group     Group
	Members   []MemberPlan
	WillMerge bool
}

// SelectedCount returns how many members would be passed to the merge.
func (p GroupPlan) SelectedCount() int {
	n := 0
	for _, m := range p.Members {
		if m.Selected {
			n++
		}
	}
	return n
}

// Plan fetches and groups items of kind and reports, per group, which members
// would be merged. It never calls the merge primitive.
func (o *Orchestrator) Plan(ctx context.Context, kind media.Kind) ([]GroupPlan, error) {
	items, err := o.Fetch(ctx, kind)
	if err != nil {
		return nil, err
	}
	filter := o.Filter().Snapshot()
	groups := GroupItems(kind, items)
	plans := make([]GroupPlan, 0, len(groups))
	for _, group := range groups {
		plan := GroupPlan{Group: group}
		for _, d := range o.selectMergeable(ctx, filter, o.logger, group.Items) {
			plan.Members = append(plan.Members, MemberPlan(d))
		}
		plan.WillMerge = plan.SelectedCount() >= 2
		plans = append(plans, plan)
	}
	return plans, nil
}
