package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mergeversions/internal/versions"
)

func newGroupsCommand(ctx *commandContext) *cobra.Command {
	var showMembers bool

	cmd := &cobra.Command{
		Use:       "groups <movies|episodes>",
		Short:     "Preview duplicate groups without merging",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"movies", "episodes"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindArg(args)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			lib, release, err := ctx.openLibrary(cfg, logger)
			if err != nil {
				return err
			}
			defer release()

			orch, err := newOrchestrator(cfg, lib, logger, 0)
			if err != nil {
				return err
			}
			plans, err := orch.Plan(cmd.Context(), kind)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(plans) == 0 {
				fmt.Fprintf(out, "No duplicate %s found\n", kind.Plural())
				return nil
			}
			if showMembers {
				fmt.Fprintln(out, renderGroupMembers(plans))
				return nil
			}
			fmt.Fprintln(out, renderGroups(plans))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&showMembers, "members", "m", false, "List every member and its eligibility")
	return cmd
}

func renderGroups(plans []versions.GroupPlan) string {
	rows := make([][]string, 0, len(plans))
	toMerge := 0
	for _, plan := range plans {
		action := "skip"
		if plan.WillMerge {
			action = "merge"
			toMerge++
		}
		name := ""
		if len(plan.Group.Items) > 0 {
			name = plan.Group.Items[0].Label()
		}
		rows = append(rows, []string{
			name,
			plan.Group.Key,
			strconv.Itoa(len(plan.Members)),
			strconv.Itoa(plan.SelectedCount()),
			action,
		})
	}
	table := renderTable(
		[]string{"Item", "Key", "Members", "Selected", "Action"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
	return fmt.Sprintf("%s\n%d of %d groups would be merged", table, toMerge, len(plans))
}

func renderGroupMembers(plans []versions.GroupPlan) string {
	var rows [][]string
	for _, plan := range plans {
		for _, member := range plan.Members {
			rows = append(rows, []string{
				plan.Group.Key,
				member.Item.ID,
				member.Item.Path,
				member.Item.State.String(),
				yesNo(member.Eligible),
				yesNo(member.Selected),
			})
		}
	}
	return renderTable([]string{"Key", "ID", "Path", "State", "Eligible", "Selected"}, rows, nil)
}
