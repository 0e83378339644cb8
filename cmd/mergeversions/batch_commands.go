package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mergeversions/internal/logging"
	"mergeversions/internal/media"
	"mergeversions/internal/notifications"
	"mergeversions/internal/preflight"
	"mergeversions/internal/runlock"
	"mergeversions/internal/services"
	"mergeversions/internal/versions"
)

type batchFlags struct {
	workers    int
	skipChecks bool
}

func newMergeCommand(ctx *commandContext) *cobra.Command {
	return newBatchCommand(ctx, versions.OperationMerge,
		"Merge duplicate versions into one item",
		"Find duplicate movies (same TMDb id and parent) or episodes (same series, season, name, index, and year) and link them as versions of one item.",
	)
}

func newSplitCommand(ctx *commandContext) *cobra.Command {
	return newBatchCommand(ctx, versions.OperationSplit,
		"Split merged versions back into separate items",
		"Remove every alternate-version link from each eligible movie or episode. Items under excluded locations are left untouched.",
	)
}

func newBatchCommand(ctx *commandContext, op versions.Operation, short, long string) *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:       string(op) + " <movies|episodes>",
		Short:     short,
		Long:      long,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"movies", "episodes"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindArg(args)
			if err != nil {
				return err
			}
			return runBatch(cmd, ctx, op, kind, flags)
		},
	}

	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Concurrent workers (overrides library.workers)")
	cmd.Flags().BoolVar(&flags.skipChecks, "skip-checks", false, "Skip preflight checks")
	return cmd
}

func runBatch(cmd *cobra.Command, ctx *commandContext, op versions.Operation, kind media.Kind, flags batchFlags) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.logger(cmd)
	if err != nil {
		return err
	}

	lock, err := runlock.Acquire(cfg.LockPath())
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	if !flags.skipChecks {
		results := preflight.RunAll(cmd.Context(), cfg)
		if preflight.Failed(results) {
			fmt.Fprint(cmd.ErrOrStderr(), renderChecks(results))
			return errors.New("preflight checks failed (run 'mergeversions check' for details)")
		}
	}

	lib, release, err := ctx.openLibrary(cfg, logger)
	if err != nil {
		return err
	}
	defer release()

	orch, err := newOrchestrator(cfg, lib, logger, flags.workers)
	if err != nil {
		return err
	}

	label := fmt.Sprintf("%s %s", op, kind.Plural())
	sink, finish := newProgressSink(cmd.ErrOrStderr(), logger, label)

	var result versions.BatchResult
	switch op {
	case versions.OperationMerge:
		result, err = orch.MergeAll(cmd.Context(), kind, sink)
	default:
		result, err = orch.SplitAll(cmd.Context(), kind, sink)
	}
	finish()

	notifier := notifications.NewService(cfg)
	notifyCtx := context.WithoutCancel(cmd.Context())
	if err != nil {
		publish(notifyCtx, notifier, logger, notifications.EventError, notifications.Payload{
			"context": label,
			"error":   err,
		})
		if hint := services.Hint(err); hint != "" {
			return fmt.Errorf("%w (%s)", err, hint)
		}
		return err
	}
	publish(notifyCtx, notifier, logger, notifications.EventBatchCompleted, notifications.Payload{
		"operation": string(result.Operation),
		"kind":      result.Kind.Plural(),
		"units":     result.Units,
		"applied":   result.Applied,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
		"duration":  result.Duration,
	})

	fmt.Fprintln(cmd.OutOrStdout(), renderBatchSummary(result))
	return result.Err()
}

func publish(ctx context.Context, notifier notifications.Service, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := notifier.Publish(ctx, event, payload); err != nil {
		logger.Warn("notification failed",
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}

func renderBatchSummary(result versions.BatchResult) string {
	unitLabel := "Groups"
	if result.Operation == versions.OperationSplit {
		unitLabel = "Items"
	}
	rows := [][]string{
		{"Run", result.RunID},
		{"Fetched", strconv.Itoa(result.Fetched)},
		{unitLabel, strconv.Itoa(result.Units)},
		{"Applied", strconv.Itoa(result.Applied)},
		{"Skipped", strconv.Itoa(result.Skipped)},
		{"Failed", strconv.Itoa(result.Failed)},
		{"Duration", result.Duration.Round(time.Millisecond).String()},
	}
	title := fmt.Sprintf("%s %s", result.Operation, result.Kind.Plural())
	return renderTable([]string{title, ""}, rows, []columnAlignment{alignLeft, alignRight})
}
