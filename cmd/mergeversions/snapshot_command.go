package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mergeversions/internal/config"
	"mergeversions/internal/libstore"
	"mergeversions/internal/media"
	"mergeversions/internal/runlock"
	"mergeversions/internal/services/jellyfin"
)

func newSnapshotCommand(ctx *commandContext) *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Copy the Jellyfin item index into the local SQLite index",
		Long:  "Read every movie and episode from Jellyfin, including existing version links, and store them in the SQLite index so batches can be previewed or replayed with backend = \"sqlite\".",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}

			target := strings.TrimSpace(targetPath)
			if target == "" {
				target = cfg.SQLite.Path
			} else if target, err = config.ExpandPath(target); err != nil {
				return fmt.Errorf("resolve snapshot path: %w", err)
			}

			lock, err := runlock.Acquire(cfg.LockPath())
			if err != nil {
				return err
			}
			defer func() { _ = lock.Release() }()

			client, err := jellyfin.NewFromConfig(cfg, logger)
			if err != nil {
				return err
			}
			store, err := libstore.OpenPath(target)
			if err != nil {
				return err
			}
			defer store.Close()

			rows := make([][]string, 0, 2)
			for _, kind := range []media.Kind{media.KindMovie, media.KindEpisode} {
				items, err := client.Query(cmd.Context(), media.Query{Kind: kind, Recursive: true})
				if err != nil {
					return fmt.Errorf("snapshot %s: %w", kind.Plural(), err)
				}
				if err := store.Upsert(cmd.Context(), items); err != nil {
					return fmt.Errorf("snapshot %s: %w", kind.Plural(), err)
				}
				rows = append(rows, []string{kind.Plural(), strconv.Itoa(len(items))})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Kind", "Items"}, rows, []columnAlignment{alignLeft, alignRight}))
			fmt.Fprintf(out, "Snapshot written to %s\n", store.Path())
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "SQLite index to write (defaults to sqlite.path)")
	return cmd
}
