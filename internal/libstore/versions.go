package libstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"mergeversions/internal/services"
)

// MergeVersions makes ids[0] the primary and links every other id, plus any
// alternates they already carried, beneath it.
func (s *Store) MergeVersions(ctx context.Context, ids []string) error {
	ids = uniqueIDs(ids)
	if len(ids) < 2 {
		return services.Wrap(services.ErrValidation, backendName, "merge", fmt.Sprintf("need at least two ids, got %d", len(ids)), nil)
	}
	ctx = ensureContext(ctx)
	primary := ids[0]
	in, args := inClause(ids)

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var found int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM items WHERE id IN "+in, args...).Scan(&found); err != nil {
			return err
		}
		if found != len(ids) {
			return errMissingItems
		}
		if _, err := tx.ExecContext(ctx, "UPDATE items SET primary_version_id = NULL WHERE id = ?", primary); err != nil {
			return err
		}
		linkArgs := append([]any{primary, primary}, args...)
		linkArgs = append(linkArgs, args...)
		_, err := tx.ExecContext(ctx,
			"UPDATE items SET primary_version_id = ? WHERE id <> ? AND (id IN "+in+" OR primary_version_id IN "+in+")",
			linkArgs...,
		)
		return err
	})
	switch {
	case errors.Is(err, errMissingItems):
		return services.Wrap(services.ErrNotFound, backendName, "merge", strings.Join(ids, ","), err)
	case err != nil:
		return services.Wrap(services.ErrTransient, backendName, "merge", strings.Join(ids, ","), err)
	}
	return nil
}

// SplitVersions removes every version link of the group id belongs to. An
// item with no links is left untouched.
func (s *Store) SplitVersions(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var linked sql.NullString
		if err := tx.QueryRowContext(ctx, "SELECT primary_version_id FROM items WHERE id = ?", id).Scan(&linked); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errMissingItems
			}
			return err
		}
		primary := id
		if linked.Valid && linked.String != "" {
			primary = linked.String
		}
		_, err := tx.ExecContext(ctx, "UPDATE items SET primary_version_id = NULL WHERE primary_version_id = ?", primary)
		return err
	})
	switch {
	case errors.Is(err, errMissingItems):
		return services.Wrap(services.ErrNotFound, backendName, "split", id, err)
	case err != nil:
		return services.Wrap(services.ErrTransient, backendName, "split", id, err)
	}
	return nil
}

var errMissingItems = errors.New("item not in index")

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func inClause(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + ")", args
}
