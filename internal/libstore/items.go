package libstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mergeversions/internal/media"
	"mergeversions/internal/services"
)

const backendName = "sqlite"

const itemColumns = `i.id, i.kind, i.name, i.year, i.path, i.parent_id, i.provider_ids,
	i.series_name, i.season_name, i.index_number, i.is_virtual, i.primary_version_id,
	(SELECT COUNT(1) FROM items a WHERE a.primary_version_id = i.id) AS alternates`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (media.Item, error) {
	var (
		item       media.Item
		kind       string
		providers  string
		index      sql.NullInt64
		isVirtual  int
		primaryID  sql.NullString
		alternates int
	)
	if err := row.Scan(
		&item.ID, &kind, &item.Name, &item.Year, &item.Path, &item.ParentID, &providers,
		&item.SeriesName, &item.SeasonName, &index, &isVirtual, &primaryID, &alternates,
	); err != nil {
		return media.Item{}, err
	}
	item.Kind = media.Kind(kind)
	item.Virtual = isVirtual != 0
	if index.Valid {
		item.IndexNumber = media.IntPtr(int(index.Int64))
	}
	if providers != "" && providers != "{}" {
		if err := json.Unmarshal([]byte(providers), &item.ProviderIDs); err != nil {
			return media.Item{}, fmt.Errorf("decode provider ids for %s: %w", item.ID, err)
		}
	}
	item.PrimaryVersionID = primaryID.String
	item.State = stateFor(primaryID.String, alternates)
	return item, nil
}

func stateFor(primaryID string, alternates int) media.MergeState {
	switch {
	case alternates > 0:
		return media.MergeState{Role: media.RolePrimary, LinkedAlternateCount: alternates}
	case primaryID != "":
		return media.MergeState{Role: media.RoleAlternate}
	default:
		return media.MergeState{Role: media.RoleStandalone}
	}
}

// Query returns items of q.Kind ordered by id. The index is flat, so
// Recursive has no effect.
func (s *Store) Query(ctx context.Context, q media.Query) ([]media.Item, error) {
	ctx = ensureContext(ctx)
	clauses := []string{"i.kind = ?"}
	args := []any{string(q.Kind)}
	if q.ExcludeVirtual {
		clauses = append(clauses, "i.is_virtual = 0")
	}
	if q.RequireExternalID {
		clauses = append(clauses, "i.tmdb_id <> ''")
	}
	query := "SELECT " + itemColumns + " FROM items i WHERE " + strings.Join(clauses, " AND ") + " ORDER BY i.id"

	var items []media.Item
	err := retryOnBusy(ctx, func() error {
		items = items[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			item, err := scanItem(rows)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, backendName, "query", string(q.Kind), err)
	}
	return items, nil
}

// Get returns the item with id.
func (s *Store) Get(ctx context.Context, id string) (media.Item, error) {
	ctx = ensureContext(ctx)
	var item media.Item
	err := retryOnBusy(ctx, func() error {
		var scanErr error
		item, scanErr = scanItem(s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items i WHERE i.id = ?", id))
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return media.Item{}, services.Wrap(services.ErrNotFound, backendName, "get", id, nil)
	}
	if err != nil {
		return media.Item{}, services.Wrap(services.ErrTransient, backendName, "get", id, err)
	}
	return item, nil
}

// MergeState reads the item's current link state from the index.
func (s *Store) MergeState(ctx context.Context, item media.Item) (media.MergeState, error) {
	current, err := s.Get(ctx, item.ID)
	if err != nil {
		return media.MergeState{}, err
	}
	return current.State, nil
}

// Count returns how many items of kind are stored.
func (s *Store) Count(ctx context.Context, kind media.Kind) (int, error) {
	ctx = ensureContext(ctx)
	var n int
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM items WHERE kind = ?", string(kind)).Scan(&n)
	})
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, backendName, "count", string(kind), err)
	}
	return n, nil
}

// Upsert inserts or replaces items, including their version links, in one
// transaction.
func (s *Store) Upsert(ctx context.Context, items []media.Item) error {
	if len(items) == 0 {
		return nil
	}
	ctx = ensureContext(ctx)
	now := time.Now().UTC().Format(time.RFC3339)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO items (
			id, kind, name, year, path, parent_id, tmdb_id, provider_ids,
			series_name, season_name, index_number, is_virtual, primary_version_id, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			name = excluded.name,
			year = excluded.year,
			path = excluded.path,
			parent_id = excluded.parent_id,
			tmdb_id = excluded.tmdb_id,
			provider_ids = excluded.provider_ids,
			series_name = excluded.series_name,
			season_name = excluded.season_name,
			index_number = excluded.index_number,
			is_virtual = excluded.is_virtual,
			primary_version_id = excluded.primary_version_id,
			updated_at = excluded.updated_at`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, item := range items {
			if strings.TrimSpace(item.ID) == "" {
				return errors.New("item id is required")
			}
			providers := "{}"
			if len(item.ProviderIDs) > 0 {
				data, err := json.Marshal(item.ProviderIDs)
				if err != nil {
					return fmt.Errorf("encode provider ids for %s: %w", item.ID, err)
				}
				providers = string(data)
			}
			var index sql.NullInt64
			if item.IndexNumber != nil {
				index = sql.NullInt64{Int64: int64(*item.IndexNumber), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				item.ID, string(item.Kind), item.Name, item.Year, item.Path, item.ParentID,
				item.TmdbID(), providers, item.SeriesName, item.SeasonName, index,
				boolToInt(item.Virtual), item.PrimaryVersionID, now,
			); err != nil {
				return fmt.Errorf("upsert %s: %w", item.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, backendName, "upsert", fmt.Sprintf("%d items", len(items)), err)
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
