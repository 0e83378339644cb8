package versions

import (
	"fmt"
	"sort"

	"mergeversions/internal/media"
)

// Group is a set of items sharing a duplicate-identity key.
type Group struct {
	Key   string
	Items []media.Item
}

// IDs returns the member ids in group order.
func (g Group) IDs() []string {
	ids := make([]string, len(g.Items))
	for i, item := range g.Items {
		ids[i] = item.ID
	}
	return ids
}

type movieKey struct {
	tmdbID   string
	parentID string
}

func (k movieKey) String() string {
	return fmt.Sprintf("tmdb=%s parent=%s", k.tmdbID, k.parentID)
}

type episodeKey struct {
	series   string
	season   string
	name     string
	index    int
	hasIndex bool
	year     int
}

func (k episodeKey) String() string {
	index := "-"
	if k.hasIndex {
		index = fmt.Sprintf("%d", k.index)
	}
	return fmt.Sprintf("%s | %s | %s. %s | %d", k.series, k.season, index, k.name, k.year)
}

// GroupMovies buckets movies by (TMDb id, parent container). Movies without a
// TMDb id are ignored. Only groups with two or more members are returned.
func GroupMovies(items []media.Item) []Group {
	return groupBy(items, func(item media.Item) (fmt.Stringer, bool) {
		tmdb := item.TmdbID()
		if tmdb == "" {
			return nil, false
		}
		return movieKey{tmdbID: tmdb, parentID: item.ParentID}, true
	})
}

// GroupEpisodes buckets episodes by the exact tuple (series, season, name,
// index, year). Only groups with two or more members are returned.
func GroupEpisodes(items []media.Item) []Group {
	return groupBy(items, func(item media.Item) (fmt.Stringer, bool) {
		key := episodeKey{
			series: item.SeriesName,
			season: item.SeasonName,
			name:   item.Name,
			year:   item.Year,
		}
		if item.IndexNumber != nil {
			key.index = *item.IndexNumber
			key.hasIndex = true
		}
		return key, true
	})
}

// GroupItems dispatches to the grouping rule for kind.
func GroupItems(kind media.Kind, items []media.Item) []Group {
	if kind == media.KindEpisode {
		return GroupEpisodes(items)
	}
	return GroupMovies(items)
}

func groupBy(items []media.Item, keyOf func(media.Item) (fmt.Stringer, bool)) []Group {
	buckets := make(map[fmt.Stringer][]media.Item)
	order := make([]fmt.Stringer, 0)
	for _, item := range items {
		key, ok := keyOf(item)
		if !ok {
			continue
		}
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], item)
	}

	groups := make([]Group, 0)
	for _, key := range order {
		members := buckets[key]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, Group{Key: key.String(), Items: members})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Key < groups[j].Key
	})
	return groups
}
