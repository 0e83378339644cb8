package versions

import (
	"log/slog"
	"strings"

	"mergeversions/internal/logging"
	"mergeversions/internal/media"
)

// Predicate is an additional eligibility rule. It returns false with a short
// reason when the item must not participate.
type Predicate func(item media.Item) (bool, string)

// Filter decides whether items may take part in a merge or split.
type Filter struct {
	source   ExclusionSource
	snapshot []string
	frozen   bool
	extra    []Predicate
	logger   *slog.Logger
}

// NewFilter builds a filter over the exclusion source. A nil source excludes
// nothing.
func NewFilter(source ExclusionSource, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Filter{source: source, logger: logger}
}

// With returns a copy of the filter that also requires pred. Predicates
// combine with AND semantics.
func (f *Filter) With(pred Predicate) *Filter {
	clone := *f
	clone.extra = append(append([]Predicate(nil), f.extra...), pred)
	return &clone
}

// Snapshot returns a copy of the filter whose exclusion list is read once now
// and reused for every later check.
func (f *Filter) Snapshot() *Filter {
	clone := *f
	clone.snapshot = f.readExclusions()
	clone.frozen = true
	return &clone
}

// WithLogger returns a copy of the filter that logs decisions to logger.
func (f *Filter) WithLogger(logger *slog.Logger) *Filter {
	clone := *f
	if logger != nil {
		clone.logger = logger
	}
	return &clone
}

func (f *Filter) readExclusions() []string {
	if f.frozen {
		return f.snapshot
	}
	if f.source == nil {
		return nil
	}
	return f.source.ExcludedLocations()
}

// IsEligible reports whether item may be merged or split. Every decision is
// logged.
func (f *Filter) IsEligible(item media.Item) bool {
	for _, prefix := range f.readExclusions() {
		if prefix == "" {
			continue
		}
		if strings.HasPrefix(item.Path, prefix) {
			attrs := append(itemAttrs(item),
				logging.String("excluded_by", prefix),
			)
			attrs = append(attrs, logging.DecisionAttrs("eligibility", "excluded", "path under excluded location")...)
			f.logger.Info("item excluded from version changes", logging.Args(attrs...)...)
			return false
		}
	}
	for _, pred := range f.extra {
		if ok, reason := pred(item); !ok {
			attrs := append(itemAttrs(item), logging.DecisionAttrs("eligibility", "rejected", reason)...)
			f.logger.Info("item rejected by eligibility rule", logging.Args(attrs...)...)
			return false
		}
	}
	attrs := append(itemAttrs(item), logging.DecisionAttrs("eligibility", "eligible", "no exclusion matched")...)
	f.logger.Debug("item eligible", logging.Args(attrs...)...)
	return true
}

func itemAttrs(item media.Item) []logging.Attr {
	return []logging.Attr{
		logging.String(logging.FieldItemID, item.ID),
		logging.String("name", item.Name),
		logging.Int("year", item.Year),
		logging.String("path", item.Path),
	}
}
