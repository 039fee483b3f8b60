// Package aggregate computes grouped aggregates over the dataset store under
// a filter selection. Compute is pure: identical store, selection, and spec
// always yield a bit-identical ordered result, because summation follows the
// same deterministic order as the emitted groups.
package aggregate

import (
	"sort"

	"vendite/internal/core"
	"vendite/internal/dataset"
	"vendite/internal/filter"
)

// Spec describes one registered aggregate: the grouping axis, the measure,
// and the optional result shaping.
type Spec struct {
	Dimension core.Dimension
	Measure   core.Measure

	// TopN truncates a region aggregate to the N largest groups (value
	// descending, label ascending on ties). Zero means all groups.
	TopN int

	// FillRegions emits every region known to the store, including those
	// with zero surviving records. Only meaningful for DimensionRegion;
	// off by default, groups with no records are omitted.
	FillRegions bool
}

// Row is one (group key, value) pair of an ordered aggregate result.
type Row struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Validate rejects specs the engine cannot compute.
func (s Spec) Validate() error {
	if !s.Dimension.IsValid() {
		return core.ErrInvalidDimension
	}
	if !s.Measure.IsValid() {
		return core.ErrInvalidMeasure
	}
	return nil
}

// Compute filters, groups, sums, and orders in one pass over the store.
// A selection matching zero records yields an empty (or zero-filled, when
// requested) result, never an error.
func (s Spec) Compute(store *dataset.Store, snap filter.Snapshot) []Row {
	// Group in first-seen store order; each bucket keeps record indices so
	// accumulation order stays pinned to load order.
	buckets := make(map[string][]int)
	var keys []string

	for i := 0; i < store.Len(); i++ {
		rec := store.At(i)
		if !snap.Matches(rec.Category, rec.Region) {
			continue
		}
		key := groupKey(rec, s.Dimension)
		if _, seen := buckets[key]; !seen {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], i)
	}

	if s.Dimension == core.DimensionRegion && s.FillRegions {
		for _, region := range store.Regions() {
			if _, seen := buckets[region]; !seen {
				keys = append(keys, region)
				buckets[region] = nil
			}
		}
	}

	rows := make([]Row, 0, len(keys))
	for _, key := range keys {
		var sum float64
		for _, i := range buckets[key] {
			sum += store.At(i).MeasureValue(s.Measure)
		}
		rows = append(rows, Row{Key: key, Value: sum})
	}

	s.order(rows)
	if s.topN() > 0 && len(rows) > s.topN() {
		rows = rows[:s.topN()]
	}
	return rows
}

func groupKey(rec core.Record, dim core.Dimension) string {
	switch dim {
	case core.DimensionCategory:
		return rec.Category
	case core.DimensionMonth:
		return rec.Date.MonthKey()
	case core.DimensionRegion:
		return rec.Region
	}
	return ""
}

// order applies the dimension-specific deterministic ordering:
//   - category: value descending, label ascending on ties
//   - month: calendar month ascending (keys sort lexicographically)
//   - region: label ascending, or value descending for top-N views
func (s Spec) order(rows []Row) {
	switch {
	case s.Dimension == core.DimensionMonth:
		sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	case s.Dimension == core.DimensionRegion && s.TopN == 0:
		sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	default:
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].Value != rows[j].Value {
				return rows[i].Value > rows[j].Value
			}
			return rows[i].Key < rows[j].Key
		})
	}
}

func (s Spec) topN() int {
	if s.Dimension != core.DimensionRegion {
		return 0
	}
	return s.TopN
}

// Total sums the values of an aggregate result.
func Total(rows []Row) float64 {
	var total float64
	for _, r := range rows {
		total += r.Value
	}
	return total
}
