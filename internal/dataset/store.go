// Package dataset holds the validated, typed sales dataset. A Store is
// immutable after Load; everything downstream reads through it.
package dataset

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"vendite/internal/core"
)

// Date layouts accepted at load time, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"2006/01/02",
}

// Store is the read-only record collection plus the category and region
// universes observed in it.
type Store struct {
	records    []core.Record
	categories []string
	regions    []string
	rejected   int
}

// Load parses raw rows into records. A row that fails to parse (bad date,
// non-numeric measure, out-of-range field) is dropped and counted, never
// raised as an error: one bad line must not abort loading.
func Load(rows []core.RawRow) (*Store, int) {
	s := &Store{records: make([]core.Record, 0, len(rows))}

	catSeen := make(map[string]bool)
	regSeen := make(map[string]bool)
	for _, row := range rows {
		rec, err := parseRow(row)
		if err != nil {
			s.rejected++
			continue
		}
		s.records = append(s.records, rec)
		if !catSeen[rec.Category] {
			catSeen[rec.Category] = true
			s.categories = append(s.categories, rec.Category)
		}
		if !regSeen[rec.Region] {
			regSeen[rec.Region] = true
			s.regions = append(s.regions, rec.Region)
		}
	}
	sort.Strings(s.categories)
	sort.Strings(s.regions)

	return s, s.rejected
}

func parseRow(row core.RawRow) (core.Record, error) {
	date, err := parseDate(row.OrderDate)
	if err != nil {
		return core.Record{}, err
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(row.Amount), 64)
	if err != nil {
		return core.Record{}, err
	}
	profit, err := strconv.ParseFloat(strings.TrimSpace(row.Profit), 64)
	if err != nil {
		return core.Record{}, err
	}
	quantity, err := strconv.Atoi(strings.TrimSpace(row.Quantity))
	if err != nil {
		return core.Record{}, err
	}
	discount, err := strconv.ParseFloat(strings.TrimSpace(row.Discount), 64)
	if err != nil {
		return core.Record{}, err
	}

	rec := core.Record{
		Date:     date,
		Category: strings.TrimSpace(row.Category),
		Region:   strings.TrimSpace(row.Region),
		Amount:   amount,
		Profit:   profit,
		Quantity: quantity,
		Discount: discount,
	}
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}
	return rec, nil
}

func parseDate(raw string) (core.Date, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return core.Date{Time: t}, nil
		}
	}
	return core.Date{}, core.ErrInvalidDate
}

// Len returns the number of stored records.
func (s *Store) Len() int { return len(s.records) }

// At returns the record at index i in load order. Records are value types,
// so callers never hold a reference into the store.
func (s *Store) At(i int) core.Record { return s.records[i] }

// Rejected returns how many rows were dropped at load time.
func (s *Store) Rejected() int { return s.rejected }

// Categories returns the sorted category universe as a fresh slice.
func (s *Store) Categories() []string {
	return append([]string(nil), s.categories...)
}

// Regions returns the sorted region universe as a fresh slice.
func (s *Store) Regions() []string {
	return append([]string(nil), s.regions...)
}
