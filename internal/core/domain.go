package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	// Dimension is a grouping axis for an aggregate.
	Dimension string

	// Measure is the quantity summed (or counted) per group.
	Measure string

	Date struct {
		time.Time
	}

	// RawRow is one ingested line before validation. All fields arrive as
	// text; parsing happens once, when the dataset store loads.
	RawRow struct {
		Category  string
		Region    string
		Amount    string
		Profit    string
		Quantity  string
		Discount  string
		OrderDate string
	}

	// Record is one validated sales transaction line. Records are immutable
	// once stored.
	Record struct {
		Date     Date
		Category string
		Region   string
		Amount   float64
		Profit   float64
		Quantity int
		Discount float64
	}
)

const (
	DimensionCategory Dimension = "category"
	DimensionMonth    Dimension = "month"
	DimensionRegion   Dimension = "region"
)

const (
	MeasureAmount   Measure = "amount"
	MeasureProfit   Measure = "profit"
	MeasureQuantity Measure = "quantity"
	MeasureCount    Measure = "count"
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyRegion      = errors.New("empty region")
	ErrNegativeQuantity = errors.New("negative quantity")
	ErrInvalidDiscount  = errors.New("discount outside [0,1]")

	ErrUnknownCategory  = errors.New("unknown category")
	ErrUnknownRegion    = errors.New("unknown region")
	ErrUnknownView      = errors.New("unknown view handle")
	ErrReentrantUpdate  = errors.New("selection change rejected: update cycle in progress")
	ErrInvalidDimension = errors.New("invalid dimension")
	ErrInvalidMeasure   = errors.New("invalid measure")
)

// IsValid reports whether d is one of the supported grouping axes.
func (d Dimension) IsValid() bool {
	switch d {
	case DimensionCategory, DimensionMonth, DimensionRegion:
		return true
	}
	return false
}

// IsValid reports whether m is a supported measure.
func (m Measure) IsValid() bool {
	switch m {
	case MeasureAmount, MeasureProfit, MeasureQuantity, MeasureCount:
		return true
	}
	return false
}

// NewDate creates a new Date from year, month, day. Time-of-day is never
// used by any aggregate.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// MonthKey returns the calendar-month bucket key ("2017-04"). Keys sort
// chronologically as plain strings.
func (d Date) MonthKey() string {
	return fmt.Sprintf("%04d-%02d", d.Year(), int(d.Month()))
}

func (r Record) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(r.Region) == "" {
		return ErrEmptyRegion
	}
	if r.Quantity < 0 {
		return ErrNegativeQuantity
	}
	if r.Discount < 0 || r.Discount > 1 {
		return ErrInvalidDiscount
	}
	return nil
}

// MeasureValue returns the record's contribution for a summed measure.
// MeasureCount contributes 1 per record regardless of field values.
func (r Record) MeasureValue(m Measure) float64 {
	switch m {
	case MeasureAmount:
		return r.Amount
	case MeasureProfit:
		return r.Profit
	case MeasureQuantity:
		return float64(r.Quantity)
	case MeasureCount:
		return 1
	}
	return 0
}

// SelectionChange describes one applied filter mutation, published to
// out-of-process view adapters after each generation.
type SelectionChange struct {
	Generation       uint64   `json:"generation"`
	Kind             string   `json:"kind"` // "category" or "region"
	Label            string   `json:"label"`
	ActiveCategories []string `json:"active_categories"`
	ActiveRegion     string   `json:"active_region,omitempty"`
}
