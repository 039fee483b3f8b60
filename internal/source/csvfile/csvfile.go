// Package csvfile reads raw sales rows from a delimited file. The header
// row maps columns to fields, so column order does not matter.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"vendite/internal/core"
	"vendite/internal/source"
)

// Columns names the header cells carrying each field. Matching is
// case-insensitive.
type Columns struct {
	Category  string
	Region    string
	Amount    string
	Profit    string
	Quantity  string
	Discount  string
	OrderDate string
}

// DefaultColumns matches the common superstore-style export.
func DefaultColumns() Columns {
	return Columns{
		Category:  "Category",
		Region:    "State",
		Amount:    "Sales",
		Profit:    "Profit",
		Quantity:  "Quantity",
		Discount:  "Discount",
		OrderDate: "Order Date",
	}
}

// Source reads rows from one CSV file on each call.
type Source struct {
	path    string
	columns Columns
}

var _ source.RowSource = (*Source)(nil)

// New creates a Source for path with the default column mapping.
func New(path string) *Source {
	return &Source{path: path, columns: DefaultColumns()}
}

// NewWithColumns creates a Source with a custom column mapping.
func NewWithColumns(path string, columns Columns) *Source {
	return &Source{path: path, columns: columns}
}

// Rows reads the whole file. A missing mapped column is an error; malformed
// data rows are passed through untouched and left for the dataset store to
// reject and count.
func (s *Source) Rows(ctx context.Context) ([]core.RawRow, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	idx, err := s.columnIndex(header)
	if err != nil {
		return nil, err
	}

	var rows []core.RawRow
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Structurally broken line; the store counts value-level
			// rejections, this layer only skips unreadable ones.
			continue
		}
		rows = append(rows, core.RawRow{
			Category:  cell(record, idx.category),
			Region:    cell(record, idx.region),
			Amount:    cell(record, idx.amount),
			Profit:    cell(record, idx.profit),
			Quantity:  cell(record, idx.quantity),
			Discount:  cell(record, idx.discount),
			OrderDate: cell(record, idx.orderDate),
		})
	}

	return rows, nil
}

type columnIndex struct {
	category, region, amount, profit, quantity, discount, orderDate int
}

func (s *Source) columnIndex(header []string) (columnIndex, error) {
	lookup := make(map[string]int, len(header))
	for i, h := range header {
		lookup[strings.ToLower(strings.TrimSpace(h))] = i
	}

	find := func(name string) (int, error) {
		if i, ok := lookup[strings.ToLower(name)]; ok {
			return i, nil
		}
		return 0, fmt.Errorf("csv header missing column %q", name)
	}

	var idx columnIndex
	var err error
	if idx.category, err = find(s.columns.Category); err != nil {
		return idx, err
	}
	if idx.region, err = find(s.columns.Region); err != nil {
		return idx, err
	}
	if idx.amount, err = find(s.columns.Amount); err != nil {
		return idx, err
	}
	if idx.profit, err = find(s.columns.Profit); err != nil {
		return idx, err
	}
	if idx.quantity, err = find(s.columns.Quantity); err != nil {
		return idx, err
	}
	if idx.discount, err = find(s.columns.Discount); err != nil {
		return idx, err
	}
	if idx.orderDate, err = find(s.columns.OrderDate); err != nil {
		return idx, err
	}
	return idx, nil
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
