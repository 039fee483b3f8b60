package google

import (
	"fmt"
	"strings"

	"vendite/internal/core"
)

// Header names recognized per field. The first match wins, case-insensitive.
var fieldHeaders = map[string][]string{
	"category": {"Category"},
	"region":   {"State", "Region"},
	"amount":   {"Sales", "Amount"},
	"profit":   {"Profit"},
	"quantity": {"Quantity"},
	"discount": {"Discount"},
	"date":     {"Order Date", "Date"},
}

// parseValues converts a values matrix (as returned by the Sheets API) into
// raw rows. The first row is the header; value-level problems are left for
// the dataset store to reject.
func parseValues(values [][]interface{}) ([]core.RawRow, error) {
	if len(values) == 0 {
		return nil, nil
	}

	headers := toStrings(values[0])
	cols := make(map[string]int, len(fieldHeaders))
	for field, names := range fieldHeaders {
		cols[field] = -1
		for _, name := range names {
			if i := indexOf(headers, name); i != -1 {
				cols[field] = i
				break
			}
		}
	}
	var missing []string
	for field, i := range cols {
		if i == -1 {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected sheet header: missing %s; got headers=%v",
			strings.Join(missing, ","), headers)
	}

	rows := make([]core.RawRow, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		rows = append(rows, core.RawRow{
			Category:  safeGet(row, cols["category"]),
			Region:    safeGet(row, cols["region"]),
			Amount:    safeGet(row, cols["amount"]),
			Profit:    safeGet(row, cols["profit"]),
			Quantity:  safeGet(row, cols["quantity"]),
			Discount:  safeGet(row, cols["discount"]),
			OrderDate: safeGet(row, cols["date"]),
		})
	}
	return rows, nil
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = strings.TrimSpace(fmt.Sprintf("%v", v))
	}
	return out
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
