// Package source defines the ingestion port: an ordered sequence of raw
// rows delivered to the dataset store before the coordinator starts.
package source

import (
	"context"

	"vendite/internal/core"
)

// RowSource is the port for outbound ingestion adapters. Implementations
// return rows in their source order; validation and rejection counting
// happen downstream in the dataset store.
type RowSource interface {
	Rows(ctx context.Context) ([]core.RawRow, error)
}
