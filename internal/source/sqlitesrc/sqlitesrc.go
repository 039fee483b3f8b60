// Package sqlitesrc adapts the SQLite repository to the ingestion port.
package sqlitesrc

import (
	"context"
	"fmt"

	"vendite/internal/core"
	"vendite/internal/source"
	"vendite/internal/storage"
)

type Source struct {
	repo *storage.SQLiteRepository
}

var _ source.RowSource = (*Source)(nil)

func New(repo *storage.SQLiteRepository) *Source {
	return &Source{repo: repo}
}

// Rows returns the stored rows in import order.
func (s *Source) Rows(ctx context.Context) ([]core.RawRow, error) {
	rows, err := s.repo.LoadRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rows from sqlite: %w", err)
	}
	return rows, nil
}
