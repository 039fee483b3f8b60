package storage

import (
	"context"
	"path/filepath"
	"testing"

	"vendite/internal/core"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "vendite.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestImportAndLoadRows(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	rows := []core.RawRow{
		{Category: "Furniture", Region: "Washington", Amount: "261.96", Profit: "41.91",
			Quantity: "2", Discount: "0", OrderDate: "2017-04-12"},
		{Category: "Technology", Region: "California", Amount: "500", Profit: "100",
			Quantity: "1", Discount: "0.2", OrderDate: "2017-01-03"},
	}
	if err := repo.ImportRows(ctx, rows); err != nil {
		t.Fatalf("ImportRows: %v", err)
	}

	count, err := repo.CountRows(ctx)
	if err != nil {
		t.Fatalf("CountRows: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	loaded, err := repo.LoadRows(ctx)
	if err != nil {
		t.Fatalf("LoadRows: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d rows, want 2", len(loaded))
	}
	// Insertion order preserved.
	if loaded[0].Category != "Furniture" || loaded[1].Category != "Technology" {
		t.Errorf("rows out of order: %+v", loaded)
	}
	if loaded[0].Amount != "261.96" || loaded[0].OrderDate != "2017-04-12" {
		t.Errorf("first row = %+v", loaded[0])
	}
}

func TestClear(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	rows := []core.RawRow{{Category: "A", Region: "X", Amount: "1", Profit: "1",
		Quantity: "1", Discount: "0", OrderDate: "2017-01-01"}}
	if err := repo.ImportRows(ctx, rows); err != nil {
		t.Fatal(err)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	count, err := repo.CountRows(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("count after clear = %d, want 0", count)
	}
}
