// Package storage persists raw sales rows in SQLite for the importer and
// the sqlite ingestion backend. The dataset store itself stays in memory;
// this repository only feeds it.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"vendite/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ImportRows inserts raw rows in order, in one transaction. Rows are stored
// as ingested; validation happens at dataset load, not here.
func (r *SQLiteRepository) ImportRows(ctx context.Context, rows []core.RawRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sales_rows (category, region, amount, profit, quantity, discount, order_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.Category, row.Region, row.Amount, row.Profit,
			row.Quantity, row.Discount, row.OrderDate); err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Imported sales rows", "count", len(rows))
	return nil
}

// LoadRows returns every stored row in insertion order, as the ordered raw
// sequence the dataset store expects.
func (r *SQLiteRepository) LoadRows(ctx context.Context) ([]core.RawRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, region, amount, profit, quantity, discount, order_date
		FROM sales_rows ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query sales rows: %w", err)
	}
	defer rows.Close()

	var result []core.RawRow
	for rows.Next() {
		var row core.RawRow
		if err := rows.Scan(&row.Category, &row.Region, &row.Amount, &row.Profit,
			&row.Quantity, &row.Discount, &row.OrderDate); err != nil {
			return nil, fmt.Errorf("scan sales row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales rows: %w", err)
	}

	return result, nil
}

// CountRows returns the number of stored rows.
func (r *SQLiteRepository) CountRows(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales_rows`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sales rows: %w", err)
	}
	return count, nil
}

// Clear removes every stored row, so an importer run can replace the
// dataset wholesale.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sales_rows`); err != nil {
		return fmt.Errorf("clear sales rows: %w", err)
	}
	return nil
}
