// Copyright 2025 The quicksheet Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package duckdb is an optional range-aggregation accelerator for the
// calc engine. It loads the numeric cells of a workbook snapshot into an
// in-memory DuckDB table and answers SUM/COUNT/AVERAGE/MIN/MAX over
// rectangles by SQL, which beats cell-by-cell evaluation on large
// pure-data regions.
package duckdb

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/quicksheet/calc"
)

// Config holds the engine's DuckDB settings.
type Config struct {
	// MemoryLimit caps DuckDB memory use, e.g. "1GB". Empty keeps the
	// DuckDB default.
	MemoryLimit string
	// Threads sets the DuckDB thread count; 0 means auto.
	Threads int
}

// DefaultConfig returns the default accelerator configuration.
func DefaultConfig() *Config {
	return &Config{MemoryLimit: "1GB"}
}

// Engine implements calc.RangeAccelerator on an in-memory DuckDB
// database.
type Engine struct {
	db *sql.DB
	mu sync.Mutex
}

var _ calc.RangeAccelerator = (*Engine)(nil)

// NewEngine opens an accelerator with the default configuration.
func NewEngine() (*Engine, error) {
	return NewEngineWithConfig(DefaultConfig())
}

// NewEngineWithConfig opens an accelerator with a custom configuration.
func NewEngineWithConfig(cfg *Config) (*Engine, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("duckdb: open: %w", err)
	}
	e := &Engine{db: db}
	if cfg.MemoryLimit != "" {
		if _, err := db.Exec(fmt.Sprintf("SET memory_limit = '%s'", cfg.MemoryLimit)); err != nil {
			db.Close()
			return nil, fmt.Errorf("duckdb: set memory limit: %w", err)
		}
	}
	if cfg.Threads > 0 {
		if _, err := db.Exec(fmt.Sprintf("SET threads = %d", cfg.Threads)); err != nil {
			db.Close()
			return nil, fmt.Errorf("duckdb: set threads: %w", err)
		}
	}
	return e, nil
}

// Close releases the database.
func (e *Engine) Close() error {
	return e.db.Close()
}

// LoadWorkbook replaces the cell table with the snapshot's numeric value
// cells. Formula cells are skipped: the calc engine only routes ranges on
// formula-free sheets here, where snapshot values and computed values
// coincide.
func (e *Engine) LoadWorkbook(wb *calc.Workbook) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.db.Exec(`CREATE OR REPLACE TABLE cells (
		sheet_id INTEGER NOT NULL,
		row_idx  INTEGER NOT NULL,
		col_idx  INTEGER NOT NULL,
		num      DOUBLE  NOT NULL
	)`); err != nil {
		return fmt.Errorf("duckdb: create cells table: %w", err)
	}

	tx, err := e.db.Begin()
	if err != nil {
		return fmt.Errorf("duckdb: begin load: %w", err)
	}
	stmt, err := tx.Prepare("INSERT INTO cells VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("duckdb: prepare insert: %w", err)
	}
	for _, sheet := range wb.Sheets {
		for _, cell := range sheet.Cells {
			if cell.Formula != "" || cell.Value.Type != calc.ValueTypeNumber {
				continue
			}
			if _, err := stmt.Exec(sheet.ID, cell.Row, cell.Col, cell.Value.Number); err != nil {
				stmt.Close()
				tx.Rollback()
				return fmt.Errorf("duckdb: insert cell: %w", err)
			}
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("duckdb: commit load: %w", err)
	}
	return nil
}

// aggregateSQL maps function names to their SQL aggregate expression over
// the numeric column.
var aggregateSQL = map[string]string{
	"SUM":     "SUM(num)",
	"COUNT":   "COUNT(num)",
	"AVERAGE": "AVG(num)",
	"MIN":     "MIN(num)",
	"MAX":     "MAX(num)",
}

// Aggregate answers one rectangular aggregation. A NULL aggregate (empty
// numeric set) reports ok=false so the engine falls back to normal
// evaluation and its empty-set error rules.
func (e *Engine) Aggregate(fn string, sheetID, top, left, height, width int) (float64, bool, error) {
	expr, supported := aggregateSQL[strings.ToUpper(fn)]
	if !supported {
		return 0, false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	query := fmt.Sprintf(`SELECT %s FROM cells
		WHERE sheet_id = ? AND row_idx >= ? AND row_idx < ? AND col_idx >= ? AND col_idx < ?`, expr)
	var result sql.NullFloat64
	err := e.db.QueryRow(query, sheetID, top, top+height, left, left+width).Scan(&result)
	if err != nil {
		return 0, false, fmt.Errorf("duckdb: aggregate %s: %w", fn, err)
	}
	if !result.Valid {
		return 0, false, nil
	}
	return result.Float64, true, nil
}
