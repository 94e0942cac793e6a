// Copyright 2025 The quicksheet Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package calc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tiendc/go-deepcopy"
)

// Cell is one cell of a workbook snapshot. A non-empty Formula marks a
// formula cell; formula text that is blank once trimmed (with or without
// its leading '=') evaluates to #VALUE!. Otherwise Value holds the
// literal (number, text, boolean or blank). Style is carried through untouched for the rendering
// layer; evaluation never inspects it.
type Cell struct {
	Row     int
	Col     int
	Value   Value
	Formula string
	Style   interface{}
}

// Sheet is one sheet of a workbook snapshot. ID is stable across edits;
// Name is user-visible and mutable; Index is the display order.
type Sheet struct {
	ID    int
	Name  string
	Index int
	Cells []Cell
}

// Workbook is an immutable snapshot of sheets and their cells handed to
// the engine for one evaluation pass. Mutation is the caller's concern: it
// hands in a new snapshot and receives a new result map.
type Workbook struct {
	Sheets []Sheet
}

// SheetDescriptor is the index entry for one sheet.
type SheetDescriptor struct {
	ID    int
	Name  string
	Index int
}

// WorkbookIndex provides two-way lookup between sheet IDs and sheet names.
// Name lookup is case-insensitive; the originally-cased name is preserved
// for display and reference formatting.
type WorkbookIndex struct {
	byID   map[int]*SheetDescriptor
	byName map[string]*SheetDescriptor
}

// NewWorkbookIndex builds the index for a snapshot.
func NewWorkbookIndex(wb *Workbook) *WorkbookIndex {
	idx := &WorkbookIndex{
		byID:   make(map[int]*SheetDescriptor, len(wb.Sheets)),
		byName: make(map[string]*SheetDescriptor, len(wb.Sheets)),
	}
	for _, sheet := range wb.Sheets {
		desc := &SheetDescriptor{ID: sheet.ID, Name: sheet.Name, Index: sheet.Index}
		idx.byID[desc.ID] = desc
		idx.byName[strings.ToUpper(desc.Name)] = desc
	}
	return idx
}

// LookupID returns the descriptor for a sheet ID.
func (idx *WorkbookIndex) LookupID(id int) (*SheetDescriptor, bool) {
	desc, ok := idx.byID[id]
	return desc, ok
}

// LookupName returns the descriptor for a sheet name, matched
// case-insensitively.
func (idx *WorkbookIndex) LookupName(name string) (*SheetDescriptor, bool) {
	desc, ok := idx.byName[strings.ToUpper(name)]
	return desc, ok
}

// SheetCount returns the number of indexed sheets.
func (idx *WorkbookIndex) SheetCount() int {
	return len(idx.byID)
}

// gridRow is one non-empty row of a sparse sheet grid.
type gridRow struct {
	index int
	cells map[int]*Cell
}

// sheetGrid is the sparse row-major storage for one sheet: an ordered
// sequence of (rowIndex, rowMap).
type sheetGrid struct {
	sheetID int
	rows    []gridRow
	byRow   map[int]int
}

// workbookGrid indexes every sheet grid of a snapshot by sheet ID.
type workbookGrid struct {
	sheets map[int]*sheetGrid
}

// buildWorkbookGrid assembles the sparse grids for a snapshot. Cells with
// negative coordinates are rejected; duplicate coordinates keep the last
// cell, matching snapshot producers that append edits in order.
func buildWorkbookGrid(wb *Workbook) (*workbookGrid, error) {
	grid := &workbookGrid{sheets: make(map[int]*sheetGrid, len(wb.Sheets))}
	for si := range wb.Sheets {
		sheet := &wb.Sheets[si]
		sg := &sheetGrid{sheetID: sheet.ID, byRow: make(map[int]int)}
		for ci := range sheet.Cells {
			cell := &sheet.Cells[ci]
			if cell.Row < 0 || cell.Col < 0 {
				return nil, fmt.Errorf("sheet %q: cell at negative coordinate (%d,%d)", sheet.Name, cell.Row, cell.Col)
			}
			ri, ok := sg.byRow[cell.Row]
			if !ok {
				ri = len(sg.rows)
				sg.rows = append(sg.rows, gridRow{index: cell.Row, cells: make(map[int]*Cell)})
				sg.byRow[cell.Row] = ri
			}
			sg.rows[ri].cells[cell.Col] = cell
		}
		sort.Slice(sg.rows, func(i, j int) bool { return sg.rows[i].index < sg.rows[j].index })
		for i := range sg.rows {
			sg.byRow[sg.rows[i].index] = i
		}
		grid.sheets[sheet.ID] = sg
	}
	return grid, nil
}

// cell returns the snapshot cell at (sheetID, row, col), if present.
func (g *workbookGrid) cell(sheetID, row, col int) (*Cell, bool) {
	sg, ok := g.sheets[sheetID]
	if !ok {
		return nil, false
	}
	ri, ok := sg.byRow[row]
	if !ok {
		return nil, false
	}
	c, ok := sg.rows[ri].cells[col]
	return c, ok
}

// forEachCell visits every stored cell in sheet order, rows ascending.
// Column order within a row is unspecified.
func (g *workbookGrid) forEachCell(wb *Workbook, visit func(sheet *Sheet, cell *Cell)) {
	for si := range wb.Sheets {
		sheet := &wb.Sheets[si]
		sg := g.sheets[sheet.ID]
		if sg == nil {
			continue
		}
		for ri := range sg.rows {
			for _, cell := range sg.rows[ri].cells {
				visit(sheet, cell)
			}
		}
	}
}

// cloneWorkbook deep-copies a caller snapshot so the pass is immune to
// later mutation of the input structures.
func cloneWorkbook(wb *Workbook) (*Workbook, error) {
	clone := &Workbook{}
	if err := deepcopy.Copy(clone, wb); err != nil {
		return nil, fmt.Errorf("clone workbook snapshot: %w", err)
	}
	return clone, nil
}
