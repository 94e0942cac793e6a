// Copyright 2025 The quicksheet Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package calc

import (
	"sort"
	"strconv"
	"strings"
)

// DependencyNode is one cell of the dependency tree. A non-formula cell
// has empty Dependencies but may appear as a dependency target and carry
// Dependents.
type DependencyNode struct {
	Address      CellAddress
	Dependencies map[CellAddressKey]struct{}
	Dependents   map[CellAddressKey]struct{}
}

// DependencyTree is the bidirectional dependency graph over cell address
// keys for one workbook snapshot. Invariant: dependents[x] contains y iff
// dependencies[y] contains x, and every dependency key exists as a node.
type DependencyTree struct {
	Nodes map[CellAddressKey]*DependencyNode
}

// getOrCreate returns the node for an address, creating it when the
// address appears for the first time.
func (t *DependencyTree) getOrCreate(addr CellAddress) *DependencyNode {
	key := addr.Key()
	if node, ok := t.Nodes[key]; ok {
		return node
	}
	node := &DependencyNode{
		Address:      addr,
		Dependencies: make(map[CellAddressKey]struct{}),
		Dependents:   make(map[CellAddressKey]struct{}),
	}
	t.Nodes[key] = node
	return node
}

// addEdge records that from depends on to, maintaining both adjacencies.
func (t *DependencyTree) addEdge(from, to CellAddress) {
	fromNode := t.getOrCreate(from)
	toNode := t.getOrCreate(to)
	fromNode.Dependencies[to.Key()] = struct{}{}
	toNode.Dependents[from.Key()] = struct{}{}
}

// snapshotAnalysis is everything the build pass derives from a snapshot:
// the dependency tree, the parsed formulas and the per-cell parse errors.
// Parse failures mark the cell with an error result; they never abort the
// build.
type snapshotAnalysis struct {
	tree        *DependencyTree
	parsed      map[CellAddressKey]*ParsedFormula
	parseErrors map[CellAddressKey]*EvalError
	formulaKeys []CellAddressKey
}

// indexFingerprint summarises the sheet id/name table. Parse results are
// only reusable across passes while the resolution environment is
// unchanged, so the fingerprint is part of the parse-cache key.
func indexFingerprint(wb *Workbook) string {
	parts := make([]string, 0, len(wb.Sheets))
	for _, sheet := range wb.Sheets {
		parts = append(parts, strconv.Itoa(sheet.ID)+":"+strings.ToUpper(sheet.Name))
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}

// analyzeSnapshot walks every formula cell of the snapshot, parses it
// (through the cross-pass LRU when available) and assembles the dependency
// tree. Dependency targets get nodes even when blank or non-formula.
func analyzeSnapshot(wb *Workbook, grid *workbookGrid, idx *WorkbookIndex, parseCache *lruCache) *snapshotAnalysis {
	analysis := &snapshotAnalysis{
		tree:        &DependencyTree{Nodes: make(map[CellAddressKey]*DependencyNode)},
		parsed:      make(map[CellAddressKey]*ParsedFormula),
		parseErrors: make(map[CellAddressKey]*EvalError),
	}
	fingerprint := indexFingerprint(wb)

	grid.forEachCell(wb, func(sheet *Sheet, cell *Cell) {
		if cell.Formula == "" {
			return
		}
		addr := CellAddress{SheetID: sheet.ID, SheetName: sheet.Name, Row: cell.Row, Col: cell.Col}
		key := addr.Key()
		analysis.formulaKeys = append(analysis.formulaKeys, key)
		analysis.tree.getOrCreate(addr)

		if strings.TrimSpace(cell.Formula) == "" || strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(cell.Formula), "=")) == "" {
			analysis.parseErrors[key] = errValue("formula text is empty")
			return
		}

		parsed, parseErr := parseWithCache(cell.Formula, ParseContext{
			DefaultSheetID:   sheet.ID,
			DefaultSheetName: sheet.Name,
			Index:            idx,
		}, fingerprint, parseCache)
		if parseErr != nil {
			analysis.parseErrors[key] = parseErr
			return
		}
		perCell := *parsed
		perCell.Address = addr
		analysis.parsed[key] = &perCell

		for _, dep := range perCell.DependencyAddresses {
			analysis.tree.addEdge(addr, dep)
		}
	})

	sort.Slice(analysis.formulaKeys, func(i, j int) bool {
		return analysis.formulaKeys[i] < analysis.formulaKeys[j]
	})
	return analysis
}

// parseWithCache memoises ParseFormula results. References resolve to
// absolute addresses, so a parse is position-independent for a given
// default sheet; the cache key is (fingerprint, default sheet, text).
func parseWithCache(text string, ctx ParseContext, fingerprint string, cache *lruCache) (*ParsedFormula, *EvalError) {
	if cache == nil {
		return ParseFormula(text, ctx)
	}
	key := fingerprint + "\x00" + strconv.Itoa(ctx.DefaultSheetID) + "\x00" + text
	if cached, ok := cache.Load(key); ok {
		switch entry := cached.(type) {
		case *ParsedFormula:
			return entry, nil
		case *EvalError:
			return nil, entry
		}
	}
	parsed, err := ParseFormula(text, ctx)
	if err != nil {
		cache.Store(key, err)
		return nil, err
	}
	cache.Store(key, parsed)
	return parsed, nil
}

// assignLevels groups formula cells into dependency levels: level 0 has no
// formula dependencies, level n depends only on formulas below n. Cycle
// members never receive a level; the evaluator reports those separately.
func (a *snapshotAnalysis) assignLevels() [][]CellAddressKey {
	level := make(map[CellAddressKey]int, len(a.formulaKeys))
	isFormula := make(map[CellAddressKey]bool, len(a.formulaKeys))
	for _, key := range a.formulaKeys {
		isFormula[key] = true
	}

	maxLevel := -1
	for changed := true; changed; {
		changed = false
		for _, key := range a.formulaKeys {
			if _, done := level[key]; done {
				continue
			}
			node := a.tree.Nodes[key]
			ready, maxDep := true, -1
			for dep := range node.Dependencies {
				if !isFormula[dep] {
					continue
				}
				depLevel, ok := level[dep]
				if !ok {
					ready = false
					break
				}
				if depLevel > maxDep {
					maxDep = depLevel
				}
			}
			if !ready {
				continue
			}
			level[key] = maxDep + 1
			if maxDep+1 > maxLevel {
				maxLevel = maxDep + 1
			}
			changed = true
		}
	}

	levels := make([][]CellAddressKey, maxLevel+1)
	for key, lv := range level {
		levels[lv] = append(levels[lv], key)
	}
	for _, cells := range levels {
		sort.Slice(cells, func(i, j int) bool { return cells[i] < cells[j] })
	}
	return levels
}
