// Copyright 2025 The quicksheet Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzeTestWorkbook(t *testing.T, wb *Workbook) *snapshotAnalysis {
	t.Helper()
	grid, err := buildWorkbookGrid(wb)
	require.NoError(t, err)
	return analyzeSnapshot(wb, grid, NewWorkbookIndex(wb), nil)
}

func TestDependencyClosure(t *testing.T) {
	wb := testWorkbook(t, map[string]interface{}{
		"A1": 1,
		"A2": 2,
		"B1": "=SUM(A1:A2)",
		"C1": "=B1*A1",
	})
	analysis := analyzeTestWorkbook(t, wb)
	tree := analysis.tree

	keyOf := func(ref string) CellAddressKey {
		col, row, err := parseColumnRow(ref)
		require.Nil(t, err)
		return createCellAddressKey(CellAddress{SheetID: 1, Row: row, Col: col})
	}

	b1 := tree.Nodes[keyOf("B1")]
	require.NotNil(t, b1)
	for _, dep := range []string{"A1", "A2"} {
		_, present := b1.Dependencies[keyOf(dep)]
		assert.True(t, present, "B1 should depend on %s", dep)

		depNode := tree.Nodes[keyOf(dep)]
		require.NotNil(t, depNode, "dependency target %s must have a node", dep)
		_, present = depNode.Dependents[keyOf("B1")]
		assert.True(t, present, "%s should list B1 as dependent", dep)
		assert.Empty(t, depNode.Dependencies, "value cell %s has no dependencies", dep)
	}

	// Bidirectional invariant over the whole tree.
	for key, node := range tree.Nodes {
		for dep := range node.Dependencies {
			target := tree.Nodes[dep]
			require.NotNil(t, target, "dependency %s missing a node", dep)
			_, present := target.Dependents[key]
			assert.True(t, present)
		}
		for dependent := range node.Dependents {
			source := tree.Nodes[dependent]
			require.NotNil(t, source)
			_, present := source.Dependencies[key]
			assert.True(t, present)
		}
	}
}

func TestDependencyTargetsExistForBlankCells(t *testing.T) {
	wb := testWorkbook(t, map[string]interface{}{
		"A1": "=Z99+1",
	})
	analysis := analyzeTestWorkbook(t, wb)

	col, row, err := parseColumnRow("Z99")
	require.Nil(t, err)
	key := createCellAddressKey(CellAddress{SheetID: 1, Row: row, Col: col})
	node := analysis.tree.Nodes[key]
	require.NotNil(t, node, "blank dependency target must get a node")
	assert.Empty(t, node.Dependencies)
	assert.Len(t, node.Dependents, 1)
}

func TestParseFailureDoesNotAbortBuild(t *testing.T) {
	wb := testWorkbook(t, map[string]interface{}{
		"A1": "=Nowhere!B1",
		"A2": "=1+1",
		"A3": "=",
	})
	analysis := analyzeTestWorkbook(t, wb)

	assert.Len(t, analysis.parseErrors, 2)
	assert.Len(t, analysis.parsed, 1)
	assert.Len(t, analysis.formulaKeys, 3)
}

func TestAssignLevels(t *testing.T) {
	wb := testWorkbook(t, map[string]interface{}{
		"A1": "=1",
		"A2": "=A1+1",
		"B1": "=2",
		"B2": "=B1+1",
		"C1": "=A2+B2",
	})
	analysis := analyzeTestWorkbook(t, wb)
	levels := analysis.assignLevels()
	require.Len(t, levels, 3)
	assert.Len(t, levels[0], 2)
	assert.Len(t, levels[1], 2)
	assert.Len(t, levels[2], 1)
}

func TestAssignLevelsLeavesCyclesOut(t *testing.T) {
	wb := testWorkbook(t, map[string]interface{}{
		"A1": "=B1",
		"B1": "=A1",
		"C1": "=1",
	})
	analysis := analyzeTestWorkbook(t, wb)
	levels := analysis.assignLevels()
	total := 0
	for _, cells := range levels {
		total += len(cells)
	}
	assert.Equal(t, 1, total, "only the acyclic formula gets a level")
}

func TestParseCacheReuseAcrossPasses(t *testing.T) {
	cache := newLRUCache(16)
	wb := testWorkbook(t, map[string]interface{}{
		"A1": 1,
		"B1": "=A1*2",
	})
	grid, err := buildWorkbookGrid(wb)
	require.NoError(t, err)
	idx := NewWorkbookIndex(wb)

	analyzeSnapshot(wb, grid, idx, cache)
	require.Equal(t, 1, cache.Len())

	// The second pass over the same text hits the cache.
	second := analyzeSnapshot(wb, grid, idx, cache)
	assert.Equal(t, 1, cache.Len())
	assert.Len(t, second.parsed, 1)
}
