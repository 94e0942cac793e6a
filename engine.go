// Copyright 2025 The quicksheet Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package calc is the formula engine core of a browser-hosted spreadsheet.
// It takes an immutable workbook snapshot, parses every formula cell,
// builds the bidirectional dependency graph, and computes each cell's
// result in a topologically valid order with cycle detection and
// spreadsheet-error propagation. The rendering layer, persistence and
// editing all live outside: they hand in a snapshot and consume the
// resulting map from cell address keys to values.
package calc

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/google/uuid"
)

// RangeAccelerator answers rectangular aggregations (SUM, COUNT, AVERAGE,
// MIN, MAX) from an external columnar store. The engine only consults it
// for large ranges on sheets without formula cells, where snapshot values
// and computed values coincide.
type RangeAccelerator interface {
	LoadWorkbook(wb *Workbook) error
	Aggregate(fn string, sheetID, top, left, height, width int) (float64, bool, error)
}

// Options configures an Engine.
type Options struct {
	// Registry overrides the process-wide default registry.
	Registry *Registry
	// ParseCacheSize bounds the cross-pass parse LRU. Zero selects the
	// default of 4096 entries; negative disables the cache.
	ParseCacheSize int
	// Debug enables pass statistics on the standard logger.
	Debug bool
	// Accelerator, when set, answers large pure-data aggregations.
	Accelerator RangeAccelerator
	// AcceleratorMinCells is the smallest range routed to the
	// accelerator. Zero selects the default of 4096 cells.
	AcceleratorMinCells int
}

const (
	defaultParseCacheSize      = 4096
	defaultAcceleratorMinCells = 4096
)

// Engine evaluates workbook snapshots. One pass is single-threaded and
// synchronous; the engine itself holds only cross-pass state (registry,
// parse cache) and is safe to share between passes on different
// snapshots.
type Engine struct {
	registry    *Registry
	parseCache  *lruCache
	debug       bool
	accelerator RangeAccelerator
	accelMin    int
}

// getOptions folds the variadic options into their effective values.
func getOptions(opts ...Options) Options {
	options := Options{}
	for _, opt := range opts {
		if opt.Registry != nil {
			options.Registry = opt.Registry
		}
		if opt.ParseCacheSize != 0 {
			options.ParseCacheSize = opt.ParseCacheSize
		}
		if opt.Debug {
			options.Debug = true
		}
		if opt.Accelerator != nil {
			options.Accelerator = opt.Accelerator
		}
		if opt.AcceleratorMinCells != 0 {
			options.AcceleratorMinCells = opt.AcceleratorMinCells
		}
	}
	return options
}

// NewEngine creates an engine.
func NewEngine(opts ...Options) *Engine {
	options := getOptions(opts...)
	engine := &Engine{
		registry: options.Registry,
		debug:    options.Debug,
	}
	if engine.registry == nil {
		engine.registry = DefaultRegistry()
	}
	switch {
	case options.ParseCacheSize > 0:
		engine.parseCache = newLRUCache(options.ParseCacheSize)
	case options.ParseCacheSize == 0:
		engine.parseCache = newLRUCache(defaultParseCacheSize)
	}
	engine.accelerator = options.Accelerator
	engine.accelMin = options.AcceleratorMinCells
	if engine.accelMin <= 0 {
		engine.accelMin = defaultAcceleratorMinCells
	}
	return engine
}

// Trace records per-cell diagnostics: the expanded dependency keys the
// cell's formula consumed.
type Trace struct {
	DependsOn []CellAddressKey
}

// EvaluationResult is the outcome of one pass: the value for every
// formula cell and every referenced cell, per-cell traces, and the
// topological levels of the formula cells. The levels are diagnostics
// only: evaluation order comes from the depth-first traversal. PassID
// identifies the pass in diagnostics.
type EvaluationResult struct {
	PassID string
	Values map[CellAddressKey]Value
	Traces map[CellAddressKey]Trace
	Levels [][]CellAddressKey
}

// Evaluate runs one pass over a snapshot. The snapshot is deep-copied at
// entry, so the caller may mutate its structures freely afterwards. The
// returned error covers malformed snapshots and accelerator failures;
// formula-level problems surface as error values in the result map.
func (e *Engine) Evaluate(snapshot *Workbook) (*EvaluationResult, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("calc: nil workbook snapshot")
	}
	wb, err := cloneWorkbook(snapshot)
	if err != nil {
		return nil, err
	}
	grid, err := buildWorkbookGrid(wb)
	if err != nil {
		return nil, err
	}
	idx := NewWorkbookIndex(wb)
	analysis := analyzeSnapshot(wb, grid, idx, e.parseCache)

	if e.accelerator != nil {
		if err := e.accelerator.LoadWorkbook(wb); err != nil {
			return nil, fmt.Errorf("calc: load accelerator: %w", err)
		}
	}

	ev := &evaluator{
		engine:   e,
		wb:       wb,
		grid:     grid,
		idx:      idx,
		analysis: analysis,
		results:  make(map[CellAddressKey]Value),
		visiting: make(map[CellAddressKey]int),
		cycle:    make(map[CellAddressKey]bool),
	}

	for _, key := range analysis.formulaKeys {
		ev.evaluateAddress(analysis.tree.Nodes[key].Address)
	}
	// Dependency targets that no evaluation path touched (for example
	// dependencies of formulas that failed to parse) still get entries:
	// blank-but-referenced cells surface as blanks.
	for key, node := range analysis.tree.Nodes {
		if _, done := ev.results[key]; !done {
			ev.evaluateAddress(node.Address)
		}
	}

	result := &EvaluationResult{
		PassID: uuid.New().String(),
		Values: ev.results,
		Traces: make(map[CellAddressKey]Trace, len(analysis.formulaKeys)),
		Levels: analysis.assignLevels(),
	}
	for _, key := range analysis.formulaKeys {
		node := analysis.tree.Nodes[key]
		deps := make([]CellAddressKey, 0, len(node.Dependencies))
		for dep := range node.Dependencies {
			deps = append(deps, dep)
		}
		sort.Slice(deps, func(i, j int) bool { return deps[i] < deps[j] })
		result.Traces[key] = Trace{DependsOn: deps}
	}

	if e.debug {
		log.Printf("[calc] pass %s: %d formulas, %d nodes, %d levels",
			result.PassID, len(analysis.formulaKeys), len(analysis.tree.Nodes), len(result.Levels))
	}
	return result, nil
}

// evaluator is the pass-scoped state: memoised results, the DFS stack and
// the cycle markers. It is dropped when the pass ends.
type evaluator struct {
	engine   *Engine
	wb       *Workbook
	grid     *workbookGrid
	idx      *WorkbookIndex
	analysis *snapshotAnalysis
	results  map[CellAddressKey]Value
	visiting map[CellAddressKey]int
	stack    []CellAddressKey
	cycle    map[CellAddressKey]bool
}

// evaluateAddress computes (or recalls) the result of one cell. Meeting a
// key that is already on the active stack flags every stack member from
// that cycle's entry downward with #CYCLE!.
func (ev *evaluator) evaluateAddress(addr CellAddress) Value {
	key := addr.Key()
	if v, done := ev.results[key]; done {
		return v
	}
	if start, active := ev.visiting[key]; active {
		for _, member := range ev.stack[start:] {
			ev.cycle[member] = true
		}
		return newErrorValue(errCycle("cell is part of a dependency cycle"))
	}

	ev.visiting[key] = len(ev.stack)
	ev.stack = append(ev.stack, key)
	value := ev.computeCell(addr)
	ev.stack = ev.stack[:len(ev.stack)-1]
	delete(ev.visiting, key)

	if ev.cycle[key] {
		value = newErrorValue(errCycle("cell is part of a dependency cycle"))
	}
	ev.results[key] = value
	return value
}

// computeCell produces the raw result of one cell: the literal for value
// cells, the evaluated AST for formula cells, the recorded error for
// cells whose formula failed to parse.
func (ev *evaluator) computeCell(addr CellAddress) Value {
	key := addr.Key()
	if parseErr, failed := ev.analysis.parseErrors[key]; failed {
		return newErrorValue(parseErr)
	}
	if parsed, isFormula := ev.analysis.parsed[key]; isFormula {
		return ev.evalNode(parsed.Root, addr)
	}
	if cell, ok := ev.grid.cell(addr.SheetID, addr.Row, addr.Col); ok {
		return cell.Value
	}
	return newEmptyValue()
}

// evalNode evaluates one AST node in the context of the cell origin.
func (ev *evaluator) evalNode(n Node, origin CellAddress) Value {
	switch node := n.(type) {
	case *LiteralNode:
		return node.Value
	case *ReferenceNode:
		return ev.evaluateAddress(node.Address)
	case *RangeNode:
		return ev.evalRange(node)
	case *UnaryNode:
		return ev.evalUnary(node, origin)
	case *BinaryNode:
		return ev.evalBinary(node, origin)
	case *FunctionNode:
		return ev.evalFunction(node, origin)
	default:
		return newErrorValue(errValue(fmt.Sprintf("unknown AST node %T", n)))
	}
}

// evalRange materialises a range as a rectangular matrix, outer index row.
func (ev *evaluator) evalRange(node *RangeNode) Value {
	b := node.bounds()
	matrix := make([][]Value, b.height)
	for r := 0; r < b.height; r++ {
		matrix[r] = make([]Value, b.width)
		for c := 0; c < b.width; c++ {
			matrix[r][c] = ev.evaluateAddress(CellAddress{
				SheetID:   b.sheetID,
				SheetName: b.sheetName,
				Row:       b.top + r,
				Col:       b.left + c,
			})
		}
	}
	return newMatrixValue(matrix)
}

func (ev *evaluator) evalUnary(node *UnaryNode, origin CellAddress) Value {
	operand := ev.evalNode(node.Operand, origin)
	switch node.Op {
	case "+":
		n, err := operandNumber(operand, "unary +")
		if err != nil {
			return newErrorValue(err)
		}
		return newNumberValue(n)
	case "-":
		n, err := operandNumber(operand, "unary -")
		if err != nil {
			return newErrorValue(err)
		}
		return newNumberValue(-n)
	case "%":
		n, err := operandNumber(operand, "percent")
		if err != nil {
			return newErrorValue(err)
		}
		return newNumberValue(n / 100)
	default:
		return newErrorValue(errValue(fmt.Sprintf("unknown unary operator %q", node.Op)))
	}
}

func (ev *evaluator) evalBinary(node *BinaryNode, origin CellAddress) Value {
	left := ev.evalNode(node.Left, origin)
	right := ev.evalNode(node.Right, origin)

	switch node.Op {
	case "+", "-", "*", "/", "^":
		ln, err := operandNumber(left, node.Op)
		if err != nil {
			return newErrorValue(err)
		}
		rn, err := operandNumber(right, node.Op)
		if err != nil {
			return newErrorValue(err)
		}
		switch node.Op {
		case "+":
			return newNumberValue(ln + rn)
		case "-":
			return newNumberValue(ln - rn)
		case "*":
			return newNumberValue(ln * rn)
		case "/":
			if rn == 0 {
				return newErrorValue(errDiv0("division by zero"))
			}
			return newNumberValue(ln / rn)
		default:
			return newNumberValue(math.Pow(ln, rn))
		}
	case "&":
		ls, err := coerceText(left, "&")
		if err != nil {
			return newErrorValue(err)
		}
		rs, err := coerceText(right, "&")
		if err != nil {
			return newErrorValue(err)
		}
		return newStringValue(ls + rs)
	case "=", "<>", "<", "<=", ">", ">=":
		ls, err := coerceScalar(left, node.Op)
		if err != nil {
			return newErrorValue(err)
		}
		rs, err := coerceScalar(right, node.Op)
		if err != nil {
			return newErrorValue(err)
		}
		if ls.IsError() {
			return ls
		}
		if rs.IsError() {
			return rs
		}
		switch node.Op {
		case "=":
			return newBoolValue(comparePrimitiveEquality(ls, rs))
		case "<>":
			return newBoolValue(!comparePrimitiveEquality(ls, rs))
		case "<":
			return newBoolValue(compareValues(ls, rs) < 0)
		case "<=":
			return newBoolValue(compareValues(ls, rs) <= 0)
		case ">":
			return newBoolValue(compareValues(ls, rs) > 0)
		default:
			return newBoolValue(compareValues(ls, rs) >= 0)
		}
	default:
		return newErrorValue(errValue(fmt.Sprintf("unknown operator %q", node.Op)))
	}
}

// evalFunction dispatches a call through the registry: eager definitions
// receive computed values, lazy ones the argument nodes plus a call
// context.
func (ev *evaluator) evalFunction(node *FunctionNode, origin CellAddress) Value {
	def, known := ev.engine.registry.Lookup(node.Name)
	if !known {
		return newErrorValue(errName(fmt.Sprintf("unknown function %s", node.Name)))
	}
	ctx := &CallContext{Origin: origin, ev: ev}

	if def.EvaluateLazy != nil {
		return ev.safeInvoke(func() Value {
			return def.EvaluateLazy(ctx, node.Args)
		})
	}

	if accelerated, value := ev.tryAccelerate(node); accelerated {
		return value
	}

	args := make([]Value, len(node.Args))
	for i, argNode := range node.Args {
		args[i] = ev.evalNode(argNode, origin)
	}
	if !def.AbsorbsErrors {
		for _, arg := range args {
			if err := firstError(arg); err != nil {
				return newErrorValue(err)
			}
		}
	}
	return ev.safeInvoke(func() Value {
		return def.Evaluate(ctx, args)
	})
}

// firstError finds an error inside a scalar or matrix argument.
func firstError(v Value) *EvalError {
	switch v.Type {
	case ValueTypeError:
		return v.Err
	case ValueTypeMatrix:
		for _, row := range v.Matrix {
			for _, cell := range row {
				if err := firstError(cell); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// safeInvoke guards a function body: panics become #VALUE! unless the
// function deliberately panicked with a tagged engine error.
func (ev *evaluator) safeInvoke(fn func() Value) (result Value) {
	defer func() {
		if r := recover(); r != nil {
			if tagged, ok := r.(*EvalError); ok {
				result = newErrorValue(tagged)
				return
			}
			result = newErrorValue(errValue(fmt.Sprintf("function failed: %v", r)))
		}
	}()
	return fn()
}

// acceleratedAggregates maps function names the accelerator can answer.
var acceleratedAggregates = map[string]bool{
	"SUM": true, "COUNT": true, "AVERAGE": true, "MIN": true, "MAX": true,
}

// tryAccelerate answers SUM-family calls over a single large range from
// the accelerator. Only sheets without formula cells qualify: there the
// snapshot values are the computed values.
func (ev *evaluator) tryAccelerate(node *FunctionNode) (bool, Value) {
	if ev.engine.accelerator == nil || !acceleratedAggregates[node.Name] || len(node.Args) != 1 {
		return false, Value{}
	}
	rangeNode, isRange := node.Args[0].(*RangeNode)
	if !isRange {
		return false, Value{}
	}
	b := rangeNode.bounds()
	if b.height*b.width < ev.engine.accelMin || ev.sheetHasFormulas(b.sheetID) {
		return false, Value{}
	}
	result, ok, err := ev.engine.accelerator.Aggregate(node.Name, b.sheetID, b.top, b.left, b.height, b.width)
	if err != nil || !ok {
		return false, Value{}
	}
	return true, newNumberValue(result)
}

// sheetHasFormulas reports whether any formula cell lives on a sheet.
func (ev *evaluator) sheetHasFormulas(sheetID int) bool {
	for _, key := range ev.analysis.formulaKeys {
		if ev.analysis.tree.Nodes[key].Address.SheetID == sheetID {
			return true
		}
	}
	return false
}

// CallContext is what a function body sees of the engine: the origin
// cell, an evaluator callback for lazy arguments, reference parsing for
// text-derived references, and the pass's formula knowledge for nested
// subtotal skipping.
type CallContext struct {
	Origin CellAddress
	ev     *evaluator
}

// Evaluate computes an argument node in the origin's context.
func (c *CallContext) Evaluate(n Node) Value {
	return c.ev.evalNode(n, c.Origin)
}

// EvaluateCell computes the result of an arbitrary cell.
func (c *CallContext) EvaluateCell(addr CellAddress) Value {
	return c.ev.evaluateAddress(addr)
}

// ParseReference parses reference text (as INDIRECT receives it) against
// the origin's sheet and the pass's workbook index.
func (c *CallContext) ParseReference(text string) (Node, *EvalError) {
	return parseReferenceNode(text, ParseContext{
		DefaultSheetID:   c.Origin.SheetID,
		DefaultSheetName: c.Origin.SheetName,
		Index:            c.ev.idx,
	})
}

// IsAggregateResult reports whether a cell's formula is itself a SUBTOTAL
// or AGGREGATE call; those cells are skipped by nested aggregation.
func (c *CallContext) IsAggregateResult(addr CellAddress) bool {
	parsed, ok := c.ev.analysis.parsed[addr.Key()]
	if !ok {
		return false
	}
	if call, isCall := parsed.Root.(*FunctionNode); isCall {
		return call.Name == "SUBTOTAL" || call.Name == "AGGREGATE"
	}
	return false
}
