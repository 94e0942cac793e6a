// Copyright 2025 The quicksheet Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package calc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Aggregation indices shared by AGGREGATE and SUBTOTAL, per the ODF
// function numbering: 1=AVERAGE ... 11=VARP.
const (
	aggAverage = 1
	aggCount   = 2
	aggCountA  = 3
	aggMax     = 4
	aggMin     = 5
	aggProduct = 6
	aggStdev   = 7
	aggStdevP  = 8
	aggSum     = 9
	aggVar     = 10
	aggVarP    = 11
)

func registerMathFuncs(r *Registry) {
	r.mustRegister(&FunctionDefinition{
		Name:        "SUM",
		Category:    "math",
		Description: map[string]string{"en": "Adds its numeric arguments.", "ja": "数値を合計します。"},
		Examples:    []string{"SUM(A1:A10)", "SUM(1,2,3)"},
		Evaluate:    calcSUM,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "AVERAGE",
		Category:    "statistical",
		Description: map[string]string{"en": "Averages its numeric arguments.", "ja": "数値の平均を返します。"},
		Examples:    []string{"AVERAGE(B2:B20)"},
		Evaluate:    calcAVERAGE,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "MIN",
		Category:    "statistical",
		Description: map[string]string{"en": "Smallest numeric argument.", "ja": "最小値を返します。"},
		Evaluate:    calcMIN,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "MAX",
		Category:    "statistical",
		Description: map[string]string{"en": "Largest numeric argument.", "ja": "最大値を返します。"},
		Evaluate:    calcMAX,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "COUNT",
		Category:    "statistical",
		Description: map[string]string{"en": "Counts numeric values.", "ja": "数値の個数を返します。"},
		Evaluate:    calcCOUNT,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "COUNTA",
		Category:    "statistical",
		Description: map[string]string{"en": "Counts non-blank values.", "ja": "空白でない値の個数を返します。"},
		Evaluate:    calcCOUNTA,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "PRODUCT",
		Category:    "math",
		Description: map[string]string{"en": "Multiplies its numeric arguments.", "ja": "数値の積を返します。"},
		Evaluate:    calcPRODUCT,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "STDEV",
		Category:    "statistical",
		Description: map[string]string{"en": "Sample standard deviation.", "ja": "標本標準偏差を返します。"},
		Evaluate:    aggregateEvaluator(aggStdev),
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "STDEVP",
		Category:    "statistical",
		Description: map[string]string{"en": "Population standard deviation.", "ja": "母標準偏差を返します。"},
		Evaluate:    aggregateEvaluator(aggStdevP),
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "VAR",
		Category:    "statistical",
		Description: map[string]string{"en": "Sample variance.", "ja": "標本分散を返します。"},
		Evaluate:    aggregateEvaluator(aggVar),
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "VARP",
		Category:    "statistical",
		Description: map[string]string{"en": "Population variance.", "ja": "母分散を返します。"},
		Evaluate:    aggregateEvaluator(aggVarP),
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "ABS",
		Category:    "math",
		Description: map[string]string{"en": "Absolute value.", "ja": "絶対値を返します。"},
		Evaluate:    calcABS,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "INT",
		Category:    "math",
		Description: map[string]string{"en": "Rounds down to the nearest integer.", "ja": "最も近い整数に切り捨てます。"},
		Evaluate:    calcINT,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "ROUND",
		Category:    "math",
		Description: map[string]string{"en": "Rounds to a number of digits.", "ja": "指定した桁数に四捨五入します。"},
		Evaluate:    calcROUND,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "MOD",
		Category:    "math",
		Description: map[string]string{"en": "Remainder after division.", "ja": "剰余を返します。"},
		Evaluate:    calcMOD,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "SUMIF",
		Category:    "math",
		Description: map[string]string{"en": "Sums cells matching a criterion.", "ja": "条件に一致するセルを合計します。"},
		Examples:    []string{`SUMIF(A1:A10,">5")`, `SUMIF(A1:A10,"x",B1:B10)`},
		Evaluate:    calcSUMIF,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "COUNTIF",
		Category:    "statistical",
		Description: map[string]string{"en": "Counts cells matching a criterion.", "ja": "条件に一致するセルの個数を返します。"},
		Evaluate:    calcCOUNTIF,
	})
	r.mustRegister(&FunctionDefinition{
		Name:         "AGGREGATE",
		Category:     "math",
		Description:  map[string]string{"en": "Applies an aggregation with error and nested-subtotal control.", "ja": "エラーやネストした小計を制御しながら集計します。"},
		Examples:     []string{"AGGREGATE(9,6,A1:A10)"},
		EvaluateLazy: calcAGGREGATE,
	})
	r.mustRegister(&FunctionDefinition{
		Name:         "SUBTOTAL",
		Category:     "math",
		Description:  map[string]string{"en": "Aggregates a range, skipping nested subtotals.", "ja": "ネストした小計を除いて集計します。"},
		Examples:     []string{"SUBTOTAL(9,A1:A10)"},
		EvaluateLazy: calcSUBTOTAL,
	})
}

// aggregateEvaluator adapts an aggregation index into an eager evaluator.
func aggregateEvaluator(fnIdx int) EagerFunc {
	return func(ctx *CallContext, args []Value) Value {
		return applyAggregate(fnIdx, flattenArguments(args))
	}
}

func calcSUM(ctx *CallContext, args []Value) Value {
	return applyAggregate(aggSum, flattenArguments(args))
}

func calcAVERAGE(ctx *CallContext, args []Value) Value {
	return applyAggregate(aggAverage, flattenArguments(args))
}

func calcMIN(ctx *CallContext, args []Value) Value {
	return applyAggregate(aggMin, flattenArguments(args))
}

func calcMAX(ctx *CallContext, args []Value) Value {
	return applyAggregate(aggMax, flattenArguments(args))
}

func calcCOUNT(ctx *CallContext, args []Value) Value {
	return applyAggregate(aggCount, flattenArguments(args))
}

func calcCOUNTA(ctx *CallContext, args []Value) Value {
	return applyAggregate(aggCountA, flattenArguments(args))
}

func calcPRODUCT(ctx *CallContext, args []Value) Value {
	return applyAggregate(aggProduct, flattenArguments(args))
}

// applyAggregate runs one of the shared aggregation kernels over a
// flattened value list. Aggregations are numeric-only; COUNT tallies
// numbers and COUNTA non-blanks. Empty numeric sets fail with #VALUE!
// except SUM, which is 0.
func applyAggregate(fnIdx int, values []Value) Value {
	nums := collectNumbers(values)
	switch fnIdx {
	case aggSum:
		total := 0.0
		for _, n := range nums {
			total += n
		}
		return newNumberValue(total)
	case aggCount:
		return newNumberValue(float64(len(nums)))
	case aggCountA:
		count := 0
		for _, v := range values {
			if v.Type != ValueTypeEmpty {
				count++
			}
		}
		return newNumberValue(float64(count))
	case aggAverage:
		if len(nums) == 0 {
			return newErrorValue(errValue("AVERAGE of an empty set"))
		}
		total := 0.0
		for _, n := range nums {
			total += n
		}
		return newNumberValue(total / float64(len(nums)))
	case aggMin, aggMax:
		if len(nums) == 0 {
			return newErrorValue(errValue("MIN/MAX of an empty set"))
		}
		best := nums[0]
		for _, n := range nums[1:] {
			if (fnIdx == aggMin && n < best) || (fnIdx == aggMax && n > best) {
				best = n
			}
		}
		return newNumberValue(best)
	case aggProduct:
		if len(nums) == 0 {
			return newErrorValue(errValue("PRODUCT of an empty set"))
		}
		product := 1.0
		for _, n := range nums {
			product *= n
		}
		return newNumberValue(product)
	case aggStdev, aggVar:
		if len(nums) < 2 {
			return newErrorValue(errValue("sample statistics need at least two numbers"))
		}
		v := variance(nums, true)
		if fnIdx == aggStdev {
			return newNumberValue(math.Sqrt(v))
		}
		return newNumberValue(v)
	case aggStdevP, aggVarP:
		if len(nums) == 0 {
			return newErrorValue(errValue("population statistics of an empty set"))
		}
		v := variance(nums, false)
		if fnIdx == aggStdevP {
			return newNumberValue(math.Sqrt(v))
		}
		return newNumberValue(v)
	default:
		return newErrorValue(errValue(fmt.Sprintf("unsupported aggregation index %d", fnIdx)))
	}
}

// variance computes sample (n-1) or population (n) variance.
func variance(nums []float64, sample bool) float64 {
	mean := 0.0
	for _, n := range nums {
		mean += n
	}
	mean /= float64(len(nums))
	total := 0.0
	for _, n := range nums {
		d := n - mean
		total += d * d
	}
	if sample {
		return total / float64(len(nums)-1)
	}
	return total / float64(len(nums))
}

func calcABS(ctx *CallContext, args []Value) Value {
	if len(args) != 1 {
		return newErrorValue(errValue("ABS takes one argument"))
	}
	n, err := requireNumber(args[0], "ABS")
	if err != nil {
		return newErrorValue(err)
	}
	return newNumberValue(math.Abs(n))
}

func calcINT(ctx *CallContext, args []Value) Value {
	if len(args) != 1 {
		return newErrorValue(errValue("INT takes one argument"))
	}
	n, err := requireNumber(args[0], "INT")
	if err != nil {
		return newErrorValue(err)
	}
	return newNumberValue(math.Floor(n))
}

func calcROUND(ctx *CallContext, args []Value) Value {
	if len(args) < 1 || len(args) > 2 {
		return newErrorValue(errValue("ROUND takes one or two arguments"))
	}
	n, err := requireNumber(args[0], "ROUND value")
	if err != nil {
		return newErrorValue(err)
	}
	digits := 0
	if len(args) == 2 && !args[1].IsEmpty() {
		d, err := requireNumber(args[1], "ROUND digits")
		if err != nil {
			return newErrorValue(err)
		}
		if digits, err = requireInteger(d, "ROUND digits"); err != nil {
			return newErrorValue(err)
		}
	}
	scale := math.Pow(10, float64(digits))
	return newNumberValue(math.Round(n*scale) / scale)
}

func calcMOD(ctx *CallContext, args []Value) Value {
	if len(args) != 2 {
		return newErrorValue(errValue("MOD takes two arguments"))
	}
	n, err := requireNumber(args[0], "MOD number")
	if err != nil {
		return newErrorValue(err)
	}
	d, err := requireNumber(args[1], "MOD divisor")
	if err != nil {
		return newErrorValue(err)
	}
	if d == 0 {
		return newErrorValue(errDiv0("modulo by zero"))
	}
	// The result takes the divisor's sign.
	return newNumberValue(n - d*math.Floor(n/d))
}

func calcSUMIF(ctx *CallContext, args []Value) Value {
	if len(args) < 2 || len(args) > 3 {
		return newErrorValue(errValue("SUMIF takes two or three arguments"))
	}
	testCells := flattenResult(args[0])
	sumCells := testCells
	if len(args) == 3 {
		sumCells = flattenResult(args[2])
		if len(sumCells) != len(testCells) {
			return newErrorValue(errValue("SUMIF: range and sum range differ in size"))
		}
	}
	criterion, err := coerceScalar(args[1], "SUMIF criteria")
	if err != nil {
		return newErrorValue(err)
	}
	total := 0.0
	for i, cell := range testCells {
		if matchCriteria(cell, criterion) && sumCells[i].Type == ValueTypeNumber {
			total += sumCells[i].Number
		}
	}
	return newNumberValue(total)
}

func calcCOUNTIF(ctx *CallContext, args []Value) Value {
	if len(args) != 2 {
		return newErrorValue(errValue("COUNTIF takes two arguments"))
	}
	criterion, err := coerceScalar(args[1], "COUNTIF criteria")
	if err != nil {
		return newErrorValue(err)
	}
	count := 0
	for _, cell := range flattenResult(args[0]) {
		if matchCriteria(cell, criterion) {
			count++
		}
	}
	return newNumberValue(float64(count))
}

// matchCriteria applies a SUMIF/COUNTIF criterion: an optional leading
// comparator followed by a number or text, or a bare value compared with
// primitive equality. A numeric-text criterion matches numeric cells.
func matchCriteria(cell, criterion Value) bool {
	if criterion.Type == ValueTypeString {
		text := criterion.Text
		op := "="
		for _, candidate := range []string{">=", "<=", "<>", ">", "<", "="} {
			if strings.HasPrefix(text, candidate) {
				op, text = candidate, text[len(candidate):]
				break
			}
		}
		target := newStringValue(text)
		if n, convErr := strconv.ParseFloat(strings.TrimSpace(text), 64); convErr == nil && strings.TrimSpace(text) != "" {
			target = newNumberValue(n)
		}
		switch op {
		case "=":
			return criteriaEqual(cell, target)
		case "<>":
			return !criteriaEqual(cell, target)
		default:
			if cell.Type != target.Type {
				return false
			}
			cmp := compareValues(cell, target)
			switch op {
			case ">":
				return cmp > 0
			case ">=":
				return cmp >= 0
			case "<":
				return cmp < 0
			default:
				return cmp <= 0
			}
		}
	}
	return criteriaEqual(cell, criterion)
}

// criteriaEqual is primitive equality plus number/numeric-text bridging.
func criteriaEqual(cell, target Value) bool {
	if cell.Type == target.Type {
		return comparePrimitiveEquality(cell, target)
	}
	if cell.Type == ValueTypeNumber && target.Type == ValueTypeString {
		if n, err := strconv.ParseFloat(strings.TrimSpace(target.Text), 64); err == nil {
			return cell.Number == n
		}
	}
	return false
}

// calcAGGREGATE is lazy so option 6 can skip individual error cells and
// nested SUBTOTAL/AGGREGATE results can be excluded per ODF 1.3 §6.10.1.
func calcAGGREGATE(ctx *CallContext, args []Node) Value {
	if len(args) < 3 {
		return newErrorValue(errValue("AGGREGATE takes a function index, options and at least one range"))
	}
	fnIdx, err := lazyIntArg(ctx, args[0], "AGGREGATE function index")
	if err != nil {
		return newErrorValue(err)
	}
	if fnIdx < aggAverage || fnIdx > aggVarP {
		return newErrorValue(errValue(fmt.Sprintf("AGGREGATE: unsupported function index %d", fnIdx)))
	}
	options, err := lazyIntArg(ctx, args[1], "AGGREGATE options")
	if err != nil {
		return newErrorValue(err)
	}
	if options != 0 && options != 6 {
		return newErrorValue(errValue(fmt.Sprintf("AGGREGATE: unsupported options %d", options)))
	}
	values, collectErr := collectAggregationOperands(ctx, args[2:], options == 6)
	if collectErr != nil {
		return newErrorValue(collectErr)
	}
	return applyAggregate(fnIdx, values)
}

// calcSUBTOTAL shares the AGGREGATE kernels; it always skips nested
// subtotal results and never absorbs errors.
func calcSUBTOTAL(ctx *CallContext, args []Node) Value {
	if len(args) < 2 {
		return newErrorValue(errValue("SUBTOTAL takes a function index and at least one range"))
	}
	fnIdx, err := lazyIntArg(ctx, args[0], "SUBTOTAL function index")
	if err != nil {
		return newErrorValue(err)
	}
	if fnIdx < aggAverage || fnIdx > aggVarP {
		return newErrorValue(errValue(fmt.Sprintf("SUBTOTAL: unsupported function index %d", fnIdx)))
	}
	values, collectErr := collectAggregationOperands(ctx, args[1:], false)
	if collectErr != nil {
		return newErrorValue(collectErr)
	}
	return applyAggregate(fnIdx, values)
}

// lazyIntArg evaluates a lazy argument to a strict integer.
func lazyIntArg(ctx *CallContext, arg Node, label string) (int, *EvalError) {
	n, err := requireNumber(ctx.Evaluate(arg), label)
	if err != nil {
		return 0, err
	}
	return requireInteger(n, label)
}

// collectAggregationOperands evaluates range operands cell by cell so
// nested SUBTOTAL/AGGREGATE results can be skipped; non-reference
// operands are evaluated wholesale and flattened. With ignoreErrors set,
// error cells are dropped; otherwise the first error propagates.
func collectAggregationOperands(ctx *CallContext, args []Node, ignoreErrors bool) ([]Value, *EvalError) {
	var values []Value
	for _, arg := range args {
		if b, isRef := nodeBounds(arg); isRef {
			for row := b.top; row < b.top+b.height; row++ {
				for col := b.left; col < b.left+b.width; col++ {
					addr := CellAddress{SheetID: b.sheetID, SheetName: b.sheetName, Row: row, Col: col}
					if ctx.IsAggregateResult(addr) {
						continue
					}
					v := ctx.EvaluateCell(addr)
					if v.IsError() {
						if ignoreErrors {
							continue
						}
						return nil, v.Err
					}
					values = append(values, v)
				}
			}
			continue
		}
		for _, v := range flattenResult(ctx.Evaluate(arg)) {
			if v.IsError() {
				if ignoreErrors {
					continue
				}
				return nil, v.Err
			}
			values = append(values, v)
		}
	}
	return values, nil
}
