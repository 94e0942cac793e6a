// Copyright 2025 The quicksheet Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package calc

import "fmt"

func registerLookupFuncs(r *Registry) {
	r.mustRegister(&FunctionDefinition{
		Name:        "HLOOKUP",
		Category:    "lookup",
		Description: map[string]string{"en": "Looks up a value in the first row of a table.", "ja": "表の先頭行から値を検索します。"},
		Examples:    []string{"HLOOKUP(45,A1:D2,2)", `HLOOKUP("key",A1:D2,2,FALSE)`},
		Evaluate:    calcHLOOKUP,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "VLOOKUP",
		Category:    "lookup",
		Description: map[string]string{"en": "Looks up a value in the first column of a table.", "ja": "表の先頭列から値を検索します。"},
		Examples:    []string{`VLOOKUP("key",A1:B10,2,FALSE)`},
		Evaluate:    calcVLOOKUP,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "LOOKUP",
		Category:    "lookup",
		Description: map[string]string{"en": "Looks up a value in a vector and returns the aligned result.", "ja": "ベクトルから値を検索して対応する結果を返します。"},
		Evaluate:    calcLOOKUP,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "MATCH",
		Category:    "lookup",
		Description: map[string]string{"en": "Position of a value in a vector, 1-based.", "ja": "ベクトル内の値の位置を返します。"},
		Evaluate:    calcMATCH,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "INDEX",
		Category:    "lookup",
		Description: map[string]string{"en": "Value at a row/column intersection of a table.", "ja": "表の行と列の交点の値を返します。"},
		Examples:    []string{"INDEX(A1:C5,2,3)", "INDEX(A1:C5,0,2)"},
		Evaluate:    calcINDEX,
	})
	r.mustRegister(&FunctionDefinition{
		Name:         "CHOOSE",
		Category:     "lookup",
		Description:  map[string]string{"en": "Selects one of its arguments by index.", "ja": "インデックスで引数を選択します。"},
		EvaluateLazy: calcCHOOSE,
	})
	r.mustRegister(&FunctionDefinition{
		Name:         "OFFSET",
		Category:     "lookup",
		Description:  map[string]string{"en": "Shifts and resizes a reference.", "ja": "参照を移動・リサイズします。"},
		Examples:     []string{"OFFSET(A1,1,1,2,2)"},
		EvaluateLazy: calcOFFSET,
	})
	r.mustRegister(&FunctionDefinition{
		Name:         "INDIRECT",
		Category:     "lookup",
		Description:  map[string]string{"en": "Resolves a reference given as text.", "ja": "文字列で指定された参照を解決します。"},
		Examples:     []string{`INDIRECT("B"&ROW())`, `INDIRECT("'Sheet 1'!B2")`},
		EvaluateLazy: calcINDIRECT,
	})
}

// asTable coerces a lookup table argument to a rectangular matrix; a
// scalar becomes a 1x1 table.
func asTable(arg Value, label string) ([][]Value, *EvalError) {
	if arg.Type == ValueTypeMatrix {
		return arg.Matrix, nil
	}
	if arg.IsError() {
		return nil, arg.Err
	}
	return [][]Value{{arg}}, nil
}

// approximateIndex finds the position of the largest numeric entry <= the
// numeric lookup value. The vector is ascending by contract; unsorted
// input yields the deterministic linear-scan candidate. Returns -1 when
// no entry qualifies.
func approximateIndex(lookup float64, vector []Value) int {
	best := -1
	var bestVal float64
	for i, cell := range vector {
		if cell.Type != ValueTypeNumber || cell.Number > lookup {
			continue
		}
		if best == -1 || cell.Number >= bestVal {
			best, bestVal = i, cell.Number
		}
	}
	return best
}

// exactIndex finds the first position matching by primitive equality, or
// -1.
func exactIndex(lookup Value, vector []Value) int {
	for i, cell := range vector {
		if comparePrimitiveEquality(lookup, cell) {
			return i
		}
	}
	return -1
}

func calcHLOOKUP(ctx *CallContext, args []Value) Value {
	return lookupInTable(args, "HLOOKUP", true)
}

func calcVLOOKUP(ctx *CallContext, args []Value) Value {
	return lookupInTable(args, "VLOOKUP", false)
}

// lookupInTable is the shared HLOOKUP/VLOOKUP body; HLOOKUP scans the
// first row and indexes rows, VLOOKUP is the transpose.
func lookupInTable(args []Value, name string, horizontal bool) Value {
	if len(args) < 3 || len(args) > 4 {
		return newErrorValue(errValue(name + " takes three or four arguments"))
	}
	lookup, err := coerceScalar(args[0], name+" value")
	if err != nil {
		return newErrorValue(err)
	}
	table, err := asTable(args[1], name+" table")
	if err != nil {
		return newErrorValue(err)
	}
	if len(table) == 0 || len(table[0]) == 0 {
		return newErrorValue(errRef(name + ": empty table"))
	}
	idxNum, err := requireNumber(args[2], name+" index")
	if err != nil {
		return newErrorValue(err)
	}
	index, err := requireInteger(idxNum, name+" index")
	if err != nil {
		return newErrorValue(err)
	}
	rangeLookup := true
	if len(args) == 4 && !args[3].IsEmpty() {
		if rangeLookup, err = coerceLogical(args[3], name+" range lookup"); err != nil {
			return newErrorValue(err)
		}
	}

	limit := len(table[0])
	if horizontal {
		limit = len(table)
	}
	if index < 1 || index > limit {
		return newErrorValue(errRef(fmt.Sprintf("%s: index %d out of range", name, index)))
	}

	scan := make([]Value, 0, len(table[0]))
	if horizontal {
		scan = append(scan, table[0]...)
	} else {
		for _, row := range table {
			scan = append(scan, row[0])
		}
	}

	pos := -1
	if rangeLookup {
		n, err := requireNumber(lookup, name+" value")
		if err != nil {
			return newErrorValue(err)
		}
		pos = approximateIndex(n, scan)
	} else {
		pos = exactIndex(lookup, scan)
	}
	if pos < 0 {
		return newErrorValue(errNA(name + ": no match"))
	}
	if horizontal {
		return table[index-1][pos]
	}
	return table[pos][index-1]
}

func calcLOOKUP(ctx *CallContext, args []Value) Value {
	if len(args) < 2 || len(args) > 3 {
		return newErrorValue(errValue("LOOKUP takes two or three arguments"))
	}
	lookup, err := coerceScalar(args[0], "LOOKUP value")
	if err != nil {
		return newErrorValue(err)
	}
	vector := flattenResult(args[1])
	result := vector
	if len(args) == 3 && !args[2].IsEmpty() {
		result = flattenResult(args[2])
	}
	if len(vector) != len(result) {
		return newErrorValue(errValue("LOOKUP: vectors differ in length"))
	}
	if len(vector) == 0 {
		return newErrorValue(errNA("LOOKUP: empty vector"))
	}

	pos := exactIndex(lookup, vector)
	if pos < 0 && lookup.Type == ValueTypeNumber {
		pos = approximateIndex(lookup.Number, vector)
	}
	if pos < 0 {
		return newErrorValue(errNA("LOOKUP: no match"))
	}
	return result[pos]
}

func calcMATCH(ctx *CallContext, args []Value) Value {
	if len(args) < 2 || len(args) > 3 {
		return newErrorValue(errValue("MATCH takes two or three arguments"))
	}
	lookup, err := coerceScalar(args[0], "MATCH value")
	if err != nil {
		return newErrorValue(err)
	}
	vector := flattenResult(args[1])
	matchType := 1
	if len(args) == 3 && !args[2].IsEmpty() {
		n, err := requireNumber(args[2], "MATCH type")
		if err != nil {
			return newErrorValue(err)
		}
		if matchType, err = requireInteger(n, "MATCH type"); err != nil {
			return newErrorValue(err)
		}
	}

	pos := -1
	switch matchType {
	case 0:
		pos = exactIndex(lookup, vector)
	case 1:
		// Largest entry <= lookup; the vector is ascending by contract.
		for i, cell := range vector {
			if cell.Type != lookup.Type {
				continue
			}
			if compareValues(cell, lookup) <= 0 && (pos < 0 || compareValues(cell, vector[pos]) >= 0) {
				pos = i
			}
		}
	case -1:
		// Smallest entry >= lookup; the vector is descending by contract.
		for i, cell := range vector {
			if cell.Type != lookup.Type {
				continue
			}
			if compareValues(cell, lookup) >= 0 && (pos < 0 || compareValues(cell, vector[pos]) <= 0) {
				pos = i
			}
		}
	default:
		return newErrorValue(errValue(fmt.Sprintf("MATCH: invalid type %d", matchType)))
	}
	if pos < 0 {
		return newErrorValue(errNA("MATCH: no match"))
	}
	return newNumberValue(float64(pos + 1))
}

func calcINDEX(ctx *CallContext, args []Value) Value {
	if len(args) < 2 || len(args) > 3 {
		return newErrorValue(errValue("INDEX takes two or three arguments"))
	}
	table, err := asTable(args[0], "INDEX table")
	if err != nil {
		return newErrorValue(err)
	}
	if len(table) == 0 || len(table[0]) == 0 {
		return newErrorValue(errRef("INDEX: empty table"))
	}
	rowNum, err := requireNumber(args[1], "INDEX row")
	if err != nil {
		return newErrorValue(err)
	}
	row, err := requireInteger(rowNum, "INDEX row")
	if err != nil {
		return newErrorValue(err)
	}
	col := 0
	if len(args) == 3 && !args[2].IsEmpty() {
		colNum, err := requireNumber(args[2], "INDEX column")
		if err != nil {
			return newErrorValue(err)
		}
		if col, err = requireInteger(colNum, "INDEX column"); err != nil {
			return newErrorValue(err)
		}
	}
	height, width := len(table), len(table[0])

	// A single-row or single-column table is a vector: one index
	// addresses it directly.
	if len(args) == 2 && row >= 1 {
		switch {
		case height == 1:
			if row > width {
				return newErrorValue(errRef(fmt.Sprintf("INDEX: position %d out of range", row)))
			}
			return table[0][row-1]
		case width == 1:
			if row > height {
				return newErrorValue(errRef(fmt.Sprintf("INDEX: position %d out of range", row)))
			}
			return table[row-1][0]
		}
	}

	if row < 0 || row > height || col < 0 || col > width {
		return newErrorValue(errRef(fmt.Sprintf("INDEX: position (%d,%d) out of range", row, col)))
	}

	switch {
	case row == 0 && col == 0:
		return newMatrixValue(table)
	case row == 0:
		column := make([][]Value, height)
		for r := 0; r < height; r++ {
			column[r] = []Value{table[r][col-1]}
		}
		return newMatrixValue(column)
	case col == 0:
		return newMatrixValue([][]Value{table[row-1]})
	default:
		return table[row-1][col-1]
	}
}

// calcCHOOSE is lazy: only the selected argument is evaluated, and its
// result keeps its shape.
func calcCHOOSE(ctx *CallContext, args []Node) Value {
	if len(args) < 2 {
		return newErrorValue(errValue("CHOOSE takes an index and at least one value"))
	}
	index, err := lazyIntArg(ctx, args[0], "CHOOSE index")
	if err != nil {
		return newErrorValue(err)
	}
	if index < 1 || index > len(args)-1 {
		return newErrorValue(errValue(fmt.Sprintf("CHOOSE: index %d out of range", index)))
	}
	return ctx.Evaluate(args[index])
}

// calcOFFSET resolves the bounds of its reference argument without
// evaluating it, then evaluates a synthetic range at the shifted
// position.
func calcOFFSET(ctx *CallContext, args []Node) Value {
	if len(args) < 3 || len(args) > 5 {
		return newErrorValue(errValue("OFFSET takes three to five arguments"))
	}
	b, isRef := nodeBounds(args[0])
	if !isRef {
		return newErrorValue(errValue("OFFSET: first argument must be a reference"))
	}
	rows, err := lazyIntArg(ctx, args[1], "OFFSET rows")
	if err != nil {
		return newErrorValue(err)
	}
	cols, err := lazyIntArg(ctx, args[2], "OFFSET cols")
	if err != nil {
		return newErrorValue(err)
	}
	height, width := b.height, b.width
	if len(args) >= 4 && !isOmittedArg(args[3]) {
		if height, err = lazyIntArg(ctx, args[3], "OFFSET height"); err != nil {
			return newErrorValue(err)
		}
	}
	if len(args) == 5 && !isOmittedArg(args[4]) {
		if width, err = lazyIntArg(ctx, args[4], "OFFSET width"); err != nil {
			return newErrorValue(err)
		}
	}

	top, left := b.top+rows, b.left+cols
	if top < 0 || left < 0 || height < 1 || width < 1 {
		return newErrorValue(errRef("OFFSET: resulting reference is out of bounds"))
	}
	start := CellAddress{SheetID: b.sheetID, SheetName: b.sheetName, Row: top, Col: left}
	if height == 1 && width == 1 {
		return ctx.Evaluate(&ReferenceNode{Address: start})
	}
	end := CellAddress{SheetID: b.sheetID, SheetName: b.sheetName, Row: top + height - 1, Col: left + width - 1}
	return ctx.Evaluate(&RangeNode{Start: start, End: end})
}

// calcINDIRECT evaluates its first argument to reference text, resolves
// the text against the origin's sheet (carrying the sheet prefix to the
// end of a range when missing) and evaluates the synthetic reference.
func calcINDIRECT(ctx *CallContext, args []Node) Value {
	if len(args) < 1 || len(args) > 2 {
		return newErrorValue(errValue("INDIRECT takes one or two arguments"))
	}
	text, err := coerceText(ctx.Evaluate(args[0]), "INDIRECT reference")
	if err != nil {
		return newErrorValue(err)
	}
	if len(args) == 2 && !isOmittedArg(args[1]) {
		a1, err := coerceLogical(ctx.Evaluate(args[1]), "INDIRECT a1")
		if err != nil {
			return newErrorValue(err)
		}
		if !a1 {
			return newErrorValue(errValue("INDIRECT: R1C1 references are not supported"))
		}
	}
	node, err := ctx.ParseReference(text)
	if err != nil {
		return newErrorValue(err)
	}
	return ctx.Evaluate(node)
}

// isOmittedArg reports whether a lazy argument slot was left empty, as in
// OFFSET(A1,1,1,,2).
func isOmittedArg(n Node) bool {
	literal, ok := n.(*LiteralNode)
	return ok && literal.Value.IsEmpty()
}
