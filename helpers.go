// Copyright 2025 The quicksheet Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package calc

import (
	"fmt"
	"strconv"
	"strings"
)

// flattenArguments flattens nested matrices across all arguments into a
// 1-D list of scalars, row-major, preserving blanks and errors. Numeric
// reducers re-filter the result through collectNumbers.
func flattenArguments(args []Value) []Value {
	var flat []Value
	for _, arg := range args {
		flat = append(flat, flattenResult(arg)...)
	}
	return flat
}

// flattenResult flattens a single argument (scalar or matrix) to a 1-D
// list, preserving blanks.
func flattenResult(arg Value) []Value {
	if arg.Type != ValueTypeMatrix {
		return []Value{arg}
	}
	var flat []Value
	for _, row := range arg.Matrix {
		for _, v := range row {
			flat = append(flat, flattenResult(v)...)
		}
	}
	return flat
}

// collectNumbers filters a flattened list down to its numeric members.
func collectNumbers(values []Value) []float64 {
	var nums []float64
	for _, v := range values {
		if v.Type == ValueTypeNumber {
			nums = append(nums, v.Number)
		}
	}
	return nums
}

// coerceScalar unwraps a 1x1 matrix to its single cell and rejects larger
// matrices.
func coerceScalar(arg Value, label string) (Value, *EvalError) {
	if arg.Type != ValueTypeMatrix {
		return arg, nil
	}
	if len(arg.Matrix) == 1 && len(arg.Matrix[0]) == 1 {
		return coerceScalar(arg.Matrix[0][0], label)
	}
	return Value{}, errValue(fmt.Sprintf("%s: expected a single value, got a %dx%d array", label, len(arg.Matrix), matrixWidth(arg.Matrix)))
}

func matrixWidth(m [][]Value) int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// requireNumber coerces a scalar to a number: booleans become 0/1, numeric
// strings are parsed with a '.' decimal point, blanks and empty strings
// fail with #VALUE!. Error values propagate unchanged.
func requireNumber(arg Value, label string) (float64, *EvalError) {
	scalar, err := coerceScalar(arg, label)
	if err != nil {
		return 0, err
	}
	switch scalar.Type {
	case ValueTypeNumber:
		return scalar.Number, nil
	case ValueTypeBool:
		if scalar.Boolean {
			return 1, nil
		}
		return 0, nil
	case ValueTypeString:
		text := strings.TrimSpace(scalar.Text)
		if text == "" {
			return 0, errValue(fmt.Sprintf("%s: empty text is not a number", label))
		}
		n, convErr := strconv.ParseFloat(text, 64)
		if convErr != nil {
			return 0, errValue(fmt.Sprintf("%s: %q is not a number", label, scalar.Text))
		}
		return n, nil
	case ValueTypeError:
		return 0, scalar.Err
	default:
		return 0, errValue(fmt.Sprintf("%s: blank is not a number", label))
	}
}

// requireInteger rejects non-integral numbers. No truncation happens: 1.5
// is an error, not 1.
func requireInteger(value float64, label string) (int, *EvalError) {
	if value != float64(int64(value)) {
		return 0, errValue(fmt.Sprintf("%s: %v is not an integer", label, value))
	}
	return int(value), nil
}

// coerceText renders a scalar as text: numbers with the shortest
// round-trip form, booleans as TRUE/FALSE, blank as "".
func coerceText(arg Value, label string) (string, *EvalError) {
	scalar, err := coerceScalar(arg, label)
	if err != nil {
		return "", err
	}
	switch scalar.Type {
	case ValueTypeString:
		return scalar.Text, nil
	case ValueTypeNumber:
		return strconv.FormatFloat(scalar.Number, 'f', -1, 64), nil
	case ValueTypeBool:
		if scalar.Boolean {
			return "TRUE", nil
		}
		return "FALSE", nil
	case ValueTypeError:
		return "", scalar.Err
	default:
		return "", nil
	}
}

// coerceLogical maps a scalar to a boolean: numbers by zero test, text by
// case-insensitive TRUE/FALSE, blanks as false. Anything else is #VALUE!.
func coerceLogical(arg Value, label string) (bool, *EvalError) {
	scalar, err := coerceScalar(arg, label)
	if err != nil {
		return false, err
	}
	switch scalar.Type {
	case ValueTypeBool:
		return scalar.Boolean, nil
	case ValueTypeNumber:
		return scalar.Number != 0, nil
	case ValueTypeString:
		if strings.EqualFold(scalar.Text, "TRUE") {
			return true, nil
		}
		if strings.EqualFold(scalar.Text, "FALSE") {
			return false, nil
		}
		return false, errValue(fmt.Sprintf("%s: %q is not a logical value", label, scalar.Text))
	case ValueTypeError:
		return false, scalar.Err
	default:
		return false, nil
	}
}

// comparePrimitiveEquality is the shared equality test: strict on type,
// case-insensitive for text, exact for numbers. Values of different types
// are never equal; two blanks are.
func comparePrimitiveEquality(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case ValueTypeNumber:
		return a.Number == b.Number
	case ValueTypeString:
		return strings.EqualFold(a.Text, b.Text)
	case ValueTypeBool:
		return a.Boolean == b.Boolean
	case ValueTypeEmpty:
		return true
	default:
		return false
	}
}

// typeRank orders scalar types for relational comparison across types:
// numbers sort below text, text below logicals.
func typeRank(v Value) int {
	switch v.Type {
	case ValueTypeNumber, ValueTypeEmpty:
		return 0
	case ValueTypeString:
		return 1
	default:
		return 2
	}
}

// compareValues orders two scalars: -1, 0 or 1. Within a type, numbers
// compare numerically, text case-insensitively, false sorts before true;
// across types the type rank decides.
func compareValues(a, b Value) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch a.Type {
	case ValueTypeString:
		la, lb := strings.ToUpper(a.Text), strings.ToUpper(b.Text)
		switch {
		case la < lb:
			return -1
		case la > lb:
			return 1
		}
		return 0
	case ValueTypeBool:
		switch {
		case !a.Boolean && b.Boolean:
			return -1
		case a.Boolean && !b.Boolean:
			return 1
		}
		return 0
	default:
		na, nb := a.Number, b.Number
		if a.Type == ValueTypeEmpty {
			na = 0
		}
		if b.Type == ValueTypeEmpty {
			nb = 0
		}
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	}
}

// operandNumber is the arithmetic-operator coercion: like requireNumber
// but with the classic spreadsheet rule that a blank operand is 0.
func operandNumber(arg Value, label string) (float64, *EvalError) {
	scalar, err := coerceScalar(arg, label)
	if err != nil {
		return 0, err
	}
	if scalar.Type == ValueTypeEmpty {
		return 0, nil
	}
	return requireNumber(scalar, label)
}
