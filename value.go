// Copyright 2025 The quicksheet Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package calc

import (
	"strconv"
)

// ValueType is the runtime tag of a Value.
type ValueType byte

// Value type tags. Empty models a blank cell; Matrix a rectangular 2-D
// array result with the outer index being the row.
const (
	ValueTypeEmpty ValueType = iota
	ValueTypeNumber
	ValueTypeString
	ValueTypeBool
	ValueTypeMatrix
	ValueTypeError
)

// Value is the evaluation result of a cell or sub-expression: a scalar
// (number, text, boolean, blank), a rectangular matrix, or an error value.
type Value struct {
	Type    ValueType
	Number  float64
	Text    string
	Boolean bool
	Matrix  [][]Value
	Err     *EvalError
}

func newEmptyValue() Value {
	return Value{Type: ValueTypeEmpty}
}

func newNumberValue(n float64) Value {
	return Value{Type: ValueTypeNumber, Number: n}
}

func newStringValue(s string) Value {
	return Value{Type: ValueTypeString, Text: s}
}

func newBoolValue(b bool) Value {
	return Value{Type: ValueTypeBool, Boolean: b}
}

func newMatrixValue(m [][]Value) Value {
	return Value{Type: ValueTypeMatrix, Matrix: m}
}

func newErrorValue(err *EvalError) Value {
	return Value{Type: ValueTypeError, Err: err}
}

// IsError reports whether the value is a spreadsheet error.
func (v Value) IsError() bool {
	return v.Type == ValueTypeError
}

// IsEmpty reports whether the value is a blank cell result.
func (v Value) IsEmpty() bool {
	return v.Type == ValueTypeEmpty
}

// String renders the value the way a cell would display it: shortest
// round-trip for numbers, TRUE/FALSE for booleans, the error kind for
// errors and an empty string for blanks.
func (v Value) String() string {
	switch v.Type {
	case ValueTypeNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case ValueTypeString:
		return v.Text
	case ValueTypeBool:
		if v.Boolean {
			return "TRUE"
		}
		return "FALSE"
	case ValueTypeError:
		return string(v.Err.Kind)
	case ValueTypeMatrix:
		if len(v.Matrix) > 0 && len(v.Matrix[0]) > 0 {
			return v.Matrix[0][0].String()
		}
		return ""
	default:
		return ""
	}
}

// Equal reports pointwise equality between two values. Matrices compare
// elementwise; errors compare by kind. Used by snapshot-purity checks and
// tests rather than by formula comparison, which goes through
// comparePrimitiveEquality.
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case ValueTypeNumber:
		return v.Number == other.Number
	case ValueTypeString:
		return v.Text == other.Text
	case ValueTypeBool:
		return v.Boolean == other.Boolean
	case ValueTypeError:
		return v.Err.Kind == other.Err.Kind
	case ValueTypeMatrix:
		if len(v.Matrix) != len(other.Matrix) {
			return false
		}
		for i := range v.Matrix {
			if len(v.Matrix[i]) != len(other.Matrix[i]) {
				return false
			}
			for j := range v.Matrix[i] {
				if !v.Matrix[i][j].Equal(other.Matrix[i][j]) {
					return false
				}
			}
		}
		return true
	default:
		return true
	}
}
