// Copyright 2025 The quicksheet Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregationFunctions(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": 1, "A2": 2, "A3": 3, "A4": "text", "A5": true,
		"B1": "=SUM(A1:A5)",
		"B2": "=AVERAGE(A1:A3)",
		"B3": "=MIN(A1:A3)",
		"B4": "=MAX(A1:A3)",
		"B5": "=COUNT(A1:A5)",
		"B6": "=COUNTA(A1:A5)",
		"B7": "=PRODUCT(A1:A3)",
		"B8": "=SUM(C1:C3)",     // empty set sums to 0
		"B9": "=AVERAGE(C1:C3)", // empty set fails
	}))
	assertNumber(t, result, "B1", 6)
	assertNumber(t, result, "B2", 2)
	assertNumber(t, result, "B3", 1)
	assertNumber(t, result, "B4", 3)
	assertNumber(t, result, "B5", 3)
	assertNumber(t, result, "B6", 5)
	assertNumber(t, result, "B7", 6)
	assertNumber(t, result, "B8", 0)
	assertErrorKind(t, result, "B9", ErrorKindValue)
}

func TestStatisticalFunctions(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": 2, "A2": 4, "A3": 4, "A4": 4, "A5": 5, "A6": 5, "A7": 7, "A8": 9,
		"B1": "=VARP(A1:A8)",
		"B2": "=STDEVP(A1:A8)",
		"B3": "=VAR(A1:A8)",
		"B4": "=STDEV(A1)", // sample statistics need two numbers
	}))
	assertNumber(t, result, "B1", 4)
	assertNumber(t, result, "B2", 2)
	v := resultAt(t, result, "B3")
	require.Equal(t, ValueTypeNumber, v.Type)
	assert.InDelta(t, 4.571428571428571, v.Number, 1e-12)
	assertErrorKind(t, result, "B4", ErrorKindValue)
}

func TestRoundingAndModulo(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": "=ABS(-3.5)",
		"A2": "=INT(-1.5)",
		"A3": "=ROUND(2.675,2)",
		"A4": "=ROUND(1234.5678,-2)",
		"A5": "=MOD(10,3)",
		"A6": "=MOD(-10,3)", // sign follows the divisor
		"A7": "=MOD(10,0)",
		"A8": "=ROUND(2.5)",
	}))
	assertNumber(t, result, "A1", 3.5)
	assertNumber(t, result, "A2", -2)
	v := resultAt(t, result, "A3")
	require.Equal(t, ValueTypeNumber, v.Type)
	assert.InDelta(t, 2.68, v.Number, 0.01)
	assertNumber(t, result, "A4", 1200)
	assertNumber(t, result, "A5", 1)
	assertNumber(t, result, "A6", 2)
	assertErrorKind(t, result, "A7", ErrorKindDiv0)
	assertNumber(t, result, "A8", 3)
}

func TestSumifAndCountif(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": 10, "A2": 20, "A3": 30, "A4": "x", "A5": 20,
		"B1": 1, "B2": 2, "B3": 3, "B4": 4, "B5": 5,
		"C1": `=SUMIF(A1:A5,">15")`,
		"C2": `=SUMIF(A1:A5,20)`,
		"C3": `=SUMIF(A1:A5,"x",B1:B5)`,
		"C4": `=COUNTIF(A1:A5,">=20")`,
		"C5": `=COUNTIF(A1:A5,"x")`,
		"C6": `=COUNTIF(A1:A5,"<>20")`,
		"C7": `=SUMIF(A1:A5,"20",B1:B5)`, // numeric-text criterion matches numbers
	}))
	assertNumber(t, result, "C1", 70)
	assertNumber(t, result, "C2", 40)
	assertNumber(t, result, "C3", 4)
	assertNumber(t, result, "C4", 3)
	assertNumber(t, result, "C5", 1)
	assertNumber(t, result, "C6", 3)
	assertNumber(t, result, "C7", 7)
}

func TestSubtotalMapping(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": 1, "A2": 2, "A3": 3,
		"B1": "=SUBTOTAL(9,A1:A3)",
		"B2": "=SUBTOTAL(1,A1:A3)",
		"B3": "=SUBTOTAL(4,A1:A3)",
		"B4": "=SUBTOTAL(12,A1:A3)",
	}))
	assertNumber(t, result, "B1", 6)
	assertNumber(t, result, "B2", 2)
	assertNumber(t, result, "B3", 3)
	assertErrorKind(t, result, "B4", ErrorKindValue)
}

func TestSubtotalSkipsNestedSubtotals(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": 1, "A2": 2,
		"A3": "=SUBTOTAL(9,A1:A2)", // nested subtotal inside the outer range
		"A4": 4,
		"B1": "=SUBTOTAL(9,A1:A4)",
		"B2": "=SUM(A1:A4)", // plain SUM counts the subtotal result
	}))
	assertNumber(t, result, "A3", 3)
	assertNumber(t, result, "B1", 7)
	assertNumber(t, result, "B2", 10)
}

func TestAggregateOptions(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": 1, "A2": "=1/0", "A3": 3,
		"B1": "=AGGREGATE(9,6,A1:A3)", // option 6 ignores the error cell
		"B2": "=AGGREGATE(9,0,A1:A3)", // option 0 propagates it
		"B3": "=AGGREGATE(9,3,A1:A3)", // unsupported option
		"B4": "=AGGREGATE(13,6,A1:A3)",
		"B5": "=AGGREGATE(1,6,A1:A3)",
	}))
	assertNumber(t, result, "B1", 4)
	assertErrorKind(t, result, "B2", ErrorKindDiv0)
	assertErrorKind(t, result, "B3", ErrorKindValue)
	assertErrorKind(t, result, "B4", ErrorKindValue)
	assertNumber(t, result, "B5", 2)
}

func TestAggregateSkipsNestedAggregates(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": 5,
		"A2": "=AGGREGATE(9,6,A1:A1)",
		"B1": "=AGGREGATE(9,6,A1:A2)",
	}))
	assertNumber(t, result, "A2", 5)
	assertNumber(t, result, "B1", 5)
}
