// Copyright 2025 The quicksheet Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHlookupApproximateAndExact(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": 10, "B1": 20, "C1": 40, "D1": 60,
		"A2": 1, "B2": 2, "C2": 3, "D2": 4,
		"F1": "=HLOOKUP(45,A1:D2,2)",
		"F2": "=HLOOKUP(5,A1:D2,2)", // below every key
		"F3": "=HLOOKUP(20,A1:D2,2,FALSE)",
		"F4": `=HLOOKUP("x",A1:D2,2,FALSE)`,
		"F5": "=HLOOKUP(45,A1:D2,3)", // row index out of range
	}))
	assertNumber(t, result, "F1", 3)
	assertErrorKind(t, result, "F2", ErrorKindNA)
	assertNumber(t, result, "F3", 2)
	assertErrorKind(t, result, "F4", ErrorKindNA)
	assertErrorKind(t, result, "F5", ErrorKindRef)
}

func TestVlookup(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": "apple", "B1": 100,
		"A2": "pear", "B2": 200,
		"A3": "plum", "B3": 300,
		"D1": `=VLOOKUP("pear",A1:B3,2,FALSE)`,
		"D2": `=VLOOKUP("PEAR",A1:B3,2,FALSE)`, // text match is case-insensitive
		"D3": `=VLOOKUP("kiwi",A1:B3,2,FALSE)`,
	}))
	assertNumber(t, result, "D1", 200)
	assertNumber(t, result, "D2", 200)
	assertErrorKind(t, result, "D3", ErrorKindNA)
}

func TestLookupVectors(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": 1, "A2": 3, "A3": 5,
		"B1": "one", "B2": "three", "B3": "five",
		"D1": "=LOOKUP(3,A1:A3,B1:B3)",
		"D2": "=LOOKUP(4,A1:A3,B1:B3)", // largest <= 4 is 3
		"D3": "=LOOKUP(4,A1:A3)",       // result vector defaults to lookup vector
		"D4": "=LOOKUP(0,A1:A3,B1:B3)",
		"D5": "=LOOKUP(1,A1:A2,B1:B3)", // length mismatch
	}))
	assert.Equal(t, newStringValue("three"), resultAt(t, result, "D1"))
	assert.Equal(t, newStringValue("three"), resultAt(t, result, "D2"))
	assertNumber(t, result, "D3", 3)
	assertErrorKind(t, result, "D4", ErrorKindNA)
	assertErrorKind(t, result, "D5", ErrorKindValue)
}

func TestMatchTypes(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": 10, "A2": 20, "A3": 30,
		"B1": 30, "B2": 20, "B3": 10, // descending for type -1
		"D1": "=MATCH(20,A1:A3,0)",
		"D2": "=MATCH(25,A1:A3,1)",
		"D3": "=MATCH(25,A1:A3)", // type defaults to 1
		"D4": "=MATCH(25,B1:B3,-1)",
		"D5": "=MATCH(99,A1:A3,0)",
		"D6": "=MATCH(5,A1:A3,1)",
	}))
	assertNumber(t, result, "D1", 2)
	assertNumber(t, result, "D2", 2)
	assertNumber(t, result, "D3", 2)
	assertNumber(t, result, "D4", 1)
	assertErrorKind(t, result, "D5", ErrorKindNA)
	assertErrorKind(t, result, "D6", ErrorKindNA)
}

func TestIndexForms(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": 1, "B1": 2, "C1": 3,
		"A2": 4, "B2": 5, "C2": 6,
		"E1": "=INDEX(A1:C2,2,3)",
		"E2": "=INDEX(A1:C2,0,2)", // whole column as a 2-D slice
		"E3": "=INDEX(A1:C2,1,0)", // whole row
		"E4": "=INDEX(A1:C1,2)",   // vector form
		"E5": "=INDEX(A1:C2,3,1)",
	}))
	assertNumber(t, result, "E1", 6)
	assert.Equal(t, newMatrixValue([][]Value{
		{newNumberValue(2)},
		{newNumberValue(5)},
	}), resultAt(t, result, "E2"))
	assert.Equal(t, newMatrixValue([][]Value{
		{newNumberValue(1), newNumberValue(2), newNumberValue(3)},
	}), resultAt(t, result, "E3"))
	assertNumber(t, result, "E4", 2)
	assertErrorKind(t, result, "E5", ErrorKindRef)
}

func TestChooseIsLazyAndPreservesShape(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": 1, "A2": 2,
		"B1": "=CHOOSE(2,1/0,42)", // the erroring branch is never evaluated
		"B2": "=CHOOSE(1,A1:A2)",
		"B3": "=CHOOSE(3,1,2)",
	}))
	assertNumber(t, result, "B1", 42)
	assert.Equal(t, newMatrixValue([][]Value{
		{newNumberValue(1)},
		{newNumberValue(2)},
	}), resultAt(t, result, "B2"))
	assertErrorKind(t, result, "B3", ErrorKindValue)
}

func TestOffsetDefaultsAndBounds(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": 1, "B1": 2,
		"A2": 3, "B2": 4,
		"D1": "=OFFSET(A1:B2,0,0)", // dimensions default to the reference's own
		"D2": "=OFFSET(A1,0,0,0,1)",
		"D3": "=OFFSET(5,0,0)", // not a reference
	}))
	assert.Equal(t, newMatrixValue([][]Value{
		{newNumberValue(1), newNumberValue(2)},
		{newNumberValue(3), newNumberValue(4)},
	}), resultAt(t, result, "D1"))
	assertErrorKind(t, result, "D2", ErrorKindRef)
	assertErrorKind(t, result, "D3", ErrorKindValue)
}
