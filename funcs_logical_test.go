// Copyright 2025 The quicksheet Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAndOrNot(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": true, "A2": false, "A3": 1, "A4": 0,
		"B1": "=AND(A1,A3)",
		"B2": "=AND(A1,A2)",
		"B3": "=OR(A2,A4)",
		"B4": "=OR(A2,A3)",
		"B5": "=NOT(A2)",
		"B6": `=AND(A1,"nope")`,
		"B7": "=AND(C1:C5)", // no logical values at all
		"B8": "=AND(A1:A2,TRUE)",
	}))
	assert.Equal(t, newBoolValue(true), resultAt(t, result, "B1"))
	assert.Equal(t, newBoolValue(false), resultAt(t, result, "B2"))
	assert.Equal(t, newBoolValue(false), resultAt(t, result, "B3"))
	assert.Equal(t, newBoolValue(true), resultAt(t, result, "B4"))
	assert.Equal(t, newBoolValue(true), resultAt(t, result, "B5"))
	assertErrorKind(t, result, "B6", ErrorKindValue)
	assertErrorKind(t, result, "B7", ErrorKindValue)
	assert.Equal(t, newBoolValue(false), resultAt(t, result, "B8"))
}

func TestIfEvaluatesOnlyTheTakenBranch(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": 5,
		"B1": `=IF(A1>0,"pos",1/0)`, // the error branch is never evaluated
		"B2": `=IF(A1<0,"neg")`,     // omitted false branch yields FALSE
		"B3": "=IF(A1,10,20)",       // numeric condition coerces
	}))
	assert.Equal(t, newStringValue("pos"), resultAt(t, result, "B1"))
	assert.Equal(t, newBoolValue(false), resultAt(t, result, "B2"))
	assertNumber(t, result, "B3", 10)
}

func TestIfs(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": 15,
		"B1": `=IFS(A1<10,"small",A1<20,"medium",TRUE,"large")`,
		"B2": `=IFS(A1<10,"small",A1<12,"medium")`,
		"B3": `=IFS(A1<10,"small",1/0,"boom")`,
	}))
	assert.Equal(t, newStringValue("medium"), resultAt(t, result, "B1"))
	assertErrorKind(t, result, "B2", ErrorKindNA)
	assertErrorKind(t, result, "B3", ErrorKindDiv0)
}

func TestIfErrorMatchesEveryKind(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": "=1/0",
		"A2": "=NOSUCHFN()",
		"B1": "=IFERROR(A1,1)",
		"B2": "=IFERROR(A2,2)",
		"B3": "=IFERROR(42,99)",
		"B4": `=IFERROR(MATCH(9,C1:C2,0),"none")`,
	}))
	assertNumber(t, result, "B1", 1)
	assertNumber(t, result, "B2", 2)
	assertNumber(t, result, "B3", 42)
	assert.Equal(t, newStringValue("none"), resultAt(t, result, "B4"))
}

func TestSwitch(t *testing.T) {
	result := mustEvaluate(t, testWorkbook(t, map[string]interface{}{
		"A1": 2,
		"B1": `=SWITCH(A1,1,"one",2,"two",3,"three")`,
		"B2": `=SWITCH(A1,8,"eight","other")`,
		"B3": `=SWITCH(A1,8,"eight")`,
		"B4": `=SWITCH("B","a","lower a","B","upper b")`,
	}))
	assert.Equal(t, newStringValue("two"), resultAt(t, result, "B1"))
	assert.Equal(t, newStringValue("other"), resultAt(t, result, "B2"))
	assertErrorKind(t, result, "B3", ErrorKindNA)
	assert.Equal(t, newStringValue("upper b"), resultAt(t, result, "B4"))
}
