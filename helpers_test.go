// Copyright 2025 The quicksheet Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenArgumentsPreservesBlanksRowMajor(t *testing.T) {
	matrix := newMatrixValue([][]Value{
		{newNumberValue(1), newEmptyValue()},
		{newNumberValue(3), newStringValue("x")},
	})
	flat := flattenArguments([]Value{matrix, newNumberValue(9)})
	require.Len(t, flat, 5)
	assert.Equal(t, 1.0, flat[0].Number)
	assert.True(t, flat[1].IsEmpty())
	assert.Equal(t, 3.0, flat[2].Number)
	assert.Equal(t, "x", flat[3].Text)
	assert.Equal(t, 9.0, flat[4].Number)
}

func TestRequireNumberCoercions(t *testing.T) {
	n, err := requireNumber(newNumberValue(2.5), "t")
	require.Nil(t, err)
	assert.Equal(t, 2.5, n)

	n, err = requireNumber(newBoolValue(true), "t")
	require.Nil(t, err)
	assert.Equal(t, 1.0, n)

	n, err = requireNumber(newStringValue("3.25"), "t")
	require.Nil(t, err)
	assert.Equal(t, 3.25, n)

	_, err = requireNumber(newStringValue(""), "t")
	require.NotNil(t, err)
	assert.Equal(t, ErrorKindValue, err.Kind)

	_, err = requireNumber(newEmptyValue(), "t")
	require.NotNil(t, err)

	_, err = requireNumber(newStringValue("abc"), "t")
	require.NotNil(t, err)

	// A 1x1 matrix unwraps; larger matrices are rejected.
	n, err = requireNumber(newMatrixValue([][]Value{{newNumberValue(7)}}), "t")
	require.Nil(t, err)
	assert.Equal(t, 7.0, n)
	_, err = requireNumber(newMatrixValue([][]Value{{newNumberValue(1), newNumberValue(2)}}), "t")
	require.NotNil(t, err)

	// Error values propagate their own kind.
	_, err = requireNumber(newErrorValue(errNA("x")), "t")
	require.NotNil(t, err)
	assert.Equal(t, ErrorKindNA, err.Kind)
}

func TestRequireIntegerIsStrict(t *testing.T) {
	v, err := requireInteger(3, "t")
	require.Nil(t, err)
	assert.Equal(t, 3, v)

	_, err = requireInteger(1.5, "t")
	require.NotNil(t, err)
	assert.Equal(t, ErrorKindValue, err.Kind)
}

func TestCoerceText(t *testing.T) {
	s, err := coerceText(newNumberValue(1.5), "t")
	require.Nil(t, err)
	assert.Equal(t, "1.5", s)

	s, err = coerceText(newNumberValue(10), "t")
	require.Nil(t, err)
	assert.Equal(t, "10", s)

	s, err = coerceText(newBoolValue(false), "t")
	require.Nil(t, err)
	assert.Equal(t, "FALSE", s)

	s, err = coerceText(newEmptyValue(), "t")
	require.Nil(t, err)
	assert.Equal(t, "", s)
}

func TestCoerceLogical(t *testing.T) {
	b, err := coerceLogical(newNumberValue(0), "t")
	require.Nil(t, err)
	assert.False(t, b)

	b, err = coerceLogical(newNumberValue(-2), "t")
	require.Nil(t, err)
	assert.True(t, b)

	b, err = coerceLogical(newStringValue("true"), "t")
	require.Nil(t, err)
	assert.True(t, b)

	_, err = coerceLogical(newStringValue("yes"), "t")
	require.NotNil(t, err)
	assert.Equal(t, ErrorKindValue, err.Kind)
}

func TestComparePrimitiveEquality(t *testing.T) {
	assert.True(t, comparePrimitiveEquality(newStringValue("ABC"), newStringValue("abc")))
	assert.True(t, comparePrimitiveEquality(newNumberValue(2), newNumberValue(2)))
	assert.True(t, comparePrimitiveEquality(newEmptyValue(), newEmptyValue()))
	assert.False(t, comparePrimitiveEquality(newNumberValue(1), newStringValue("1")))
	assert.False(t, comparePrimitiveEquality(newBoolValue(true), newNumberValue(1)))
}

func TestCompareValuesOrdering(t *testing.T) {
	assert.Equal(t, -1, compareValues(newNumberValue(1), newNumberValue(2)))
	assert.Equal(t, 0, compareValues(newStringValue("a"), newStringValue("A")))
	assert.Equal(t, -1, compareValues(newBoolValue(false), newBoolValue(true)))
	// Numbers sort below text, text below logicals.
	assert.Equal(t, -1, compareValues(newNumberValue(999), newStringValue("a")))
	assert.Equal(t, -1, compareValues(newStringValue("zzz"), newBoolValue(false)))
}
