// Copyright 2025 The quicksheet Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCacheEviction(t *testing.T) {
	cache := newLRUCache(2)
	assert.False(t, cache.Store("a", 1))
	assert.False(t, cache.Store("b", 2))

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := cache.Load("a")
	require.True(t, ok)

	assert.True(t, cache.Store("c", 3))
	_, ok = cache.Load("b")
	assert.False(t, ok)
	_, ok = cache.Load("a")
	assert.True(t, ok)
	assert.Equal(t, 2, cache.Len())
}

func TestLRUCacheUpdateAndClear(t *testing.T) {
	cache := newLRUCache(2)
	cache.Store("a", 1)
	assert.False(t, cache.Store("a", 2))
	v, ok := cache.Load("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
	_, ok = cache.Load("a")
	assert.False(t, ok)
}
