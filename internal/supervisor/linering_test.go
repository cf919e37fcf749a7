// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineRing(t *testing.T) {
	r := NewLineRing(3)
	assert.Nil(t, r.LastN(10))

	r.Add("line1")
	r.Add("line2")
	assert.Equal(t, []string{"line1", "line2"}, r.LastN(10))

	r.Add("line3")
	assert.Equal(t, []string{"line1", "line2", "line3"}, r.LastN(10))

	// Wrap
	r.Add("line4")
	assert.Equal(t, []string{"line2", "line3", "line4"}, r.LastN(10))
	assert.Equal(t, []string{"line3", "line4"}, r.LastN(2))
	assert.Nil(t, r.LastN(0))
}

func TestLineRingDefaultCapacity(t *testing.T) {
	r := NewLineRing(0)
	for i := 0; i < 60; i++ {
		r.Add("x")
	}
	assert.Len(t, r.LastN(100), 50)
}
