// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ip4

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress(t *testing.T) {
	a, err := ParseAddress("10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, Address{10, 0, 0, 1}, a)
	assert.Equal(t, "10.0.0.1", a.String())
	assert.Equal(t, uint32(0x0a000001), a.AsUint32())
	assert.Equal(t, a, FromUint32(0x0a000001))

	b := make([]byte, 6)
	a.Put(b[2:])
	assert.Equal(t, a, Get(b[2:]))

	_, err = ParseAddress("::1")
	assert.Error(t, err)
	_, err = ParseAddress("10.0.0")
	assert.Error(t, err)
	assert.True(t, Address{}.IsZero())
}
