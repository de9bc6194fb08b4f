// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	err := Errorf(KindConfig, "bad burst %d", 0)
	assert.Equal(t, KindConfig, GetKind(err))
	assert.Equal(t, "bad burst 0", err.Error())
	assert.True(t, IsKind(err, KindConfig))
	assert.False(t, IsKind(nil, KindConfig))
	assert.Equal(t, KindUnknown, GetKind(io.EOF))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, KindResource, "x"))
	err := Wrap(io.EOF, KindResource, "alloc")
	assert.True(t, Is(err, io.EOF))
	assert.Equal(t, "alloc: EOF", err.Error())

	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, KindResource, GetKind(wrapped))
}

func TestWithElement(t *testing.T) {
	err := WithElement(New(KindAbsent, "no such device"), "src")
	assert.Equal(t, "src: no such device", err.Error())
	assert.Equal(t, KindAbsent, GetKind(err))

	err = WithElement(io.EOF, "src")
	assert.Equal(t, "src: EOF", err.Error())
	assert.True(t, Is(err, io.EOF))
	assert.Nil(t, WithElement(nil, "src"))
}
