// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ip4

import (
	"encoding/binary"
)

const (
	AddressBytes = 4
	AddressBits  = 8 * AddressBytes
)

type Address [AddressBytes]uint8

func (a Address) IsZero() bool { return a == Address{} }

func (a Address) AsUint32() uint32 { return binary.BigEndian.Uint32(a[:]) }

func FromUint32(x uint32) (a Address) {
	binary.BigEndian.PutUint32(a[:], x)
	return
}

// Read and write addresses in place in packet headers.
func Get(b []byte) (a Address) {
	copy(a[:], b[:AddressBytes])
	return
}
func (a Address) Put(b []byte) { copy(b[:AddressBytes], a[:]) }
