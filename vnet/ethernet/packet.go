// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ethernet

import (
	"encoding/binary"
	"math/rand"
)

const (
	AddressBytes = 6
	HeaderBytes  = 14
)

type Address [AddressBytes]byte

var BroadcastAddr = Address{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

const (
	isBroadcast           = 1 << 0
	isLocallyAdministered = 1 << 1
)

func (a *Address) IsBroadcast() bool {
	return a[0]&isBroadcast != 0
}
func (a *Address) IsLocallyAdministered() bool {
	return a[0]&isLocallyAdministered != 0
}
func (a *Address) IsUnicast() bool {
	return !a.IsBroadcast()
}
func (a *Address) IsZero() bool { return *a == Address{} }

func RandomAddress() (a Address) {
	for i := range a {
		a[i] = uint8(rand.Int())
	}
	// Make address unicast and locally administered.
	a[0] &^= isBroadcast
	a[0] |= isLocallyAdministered
	return
}

// Header for ethernet packets as they appear on the network.
type Header struct {
	Dst  Address
	Src  Address
	Type Type
}

func (h *Header) IsBroadcast() bool { return h.Dst.IsBroadcast() }
func (h *Header) IsUnicast() bool   { return !h.Dst.IsBroadcast() }

// Decode reads a header from the first HeaderBytes of b.
func (h *Header) Decode(b []byte) bool {
	if len(b) < HeaderBytes {
		return false
	}
	copy(h.Dst[:], b[0:6])
	copy(h.Src[:], b[6:12])
	h.Type = Type(binary.BigEndian.Uint16(b[12:14]))
	return true
}

// Encode writes h into the first HeaderBytes of b.
func (h *Header) Encode(b []byte) {
	_ = b[HeaderBytes-1]
	copy(b[0:6], h.Dst[:])
	copy(b[6:12], h.Src[:])
	binary.BigEndian.PutUint16(b[12:14], uint16(h.Type))
}

// Field accessors for headers in place.
func SetDst(b []byte, a Address) { copy(b[0:6], a[:]) }
func SetSrc(b []byte, a Address) { copy(b[6:12], a[:]) }
func GetType(b []byte) Type      { return Type(binary.BigEndian.Uint16(b[12:14])) }
