// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package grid implements hop-bounded forwarding of grid encapsulated
// packets between the network and a local upper layer.
package grid

import (
	"encoding/binary"
	"fmt"

	"github.com/platinasystems/vgraph/vnet/ethernet"
	"github.com/platinasystems/vgraph/vnet/ip4"
)

type Type uint8

const (
	Hello Type = iota + 1
	NbrEncap
)

var typeStrings = [...]string{
	Hello:    "hello",
	NbrEncap: "nbr-encap",
}

func (t Type) String() string {
	if int(t) < len(typeStrings) && typeStrings[t] != "" {
		return typeStrings[t]
	}
	return fmt.Sprintf("unknown %d", uint8(t))
}

const (
	HeaderBytes      = 8
	EncapHeaderBytes = 8
	// Ethernet, grid and encapsulation headers.
	EncapOverhead = ethernet.HeaderBytes + HeaderBytes + EncapHeaderBytes
)

// Header follows the ethernet header of every grid packet.
type Header struct {
	// Length of the grid header; the encapsulation header follows it.
	HeaderLen uint8
	Type      Type
	// Packet length recorded at encapsulation.
	TotalLen uint16
	// Last forwarder.
	IP ip4.Address
}

func (h *Header) Decode(b []byte) bool {
	if len(b) < HeaderBytes {
		return false
	}
	h.HeaderLen = b[0]
	h.Type = Type(b[1])
	h.TotalLen = binary.BigEndian.Uint16(b[2:])
	h.IP = ip4.Get(b[4:])
	return true
}

func (h *Header) Encode(b []byte) {
	b[0] = h.HeaderLen
	b[1] = uint8(h.Type)
	binary.BigEndian.PutUint16(b[2:], h.TotalLen)
	h.IP.Put(b[4:])
}

func (h *Header) String() string {
	return fmt.Sprintf("%s len %d total %d ip %s", h.Type, h.HeaderLen, h.TotalLen, h.IP)
}

// EncapHeader carries the final destination and the hops travelled so far.
type EncapHeader struct {
	Dst  ip4.Address
	Hops uint8
}

func (h *EncapHeader) Decode(b []byte) bool {
	if len(b) < EncapHeaderBytes {
		return false
	}
	h.Dst = ip4.Get(b)
	h.Hops = b[4]
	return true
}

func (h *EncapHeader) Encode(b []byte) {
	h.Dst.Put(b)
	b[4] = h.Hops
	b[5], b[6], b[7] = 0, 0, 0
}

func (h *EncapHeader) String() string {
	return fmt.Sprintf("dst %s hops %d", h.Dst, h.Hops)
}

// Offset of the hop counter within an encapsulated frame whose grid header
// is hdrLen bytes.
func hopsOffset(hdrLen int) int { return ethernet.HeaderBytes + hdrLen + 4 }
