// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vnet

import (
	"fmt"

	"github.com/platinasystems/vgraph/internal/errors"
	"github.com/platinasystems/vgraph/vnet/ip4"
)

// Class of a packet relative to the receiving host.
type PacketType uint8

const (
	PacketHost PacketType = iota
	PacketBroadcast
	PacketMulticast
	PacketOtherHost
	PacketOutgoing
)

var packetTypeStrings = [...]string{
	PacketHost:      "host",
	PacketBroadcast: "broadcast",
	PacketMulticast: "multicast",
	PacketOtherHost: "other-host",
	PacketOutgoing:  "outgoing",
}

func (t PacketType) String() string {
	if int(t) < len(packetTypeStrings) {
		return packetTypeStrings[t]
	}
	return fmt.Sprintf("type %d", t)
}

// Bytes reserved in front of data for header pushes.
const DefaultHeadroom = 128

var ErrPacketKilled = errors.New(errors.KindUnknown, "packet used after kill")

// Packet is a byte buffer with movable front and tail plus out of band
// annotations.  A packet has exactly one owner; pushing it on a port or
// returning it from a pull hands it over.  The owner either passes it on or
// kills it.
type Packet struct {
	buf      []byte
	off, end int
	release  func()
	dead     bool

	// Destination address annotation.
	DstIP ip4.Address
	// Arrival device.
	Device string
	Type   PacketType
}

// NewPacket copies data into a fresh buffer with the given headroom.
func NewPacket(headroom int, data []byte) *Packet {
	if headroom < 0 {
		headroom = DefaultHeadroom
	}
	b := make([]byte, headroom+len(data))
	copy(b[headroom:], data)
	return &Packet{buf: b, off: headroom, end: len(b)}
}

// MakePacket adopts buf without copying.  Release, if non-nil, is called
// once when the buffer is no longer referenced by the packet.
func MakePacket(buf []byte, release func()) *Packet {
	return &Packet{buf: buf, end: len(buf), release: release}
}

func (p *Packet) check() {
	if p.dead {
		panic(ErrPacketKilled)
	}
}

func (p *Packet) Data() []byte {
	p.check()
	return p.buf[p.off:p.end]
}

func (p *Packet) Len() int {
	p.check()
	return p.end - p.off
}

func (p *Packet) Headroom() int {
	p.check()
	return p.off
}

func (p *Packet) Dead() bool { return p.dead }

func (p *Packet) freeBuffer() {
	if p.release != nil {
		p.release()
		p.release = nil
	}
	p.buf = nil
}

func (p *Packet) realloc(headroom, tailroom int) {
	n := p.end - p.off
	b := make([]byte, headroom+n+tailroom)
	copy(b[headroom:], p.buf[p.off:p.end])
	p.freeBuffer()
	p.buf = b
	p.off = headroom
	p.end = headroom + n
}

// Push grows the packet at the front by n bytes and returns them.  The buffer
// is reallocated when headroom is short, so slices taken before Push are
// stale afterwards.
func (p *Packet) Push(n int) []byte {
	p.check()
	if n > p.off {
		p.realloc(DefaultHeadroom+n, 0)
	}
	p.off -= n
	return p.buf[p.off : p.off+n]
}

// Pull strips n bytes from the front and returns them.
func (p *Packet) Pull(n int) []byte {
	p.check()
	if n > p.end-p.off {
		panic(fmt.Errorf("pull %d bytes from %d byte packet", n, p.end-p.off))
	}
	b := p.buf[p.off : p.off+n]
	p.off += n
	return b
}

// Put grows the packet at the tail by n bytes and returns them.
func (p *Packet) Put(n int) []byte {
	p.check()
	if p.end+n > len(p.buf) {
		p.realloc(p.off, n)
	}
	p.end += n
	return p.buf[p.end-n : p.end]
}

// Take strips n bytes from the tail.
func (p *Packet) Take(n int) {
	p.check()
	if n > p.end-p.off {
		panic(fmt.Errorf("take %d bytes from %d byte packet", n, p.end-p.off))
	}
	p.end -= n
}

// Kill releases the buffer.  The packet may not be used afterwards.
func (p *Packet) Kill() {
	p.check()
	p.dead = true
	p.freeBuffer()
}

// Clone returns an independent copy with the same annotations.
func (p *Packet) Clone() *Packet {
	p.check()
	c := NewPacket(p.off, p.buf[p.off:p.end])
	c.DstIP = p.DstIP
	c.Device = p.Device
	c.Type = p.Type
	return c
}

func (p *Packet) String() string {
	if p.dead {
		return "dead packet"
	}
	return fmt.Sprintf("%d bytes, %s, dst %s, device %q", p.end-p.off, p.Type, &p.DstIP, p.Device)
}
