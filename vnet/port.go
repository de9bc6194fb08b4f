// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vnet

import (
	"fmt"

	"github.com/platinasystems/vgraph/elib/loop"
)

type PortMode uint8

const (
	// Agnostic ports take the mode of their peer; push when both are
	// agnostic.
	Agnostic PortMode = iota
	Push
	Pull
)

var portModeStrings = [...]string{
	Agnostic: "agnostic",
	Push:     "push",
	Pull:     "pull",
}

func (m PortMode) String() string { return portModeStrings[m] }

// Ports declares the mode of each input and output.  Arity is the slice
// length.
type Ports struct {
	In, Out []PortMode
}

func resolveMode(a, b PortMode) (m PortMode, ok bool) {
	switch {
	case a == b:
		m, ok = a, true
	case a == Agnostic:
		m, ok = b, true
	case b == Agnostic:
		m, ok = a, true
	}
	return
}

type InPort struct {
	n    *Node
	i    int
	mode PortMode
	// Number of bound outputs.  Pull inputs take exactly one.
	npeers int
	peer   *OutPort
	puller Puller
}

func (p *InPort) Node() *Node    { return p.n }
func (p *InPort) Index() int     { return p.i }
func (p *InPort) Mode() PortMode { return p.mode }
func (p *InPort) Peer() *OutPort { return p.peer }
func (p *InPort) String() string { return fmt.Sprintf("[%d]%s", p.i, p.n.name) }

// Pull asks the upstream element for one packet.  The caller owns the
// result; nil when nothing is available.
func (p *InPort) Pull() *Packet { return p.puller.Pull(p.peer.i) }

// Backlog is the number of packets the upstream element holds for this
// input; zero when it does not report one.
func (p *InPort) Backlog() uint {
	if p.peer == nil {
		return 0
	}
	if x, ok := p.peer.n.noder.(Backlogger); ok {
		return uint(x.Backlog(p.peer.i))
	}
	return 0
}

// Flush kills the packets the upstream element still holds for this input.
func (p *InPort) Flush() (n int) {
	for p.Backlog() > 0 {
		pkt := p.Pull()
		if pkt == nil {
			break
		}
		pkt.Kill()
		n++
	}
	return
}

// Listen asks the upstream element to wake t when packets become available.
// Returns false when the upstream element never notifies.  When the
// upstream element reports a backlog, t may not be removed while it holds
// packets.
func (p *InPort) Listen(t *loop.Task) bool {
	if p.peer == nil {
		return false
	}
	if _, ok := p.peer.n.noder.(Backlogger); ok {
		t.Pending = p.Backlog
	}
	x, ok := p.peer.n.noder.(Notifier)
	if ok {
		x.Listen(p.peer.i, t)
	}
	return ok
}

type OutPort struct {
	n      *Node
	i      int
	mode   PortMode
	peer   *InPort
	pusher Pusher
}

func (p *OutPort) Node() *Node    { return p.n }
func (p *OutPort) Index() int     { return p.i }
func (p *OutPort) Mode() PortMode { return p.mode }
func (p *OutPort) Peer() *InPort  { return p.peer }
func (p *OutPort) String() string { return fmt.Sprintf("%s[%d]", p.n.name, p.i) }

// Push hands pkt to the downstream element.  The caller must not touch pkt
// afterwards.
func (p *OutPort) Push(pkt *Packet) { p.pusher.Push(p.peer.i, pkt) }
