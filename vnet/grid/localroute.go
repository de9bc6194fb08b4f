// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grid

import (
	"fmt"

	"github.com/platinasystems/vgraph/elib/loop"
	"github.com/platinasystems/vgraph/internal/errors"
	"github.com/platinasystems/vgraph/vnet"
	"github.com/platinasystems/vgraph/vnet/ethernet"
	"github.com/platinasystems/vgraph/vnet/ip4"
)

const (
	DefaultMaxForwardingHops = 5
	MaxForwardingHops        = 254
)

// Ports.
const (
	Network = iota
	Upper
)

// Drop reasons.
const (
	error_truncated = iota
	error_unknown_type
	error_no_neighbor
	error_too_many_hops
	error_no_next_hop
	error_too_long
)

// Counters.
const (
	counter_delivered = iota
	counter_forwarded
	counter_looped
	counter_hellos
)

// LocalRoute delivers grid packets addressed to this node to the upper
// output and forwards the rest toward their destination through the
// next hop given by a Neighbor element.
//
// Input and output 0 face the network; input and output 1 face the upper
// layer, which pushes packets annotated with their destination.
//
// Options:
//
//	eth                  own ethernet address (required)
//	ip                   own ip4 address (required)
//	max-forwarding-hops  packets that travelled more hops are dropped (5, at most 254)
type LocalRoute struct {
	vnet.Node
	eth     ethernet.Address
	ip      ip4.Address
	maxHops uint

	nbr      NextHopper
	task     *loop.Task
	notify   bool
	counters vnet.Counters
}

func NewLocalRoute() *LocalRoute {
	x := &LocalRoute{
		counters: vnet.NewCounters("delivered", "forwarded", "looped", "hellos"),
	}
	x.Ports = vnet.Ports{
		In:  []vnet.PortMode{vnet.Agnostic, vnet.Push},
		Out: []vnet.PortMode{vnet.Push, vnet.Push},
	}
	x.Errors = []string{
		error_truncated:     "truncated",
		error_unknown_type:  "unknown grid type",
		error_no_neighbor:   "no neighbor table",
		error_too_many_hops: "too many hops",
		error_no_next_hop:   "no next hop",
		error_too_long:      "too long",
	}
	return x
}

func init() {
	vnet.RegisterClass("LocalRoute", func() vnet.Noder { return NewLocalRoute() })
}

func (x *LocalRoute) Cast(name string) bool {
	return name == "LocalRoute" || x.Node.Cast(name)
}

func (x *LocalRoute) Configure(o *vnet.Options) (err error) {
	o.Require("eth", "ip")
	x.eth = o.Ethernet("eth", ethernet.Address{})
	x.ip = o.IP4("ip", ip4.Address{})
	x.maxHops = o.Uint("max-forwarding-hops", DefaultMaxForwardingHops)
	// The hop count is one byte and is incremented after the check.
	if x.maxHops > MaxForwardingHops {
		err = errors.Errorf(errors.KindConfig, "max-forwarding-hops: %d exceeds %d",
			x.maxHops, MaxForwardingHops)
	}
	return
}

func (x *LocalRoute) Init(g *vnet.Graph) (err error) {
	for _, y := range g.FindAllByCapability("Neighbor") {
		if nh, ok := y.(NextHopper); ok {
			x.nbr = nh
			break
		}
	}
	if x.nbr == nil {
		x.Warnf("could not find a Neighbor element, will be unable to forward or originate grid packets")
	}
	if x.In(Network).Mode() == vnet.Pull {
		x.task = g.Loop().NewTask(x.Name(), x)
		x.notify = x.In(Network).Listen(x.task)
		x.task.Schedule()
	}
	return
}

func (x *LocalRoute) Exit(g *vnet.Graph) {
	if x.task != nil {
		x.In(Network).Flush()
		if err := g.Loop().RemoveTask(x.task); err != nil {
			x.Errorf("%v", err)
		}
		x.task = nil
	}
}

func (x *LocalRoute) Tasks() []*loop.Task {
	if x.task == nil {
		return nil
	}
	return []*loop.Task{x.task}
}

func (x *LocalRoute) RunTask(t *loop.Task) {
	if p := x.In(Network).Pull(); p != nil {
		x.Push(Network, p)
		t.Reschedule()
		return
	}
	// Notifying upstream elements wake us when packets arrive.
	if !x.notify {
		t.Reschedule()
	}
}

func (x *LocalRoute) Push(port int, p *vnet.Packet) {
	if port == Network {
		x.fromNetwork(p)
	} else {
		x.fromUpper(p)
	}
}

func (x *LocalRoute) fromNetwork(p *vnet.Packet) {
	var h Header
	b := p.Data()
	if len(b) < ethernet.HeaderBytes || !h.Decode(b[ethernet.HeaderBytes:]) {
		x.Drop(p, error_truncated)
		return
	}
	switch h.Type {
	case Hello:
		// Hellos are never forwarded.
		x.counters.Inc(counter_hellos)
		p.Kill()
	case NbrEncap:
		var e EncapHeader
		hdrLen := int(h.HeaderLen)
		if hdrLen < HeaderBytes || len(b) < ethernet.HeaderBytes+hdrLen+EncapHeaderBytes {
			x.Drop(p, error_truncated)
			return
		}
		e.Decode(b[ethernet.HeaderBytes+hdrLen:])
		if e.Dst == x.ip {
			p.Pull(ethernet.HeaderBytes + hdrLen + EncapHeaderBytes)
			x.counters.Inc(counter_delivered)
			x.Out(Upper).Push(p)
			return
		}
		x.forward(p, hdrLen, &e)
	default:
		x.Logf("received unknown grid packet type: %d", uint8(h.Type))
		x.Drop(p, error_unknown_type)
	}
}

func (x *LocalRoute) fromUpper(p *vnet.Packet) {
	dst := p.DstIP
	if dst == x.ip {
		x.Logf("got packet from us for our address; looping it back")
		x.counters.Inc(counter_looped)
		x.Out(Upper).Push(p)
		return
	}
	if p.Len()+EncapOverhead > 0xffff {
		x.Drop(p, error_too_long)
		return
	}
	b := p.Push(EncapOverhead)
	for i := range b {
		b[i] = 0
	}
	eh := ethernet.Header{Type: ethernet.GRID}
	eh.Encode(b)
	// The whole packet is encapsulated as is; nested lengths are never
	// consulted.
	h := Header{
		HeaderLen: HeaderBytes,
		Type:      NbrEncap,
		TotalLen:  uint16(p.Len()),
	}
	h.Encode(b[ethernet.HeaderBytes:])
	e := EncapHeader{Dst: dst}
	e.Encode(b[ethernet.HeaderBytes+HeaderBytes:])
	x.forward(p, HeaderBytes, &e)
}

// Forward p, whose grid header is hdrLen bytes, to e.Dst.
func (x *LocalRoute) forward(p *vnet.Packet, hdrLen int, e *EncapHeader) {
	if x.nbr == nil {
		x.Drop(p, error_no_neighbor)
		return
	}
	if uint(e.Hops) > x.maxHops {
		x.Logf("dropping packet for %s that has travelled %d hops", e.Dst, e.Hops)
		x.Drop(p, error_too_many_hops)
		return
	}
	nh, ok := x.nbr.NextHop(e.Dst)
	if !ok {
		x.Logf("unable to forward packet for %s", e.Dst)
		x.Drop(p, error_no_next_hop)
		return
	}
	b := p.Data()
	ethernet.SetSrc(b, x.eth)
	ethernet.SetDst(b, nh)
	x.ip.Put(b[ethernet.HeaderBytes+4:])
	b[hopsOffset(hdrLen)]++
	x.counters.Inc(counter_forwarded)
	x.Out(Network).Push(p)
}

func (x *LocalRoute) Counters() *vnet.Counters { return &x.counters }

func (x *LocalRoute) ReadHandlers() map[string]func() string {
	return map[string]func() string{
		"stats": func() string {
			return fmt.Sprintf("%d delivered\n%d forwarded\n%d looped\n%d hellos\n",
				x.counters.Value(counter_delivered), x.counters.Value(counter_forwarded),
				x.counters.Value(counter_looped), x.counters.Value(counter_hellos))
		},
		"address": func() string { return fmt.Sprintf("%s %s\n", x.eth, x.ip) },
	}
}
