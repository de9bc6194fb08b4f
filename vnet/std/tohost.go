// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package std

import (
	"fmt"

	"github.com/platinasystems/vgraph/internal/errors"
	"github.com/platinasystems/vgraph/vnet"
)

const DefaultToHostCapacity = 1000

const (
	tohost_error_no_device = iota
	tohost_error_full
)

// ToHost hands packets to host consumers reading C.  Packets are tagged with
// the configured device; a packet without any device is dropped.
//
//	device    device annotation to set ("")
//	capacity  packets buffered for the host (1000)
type ToHost struct {
	vnet.Node
	device   string
	c        chan *vnet.Packet
	counters vnet.Counters
}

func NewToHost() *ToHost {
	x := &ToHost{counters: vnet.NewCounters("delivered")}
	x.Ports.In = []vnet.PortMode{vnet.Push}
	x.Errors = []string{
		tohost_error_no_device: "no device",
		tohost_error_full:      "host queue full",
	}
	return x
}

func init() {
	vnet.RegisterClass("ToHost", func() vnet.Noder { return NewToHost() })
}

func (x *ToHost) Configure(o *vnet.Options) (err error) {
	x.device = o.String("device", "")
	c := o.Uint("capacity", DefaultToHostCapacity)
	if c == 0 {
		return errors.New(errors.KindConfig, "capacity: must be positive")
	}
	x.c = make(chan *vnet.Packet, c)
	return
}

func (x *ToHost) Init(g *vnet.Graph) (err error) {
	if x.c == nil {
		x.c = make(chan *vnet.Packet, DefaultToHostCapacity)
	}
	return
}

// Exit kills packets the host never collected.
func (x *ToHost) Exit(g *vnet.Graph) {
	for {
		select {
		case p := <-x.c:
			p.Kill()
		default:
			return
		}
	}
}

// C delivers packets to the host.  Receivers own what they receive.
func (x *ToHost) C() <-chan *vnet.Packet { return x.c }

func (x *ToHost) Push(port int, p *vnet.Packet) {
	if x.device != "" {
		p.Device = x.device
	}
	if p.Device == "" {
		x.Drop(p, tohost_error_no_device)
		return
	}
	select {
	case x.c <- p:
		x.counters.Inc(0)
	default:
		x.Drop(p, tohost_error_full)
	}
}

func (x *ToHost) Counters() *vnet.Counters { return &x.counters }

func (x *ToHost) ReadHandlers() map[string]func() string {
	return map[string]func() string{
		"device": func() string { return x.device + "\n" },
		"length": func() string { return fmt.Sprintln(len(x.c)) },
	}
}
