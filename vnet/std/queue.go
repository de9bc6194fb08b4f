// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package std provides the general purpose elements: queues, sinks, tees
// and the host delivery point.
package std

import (
	"fmt"

	"github.com/platinasystems/vgraph/elib/loop"
	"github.com/platinasystems/vgraph/internal/errors"
	"github.com/platinasystems/vgraph/vnet"
)

const DefaultQueueCapacity = 1000

// Queue stores pushed packets for a downstream puller and drops at the tail
// when full.  A listening task is woken whenever the queue becomes non-empty.
//
//	capacity  maximum queued packets (1000)
type Queue struct {
	vnet.Node
	ring      []*vnet.Packet
	head, n   int
	highwater int
	listener  *loop.Task
	counters  vnet.Counters
}

func NewQueue() *Queue {
	x := &Queue{counters: vnet.NewCounters("enqueued", "dequeued")}
	x.Ports = vnet.Ports{
		In:  []vnet.PortMode{vnet.Push},
		Out: []vnet.PortMode{vnet.Pull},
	}
	x.Errors = []string{"queue full"}
	return x
}

func init() {
	vnet.RegisterClass("Queue", func() vnet.Noder { return NewQueue() })
}

func (x *Queue) Configure(o *vnet.Options) (err error) {
	c := o.Uint("capacity", DefaultQueueCapacity)
	if c == 0 {
		return errors.New(errors.KindConfig, "capacity: must be positive")
	}
	x.ring = make([]*vnet.Packet, c)
	return
}

func (x *Queue) Init(g *vnet.Graph) (err error) {
	if x.ring == nil {
		x.ring = make([]*vnet.Packet, DefaultQueueCapacity)
	}
	return
}

// Exit kills whatever is still queued.
func (x *Queue) Exit(g *vnet.Graph) {
	for x.n > 0 {
		x.Pull(0).Kill()
	}
}

func (x *Queue) Len() int             { return x.n }
func (x *Queue) Capacity() int        { return len(x.ring) }
func (x *Queue) Backlog(port int) int { return x.n }

func (x *Queue) Push(port int, p *vnet.Packet) {
	if x.n == len(x.ring) {
		x.Drop(p, 0)
		return
	}
	x.ring[(x.head+x.n)%len(x.ring)] = p
	x.n++
	if x.n > x.highwater {
		x.highwater = x.n
	}
	x.counters.Inc(0)
	if x.n == 1 && x.listener != nil {
		x.listener.Wake()
	}
}

func (x *Queue) Pull(port int) (p *vnet.Packet) {
	if x.n == 0 {
		return
	}
	p = x.ring[x.head]
	x.ring[x.head] = nil
	x.head = (x.head + 1) % len(x.ring)
	x.n--
	x.counters.Inc(1)
	return
}

func (x *Queue) Listen(port int, t *loop.Task) { x.listener = t }

func (x *Queue) Counters() *vnet.Counters { return &x.counters }

func (x *Queue) ReadHandlers() map[string]func() string {
	return map[string]func() string{
		"length":    func() string { return fmt.Sprintln(x.n) },
		"capacity":  func() string { return fmt.Sprintln(len(x.ring)) },
		"highwater": func() string { return fmt.Sprintln(x.highwater) },
	}
}
