// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vnet

import (
	"fmt"

	"github.com/platinasystems/log"

	"github.com/platinasystems/vgraph/elib/loop"
	"github.com/platinasystems/vgraph/internal/errors"
)

// Node is embedded in every element.  Ports and Errors are declared by the
// element's constructor and fixed once the element is added to a graph.
type Node struct {
	Ports
	// Drop counter names.
	Errors []string

	name   string
	class  string
	index  int
	g      *Graph
	noder  Noder
	in     []InPort
	out    []OutPort
	drops  Counters
	failed bool
	inited bool
}

func (n *Node) GetNode() *Node { return n }
func (n *Node) Name() string   { return n.name }
func (n *Node) Class() string  { return n.class }
func (n *Node) Index() int     { return n.index }
func (n *Node) Graph() *Graph  { return n.g }
func (n *Node) NIn() int       { return len(n.in) }
func (n *Node) NOut() int      { return len(n.out) }
func (n *Node) In(i int) *InPort {
	return &n.in[i]
}
func (n *Node) Out(i int) *OutPort {
	return &n.out[i]
}

func (n *Node) makePorts() {
	n.in = make([]InPort, len(n.Ports.In))
	for i := range n.in {
		n.in[i] = InPort{n: n, i: i, mode: n.Ports.In[i]}
	}
	n.out = make([]OutPort, len(n.Ports.Out))
	for i := range n.out {
		n.out[i] = OutPort{n: n, i: i, mode: n.Ports.Out[i]}
	}
}

// SetPorts redeclares ports for elements whose arity depends on options.
// Only valid while no connection touches the element.
func (n *Node) SetPorts(p Ports) (err error) {
	if n.g != nil {
		if n.g.state != graph_building {
			return errors.Errorf(errors.KindConfig, "%s: set ports: graph is %s", n.name, n.g.state)
		}
		for i := range n.g.conns {
			c := &n.g.conns[i]
			if c.from.n == n || c.to.n == n {
				return errors.Errorf(errors.KindConfig, "%s: set ports: already connected", n.name)
			}
		}
	}
	n.Ports = p
	if n.g != nil {
		n.makePorts()
	}
	return
}

// Failed reports whether Configure or Init failed for this element.
func (n *Node) Failed() bool { return n.failed }

// Cast reports whether the element has the named capability.  Elements with
// capabilities beyond their class override it.
func (n *Node) Cast(name string) bool { return name == n.class }

func (n *Node) String() string { return n.name + " :: " + n.class }

// Drop counters follow Errors even for elements used outside a graph.
func (n *Node) dropCounters() *Counters {
	if n.drops.Len() != len(n.Errors) {
		n.drops = NewCounters(n.Errors...)
	}
	return &n.drops
}

// CountDrop counts a drop of reason i without touching any packet.
func (n *Node) CountDrop(i int) { n.dropCounters().Inc(i) }

// Drop kills p and counts it against reason i.
func (n *Node) Drop(p *Packet, i int) {
	p.Kill()
	n.dropCounters().Inc(i)
}

func (n *Node) DropCount(i int) uint64 { return n.dropCounters().Value(i) }
func (n *Node) Drops() *Counters       { return n.dropCounters() }

func (n *Node) Logf(format string, args ...interface{}) {
	log.Print("info", n.name, ": ", fmt.Sprintf(format, args...))
}

func (n *Node) Warnf(format string, args ...interface{}) {
	log.Print("warn", n.name, ": ", fmt.Sprintf(format, args...))
}

func (n *Node) Errorf(format string, args ...interface{}) {
	log.Print("err", n.name, ": ", fmt.Sprintf(format, args...))
}

// Noder is implemented by every element through its embedded Node.
type Noder interface {
	GetNode() *Node
	Cast(name string) bool
}

// Pusher receives packets on push inputs.
type Pusher interface {
	Push(port int, p *Packet)
}

// Puller hands out packets from pull outputs; nil when none is available.
type Puller interface {
	Pull(port int) *Packet
}

type Configurer interface {
	Configure(o *Options) error
}

type Initer interface {
	Init(g *Graph) error
}

// Exiter releases what Init acquired.  Exit may be called for an element
// whose Init never ran or failed and must then do nothing.
type Exiter interface {
	Exit(g *Graph)
}

// TaskOwner elements are driven by the scheduler.
type TaskOwner interface {
	Tasks() []*loop.Task
}

// Notifier elements wake a downstream puller when packets become available
// on the given pull output.
type Notifier interface {
	Listen(port int, t *loop.Task)
}

// Backlogger elements report how many packets they hold for a pull output.
type Backlogger interface {
	Backlog(port int) int
}

// Handlers elements export read handlers beyond the standard ones.
type Handlers interface {
	ReadHandlers() map[string]func() string
}

// Counterer elements export monotone counters as metrics.
type Counterer interface {
	Counters() *Counters
}
