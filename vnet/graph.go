// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vnet

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	uuid "github.com/satori/go.uuid"

	"github.com/platinasystems/vgraph/elib/loop"
	"github.com/platinasystems/vgraph/internal/errors"
)

type graph_state uint8

const (
	graph_building graph_state = iota
	graph_running
	graph_failed
	graph_exited
)

var graph_state_strings = [...]string{
	graph_building: "building",
	graph_running:  "running",
	graph_failed:   "failed",
	graph_exited:   "exited",
}

func (s graph_state) String() string { return graph_state_strings[s] }

type connection struct {
	from *OutPort
	to   *InPort
}

func (c *connection) String() string { return c.from.String() + " -> " + c.to.String() }

// Graph is a fixed set of elements and their port bindings.  Elements are
// added and connected, then Init runs once; after that the topology never
// changes.
type Graph struct {
	id     uuid.UUID
	nodes  []Noder
	byName map[string]Noder
	conns  []connection
	l      *loop.Loop
	state  graph_state
}

func NewGraph() *Graph {
	return &Graph{
		id:     uuid.NewV4(),
		byName: make(map[string]Noder),
	}
}

func (g *Graph) ID() string        { return g.id.String() }
func (g *Graph) Loop() *loop.Loop  { return g.l }
func (g *Graph) Elements() []Noder { return g.nodes }

// Element returns the named element or nil.
func (g *Graph) Element(name string) Noder { return g.byName[name] }

// FindByCapability returns the first element in declared order that casts
// to name; nil when none does.
func (g *Graph) FindByCapability(name string) Noder {
	for _, x := range g.nodes {
		if x.Cast(name) {
			return x
		}
	}
	return nil
}

func (g *Graph) FindAllByCapability(name string) (xs []Noder) {
	for _, x := range g.nodes {
		if x.Cast(name) {
			xs = append(xs, x)
		}
	}
	return
}

func className(x Noder) string {
	t := reflect.TypeOf(x)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Add appends x to the graph under name.  The element's class defaults to
// its type name.
func (g *Graph) Add(x Noder, name string) (err error) {
	if g.state != graph_building {
		err = errors.Errorf(errors.KindConfig, "add %s: graph is %s", name, g.state)
		return
	}
	if name == "" {
		err = errors.New(errors.KindConfig, "add: empty element name")
		return
	}
	if _, ok := g.byName[name]; ok {
		err = errors.Errorf(errors.KindConfig, "add %s: duplicate element name", name)
		return
	}
	n := x.GetNode()
	n.name = name
	if n.class == "" {
		n.class = className(x)
	}
	n.index = len(g.nodes)
	n.g = g
	n.noder = x
	n.makePorts()
	n.dropCounters()
	g.nodes = append(g.nodes, x)
	g.byName[name] = x
	return
}

// Connect binds output port out of from to input port in of to.
func (g *Graph) Connect(from Noder, out int, to Noder, in int) (err error) {
	f, t := from.GetNode(), to.GetNode()
	defer func() {
		if err != nil {
			err = errors.Wrapf(err, errors.KindConfig, "connect %s[%d] -> [%d]%s", f.name, out, in, t.name)
		}
	}()
	switch {
	case g.state != graph_building:
		err = fmt.Errorf("graph is %s", g.state)
	case f.g != g || t.g != g:
		err = fmt.Errorf("element not in graph")
	case out < 0 || out >= len(f.out):
		err = fmt.Errorf("%s has %d outputs", f.name, len(f.out))
	case in < 0 || in >= len(t.in):
		err = fmt.Errorf("%s has %d inputs", t.name, len(t.in))
	}
	if err != nil {
		return
	}
	op, ip := &f.out[out], &t.in[in]
	if op.peer != nil {
		err = fmt.Errorf("output already connected to %s", op.peer)
		return
	}
	m, ok := resolveMode(op.mode, ip.mode)
	if !ok {
		err = fmt.Errorf("%s output to %s input", op.mode, ip.mode)
		return
	}
	if m == Pull && ip.npeers > 0 {
		err = fmt.Errorf("pull input already connected")
		return
	}
	op.mode, ip.mode = m, m
	op.peer = ip
	ip.npeers++
	if m == Pull {
		ip.peer = op
	}
	g.conns = append(g.conns, connection{from: op, to: ip})
	return
}

// ConnectNames is Connect by element name.
func (g *Graph) ConnectNames(from string, out int, to string, in int) error {
	f, t := g.byName[from], g.byName[to]
	if f == nil {
		return errors.Errorf(errors.KindConfig, "connect: %s: no such element", from)
	}
	if t == nil {
		return errors.Errorf(errors.KindConfig, "connect: %s: no such element", to)
	}
	return g.Connect(f, out, t, in)
}

// Settle agnostic connections and bind push and pull entry points.
func (g *Graph) bindPorts() (err error) {
	for i := range g.conns {
		c := &g.conns[i]
		m, ok := resolveMode(c.from.mode, c.to.mode)
		if !ok {
			err = multierror.Append(err, errors.Errorf(errors.KindConfig,
				"%s: %s output to %s input", c, c.from.mode, c.to.mode))
			continue
		}
		if m == Agnostic {
			m = Push
		}
		c.from.mode, c.to.mode = m, m
		if m == Pull {
			if c.to.npeers > 1 {
				err = multierror.Append(err, errors.Errorf(errors.KindConfig,
					"%s: pull input has %d outputs", c, c.to.npeers))
				continue
			}
			c.to.peer = c.from
			x, ok := c.from.n.noder.(Puller)
			if !ok {
				err = multierror.Append(err, errors.Errorf(errors.KindConfig,
					"%s: %s has no pull outputs", c, c.from.n.name))
				continue
			}
			c.to.puller = x
		} else {
			x, ok := c.to.n.noder.(Pusher)
			if !ok {
				err = multierror.Append(err, errors.Errorf(errors.KindConfig,
					"%s: %s has no push inputs", c, c.to.n.name))
				continue
			}
			c.from.pusher = x
		}
	}
	for _, x := range g.nodes {
		n := x.GetNode()
		for i := range n.in {
			if n.in[i].npeers == 0 {
				err = multierror.Append(err, errors.Errorf(errors.KindConfig,
					"%s: input %d not connected", n.name, i))
			}
		}
		for i := range n.out {
			if n.out[i].peer == nil {
				err = multierror.Append(err, errors.Errorf(errors.KindConfig,
					"%s: output %d not connected", n.name, i))
			}
		}
	}
	return
}

// An element with a pull input is driven when it runs a task or when a
// driven element pulls from it.
func (g *Graph) driven(n *Node, seen map[*Node]bool) bool {
	if t, ok := n.noder.(TaskOwner); ok && len(t.Tasks()) > 0 {
		return true
	}
	if seen[n] {
		return false
	}
	seen[n] = true
	for i := range n.out {
		o := &n.out[i]
		if o.mode == Pull && o.peer != nil && g.driven(o.peer.n, seen) {
			return true
		}
	}
	return false
}

func (g *Graph) checkDriven() (err error) {
	for _, x := range g.nodes {
		n := x.GetNode()
		for i := range n.in {
			if n.in[i].mode != Pull {
				continue
			}
			if !g.driven(n, make(map[*Node]bool)) {
				err = multierror.Append(err, errors.Errorf(errors.KindConfig,
					"%s: pull input %d is not driven by any task", n.name, i))
			}
			break
		}
	}
	return
}

// Init binds ports and initializes every element in declared order.  All
// failures are collected; when any occurs the elements already initialized
// are torn down in reverse and the aggregate is returned.  The graph may
// run only when Init returns nil.
func (g *Graph) Init(l *loop.Loop) (err error) {
	if g.state != graph_building {
		return errors.Errorf(errors.KindConfig, "init: graph is %s", g.state)
	}
	g.l = l
	if err = g.bindPorts(); err != nil {
		g.state = graph_failed
		return
	}
	var result error
	for _, x := range g.nodes {
		n := x.GetNode()
		if n.failed {
			result = multierror.Append(result, errors.Errorf(errors.KindConfig,
				"%s: configuration failed", n.name))
			continue
		}
		if i, ok := x.(Initer); ok {
			if e := i.Init(g); e != nil {
				n.failed = true
				result = multierror.Append(result, errors.WithElement(e, n.name))
				continue
			}
		}
		n.inited = true
	}
	if result == nil {
		result = g.checkDriven()
	}
	if result != nil {
		g.teardown()
		g.state = graph_failed
		if m, ok := result.(*multierror.Error); ok {
			err = m.ErrorOrNil()
		} else {
			err = result
		}
		return
	}
	g.state = graph_running
	return
}

func (g *Graph) teardown() {
	for i := len(g.nodes) - 1; i >= 0; i-- {
		x := g.nodes[i]
		n := x.GetNode()
		if !n.inited {
			continue
		}
		n.inited = false
		if e, ok := x.(Exiter); ok {
			e.Exit(g)
		}
	}
}

// Exit tears down elements in reverse declared order.  Calling it again
// does nothing.
func (g *Graph) Exit() {
	if g.state == graph_exited {
		return
	}
	g.teardown()
	g.state = graph_exited
}

func (g *Graph) Running() bool { return g.state == graph_running }

func (n *Node) portsString() string {
	var b strings.Builder
	for i := range n.in {
		p := &n.in[i]
		fmt.Fprintf(&b, "in %d %s", i, p.mode)
		for j := range n.g.conns {
			if c := &n.g.conns[j]; c.to == p {
				fmt.Fprintf(&b, " <- %s", c.from)
			}
		}
		b.WriteString("\n")
	}
	for i := range n.out {
		p := &n.out[i]
		fmt.Fprintf(&b, "out %d %s", i, p.mode)
		if p.peer != nil {
			fmt.Fprintf(&b, " -> %s", p.peer)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (n *Node) dropsString() string {
	var b strings.Builder
	for i := 0; i < n.drops.Len(); i++ {
		fmt.Fprintf(&b, "%d %s\n", n.drops.Value(i), n.drops.Name(i))
	}
	return b.String()
}

func (n *Node) handlers() map[string]func() string {
	m := map[string]func() string{
		"class": func() string { return n.class + "\n" },
		"name":  func() string { return n.name + "\n" },
		"ports": n.portsString,
		"drops": n.dropsString,
	}
	if x, ok := n.noder.(TaskOwner); ok {
		m["tasks"] = func() string {
			var b strings.Builder
			for _, t := range x.Tasks() {
				fmt.Fprintln(&b, t)
			}
			return b.String()
		}
	}
	if x, ok := n.noder.(Handlers); ok {
		for k, f := range x.ReadHandlers() {
			m[k] = f
		}
	}
	return m
}

// Read returns the text of an element's read handler.
func (g *Graph) Read(element, handler string) (s string, err error) {
	x := g.byName[element]
	if x == nil {
		err = errors.Errorf(errors.KindAbsent, "%s: no such element", element)
		return
	}
	f, ok := x.GetNode().handlers()[handler]
	if !ok {
		err = errors.Errorf(errors.KindAbsent, "%s: no read handler %q", element, handler)
		return
	}
	s = f()
	return
}

// ReadHandlers lists the handler names of an element.
func (g *Graph) ReadHandlers(element string) (names []string) {
	x := g.byName[element]
	if x == nil {
		return
	}
	for k := range x.GetNode().handlers() {
		names = append(names, k)
	}
	sort.Strings(names)
	return
}
