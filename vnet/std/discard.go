// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package std

import (
	"fmt"

	"github.com/platinasystems/vgraph/elib/loop"
	"github.com/platinasystems/vgraph/vnet"
)

// Discard kills every packet it receives.  On a pull input it runs a task
// that drains upstream.
type Discard struct {
	vnet.Node
	task     *loop.Task
	notify   bool
	counters vnet.Counters
}

func NewDiscard() *Discard {
	x := &Discard{counters: vnet.NewCounters("count")}
	x.Ports.In = []vnet.PortMode{vnet.Agnostic}
	return x
}

func init() {
	vnet.RegisterClass("Discard", func() vnet.Noder { return NewDiscard() })
}

func (x *Discard) Init(g *vnet.Graph) (err error) {
	if x.In(0).Mode() == vnet.Pull {
		x.task = g.Loop().NewTask(x.Name(), x)
		x.notify = x.In(0).Listen(x.task)
		x.task.Schedule()
	}
	return
}

func (x *Discard) Exit(g *vnet.Graph) {
	if x.task != nil {
		x.In(0).Flush()
		if err := g.Loop().RemoveTask(x.task); err != nil {
			x.Errorf("%v", err)
		}
		x.task = nil
	}
}

func (x *Discard) Tasks() []*loop.Task {
	if x.task == nil {
		return nil
	}
	return []*loop.Task{x.task}
}

func (x *Discard) Push(port int, p *vnet.Packet) {
	x.counters.Inc(0)
	p.Kill()
}

func (x *Discard) RunTask(t *loop.Task) {
	if p := x.In(0).Pull(); p != nil {
		x.Push(0, p)
		t.Reschedule()
	} else if !x.notify {
		t.Reschedule()
	}
}

func (x *Discard) Count() uint64 { return x.counters.Value(0) }

func (x *Discard) Counters() *vnet.Counters { return &x.counters }

func (x *Discard) ReadHandlers() map[string]func() string {
	return map[string]func() string{
		"count": func() string { return fmt.Sprintln(x.Count()) },
	}
}
