// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package std

import (
	"github.com/platinasystems/vgraph/elib/loop"
	"github.com/platinasystems/vgraph/internal/errors"
	"github.com/platinasystems/vgraph/vnet"
)

// Unqueue pulls packets from its input and pushes them on its output from a
// scheduled task.
//
//	burst  packets moved per run (1)
type Unqueue struct {
	vnet.Node
	burst  uint
	task   *loop.Task
	notify bool
}

func NewUnqueue() *Unqueue {
	x := &Unqueue{burst: 1}
	x.Ports = vnet.Ports{
		In:  []vnet.PortMode{vnet.Pull},
		Out: []vnet.PortMode{vnet.Push},
	}
	return x
}

func init() {
	vnet.RegisterClass("Unqueue", func() vnet.Noder { return NewUnqueue() })
}

func (x *Unqueue) Configure(o *vnet.Options) (err error) {
	if x.burst = o.Uint("burst", 1); x.burst == 0 {
		err = errors.New(errors.KindConfig, "burst: must be positive")
	}
	return
}

func (x *Unqueue) Init(g *vnet.Graph) (err error) {
	x.task = g.Loop().NewTask(x.Name(), x)
	x.notify = x.In(0).Listen(x.task)
	x.task.Schedule()
	return
}

func (x *Unqueue) Exit(g *vnet.Graph) {
	if x.task != nil {
		// Downstream elements are already gone.
		x.In(0).Flush()
		if err := g.Loop().RemoveTask(x.task); err != nil {
			x.Errorf("%v", err)
		}
		x.task = nil
	}
}

func (x *Unqueue) Tasks() []*loop.Task {
	if x.task == nil {
		return nil
	}
	return []*loop.Task{x.task}
}

func (x *Unqueue) RunTask(t *loop.Task) {
	var n uint
	for n < x.burst {
		p := x.In(0).Pull()
		if p == nil {
			break
		}
		x.Out(0).Push(p)
		n++
	}
	t.AdjustTickets(n, x.burst)
	// A notifying input wakes us once it has packets again.
	if n == x.burst || !x.notify {
		t.Reschedule()
	}
}
