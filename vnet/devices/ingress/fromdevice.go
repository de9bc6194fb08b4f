// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ingress

import (
	"fmt"
	"time"

	"github.com/jpillora/backoff"

	"github.com/platinasystems/vgraph/elib/loop"
	"github.com/platinasystems/vgraph/internal/errors"
	"github.com/platinasystems/vgraph/vnet"
	"github.com/platinasystems/vgraph/vnet/devices"
)

const (
	DefaultBurst    = 8
	DefaultCapacity = 1000
)

const (
	counter_packets = iota
	counter_queue_drops
)

// FromDevice pushes frames received by a device on output 0.
//
// Options:
//
//	device                    device name (required)
//	burst                     packets per run (8)
//	capacity                  queue capacity (1000)
//	allow-nonexistent-device  wait for a missing device instead of failing (false)
//	promisc                   put the device in promiscuous mode (false)
//	tickets                   maximum tickets for adaptive scheduling (32768)
//	adaptive                  inflate tickets while backlogged (true)
type FromDevice struct {
	vnet.Node

	// Collaborators; the process defaults when nil.
	Bridge   *Bridge
	Registry *devices.Registry

	devname          string
	burst            uint
	capacity         uint
	allowNonexistent bool
	promisc          bool
	adaptive         bool
	maxTickets       uint

	dev      devices.Device
	q        *Queue
	task     *loop.Task
	retry    backoff.Backoff
	counters vnet.Counters
	// Queue drops already added to counters.
	lastDrops uint64
}

func NewFromDevice() *FromDevice {
	x := &FromDevice{
		retry: backoff.Backoff{
			Min:    100 * time.Millisecond,
			Max:    10 * time.Second,
			Factor: 2,
		},
		counters: vnet.NewCounters("packets", "queue-drops"),
	}
	x.Ports.Out = []vnet.PortMode{vnet.Push}
	return x
}

func init() {
	vnet.RegisterClass("FromDevice", func() vnet.Noder { return NewFromDevice() })
}

func (x *FromDevice) Cast(name string) bool {
	return name == "FromDevice" || name == "Storage" || x.Node.Cast(name)
}

func (x *FromDevice) DeviceName() string { return x.devname }

func (x *FromDevice) Configure(o *vnet.Options) (err error) {
	o.Require("device")
	x.devname = o.String("device", "")
	x.burst = o.Uint("burst", DefaultBurst)
	x.capacity = o.Uint("capacity", DefaultCapacity)
	x.allowNonexistent = o.Bool("allow-nonexistent-device", o.Bool("allow-nonexistent", false))
	x.promisc = o.Bool("promisc", false)
	x.maxTickets = o.Uint("tickets", loop.MaxTickets)
	x.adaptive = o.Bool("adaptive", true)
	if x.burst == 0 {
		err = errors.New(errors.KindConfig, "burst: must be positive")
	}
	return
}

func (x *FromDevice) bridge() *Bridge {
	if x.Bridge == nil {
		return DefaultBridge
	}
	return x.Bridge
}

func (x *FromDevice) registry() *devices.Registry {
	if x.Registry == nil {
		return devices.Default
	}
	return x.Registry
}

func (x *FromDevice) Init(g *vnet.Graph) (err error) {
	for _, y := range g.FindAllByCapability("FromDevice") {
		if y == vnet.Noder(x) {
			continue
		}
		if fd, ok := y.(*FromDevice); ok && fd.devname == x.devname {
			return errors.Errorf(errors.KindConfig, "duplicate FromDevice for %q", x.devname)
		}
	}

	dev, ok := x.registry().Lookup(x.devname)
	if !ok && !x.allowNonexistent {
		return errors.Errorf(errors.KindConfig, "%s: no such device", x.devname)
	}

	x.task = g.Loop().NewTask(x.Name(), x)
	// Start out at the default tickets and inflate up to the maximum.
	x.task.SetMaxTickets(x.maxTickets)
	x.task.Pending = x.pending

	if !ok {
		x.Warnf("%s: no such device, waiting for it to appear", x.devname)
		x.task.ScheduleAfter(x.retry.Duration())
		return
	}
	if err = x.attach(dev); err != nil {
		g.Loop().RemoveTask(x.task)
		x.task = nil
	}
	return
}

func (x *FromDevice) attach(dev devices.Device) (err error) {
	q, err := x.bridge().Register(x.task, dev, int(x.capacity))
	if err != nil {
		return
	}
	x.dev, x.q = dev, q
	if x.promisc {
		if e := dev.SetPromisc(true); e != nil {
			x.Warnf("%s: promiscuous mode: %v", x.devname, e)
		}
	}
	x.retry.Reset()
	x.task.Schedule()
	return
}

func (x *FromDevice) pending() uint {
	if x.q == nil {
		return 0
	}
	return uint(x.q.Len())
}

func (x *FromDevice) push(p *vnet.Packet) {
	p.Device = x.devname
	x.counters.Inc(counter_packets)
	x.Out(0).Push(p)
}

func (x *FromDevice) foldDrops() {
	if d := x.q.Drops(); d > x.lastDrops {
		x.counters.Add(counter_queue_drops, d-x.lastDrops)
		x.lastDrops = d
	}
}

func (x *FromDevice) RunTask(t *loop.Task) {
	if x.q == nil {
		// Dormant: look for the device again.
		dev, ok := x.registry().Lookup(x.devname)
		if !ok {
			t.ScheduleAfter(x.retry.Duration())
			return
		}
		if err := x.attach(dev); err != nil {
			x.Errorf("%s: %v", x.devname, err)
			t.ScheduleAfter(x.retry.Duration())
			return
		}
		x.Logf("%s: device appeared", x.devname)
		return
	}

	n := x.q.Drain(int(x.burst), x.push)
	x.foldDrops()
	if x.adaptive {
		t.AdjustTickets(uint(n), x.burst)
	}
	// An empty queue wakes the task on the next delivery.
	if uint(n) == x.burst || x.q.Len() > 0 {
		t.Reschedule()
	}
}

func (x *FromDevice) Exit(g *vnet.Graph) {
	if x.q != nil {
		x.foldDrops()
		x.bridge().Unregister(x.task, x.dev)
		if x.promisc {
			x.dev.SetPromisc(false)
		}
		x.q, x.dev = nil, nil
	}
	if x.task != nil {
		if err := g.Loop().RemoveTask(x.task); err != nil {
			x.Errorf("%v", err)
		}
		x.task = nil
	}
}

func (x *FromDevice) Tasks() []*loop.Task {
	if x.task == nil {
		return nil
	}
	return []*loop.Task{x.task}
}

func (x *FromDevice) Counters() *vnet.Counters { return &x.counters }

func (x *FromDevice) ReadHandlers() map[string]func() string {
	return map[string]func() string{
		"stats": func() string {
			return fmt.Sprintf("%d packets received\n%d input queue drops\n",
				x.counters.Total(counter_packets), x.counters.Total(counter_queue_drops))
		},
		"device": func() string { return x.devname + "\n" },
	}
}
