// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pg provides a task driven packet generator.
package pg

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/platinasystems/vgraph/elib/loop"
	"github.com/platinasystems/vgraph/internal/errors"
	"github.com/platinasystems/vgraph/vnet"
	"github.com/platinasystems/vgraph/vnet/ip4"
)

const DefaultSize = 64

// Source pushes generated packets on output 0.
//
// Options:
//
//	data        hex packet header; padded with an incrementing payload
//	length      first packet size (data length, else 64)
//	max-length  sizes step by one up to this and wrap (length)
//	limit       packets to send; 0 for no limit (0)
//	burst       packets per run (1)
//	rate        packets per second; 0 for no limit (0)
//	dst         destination address annotation
//	device      arrival device annotation ("")
type Source struct {
	vnet.Node
	Stream
	burst  uint
	dst    ip4.Address
	device string
	task   *loop.Task
}

func NewSource() *Source {
	x := &Source{burst: 1}
	x.Ports.Out = []vnet.PortMode{vnet.Push}
	return x
}

func init() {
	vnet.RegisterClass("Source", func() vnet.Noder { return NewSource() })
}

func (x *Source) Configure(o *vnet.Options) (err error) {
	var header []byte
	if o.Has("data") {
		s := strings.Map(func(r rune) rune {
			switch r {
			case ' ', ':', '.', '\n', '\t':
				return -1
			}
			return r
		}, o.String("data", ""))
		if header, err = hex.DecodeString(s); err != nil {
			return errors.Wrap(err, errors.KindConfig, "data")
		}
	}
	def := uint(len(header))
	if def == 0 {
		def = DefaultSize
	}
	x.min_size = o.Uint("length", def)
	x.max_size = o.Uint("max-length", x.min_size)
	x.n_packets_limit = uint64(o.Uint("limit", 0))
	x.rate_packets_per_sec = float64(o.Uint("rate", 0))
	x.dst = o.IP4("dst", ip4.Address{})
	x.device = o.String("device", "")
	if x.burst = o.Uint("burst", 1); x.burst == 0 {
		return errors.New(errors.KindConfig, "burst: must be positive")
	}
	if x.max_size < x.min_size {
		return errors.Errorf(errors.KindConfig, "max-length %d less than length %d", x.max_size, x.min_size)
	}
	x.SetData(header)
	return
}

func (x *Source) Init(g *vnet.Graph) (err error) {
	if x.data == nil {
		x.min_size = DefaultSize
		x.SetData(nil)
	}
	x.task = g.Loop().NewTask(x.Name(), x)
	x.task.Schedule()
	return
}

func (x *Source) Exit(g *vnet.Graph) {
	if x.task != nil {
		g.Loop().RemoveTask(x.task)
		x.task = nil
	}
}

func (x *Source) Tasks() []*loop.Task {
	if x.task == nil {
		return nil
	}
	return []*loop.Task{x.task}
}

func (x *Source) RunTask(t *loop.Task) {
	if x.Done() {
		return
	}
	n, wait := x.budget(t.Loop().Time(), x.burst)
	if n == 0 {
		t.ScheduleAfter(wait)
		return
	}
	for i := uint(0); i < n; i++ {
		p := vnet.NewPacket(-1, x.next())
		p.DstIP = x.dst
		p.Device = x.device
		x.Out(0).Push(p)
	}
	if x.Done() {
		x.Logf("%d packets sent", x.n_packets_sent)
		return
	}
	t.Reschedule()
}

func (x *Source) ReadHandlers() map[string]func() string {
	return map[string]func() string{
		"count": func() string { return fmt.Sprintln(x.n_packets_sent) },
		"data":  func() string { return hex.EncodeToString(x.data) + "\n" },
	}
}
