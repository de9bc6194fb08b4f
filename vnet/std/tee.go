// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package std

import (
	"github.com/platinasystems/vgraph/internal/errors"
	"github.com/platinasystems/vgraph/vnet"
)

// Tee pushes a copy of each packet on every output; the original goes out
// the last.
//
//	n  number of outputs (2)
type Tee struct {
	vnet.Node
}

func NewTee() *Tee {
	x := &Tee{}
	x.Ports = teePorts(2)
	return x
}

func init() {
	vnet.RegisterClass("Tee", func() vnet.Noder { return NewTee() })
}

func teePorts(n uint) (p vnet.Ports) {
	p.In = []vnet.PortMode{vnet.Push}
	p.Out = make([]vnet.PortMode, n)
	for i := range p.Out {
		p.Out[i] = vnet.Push
	}
	return
}

func (x *Tee) Configure(o *vnet.Options) (err error) {
	n := o.Uint("n", 2)
	if n == 0 {
		return errors.New(errors.KindConfig, "n: must be positive")
	}
	if int(n) != len(x.Ports.Out) {
		err = x.SetPorts(teePorts(n))
	}
	return
}

func (x *Tee) Push(port int, p *vnet.Packet) {
	last := x.NOut() - 1
	for i := 0; i < last; i++ {
		x.Out(i).Push(p.Clone())
	}
	x.Out(last).Push(p)
}
