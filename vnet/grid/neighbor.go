// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grid

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/platinasystems/vgraph/internal/errors"
	"github.com/platinasystems/vgraph/vnet"
	"github.com/platinasystems/vgraph/vnet/ethernet"
	"github.com/platinasystems/vgraph/vnet/ip4"
)

// NextHopper resolves a destination to the link address of the next hop.
type NextHopper interface {
	NextHop(dst ip4.Address) (eth ethernet.Address, ok bool)
}

// Neighbor is a static next hop table found by capability "Neighbor".
//
//	table  mapping of destination ip4 address to next hop ethernet address
type Neighbor struct {
	vnet.Node
	mu sync.RWMutex
	m  map[ip4.Address]ethernet.Address
}

func NewNeighbor() *Neighbor {
	return &Neighbor{m: make(map[ip4.Address]ethernet.Address)}
}

func init() {
	vnet.RegisterClass("Neighbor", func() vnet.Noder { return NewNeighbor() })
}

func (x *Neighbor) Cast(name string) bool {
	return name == "Neighbor" || x.Node.Cast(name)
}

func (x *Neighbor) Configure(o *vnet.Options) (err error) {
	var errs []string
	for k, v := range o.Map("table") {
		dst, e := ip4.ParseAddress(k)
		if e != nil {
			errs = append(errs, fmt.Sprintf("table: %q: bad ip4 address", k))
			continue
		}
		eth, e := ethernet.ParseAddress(v)
		if e != nil {
			errs = append(errs, fmt.Sprintf("table: %s: %q: bad ethernet address", k, v))
			continue
		}
		x.Add(dst, eth)
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		err = errors.New(errors.KindConfig, strings.Join(errs, "; "))
	}
	return
}

func (x *Neighbor) Add(dst ip4.Address, eth ethernet.Address) {
	x.mu.Lock()
	x.m[dst] = eth
	x.mu.Unlock()
}

func (x *Neighbor) Del(dst ip4.Address) {
	x.mu.Lock()
	delete(x.m, dst)
	x.mu.Unlock()
}

func (x *Neighbor) NextHop(dst ip4.Address) (eth ethernet.Address, ok bool) {
	x.mu.RLock()
	eth, ok = x.m[dst]
	x.mu.RUnlock()
	return
}

func (x *Neighbor) ReadHandlers() map[string]func() string {
	return map[string]func() string{
		"table": func() string {
			x.mu.RLock()
			defer x.mu.RUnlock()
			dsts := make([]ip4.Address, 0, len(x.m))
			for a := range x.m {
				dsts = append(dsts, a)
			}
			sort.Slice(dsts, func(i, j int) bool { return dsts[i].AsUint32() < dsts[j].AsUint32() })
			var b strings.Builder
			for _, a := range dsts {
				fmt.Fprintf(&b, "%s %s\n", a, x.m[a])
			}
			return b.String()
		},
	}
}
