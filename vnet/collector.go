// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vnet

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	dropsDesc = prometheus.NewDesc(
		"vgraph_element_drops_total",
		"Packets killed by an element, by reason.",
		[]string{"graph", "element", "reason"}, nil)
	countersDesc = prometheus.NewDesc(
		"vgraph_element_packets_total",
		"Element packet counters.",
		[]string{"graph", "element", "counter"}, nil)
)

// Collector exports the drop counters and packet counters of every element
// of a graph.  Counters are read atomically so scrapes may run while the
// loop does.
type Collector struct {
	g *Graph
}

func NewCollector(g *Graph) *Collector { return &Collector{g: g} }

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- dropsDesc
	ch <- countersDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	id := c.g.ID()
	for _, x := range c.g.Elements() {
		n := x.GetNode()
		for i := 0; i < n.drops.Len(); i++ {
			ch <- prometheus.MustNewConstMetric(dropsDesc, prometheus.CounterValue,
				float64(n.drops.Total(i)), id, n.name, n.drops.Name(i))
		}
		if y, ok := x.(Counterer); ok {
			cs := y.Counters()
			for i := 0; i < cs.Len(); i++ {
				ch <- prometheus.MustNewConstMetric(countersDesc, prometheus.CounterValue,
					float64(cs.Total(i)), id, n.name, cs.Name(i))
			}
		}
	}
}
