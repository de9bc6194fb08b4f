// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Named packet counters.  Elements count from the loop goroutine; readers
// (read handlers, metrics scrapes) may run on any goroutine.
package vnet

import (
	"sync/atomic"
)

// Array of single counters
type Counters struct {
	names  []string
	values []uint64
	// Counter values when last cleared or zero if counters have never been cleared.
	valuesLastClear []uint64
}

func NewCounters(names ...string) (c Counters) {
	c.names = names
	c.values = make([]uint64, len(names))
	c.valuesLastClear = make([]uint64, len(names))
	return
}

func (c *Counters) Len() int            { return len(c.names) }
func (c *Counters) Name(i int) string   { return c.names[i] }
func (c *Counters) Names() []string     { return c.names }
func (c *Counters) Inc(i int)           { c.Add(i, 1) }
func (c *Counters) Add(i int, x uint64) { atomic.AddUint64(&c.values[i], x) }

// Value of counter i since last clear.
func (c *Counters) Value(i int) uint64 {
	return atomic.LoadUint64(&c.values[i]) - atomic.LoadUint64(&c.valuesLastClear[i])
}

// Total of counter i ignoring clears.  Exported metrics must be monotone.
func (c *Counters) Total(i int) uint64 { return atomic.LoadUint64(&c.values[i]) }

func (c *Counters) Clear(i int) {
	atomic.StoreUint64(&c.valuesLastClear[i], atomic.LoadUint64(&c.values[i]))
}

func (c *Counters) ClearAll() {
	for i := range c.values {
		c.Clear(i)
	}
}

// Map of counter name to value since last clear.
func (c *Counters) Map() map[string]uint64 {
	m := make(map[string]uint64, len(c.names))
	for i, n := range c.names {
		m[n] = c.Value(i)
	}
	return m
}
