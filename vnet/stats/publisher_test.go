// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stats

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinasystems/vgraph/elib/loop"
	"github.com/platinasystems/vgraph/internal/errors"
	"github.com/platinasystems/vgraph/vnet"
)

type counting struct {
	vnet.Node
	counters vnet.Counters
}

func (x *counting) Counters() *vnet.Counters { return &x.counters }

type fakeConn struct {
	mu      sync.Mutex
	hash    map[string]string
	pending [][]interface{}
	sends   int
	closed  bool
	fail    error
}

func (c *fakeConn) Close() error { c.closed = true; return nil }
func (c *fakeConn) Err() error   { return c.fail }
func (c *fakeConn) Flush() error { return c.fail }
func (c *fakeConn) Receive() (interface{}, error) {
	return nil, c.fail
}

func (c *fakeConn) Send(cmd string, args ...interface{}) error {
	if c.fail != nil {
		return c.fail
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends++
	c.pending = append(c.pending, append([]interface{}{cmd}, args...))
	return nil
}

func (c *fakeConn) Do(cmd string, args ...interface{}) (interface{}, error) {
	if c.fail != nil {
		return nil, c.fail
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.pending {
		if a[0] == "HSET" {
			c.hash[fmt.Sprint(a[1], " ", a[2])] = fmt.Sprint(a[3])
		}
	}
	c.pending = nil
	return nil, nil
}

func newTestGraph(t *testing.T) (*vnet.Graph, *counting) {
	g := vnet.NewGraph()
	x := &counting{counters: vnet.NewCounters("rx", "tx")}
	x.Errors = []string{"runt"}
	require.NoError(t, g.Add(x, "eth0"))
	require.NoError(t, g.Init(loop.New()))
	return g, x
}

func TestSnapshot(t *testing.T) {
	g, x := newTestGraph(t)
	x.counters.Add(0, 3)
	x.CountDrop(0)
	// Clearing never touches the published totals.
	x.counters.ClearAll()
	assert.Equal(t, map[string]uint64{
		"eth0.runt": 1,
		"eth0.rx":   3,
		"eth0.tx":   0,
	}, Snapshot(g))
}

func TestPublishChangedFields(t *testing.T) {
	g, x := newTestGraph(t)
	c := &fakeConn{hash: make(map[string]string)}
	dials := 0
	p := NewPublisher(g, "")
	p.Key = "k"
	p.Dial = func() (redis.Conn, error) { dials++; return c, nil }

	x.counters.Add(0, 5)
	require.NoError(t, p.Publish())
	assert.Equal(t, map[string]string{"k eth0.runt": "0", "k eth0.rx": "5", "k eth0.tx": "0"}, c.hash)
	assert.Equal(t, 3, c.sends)

	require.NoError(t, p.Publish())
	assert.Equal(t, 3, c.sends)

	x.counters.Inc(1)
	require.NoError(t, p.Publish())
	assert.Equal(t, 4, c.sends)
	assert.Equal(t, "1", c.hash["k eth0.tx"])
	assert.Equal(t, 1, dials)

	require.NoError(t, p.Close())
	assert.True(t, c.closed)
}

func TestPublishErrors(t *testing.T) {
	g, _ := newTestGraph(t)
	p := NewPublisher(g, "")
	p.Dial = func() (redis.Conn, error) { return nil, fmt.Errorf("refused") }
	err := p.Publish()
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindResource))

	c := &fakeConn{hash: make(map[string]string), fail: fmt.Errorf("broken pipe")}
	p.Dial = func() (redis.Conn, error) { return c, nil }
	err = p.Publish()
	require.Error(t, err)
	assert.True(t, c.closed)
	assert.Nil(t, p.conn)
}

func TestRunRetries(t *testing.T) {
	g, _ := newTestGraph(t)
	p := NewPublisher(g, "")
	p.retry.Min = time.Millisecond
	p.retry.Max = 2 * time.Millisecond
	var mu sync.Mutex
	dials := 0
	p.Dial = func() (redis.Conn, error) {
		mu.Lock()
		defer mu.Unlock()
		dials++
		return nil, fmt.Errorf("refused")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.Equal(t, context.DeadlineExceeded, p.Run(ctx))
	mu.Lock()
	assert.True(t, dials > 1)
	mu.Unlock()
}
