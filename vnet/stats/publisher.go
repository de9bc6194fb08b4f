// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stats publishes element counters to redis.
package stats

import (
	"context"
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/jpillora/backoff"
	"github.com/platinasystems/log"

	"github.com/platinasystems/vgraph/internal/errors"
	"github.com/platinasystems/vgraph/vnet"
)

const (
	Timeout         = 500 * time.Millisecond
	DefaultInterval = 5 * time.Second
)

// Snapshot returns the monotone counters of every element keyed
// "element.name": drop reasons and element counters alike.
func Snapshot(g *vnet.Graph) map[string]uint64 {
	m := make(map[string]uint64)
	for _, x := range g.Elements() {
		n := x.GetNode()
		d := n.Drops()
		for i := 0; i < d.Len(); i++ {
			m[n.Name()+"."+d.Name(i)] = d.Total(i)
		}
		if c, ok := x.(vnet.Counterer); ok {
			cs := c.Counters()
			for i := 0; i < cs.Len(); i++ {
				m[n.Name()+"."+cs.Name(i)] = cs.Total(i)
			}
		}
	}
	return m
}

// Publisher periodically writes graph counters as fields of one redis hash.
// Only fields that changed since the last successful publish are written.
type Publisher struct {
	// Hash key; "vgraph:" + graph id by default.
	Key      string
	Interval time.Duration
	// Dial connects to redis; Dial(addr) by default.
	Dial func() (redis.Conn, error)

	g     *vnet.Graph
	conn  redis.Conn
	last  map[string]uint64
	retry backoff.Backoff
}

func NewPublisher(g *vnet.Graph, addr string) *Publisher {
	return &Publisher{
		Key:      "vgraph:" + g.ID(),
		Interval: DefaultInterval,
		Dial:     func() (redis.Conn, error) { return Dial(addr) },
		g:        g,
		retry: backoff.Backoff{
			Min:    Timeout,
			Max:    time.Minute,
			Factor: 2,
		},
	}
}

func Dial(addr string) (redis.Conn, error) {
	return redis.Dial("tcp", addr,
		redis.DialConnectTimeout(Timeout),
		redis.DialReadTimeout(Timeout),
		redis.DialWriteTimeout(Timeout))
}

// Publish writes changed counters once, connecting first if needed.
func (p *Publisher) Publish() (err error) {
	if p.conn == nil {
		if p.conn, err = p.Dial(); err != nil {
			p.conn = nil
			return errors.Wrap(err, errors.KindResource, "redis dial")
		}
		// A new connection may be to a fresh server.
		p.last = nil
	}
	m := Snapshot(p.g)
	n := 0
	for k, v := range m {
		if old, ok := p.last[k]; ok && old == v {
			continue
		}
		if err = p.conn.Send("HSET", p.Key, k, v); err != nil {
			break
		}
		n++
	}
	if err == nil && n > 0 {
		_, err = p.conn.Do("")
	}
	if err != nil {
		p.conn.Close()
		p.conn = nil
		return errors.Wrap(err, errors.KindResource, "redis hset")
	}
	p.last = m
	return
}

// Run publishes every Interval until ctx is done, backing off while redis
// is unreachable.
func (p *Publisher) Run(ctx context.Context) error {
	defer p.Close()
	d := time.Duration(0)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
		if err := p.Publish(); err != nil {
			d = p.retry.Duration()
			log.Print("warn", "stats: ", err, "; retry in ", d)
			continue
		}
		p.retry.Reset()
		d = p.Interval
	}
}

func (p *Publisher) Close() (err error) {
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	return
}
