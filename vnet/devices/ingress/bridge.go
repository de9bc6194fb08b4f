// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ingress hands frames from device goroutines to the loop.
//
// Each device gets one bounded queue shared by every reader registered for
// it.  The device hook enqueues under the queue mutex or drops when the
// queue is full; it never blocks and never allocates.  Loop tasks drain the
// queue in bursts.  When the last reader unregisters the hook is disabled
// before the queue is drained and freed.
package ingress

import (
	"sync"

	"github.com/platinasystems/log"

	"github.com/platinasystems/vgraph/elib/loop"
	"github.com/platinasystems/vgraph/internal/errors"
	"github.com/platinasystems/vgraph/vnet"
	"github.com/platinasystems/vgraph/vnet/devices"
)

type unit struct {
	b       []byte
	release func()
}

// Queue is the bounded ring between one device and its readers.
type Queue struct {
	dev devices.Device

	mu       sync.Mutex
	ring     []unit
	head, n  int
	attempts uint64
	accepted uint64
	// Registered readers; replaced, never modified in place.
	owners []*loop.Task
	freed  bool
}

func (q *Queue) Device() devices.Device { return q.dev }

// deliver is the device hook.
func (q *Queue) deliver(b []byte, release func()) bool {
	q.mu.Lock()
	if q.freed {
		q.mu.Unlock()
		release()
		return false
	}
	q.attempts++
	ok := q.n < len(q.ring)
	if ok {
		i := q.head + q.n
		if i >= len(q.ring) {
			i -= len(q.ring)
		}
		q.ring[i] = unit{b: b, release: release}
		q.n++
		q.accepted++
	}
	owners := q.owners
	q.mu.Unlock()
	if !ok {
		release()
		return false
	}
	for _, t := range owners {
		t.Wake()
	}
	return true
}

func (q *Queue) pop() (u unit, ok bool) {
	q.mu.Lock()
	if ok = q.n > 0 && len(q.owners) > 0; ok {
		u = q.ring[q.head]
		q.ring[q.head] = unit{}
		if q.head++; q.head == len(q.ring) {
			q.head = 0
		}
		q.n--
	}
	q.mu.Unlock()
	return
}

// Drain dequeues up to max units, one short critical section each, and
// hands each to fn as a packet owned by fn.  Returns the number handed over;
// fewer than max only when the queue ran empty.
func (q *Queue) Drain(max int, fn func(p *vnet.Packet)) (n int) {
	for n < max {
		u, ok := q.pop()
		if !ok {
			break
		}
		fn(vnet.MakePacket(u.b, u.release))
		n++
	}
	return
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

func (q *Queue) Capacity() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ring)
}

// Attempts counts every delivery offered by the device.
func (q *Queue) Attempts() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.attempts
}

// Drops counts deliveries rejected because the queue was full.
func (q *Queue) Drops() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.attempts - q.accepted
}

// Refs is the number of registered readers.
func (q *Queue) Refs() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.owners)
}

// Bridge is the registry of device queues keyed by device name.
type Bridge struct {
	mu     sync.Mutex
	queues map[string]*Queue
}

func NewBridge() *Bridge { return &Bridge{queues: make(map[string]*Queue)} }

var DefaultBridge = NewBridge()

// Queue returns the live queue of the named device or nil.
func (b *Bridge) Queue(name string) *Queue {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queues[name]
}

// Register adds owner as a reader of dev.  The first reader allocates the
// queue and installs the device hook; later readers share it.  Owner is
// woken on every accepted delivery.
func (b *Bridge) Register(owner *loop.Task, dev devices.Device, capacity int) (q *Queue, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	name := dev.Name()
	if q = b.queues[name]; q != nil {
		q.mu.Lock()
		if capacity != len(q.ring) {
			log.Print("warn", name, ": queue capacity ", capacity, " requested, using ", len(q.ring))
		}
		owners := make([]*loop.Task, len(q.owners), len(q.owners)+1)
		copy(owners, q.owners)
		q.owners = append(owners, owner)
		q.mu.Unlock()
		return
	}
	if capacity <= 0 {
		err = errors.Errorf(errors.KindResource, "%s: allocate queue of capacity %d", name, capacity)
		q = nil
		return
	}
	q = &Queue{
		dev:    dev,
		ring:   make([]unit, capacity),
		owners: []*loop.Task{owner},
	}
	b.queues[name] = q
	dev.SetRxHook(q.deliver)
	return
}

// Unregister removes owner as a reader of dev.  The last reader frees the
// queue.  Unregistering an owner that is not registered does nothing.
func (b *Bridge) Unregister(owner *loop.Task, dev devices.Device) {
	b.mu.Lock()
	defer b.mu.Unlock()
	name := dev.Name()
	q := b.queues[name]
	if q == nil {
		return
	}
	q.mu.Lock()
	i := -1
	for j, t := range q.owners {
		if t == owner {
			i = j
			break
		}
	}
	if i < 0 {
		q.mu.Unlock()
		return
	}
	owners := make([]*loop.Task, 0, len(q.owners)-1)
	owners = append(owners, q.owners[:i]...)
	q.owners = append(owners, q.owners[i+1:]...)
	last := len(q.owners) == 0
	q.mu.Unlock()
	if last {
		delete(b.queues, name)
		b.release(q)
	}
}

// release is the only teardown path of a queue: disable delivery, then
// discard what is buffered, then free the ring.
func (b *Bridge) release(q *Queue) {
	q.dev.SetRxHook(nil)
	q.mu.Lock()
	units := make([]unit, 0, q.n)
	for q.n > 0 {
		units = append(units, q.ring[q.head])
		if q.head++; q.head == len(q.ring) {
			q.head = 0
		}
		q.n--
	}
	q.ring = nil
	q.head = 0
	q.freed = true
	q.mu.Unlock()
	for _, u := range units {
		u.release()
	}
}
