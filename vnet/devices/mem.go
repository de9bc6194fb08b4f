// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package devices

import (
	"sync"
	"sync/atomic"
)

// MemDevice delivers frames handed to Inject.  It stands in for hardware in
// tests and for software sources.
type MemDevice struct {
	name string

	mu      sync.RWMutex
	hook    RxHook
	promisc bool

	release func()
	// Frames offered, accepted by the hook and released by the consumer.
	injected, accepted, released uint64
}

func NewMemDevice(name string) *MemDevice {
	d := &MemDevice{name: name}
	d.release = d.put
	return d
}

func (d *MemDevice) Name() string { return d.name }

func (d *MemDevice) SetRxHook(h RxHook) {
	d.mu.Lock()
	d.hook = h
	d.mu.Unlock()
}

func (d *MemDevice) SetPromisc(on bool) error {
	d.mu.Lock()
	d.promisc = on
	d.mu.Unlock()
	return nil
}

func (d *MemDevice) Promisc() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.promisc
}

func (d *MemDevice) put() { atomic.AddUint64(&d.released, 1) }

// Inject delivers b.  Safe to call from any goroutine.  Returns false when no
// hook is installed or the hook rejected the frame.
func (d *MemDevice) Inject(b []byte) (ok bool) {
	atomic.AddUint64(&d.injected, 1)
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.hook == nil {
		return
	}
	if ok = d.hook(b, d.release); ok {
		atomic.AddUint64(&d.accepted, 1)
	}
	return
}

func (d *MemDevice) Injected() uint64 { return atomic.LoadUint64(&d.injected) }
func (d *MemDevice) Accepted() uint64 { return atomic.LoadUint64(&d.accepted) }
func (d *MemDevice) Released() uint64 { return atomic.LoadUint64(&d.released) }
