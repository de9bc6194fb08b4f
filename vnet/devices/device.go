// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package devices is the platform side of packet ingress: named devices that
// deliver raw frames from their own goroutines through a receive hook.
package devices

import (
	"sort"
	"sync"

	"github.com/platinasystems/vgraph/internal/errors"
)

// RxHook receives one frame.  It takes ownership of b and calls release
// exactly once when b may be reused, whether or not the frame was accepted.
// It must not block.
type RxHook func(b []byte, release func()) (accepted bool)

type Device interface {
	Name() string
	// SetRxHook installs h, or disables delivery when h is nil.  Once it
	// returns no call to the previous hook is in progress or will start.
	SetRxHook(h RxHook)
	SetPromisc(on bool) error
}

// Registry maps device names to devices.
type Registry struct {
	mu sync.Mutex
	m  map[string]Device
}

func NewRegistry() *Registry { return &Registry{m: make(map[string]Device)} }

// Default is the process wide registry.
var Default = NewRegistry()

func (r *Registry) Add(d Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[d.Name()]; ok {
		return errors.Errorf(errors.KindConfig, "%s: device already registered", d.Name())
	}
	r.m[d.Name()] = d
	return nil
}

func (r *Registry) Del(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, name)
}

func (r *Registry) Lookup(name string) (d Device, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok = r.m[name]
	return
}

func (r *Registry) Names() (names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.m {
		names = append(names, k)
	}
	sort.Strings(names)
	return
}
