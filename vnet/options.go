// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vnet

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/hashicorp/go-multierror"

	"github.com/platinasystems/vgraph/internal/errors"
	"github.com/platinasystems/vgraph/vnet/ethernet"
	"github.com/platinasystems/vgraph/vnet/ip4"
)

// Options are the keyword arguments of one element.  Getters consume keys
// and record conversion errors; Done reports those together with any key
// that no getter consumed.
type Options struct {
	m    map[string]interface{}
	used map[string]bool
	err  error
}

func NewOptions(m map[string]interface{}) *Options {
	if m == nil {
		m = make(map[string]interface{})
	}
	return &Options{m: m, used: make(map[string]bool)}
}

func (o *Options) fail(key string, format string, args ...interface{}) {
	o.err = multierror.Append(o.err, errors.Errorf(errors.KindConfig,
		"%s: %s", key, fmt.Sprintf(format, args...)))
}

func (o *Options) get(key string) (v interface{}, ok bool) {
	if v, ok = o.m[key]; ok {
		o.used[key] = true
	}
	return
}

func (o *Options) Has(key string) bool {
	_, ok := o.m[key]
	return ok
}

// Require records an error for each missing key.
func (o *Options) Require(keys ...string) {
	for _, k := range keys {
		if !o.Has(k) {
			o.fail(k, "missing required option")
		}
	}
}

func (o *Options) String(key, def string) string {
	v, ok := o.get(key)
	if !ok {
		return def
	}
	switch x := v.(type) {
	case string:
		return x
	case int, int64, uint, uint64, bool, float64:
		return fmt.Sprint(x)
	}
	o.fail(key, "expected string, got %T", v)
	return def
}

func (o *Options) Strings(key string) (ss []string) {
	v, ok := o.get(key)
	if !ok {
		return
	}
	switch x := v.(type) {
	case string:
		ss = []string{x}
	case []string:
		ss = x
	case []interface{}:
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				o.fail(key, "expected list of strings, got %T element", e)
				return nil
			}
			ss = append(ss, s)
		}
	default:
		o.fail(key, "expected list of strings, got %T", v)
	}
	return
}

func (o *Options) Uint(key string, def uint) uint {
	v, ok := o.get(key)
	if !ok {
		return def
	}
	switch x := v.(type) {
	case int:
		if x >= 0 {
			return uint(x)
		}
	case int64:
		if x >= 0 {
			return uint(x)
		}
	case uint:
		return x
	case uint64:
		return uint(x)
	case string:
		if u, err := strconv.ParseUint(x, 0, 0); err == nil {
			return uint(u)
		}
	}
	o.fail(key, "expected unsigned integer, got %v", v)
	return def
}

func (o *Options) Bool(key string, def bool) bool {
	v, ok := o.get(key)
	if !ok {
		return def
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		if b, err := strconv.ParseBool(x); err == nil {
			return b
		}
	}
	o.fail(key, "expected boolean, got %v", v)
	return def
}

func (o *Options) Ethernet(key string, def ethernet.Address) ethernet.Address {
	v, ok := o.get(key)
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		if a, err := ethernet.ParseAddress(s); err == nil {
			return a
		}
	}
	o.fail(key, "expected ethernet address, got %v", v)
	return def
}

func (o *Options) IP4(key string, def ip4.Address) ip4.Address {
	v, ok := o.get(key)
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		if a, err := ip4.ParseAddress(s); err == nil {
			return a
		}
	}
	o.fail(key, "expected ip4 address, got %v", v)
	return def
}

// Map consumes key as a string to string map.
func (o *Options) Map(key string) (m map[string]string) {
	v, ok := o.get(key)
	if !ok {
		return
	}
	m = make(map[string]string)
	switch x := v.(type) {
	case map[string]interface{}:
		for k, e := range x {
			m[k] = fmt.Sprint(e)
		}
	case map[string]string:
		for k, e := range x {
			m[k] = e
		}
	default:
		o.fail(key, "expected mapping, got %T", v)
		m = nil
	}
	return
}

// Done returns all conversion errors plus one error per unrecognized key.
func (o *Options) Done() error {
	var unknown []string
	for k := range o.m {
		if !o.used[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		o.fail(k, "unrecognized option")
	}
	if m, ok := o.err.(*multierror.Error); ok {
		return m.ErrorOrNil()
	}
	return o.err
}

// Configure applies o to x and marks x failed on error.
func Configure(x Noder, o *Options) (err error) {
	if c, ok := x.(Configurer); ok {
		err = c.Configure(o)
	}
	err = multierror.Append(err, o.Done()).ErrorOrNil()
	if err != nil {
		x.GetNode().failed = true
	}
	return
}
